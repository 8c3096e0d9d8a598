package understory

import "errors"

var (
	// ErrSessionClosed is returned by every Session method called after
	// Close. The session's native parser is gone; there is no stale
	// state to read.
	ErrSessionClosed = errors.New("understory: session is closed")

	// ErrParseInProgress is returned when an operation would disturb an
	// in-flight parse round: a second Parse on the same session, or
	// Close while a round is running.
	ErrParseInProgress = errors.New("understory: a parse is already in progress")

	// ErrNoLanguage is returned by Parse when no grammar has been set
	// on the session.
	ErrNoLanguage = errors.New("understory: no language set on session")

	// ErrOutOfRange is returned by Buffer operations whose index or
	// range does not fit the buffer's current length.
	ErrOutOfRange = errors.New("understory: index out of range")

	// ErrUnalignedOffset is returned by Buffer.DeleteBytes when a byte
	// offset is odd and would split a UTF-16 code unit.
	ErrUnalignedOffset = errors.New("understory: byte offset is not code-unit aligned")
)
