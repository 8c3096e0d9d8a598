package understory

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	sitter "github.com/smacker/go-tree-sitter"
)

// Session owns a single tree-sitter parser and serializes access to it
// in rounds. One round is one incremental parse attempt: at most one
// may be in flight per session at a time, and while it runs any other
// goroutine may cancel it through RequestCancellation.
//
// The round slot is guarded by a mutex; slot transitions are rare
// (round start, round end, cancellation request) so the lock is never
// contended on the parse hot path. Within a round the cancelled state
// is an atomic read, because the parsing engine polls for cancellation
// far more often than the slot changes.
//
// Parse is meant to be called from one worker goroutine at a time; a
// concurrent second Parse fails immediately with ErrParseInProgress
// rather than queueing. RequestCancellation is the one method designed
// for genuinely concurrent use. The configuration accessors are safe
// only when no round is in flight.
type Session struct {
	mu     sync.Mutex // guards round slot transitions and closed state
	parser *sitter.Parser
	round  *round
	closed bool

	// Shadowed configuration, returned by the getters. The parser is
	// the source of truth during parsing; these exist because the
	// engine does not expose readers for everything it is told.
	lang   *sitter.Language
	ranges []sitter.Range
}

// round is the occupant of a session's flag slot while a parse is in
// flight. cancel feeds the engine's cancellation poll through the parse
// context; cancelled records that the halt was requested rather than
// an engine failure, readable lock-free from the parsing goroutine.
type round struct {
	ctx       context.Context
	cancel    context.CancelFunc
	cancelled atomic.Bool
}

// NewSession creates a session with a fresh parser, no language, and an
// empty round slot. The caller owns the session and must Close it to
// release the native parser.
func NewSession() *Session {
	return &Session{parser: sitter.NewParser()}
}

// Parse runs one incremental parse round over the buffer's scanner
// bytes. oldTree is the previous syntax tree for the same document, or
// nil for a fresh parse.
//
// A round cancelled through RequestCancellation, or through ctx, ends
// normally and returns (nil, nil): cancellation is an expected outcome,
// not an error. An engine timeout set via SetTimeoutMicros surfaces as
// an error wrapping sitter.ErrOperationLimit. Either way the session
// returns to idle and a subsequent Parse proceeds normally.
//
// The buffer is borrowed read-only for the duration of the round; the
// caller must not mutate it until Parse returns.
func (s *Session) Parse(ctx context.Context, oldTree *sitter.Tree, buf *Buffer) (*sitter.Tree, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if buf == nil {
		return nil, fmt.Errorf("understory: parse: buffer must not be nil")
	}

	r, parser, err := s.beginRound(ctx)
	if err != nil {
		return nil, err
	}
	defer s.endRound(r)

	tree, err := parser.ParseCtx(r.ctx, oldTree, buf.Bytes())
	if err != nil {
		if r.cancelled.Load() || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, nil
		}
		return nil, fmt.Errorf("understory: parse: %w", err)
	}
	// A cancellation delivered after the engine's last poll can lose the
	// race and let the parse complete. The round was still cancelled:
	// discard the tree so the outcome does not depend on poll timing.
	// The binding zeroes its cancellation word only when cancellation
	// wins and it returns no tree, so after a lost race the word can
	// stay set inside the engine until the next parse rearms it.
	if r.cancelled.Load() || r.ctx.Err() != nil {
		return nil, nil
	}
	return tree, nil
}

// beginRound transitions the slot empty→occupied, failing fast when the
// session is closed, a round is already in flight, or no language is
// set (the engine cannot run without one, so this is rejected up front
// instead of crashing inside the scanner).
func (s *Session) beginRound(ctx context.Context) (*round, *sitter.Parser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, nil, ErrSessionClosed
	}
	if s.round != nil {
		return nil, nil, ErrParseInProgress
	}
	if s.lang == nil {
		return nil, nil, ErrNoLanguage
	}

	roundCtx, cancel := context.WithCancel(ctx)
	r := &round{ctx: roundCtx, cancel: cancel}
	s.round = r
	return r, s.parser, nil
}

// endRound transitions the slot occupied→empty. Success, failure, and
// cancellation all come through here; the session is idle afterwards.
func (s *Session) endRound(r *round) {
	s.mu.Lock()
	if s.round == r {
		s.round = nil
	}
	s.mu.Unlock()
	r.cancel()
}

// RequestCancellation asks the in-flight parse round to halt. It may be
// called from any goroutine, at any time, and never blocks on the parse
// itself; it only takes the short-lived slot mutex.
//
// It returns true if a round was in flight and the cancellation was
// delivered. Returns false, with no effect on later parses, when the
// session is idle; a cancellation racing with round completion is
// expected and benign. The halt is eventual, not immediate: the engine
// notices at its next cancellation poll.
func (s *Session) RequestCancellation() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, ErrSessionClosed
	}
	if s.round == nil {
		return false, nil
	}
	s.round.cancelled.Store(true)
	s.round.cancel()
	return true, nil
}

// SetLanguage sets the grammar the parser uses for subsequent rounds.
func (s *Session) SetLanguage(lang *sitter.Language) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	if lang == nil {
		return fmt.Errorf("understory: set language: language must not be nil")
	}
	s.parser.SetLanguage(lang)
	s.lang = lang
	return nil
}

// Language returns the grammar set on the session, or nil if none has
// been set.
func (s *Session) Language() (*sitter.Language, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrSessionClosed
	}
	return s.lang, nil
}

// SetTimeoutMicros sets the engine-enforced parse budget in
// microseconds. Zero means no budget. Timeout and cancellation are
// independent: the budget is enforced by the engine, cancellation is
// caller-driven and can fire regardless.
func (s *Session) SetTimeoutMicros(micros uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	s.parser.SetOperationLimit(int(micros))
	return nil
}

// TimeoutMicros returns the engine-enforced parse budget in
// microseconds.
func (s *Session) TimeoutMicros() (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrSessionClosed
	}
	return uint64(s.parser.OperationLimit()), nil
}

// SetIncludedRanges restricts parsing to the given byte ranges of the
// document, for multi-language embedding. Ranges must be ordered and
// non-overlapping. An empty slice restores whole-document parsing.
func (s *Session) SetIncludedRanges(ranges []sitter.Range) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	s.parser.SetIncludedRanges(ranges)
	s.ranges = slices.Clone(ranges)
	return nil
}

// IncludedRanges returns the ranges set by SetIncludedRanges. The
// engine exposes no reader for this, so the session keeps the
// authoritative copy.
func (s *Session) IncludedRanges() ([]sitter.Range, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrSessionClosed
	}
	return slices.Clone(s.ranges), nil
}

// Reset discards resumable parse state. After a halted round (timeout
// or cancellation) the engine would otherwise resume where it left off;
// call Reset before pointing the session at a different document.
func (s *Session) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	s.parser.Reset()
	return nil
}

// Close releases the native parser. Close is idempotent; every other
// method on a closed session fails with ErrSessionClosed rather than
// touching freed state. Closing while a round is in flight fails with
// ErrParseInProgress.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	if s.round != nil {
		return ErrParseInProgress
	}
	s.parser.Close()
	s.parser = nil
	s.lang = nil
	s.ranges = nil
	s.closed = true
	return nil
}
