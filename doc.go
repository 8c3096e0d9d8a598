// Package understory provides an incremental parsing front end built on
// tree-sitter: a parser session with cooperative cancellation and a
// dual-indexed UTF-16 text buffer, plus generation of per-grammar build
// modules so each language grammar compiles and loads independently.
//
// # Core types
//
// [Buffer] stores source text as UTF-16 code units in a single byte
// arena, serving both code-unit offsets (the string model of editors
// and protocol layers) and byte offsets (the model of tree-sitter's
// scanner) with O(1) translation between the two.
//
// [Session] owns one tree-sitter parser and serializes access to it in
// rounds: one incremental parse attempt at a time, cancellable from any
// goroutine while it runs.
//
//	s := understory.NewSession()
//	defer s.Close()
//
//	lang, err := language.Get("go")
//	if err != nil { ... }
//	if err := s.SetLanguage(lang); err != nil { ... }
//
//	buf := understory.NewBufferString(src)
//	tree, err := s.Parse(context.Background(), nil, buf)
//
// A parse in progress can be cancelled from another goroutine with
// [Session.RequestCancellation]; the cancelled Parse returns a nil tree
// and a nil error. Cancellation racing with completion is benign: the
// request reports false when no round is in flight.
//
// # Grammars
//
// The language package keeps one *sitter.Language per grammar name for
// the whole process. Grammars bundled with go-tree-sitter are available
// out of the box; additional grammars are generated as standalone cgo
// packages from a YAML manifest:
//
//	understory generate --manifest grammars.yaml --out grammars/
//
// Each generated module exposes a GetLanguage accessor that obtains the
// grammar handle once and reuses it, and a RegisterAll hook that wires
// the generated grammars into the process-wide registry.
package understory
