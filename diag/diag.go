// Package diag implements the closure-iterator lowering pass's diagnostic
// channel: spec.md §7 classifies every failure the pass can produce as a
// fatal, compile-time invariant violation, with no recovery inside the
// pass. This package gives that classification a concrete shape — a typed
// error plus structured logging — instead of a bare panic(string), in the
// spirit of how the teacher package reports errors (fmt.Errorf with %w
// wrapping, see compiler/color.go) and traces them (log/slog, see
// coroc/compiler/serde_test.go's enableDebugLogs).
package diag

import (
	"fmt"
	"log/slog"
)

// Kind classifies an InternalError per spec.md §7's taxonomy.
type Kind int

const (
	// UnsupportedConstruct means the input tree contained a construct the
	// pass never expects to see (for/continue/goto_state reaching §4.D,
	// an unhandled AST kind, and so on).
	UnsupportedConstruct Kind = iota
	// PostconditionFailure means an earlier component's output invariant
	// didn't hold going into a later one (e.g. a yield still nested in an
	// expression after §4.B).
	PostconditionFailure
	// InvalidInput means the caller asked for something the pass
	// structurally cannot do (e.g. synthesizing tmpResult for an iterator
	// with no return type).
	InvalidInput
)

func (k Kind) String() string {
	switch k {
	case UnsupportedConstruct:
		return "unsupported construct"
	case PostconditionFailure:
		return "postcondition failure"
	case InvalidInput:
		return "invalid input"
	default:
		return "internal error"
	}
}

// InternalError is a fatal invariant violation raised by the pass. It is
// always both logged (at LevelError, with structured fields identifying
// where in the pass it came from) and returned/panicked with — the
// logging is a debugging aid, not a substitute for the caller handling the
// error.
type InternalError struct {
	Kind  Kind
	Pass  string // e.g. "statesplit", "exprsplit"
	Msg   string
	Wrap  error
}

func (e *InternalError) Error() string {
	if e.Wrap != nil {
		return fmt.Sprintf("closureiter: internal error [%s/%s]: %s: %v", e.Pass, e.Kind, e.Msg, e.Wrap)
	}
	return fmt.Sprintf("closureiter: internal error [%s/%s]: %s", e.Pass, e.Kind, e.Msg)
}

func (e *InternalError) Unwrap() error { return e.Wrap }

// Reporter is the pass's handle onto the host compiler's diagnostic
// channel. The default implementation logs through log/slog and panics,
// matching the teacher's own "errors are fatal for the translation unit"
// posture (spec.md §7's "Recovery: none within the pass").
type Reporter struct {
	Logger *slog.Logger
	Debug  bool
}

// NewReporter returns a Reporter that logs to slog.Default().
func NewReporter() *Reporter {
	return &Reporter{Logger: slog.Default()}
}

// Fatal logs and panics with an *InternalError built from the given
// fields. Every call site in closureiter that detects a spec.md §7
// violation should route through here rather than panicking directly, so
// that the failure is always both typed and logged.
func (r *Reporter) Fatal(pass string, kind Kind, msg string, args ...any) {
	err := &InternalError{Kind: kind, Pass: pass, Msg: fmt.Sprintf(msg, args...)}
	r.log(err)
	panic(err)
}

// Fatalw logs and panics with an *InternalError that wraps err.
func (r *Reporter) Fatalw(pass string, kind Kind, err error, msg string, args ...any) {
	ierr := &InternalError{Kind: kind, Pass: pass, Msg: fmt.Sprintf(msg, args...), Wrap: err}
	r.log(ierr)
	panic(ierr)
}

func (r *Reporter) log(err *InternalError) {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Error("closure-iterator lowering failed",
		slog.String("pass", err.Pass),
		slog.String("kind", err.Kind.String()),
		slog.String("msg", err.Msg),
	)
}

// Tracef emits a debug-level trace line when Debug is enabled; used by
// §4.D's state splitter to trace state allocation (grounded on
// compiler/color.go's debugColors-gated tracing).
func (r *Reporter) Tracef(pass, msg string, args ...any) {
	if r == nil || !r.Debug {
		return
	}
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Debug(fmt.Sprintf(msg, args...), slog.String("pass", pass))
}
