// Package closureiter implements the closure-iterator lowering pass: it
// rewrites the body of a yield-using routine into a flat state machine
// driven by an integer program counter, the same transformation Nim's
// compiler performs on closure iterators before code generation.
package closureiter

import (
	"github.com/dispatchrun/closureiter/ast"
	"github.com/dispatchrun/closureiter/diag"
	"github.com/dispatchrun/closureiter/symtab"
)

// Result is everything Transform produces for one iterator routine.
type Result struct {
	// Body replaces the routine's original statement list.
	Body []ast.Stmt

	// States is the final, compacted state list, exposed mainly for
	// tests and tracing; the code generator has no need to look at it
	// once Body has been spliced in, since every GotoState/StateRef it
	// might have wanted has already been lowered into Body directly.
	States []*ast.State

	// ExcTable is nil when the routine uses no exceptions at all (no
	// try/except/finally was reachable), otherwise one entry per State
	// in States, encoded per exctable.go's convention.
	ExcTable []int

	// ExcTableWidth is the width the caller's Config selected; it is
	// surfaced here because ExcTable itself is a plain []int regardless
	// of width — the host decides how to size the const it emits.
	ExcTableWidth ExcTableWidth

	// ColoredCallers is nil unless Config.CallGraph was set. Otherwise it
	// holds every function color.go's ColorCallers found transitively
	// calling into a yielding function (fn included, when fn itself turned
	// out to contain a lexical yield) — the set of functions the host still
	// needs to thread the same hidden-variable plumbing through, even
	// though Transform only lowers one routine body at a time.
	ColoredCallers map[FuncID]bool
}

// Transform lowers body, the statement list making up fn's routine, into
// the flat state-machine form described above. returnType is fn's
// declared return type (symtab.Unit, or nil, for a routine that never
// returns a value across an unroll). reporter receives every diagnostic;
// passing nil installs diag.NewReporter()'s default (log to slog.Default
// and panic).
//
// Transform runs components A through G in the order spec.md §6's driver
// table lists, except that §4.C's transformReturnsInTry sub-pass is
// folded into §4.D's own Return handling rather than run as a separate
// whole-tree pass beforehand — see tryprep.go's doc comment and
// DESIGN.md.
func Transform(fn *symtab.Symbol, returnType symtab.Type, body []ast.Stmt, compiler symtab.Compiler, idGen *symtab.IdGenerator, reporter *diag.Reporter, opts ...Option) (result *Result, err error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	p := newPass(fn, returnType, compiler, idGen, reporter, cfg)

	defer func() {
		if r := recover(); r != nil {
			if ierr, ok := r.(*diag.InternalError); ok {
				err = ierr
				return
			}
			panic(r)
		}
	}()

	var fnPos ast.Pos
	if len(body) > 0 {
		fnPos = body[0].Pos()
	}

	body = splitExprs(p, body)

	states := p.splitBody(body)
	propagatePos(states, fnPos)
	if cfg.FoldEmptyStates {
		states = foldEmptyStates(states)
	} else {
		flattenStmtLists(states)
		for i, s := range states {
			s.ID = i
		}
	}

	block, _ := p.buildDispatchBlock(states)
	loopStmts, table := p.assembleLoop(block, states)
	loopStmts = pruneUnusedLabels(loopStmts)

	result = &Result{
		Body:          p.finalBody(loopStmts),
		States:        states,
		ExcTable:      table,
		ExcTableWidth: cfg.ExcTableWidth,
	}
	if cfg.CallGraph != nil {
		roots := cfg.YieldRoots
		if p.sawYield {
			roots = append(append([]FuncID{}, roots...), cfg.FnID)
		}
		result.ColoredCallers = ColorCallers(cfg.CallGraph, roots)
	}
	return result, nil
}

// finalBody prepends the hidden-variable/temporary var section (when the
// pass collected one — i.e. lambda-lifting hadn't already run for fn) to
// the dispatch loop.
func (p *pass) finalBody(loopStmts []ast.Stmt) []ast.Stmt {
	if p.env.lifted() || p.env.locals == nil {
		return loopStmts
	}
	out := make([]ast.Stmt, 0, len(loopStmts)+1)
	out = append(out, p.env.locals)
	out = append(out, loopStmts...)
	return out
}
