package closureiter

import (
	"github.com/dispatchrun/closureiter/ast"
	"github.com/dispatchrun/closureiter/symtab"
)

// exctable.go is spec.md §4.E: it builds the exception table — one entry
// per state, encoding what should run next if that state's body raises —
// and, when the function actually uses try/except/finally anywhere,
// installs the try/except wrapper around the dispatch block that
// consults the table at runtime.
//
// Table encoding (an Open Question spec.md leaves to the implementation):
// entry 0 means "no handler, let the exception propagate out of the
// iterator"; a positive entry k means "resume at state k-1 by way of its
// finally"; a negative entry -k means "resume at state k-1 by way of its
// except". The +/-1 offset is what lets state 0 be a valid finally/except
// target without colliding with the "no handler" sentinel at 0.

// excTableEntry encodes one state's Handler per the convention above.
func excTableEntry(s *ast.State) int {
	switch s.Handler.Kind {
	case ast.FinallyHandler:
		return s.Handler.Target.ID + 1
	case ast.ExceptHandler:
		return -(s.Handler.Target.ID + 1)
	default:
		return 0
	}
}

// buildExcTable returns one entry per state, in state id order.
func buildExcTable(states []*ast.State) []int {
	table := make([]int, len(states))
	for _, s := range states {
		table[s.ID] = excTableEntry(s)
	}
	return table
}

// assembleLoop finishes §4.F/§4.E together: it wraps block in the `while
// true` scaffold, and, when the function uses exceptions, wraps block
// itself in a try/except that looks up excTable[state] on the way out and
// either resumes dispatch at the handler state or lets the exception
// continue propagating.
//
// Grounded on the same try/except-around-a-dispatch-loop shape the
// teacher's runtime support (coroc/compiler/coroutine_asyncio.go's
// generated driver loop) uses for resuming a suspended call after an
// error — this pass builds the equivalent at the source level instead of
// relying on a runtime trampoline, since here the dispatch loop itself
// *is* the rewritten function body.
func (p *pass) assembleLoop(block *ast.Block, states []*ast.State) ([]ast.Stmt, []int) {
	if !p.hasExceptions {
		return []ast.Stmt{&ast.While{Cond: trueLit(), Body: []ast.Stmt{block}}}, nil
	}

	table := buildExcTable(states)
	excSym := p.compiler.GetSysSym("closureIterExcTable")

	tableRef := ast.Expr(ast.NewIdent(tableName(p)))
	if excSym != nil {
		tableRef = &ast.Ident{Name: excSym.Name, Sym: excSym}
	}

	idx := p.env.newTempVar(symtab.Int)
	entry := &ast.Assign{Lhs: idx, Rhs: &ast.Bracket{X: tableRef, Index: p.env.stateAccess()}}

	resumeFinally := []ast.Stmt{
		p.env.assignState(&ast.Binary{Op: "-", X: idx, Y: intLit(1)}),
		p.env.assignBool(p.env.unrollFinallyAccess(), true),
		p.env.assignInt(p.env.unrollUntilAccess(), -1),
		&ast.Assign{Lhs: p.env.curExcAccess(), Rhs: p.compiler.CallCodegenProc("getCurrentException")},
	}
	resumeExcept := []ast.Stmt{
		p.env.assignState(&ast.Binary{Op: "-", X: &ast.Unary{Op: "-", X: idx}, Y: intLit(1)}),
		p.env.assignBool(p.env.unrollFinallyAccess(), false),
		p.env.assignInt(p.env.unrollUntilAccess(), -1),
		&ast.Assign{Lhs: p.env.curExcAccess(), Rhs: p.compiler.CallCodegenProc("getCurrentException")},
	}
	reraise := []ast.Stmt{&ast.Raise{}}

	dispatchOnEntry := &ast.If{
		Cond: &ast.Binary{Op: ">", X: idx, Y: intLit(0)},
		Then: resumeFinally,
		Else: []ast.Stmt{&ast.If{
			Cond: &ast.Binary{Op: "<", X: idx, Y: intLit(0)},
			Then: resumeExcept,
			Else: reraise,
		}},
	}

	handler := &ast.ExceptClause{Body: []ast.Stmt{entry, dispatchOnEntry}}
	wrapped := &ast.Try{Body: []ast.Stmt{block}, Handlers: []*ast.ExceptClause{handler}}
	loop := &ast.While{Cond: trueLit(), Body: []ast.Stmt{wrapped}}
	return []ast.Stmt{loop}, table
}

// tableName is the fallback identifier used for the exception table when
// the host compiler (via GetSysSym) doesn't already have a well-known
// symbol for it; a real host is expected to intern this as a package- or
// function-level const sized per Config.ExcTableWidth.
func tableName(p *pass) string {
	return p.fn.Name + "ExcTable"
}

