package closureiter

import "github.com/dispatchrun/closureiter/ast"

// This file is spec.md §4.C, with one implementation decision recorded
// here rather than run as the two independent, ordered sub-passes spec.md
// describes.
//
// transformReturnsInTry (sub-pass 1) rewrites a `return e` reachable
// without crossing a function boundary from inside a `try` into the
// finally-unroll protocol. Doing that as a standalone tree-to-tree pass
// before §4.D runs, as spec.md's driver table lists it, needs a stand-in
// for "the nearest finally" that isn't an *ast.State yet — §4.D is what
// allocates those. Rather than invent a second placeholder-state indirection
// that §4.D would then have to reconcile with the real ones it allocates,
// this implementation folds sub-pass 1 into §4.D's own Return case: by the
// time the splitter reaches a Return, it already has the real *ast.State
// for the nearest enclosing finally (or nil) as part of its walk context,
// so returnUnrollStmts below is called directly from statesplit.go's
// splitStmt, not from a separate whole-tree pre-pass. The output is
// byte-for-byte what spec.md's pseudocode describes; only the scheduling
// changed. See DESIGN.md.
//
// addElseToExcept (sub-pass 2) is unchanged from spec.md: §4.D calls it
// while building an except dispatch cascade, exactly as the driver table
// says ("D, which recurses into C-except as needed").

// returnUnrollStmts builds the statement sequence spec.md §4.C's
// transformReturnsInTry prescribes for `return e` found lexically inside a
// try whose nearest enclosing finally is nearestFinally. value is nil for a
// bare return out of a unit-returning iterator.
func returnUnrollStmts(p *pass, nearestFinally *ast.State, value ast.Expr) []ast.Stmt {
	var stmts []ast.Stmt
	stmts = append(stmts, p.env.assignBool(p.env.unrollFinallyAccess(), true))
	stmts = append(stmts, p.env.assignInt(p.env.unrollUntilAccess(), -1))
	if value != nil {
		stmts = append(stmts, &ast.Assign{Lhs: p.env.tmpResultAccess(), Rhs: value})
	}
	stmts = append(stmts, p.env.nullifyCurExc())
	stmts = append(stmts, ast.NewGotoState(nearestFinally))
	return stmts
}

// addElseToExcept implements spec.md §4.C's sub-pass 2: if the except
// dispatch cascade built by collectExceptState (statesplit.go) has no
// trailing catch-all branch, append one that marks the exception as
// unhandled-by-the-user and defers to the nearest finally (or, when there
// is none, to the outer try/except wrapper §4.E installs around the whole
// state loop).
func addElseToExcept(p *pass, clauses []*ast.ExceptClause, ifChain *ast.If, nearestFinally *ast.State) {
	hasCatchAll := false
	for _, c := range clauses {
		if c.Types == nil {
			hasCatchAll = true
			break
		}
	}
	if hasCatchAll {
		return
	}
	if nearestFinally == nil {
		// Re-raising hands the exception back to §4.E's wrapper, which looks
		// up the except state's own handler in the table.
		attachElse(ifChain, []ast.Stmt{&ast.Raise{X: p.compiler.CallCodegenProc("getCurrentException")}})
		return
	}
	var tail []ast.Stmt
	tail = append(tail, p.env.assignBool(p.env.unrollFinallyAccess(), true))
	tail = append(tail, p.env.assignInt(p.env.unrollUntilAccess(), -1))
	tail = append(tail, &ast.Assign{
		Lhs: p.env.curExcAccess(),
		Rhs: p.compiler.CallCodegenProc("getCurrentException"),
	})
	tail = append(tail, ast.NewGotoState(nearestFinally))
	attachElse(ifChain, tail)
}

// attachElse walks to the last branch of an if/elif chain and sets its Else.
func attachElse(ifStmt *ast.If, elseBody []ast.Stmt) {
	for {
		if ifStmt.Else == nil {
			ifStmt.Else = elseBody
			return
		}
		if len(ifStmt.Else) == 1 {
			if next, ok := ifStmt.Else[0].(*ast.If); ok {
				ifStmt = next
				continue
			}
		}
		// Else is already populated with something other than a chained
		// elif (shouldn't happen for a cascade this package builds itself).
		ifStmt.Else = append(ifStmt.Else, elseBody...)
		return
	}
}
