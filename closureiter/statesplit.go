package closureiter

import (
	"github.com/dispatchrun/closureiter/ast"
	"github.com/dispatchrun/closureiter/diag"
)

// statesplit.go is spec.md §4.D, the central pass: it walks the
// (statement-list-expression-free, per §4.B) iterator body and produces the
// list of State records the rest of the pipeline works from.
//
// splitCtx is threaded through the recursive walk the way spec.md §3's
// "breakable scopes" and §4.D's per-kind rules describe: nearestFinally is
// the State a pending return/break/uncaught-exception must unroll through
// next, and handler is the exception-table link (spec.md §4.E) every State
// allocated in the current region should carry.
type splitCtx struct {
	nearestFinally *ast.State
	handler        ast.Handler
}

// splitBody is the pass's entry into §4.D: it allocates the entry state
// (always index 0 in p.states, per spec.md §4.G's "neither the first state
//... nor the synthetic exit" exemption) and walks stmts into it and
// whatever further states the walk allocates.
func (p *pass) splitBody(stmts []ast.Stmt) []*ast.State {
	entry := p.newState()
	entry.Body = p.splitList(stmts, ast.ExitState, splitCtx{})
	return p.states
}

// newStateIn allocates a State and stamps it with ctx's current exception
// handler, so that every State created while walking inside a try's
// protected region automatically gets that try's exception-table entry
// without every call site having to set Handler by hand.
func (p *pass) newStateIn(ctx splitCtx) *ast.State {
	s := p.newState()
	s.Handler = ctx.handler
	return s
}

// hasControlFlow reports whether n transitively contains a Yield or Break,
// or — only while ctx says a pending unroll is already in scope — a Return,
// per spec.md §4.D's "Statement list" rule. A Return that isn't lexically
// inside a try-with-finally needs no special handling and so isn't a split
// point: spec.md §8 invariant 8 (the no-yield round trip) depends on this,
// since otherwise every function with any return statement would
// needlessly fragment into states.
func hasControlFlow(n ast.Node, ctx splitCtx) bool {
	unrolling := ctx.nearestFinally != nil
	found := false
	ast.Inspect(n, func(x ast.Node) bool {
		if found {
			return false
		}
		switch x.(type) {
		case *ast.Yield, *ast.Break:
			found = true
			return false
		case *ast.Return:
			if unrolling {
				found = true
				return false
			}
		}
		return true
	})
	return found
}

// splitList implements spec.md §4.D's "Statement list" rule: the returned
// sequence is what the *caller's* currently-accumulating state body should
// use in place of stmts. It always ends in a control transfer, either the
// synthetic `goto_state outState` spec.md mandates when nothing in stmts
// needs special handling, or whatever the first control-flow statement's
// own rule produces.
func (p *pass) splitList(stmts []ast.Stmt, outState *ast.State, ctx splitCtx) []ast.Stmt {
	for i, s := range stmts {
		if hasControlFlow(s, ctx) {
			suffix := p.newStateIn(ctx)
			suffix.Body = p.splitList(stmts[i+1:], outState, ctx)
			head := p.splitStmt(s, suffix, ctx)
			out := make([]ast.Stmt, 0, i+len(head))
			out = append(out, stmts[:i]...)
			out = append(out, head...)
			return out
		}
	}
	out := make([]ast.Stmt, 0, len(stmts)+1)
	out = append(out, stmts...)
	out = append(out, ast.NewGotoState(outState))
	return out
}

// splitStmt dispatches to the per-kind rule for a statement spec.md §4.D
// identified as needing special handling; its return value replaces s in
// the body being built, and outState is where control should land once
// that replacement's own control transfers eventually run out.
func (p *pass) splitStmt(s ast.Stmt, outState *ast.State, ctx splitCtx) []ast.Stmt {
	switch s := s.(type) {
	case *ast.ExprStmt:
		if _, ok := s.X.(*ast.Yield); !ok {
			p.fatal("statesplit", diag.PostconditionFailure, "ExprStmt flagged as control flow without a bare yield: %T", s.X)
		}
		return []ast.Stmt{s, ast.NewGotoState(outState)}

	case *ast.Break:
		return p.splitBreak(s, ctx)

	case *ast.Return:
		if ctx.nearestFinally == nil {
			return []ast.Stmt{s}
		}
		return returnUnrollStmts(p, ctx.nearestFinally, s.Value)

	case *ast.Raise:
		return []ast.Stmt{s}

	case *ast.If:
		s.Then = p.splitList(s.Then, outState, ctx)
		s.Else = p.splitList(s.Else, outState, ctx)
		return []ast.Stmt{s}

	case *ast.Case:
		hasDefault := false
		for _, c := range s.Clauses {
			c.Body = p.splitList(c.Body, outState, ctx)
			if c.Values == nil {
				hasDefault = true
			}
		}
		if !hasDefault {
			s.Clauses = append(s.Clauses, &ast.CaseClause{Body: p.splitList(nil, outState, ctx)})
		}
		return []ast.Stmt{s}

	case *ast.While:
		begin := p.newStateIn(ctx)
		then := p.splitList(s.Body, begin, ctx)
		begin.Body = []ast.Stmt{&ast.If{
			Cond: s.Cond,
			Then: then,
			Else: []ast.Stmt{ast.NewGotoState(outState)},
		}}
		return []ast.Stmt{ast.NewGotoState(begin)}

	case *ast.Block:
		p.breakable[s.Label] = breakScope{outState: outState, nearestFinally: ctx.nearestFinally}
		return p.splitList(s.Body, outState, ctx)

	case *ast.Try:
		return p.splitTry(s, outState, ctx)

	default:
		p.fatal("statesplit", diag.UnsupportedConstruct, "unexpected statement reached the state splitter: %T", s)
		return nil
	}
}

// splitBreak implements spec.md §4.D's "Break to label L" rule: a direct
// jump when no finally lies between the break and its block, otherwise the
// partial-unroll protocol.
func (p *pass) splitBreak(b *ast.Break, ctx splitCtx) []ast.Stmt {
	scope, ok := p.breakable[b.Label]
	if !ok {
		p.fatal("statesplit", diag.UnsupportedConstruct, "break targets a label with no registered block")
	}
	if scope.nearestFinally == ctx.nearestFinally {
		return []ast.Stmt{ast.NewGotoState(scope.outState)}
	}
	var stmts []ast.Stmt
	stmts = append(stmts, p.env.assignBool(p.env.unrollFinallyAccess(), true))
	stmts = append(stmts, &ast.Assign{Lhs: p.env.unrollUntilAccess(), Rhs: unrollTargetExpr(scope.nearestFinally)})
	stmts = append(stmts, &ast.Assign{Lhs: p.env.afterUnrollAccess(), Rhs: &ast.StateRef{Target: scope.outState}})
	stmts = append(stmts, ast.NewGotoState(ctx.nearestFinally))
	return stmts
}

// unrollTargetExpr is spec.md §4.D's "L.nearestFinally (or 0 if none)":
// the literal unrollUntil is compared against and set to. It is a StateRef
// (resolved by §4.F) when a real finally state is named, or a plain 0 when
// the break escapes every enclosing finally.
func unrollTargetExpr(s *ast.State) ast.Expr {
	if s == nil {
		return intLit(0)
	}
	return &ast.StateRef{Target: s}
}

// splitTry implements spec.md §4.D's "Try/except/finally" rule.
func (p *pass) splitTry(t *ast.Try, outState *ast.State, ctx splitCtx) []ast.Stmt {
	p.hasExceptions = true

	var finallyState *ast.State
	if t.Finally != nil {
		finallyState = p.newStateIn(splitCtx{nearestFinally: ctx.nearestFinally, handler: ctx.handler})
	}

	bodyNearestFinally := ctx.nearestFinally
	if finallyState != nil {
		bodyNearestFinally = finallyState
	}

	var exceptState *ast.State
	var tryHandler ast.Handler
	switch {
	case len(t.Handlers) > 0:
		exceptHandler := ctx.handler
		if finallyState != nil {
			exceptHandler = ast.Handler{Kind: ast.FinallyHandler, Target: finallyState}
		}
		exceptState = p.newStateIn(splitCtx{nearestFinally: bodyNearestFinally, handler: exceptHandler})
		exceptState.Handler = exceptHandler
		tryHandler = ast.Handler{Kind: ast.ExceptHandler, Target: exceptState}
	case finallyState != nil:
		tryHandler = ast.Handler{Kind: ast.FinallyHandler, Target: finallyState}
	default:
		tryHandler = ctx.handler
	}

	// Falling off the end of the try (or except) body normally must still
	// run the finally, so both bodies' own outState is the finally when one
	// exists — only the finally's own tail (below) ever targets the
	// original outState directly.
	bodyOutState := outState
	if finallyState != nil {
		bodyOutState = finallyState
	}

	tryState := p.newState()
	tryState.Handler = tryHandler
	bodyCtx := splitCtx{nearestFinally: bodyNearestFinally, handler: tryHandler}
	tryState.Body = p.splitList(t.Body, bodyOutState, bodyCtx)

	if exceptState != nil {
		exceptCtx := splitCtx{nearestFinally: bodyNearestFinally, handler: exceptState.Handler}
		exceptState.Body = p.buildExceptBody(t.Handlers, bodyOutState, bodyNearestFinally, exceptCtx)
	}

	if finallyState != nil {
		outerCtx := splitCtx{nearestFinally: ctx.nearestFinally, handler: ctx.handler}
		tail := p.newStateIn(outerCtx)
		tail.Body = p.buildEndOfFinally(ctx.nearestFinally, outState)
		finallyState.Body = p.splitList(t.Finally.Body, tail, outerCtx)
	}

	return []ast.Stmt{ast.NewGotoState(tryState)}
}

// buildExceptBody implements spec.md §4.D's collectExceptState: an
// if-cascade testing getCurrentException() against each typed branch,
// preceded by curExc := nil (the exception is considered handled from the
// machine's point of view the moment we enter the cascade, matching
// spec.md §4.D literally). A handler that binds its exception to a name
// assigns getCurrentException() into it before running its (already-split)
// body, since curExc itself has just been cleared.
func (p *pass) buildExceptBody(handlers []*ast.ExceptClause, outState, nearestFinally *ast.State, ctx splitCtx) []ast.Stmt {
	prelude := []ast.Stmt{p.env.nullifyCurExc()}

	var first, last *ast.If
	var catchAll []ast.Stmt
	for _, h := range handlers {
		body := h.Body
		if h.Var != nil {
			body = append([]ast.Stmt{&ast.Assign{Lhs: h.Var, Rhs: p.compiler.CallCodegenProc("getCurrentException")}}, body...)
		}
		body = p.splitList(body, outState, ctx)
		if h.Types == nil {
			catchAll = body
			continue
		}
		branch := &ast.If{Cond: excTypeCond(p, h.Types), Then: body}
		if first == nil {
			first = branch
		} else {
			last.Else = []ast.Stmt{branch}
		}
		last = branch
	}

	if first == nil {
		// Every handler was a catch-all (or there were none at all, which
		// collectExceptState's caller never constructs); no cascade needed.
		return append(prelude, catchAll...)
	}
	if catchAll != nil {
		last.Else = catchAll
	} else {
		addElseToExcept(p, handlers, first, nearestFinally)
	}
	return append(prelude, first)
}

// excTypeCond builds the type test for one except clause's (possibly
// multiple) exception types, short-circuit-or'd together.
func excTypeCond(p *pass, types []ast.Expr) ast.Expr {
	var cond ast.Expr
	cur := p.compiler.CallCodegenProc("getCurrentException")
	for _, t := range types {
		check := &ast.Binary{Op: "is", X: cur, Y: t}
		if cond == nil {
			cond = check
			continue
		}
		cond = &ast.Call{Fun: ast.NewIdent("or"), Args: []ast.Expr{cond, check}, Magic: ast.MagicOr}
	}
	return cond
}

// buildEndOfFinally implements spec.md §4.D's end-of-finally sequence.
// spec.md's own pseudocode only spells out the outermost-finally case
// (outer == nil): when the unroll in progress doesn't target this finally,
// either return tmpResult or re-raise curExc. This implementation
// generalizes that one level: when outer != nil (this finally is itself
// nested inside another try's finally), a non-matching unroll continues
// outward via `goto_state outer` instead of returning, so a break or
// return that must cross more than one finally keeps unrolling correctly
// instead of terminating the iterator early at the first finally it
// reaches. See DESIGN.md's Open Questions entry for scenario 4's extension
// to the nested case.
func (p *pass) buildEndOfFinally(outer *ast.State, afterNormal *ast.State) []ast.Stmt {
	resumeBreak := []ast.Stmt{
		p.env.assignBool(p.env.unrollFinallyAccess(), false),
		p.env.assignInt(p.env.unrollUntilAccess(), -1),
		ast.NewDynamicGotoState(p.env.afterUnrollAccess()),
	}

	var notMatched []ast.Stmt
	if outer != nil {
		notMatched = []ast.Stmt{ast.NewGotoState(outer)}
	} else {
		var ret ast.Stmt
		if p.hasReturnType {
			ret = &ast.Return{Value: p.env.tmpResultAccess()}
		} else {
			ret = &ast.Return{}
		}
		notMatched = []ast.Stmt{&ast.If{
			Cond: &ast.Binary{Op: "==", X: p.env.curExcAccess(), Y: nilLit()},
			Then: []ast.Stmt{ret},
			Else: []ast.Stmt{
				&ast.ExprStmt{X: p.compiler.CallCodegenProc("closureIterSetupExc", nilLit())},
				&ast.Raise{X: p.env.curExcAccess()},
			},
		}}
	}

	dispatch := &ast.If{
		Cond: &ast.Binary{Op: "==", X: p.env.unrollUntilAccess(), Y: unrollTargetExpr(outer)},
		Then: resumeBreak,
		Else: notMatched,
	}
	guard := &ast.If{Cond: p.env.unrollFinallyAccess(), Then: []ast.Stmt{dispatch}}
	return []ast.Stmt{guard, ast.NewGotoState(afterNormal)}
}
