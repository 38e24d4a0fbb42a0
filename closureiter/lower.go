package closureiter

import (
	"github.com/dispatchrun/closureiter/ast"
	"github.com/dispatchrun/closureiter/diag"
)

// lower.go is spec.md §4.F: it turns the final, compacted State list into
// the concrete statement sequence the code generator sees — every
// standalone GotoState resolved to a `state := <id>; break stateLoop` pair,
// every `yield e; goto_state K` pair resolved instead to `state := K;
// return e` (the actual suspension point — see lowerStmts below), every
// StateRef resolved to the plain int literal its target finally settled
// on, and the states themselves assembled into the
//
//	while true {
//	    block stateLoop {
//	        case state {
//	        of 0: ...
//	        of 1: ...
//	        }
//	    }
//	}
//
// scaffold spec.md's Data Model section describes as the shape the whole
// lowering converges on.

// buildDispatchBlock implements most of §4.F: it resolves every remaining
// StateRef against states' (already final, by the time this runs) ids,
// rewrites every GotoState into an assignment-and-break pair (or, when it
// follows a yield, an assignment-and-return pair), and assembles the
// result into the labeled `block stateLoop { case state {...} }`
// spec.md's Data Model describes. exctable.go's assembleLoop finishes the
// job by wrapping this block in the while loop (and, when the function
// uses exceptions, the try/except §4.E installs around it).
func (p *pass) buildDispatchBlock(states []*ast.State) (*ast.Block, *ast.Ident) {
	loopLabel := p.newLabel()

	clauses := make([]*ast.CaseClause, 0, len(states))
	for _, s := range states {
		clauses = append(clauses, &ast.CaseClause{
			Values: []ast.Expr{intLit(s.ID)},
			Body:   p.lowerStmts(s.Body, loopLabel),
		})
	}

	dispatch := &ast.Case{Tag: p.env.stateAccess(), Clauses: clauses}
	return &ast.Block{Label: loopLabel, Body: []ast.Stmt{dispatch}}, loopLabel
}

// lowerStmts rewrites a state body (or a nested If/Case/Block arm within
// one), recursing through the handful of statement kinds that can still
// contain a GotoState or a StateRef-bearing expression at this point in
// the pipeline.
//
// It also implements the half of §4.F's state-assignment rewrite that a
// single statement can't: `yield e ; goto_state K` lowers to `state := K ;
// return e`, not to the plain `state := K ; break stateLoop` a standalone
// GotoState gets. statesplit.go's ExprStmt rule (the only place a Yield
// ExprStmt is ever produced) always appends a GotoState immediately after
// it, so this loop looks one statement ahead for that pairing and handles
// both together; a bare GotoState reaching lowerStmt on its own is what
// actually suspends control back to the dispatch loop's own iteration,
// which is correct for every other kind of jump this pass emits.
func (p *pass) lowerStmts(stmts []ast.Stmt, loopLabel *ast.Ident) []ast.Stmt {
	out := make([]ast.Stmt, 0, len(stmts))
	for i := 0; i < len(stmts); i++ {
		if es, ok := stmts[i].(*ast.ExprStmt); ok {
			if y, ok := es.X.(*ast.Yield); ok && i+1 < len(stmts) {
				if g, ok := stmts[i+1].(*ast.GotoState); ok {
					out = append(out, p.lowerYieldGoto(y, g)...)
					i++
					continue
				}
			}
		}
		out = append(out, p.lowerStmt(stmts[i], loopLabel)...)
	}
	return out
}

// lowerYieldGoto implements §4.F's `yield e ; goto_state K` rule: the
// iterator actually suspends here, so the pair becomes `state := K ;
// return e` — a genuine function return carrying the yielded value back to
// the caller — rather than the `break stateLoop` a plain jump resolves to.
func (p *pass) lowerYieldGoto(y *ast.Yield, g *ast.GotoState) []ast.Stmt {
	idExpr := resolveGotoTarget(g)
	var ret ast.Stmt
	if y.Value != nil {
		ret = &ast.Return{Value: resolveExpr(y.Value)}
	} else {
		ret = &ast.Return{}
	}
	return []ast.Stmt{p.env.assignState(idExpr), ret}
}

// resolveGotoTarget resolves a GotoState's Target to the plain expression
// §4.F's output assigns into state: a BasicLit for a static jump, or the
// (already-valid) dynamic expression itself — see GotoState's own doc
// comment for when the latter occurs.
func resolveGotoTarget(g *ast.GotoState) ast.Expr {
	if target, ok := g.StaticTarget(); ok {
		return stateIDLit(target)
	}
	return resolveExpr(g.Target)
}

func (p *pass) lowerStmt(s ast.Stmt, loopLabel *ast.Ident) []ast.Stmt {
	switch s := s.(type) {
	case *ast.GotoState:
		return []ast.Stmt{
			p.env.assignState(resolveGotoTarget(s)),
			&ast.Break{Label: loopLabel},
		}

	case *ast.ExprStmt:
		// A Yield reaching here (rather than through lowerStmts' look-ahead
		// above) means it wasn't immediately followed by a GotoState, which
		// shouldn't happen for anything statesplit.go produced — handled
		// defensively rather than promoted to a fatal error, since resolving
		// Value in place is still a safe no-op either way.
		if y, ok := s.X.(*ast.Yield); ok && y.Value != nil {
			y.Value = resolveExpr(y.Value)
		}
		return []ast.Stmt{s}

	case *ast.Assign:
		s.Lhs = resolveExpr(s.Lhs)
		s.Rhs = resolveExpr(s.Rhs)
		return []ast.Stmt{s}

	case *ast.MultiAssign:
		for i, e := range s.Lhs {
			s.Lhs[i] = resolveExpr(e)
		}
		for i, e := range s.Rhs {
			s.Rhs[i] = resolveExpr(e)
		}
		return []ast.Stmt{s}

	case *ast.If:
		s.Cond = resolveExpr(s.Cond)
		s.Then = p.lowerStmts(s.Then, loopLabel)
		s.Else = p.lowerStmts(s.Else, loopLabel)
		return []ast.Stmt{s}

	case *ast.Case:
		s.Tag = resolveExpr(s.Tag)
		for _, c := range s.Clauses {
			c.Body = p.lowerStmts(c.Body, loopLabel)
		}
		return []ast.Stmt{s}

	case *ast.Block:
		s.Body = p.lowerStmts(s.Body, loopLabel)
		return []ast.Stmt{s}

	case *ast.Return:
		if s.Value != nil {
			s.Value = resolveExpr(s.Value)
		}
		return []ast.Stmt{s}

	case *ast.Raise:
		if s.X != nil {
			s.X = resolveExpr(s.X)
		}
		return []ast.Stmt{s}

	case *ast.VarSection:
		for _, b := range s.Bindings {
			if b.Init != nil {
				b.Init = resolveExpr(b.Init)
			}
		}
		return []ast.Stmt{s}

	case *ast.StmtList:
		return p.lowerStmts(s.List, loopLabel)

	case *ast.While, *ast.Try:
		// Only a loop or try with no yield or break inside reaches here:
		// §4.D never split it, so it holds no GotoState or StateRef.
		return []ast.Stmt{s}

	default:
		p.fatal("lower", diag.UnsupportedConstruct, "unexpected statement surviving into §4.F: %T", s)
		return nil
	}
}

// resolveExpr rewrites e in place, replacing every StateRef it finds with
// the plain int literal its target's final id resolved to. Every other
// kind is either a leaf or recursed into; none of the kinds listed here
// can themselves contain a Yield whose Value still needs resolving after
// §4.B, except Yield itself, which exprsplit.go's postcondition guarantees
// only ever appears directly under an ExprStmt (handled above) — it is
// listed here anyway so a StateRef nested inside some future expression
// kind doesn't silently survive unresolved.
func resolveExpr(e ast.Expr) ast.Expr {
	switch x := e.(type) {
	case nil:
		return nil
	case *ast.StateRef:
		return stateIDLit(x.Target)
	case *ast.Binary:
		x.X = resolveExpr(x.X)
		x.Y = resolveExpr(x.Y)
		return x
	case *ast.Unary:
		x.X = resolveExpr(x.X)
		return x
	case *ast.Paren:
		x.X = resolveExpr(x.X)
		return x
	case *ast.Call:
		x.Fun = resolveExpr(x.Fun)
		for i, a := range x.Args {
			x.Args[i] = resolveExpr(a)
		}
		return x
	case *ast.Dot:
		x.X = resolveExpr(x.X)
		return x
	case *ast.Bracket:
		x.X = resolveExpr(x.X)
		x.Index = resolveExpr(x.Index)
		return x
	case *ast.Deref:
		x.X = resolveExpr(x.X)
		return x
	case *ast.Cast:
		x.X = resolveExpr(x.X)
		return x
	case *ast.CheckedRange:
		x.X = resolveExpr(x.X)
		if x.Low != nil {
			x.Low = resolveExpr(x.Low)
		}
		if x.High != nil {
			x.High = resolveExpr(x.High)
		}
		return x
	case *ast.Yield:
		if x.Value != nil {
			x.Value = resolveExpr(x.Value)
		}
		return x
	default:
		return e
	}
}

// stateIDLit returns the int literal a State's final id lowers to; the
// shared ExitState sentinel lowers to -1, matching the "falls off the
// end" case spec.md §4 walks through in its worked example.
func stateIDLit(s *ast.State) *ast.BasicLit {
	if s == ast.ExitState || s == nil {
		return intLit(-1)
	}
	return intLit(s.ID)
}

func trueLit() *ast.BasicLit {
	return &ast.BasicLit{Kind: ast.BoolLit, Value: "true"}
}
