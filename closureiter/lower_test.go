package closureiter

import (
	"testing"

	"github.com/dispatchrun/closureiter/ast"
	"github.com/dispatchrun/closureiter/diag"
	"github.com/dispatchrun/closureiter/symtab"
)

// TestResolveExprResolvesStateRef covers §4.F's leaf rewrite directly: a
// StateRef nested inside an ordinary expression tree must come out as the
// plain int literal its target's final id settled on, wherever it's buried.
func TestResolveExprResolvesStateRef(t *testing.T) {
	target := ast.NewState()
	target.ID = 7

	e := &ast.Binary{
		Op: "==",
		X:  &ast.Unary{Op: "-", X: &ast.StateRef{Target: target}},
		Y:  intLit(0),
	}

	got := resolveExpr(e).(*ast.Binary)
	unary := got.X.(*ast.Unary)
	lit, ok := unary.X.(*ast.BasicLit)
	if !ok {
		t.Fatalf("want the nested StateRef resolved to a BasicLit, got %T", unary.X)
	}
	if lit.Value != "7" {
		t.Errorf("want resolved literal \"7\", got %q", lit.Value)
	}
}

// TestStateIDLitExitStateIsMinusOne covers the shared ExitState sentinel's
// lowering: spec.md's worked example in §4 has "falls off the end" resolve
// to state -1, not to whatever provisional id ExitState happens to carry.
func TestStateIDLitExitStateIsMinusOne(t *testing.T) {
	lit := stateIDLit(ast.ExitState)
	if lit.Value != "-1" {
		t.Errorf("want ExitState to lower to -1, got %q", lit.Value)
	}
	if lit := stateIDLit(nil); lit.Value != "-1" {
		t.Errorf("want a nil target to also lower to -1, got %q", lit.Value)
	}
}

// TestLowerStmtsRewritesYieldGotoToAssignAndReturn covers §4.F's other
// central rewrite: a `yield e ; goto_state K` pair — the actual suspension
// point — must become `state := K ; return e`, not the assign-and-break
// pair a standalone GotoState resolves to. Getting this wrong means the
// iterator never suspends back to its caller at all.
func TestLowerStmtsRewritesYieldGotoToAssignAndReturn(t *testing.T) {
	compiler := symtab.NewDefaultCompiler()
	idGen := symtab.NewIdGenerator()
	fn := newTestFn("lowerYield")
	p := newPass(fn, symtab.Int, compiler, idGen, diag.NewReporter(), Config{})

	target := ast.NewState()
	target.ID = 5
	val := &ast.Ident{Name: "a"}
	stmts := []ast.Stmt{
		&ast.ExprStmt{X: &ast.Yield{Value: val}},
		ast.NewGotoState(target),
	}

	out := p.lowerStmts(stmts, &ast.Ident{Name: "stateLoop"})
	if len(out) != 2 {
		t.Fatalf("want 2 statements (assign + return), got %d: %#v", len(out), out)
	}
	assign, ok := out[0].(*ast.Assign)
	if !ok {
		t.Fatalf("out[0] = %T, want *ast.Assign", out[0])
	}
	lit, ok := assign.Rhs.(*ast.BasicLit)
	if !ok || lit.Value != "5" {
		t.Fatalf("want state assigned the literal 5, got %#v", assign.Rhs)
	}
	ret, ok := out[1].(*ast.Return)
	if !ok {
		t.Fatalf("out[1] = %T, want *ast.Return, not a Break — a yield must actually suspend the function", out[1])
	}
	if ret.Value != val {
		t.Fatalf("want the Return to carry the yielded value, got %#v", ret.Value)
	}
}

// TestLowerStmtsBareYieldReturnsWithNoValue covers the "yield with no
// value" case of the same rule: the pair still becomes a Return (not a
// Break), just with a nil Value.
func TestLowerStmtsBareYieldReturnsWithNoValue(t *testing.T) {
	compiler := symtab.NewDefaultCompiler()
	idGen := symtab.NewIdGenerator()
	fn := newTestFn("lowerBareYield")
	p := newPass(fn, symtab.Unit, compiler, idGen, diag.NewReporter(), Config{})

	target := ast.NewState()
	target.ID = 2
	stmts := []ast.Stmt{
		&ast.ExprStmt{X: &ast.Yield{}},
		ast.NewGotoState(target),
	}

	out := p.lowerStmts(stmts, &ast.Ident{Name: "stateLoop"})
	if len(out) != 2 {
		t.Fatalf("want 2 statements, got %d: %#v", len(out), out)
	}
	ret, ok := out[1].(*ast.Return)
	if !ok {
		t.Fatalf("out[1] = %T, want *ast.Return", out[1])
	}
	if ret.Value != nil {
		t.Errorf("want a nil Value for a bare yield, got %#v", ret.Value)
	}
}

// TestLowerStmtRewritesGotoStateToAssignAndBreak covers §4.F's central
// rewrite: a static GotoState becomes `state := <id>; break stateLoop`, not
// the abstract marker the state splitter left behind.
func TestLowerStmtRewritesGotoStateToAssignAndBreak(t *testing.T) {
	compiler := symtab.NewDefaultCompiler()
	idGen := symtab.NewIdGenerator()
	fn := newTestFn("lowerGoto")
	p := newPass(fn, symtab.Unit, compiler, idGen, diag.NewReporter(), Config{})

	target := ast.NewState()
	target.ID = 3
	loopLabel := &ast.Ident{Name: "stateLoop"}

	out := p.lowerStmt(ast.NewGotoState(target), loopLabel)
	if len(out) != 2 {
		t.Fatalf("want 2 statements (assign + break), got %d: %#v", len(out), out)
	}
	assign, ok := out[0].(*ast.Assign)
	if !ok {
		t.Fatalf("out[0] = %T, want *ast.Assign", out[0])
	}
	lit, ok := assign.Rhs.(*ast.BasicLit)
	if !ok || lit.Value != "3" {
		t.Fatalf("want state assigned the literal 3, got %#v", assign.Rhs)
	}
	brk, ok := out[1].(*ast.Break)
	if !ok {
		t.Fatalf("out[1] = %T, want *ast.Break", out[1])
	}
	if brk.Label != loopLabel {
		t.Errorf("want the break to target the dispatch loop's own label")
	}
}

// TestBuildDispatchBlockOneClausePerState covers §4.F's assembly step: every
// surviving state becomes exactly one CaseClause tagged with its own final
// id, under a Case dispatching on the state accessor.
func TestBuildDispatchBlockOneClausePerState(t *testing.T) {
	compiler := symtab.NewDefaultCompiler()
	idGen := symtab.NewIdGenerator()
	fn := newTestFn("dispatch")
	p := newPass(fn, symtab.Unit, compiler, idGen, diag.NewReporter(), Config{})

	s0 := ast.NewState()
	s0.ID = 0
	s0.Body = []ast.Stmt{ast.NewGotoState(nil)}
	s1 := ast.NewState()
	s1.ID = 1
	s1.Body = []ast.Stmt{&ast.Return{}}

	block, label := p.buildDispatchBlock([]*ast.State{s0, s1})
	if block.Label != label {
		t.Fatalf("want the returned block labeled with the returned label")
	}
	if len(block.Body) != 1 {
		t.Fatalf("want a single Case dispatching on state, got %d stmts", len(block.Body))
	}
	dispatch, ok := block.Body[0].(*ast.Case)
	if !ok {
		t.Fatalf("block.Body[0] = %T, want *ast.Case", block.Body[0])
	}
	if len(dispatch.Clauses) != 2 {
		t.Fatalf("want one clause per state, got %d", len(dispatch.Clauses))
	}
	for i, c := range dispatch.Clauses {
		lit := c.Values[0].(*ast.BasicLit)
		if lit.Value != intLit(i).Value {
			t.Errorf("clause %d tagged %q, want %q", i, lit.Value, intLit(i).Value)
		}
	}
}
