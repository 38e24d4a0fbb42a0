package closureiter

import (
	"testing"

	"github.com/dispatchrun/closureiter/ast"
	"github.com/dispatchrun/closureiter/diag"
	"github.com/dispatchrun/closureiter/symtab"
)

// TestSplitExprsHoistsNestedYield covers the common case spec.md §4.B's
// "yield inside an expression" rule exists for: a yield that is not itself
// the whole expression, merely a subexpression of one (`a = 1 + (yield
// 5)`). The yield must come out as its own ExprStmt, with whatever the
// iterator resumes with read back through the compiler's closure-iterator-
// result slot into the temporary that stands in for it.
func TestSplitExprsHoistsNestedYield(t *testing.T) {
	a := &ast.Ident{Name: "a"}
	stmts := []ast.Stmt{
		&ast.Assign{Lhs: a, Rhs: &ast.Binary{Op: "+", X: intLit(1), Y: &ast.Yield{Value: intLit(5)}}},
	}

	compiler := symtab.NewDefaultCompiler()
	idGen := symtab.NewIdGenerator()
	fn := newTestFn("nested")
	p := newPass(fn, symtab.Unit, compiler, idGen, diag.NewReporter(), Config{})

	out := splitExprs(p, stmts)

	if len(out) != 3 {
		t.Fatalf("want 3 statements after hoisting a nested yield, got %d: %#v", len(out), out)
	}

	es, ok := out[0].(*ast.ExprStmt)
	if !ok {
		t.Fatalf("out[0] = %T, want an *ast.ExprStmt wrapping the yield", out[0])
	}
	if _, ok := es.X.(*ast.Yield); !ok {
		t.Fatalf("out[0]'s ExprStmt does not wrap a Yield: %#v", es.X)
	}

	resultAssign, ok := out[1].(*ast.Assign)
	if !ok {
		t.Fatalf("out[1] = %T, want an *ast.Assign reading the closure-iter result", out[1])
	}
	tmp, ok := resultAssign.Lhs.(*ast.Ident)
	if !ok {
		t.Fatalf("result assign's Lhs is not an *ast.Ident: %#v", resultAssign.Lhs)
	}

	final, ok := out[2].(*ast.Assign)
	if !ok {
		t.Fatalf("out[2] = %T, want the original assignment to a", out[2])
	}
	bin, ok := final.Rhs.(*ast.Binary)
	if !ok {
		t.Fatalf("final assign's Rhs is not the original Binary: %#v", final.Rhs)
	}
	if bin.Y != tmp {
		t.Fatalf("want the binary's right operand replaced by the hoisted temp, got %#v", bin.Y)
	}
}

// TestSplitExprsIfValueWithYieldingBranch covers §4.B's "if with value"
// rule when a branch's own trailing expression is a bare yield: `b = (if
// cond: 1 else: yield 2)`. This exercises decomposeValueStmt's assignTail,
// which must decompose the synthesized tail assignment itself rather than
// rely on the precomputed mayYield set (a freshly built node is never a
// member of it).
func TestSplitExprsIfValueWithYieldingBranch(t *testing.T) {
	b := &ast.Ident{Name: "b"}
	cond := &ast.Ident{Name: "cond"}
	ifExpr := &ast.If{
		Cond:     cond,
		Then:     []ast.Stmt{&ast.ExprStmt{X: intLit(1)}},
		Else:     []ast.Stmt{&ast.ExprStmt{X: &ast.Yield{Value: intLit(2)}}},
		HasValue: true,
	}
	stmts := []ast.Stmt{
		&ast.Assign{Lhs: b, Rhs: ifExpr},
	}

	compiler := symtab.NewDefaultCompiler()
	idGen := symtab.NewIdGenerator()
	fn := newTestFn("ifvalue")
	p := newPass(fn, symtab.Unit, compiler, idGen, diag.NewReporter(), Config{})

	out := splitExprs(p, stmts)

	if len(out) != 2 {
		t.Fatalf("want [If, Assign{b, tmp}], got %d statements: %#v", len(out), out)
	}
	gotIf, ok := out[0].(*ast.If)
	if !ok {
		t.Fatalf("out[0] = %T, want the rewritten *ast.If", out[0])
	}
	if gotIf.HasValue {
		t.Errorf("want HasValue cleared once the if is rewritten to a statement")
	}

	// The else branch must now end with the yield as its own ExprStmt,
	// followed by the result-read, followed by the assign into the
	// if-expression's own temporary -- not a bare Assign{tmp, Yield}.
	if len(gotIf.Else) != 3 {
		t.Fatalf("want the else branch expanded to 3 statements (yield, result-read, tmp-assign), got %d: %#v", len(gotIf.Else), gotIf.Else)
	}
	if _, ok := gotIf.Else[0].(*ast.ExprStmt); !ok {
		t.Fatalf("gotIf.Else[0] = %T, want the hoisted yield statement", gotIf.Else[0])
	}
	if _, ok := gotIf.Else[1].(*ast.Assign); !ok {
		t.Fatalf("gotIf.Else[1] = %T, want the closure-iter-result read", gotIf.Else[1])
	}
	lastAssign, ok := gotIf.Else[2].(*ast.Assign)
	if !ok {
		t.Fatalf("gotIf.Else[2] = %T, want the assign into the if-expression's temp", gotIf.Else[2])
	}
	if _, ok := lastAssign.Rhs.(*ast.Ident); !ok {
		t.Fatalf("want the final assign's Rhs to be the yield's result temp, got %#v", lastAssign.Rhs)
	}

	final, ok := out[1].(*ast.Assign)
	if !ok {
		t.Fatalf("out[1] = %T, want the assignment to b", out[1])
	}
	if final.Lhs != b {
		t.Errorf("want the outer assign to still target b, got %#v", final.Lhs)
	}
}

// TestSplitExprsForceHoistsNonYieldingCallSibling covers spec.md §4.B's
// "Calls..." rule: in `f(g(), h(yield 1))`, g() doesn't itself yield, but
// once its call-kind sibling h(yield 1) needs splitting, g() must still be
// force-hoisted into its own preceding statement so it keeps running
// before the yield/resume — left to the final `f(tmp_g, tmp_h)` call, g()
// would wrongly run after the suspension instead of before it.
func TestSplitExprsForceHoistsNonYieldingCallSibling(t *testing.T) {
	f := &ast.Ident{Name: "f"}
	g := &ast.Ident{Name: "g"}
	h := &ast.Ident{Name: "h"}
	call := &ast.Call{
		Fun: f,
		Args: []ast.Expr{
			&ast.Call{Fun: g},
			&ast.Call{Fun: h, Args: []ast.Expr{&ast.Yield{Value: intLit(1)}}},
		},
	}
	stmts := []ast.Stmt{&ast.ExprStmt{X: call}}

	compiler := symtab.NewDefaultCompiler()
	idGen := symtab.NewIdGenerator()
	fn := newTestFn("forcehoist")
	p := newPass(fn, symtab.Unit, compiler, idGen, diag.NewReporter(), Config{})

	out := splitExprs(p, stmts)

	// Want: tmp_g := g(); <yield 1>; tmp_y := result; tmp_h := h(tmp_y);
	// f(tmp_g, tmp_h) — five statements, g()'s own assignment strictly
	// before the yield.
	if len(out) != 5 {
		t.Fatalf("want 5 statements, got %d: %#v", len(out), out)
	}

	gAssign, ok := out[0].(*ast.Assign)
	if !ok {
		t.Fatalf("out[0] = %T, want the hoisted g() assignment", out[0])
	}
	gCall, ok := gAssign.Rhs.(*ast.Call)
	if !ok || gCall.Fun != g {
		t.Fatalf("want out[0] to assign g()'s result, got %#v", gAssign.Rhs)
	}

	yieldStmt, ok := out[1].(*ast.ExprStmt)
	if !ok {
		t.Fatalf("out[1] = %T, want the hoisted yield statement", out[1])
	}
	if _, ok := yieldStmt.X.(*ast.Yield); !ok {
		t.Fatalf("out[1] does not wrap a Yield: %#v", yieldStmt.X)
	}

	if _, ok := out[2].(*ast.Assign); !ok {
		t.Fatalf("out[2] = %T, want the closure-iter-result read", out[2])
	}

	hAssign, ok := out[3].(*ast.Assign)
	if !ok {
		t.Fatalf("out[3] = %T, want the hoisted h(...) assignment", out[3])
	}
	hCall, ok := hAssign.Rhs.(*ast.Call)
	if !ok || hCall.Fun != h {
		t.Fatalf("want out[3] to assign h(...)'s result, got %#v", hAssign.Rhs)
	}

	finalStmt, ok := out[4].(*ast.ExprStmt)
	if !ok {
		t.Fatalf("out[4] = %T, want the rewritten f(...) call statement", out[4])
	}
	finalCall, ok := finalStmt.X.(*ast.Call)
	if !ok || finalCall.Fun != f {
		t.Fatalf("out[4] does not wrap the original f(...) call: %#v", finalStmt.X)
	}
	if len(finalCall.Args) != 2 {
		t.Fatalf("want 2 rewritten args on the final call, got %d", len(finalCall.Args))
	}
	if finalCall.Args[0] != gAssign.Lhs {
		t.Errorf("want f's first arg replaced by g()'s temp, got %#v", finalCall.Args[0])
	}
	if finalCall.Args[1] != hAssign.Lhs {
		t.Errorf("want f's second arg replaced by h(...)'s temp, got %#v", finalCall.Args[1])
	}
}
