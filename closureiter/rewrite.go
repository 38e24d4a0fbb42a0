package closureiter

import "github.com/dispatchrun/closureiter/ast"

// Cursor describes one statement's position during an Apply traversal: the
// parent node that holds it and the slice slot it occupies. It is a
// narrowed adaptation of golang.org/x/tools/go/ast/astutil's Cursor to this
// package's own ast — narrowed because, unlike go/ast, this ast has no
// separate declaration hierarchy or single-Expr statement fields that need
// visiting; every rewrite this pass performs after §4.D splices whole
// statements in or out of one of the statement-sequence fields below.
type Cursor struct {
	parent ast.Node
	stmts  *[]ast.Stmt
	index  int
}

// Node returns the statement currently under the cursor.
func (c *Cursor) Node() ast.Stmt { return (*c.stmts)[c.index] }

// Parent returns the node whose field holds the current statement slice.
func (c *Cursor) Parent() ast.Node { return c.parent }

// Replace substitutes the current statement for n.
func (c *Cursor) Replace(n ast.Stmt) { (*c.stmts)[c.index] = n }

// Splice replaces the current statement with zero or more statements.
func (c *Cursor) Splice(repl []ast.Stmt) {
	tail := append([]ast.Stmt{}, (*c.stmts)[c.index+1:]...)
	*c.stmts = append((*c.stmts)[:c.index], append(append([]ast.Stmt{}, repl...), tail...)...)
}

// stmtSlices returns the direct []ast.Stmt-typed fields of n, mirroring the
// order ast.Children would visit them. Apply only offers a Cursor over
// nodes reachable through one of these fields.
func stmtSlices(n ast.Node) []*[]ast.Stmt {
	switch x := n.(type) {
	case *ast.If:
		return []*[]ast.Stmt{&x.Then, &x.Else}
	case *ast.Case:
		out := make([]*[]ast.Stmt, 0, len(x.Clauses))
		for _, c := range x.Clauses {
			out = append(out, &c.Body)
		}
		return out
	case *ast.While:
		return []*[]ast.Stmt{&x.Body}
	case *ast.Block:
		return []*[]ast.Stmt{&x.Body}
	case *ast.Try:
		out := []*[]ast.Stmt{&x.Body}
		for _, h := range x.Handlers {
			out = append(out, &h.Body)
		}
		if x.Finally != nil {
			out = append(out, &x.Finally.Body)
		}
		return out
	case *ast.StmtList:
		return []*[]ast.Stmt{&x.List}
	case *ast.State:
		return []*[]ast.Stmt{&x.Body}
	default:
		return nil
	}
}

// Apply walks n and every descendant reachable through a statement-sequence
// field, offering a Cursor to pre before descending into a statement and to
// post afterwards, the same pre/post contract as astutil.Apply. pre or post
// may be nil. Returning false from pre skips that statement's children and
// post is not called for it.
//
// Grounded on golang.org/x/tools/go/ast/astutil.Apply, which the teacher's
// desugar() uses for exactly this shape of job (compiler/desugar.go's
// unused-label pruning pass); this is the same cursor-based splice pattern
// ported to this repo's own ast package. See closureiter/fold.go, which uses
// it to compact StmtList wrappers left behind by earlier passes, and
// spec.md §9's open question about whether the empty-state detector needs
// to see through more than a single StmtList layer.
func Apply(n ast.Node, pre, post func(*Cursor) bool) {
	for _, slice := range stmtSlices(n) {
		for i := 0; i < len(*slice); i++ {
			c := &Cursor{parent: n, stmts: slice, index: i}
			if pre != nil && !pre(c) {
				continue
			}
			Apply((*slice)[i], pre, post)
			before := len(*slice)
			if post != nil {
				post(c)
			}
			i += len(*slice) - before
		}
	}
}

// flattenStmtLists inlines every *ast.StmtList found within states' bodies
// into its containing statement sequence. §4.B and §4.C both synthesize
// StmtList wrappers purely to satisfy call sites that expect a single Stmt
// (see exprsplit.go's firstOf); leaving them in the final tree would make
// §4.G's empty-state detector responsible for seeing through arbitrarily
// deep StmtList nesting instead of the single layer spec.md §4.G describes
// skipping. Flattening here resolves that open question by never letting
// nesting accumulate in the first place.
func flattenStmtLists(states []*ast.State) {
	for _, s := range states {
		Apply(s, nil, func(c *Cursor) bool {
			if sl, ok := c.Node().(*ast.StmtList); ok {
				c.Splice(sl.List)
			}
			return true
		})
	}
}
