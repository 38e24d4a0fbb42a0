package closureiter

import "github.com/dispatchrun/closureiter/ast"

// pruneUnusedLabels implements SPEC_FULL.md's "synthesized label
// bookkeeping with unused-label pruning": after lowering, a Block whose
// Label no Break in the final body targets is replaced by its own Body,
// inlined in place. Most blocks §4.B/§4.D synthesize are consumed by the
// time lowering finishes (a Break resolves straight into a GotoState, and
// §4.D's Block case discards the wrapper itself), but a Block that
// carried no Yield/Break/Return anywhere in its body is never visited by
// §4.D's splitter at all and survives into Body verbatim, label and all;
// this pass is what removes it.
//
// Grounded on the teacher's compiler/desugar.go isUnusedLabel/cursor
// replacement, ported to rewrite.go's Apply for this package's ast.
func pruneUnusedLabels(body []ast.Stmt) []ast.Stmt {
	used := make(map[*ast.Ident]bool)
	wrapper := &ast.StmtList{List: body}
	ast.Inspect(wrapper, func(n ast.Node) bool {
		if b, ok := n.(*ast.Break); ok && b.Label != nil {
			used[b.Label] = true
		}
		return true
	})

	Apply(wrapper, nil, func(c *Cursor) bool {
		if blk, ok := c.Node().(*ast.Block); ok && !used[blk.Label] {
			c.Splice(blk.Body)
		}
		return true
	})
	return wrapper.List
}
