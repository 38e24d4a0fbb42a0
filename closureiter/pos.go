package closureiter

import "github.com/dispatchrun/closureiter/ast"

// propagatePos stamps every node in states that is still at ast.NoPos
// with fnPos. Splitting a routine into states synthesizes a large number
// of new nodes — GotoState, the unroll-protocol assignments — that have no
// position of their own; left at NoPos, a downstream pretty-printer or
// diagnostic would silently point nowhere for any of them. Every such node
// gets the same fnPos, not the position of the node it was built from, and
// nodes built after this runs (the §4.F lowering and the dispatch
// block/case scaffold) are not stamped.
//
// Grounded on the teacher's compiler/pos.go, whose clearPos walks the
// whole go/ast tree with ast.Inspect to blank out position fields before
// printing; this is the same walk run to set them instead of clear them,
// narrowed to this package's own Node set.
func propagatePos(states []*ast.State, fnPos ast.Pos) {
	if fnPos == ast.NoPos {
		return
	}
	for _, s := range states {
		ast.Inspect(s, func(n ast.Node) bool {
			if n.Pos() == ast.NoPos {
				n.SetPos(fnPos)
			}
			return true
		})
	}
}
