// Package ast defines the tree representation consumed and produced by the
// closure-iterator lowering pass.
//
// The pass does not own a parser, a type checker or a code generator — per
// the surrounding compiler's design, those live upstream and downstream of
// this package. What the pass does own is the small, closed-ish set of node
// kinds it needs to pattern-match on: literals, identifiers, assignments,
// calls, if/case/while/block, break/return, try/except/finally, yield,
// raise, variable sections, statement lists, and the two kinds the pass
// itself introduces (State and GotoState). New node kinds can be added
// without touching the Node/Expr/Stmt interfaces; most tree walks in this
// module fall back to a generic "visit every child" traversal and only
// special-case the kinds they care about.
package ast

// Pos is an opaque source position, propagated from input nodes onto every
// node synthesized from them. It carries no meaning within this package; it
// exists so synthesized nodes are not silently positionless for whatever
// downstream diagnostics or pretty-printer consumes the output tree.
type Pos int

// NoPos is the zero value of Pos, used for nodes that have no source
// position of their own (e.g. some nodes that are purely structural).
const NoPos Pos = 0

// Node is implemented by every node in the tree.
type Node interface {
	Pos() Pos
	// SetPos overwrites the node's position. Used by propagatePos to stamp
	// synthesized nodes with the position of the node that produced them.
	SetPos(Pos)
}

// Expr is implemented by every expression node.
type Expr interface {
	Node
	exprNode()
}

// Stmt is implemented by every statement node.
type Stmt interface {
	Node
	stmtNode()
}

// basePos is embedded by every concrete node type to provide the Node
// interface's Pos/SetPos methods without repeating them everywhere.
type basePos struct{ pos Pos }

func (b *basePos) Pos() Pos     { return b.pos }
func (b *basePos) SetPos(p Pos) { b.pos = p }
