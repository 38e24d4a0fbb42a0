package ast

// Children returns the direct child nodes of n, in evaluation order, for
// whichever of the concrete kinds above n happens to be. It is the "visit
// all children" fallback spec.md's Design Notes call for: most walks in
// this pass only special-case the handful of kinds they rewrite and use
// Children/Inspect for everything else.
func Children(n Node) []Node {
	switch x := n.(type) {
	case *Ident, *BasicLit:
		return nil
	case *Yield:
		if x.Value != nil {
			return []Node{x.Value}
		}
		return nil
	case *Call:
		out := make([]Node, 0, len(x.Args)+1)
		out = append(out, x.Fun)
		for _, a := range x.Args {
			out = append(out, a)
		}
		return out
	case *Binary:
		return []Node{x.X, x.Y}
	case *Unary:
		return []Node{x.X}
	case *Paren:
		return []Node{x.X}
	case *Container:
		out := make([]Node, 0, len(x.Keys)+len(x.Elems))
		for _, k := range x.Keys {
			if k != nil {
				out = append(out, k)
			}
		}
		for _, e := range x.Elems {
			out = append(out, e)
		}
		return out
	case *Dot:
		return []Node{x.X}
	case *Bracket:
		return []Node{x.X, x.Index}
	case *Deref:
		return []Node{x.X}
	case *Cast:
		return []Node{x.ToType, x.X}
	case *CheckedRange:
		out := []Node{x.X}
		if x.Low != nil {
			out = append(out, x.Low)
		}
		if x.High != nil {
			out = append(out, x.High)
		}
		return out
	case *Assign:
		return []Node{x.Lhs, x.Rhs}
	case *MultiAssign:
		out := make([]Node, 0, len(x.Lhs)+len(x.Rhs))
		for _, e := range x.Lhs {
			out = append(out, e)
		}
		for _, e := range x.Rhs {
			out = append(out, e)
		}
		return out
	case *ExprStmt:
		return []Node{x.X}
	case *If:
		out := []Node{}
		if x.Init != nil {
			out = append(out, x.Init)
		}
		out = append(out, x.Cond)
		out = append(out, stmtsToNodes(x.Then)...)
		out = append(out, stmtsToNodes(x.Else)...)
		return out
	case *Case:
		out := []Node{x.Tag}
		for _, c := range x.Clauses {
			out = append(out, stmtsToNodes(c.Values)...)
			out = append(out, stmtsToNodes(c.Body)...)
		}
		return out
	case *While:
		out := []Node{x.Cond}
		return append(out, stmtsToNodes(x.Body)...)
	case *Block:
		return stmtsToNodes(x.Body)
	case *Break:
		return nil
	case *Return:
		if x.Value != nil {
			return []Node{x.Value}
		}
		return nil
	case *Raise:
		if x.X != nil {
			return []Node{x.X}
		}
		return nil
	case *Try:
		out := stmtsToNodes(x.Body)
		for _, h := range x.Handlers {
			out = append(out, stmtsToNodes(h.Types)...)
			out = append(out, stmtsToNodes(h.Body)...)
		}
		if x.Finally != nil {
			out = append(out, stmtsToNodes(x.Finally.Body)...)
		}
		return out
	case *VarSection:
		out := make([]Node, 0, len(x.Bindings))
		for _, b := range x.Bindings {
			if b.Init != nil {
				out = append(out, b.Init)
			}
		}
		return out
	case *StmtList:
		return stmtsToNodes(x.List)
	case *State:
		return stmtsToNodes(x.Body)
	case *GotoState:
		if x.Target != nil {
			return []Node{x.Target}
		}
		return nil
	case *StateRef:
		return nil
	default:
		return nil
	}
}

// stmtsToNodes widens a []Stmt/[]Expr to []Node; Go's lack of covariant
// slices means this helper earns its keep all over this package.
func stmtsToNodes[T Node](list []T) []Node {
	out := make([]Node, len(list))
	for i, s := range list {
		out[i] = s
	}
	return out
}

// Inspect traverses n and every descendant in pre-order, calling f for
// each. If f returns false for a node, Inspect does not descend into that
// node's children. It mirrors go/ast.Inspect's contract, scoped to this
// package's node set.
func Inspect(n Node, f func(Node) bool) {
	if n == nil || !f(n) {
		return
	}
	for _, c := range Children(n) {
		Inspect(c, f)
	}
}
