package closureiter

import "github.com/dispatchrun/closureiter/ast"

// fold.go is spec.md §4.G: it compacts the state list §4.D produced by
// dropping states whose body is nothing but an unconditional jump
// elsewhere, and assigns every surviving state its final, contiguous id.
//
// §4.D's splitList always appends a trailing GotoState when it synthesizes
// a fresh successor state purely to hold "whatever comes after", and a
// good number of those turn out to hold nothing else: an if/case branch
// that falls straight through, an empty finally, a while loop whose body
// never yields. Folding those away keeps the generated state count close
// to the number of actual suspension points, matching spec.md §8's
// invariant that state count is bounded by yield/break/return count, not
// by AST node count.

// foldEmptyStates renumbers states in place: it assigns contiguous ids,
// starting at 0, to every state spec.md exempts from folding (the entry
// state, always states[0], and any state with a real body), then resolves
// every StateRef/GotoState target that pointed at a folded state to the id
// of whatever it ultimately forwards to. It returns the states that
// survive, in their final order.
func foldEmptyStates(states []*ast.State) []*ast.State {
	flattenStmtLists(states)

	resolved := make(map[*ast.State]*ast.State, len(states))
	var resolve func(s *ast.State) *ast.State
	resolve = func(s *ast.State) *ast.State {
		if s == ast.ExitState || s == nil {
			return s
		}
		if r, ok := resolved[s]; ok {
			return r
		}
		// Mark s as resolving-to-itself before recursing, so a state whose
		// only jump is back to itself (a degenerate infinite loop with no
		// body) doesn't recurse forever: such a state passes the empty test
		// below, and without this guard resolve would chase it endlessly.
		resolved[s] = s
		target, isEmpty := emptyStateTarget(s)
		if !isEmpty {
			resolved[s] = s
			return s
		}
		r := resolve(target)
		resolved[s] = r
		return r
	}

	var surviving []*ast.State
	for i, s := range states {
		if i == 0 {
			surviving = append(surviving, s)
			continue
		}
		if _, isEmpty := emptyStateTarget(s); isEmpty {
			continue
		}
		surviving = append(surviving, s)
	}

	for i, s := range surviving {
		s.ID = i
	}

	retarget := func(n ast.Node) {
		ast.Inspect(n, func(x ast.Node) bool {
			if ref, ok := x.(*ast.StateRef); ok && ref.Target != nil {
				ref.Target = resolve(ref.Target)
			}
			return true
		})
	}
	for _, s := range surviving {
		if s.Handler.Target != nil {
			s.Handler.Target = resolve(s.Handler.Target)
		}
		retarget(s)
	}

	return surviving
}

// emptyStateTarget reports whether s's body is nothing but an unconditional
// jump, and if so, the state it jumps to. A body of length 1 that is a
// GotoState with a static target qualifies; §4.G's own note that the
// entry and exit states are never folded is enforced by the caller, not
// here, since this function has no way to know a state's position in the
// list.
func emptyStateTarget(s *ast.State) (*ast.State, bool) {
	if len(s.Body) != 1 {
		return nil, false
	}
	g, ok := s.Body[0].(*ast.GotoState)
	if !ok {
		return nil, false
	}
	target, ok := g.StaticTarget()
	if !ok {
		return nil, false
	}
	return target, true
}
