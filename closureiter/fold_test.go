package closureiter

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/dispatchrun/closureiter/ast"
)

func TestFoldEmptyStatesCompactsForwardingChain(t *testing.T) {
	s0 := ast.NewState() // entry, itself an empty forward — must survive anyway
	s1 := ast.NewState() // empty, forwards to s2
	s2 := ast.NewState() // empty, forwards to s3
	s3 := ast.NewState() // real body

	s0.Body = []ast.Stmt{ast.NewGotoState(s1)}
	s1.Body = []ast.Stmt{ast.NewGotoState(s2)}
	s2.Body = []ast.Stmt{ast.NewGotoState(s3)}
	s3.Body = []ast.Stmt{&ast.Return{}}

	surviving := foldEmptyStates([]*ast.State{s0, s1, s2, s3})

	if len(surviving) != 2 {
		t.Fatalf("want 2 surviving states, got %d: %v", len(surviving), surviving)
	}
	if surviving[0] != s0 || surviving[1] != s3 {
		t.Fatalf("want [s0, s3] to survive, got %v", surviving)
	}
	if s0.ID != 0 {
		t.Fatalf("want entry state renumbered to 0, got %d", s0.ID)
	}
	if s3.ID != 1 {
		t.Fatalf("want s3 renumbered to 1, got %d", s3.ID)
	}

	g, ok := s0.Body[0].(*ast.GotoState)
	if !ok {
		t.Fatalf("s0's body[0] is not a GotoState: %T", s0.Body[0])
	}
	target, ok := g.StaticTarget()
	if !ok || target != s3 {
		t.Fatalf("want s0's jump to resolve straight to s3, got %v (ok=%v)", target, ok)
	}
}

// TestFoldEmptyStatesRenumbersIDsInOrder pins the exact renumbering
// sequence §4.G produces (not just the survivor count), comparing the
// surviving ids against a plain []int with cmp.Diff rather than a
// hand-rolled index-by-index loop.
func TestFoldEmptyStatesRenumbersIDsInOrder(t *testing.T) {
	s0 := ast.NewState() // entry, empty forward, exempt from folding
	s1 := ast.NewState() // empty forward, folded away
	s2 := ast.NewState() // real body, survives

	s0.Body = []ast.Stmt{ast.NewGotoState(s1)}
	s1.Body = []ast.Stmt{ast.NewGotoState(s2)}
	s2.Body = []ast.Stmt{&ast.Return{}}

	surviving := foldEmptyStates([]*ast.State{s0, s1, s2})

	gotIDs := make([]int, len(surviving))
	for i, s := range surviving {
		gotIDs[i] = s.ID
	}
	wantIDs := []int{0, 1}
	if diff := cmp.Diff(wantIDs, gotIDs); diff != "" {
		t.Errorf("surviving state ids mismatch (-want +got):\n%s", diff)
	}
}

func TestFoldEmptyStatesKeepsRealBodies(t *testing.T) {
	s0 := ast.NewState()
	s1 := ast.NewState()
	s0.Body = []ast.Stmt{&ast.ExprStmt{X: &ast.Yield{}}, ast.NewGotoState(s1)}
	s1.Body = []ast.Stmt{&ast.Return{}}

	surviving := foldEmptyStates([]*ast.State{s0, s1})
	if len(surviving) != 2 {
		t.Fatalf("want both states to survive (neither is an empty forward), got %d", len(surviving))
	}
}

func TestFoldEmptyStatesResolvesExceptionHandlerTargets(t *testing.T) {
	s0 := ast.NewState()
	handlerFwd := ast.NewState() // empty forward to the real handler
	handler := ast.NewState()

	s0.Handler = ast.Handler{Kind: ast.ExceptHandler, Target: handlerFwd}
	s0.Body = []ast.Stmt{&ast.Return{}}
	handlerFwd.Body = []ast.Stmt{ast.NewGotoState(handler)}
	handler.Body = []ast.Stmt{&ast.Raise{}}

	surviving := foldEmptyStates([]*ast.State{s0, handlerFwd, handler})
	if len(surviving) != 2 {
		t.Fatalf("want handlerFwd folded away, got %d surviving", len(surviving))
	}
	if s0.Handler.Target != handler {
		t.Fatalf("want s0's handler to resolve past the empty forward to the real handler, got %v", s0.Handler.Target)
	}
}
