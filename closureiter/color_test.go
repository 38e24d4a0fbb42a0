package closureiter

import (
	"testing"

	"github.com/dispatchrun/closureiter/ast"
	"github.com/dispatchrun/closureiter/diag"
	"github.com/dispatchrun/closureiter/symtab"
)

// mapCallGraph is the simplest possible CallGraph: a fixed adjacency list
// from function to its direct callers, enough to exercise ColorCallers
// without pulling in golang.org/x/tools/go/ssa.
type mapCallGraph map[string][]string

func (g mapCallGraph) Callers(fn FuncID) []FuncID {
	callers := g[fn.(string)]
	out := make([]FuncID, len(callers))
	for i, c := range callers {
		out[i] = c
	}
	return out
}

// TestColorCallersWalksTransitiveCallers covers color.go's own contract in
// isolation: coloring must reach every caller transitively, not just
// direct ones, and must not loop forever on a cycle.
func TestColorCallersWalksTransitiveCallers(t *testing.T) {
	// main -> middle -> leaf, plus a cycle back from leaf to middle.
	g := mapCallGraph{
		"leaf":   {"middle"},
		"middle": {"main", "leaf"},
	}

	colored := ColorCallers(g, []FuncID{"leaf"})

	for _, want := range []string{"leaf", "middle", "main"} {
		if !colored[want] {
			t.Errorf("want %q colored, got %v", want, colored)
		}
	}
}

// TestTransformColorsCallersWhenCallGraphConfigured is SPEC_FULL.md's
// call-graph coloring supplement wired end to end: a host that supplies a
// CallGraph and this routine's own FuncID via WithCallGraph gets back a
// Result.ColoredCallers set that includes the routine itself (since it
// contains a lexical yield) plus every transitive caller the graph knows
// about.
func TestTransformColorsCallersWhenCallGraphConfigured(t *testing.T) {
	a := &ast.Ident{Name: "a"}
	body := []ast.Stmt{&ast.ExprStmt{X: &ast.Yield{Value: a}}}

	g := mapCallGraph{
		"gen":    {"driver"},
		"driver": {"main"},
	}

	compiler := symtab.NewDefaultCompiler()
	idGen := symtab.NewIdGenerator()
	fn := newTestFn("gen")

	result, err := Transform(fn, symtab.Int, body, compiler, idGen, diag.NewReporter(),
		WithCallGraph(g, "gen"))
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}

	if result.ColoredCallers == nil {
		t.Fatalf("want a non-nil ColoredCallers set once a CallGraph is configured")
	}
	for _, want := range []string{"gen", "driver", "main"} {
		if !result.ColoredCallers[want] {
			t.Errorf("want %q in the colored set, got %v", want, result.ColoredCallers)
		}
	}
}

// TestTransformSkipsColoringWithoutCallGraph covers the opt-in: with no
// Config.CallGraph at all, Transform must not touch ColorCallers, leaving
// Result.ColoredCallers nil regardless of whether the routine yields.
func TestTransformSkipsColoringWithoutCallGraph(t *testing.T) {
	a := &ast.Ident{Name: "a"}
	body := []ast.Stmt{&ast.ExprStmt{X: &ast.Yield{Value: a}}}

	compiler := symtab.NewDefaultCompiler()
	idGen := symtab.NewIdGenerator()
	fn := newTestFn("plain")

	result, err := Transform(fn, symtab.Int, body, compiler, idGen, diag.NewReporter())
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if result.ColoredCallers != nil {
		t.Errorf("want a nil ColoredCallers set with no CallGraph configured, got %v", result.ColoredCallers)
	}
}
