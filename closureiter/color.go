package closureiter

import (
	"golang.org/x/tools/go/callgraph"
	"golang.org/x/tools/go/ssa"
)

// color.go implements SPEC_FULL.md's call-graph coloring supplement,
// grounded on the teacher's compiler/color.go (colorFunctions, built on
// golang.org/x/tools/go/callgraph and golang.org/x/tools/go/ssa). The
// teacher colors *ssa.Function nodes with the yield *types.Signature they
// propagate; this package has no SSA of its own to walk (it operates on
// one already-parsed routine body, not a whole loaded package), so
// CallGraph is a minimal, host-supplied abstraction over whatever call
// graph the surrounding compiler already built — narrow enough that a
// host backed by golang.org/x/tools/go/callgraph, or by anything else, can
// implement it by wrapping its own graph.
//
// A function that itself lexically contains a yield is colored by
// Transform once §4.B's splitExprs has seen it; ColorCallers' job is the one
// spec.md's single-function scope leaves out: a function that merely
// *calls* a yielding function, with no yield of its own, still needs its
// hidden-variable plumbing threaded through the call, because resuming
// after a yield means resuming every caller on the path back up to the
// iterator driver.

// FuncID is an opaque handle the host's CallGraph uses to identify a
// function; the pass never looks inside it.
type FuncID any

// CallGraph is the narrow slice of a whole-program call graph
// ColorCallers needs: for a given function, every function that calls it
// directly.
type CallGraph interface {
	Callers(fn FuncID) []FuncID
}

// ColorCallers walks cg outward from every function in roots (the
// functions found to contain a lexical yield), marking every
// transitive caller as colored too, and returns the full colored set
// (roots included). A function already in the returned set is not
// revisited, mirroring colorFunctions1's "already walked" short circuit
// in the teacher — without it, a call graph with cycles (mutual
// recursion through a yielding function) would recurse forever.
func ColorCallers(cg CallGraph, roots []FuncID) map[FuncID]bool {
	colored := make(map[FuncID]bool, len(roots))
	var walk func(fn FuncID)
	walk = func(fn FuncID) {
		if colored[fn] {
			return
		}
		colored[fn] = true
		for _, caller := range cg.Callers(fn) {
			walk(caller)
		}
	}
	for _, root := range roots {
		walk(root)
	}
	return colored
}

// SSACallGraph adapts a *callgraph.Graph built by golang.org/x/tools/go/ssa
// analysis — the same graph the teacher's colorFunctions walks — to the
// CallGraph interface above, so a host that already builds one via
// golang.org/x/tools/go/ssa/ssautil and a callgraph builder (cha, rta,
// pointer, ...) doesn't need to write its own adapter.
type SSACallGraph struct {
	Graph *callgraph.Graph
}

// Callers implements CallGraph, deduplicating adjacent edges from the same
// caller the way the teacher's colorFunctions0 does with its prevCaller
// check (a caller with multiple call sites into fn otherwise appears once
// per call site in cg.Nodes[fn].In).
func (g SSACallGraph) Callers(fn FuncID) []FuncID {
	f, ok := fn.(*ssa.Function)
	if !ok || g.Graph == nil {
		return nil
	}
	node := g.Graph.Nodes[f]
	if node == nil {
		return nil
	}
	var out []FuncID
	var prev *ssa.Function
	for _, edge := range node.In {
		caller := edge.Caller.Func
		if caller == prev {
			continue
		}
		out = append(out, caller)
		prev = caller
	}
	return out
}
