package closureiter

import (
	"fmt"
	"go/types"

	"golang.org/x/tools/go/packages"
)

// driver.go models the "load once, compile every candidate function"
// shape spec.md's own driver assumes some external tool provides: it
// doesn't reimplement golang.org/x/tools/go/packages' loader (loading
// and type-checking a module is squarely outside this pass's scope, per
// spec.md §1's list of external collaborators) but it does give a host
// built on that package a concrete, minimal consumer contract instead of
// leaving "how does Transform get invoked over a whole module" entirely
// unaddressed.

// ModuleGraph is a loaded, type-checked module: every package a host
// needs to walk to find iterator candidates and, once Transform has
// lowered them, to type-check the rewritten bodies against.
type ModuleGraph interface {
	// Packages returns every loaded package, in the load order
	// golang.org/x/tools/go/packages.Load produced.
	Packages() []*packages.Package

	// Lookup resolves a package path to its loaded Package, or nil if
	// path wasn't part of the graph.
	Lookup(path string) *packages.Package
}

// moduleGraph is the default ModuleGraph, backed directly by the slice
// packages.Load returns.
type moduleGraph struct {
	pkgs   []*packages.Package
	byPath map[string]*packages.Package
}

// LoadModuleGraph loads and type-checks the packages named by patterns
// (resolved relative to dir; dir == "" means the current directory),
// mirroring the packages.Load call a host builds an SSA program from
// before running color.go's ColorCallers over its call graph.
func LoadModuleGraph(dir string, patterns ...string) (ModuleGraph, error) {
	cfg := &packages.Config{
		Mode: packages.NeedName | packages.NeedFiles | packages.NeedImports |
			packages.NeedDeps | packages.NeedTypes | packages.NeedSyntax |
			packages.NeedTypesInfo,
		Dir: dir,
	}
	pkgs, err := packages.Load(cfg, patterns...)
	if err != nil {
		return nil, fmt.Errorf("closureiter: loading module graph: %w", err)
	}
	if packages.PrintErrors(pkgs) > 0 {
		return nil, fmt.Errorf("closureiter: module graph %v has type errors", patterns)
	}
	g := &moduleGraph{pkgs: pkgs, byPath: make(map[string]*packages.Package, len(pkgs))}
	for _, p := range pkgs {
		g.byPath[p.PkgPath] = p
	}
	return g, nil
}

func (g *moduleGraph) Packages() []*packages.Package { return g.pkgs }

func (g *moduleGraph) Lookup(path string) *packages.Package { return g.byPath[path] }

// FindFunc looks up a top-level function or method named name declared in
// pkg's scope; hosts use this to resolve an iterator candidate identified
// some other way (a marker comment, a naming convention, a signature
// shape) down to the *types.Func Transform's caller needs alongside the
// candidate's parsed body.
func FindFunc(pkg *packages.Package, name string) *types.Func {
	if pkg == nil || pkg.Types == nil {
		return nil
	}
	obj := pkg.Types.Scope().Lookup(name)
	if obj == nil {
		return nil
	}
	fn, _ := obj.(*types.Func)
	return fn
}
