package closureiter

import (
	"strconv"

	"github.com/dispatchrun/closureiter/ast"
	"github.com/dispatchrun/closureiter/diag"
	"github.com/dispatchrun/closureiter/symtab"
)

// pass carries everything shared across the components (§4.A-G) for a
// single call to Transform. It is created fresh per iterator body; nothing
// in it outlives one Transform call except what's reachable through
// compiler and idGen, which the host owns.
type pass struct {
	compiler symtab.Compiler
	idGen    *symtab.IdGenerator
	typeInfo *symtab.TypeInfo
	reporter *diag.Reporter
	config   Config

	fn            *symtab.Symbol
	hasReturnType bool
	returnType    symtab.Type
	stateType     symtab.Type

	env *env

	// hasExceptions is set by §4.D the moment it descends into a Try; it
	// gates whether §4.E builds an exception table and wraps the state
	// loop in a catch-all try/except.
	hasExceptions bool

	// states accumulates State records in the order §4.D allocates them.
	// It is appended to but never reordered before §4.G compacts it.
	states []*ast.State

	// breakable maps a Block's label identity to where control should
	// land when that block completes, and to the nearest enclosing
	// finally at the point the block was entered — spec.md §3's
	// "breakable scopes".
	breakable map[*ast.Ident]breakScope

	// sawYield is set by splitExprs the moment it finds at least one Yield
	// node anywhere in the routine's body. Transform consults it to decide
	// whether fn itself belongs in color.go's ColorCallers root set: a
	// function with no lexical yield at all needs no caller coloring of
	// its own, even if the host still supplied a CallGraph.
	sawYield bool
}

type breakScope struct {
	outState      *ast.State
	nearestFinally *ast.State // nil if no finally encloses this block
}

func newPass(fn *symtab.Symbol, returnType symtab.Type, compiler symtab.Compiler, idGen *symtab.IdGenerator, reporter *diag.Reporter, config Config) *pass {
	if reporter == nil {
		reporter = diag.NewReporter()
	}
	p := &pass{
		compiler:      compiler,
		idGen:         idGen,
		typeInfo:      symtab.NewTypeInfo(),
		reporter:      reporter,
		config:        config,
		fn:            fn,
		hasReturnType: !symtab.IsUnit(returnType),
		returnType:    returnType,
		breakable:     make(map[*ast.Ident]breakScope),
	}
	p.stateType = compiler.CreateClosureIterStateType(fn, idGen)
	p.env = newEnv(p, fn)
	return p
}

// newState allocates a fresh State with the provisional sentinel id and
// appends it to p.states.
func (p *pass) newState() *ast.State {
	s := ast.NewState()
	p.states = append(p.states, s)
	if p.config.Debug {
		p.reporter.Tracef("statesplit", "allocated state #%d", len(p.states)-1)
	}
	return s
}

// newLabel synthesizes a fresh, guaranteed-unique block label.
func (p *pass) newLabel() *ast.Ident {
	return &ast.Ident{Name: "_L" + strconv.FormatInt(p.idGen.Next(), 10)}
}

func (p *pass) fatal(pname string, kind diag.Kind, msg string, args ...any) {
	p.reporter.Fatal(pname, kind, msg, args...)
}

func (p *pass) tempName() string {
	return "_v" + strconv.FormatInt(p.idGen.Next(), 10)
}
