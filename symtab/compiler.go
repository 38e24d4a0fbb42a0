package symtab

import "github.com/dispatchrun/closureiter/ast"

// EnvType is the host compiler's representation of a lambda-lifted
// environment record's type. The lowering pass never constructs one
// itself — lambda-lifting, which owns EnvType, either already ran (in
// which case GetEnvParam returns non-nil) or hasn't (in which case the
// pass collects hidden variables as ordinary locals for lambda-lifting to
// pick up later).
type EnvType struct {
	Name   string
	Fields []*Symbol
}

// AddField appends sym to the record, unless a field with that name
// already exists, and returns the field symbol actually present on the
// record afterwards (which lets callers that raced to add the same hidden
// variable converge on one field).
func (e *EnvType) AddField(sym *Symbol) *Symbol {
	for _, f := range e.Fields {
		if f.Name == sym.Name {
			return f
		}
	}
	e.Fields = append(e.Fields, sym)
	return sym
}

// Field looks up a field by name, returning nil if absent.
func (e *EnvType) Field(name string) *Symbol {
	for _, f := range e.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// Compiler bundles the factories and lookups the lowering pass consumes
// from its host, per spec.md §6 ("Consumed from the compiler"). Lambda
// lifting, the parser, the checker, and the code generator are all reached
// only through this interface (or not at all) — the pass never imports
// them directly.
type Compiler interface {
	// GetSysType returns the compiler's canonical Type for one of the
	// small set of kinds this pass needs to name directly.
	GetSysType(Kind) Type

	// GetSysSym looks up a well-known runtime symbol by name (e.g. the
	// coroutine/iterator runtime's helpers).
	GetSysSym(name string) *Symbol

	// CallCodegenProc builds a call expression to a compiler- or
	// runtime-provided procedure such as getCurrentException or
	// closureIterSetupExc; the pass never knows how that procedure is
	// implemented, only its name and arguments.
	CallCodegenProc(name string, args ...ast.Expr) ast.Expr

	// GetEnvParam reports whether lambda-lifting has already run for fn,
	// returning the environment parameter identifier if so, or nil if
	// hidden state should instead be collected as ordinary locals.
	GetEnvParam(fn *Symbol) *ast.Ident

	// GetStateField returns the field already holding `state` within env
	// g's type, if lambda-lifting has already sited one (this can happen
	// when a prior compiler run partially processed the function).
	GetStateField(g *EnvType, fn *Symbol) *Symbol

	// AddUniqueField adds sym as a new field of env (deduplicating by
	// name) and returns the field actually present afterwards.
	AddUniqueField(env *EnvType, sym *Symbol) *Symbol

	// GetClosureIterResult returns the symbol that holds the value handed
	// back across a yield or a return — the compiler's "iterator result"
	// slot.
	GetClosureIterResult(env *EnvType, fn *Symbol, idGen *IdGenerator) *Symbol

	// CreateClosureIterStateType returns the integer type used for the
	// `state` hidden variable.
	CreateClosureIterStateType(fn *Symbol, idGen *IdGenerator) Type
}
