package symtab

import "github.com/dispatchrun/closureiter/ast"

// DefaultCompiler is a minimal, in-memory Compiler good enough to drive the
// lowering pass end to end in tests, or as a starting point for a host
// that hasn't grown its own symbol table yet. It keeps no persistent state
// across functions beyond a table of well-known runtime symbols and the
// environment parameters registered through SetEnvParam.
type DefaultCompiler struct {
	sysSyms map[string]*Symbol
	envs    map[*Symbol]*ast.Ident // fn -> env param, once lambda-lifted
}

// NewDefaultCompiler returns a DefaultCompiler with the runtime helpers
// spec.md §6 names (getCurrentException, closureIterSetupExc) pre-registered.
func NewDefaultCompiler() *DefaultCompiler {
	c := &DefaultCompiler{
		sysSyms: make(map[string]*Symbol),
		envs:    make(map[*Symbol]*ast.Ident),
	}
	c.sysSyms["getCurrentException"] = &Symbol{Name: "getCurrentException", Type: Exception}
	c.sysSyms["closureIterSetupExc"] = &Symbol{Name: "closureIterSetupExc", Type: Unit}
	return c
}

func (c *DefaultCompiler) GetSysType(k Kind) Type {
	switch k {
	case KindUnit:
		return Unit
	case KindInt:
		return Int
	case KindInt16:
		return Int16
	case KindBool:
		return Bool
	case KindException:
		return Exception
	default:
		return Any
	}
}

func (c *DefaultCompiler) GetSysSym(name string) *Symbol {
	return c.sysSyms[name]
}

func (c *DefaultCompiler) CallCodegenProc(name string, args ...ast.Expr) ast.Expr {
	fn := &ast.Ident{Name: name}
	if sym := c.GetSysSym(name); sym != nil {
		fn.Sym = sym
	}
	return &ast.Call{Fun: fn, Args: args}
}

// SetEnvParam registers fn as already lambda-lifted with environment
// parameter param; used by tests that want to exercise the
// already-lifted path of §4.A.
func (c *DefaultCompiler) SetEnvParam(fn *Symbol, param *ast.Ident) {
	c.envs[fn] = param
}

func (c *DefaultCompiler) GetEnvParam(fn *Symbol) *ast.Ident {
	return c.envs[fn]
}

func (c *DefaultCompiler) GetStateField(g *EnvType, fn *Symbol) *Symbol {
	if g == nil {
		return nil
	}
	return g.Field("state")
}

func (c *DefaultCompiler) AddUniqueField(env *EnvType, sym *Symbol) *Symbol {
	return env.AddField(sym)
}

func (c *DefaultCompiler) GetClosureIterResult(env *EnvType, fn *Symbol, idGen *IdGenerator) *Symbol {
	sym := idGen.NewSymbol("closureIterResult", Any)
	if env != nil {
		return env.AddField(sym)
	}
	return sym
}

func (c *DefaultCompiler) CreateClosureIterStateType(fn *Symbol, idGen *IdGenerator) Type {
	return Int
}
