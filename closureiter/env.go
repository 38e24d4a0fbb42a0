package closureiter

import (
	"strconv"

	"github.com/dispatchrun/closureiter/ast"
	"github.com/dispatchrun/closureiter/diag"
	"github.com/dispatchrun/closureiter/symtab"
)

// env is the accessor factory of spec.md §4.A. It owns the six hidden
// variables (state, tmpResult, unrollFinally, unrollUntil, afterUnroll,
// curExc), creating each lazily on first access, and decides — once, for
// the whole pass invocation — whether they live as fields of a lambda-lifted
// environment record or as ordinary locals that a later lifting pass will
// pick up.
//
// state is special-cased: whichever storage policy is in effect, it must
// end up visible to the lambda-lifter as the record's first field (the
// code generator depends on this, per spec.md §6's contract). When
// lambda-lifting hasn't run yet, that means state must be the first local
// declared in the synthesized var section; the lifter is expected to
// preserve declaration order when assigning field offsets.
type env struct {
	p *pass

	envParam *ast.Ident     // non-nil iff lambda-lifting already ran
	envType  *symtab.EnvType // non-nil iff lambda-lifting already ran

	locals *ast.VarSection // nil until the first local hidden var/temp is created

	state         *hiddenVar
	tmpResult     *hiddenVar
	unrollFinally *hiddenVar
	unrollUntil   *hiddenVar
	afterUnroll   *hiddenVar
	curExc        *hiddenVar

	closureIterResult *hiddenVar

	tempCount int
}

// hiddenVar pairs a hidden variable's symbol with the lvalue expression
// the pass should read/write it through, whichever storage policy chose
// that expression.
type hiddenVar struct {
	sym  *symtab.Symbol
	expr ast.Expr // always an *ast.Ident or an *ast.Dot
}

func newEnv(p *pass, fn *symtab.Symbol) *env {
	e := &env{p: p}
	e.envParam = p.compiler.GetEnvParam(fn)
	if e.envParam != nil {
		e.envType = &symtab.EnvType{Name: fn.Name + "Env"}
		if existing := p.compiler.GetStateField(e.envType, fn); existing != nil {
			e.state = &hiddenVar{sym: existing, expr: &ast.Dot{X: e.envParam, Sel: existing.Name}}
		}
	}
	return e
}

// lifted reports whether lambda-lifting has already run for this function.
func (e *env) lifted() bool { return e.envParam != nil }

// access lazily materializes and returns the lvalue expression for one of
// the six hidden variables, recording it in *slot on first use.
func (e *env) access(slot **hiddenVar, name string, typ symtab.Type) ast.Expr {
	if *slot == nil {
		*slot = e.declare(name, typ)
	}
	return (*slot).expr
}

func (e *env) declare(name string, typ symtab.Type) *hiddenVar {
	sym := e.p.idGen.NewSymbol(name, typ)
	if e.lifted() {
		field := e.p.compiler.AddUniqueField(e.envType, sym)
		return &hiddenVar{sym: field, expr: &ast.Dot{X: e.envParam, Sel: field.Name}}
	}
	ident := &ast.Ident{Name: sym.Name, Sym: sym}
	e.p.typeInfo.Define(ident, sym)
	binding := &ast.VarBinding{Name: ident}
	if e.locals == nil {
		e.locals = &ast.VarSection{}
	}
	if name == "state" {
		// state must be the first declared local so a subsequent
		// lambda-lifting pass sites it as the env record's field 0.
		e.locals.Bindings = append([]*ast.VarBinding{binding}, e.locals.Bindings...)
	} else {
		e.locals.Bindings = append(e.locals.Bindings, binding)
	}
	return &hiddenVar{sym: sym, expr: ident}
}

func (e *env) stateAccess() ast.Expr {
	return e.access(&e.state, "state", e.p.stateType)
}

// assignState returns a statement assigning value (an int literal or an
// arbitrary expression) to the state variable.
func (e *env) assignState(value ast.Expr) ast.Stmt {
	return &ast.Assign{Lhs: e.stateAccess(), Rhs: value}
}

func (e *env) assignStateInt(id int) ast.Stmt {
	return e.assignState(intLit(id))
}

// assignBool and assignInt are small helpers so §4.C/§4.D call sites that
// set unrollFinally/unrollUntil/afterUnroll read as the assignment they are
// rather than a bare &ast.Assign{...} literal at every use.
func (e *env) assignBool(lhs ast.Expr, v bool) ast.Stmt {
	val := "false"
	if v {
		val = "true"
	}
	return &ast.Assign{Lhs: lhs, Rhs: &ast.BasicLit{Kind: ast.BoolLit, Value: val}}
}

func (e *env) assignInt(lhs ast.Expr, v int) ast.Stmt {
	return &ast.Assign{Lhs: lhs, Rhs: intLit(v)}
}

func (e *env) tmpResultAccess() ast.Expr {
	if !e.p.hasReturnType {
		e.p.reporter.Fatal("env", diag.InvalidInput, "tmpResult requested but iterator has no return type")
	}
	return e.access(&e.tmpResult, "tmpResult", e.p.returnType)
}

func (e *env) unrollFinallyAccess() ast.Expr {
	return e.access(&e.unrollFinally, "unrollFinally", symtab.Bool)
}

func (e *env) unrollUntilAccess() ast.Expr {
	return e.access(&e.unrollUntil, "unrollUntil", symtab.Int)
}

func (e *env) afterUnrollAccess() ast.Expr {
	return e.access(&e.afterUnroll, "afterUnroll", symtab.Int)
}

func (e *env) curExcAccess() ast.Expr {
	return e.access(&e.curExc, "curExc", symtab.Exception)
}

func (e *env) nullifyCurExc() ast.Stmt {
	return &ast.Assign{Lhs: e.curExcAccess(), Rhs: nilLit()}
}

// closureIterResultAccess returns the lvalue for the symbol
// symtab.Compiler.GetClosureIterResult identifies: the slot the caller
// that resumes the iterator writes the sent-in value into, and which a
// yield used in expression position (§4.B) reads right back out of once
// it has emitted its own suspension statement. Unlike the six hidden
// variables above, the symbol itself (and, when lifted, its env field)
// comes from the host's GetClosureIterResult rather than from declare;
// the read still follows the same lifted() switch: a Dot onto the env
// param when lifted, otherwise a local added to the var section.
func (e *env) closureIterResultAccess() ast.Expr {
	if e.closureIterResult != nil {
		return e.closureIterResult.expr
	}
	var et *symtab.EnvType
	if e.lifted() {
		et = e.envType
	}
	sym := e.p.compiler.GetClosureIterResult(et, e.p.fn, e.p.idGen)
	if e.lifted() {
		expr := &ast.Dot{X: e.envParam, Sel: sym.Name}
		e.closureIterResult = &hiddenVar{sym: sym, expr: expr}
		return expr
	}
	ident := &ast.Ident{Name: sym.Name, Sym: sym}
	e.p.typeInfo.Define(ident, sym)
	if e.locals == nil {
		e.locals = &ast.VarSection{}
	}
	e.locals.Bindings = append(e.locals.Bindings, &ast.VarBinding{Name: ident})
	e.closureIterResult = &hiddenVar{sym: sym, expr: ident}
	return ident
}

// newTempVar allocates a fresh local temporary of type t. Unlike the
// hidden variables, temporaries are never sited on the environment record
// even once lambda-lifting has run, because §4.B only ever needs them for
// the lifetime of a single statement sequence — they hold no state across
// a yield and so have no reason to survive a suspension.
func (e *env) newTempVar(t symtab.Type) *ast.Ident {
	e.tempCount++
	sym := e.p.idGen.NewSymbol(e.p.tempName(), t)
	ident := &ast.Ident{Name: sym.Name, Sym: sym}
	e.p.typeInfo.Define(ident, sym)
	if e.locals == nil {
		e.locals = &ast.VarSection{}
	}
	e.locals.Bindings = append(e.locals.Bindings, &ast.VarBinding{Name: ident})
	return ident
}

func intLit(v int) *ast.BasicLit {
	return &ast.BasicLit{Kind: ast.IntLit, Value: strconv.Itoa(v)}
}

func nilLit() *ast.BasicLit {
	return &ast.BasicLit{Kind: ast.NilLit, Value: "nil"}
}
