package symtab

import "github.com/dispatchrun/closureiter/ast"

// TypeInfo is a side table associating expressions and identifiers with
// the type information the host compiler already computed for them,
// mirroring how go/types.Info is consulted by the teacher package rather
// than storing types directly on AST nodes. The lowering pass is a
// consumer and a (modest) producer of this table: every temporary or
// hidden variable it introduces gets an entry here so that later passes —
// in particular whatever lowers this tree further, such as lambda-lifting
// — can recover its type without re-inferring it.
type TypeInfo struct {
	Types map[ast.Expr]Type
	Defs  map[*ast.Ident]*Symbol
}

// NewTypeInfo returns an empty TypeInfo.
func NewTypeInfo() *TypeInfo {
	return &TypeInfo{
		Types: make(map[ast.Expr]Type),
		Defs:  make(map[*ast.Ident]*Symbol),
	}
}

// TypeOf returns the type recorded for e, or nil if none was recorded.
func (ti *TypeInfo) TypeOf(e ast.Expr) Type {
	return ti.Types[e]
}

// Define records that ident introduces sym, and that ident's type is
// sym.Type.
func (ti *TypeInfo) Define(ident *ast.Ident, sym *Symbol) {
	ti.Defs[ident] = sym
	ti.Types[ident] = sym.Type
}

// SetType records e's type without associating it with any particular
// symbol (used for non-Ident expressions, e.g. a Call's result).
func (ti *TypeInfo) SetType(e ast.Expr, t Type) {
	ti.Types[e] = t
}
