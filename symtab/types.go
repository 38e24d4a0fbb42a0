// Package symtab provides the minimal symbol- and type-table machinery the
// closure-iterator lowering pass needs from its host compiler.
//
// The real type system, symbol table, and identifier/string interning
// caches belong to the surrounding compiler (spec.md §1 lists them as
// external collaborators); this package only gives the pass something
// concrete to compile and test against; a production host would supply its
// own implementation behind the Compiler interface in compiler.go.
package symtab

import "fmt"

// Kind enumerates the handful of system types the pass itself needs to
// name directly (everything else flows through unexamined as an opaque
// Type supplied by the host's real type checker).
type Kind int

const (
	KindUnit Kind = iota
	KindInt
	KindInt16
	KindBool
	KindException
	KindAny
)

func (k Kind) String() string {
	switch k {
	case KindUnit:
		return "unit"
	case KindInt:
		return "int"
	case KindInt16:
		return "int16"
	case KindBool:
		return "bool"
	case KindException:
		return "Exception"
	case KindAny:
		return "any"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Type is the pass's view of a type: just enough to decide whether a
// return type is unit (so tmpResult can be skipped entirely, see §4.A) and
// to label synthesized temporaries and hidden variables.
type Type interface {
	Kind() Kind
	String() string
}

type basic struct{ kind Kind }

func (b basic) Kind() Kind     { return b.kind }
func (b basic) String() string { return b.kind.String() }

var (
	Unit      Type = basic{KindUnit}
	Int       Type = basic{KindInt}
	Int16     Type = basic{KindInt16}
	Bool      Type = basic{KindBool}
	Exception Type = basic{KindException}
	Any       Type = basic{KindAny}
)

// IsUnit reports whether t is the unit/void type, or nil (treated as unit
// for iterators that declare no return type at all).
func IsUnit(t Type) bool { return t == nil || t.Kind() == KindUnit }
