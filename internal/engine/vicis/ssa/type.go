package ssa

import (
	"fmt"
	"strings"
)

// TypeID identifies an interned Type in Types.
type TypeID uint32

const (
	// TypeInvalid is the zero TypeID and never names a type.
	TypeInvalid TypeID = iota
	// TypeVoid is pre-interned by NewTypes so that instructions without a
	// result can be typed without access to the table.
	TypeVoid
)

// TypeKind is the kind of Type.
type TypeKind byte

const (
	TypeKindInvalid TypeKind = iota
	TypeKindVoid
	TypeKindInt
	TypeKindPointer
	TypeKindArray
	TypeKindFunction
)

// String implements fmt.Stringer.
func (k TypeKind) String() string {
	switch k {
	case TypeKindVoid:
		return "void"
	case TypeKindInt:
		return "int"
	case TypeKindPointer:
		return "pointer"
	case TypeKindArray:
		return "array"
	case TypeKindFunction:
		return "function"
	}
	return "invalid"
}

// Type is an immutable type. Each field has different meaning depending on kind.
type Type struct {
	kind TypeKind
	// bits is the width of an integer type.
	bits int
	// elem is the pointee of a pointer, the element of an array or the
	// result of a function type. TypeInvalid for an opaque pointer.
	elem TypeID
	// n is the length of an array type.
	n uint64
	// params are the parameter types of a function type.
	params   []TypeID
	variadic bool
}

// Types is the type table shared by every function of a Module.
//
// Structurally equal types are interned into the same TypeID. The table is
// only mutated while a module is being built, and is safe for concurrent
// readers afterwards.
type Types struct {
	types []Type
	ids   map[string]TypeID
}

// NewTypes returns a new Types with void pre-interned as TypeVoid.
func NewTypes() *Types {
	t := &Types{
		types: []Type{{kind: TypeKindInvalid}},
		ids:   map[string]TypeID{},
	}
	if void := t.intern(Type{kind: TypeKindVoid}); void != TypeVoid {
		panic("BUG: void must be interned first")
	}
	return t
}

func (t *Types) intern(typ Type) TypeID {
	key := t.key(&typ)
	if id, ok := t.ids[key]; ok {
		return id
	}
	id := TypeID(len(t.types))
	t.types = append(t.types, typ)
	t.ids[key] = id
	return id
}

// key renders typ with component ids, which are already unique per structure.
func (t *Types) key(typ *Type) string {
	switch typ.kind {
	case TypeKindVoid:
		return "v"
	case TypeKindInt:
		return fmt.Sprintf("i%d", typ.bits)
	case TypeKindPointer:
		return fmt.Sprintf("p%d", typ.elem)
	case TypeKindArray:
		return fmt.Sprintf("a%d,%d", typ.n, typ.elem)
	case TypeKindFunction:
		var sb strings.Builder
		fmt.Fprintf(&sb, "f%d(", typ.elem)
		for _, p := range typ.params {
			fmt.Fprintf(&sb, "%d,", p)
		}
		if typ.variadic {
			sb.WriteString("...")
		}
		sb.WriteByte(')')
		return sb.String()
	default:
		panic("BUG: invalid type kind " + typ.kind.String())
	}
}

// Void returns TypeVoid.
func (t *Types) Void() TypeID { return TypeVoid }

// Int returns the integer type of the given width.
func (t *Types) Int(bits int) TypeID {
	if bits <= 0 {
		panic(fmt.Sprintf("BUG: invalid integer width %d", bits))
	}
	return t.intern(Type{kind: TypeKindInt, bits: bits})
}

// Pointer returns the pointer type to elem. TypeInvalid makes an opaque pointer.
func (t *Types) Pointer(elem TypeID) TypeID {
	return t.intern(Type{kind: TypeKindPointer, elem: elem})
}

// Array returns the array type of n elems.
func (t *Types) Array(elem TypeID, n uint64) TypeID {
	return t.intern(Type{kind: TypeKindArray, elem: elem, n: n})
}

// Function returns the function type.
func (t *Types) Function(ret TypeID, params []TypeID, variadic bool) TypeID {
	ps := make([]TypeID, len(params))
	copy(ps, params)
	return t.intern(Type{kind: TypeKindFunction, elem: ret, params: ps, variadic: variadic})
}

func (t *Types) get(id TypeID) *Type {
	if id == TypeInvalid || int(id) >= len(t.types) {
		panic(fmt.Sprintf("BUG: invalid type id %d", id))
	}
	return &t.types[id]
}

// Kind returns the kind of the type.
func (t *Types) Kind(id TypeID) TypeKind {
	if id == TypeInvalid || int(id) >= len(t.types) {
		return TypeKindInvalid
	}
	return t.types[id].kind
}

// IsInt returns true if id is the integer type of the given width.
func (t *Types) IsInt(id TypeID, bits int) bool {
	return t.Kind(id) == TypeKindInt && t.types[id].bits == bits
}

// IntBits returns the width of the integer type.
func (t *Types) IntBits(id TypeID) int {
	typ := t.get(id)
	if typ.kind != TypeKindInt {
		panic("BUG: IntBits on " + typ.kind.String())
	}
	return typ.bits
}

// Elem returns the pointee of a pointer, or the element of an array.
func (t *Types) Elem(id TypeID) TypeID {
	typ := t.get(id)
	switch typ.kind {
	case TypeKindPointer, TypeKindArray:
		return typ.elem
	}
	panic("BUG: Elem on " + typ.kind.String())
}

// Len returns the length of the array type.
func (t *Types) Len(id TypeID) uint64 {
	typ := t.get(id)
	if typ.kind != TypeKindArray {
		panic("BUG: Len on " + typ.kind.String())
	}
	return typ.n
}

// Signature returns the result and parameter types of the function type.
func (t *Types) Signature(id TypeID) (ret TypeID, params []TypeID, variadic bool) {
	typ := t.get(id)
	if typ.kind != TypeKindFunction {
		panic("BUG: Signature on " + typ.kind.String())
	}
	return typ.elem, typ.params, typ.variadic
}

// PointerSize is the size of a pointer on the supported targets.
const PointerSize = 8

// Size returns the number of bytes a value of the type occupies.
func (t *Types) Size(id TypeID) uint64 {
	typ := t.get(id)
	switch typ.kind {
	case TypeKindInt:
		return uint64(typ.bits+7) / 8
	case TypeKindPointer:
		return PointerSize
	case TypeKindArray:
		return t.Size(typ.elem) * typ.n
	default:
		// void and function types have no storage.
		return 0
	}
}

// String renders the type in LLVM syntax.
func (t *Types) String(id TypeID) string {
	if id == TypeInvalid {
		return "invalid"
	}
	typ := t.get(id)
	switch typ.kind {
	case TypeKindVoid:
		return "void"
	case TypeKindInt:
		return fmt.Sprintf("i%d", typ.bits)
	case TypeKindPointer:
		if typ.elem == TypeInvalid {
			return "ptr"
		}
		return t.String(typ.elem) + "*"
	case TypeKindArray:
		return fmt.Sprintf("[%d x %s]", typ.n, t.String(typ.elem))
	case TypeKindFunction:
		ps := make([]string, 0, len(typ.params)+1)
		for _, p := range typ.params {
			ps = append(ps, t.String(p))
		}
		if typ.variadic {
			ps = append(ps, "...")
		}
		return fmt.Sprintf("%s (%s)", t.String(typ.elem), strings.Join(ps, ", "))
	}
	return "invalid"
}
