// Package types defines the primitive and array type model shared by the IR
// lowering, optimizer and code generator.
//
// Grounded on vslc/src/ir/lir/types.Types: one enumeration per axis (width,
// arithmetic op, instruction kind) instead of the teacher's several
// near-duplicate module iterations (see DESIGN.md).
package types

import "fmt"

// Width enumerates the primitive scalar widths of the language, ordered so
// that implicit promotion is simply "the wider value wins".
type Width int

const (
	Void Width = iota
	I1         // boolean result of a comparison or logical operator.
	I8
	I32
	I64
	Float // single precision; the language has no double.
)

var widthNames = [...]string{"void", "i1", "i8", "i32", "i64", "float"}

func (w Width) String() string {
	if w < Void || w > Float {
		return fmt.Sprintf("Width(%d)", int(w))
	}
	return widthNames[w]
}

// IsFloat reports whether w is the floating-point width.
func (w Width) IsFloat() bool { return w == Float }

// Bytes returns the storage size in bytes of a scalar of width w. Used by
// the array/stack-slot layout calculations; Void has no storage size.
func (w Width) Bytes() int {
	switch w {
	case I1, I8:
		return 1
	case I32, Float:
		return 4
	case I64:
		return 8
	default:
		return 0
	}
}

// Promote returns the wider of a and b under the ordering
// I1 < I8 < I32 < I64 < Float (floats dominate integers).
func Promote(a, b Width) Width {
	if a > b {
		return a
	}
	return b
}

// SymType is the full type of a symbol: a scalar width, or an array of
// element type with a dimension list. A leading dimension of -1 denotes a
// pointer-decayed array (e.g. a function parameter declared `int a[]`).
type SymType struct {
	Width   Width
	IsConst bool
	Elem    *SymType // non-nil only for arrays; the type of one element.
	Dims    []int    // non-empty only for arrays.
}

// Scalar constructs a non-array, non-const SymType of the given width.
func Scalar(w Width) SymType {
	return SymType{Width: w}
}

// Array constructs an array SymType. dims must be non-empty; elem must not
// be an array itself (arrays of arrays are represented as one SymType with
// a flattened Dims list, matching the teacher's `alloca [D x T]` model) and
// must not be Void.
func Array(elem SymType, dims []int) SymType {
	if len(dims) == 0 {
		panic("types.Array: dims must be non-empty")
	}
	if elem.Width == Void {
		panic("types.Array: element type must not be void")
	}
	d := make([]int, len(dims))
	copy(d, dims)
	e := elem
	return SymType{Width: elem.Width, Elem: &e, Dims: d}
}

// IsArray reports whether t denotes an array (or pointer-decayed array) type.
func (t SymType) IsArray() bool { return len(t.Dims) > 0 }

// PointerDecayed reports whether the leading dimension denotes "unknown
// extent", i.e. a pointer received as a function parameter.
func (t SymType) PointerDecayed() bool {
	return t.IsArray() && t.Dims[0] == -1
}

// ElementType returns the SymType of a single element after indexing by one
// dimension. Panics if t is not an array.
func (t SymType) ElementType() SymType {
	if !t.IsArray() {
		panic("types.SymType.ElementType: not an array")
	}
	if len(t.Dims) == 1 {
		return *t.Elem
	}
	return SymType{Width: t.Elem.Width, Elem: t.Elem, Dims: t.Dims[1:]}
}

// Size returns the total number of scalar elements described by t (product
// of all concrete dimensions; a pointer-decayed leading dim contributes a
// factor of 1 since its extent is unknown at this type).
func (t SymType) Size() int {
	if !t.IsArray() {
		return 1
	}
	n := 1
	for i1, e1 := range t.Dims {
		if i1 == 0 && e1 == -1 {
			continue
		}
		n *= e1
	}
	return n
}

// Bytes returns the total byte size of t, scalar or array.
func (t SymType) Bytes() int {
	if !t.IsArray() {
		return t.Width.Bytes()
	}
	return t.Size() * t.Elem.Bytes()
}

func (t SymType) String() string {
	if !t.IsArray() {
		return t.Width.String()
	}
	s := t.Elem.String()
	for _, d := range t.Dims {
		if d == -1 {
			s += "[]"
		} else {
			s += fmt.Sprintf("[%d]", d)
		}
	}
	return s
}

// Equal reports structural equality of two SymTypes, ignoring IsConst.
func (t SymType) Equal(o SymType) bool {
	if t.Width != o.Width || len(t.Dims) != len(o.Dims) {
		return false
	}
	for i1 := range t.Dims {
		if t.Dims[i1] != o.Dims[i1] {
			return false
		}
	}
	if t.Elem == nil != (o.Elem == nil) {
		return false
	}
	if t.Elem != nil {
		return t.Elem.Equal(*o.Elem)
	}
	return true
}
