package types

import "testing"

func TestPromoteFloatDominatesInt(t *testing.T) {
	if got := Promote(I32, Float); got != Float {
		t.Errorf("Promote(I32, Float) = %v, want Float", got)
	}
	if got := Promote(I1, I64); got != I64 {
		t.Errorf("Promote(I1, I64) = %v, want I64", got)
	}
}

func TestWidthBytes(t *testing.T) {
	cases := map[Width]int{I1: 1, I8: 1, I32: 4, Float: 4, I64: 8, Void: 0}
	for w, want := range cases {
		if got := w.Bytes(); got != want {
			t.Errorf("%v.Bytes() = %d, want %d", w, got, want)
		}
	}
}

func TestArraySizeIgnoresPointerDecayedLeadingDim(t *testing.T) {
	elem := Scalar(I32)
	arr := Array(elem, []int{-1, 4, 5})
	if got := arr.Size(); got != 20 {
		t.Errorf("Size() = %d, want 20 (4*5, leading -1 ignored)", got)
	}
	if !arr.PointerDecayed() {
		t.Errorf("PointerDecayed() = false, want true")
	}
}

func TestArrayBytesMultipliesElementWidth(t *testing.T) {
	arr := Array(Scalar(I64), []int{3})
	if got := arr.Bytes(); got != 24 {
		t.Errorf("Bytes() = %d, want 24 (3 elements * 8 bytes)", got)
	}
}

func TestElementTypeDropsOneDimension(t *testing.T) {
	arr := Array(Scalar(I32), []int{2, 3})
	elem := arr.ElementType()
	if !elem.IsArray() || len(elem.Dims) != 1 || elem.Dims[0] != 3 {
		t.Errorf("ElementType() = %+v, want a 1-D array of extent 3", elem)
	}
}

func TestSymTypeEqualIgnoresConst(t *testing.T) {
	a := Scalar(I32)
	b := Scalar(I32)
	b.IsConst = true
	if !a.Equal(b) {
		t.Errorf("Equal() = false for types differing only in IsConst")
	}
}

func TestSymTypeEqualDetectsDimensionMismatch(t *testing.T) {
	a := Array(Scalar(I32), []int{2, 3})
	b := Array(Scalar(I32), []int{2, 4})
	if a.Equal(b) {
		t.Errorf("Equal() = true for arrays with different extents")
	}
}

func TestArrayPanicsOnVoidElement(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Errorf("Array with a Void element: want panic, got none")
		}
	}()
	Array(Scalar(Void), []int{2})
}
