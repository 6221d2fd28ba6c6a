package ir

import (
	"testing"

	"sysyrv/internal/ast"
	"sysyrv/internal/types"
)

func TestFoldIntDivisionRoundsTowardZero(t *testing.T) {
	cases := []struct {
		a, b int32
		div  int32
		rem  int32
	}{
		{7, 2, 3, 1},
		{-7, 2, -3, -1}, // % takes the sign of the dividend
		{7, -2, -3, 1},
		{-7, -2, 3, -1},
	}
	for _, c := range cases {
		d, err := FoldBinary(ast.Div, types.IntVal(c.a), types.IntVal(c.b))
		if err != nil {
			t.Fatalf("FoldBinary div %d/%d: %v", c.a, c.b, err)
		}
		if got := d.AsInt32(); got != c.div {
			t.Errorf("%d / %d = %d, want %d", c.a, c.b, got, c.div)
		}
		r, err := FoldBinary(ast.Rem, types.IntVal(c.a), types.IntVal(c.b))
		if err != nil {
			t.Fatalf("FoldBinary rem %d%%%d: %v", c.a, c.b, err)
		}
		if got := r.AsInt32(); got != c.rem {
			t.Errorf("%d %% %d = %d, want %d", c.a, c.b, got, c.rem)
		}
	}
}

func TestFoldIntWrapsAtI32(t *testing.T) {
	v, err := FoldBinary(ast.Add, types.IntVal(2147483647), types.IntVal(1))
	if err != nil {
		t.Fatalf("FoldBinary: %v", err)
	}
	if got := v.AsInt32(); got != -2147483648 {
		t.Errorf("INT_MAX + 1 = %d, want two's-complement wraparound", got)
	}
}

func TestFoldDivisionByZeroFails(t *testing.T) {
	if _, err := FoldBinary(ast.Div, types.IntVal(1), types.IntVal(0)); err == nil {
		t.Errorf("integer division by zero folded without error")
	}
	if _, err := FoldBinary(ast.Rem, types.IntVal(1), types.IntVal(0)); err == nil {
		t.Errorf("integer remainder by zero folded without error")
	}
	if _, err := FoldBinary(ast.Div, types.FloatVal(1), types.FloatVal(0)); err == nil {
		t.Errorf("float division by zero folded without error")
	}
}

func TestFoldMixedOperandsPromoteToFloat(t *testing.T) {
	v, err := FoldBinary(ast.Add, types.IntVal(1), types.FloatVal(2.5))
	if err != nil {
		t.Fatalf("FoldBinary: %v", err)
	}
	if v.Kind != types.ValFloat {
		t.Fatalf("int + float folded to %v, want a float", v.Kind)
	}
	if got := v.AsFloat64(); got != 3.5 {
		t.Errorf("1 + 2.5 = %v, want 3.5", got)
	}
}

func TestFoldComparisonsYieldZeroOne(t *testing.T) {
	cases := []struct {
		op   ast.BinOp
		a, b int32
		want int32
	}{
		{ast.Lt, 1, 2, 1},
		{ast.Lt, 2, 1, 0},
		{ast.Le, 2, 2, 1},
		{ast.Eq, 3, 3, 1},
		{ast.Neq, 3, 3, 0},
		{ast.Ge, 1, 2, 0},
		{ast.Gt, 2, 1, 1},
	}
	for _, c := range cases {
		v, err := FoldBinary(c.op, types.IntVal(c.a), types.IntVal(c.b))
		if err != nil {
			t.Fatalf("FoldBinary: %v", err)
		}
		if got := v.AsInt32(); got != c.want {
			t.Errorf("op %v (%d, %d) = %d, want %d", c.op, c.a, c.b, got, c.want)
		}
	}
}

func TestFoldLogicalOps(t *testing.T) {
	and, _ := FoldBinary(ast.LogAnd, types.IntVal(2), types.IntVal(0))
	if and.AsInt32() != 0 {
		t.Errorf("2 && 0 = %d, want 0", and.AsInt32())
	}
	or, _ := FoldBinary(ast.LogOr, types.IntVal(0), types.FloatVal(0.5))
	if or.AsInt32() != 1 {
		t.Errorf("0 || 0.5 = %d, want 1", or.AsInt32())
	}
}

func TestFoldUnary(t *testing.T) {
	neg, err := FoldUnary(ast.Neg, types.IntVal(5))
	if err != nil || neg.AsInt32() != -5 {
		t.Errorf("-5 folded to %v (err %v)", neg.AsInt32(), err)
	}
	not, err := FoldUnary(ast.Not, types.FloatVal(0))
	if err != nil || not.AsInt32() != 1 {
		t.Errorf("!0.0 folded to %v (err %v)", not.AsInt32(), err)
	}
	pos, err := FoldUnary(ast.Pos, types.IntVal(9))
	if err != nil || pos.AsInt32() != 9 {
		t.Errorf("+9 folded to %v (err %v)", pos.AsInt32(), err)
	}
}

func TestFoldFloatReencodesThroughSingle(t *testing.T) {
	v, err := FoldBinary(ast.Mul, types.FloatVal(0.1), types.FloatVal(3))
	if err != nil {
		t.Fatalf("FoldBinary: %v", err)
	}
	want := float64(float32(float64(float32(0.1)) * 3))
	if got := v.AsFloat64(); got != want {
		t.Errorf("0.1 * 3 = %v, want the single-precision round-trip %v", got, want)
	}
}
