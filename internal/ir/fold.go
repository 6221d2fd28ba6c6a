package ir

import (
	"math"

	"github.com/pkg/errors"

	"sysyrv/internal/ast"
	"sysyrv/internal/types"
)

// FoldBinary implements spec.md §4.2 "Constant folding rules" for a binary
// operator applied to two constant SymVals. Integer ops use two's-
// complement i32 arithmetic with C semantics (division rounds toward zero,
// % takes the sign of the dividend). If either operand has float width,
// both are parsed into f64, operated on, then re-encoded as IEEE-754 double
// hex. Comparison and logical ops yield i1, rendered as 0/1. Division by
// zero is a fatal lowering error.
func FoldBinary(op ast.BinOp, a, b types.SymVal) (types.SymVal, error) {
	isFloat := a.Kind == types.ValFloat || b.Kind == types.ValFloat
	var fa, fb float64
	if isFloat {
		fa, fb = a.AsFloat64(), b.AsFloat64()
		if a.Kind == types.ValInt {
			fa = float64(a.AsInt32())
		}
		if b.Kind == types.ValInt {
			fb = float64(b.AsInt32())
		}
	}
	switch op {
	case ast.Add, ast.Sub, ast.Mul, ast.Div, ast.Rem:
		if isFloat {
			return foldFloatArith(op, fa, fb)
		}
		return foldIntArith(op, a.AsInt32(), b.AsInt32())
	case ast.Eq, ast.Neq, ast.Lt, ast.Le, ast.Gt, ast.Ge:
		var cmp int
		if isFloat {
			cmp = floatCompare(fa, fb)
		} else {
			cmp = intCompare(a.AsInt32(), b.AsInt32())
		}
		return boolVal(relHolds(op, cmp)), nil
	case ast.LogAnd:
		return boolVal(truthy(a) && truthy(b)), nil
	case ast.LogOr:
		return boolVal(truthy(a) || truthy(b)), nil
	default:
		return types.SymVal{}, errors.Errorf("FoldBinary: unhandled operator %v", op)
	}
}

func truthy(v types.SymVal) bool {
	if v.Kind == types.ValFloat {
		return v.AsFloat64() != 0
	}
	return v.AsInt32() != 0
}

func boolVal(b bool) types.SymVal {
	if b {
		return types.IntVal(1)
	}
	return types.IntVal(0)
}

func intCompare(a, b int32) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func floatCompare(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func relHolds(op ast.BinOp, cmp int) bool {
	switch op {
	case ast.Eq:
		return cmp == 0
	case ast.Neq:
		return cmp != 0
	case ast.Lt:
		return cmp < 0
	case ast.Le:
		return cmp <= 0
	case ast.Gt:
		return cmp > 0
	case ast.Ge:
		return cmp >= 0
	default:
		return false
	}
}

func foldIntArith(op ast.BinOp, a, b int32) (types.SymVal, error) {
	switch op {
	case ast.Add:
		return types.IntVal(a + b), nil
	case ast.Sub:
		return types.IntVal(a - b), nil
	case ast.Mul:
		return types.IntVal(a * b), nil
	case ast.Div:
		if b == 0 {
			return types.SymVal{}, errors.New("constant division by zero")
		}
		return types.IntVal(cDivTruncToZero(a, b)), nil
	case ast.Rem:
		if b == 0 {
			return types.SymVal{}, errors.New("constant division by zero")
		}
		return types.IntVal(a - cDivTruncToZero(a, b)*b), nil
	default:
		return types.SymVal{}, errors.Errorf("foldIntArith: unhandled operator %v", op)
	}
}

// cDivTruncToZero divides a by b rounding toward zero, matching C integer
// division (Go's / already does this for signed integers, kept explicit to
// document the requirement from spec.md §4.2).
func cDivTruncToZero(a, b int32) int32 { return a / b }

func foldFloatArith(op ast.BinOp, a, b float64) (types.SymVal, error) {
	switch op {
	case ast.Add:
		return types.FloatVal(a + b), nil
	case ast.Sub:
		return types.FloatVal(a - b), nil
	case ast.Mul:
		return types.FloatVal(a * b), nil
	case ast.Div:
		if b == 0 {
			return types.SymVal{}, errors.New("constant division by zero")
		}
		return types.FloatVal(a / b), nil
	case ast.Rem:
		if b == 0 {
			return types.SymVal{}, errors.New("constant division by zero")
		}
		return types.FloatVal(math.Mod(a, b)), nil
	default:
		return types.SymVal{}, errors.Errorf("foldFloatArith: unhandled operator %v", op)
	}
}

// FoldUnary implements constant folding for unary operators.
func FoldUnary(op ast.UnaryOp, x types.SymVal) (types.SymVal, error) {
	switch op {
	case ast.Pos:
		return x, nil
	case ast.Neg:
		if x.Kind == types.ValFloat {
			return types.FloatVal(-x.AsFloat64()), nil
		}
		return types.IntVal(-x.AsInt32()), nil
	case ast.Not:
		return boolVal(!truthy(x)), nil
	default:
		return types.SymVal{}, errors.Errorf("FoldUnary: unhandled operator %v", op)
	}
}
