package ir

import (
	"github.com/pkg/errors"

	"sysyrv/internal/ast"
	"sysyrv/internal/types"
)

// lowerExpr lowers e, returning its type and operand string. Per spec.md
// §4.2, when an expression's operands are both constant the operation is
// folded and no instruction is emitted; the returned operand is then the
// folded literal's lexeme.
func (l *Lowerer) lowerExpr(e ast.Expr) (types.SymType, string, error) {
	switch x := e.(type) {
	case *ast.IntLit:
		v, err := types.ParseIntLiteral(x.Lexeme)
		if err != nil {
			return types.SymType{}, "", errors.Errorf("line %d: %s", x.Line, err)
		}
		return types.Scalar(types.I32), v.Lexeme, nil

	case *ast.FloatLit:
		v, err := types.ParseFloatLiteral(x.Lexeme)
		if err != nil {
			return types.SymType{}, "", errors.Errorf("line %d: %s", x.Line, err)
		}
		return types.Scalar(types.Float), v.Lexeme, nil

	case *ast.IdentExpr:
		sym, ok := l.scope.Lookup(x.Name)
		if !ok {
			return types.SymType{}, "", errors.Errorf("line %d: undefined %q", x.Line, x.Name)
		}
		if sym.Value.Kind == types.ValInt || sym.Value.Kind == types.ValFloat {
			return sym.Type, sym.Value.Lexeme, nil
		}
		if sym.Type.IsArray() {
			// An array used as a value decays to a pointer (only legal as a
			// call argument); a decayed parameter already holds one.
			return l.decayArray(sym)
		}
		dst := l.scope.FreshTemp()
		l.fn.Current().CreateLoad(dst, sym.Type.Width, sym.Label)
		return sym.Type, dst, nil

	case *ast.IndexExpr:
		ptr, t, err := l.lowerIndex(x)
		if err != nil {
			return types.SymType{}, "", err
		}
		if t.IsArray() {
			// Partial indexing yields a decayed sub-array pointer, not a
			// loadable scalar.
			return t, ptr, nil
		}
		dst := l.scope.FreshTemp()
		l.fn.Current().CreateLoad(dst, t.Width, ptr)
		return t, dst, nil

	case *ast.CallExpr:
		return l.lowerCall(x)

	case *ast.UnaryExpr:
		return l.lowerUnary(x)

	case *ast.BinaryExpr:
		return l.lowerBinary(x)

	default:
		return types.SymType{}, "", errors.Errorf("lowerExpr: unhandled node %T", e)
	}
}

// lowerExprAs lowers e and converts the result to width want via
// type_promote, matching the operand widening spec.md §4.2 performs before
// storing into a typed destination.
func (l *Lowerer) lowerExprAs(e ast.Expr, want types.Width) (types.SymType, string, error) {
	t, val, err := l.lowerExpr(e)
	if err != nil {
		return types.SymType{}, "", err
	}
	val = l.convert(t.Width, want, val)
	return types.Scalar(want), val, nil
}

// convert emits (if needed) a conversion of val from "from" to "to",
// returning the resulting operand name. Constant operands are converted in
// place without emitting an instruction.
func (l *Lowerer) convert(from, to types.Width, val string) string {
	if from == to {
		return val
	}
	if isLiteral(val) {
		return convertLiteral(from, to, val)
	}
	dst := l.scope.FreshTemp()
	switch {
	case to == types.Float:
		l.fn.Current().CreateSitofp(dst, val)
	case from == types.Float:
		l.fn.Current().CreateFptosi(dst, val)
	case from == types.I1:
		l.fn.Current().CreateZext(dst, val)
	default:
		return val
	}
	return dst
}

func isLiteral(s string) bool {
	if s == "" {
		return false
	}
	return s[0] != '%' && s[0] != '@'
}

func convertLiteral(from, to types.Width, val string) string {
	if from == to {
		return val
	}
	var sv types.SymVal
	if from == types.Float {
		sv = types.SymVal{Kind: types.ValFloat, Lexeme: val}
	} else {
		sv = types.SymVal{Kind: types.ValInt, Lexeme: val}
	}
	return coerceConst(sv, to).Lexeme
}

func (l *Lowerer) lowerUnary(x *ast.UnaryExpr) (types.SymType, string, error) {
	t, val, err := l.lowerExpr(x.X)
	if err != nil {
		return types.SymType{}, "", err
	}
	if isLiteral(val) {
		sv := literalToSymVal(t.Width, val)
		folded, err := FoldUnary(x.Op, sv)
		if err != nil {
			return types.SymType{}, "", errors.Errorf("line %d: %s", x.Line, err)
		}
		rt := t.Width
		if x.Op == ast.Not {
			rt = types.I1
		}
		return types.Scalar(rt), folded.Lexeme, nil
	}

	dst := l.scope.FreshTemp()
	switch x.Op {
	case ast.Pos:
		return t, val, nil
	case ast.Neg:
		zero := "0"
		if t.Width == types.Float {
			zero = "0x0000000000000000"
			l.fn.Current().CreateBinOp(OpSub, dst, zero, val, types.Float)
		} else {
			l.fn.Current().CreateBinOp(OpSub, dst, zero, val, t.Width)
		}
		return t, dst, nil
	case ast.Not:
		if t.Width == types.Float {
			l.fn.Current().CreateFCmp(dst, CondEq, val, "0x0000000000000000")
		} else {
			l.fn.Current().CreateICmp(dst, CondEq, val, "0")
		}
		return types.Scalar(types.I1), dst, nil
	default:
		return types.SymType{}, "", errors.Errorf("line %d: unhandled unary operator", x.Line)
	}
}

func literalToSymVal(w types.Width, lexeme string) types.SymVal {
	if w == types.Float {
		return types.SymVal{Kind: types.ValFloat, Lexeme: lexeme}
	}
	return types.SymVal{Kind: types.ValInt, Lexeme: lexeme}
}

func (l *Lowerer) lowerBinary(x *ast.BinaryExpr) (types.SymType, string, error) {
	// Short-circuit operators split into blocks and must not eagerly
	// evaluate the right-hand side.
	if x.Op == ast.LogAnd || x.Op == ast.LogOr {
		return l.lowerShortCircuit(x)
	}

	xt, xv, err := l.lowerExpr(x.X)
	if err != nil {
		return types.SymType{}, "", err
	}
	yt, yv, err := l.lowerExpr(x.Y)
	if err != nil {
		return types.SymType{}, "", err
	}

	if isLiteral(xv) && isLiteral(yv) {
		av := literalToSymVal(xt.Width, xv)
		bv := literalToSymVal(yt.Width, yv)
		folded, err := FoldBinary(x.Op, av, bv)
		if err != nil {
			return types.SymType{}, "", errors.Errorf("line %d: %s", x.Line, err)
		}
		rt := types.Promote(xt.Width, yt.Width)
		if isRelational(x.Op) {
			rt = types.I1
		}
		return types.Scalar(rt), folded.Lexeme, nil
	}

	pt := types.Promote(xt.Width, yt.Width)
	xv = l.convert(xt.Width, pt, xv)
	yv = l.convert(yt.Width, pt, yv)

	dst := l.scope.FreshTemp()
	switch x.Op {
	case ast.Add:
		l.fn.Current().CreateBinOp(OpAdd, dst, xv, yv, pt)
		return types.Scalar(pt), dst, nil
	case ast.Sub:
		l.fn.Current().CreateBinOp(OpSub, dst, xv, yv, pt)
		return types.Scalar(pt), dst, nil
	case ast.Mul:
		l.fn.Current().CreateBinOp(OpMul, dst, xv, yv, pt)
		return types.Scalar(pt), dst, nil
	case ast.Div:
		l.fn.Current().CreateBinOp(OpDiv, dst, xv, yv, pt)
		return types.Scalar(pt), dst, nil
	case ast.Rem:
		l.fn.Current().CreateBinOp(OpRem, dst, xv, yv, pt)
		return types.Scalar(pt), dst, nil
	case ast.Eq, ast.Neq, ast.Lt, ast.Le, ast.Gt, ast.Ge:
		cond := relCond(x.Op)
		if pt == types.Float {
			l.fn.Current().CreateFCmp(dst, cond, xv, yv)
		} else {
			l.fn.Current().CreateICmp(dst, cond, xv, yv)
		}
		return types.Scalar(types.I1), dst, nil
	default:
		return types.SymType{}, "", errors.Errorf("line %d: unhandled binary operator", x.Line)
	}
}

func isRelational(op ast.BinOp) bool {
	switch op {
	case ast.Eq, ast.Neq, ast.Lt, ast.Le, ast.Gt, ast.Ge:
		return true
	default:
		return false
	}
}

func relCond(op ast.BinOp) Cond {
	switch op {
	case ast.Eq:
		return CondEq
	case ast.Neq:
		return CondNe
	case ast.Lt:
		return CondLt
	case ast.Le:
		return CondLe
	case ast.Gt:
		return CondGt
	case ast.Ge:
		return CondGe
	default:
		return CondEq
	}
}

func (l *Lowerer) lowerCall(x *ast.CallExpr) (types.SymType, string, error) {
	sym, ok := l.scope.LookupFunction(x.Callee)
	if !ok {
		return types.SymType{}, "", errors.Errorf("line %d: undefined %q", x.Line, x.Callee)
	}
	if len(x.Args) != len(sym.Value.ParamTypes) {
		return types.SymType{}, "", errors.Errorf("line %d: %q called with %d arguments, expected %d", x.Line, x.Callee, len(x.Args), len(sym.Value.ParamTypes))
	}
	args := make([]string, len(x.Args))
	argTypes := make([]types.Width, len(x.Args))
	for i, a := range x.Args {
		at, val, err := l.lowerExpr(a)
		if err != nil {
			return types.SymType{}, "", err
		}
		if at.IsArray() {
			// Decayed array argument: an address, passed at pointer width.
			args[i] = val
			argTypes[i] = types.I64
			continue
		}
		args[i] = l.convert(at.Width, sym.Value.ParamTypes[i], val)
		argTypes[i] = sym.Value.ParamTypes[i]
	}
	rt := sym.Value.ReturnType
	var dst string
	if rt != types.Void {
		dst = l.scope.FreshTemp()
	}
	l.fn.Current().CreateCall(dst, rt, x.Callee, args, argTypes)
	return types.Scalar(rt), dst, nil
}

// constEval attempts to fully evaluate e at compile time, returning
// (value, true) on success or (_, false) if e is not a constant
// expression (e.g. it references a non-const variable or a call).
func (l *Lowerer) constEval(e ast.Expr) (types.SymVal, bool, error) {
	switch x := e.(type) {
	case *ast.IntLit:
		v, err := types.ParseIntLiteral(x.Lexeme)
		return v, err == nil, err
	case *ast.FloatLit:
		v, err := types.ParseFloatLiteral(x.Lexeme)
		return v, err == nil, err
	case *ast.IdentExpr:
		sym, ok := l.scope.Lookup(x.Name)
		if !ok || (sym.Value.Kind != types.ValInt && sym.Value.Kind != types.ValFloat) {
			return types.SymVal{}, false, nil
		}
		return sym.Value, true, nil
	case *ast.UnaryExpr:
		v, ok, err := l.constEval(x.X)
		if err != nil || !ok {
			return types.SymVal{}, ok, err
		}
		folded, err := FoldUnary(x.Op, v)
		return folded, err == nil, err
	case *ast.BinaryExpr:
		av, ok, err := l.constEval(x.X)
		if err != nil || !ok {
			return types.SymVal{}, ok, err
		}
		bv, ok, err := l.constEval(x.Y)
		if err != nil || !ok {
			return types.SymVal{}, ok, err
		}
		folded, err := FoldBinary(x.Op, av, bv)
		return folded, err == nil, err
	default:
		return types.SymVal{}, false, nil
	}
}
