package ir

import (
	"github.com/pkg/errors"

	"sysyrv/internal/ast"
	"sysyrv/internal/types"
)

func (l *Lowerer) lowerBlock(b *ast.BlockStmt) error {
	l.scope.PushScope(ScopeBlock)
	defer l.scope.PopScope()
	for _, st := range b.Stmts {
		if err := l.lowerStmt(st); err != nil {
			return err
		}
		// A block that already terminated (return/break/continue) still
		// has to accept (and ignore the reachability of) subsequent
		// statements syntactically; nothing further needs to run once the
		// current IR block has a terminator, since later statements open
		// their own fresh blocks via if/while, and plain statements after
		// an unconditional terminator are simply unreachable dead code
		// that the optimizer (§4.3) will remove.
		if l.fn.Current().Terminator() != nil {
			break
		}
	}
	return nil
}

func (l *Lowerer) lowerStmt(s ast.Stmt) error {
	switch st := s.(type) {
	case *ast.BlockStmt:
		return l.lowerBlock(st)
	case *ast.LocalDecl:
		return l.lowerLocalDecl(&st.Decl)
	case *ast.NullStmt:
		return nil
	case *ast.ExprStmt:
		_, _, err := l.lowerExpr(st.X)
		return err
	case *ast.AssignStmt:
		return l.lowerAssign(st)
	case *ast.IfStmt:
		return l.lowerIf(st)
	case *ast.WhileStmt:
		return l.lowerWhile(st)
	case *ast.BreakStmt:
		return l.lowerBreak(st)
	case *ast.ContinueStmt:
		return l.lowerContinue(st)
	case *ast.ReturnStmt:
		return l.lowerReturn(st)
	default:
		return errors.Errorf("lowerStmt: unhandled node %T", s)
	}
}

func (l *Lowerer) lowerAssign(st *ast.AssignStmt) error {
	ptr, t, err := l.lowerLValue(st.Target)
	if err != nil {
		return err
	}
	_, val, err := l.lowerExprAs(st.Value, t)
	if err != nil {
		return err
	}
	l.fn.Current().CreateStore(t, val, ptr)
	return nil
}

func (l *Lowerer) lowerIf(st *ast.IfStmt) error {
	condVal, err := l.lowerCondition(st.Cond)
	if err != nil {
		return err
	}
	thenLabel, err := l.scope.FreshBlockLabel(LabelIfThen)
	if err != nil {
		return err
	}
	endLabel, err := l.scope.FreshBlockLabel(LabelIfEnd)
	if err != nil {
		return err
	}
	elseLabel := endLabel
	hasElse := st.Else != nil
	if hasElse {
		elseLabel, err = l.scope.FreshBlockLabel(LabelIfElse)
		if err != nil {
			return err
		}
	}
	if err := l.fn.Current().CreateCondBr(condVal, thenLabel, elseLabel); err != nil {
		return err
	}

	depth := l.scope.LoopDepth()
	if _, err := l.fn.PushBlock(thenLabel, depth); err != nil {
		return err
	}
	l.scope.PushScope(ScopeIf)
	if err := l.lowerStmt(st.Then); err != nil {
		return err
	}
	l.scope.PopScope()
	if l.fn.Current().Terminator() == nil {
		if err := l.fn.Current().CreateBr(endLabel); err != nil {
			return err
		}
	}

	if hasElse {
		if _, err := l.fn.PushBlock(elseLabel, depth); err != nil {
			return err
		}
		l.scope.PushScope(ScopeIf)
		if err := l.lowerStmt(st.Else); err != nil {
			return err
		}
		l.scope.PopScope()
		if l.fn.Current().Terminator() == nil {
			if err := l.fn.Current().CreateBr(endLabel); err != nil {
				return err
			}
		}
	}

	_, err = l.fn.PushBlock(endLabel, depth)
	return err
}

func (l *Lowerer) lowerWhile(st *ast.WhileStmt) error {
	entryLabel, err := l.scope.FreshBlockLabel(LabelWhileEntry)
	if err != nil {
		return err
	}
	bodyLabel, err := l.scope.FreshBlockLabel(LabelWhileBody)
	if err != nil {
		return err
	}
	endLabel, err := l.scope.FreshBlockLabel(LabelWhileEnd)
	if err != nil {
		return err
	}

	if l.fn.Current().Terminator() == nil {
		if err := l.fn.Current().CreateBr(entryLabel); err != nil {
			return err
		}
	}
	depth := l.scope.LoopDepth() + 1
	if _, err := l.fn.PushBlock(entryLabel, depth); err != nil {
		return err
	}
	condVal, err := l.lowerCondition(st.Cond)
	if err != nil {
		return err
	}
	if err := l.fn.Current().CreateCondBr(condVal, bodyLabel, endLabel); err != nil {
		return err
	}

	if _, err := l.fn.PushBlock(bodyLabel, depth); err != nil {
		return err
	}
	l.scope.PushWhile(entryLabel, endLabel)
	if err := l.lowerStmt(st.Body); err != nil {
		return err
	}
	l.scope.PopScope()
	if l.fn.Current().Terminator() == nil {
		if err := l.fn.Current().CreateBr(entryLabel); err != nil {
			return err
		}
	}

	_, err = l.fn.PushBlock(endLabel, depth-1)
	return err
}

func (l *Lowerer) lowerBreak(st *ast.BreakStmt) error {
	end, err := l.scope.WhileEnd()
	if err != nil {
		return errors.Errorf("line %d: %s", st.Line, err)
	}
	if err := l.fn.Current().CreateBr(end); err != nil {
		return err
	}
	label, err := l.scope.FreshBlockLabel(LabelBreakThen)
	if err != nil {
		return err
	}
	_, err = l.fn.PushBlock(label, l.scope.LoopDepth())
	return err
}

func (l *Lowerer) lowerContinue(st *ast.ContinueStmt) error {
	entry, err := l.scope.WhileEntry()
	if err != nil {
		return errors.Errorf("line %d: %s", st.Line, err)
	}
	if err := l.fn.Current().CreateBr(entry); err != nil {
		return err
	}
	label, err := l.scope.FreshBlockLabel(LabelContinueThen)
	if err != nil {
		return err
	}
	_, err = l.fn.PushBlock(label, l.scope.LoopDepth())
	return err
}

func (l *Lowerer) lowerReturn(st *ast.ReturnStmt) error {
	rt, err := l.scope.CurrentFunctionReturnType()
	if err != nil {
		return errors.Errorf("line %d: %s", st.Line, err)
	}
	var val string
	if st.Value != nil {
		_, val, err = l.lowerExprAs(st.Value, rt)
		if err != nil {
			return err
		}
	}
	if err := l.fn.Current().CreateRet(rt, val); err != nil {
		return err
	}
	label, err := l.scope.FreshBlockLabel(LabelRetThen)
	if err != nil {
		return err
	}
	_, err = l.fn.PushBlock(label, l.scope.LoopDepth())
	return err
}

// lowerCondition evaluates cond and ensures the result is an i1 usable
// directly as a branch operand, converting non-i1 widths via icmp ne 0 /
// fcmp one 0.0 per spec.md §4.2 "Short-circuit logic".
func (l *Lowerer) lowerCondition(e ast.Expr) (string, error) {
	t, val, err := l.lowerExpr(e)
	if err != nil {
		return "", err
	}
	if t.Width == types.I1 {
		return val, nil
	}
	dst := l.scope.FreshTemp()
	if t.Width == types.Float {
		l.fn.Current().CreateFCmp(dst, CondNe, val, "0x0000000000000000")
	} else {
		l.fn.Current().CreateICmp(dst, CondNe, val, "0")
	}
	return dst, nil
}

func (l *Lowerer) lowerLocalDecl(d *ast.Decl) error {
	for _, def := range d.Defs {
		if err := l.lowerLocalDef(d, def); err != nil {
			return err
		}
	}
	return nil
}

func (l *Lowerer) lowerLocalDef(d *ast.Decl, def ast.Def) error {
	if def.Dims != nil {
		return l.lowerArrayLocal(d, def)
	}

	if d.IsConst {
		init, ok := def.Init.(*ast.ScalarInit)
		if !ok || init == nil {
			return errors.Errorf("line %d: const %q requires a scalar initializer", d.Line, def.Name)
		}
		cv, constOK, err := l.constEval(init.Value)
		if err != nil {
			return err
		}
		if !constOK {
			return errors.Errorf("line %d: const %q initializer is not a constant expression", d.Line, def.Name)
		}
		cv = coerceConst(cv, d.Type)
		if _, ok := l.scope.Declare(def.Name, types.Scalar(d.Type), cv, false); !ok {
			return errors.Errorf("line %d: %q has been defined", d.Line, def.Name)
		}
		return nil
	}

	label, ok := l.scope.Declare(def.Name, types.Scalar(d.Type), types.SymVal{}, false)
	if !ok {
		return errors.Errorf("line %d: %q has been defined", d.Line, def.Name)
	}
	l.fn.AddLocal(label, types.Scalar(d.Type))
	if def.Init != nil {
		init, ok := def.Init.(*ast.ScalarInit)
		if !ok {
			return errors.Errorf("line %d: wrong initializer format for scalar %q", d.Line, def.Name)
		}
		_, val, err := l.lowerExprAs(init.Value, d.Type)
		if err != nil {
			return err
		}
		l.fn.Current().CreateStore(d.Type, val, label)
	}
	return nil
}

func coerceConst(v types.SymVal, want types.Width) types.SymVal {
	if want == types.Float && v.Kind == types.ValInt {
		return types.FloatVal(float64(v.AsInt32()))
	}
	if want != types.Float && v.Kind == types.ValFloat {
		return types.IntVal(int32(v.AsFloat64()))
	}
	return v
}
