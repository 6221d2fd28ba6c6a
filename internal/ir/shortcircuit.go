package ir

import (
	"sysyrv/internal/ast"
	"sysyrv/internal/types"
)

// lowerShortCircuit implements spec.md §4.2 "Short-circuit logic" for &&
// and ||. Constant left operands short-circuit at lowering time without
// emitting any branch; otherwise three blocks are generated and the result
// is reconciled via a phi, or through the fixed replace_phi local.
func (l *Lowerer) lowerShortCircuit(x *ast.BinaryExpr) (types.SymType, string, error) {
	isAnd := x.Op == ast.LogAnd

	if av, ok, err := l.constEval(x.X); err != nil {
		return types.SymType{}, "", err
	} else if ok {
		truth := truthy(av)
		if isAnd && !truth {
			return types.Scalar(types.I1), "0", nil
		}
		if !isAnd && truth {
			return types.Scalar(types.I1), "1", nil
		}
		// a folds to true for && (result is b, widened to i1) or false for
		// || (same).
		bt, bv, err := l.lowerExpr(x.Y)
		if err != nil {
			return types.SymType{}, "", err
		}
		return types.Scalar(types.I1), l.toBool(bt, bv), nil
	}

	condA, err := l.lowerCondition(x.X)
	if err != nil {
		return types.SymType{}, "", err
	}

	var branchLabel, endLabel blockLabelKind
	if isAnd {
		branchLabel, endLabel = LabelAndTrue, LabelAndEnd
	} else {
		branchLabel, endLabel = LabelOrFalse, LabelOrEnd
	}
	trueLabel, err := l.scope.FreshBlockLabel(branchLabel)
	if err != nil {
		return types.SymType{}, "", err
	}
	mergeLabel, err := l.scope.FreshBlockLabel(endLabel)
	if err != nil {
		return types.SymType{}, "", err
	}

	shortCircuitBlock := l.fn.Current().Label
	shortCircuitVal := "0"
	if !isAnd {
		shortCircuitVal = "1"
	}

	// In phi-off mode the short-circuit edge's value must already sit in
	// replace_phi_0 before the branch is taken, since a store cannot follow
	// the block's terminator.
	if !l.opt.UsePhi {
		l.fn.Current().CreateStore(types.I1, shortCircuitVal, l.ensureReplacePhi())
	}

	if isAnd {
		if err := l.fn.Current().CreateCondBr(condA, trueLabel, mergeLabel); err != nil {
			return types.SymType{}, "", err
		}
	} else {
		if err := l.fn.Current().CreateCondBr(condA, mergeLabel, trueLabel); err != nil {
			return types.SymType{}, "", err
		}
	}

	depth := l.scope.LoopDepth()
	if _, err := l.fn.PushBlock(trueLabel, depth); err != nil {
		return types.SymType{}, "", err
	}
	bt, bv, err := l.lowerExpr(x.Y)
	if err != nil {
		return types.SymType{}, "", err
	}
	bBool := l.toBool(bt, bv)
	trueBlockLabel := l.fn.Current().Label
	if !l.opt.UsePhi {
		l.fn.Current().CreateStore(types.I1, bBool, l.ensureReplacePhi())
	}
	if err := l.fn.Current().CreateBr(mergeLabel); err != nil {
		return types.SymType{}, "", err
	}

	if _, err := l.fn.PushBlock(mergeLabel, depth); err != nil {
		return types.SymType{}, "", err
	}

	if l.opt.UsePhi {
		dst := l.scope.FreshTemp()
		l.fn.Current().CreatePhi(dst, types.I1, []PhiEdge{
			{Value: shortCircuitVal, Block: shortCircuitBlock},
			{Value: bBool, Block: trueBlockLabel},
		})
		return types.Scalar(types.I1), dst, nil
	}

	val := l.scope.FreshTemp()
	l.fn.Current().CreateLoad(val, types.I1, l.ensureReplacePhi())
	return types.Scalar(types.I1), val, nil
}

// ensureReplacePhi returns the fixed phi-replacement local, allocating it
// at function entry on first use (spec.md §9).
func (l *Lowerer) ensureReplacePhi() string {
	if l.replacePhi == "" {
		l.replacePhi = "%replace_phi_0"
		l.fn.AddLocal(l.replacePhi, types.Scalar(types.I1))
	}
	return l.replacePhi
}

// toBool widens a non-i1 value to i1 via icmp ne 0 / fcmp one 0.0.
func (l *Lowerer) toBool(t types.SymType, val string) string {
	if t.Width == types.I1 {
		return val
	}
	dst := l.scope.FreshTemp()
	if t.Width == types.Float {
		l.fn.Current().CreateFCmp(dst, CondNe, val, "0x0000000000000000")
	} else {
		l.fn.Current().CreateICmp(dst, CondNe, val, "0")
	}
	return dst
}
