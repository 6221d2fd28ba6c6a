package ir

import (
	"github.com/pkg/errors"

	"sysyrv/internal/ast"
	"sysyrv/internal/types"
)

// lowerLValue lowers an assignment target to a pointer operand and its
// scalar width.
func (l *Lowerer) lowerLValue(e ast.Expr) (string, types.Width, error) {
	switch x := e.(type) {
	case *ast.IdentExpr:
		sym, ok := l.scope.Lookup(x.Name)
		if !ok {
			return "", 0, errors.Errorf("line %d: undefined %q", x.Line, x.Name)
		}
		return sym.Label, sym.Type.Width, nil
	case *ast.IndexExpr:
		ptr, t, err := l.lowerIndex(x)
		if err != nil {
			return "", 0, err
		}
		return ptr, t.Width, nil
	default:
		return "", 0, errors.Errorf("lowerLValue: unhandled node %T", e)
	}
}

// lowerIndex implements spec.md §4.2 "LValue access": walks idx[] against
// the symbol's declared dims, loading through a pointer-decayed leading dim
// or emitting a getelementptr otherwise, and producing a pointer-decayed
// sub-array reference if fewer indices were given than dims.
func (l *Lowerer) lowerIndex(x *ast.IndexExpr) (string, types.SymType, error) {
	sym, ok := l.scope.Lookup(x.Base)
	if !ok {
		return "", types.SymType{}, errors.Errorf("line %d: undefined %q", x.Line, x.Base)
	}
	if !sym.Type.IsArray() {
		return "", types.SymType{}, errors.Errorf("line %d: index applied to non-array %q", x.Line, x.Base)
	}

	base := sym.Label
	cur := sym.Type
	dims := append([]int{}, cur.Dims...)

	idxVals := make([]string, len(x.Indices))
	for i, ie := range x.Indices {
		_, v, err := l.lowerExprAs(ie, types.I32)
		if err != nil {
			return "", types.SymType{}, err
		}
		idxVals[i] = v
	}

	subType := func(rest []int) types.SymType {
		if len(rest) == 0 {
			return types.Scalar(cur.Elem.Width)
		}
		return types.Array(*cur.Elem, rest)
	}

	for _, iv := range idxVals {
		dst := l.scope.FreshTemp()
		rest := dims[1:]
		if dims[0] == -1 {
			// Pointer-decayed leading dim: load the pointer, then index it
			// with plain pointer arithmetic over the remaining row type.
			loaded := l.scope.FreshTemp()
			l.fn.Current().CreateLoad(loaded, types.I64, base)
			l.fn.Current().CreateGEP(dst, subType(rest), loaded, []string{iv}, rest)
		} else {
			l.fn.Current().CreateGEP(dst, subType(rest), base, []string{"0", iv}, rest)
		}
		base = dst
		dims = rest
	}

	if len(idxVals) < len(cur.Dims) {
		// Fewer indices than dims: produce a pointer-decayed sub-array
		// reference via a trailing [0,0] GEP.
		remaining := append([]int{-1}, dims[1:]...)
		elemType := types.Array(*cur.Elem, remaining)
		dst := l.scope.FreshTemp()
		l.fn.Current().CreateGEP(dst, elemType, base, []string{"0", "0"}, remaining)
		return dst, elemType, nil
	}

	return base, types.Scalar(cur.Elem.Width), nil
}

// declareMemset records the external memset declaration the first time a
// local array declaration synthesizes a call to it.
func (l *Lowerer) declareMemset() {
	if l.declaredMemset {
		return
	}
	l.declaredMemset = true
	l.prog.AddGlobal(&Global{
		Kind:       GlobalExternFunc,
		Name:       "@memset",
		ParamTypes: []types.Width{types.I64, types.I32, types.I64},
	})
}

// decayArray produces the pointer an array symbol decays to when used as a
// value (a call argument): a decayed parameter's pointer is reloaded from
// its slot, a concrete array decays through a [0,0] GEP.
func (l *Lowerer) decayArray(sym *Symbol) (types.SymType, string, error) {
	if sym.Type.PointerDecayed() {
		dst := l.scope.FreshTemp()
		l.fn.Current().CreateLoad(dst, types.I64, sym.Label)
		return sym.Type, dst, nil
	}
	remaining := append([]int{-1}, sym.Type.Dims[1:]...)
	elemType := types.Array(*sym.Type.Elem, remaining)
	dst := l.scope.FreshTemp()
	l.fn.Current().CreateGEP(dst, elemType, sym.Label, []string{"0", "0"}, remaining)
	return elemType, dst, nil
}

// ---------------------------------------------------------------------
// Global declarations
// ---------------------------------------------------------------------

func (l *Lowerer) lowerGlobalDecl(d *ast.Decl) error {
	for _, def := range d.Defs {
		if err := l.lowerGlobalDef(d, def); err != nil {
			return err
		}
	}
	return nil
}

func (l *Lowerer) lowerGlobalDef(d *ast.Decl, def ast.Def) error {
	if def.Dims != nil {
		return l.lowerGlobalArray(d, def)
	}

	var cv types.SymVal
	if def.Init != nil {
		init, ok := def.Init.(*ast.ScalarInit)
		if !ok {
			return errors.Errorf("line %d: wrong initializer format for scalar %q", d.Line, def.Name)
		}
		v, ok, err := l.constEval(init.Value)
		if err != nil {
			return err
		}
		if !ok {
			return errors.Errorf("line %d: global initializer for %q is not a constant expression", d.Line, def.Name)
		}
		cv = coerceConst(v, d.Type)
	} else {
		cv = coerceConst(types.IntVal(0), d.Type)
	}

	label, ok := l.scope.Declare(def.Name, types.Scalar(d.Type), cv, true)
	if !ok {
		return errors.Errorf("line %d: %q has been defined", d.Line, def.Name)
	}
	l.prog.AddGlobal(&Global{Kind: GlobalScalar, Name: label, Type: types.Scalar(d.Type), IsConst: d.IsConst, Scalar: cv})
	return nil
}

func (l *Lowerer) lowerGlobalArray(d *ast.Decl, def ast.Def) error {
	st := types.Array(types.Scalar(d.Type), def.Dims)
	label, ok := l.scope.Declare(def.Name, st, types.SymVal{}, true)
	if !ok {
		return errors.Errorf("line %d: %q has been defined", d.Line, def.Name)
	}
	n := st.Size()
	elems := make([]types.SymVal, n)
	for i := range elems {
		elems[i] = coerceConst(types.IntVal(0), d.Type)
	}
	if def.Init != nil {
		if err := l.flattenInitializer(def.Init, d.Type, def.Dims, elems, 0, true); err != nil {
			return err
		}
	}
	l.prog.AddGlobal(&Global{Kind: GlobalArray, Name: label, Type: st, IsConst: d.IsConst, Elems: elems})
	return nil
}

// flattenInitializer implements spec.md §4.2 "Array declarations":
// iterates (possibly nested) initializers and writes scalars at the
// correct flattened offset, enforcing that a nested brace-list only begins
// on a multiple of the sub-array size (the product of every dimension after
// the first) and advancing by one whole sub-array per nested list. For
// arrays of three or more dimensions, a nested list aligned only to the
// innermost dimension is rejected.
func (l *Lowerer) flattenInitializer(init ast.Init, elemType types.Width, dims []int, out []types.SymVal, offset int, constant bool) error {
	switch in := init.(type) {
	case *ast.ScalarInit:
		if offset >= len(out) {
			return errors.New("wrong initializer format: too many initializers")
		}
		if constant {
			v, ok, err := l.constEval(in.Value)
			if err != nil {
				return err
			}
			if !ok {
				return errors.New("global array initializer element is not a constant expression")
			}
			out[offset] = coerceConst(v, elemType)
		}
		return nil
	case *ast.ListInit:
		stride := 1
		if len(dims) > 1 {
			for _, d := range dims[1:] {
				stride *= d
			}
		}
		cur := offset
		for _, e := range in.Elems {
			if _, ok := e.(*ast.ListInit); ok {
				if stride != 0 && (cur-offset)%stride != 0 {
					return errors.New("wrong initializer format")
				}
				if err := l.flattenInitializer(e, elemType, dims[1:], out, cur, constant); err != nil {
					return err
				}
				cur += stride
			} else {
				if err := l.flattenInitializer(e, elemType, dims, out, cur, constant); err != nil {
					return err
				}
				cur++
			}
		}
		return nil
	default:
		return errors.Errorf("flattenInitializer: unhandled node %T", init)
	}
}

// ---------------------------------------------------------------------
// Local array declarations
// ---------------------------------------------------------------------

// lowerArrayLocal implements spec.md §4.2 "Array declarations" for a local:
// alloca the array, bitcast to i8*, call memset to zero it, then store each
// flattened initializer scalar at its offset.
func (l *Lowerer) lowerArrayLocal(d *ast.Decl, def ast.Def) error {
	st := types.Array(types.Scalar(d.Type), def.Dims)
	label, ok := l.scope.Declare(def.Name, st, types.SymVal{}, false)
	if !ok {
		return errors.Errorf("line %d: %q has been defined", d.Line, def.Name)
	}
	l.fn.AddLocal(label, st)

	base := l.scope.FreshTemp()
	l.fn.Current().CreateBitcast(base, label)
	totalBytes := st.Bytes()
	l.declareMemset()
	l.fn.Current().CreateCall("", types.Void, "memset", []string{base, "0", itoa(totalBytes)}, []types.Width{types.I64, types.I32, types.I64})

	if def.Init == nil {
		return nil
	}
	n := st.Size()
	elemWidth := d.Type
	elemSize := types.Scalar(elemWidth).Bytes()

	var stores []struct {
		offset int
		val    string
	}
	var walk func(init ast.Init, dims []int, offset int) error
	walk = func(init ast.Init, dims []int, offset int) error {
		switch in := init.(type) {
		case *ast.ScalarInit:
			if offset >= n {
				return errors.New("wrong initializer format: too many initializers")
			}
			_, v, err := l.lowerExprAs(in.Value, elemWidth)
			if err != nil {
				return err
			}
			stores = append(stores, struct {
				offset int
				val    string
			}{offset, v})
			return nil
		case *ast.ListInit:
			stride := 1
			if len(dims) > 1 {
				for _, dd := range dims[1:] {
					stride *= dd
				}
			}
			cur := offset
			for _, e := range in.Elems {
				if _, ok := e.(*ast.ListInit); ok {
					if stride != 0 && (cur-offset)%stride != 0 {
						return errors.New("wrong initializer format")
					}
					if err := walk(e, dims[1:], cur); err != nil {
						return err
					}
					cur += stride
				} else {
					if err := walk(e, dims, cur); err != nil {
						return err
					}
					cur++
				}
			}
			return nil
		default:
			return errors.Errorf("lowerArrayLocal: unhandled initializer %T", init)
		}
	}
	if err := walk(def.Init, def.Dims, 0); err != nil {
		return err
	}

	for _, s := range stores {
		ptr := l.scope.FreshTemp()
		l.fn.Current().CreateGEP(ptr, types.Scalar(types.I8), base, []string{itoa(s.offset * elemSize)}, nil)
		l.fn.Current().CreateStore(elemWidth, s.val, ptr)
	}
	return nil
}
