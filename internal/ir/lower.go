package ir

import (
	"strconv"

	"github.com/pkg/errors"

	"sysyrv/internal/ast"
	"sysyrv/internal/config"
	"sysyrv/internal/types"
)

// Lowerer drives the single recursive AST -> IR traversal described in
// spec.md §4.2. It owns the scope/label manager for the duration of
// lowering and is discarded afterwards (spec.md §3 "Ownership").
type Lowerer struct {
	scope *Scope
	prog  *Program
	fn    *Function
	opt   config.Options

	// replacePhi names the fixed i1 local used to reconcile control-flow
	// merges when opt.UsePhi is false (spec.md §9 "Phi vs load/store
	// switch"); allocated once per function, at entry, on first use.
	replacePhi string

	declaredMemset bool
}

// Lower runs the AST -> IR lowering pass over an entire translation unit,
// producing a Program. This is the single entry point other passes call.
func Lower(tu *ast.TranslationUnit, opt config.Options) (*Program, error) {
	l := &Lowerer{scope: NewScope(), prog: NewProgram(), opt: opt}
	for _, top := range tu.Decls {
		switch t := top.(type) {
		case *ast.Decl:
			if err := l.lowerGlobalDecl(t); err != nil {
				return nil, err
			}
		case *ast.FuncDef:
			if err := l.lowerFuncDef(t); err != nil {
				return nil, err
			}
		default:
			return nil, errors.Errorf("Lower: unhandled top-level node %T", top)
		}
	}
	return l.prog, nil
}

func (l *Lowerer) lowerFuncDef(fd *ast.FuncDef) error {
	params := make([]Param, len(fd.Params))
	paramTypes := make([]types.Width, len(fd.Params))
	for i, p := range fd.Params {
		params[i] = Param{Name: p.Name, Type: p.Type, IsArray: p.Dims != nil}
		paramTypes[i] = p.Type
	}
	if _, ok := l.scope.Declare(fd.Name, types.Scalar(fd.ReturnType), types.SymVal{
		Kind: types.ValFunc, ReturnType: fd.ReturnType, ParamTypes: paramTypes,
	}, true); !ok {
		return errors.Errorf("line %d: %q has been defined", fd.Line, fd.Name)
	}

	l.fn = NewFunction(fd.Name, fd.ReturnType, params)
	l.replacePhi = ""
	l.scope.PushFunction(fd.ReturnType)

	for i, p := range fd.Params {
		var dims []int
		if p.Dims != nil {
			dims = p.Dims
		}
		st := types.Scalar(p.Type)
		if dims != nil {
			st = types.Array(types.Scalar(p.Type), dims)
		}
		label, ok := l.scope.Declare(p.Name, st, types.SymVal{}, false)
		if !ok {
			return errors.Errorf("line %d: parameter %q has been defined", fd.Line, p.Name)
		}
		// Parameters arrive by value in an SSA register; materialize a
		// local slot so later code can take its address uniformly with
		// locals (needed for array parameters and &-able scalars alike).
		// An array parameter's value is its decayed pointer, stored and
		// reloaded at pointer width.
		l.fn.AddLocal(label, st)
		w := p.Type
		if dims != nil {
			w = types.I64
		}
		l.fn.Entry().CreateStore(w, "%arg"+itoa(i), label)
	}

	if err := l.lowerBlock(fd.Body); err != nil {
		return err
	}

	// Every function must end with a terminator; if control can still fall
	// off the end (a void function with no trailing return, or a narrow
	// reachability gap) synthesize a default return.
	if l.fn.Current().Terminator() == nil {
		if fd.ReturnType == types.Void {
			if err := l.fn.Current().CreateRet(types.Void, ""); err != nil {
				return err
			}
		} else {
			if err := l.fn.Current().CreateRet(fd.ReturnType, zeroOperand(fd.ReturnType)); err != nil {
				return err
			}
		}
	}

	l.scope.PopScope()
	l.prog.AddFunction(l.fn)
	l.fn = nil
	return nil
}

func zeroOperand(w types.Width) string {
	if w == types.Float {
		return "0x0000000000000000"
	}
	return "0"
}

func itoa(i int) string { return strconv.Itoa(i) }
