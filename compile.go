// Package sysyrv compiles a parsed SysY-family translation unit to RV64
// textual assembly. The front end that produces the AST is out of scope;
// this package strings together the back half of the compiler: AST -> IR
// lowering, dataflow optimization, instruction selection, register
// allocation, call-site/frame realization and emission.
package sysyrv

import (
	"github.com/pkg/errors"

	"sysyrv/internal/ast"
	"sysyrv/internal/codegen"
	"sysyrv/internal/config"
	"sysyrv/internal/ir"
	sel "sysyrv/internal/select"
)

// Compile lowers tu all the way to textual RV64 assembly under the given
// options.
func Compile(tu *ast.TranslationUnit, opt config.Options) (string, error) {
	prog, err := ir.Lower(tu, opt)
	if err != nil {
		return "", errors.Wrap(err, "lowering")
	}

	ir.Optimize(prog, opt)
	if opt.Verbose && opt.Log != nil {
		opt.Log.Info("IR after optimization:\n" + prog.Print())
	}

	asm, err := sel.Select(prog, opt)
	if err != nil {
		return "", errors.Wrap(err, "instruction selection")
	}

	out, err := codegen.Generate(asm, opt)
	if err != nil {
		return "", errors.Wrap(err, "code generation")
	}
	return out, nil
}
