package ir

import "sysyrv/internal/types"

// GlobalKind discriminates a Global's payload.
type GlobalKind int

const (
	GlobalScalar GlobalKind = iota
	GlobalArray
	GlobalExternFunc
)

// Global is one top-level value owned by the Program: a scalar variable, an
// array variable (flattened initializer), or an external function
// declaration referenced but not defined in this translation unit.
type Global struct {
	Kind GlobalKind
	Name string
	Type types.SymType

	// IsConst mirrors the source "const" qualifier; constants are folded at
	// every use site by the lowering pass and never loaded at runtime, but
	// are still emitted to .data/.rodata for completeness and for any
	// address-of use.
	IsConst bool

	// Scalar holds the single word for a GlobalScalar.
	Scalar types.SymVal

	// Elems holds one flattened entry per array element for a GlobalArray,
	// in row-major order, already zero-padded to the full extent (spec.md
	// §4.2 "Array declarations").
	Elems []types.SymVal

	// ParamTypes/ReturnType describe a GlobalExternFunc's signature.
	ParamTypes []types.Width
}

// Program is the root IR structure: the module's globals, external
// declarations and function definitions (spec.md §3 "program = (globals,
// external decls, function defs)"). Grounded on vslc/src/ir/lir/module.go's
// Module type, shed of its sync.Mutex per spec.md §5.
type Program struct {
	Globals   []*Global
	Functions []*Function

	byName map[string]*Function
}

// NewProgram returns an empty Program.
func NewProgram() *Program {
	return &Program{byName: make(map[string]*Function)}
}

// AddGlobal appends g to the program's global list.
func (p *Program) AddGlobal(g *Global) { p.Globals = append(p.Globals, g) }

// AddFunction appends fn to the program's function list and indexes it by
// name for GetFunction lookups.
func (p *Program) AddFunction(fn *Function) {
	p.Functions = append(p.Functions, fn)
	p.byName[fn.Name] = fn
}

// GetFunction looks up a function definition by name, returning nil if
// name was never defined (it may still be a GlobalExternFunc declaration).
func (p *Program) GetFunction(name string) *Function { return p.byName[name] }
