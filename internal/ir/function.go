package ir

import (
	"github.com/pkg/errors"

	"sysyrv/internal/types"
)

// Param is one function parameter as carried into the IR. IsArray marks a
// pointer-decayed array parameter: its value is an address and travels in
// an integer register regardless of the element width.
type Param struct {
	Name    string
	Type    types.Width
	IsArray bool
}

// LocalVar is one entry in a function's local-var list: an alloca that
// logically belongs to the entry block but is tracked separately so it can
// be hoisted (spec.md §3, §4.2 "Allocas").
type LocalVar struct {
	Name string
	Elem types.SymType
}

// Function owns its blocks, its parameter list, and a separate local-var
// list of allocas (spec.md §3). Grounded on vslc/src/ir/lir/function.go's
// Function type, shed of its sync.Mutex/goroutine plumbing per spec.md §5.
type Function struct {
	Name       string
	ReturnType types.Width
	Params     []Param
	Blocks     []*Block
	Locals     []LocalVar

	// declared tracks local-var names already pushed, mirroring the
	// teacher's idempotent CreateParam-style guards.
	declared map[string]bool
}

// NewFunction returns a function with a single empty entry block labeled
// "_entry", satisfying the invariant in spec.md §3 ("first block's label is
// _entry").
func NewFunction(name string, ret types.Width, params []Param) *Function {
	f := &Function{
		Name:       name,
		ReturnType: ret,
		Params:     params,
		declared:   make(map[string]bool),
	}
	f.Blocks = append(f.Blocks, NewBlock("_entry", 0))
	return f
}

// Entry returns the function's entry block.
func (f *Function) Entry() *Block { return f.Blocks[0] }

// Current returns the block currently being appended to: the last block in
// the list.
func (f *Function) Current() *Block { return f.Blocks[len(f.Blocks)-1] }

// PushBlock appends a new block, enforcing the invariant that the previous
// block already has a terminator (spec.md §3, §7).
func (f *Function) PushBlock(label string, loopDepth int) (*Block, error) {
	if prev := f.Current(); prev.Terminator() == nil {
		return nil, errors.Errorf("function %q: pushed block %q before block %q received a terminator", f.Name, label, prev.Label)
	}
	b := NewBlock(label, loopDepth)
	f.Blocks = append(f.Blocks, b)
	return b, nil
}

// AddLocal appends an alloca to the function's local-var list, skipping a
// duplicate push for the same name (idempotence, mirroring the teacher's
// guarded CreateParam).
func (f *Function) AddLocal(name string, elem types.SymType) {
	if f.declared[name] {
		return
	}
	f.declared[name] = true
	f.Locals = append(f.Locals, LocalVar{Name: name, Elem: elem})
}
