package riscv

import "sysyrv/internal/types"

// Function is one assembly function: label, return width, its stack
// frame, its blocks, and the bookkeeping later passes need (spec.md §3
// "AsmFunc").
type Function struct {
	Label string
	Ret   types.Width

	Stack  *StackSlot
	Blocks []*Block

	// Params maps a named IR parameter to its ABI argument index (position
	// among int args or float args, per the parameter's own type).
	Params map[string]int

	// LabelType recovers the width of an SSA name after selection has
	// dropped the IR's explicit typing (spec.md §3 "AsmFunc").
	LabelType map[string]types.Width

	// CallSites collects every call instruction's location for §4.6
	// expansion.
	CallSites []CallSite

	// UsedSaved is the set of callee-saved physical registers the
	// allocator assigned at least once; populated during linear scan,
	// consumed by prologue/epilogue generation.
	UsedSaved map[Reg]bool
}

// NewFunction returns an empty Function.
func NewFunction(label string, ret types.Width) *Function {
	return &Function{
		Label:     label,
		Ret:       ret,
		Stack:     NewStackSlot(),
		Params:    make(map[string]int),
		LabelType: make(map[string]types.Width),
		UsedSaved: make(map[Reg]bool),
	}
}

// Block looks up a block by its plain (unqualified) label, i.e. the
// suffix after "funcname.".
func (f *Function) Block(label string) *Block {
	qualified := f.Label + "." + label
	for _, b := range f.Blocks {
		if b.Label == qualified || b.Label == label {
			return b
		}
	}
	return nil
}

// RecomputeInsNum refreshes each block's cumulative InsNum after an
// in-place edit changed some block's instruction count.
func (f *Function) RecomputeInsNum() {
	cum := 0
	for _, b := range f.Blocks {
		b.InsNum = cum
		cum += len(b.Instrs)
	}
}
