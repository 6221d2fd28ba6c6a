// rewrite.go substitutes the virtual register names instruction selection
// left on every non-call riscv.Instr with the physical registers Allocate
// computed, inserting the spill reload/store sequences spec.md §4.5
// describes for names Allocate could not fit in a register.
//
// OpCall markers are left untouched here: call-site argument placement is
// its own ABI-shaped problem (spec.md §4.6), handled by
// internal/codegen/calls.go using the same Result this pass consumes.
package regalloc

import (
	"github.com/pkg/errors"

	"sysyrv/internal/riscv"
)

// spillBudget tracks, within one instruction, which preserved register a
// spilled source name has already been bound to, so repeated uses of the
// same spilled name reuse one preserved register and at most two distinct
// spilled names of a given class are required (SPEC_FULL.md §13). A spilled
// destination is not counted: it reuses the first preserved register of
// its class (see resolveWrite).
type spillBudget struct {
	intUsed, floatUsed map[string]riscv.Reg
	intNext, floatNext int
}

func newSpillBudget() *spillBudget {
	return &spillBudget{intUsed: map[string]riscv.Reg{}, floatUsed: map[string]riscv.Reg{}}
}

var intPreserved = [2]riscv.Reg{riscv.PreservedI0, riscv.PreservedI1}
var floatPreserved = [2]riscv.Reg{riscv.PreservedF0, riscv.PreservedF1}

func (sb *spillBudget) reg(name string, isFloat bool) (riscv.Reg, error) {
	used, next, pool := sb.intUsed, sb.intNext, intPreserved
	if isFloat {
		used, next, pool = sb.floatUsed, sb.floatNext, floatPreserved
	}
	if r, ok := used[name]; ok {
		return r, nil
	}
	if next >= len(pool) {
		return riscv.Reg{}, errors.Errorf("regalloc: instruction needs more than %d distinct spilled %s operands", len(pool), classWord(isFloat))
	}
	r := pool[next]
	used[name] = r
	if isFloat {
		sb.floatNext++
		sb.floatUsed = used
	} else {
		sb.intNext++
		sb.intUsed = used
	}
	return r, nil
}

func classWord(isFloat bool) string {
	if isFloat {
		return "float"
	}
	return "int"
}

// SpillSlotName is the stack-slot name a spilled virtual resolves to.
// Exported so internal/codegen can address the same slot for virtuals
// (call arguments, return values) it must resolve after this pass has
// already run.
func SpillSlotName(virtual string) string { return "spilled." + virtual }

// Resolve reports the physical register res bound name to, or ok=false
// if name was spilled instead (in which case the caller addresses
// SpillSlotName(name) directly rather than through this pass's own
// preserved-register reload convention).
func (res Result) Resolve(name string) (riscv.Reg, bool) {
	if r, ok := res.Assigned[name]; ok {
		return r, true
	}
	return riscv.Reg{}, false
}

// Rewrite substitutes every virtual operand on af's non-call instructions
// with the physical register res assigned it, or a spill-reload/store
// sequence through a preserved scratch register when res spilled it.
func Rewrite(af *riscv.Function, res Result) error {
	for name := range res.Spilled {
		af.Stack.AddNormal(SpillSlotName(name), 8)
	}
	af.UsedSaved = res.UsedSaved

	for _, b := range af.Blocks {
		var out []riscv.Instr
		for _, in := range b.Instrs {
			expanded, err := rewriteInstr(in, res)
			if err != nil {
				return errors.Wrapf(err, "function %q block %q", af.Label, b.Label)
			}
			out = append(out, expanded...)
		}
		b.Instrs = out
	}
	af.RecomputeInsNum()
	return nil
}

// rewriteInstr resolves one instruction's virtual operands, returning the
// reload/op/store sequence it expands to (length 1 for the common case of
// no spilled operand).
func rewriteInstr(in riscv.Instr, res Result) ([]riscv.Instr, error) {
	if in.Op == riscv.OpCall {
		return []riscv.Instr{in}, nil
	}

	sb := newSpillBudget()
	var pre, post []riscv.Instr

	resolveRead := func(name string, isFloat bool) (riscv.Reg, error) {
		if name == "" {
			return riscv.Reg{}, nil
		}
		if reg, ok := res.Assigned[name]; ok {
			return reg, nil
		}
		if res.Spilled[name] {
			reg, err := sb.reg(name, isFloat)
			if err != nil {
				return riscv.Reg{}, err
			}
			op := riscv.OpLoad
			width := 8
			if isFloat {
				op = riscv.OpFLoad
				width = 4 // single precision: the slot itself stays 8-byte aligned.
			}
			pre = append(pre, riscv.Instr{Op: op, Rd: reg, StackSlot: SpillSlotName(name), Width: width, Float: isFloat})
			return reg, nil
		}
		return riscv.Reg{}, errors.Errorf("regalloc: virtual %q has no assignment", name)
	}

	resolveWrite := func(name string, isFloat bool) (riscv.Reg, error) {
		if name == "" {
			return riscv.Reg{}, nil
		}
		if reg, ok := res.Assigned[name]; ok {
			return reg, nil
		}
		if res.Spilled[name] {
			// The store follows the instruction, after every source has been
			// read, so a spilled destination may share a preserved register
			// with a source and never needs a third one.
			used, reg := sb.intUsed, intPreserved[0]
			if isFloat {
				used, reg = sb.floatUsed, floatPreserved[0]
			}
			if r, ok := used[name]; ok {
				reg = r
			}
			op := riscv.OpStore
			width := 8
			if isFloat {
				op = riscv.OpFStore
				width = 4
			}
			post = append(post, riscv.Instr{Op: op, Rs1: reg, StackSlot: SpillSlotName(name), Width: width, Float: isFloat})
			return reg, nil
		}
		return riscv.Reg{}, errors.Errorf("regalloc: virtual %q has no assignment", name)
	}

	out := in

	if in.VSrc1 != "" {
		r, err := resolveRead(in.VSrc1, in.OperandIsFloat(false, false))
		if err != nil {
			return nil, err
		}
		out.Rs1 = r
		out.VSrc1 = ""
	}
	if in.VSrc2 != "" {
		r, err := resolveRead(in.VSrc2, in.OperandIsFloat(false, true))
		if err != nil {
			return nil, err
		}
		out.Rs2 = r
		out.VSrc2 = ""
	}
	if in.VDst != "" {
		r, err := resolveWrite(in.VDst, in.OperandIsFloat(true, false))
		if err != nil {
			return nil, err
		}
		out.Rd = r
		out.VDst = ""
	}

	result := make([]riscv.Instr, 0, len(pre)+1+len(post))
	result = append(result, pre...)
	result = append(result, out)
	result = append(result, post...)
	return result, nil
}
