package codegen

import (
	"sort"

	"github.com/pkg/errors"

	"sysyrv/internal/riscv"
	"sysyrv/internal/types"
)

// FinalizeFrame runs spec.md §4.6's remaining two steps over af, in
// order: (1) materialize the return value into a0/fa0 and grow/shrink sp
// around every saved callee-saved register, at entry and before every
// ret; (2) sweep every remaining symbolic stack-slot operand to a
// concrete immediate, expanding through a scratch register where the
// offset falls outside ±2047. ExpandCalls must already have run, since
// it still registers stack slots (outgoing-argument, call-capture,
// cross-call-save) that have to exist before Finalize computes
// FrameSize.
func FinalizeFrame(af *riscv.Function) error {
	var saved []riscv.Reg
	for r := range af.UsedSaved {
		saved = append(saved, r)
	}
	sort.Slice(saved, func(i, j int) bool { return saved[i].String() < saved[j].String() })
	for _, r := range saved {
		af.Stack.AddNormal(savedSlotName(r), 8)
	}
	af.Stack.Finalize()

	prologue := spAdjust(af.Stack.FrameSize, true)
	for _, r := range saved {
		op, width := riscv.OpStore, 8
		if r.IsFloat() {
			op, width = riscv.OpFStore, 4
		}
		prologue = append(prologue, riscv.Instr{Op: op, Rs1: r, StackSlot: savedSlotName(r), Width: width, Float: r.IsFloat()})
	}
	if len(af.Blocks) == 0 {
		return errors.Errorf("function %q has no blocks", af.Label)
	}
	entry := af.Blocks[0]
	entry.Instrs = append(prologue, entry.Instrs...)

	for _, b := range af.Blocks {
		var out []riscv.Instr
		for _, in := range b.Instrs {
			if in.Op != riscv.OpRet {
				out = append(out, in)
				continue
			}
			out = append(out, retSequence(af, in, saved)...)
		}
		b.Instrs = out
	}
	af.RecomputeInsNum()

	return resolveStackOffsets(af)
}

// retSequence materializes af's return value into a0/fa0 (spec.md §4.6
// point 3, applied to the function's own return rather than a call's),
// then restores every callee-saved register and grows sp back, then
// emits the bare ret.
func retSequence(af *riscv.Function, in riscv.Instr, saved []riscv.Reg) []riscv.Instr {
	var out []riscv.Instr
	if af.Ret != types.Void {
		target := riscv.AAi[0]
		if af.Ret == types.Float {
			target = riscv.AAf[0]
		}
		if in.Rs1 != target {
			out = append(out, riscv.Instr{Op: riscv.OpMv, Rd: target, Rs1: in.Rs1, Float: af.Ret == types.Float})
		}
	}
	for i := len(saved) - 1; i >= 0; i-- {
		r := saved[i]
		op, width := riscv.OpLoad, 8
		if r.IsFloat() {
			op, width = riscv.OpFLoad, 4
		}
		out = append(out, riscv.Instr{Op: op, Rd: r, StackSlot: savedSlotName(r), Width: width, Float: r.IsFloat()})
	}
	out = append(out, spAdjust(af.Stack.FrameSize, false)...)
	out = append(out, riscv.Instr{Op: riscv.OpRet})
	return out
}

// spAdjust returns the sp-growth (shrink=true) or sp-restore (shrink=
// false) sequence for size bytes: a single addi when it fits the ±2047
// immediate range, else spec.md §4.6's li+add expansion through the
// reserved int scratch register.
func spAdjust(size int, shrink bool) []riscv.Instr {
	if size == 0 {
		return nil
	}
	delta := int64(size)
	if shrink {
		delta = -delta
	}
	if inRange(delta) {
		return []riscv.Instr{{Op: riscv.OpAddi, Rd: riscv.SP, Rs1: riscv.SP, Imm: delta}}
	}
	return []riscv.Instr{
		{Op: riscv.OpLi, Rd: riscv.PreservedI0, Imm: delta},
		{Op: riscv.OpAdd, Rd: riscv.SP, Rs1: riscv.SP, Rs2: riscv.PreservedI0},
	}
}

func inRange(n int64) bool { return n >= -2048 && n <= 2047 }

// resolveStackOffsets sweeps every remaining symbolic StackSlot operand
// to a concrete sp-relative immediate, per spec.md §4.6's closing
// paragraph.
func resolveStackOffsets(af *riscv.Function) error {
	for _, b := range af.Blocks {
		var out []riscv.Instr
		for _, in := range b.Instrs {
			if in.StackSlot == "" {
				out = append(out, in)
				continue
			}
			off, ok := af.Stack.Offset(in.StackSlot)
			if !ok {
				return errors.Errorf("function %q: stack slot %q never registered", af.Label, in.StackSlot)
			}
			expanded, err := resolveOneStackOp(in, off)
			if err != nil {
				return err
			}
			out = append(out, expanded...)
		}
		b.Instrs = out
	}
	af.RecomputeInsNum()
	return nil
}

func resolveOneStackOp(in riscv.Instr, off int) ([]riscv.Instr, error) {
	switch in.Op {
	case riscv.OpLoad, riscv.OpFLoad:
		if inRange(int64(off)) {
			out := in
			out.StackSlot = ""
			out.Rs1 = riscv.SP
			out.Imm = int64(off)
			return []riscv.Instr{out}, nil
		}
		final := in
		final.StackSlot = ""
		final.Rs1 = riscv.PreservedI0
		final.Imm = 0
		return []riscv.Instr{
			{Op: riscv.OpLi, Rd: riscv.PreservedI0, Imm: int64(off)},
			{Op: riscv.OpAdd, Rd: riscv.PreservedI0, Rs1: riscv.SP, Rs2: riscv.PreservedI0},
			final,
		}, nil

	case riscv.OpStore, riscv.OpFStore:
		if inRange(int64(off)) {
			out := in
			out.StackSlot = ""
			out.Rs2 = riscv.SP
			out.Imm = int64(off)
			return []riscv.Instr{out}, nil
		}
		final := in
		final.StackSlot = ""
		final.Rs2 = riscv.PreservedI0
		final.Imm = 0
		return []riscv.Instr{
			{Op: riscv.OpLi, Rd: riscv.PreservedI0, Imm: int64(off)},
			{Op: riscv.OpAdd, Rd: riscv.PreservedI0, Rs1: riscv.SP, Rs2: riscv.PreservedI0},
			final,
		}, nil

	case riscv.OpAddi:
		total := in.Imm + int64(off)
		if inRange(total) {
			out := in
			out.StackSlot = ""
			out.Rs1 = riscv.SP
			out.Imm = total
			return []riscv.Instr{out}, nil
		}
		return []riscv.Instr{
			{Op: riscv.OpLi, Rd: riscv.PreservedI0, Imm: total},
			{Op: riscv.OpAdd, Rd: in.Rd, Rs1: riscv.SP, Rs2: riscv.PreservedI0},
		}, nil

	default:
		return nil, errors.Errorf("codegen: opcode %d carries a stack slot but has no known addressing form", in.Op)
	}
}
