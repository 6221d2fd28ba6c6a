package codegen

import "sysyrv/internal/riscv"

// Peephole runs spec.md §4.7's two local cleanups over every block of
// af: dropping a self-move, and collapsing a store immediately followed
// by a load of the same address/width/float-ness into a plain move.
func Peephole(af *riscv.Function) {
	for _, b := range af.Blocks {
		b.Instrs = peepholeBlock(b.Instrs)
	}
	af.RecomputeInsNum()
}

func peepholeBlock(ins []riscv.Instr) []riscv.Instr {
	out := make([]riscv.Instr, 0, len(ins))
	for i := 0; i < len(ins); i++ {
		in := ins[i]
		if isRedundantMove(in) {
			continue
		}
		if i+1 < len(ins) && collapsible(in, ins[i+1]) {
			next := ins[i+1]
			out = append(out, in)
			if next.Rd != in.Rs1 {
				out = append(out, riscv.Instr{Op: riscv.OpMv, Rd: next.Rd, Rs1: in.Rs1, Float: in.Float})
			}
			i++
			continue
		}
		out = append(out, in)
	}
	return out
}

func isRedundantMove(in riscv.Instr) bool {
	return in.Op == riscv.OpMv && in.Rd == in.Rs1
}

// collapsible reports whether store immediately followed by load forms
// spec.md §4.7's "store v, addr; load v', addr" pattern: same address
// (base register and immediate, or the same still-unresolved stack
// slot), same width, same float-ness.
func collapsible(store, load riscv.Instr) bool {
	storeOp := store.Op == riscv.OpStore || store.Op == riscv.OpFStore
	loadOp := load.Op == riscv.OpLoad || load.Op == riscv.OpFLoad
	if !storeOp || !loadOp {
		return false
	}
	if store.Float != load.Float || store.Width != load.Width {
		return false
	}
	if store.StackSlot != "" || load.StackSlot != "" {
		return store.StackSlot == load.StackSlot
	}
	return store.Rs2 == load.Rs1 && store.Imm == load.Imm
}
