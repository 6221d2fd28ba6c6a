package codegen

import (
	"testing"

	"sysyrv/internal/riscv"
	"sysyrv/internal/types"
)

func TestPeepholeDropsRedundantMove(t *testing.T) {
	af := riscv.NewFunction("f", types.Void)
	b := &riscv.Block{Label: "f.entry"}
	b.Instrs = []riscv.Instr{
		{Op: riscv.OpMv, Rd: riscv.AAi[0], Rs1: riscv.AAi[0]},
		{Op: riscv.OpRet},
	}
	af.Blocks = []*riscv.Block{b}

	Peephole(af)

	if len(b.Instrs) != 1 || b.Instrs[0].Op != riscv.OpRet {
		t.Errorf("Instrs = %+v, want only the ret left", b.Instrs)
	}
}

func TestPeepholeKeepsDistinctMove(t *testing.T) {
	af := riscv.NewFunction("f", types.Void)
	b := &riscv.Block{Label: "f.entry"}
	b.Instrs = []riscv.Instr{
		{Op: riscv.OpMv, Rd: riscv.AAi[0], Rs1: riscv.AAi[1]},
		{Op: riscv.OpRet},
	}
	af.Blocks = []*riscv.Block{b}

	Peephole(af)

	if len(b.Instrs) != 2 {
		t.Fatalf("Instrs = %+v, want the move kept", b.Instrs)
	}
	if b.Instrs[0].Op != riscv.OpMv {
		t.Errorf("Instrs[0].Op = %v, want OpMv", b.Instrs[0].Op)
	}
}

func TestPeepholeCollapsesStoreThenLoadIntoMove(t *testing.T) {
	af := riscv.NewFunction("f", types.Void)
	b := &riscv.Block{Label: "f.entry"}
	b.Instrs = []riscv.Instr{
		{Op: riscv.OpStore, Rs1: riscv.AAi[0], StackSlot: "x", Width: 8},
		{Op: riscv.OpLoad, Rd: riscv.AAi[1], StackSlot: "x", Width: 8},
		{Op: riscv.OpRet},
	}
	af.Blocks = []*riscv.Block{b}

	Peephole(af)

	if len(b.Instrs) != 3 {
		t.Fatalf("Instrs = %+v, want store + move + ret", b.Instrs)
	}
	if b.Instrs[0].Op != riscv.OpStore {
		t.Errorf("Instrs[0].Op = %v, want OpStore kept", b.Instrs[0].Op)
	}
	mv := b.Instrs[1]
	if mv.Op != riscv.OpMv || mv.Rd != riscv.AAi[1] || mv.Rs1 != riscv.AAi[0] {
		t.Errorf("Instrs[1] = %+v, want mv a1, a0", mv)
	}
}

func TestPeepholeLeavesDifferentAddressesAlone(t *testing.T) {
	af := riscv.NewFunction("f", types.Void)
	b := &riscv.Block{Label: "f.entry"}
	b.Instrs = []riscv.Instr{
		{Op: riscv.OpStore, Rs1: riscv.AAi[0], StackSlot: "x", Width: 8},
		{Op: riscv.OpLoad, Rd: riscv.AAi[1], StackSlot: "y", Width: 8},
		{Op: riscv.OpRet},
	}
	af.Blocks = []*riscv.Block{b}

	Peephole(af)

	if len(b.Instrs) != 3 {
		t.Fatalf("Instrs = %+v, want all three instructions kept", b.Instrs)
	}
}
