package regalloc

import (
	"reflect"
	"testing"

	"sysyrv/internal/riscv"
	"sysyrv/internal/types"
)

func TestCallLiveAcrossFindsVirtualSpanningCall(t *testing.T) {
	af := riscv.NewFunction("f", types.I32)
	b := &riscv.Block{Label: "f.entry"}
	b.Instrs = []riscv.Instr{
		{Op: riscv.OpAddi, VDst: "v1", Imm: 5},
		{Op: riscv.OpCall, Sym: "g", CallSiteID: 0},
		{Op: riscv.OpAdd, VDst: "v2", VSrc1: "v1", VSrc2: "v1"},
		{Op: riscv.OpRet, VSrc1: "v2"},
	}
	af.Blocks = []*riscv.Block{b}

	live := CallLiveAcross(af)
	got, ok := live[0]
	if !ok {
		t.Fatalf("call site 0 missing from result")
	}
	want := []string{"v1"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("live across call 0 = %v, want %v", got, want)
	}
}

func TestCallLiveAcrossExcludesOwnResult(t *testing.T) {
	af := riscv.NewFunction("f", types.I32)
	b := &riscv.Block{Label: "f.entry"}
	b.Instrs = []riscv.Instr{
		{Op: riscv.OpCall, Sym: "g", CallSiteID: 0, CallResult: "v1"},
		{Op: riscv.OpRet, VSrc1: "v1"},
	}
	af.Blocks = []*riscv.Block{b}

	live := CallLiveAcross(af)
	for _, name := range live[0] {
		if name == "v1" {
			t.Errorf("call site 0's own result %q appeared in its own live-across set", name)
		}
	}
}

func TestCallLiveAcrossOmitsUncalledVirtuals(t *testing.T) {
	af := riscv.NewFunction("f", types.I32)
	b := &riscv.Block{Label: "f.entry"}
	b.Instrs = []riscv.Instr{
		{Op: riscv.OpAddi, VDst: "v1", Imm: 1},
		{Op: riscv.OpRet, VSrc1: "v1"},
	}
	af.Blocks = []*riscv.Block{b}

	live := CallLiveAcross(af)
	if len(live) != 0 {
		t.Errorf("live = %v, want empty map for a function with no calls", live)
	}
}
