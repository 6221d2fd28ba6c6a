package regalloc

import (
	"testing"

	"sysyrv/internal/riscv"
	"sysyrv/internal/types"
)

func TestOrderFollowsSuccessorsDepthFirst(t *testing.T) {
	af := riscv.NewFunction("f", types.Void)
	entry := &riscv.Block{Label: "f._entry", Successors: []string{"then", "else"}}
	entry.Instrs = []riscv.Instr{{Op: riscv.OpBeq, VSrc1: "c", Cond: "ne", Then: "then", Else: "else"}}
	thenB := &riscv.Block{Label: "f.then", Successors: []string{"end"}}
	thenB.Instrs = []riscv.Instr{{Op: riscv.OpJ, Then: "end"}}
	elseB := &riscv.Block{Label: "f.else", Successors: []string{"end"}}
	elseB.Instrs = []riscv.Instr{{Op: riscv.OpJ, Then: "end"}}
	endB := &riscv.Block{Label: "f.end"}
	endB.Instrs = []riscv.Instr{{Op: riscv.OpRet}}

	// Textual order deliberately scrambles else before then.
	af.Blocks = []*riscv.Block{entry, elseB, thenB, endB}

	order := Order(af)
	got := make([]string, len(order))
	for i, b := range order {
		got[i] = b.Label
	}
	want := []string{"f._entry", "f.then", "f.end", "f.else"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v (depth-first over successors, not textual)", got, want)
		}
	}
}

func TestComputePositionsAreStrictlyIncreasing(t *testing.T) {
	af := riscv.NewFunction("f", types.Void)
	b1 := &riscv.Block{Label: "f.a", Successors: []string{"b"}}
	b1.Instrs = []riscv.Instr{{Op: riscv.OpLi, VDst: "v0", Imm: 1}, {Op: riscv.OpJ, Then: "b"}}
	b2 := &riscv.Block{Label: "f.b"}
	b2.Instrs = []riscv.Instr{{Op: riscv.OpRet}}
	af.Blocks = []*riscv.Block{b1, b2}

	pos := ComputePositions(af)
	if pos.BlockStart[b1] != 0 || pos.BlockStart[b2] != 2 {
		t.Errorf("BlockStart = {a:%d b:%d}, want {a:0 b:2}", pos.BlockStart[b1], pos.BlockStart[b2])
	}
}

func TestBuildIntervalsSpansDefToLastUse(t *testing.T) {
	af := riscv.NewFunction("f", types.I32)
	b := &riscv.Block{Label: "f._entry"}
	b.Instrs = []riscv.Instr{
		{Op: riscv.OpLi, VDst: "v0", Imm: 1},                     // 0: def
		{Op: riscv.OpAddi, VDst: "v1", VSrc1: "v0", Imm: 1},      // 1: use v0
		{Op: riscv.OpAdd, VDst: "v2", VSrc1: "v0", VSrc2: "v1"},  // 2: last use v0
		{Op: riscv.OpRet, VSrc1: "v2"},                           // 3
	}
	af.Blocks = []*riscv.Block{b}

	ivs, _ := BuildIntervals(af)
	v0 := ivs["v0"]
	if v0 == nil {
		t.Fatalf("no interval for v0")
	}
	if v0.Start() != 0 || v0.End() != 2 {
		t.Errorf("v0 interval = [%d,%d], want [0,2]", v0.Start(), v0.End())
	}
}

func TestBuildIntervalsClassifiesCrossBlockFloat(t *testing.T) {
	// A float virtual defined in one block and used in another: its first
	// sighting during the reverse walk is as a live-out name, which carries
	// no class of its own; the def site must still classify it float.
	af := riscv.NewFunction("f", types.I32)
	b1 := &riscv.Block{Label: "f._entry", Successors: []string{"next"}}
	b1.Instrs = []riscv.Instr{
		{Op: riscv.OpFLoad, VDst: "fv", StackSlot: "x_0", Width: 4, Float: true},
		{Op: riscv.OpJ, Then: "next"},
	}
	b2 := &riscv.Block{Label: "f.next"}
	b2.Instrs = []riscv.Instr{
		{Op: riscv.OpFeqS, VDst: "cmp", VSrc1: "fv", VSrc2: "fv"},
		{Op: riscv.OpRet, VSrc1: "cmp"},
	}
	af.Blocks = []*riscv.Block{b1, b2}

	ivs, _ := BuildIntervals(af)
	if fv := ivs["fv"]; fv == nil || !fv.IsFloat {
		t.Errorf("fv not classified float: %+v", fv)
	}
	// The comparison's own result is an integer i1 even though its operands
	// are floats.
	if cmp := ivs["cmp"]; cmp == nil || cmp.IsFloat {
		t.Errorf("feq.s result wrongly classified float: %+v", cmp)
	}
}

func TestBuildIntervalsMarksCallCrossing(t *testing.T) {
	af := riscv.NewFunction("f", types.I32)
	b := &riscv.Block{Label: "f._entry"}
	b.Instrs = []riscv.Instr{
		{Op: riscv.OpLi, VDst: "v0", Imm: 1},
		{Op: riscv.OpCall, Sym: "g", CallSiteID: 0},
		{Op: riscv.OpAddi, VDst: "v1", VSrc1: "v0", Imm: 0},
		{Op: riscv.OpRet, VSrc1: "v1"},
	}
	af.Blocks = []*riscv.Block{b}

	ivs, _ := BuildIntervals(af)
	if !ivs["v0"].CrossesCall {
		t.Errorf("v0 lives across the call but CrossesCall is false")
	}
	if ivs["v1"].CrossesCall {
		t.Errorf("v1 is defined after the call but CrossesCall is true")
	}
}

func TestPhysPinsRecordsLastArgRegisterRead(t *testing.T) {
	af := riscv.NewFunction("f", types.Void)
	b := &riscv.Block{Label: "f._entry"}
	b.Instrs = []riscv.Instr{
		{Op: riscv.OpMv, VDst: "v0", Rs1: riscv.AAi[0]},
		{Op: riscv.OpMv, VDst: "v1", Rs1: riscv.AAi[1]},
		{Op: riscv.OpRet},
	}
	af.Blocks = []*riscv.Block{b}

	pins := PhysPins(af, ComputePositions(af))
	if pins[riscv.AAi[0]] != 0 {
		t.Errorf("a0 pin = %d, want 0", pins[riscv.AAi[0]])
	}
	if pins[riscv.AAi[1]] != 1 {
		t.Errorf("a1 pin = %d, want 1", pins[riscv.AAi[1]])
	}
}

func TestLiveSetsUpperBoundHolds(t *testing.T) {
	// §8 "liveness upper bound": simultaneously live virtuals at any position
	// never exceed assigned registers plus spills.
	af := riscv.NewFunction("f", types.I32)
	b := &riscv.Block{Label: "f._entry"}
	var ins []riscv.Instr
	names := []string{"v0", "v1", "v2", "v3", "v4", "v5", "v6", "v7"}
	for i, n := range names {
		ins = append(ins, riscv.Instr{Op: riscv.OpLi, VDst: n, Imm: int64(i)})
	}
	for i := 1; i < len(names); i++ {
		ins = append(ins, riscv.Instr{Op: riscv.OpAdd, VDst: names[0], VSrc1: names[i-1], VSrc2: names[i]})
	}
	ins = append(ins, riscv.Instr{Op: riscv.OpRet, VSrc1: names[0]})
	b.Instrs = ins
	af.Blocks = []*riscv.Block{b}

	res, err := Allocate(af)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if len(res.Assigned)+len(res.Spilled) != len(names) {
		t.Errorf("assigned(%d)+spilled(%d) != %d virtuals", len(res.Assigned), len(res.Spilled), len(names))
	}
}
