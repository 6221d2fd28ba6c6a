package codegen

import (
	"strings"
	"testing"

	"sysyrv/internal/riscv"
	"sysyrv/internal/types"
)

func TestEmitCoalescesZeroWordRuns(t *testing.T) {
	prog := riscv.NewProgram()
	prog.Data = append(prog.Data, riscv.DataEntry{Name: "g", Words: []uint32{0, 0, 0, 5, 0}})

	out := Emit(prog)

	if !strings.Contains(out, ".zero\t12") {
		t.Errorf("output missing a coalesced .zero 12 run:\n%s", out)
	}
	if !strings.Contains(out, ".word\t5") {
		t.Errorf("output missing the non-zero word:\n%s", out)
	}
	if !strings.Contains(out, ".zero\t4\n") && !strings.Contains(out, ".zero\t4") {
		t.Errorf("output missing the trailing single zero word:\n%s", out)
	}
}

func TestEmitFunctionHasRequiredDirectives(t *testing.T) {
	af := riscv.NewFunction("main", types.I32)
	b := &riscv.Block{Label: "main.entry"}
	b.Instrs = []riscv.Instr{
		{Op: riscv.OpLi, Rd: riscv.AAi[0], Imm: 0},
		{Op: riscv.OpRet},
	}
	af.Blocks = []*riscv.Block{b}

	prog := riscv.NewProgram()
	prog.Funcs = append(prog.Funcs, af)

	out := Emit(prog)

	for _, want := range []string{".option nopic", ".global main", ".type main, @function", "main.entry:", "li\ta0, 0", "ret"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestEmitCallUsesCallMnemonic(t *testing.T) {
	af := riscv.NewFunction("f", types.Void)
	b := &riscv.Block{Label: "f.entry"}
	b.Instrs = []riscv.Instr{
		{Op: riscv.OpCall, Sym: "g"},
		{Op: riscv.OpRet},
	}
	af.Blocks = []*riscv.Block{b}
	prog := riscv.NewProgram()
	prog.Funcs = append(prog.Funcs, af)

	out := Emit(prog)
	if !strings.Contains(out, "call\tg") {
		t.Errorf("output missing call instruction:\n%s", out)
	}
}

func TestEmitElidesJumpToFallthroughBlock(t *testing.T) {
	af := riscv.NewFunction("f", types.Void)
	b0 := &riscv.Block{Label: "f.entry", Instrs: []riscv.Instr{
		{Op: riscv.OpJ, Then: "next"},
	}}
	b1 := &riscv.Block{Label: "f.next", Instrs: []riscv.Instr{
		{Op: riscv.OpRet},
	}}
	af.Blocks = []*riscv.Block{b0, b1}
	prog := riscv.NewProgram()
	prog.Funcs = append(prog.Funcs, af)

	out := Emit(prog)
	if strings.Contains(out, "\tj\tf.next") {
		t.Errorf("jump to the immediately-following block should have been elided:\n%s", out)
	}
}

func TestEmitKeepsJumpToNonFallthroughBlock(t *testing.T) {
	af := riscv.NewFunction("f", types.Void)
	b0 := &riscv.Block{Label: "f.entry", Instrs: []riscv.Instr{
		{Op: riscv.OpJ, Then: "far"},
	}}
	b1 := &riscv.Block{Label: "f.mid", Instrs: []riscv.Instr{
		{Op: riscv.OpRet},
	}}
	b2 := &riscv.Block{Label: "f.far", Instrs: []riscv.Instr{
		{Op: riscv.OpRet},
	}}
	af.Blocks = []*riscv.Block{b0, b1, b2}
	prog := riscv.NewProgram()
	prog.Funcs = append(prog.Funcs, af)

	out := Emit(prog)
	if !strings.Contains(out, "j\tf.far") {
		t.Errorf("jump to a non-fallthrough block should be kept:\n%s", out)
	}
}
