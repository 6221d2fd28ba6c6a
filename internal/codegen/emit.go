package codegen

import (
	"sysyrv/internal/riscv"
	"sysyrv/internal/util"
)

// Emit serializes prog to textual RV64 GNU-AS assembly, per spec.md §6's
// fixed per-instruction templates.
//
// Grounded on vslc/src/backend/asm.go's top-level emission driver and
// vslc/src/util/io.go's Writer, reused directly via internal/util.
func Emit(prog *riscv.Program) string {
	w := util.NewWriter()
	w.WriteString("\t.option nopic\n")
	emitRodata(w, prog.Rodata)
	emitData(w, prog.Data)
	for _, fn := range prog.Funcs {
		emitFunction(w, fn)
	}
	return w.String()
}

func emitRodata(w *util.Writer, entries []riscv.RodataEntry) {
	if len(entries) == 0 {
		return
	}
	w.WriteString(".section .rodata\n")
	for _, e := range entries {
		emitDataLikeEntry(w, e.Name, e.Words)
	}
}

func emitData(w *util.Writer, entries []riscv.DataEntry) {
	if len(entries) == 0 {
		return
	}
	w.WriteString(".section .data\n")
	for _, e := range entries {
		emitDataLikeEntry(w, e.Name, e.Words)
	}
}

func emitDataLikeEntry(w *util.Writer, name string, words []uint32) {
	w.WriteString(".align 2\n")
	w.Write(".type %s, @object\n", name)
	w.Label(name)
	emitWords(w, words)
}

// emitWords writes one .word directive per non-zero entry, coalescing
// runs of zero words into a single .zero N (spec.md §4.7, §6).
func emitWords(w *util.Writer, words []uint32) {
	i := 0
	for i < len(words) {
		if words[i] == 0 {
			j := i
			for j < len(words) && words[j] == 0 {
				j++
			}
			w.Write("\t.zero\t%d\n", (j-i)*4)
			i = j
			continue
		}
		w.Write("\t.word\t%d\n", int32(words[i]))
		i++
	}
}

func emitFunction(w *util.Writer, fn *riscv.Function) {
	w.WriteString(".text\n")
	w.WriteString(".align 1\n")
	w.Write(".global %s\n", fn.Label)
	w.Write(".type %s, @function\n", fn.Label)
	w.Label(fn.Label)
	for bi, b := range fn.Blocks {
		w.Label(b.Label)
		var next string
		if bi+1 < len(fn.Blocks) {
			next = fn.Blocks[bi+1].Label
		}
		for _, in := range b.Instrs {
			emitInstr(w, in, fn.Label, next)
		}
	}
}

func emitInstr(w *util.Writer, in riscv.Instr, funcLabel, nextLabel string) {
	switch in.Op {
	case riscv.OpLi:
		w.Write("\tli\t%s, %d\n", in.Rd, in.Imm)
	case riscv.OpLa:
		w.Ins2("la", in.Rd.String(), in.Sym)
	case riscv.OpMv:
		if in.Float {
			w.Ins2("fmv.d", in.Rd.String(), in.Rs1.String())
		} else {
			w.Ins2("mv", in.Rd.String(), in.Rs1.String())
		}
	case riscv.OpFcvtSW:
		w.Write("\tfcvt.s.w\t%s, %s, rtz\n", in.Rd, in.Rs1)
	case riscv.OpFcvtWS:
		w.Write("\tfcvt.w.s\t%s, %s, rtz\n", in.Rd, in.Rs1)
	case riscv.OpFmvWX:
		w.Ins2("fmv.w.x", in.Rd.String(), in.Rs1.String())
	case riscv.OpFmvXW:
		w.Ins2("fmv.x.w", in.Rd.String(), in.Rs1.String())

	case riscv.OpAdd:
		w.Ins3(arithMnemonic("add", in.Float), in.Rd.String(), in.Rs1.String(), in.Rs2.String())
	case riscv.OpAddi:
		w.Ins2imm("addi", in.Rd.String(), in.Rs1.String(), int(in.Imm))
	case riscv.OpSub:
		w.Ins3(arithMnemonic("sub", in.Float), in.Rd.String(), in.Rs1.String(), in.Rs2.String())
	case riscv.OpMul:
		w.Ins3(arithMnemonic("mul", in.Float), in.Rd.String(), in.Rs1.String(), in.Rs2.String())
	case riscv.OpDiv:
		w.Ins3(arithMnemonic("div", in.Float), in.Rd.String(), in.Rs1.String(), in.Rs2.String())
	case riscv.OpRem:
		w.Ins3("rem", in.Rd.String(), in.Rs1.String(), in.Rs2.String())
	case riscv.OpNeg:
		if in.Float {
			w.Ins2("fneg.s", in.Rd.String(), in.Rs1.String())
		} else {
			w.Ins2("neg", in.Rd.String(), in.Rs1.String())
		}
	case riscv.OpSlli:
		w.Ins2imm("slli", in.Rd.String(), in.Rs1.String(), int(in.Imm))
	case riscv.OpSrai:
		w.Ins2imm("srai", in.Rd.String(), in.Rs1.String(), int(in.Imm))
	case riscv.OpSrli:
		w.Ins2imm("srli", in.Rd.String(), in.Rs1.String(), int(in.Imm))
	case riscv.OpXori:
		w.Ins2imm("xori", in.Rd.String(), in.Rs1.String(), int(in.Imm))

	case riscv.OpSeqz:
		w.Ins2("seqz", in.Rd.String(), in.Rs1.String())
	case riscv.OpSnez:
		w.Ins2("snez", in.Rd.String(), in.Rs1.String())
	case riscv.OpSlt:
		w.Ins3("slt", in.Rd.String(), in.Rs1.String(), in.Rs2.String())
	case riscv.OpSlti:
		w.Ins2imm("slti", in.Rd.String(), in.Rs1.String(), int(in.Imm))
	case riscv.OpSgt:
		w.Ins3("sgt", in.Rd.String(), in.Rs1.String(), in.Rs2.String())

	case riscv.OpFeqS:
		w.Ins3("feq.s", in.Rd.String(), in.Rs1.String(), in.Rs2.String())
	case riscv.OpFltS:
		w.Ins3("flt.s", in.Rd.String(), in.Rs1.String(), in.Rs2.String())
	case riscv.OpFleS:
		w.Ins3("fle.s", in.Rd.String(), in.Rs1.String(), in.Rs2.String())

	case riscv.OpLoad:
		w.LoadStore(intWidthSuffix("l", in.Width), in.Rd.String(), int(in.Imm), in.Rs1.String())
	case riscv.OpStore:
		w.LoadStore(intWidthSuffix("s", in.Width), in.Rs1.String(), int(in.Imm), in.Rs2.String())
	case riscv.OpFLoad:
		w.LoadStore("flw", in.Rd.String(), int(in.Imm), in.Rs1.String())
	case riscv.OpFStore:
		w.LoadStore("fsw", in.Rs1.String(), int(in.Imm), in.Rs2.String())

	case riscv.OpJ:
		target := funcLabel + "." + in.Then
		if target != nextLabel {
			w.Ins1("j", target)
		}
	case riscv.OpBeq:
		thenTarget := funcLabel + "." + in.Then
		elseTarget := funcLabel + "." + in.Else
		if thenTarget == nextLabel {
			// The taken edge is the fallthrough: invert the condition and
			// branch to the other target instead.
			w.Write("\tb%s\t%s, %s, %s\n", negateCond(in.Cond), in.Rs1, riscv.Zero, elseTarget)
			break
		}
		w.Write("\tb%s\t%s, %s, %s\n", in.Cond, in.Rs1, riscv.Zero, thenTarget)
		if elseTarget != nextLabel {
			w.Ins1("j", elseTarget)
		}
	case riscv.OpRet:
		w.Ins0("ret")
	case riscv.OpCall:
		w.Ins1("call", in.Sym)
	case riscv.OpLabel:
		// unused: blocks carry their own label.
	case riscv.OpComment:
		w.Comment("%s", in.Comment)
	}
}

func negateCond(cond string) string {
	switch cond {
	case "eq":
		return "ne"
	case "ne":
		return "eq"
	case "lt":
		return "ge"
	case "ge":
		return "lt"
	case "le":
		return "gt"
	case "gt":
		return "le"
	default:
		return cond
	}
}

func arithMnemonic(base string, isFloat bool) string {
	if isFloat {
		return "f" + base + ".s"
	}
	return base
}

func intWidthSuffix(prefix string, width int) string {
	switch width {
	case 1:
		return prefix + "b"
	case 2:
		return prefix + "h"
	case 4:
		return prefix + "w"
	default:
		return prefix + "d"
	}
}
