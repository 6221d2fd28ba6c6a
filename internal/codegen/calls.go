// Package codegen implements spec.md §4.6-§4.7: call-site expansion,
// prologue/epilogue generation, stack-offset finalization, peephole
// cleanup and textual assembly emission — everything that runs after
// internal/regalloc has bound every virtual to a physical register or a
// spill slot.
//
// Grounded on vslc/src/backend/riscv/function.go's genFunction (prologue/
// epilogue and stack-size accounting) and vslc/src/backend/riscv/
// expression.go's call-argument placement, replaced with the explicit
// two-phase sequencing spec.md §4.6 and SPEC_FULL.md §13 describe rather
// than the teacher's register-file-mediated placement.
package codegen

import (
	"strconv"

	"github.com/pkg/errors"

	"sysyrv/internal/regalloc"
	"sysyrv/internal/riscv"
	"sysyrv/internal/types"
)

// ExpandCalls rewrites every OpCall marker left in af into its full
// ABI-realized instruction sequence (spec.md §4.6, points 1-3), using
// res (the register assignment Rewrite already consumed) and liveAcross
// (regalloc.CallLiveAcross's per-call-site result, computed before
// Rewrite erased the virtual names it depends on).
func ExpandCalls(af *riscv.Function, res regalloc.Result, liveAcross map[int][]string) error {
	for _, b := range af.Blocks {
		var out []riscv.Instr
		for _, in := range b.Instrs {
			if in.Op != riscv.OpCall {
				out = append(out, in)
				continue
			}
			expanded, err := expandCall(af, in, res, liveAcross[in.CallSiteID])
			if err != nil {
				return errors.Wrapf(err, "function %q call site %d", af.Label, in.CallSiteID)
			}
			out = append(out, expanded...)
		}
		b.Instrs = out
	}
	af.RecomputeInsNum()
	return nil
}

// savedTemp is one caller-saved register that must survive expandCall's
// own call instruction, per spec.md §4.6.1.
type savedTemp struct {
	reg     riscv.Reg
	isFloat bool
}

func savedSlotName(r riscv.Reg) string { return "stored." + r.String() }

// callArgSlotName is the call-private scratch slot an argument's current
// value is captured into before any argument register is overwritten
// (spec.md §4.6.2's source/destination hazard, resolved per SPEC_FULL.md
// §13 via capture-then-place rather than precise invalid-register
// tracking).
func callArgSlotName(callSiteID, argIdx int) string {
	return "callarg." + itoaCodegen(callSiteID) + "." + itoaCodegen(argIdx)
}

func outgoingSlotName(k int) string { return "outgoing." + itoaCodegen(k) }

func expandCall(af *riscv.Function, in riscv.Instr, res regalloc.Result, live []string) ([]riscv.Instr, error) {
	var out []riscv.Instr

	// 1. Save every caller-saved register alive across the call: the temps,
	// plus any argument register the allocator handed to a virtual (those
	// are clobbered twice over, by the callee and by our own argument
	// placement below).
	var saves []savedTemp
	for _, name := range live {
		reg, ok := res.Resolve(name)
		if !ok || !riscv.IsCallerSaved(reg) {
			continue
		}
		saves = append(saves, savedTemp{reg: reg, isFloat: reg.IsFloat()})
	}
	for _, sv := range saves {
		slot := savedSlotName(sv.reg)
		af.Stack.AddNormal(slot, 8)
		op, width := riscv.OpStore, 8
		if sv.isFloat {
			op, width = riscv.OpFStore, 4
		}
		out = append(out, riscv.Instr{Op: op, Rs1: sv.reg, StackSlot: slot, Width: width, Float: sv.isFloat})
	}

	// 2. Capture every argument's current value before any argument
	// register is written, then work out where each one is headed.
	type placement struct {
		captureSlot string
		isFloat     bool
		target      riscv.Reg
		toStack     bool
		stackSlot   string
	}
	var placements []placement
	intIdx, floatIdx, overflowIdx := 0, 0, 0
	for i, argName := range in.CallArgs {
		isFloat := in.CallArgTypes[i] == types.Float
		capSlot := callArgSlotName(in.CallSiteID, i)
		af.Stack.AddNormal(capSlot, 8)

		if reg, ok := res.Resolve(argName); ok {
			op, width := riscv.OpStore, 8
			if isFloat {
				op, width = riscv.OpFStore, 4
			}
			out = append(out, riscv.Instr{Op: op, Rs1: reg, StackSlot: capSlot, Width: width, Float: isFloat})
		} else {
			scratch, ld, st, width := riscv.PreservedI0, riscv.OpLoad, riscv.OpStore, 8
			if isFloat {
				scratch, ld, st, width = riscv.PreservedF0, riscv.OpFLoad, riscv.OpFStore, 4
			}
			out = append(out, riscv.Instr{Op: ld, Rd: scratch, StackSlot: regalloc.SpillSlotName(argName), Width: width, Float: isFloat})
			out = append(out, riscv.Instr{Op: st, Rs1: scratch, StackSlot: capSlot, Width: width, Float: isFloat})
		}

		p := placement{captureSlot: capSlot, isFloat: isFloat}
		switch {
		case isFloat && floatIdx < 8:
			p.target = riscv.AAf[floatIdx]
			floatIdx++
		case !isFloat && intIdx < 8:
			p.target = riscv.AAi[intIdx]
			intIdx++
		default:
			p.toStack = true
			p.stackSlot = outgoingSlotName(overflowIdx)
			af.Stack.AddOutgoing(p.stackSlot, 8)
			overflowIdx++
		}
		placements = append(placements, p)
	}

	// 3. Place every captured argument into its final register or
	// outgoing stack slot. Order no longer matters: step 2 already read
	// every source before any destination here gets written.
	for _, p := range placements {
		ld, width := riscv.OpLoad, 8
		if p.isFloat {
			ld, width = riscv.OpFLoad, 4
		}
		if p.toStack {
			scratch, st := riscv.PreservedI0, riscv.OpStore
			if p.isFloat {
				scratch, st = riscv.PreservedF0, riscv.OpFStore
			}
			out = append(out, riscv.Instr{Op: ld, Rd: scratch, StackSlot: p.captureSlot, Width: width, Float: p.isFloat})
			out = append(out, riscv.Instr{Op: st, Rs1: scratch, StackSlot: p.stackSlot, Width: width, Float: p.isFloat})
		} else {
			out = append(out, riscv.Instr{Op: ld, Rd: p.target, StackSlot: p.captureSlot, Width: width, Float: p.isFloat})
		}
	}

	// 4. The call itself.
	out = append(out, riscv.Instr{Op: riscv.OpCall, Sym: in.Sym})

	// 5. Receive the return value.
	if in.CallResult != "" {
		retReg, resultFloat := riscv.AAi[0], in.CallResultTy == types.Float
		if resultFloat {
			retReg = riscv.AAf[0]
		}
		if reg, ok := res.Resolve(in.CallResult); ok {
			if reg != retReg {
				out = append(out, riscv.Instr{Op: riscv.OpMv, Rd: reg, Rs1: retReg, Float: resultFloat})
			}
		} else {
			op, width := riscv.OpStore, 8
			if resultFloat {
				op, width = riscv.OpFStore, 4
			}
			out = append(out, riscv.Instr{Op: op, Rs1: retReg, StackSlot: regalloc.SpillSlotName(in.CallResult), Width: width, Float: resultFloat})
		}
	}

	// 6. Restore saved temporaries, in reverse order.
	for i := len(saves) - 1; i >= 0; i-- {
		sv := saves[i]
		op, width := riscv.OpLoad, 8
		if sv.isFloat {
			op, width = riscv.OpFLoad, 4
		}
		out = append(out, riscv.Instr{Op: op, Rd: sv.reg, StackSlot: savedSlotName(sv.reg), Width: width, Float: sv.isFloat})
	}
	return out, nil
}

func itoaCodegen(n int) string { return strconv.Itoa(n) }
