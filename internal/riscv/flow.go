package riscv

// VFlow reports the virtual-register def/use shape of in, per spec.md
// §4.3's flow_info generalized to the machine-instruction level: the name
// in defines (or "" if none) and every virtual name it reads. Stack-slot
// and symbol operands are not virtual registers and are excluded; OpCall's
// argument list is included as reads, its result as the def.
func (in *Instr) VFlow() (def string, uses []string) {
	if in.VSrc1 != "" {
		uses = append(uses, in.VSrc1)
	}
	if in.VSrc2 != "" {
		uses = append(uses, in.VSrc2)
	}
	if in.Op == OpCall {
		uses = append(uses, in.CallArgs...)
		return in.CallResult, uses
	}
	return in.VDst, uses
}

// OperandIsFloat reports whether the given operand position of in draws
// from the float register file, overriding the instruction's blanket Float
// flag for the opcodes that mix classes: conversions and bit-moves read
// one file and write the other, float comparisons read floats but write an
// integer i1, and a load/store address operand is always an integer
// regardless of the value moved.
func (in *Instr) OperandIsFloat(isDst, isSrc2 bool) bool {
	switch in.Op {
	case OpFcvtSW, OpFmvWX: // int -> float
		return isDst
	case OpFcvtWS, OpFmvXW: // float -> int
		return !isDst
	case OpFeqS, OpFltS, OpFleS: // float operands, i1 result
		return !isDst
	case OpLoad, OpFLoad:
		if !isDst { // the address operand (Src1) is always integer.
			return false
		}
		return in.Float
	case OpStore, OpFStore:
		if isSrc2 { // the address operand is always integer.
			return false
		}
		return in.Float
	case OpCall:
		if isDst {
			return in.Float
		}
		return false
	default:
		return in.Float
	}
}
