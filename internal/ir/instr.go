// Package ir implements the typed SSA-like linear intermediate
// representation described in spec.md §3-4: a program of global values and
// function definitions, each function an ordered list of basic blocks, each
// block an ordered list of instructions with at most one terminator.
//
// Per spec.md §9 Design Notes ("Multiple parallel struct definitions"), the
// teacher repo (vslc/src/ir/lir) defines the instruction and value model
// twice over (ir/lir/lir.go's Value interface vs. ir/lir/value.go's slightly
// different Value interface, with one struct type per opcode implementing
// either). That duplication is not reused here: this package defines exactly
// one Instr type, a tagged union over Op, matching the Design Note's
// recommendation directly.
package ir

import "sysyrv/internal/types"

// Op is the IR opcode, the tag of the Instr union.
type Op int

const (
	// Arithmetic (operate on an i32 or i64 or Float pair in X, Y).
	OpAdd Op = iota
	OpSub
	OpMul
	OpDiv
	OpRem

	// Comparisons. Cond discriminates the predicate; X, Y are operands.
	// Result is always i1.
	OpICmp
	OpFCmp

	// Conversions.
	OpSitofp // signed-int-to-float widening of X
	OpFptosi // float-to-signed-int truncation (round toward zero) of X
	OpZext   // i1 -> i32 zero extension of X

	// Control-flow merge (used only when config.UsePhi is true).
	OpPhi

	// Memory.
	OpAlloca
	OpLoad
	OpStore
	OpGEP
	OpBitcast

	// Calls.
	OpCall

	// Terminators.
	OpRet
	OpBr // unconditional (Targets[0]) or conditional (X!="" , Targets[0]=then, Targets[1]=else)

	// Non-semantic.
	OpComment
)

// Cond is an icmp/fcmp predicate.
type Cond int

const (
	CondEq Cond = iota
	CondNe
	CondLt
	CondLe
	CondGt
	CondGe
)

// String renders the predicate the way the textual IR prints it.
func (c Cond) String() string {
	switch c {
	case CondEq:
		return "eq"
	case CondNe:
		return "ne"
	case CondLt:
		return "lt"
	case CondLe:
		return "le"
	case CondGt:
		return "gt"
	case CondGe:
		return "ge"
	default:
		return "?"
	}
}

// PhiEdge is one (value, predecessor-block) pair of a phi instruction.
type PhiEdge struct {
	Value string
	Block string
}

// Instr is the single IR instruction type (spec.md §9: "define exactly one
// IR instruction type"). Only the fields relevant to Op are meaningful; the
// rest are zero. Dst is the defined SSA/local name, or "" if the
// instruction defines nothing (store, call-without-result, terminators,
// comment).
type Instr struct {
	Op   Op
	Dst  string
	Type types.Width // result/operand width, as relevant to Op

	X, Y string // primary operand names

	Cond Cond // OpICmp / OpFCmp

	Callee   string
	Args     []string
	ArgTypes []types.Width

	Incoming []PhiEdge // OpPhi

	Targets []string // OpBr: [then] or [then, else]

	Elem types.SymType // OpAlloca: allocated type; OpGEP: base element type
	Dims []int          // OpGEP: remaining sub-array dims after indexing so far

	Text string // OpComment

	// Num is a slot for this instruction's position within its function.
	// No pass assigns it, so it stays zero; §4.5 liveness numbers the
	// selected riscv instructions instead.
	Num int
}

// IsTerminator reports whether this instruction ends a block.
func (in *Instr) IsTerminator() bool {
	return in.Op == OpRet || in.Op == OpBr
}

// FlowInfo returns (selfLabel, usedLabels) per spec.md §4.3: selfLabel is
// the name this instruction defines (empty if none), usedLabels are every
// operand name it reads. Instructions that must always execute regardless
// of whether their result is used (stores to a global pointer, calls,
// gep, terminators) report an empty selfLabel so they always root
// liveness, matching "self_label = None" in the spec.
func (in *Instr) FlowInfo() (selfLabel string, used []string) {
	switch in.Op {
	case OpAdd, OpSub, OpMul, OpDiv, OpRem, OpICmp, OpFCmp:
		return in.Dst, []string{in.X, in.Y}
	case OpSitofp, OpFptosi, OpZext, OpBitcast:
		return in.Dst, []string{in.X}
	case OpPhi:
		used = make([]string, 0, len(in.Incoming))
		for _, e := range in.Incoming {
			used = append(used, e.Value)
		}
		return in.Dst, used
	case OpAlloca:
		return in.Dst, nil
	case OpLoad:
		return in.Dst, []string{in.X}
	case OpStore:
		// A store through a global pointer is externally observable and
		// always roots liveness. A store to a local is defined by its
		// pointer name: it stays live only while something still reads
		// that pointer, so a never-reloaded local store is dead code.
		if len(in.Y) > 0 && in.Y[0] == '@' {
			return "", []string{in.X, in.Y}
		}
		return in.Y, []string{in.X, in.Y}
	case OpGEP:
		// Always rooted; the result name rides along in the used set so a
		// store through it keeps its definer chain alive.
		used = append([]string{in.X, in.Dst}, in.Args...)
		return "", used
	case OpCall:
		// Calls always execute regardless of whether Dst is read.
		return "", append([]string{}, in.Args...)
	case OpRet:
		if in.X == "" {
			return "", nil
		}
		return "", []string{in.X}
	case OpBr:
		if in.X == "" {
			return "", nil
		}
		return "", []string{in.X}
	case OpComment:
		return "", nil
	default:
		return "", nil
	}
}
