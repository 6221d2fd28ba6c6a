package ir

import (
	"github.com/pkg/errors"

	"sysyrv/internal/types"
)

// Block is one basic block: a label, an ordered instruction list with at
// most one terminator, a cumulative instruction count, and a loop depth
// (spec.md §3). Grounded on vslc/src/ir/lir/block.go's fluent CreateXxx
// builder surface, generalized to push a single tagged Instr instead of one
// struct type per opcode.
type Block struct {
	Label     string
	Instrs    []Instr
	LoopDepth int

	// InsNum is the count of instructions in all earlier blocks of the same
	// function (spec.md §3), used as the function-monotone pre-depth-first
	// numbering scheme that SPEC_FULL.md §13 confines to §4.3's own pass.
	InsNum int
}

// NewBlock returns an empty block with the given label.
func NewBlock(label string, loopDepth int) *Block {
	return &Block{Label: label, LoopDepth: loopDepth}
}

// Terminator returns the block's terminator instruction, or nil if the
// block does not yet have one.
func (b *Block) Terminator() *Instr {
	if n := len(b.Instrs); n > 0 && b.Instrs[n-1].IsTerminator() {
		return &b.Instrs[n-1]
	}
	return nil
}

// push appends in, enforcing the invariant that at most one terminator may
// be pushed and that no further instruction may follow it (spec.md §7
// "Lowering invariant violation").
func (b *Block) push(in Instr) error {
	if b.Terminator() != nil {
		return errors.Errorf("block %q: attempted to push onto a block that already has a terminator", b.Label)
	}
	b.Instrs = append(b.Instrs, in)
	return nil
}

func (b *Block) mustPush(in Instr) {
	if err := b.push(in); err != nil {
		panic(err)
	}
}

// CreateBinOp appends a binary arithmetic instruction (add/sub/mul/div/rem)
// defining dst with the given result width.
func (b *Block) CreateBinOp(op Op, dst, x, y string, t types.Width) {
	b.mustPush(Instr{Op: op, Dst: dst, Type: t, X: x, Y: y})
}

// CreateICmp/CreateFCmp append an integer/float comparison, always
// producing an i1 result.
func (b *Block) CreateICmp(dst string, cond Cond, x, y string) {
	b.mustPush(Instr{Op: OpICmp, Dst: dst, Type: types.I1, Cond: cond, X: x, Y: y})
}

func (b *Block) CreateFCmp(dst string, cond Cond, x, y string) {
	b.mustPush(Instr{Op: OpFCmp, Dst: dst, Type: types.I1, Cond: cond, X: x, Y: y})
}

// CreateSitofp/CreateFptosi/CreateZext append a conversion instruction.
func (b *Block) CreateSitofp(dst, x string) {
	b.mustPush(Instr{Op: OpSitofp, Dst: dst, Type: types.Float, X: x})
}

func (b *Block) CreateFptosi(dst, x string) {
	b.mustPush(Instr{Op: OpFptosi, Dst: dst, Type: types.I32, X: x})
}

func (b *Block) CreateZext(dst, x string) {
	b.mustPush(Instr{Op: OpZext, Dst: dst, Type: types.I32, X: x})
}

// CreatePhi appends a phi instruction merging the given incoming edges.
func (b *Block) CreatePhi(dst string, t types.Width, incoming []PhiEdge) {
	b.mustPush(Instr{Op: OpPhi, Dst: dst, Type: t, Incoming: incoming})
}

// CreateLoad appends a load from pointer x.
func (b *Block) CreateLoad(dst string, t types.Width, x string) {
	b.mustPush(Instr{Op: OpLoad, Dst: dst, Type: t, X: x})
}

// CreateStore appends a store of value x into pointer y.
func (b *Block) CreateStore(t types.Width, x, y string) {
	b.mustPush(Instr{Op: OpStore, Type: t, X: x, Y: y})
}

// CreateGEP appends a get-element-pointer computing an address into base x
// (of element type elem) using the given index operands; remaining holds
// the sub-array dims left after this indexing step (spec.md §4.2 lvalue
// rule).
func (b *Block) CreateGEP(dst string, elem types.SymType, x string, indices []string, remaining []int) {
	b.mustPush(Instr{Op: OpGEP, Dst: dst, Elem: elem, X: x, Args: indices, Dims: remaining})
}

// CreateBitcast appends a bitcast of pointer x.
func (b *Block) CreateBitcast(dst string, x string) {
	b.mustPush(Instr{Op: OpBitcast, Dst: dst, X: x})
}

// CreateCall appends a call to callee with the given typed arguments,
// optionally defining dst (dst == "" for a void call or a discarded
// result).
func (b *Block) CreateCall(dst string, t types.Width, callee string, args []string, argTypes []types.Width) {
	b.mustPush(Instr{Op: OpCall, Dst: dst, Type: t, Callee: callee, Args: args, ArgTypes: argTypes})
}

// CreateRet appends a return terminator; x == "" for a void return.
func (b *Block) CreateRet(t types.Width, x string) error {
	return b.push(Instr{Op: OpRet, Type: t, X: x})
}

// CreateBr appends an unconditional branch terminator to target.
func (b *Block) CreateBr(target string) error {
	return b.push(Instr{Op: OpBr, Targets: []string{target}})
}

// CreateCondBr appends a conditional branch terminator on cond, branching
// to then when cond is non-zero and to els otherwise.
func (b *Block) CreateCondBr(cond, then, els string) error {
	return b.push(Instr{Op: OpBr, X: cond, Targets: []string{then, els}})
}

// CreateComment appends a non-semantic comment instruction.
func (b *Block) CreateComment(text string) {
	b.mustPush(Instr{Op: OpComment, Text: text})
}
