// Package sel implements spec.md §4.4: lowering the typed IR to the
// RV64IMFD machine instruction model in internal/riscv, one function at a
// time, producing virtual-register operands that internal/regalloc later
// assigns to physical registers.
//
// Grounded on vslc/src/backend/riscv/expression.go and function.go (the
// per-opcode emission rules) and vslc/src/backend/asm.go (the
// per-function driver), replaced here with one instruction-selection
// entry point over the single ir.Instr/riscv.Instr union types (spec.md
// §9).
package sel

import (
	"math"
	"math/bits"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"sysyrv/internal/config"
	"sysyrv/internal/ir"
	"sysyrv/internal/riscv"
	"sysyrv/internal/types"
)

// Select lowers an entire IR program to a riscv.Program.
func Select(prog *ir.Program, opt config.Options) (*riscv.Program, error) {
	log := opt.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	out := riscv.NewProgram()
	pool := riscv.NewFloatImmPool()

	for _, g := range prog.Globals {
		selectGlobal(out, g)
	}

	for _, fn := range prog.Functions {
		log.WithField("func", fn.Name).Debug("select: enter")
		af, err := selectFunction(fn, pool)
		if err != nil {
			return nil, errors.Wrapf(err, "selecting function %q", fn.Name)
		}
		out.Funcs = append(out.Funcs, af)
	}
	out.Rodata = append(out.Rodata, pool.Entries()...)
	return out, nil
}

func selectGlobal(out *riscv.Program, g *ir.Global) {
	switch g.Kind {
	case ir.GlobalScalar:
		word := symvalWord(g.Scalar, g.Type.Width)
		out.Data = append(out.Data, riscv.DataEntry{Name: symName(g.Name), Words: []uint32{word}})
	case ir.GlobalArray:
		words := make([]uint32, len(g.Elems))
		for i, e := range g.Elems {
			words[i] = symvalWord(e, g.Type.Elem.Width)
		}
		out.Data = append(out.Data, riscv.DataEntry{Name: symName(g.Name), Words: words})
	case ir.GlobalExternFunc:
		// Nothing to emit; extern functions are referenced by name only.
	}
}

func symvalWord(v types.SymVal, w types.Width) uint32 {
	if w == types.Float {
		return math.Float32bits(float32(v.AsFloat64()))
	}
	return uint32(v.AsInt32())
}

func symName(irName string) string { return strings.TrimPrefix(irName, "@") }

// selFunc carries the mutable per-function selection state.
type selFunc struct {
	ir   *ir.Function
	af   *riscv.Function
	pool *riscv.FloatImmPool

	intArgIdx, floatArgIdx int // registration counters while binding params
	paramIsArgReg          map[string]riscv.Reg
	paramOverflow          map[string]int // name -> overflow slot index beyond the 8 register args

	tmpSeq   int
	callSeq  int // monotonic per-function call-site counter
	curBlock int // index of the block currently being selected
}

func (s *selFunc) freshVirtual() string {
	n := s.tmpSeq
	s.tmpSeq++
	return "%k" + strconvItoa(n)
}

func strconvItoa(n int) string { return strconv.Itoa(n) }

func selectFunction(fn *ir.Function, pool *riscv.FloatImmPool) (*riscv.Function, error) {
	af := riscv.NewFunction(fn.Name, fn.ReturnType)
	s := &selFunc{ir: fn, af: af, pool: pool,
		paramIsArgReg: make(map[string]riscv.Reg),
		paramOverflow: make(map[string]int),
	}

	// Overflow slots interleave by source argument position, not by class,
	// matching the caller's outgoing-slot assignment in call expansion.
	overflow := 0
	for i, p := range fn.Params {
		af.LabelType["%arg"+strconvItoa(i)] = p.Type
		if p.IsArray {
			// A decayed array parameter is a pointer: integer register,
			// pointer width.
			af.LabelType["%arg"+strconvItoa(i)] = types.I64
		}
		if p.Type == types.Float && !p.IsArray {
			if s.floatArgIdx < 8 {
				s.paramIsArgReg["%arg"+strconvItoa(i)] = riscv.AAf[s.floatArgIdx]
			} else {
				s.paramOverflow["%arg"+strconvItoa(i)] = overflow
				overflow++
			}
			af.Params[p.Name] = s.floatArgIdx
			s.floatArgIdx++
		} else {
			if s.intArgIdx < 8 {
				s.paramIsArgReg["%arg"+strconvItoa(i)] = riscv.AAi[s.intArgIdx]
			} else {
				s.paramOverflow["%arg"+strconvItoa(i)] = overflow
				overflow++
			}
			af.Params[p.Name] = s.intArgIdx
			s.intArgIdx++
		}
	}

	for _, lv := range fn.Locals {
		size := lv.Elem.Bytes()
		if lv.Elem.PointerDecayed() {
			size = 8 // the slot holds the decayed pointer, not the array
		}
		af.Stack.AddNormal(lv.Name, size)
		af.LabelType[lv.Name] = lv.Elem.Width
	}
	for i := range fn.Params {
		if k, ok := s.paramOverflow["%arg"+strconvItoa(i)]; ok {
			af.Stack.AddParam(overflowParamSlotName(k), 8)
		}
	}

	for bi, b := range fn.Blocks {
		s.curBlock = bi
		ab := &riscv.Block{Label: fn.Name + "." + b.Label}
		if term := b.Terminator(); term != nil && term.Op == ir.OpBr {
			ab.Successors = append(ab.Successors, term.Targets...)
		}
		for _, in := range b.Instrs {
			if err := s.selectInstr(ab, in); err != nil {
				return nil, err
			}
		}
		af.Blocks = append(af.Blocks, ab)
	}
	af.RecomputeInsNum()
	return af, nil
}

func overflowParamSlotName(k int) string { return "incoming_arg." + strconvItoa(k) }

// emit appends a raw instruction to the block being built.
func emit(ab *riscv.Block, in riscv.Instr) {
	ab.Instrs = append(ab.Instrs, in)
}

// ---------------------------------------------------------------------
// Operand materialization
// ---------------------------------------------------------------------

func isLocalName(name string) bool { return len(name) > 0 && name[0] == '%' && !isArgName(name) && !isNumericTempName(name) }

func isArgName(name string) bool { return strings.HasPrefix(name, "%arg") }

func isNumericTempName(name string) bool {
	if len(name) < 2 || name[0] != '%' {
		return false
	}
	for _, c := range name[1:] {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func isGlobalName(name string) bool { return len(name) > 0 && name[0] == '@' }

func isLiteral(name string) bool { return name != "" && name[0] != '%' && name[0] != '@' }

// loadScalarOperand materializes an IR scalar operand (numeric temp,
// literal, parameter-register pseudo, or named local holding a scalar) as
// a virtual register, emitting whatever instruction is needed, and returns
// that register's virtual name.
func (s *selFunc) loadScalarOperand(ab *riscv.Block, name string, want types.Width) string {
	switch {
	case isLiteral(name):
		dst := s.freshVirtual()
		s.materializeImmediate(ab, dst, name, want)
		return dst
	case isArgName(name):
		if reg, ok := s.paramIsArgReg[name]; ok {
			dst := s.freshVirtual()
			emit(ab, riscv.Instr{Op: riscv.OpMv, VDst: dst, Rs1: reg, Float: want == types.Float})
			return dst
		}
		// Overflow incoming parameter: load from its stack slot.
		k := s.paramOverflow[name]
		dst := s.freshVirtual()
		op := riscv.OpLoad
		if want == types.Float {
			op = riscv.OpFLoad
		}
		emit(ab, riscv.Instr{Op: op, VDst: dst, StackSlot: overflowParamSlotName(k), Width: want.Bytes(), Float: want == types.Float})
		return dst
	case isGlobalName(name):
		addr := s.freshVirtual()
		emit(ab, riscv.Instr{Op: riscv.OpLa, VDst: addr, Sym: symName(name)})
		dst := s.freshVirtual()
		op := riscv.OpLoad
		if want == types.Float {
			op = riscv.OpFLoad
		}
		emit(ab, riscv.Instr{Op: op, VDst: dst, VSrc1: addr, Width: want.Bytes(), Float: want == types.Float})
		return dst
	default:
		// Already a numeric-temp virtual register.
		return name
	}
}

// materializeImmediate emits the li/la+flw sequence that loads literal
// into dst at the given width (spec.md §4.4: integer immediates via li;
// float immediates via the rodata pool).
func (s *selFunc) materializeImmediate(ab *riscv.Block, dst, lexeme string, want types.Width) {
	if want == types.Float || strings.HasPrefix(lexeme, "0x") && len(lexeme) == 18 {
		v, err := types.ParseFloatLiteral(lexeme)
		if err != nil {
			v = types.SymVal{Kind: types.ValFloat, Lexeme: lexeme}
		}
		bits32 := math.Float32bits(float32(v.AsFloat64()))
		sym := s.pool.Intern(bits32)
		addr := s.freshVirtual()
		emit(ab, riscv.Instr{Op: riscv.OpLa, VDst: addr, Sym: sym})
		emit(ab, riscv.Instr{Op: riscv.OpFLoad, VDst: dst, VSrc1: addr, Width: 4, Float: true})
		return
	}
	n, _ := strconv.ParseInt(lexeme, 10, 64)
	emit(ab, riscv.Instr{Op: riscv.OpLi, VDst: dst, Imm: n})
}

// ---------------------------------------------------------------------
// Pointer operand resolution: a pointer operand is either a numeric-temp
// virtual register, a named local (stack-slot), or a global.
// ---------------------------------------------------------------------

type ptrOperand struct {
	kind int // 0 = virtual reg, 1 = stack slot, 2 = global
	name string
}

const (
	ptrVirtual = iota
	ptrStack
	ptrGlobal
)

func classifyPtr(name string) ptrOperand {
	switch {
	case isGlobalName(name):
		return ptrOperand{ptrGlobal, symName(name)}
	case isLocalName(name):
		return ptrOperand{ptrStack, name}
	default:
		return ptrOperand{ptrVirtual, name}
	}
}

// ---------------------------------------------------------------------
// Per-opcode selection
// ---------------------------------------------------------------------

func (s *selFunc) selectInstr(ab *riscv.Block, in ir.Instr) error {
	switch in.Op {
	case ir.OpAdd, ir.OpSub:
		return s.selectAddSub(ab, in)
	case ir.OpMul:
		return s.selectMul(ab, in)
	case ir.OpDiv:
		return s.selectDiv(ab, in)
	case ir.OpRem:
		return s.selectRem(ab, in)
	case ir.OpICmp:
		return s.selectICmp(ab, in)
	case ir.OpFCmp:
		return s.selectFCmp(ab, in)
	case ir.OpSitofp:
		x := s.loadScalarOperand(ab, in.X, types.I32)
		emit(ab, riscv.Instr{Op: riscv.OpFcvtSW, VDst: in.Dst, VSrc1: x})
		s.af.LabelType[in.Dst] = types.Float
		return nil
	case ir.OpFptosi:
		x := s.loadScalarOperand(ab, in.X, types.Float)
		emit(ab, riscv.Instr{Op: riscv.OpFcvtWS, VDst: in.Dst, VSrc1: x})
		s.af.LabelType[in.Dst] = types.I32
		return nil
	case ir.OpZext:
		x := s.loadScalarOperand(ab, in.X, types.I1)
		emit(ab, riscv.Instr{Op: riscv.OpMv, VDst: in.Dst, VSrc1: x})
		s.af.LabelType[in.Dst] = types.I32
		return nil
	case ir.OpPhi:
		return s.selectPhi(ab, in)
	case ir.OpAlloca:
		// Allocas are hoisted to the function's local-var list and already
		// carry a stack slot; nothing to emit here.
		return nil
	case ir.OpLoad:
		return s.selectLoad(ab, in)
	case ir.OpStore:
		return s.selectStore(ab, in)
	case ir.OpGEP:
		return s.selectGEP(ab, in)
	case ir.OpBitcast:
		return s.selectBitcast(ab, in)
	case ir.OpCall:
		return s.selectCall(ab, in)
	case ir.OpRet:
		return s.selectRet(ab, in)
	case ir.OpBr:
		return s.selectBr(ab, in)
	case ir.OpComment:
		emit(ab, riscv.Instr{Op: riscv.OpComment, Comment: in.Text})
		return nil
	default:
		return errors.Errorf("select: unhandled IR opcode %d", in.Op)
	}
}

// selectPhi is only reachable when the IR was lowered with phi-node merges
// (config.UsePhi true). The assembly path has no parallel-copy resolution;
// generating machine code from phi-bearing IR requires the alternate
// alloca+load+store lowering mode instead, so a phi here is an
// unsupported-construct error (spec.md §7).
func (s *selFunc) selectPhi(ab *riscv.Block, in ir.Instr) error {
	return errors.Errorf("select: phi %s reached assembly selection; lower with phi merges disabled to generate assembly", in.Dst)
}

func parseSmallImm(lexeme string) (int64, bool) {
	if !isLiteral(lexeme) {
		return 0, false
	}
	n, err := strconv.ParseInt(lexeme, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, n >= -2048 && n <= 2047
}

func (s *selFunc) selectAddSub(ab *riscv.Block, in ir.Instr) error {
	if in.Type == types.Float {
		x := s.loadScalarOperand(ab, in.X, types.Float)
		y := s.loadScalarOperand(ab, in.Y, types.Float)
		op := riscv.OpAdd
		if in.Op == ir.OpSub {
			op = riscv.OpSub
		}
		emit(ab, riscv.Instr{Op: op, VDst: in.Dst, VSrc1: x, VSrc2: y, Float: true})
		s.af.LabelType[in.Dst] = types.Float
		return nil
	}

	// Immediate-range optimization (spec.md §4.4 selection table).
	if imm, ok := parseSmallImm(in.Y); ok {
		x := s.loadScalarOperand(ab, in.X, in.Type)
		if in.Op == ir.OpSub {
			imm = -imm
		}
		emit(ab, riscv.Instr{Op: riscv.OpAddi, VDst: in.Dst, VSrc1: x, Imm: imm})
		s.af.LabelType[in.Dst] = in.Type
		return nil
	}
	x := s.loadScalarOperand(ab, in.X, in.Type)
	y := s.loadScalarOperand(ab, in.Y, in.Type)
	op := riscv.OpAdd
	if in.Op == ir.OpSub {
		op = riscv.OpSub
	}
	emit(ab, riscv.Instr{Op: op, VDst: in.Dst, VSrc1: x, VSrc2: y})
	s.af.LabelType[in.Dst] = in.Type
	return nil
}

func (s *selFunc) selectMul(ab *riscv.Block, in ir.Instr) error {
	if in.Type == types.Float {
		x := s.loadScalarOperand(ab, in.X, types.Float)
		y := s.loadScalarOperand(ab, in.Y, types.Float)
		emit(ab, riscv.Instr{Op: riscv.OpMul, VDst: in.Dst, VSrc1: x, VSrc2: y, Float: true})
		s.af.LabelType[in.Dst] = types.Float
		return nil
	}
	if imm, ok := parseSmallImm(in.Y); ok {
		if shift, neg, isPow2 := powerOfTwo(imm); isPow2 {
			x := s.loadScalarOperand(ab, in.X, in.Type)
			dst := in.Dst
			if neg {
				dst = s.freshVirtual()
			}
			emit(ab, riscv.Instr{Op: riscv.OpSlli, VDst: dst, VSrc1: x, Imm: int64(shift)})
			if neg {
				emit(ab, riscv.Instr{Op: riscv.OpNeg, VDst: in.Dst, VSrc1: dst})
			}
			s.af.LabelType[in.Dst] = in.Type
			return nil
		}
	}
	x := s.loadScalarOperand(ab, in.X, in.Type)
	y := s.loadScalarOperand(ab, in.Y, in.Type)
	emit(ab, riscv.Instr{Op: riscv.OpMul, VDst: in.Dst, VSrc1: x, VSrc2: y})
	s.af.LabelType[in.Dst] = in.Type
	return nil
}

// powerOfTwo reports whether imm's absolute value is 2^k (k>=0), returning
// the shift amount and whether imm itself was negative.
func powerOfTwo(imm int64) (shift int, neg bool, ok bool) {
	if imm == 0 {
		return 0, false, false
	}
	n := imm
	if n < 0 {
		neg = true
		n = -n
	}
	if n&(n-1) != 0 {
		return 0, false, false
	}
	return bits.TrailingZeros64(uint64(n)), neg, true
}

func (s *selFunc) selectDiv(ab *riscv.Block, in ir.Instr) error {
	if in.Type == types.Float {
		x := s.loadScalarOperand(ab, in.X, types.Float)
		y := s.loadScalarOperand(ab, in.Y, types.Float)
		emit(ab, riscv.Instr{Op: riscv.OpDiv, VDst: in.Dst, VSrc1: x, VSrc2: y, Float: true})
		s.af.LabelType[in.Dst] = types.Float
		return nil
	}
	if imm, ok := parseSmallImm(in.Y); ok {
		if shift, neg, isPow2 := powerOfTwo(imm); isPow2 && shift > 0 {
			// Signed division by a power of two: add the sign-bit bias
			// before the arithmetic shift (spec.md §4.4 table).
			x := s.loadScalarOperand(ab, in.X, in.Type)
			bias := s.freshVirtual()
			emit(ab, riscv.Instr{Op: riscv.OpSrai, VDst: bias, VSrc1: x, Imm: 31})
			biasShifted := s.freshVirtual()
			emit(ab, riscv.Instr{Op: riscv.OpSrli, VDst: biasShifted, VSrc1: bias, Imm: int64(32 - shift)})
			biased := s.freshVirtual()
			emit(ab, riscv.Instr{Op: riscv.OpAdd, VDst: biased, VSrc1: x, VSrc2: biasShifted})
			dst := in.Dst
			if neg {
				dst = s.freshVirtual()
			}
			emit(ab, riscv.Instr{Op: riscv.OpSrai, VDst: dst, VSrc1: biased, Imm: int64(shift)})
			if neg {
				emit(ab, riscv.Instr{Op: riscv.OpNeg, VDst: in.Dst, VSrc1: dst})
			}
			s.af.LabelType[in.Dst] = in.Type
			return nil
		}
	}
	x := s.loadScalarOperand(ab, in.X, in.Type)
	y := s.loadScalarOperand(ab, in.Y, in.Type)
	emit(ab, riscv.Instr{Op: riscv.OpDiv, VDst: in.Dst, VSrc1: x, VSrc2: y})
	s.af.LabelType[in.Dst] = in.Type
	return nil
}

func (s *selFunc) selectRem(ab *riscv.Block, in ir.Instr) error {
	x := s.loadScalarOperand(ab, in.X, in.Type)
	y := s.loadScalarOperand(ab, in.Y, in.Type)
	emit(ab, riscv.Instr{Op: riscv.OpRem, VDst: in.Dst, VSrc1: x, VSrc2: y, Float: in.Type == types.Float})
	s.af.LabelType[in.Dst] = in.Type
	return nil
}

func (s *selFunc) selectICmp(ab *riscv.Block, in ir.Instr) error {
	x := s.loadScalarOperand(ab, in.X, types.I32)
	y := s.loadScalarOperand(ab, in.Y, types.I32)
	switch in.Cond {
	case ir.CondEq:
		d := s.freshVirtual()
		emit(ab, riscv.Instr{Op: riscv.OpSub, VDst: d, VSrc1: x, VSrc2: y})
		emit(ab, riscv.Instr{Op: riscv.OpSeqz, VDst: in.Dst, VSrc1: d})
	case ir.CondNe:
		d := s.freshVirtual()
		emit(ab, riscv.Instr{Op: riscv.OpSub, VDst: d, VSrc1: x, VSrc2: y})
		emit(ab, riscv.Instr{Op: riscv.OpSnez, VDst: in.Dst, VSrc1: d})
	case ir.CondLt:
		emit(ab, riscv.Instr{Op: riscv.OpSlt, VDst: in.Dst, VSrc1: x, VSrc2: y})
	case ir.CondGt:
		emit(ab, riscv.Instr{Op: riscv.OpSlt, VDst: in.Dst, VSrc1: y, VSrc2: x})
	case ir.CondLe:
		d := s.freshVirtual()
		emit(ab, riscv.Instr{Op: riscv.OpSlt, VDst: d, VSrc1: y, VSrc2: x})
		emit(ab, riscv.Instr{Op: riscv.OpXori, VDst: in.Dst, VSrc1: d, Imm: 1})
	case ir.CondGe:
		d := s.freshVirtual()
		emit(ab, riscv.Instr{Op: riscv.OpSlt, VDst: d, VSrc1: x, VSrc2: y})
		emit(ab, riscv.Instr{Op: riscv.OpXori, VDst: in.Dst, VSrc1: d, Imm: 1})
	default:
		return errors.Errorf("select: unknown icmp condition %v", in.Cond)
	}
	s.af.LabelType[in.Dst] = types.I1
	return nil
}

func (s *selFunc) selectFCmp(ab *riscv.Block, in ir.Instr) error {
	x := s.loadScalarOperand(ab, in.X, types.Float)
	y := s.loadScalarOperand(ab, in.Y, types.Float)
	switch in.Cond {
	case ir.CondEq:
		emit(ab, riscv.Instr{Op: riscv.OpFeqS, VDst: in.Dst, VSrc1: x, VSrc2: y})
	case ir.CondNe:
		d := s.freshVirtual()
		emit(ab, riscv.Instr{Op: riscv.OpFeqS, VDst: d, VSrc1: x, VSrc2: y})
		emit(ab, riscv.Instr{Op: riscv.OpXori, VDst: in.Dst, VSrc1: d, Imm: 1})
	case ir.CondLt:
		emit(ab, riscv.Instr{Op: riscv.OpFltS, VDst: in.Dst, VSrc1: x, VSrc2: y})
	case ir.CondGt:
		emit(ab, riscv.Instr{Op: riscv.OpFltS, VDst: in.Dst, VSrc1: y, VSrc2: x})
	case ir.CondLe:
		emit(ab, riscv.Instr{Op: riscv.OpFleS, VDst: in.Dst, VSrc1: x, VSrc2: y})
	case ir.CondGe:
		emit(ab, riscv.Instr{Op: riscv.OpFleS, VDst: in.Dst, VSrc1: y, VSrc2: x})
	default:
		return errors.Errorf("select: unknown fcmp condition %v", in.Cond)
	}
	s.af.LabelType[in.Dst] = types.I1
	return nil
}

func (s *selFunc) selectLoad(ab *riscv.Block, in ir.Instr) error {
	p := classifyPtr(in.X)
	width := in.Type.Bytes()
	isFloat := in.Type == types.Float
	switch p.kind {
	case ptrStack:
		op := riscv.OpLoad
		if isFloat {
			op = riscv.OpFLoad
		}
		emit(ab, riscv.Instr{Op: op, VDst: in.Dst, StackSlot: p.name, Width: width, Float: isFloat})
	case ptrGlobal:
		addr := s.freshVirtual()
		emit(ab, riscv.Instr{Op: riscv.OpLa, VDst: addr, Sym: p.name})
		op := riscv.OpLoad
		if isFloat {
			op = riscv.OpFLoad
		}
		emit(ab, riscv.Instr{Op: op, VDst: in.Dst, VSrc1: addr, Width: width, Float: isFloat})
	default:
		op := riscv.OpLoad
		if isFloat {
			op = riscv.OpFLoad
		}
		emit(ab, riscv.Instr{Op: op, VDst: in.Dst, VSrc1: p.name, Width: width, Float: isFloat})
	}
	s.af.LabelType[in.Dst] = in.Type
	return nil
}

func (s *selFunc) selectStore(ab *riscv.Block, in ir.Instr) error {
	isFloat := in.Type == types.Float
	val := s.loadScalarOperand(ab, in.X, in.Type)
	p := classifyPtr(in.Y)
	width := in.Type.Bytes()
	switch p.kind {
	case ptrStack:
		op := riscv.OpStore
		if isFloat {
			op = riscv.OpFStore
		}
		emit(ab, riscv.Instr{Op: op, VSrc1: val, StackSlot: p.name, Width: width, Float: isFloat})
	case ptrGlobal:
		addr := s.freshVirtual()
		emit(ab, riscv.Instr{Op: riscv.OpLa, VDst: addr, Sym: p.name})
		op := riscv.OpStore
		if isFloat {
			op = riscv.OpFStore
		}
		emit(ab, riscv.Instr{Op: op, VSrc1: val, VSrc2: addr, Width: width, Float: isFloat})
	default:
		op := riscv.OpStore
		if isFloat {
			op = riscv.OpFStore
		}
		emit(ab, riscv.Instr{Op: op, VSrc1: val, VSrc2: p.name, Width: width, Float: isFloat})
	}
	return nil
}

// selectGEP implements spec.md §4.4's getelementptr rule: start from the
// base pointer, multiply each index by the byte size of the remaining
// sub-array (strength-reduced to a shift when that size is a power of
// two), and add.
func (s *selFunc) selectGEP(ab *riscv.Block, in ir.Instr) error {
	p := classifyPtr(in.X)
	var baseReg string
	switch p.kind {
	case ptrStack:
		baseReg = s.freshVirtual()
		emit(ab, riscv.Instr{Op: riscv.OpAddi, VDst: baseReg, StackSlot: p.name, Imm: 0})
	case ptrGlobal:
		baseReg = s.freshVirtual()
		emit(ab, riscv.Instr{Op: riscv.OpLa, VDst: baseReg, Sym: p.name})
	default:
		baseReg = p.name
	}

	stride := in.Elem.Bytes()
	var idxLexeme string
	switch len(in.Args) {
	case 2:
		idxLexeme = in.Args[1]
	case 1:
		idxLexeme = in.Args[0]
	default:
		return errors.Errorf("select: gep with %d index operands", len(in.Args))
	}

	offsetReg := s.gepOffset(ab, idxLexeme, stride)
	if offsetReg == "" {
		// Constant-zero offset: the destination is just the base.
		emit(ab, riscv.Instr{Op: riscv.OpMv, VDst: in.Dst, VSrc1: baseReg})
	} else {
		emit(ab, riscv.Instr{Op: riscv.OpAdd, VDst: in.Dst, VSrc1: baseReg, VSrc2: offsetReg})
	}
	s.af.LabelType[in.Dst] = types.I64
	return nil
}

// gepOffset computes idx*stride into a fresh virtual register, strength
// reducing a power-of-two stride to a shift, and folding a literal index
// to a single li of the product when possible. Returns "" if the offset
// is the compile-time constant zero.
func (s *selFunc) gepOffset(ab *riscv.Block, idxLexeme string, stride int) string {
	if isLiteral(idxLexeme) {
		n, err := strconv.ParseInt(idxLexeme, 10, 64)
		if err == nil {
			total := n * int64(stride)
			if total == 0 {
				return ""
			}
			dst := s.freshVirtual()
			emit(ab, riscv.Instr{Op: riscv.OpLi, VDst: dst, Imm: total})
			return dst
		}
	}
	idx := s.loadScalarOperand(ab, idxLexeme, types.I32)
	if shift, neg, ok := powerOfTwo(int64(stride)); ok && !neg {
		if shift == 0 {
			return idx
		}
		dst := s.freshVirtual()
		emit(ab, riscv.Instr{Op: riscv.OpSlli, VDst: dst, VSrc1: idx, Imm: int64(shift)})
		return dst
	}
	strideReg := s.freshVirtual()
	emit(ab, riscv.Instr{Op: riscv.OpLi, VDst: strideReg, Imm: int64(stride)})
	dst := s.freshVirtual()
	emit(ab, riscv.Instr{Op: riscv.OpMul, VDst: dst, VSrc1: idx, VSrc2: strideReg})
	return dst
}

func (s *selFunc) selectBitcast(ab *riscv.Block, in ir.Instr) error {
	p := classifyPtr(in.X)
	switch p.kind {
	case ptrStack:
		emit(ab, riscv.Instr{Op: riscv.OpAddi, VDst: in.Dst, StackSlot: p.name, Imm: 0})
	case ptrGlobal:
		emit(ab, riscv.Instr{Op: riscv.OpLa, VDst: in.Dst, Sym: p.name})
	default:
		emit(ab, riscv.Instr{Op: riscv.OpMv, VDst: in.Dst, VSrc1: p.name})
	}
	s.af.LabelType[in.Dst] = types.I64
	return nil
}

// selectCall emits a marker instruction recording the call for deferred
// expansion (spec.md §4.4 "call"; the argument-passing/save realization
// happens at §4.6 call-site expansion time, after regalloc). The call's
// own arguments are pre-materialized into virtual registers here so the
// allocator sees them as ordinary uses.
func (s *selFunc) selectCall(ab *riscv.Block, in ir.Instr) error {
	args := make([]string, len(in.Args))
	for i, a := range in.Args {
		args[i] = s.loadScalarOperand(ab, a, in.ArgTypes[i])
	}
	id := s.callSeq
	s.callSeq++
	s.af.CallSites = append(s.af.CallSites, riscv.CallSite{ID: id, Block: s.curBlock, Index: len(ab.Instrs)})
	emit(ab, riscv.Instr{
		Op:           riscv.OpCall,
		Sym:          in.Callee,
		CallSiteID:   id,
		CallArgs:     args,
		CallArgTypes: in.ArgTypes,
		CallResult:   in.Dst,
		CallResultTy: in.Type,
		VDst:         in.Dst,
		Float:        in.Type == types.Float,
	})
	if in.Dst != "" {
		s.af.LabelType[in.Dst] = in.Type
	}
	return nil
}

func (s *selFunc) selectRet(ab *riscv.Block, in ir.Instr) error {
	if in.X == "" {
		emit(ab, riscv.Instr{Op: riscv.OpRet})
		return nil
	}
	val := s.loadScalarOperand(ab, in.X, in.Type)
	emit(ab, riscv.Instr{Op: riscv.OpRet, VSrc1: val, Float: in.Type == types.Float})
	return nil
}

func (s *selFunc) selectBr(ab *riscv.Block, in ir.Instr) error {
	if in.X == "" {
		emit(ab, riscv.Instr{Op: riscv.OpJ, Then: in.Targets[0]})
		return nil
	}
	cond := s.loadScalarOperand(ab, in.X, types.I1)
	// Branch to Targets[0] ("then") when cond != 0, else Targets[1]
	// ("else"); emission/peephole later elide the explicit jump to a
	// textually-following block (spec.md §4.4 "br").
	emit(ab, riscv.Instr{Op: riscv.OpBeq, VSrc1: cond, Cond: "ne", Then: in.Targets[0], Else: in.Targets[1]})
	return nil
}
