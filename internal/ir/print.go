package ir

import (
	"fmt"
	"strings"

	"sysyrv/internal/types"
)

// Print renders the program as the textual IR described informally by
// spec.md §8's "round-trip IR" testable property: an LLVM-flavored linear
// assembly used only by tests and -v debug dumps (the instruction-selection
// pass in §4.4 consumes the in-memory Program directly, never this text).
func (p *Program) Print() string {
	var sb strings.Builder
	for _, g := range p.Globals {
		sb.WriteString(g.print())
		sb.WriteByte('\n')
	}
	for _, fn := range p.Functions {
		sb.WriteString(fn.print())
		sb.WriteByte('\n')
	}
	return sb.String()
}

func (g *Global) print() string {
	switch g.Kind {
	case GlobalScalar:
		return fmt.Sprintf("global %s %s = %s", g.Type.String(), g.Name, g.Scalar.Lexeme)
	case GlobalArray:
		parts := make([]string, len(g.Elems))
		for i, e := range g.Elems {
			parts[i] = e.Lexeme
		}
		return fmt.Sprintf("global %s %s = [%s]", g.Type.String(), g.Name, strings.Join(parts, ", "))
	default:
		return fmt.Sprintf("declare %s", g.Name)
	}
}

func (f *Function) print() string {
	var sb strings.Builder
	params := make([]string, len(f.Params))
	for i, p := range f.Params {
		params[i] = fmt.Sprintf("%s %%arg%d", p.Type.String(), i)
	}
	fmt.Fprintf(&sb, "func %s(%s) %s {\n", f.Name, strings.Join(params, ", "), f.ReturnType.String())
	for _, lv := range f.Locals {
		fmt.Fprintf(&sb, "  alloca %s %s\n", lv.Elem.String(), lv.Name)
	}
	for _, b := range f.Blocks {
		sb.WriteString(b.print())
	}
	sb.WriteString("}\n")
	return sb.String()
}

func (b *Block) print() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s:\n", b.Label)
	for _, in := range b.Instrs {
		fmt.Fprintf(&sb, "  %s\n", in.print())
	}
	return sb.String()
}

func (in *Instr) print() string {
	def := ""
	if in.Dst != "" {
		def = in.Dst + " = "
	}
	switch in.Op {
	case OpAdd:
		return fmt.Sprintf("%s%sadd %s, %s", def, tyName(in.Type), in.X, in.Y)
	case OpSub:
		return fmt.Sprintf("%s%ssub %s, %s", def, tyName(in.Type), in.X, in.Y)
	case OpMul:
		return fmt.Sprintf("%s%smul %s, %s", def, tyName(in.Type), in.X, in.Y)
	case OpDiv:
		return fmt.Sprintf("%s%sdiv %s, %s", def, tyName(in.Type), in.X, in.Y)
	case OpRem:
		return fmt.Sprintf("%s%srem %s, %s", def, tyName(in.Type), in.X, in.Y)
	case OpICmp:
		return fmt.Sprintf("%sicmp %s %s, %s", def, in.Cond, in.X, in.Y)
	case OpFCmp:
		return fmt.Sprintf("%sfcmp %s %s, %s", def, in.Cond, in.X, in.Y)
	case OpSitofp:
		return fmt.Sprintf("%ssitofp %s", def, in.X)
	case OpFptosi:
		return fmt.Sprintf("%sfptosi %s", def, in.X)
	case OpZext:
		return fmt.Sprintf("%szext %s", def, in.X)
	case OpPhi:
		parts := make([]string, len(in.Incoming))
		for i, e := range in.Incoming {
			parts[i] = fmt.Sprintf("[%s, %s]", e.Value, e.Block)
		}
		return fmt.Sprintf("%sphi %s %s", def, tyName(in.Type), strings.Join(parts, ", "))
	case OpAlloca:
		return fmt.Sprintf("%salloca %s", def, in.Elem.String())
	case OpLoad:
		return fmt.Sprintf("%sload %s %s", def, tyName(in.Type), in.X)
	case OpStore:
		return fmt.Sprintf("store %s %s, %s", tyName(in.Type), in.X, in.Y)
	case OpGEP:
		return fmt.Sprintf("%sgep %s %s, [%s]", def, in.Elem.String(), in.X, strings.Join(in.Args, ", "))
	case OpBitcast:
		return fmt.Sprintf("%sbitcast %s", def, in.X)
	case OpCall:
		return fmt.Sprintf("%scall %s(%s)", def, in.Callee, strings.Join(in.Args, ", "))
	case OpRet:
		if in.X == "" {
			return "ret void"
		}
		return fmt.Sprintf("ret %s %s", tyName(in.Type), in.X)
	case OpBr:
		if in.X == "" {
			return fmt.Sprintf("br %s", in.Targets[0])
		}
		return fmt.Sprintf("br %s, %s, %s", in.X, in.Targets[0], in.Targets[1])
	case OpComment:
		return "; " + in.Text
	default:
		return "; <unknown>"
	}
}

func tyName(w types.Width) string {
	if w == types.Void {
		return ""
	}
	return w.String() + " "
}
