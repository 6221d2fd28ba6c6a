package ir

import (
	"github.com/sirupsen/logrus"
	"golang.org/x/exp/slices"

	"sysyrv/internal/config"
)

// Optimize runs the two dataflow passes described in spec.md §4.3 over
// every function of p, in place: unreachable-block elimination, then
// dead-instruction elimination, then a rewrite that drops the filtered
// blocks/instructions and renumbers numeric temporaries. There is no
// user-observable failure mode (spec.md §4.3 "Failure semantics"):
// unreachable or dead code simply disappears.
func Optimize(p *Program, opt config.Options) {
	for _, fn := range p.Functions {
		optimizeFunction(fn, opt)
	}
}

func optimizeFunction(fn *Function, opt config.Options) {
	log := opt.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	log.WithField("func", fn.Name).Debug("ir.Optimize: enter")

	reachable := reachableBlocks(fn)
	live := liveInstructions(fn, reachable)
	rewrite(fn, reachable, live)

	if log.IsLevelEnabled(logrus.DebugLevel) {
		var kept []string
		for _, b := range fn.Blocks {
			kept = append(kept, b.Label)
		}
		slices.Sort(kept)
		log.WithFields(logrus.Fields{
			"func":   fn.Name,
			"blocks": kept,
		}).Debug("ir.Optimize: exit")
	}
}

// reachableBlocks computes forward reachability from the entry block
// (spec.md §4.3 "Block reachability"): the entry is seeded live, and every
// block reached transitively through br targets is retained.
func reachableBlocks(fn *Function) map[string]bool {
	reach := make(map[string]bool, len(fn.Blocks))
	byLabel := make(map[string]*Block, len(fn.Blocks))
	for _, b := range fn.Blocks {
		byLabel[b.Label] = b
	}

	var stack []string
	stack = append(stack, fn.Entry().Label)
	reach[fn.Entry().Label] = true
	for len(stack) > 0 {
		lbl := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		b := byLabel[lbl]
		if b == nil {
			continue
		}
		term := b.Terminator()
		if term == nil || term.Op != OpBr {
			continue
		}
		for _, t := range term.Targets {
			if !reach[t] {
				reach[t] = true
				stack = append(stack, t)
			}
		}
	}
	return reach
}

// instrKey identifies one instruction by (block index, instruction index)
// within the function, used as the liveness worklist's node identity.
type instrKey struct {
	block, idx int
}

// liveInstructions computes the live instruction set over the surviving
// (reachable) blocks, per spec.md §4.3 "Instruction liveness": an
// instruction is live if it has no self-label (it always executes) or if
// any of its users is live. Implemented as a worklist over the
// def-use graph restricted to reachable blocks.
func liveInstructions(fn *Function, reachable map[string]bool) map[instrKey]bool {
	// definedAt maps a value name to every (block, idx) that defines it,
	// restricted to reachable blocks. SSA temporaries have one definer;
	// a local-pointer name is "defined" by each store through it, and a
	// live reader must keep all of them.
	definedAt := make(map[string][]instrKey)
	for bi, b := range fn.Blocks {
		if !reachable[b.Label] {
			continue
		}
		for ii := range b.Instrs {
			self, _ := b.Instrs[ii].FlowInfo()
			if self != "" {
				definedAt[self] = append(definedAt[self], instrKey{bi, ii})
			}
		}
	}

	live := make(map[instrKey]bool)
	var worklist []instrKey

	mark := func(k instrKey) {
		if !live[k] {
			live[k] = true
			worklist = append(worklist, k)
		}
	}

	for bi, b := range fn.Blocks {
		if !reachable[b.Label] {
			continue
		}
		for ii := range b.Instrs {
			self, _ := b.Instrs[ii].FlowInfo()
			if self == "" {
				mark(instrKey{bi, ii})
			}
		}
	}

	for len(worklist) > 0 {
		k := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]
		_, used := fn.Blocks[k.block].Instrs[k.idx].FlowInfo()
		for _, u := range used {
			for _, def := range definedAt[u] {
				mark(def)
			}
		}
	}
	return live
}

// rewrite drops every unreachable block and every dead instruction from
// fn, renaming numeric %N temporaries through a monotone old->new map so
// the survivors are %0, %1, … again (spec.md §4.3 "Rewrite"). Named locals
// (%name_k) and globals (@name) are preserved verbatim.
func rewrite(fn *Function, reachable map[string]bool, live map[instrKey]bool) {
	rename := make(map[string]string)
	next := 0
	freshName := func(old string) string {
		if old == "" || old[0] != '%' || !isNumericTemp(old) {
			return old
		}
		if n, ok := rename[old]; ok {
			return n
		}
		n := "%" + itoa(next)
		next++
		rename[old] = n
		return n
	}

	var newBlocks []*Block
	for bi, b := range fn.Blocks {
		if !reachable[b.Label] {
			continue
		}
		nb := NewBlock(b.Label, b.LoopDepth)
		for ii, in := range b.Instrs {
			if !live[instrKey{bi, ii}] {
				continue
			}
			nb.Instrs = append(nb.Instrs, renameInstr(in, freshName))
		}
		newBlocks = append(newBlocks, nb)
	}
	if len(newBlocks) == 0 {
		// Every block (including entry) was filtered out only if entry
		// itself was unreachable, which cannot happen since entry seeds
		// reachability; keep the slice non-nil defensively.
		newBlocks = fn.Blocks[:0]
	}
	fn.Blocks = newBlocks
	recomputeInsNum(fn)
}

func recomputeInsNum(fn *Function) {
	cum := 0
	for _, b := range fn.Blocks {
		b.InsNum = cum
		cum += len(b.Instrs)
	}
}

func isNumericTemp(s string) bool {
	if len(s) < 2 {
		return false
	}
	for _, c := range s[1:] {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func renameInstr(in Instr, f func(string) string) Instr {
	out := in
	out.Dst = f(in.Dst)
	out.X = f(in.X)
	out.Y = f(in.Y)
	if len(in.Args) > 0 {
		out.Args = make([]string, len(in.Args))
		for i, a := range in.Args {
			out.Args[i] = f(a)
		}
	}
	if len(in.Incoming) > 0 {
		out.Incoming = make([]PhiEdge, len(in.Incoming))
		for i, e := range in.Incoming {
			out.Incoming[i] = PhiEdge{Value: f(e.Value), Block: e.Block}
		}
	}
	return out
}
