// Package regalloc implements spec.md §4.5: depth-first block ordering,
// per-block live-gen/kill/in/out sets, live-interval construction, and the
// linear-scan allocator over those intervals.
//
// Grounded on vslc/src/ir/lir/live.go's liveness computation and
// vslc/src/backend/lir/regalloc.go's linear-scan driver, replaced here
// with one pass per concern over the single riscv.Instr type (spec.md
// §9), and golang.org/x/exp/slices for the allocator's sorted active list
// (SPEC_FULL.md §10.5).
package regalloc

import "sysyrv/internal/riscv"

// Order is the depth-first block visitation order described in spec.md
// §4.5: starting from block 0, visit successors in source (textual) order,
// skipping already-visited blocks.
func Order(af *riscv.Function) []*riscv.Block {
	if len(af.Blocks) == 0 {
		return nil
	}
	byLabel := make(map[string]*riscv.Block, len(af.Blocks))
	for _, b := range af.Blocks {
		byLabel[b.Label] = b
	}

	var order []*riscv.Block
	visited := make(map[string]bool, len(af.Blocks))
	var visit func(b *riscv.Block)
	visit = func(b *riscv.Block) {
		if b == nil || visited[b.Label] {
			return
		}
		visited[b.Label] = true
		order = append(order, b)
		for _, succPlain := range b.Successors {
			qualified := af.Label + "." + succPlain
			visit(byLabel[qualified])
		}
	}
	visit(af.Blocks[0])
	// Any block unreachable from entry (should not happen post-ir.Optimize,
	// but kept defensive) is appended in textual order so every
	// instruction still gets a linear position.
	for _, b := range af.Blocks {
		if !visited[b.Label] {
			visit(b)
		}
	}
	return order
}

// Positions holds the depth-first block order and each block's
// depth_first_pre_instr_cnt (spec.md §4.5 point 1): the linear position of
// its first instruction.
type Positions struct {
	Order     []*riscv.Block
	BlockStart map[*riscv.Block]int // linear position of the block's first instruction
}

// ComputePositions assigns linear positions over the depth-first order.
func ComputePositions(af *riscv.Function) Positions {
	order := Order(af)
	start := make(map[*riscv.Block]int, len(order))
	pos := 0
	for _, b := range order {
		start[b] = pos
		pos += len(b.Instrs)
	}
	return Positions{Order: order, BlockStart: start}
}

// liveSets holds gen/kill/in/out per block, keyed by block pointer.
type liveSets struct {
	gen, kill, in, out map[*riscv.Block]map[string]bool
}

// computeLocal walks each block top-to-bottom building live_gen/live_kill
// (spec.md §4.5 point 2).
func computeLocal(order []*riscv.Block) liveSets {
	ls := liveSets{
		gen:  make(map[*riscv.Block]map[string]bool),
		kill: make(map[*riscv.Block]map[string]bool),
		in:   make(map[*riscv.Block]map[string]bool),
		out:  make(map[*riscv.Block]map[string]bool),
	}
	for _, b := range order {
		gen := make(map[string]bool)
		kill := make(map[string]bool)
		for _, in := range b.Instrs {
			def, uses := in.VFlow()
			for _, u := range uses {
				if !kill[u] {
					gen[u] = true
				}
			}
			if def != "" {
				kill[def] = true
			}
		}
		ls.gen[b] = gen
		ls.kill[b] = kill
		ls.in[b] = make(map[string]bool)
		ls.out[b] = make(map[string]bool)
	}
	return ls
}

// computeGlobal runs the reverse-depth-first fixed point of spec.md §4.5
// point 3: live_out[b] = union of live_in[succ]; live_in[b] = (live_out[b]
// \ live_kill[b]) u live_gen[b].
func computeGlobal(af *riscv.Function, order []*riscv.Block, ls liveSets) {
	byLabel := make(map[string]*riscv.Block, len(af.Blocks))
	for _, b := range af.Blocks {
		byLabel[b.Label] = b
	}
	changed := true
	for changed {
		changed = false
		for i := len(order) - 1; i >= 0; i-- {
			b := order[i]
			out := make(map[string]bool)
			for _, succPlain := range b.Successors {
				qualified := af.Label + "." + succPlain
				if s := byLabel[qualified]; s != nil {
					for v := range ls.in[s] {
						out[v] = true
					}
				}
			}
			in := make(map[string]bool, len(out)+len(ls.gen[b]))
			for v := range out {
				if !ls.kill[b][v] {
					in[v] = true
				}
			}
			for v := range ls.gen[b] {
				in[v] = true
			}
			if !setEqual(out, ls.out[b]) || !setEqual(in, ls.in[b]) {
				changed = true
			}
			ls.out[b] = out
			ls.in[b] = in
		}
	}
}

func setEqual(a, b map[string]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}

// Range is one non-overlapping [from,to] span of a live interval, in
// linear instruction positions.
type Range struct{ From, To int }

// Interval is a virtual register's live interval: an ordered list of
// merged, non-overlapping ranges, plus whether any range crosses a call
// (spec.md §4.5 "Crossing a call prefers a callee-saved register").
type Interval struct {
	Name        string
	Ranges      []Range
	CrossesCall bool
	IsFloat     bool
}

// Start/End return the interval's overall [min From, max To].
func (iv *Interval) Start() int { return iv.Ranges[0].From }
func (iv *Interval) End() int   { return iv.Ranges[len(iv.Ranges)-1].To }

func (iv *Interval) addUse(pos int) {
	if last := len(iv.Ranges) - 1; last >= 0 && iv.Ranges[last].From <= pos && pos <= iv.Ranges[last].To {
		return
	}
	iv.Ranges = append(iv.Ranges, Range{pos, pos})
	iv.normalize()
}

// extendTo adds the span [from, to], merging it with any overlapping or
// adjacent range; used while walking a block backward to cover "live
// across this whole block" spans.
func (iv *Interval) extendTo(from, to int) {
	iv.Ranges = append(iv.Ranges, Range{from, to})
	iv.normalize()
}

func (iv *Interval) normalize() {
	rs := iv.Ranges
	// Simple insertion-sort + merge; interval lists stay short in practice.
	for i := 1; i < len(rs); i++ {
		j := i
		for j > 0 && rs[j-1].From > rs[j].From {
			rs[j-1], rs[j] = rs[j], rs[j-1]
			j--
		}
	}
	merged := rs[:0]
	for _, r := range rs {
		if len(merged) > 0 && r.From <= merged[len(merged)-1].To+1 {
			last := &merged[len(merged)-1]
			if r.To > last.To {
				last.To = r.To
			}
		} else {
			merged = append(merged, r)
		}
	}
	iv.Ranges = merged
}

// BuildIntervals computes one Interval per virtual register, per spec.md
// §4.5 point 4: for each name, walk blocks in reverse depth-first order,
// instructions reverse within a block; names in live_out get the whole
// block range, a use extends the open range, a def closes it.
func BuildIntervals(af *riscv.Function) (map[string]*Interval, Positions) {
	pos := ComputePositions(af)
	ls := computeLocal(pos.Order)
	computeGlobal(af, pos.Order, ls)

	// Every virtual is classified int/float at its definition site; a name
	// first met as a block's live-out (or as a use, walking backward) has
	// no class of its own to offer, so the def map is computed up front.
	classOf := make(map[string]bool)
	for _, b := range af.Blocks {
		for ii := range b.Instrs {
			in := &b.Instrs[ii]
			if def, _ := in.VFlow(); def != "" {
				classOf[def] = in.OperandIsFloat(true, false)
			}
		}
	}

	intervals := make(map[string]*Interval)
	get := func(name string) *Interval {
		iv, ok := intervals[name]
		if !ok {
			iv = &Interval{Name: name, IsFloat: classOf[name]}
			intervals[name] = iv
		}
		return iv
	}

	for bi := len(pos.Order) - 1; bi >= 0; bi-- {
		b := pos.Order[bi]
		base := pos.BlockStart[b]
		blockEnd := base + len(b.Instrs) - 1
		if len(b.Instrs) == 0 {
			continue
		}

		open := make(map[string]bool)
		for v := range ls.out[b] {
			open[v] = true
		}
		for v := range open {
			get(v).extendTo(base, blockEnd)
		}

		for ii := len(b.Instrs) - 1; ii >= 0; ii-- {
			p := base + ii
			in := &b.Instrs[ii]
			def, uses := in.VFlow()
			if def != "" {
				iv := get(def)
				if open[def] {
					// The open range tentatively starts at the block base
					// (or covers the whole block, for a live-out name);
					// the name isn't live before its def, so trim the
					// start up to p.
					trimRangeStart(iv, base, p)
					delete(open, def)
				} else {
					// A def whose value is never read still occupies its
					// register at the def point itself.
					iv.addUse(p)
				}
			}
			for _, u := range uses {
				iv := get(u)
				if !open[u] {
					// First (reverse-order) sighting in this block: live
					// from the block start — tentatively, until a def
					// earlier in the block trims it — through this use.
					iv.extendTo(base, p)
					open[u] = true
				}
			}
		}
	}

	for _, iv := range intervals {
		iv.normalize()
		markCallCrossings(af, pos, iv)
	}
	return intervals, pos
}

// trimRangeStart adjusts the range covering position old-base..end so
// that it instead starts at newStart, used when a definition is found
// partway through a block that the name was otherwise live-out of.
func trimRangeStart(iv *Interval, oldBase, newStart int) {
	for i, r := range iv.Ranges {
		if r.From == oldBase {
			iv.Ranges[i].From = newStart
			return
		}
	}
	iv.Ranges = append(iv.Ranges, Range{newStart, newStart})
	iv.normalize()
}

// PhysPins returns, per physical register a pre-allocation instruction
// mentions literally (the prologue moves that read incoming argument
// registers), the highest linear position at which it is read. These are
// spec.md §4.5's point intervals for physical registers: the allocator
// must not hand such a register to a virtual whose own interval starts
// before the pin, or the virtual's definition would clobber the incoming
// value before its reader consumes it.
func PhysPins(af *riscv.Function, pos Positions) map[riscv.Reg]int {
	pins := make(map[riscv.Reg]int)
	zero := riscv.Reg{}
	for _, b := range pos.Order {
		base := pos.BlockStart[b]
		for ii := range b.Instrs {
			in := &b.Instrs[ii]
			if in.Op == riscv.OpCall {
				continue
			}
			p := base + ii
			if in.Rs1 != zero && in.VSrc1 == "" {
				if p > pins[in.Rs1] {
					pins[in.Rs1] = p
				}
			}
			if in.Rs2 != zero && in.VSrc2 == "" {
				if p > pins[in.Rs2] {
					pins[in.Rs2] = p
				}
			}
		}
	}
	return pins
}

// markCallCrossings sets CrossesCall when any OpCall instruction's linear
// position falls strictly inside one of iv's ranges (spec.md §4.5:
// "Crossing a call prefers a callee-saved register").
func markCallCrossings(af *riscv.Function, pos Positions, iv *Interval) {
	for _, b := range pos.Order {
		base := pos.BlockStart[b]
		for ii, in := range b.Instrs {
			if in.Op != riscv.OpCall {
				continue
			}
			p := base + ii
			for _, r := range iv.Ranges {
				// Strictly inside: a value defined by the call itself, or
				// consumed as one of its arguments, does not cross it.
				if r.From < p && p < r.To {
					iv.CrossesCall = true
					return
				}
			}
		}
	}
}
