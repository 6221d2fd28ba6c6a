// linearscan.go implements spec.md §4.5's allocator proper: process
// virtual intervals in increasing-start order, maintain an active list
// sorted by end, and assign each virtual the first free physical register
// of its preferred class, spilling the farthest-reaching interval when
// none is free.
//
// Grounded on vslc/src/backend/lir/regalloc.go's allocateRegisterFunc (the
// teacher's graph-colouring allocator, replaced with the linear-scan
// algorithm spec.md §4.5 mandates — see DESIGN.md) and
// vslc/src/backend/regfile/regfile.go's temp/saved register-class split.
// Sorting uses golang.org/x/exp/slices per SPEC_FULL.md §10.5.
package regalloc

import (
	"github.com/pkg/errors"
	"golang.org/x/exp/slices"

	"sysyrv/internal/riscv"
)

// poolClass is one of the three register-class priorities spec.md §4.5
// names: temp (caller-saved scratch), arg (the ABI argument registers,
// safe for a virtual whose interval never crosses a call), saved
// (callee-saved, preferred when the interval does cross a call).
type poolClass int

const (
	classTemp poolClass = iota
	classArg
	classSaved
)

// active is one currently-live assignment in the linear-scan active list.
type active struct {
	iv    *Interval
	reg   riscv.Reg
	class poolClass
}

// allocator holds the per-function, per-register-file-half (int/float)
// mutable pools and active lists the scan consumes.
type allocator struct {
	free   map[poolClass][]riscv.Reg // available registers, one slice per class
	active []active                  // currently assigned, kept sorted by iv.End()

	// pins holds, per physical register, the last linear position a
	// pre-allocation instruction reads it literally (spec.md §4.5: physical
	// registers receive point intervals that pin them). A register is
	// unavailable to any interval starting before its pin.
	pins map[riscv.Reg]int

	assigned map[string]riscv.Reg
	spilled  map[string]bool
}

func newAllocator(temp, arg, saved []riscv.Reg, pins map[riscv.Reg]int) *allocator {
	a := &allocator{
		free:     map[poolClass][]riscv.Reg{},
		pins:     pins,
		assigned: make(map[string]riscv.Reg),
		spilled:  make(map[string]bool),
	}
	a.free[classTemp] = append([]riscv.Reg{}, temp...)
	a.free[classArg] = append([]riscv.Reg{}, arg...)
	a.free[classSaved] = append([]riscv.Reg{}, saved...)
	return a
}

// priorityOrder returns the class search order for an interval: temp > arg
// > saved when it never crosses a call, saved > temp > arg when it does
// (spec.md §4.5 "Classify").
func priorityOrder(crossesCall bool) [3]poolClass {
	if crossesCall {
		return [3]poolClass{classSaved, classTemp, classArg}
	}
	return [3]poolClass{classTemp, classArg, classSaved}
}

// expireOld moves every active interval ending at or before start back to
// its free pool (spec.md §4.5 "Expire old").
func (a *allocator) expireOld(start int) {
	kept := a.active[:0]
	for _, e := range a.active {
		if e.iv.End() <= start {
			a.free[e.class] = append(a.free[e.class], e.reg)
		} else {
			kept = append(kept, e)
		}
	}
	a.active = kept
}

// pushActive inserts e into the active list, kept sorted by end ascending.
func (a *allocator) pushActive(e active) {
	a.active = append(a.active, e)
	slices.SortFunc(a.active, func(x, y active) int { return x.iv.End() - y.iv.End() })
}

// tryAllocate attempts to assign iv a free register from its class
// priority order, returning (reg, class, true) on success.
func (a *allocator) tryAllocate(iv *Interval) (riscv.Reg, poolClass, bool) {
	for _, c := range priorityOrder(iv.CrossesCall) {
		pool := a.free[c]
		for i := len(pool) - 1; i >= 0; i-- {
			reg := pool[i]
			if pin, pinned := a.pins[reg]; pinned && iv.Start() < pin {
				continue
			}
			a.free[c] = append(pool[:i], pool[i+1:]...)
			return reg, c, true
		}
	}
	return riscv.Reg{}, 0, false
}

// spillCandidate returns the active entry (among the classes iv could
// itself have used) with the farthest-reaching end, or ok=false if none of
// those classes currently has anything active (iv is then unspillable by
// eviction and must be spilled itself).
func (a *allocator) spillCandidate(iv *Interval) (active, bool) {
	order := priorityOrder(iv.CrossesCall)
	var best active
	found := false
	for _, e := range a.active {
		inClass := false
		for _, c := range order {
			if e.class == c {
				inClass = true
				break
			}
		}
		if !inClass {
			continue
		}
		if !found || e.iv.End() > best.iv.End() {
			best = e
			found = true
		}
	}
	return best, found
}

func (a *allocator) removeActive(target active) {
	for i, e := range a.active {
		if e.iv == target.iv {
			a.active = append(a.active[:i], a.active[i+1:]...)
			return
		}
	}
}

// run executes the scan over ivs (already filtered to one class half,
// int or float) sorted by increasing start.
func (a *allocator) run(ivs []*Interval) {
	slices.SortFunc(ivs, func(x, y *Interval) int { return x.Start() - y.Start() })
	for _, iv := range ivs {
		a.expireOld(iv.Start())
		if reg, class, ok := a.tryAllocate(iv); ok {
			a.assigned[iv.Name] = reg
			a.pushActive(active{iv: iv, reg: reg, class: class})
			continue
		}
		cand, ok := a.spillCandidate(iv)
		if ok && cand.iv.End() > iv.End() {
			// Evict the farther-reaching active interval; current takes
			// its register.
			a.removeActive(cand)
			a.spilled[cand.iv.Name] = true
			delete(a.assigned, cand.iv.Name)
			a.assigned[iv.Name] = cand.reg
			a.pushActive(active{iv: iv, reg: cand.reg, class: cand.class})
		} else {
			a.spilled[iv.Name] = true
		}
	}
}

// Result is the outcome of allocating one function: the physical register
// bound to each non-spilled virtual, the set of spilled names, and the set
// of callee-saved physical registers actually assigned (consumed by
// prologue/epilogue generation).
type Result struct {
	Assigned  map[string]riscv.Reg
	Spilled   map[string]bool
	UsedSaved map[riscv.Reg]bool
}

// Allocate runs linear-scan register allocation for af, per spec.md §4.5.
// Integer and floating-point virtuals are scanned independently since they
// draw from disjoint register files; the two scans still interleave
// correctly because each only ever touches its own pools.
func Allocate(af *riscv.Function) (Result, error) {
	intervals, pos := BuildIntervals(af)
	pins := PhysPins(af, pos)

	var intIvs, floatIvs []*Interval
	for _, iv := range intervals {
		if iv.IsFloat {
			floatIvs = append(floatIvs, iv)
		} else {
			intIvs = append(intIvs, iv)
		}
	}

	res := Result{
		Assigned:  make(map[string]riscv.Reg),
		Spilled:   make(map[string]bool),
		UsedSaved: make(map[riscv.Reg]bool),
	}

	intAlloc := newAllocator(riscv.TempI, riscv.AAi[:], riscv.SavedI, pins)
	intAlloc.run(intIvs)
	floatAlloc := newAllocator(riscv.TempF, riscv.AAf[:], riscv.SavedF, pins)
	floatAlloc.run(floatIvs)

	for name, r := range intAlloc.assigned {
		res.Assigned[name] = r
	}
	for name := range intAlloc.spilled {
		res.Spilled[name] = true
	}
	for name, r := range floatAlloc.assigned {
		res.Assigned[name] = r
	}
	for name := range floatAlloc.spilled {
		res.Spilled[name] = true
	}

	// A callee-saved register is recorded as used the moment any interval
	// is bound to it, not only once it expires: an interval still active
	// at the function's last instruction never reaches the "expire"
	// branch, so sweeping the final assignment map is the only way every
	// genuinely-used saved register is caught (see DESIGN.md).
	for _, r := range res.Assigned {
		if isSaved(r, riscv.SavedI) || isSaved(r, riscv.SavedF) {
			res.UsedSaved[r] = true
		}
	}

	if err := checkDistinctness(intervals, res); err != nil {
		return res, err
	}
	return res, nil
}

func isSaved(r riscv.Reg, saved []riscv.Reg) bool {
	for _, s := range saved {
		if s == r {
			return true
		}
	}
	return false
}

// checkDistinctness verifies that every spilled name has a live interval.
// It does not look at individual instructions: the per-instruction limit
// of two preserved registers per class (SPEC_FULL.md §13) is enforced by
// spillBudget in rewrite.go.
func checkDistinctness(intervals map[string]*Interval, res Result) error {
	for name := range res.Spilled {
		iv := intervals[name]
		if iv == nil {
			return errors.Errorf("regalloc: spilled name %q has no interval", name)
		}
	}
	return nil
}
