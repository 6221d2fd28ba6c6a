// callsites.go computes, per call instruction, which virtuals must
// survive the call in a caller-saved register (spec.md §4.6.1 "save
// temporaries alive across the call"). It reuses BuildIntervals' own
// per-virtual range data rather than markCallCrossings' whole-interval
// flag, since §4.6.1 needs a live set keyed per call site, not a single
// function-wide bit per virtual.
//
// This must run before Rewrite: VFlow (and so BuildIntervals) only sees
// virtual-register names, which Rewrite erases from every non-call
// instruction it resolves.
package regalloc

import (
	"sort"

	"sysyrv/internal/riscv"
)

// CallLiveAcross returns, for every call site in af keyed by its
// CallSiteID, the virtual names whose live interval strictly spans the
// call's linear position.
func CallLiveAcross(af *riscv.Function) map[int][]string {
	intervals, pos := BuildIntervals(af)
	out := make(map[int][]string)

	for _, b := range pos.Order {
		base := pos.BlockStart[b]
		for ii := range b.Instrs {
			in := &b.Instrs[ii]
			if in.Op != riscv.OpCall {
				continue
			}
			p := base + ii
			var live []string
			for name, iv := range intervals {
				if name == in.CallResult {
					continue
				}
				for _, r := range iv.Ranges {
					if r.From < p && p < r.To {
						live = append(live, name)
						break
					}
				}
			}
			sort.Strings(live)
			out[in.CallSiteID] = live
			for ci := range af.CallSites {
				if af.CallSites[ci].ID == in.CallSiteID {
					af.CallSites[ci].LinearPos = p
					af.CallSites[ci].LiveAcross = live
				}
			}
		}
	}
	return out
}
