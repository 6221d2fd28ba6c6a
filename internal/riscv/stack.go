package riscv

// slotEntry is one (name, size) pair in a StackSlot's ordered lists.
type slotEntry struct {
	Name string
	Size int
}

// StackSlot is the per-function stack-frame descriptor (spec.md §3, §4.6):
// three ordered lists — parameter slots (surplus, stack-passed arguments
// received by this function), outgoing slots (surplus arguments this
// function is about to pass to a callee), and normal slots (locals,
// spills, saved registers, stored-argument scratch) — plus, after
// finalization, a total frame size and a name -> sp-relative offset map.
type StackSlot struct {
	Params   []slotEntry
	Outgoing []slotEntry
	Normal   []slotEntry

	pushed map[string]bool

	FrameSize int
	Offsets   map[string]int
}

// NewStackSlot returns an empty StackSlot.
func NewStackSlot() *StackSlot {
	return &StackSlot{pushed: make(map[string]bool)}
}

// AddParam appends a parameter slot, idempotently.
func (s *StackSlot) AddParam(name string, size int) {
	if s.pushed[name] {
		return
	}
	s.pushed[name] = true
	s.Params = append(s.Params, slotEntry{name, size})
}

// AddNormal appends a normal slot (local, spill, or saved-register slot),
// idempotently.
func (s *StackSlot) AddNormal(name string, size int) {
	if s.pushed[name] {
		return
	}
	s.pushed[name] = true
	s.Normal = append(s.Normal, slotEntry{name, size})
}

// AddOutgoing appends an outgoing-argument staging slot — one surplus
// (beyond the 8 register slots of its class) argument this function is
// about to pass to some callee — idempotently. Every call site that
// needs k such slots registers them 0..k-1 in order, so across an entire
// function the list only ever grows to the high-water mark any one call
// needs; only one call executes at a time, so slots are safely reused
// across call sites.
func (s *StackSlot) AddOutgoing(name string, size int) {
	if s.pushed[name] {
		return
	}
	s.pushed[name] = true
	s.Outgoing = append(s.Outgoing, slotEntry{name, size})
}

// Has reports whether name already has a slot.
func (s *StackSlot) Has(name string) bool { return s.pushed[name] }

// Finalize computes FrameSize (rounded up to RISC-V's mandatory 16-byte
// stack alignment) and the name -> offset map.
//
// Normal slots resolve to frame_size - cumulative_from_top, the literal
// formula spec.md §4.6 describes. Params and Outgoing deviate from
// that formula by construction, not oversight (recorded as an Open
// Question resolution in DESIGN.md): both name addresses that a *second*
// function also computes independently (the caller, for Params; the
// callee, for Outgoing), so both need a formula anchored on something
// both sides agree on without coordinating frame sizes — the sp value at
// the moment of call, which is this function's own frame_size away from
// its own sp. Outgoing slots resolve to a plain ascending offset from sp
// (k-th slot at offset cumulative_before_k, nearest the bottom of the
// frame); a callee's Params resolve to frame_size + cumulative_before_k,
// i.e. exactly that same address as seen from the callee's own (lower)
// sp. Neither can collide with Normal's region: Normal's lowest offset
// is frame_size - normal_total, which is always >= outgoing_total.
func (s *StackSlot) Finalize() {
	outgoingTotal := 0
	for _, e := range s.Outgoing {
		outgoingTotal += e.Size
	}
	normalTotal := 0
	for _, e := range s.Normal {
		normalTotal += e.Size
	}
	total := outgoingTotal + normalTotal
	if rem := total % 16; rem != 0 {
		total += 16 - rem
	}
	s.FrameSize = total

	s.Offsets = make(map[string]int, len(s.Params)+len(s.Normal)+len(s.Outgoing))

	oc := 0
	for _, e := range s.Outgoing {
		s.Offsets[e.Name] = oc
		oc += e.Size
	}
	nc := 0
	for _, e := range s.Normal {
		nc += e.Size
		s.Offsets[e.Name] = s.FrameSize - nc
	}
	pc := 0
	for _, e := range s.Params {
		s.Offsets[e.Name] = s.FrameSize + pc
		pc += e.Size
	}
}

// Offset returns the resolved signed offset for name, after Finalize.
func (s *StackSlot) Offset(name string) (int, bool) {
	o, ok := s.Offsets[name]
	return o, ok
}
