package riscv

import "strconv"

// RodataEntry is one entry in the read-only data section: either a plain
// word constant (a float-immediate pool entry, spec.md §4.4) or an
// initialized/zero-padded array.
type RodataEntry struct {
	Name  string
	Words []uint32 // bit patterns, 4 bytes each
}

// DataEntry is one entry in the .data section: an initialized global
// scalar or array.
type DataEntry struct {
	Name  string
	Words []uint32
}

// FloatImmPool interns float-literal rodata symbols so the same literal
// bit pattern reuses one symbol (spec.md §4.4 "Rodata float-imm").
type FloatImmPool struct {
	byBits map[uint32]string
	order  []RodataEntry
	seq    int
}

// NewFloatImmPool returns an empty pool.
func NewFloatImmPool() *FloatImmPool {
	return &FloatImmPool{byBits: make(map[uint32]string)}
}

// Intern returns the rodata symbol for the given IEEE-754 single bit
// pattern, minting "float_imm.N" on first sight and reusing it thereafter.
func (p *FloatImmPool) Intern(bits uint32) string {
	if name, ok := p.byBits[bits]; ok {
		return name
	}
	name := "float_imm." + itoa(p.seq)
	p.seq++
	p.byBits[bits] = name
	p.order = append(p.order, RodataEntry{Name: name, Words: []uint32{bits}})
	return name
}

// Entries returns the interned entries in first-seen order.
func (p *FloatImmPool) Entries() []RodataEntry { return p.order }

func itoa(i int) string { return strconv.Itoa(i) }

// Program is the whole assembly program: rodata, data, and functions
// (spec.md §6 "Assembly output").
type Program struct {
	Rodata []RodataEntry
	Data   []DataEntry
	Funcs  []*Function
}

// NewProgram returns an empty Program.
func NewProgram() *Program { return &Program{} }
