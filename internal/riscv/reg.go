// Package riscv defines the RV64IMFD machine-level model the selection,
// register-allocation and emission passes operate on: physical/virtual
// registers, the machine instruction union, stack slots, assembly
// functions and the assembly program as a whole (spec.md §3, §4.4-§4.7).
//
// Grounded on vslc/src/backend/riscv/riscv.go's register constants and
// vslc/src/backend/regfile's RegisterFile interface, replaced here with a
// single concrete Register value type per spec.md §9 (one type, not one
// struct per register-file implementation).
package riscv

import "fmt"

// Class discriminates a register's register file.
type Class int

const (
	ClassInt Class = iota
	ClassFloat
)

// Reg is a physical RV64 register: an integer x0-x31 or a float f0-f31.
type Reg struct {
	Class Class
	Num   int
}

func (r Reg) String() string {
	if name, ok := regNames[r]; ok {
		return name
	}
	if r.Class == ClassFloat {
		return fmt.Sprintf("f%d", r.Num)
	}
	return fmt.Sprintf("x%d", r.Num)
}

// IsFloat reports whether r is drawn from the floating-point file.
func (r Reg) IsFloat() bool { return r.Class == ClassFloat }

func ireg(n int) Reg { return Reg{Class: ClassInt, Num: n} }
func freg(n int) Reg { return Reg{Class: ClassFloat, Num: n} }

// Fixed-purpose registers.
var (
	Zero = ireg(0)
	RA   = ireg(1)
	SP   = ireg(2)
	GP   = ireg(3)
	TP   = ireg(4)
	FP   = ireg(8) // s0/fp
)

// Integer argument registers a0..a7 (x10..x17).
var AAi [8]Reg

// Float argument registers fa0..fa7 (f10..f17).
var AAf [8]Reg

// Integer temp (caller-saved) registers usable by the allocator: t0..t6
// minus the two reserved preserved-register scratch slots (spec.md §4.5
// "preserved registers").
var TempI []Reg

// Float temp (caller-saved) registers usable by the allocator: ft0..ft7.
// ft8/ft9 are the float preserved-register scratch slots; ft10/ft11 are
// not allocated.
var TempF []Reg

// Integer callee-saved registers usable by the allocator: s1..s11 (s0 is
// reserved as the frame pointer and never allocated).
var SavedI []Reg

// Float callee-saved registers usable by the allocator: fs0..fs11.
var SavedF []Reg

// PreservedI/PreservedF are the two scratch registers per class that the
// allocator never assigns (spec.md §4.5, §4.6): t3/t4 for integers and
// ft8/ft9 for floats, used by the spill-reload rewrite and by wide stack-offset expansion.
var (
	PreservedI0 = ireg(28) // t3
	PreservedI1 = ireg(29) // t4
	PreservedF0 = freg(28) // ft8
	PreservedF1 = freg(29) // ft9
)

var regNames = map[Reg]string{}

func init() {
	names := map[int]string{
		0: "zero", 1: "ra", 2: "sp", 3: "gp", 4: "tp",
		5: "t0", 6: "t1", 7: "t2",
		8: "s0", 9: "s1",
		10: "a0", 11: "a1", 12: "a2", 13: "a3", 14: "a4", 15: "a5", 16: "a6", 17: "a7",
		18: "s2", 19: "s3", 20: "s4", 21: "s5", 22: "s6", 23: "s7", 24: "s8", 25: "s9", 26: "s10", 27: "s11",
		28: "t3", 29: "t4", 30: "t5", 31: "t6",
	}
	for n, name := range names {
		regNames[ireg(n)] = name
	}
	fnames := map[int]string{
		0: "ft0", 1: "ft1", 2: "ft2", 3: "ft3", 4: "ft4", 5: "ft5", 6: "ft6", 7: "ft7",
		8: "fs0", 9: "fs1",
		10: "fa0", 11: "fa1", 12: "fa2", 13: "fa3", 14: "fa4", 15: "fa5", 16: "fa6", 17: "fa7",
		18: "fs2", 19: "fs3", 20: "fs4", 21: "fs5", 22: "fs6", 23: "fs7", 24: "fs8", 25: "fs9", 26: "fs10", 27: "fs11",
		28: "ft8", 29: "ft9", 30: "ft10", 31: "ft11",
	}
	for n, name := range fnames {
		regNames[freg(n)] = name
	}

	for i := 0; i < 8; i++ {
		AAi[i] = ireg(10 + i)
		AAf[i] = freg(10 + i)
	}

	// t0, t1, t2, t5, t6 (t3/t4 reserved as PreservedI0/1).
	TempI = []Reg{ireg(5), ireg(6), ireg(7), ireg(30), ireg(31)}
	// ft0..ft7 (ft8/ft9 reserved as PreservedF0/1).
	for i := 0; i < 8; i++ {
		TempF = append(TempF, freg(i))
	}
	// s1..s11 (s0 reserved as frame pointer).
	SavedI = []Reg{ireg(9)}
	for i := 18; i <= 27; i++ {
		SavedI = append(SavedI, ireg(i))
	}
	SavedF = []Reg{freg(8), freg(9)}
	for i := 18; i <= 27; i++ {
		SavedF = append(SavedF, freg(i))
	}
}

// ClassOf returns the register class of a float flag (helper for call
// sites that only know "is this operand float").
func ClassOf(isFloat bool) Class {
	if isFloat {
		return ClassFloat
	}
	return ClassInt
}

// IsTemp reports whether r is one of the caller-saved temporary
// registers the allocator can hand out. Call-site expansion (§4.6.1) saves
// a wider set, IsCallerSaved, which also covers the argument registers.
func IsTemp(r Reg) bool {
	pool := TempI
	if r.IsFloat() {
		pool = TempF
	}
	for _, t := range pool {
		if t == r {
			return true
		}
	}
	return false
}

// IsArg reports whether r is one of the ABI argument registers a0..a7 /
// fa0..fa7. Argument registers are caller-saved like temps, and a call
// site additionally overwrites them while placing its own arguments.
func IsArg(r Reg) bool {
	return r.Num >= 10 && r.Num <= 17
}

// IsCallerSaved reports whether the callee may clobber r, i.e. whether a
// live value in r must be saved across a call (§4.6.1).
func IsCallerSaved(r Reg) bool {
	return IsTemp(r) || IsArg(r)
}
