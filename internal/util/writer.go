// Package util provides small shared building blocks — a text-assembly
// writer and a scope stack — used by the IR lowering and code generation
// passes.
//
// Grounded on vslc/src/util/io.go's Writer type and vslc/src/util/stack.go's
// Stack type. The teacher's versions are built for its optional multi-
// threaded front end (channel-based Writer, mutex-guarded Stack); spec.md
// §5 mandates a strictly single-threaded, sequential pipeline, so the
// concurrency plumbing is dropped here and only the textual-instruction
// builder API survives (see DESIGN.md).
package util

import (
	"fmt"
	"strings"
)

// Writer accumulates textual assembly output line by line.
type Writer struct {
	sb strings.Builder
}

// NewWriter returns an empty Writer.
func NewWriter() *Writer { return &Writer{} }

// Write appends a formatted string verbatim (no implicit indentation or
// trailing newline).
func (w *Writer) Write(format string, args ...interface{}) {
	fmt.Fprintf(&w.sb, format, args...)
}

// WriteString appends s verbatim.
func (w *Writer) WriteString(s string) { w.sb.WriteString(s) }

// Ins0 writes a bare zero-operand instruction, e.g. "ret".
func (w *Writer) Ins0(op string) {
	fmt.Fprintf(&w.sb, "\t%s\n", op)
}

// Ins1 writes a one-operand instruction, e.g. "call foo".
func (w *Writer) Ins1(op, rs1 string) {
	fmt.Fprintf(&w.sb, "\t%s\t%s\n", op, rs1)
}

// Ins2 writes a two-operand instruction, e.g. "mv a0, a1".
func (w *Writer) Ins2(op, rd, rs1 string) {
	fmt.Fprintf(&w.sb, "\t%s\t%s, %s\n", op, rd, rs1)
}

// Ins2imm writes a two-register-plus-immediate instruction, e.g.
// "addi sp, sp, -16".
func (w *Writer) Ins2imm(op, rd, rs1 string, imm int) {
	fmt.Fprintf(&w.sb, "\t%s\t%s, %s, %d\n", op, rd, rs1, imm)
}

// Ins3 writes a three-register instruction, e.g. "add a0, a1, a2".
func (w *Writer) Ins3(op, rd, rs1, rs2 string) {
	fmt.Fprintf(&w.sb, "\t%s\t%s, %s, %s\n", op, rd, rs1, rs2)
}

// LoadStore writes a base+offset load/store instruction, e.g. "lw a0, 8(sp)".
func (w *Writer) LoadStore(op, reg string, offset int, base string) {
	fmt.Fprintf(&w.sb, "\t%s\t%s, %d(%s)\n", op, reg, offset, base)
}

// Label writes a bare label line.
func (w *Writer) Label(name string) {
	fmt.Fprintf(&w.sb, "%s:\n", name)
}

// Comment writes a '#'-prefixed comment line.
func (w *Writer) Comment(format string, args ...interface{}) {
	w.sb.WriteString("\t# ")
	fmt.Fprintf(&w.sb, format, args...)
	w.sb.WriteByte('\n')
}

// String returns the accumulated text.
func (w *Writer) String() string { return w.sb.String() }
