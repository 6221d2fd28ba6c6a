// Package config defines the single immutable configuration record that is
// threaded by value through every compiler pass. Grounded on
// vslc/src/util/args.go's Options struct; spec.md §5 describes this as "a
// process-level immutable configuration record ... initialized once at
// startup and read by the lowering and dataflow passes without
// synchronization" — exactly this type, minus the teacher's parallelism
// knobs which have no home in a strictly single-threaded pipeline (§5).
package config

import (
	"flag"

	"github.com/sirupsen/logrus"
)

// Options is the compiler's global, read-only configuration.
type Options struct {
	// UsePhi selects phi-node merges for control-flow joins when true, or
	// alloca+store+load through a synthesized %replace_phi_0 local when
	// false. See spec.md §9 "Phi vs load/store switch".
	UsePhi bool

	// AllAllocsInEntry forces every alloca to the function's entry block
	// rather than the lexical block it was declared in. See spec.md §9
	// "Hoisting allocas": correctness for allocas declared inside a while
	// loop depends on entry-hoisting regardless of this flag; the flag only
	// affects allocas declared outside any loop.
	AllAllocsInEntry bool

	// Debug raises the logger to Debug level. It enables no extra checks:
	// the spill-register distinctness check (SPEC_FULL.md §13) always runs.
	Debug bool

	// Verbose raises the logger to Info and dumps the textual IR between
	// passes, mirroring the teacher's -vb flag and ir.Root.Print(0, true)
	// debug dump.
	Verbose bool

	Log *logrus.Logger
}

// Default returns the default Options: alloca+load+store merges (the only
// mode the assembly path can consume — phi-bearing IR is rejected at
// instruction selection), no entry hoisting, a logrus logger at Warn level.
func Default() Options {
	log := logrus.New()
	log.SetLevel(logrus.WarnLevel)
	return Options{Log: log}
}

// Parse parses command-line style flags into an Options record, mirroring
// the teacher's hand-rolled flag parser in shape (no third-party CLI
// framework appears anywhere in the retrieval pack, so the standard
// library's flag package is kept — see DESIGN.md).
func Parse(args []string) (Options, error) {
	opt := Default()
	fs := flag.NewFlagSet("sysyrv", flag.ContinueOnError)
	fs.BoolVar(&opt.UsePhi, "phi", false, "use phi-node merges instead of alloca+load+store (IR output only)")
	fs.BoolVar(&opt.AllAllocsInEntry, "hoist-allocas", false, "hoist every alloca to the function entry block")
	fs.BoolVar(&opt.Debug, "debug", false, "log at debug level")
	fs.BoolVar(&opt.Verbose, "v", false, "verbose: log every pass and dump IR between stages")
	if err := fs.Parse(args); err != nil {
		return opt, err
	}
	if opt.Verbose {
		opt.Log.SetLevel(logrus.InfoLevel)
	}
	if opt.Debug {
		opt.Log.SetLevel(logrus.DebugLevel)
	}
	return opt, nil
}
