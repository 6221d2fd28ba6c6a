package codegen

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"sysyrv/internal/config"
	"sysyrv/internal/regalloc"
	"sysyrv/internal/riscv"
)

// Generate runs the whole post-selection pipeline over prog: register
// allocation, call-site expansion, frame finalization and peephole
// cleanup, function by function, then emits the result as text (spec.md
// §4.5-§4.7).
func Generate(prog *riscv.Program, opt config.Options) (string, error) {
	log := opt.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	for _, fn := range prog.Funcs {
		if err := generateFunction(fn, log); err != nil {
			return "", errors.Wrapf(err, "function %q", fn.Label)
		}
	}
	return Emit(prog), nil
}

func generateFunction(fn *riscv.Function, log *logrus.Logger) error {
	log.WithField("func", fn.Label).Debug("codegen: enter")

	// CallLiveAcross walks virtual names that Rewrite is about to erase,
	// so it has to run first.
	liveAcross := regalloc.CallLiveAcross(fn)

	res, err := regalloc.Allocate(fn)
	if err != nil {
		return errors.Wrap(err, "register allocation")
	}
	if err := regalloc.Rewrite(fn, res); err != nil {
		return errors.Wrap(err, "register rewrite")
	}

	if err := ExpandCalls(fn, res, liveAcross); err != nil {
		return errors.Wrap(err, "call expansion")
	}
	if err := FinalizeFrame(fn); err != nil {
		return errors.Wrap(err, "frame finalization")
	}
	Peephole(fn)

	if log.IsLevelEnabled(logrus.DebugLevel) {
		log.WithField("func", fn.Label).WithField("frame_size", fn.Stack.FrameSize).Debug("codegen: exit")
	}
	return nil
}
