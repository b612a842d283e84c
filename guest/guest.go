// Package guest is the program proven by the host: it runs one script with
// its arguments and commits the status the VM terminated with.
package guest

import (
	"fmt"

	"github.com/colorfulnotion/move0/fileformat"
	"github.com/colorfulnotion/move0/harness"
	"github.com/colorfulnotion/move0/moveerrors"
	"github.com/colorfulnotion/move0/storage"
	"github.com/colorfulnotion/move0/vm"
	"github.com/colorfulnotion/move0/zkvm"
)

const (
	Name    = "move0"
	Version = 1
)

// ImageID identifies this guest to provers and verifiers.
var ImageID = zkvm.ComputeImageID(Name, Version)

func init() {
	if _, err := zkvm.DefaultRegistry.Register(Program()); err != nil {
		panic(err)
	}
}

// Program describes the guest for registration with a zkvm.Registry.
func Program() zkvm.Guest {
	return zkvm.Guest{Name: Name, Version: Version, Main: Main}
}

// cycleCounter charges one instruction cost per executed instruction.
type cycleCounter struct {
	env zkvm.GuestEnv
}

func (c cycleCounter) Step(fileformat.Opcode) { c.env.Cycles(vm.InstructionCost) }

// Main reads a serialized script and its arguments, executes the script
// against an empty store and commits the major status. It fails unless the
// script aborted.
func Main(env zkvm.GuestEnv) error {
	var script []byte
	if err := env.Read(&script); err != nil {
		return fmt.Errorf("%w: script: %w", moveerrors.ErrHMissingGuestInput, err)
	}
	var args [][]byte
	if err := env.Read(&args); err != nil {
		return fmt.Errorf("%w: args: %w", moveerrors.ErrHMissingGuestInput, err)
	}

	verr := harness.CallScriptWithResolver(storage.NewRemoteStore(), script, args, nil, nil, cycleCounter{env})
	o := harness.Check(verr, harness.ExpectedStatus)
	if err := env.Commit(o.Actual); err != nil {
		return err
	}
	return o.Err
}
