// Package harness runs generated scripts on a fresh VM and checks that they
// terminate with the expected status.
package harness

import (
	"fmt"

	"github.com/colorfulnotion/move0/log"
	"github.com/colorfulnotion/move0/moveerrors"
	"github.com/colorfulnotion/move0/storage"
	"github.com/colorfulnotion/move0/types"
	"github.com/colorfulnotion/move0/vm"
)

// ExpectedStatus is the status every fixture must end with: the body
// aborts, so ABORTED means the script was accepted and ran.
const ExpectedStatus = types.StatusAborted

// CombineSignersAndArgs serializes each signer and places the signers, in
// order, before the other arguments.
func CombineSignersAndArgs(signers []types.AccountAddress, args [][]byte) [][]byte {
	combined := make([][]byte, 0, len(signers)+len(args))
	for _, s := range signers {
		blob, err := types.MoveSigner(s).SimpleSerialize()
		if err != nil {
			panic(fmt.Sprintf("signer must serialize: %v", err))
		}
		combined = append(combined, blob)
	}
	return append(combined, args...)
}

// CallScriptWithArgsTyArgsSigners runs script on a new VM and an empty
// in-memory store with unmetered gas.
func CallScriptWithArgsTyArgsSigners(script []byte, args [][]byte, tyArgs []types.TypeTag, signers []types.AccountAddress) *types.VMError {
	return CallScriptWithResolver(storage.NewRemoteStore(), script, args, tyArgs, signers, nil)
}

// CallScriptWithResolver is CallScriptWithArgsTyArgsSigners against a
// caller-supplied resolver. steps may be nil.
func CallScriptWithResolver(resolver vm.Resolver, script []byte, args [][]byte, tyArgs []types.TypeTag, signers []types.AccountAddress, steps vm.StepCounter) *types.VMError {
	moveVM, err := vm.NewMoveVM(nil)
	if err != nil {
		return types.NewVMError(types.StatusUnknownInvariantViolation).WithMessage("%v", err)
	}
	session := moveVM.NewSession(resolver)
	if steps != nil {
		session.WithStepCounter(steps)
	}
	return session.ExecuteScript(script, tyArgs, CombineSignersAndArgs(signers, args), vm.UnmeteredGasMeter{})
}

// CallScript runs script with args and no type arguments or signers.
func CallScript(script []byte, args [][]byte) *types.VMError {
	return CallScriptWithArgsTyArgsSigners(script, args, nil, nil)
}

// Outcome is the terminal state of one case.
type Outcome struct {
	Expected types.StatusCode
	Actual   types.StatusCode
	Status   *types.VMError
	Err      error
}

func (o Outcome) Passed() bool { return o.Err == nil }

func (o Outcome) String() string {
	if o.Passed() {
		return fmt.Sprintf("pass (%s)", o.Actual)
	}
	return fmt.Sprintf("fail: %v", o.Err)
}

// Check classifies the result of a run. Only a status equal to expected
// passes; success and every other status fail.
func Check(verr *types.VMError, expected types.StatusCode) Outcome {
	o := Outcome{Expected: expected, Actual: verr.MajorStatus(), Status: verr}
	switch {
	case verr == nil:
		o.Err = fmt.Errorf("%w: expected %s", moveerrors.ErrHUnexpectedSuccess, expected)
	case verr.Major != expected:
		o.Err = fmt.Errorf("%w: expected %s, got %s", moveerrors.ErrHStatusMismatch, expected, verr)
	}
	if o.Err != nil {
		log.Warn(log.HarnessMonitoring, "case failed", "expected", expected.String(), "actual", o.Actual.String())
	}
	return o
}

// Run executes script with args and checks the result against
// ExpectedStatus. A panic inside the VM is reported as a failed outcome.
func Run(script []byte, args [][]byte) (o Outcome) {
	defer func() {
		if r := recover(); r != nil {
			o = Outcome{Expected: ExpectedStatus, Actual: types.StatusUnknownStatus,
				Err: fmt.Errorf("%w: %v", moveerrors.ErrHExecutionPanicked, r)}
		}
	}()
	return Check(CallScript(script, args), ExpectedStatus)
}
