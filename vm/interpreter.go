package vm

import (
	"github.com/colorfulnotion/move0/fileformat"
	"github.com/colorfulnotion/move0/log"
	"github.com/colorfulnotion/move0/types"
)

const (
	OperandStackSizeMax = 1024
	CallStackSizeMax    = 1024
)

type valueKind uint8

const (
	valueBool valueKind = iota
	valueU8
	valueU64
)

// value is an operand stack entry.
type value struct {
	kind valueKind
	u    uint64
	b    bool
}

type frame struct {
	code     []fileformat.Bytecode
	locals   []types.MoveValue
	location types.Location
	pc       int
}

type interpreter struct {
	stack     []value
	callStack []*frame
	gas       GasMeter
	steps     StepCounter
	// done is set by Ret and Abort.
	done   bool
	result *types.VMError
}

// opcodeHandler runs one instruction and advances f.pc.
type opcodeHandler func(in *interpreter, f *frame, instr fileformat.Bytecode) *types.VMError

var dispatchTable [256]opcodeHandler

func init() {
	for i := range dispatchTable {
		dispatchTable[i] = handleUnknown
	}
	dispatchTable[fileformat.OpPop] = handlePop
	dispatchTable[fileformat.OpRet] = handleRet
	dispatchTable[fileformat.OpBrTrue] = handleBrTrue
	dispatchTable[fileformat.OpBrFalse] = handleBrFalse
	dispatchTable[fileformat.OpBranch] = handleBranch
	dispatchTable[fileformat.OpLdU64] = handleLdU64
	dispatchTable[fileformat.OpLdU8] = handleLdU8
	dispatchTable[fileformat.OpLdTrue] = handleLdTrue
	dispatchTable[fileformat.OpLdFalse] = handleLdFalse
	dispatchTable[fileformat.OpAbort] = handleAbort
	dispatchTable[fileformat.OpNop] = handleNop
}

func newInterpreter(gas GasMeter, steps StepCounter) *interpreter {
	return &interpreter{gas: gas, steps: steps}
}

func (in *interpreter) push(v value) *types.VMError {
	if len(in.stack) >= OperandStackSizeMax {
		return types.NewVMError(types.StatusExecutionStackOverflow)
	}
	in.stack = append(in.stack, v)
	return nil
}

func (in *interpreter) pop() (value, *types.VMError) {
	if len(in.stack) == 0 {
		return value{}, types.NewVMError(types.StatusEmptyValueStack)
	}
	v := in.stack[len(in.stack)-1]
	in.stack = in.stack[:len(in.stack)-1]
	return v, nil
}

func (in *interpreter) popBool() (bool, *types.VMError) {
	v, err := in.pop()
	if err != nil {
		return false, err
	}
	if v.kind != valueBool {
		return false, types.NewVMError(types.StatusUnknownInvariantViolation).WithMessage("expected bool on stack")
	}
	return v.b, nil
}

// run executes code to completion. A nil result means the code returned.
func (in *interpreter) run(code []fileformat.Bytecode, locals []types.MoveValue, loc types.Location) *types.VMError {
	if len(in.callStack) >= CallStackSizeMax {
		return types.NewVMError(types.StatusCallStackOverflow).AtLocation(loc)
	}
	f := &frame{code: code, locals: locals, location: loc}
	in.callStack = append(in.callStack, f)
	defer func() { in.callStack = in.callStack[:len(in.callStack)-1] }()

	for !in.done {
		if f.pc >= len(f.code) {
			return in.fail(f, types.NewVMError(types.StatusUnreachable).WithMessage("fell off end of code"))
		}
		instr := f.code[f.pc]
		if err := in.gas.ChargeInstruction(instr.Op); err != nil {
			return in.fail(f, err)
		}
		if in.steps != nil {
			in.steps.Step(instr.Op)
		}
		log.Trace(log.VMMonitoring, "step", "loc", f.location.String(), "pc", f.pc, "instr", instr.String(), "stack", len(in.stack))
		if err := dispatchTable[instr.Op](in, f, instr); err != nil {
			return in.fail(f, err)
		}
	}
	return in.result
}

func (in *interpreter) fail(f *frame, err *types.VMError) *types.VMError {
	loc := f.location
	loc.Offset = f.pc
	return err.AtLocation(loc)
}

func handleUnknown(_ *interpreter, _ *frame, instr fileformat.Bytecode) *types.VMError {
	return types.NewVMError(types.StatusUnknownOpcode).WithMessage("%s", instr.Op)
}

func handlePop(in *interpreter, f *frame, _ fileformat.Bytecode) *types.VMError {
	if _, err := in.pop(); err != nil {
		return err
	}
	f.pc++
	return nil
}

func handleRet(in *interpreter, _ *frame, _ fileformat.Bytecode) *types.VMError {
	in.done = true
	return nil
}

func handleBrTrue(in *interpreter, f *frame, instr fileformat.Bytecode) *types.VMError {
	cond, err := in.popBool()
	if err != nil {
		return err
	}
	if cond {
		f.pc = int(instr.Arg)
	} else {
		f.pc++
	}
	return nil
}

func handleBrFalse(in *interpreter, f *frame, instr fileformat.Bytecode) *types.VMError {
	cond, err := in.popBool()
	if err != nil {
		return err
	}
	if !cond {
		f.pc = int(instr.Arg)
	} else {
		f.pc++
	}
	return nil
}

func handleBranch(_ *interpreter, f *frame, instr fileformat.Bytecode) *types.VMError {
	f.pc = int(instr.Arg)
	return nil
}

func handleLdU64(in *interpreter, f *frame, instr fileformat.Bytecode) *types.VMError {
	f.pc++
	return in.push(value{kind: valueU64, u: instr.Arg})
}

func handleLdU8(in *interpreter, f *frame, instr fileformat.Bytecode) *types.VMError {
	f.pc++
	return in.push(value{kind: valueU8, u: instr.Arg & 0xFF})
}

func handleLdTrue(in *interpreter, f *frame, _ fileformat.Bytecode) *types.VMError {
	f.pc++
	return in.push(value{kind: valueBool, b: true})
}

func handleLdFalse(in *interpreter, f *frame, _ fileformat.Bytecode) *types.VMError {
	f.pc++
	return in.push(value{kind: valueBool, b: false})
}

// handleAbort ends execution with ABORTED and the popped u64 as sub status.
func handleAbort(in *interpreter, f *frame, _ fileformat.Bytecode) *types.VMError {
	v, err := in.pop()
	if err != nil {
		return err
	}
	if v.kind != valueU64 {
		return types.NewVMError(types.StatusUnknownInvariantViolation).WithMessage("abort code must be u64")
	}
	in.done = true
	loc := f.location
	loc.Offset = f.pc
	in.result = types.NewVMError(types.StatusAborted).WithSubStatus(v.u).AtLocation(loc)
	return nil
}

func handleNop(_ *interpreter, f *frame, _ fileformat.Bytecode) *types.VMError {
	f.pc++
	return nil
}
