package vm

import (
	"github.com/colorfulnotion/move0/fileformat"
	"github.com/colorfulnotion/move0/types"
)

// InstructionCost is the gas charged for every instruction.
const InstructionCost uint64 = 1

// GasMeter is charged once per executed instruction.
type GasMeter interface {
	ChargeInstruction(op fileformat.Opcode) *types.VMError
	Balance() uint64
}

// StepCounter observes every executed instruction.
type StepCounter interface {
	Step(op fileformat.Opcode)
}

// UnmeteredGasMeter never runs out.
type UnmeteredGasMeter struct{}

func (UnmeteredGasMeter) ChargeInstruction(fileformat.Opcode) *types.VMError { return nil }

func (UnmeteredGasMeter) Balance() uint64 { return ^uint64(0) }

// BoundedGasMeter fails with OUT_OF_GAS once its budget is spent.
type BoundedGasMeter struct {
	balance uint64
}

func NewBoundedGasMeter(budget uint64) *BoundedGasMeter {
	return &BoundedGasMeter{balance: budget}
}

func (m *BoundedGasMeter) ChargeInstruction(op fileformat.Opcode) *types.VMError {
	if m.balance < InstructionCost {
		m.balance = 0
		return types.NewVMError(types.StatusOutOfGas).WithMessage("out of gas at %s", op)
	}
	m.balance -= InstructionCost
	return nil
}

func (m *BoundedGasMeter) Balance() uint64 { return m.balance }

// CountingStepCounter counts executed instructions per opcode.
type CountingStepCounter struct {
	Total uint64
	ByOp  map[fileformat.Opcode]uint64
}

func (c *CountingStepCounter) Step(op fileformat.Opcode) {
	if c.ByOp == nil {
		c.ByOp = make(map[fileformat.Opcode]uint64)
	}
	c.Total++
	c.ByOp[op]++
}
