package fileformat

import "fmt"

// Opcode is the wire byte of an instruction.
type Opcode uint8

const (
	OpPop     Opcode = 0x01
	OpRet     Opcode = 0x02
	OpBrTrue  Opcode = 0x03
	OpBrFalse Opcode = 0x04
	OpBranch  Opcode = 0x05
	OpLdU64   Opcode = 0x06
	OpLdTrue  Opcode = 0x08
	OpLdFalse Opcode = 0x09
	OpAbort   Opcode = 0x27
	OpNop     Opcode = 0x28
	OpLdU8    Opcode = 0x31
)

var opcodeNames = map[Opcode]string{
	OpPop:     "Pop",
	OpRet:     "Ret",
	OpBrTrue:  "BrTrue",
	OpBrFalse: "BrFalse",
	OpBranch:  "Branch",
	OpLdU64:   "LdU64",
	OpLdTrue:  "LdTrue",
	OpLdFalse: "LdFalse",
	OpAbort:   "Abort",
	OpNop:     "Nop",
	OpLdU8:    "LdU8",
}

func (op Opcode) String() string {
	if name, ok := opcodeNames[op]; ok {
		return name
	}
	return fmt.Sprintf("Op(%#x)", uint8(op))
}

// Known reports whether op is in the supported instruction set.
func (op Opcode) Known() bool {
	_, ok := opcodeNames[op]
	return ok
}

// IsBranch reports whether the operand of op is a code offset.
func (op Opcode) IsBranch() bool {
	return op == OpBrTrue || op == OpBrFalse || op == OpBranch
}

// IsUnconditionalBranch reports whether control never falls through op.
func (op Opcode) IsUnconditionalBranch() bool {
	return op == OpRet || op == OpAbort || op == OpBranch
}

// Bytecode is one instruction with its immediate operand.
type Bytecode struct {
	Op  Opcode
	Arg uint64
}

func Pop() Bytecode { return Bytecode{Op: OpPop} }
func Ret() Bytecode { return Bytecode{Op: OpRet} }
func Abort() Bytecode { return Bytecode{Op: OpAbort} }
func Nop() Bytecode { return Bytecode{Op: OpNop} }
func LdTrue() Bytecode { return Bytecode{Op: OpLdTrue} }
func LdFalse() Bytecode { return Bytecode{Op: OpLdFalse} }
func LdU8(v uint8) Bytecode { return Bytecode{Op: OpLdU8, Arg: uint64(v)} }
func LdU64(v uint64) Bytecode { return Bytecode{Op: OpLdU64, Arg: v} }
func BrTrue(off CodeOffset) Bytecode { return Bytecode{Op: OpBrTrue, Arg: uint64(off)} }
func BrFalse(off CodeOffset) Bytecode { return Bytecode{Op: OpBrFalse, Arg: uint64(off)} }
func Branch(off CodeOffset) Bytecode { return Bytecode{Op: OpBranch, Arg: uint64(off)} }

func (b Bytecode) String() string {
	switch {
	case b.Op == OpLdU8 || b.Op == OpLdU64 || b.Op.IsBranch():
		return fmt.Sprintf("%s(%d)", b.Op, b.Arg)
	}
	return b.Op.String()
}

// AbortBody is the fixed body of every generated code unit.
func AbortBody() []Bytecode {
	return []Bytecode{LdU64(0), Abort()}
}
