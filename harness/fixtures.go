package harness

import (
	"fmt"

	"github.com/colorfulnotion/move0/assembler"
	"github.com/colorfulnotion/move0/fileformat"
	"github.com/colorfulnotion/move0/moveerrors"
	"github.com/colorfulnotion/move0/types"
	"github.com/holiman/uint256"
)

// Case is a script signature together with arguments it accepts.
type Case struct {
	Name      string
	Signature fileformat.Signature
	Args      []types.MoveValue
}

// Validate checks that the case has one argument per parameter.
func (c Case) Validate() error {
	if len(c.Signature) != len(c.Args) {
		return fmt.Errorf("%w: %s has %d parameters and %d arguments",
			moveerrors.ErrHSignatureValueArity, c.Name, len(c.Signature), len(c.Args))
	}
	return nil
}

// Script assembles the case's script.
func (c Case) Script() []byte {
	return assembler.MakeScript(c.Signature)
}

// SerializedArgs serializes the arguments in order.
func (c Case) SerializedArgs() ([][]byte, error) {
	args, err := types.SerializeValues(c.Args)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", moveerrors.ErrHArgumentConversion, c.Name, err)
	}
	return args, nil
}

// Run assembles and executes the case.
func (c Case) Run() Outcome {
	args, err := c.SerializedArgs()
	if err != nil {
		return Outcome{Expected: ExpectedStatus, Actual: types.StatusUnknownStatus, Err: err}
	}
	return Run(c.Script(), args)
}

func addresses(gen assembler.AddressGenerator, n int) []types.MoveValue {
	out := make([]types.MoveValue, n)
	for i := range out {
		out[i] = types.MoveAddress(gen.NextAddress())
	}
	return out
}

// GoodSignaturesAndArguments returns the fixture catalogue. Every case is
// expected to run and abort. Addresses are drawn from gen.
func GoodSignaturesAndArguments(gen assembler.AddressGenerator) []Case {
	vecU8 := fileformat.Vector(fileformat.U8)
	vecAddr := fileformat.Vector(fileformat.Address)
	return []Case{
		{
			Name:      "u128",
			Signature: fileformat.Signature{fileformat.U128},
			Args:      []types.MoveValue{types.MoveU128(uint256.NewInt(0))},
		},
		{
			Name:      "u8",
			Signature: fileformat.Signature{fileformat.U8},
			Args:      []types.MoveValue{types.MoveU8(0)},
		},
		{
			Name:      "u16",
			Signature: fileformat.Signature{fileformat.U16},
			Args:      []types.MoveValue{types.MoveU16(0)},
		},
		{
			Name:      "u32",
			Signature: fileformat.Signature{fileformat.U32},
			Args:      []types.MoveValue{types.MoveU32(0)},
		},
		{
			Name:      "u256",
			Signature: fileformat.Signature{fileformat.U256},
			Args:      []types.MoveValue{types.MoveU256(uint256.NewInt(0))},
		},
		{
			Name:      "vector<bool>",
			Signature: fileformat.Signature{fileformat.Vector(fileformat.Bool)},
			Args:      []types.MoveValue{types.MoveVector(types.MoveBool(false), types.MoveBool(true))},
		},
		{
			Name:      "bool, vector<u8>, address",
			Signature: fileformat.Signature{fileformat.Bool, vecU8, fileformat.Address},
			Args: []types.MoveValue{
				types.MoveBool(true),
				types.VectorU8([]byte{0, 1}),
				types.MoveAddress(gen.NextAddress()),
			},
		},
		{
			Name:      "bool, vector<u8>, vector<vector<address>>",
			Signature: fileformat.Signature{fileformat.Bool, vecU8, fileformat.Vector(vecAddr)},
			Args: []types.MoveValue{
				types.MoveBool(true),
				types.VectorU8([]byte{0, 1}),
				types.MoveVector(
					types.MoveVector(addresses(gen, 2)...),
					types.MoveVector(addresses(gen, 2)...),
					types.MoveVector(addresses(gen, 2)...),
				),
			},
		},
		{
			Name:      "empty vector<address>",
			Signature: fileformat.Signature{vecAddr},
			Args:      []types.MoveValue{types.MoveVector()},
		},
		{
			Name:      "one element vector<address>",
			Signature: fileformat.Signature{vecAddr},
			Args:      []types.MoveValue{types.MoveVector(addresses(gen, 1)...)},
		},
		{
			Name:      "five element vector<address>",
			Signature: fileformat.Signature{vecAddr},
			Args:      []types.MoveValue{types.MoveVector(addresses(gen, 5)...)},
		},
		{
			Name:      "empty vector<vector<u8>>",
			Signature: fileformat.Signature{fileformat.Vector(vecU8)},
			Args:      []types.MoveValue{types.MoveVector()},
		},
		{
			Name:      "vector<vector<u8>>",
			Signature: fileformat.Signature{fileformat.Vector(vecU8)},
			Args: []types.MoveValue{types.MoveVector(
				types.VectorU8([]byte{0, 1}),
				types.VectorU8([]byte{2, 3}),
				types.VectorU8([]byte{4, 5}),
			)},
		},
	}
}

// SelectCase returns cases[idx]; a negative idx selects the last case.
func SelectCase(cases []Case, idx int) (Case, error) {
	if idx < 0 {
		idx = len(cases) - 1
	}
	if idx < 0 || idx >= len(cases) {
		return Case{}, fmt.Errorf("%w: %d of %d", moveerrors.ErrHUnknownCase, idx, len(cases))
	}
	return cases[idx], nil
}
