package vm

import (
	"errors"
	"testing"

	"github.com/colorfulnotion/move0/assembler"
	"github.com/colorfulnotion/move0/fileformat"
	"github.com/colorfulnotion/move0/storage"
	"github.com/colorfulnotion/move0/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSession(t *testing.T, store Resolver, natives ...NativeFunction) *Session {
	t.Helper()
	vm, err := NewMoveVM(natives)
	require.NoError(t, err)
	return vm.NewSession(store)
}

func serialize(t *testing.T, values ...types.MoveValue) [][]byte {
	t.Helper()
	args, err := types.SerializeValues(values)
	require.NoError(t, err)
	return args
}

func scriptWithCode(t *testing.T, params fileformat.Signature, code ...fileformat.Bytecode) []byte {
	t.Helper()
	s := assembler.BuildScript(params)
	s.Code.Code = code
	blob, err := s.Serialize()
	require.NoError(t, err)
	return blob
}

func requireStatus(t *testing.T, expected types.StatusCode, verr *types.VMError) {
	t.Helper()
	require.NotNil(t, verr, "expected %s, execution returned", expected)
	assert.Equal(t, expected, verr.Major, verr.Error())
}

func TestExecuteScriptAborts(t *testing.T) {
	script := assembler.MakeScript(fileformat.Signature{fileformat.U8})
	verr := newTestSession(t, storage.NewRemoteStore()).
		ExecuteScript(script, nil, serialize(t, types.MoveU8(0)), UnmeteredGasMeter{})
	requireStatus(t, types.StatusAborted, verr)
	require.NotNil(t, verr.SubStatus)
	assert.Equal(t, uint64(0), *verr.SubStatus)
	assert.Equal(t, types.StatusTypeExecution, verr.StatusType())
	assert.Nil(t, verr.Location.Module)
	assert.Equal(t, 1, verr.Location.Offset)
}

func TestArgumentValidation(t *testing.T) {
	nestedAddr := fileformat.Signature{fileformat.Vector(fileformat.Vector(fileformat.Address))}
	cases := []struct {
		name   string
		params fileformat.Signature
		tyArgs []types.TypeTag
		args   func(t *testing.T) [][]byte
		status types.StatusCode
	}{
		{
			name:   "too few arguments",
			params: fileformat.Signature{fileformat.U8, fileformat.U64},
			args:   func(t *testing.T) [][]byte { return serialize(t, types.MoveU8(0)) },
			status: types.StatusNumberOfArgumentsMismatch,
		},
		{
			name:   "too many arguments",
			params: fileformat.Signature{},
			args:   func(t *testing.T) [][]byte { return serialize(t, types.MoveU8(0)) },
			status: types.StatusNumberOfArgumentsMismatch,
		},
		{
			name:   "wrong width",
			params: fileformat.Signature{fileformat.U64},
			args:   func(t *testing.T) [][]byte { return serialize(t, types.MoveU8(0)) },
			status: types.StatusFailedToDeserializeArgument,
		},
		{
			name:   "trailing bytes",
			params: fileformat.Signature{fileformat.Bool},
			args:   func(*testing.T) [][]byte { return [][]byte{{1, 0}} },
			status: types.StatusFailedToDeserializeArgument,
		},
		{
			name:   "malformed nested vector",
			params: nestedAddr,
			args:   func(*testing.T) [][]byte { return [][]byte{{2, 1, 0xAA}} },
			status: types.StatusFailedToDeserializeArgument,
		},
		{
			name:   "reference parameter",
			params: fileformat.Signature{fileformat.Reference(fileformat.U64)},
			args:   func(t *testing.T) [][]byte { return serialize(t, types.MoveU64(0)) },
			status: types.StatusInvalidMainFunctionSignature,
		},
		{
			name:   "signer after value",
			params: fileformat.Signature{fileformat.U64, fileformat.Signer},
			args: func(t *testing.T) [][]byte {
				return serialize(t, types.MoveU64(0), types.MoveSigner(types.AddressOne))
			},
			status: types.StatusInvalidMainFunctionSignature,
		},
		{
			name:   "vector of signer",
			params: fileformat.Signature{fileformat.Vector(fileformat.Signer)},
			args:   func(*testing.T) [][]byte { return [][]byte{{0}} },
			status: types.StatusInvalidMainFunctionSignature,
		},
		{
			name:   "type argument count",
			params: fileformat.Signature{},
			tyArgs: []types.TypeTag{types.U8Tag},
			args:   func(*testing.T) [][]byte { return nil },
			status: types.StatusNumberOfTypeArgumentsMismatch,
		},
		{
			name:   "signer prefix",
			params: fileformat.Signature{fileformat.Reference(fileformat.Signer), fileformat.Signer, fileformat.U64},
			args: func(t *testing.T) [][]byte {
				return serialize(t, types.MoveSigner(types.AddressOne), types.MoveSigner(types.AddressZero), types.MoveU64(9))
			},
			status: types.StatusAborted,
		},
		{
			name:   "nested vector",
			params: nestedAddr,
			args: func(t *testing.T) [][]byte {
				return serialize(t, types.MoveVector(types.MoveVector(types.MoveAddress(types.AddressOne))))
			},
			status: types.StatusAborted,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			script := assembler.MakeScript(tc.params)
			verr := newTestSession(t, storage.NewRemoteStore()).
				ExecuteScript(script, tc.tyArgs, tc.args(t), UnmeteredGasMeter{})
			requireStatus(t, tc.status, verr)
		})
	}
}

func TestDeserializationFailure(t *testing.T) {
	verr := newTestSession(t, storage.NewRemoteStore()).
		ExecuteScript([]byte{1, 2, 3}, nil, nil, UnmeteredGasMeter{})
	requireStatus(t, types.StatusBadMagic, verr)
	assert.Equal(t, types.StatusTypeDeserialization, verr.StatusType())
}

func TestVerifier(t *testing.T) {
	cases := []struct {
		name   string
		code   []fileformat.Bytecode
		status types.StatusCode
	}{
		{"empty", nil, types.StatusEmptyCodeUnit},
		{"fall through", []fileformat.Bytecode{fileformat.LdU64(0), fileformat.Pop()}, types.StatusInvalidFallThrough},
		{"branch offset", []fileformat.Bytecode{fileformat.Branch(5)}, types.StatusInvalidBranchOffset},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			script := scriptWithCode(t, fileformat.Signature{}, tc.code...)
			verr := newTestSession(t, storage.NewRemoteStore()).ExecuteScript(script, nil, nil, UnmeteredGasMeter{})
			requireStatus(t, tc.status, verr)
			assert.Equal(t, types.StatusTypeVerification, verr.StatusType())
		})
	}
}

func TestInterpreter(t *testing.T) {
	session := newTestSession(t, storage.NewRemoteStore())

	script := scriptWithCode(t, fileformat.Signature{},
		fileformat.LdTrue(),
		fileformat.BrTrue(3),
		fileformat.LdU64(1),
		fileformat.LdU64(7),
		fileformat.Abort(),
	)
	verr := session.ExecuteScript(script, nil, nil, UnmeteredGasMeter{})
	requireStatus(t, types.StatusAborted, verr)
	assert.Equal(t, uint64(7), *verr.SubStatus)

	ret := scriptWithCode(t, fileformat.Signature{}, fileformat.Nop(), fileformat.LdFalse(), fileformat.BrFalse(4), fileformat.Nop(), fileformat.Ret())
	assert.Nil(t, session.ExecuteScript(ret, nil, nil, UnmeteredGasMeter{}))

	underflow := scriptWithCode(t, fileformat.Signature{}, fileformat.Abort())
	requireStatus(t, types.StatusEmptyValueStack, session.ExecuteScript(underflow, nil, nil, UnmeteredGasMeter{}))

	badAbort := scriptWithCode(t, fileformat.Signature{}, fileformat.LdU8(1), fileformat.Abort())
	requireStatus(t, types.StatusUnknownInvariantViolation, session.ExecuteScript(badAbort, nil, nil, UnmeteredGasMeter{}))
}

func TestBoundedGas(t *testing.T) {
	loop := scriptWithCode(t, fileformat.Signature{}, fileformat.Nop(), fileformat.Branch(0))
	var steps CountingStepCounter
	session := newTestSession(t, storage.NewRemoteStore()).WithStepCounter(&steps)
	gas := NewBoundedGasMeter(100)
	verr := session.ExecuteScript(loop, nil, nil, gas)
	requireStatus(t, types.StatusOutOfGas, verr)
	assert.Equal(t, uint64(0), gas.Balance())
	assert.Equal(t, uint64(100), steps.Total)
	assert.Equal(t, uint64(50), steps.ByOp[fileformat.OpBranch])
}

func TestStackOverflow(t *testing.T) {
	loop := scriptWithCode(t, fileformat.Signature{}, fileformat.LdU8(0), fileformat.Branch(0))
	verr := newTestSession(t, storage.NewRemoteStore()).ExecuteScript(loop, nil, nil, UnmeteredGasMeter{})
	requireStatus(t, types.StatusExecutionStackOverflow, verr)
}

func scriptWithDependency(t *testing.T, id types.ModuleId) []byte {
	t.Helper()
	s := assembler.BuildScript(fileformat.Signature{})
	s.ModuleHandles = []fileformat.ModuleHandle{{Address: 0, Name: 0}}
	s.Identifiers = []types.Identifier{id.Name}
	s.AddressIdentifiers = []types.AccountAddress{id.Address}
	blob, err := s.Serialize()
	require.NoError(t, err)
	return blob
}

func TestScriptDependencies(t *testing.T) {
	addr := types.MustAccountAddressFromHex("0x42")
	module, _ := assembler.New(assembler.FixedAddress(addr)).MakeScriptFunction(fileformat.Signature{})
	script := scriptWithDependency(t, module.SelfID())

	verr := newTestSession(t, storage.NewRemoteStore()).ExecuteScript(script, nil, nil, UnmeteredGasMeter{})
	requireStatus(t, types.StatusLinkerError, verr)
	assert.Equal(t, types.StatusTypeVerification, verr.StatusType())

	store := storage.NewRemoteStore()
	require.NoError(t, store.AddModule(module))
	session := newTestSession(t, store)
	requireStatus(t, types.StatusAborted, session.ExecuteScript(script, nil, nil, UnmeteredGasMeter{}))
	assert.Equal(t, []types.ModuleId{module.SelfID()}, session.LoadedModules())

	// a module stored under the wrong id does not link
	wrong := storage.NewRemoteStore()
	blob, err := module.Serialize()
	require.NoError(t, err)
	other := types.NewModuleId(types.AddressOne, "M")
	wrong.AddModuleBytes(other, blob)
	verr = newTestSession(t, wrong).ExecuteScript(scriptWithDependency(t, other), nil, nil, UnmeteredGasMeter{})
	requireStatus(t, types.StatusLinkerError, verr)
}

type failingResolver struct{}

func (failingResolver) GetModule(types.ModuleId) ([]byte, bool, error) {
	return nil, false, errors.New("backend down")
}

func (failingResolver) GetResource(types.AccountAddress, *types.StructTag) ([]byte, bool, error) {
	return nil, false, nil
}

func TestResolverError(t *testing.T) {
	script := scriptWithDependency(t, types.NewModuleId(types.AddressOne, "M"))
	verr := newTestSession(t, failingResolver{}).ExecuteScript(script, nil, nil, UnmeteredGasMeter{})
	requireStatus(t, types.StatusStorageError, verr)
}

func TestExecuteEntryFunction(t *testing.T) {
	asm := assembler.New(assembler.NewSeededAddressGenerator(11))
	entry, name := asm.MakeScriptFunction(fileformat.Signature{fileformat.Reference(fileformat.Signer), fileformat.Vector(fileformat.U8)})
	private, _ := asm.MakeModuleWithFunction(fileformat.VisibilityPrivate, false, fileformat.Signature{}, fileformat.Signature{}, nil)
	store := storage.NewRemoteStore()
	require.NoError(t, store.AddModule(entry))
	require.NoError(t, store.AddModule(private))
	session := newTestSession(t, store)

	args := serialize(t, types.MoveSigner(types.AddressOne), types.VectorU8([]byte{1, 2}))
	requireStatus(t, types.StatusAborted, session.ExecuteEntryFunction(entry.SelfID(), name, nil, args, UnmeteredGasMeter{}))
	requireStatus(t, types.StatusNumberOfArgumentsMismatch, session.ExecuteEntryFunction(entry.SelfID(), name, nil, args[:1], UnmeteredGasMeter{}))
	requireStatus(t, types.StatusFunctionResolutionFailure, session.ExecuteEntryFunction(entry.SelfID(), "bar", nil, args, UnmeteredGasMeter{}))
	requireStatus(t, types.StatusExecuteEntryFunctionOnNonEntryFunction, session.ExecuteEntryFunction(private.SelfID(), name, nil, nil, UnmeteredGasMeter{}))
	requireStatus(t, types.StatusLinkerError, session.ExecuteEntryFunction(types.NewModuleId(types.AddressOne, "M"), name, nil, nil, UnmeteredGasMeter{}))
}

func TestGenericEntryFunction(t *testing.T) {
	module, name := assembler.New(assembler.NewSeededAddressGenerator(12)).MakeModuleWithFunction(
		fileformat.VisibilityPublic, true,
		fileformat.Signature{fileformat.Vector(fileformat.TypeParameter(0))},
		fileformat.Signature{},
		[]fileformat.AbilitySet{fileformat.EmptyAbilities},
	)
	store := storage.NewRemoteStore()
	require.NoError(t, store.AddModule(module))
	session := newTestSession(t, store)

	args := serialize(t, types.MoveVector(types.MoveU16(1), types.MoveU16(2)))
	requireStatus(t, types.StatusAborted, session.ExecuteEntryFunction(module.SelfID(), name, []types.TypeTag{types.U16Tag}, args, UnmeteredGasMeter{}))
	requireStatus(t, types.StatusFailedToDeserializeArgument, session.ExecuteEntryFunction(module.SelfID(), name, []types.TypeTag{types.U64Tag}, args, UnmeteredGasMeter{}))
	requireStatus(t, types.StatusInvalidMainFunctionSignature, session.ExecuteEntryFunction(module.SelfID(), name, []types.TypeTag{types.SignerTag}, args, UnmeteredGasMeter{}))
	requireStatus(t, types.StatusNumberOfTypeArgumentsMismatch, session.ExecuteEntryFunction(module.SelfID(), name, nil, args, UnmeteredGasMeter{}))
}

func TestNatives(t *testing.T) {
	addr := types.MustAccountAddressFromHex("0x7")
	module, name := assembler.New(assembler.FixedAddress(addr)).MakeScriptFunction(fileformat.Signature{fileformat.U64})
	module.FunctionDefs[0].Code = nil
	store := storage.NewRemoteStore()
	require.NoError(t, store.AddModule(module))
	args := serialize(t, types.MoveU64(5))

	verr := newTestSession(t, store).ExecuteEntryFunction(module.SelfID(), name, nil, args, UnmeteredGasMeter{})
	requireStatus(t, types.StatusMissingDependency, verr)

	var seen []types.MoveValue
	native := NativeFunction{
		Address: addr,
		Module:  assembler.ModuleName,
		Name:    name,
		Fn: func(_ []types.TypeTag, args []types.MoveValue) ([]types.MoveValue, error) {
			seen = args
			if args[0].Uint64() == 0 {
				return nil, types.NewVMError(types.StatusAborted).WithSubStatus(1)
			}
			return nil, nil
		},
	}
	session := newTestSession(t, store, native)
	assert.Nil(t, session.ExecuteEntryFunction(module.SelfID(), name, nil, args, UnmeteredGasMeter{}))
	require.Len(t, seen, 1)
	assert.Equal(t, uint64(5), seen[0].Uint64())

	verr = session.ExecuteEntryFunction(module.SelfID(), name, nil, serialize(t, types.MoveU64(0)), UnmeteredGasMeter{})
	requireStatus(t, types.StatusAborted, verr)

	_, err := NewMoveVM([]NativeFunction{native, native})
	assert.Error(t, err)
}

func TestDeterminism(t *testing.T) {
	script := assembler.MakeScript(fileformat.Signature{fileformat.Vector(fileformat.Address)})
	args := serialize(t, types.MoveVector())
	first := newTestSession(t, storage.NewRemoteStore()).ExecuteScript(script, nil, args, UnmeteredGasMeter{})
	for i := 0; i < 5; i++ {
		again := newTestSession(t, storage.NewRemoteStore()).ExecuteScript(script, nil, args, UnmeteredGasMeter{})
		assert.Equal(t, first, again)
	}
}
