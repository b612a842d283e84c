package guest

import (
	"context"
	"testing"

	"github.com/colorfulnotion/move0/assembler"
	"github.com/colorfulnotion/move0/fileformat"
	"github.com/colorfulnotion/move0/moveerrors"
	"github.com/colorfulnotion/move0/types"
	"github.com/colorfulnotion/move0/zkvm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func prove(t *testing.T, script []byte, args [][]byte) (*zkvm.Receipt, error) {
	t.Helper()
	env, err := zkvm.NewExecutorEnvBuilder().AddInput(script).AddInput(args).SegmentLimitPo2(15).Build()
	require.NoError(t, err)
	return zkvm.DefaultProver().Prove(context.Background(), env, ImageID)
}

func TestRegistered(t *testing.T) {
	g, ok := zkvm.DefaultRegistry.Lookup(ImageID)
	require.True(t, ok)
	assert.Equal(t, Name, g.Name)
	assert.Equal(t, ImageID, Program().ImageID())
}

func TestMainCommitsAborted(t *testing.T) {
	args, err := types.SerializeValues([]types.MoveValue{types.MoveU8(0)})
	require.NoError(t, err)
	receipt, err := prove(t, assembler.MakeScript(fileformat.Signature{fileformat.U8}), args)
	require.NoError(t, err)
	require.NoError(t, receipt.Verify(ImageID))

	var status types.StatusCode
	require.NoError(t, receipt.Journal.Decode(&status))
	assert.Equal(t, types.StatusAborted, status)
	// LdU64, Abort
	assert.Equal(t, uint64(2), receipt.Claim.Cycles)
	assert.Equal(t, uint32(1), receipt.Claim.Segments)
}

func TestMainRejectsSuccess(t *testing.T) {
	script := assembler.BuildScript(nil)
	script.Code.Code = []fileformat.Bytecode{fileformat.Ret()}
	blob, err := script.Serialize()
	require.NoError(t, err)

	_, err = prove(t, blob, nil)
	assert.ErrorIs(t, err, moveerrors.ErrPGuestFailed)
	assert.ErrorIs(t, err, moveerrors.ErrHUnexpectedSuccess)
}

func TestMainRejectsOtherStatus(t *testing.T) {
	_, err := prove(t, assembler.MakeScript(fileformat.Signature{fileformat.U8}), nil)
	assert.ErrorIs(t, err, moveerrors.ErrHStatusMismatch)
}

func TestMainMissingInput(t *testing.T) {
	env, err := zkvm.NewExecutorEnvBuilder().AddInput([]byte{}).Build()
	require.NoError(t, err)
	_, err = zkvm.DefaultProver().Prove(context.Background(), env, ImageID)
	assert.ErrorIs(t, err, moveerrors.ErrHMissingGuestInput)
	assert.ErrorIs(t, err, moveerrors.ErrPInputExhausted)
}
