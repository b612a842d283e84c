package zkvm

import (
	"context"
	"errors"
	"testing"

	"github.com/colorfulnotion/move0/moveerrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echo reads a blob and a count, charges count cycles and commits the
// blob's length.
func echo(env GuestEnv) error {
	var blob []byte
	var cycles uint64
	if err := env.Read(&blob); err != nil {
		return err
	}
	if err := env.Read(&cycles); err != nil {
		return err
	}
	env.Cycles(cycles)
	return env.Commit(uint64(len(blob)))
}

func newTestProver(t *testing.T) (*LocalProver, ImageID) {
	t.Helper()
	reg := NewRegistry()
	id, err := reg.Register(Guest{Name: "echo", Version: 1, Main: echo})
	require.NoError(t, err)
	return NewLocalProver(reg), id
}

func buildEnv(t *testing.T, blob []byte, cycles uint64, po2 uint32) *ExecutorEnv {
	t.Helper()
	env, err := NewExecutorEnvBuilder().AddInput(blob).AddInput(cycles).SegmentLimitPo2(po2).Build()
	require.NoError(t, err)
	return env
}

func TestExecutorEnvBuilder(t *testing.T) {
	env, err := NewExecutorEnvBuilder().AddInput([]byte{1, 2}).AddInput([][]byte{{3}}).Build()
	require.NoError(t, err)
	assert.Equal(t, uint32(DefaultSegmentLimitPo2), env.SegmentLimitPo2())
	assert.Equal(t, 2, env.NumInputs())
	assert.Zero(t, env.SessionLimit())

	for _, po2 := range []uint32{0, SegmentLimitPo2Min - 1, SegmentLimitPo2Max + 1} {
		_, err := NewExecutorEnvBuilder().SegmentLimitPo2(po2).Build()
		assert.ErrorIs(t, err, moveerrors.ErrPInvalidSegmentLimit, "po2 %d", po2)
	}

	_, err = NewExecutorEnvBuilder().AddInput(func() {}).Build()
	assert.Error(t, err)
}

func TestInputDigestDependsOnFraming(t *testing.T) {
	a := buildEnv(t, []byte{1, 2}, 3, 15)
	b := buildEnv(t, []byte{1, 2}, 3, 15)
	c := buildEnv(t, []byte{1}, 3, 15)
	assert.Equal(t, a.InputDigest(), b.InputDigest())
	assert.NotEqual(t, a.InputDigest(), c.InputDigest())
}

func TestImageID(t *testing.T) {
	assert.Equal(t, ComputeImageID("echo", 1), ComputeImageID("echo", 1))
	assert.NotEqual(t, ComputeImageID("echo", 1), ComputeImageID("echo", 2))
	assert.NotEqual(t, ComputeImageID("echo", 1), ComputeImageID("echo2", 1))
	assert.Len(t, ComputeImageID("echo", 1).String(), 66)
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	_, err := reg.Register(Guest{Name: "nil"})
	assert.Error(t, err)

	id, err := reg.Register(Guest{Name: "echo", Version: 1, Main: echo})
	require.NoError(t, err)
	_, err = reg.Register(Guest{Name: "echo", Version: 1, Main: echo})
	assert.Error(t, err)

	g, ok := reg.Lookup(id)
	require.True(t, ok)
	assert.Equal(t, "echo", g.Name)
	_, ok = reg.Lookup(ComputeImageID("missing", 0))
	assert.False(t, ok)
}

func TestProveAndVerify(t *testing.T) {
	prover, id := newTestProver(t)
	env := buildEnv(t, []byte{9, 9, 9}, 3<<15, 15)

	receipt, err := prover.Prove(context.Background(), env, id)
	require.NoError(t, err)
	require.NoError(t, receipt.Verify(id))

	var n uint64
	require.NoError(t, receipt.Journal.Decode(&n))
	assert.Equal(t, uint64(3), n)
	assert.Equal(t, uint32(3), receipt.Claim.Segments)
	assert.Equal(t, uint64(3<<15), receipt.Claim.Cycles)
	assert.Equal(t, env.InputDigest(), receipt.Claim.InputDigest)
	assert.Equal(t, ExitHalted, receipt.Claim.ExitCode)
}

func TestVerifyRejects(t *testing.T) {
	prover, id := newTestProver(t)
	prove := func() *Receipt {
		receipt, err := prover.Prove(context.Background(), buildEnv(t, []byte{1}, 1, 15), id)
		require.NoError(t, err)
		return receipt
	}

	err := prove().Verify(ComputeImageID("other", 1))
	assert.ErrorIs(t, err, moveerrors.ErrPImageMismatch)
	assert.ErrorIs(t, err, moveerrors.ErrPVerificationFailed)

	r := prove()
	r.Journal = Journal{2, 0, 0, 0, 0, 0, 0, 0}
	assert.ErrorIs(t, r.Verify(id), moveerrors.ErrPSealMismatch)

	r = prove()
	r.Claim.Cycles++
	assert.ErrorIs(t, r.Verify(id), moveerrors.ErrPSealMismatch)

	r = prove()
	r.Claim.ImageID = ComputeImageID("other", 1)
	assert.ErrorIs(t, r.Verify(ComputeImageID("other", 1)), moveerrors.ErrPSealMismatch)

	var nilReceipt *Receipt
	assert.ErrorIs(t, nilReceipt.Verify(id), moveerrors.ErrPNilReceipt)
}

func TestProveFailures(t *testing.T) {
	reg := NewRegistry()
	failing, err := reg.Register(Guest{Name: "fail", Main: func(GuestEnv) error { return errors.New("boom") }})
	require.NoError(t, err)
	panicking, err := reg.Register(Guest{Name: "panic", Main: func(GuestEnv) error { panic("boom") }})
	require.NoError(t, err)
	echoID, err := reg.Register(Guest{Name: "echo", Version: 1, Main: echo})
	require.NoError(t, err)
	prover := NewLocalProver(reg)
	ctx := context.Background()

	_, err = prover.Prove(ctx, buildEnv(t, nil, 0, 15), failing)
	assert.ErrorIs(t, err, moveerrors.ErrPGuestFailed)

	_, err = prover.Prove(ctx, buildEnv(t, nil, 0, 15), panicking)
	assert.ErrorIs(t, err, moveerrors.ErrPGuestPanicked)

	_, err = prover.Prove(ctx, buildEnv(t, nil, 0, 15), ComputeImageID("missing", 0))
	assert.ErrorIs(t, err, moveerrors.ErrPUnknownImage)

	env, err := NewExecutorEnvBuilder().AddInput([]byte{1}).Build()
	require.NoError(t, err)
	_, err = prover.Prove(ctx, env, echoID)
	assert.ErrorIs(t, err, moveerrors.ErrPInputExhausted)
	assert.ErrorIs(t, err, moveerrors.ErrPGuestFailed)

	env, err = NewExecutorEnvBuilder().AddInput([]byte{1}).AddInput(uint64(100)).SessionLimit(10).Build()
	require.NoError(t, err)
	_, err = prover.Prove(ctx, env, echoID)
	assert.ErrorIs(t, err, moveerrors.ErrPSessionLimit)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = prover.Prove(cancelled, buildEnv(t, nil, 0, 15), echoID)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSegmentCount(t *testing.T) {
	assert.Equal(t, uint32(1), segmentCount(0, 13))
	assert.Equal(t, uint32(1), segmentCount(1<<13, 13))
	assert.Equal(t, uint32(2), segmentCount(1<<13+1, 13))
}
