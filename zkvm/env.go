// Package zkvm is a local stand-in for a zero-knowledge proving system. It
// runs registered guest programs over framed inputs, meters their cycles
// into segments and binds the committed journal to the guest's image id in
// a verifiable receipt.
package zkvm

import (
	"encoding/binary"
	"fmt"

	"github.com/colorfulnotion/move0/codec"
	"github.com/colorfulnotion/move0/moveerrors"
	"golang.org/x/crypto/blake2b"
)

const (
	SegmentLimitPo2Min     = 13
	SegmentLimitPo2Max     = 24
	DefaultSegmentLimitPo2 = 20
)

// ExecutorEnv holds the inputs and limits for one proving session.
type ExecutorEnv struct {
	inputs       [][]byte
	segmentPo2   uint32
	sessionLimit uint64
}

func (e *ExecutorEnv) SegmentLimitPo2() uint32 { return e.segmentPo2 }

// SessionLimit is the cycle ceiling for the session; 0 means unlimited.
func (e *ExecutorEnv) SessionLimit() uint64 { return e.sessionLimit }

func (e *ExecutorEnv) NumInputs() int { return len(e.inputs) }

// InputDigest commits to the framed inputs in order.
func (e *ExecutorEnv) InputDigest() [32]byte {
	h, _ := blake2b.New256(nil)
	var n [8]byte
	binary.LittleEndian.PutUint64(n[:], uint64(len(e.inputs)))
	h.Write(n[:])
	for _, in := range e.inputs {
		binary.LittleEndian.PutUint64(n[:], uint64(len(in)))
		h.Write(n[:])
		h.Write(in)
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// ExecutorEnvBuilder collects inputs for an ExecutorEnv. The first error
// encountered is reported by Build.
type ExecutorEnvBuilder struct {
	env ExecutorEnv
	err error
}

func NewExecutorEnvBuilder() *ExecutorEnvBuilder {
	return &ExecutorEnvBuilder{env: ExecutorEnv{segmentPo2: DefaultSegmentLimitPo2}}
}

// AddInput appends the BCS encoding of v as the next input frame.
func (b *ExecutorEnvBuilder) AddInput(v any) *ExecutorEnvBuilder {
	if b.err != nil {
		return b
	}
	blob, err := codec.Marshal(v)
	if err != nil {
		b.err = fmt.Errorf("input %d: %w", len(b.env.inputs), err)
		return b
	}
	b.env.inputs = append(b.env.inputs, blob)
	return b
}

func (b *ExecutorEnvBuilder) SegmentLimitPo2(po2 uint32) *ExecutorEnvBuilder {
	b.env.segmentPo2 = po2
	return b
}

func (b *ExecutorEnvBuilder) SessionLimit(cycles uint64) *ExecutorEnvBuilder {
	b.env.sessionLimit = cycles
	return b
}

func (b *ExecutorEnvBuilder) Build() (*ExecutorEnv, error) {
	if b.err != nil {
		return nil, b.err
	}
	if po2 := b.env.segmentPo2; po2 < SegmentLimitPo2Min || po2 > SegmentLimitPo2Max {
		return nil, fmt.Errorf("%w: %d not in [%d, %d]", moveerrors.ErrPInvalidSegmentLimit,
			po2, SegmentLimitPo2Min, SegmentLimitPo2Max)
	}
	env := b.env
	env.inputs = append([][]byte(nil), b.env.inputs...)
	return &env, nil
}
