package zkvm

import (
	"fmt"

	"github.com/colorfulnotion/move0/codec"
	"github.com/colorfulnotion/move0/moveerrors"
)

// GuestEnv is the view of the session a guest program gets.
type GuestEnv interface {
	// Read decodes the next input frame into dst.
	Read(dst any) error
	// Commit appends the encoding of v to the public journal.
	Commit(v any) error
	// Cycles charges n cycles to the session.
	Cycles(n uint64)
}

type sessionLimitExceeded struct {
	limit uint64
}

type guestEnv struct {
	inputs  [][]byte
	next    int
	journal []byte
	cycles  uint64
	limit   uint64
}

func newGuestEnv(env *ExecutorEnv) *guestEnv {
	return &guestEnv{inputs: env.inputs, limit: env.sessionLimit}
}

func (g *guestEnv) Read(dst any) error {
	if g.next >= len(g.inputs) {
		return fmt.Errorf("%w: %d inputs", moveerrors.ErrPInputExhausted, len(g.inputs))
	}
	in := g.inputs[g.next]
	g.next++
	if err := codec.Unmarshal(in, dst); err != nil {
		return fmt.Errorf("input %d: %w", g.next-1, err)
	}
	return nil
}

func (g *guestEnv) Commit(v any) error {
	blob, err := codec.Marshal(v)
	if err != nil {
		return err
	}
	g.journal = append(g.journal, blob...)
	return nil
}

// Cycles unwinds the guest once the session limit is crossed.
func (g *guestEnv) Cycles(n uint64) {
	g.cycles += n
	if g.limit != 0 && g.cycles > g.limit {
		panic(sessionLimitExceeded{limit: g.limit})
	}
}
