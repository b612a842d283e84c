package zkvm

import (
	"context"
	"errors"
	"fmt"

	"github.com/colorfulnotion/move0/log"
	"github.com/colorfulnotion/move0/moveerrors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/colorfulnotion/move0/zkvm")

// Prover produces a receipt for running the guest imageID over env.
type Prover interface {
	Prove(ctx context.Context, env *ExecutorEnv, imageID ImageID) (*Receipt, error)
}

// LocalProver runs guests in process.
type LocalProver struct {
	registry *Registry
}

// NewLocalProver returns a prover over registry, or DefaultRegistry when
// registry is nil.
func NewLocalProver(registry *Registry) *LocalProver {
	if registry == nil {
		registry = DefaultRegistry
	}
	return &LocalProver{registry: registry}
}

// DefaultProver returns a LocalProver over DefaultRegistry.
func DefaultProver() Prover { return NewLocalProver(nil) }

func (p *LocalProver) Prove(ctx context.Context, env *ExecutorEnv, imageID ImageID) (receipt *Receipt, err error) {
	ctx, span := tracer.Start(ctx, "zkvm.Prove", trace.WithAttributes(
		attribute.String("image_id", imageID.String()),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, moveerrors.GetErrorName(err))
			log.Warn(log.ZkvmMonitoring, "prove failed", "image", imageID.String(), "err", err)
		}
		span.End()
	}()

	if env == nil {
		return nil, errors.New("nil executor env")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	guest, ok := p.registry.Lookup(imageID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", moveerrors.ErrPUnknownImage, imageID)
	}
	span.SetAttributes(
		attribute.String("guest", guest.Name),
		attribute.Int("segment_limit_po2", int(env.segmentPo2)),
		attribute.Int("inputs", len(env.inputs)),
	)

	genv := newGuestEnv(env)
	if err := runGuest(guest.Main, genv); err != nil {
		return nil, err
	}

	segments := segmentCount(genv.cycles, env.segmentPo2)
	claim := ReceiptClaim{
		ImageID:       imageID,
		InputDigest:   env.InputDigest(),
		JournalDigest: Journal(genv.journal).Digest(),
		ExitCode:      ExitHalted,
		Segments:      segments,
		Cycles:        genv.cycles,
	}
	span.SetAttributes(attribute.Int64("cycles", int64(genv.cycles)), attribute.Int("segments", int(segments)))
	log.Debug(log.ZkvmMonitoring, "proved", "guest", guest.Name, "cycles", genv.cycles, "segments", segments)
	return &Receipt{Claim: claim, Journal: genv.journal, Seal: seal(claim)}, nil
}

func runGuest(fn GuestFunc, env *guestEnv) (err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if limit, ok := r.(sessionLimitExceeded); ok {
			err = fmt.Errorf("%w: %d cycles", moveerrors.ErrPSessionLimit, limit.limit)
			return
		}
		err = fmt.Errorf("%w: %v", moveerrors.ErrPGuestPanicked, r)
	}()
	if err := fn(env); err != nil {
		return fmt.Errorf("%w: %w", moveerrors.ErrPGuestFailed, err)
	}
	return nil
}

// segmentCount splits cycles into segments of 2^po2; every session has at
// least one segment.
func segmentCount(cycles uint64, po2 uint32) uint32 {
	size := uint64(1) << po2
	n := (cycles + size - 1) / size
	if n == 0 {
		n = 1
	}
	return uint32(n)
}
