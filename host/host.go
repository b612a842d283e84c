// Package host proves that a script is accepted and aborts, then verifies
// the receipt against the guest image.
package host

import (
	"context"

	"github.com/colorfulnotion/move0/guest"
	"github.com/colorfulnotion/move0/log"
	"github.com/colorfulnotion/move0/moveerrors"
	"github.com/colorfulnotion/move0/zkvm"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// SegmentLimitPo2 is the segment ceiling every proof is run with.
const SegmentLimitPo2 = 15

var tracer = otel.Tracer("github.com/colorfulnotion/move0/host")

// ProveAndVerify runs the guest over script and args under prover and
// verifies the receipt against guest.ImageID. Failures are returned as is.
func ProveAndVerify(ctx context.Context, prover zkvm.Prover, script []byte, args [][]byte) (ok bool, err error) {
	return proveAndVerify(ctx, prover, guest.ImageID, guest.ImageID, script, args)
}

// proveAndVerify runs the image proveID and checks the receipt against verifyID.
func proveAndVerify(ctx context.Context, prover zkvm.Prover, proveID, verifyID zkvm.ImageID, script []byte, args [][]byte) (ok bool, err error) {
	ctx, span := tracer.Start(ctx, "host.ProveAndVerify")
	span.SetAttributes(attribute.Int("script_len", len(script)), attribute.Int("args", len(args)))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, moveerrors.GetErrorName(err))
		}
		span.End()
	}()

	env, err := zkvm.NewExecutorEnvBuilder().
		AddInput(script).
		AddInput(args).
		SegmentLimitPo2(SegmentLimitPo2).
		Build()
	if err != nil {
		return false, err
	}
	receipt, err := prover.Prove(ctx, env, proveID)
	if err != nil {
		return false, err
	}
	if err := receipt.Verify(verifyID); err != nil {
		return false, err
	}
	log.Info(log.HostMonitoring, "receipt verified", "image", verifyID.String(),
		"cycles", receipt.Claim.Cycles, "segments", receipt.Claim.Segments)
	return true, nil
}
