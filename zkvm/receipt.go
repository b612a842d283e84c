package zkvm

import (
	"bytes"
	"context"
	"fmt"

	"github.com/colorfulnotion/move0/codec"
	"github.com/colorfulnotion/move0/moveerrors"
	"github.com/ethereum/go-ethereum/crypto"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/crypto/blake2b"
)

// ExitCode is the guest's terminal state. Only halted sessions produce
// receipts.
type ExitCode uint32

const ExitHalted ExitCode = 0

// ReceiptClaim is the public statement a receipt attests to.
type ReceiptClaim struct {
	ImageID       ImageID
	InputDigest   [32]byte
	JournalDigest [32]byte
	ExitCode      ExitCode
	Segments      uint32
	Cycles        uint64
}

func (c ReceiptClaim) Digest() [32]byte {
	return blake2b.Sum256(codec.MustMarshal(c))
}

// Journal is the concatenation of the values a guest committed.
type Journal []byte

func (j Journal) Digest() [32]byte { return blake2b.Sum256(j) }

// Decode decodes the journal as a single committed value.
func (j Journal) Decode(dst any) error { return codec.Unmarshal(j, dst) }

type Receipt struct {
	Claim   ReceiptClaim
	Journal Journal
	Seal    []byte
}

func seal(claim ReceiptClaim) []byte {
	digest := claim.Digest()
	return crypto.Keccak256(digest[:])
}

// Verify checks that the receipt was produced by the guest with imageID
// and that neither its claim nor its journal has been altered.
func (r *Receipt) Verify(imageID ImageID) (err error) {
	_, span := tracer.Start(context.Background(), "zkvm.Verify")
	span.SetAttributes(attribute.String("image_id", imageID.String()))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, moveerrors.GetErrorName(err))
		}
		span.End()
	}()

	if r == nil {
		return moveerrors.ErrPNilReceipt
	}
	if r.Claim.ImageID != imageID {
		return fmt.Errorf("%w: %w: receipt for %s, expected %s", moveerrors.ErrPVerificationFailed,
			moveerrors.ErrPImageMismatch, r.Claim.ImageID, imageID)
	}
	if r.Journal.Digest() != r.Claim.JournalDigest {
		return fmt.Errorf("%w: %w: journal digest", moveerrors.ErrPVerificationFailed, moveerrors.ErrPSealMismatch)
	}
	if !bytes.Equal(seal(r.Claim), r.Seal) {
		return fmt.Errorf("%w: %w", moveerrors.ErrPVerificationFailed, moveerrors.ErrPSealMismatch)
	}
	return nil
}
