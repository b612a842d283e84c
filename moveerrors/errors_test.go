package moveerrors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorParts(t *testing.T) {
	assert.Equal(t, "StatusMismatch", GetErrorName(ErrHStatusMismatch))
	assert.Equal(t, "H1", GetErrorCode(ErrHStatusMismatch))
	assert.Equal(t, "P7_ImageMismatch", GetErrorCodeWithName(ErrPImageMismatch))
	assert.Equal(t, "No Error", GetErrorName(nil))
	assert.Equal(t, "", GetErrorCode(fmt.Errorf("plain")))
	assert.Equal(t, "DESC NOT SET", GetErrorDesc(fmt.Errorf("plain")))
	assert.Equal(t, []string{"SealMismatch", "NilReceipt"}, GetErrorNames([]error{ErrPSealMismatch, ErrPNilReceipt}))
}

func TestWrappedErrorKeepsCode(t *testing.T) {
	wrapped := fmt.Errorf("%w: expected ABORTED got EXECUTED", ErrHUnexpectedSuccess)
	assert.ErrorIs(t, wrapped, ErrHUnexpectedSuccess)
	assert.Equal(t, "H2", GetErrorCode(wrapped))
	assert.Equal(t, "UnexpectedSuccess", GetErrorName(wrapped))
}
