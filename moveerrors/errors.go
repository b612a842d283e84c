package moveerrors

import (
	"errors"
	"strings"
)

// Harness (H) Errors
var (
	ErrHStatusMismatch      = errors.New("H1|StatusMismatch: Execution terminated with a status other than the expected one.")
	ErrHUnexpectedSuccess   = errors.New("H2|UnexpectedSuccess: Execution completed successfully but the fixture body always aborts.")
	ErrHUnknownCase         = errors.New("H3|UnknownCase: Fixture case index is out of range.")
	ErrHExecutionPanicked   = errors.New("H4|ExecutionPanicked: The interpreter panicked while executing the fixture.")
	ErrHMissingGuestInput   = errors.New("H5|MissingGuestInput: The guest could not read its script or argument input.")
	ErrHArgumentConversion  = errors.New("H6|ArgumentConversion: A fixture argument could not be serialized.")
	ErrHSignatureValueArity = errors.New("H7|SignatureValueArity: Fixture signature and argument list differ in length.")
)

// Storage (S) Errors
var (
	ErrSModuleSerialize = errors.New("S1|ModuleSerialize: A module could not be serialized before insertion.")
	ErrSStoreClosed     = errors.New("S2|StoreClosed: The persistent store has been closed.")
	ErrSCorruptEntry    = errors.New("S3|CorruptEntry: A stored module key could not be decoded.")
)

// Proof (P) Errors
var (
	ErrPInvalidSegmentLimit = errors.New("P1|InvalidSegmentLimit: Segment limit po2 is outside the supported range.")
	ErrPUnknownImage        = errors.New("P2|UnknownImage: No guest program is registered under the requested image id.")
	ErrPGuestFailed         = errors.New("P3|GuestFailed: The guest program returned an error.")
	ErrPGuestPanicked       = errors.New("P4|GuestPanicked: The guest program panicked.")
	ErrPInputExhausted      = errors.New("P5|InputExhausted: The guest read past the last input.")
	ErrPSessionLimit        = errors.New("P6|SessionLimit: The guest exceeded the session cycle limit.")
	ErrPImageMismatch       = errors.New("P7|ImageMismatch: Receipt claim was produced for a different image id.")
	ErrPSealMismatch        = errors.New("P8|SealMismatch: Receipt seal does not match its claim.")
	ErrPNilReceipt          = errors.New("P9|NilReceipt: No receipt was supplied for verification.")
	ErrPVerificationFailed  = errors.New("P10|VerificationFailed: The receipt did not verify against the expected image id.")
)

// GetErrorName extracts the error name from the error message.
func GetErrorName(err error) string {
	if err == nil {
		return "No Error"
	}
	errStr := err.Error()
	if !strings.Contains(errStr, "|") || !strings.Contains(errStr, ":") {
		return errStr
	}
	parts := strings.SplitN(errStr, "|", 2)
	if len(parts) < 2 {
		return errStr
	}
	nameDesc := parts[1]
	// Split on ':' to separate the error name from its description.
	nameParts := strings.SplitN(nameDesc, ":", 2)
	return strings.TrimSpace(nameParts[0])
}

func GetErrorNames(errs []error) []string {
	errStrs := make([]string, len(errs))
	for i, err := range errs {
		errStrs[i] = GetErrorName(err)
	}
	return errStrs
}

// GetErrorCode extracts the error code from the error message.
func GetErrorCode(err error) string {
	if err == nil {
		return ""
	}
	errStr := err.Error()
	if !strings.Contains(errStr, "|") {
		return ""
	}
	parts := strings.SplitN(errStr, "|", 2)
	return strings.TrimSpace(parts[0])
}

// GetErrorCodeWithName returns the error code and name in the format "Code_ErrorName".
func GetErrorCodeWithName(err error) string {
	code := GetErrorCode(err)
	name := GetErrorName(err)
	if code == "" || name == "" {
		return ""
	}
	return code + "_" + name
}

// GetErrorDesc extracts the error description from the error message.
func GetErrorDesc(err error) string {
	if err == nil {
		return ""
	}
	errStr := err.Error()
	parts := strings.SplitN(errStr, ":", 2)
	if len(parts) < 2 {
		return "DESC NOT SET"
	}
	return strings.TrimSpace(parts[1])
}
