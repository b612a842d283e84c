package types

import (
	"fmt"
	"strings"
)

// Location identifies where a VM error was raised.
type Location struct {
	Module   *ModuleId
	Function string
	Offset   int
}

// Script is the location of a script's main function.
var Script = Location{}

func (l Location) String() string {
	var sb strings.Builder
	if l.Module == nil {
		sb.WriteString("script")
	} else {
		sb.WriteString(l.Module.String())
	}
	if l.Function != "" {
		sb.WriteString("::")
		sb.WriteString(l.Function)
	}
	fmt.Fprintf(&sb, "@%d", l.Offset)
	return sb.String()
}

// VMError is the terminal status of a failed run. A nil *VMError means the
// run returned normally.
type VMError struct {
	Major     StatusCode
	SubStatus *uint64
	Message   string
	Location  Location
}

func NewVMError(major StatusCode) *VMError {
	return &VMError{Major: major}
}

func (e *VMError) WithSubStatus(sub uint64) *VMError {
	e.SubStatus = &sub
	return e
}

func (e *VMError) WithMessage(format string, args ...interface{}) *VMError {
	e.Message = fmt.Sprintf(format, args...)
	return e
}

func (e *VMError) AtLocation(loc Location) *VMError {
	e.Location = loc
	return e
}

func (e *VMError) MajorStatus() StatusCode {
	if e == nil {
		return StatusExecuted
	}
	return e.Major
}

func (e *VMError) StatusType() StatusType {
	return e.MajorStatus().StatusType()
}

func (e *VMError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s (%d, %s)", e.Major, uint64(e.Major), e.Major.StatusType())
	if e.SubStatus != nil {
		fmt.Fprintf(&sb, " sub_status=%d", *e.SubStatus)
	}
	fmt.Fprintf(&sb, " at %s", e.Location)
	if e.Message != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Message)
	}
	return sb.String()
}
