package fileformat

import (
	"errors"
	"fmt"

	"github.com/colorfulnotion/move0/types"
)

var MoveMagic = [4]byte{0xA1, 0x1C, 0xEB, 0x0B}

const (
	VersionMin uint32 = 5
	VersionMax uint32 = 6

	// TableCountMax bounds the number of table headers.
	TableCountMax     = 255
	IdentifierSizeMax = 65535
	SignatureSizeMax  = 255
	BytecodeCountMax  = 65535
	ConstantSizeMax   = 65535
)

// TableType is the wire kind of a table.
type TableType uint8

const (
	TableModuleHandles      TableType = 0x1
	TableStructHandles      TableType = 0x2
	TableFunctionHandles    TableType = 0x3
	TableFunctionInst       TableType = 0x4
	TableSignatures         TableType = 0x5
	TableConstantPool       TableType = 0x6
	TableIdentifiers        TableType = 0x7
	TableAddressIdentifiers TableType = 0x8
	TableStructDefs         TableType = 0xA
	TableStructDefInst      TableType = 0xB
	TableFunctionDefs       TableType = 0xC
	TableFieldHandle        TableType = 0xD
	TableFieldInst          TableType = 0xE
	TableFriendDecls        TableType = 0xF
	TableMetadata           TableType = 0x10
)

const (
	fieldInfoNative   uint8 = 0x1
	fieldInfoDeclared uint8 = 0x2

	functionFlagNative uint8 = 0x2
	functionFlagEntry  uint8 = 0x4
)

// BinaryError is a failure of the serializer, the deserializer or the
// bounds checker. Status is the VM status it maps to.
type BinaryError struct {
	Status  types.StatusCode
	Message string
}

func (e *BinaryError) Error() string {
	if e.Message == "" {
		return e.Status.String()
	}
	return fmt.Sprintf("%s: %s", e.Status, e.Message)
}

func binaryErr(status types.StatusCode, format string, args ...interface{}) *BinaryError {
	return &BinaryError{Status: status, Message: fmt.Sprintf(format, args...)}
}

// StatusOf extracts the VM status of err, or StatusUnknownStatus.
func StatusOf(err error) types.StatusCode {
	var be *BinaryError
	if errors.As(err, &be) {
		return be.Status
	}
	return types.StatusUnknownStatus
}
