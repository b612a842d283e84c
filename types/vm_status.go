package types

import "fmt"

// StatusCode is the major status of a VM run. The numeric ranges select the
// category reported by StatusType.
type StatusCode uint64

const (
	StatusUnknownValidation                      StatusCode = 0
	StatusNumberOfArgumentsMismatch              StatusCode = 28
	StatusFailedToDeserializeArgument            StatusCode = 35
	StatusNumberOfSignerArgumentsMismatch        StatusCode = 36
	StatusInvalidMainFunctionSignature           StatusCode = 37
	StatusUnknownVerification                    StatusCode = 1000
	StatusIndexOutOfBounds                       StatusCode = 1001
	StatusEmptyCodeUnit                          StatusCode = 1010
	StatusInvalidFallThrough                     StatusCode = 1012
	StatusInvalidBranchOffset                    StatusCode = 1013
	StatusMissingDependency                      StatusCode = 1021
	StatusNumberOfTypeArgumentsMismatch          StatusCode = 1022
	StatusLinkerError                            StatusCode = 1054
	StatusFunctionResolutionFailure              StatusCode = 1091
	StatusCyclicModuleDependency                 StatusCode = 1092
	StatusExecuteEntryFunctionOnNonEntryFunction StatusCode = 1114
	StatusUnknownInvariantViolation              StatusCode = 2000
	StatusEmptyValueStack                        StatusCode = 2003
	StatusStorageError                           StatusCode = 2008
	StatusUnreachable                            StatusCode = 2010
	StatusUnknownDeserialization                 StatusCode = 3000
	StatusMalformed                              StatusCode = 3001
	StatusBadMagic                               StatusCode = 3002
	StatusUnknownVersion                         StatusCode = 3003
	StatusUnknownTableType                       StatusCode = 3004
	StatusUnknownSignatureType                   StatusCode = 3005
	StatusUnknownOpcode                          StatusCode = 3007
	StatusBadULEB128                             StatusCode = 3008
	StatusUnknownExecution                       StatusCode = 4000
	StatusExecuted                               StatusCode = 4001
	StatusOutOfGas                               StatusCode = 4002
	StatusArithmeticError                        StatusCode = 4017
	StatusExecutionStackOverflow                 StatusCode = 4020
	StatusCallStackOverflow                      StatusCode = 4021
	StatusAborted                                StatusCode = 4016
	StatusUnknownStatus                          StatusCode = ^StatusCode(0)
)

var statusNames = map[StatusCode]string{
	StatusUnknownValidation:                      "UNKNOWN_VALIDATION_STATUS",
	StatusNumberOfArgumentsMismatch:              "NUMBER_OF_ARGUMENTS_MISMATCH",
	StatusFailedToDeserializeArgument:            "FAILED_TO_DESERIALIZE_ARGUMENT",
	StatusNumberOfSignerArgumentsMismatch:        "NUMBER_OF_SIGNER_ARGUMENTS_MISMATCH",
	StatusInvalidMainFunctionSignature:           "INVALID_MAIN_FUNCTION_SIGNATURE",
	StatusUnknownVerification:                    "UNKNOWN_VERIFICATION_ERROR",
	StatusIndexOutOfBounds:                       "INDEX_OUT_OF_BOUNDS",
	StatusEmptyCodeUnit:                          "EMPTY_CODE_UNIT",
	StatusInvalidFallThrough:                     "INVALID_FALL_THROUGH",
	StatusInvalidBranchOffset:                    "INVALID_BRANCH_OFFSET",
	StatusNumberOfTypeArgumentsMismatch:          "NUMBER_OF_TYPE_ARGUMENTS_MISMATCH",
	StatusLinkerError:                            "LINKER_ERROR",
	StatusExecuteEntryFunctionOnNonEntryFunction: "EXECUTE_ENTRY_FUNCTION_CALLED_ON_NON_ENTRY_FUNCTION",
	StatusFunctionResolutionFailure:              "FUNCTION_RESOLUTION_FAILURE",
	StatusCyclicModuleDependency:                 "CYCLIC_MODULE_DEPENDENCY",
	StatusMissingDependency:                      "MISSING_DEPENDENCY",
	StatusEmptyValueStack:                        "EMPTY_VALUE_STACK",
	StatusStorageError:                           "STORAGE_ERROR",
	StatusUnknownInvariantViolation:              "UNKNOWN_INVARIANT_VIOLATION_ERROR",
	StatusUnreachable:                            "UNREACHABLE",
	StatusUnknownDeserialization:                 "UNKNOWN_BINARY_ERROR",
	StatusMalformed:                              "MALFORMED",
	StatusBadMagic:                               "BAD_MAGIC",
	StatusUnknownVersion:                         "UNKNOWN_VERSION",
	StatusUnknownTableType:                       "UNKNOWN_TABLE_TYPE",
	StatusUnknownSignatureType:                   "UNKNOWN_SIGNATURE_TYPE",
	StatusUnknownOpcode:                          "UNKNOWN_OPCODE",
	StatusBadULEB128:                             "BAD_U32",
	StatusUnknownExecution:                       "UNKNOWN_RUNTIME_STATUS",
	StatusExecuted:                               "EXECUTED",
	StatusOutOfGas:                               "OUT_OF_GAS",
	StatusArithmeticError:                        "ARITHMETIC_ERROR",
	StatusExecutionStackOverflow:                 "EXECUTION_STACK_OVERFLOW",
	StatusCallStackOverflow:                      "CALL_STACK_OVERFLOW",
	StatusAborted:                                "ABORTED",
	StatusUnknownStatus:                          "UNKNOWN_STATUS",
}

func (s StatusCode) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("STATUS_%d", uint64(s))
}

// StatusType is the category of a status code.
type StatusType uint8

const (
	StatusTypeValidation StatusType = iota
	StatusTypeVerification
	StatusTypeInvariantViolation
	StatusTypeDeserialization
	StatusTypeExecution
	StatusTypeUnknown
)

func (t StatusType) String() string {
	switch t {
	case StatusTypeValidation:
		return "Validation"
	case StatusTypeVerification:
		return "Verification"
	case StatusTypeInvariantViolation:
		return "InvariantViolation"
	case StatusTypeDeserialization:
		return "Deserialization"
	case StatusTypeExecution:
		return "Execution"
	}
	return "Unknown"
}

func (s StatusCode) StatusType() StatusType {
	switch {
	case s < 1000:
		return StatusTypeValidation
	case s < 2000:
		return StatusTypeVerification
	case s < 3000:
		return StatusTypeInvariantViolation
	case s < 4000:
		return StatusTypeDeserialization
	case s < 5000:
		return StatusTypeExecution
	}
	return StatusTypeUnknown
}
