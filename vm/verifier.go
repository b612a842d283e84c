package vm

import (
	"github.com/colorfulnotion/move0/fileformat"
	"github.com/colorfulnotion/move0/types"
)

// verifyCodeUnit checks control flow: the unit is non-empty, every branch
// lands inside it and control cannot fall off its end.
func verifyCodeUnit(code *fileformat.CodeUnit) *types.VMError {
	n := len(code.Code)
	if n == 0 {
		return types.NewVMError(types.StatusEmptyCodeUnit)
	}
	for pc, instr := range code.Code {
		if instr.Op.IsBranch() && instr.Arg >= uint64(n) {
			return types.NewVMError(types.StatusInvalidBranchOffset).
				WithMessage("branch to %d in unit of %d", instr.Arg, n).
				AtLocation(types.Location{Offset: pc})
		}
	}
	if last := code.Code[n-1]; !last.Op.IsUnconditionalBranch() {
		return types.NewVMError(types.StatusInvalidFallThrough).AtLocation(types.Location{Offset: n - 1})
	}
	return nil
}

// signatureToTag converts a parameter token to the runtime type of its
// argument, substituting type arguments. References are not argument
// types and report false.
func signatureToTag(tok fileformat.SignatureToken, tyArgs []types.TypeTag) (types.TypeTag, bool) {
	switch tok.Kind {
	case fileformat.TokenBool:
		return types.BoolTag, true
	case fileformat.TokenU8:
		return types.U8Tag, true
	case fileformat.TokenU16:
		return types.U16Tag, true
	case fileformat.TokenU32:
		return types.U32Tag, true
	case fileformat.TokenU64:
		return types.U64Tag, true
	case fileformat.TokenU128:
		return types.U128Tag, true
	case fileformat.TokenU256:
		return types.U256Tag, true
	case fileformat.TokenAddress:
		return types.AddressTag, true
	case fileformat.TokenSigner:
		return types.SignerTag, true
	case fileformat.TokenVector:
		if tok.Inner == nil {
			return types.TypeTag{}, false
		}
		elem, ok := signatureToTag(*tok.Inner, tyArgs)
		if !ok {
			return types.TypeTag{}, false
		}
		return types.VectorTag(elem), true
	case fileformat.TokenTypeParameter:
		if int(tok.TypeParam) >= len(tyArgs) {
			return types.TypeTag{}, false
		}
		return tyArgs[tok.TypeParam], true
	}
	return types.TypeTag{}, false
}

// isValidArgType reports whether values of tag may be passed as a
// transaction argument. Signers are only valid as leading parameters.
func isValidArgType(tag types.TypeTag) bool {
	switch tag.Kind {
	case types.TypeTagBool, types.TypeTagU8, types.TypeTagU16, types.TypeTagU32,
		types.TypeTagU64, types.TypeTagU128, types.TypeTagU256, types.TypeTagAddress:
		return true
	case types.TypeTagVector:
		return tag.Elem != nil && isValidArgType(*tag.Elem)
	}
	return false
}

// argumentLayouts validates an entry signature and returns the layout each
// argument is deserialized with. Leading signer or &signer parameters take
// serialized signer arguments.
func argumentLayouts(params fileformat.Signature, tyArgs []types.TypeTag) ([]types.TypeTag, *types.VMError) {
	layouts := make([]types.TypeTag, 0, len(params))
	signers := true
	for i, tok := range params {
		if signers && (tok.Kind == fileformat.TokenSigner || tok.IsSignerRef()) {
			layouts = append(layouts, types.SignerTag)
			continue
		}
		signers = false
		tag, ok := signatureToTag(tok, tyArgs)
		if !ok || !isValidArgType(tag) {
			return nil, types.NewVMError(types.StatusInvalidMainFunctionSignature).
				WithMessage("parameter %d of type %s is not a valid argument type", i, tok)
		}
		layouts = append(layouts, tag)
	}
	return layouts, nil
}

// deserializeArgs checks arity and decodes every argument exactly.
func deserializeArgs(layouts []types.TypeTag, args [][]byte) ([]types.MoveValue, *types.VMError) {
	if len(args) != len(layouts) {
		return nil, types.NewVMError(types.StatusNumberOfArgumentsMismatch).
			WithMessage("expected %d arguments, got %d", len(layouts), len(args))
	}
	values := make([]types.MoveValue, len(args))
	for i, blob := range args {
		v, err := types.DeserializeValue(blob, layouts[i])
		if err != nil {
			return nil, types.NewVMError(types.StatusFailedToDeserializeArgument).
				WithMessage("argument %d as %s: %v", i, layouts[i], err)
		}
		values[i] = v
	}
	return values, nil
}
