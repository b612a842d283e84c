package assembler

import (
	"fmt"

	"github.com/colorfulnotion/move0/fileformat"
	"github.com/colorfulnotion/move0/log"
	"github.com/colorfulnotion/move0/types"
)

const (
	ModuleName   types.Identifier = "M"
	StructName   types.Identifier = "X"
	FunctionName types.Identifier = "foo"
)

// Assembler builds descriptors. It is not safe for concurrent use when its
// AddressGenerator is not.
type Assembler struct {
	gen AddressGenerator
}

func New(gen AddressGenerator) *Assembler {
	return &Assembler{gen: gen}
}

// MakeModuleWithFunction builds module M with struct X { X: bool } and one
// function foo whose body aborts with code 0.
func (a *Assembler) MakeModuleWithFunction(
	visibility fileformat.Visibility,
	isEntry bool,
	parameters fileformat.Signature,
	returns fileformat.Signature,
	typeParameters []fileformat.AbilitySet,
) (*fileformat.CompiledModule, types.Identifier) {
	sigs := NewSignatureTable()
	paramsIdx := sigs.Intern(parameters)
	returnIdx := sigs.Intern(returns)
	addr := a.gen.NextAddress()
	// the binary form does not distinguish an empty list from none
	var tyParams []fileformat.AbilitySet
	if len(typeParameters) > 0 {
		tyParams = append(tyParams, typeParameters...)
	}

	module := &fileformat.CompiledModule{
		Version:             fileformat.VersionMax,
		SelfModuleHandleIdx: 0,
		ModuleHandles: []fileformat.ModuleHandle{{
			Address: 0,
			Name:    0,
		}},
		StructHandles: []fileformat.StructHandle{{
			Module:    0,
			Name:      1,
			Abilities: fileformat.EmptyAbilities,
		}},
		FunctionHandles: []fileformat.FunctionHandle{{
			Module:         0,
			Name:           2,
			Parameters:     paramsIdx,
			Return:         returnIdx,
			TypeParameters: tyParams,
		}},
		Signatures:         sigs.Signatures(),
		Identifiers:        []types.Identifier{ModuleName, StructName, FunctionName},
		AddressIdentifiers: []types.AccountAddress{addr},
		StructDefs: []fileformat.StructDefinition{{
			StructHandle: 0,
			FieldInformation: fileformat.StructFieldInformation{
				Fields: []fileformat.FieldDefinition{{Name: 1, Signature: fileformat.Bool}},
			},
		}},
		FunctionDefs: []fileformat.FunctionDefinition{{
			Function:   0,
			Visibility: visibility,
			IsEntry:    isEntry,
			Code: &fileformat.CodeUnit{
				Locals: 0,
				Code:   fileformat.AbortBody(),
			},
		}},
	}
	log.Debug(log.AssemblerMonitoring, "assembled module", "id", module.SelfID(), "params", parameters, "signatures", sigs.Len())
	return module, FunctionName
}

// MakeScriptFunction builds a module whose foo is a public entry function
// taking sig and returning nothing.
func (a *Assembler) MakeScriptFunction(sig fileformat.Signature) (*fileformat.CompiledModule, types.Identifier) {
	return a.MakeModuleWithFunction(fileformat.VisibilityPublic, true, sig, fileformat.Signature{}, nil)
}

// BuildScript builds a script whose main takes parameters and aborts with
// code 0.
func BuildScript(parameters fileformat.Signature) *fileformat.CompiledScript {
	sigs := NewSignatureTable()
	paramsIdx := sigs.Intern(parameters)
	return &fileformat.CompiledScript{
		Version:    fileformat.VersionMax,
		Signatures: sigs.Signatures(),
		Parameters: paramsIdx,
		Code: fileformat.CodeUnit{
			Locals: 0,
			Code:   fileformat.AbortBody(),
		},
	}
}

// MakeScript builds and serializes a script for parameters. The result is
// always well formed, so a serialization failure panics.
func MakeScript(parameters fileformat.Signature) []byte {
	blob, err := BuildScript(parameters).Serialize()
	if err != nil {
		panic(fmt.Sprintf("script must serialize: %v", err))
	}
	log.Debug(log.AssemblerMonitoring, "assembled script", "params", parameters, "bytes", len(blob))
	return blob
}
