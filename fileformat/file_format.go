// Package fileformat holds the in-memory descriptors of Move program units
// and their binary encoding.
package fileformat

import (
	"fmt"
	"strings"

	"github.com/colorfulnotion/move0/types"
)

type TableIndex = uint16

type (
	ModuleHandleIndex       uint16
	StructHandleIndex       uint16
	FunctionHandleIndex     uint16
	FieldHandleIndex        uint16
	StructDefInstIndex      uint16
	FunctionInstIndex       uint16
	FieldInstIndex          uint16
	IdentifierIndex         uint16
	AddressIdentifierIndex  uint16
	ConstantPoolIndex       uint16
	SignatureIndex          uint16
	StructDefinitionIndex   uint16
	FunctionDefinitionIndex uint16
	CodeOffset              uint16
	LocalIndex              uint8
	TypeParameterIndex      uint16
)

// Ability is a single struct capability.
type Ability uint8

const (
	AbilityCopy  Ability = 0x1
	AbilityDrop  Ability = 0x2
	AbilityStore Ability = 0x4
	AbilityKey   Ability = 0x8
)

// AbilitySet is a bitmask of abilities.
type AbilitySet uint8

const (
	EmptyAbilities AbilitySet = 0
	AllAbilities   AbilitySet = AbilitySet(AbilityCopy | AbilityDrop | AbilityStore | AbilityKey)
)

func (s AbilitySet) Has(a Ability) bool { return uint8(s)&uint8(a) != 0 }

func (s AbilitySet) Add(a Ability) AbilitySet { return s | AbilitySet(a) }

var abilityNames = []struct {
	a    Ability
	name string
}{{AbilityCopy, "copy"}, {AbilityDrop, "drop"}, {AbilityStore, "store"}, {AbilityKey, "key"}}

// String lists the abilities joined by "+", or "none".
func (s AbilitySet) String() string {
	var parts []string
	rest := s
	for _, n := range abilityNames {
		if s.Has(n.a) {
			parts = append(parts, n.name)
			rest &^= AbilitySet(n.a)
		}
	}
	if rest != 0 {
		parts = append(parts, fmt.Sprintf("%#x", uint8(rest)))
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "+")
}

// MarshalText renders the set by name.
func (s AbilitySet) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Visibility of a function definition. The values are the wire encoding.
type Visibility uint8

const (
	VisibilityPrivate Visibility = 0x0
	VisibilityPublic  Visibility = 0x1
	VisibilityFriend  Visibility = 0x3
)

func (v Visibility) String() string {
	switch v {
	case VisibilityPrivate:
		return "private"
	case VisibilityPublic:
		return "public"
	case VisibilityFriend:
		return "friend"
	}
	return "unknown"
}

type ModuleHandle struct {
	Address AddressIdentifierIndex
	Name    IdentifierIndex
}

type StructTypeParameter struct {
	Constraints AbilitySet
	IsPhantom   bool
}

type StructHandle struct {
	Module         ModuleHandleIndex
	Name           IdentifierIndex
	Abilities      AbilitySet
	TypeParameters []StructTypeParameter
}

type FunctionHandle struct {
	Module         ModuleHandleIndex
	Name           IdentifierIndex
	Parameters     SignatureIndex
	Return         SignatureIndex
	TypeParameters []AbilitySet
}

type FieldHandle struct {
	Owner StructDefinitionIndex
	Field uint16
}

type StructDefInstantiation struct {
	Def            StructDefinitionIndex
	TypeParameters SignatureIndex
}

type FunctionInstantiation struct {
	Handle         FunctionHandleIndex
	TypeParameters SignatureIndex
}

type FieldInstantiation struct {
	Handle         FieldHandleIndex
	TypeParameters SignatureIndex
}

type FieldDefinition struct {
	Name      IdentifierIndex
	Signature SignatureToken
}

// StructFieldInformation is either native (no fields) or a declared list.
type StructFieldInformation struct {
	Native bool
	Fields []FieldDefinition
}

type StructDefinition struct {
	StructHandle     StructHandleIndex
	FieldInformation StructFieldInformation
}

type FunctionDefinition struct {
	Function                FunctionHandleIndex
	Visibility              Visibility
	IsEntry                 bool
	AcquiresGlobalResources []StructDefinitionIndex
	// Code is nil for native functions.
	Code *CodeUnit
}

func (f *FunctionDefinition) IsNative() bool { return f.Code == nil }

type CodeUnit struct {
	Locals SignatureIndex
	Code   []Bytecode
}

type Constant struct {
	Type SignatureToken
	Data []byte
}

type Metadata struct {
	Key   []byte
	Value []byte
}

// CompiledScript is a script: tables plus one anonymous entry code unit.
type CompiledScript struct {
	Version                uint32
	ModuleHandles          []ModuleHandle
	StructHandles          []StructHandle
	FunctionHandles        []FunctionHandle
	FunctionInstantiations []FunctionInstantiation
	Signatures             []Signature
	Identifiers            []types.Identifier
	AddressIdentifiers     []types.AccountAddress
	ConstantPool           []Constant
	Metadata               []Metadata
	Code                   CodeUnit
	TypeParameters         []AbilitySet
	Parameters             SignatureIndex
}

// CompiledModule is a published module.
type CompiledModule struct {
	Version                 uint32
	SelfModuleHandleIdx     ModuleHandleIndex
	ModuleHandles           []ModuleHandle
	StructHandles           []StructHandle
	FunctionHandles         []FunctionHandle
	FieldHandles            []FieldHandle
	FriendDecls             []ModuleHandle
	StructDefInstantiations []StructDefInstantiation
	FunctionInstantiations  []FunctionInstantiation
	FieldInstantiations     []FieldInstantiation
	Signatures              []Signature
	Identifiers             []types.Identifier
	AddressIdentifiers      []types.AccountAddress
	ConstantPool            []Constant
	Metadata                []Metadata
	StructDefs              []StructDefinition
	FunctionDefs            []FunctionDefinition
}

func moduleID(h ModuleHandle, addrs []types.AccountAddress, ids []types.Identifier) types.ModuleId {
	return types.NewModuleId(addrs[h.Address], ids[h.Name])
}

// SelfID returns the identity of m. m must be bounds checked.
func (m *CompiledModule) SelfID() types.ModuleId {
	return moduleID(m.ModuleHandles[m.SelfModuleHandleIdx], m.AddressIdentifiers, m.Identifiers)
}

func (m *CompiledModule) Name() types.Identifier {
	return m.Identifiers[m.ModuleHandles[m.SelfModuleHandleIdx].Name]
}

func (m *CompiledModule) Signature(idx SignatureIndex) Signature { return m.Signatures[idx] }

func (m *CompiledModule) FunctionHandle(idx FunctionHandleIndex) *FunctionHandle {
	return &m.FunctionHandles[idx]
}

// FindFunction returns the definition and handle of the function called name.
func (m *CompiledModule) FindFunction(name types.Identifier) (*FunctionDefinition, *FunctionHandle, bool) {
	for i := range m.FunctionDefs {
		fd := &m.FunctionDefs[i]
		fh := &m.FunctionHandles[fd.Function]
		if fh.Module == m.SelfModuleHandleIdx && m.Identifiers[fh.Name] == name {
			return fd, fh, true
		}
	}
	return nil, nil, false
}

// ImmediateDependencies lists the modules referenced by m, excluding itself.
func (m *CompiledModule) ImmediateDependencies() []types.ModuleId {
	var deps []types.ModuleId
	for i, h := range m.ModuleHandles {
		if ModuleHandleIndex(i) == m.SelfModuleHandleIdx {
			continue
		}
		deps = append(deps, moduleID(h, m.AddressIdentifiers, m.Identifiers))
	}
	return deps
}

func (s *CompiledScript) Signature(idx SignatureIndex) Signature { return s.Signatures[idx] }

// ImmediateDependencies lists every module referenced by s.
func (s *CompiledScript) ImmediateDependencies() []types.ModuleId {
	deps := make([]types.ModuleId, 0, len(s.ModuleHandles))
	for _, h := range s.ModuleHandles {
		deps = append(deps, moduleID(h, s.AddressIdentifiers, s.Identifiers))
	}
	return deps
}
