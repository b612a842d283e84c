package types

import (
	"fmt"
	"strings"

	"github.com/colorfulnotion/move0/codec"
)

// ModuleId is the identity of a published module: its address and name.
type ModuleId struct {
	Address AccountAddress
	Name    Identifier
}

func NewModuleId(address AccountAddress, name Identifier) ModuleId {
	return ModuleId{Address: address, Name: name}
}

func (m ModuleId) String() string {
	return fmt.Sprintf("%s::%s", m.Address.ShortString(), m.Name)
}

// StructTag names a struct type together with its type arguments.
type StructTag struct {
	Address    AccountAddress
	Module     Identifier
	Name       Identifier
	TypeParams []TypeTag
}

func (s StructTag) ModuleID() ModuleId {
	return ModuleId{Address: s.Address, Name: s.Module}
}

func (s StructTag) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s::%s::%s", s.Address.ShortString(), s.Module, s.Name)
	if len(s.TypeParams) > 0 {
		sb.WriteByte('<')
		for i, tp := range s.TypeParams {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(tp.String())
		}
		sb.WriteByte('>')
	}
	return sb.String()
}

// TypeTagKind is the BCS variant index of a TypeTag.
type TypeTagKind uint8

const (
	TypeTagBool TypeTagKind = iota
	TypeTagU8
	TypeTagU64
	TypeTagU128
	TypeTagAddress
	TypeTagSigner
	TypeTagVector
	TypeTagStruct
	TypeTagU16
	TypeTagU32
	TypeTagU256
)

// TypeTag is a runtime type: a primitive, vector<Elem>, or a struct.
type TypeTag struct {
	Kind   TypeTagKind
	Elem   *TypeTag
	Struct *StructTag
}

var (
	BoolTag    = TypeTag{Kind: TypeTagBool}
	U8Tag      = TypeTag{Kind: TypeTagU8}
	U16Tag     = TypeTag{Kind: TypeTagU16}
	U32Tag     = TypeTag{Kind: TypeTagU32}
	U64Tag     = TypeTag{Kind: TypeTagU64}
	U128Tag    = TypeTag{Kind: TypeTagU128}
	U256Tag    = TypeTag{Kind: TypeTagU256}
	AddressTag = TypeTag{Kind: TypeTagAddress}
	SignerTag  = TypeTag{Kind: TypeTagSigner}
)

func VectorTag(elem TypeTag) TypeTag {
	return TypeTag{Kind: TypeTagVector, Elem: &elem}
}

func StructTypeTag(s StructTag) TypeTag {
	return TypeTag{Kind: TypeTagStruct, Struct: &s}
}

func (t TypeTag) String() string {
	switch t.Kind {
	case TypeTagBool:
		return "bool"
	case TypeTagU8:
		return "u8"
	case TypeTagU16:
		return "u16"
	case TypeTagU32:
		return "u32"
	case TypeTagU64:
		return "u64"
	case TypeTagU128:
		return "u128"
	case TypeTagU256:
		return "u256"
	case TypeTagAddress:
		return "address"
	case TypeTagSigner:
		return "signer"
	case TypeTagVector:
		if t.Elem == nil {
			return "vector<?>"
		}
		return "vector<" + t.Elem.String() + ">"
	case TypeTagStruct:
		if t.Struct == nil {
			return "struct<?>"
		}
		return t.Struct.String()
	}
	return fmt.Sprintf("unknown(%d)", t.Kind)
}

// Equal reports structural equality.
func (t TypeTag) Equal(o TypeTag) bool {
	if t.Kind != o.Kind {
		return false
	}
	switch t.Kind {
	case TypeTagVector:
		return t.Elem != nil && o.Elem != nil && t.Elem.Equal(*o.Elem)
	case TypeTagStruct:
		if t.Struct == nil || o.Struct == nil {
			return false
		}
		a, b := t.Struct, o.Struct
		if a.Address != b.Address || a.Module != b.Module || a.Name != b.Name || len(a.TypeParams) != len(b.TypeParams) {
			return false
		}
		for i := range a.TypeParams {
			if !a.TypeParams[i].Equal(b.TypeParams[i]) {
				return false
			}
		}
	}
	return true
}

// MarshalBCS encodes the variant index followed by its payload.
func (t TypeTag) MarshalBCS() ([]byte, error) {
	out := codec.EncodeULEB128(uint64(t.Kind))
	switch t.Kind {
	case TypeTagVector:
		if t.Elem == nil {
			return nil, fmt.Errorf("vector type tag without element")
		}
		elem, err := t.Elem.MarshalBCS()
		if err != nil {
			return nil, err
		}
		out = append(out, elem...)
	case TypeTagStruct:
		if t.Struct == nil {
			return nil, fmt.Errorf("struct type tag without struct")
		}
		s, err := codec.Marshal(*t.Struct)
		if err != nil {
			return nil, err
		}
		out = append(out, s...)
	default:
		if t.Kind > TypeTagU256 {
			return nil, fmt.Errorf("unknown type tag %d", t.Kind)
		}
	}
	return out, nil
}

func (t *TypeTag) UnmarshalBCS(r codec.Reader) error {
	kind, err := codec.ReadULEB128(r)
	if err != nil {
		return err
	}
	if kind > uint32(TypeTagU256) {
		return fmt.Errorf("unknown type tag %d", kind)
	}
	*t = TypeTag{Kind: TypeTagKind(kind)}
	switch t.Kind {
	case TypeTagVector:
		t.Elem = new(TypeTag)
		return t.Elem.UnmarshalBCS(r)
	case TypeTagStruct:
		t.Struct = new(StructTag)
		return codec.NewDecoder(r).Decode(t.Struct)
	}
	return nil
}
