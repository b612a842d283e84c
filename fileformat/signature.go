package fileformat

import (
	"fmt"
	"strings"
)

// SignatureTokenKind is the wire tag of a signature token.
type SignatureTokenKind uint8

const (
	TokenBool                SignatureTokenKind = 0x1
	TokenU8                  SignatureTokenKind = 0x2
	TokenU64                 SignatureTokenKind = 0x3
	TokenU128                SignatureTokenKind = 0x4
	TokenAddress             SignatureTokenKind = 0x5
	TokenReference           SignatureTokenKind = 0x6
	TokenMutableReference    SignatureTokenKind = 0x7
	TokenStruct              SignatureTokenKind = 0x8
	TokenTypeParameter       SignatureTokenKind = 0x9
	TokenVector              SignatureTokenKind = 0xA
	TokenStructInstantiation SignatureTokenKind = 0xB
	TokenSigner              SignatureTokenKind = 0xC
	TokenU16                 SignatureTokenKind = 0xD
	TokenU32                 SignatureTokenKind = 0xE
	TokenU256                SignatureTokenKind = 0xF
)

// SignatureToken is one type in a signature. Inner is set for vectors and
// references, StructIdx and TypeArgs for struct tokens, TypeParam for type
// parameters.
type SignatureToken struct {
	Kind      SignatureTokenKind
	Inner     *SignatureToken
	StructIdx StructHandleIndex
	TypeArgs  []SignatureToken
	TypeParam TypeParameterIndex
}

var (
	Bool    = SignatureToken{Kind: TokenBool}
	U8      = SignatureToken{Kind: TokenU8}
	U16     = SignatureToken{Kind: TokenU16}
	U32     = SignatureToken{Kind: TokenU32}
	U64     = SignatureToken{Kind: TokenU64}
	U128    = SignatureToken{Kind: TokenU128}
	U256    = SignatureToken{Kind: TokenU256}
	Address = SignatureToken{Kind: TokenAddress}
	Signer  = SignatureToken{Kind: TokenSigner}
)

func Vector(inner SignatureToken) SignatureToken {
	return SignatureToken{Kind: TokenVector, Inner: &inner}
}

func Reference(inner SignatureToken) SignatureToken {
	return SignatureToken{Kind: TokenReference, Inner: &inner}
}

func MutableReference(inner SignatureToken) SignatureToken {
	return SignatureToken{Kind: TokenMutableReference, Inner: &inner}
}

func Struct(idx StructHandleIndex) SignatureToken {
	return SignatureToken{Kind: TokenStruct, StructIdx: idx}
}

func StructInstantiation(idx StructHandleIndex, args ...SignatureToken) SignatureToken {
	return SignatureToken{Kind: TokenStructInstantiation, StructIdx: idx, TypeArgs: args}
}

func TypeParameter(idx TypeParameterIndex) SignatureToken {
	return SignatureToken{Kind: TokenTypeParameter, TypeParam: idx}
}

// Equal is structural equality.
func (t SignatureToken) Equal(o SignatureToken) bool {
	if t.Kind != o.Kind {
		return false
	}
	switch t.Kind {
	case TokenVector, TokenReference, TokenMutableReference:
		if t.Inner == nil || o.Inner == nil {
			return t.Inner == o.Inner
		}
		return t.Inner.Equal(*o.Inner)
	case TokenStruct:
		return t.StructIdx == o.StructIdx
	case TokenStructInstantiation:
		if t.StructIdx != o.StructIdx || len(t.TypeArgs) != len(o.TypeArgs) {
			return false
		}
		for i := range t.TypeArgs {
			if !t.TypeArgs[i].Equal(o.TypeArgs[i]) {
				return false
			}
		}
		return true
	case TokenTypeParameter:
		return t.TypeParam == o.TypeParam
	}
	return true
}

// IsReference reports whether t is & or &mut.
func (t SignatureToken) IsReference() bool {
	return t.Kind == TokenReference || t.Kind == TokenMutableReference
}

// IsSignerRef reports whether t is &signer.
func (t SignatureToken) IsSignerRef() bool {
	return t.Kind == TokenReference && t.Inner != nil && t.Inner.Kind == TokenSigner
}

// Preorder visits t and its nested tokens depth first.
func (t SignatureToken) Preorder(visit func(SignatureToken)) {
	visit(t)
	if t.Inner != nil {
		t.Inner.Preorder(visit)
	}
	for _, a := range t.TypeArgs {
		a.Preorder(visit)
	}
}

func (t SignatureToken) String() string {
	switch t.Kind {
	case TokenBool:
		return "bool"
	case TokenU8:
		return "u8"
	case TokenU16:
		return "u16"
	case TokenU32:
		return "u32"
	case TokenU64:
		return "u64"
	case TokenU128:
		return "u128"
	case TokenU256:
		return "u256"
	case TokenAddress:
		return "address"
	case TokenSigner:
		return "signer"
	case TokenVector:
		return "vector<" + t.innerString() + ">"
	case TokenReference:
		return "&" + t.innerString()
	case TokenMutableReference:
		return "&mut " + t.innerString()
	case TokenStruct:
		return fmt.Sprintf("struct#%d", t.StructIdx)
	case TokenStructInstantiation:
		args := make([]string, len(t.TypeArgs))
		for i, a := range t.TypeArgs {
			args[i] = a.String()
		}
		return fmt.Sprintf("struct#%d<%s>", t.StructIdx, strings.Join(args, ", "))
	case TokenTypeParameter:
		return fmt.Sprintf("T%d", t.TypeParam)
	}
	return fmt.Sprintf("token(%#x)", uint8(t.Kind))
}

func (t SignatureToken) innerString() string {
	if t.Inner == nil {
		return "?"
	}
	return t.Inner.String()
}

// Signature is an ordered list of tokens.
type Signature []SignatureToken

func (s Signature) Equal(o Signature) bool {
	if len(s) != len(o) {
		return false
	}
	for i := range s {
		if !s[i].Equal(o[i]) {
			return false
		}
	}
	return true
}

func (s Signature) String() string {
	parts := make([]string, len(s))
	for i, t := range s {
		parts[i] = t.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// Clone returns a deep copy of t that shares no pointers with it.
func (t SignatureToken) Clone() SignatureToken {
	c := t
	if t.Inner != nil {
		inner := t.Inner.Clone()
		c.Inner = &inner
	}
	if t.TypeArgs != nil {
		c.TypeArgs = make([]SignatureToken, len(t.TypeArgs))
		for i, arg := range t.TypeArgs {
			c.TypeArgs[i] = arg.Clone()
		}
	}
	return c
}

// Clone returns a deep copy of s. The result is never nil.
func (s Signature) Clone() Signature {
	c := make(Signature, len(s))
	for i, t := range s {
		c[i] = t.Clone()
	}
	return c
}
