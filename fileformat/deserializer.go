package fileformat

import (
	"encoding/binary"
	"errors"
	"unicode/utf8"

	"github.com/colorfulnotion/move0/codec"
	"github.com/colorfulnotion/move0/types"
)

// cursor reads from a bounded slice of the binary.
type cursor struct {
	buf []byte
	pos int
}

func (c *cursor) remaining() int { return len(c.buf) - c.pos }

func (c *cursor) readByte() (byte, error) {
	if c.pos >= len(c.buf) {
		return 0, binaryErr(types.StatusMalformed, "unexpected end of table")
	}
	b := c.buf[c.pos]
	c.pos++
	return b, nil
}

func (c *cursor) take(n int) ([]byte, error) {
	if n < 0 || c.remaining() < n {
		return nil, binaryErr(types.StatusMalformed, "need %d bytes, have %d", n, c.remaining())
	}
	b := c.buf[c.pos : c.pos+n]
	c.pos += n
	return b, nil
}

func (c *cursor) uleb() (uint32, error) {
	v, n, err := codec.DecodeULEB128(c.buf[c.pos:])
	if err != nil {
		return 0, binaryErr(types.StatusBadULEB128, "%v", err)
	}
	c.pos += n
	return v, nil
}

func (c *cursor) index() (uint16, error) {
	v, err := c.uleb()
	if err != nil {
		return 0, err
	}
	if v > 0xFFFF {
		return 0, binaryErr(types.StatusBadULEB128, "index %d exceeds u16", v)
	}
	return uint16(v), nil
}

func (c *cursor) count(max int) (int, error) {
	v, err := c.uleb()
	if err != nil {
		return 0, err
	}
	if int(v) > max {
		return 0, binaryErr(types.StatusMalformed, "count %d exceeds %d", v, max)
	}
	return int(v), nil
}

func (c *cursor) bytesWithLen(max int) ([]byte, error) {
	n, err := c.count(max)
	if err != nil {
		return nil, err
	}
	b, err := c.take(n)
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), b...), nil
}

func (c *cursor) token(depth int) (SignatureToken, error) {
	if depth > signatureTokenDepthMax {
		return SignatureToken{}, binaryErr(types.StatusMalformed, "signature token nested too deep")
	}
	tag, err := c.readByte()
	if err != nil {
		return SignatureToken{}, err
	}
	kind := SignatureTokenKind(tag)
	switch kind {
	case TokenBool, TokenU8, TokenU16, TokenU32, TokenU64, TokenU128, TokenU256, TokenAddress, TokenSigner:
		return SignatureToken{Kind: kind}, nil
	case TokenVector, TokenReference, TokenMutableReference:
		inner, err := c.token(depth + 1)
		if err != nil {
			return SignatureToken{}, err
		}
		return SignatureToken{Kind: kind, Inner: &inner}, nil
	case TokenStruct:
		idx, err := c.index()
		if err != nil {
			return SignatureToken{}, err
		}
		return Struct(StructHandleIndex(idx)), nil
	case TokenStructInstantiation:
		idx, err := c.index()
		if err != nil {
			return SignatureToken{}, err
		}
		n, err := c.count(SignatureSizeMax)
		if err != nil {
			return SignatureToken{}, err
		}
		var args []SignatureToken
		for i := 0; i < n; i++ {
			arg, err := c.token(depth + 1)
			if err != nil {
				return SignatureToken{}, err
			}
			args = append(args, arg)
		}
		return StructInstantiation(StructHandleIndex(idx), args...), nil
	case TokenTypeParameter:
		idx, err := c.index()
		if err != nil {
			return SignatureToken{}, err
		}
		return TypeParameter(TypeParameterIndex(idx)), nil
	}
	return SignatureToken{}, binaryErr(types.StatusUnknownSignatureType, "token tag %#x", tag)
}

func (c *cursor) signature() (Signature, error) {
	n, err := c.count(SignatureSizeMax)
	if err != nil {
		return nil, err
	}
	sig := make(Signature, n)
	for i := range sig {
		if sig[i], err = c.token(1); err != nil {
			return nil, err
		}
	}
	return sig, nil
}

func (c *cursor) abilitySet() (AbilitySet, error) {
	b, err := c.readByte()
	if err != nil {
		return 0, err
	}
	if AbilitySet(b)&^AllAbilities != 0 {
		return 0, binaryErr(types.StatusMalformed, "invalid ability set %#x", b)
	}
	return AbilitySet(b), nil
}

func (c *cursor) abilities() ([]AbilitySet, error) {
	n, err := c.count(SignatureSizeMax)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	out := make([]AbilitySet, n)
	for i := range out {
		if out[i], err = c.abilitySet(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (c *cursor) instruction() (Bytecode, error) {
	b, err := c.readByte()
	if err != nil {
		return Bytecode{}, err
	}
	op := Opcode(b)
	if !op.Known() {
		return Bytecode{}, binaryErr(types.StatusUnknownOpcode, "%s", op)
	}
	switch {
	case op == OpLdU8:
		v, err := c.readByte()
		return Bytecode{Op: op, Arg: uint64(v)}, err
	case op == OpLdU64:
		le, err := c.take(8)
		if err != nil {
			return Bytecode{}, err
		}
		return Bytecode{Op: op, Arg: binary.LittleEndian.Uint64(le)}, nil
	case op.IsBranch():
		off, err := c.index()
		return Bytecode{Op: op, Arg: uint64(off)}, err
	}
	return Bytecode{Op: op}, nil
}

func (c *cursor) codeUnit() (CodeUnit, error) {
	locals, err := c.index()
	if err != nil {
		return CodeUnit{}, err
	}
	n, err := c.count(BytecodeCountMax)
	if err != nil {
		return CodeUnit{}, err
	}
	code := make([]Bytecode, n)
	for i := range code {
		if code[i], err = c.instruction(); err != nil {
			return CodeUnit{}, err
		}
	}
	return CodeUnit{Locals: SignatureIndex(locals), Code: code}, nil
}

// readTable decodes every entry of a table; the table must be consumed
// exactly.
func readTable(data []byte, entry func(c *cursor) error) error {
	c := &cursor{buf: data}
	for c.remaining() > 0 {
		if err := entry(c); err != nil {
			return err
		}
	}
	return nil
}

type binaryHeader struct {
	version uint32
	tables  map[TableType][]byte
	rest    *cursor
}

func readHeader(blob []byte) (*binaryHeader, error) {
	c := &cursor{buf: blob}
	magic, err := c.take(len(MoveMagic))
	if err != nil || [4]byte(magic) != MoveMagic {
		return nil, binaryErr(types.StatusBadMagic, "")
	}
	le, err := c.take(4)
	if err != nil {
		return nil, binaryErr(types.StatusMalformed, "missing version")
	}
	version := binary.LittleEndian.Uint32(le)
	if version < VersionMin || version > VersionMax {
		return nil, binaryErr(types.StatusUnknownVersion, "version %d", version)
	}
	count, err := c.count(TableCountMax)
	if err != nil {
		return nil, err
	}
	type header struct {
		kind           TableType
		offset, length int
	}
	headers := make([]header, count)
	seen := make(map[TableType]bool, count)
	for i := range headers {
		k, err := c.readByte()
		if err != nil {
			return nil, err
		}
		kind := TableType(k)
		if !knownTable(kind) {
			return nil, binaryErr(types.StatusUnknownTableType, "table kind %#x", k)
		}
		if seen[kind] {
			return nil, binaryErr(types.StatusMalformed, "duplicate table %#x", k)
		}
		seen[kind] = true
		off, err := c.uleb()
		if err != nil {
			return nil, err
		}
		length, err := c.uleb()
		if err != nil {
			return nil, err
		}
		headers[i] = header{kind: kind, offset: int(off), length: int(length)}
	}
	// tables are contiguous, in header order, starting at offset 0
	base := c.pos
	next := 0
	tables := make(map[TableType][]byte, count)
	for _, h := range headers {
		if h.offset != next {
			return nil, binaryErr(types.StatusMalformed, "table %#x at offset %d, expected %d", uint8(h.kind), h.offset, next)
		}
		if h.length == 0 || base+h.offset+h.length > len(blob) {
			return nil, binaryErr(types.StatusMalformed, "table %#x out of range", uint8(h.kind))
		}
		tables[h.kind] = blob[base+h.offset : base+h.offset+h.length]
		next += h.length
	}
	c.pos = base + next
	return &binaryHeader{version: version, tables: tables, rest: c}, nil
}

func knownTable(t TableType) bool {
	switch t {
	case TableModuleHandles, TableStructHandles, TableFunctionHandles, TableFunctionInst,
		TableSignatures, TableConstantPool, TableIdentifiers, TableAddressIdentifiers,
		TableStructDefs, TableStructDefInst, TableFunctionDefs, TableFieldHandle,
		TableFieldInst, TableFriendDecls, TableMetadata:
		return true
	}
	return false
}

// commonTables are the tables shared by scripts and modules.
type commonTables struct {
	moduleHandles   []ModuleHandle
	structHandles   []StructHandle
	functionHandles []FunctionHandle
	functionInsts   []FunctionInstantiation
	signatures      []Signature
	constants       []Constant
	identifiers     []types.Identifier
	addresses       []types.AccountAddress
	metadata        []Metadata
}

func readModuleHandles(data []byte) ([]ModuleHandle, error) {
	var out []ModuleHandle
	err := readTable(data, func(c *cursor) error {
		addr, err := c.index()
		if err != nil {
			return err
		}
		name, err := c.index()
		if err != nil {
			return err
		}
		out = append(out, ModuleHandle{Address: AddressIdentifierIndex(addr), Name: IdentifierIndex(name)})
		return nil
	})
	return out, err
}

func readCommonTables(h *binaryHeader) (*commonTables, error) {
	ct := &commonTables{}
	var err error
	if ct.moduleHandles, err = readModuleHandles(h.tables[TableModuleHandles]); err != nil {
		return nil, err
	}
	err = readTable(h.tables[TableStructHandles], func(c *cursor) error {
		var sh StructHandle
		mod, err := c.index()
		if err != nil {
			return err
		}
		name, err := c.index()
		if err != nil {
			return err
		}
		sh.Module, sh.Name = ModuleHandleIndex(mod), IdentifierIndex(name)
		if sh.Abilities, err = c.abilitySet(); err != nil {
			return err
		}
		n, err := c.count(SignatureSizeMax)
		if err != nil {
			return err
		}
		for i := 0; i < n; i++ {
			constraints, err := c.abilitySet()
			if err != nil {
				return err
			}
			phantom, err := c.readByte()
			if err != nil {
				return err
			}
			if phantom > 1 {
				return binaryErr(types.StatusMalformed, "invalid phantom flag %#x", phantom)
			}
			sh.TypeParameters = append(sh.TypeParameters, StructTypeParameter{Constraints: constraints, IsPhantom: phantom == 1})
		}
		ct.structHandles = append(ct.structHandles, sh)
		return nil
	})
	if err != nil {
		return nil, err
	}
	err = readTable(h.tables[TableFunctionHandles], func(c *cursor) error {
		var idx [4]uint16
		for i := range idx {
			v, err := c.index()
			if err != nil {
				return err
			}
			idx[i] = v
		}
		tps, err := c.abilities()
		if err != nil {
			return err
		}
		ct.functionHandles = append(ct.functionHandles, FunctionHandle{
			Module:         ModuleHandleIndex(idx[0]),
			Name:           IdentifierIndex(idx[1]),
			Parameters:     SignatureIndex(idx[2]),
			Return:         SignatureIndex(idx[3]),
			TypeParameters: tps,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	err = readTable(h.tables[TableFunctionInst], func(c *cursor) error {
		handle, err := c.index()
		if err != nil {
			return err
		}
		tp, err := c.index()
		if err != nil {
			return err
		}
		ct.functionInsts = append(ct.functionInsts, FunctionInstantiation{Handle: FunctionHandleIndex(handle), TypeParameters: SignatureIndex(tp)})
		return nil
	})
	if err != nil {
		return nil, err
	}
	err = readTable(h.tables[TableSignatures], func(c *cursor) error {
		sig, err := c.signature()
		if err != nil {
			return err
		}
		ct.signatures = append(ct.signatures, sig)
		return nil
	})
	if err != nil {
		return nil, err
	}
	err = readTable(h.tables[TableConstantPool], func(c *cursor) error {
		tok, err := c.token(1)
		if err != nil {
			return err
		}
		data, err := c.bytesWithLen(ConstantSizeMax)
		if err != nil {
			return err
		}
		ct.constants = append(ct.constants, Constant{Type: tok, Data: data})
		return nil
	})
	if err != nil {
		return nil, err
	}
	err = readTable(h.tables[TableIdentifiers], func(c *cursor) error {
		raw, err := c.bytesWithLen(IdentifierSizeMax)
		if err != nil {
			return err
		}
		if !utf8.Valid(raw) || !types.IsValidIdentifier(string(raw)) {
			return binaryErr(types.StatusMalformed, "invalid identifier %q", raw)
		}
		ct.identifiers = append(ct.identifiers, types.Identifier(raw))
		return nil
	})
	if err != nil {
		return nil, err
	}
	err = readTable(h.tables[TableAddressIdentifiers], func(c *cursor) error {
		raw, err := c.take(types.AccountAddressLength)
		if err != nil {
			return err
		}
		var a types.AccountAddress
		copy(a[:], raw)
		ct.addresses = append(ct.addresses, a)
		return nil
	})
	if err != nil {
		return nil, err
	}
	err = readTable(h.tables[TableMetadata], func(c *cursor) error {
		key, err := c.bytesWithLen(IdentifierSizeMax)
		if err != nil {
			return err
		}
		value, err := c.bytesWithLen(1 << 20)
		if err != nil {
			return err
		}
		ct.metadata = append(ct.metadata, Metadata{Key: key, Value: value})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ct, nil
}

var errModuleOnlyTable = errors.New("table not allowed in a script")

// DeserializeScript decodes and bounds checks a script binary.
func DeserializeScript(blob []byte) (*CompiledScript, error) {
	h, err := readHeader(blob)
	if err != nil {
		return nil, err
	}
	for _, kind := range []TableType{TableStructDefs, TableStructDefInst, TableFunctionDefs, TableFieldHandle, TableFieldInst, TableFriendDecls} {
		if _, ok := h.tables[kind]; ok {
			return nil, binaryErr(types.StatusMalformed, "%v: %#x", errModuleOnlyTable, uint8(kind))
		}
	}
	ct, err := readCommonTables(h)
	if err != nil {
		return nil, err
	}
	s := &CompiledScript{
		Version:                h.version,
		ModuleHandles:          ct.moduleHandles,
		StructHandles:          ct.structHandles,
		FunctionHandles:        ct.functionHandles,
		FunctionInstantiations: ct.functionInsts,
		Signatures:             ct.signatures,
		Identifiers:            ct.identifiers,
		AddressIdentifiers:     ct.addresses,
		ConstantPool:           ct.constants,
		Metadata:               ct.metadata,
	}
	c := h.rest
	if s.TypeParameters, err = c.abilities(); err != nil {
		return nil, err
	}
	params, err := c.index()
	if err != nil {
		return nil, err
	}
	s.Parameters = SignatureIndex(params)
	if s.Code, err = c.codeUnit(); err != nil {
		return nil, err
	}
	if c.remaining() != 0 {
		return nil, binaryErr(types.StatusMalformed, "%d trailing bytes", c.remaining())
	}
	if err := s.CheckBounds(); err != nil {
		return nil, err
	}
	return s, nil
}

// DeserializeModule decodes and bounds checks a module binary.
func DeserializeModule(blob []byte) (*CompiledModule, error) {
	h, err := readHeader(blob)
	if err != nil {
		return nil, err
	}
	ct, err := readCommonTables(h)
	if err != nil {
		return nil, err
	}
	m := &CompiledModule{
		Version:                h.version,
		ModuleHandles:          ct.moduleHandles,
		StructHandles:          ct.structHandles,
		FunctionHandles:        ct.functionHandles,
		FunctionInstantiations: ct.functionInsts,
		Signatures:             ct.signatures,
		Identifiers:            ct.identifiers,
		AddressIdentifiers:     ct.addresses,
		ConstantPool:           ct.constants,
		Metadata:               ct.metadata,
	}
	err = readTable(h.tables[TableStructDefs], func(c *cursor) error {
		handle, err := c.index()
		if err != nil {
			return err
		}
		sd := StructDefinition{StructHandle: StructHandleIndex(handle)}
		tag, err := c.readByte()
		if err != nil {
			return err
		}
		switch tag {
		case fieldInfoNative:
			sd.FieldInformation.Native = true
		case fieldInfoDeclared:
			n, err := c.count(0xFFFF)
			if err != nil {
				return err
			}
			for i := 0; i < n; i++ {
				name, err := c.index()
				if err != nil {
					return err
				}
				tok, err := c.token(1)
				if err != nil {
					return err
				}
				sd.FieldInformation.Fields = append(sd.FieldInformation.Fields, FieldDefinition{Name: IdentifierIndex(name), Signature: tok})
			}
		default:
			return binaryErr(types.StatusMalformed, "field information tag %#x", tag)
		}
		m.StructDefs = append(m.StructDefs, sd)
		return nil
	})
	if err != nil {
		return nil, err
	}
	err = readTable(h.tables[TableStructDefInst], func(c *cursor) error {
		def, err := c.index()
		if err != nil {
			return err
		}
		tp, err := c.index()
		if err != nil {
			return err
		}
		m.StructDefInstantiations = append(m.StructDefInstantiations, StructDefInstantiation{Def: StructDefinitionIndex(def), TypeParameters: SignatureIndex(tp)})
		return nil
	})
	if err != nil {
		return nil, err
	}
	err = readTable(h.tables[TableFunctionDefs], func(c *cursor) error {
		handle, err := c.index()
		if err != nil {
			return err
		}
		fd := FunctionDefinition{Function: FunctionHandleIndex(handle)}
		vis, err := c.readByte()
		if err != nil {
			return err
		}
		switch Visibility(vis) {
		case VisibilityPrivate, VisibilityPublic, VisibilityFriend:
			fd.Visibility = Visibility(vis)
		default:
			return binaryErr(types.StatusMalformed, "visibility %#x", vis)
		}
		flags, err := c.readByte()
		if err != nil {
			return err
		}
		if flags&^(functionFlagNative|functionFlagEntry) != 0 {
			return binaryErr(types.StatusMalformed, "function flags %#x", flags)
		}
		fd.IsEntry = flags&functionFlagEntry != 0
		n, err := c.count(0xFFFF)
		if err != nil {
			return err
		}
		for i := 0; i < n; i++ {
			a, err := c.index()
			if err != nil {
				return err
			}
			fd.AcquiresGlobalResources = append(fd.AcquiresGlobalResources, StructDefinitionIndex(a))
		}
		if flags&functionFlagNative == 0 {
			code, err := c.codeUnit()
			if err != nil {
				return err
			}
			fd.Code = &code
		}
		m.FunctionDefs = append(m.FunctionDefs, fd)
		return nil
	})
	if err != nil {
		return nil, err
	}
	err = readTable(h.tables[TableFieldHandle], func(c *cursor) error {
		owner, err := c.index()
		if err != nil {
			return err
		}
		field, err := c.index()
		if err != nil {
			return err
		}
		m.FieldHandles = append(m.FieldHandles, FieldHandle{Owner: StructDefinitionIndex(owner), Field: field})
		return nil
	})
	if err != nil {
		return nil, err
	}
	err = readTable(h.tables[TableFieldInst], func(c *cursor) error {
		handle, err := c.index()
		if err != nil {
			return err
		}
		tp, err := c.index()
		if err != nil {
			return err
		}
		m.FieldInstantiations = append(m.FieldInstantiations, FieldInstantiation{Handle: FieldHandleIndex(handle), TypeParameters: SignatureIndex(tp)})
		return nil
	})
	if err != nil {
		return nil, err
	}
	if m.FriendDecls, err = readModuleHandles(h.tables[TableFriendDecls]); err != nil {
		return nil, err
	}
	c := h.rest
	self, err := c.index()
	if err != nil {
		return nil, err
	}
	m.SelfModuleHandleIdx = ModuleHandleIndex(self)
	if c.remaining() != 0 {
		return nil, binaryErr(types.StatusMalformed, "%d trailing bytes", c.remaining())
	}
	if err := m.CheckBounds(); err != nil {
		return nil, err
	}
	return m, nil
}
