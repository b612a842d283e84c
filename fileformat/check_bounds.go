package fileformat

import (
	"github.com/colorfulnotion/move0/types"
)

// boundsChecker collects the first out-of-range index it sees.
type boundsChecker struct {
	err error
}

func (b *boundsChecker) check(what string, idx uint16, length int) {
	if b.err == nil && int(idx) >= length {
		b.err = binaryErr(types.StatusIndexOutOfBounds, "%s index %d out of bounds for table of length %d", what, idx, length)
	}
}

func (b *boundsChecker) token(t SignatureToken, structHandles, typeParams int) {
	t.Preorder(func(tok SignatureToken) {
		switch tok.Kind {
		case TokenStruct, TokenStructInstantiation:
			b.check("struct handle", uint16(tok.StructIdx), structHandles)
		case TokenTypeParameter:
			if typeParams >= 0 {
				b.check("type parameter", uint16(tok.TypeParam), typeParams)
			}
		case TokenVector, TokenReference, TokenMutableReference:
			if tok.Inner == nil && b.err == nil {
				b.err = binaryErr(types.StatusMalformed, "%s token without inner type", tok)
			}
		}
	})
}

func (b *boundsChecker) signature(sigs []Signature, idx SignatureIndex, structHandles, typeParams int) {
	b.check("signature", uint16(idx), len(sigs))
	if b.err != nil {
		return
	}
	for _, t := range sigs[idx] {
		b.token(t, structHandles, typeParams)
	}
}

func (b *boundsChecker) common(mh []ModuleHandle, sh []StructHandle, fh []FunctionHandle, fi []FunctionInstantiation,
	sigs []Signature, consts []Constant, ids []types.Identifier, addrs []types.AccountAddress) {
	for _, h := range mh {
		b.check("address identifier", uint16(h.Address), len(addrs))
		b.check("identifier", uint16(h.Name), len(ids))
	}
	for _, h := range sh {
		b.check("module handle", uint16(h.Module), len(mh))
		b.check("identifier", uint16(h.Name), len(ids))
	}
	for _, h := range fh {
		b.check("module handle", uint16(h.Module), len(mh))
		b.check("identifier", uint16(h.Name), len(ids))
		b.signature(sigs, h.Parameters, len(sh), len(h.TypeParameters))
		b.signature(sigs, h.Return, len(sh), len(h.TypeParameters))
	}
	for _, f := range fi {
		b.check("function handle", uint16(f.Handle), len(fh))
		b.check("signature", uint16(f.TypeParameters), len(sigs))
	}
	// type parameters in free-standing signatures are checked where used
	for _, s := range sigs {
		for _, t := range s {
			b.token(t, len(sh), -1)
		}
	}
	for _, c := range consts {
		b.token(c.Type, len(sh), 0)
	}
}

// CheckBounds verifies that every index stored in s is inside its table.
func (s *CompiledScript) CheckBounds() error {
	var b boundsChecker
	b.common(s.ModuleHandles, s.StructHandles, s.FunctionHandles, s.FunctionInstantiations,
		s.Signatures, s.ConstantPool, s.Identifiers, s.AddressIdentifiers)
	b.signature(s.Signatures, s.Parameters, len(s.StructHandles), len(s.TypeParameters))
	b.signature(s.Signatures, s.Code.Locals, len(s.StructHandles), len(s.TypeParameters))
	return b.err
}

// CheckBounds verifies that every index stored in m is inside its table.
func (m *CompiledModule) CheckBounds() error {
	var b boundsChecker
	b.check("self module handle", uint16(m.SelfModuleHandleIdx), len(m.ModuleHandles))
	b.common(m.ModuleHandles, m.StructHandles, m.FunctionHandles, m.FunctionInstantiations,
		m.Signatures, m.ConstantPool, m.Identifiers, m.AddressIdentifiers)
	for _, sd := range m.StructDefs {
		b.check("struct handle", uint16(sd.StructHandle), len(m.StructHandles))
		if b.err != nil {
			return b.err
		}
		typeParams := len(m.StructHandles[sd.StructHandle].TypeParameters)
		for _, f := range sd.FieldInformation.Fields {
			b.check("identifier", uint16(f.Name), len(m.Identifiers))
			b.token(f.Signature, len(m.StructHandles), typeParams)
		}
	}
	for _, si := range m.StructDefInstantiations {
		b.check("struct definition", uint16(si.Def), len(m.StructDefs))
		b.check("signature", uint16(si.TypeParameters), len(m.Signatures))
	}
	for i := range m.FunctionDefs {
		fd := &m.FunctionDefs[i]
		b.check("function handle", uint16(fd.Function), len(m.FunctionHandles))
		if b.err != nil {
			return b.err
		}
		for _, a := range fd.AcquiresGlobalResources {
			b.check("struct definition", uint16(a), len(m.StructDefs))
		}
		if fd.Code != nil {
			typeParams := len(m.FunctionHandles[fd.Function].TypeParameters)
			b.signature(m.Signatures, fd.Code.Locals, len(m.StructHandles), typeParams)
		}
	}
	for _, fh := range m.FieldHandles {
		b.check("struct definition", uint16(fh.Owner), len(m.StructDefs))
		if b.err != nil {
			return b.err
		}
		b.check("field", fh.Field, len(m.StructDefs[fh.Owner].FieldInformation.Fields))
	}
	for _, fi := range m.FieldInstantiations {
		b.check("field handle", uint16(fi.Handle), len(m.FieldHandles))
		b.check("signature", uint16(fi.TypeParameters), len(m.Signatures))
	}
	for _, f := range m.FriendDecls {
		b.check("address identifier", uint16(f.Address), len(m.AddressIdentifiers))
		b.check("identifier", uint16(f.Name), len(m.Identifiers))
	}
	return b.err
}
