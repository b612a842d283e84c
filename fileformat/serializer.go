package fileformat

import (
	"bytes"
	"encoding/binary"

	"github.com/colorfulnotion/move0/codec"
	"github.com/colorfulnotion/move0/types"
)

const signatureTokenDepthMax = 256

type binaryWriter struct {
	bytes.Buffer
}

func (w *binaryWriter) uleb(v uint64) {
	var tmp [10]byte
	w.Write(codec.AppendULEB128(tmp[:0], v))
}

func (w *binaryWriter) index(v uint16) { w.uleb(uint64(v)) }

func (w *binaryWriter) bytesWithLen(b []byte) {
	w.uleb(uint64(len(b)))
	w.Write(b)
}

func (w *binaryWriter) token(t SignatureToken, depth int) error {
	if depth > signatureTokenDepthMax {
		return binaryErr(types.StatusMalformed, "signature token nested too deep")
	}
	switch t.Kind {
	case TokenBool, TokenU8, TokenU16, TokenU32, TokenU64, TokenU128, TokenU256, TokenAddress, TokenSigner:
		w.WriteByte(byte(t.Kind))
	case TokenVector, TokenReference, TokenMutableReference:
		if t.Inner == nil {
			return binaryErr(types.StatusMalformed, "%s token without inner type", t)
		}
		w.WriteByte(byte(t.Kind))
		return w.token(*t.Inner, depth+1)
	case TokenStruct:
		w.WriteByte(byte(t.Kind))
		w.index(uint16(t.StructIdx))
	case TokenStructInstantiation:
		w.WriteByte(byte(t.Kind))
		w.index(uint16(t.StructIdx))
		w.uleb(uint64(len(t.TypeArgs)))
		for _, a := range t.TypeArgs {
			if err := w.token(a, depth+1); err != nil {
				return err
			}
		}
	case TokenTypeParameter:
		w.WriteByte(byte(t.Kind))
		w.index(uint16(t.TypeParam))
	default:
		return binaryErr(types.StatusUnknownSignatureType, "token tag %#x", uint8(t.Kind))
	}
	return nil
}

func (w *binaryWriter) signature(s Signature) error {
	if len(s) > SignatureSizeMax {
		return binaryErr(types.StatusMalformed, "signature of %d tokens", len(s))
	}
	w.uleb(uint64(len(s)))
	for _, t := range s {
		if err := w.token(t, 1); err != nil {
			return err
		}
	}
	return nil
}

func (w *binaryWriter) abilities(sets []AbilitySet) {
	w.uleb(uint64(len(sets)))
	for _, a := range sets {
		w.WriteByte(byte(a))
	}
}

func (w *binaryWriter) instruction(b Bytecode) error {
	if !b.Op.Known() {
		return binaryErr(types.StatusUnknownOpcode, "%s", b.Op)
	}
	w.WriteByte(byte(b.Op))
	switch {
	case b.Op == OpLdU8:
		w.WriteByte(byte(b.Arg))
	case b.Op == OpLdU64:
		var le [8]byte
		binary.LittleEndian.PutUint64(le[:], b.Arg)
		w.Write(le[:])
	case b.Op.IsBranch():
		w.uleb(b.Arg)
	}
	return nil
}

func (w *binaryWriter) codeUnit(c *CodeUnit) error {
	if len(c.Code) > BytecodeCountMax {
		return binaryErr(types.StatusMalformed, "code unit of %d instructions", len(c.Code))
	}
	w.index(uint16(c.Locals))
	w.uleb(uint64(len(c.Code)))
	for _, b := range c.Code {
		if err := w.instruction(b); err != nil {
			return err
		}
	}
	return nil
}

type table struct {
	kind TableType
	data []byte
}

// tableSet accumulates table contents in kind order; empty tables are
// skipped.
type tableSet struct {
	tables []table
	err    error
}

func (ts *tableSet) add(kind TableType, count int, fill func(w *binaryWriter) error) {
	if ts.err != nil || count == 0 {
		return
	}
	var w binaryWriter
	if err := fill(&w); err != nil {
		ts.err = err
		return
	}
	ts.tables = append(ts.tables, table{kind: kind, data: w.Bytes()})
}

func (ts *tableSet) writeTo(w *binaryWriter) {
	w.uleb(uint64(len(ts.tables)))
	offset := 0
	for _, t := range ts.tables {
		w.WriteByte(byte(t.kind))
		w.uleb(uint64(offset))
		w.uleb(uint64(len(t.data)))
		offset += len(t.data)
	}
	for _, t := range ts.tables {
		w.Write(t.data)
	}
}

func writeHeader(w *binaryWriter, version uint32) error {
	if version < VersionMin || version > VersionMax {
		return binaryErr(types.StatusUnknownVersion, "version %d", version)
	}
	w.Write(MoveMagic[:])
	var le [4]byte
	binary.LittleEndian.PutUint32(le[:], version)
	w.Write(le[:])
	return nil
}

func addCommonTables(ts *tableSet, mh []ModuleHandle, sh []StructHandle, fh []FunctionHandle, fi []FunctionInstantiation,
	sigs []Signature, consts []Constant, ids []types.Identifier, addrs []types.AccountAddress) {
	ts.add(TableModuleHandles, len(mh), func(w *binaryWriter) error {
		for _, h := range mh {
			w.index(uint16(h.Address))
			w.index(uint16(h.Name))
		}
		return nil
	})
	ts.add(TableStructHandles, len(sh), func(w *binaryWriter) error {
		for _, h := range sh {
			w.index(uint16(h.Module))
			w.index(uint16(h.Name))
			w.WriteByte(byte(h.Abilities))
			w.uleb(uint64(len(h.TypeParameters)))
			for _, tp := range h.TypeParameters {
				w.WriteByte(byte(tp.Constraints))
				if tp.IsPhantom {
					w.WriteByte(1)
				} else {
					w.WriteByte(0)
				}
			}
		}
		return nil
	})
	ts.add(TableFunctionHandles, len(fh), func(w *binaryWriter) error {
		for _, h := range fh {
			w.index(uint16(h.Module))
			w.index(uint16(h.Name))
			w.index(uint16(h.Parameters))
			w.index(uint16(h.Return))
			w.abilities(h.TypeParameters)
		}
		return nil
	})
	ts.add(TableFunctionInst, len(fi), func(w *binaryWriter) error {
		for _, f := range fi {
			w.index(uint16(f.Handle))
			w.index(uint16(f.TypeParameters))
		}
		return nil
	})
	ts.add(TableSignatures, len(sigs), func(w *binaryWriter) error {
		for _, s := range sigs {
			if err := w.signature(s); err != nil {
				return err
			}
		}
		return nil
	})
	ts.add(TableConstantPool, len(consts), func(w *binaryWriter) error {
		for _, c := range consts {
			if err := w.token(c.Type, 1); err != nil {
				return err
			}
			if len(c.Data) > ConstantSizeMax {
				return binaryErr(types.StatusMalformed, "constant of %d bytes", len(c.Data))
			}
			w.bytesWithLen(c.Data)
		}
		return nil
	})
	ts.add(TableIdentifiers, len(ids), func(w *binaryWriter) error {
		for _, id := range ids {
			if !types.IsValidIdentifier(string(id)) {
				return binaryErr(types.StatusMalformed, "invalid identifier %q", id)
			}
			w.bytesWithLen([]byte(id))
		}
		return nil
	})
	ts.add(TableAddressIdentifiers, len(addrs), func(w *binaryWriter) error {
		for _, a := range addrs {
			w.Write(a[:])
		}
		return nil
	})
}

func addMetadata(ts *tableSet, md []Metadata) {
	ts.add(TableMetadata, len(md), func(w *binaryWriter) error {
		for _, m := range md {
			w.bytesWithLen(m.Key)
			w.bytesWithLen(m.Value)
		}
		return nil
	})
}

// Serialize bounds checks s and returns its binary form.
func (s *CompiledScript) Serialize() ([]byte, error) {
	if err := s.CheckBounds(); err != nil {
		return nil, err
	}
	var w binaryWriter
	if err := writeHeader(&w, s.Version); err != nil {
		return nil, err
	}
	var ts tableSet
	addCommonTables(&ts, s.ModuleHandles, s.StructHandles, s.FunctionHandles, s.FunctionInstantiations,
		s.Signatures, s.ConstantPool, s.Identifiers, s.AddressIdentifiers)
	addMetadata(&ts, s.Metadata)
	if ts.err != nil {
		return nil, ts.err
	}
	ts.writeTo(&w)
	w.abilities(s.TypeParameters)
	w.index(uint16(s.Parameters))
	if err := w.codeUnit(&s.Code); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

// Serialize bounds checks m and returns its binary form.
func (m *CompiledModule) Serialize() ([]byte, error) {
	if err := m.CheckBounds(); err != nil {
		return nil, err
	}
	var w binaryWriter
	if err := writeHeader(&w, m.Version); err != nil {
		return nil, err
	}
	var ts tableSet
	addCommonTables(&ts, m.ModuleHandles, m.StructHandles, m.FunctionHandles, m.FunctionInstantiations,
		m.Signatures, m.ConstantPool, m.Identifiers, m.AddressIdentifiers)
	ts.add(TableStructDefs, len(m.StructDefs), func(w *binaryWriter) error {
		for _, sd := range m.StructDefs {
			w.index(uint16(sd.StructHandle))
			if sd.FieldInformation.Native {
				w.WriteByte(fieldInfoNative)
				continue
			}
			w.WriteByte(fieldInfoDeclared)
			w.uleb(uint64(len(sd.FieldInformation.Fields)))
			for _, f := range sd.FieldInformation.Fields {
				w.index(uint16(f.Name))
				if err := w.token(f.Signature, 1); err != nil {
					return err
				}
			}
		}
		return nil
	})
	ts.add(TableStructDefInst, len(m.StructDefInstantiations), func(w *binaryWriter) error {
		for _, si := range m.StructDefInstantiations {
			w.index(uint16(si.Def))
			w.index(uint16(si.TypeParameters))
		}
		return nil
	})
	ts.add(TableFunctionDefs, len(m.FunctionDefs), func(w *binaryWriter) error {
		for i := range m.FunctionDefs {
			fd := &m.FunctionDefs[i]
			w.index(uint16(fd.Function))
			w.WriteByte(byte(fd.Visibility))
			var flags uint8
			if fd.IsNative() {
				flags |= functionFlagNative
			}
			if fd.IsEntry {
				flags |= functionFlagEntry
			}
			w.WriteByte(flags)
			w.uleb(uint64(len(fd.AcquiresGlobalResources)))
			for _, a := range fd.AcquiresGlobalResources {
				w.index(uint16(a))
			}
			if fd.Code != nil {
				if err := w.codeUnit(fd.Code); err != nil {
					return err
				}
			}
		}
		return nil
	})
	ts.add(TableFieldHandle, len(m.FieldHandles), func(w *binaryWriter) error {
		for _, fh := range m.FieldHandles {
			w.index(uint16(fh.Owner))
			w.index(fh.Field)
		}
		return nil
	})
	ts.add(TableFieldInst, len(m.FieldInstantiations), func(w *binaryWriter) error {
		for _, fi := range m.FieldInstantiations {
			w.index(uint16(fi.Handle))
			w.index(uint16(fi.TypeParameters))
		}
		return nil
	})
	ts.add(TableFriendDecls, len(m.FriendDecls), func(w *binaryWriter) error {
		for _, f := range m.FriendDecls {
			w.index(uint16(f.Address))
			w.index(uint16(f.Name))
		}
		return nil
	})
	addMetadata(&ts, m.Metadata)
	if ts.err != nil {
		return nil, ts.err
	}
	ts.writeTo(&w)
	w.index(uint16(m.SelfModuleHandleIdx))
	return w.Bytes(), nil
}
