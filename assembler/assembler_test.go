package assembler

import (
	"testing"

	"github.com/colorfulnotion/move0/fileformat"
	"github.com/colorfulnotion/move0/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignatureTableIntern(t *testing.T) {
	tbl := NewSignatureTable()
	require.Equal(t, 1, tbl.Len())

	empty := tbl.Intern(fileformat.Signature{})
	assert.Equal(t, fileformat.SignatureIndex(0), empty)

	nested := fileformat.Signature{fileformat.Vector(fileformat.Vector(fileformat.Address))}
	a := tbl.Intern(nested)
	b := tbl.Intern(fileformat.Signature{fileformat.Vector(fileformat.Vector(fileformat.Address))})
	assert.Equal(t, a, b)

	c := tbl.Intern(fileformat.Signature{fileformat.Vector(fileformat.Vector(fileformat.Signer))})
	assert.NotEqual(t, a, c)
	assert.Equal(t, 3, tbl.Len())

	// interning copies the signature, including nested tokens
	nested[0].Inner.Inner.Kind = fileformat.TokenU8
	assert.Equal(t, "(vector<vector<address>>)", tbl.Signatures()[a].String())
	nested[0] = fileformat.Bool
	assert.True(t, tbl.Signatures()[a][0].Kind == fileformat.TokenVector)

	inst := fileformat.Signature{fileformat.StructInstantiation(0, fileformat.Vector(fileformat.U8))}
	i := tbl.Intern(inst)
	inst[0].TypeArgs[0].Inner.Kind = fileformat.TokenAddress
	assert.True(t, tbl.Signatures()[i][0].TypeArgs[0].Inner.Kind == fileformat.TokenU8)
}

func TestModuleSignatureCounts(t *testing.T) {
	asm := New(NewSeededAddressGenerator(1))
	u8 := fileformat.Signature{fileformat.U8}
	u64 := fileformat.Signature{fileformat.U64}

	cases := []struct {
		name     string
		params   fileformat.Signature
		returns  fileformat.Signature
		expected int
	}{
		{"distinct", u8, u64, 3},
		{"same", u8, u8, 2},
		{"empty", fileformat.Signature{}, fileformat.Signature{}, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m, name := asm.MakeModuleWithFunction(fileformat.VisibilityPrivate, false, tc.params, tc.returns, nil)
			assert.Equal(t, FunctionName, name)
			assert.Len(t, m.Signatures, tc.expected)
			require.NoError(t, m.CheckBounds())
		})
	}
}

func TestModuleShape(t *testing.T) {
	addr := types.MustAccountAddressFromHex("0xcafe")
	m, name := New(FixedAddress(addr)).MakeScriptFunction(fileformat.Signature{fileformat.Reference(fileformat.Signer), fileformat.U64})

	assert.Equal(t, types.NewModuleId(addr, ModuleName), m.SelfID())
	fd, fh, ok := m.FindFunction(name)
	require.True(t, ok)
	assert.True(t, fd.IsEntry)
	assert.Equal(t, fileformat.VisibilityPublic, fd.Visibility)
	assert.Empty(t, m.Signatures[fh.Return])
	assert.Equal(t, fileformat.AbortBody(), fd.Code.Code)

	require.Len(t, m.StructDefs, 1)
	fields := m.StructDefs[0].FieldInformation.Fields
	require.Len(t, fields, 1)
	assert.Equal(t, StructName, m.Identifiers[fields[0].Name])
	assert.Equal(t, fileformat.Bool, fields[0].Signature)
}

func TestSeededAddresses(t *testing.T) {
	a := NewSeededAddressGenerator(7)
	b := NewSeededAddressGenerator(7)
	first := a.NextAddress()
	assert.Equal(t, first, b.NextAddress())
	assert.NotEqual(t, first, a.NextAddress())

	m1, _ := New(NewSeededAddressGenerator(3)).MakeScriptFunction(fileformat.Signature{})
	m2, _ := New(NewSeededAddressGenerator(3)).MakeScriptFunction(fileformat.Signature{})
	assert.Equal(t, m1.SelfID(), m2.SelfID())
}

func TestMakeScriptRoundTrip(t *testing.T) {
	sigs := []fileformat.Signature{
		{},
		{fileformat.U8},
		{fileformat.Bool, fileformat.Vector(fileformat.U8), fileformat.Address},
		{fileformat.Vector(fileformat.Vector(fileformat.Address))},
	}
	for _, sig := range sigs {
		t.Run(sig.String(), func(t *testing.T) {
			blob := MakeScript(sig)
			script, err := fileformat.DeserializeScript(blob)
			require.NoError(t, err)
			assert.True(t, script.Signature(script.Parameters).Equal(sig))
			again, err := script.Serialize()
			require.NoError(t, err)
			assert.Equal(t, blob, again)
		})
	}
}

func TestModuleRoundTrip(t *testing.T) {
	cases := []struct {
		name       string
		typeParams []fileformat.AbilitySet
	}{
		{"copy", []fileformat.AbilitySet{fileformat.EmptyAbilities.Add(fileformat.AbilityCopy)}},
		{"empty", []fileformat.AbilitySet{}},
		{"nil", nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m, _ := New(NewSeededAddressGenerator(9)).MakeModuleWithFunction(
				fileformat.VisibilityFriend, false,
				fileformat.Signature{fileformat.TypeParameter(0)},
				fileformat.Signature{fileformat.U256},
				tc.typeParams,
			)
			blob, err := m.Serialize()
			require.NoError(t, err)
			back, err := fileformat.DeserializeModule(blob)
			require.NoError(t, err)
			again, err := back.Serialize()
			require.NoError(t, err)
			assert.Equal(t, blob, again)
			assert.Equal(t, m.FunctionHandles, back.FunctionHandles)
			diff, err := fileformat.Diff(m, back)
			require.NoError(t, err)
			assert.Empty(t, diff)
		})
	}
}

func TestModuleOwnsTypeParameters(t *testing.T) {
	tyParams := []fileformat.AbilitySet{fileformat.EmptyAbilities}
	m, _ := New(NewSeededAddressGenerator(2)).MakeModuleWithFunction(
		fileformat.VisibilityPublic, true, fileformat.Signature{}, fileformat.Signature{}, tyParams)
	tyParams[0] = fileformat.AllAbilities
	assert.Equal(t, fileformat.EmptyAbilities, m.FunctionHandles[0].TypeParameters[0])
}

func TestMakeScriptPanicsOnBadDescriptor(t *testing.T) {
	assert.Panics(t, func() {
		MakeScript(fileformat.Signature{fileformat.Struct(0)})
	})
}
