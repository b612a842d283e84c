package fileformat

import (
	"encoding/json"
	"testing"

	"github.com/colorfulnotion/move0/types"
	"github.com/nsf/jsondiff"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleScript() *CompiledScript {
	return &CompiledScript{
		Version: VersionMax,
		Signatures: []Signature{
			{},
			{Reference(Signer), U128, Vector(Vector(Address))},
		},
		Code:       CodeUnit{Locals: 0, Code: AbortBody()},
		Parameters: 1,
	}
}

func sampleModule() *CompiledModule {
	return &CompiledModule{
		Version:            VersionMax,
		ModuleHandles:      []ModuleHandle{{Address: 0, Name: 0}},
		StructHandles:      []StructHandle{{Module: 0, Name: 1}},
		FunctionHandles:    []FunctionHandle{{Module: 0, Name: 2, Parameters: 1, Return: 0, TypeParameters: []AbilitySet{EmptyAbilities}}},
		Signatures:         []Signature{{}, {Signer, TypeParameter(0), Vector(U8)}},
		Identifiers:        []types.Identifier{"M", "X", "foo"},
		AddressIdentifiers: []types.AccountAddress{types.AddressOne},
		StructDefs: []StructDefinition{{
			StructHandle:     0,
			FieldInformation: StructFieldInformation{Fields: []FieldDefinition{{Name: 1, Signature: Bool}}},
		}},
		FunctionDefs: []FunctionDefinition{{
			Function:   0,
			Visibility: VisibilityPublic,
			IsEntry:    true,
			Code:       &CodeUnit{Locals: 0, Code: AbortBody()},
		}},
	}
}

func assertJSONMatch(t *testing.T, expected, actual interface{}) {
	t.Helper()
	a, err := json.Marshal(expected)
	require.NoError(t, err)
	b, err := json.Marshal(actual)
	require.NoError(t, err)
	opts := jsondiff.DefaultConsoleOptions()
	diff, report := jsondiff.Compare(a, b, &opts)
	assert.Equal(t, jsondiff.FullMatch, diff, report)
}

func TestMinimalScriptBytes(t *testing.T) {
	s := &CompiledScript{
		Version:    VersionMax,
		Signatures: []Signature{{}},
		Code:       CodeUnit{Code: AbortBody()},
	}
	blob, err := s.Serialize()
	require.NoError(t, err)
	expected := []byte{
		0xA1, 0x1C, 0xEB, 0x0B, 0x06, 0x00, 0x00, 0x00,
		0x01,             // one table
		0x05, 0x00, 0x01, // signatures at 0, one byte
		0x00,       // empty signature
		0x00,       // no type parameters
		0x00,       // parameters signature
		0x00, 0x02, // locals, two instructions
		0x06, 0, 0, 0, 0, 0, 0, 0, 0,
		0x27,
	}
	assert.Equal(t, expected, blob)
}

func TestScriptRoundTrip(t *testing.T) {
	s := sampleScript()
	blob, err := s.Serialize()
	require.NoError(t, err)
	back, err := DeserializeScript(blob)
	require.NoError(t, err)
	assertJSONMatch(t, s, back)

	again, err := back.Serialize()
	require.NoError(t, err)
	assert.Equal(t, blob, again)
}

func TestModuleRoundTrip(t *testing.T) {
	m := sampleModule()
	blob, err := m.Serialize()
	require.NoError(t, err)
	back, err := DeserializeModule(blob)
	require.NoError(t, err)
	assertJSONMatch(t, m, back)

	diff, err := Diff(m, back)
	require.NoError(t, err)
	assert.Empty(t, diff)

	id := back.SelfID()
	assert.Equal(t, types.AddressOne, id.Address)
	assert.Equal(t, types.Identifier("M"), id.Name)

	fd, fh, ok := back.FindFunction("foo")
	require.True(t, ok)
	assert.True(t, fd.IsEntry)
	assert.Equal(t, VisibilityPublic, fd.Visibility)
	assert.Len(t, fh.TypeParameters, 1)
}

func TestDiffReportsChanges(t *testing.T) {
	m := sampleModule()
	other := sampleModule()
	other.Identifiers[2] = "bar"
	diff, err := Diff(m, other)
	require.NoError(t, err)
	assert.Contains(t, diff, "bar")
}

func TestCheckBounds(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(m *CompiledModule)
	}{
		{"self handle", func(m *CompiledModule) { m.SelfModuleHandleIdx = 3 }},
		{"identifier", func(m *CompiledModule) { m.ModuleHandles[0].Name = 9 }},
		{"address", func(m *CompiledModule) { m.ModuleHandles[0].Address = 1 }},
		{"signature", func(m *CompiledModule) { m.FunctionHandles[0].Parameters = 2 }},
		{"type parameter", func(m *CompiledModule) { m.Signatures[1] = Signature{TypeParameter(1)} }},
		{"struct token", func(m *CompiledModule) { m.Signatures[1] = Signature{Struct(4)} }},
		{"locals", func(m *CompiledModule) { m.FunctionDefs[0].Code.Locals = 7 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := sampleModule()
			tc.mutate(m)
			err := m.CheckBounds()
			require.Error(t, err)
			assert.Equal(t, types.StatusIndexOutOfBounds, StatusOf(err))
			_, err = m.Serialize()
			assert.Error(t, err)
		})
	}
	require.NoError(t, sampleModule().CheckBounds())
	require.NoError(t, sampleScript().CheckBounds())
}

func TestDeserializeRejects(t *testing.T) {
	good, err := sampleScript().Serialize()
	require.NoError(t, err)

	badMagic := append([]byte(nil), good...)
	badMagic[0] = 0
	badVersion := append([]byte(nil), good...)
	badVersion[4] = 99
	badOpcode := append([]byte(nil), good...)
	badOpcode[len(badOpcode)-1] = 0xFE

	cases := []struct {
		name   string
		blob   []byte
		status types.StatusCode
	}{
		{"empty", nil, types.StatusBadMagic},
		{"magic", badMagic, types.StatusBadMagic},
		{"version", badVersion, types.StatusUnknownVersion},
		{"opcode", badOpcode, types.StatusUnknownOpcode},
		{"trailing", append(append([]byte(nil), good...), 0), types.StatusMalformed},
		{"truncated", good[:len(good)-1], types.StatusMalformed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DeserializeScript(tc.blob)
			require.Error(t, err)
			assert.Equal(t, tc.status, StatusOf(err))
		})
	}

	module, err := sampleModule().Serialize()
	require.NoError(t, err)
	_, err = DeserializeScript(module)
	assert.Error(t, err)
}

func TestSignatureEquality(t *testing.T) {
	a := Signature{Vector(Vector(Address)), StructInstantiation(0, U8, TypeParameter(1))}
	b := Signature{Vector(Vector(Address)), StructInstantiation(0, U8, TypeParameter(1))}
	c := Signature{Vector(Vector(Signer)), StructInstantiation(0, U8, TypeParameter(1))}
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.False(t, Signature{}.Equal(Signature{Bool}))
	assert.Equal(t, "(&signer, u128)", Signature{Reference(Signer), U128}.String())
}

func TestDump(t *testing.T) {
	out := sampleModule().Dump().String()
	assert.Contains(t, out, "foo")
	assert.Contains(t, out, "LdU64(0)")
	assert.Contains(t, out, "Abort")
	assert.Contains(t, sampleScript().Dump().String(), "vector<vector<address>>")
}

func TestAbilitySetString(t *testing.T) {
	assert.Equal(t, "none", EmptyAbilities.String())
	assert.Equal(t, "copy+drop+store+key", AllAbilities.String())
	assert.Equal(t, "drop+0x40", EmptyAbilities.Add(AbilityDrop).Add(Ability(0x40)).String())

	out, err := json.Marshal([]AbilitySet{EmptyAbilities.Add(AbilityCopy), AllAbilities})
	require.NoError(t, err)
	assert.JSONEq(t, `["copy","copy+drop+store+key"]`, string(out))
}
