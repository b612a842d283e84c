package storage

import (
	"path/filepath"
	"testing"

	"github.com/colorfulnotion/move0/assembler"
	"github.com/colorfulnotion/move0/fileformat"
	"github.com/colorfulnotion/move0/moveerrors"
	"github.com/colorfulnotion/move0/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testModule(t *testing.T, addr string) *fileformat.CompiledModule {
	t.Helper()
	m, _ := assembler.New(assembler.FixedAddress(types.MustAccountAddressFromHex(addr))).
		MakeScriptFunction(fileformat.Signature{fileformat.U64})
	return m
}

func TestRemoteStore(t *testing.T) {
	s := NewRemoteStore()
	m := testModule(t, "0x2")
	require.NoError(t, s.AddModule(m))

	blob, ok, err := s.GetModule(m.SelfID())
	require.NoError(t, err)
	require.True(t, ok)
	expected, err := m.Serialize()
	require.NoError(t, err)
	assert.Equal(t, expected, blob)

	// returned bytes are a copy
	blob[0] = 0
	again, _, _ := s.GetModule(m.SelfID())
	assert.Equal(t, expected, again)

	_, ok, err = s.GetModule(types.NewModuleId(types.AddressOne, "M"))
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = s.GetResource(types.AddressOne, &types.StructTag{Address: types.AddressOne, Module: "M", Name: "X"})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRemoteStoreOverwriteAndOrder(t *testing.T) {
	s := NewRemoteStore()
	id := types.NewModuleId(types.MustAccountAddressFromHex("0x3"), "M")
	s.AddModuleBytes(id, []byte{1})
	s.AddModuleBytes(id, []byte{2})
	s.AddModuleBytes(types.NewModuleId(types.AddressOne, "Z"), []byte{3})
	s.AddModuleBytes(types.NewModuleId(types.AddressOne, "A"), []byte{4})

	blob, ok, _ := s.GetModule(id)
	require.True(t, ok)
	assert.Equal(t, []byte{2}, blob)
	assert.Equal(t, 3, s.Len())

	ids := s.ModuleIDs()
	require.Len(t, ids, 3)
	assert.Equal(t, types.Identifier("A"), ids[0].Name)
	assert.Equal(t, types.Identifier("Z"), ids[1].Name)
	assert.Equal(t, id, ids[2])
}

func TestRemoteStoreRejectsBadModule(t *testing.T) {
	m := testModule(t, "0x2")
	m.FunctionHandles[0].Parameters = 40
	err := NewRemoteStore().AddModule(m)
	assert.ErrorIs(t, err, moveerrors.ErrSModuleSerialize)
}

func TestPersistentStore(t *testing.T) {
	ps, err := NewMemoryPersistentStore()
	require.NoError(t, err)
	defer ps.Close()

	m := testModule(t, "0x4")
	require.NoError(t, ps.AddModule(m))
	blob, ok, err := ps.GetModule(m.SelfID())
	require.NoError(t, err)
	require.True(t, ok)
	back, err := fileformat.DeserializeModule(blob)
	require.NoError(t, err)
	assert.Equal(t, m.SelfID(), back.SelfID())

	_, ok, err = ps.GetModule(types.NewModuleId(types.AddressOne, "M"))
	require.NoError(t, err)
	assert.False(t, ok)

	tag := &types.StructTag{Address: types.AddressOne, Module: "M", Name: "X"}
	_, ok, err = ps.GetResource(types.AddressOne, tag)
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, ps.PutResource(types.AddressOne, tag, []byte{1}))
	res, ok, err := ps.GetResource(types.AddressOne, tag)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte{1}, res)

	ids, err := ps.ModuleIDs()
	require.NoError(t, err)
	assert.Equal(t, []types.ModuleId{m.SelfID()}, ids)

	require.NoError(t, ps.Close())
	require.NoError(t, ps.Close())
	_, _, err = ps.GetModule(m.SelfID())
	assert.ErrorIs(t, err, moveerrors.ErrSStoreClosed)
}

func TestPersistentStoreReopen(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "db")
	ps, err := NewPersistentStore(dir)
	require.NoError(t, err)
	m := testModule(t, "0x5")
	require.NoError(t, ps.AddModule(m))
	require.NoError(t, ps.Close())

	ps, err = NewPersistentStore(dir)
	require.NoError(t, err)
	defer ps.Close()
	_, ok, err := ps.GetModule(m.SelfID())
	require.NoError(t, err)
	assert.True(t, ok)
}
