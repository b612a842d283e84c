package storage

import (
	"fmt"
	"sync/atomic"

	"github.com/colorfulnotion/move0/codec"
	"github.com/colorfulnotion/move0/fileformat"
	"github.com/colorfulnotion/move0/log"
	"github.com/colorfulnotion/move0/moveerrors"
	"github.com/colorfulnotion/move0/types"
	"github.com/syndtr/goleveldb/leveldb"
	leveldbstorage "github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"
)

var (
	modulePrefix   = []byte("m/")
	resourcePrefix = []byte("r/")
)

// PersistentStore is a LevelDB-backed module and resource store.
// Thread-safe: LevelDB handles its own synchronization.
type PersistentStore struct {
	db     *leveldb.DB
	closed atomic.Bool
}

// NewPersistentStore opens or creates a LevelDB database at the given path.
// If path is empty, uses in-memory storage.
func NewPersistentStore(path string) (*PersistentStore, error) {
	var db *leveldb.DB
	var err error

	if path == "" {
		db, err = leveldb.Open(leveldbstorage.NewMemStorage(), nil)
	} else {
		db, err = leveldb.OpenFile(path, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open database at %s: %w", path, err)
	}
	log.Debug(log.StoreMonitoring, "persistent store opened", "path", path)
	return &PersistentStore{db: db}, nil
}

// NewMemoryPersistentStore creates an in-memory PersistentStore for testing.
func NewMemoryPersistentStore() (*PersistentStore, error) {
	return NewPersistentStore("")
}

func moduleKey(id types.ModuleId) []byte {
	key := append([]byte(nil), modulePrefix...)
	key = append(key, id.Address[:]...)
	return append(key, id.Name...)
}

func resourceKey(addr types.AccountAddress, tag *types.StructTag) ([]byte, error) {
	encoded, err := codec.Marshal(*tag)
	if err != nil {
		return nil, err
	}
	key := append([]byte(nil), resourcePrefix...)
	key = append(key, addr[:]...)
	return append(key, encoded...), nil
}

func (ps *PersistentStore) get(key []byte) ([]byte, bool, error) {
	if ps.closed.Load() {
		return nil, false, moveerrors.ErrSStoreClosed
	}
	data, err := ps.db.Get(key, nil)
	if err == leveldb.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("Get %x: %w", key, err)
	}
	return data, true, nil
}

func (ps *PersistentStore) put(key, value []byte) error {
	if ps.closed.Load() {
		return moveerrors.ErrSStoreClosed
	}
	return ps.db.Put(key, value, nil)
}

// AddModule serializes m and stores it under m.SelfID().
func (ps *PersistentStore) AddModule(m *fileformat.CompiledModule) error {
	blob, err := m.Serialize()
	if err != nil {
		return fmt.Errorf("%w: %v", moveerrors.ErrSModuleSerialize, err)
	}
	return ps.AddModuleBytes(m.SelfID(), blob)
}

func (ps *PersistentStore) AddModuleBytes(id types.ModuleId, blob []byte) error {
	if err := ps.put(moduleKey(id), blob); err != nil {
		return err
	}
	log.Trace(log.StoreMonitoring, "module persisted", "id", id, "bytes", len(blob))
	return nil
}

// GetModule returns (nil, false, nil) if id is not stored.
func (ps *PersistentStore) GetModule(id types.ModuleId) ([]byte, bool, error) {
	return ps.get(moduleKey(id))
}

// PutResource stores a resource blob for (addr, tag).
func (ps *PersistentStore) PutResource(addr types.AccountAddress, tag *types.StructTag, blob []byte) error {
	key, err := resourceKey(addr, tag)
	if err != nil {
		return err
	}
	return ps.put(key, blob)
}

func (ps *PersistentStore) GetResource(addr types.AccountAddress, tag *types.StructTag) ([]byte, bool, error) {
	key, err := resourceKey(addr, tag)
	if err != nil {
		return nil, false, err
	}
	return ps.get(key)
}

// ModuleIDs returns the stored module ids in key order.
func (ps *PersistentStore) ModuleIDs() ([]types.ModuleId, error) {
	if ps.closed.Load() {
		return nil, moveerrors.ErrSStoreClosed
	}
	iter := ps.db.NewIterator(util.BytesPrefix(modulePrefix), nil)
	defer iter.Release()

	var ids []types.ModuleId
	for iter.Next() {
		rest := iter.Key()[len(modulePrefix):]
		if len(rest) <= types.AccountAddressLength {
			return nil, fmt.Errorf("%w: %x", moveerrors.ErrSCorruptEntry, iter.Key())
		}
		var id types.ModuleId
		copy(id.Address[:], rest[:types.AccountAddressLength])
		name, err := types.NewIdentifier(string(rest[types.AccountAddressLength:]))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", moveerrors.ErrSCorruptEntry, err)
		}
		id.Name = name
		ids = append(ids, id)
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("ModuleIDs: %w", err)
	}
	return ids, nil
}

func (ps *PersistentStore) Close() error {
	if ps.closed.Swap(true) {
		return nil
	}
	return ps.db.Close()
}
