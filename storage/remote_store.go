// Package storage holds the module resolvers handed to the VM.
package storage

import (
	"fmt"
	"strings"

	"github.com/colorfulnotion/move0/fileformat"
	"github.com/colorfulnotion/move0/log"
	"github.com/colorfulnotion/move0/moveerrors"
	"github.com/colorfulnotion/move0/types"
	"golang.org/x/exp/slices"
)

// RemoteStore is an in-memory module store. Resource lookups always miss.
// A RemoteStore belongs to a single test case and takes no lock.
type RemoteStore struct {
	modules map[types.ModuleId][]byte
}

func NewRemoteStore() *RemoteStore {
	return &RemoteStore{modules: make(map[types.ModuleId][]byte)}
}

// AddModule serializes m and stores it under m.SelfID(), replacing any
// previous entry.
func (s *RemoteStore) AddModule(m *fileformat.CompiledModule) error {
	blob, err := m.Serialize()
	if err != nil {
		return fmt.Errorf("%w: %v", moveerrors.ErrSModuleSerialize, err)
	}
	s.AddModuleBytes(m.SelfID(), blob)
	return nil
}

func (s *RemoteStore) AddModuleBytes(id types.ModuleId, blob []byte) {
	s.modules[id] = append([]byte(nil), blob...)
	log.Trace(log.StoreMonitoring, "module added", "id", id, "bytes", len(blob))
}

// GetModule returns a copy of the module stored under id.
func (s *RemoteStore) GetModule(id types.ModuleId) ([]byte, bool, error) {
	blob, ok := s.modules[id]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), blob...), true, nil
}

func (s *RemoteStore) GetResource(types.AccountAddress, *types.StructTag) ([]byte, bool, error) {
	return nil, false, nil
}

// ModuleIDs lists stored module ids ordered by address, then name.
func (s *RemoteStore) ModuleIDs() []types.ModuleId {
	ids := make([]types.ModuleId, 0, len(s.modules))
	for id := range s.modules {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, compareModuleIDs)
	return ids
}

func (s *RemoteStore) Len() int { return len(s.modules) }

func compareModuleIDs(a, b types.ModuleId) int {
	if c := strings.Compare(string(a.Address[:]), string(b.Address[:])); c != 0 {
		return c
	}
	return strings.Compare(string(a.Name), string(b.Name))
}
