package zkvm

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"golang.org/x/crypto/blake2b"
)

// ImageID identifies a guest program.
type ImageID [32]byte

func (id ImageID) String() string { return hexutil.Encode(id[:]) }

// ComputeImageID hashes a guest's name and version.
func ComputeImageID(name string, version uint32) ImageID {
	h, _ := blake2b.New256(nil)
	h.Write([]byte(name))
	var v [4]byte
	binary.LittleEndian.PutUint32(v[:], version)
	h.Write(v[:])
	var id ImageID
	copy(id[:], h.Sum(nil))
	return id
}

// GuestFunc is a guest program's entry point.
type GuestFunc func(env GuestEnv) error

type Guest struct {
	Name    string
	Version uint32
	Main    GuestFunc
}

func (g Guest) ImageID() ImageID { return ComputeImageID(g.Name, g.Version) }

// Registry maps image ids to guest programs.
type Registry struct {
	mu     sync.RWMutex
	guests map[ImageID]Guest
}

func NewRegistry() *Registry {
	return &Registry{guests: make(map[ImageID]Guest)}
}

// DefaultRegistry is used by provers created without a registry.
var DefaultRegistry = NewRegistry()

func (r *Registry) Register(g Guest) (ImageID, error) {
	if g.Main == nil {
		return ImageID{}, fmt.Errorf("guest %s has no entry point", g.Name)
	}
	id := g.ImageID()
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.guests[id]; ok {
		return ImageID{}, fmt.Errorf("guest %s v%d already registered as %s", g.Name, g.Version, id)
	}
	r.guests[id] = g
	return id, nil
}

func (r *Registry) Lookup(id ImageID) (Guest, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.guests[id]
	return g, ok
}
