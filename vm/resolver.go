package vm

import "github.com/colorfulnotion/move0/types"

// ModuleResolver looks up published module binaries. A miss is
// (nil, false, nil), not an error.
type ModuleResolver interface {
	GetModule(id types.ModuleId) ([]byte, bool, error)
}

// ResourceResolver looks up resources stored under an address.
type ResourceResolver interface {
	GetResource(addr types.AccountAddress, tag *types.StructTag) ([]byte, bool, error)
}

// Resolver is the read-only view a session executes against.
type Resolver interface {
	ModuleResolver
	ResourceResolver
}
