// Package vm is a small Move bytecode interpreter: it loads scripts and
// modules, checks their entry signatures and arguments, and runs the
// supported instruction subset.
package vm

import (
	"fmt"

	"github.com/colorfulnotion/move0/log"
	"github.com/colorfulnotion/move0/types"
)

// NativeFn implements a native function. A returned *types.VMError is
// reported as is; any other error becomes an invariant violation.
type NativeFn func(tyArgs []types.TypeTag, args []types.MoveValue) ([]types.MoveValue, error)

type NativeFunction struct {
	Address types.AccountAddress
	Module  types.Identifier
	Name    types.Identifier
	Fn      NativeFn
}

type nativeKey struct {
	module types.ModuleId
	name   types.Identifier
}

// MoveVM holds the immutable configuration shared by its sessions.
type MoveVM struct {
	natives map[nativeKey]NativeFn
}

// NewMoveVM registers natives. Registering the same function twice is an
// error.
func NewMoveVM(natives []NativeFunction) (*MoveVM, error) {
	vm := &MoveVM{natives: make(map[nativeKey]NativeFn, len(natives))}
	for _, n := range natives {
		key := nativeKey{module: types.NewModuleId(n.Address, n.Module), name: n.Name}
		if _, ok := vm.natives[key]; ok {
			return nil, fmt.Errorf("duplicate native function %s::%s", key.module, n.Name)
		}
		if n.Fn == nil {
			return nil, fmt.Errorf("native function %s::%s has no implementation", key.module, n.Name)
		}
		vm.natives[key] = n.Fn
	}
	log.Trace(log.VMMonitoring, "vm created", "natives", len(vm.natives))
	return vm, nil
}

func (vm *MoveVM) native(module types.ModuleId, name types.Identifier) (NativeFn, bool) {
	fn, ok := vm.natives[nativeKey{module: module, name: name}]
	return fn, ok
}

// NewSession binds a session to resolver. A session caches the modules it
// loads and must not be shared between goroutines.
func (vm *MoveVM) NewSession(resolver Resolver) *Session {
	return newSession(vm, resolver)
}
