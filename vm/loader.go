package vm

import (
	"github.com/colorfulnotion/move0/fileformat"
	"github.com/colorfulnotion/move0/log"
	"github.com/colorfulnotion/move0/types"
)

// loader resolves and caches the modules a session touches.
type loader struct {
	vm       *MoveVM
	resolver Resolver
	modules  map[types.ModuleId]*fileformat.CompiledModule
	loading  map[types.ModuleId]bool
}

func newLoader(vm *MoveVM, resolver Resolver) *loader {
	return &loader{
		vm:       vm,
		resolver: resolver,
		modules:  make(map[types.ModuleId]*fileformat.CompiledModule),
		loading:  make(map[types.ModuleId]bool),
	}
}

func binaryToVMError(err error) *types.VMError {
	status := fileformat.StatusOf(err)
	if status == types.StatusUnknownStatus {
		status = types.StatusUnknownDeserialization
	}
	return types.NewVMError(status).WithMessage("%v", err)
}

// loadScript deserializes and verifies a script and loads its dependencies.
func (l *loader) loadScript(blob []byte) (*fileformat.CompiledScript, *types.VMError) {
	script, err := fileformat.DeserializeScript(blob)
	if err != nil {
		return nil, binaryToVMError(err).AtLocation(types.Script)
	}
	if verr := verifyCodeUnit(&script.Code); verr != nil {
		return nil, verr.AtLocation(types.Script)
	}
	for _, dep := range script.ImmediateDependencies() {
		if _, verr := l.loadModule(dep); verr != nil {
			return nil, verr
		}
	}
	return script, nil
}

// loadModule fetches id through the resolver, verifies it and loads its
// dependencies.
func (l *loader) loadModule(id types.ModuleId) (*fileformat.CompiledModule, *types.VMError) {
	if m, ok := l.modules[id]; ok {
		return m, nil
	}
	loc := types.Location{Module: &id}
	if l.loading[id] {
		return nil, types.NewVMError(types.StatusCyclicModuleDependency).AtLocation(loc)
	}
	l.loading[id] = true
	defer delete(l.loading, id)

	blob, ok, err := l.resolver.GetModule(id)
	if err != nil {
		return nil, types.NewVMError(types.StatusStorageError).WithMessage("%v", err).AtLocation(loc)
	}
	if !ok {
		log.Debug(log.VMMonitoring, "module not found", "id", id)
		return nil, types.NewVMError(types.StatusLinkerError).WithMessage("cannot find %s", id).AtLocation(loc)
	}
	m, err := fileformat.DeserializeModule(blob)
	if err != nil {
		return nil, binaryToVMError(err).AtLocation(loc)
	}
	if m.SelfID() != id {
		return nil, types.NewVMError(types.StatusLinkerError).WithMessage("module %s stored under %s", m.SelfID(), id).AtLocation(loc)
	}
	for i := range m.FunctionDefs {
		fd := &m.FunctionDefs[i]
		name := m.Identifiers[m.FunctionHandles[fd.Function].Name]
		fnLoc := types.Location{Module: &id, Function: string(name)}
		if fd.IsNative() {
			if _, ok := l.vm.native(id, name); !ok {
				return nil, types.NewVMError(types.StatusMissingDependency).WithMessage("native %s::%s is not registered", id, name).AtLocation(fnLoc)
			}
			continue
		}
		if verr := verifyCodeUnit(fd.Code); verr != nil {
			return nil, verr.AtLocation(fnLoc)
		}
	}
	for _, dep := range m.ImmediateDependencies() {
		if _, verr := l.loadModule(dep); verr != nil {
			return nil, verr
		}
	}
	l.modules[id] = m
	log.Trace(log.VMMonitoring, "module loaded", "id", id, "functions", len(m.FunctionDefs))
	return m, nil
}
