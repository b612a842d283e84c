package vm

import (
	"errors"

	"github.com/colorfulnotion/move0/fileformat"
	"github.com/colorfulnotion/move0/log"
	"github.com/colorfulnotion/move0/types"
)

// Session executes scripts and entry functions against one resolver.
type Session struct {
	vm     *MoveVM
	loader *loader
	steps  StepCounter
}

func newSession(vm *MoveVM, resolver Resolver) *Session {
	return &Session{vm: vm, loader: newLoader(vm, resolver)}
}

// WithStepCounter reports every executed instruction to sc.
func (s *Session) WithStepCounter(sc StepCounter) *Session {
	s.steps = sc
	return s
}

func checkTypeArgs(expected int, tyArgs []types.TypeTag) *types.VMError {
	if len(tyArgs) != expected {
		return types.NewVMError(types.StatusNumberOfTypeArgumentsMismatch).
			WithMessage("expected %d type arguments, got %d", expected, len(tyArgs))
	}
	return nil
}

// ExecuteScript runs a serialized script. It returns nil when the script
// returns and the terminal status otherwise.
func (s *Session) ExecuteScript(script []byte, tyArgs []types.TypeTag, args [][]byte, gas GasMeter) *types.VMError {
	compiled, verr := s.loader.loadScript(script)
	if verr != nil {
		return s.report(verr)
	}
	if verr := checkTypeArgs(len(compiled.TypeParameters), tyArgs); verr != nil {
		return s.report(verr.AtLocation(types.Script))
	}
	params := compiled.Signature(compiled.Parameters)
	layouts, verr := argumentLayouts(params, tyArgs)
	if verr != nil {
		return s.report(verr.AtLocation(types.Script))
	}
	values, verr := deserializeArgs(layouts, args)
	if verr != nil {
		return s.report(verr.AtLocation(types.Script))
	}
	in := newInterpreter(gas, s.steps)
	return s.report(in.run(compiled.Code.Code, values, types.Script))
}

// ExecuteEntryFunction runs function name of module id. The function must
// be an entry function.
func (s *Session) ExecuteEntryFunction(id types.ModuleId, name types.Identifier, tyArgs []types.TypeTag, args [][]byte, gas GasMeter) *types.VMError {
	module, verr := s.loader.loadModule(id)
	if verr != nil {
		return s.report(verr)
	}
	loc := types.Location{Module: &id, Function: string(name)}
	fd, fh, ok := module.FindFunction(name)
	if !ok {
		return s.report(types.NewVMError(types.StatusFunctionResolutionFailure).AtLocation(loc))
	}
	if !fd.IsEntry {
		return s.report(types.NewVMError(types.StatusExecuteEntryFunctionOnNonEntryFunction).AtLocation(loc))
	}
	if verr := checkTypeArgs(len(fh.TypeParameters), tyArgs); verr != nil {
		return s.report(verr.AtLocation(loc))
	}
	layouts, verr := argumentLayouts(module.Signature(fh.Parameters), tyArgs)
	if verr != nil {
		return s.report(verr.AtLocation(loc))
	}
	values, verr := deserializeArgs(layouts, args)
	if verr != nil {
		return s.report(verr.AtLocation(loc))
	}
	if fd.IsNative() {
		return s.report(s.callNative(id, name, tyArgs, values, gas, loc))
	}
	in := newInterpreter(gas, s.steps)
	return s.report(in.run(fd.Code.Code, values, loc))
}

func (s *Session) callNative(id types.ModuleId, name types.Identifier, tyArgs []types.TypeTag, args []types.MoveValue, gas GasMeter, loc types.Location) *types.VMError {
	fn, ok := s.vm.native(id, name)
	if !ok {
		return types.NewVMError(types.StatusMissingDependency).AtLocation(loc)
	}
	if verr := gas.ChargeInstruction(fileformat.OpNop); verr != nil {
		return verr.AtLocation(loc)
	}
	_, err := fn(tyArgs, args)
	if err == nil {
		return nil
	}
	var verr *types.VMError
	if errors.As(err, &verr) {
		return verr.AtLocation(loc)
	}
	return types.NewVMError(types.StatusUnknownInvariantViolation).WithMessage("native: %v", err).AtLocation(loc)
}

func (s *Session) report(verr *types.VMError) *types.VMError {
	if verr == nil {
		log.Debug(log.VMMonitoring, "execution returned")
		return nil
	}
	log.Debug(log.VMMonitoring, "execution terminated", "status", verr.Major.String(), "type", verr.StatusType().String(), "loc", verr.Location.String())
	return verr
}

// LoadedModules lists the modules this session has loaded.
func (s *Session) LoadedModules() []types.ModuleId {
	ids := make([]types.ModuleId, 0, len(s.loader.modules))
	for id := range s.loader.modules {
		ids = append(ids, id)
	}
	return ids
}
