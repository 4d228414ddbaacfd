package engine

import (
	"encoding/binary"

	"github.com/wazerothread/tvm/api"
	"github.com/wazerothread/tvm/internal/diagnostics"
	"github.com/wazerothread/tvm/internal/wasm"
)

// callEngine is the call bridge (C7): it owns the reconstructable call-stack
// trace (spec.md §3, §7) and drives direct/indirect calls, whatever their
// LinkState target. One callEngine is created per top-level entry into the
// module graph and threaded through every nested call via execState.ce.
type callEngine struct {
	store  *wasm.Store
	frames []diagnostics.Frame
}

func newCallEngine(store *wasm.Store) *callEngine {
	return &callEngine{store: store}
}

func (ce *callEngine) pushFrame(moduleID, funcIndex uint32, name string) {
	ce.frames = append(ce.frames, diagnostics.Frame{
		ModuleName:    ce.store.Modules[moduleID].Name,
		FunctionName:  name,
		FunctionIndex: funcIndex,
	})
}

func (ce *callEngine) popFrame() {
	ce.frames = ce.frames[:len(ce.frames)-1]
}

// snapshotFrames copies the active call stack into most-recent-first order
// (spec.md §7), so a trap can retain it after the producing frame unwinds.
func (ce *callEngine) snapshotFrames() []diagnostics.Frame {
	out := make([]diagnostics.Frame, len(ce.frames))
	for i, f := range ce.frames {
		out[len(ce.frames)-1-i] = f
	}
	return out
}

func (ce *callEngine) internalTrap(kind diagnostics.TrapKind) *diagnostics.TrapError {
	return &diagnostics.TrapError{Kind: kind, Frames: ce.snapshotFrames()}
}

// CallFunction is the top-level entry point an embedder (or a test) uses to
// invoke a local-defined function by module/function index. paramBuf holds
// the arguments already packed per spec.md §4.1's ABI, and the returned
// buffer holds the results packed the same way.
func CallFunction(store *wasm.Store, moduleID, funcIndex uint32, paramBuf []byte) ([]byte, *diagnostics.TrapError) {
	ce := newCallEngine(store)
	resultBuf, trap := ce.callLocal(moduleID, funcIndex, paramBuf)
	if trap != nil {
		// Logged once here, at the top-level entry point, rather than at
		// every nested run() frame the trap unwinds through.
		trap.Log()
	}
	return resultBuf, trap
}

func (ce *callEngine) callLocal(moduleID, funcIndex uint32, paramBuf []byte) ([]byte, *diagnostics.TrapError) {
	mod := ce.store.Modules[moduleID]
	fn := mod.Functions[funcIndex]
	cf, ok := fn.Compiled.(*CompiledFunction)
	if !ok {
		return nil, ce.internalTrap(diagnostics.TrapUnreachable)
	}
	ce.pushFrame(moduleID, funcIndex, fn.Name)
	defer ce.popFrame()
	return run(ce, cf, paramBuf)
}

// callImported dispatches through a resolved import cache entry (spec.md §3):
// the terminal target has already been walked past any alias chain by
// wasm.Store.BuildImportDispatchCache, so this never re-walks one.
func (ce *callEngine) callImported(callerModuleID, importIndex uint32, paramBuf []byte) ([]byte, *diagnostics.TrapError) {
	mod := ce.store.Modules[callerModuleID]
	ri := mod.ResolvedImportAt(importIndex)

	switch ri.State {
	case wasm.LinkDefined:
		targetMod := ce.store.Modules[ri.TargetModuleID]
		fn := targetMod.Functions[ri.TargetFuncIndex]
		cf, ok := fn.Compiled.(*CompiledFunction)
		if !ok {
			return nil, ce.internalTrap(diagnostics.TrapUnreachable)
		}
		ce.pushFrame(ri.TargetModuleID, ri.TargetFuncIndex, fn.Name)
		defer ce.popFrame()
		return run(ce, cf, paramBuf)

	case wasm.LinkLocalImported:
		resultBuf := make([]byte, ri.Signature.ResultBytes)
		ce.pushFrame(ri.DisplayModuleID, ri.DisplayFuncIndex, "")
		defer ce.popFrame()
		if err := ri.LocalImported.CallByIndex(ri.LocalIndex, resultBuf, paramBuf); err != nil {
			return nil, ce.internalTrap(diagnostics.TrapUnreachable)
		}
		return resultBuf, nil

	case wasm.LinkDl, wasm.LinkWeakSymbol:
		resultBuf := make([]byte, ri.Signature.ResultBytes)
		ce.pushFrame(ri.DisplayModuleID, ri.DisplayFuncIndex, "")
		defer ce.popFrame()
		if err := ri.Host.Invoke(resultBuf, paramBuf); err != nil {
			return nil, ce.internalTrap(diagnostics.TrapUnreachable)
		}
		return resultBuf, nil

	default:
		return nil, ce.internalTrap(diagnostics.TrapUnreachable)
	}
}

// popParamsFromStack pops len(sig.Params) operand-stack slots (the most
// recently pushed slot is the last parameter) and packs them into a
// freshly allocated ABI buffer per spec.md §4.1.
func popParamsFromStack(s *execState, sig api.Signature) []byte {
	n := len(sig.Params)
	vals := make([]uint64, n)
	for i := n - 1; i >= 0; i-- {
		vals[i] = s.pop()
	}
	buf := make([]byte, sig.ParamBytes)
	off := uint32(0)
	for i, t := range sig.Params {
		switch t {
		case api.ValueTypeI32, api.ValueTypeF32:
			binary.LittleEndian.PutUint32(buf[off:], uint32(vals[i]))
			off += 4
		case api.ValueTypeI64, api.ValueTypeF64:
			binary.LittleEndian.PutUint64(buf[off:], vals[i])
			off += 8
		}
	}
	return buf
}

// pushResultsToStack unpacks an ABI result buffer back onto the operand
// stack in declared order.
func pushResultsToStack(s *execState, sig api.Signature, buf []byte) {
	off := uint32(0)
	for _, t := range sig.Results {
		switch t {
		case api.ValueTypeI32, api.ValueTypeF32:
			s.push(uint64(binary.LittleEndian.Uint32(buf[off:])))
			off += 4
		case api.ValueTypeI64, api.ValueTypeF64:
			s.push(binary.LittleEndian.Uint64(buf[off:]))
			off += 8
		}
	}
}
