package engine

import (
	"github.com/wazerothread/tvm/api"
	"github.com/wazerothread/tvm/internal/diagnostics"
	"github.com/wazerothread/tvm/internal/wasm"
)

// callTargetImportedFlag is set in opCall's function-index immediate by the
// builder of the source stream (the translator reads it and emits it
// unchanged) to distinguish a call to a local-defined function from a call
// through an imported-function slot, without needing a second opcode.
const callTargetImportedFlag uint32 = 0x8000_0000

func init() {
	registerOp(opBr, execBr)
	registerOp(opBrIf, execBrIf)
	registerOp(opCall, execCall)
	registerOp(opCallIndirect, execCallIndirect)
}

func execBr(s *execState) {
	target := s.readLabel()
	s.ip = int(target)
}

func execBrIf(s *execState) {
	target := s.readLabel()
	cond := uint32(s.pop())
	if cond != 0 {
		s.ip = int(target)
	}
}

func execCall(s *execState) {
	raw := s.readU32()
	imported := raw&callTargetImportedFlag != 0
	idx := raw &^ callTargetImportedFlag

	mod := s.ce.store.Modules[s.moduleID]

	var sig api.Signature
	if imported {
		sig = mod.ResolvedImportAt(idx).Signature
	} else {
		sig = mod.Functions[idx].Signature
	}

	paramBuf := popParamsFromStack(s, sig)

	var resultBuf []byte
	var trap *diagnostics.TrapError
	if imported {
		resultBuf, trap = s.ce.callImported(s.moduleID, idx, paramBuf)
	} else {
		resultBuf, trap = s.ce.callLocal(s.moduleID, idx, paramBuf)
	}
	if trap != nil {
		s.trap = trap
		return
	}
	pushResultsToStack(s, sig, resultBuf)
}

// execCallIndirect implements call_indirect's full trap surface (spec.md
// §4.5/§7): an out-of-bounds selector, a null table element, and a
// signature mismatch between the element's actual type and the call site's
// declared type are three distinct, independently observable trap classes.
func execCallIndirect(s *execState) {
	tableIndex := s.readU32()
	typeIndex := s.readU32()
	selector := uint32(s.pop())

	ce := s.ce
	_, table, err := ce.store.ResolveTable(s.moduleID, tableIndex)
	if err != nil {
		s.setTrap(diagnostics.TrapCallIndirectTableOutOfBounds)
		return
	}
	if selector >= uint32(len(table.Elements)) {
		s.setTrap(diagnostics.TrapCallIndirectTableOutOfBounds)
		return
	}
	elem := table.Elements[selector]
	if elem.Kind == wasm.FuncrefNull {
		s.setTrap(diagnostics.TrapCallIndirectNullElement)
		return
	}

	expected := ce.store.Modules[s.moduleID].Types[typeIndex]

	// The element names the module that owns the referenced function.
	tmod := ce.store.Modules[elem.ModuleID]
	var actual api.Signature
	switch elem.Kind {
	case wasm.FuncrefLocal:
		actual = tmod.Functions[elem.FuncOrImportIndex].Signature
	case wasm.FuncrefImported:
		actual = tmod.ResolvedImportAt(elem.FuncOrImportIndex).Signature
	}
	if !actual.Equal(expected) {
		s.setTrap(diagnostics.TrapCallIndirectTypeMismatch)
		return
	}

	paramBuf := popParamsFromStack(s, expected)

	var resultBuf []byte
	var trap *diagnostics.TrapError
	switch elem.Kind {
	case wasm.FuncrefLocal:
		resultBuf, trap = ce.callLocal(tmod.ID, elem.FuncOrImportIndex, paramBuf)
	case wasm.FuncrefImported:
		resultBuf, trap = ce.callImported(tmod.ID, elem.FuncOrImportIndex, paramBuf)
	}
	if trap != nil {
		s.trap = trap
		return
	}
	pushResultsToStack(s, expected, resultBuf)
}
