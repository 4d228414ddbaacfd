package engine

import (
	"encoding/binary"
	"fmt"

	"github.com/wazerothread/tvm/api"
	"github.com/wazerothread/tvm/internal/diagnostics"
	"github.com/wazerothread/tvm/internal/wasm"
)

// CompileOption configures the translator (C5). On this target the stack-
// top windows are always disabled: they model the register-resident
// operand-stack top that only the tail-call ABI flavor can give physical
// registers to, and this repository implements byref ABI unconditionally
// (spec.md §4.4's own fallback clause). v128TopWindow stays disabled
// unconditionally since there is no SIMD support (Non-goals).
type CompileOption struct {
	I32TopWindow  bool
	I64TopWindow  bool
	F32TopWindow  bool
	F64TopWindow  bool
	V128TopWindow bool

	// CurrWasmID is a diagnostic label only, threaded into *CompileError
	// messages so a multi-module failure log can tell which module's
	// translation failed.
	CurrWasmID string
}

// DefaultCompileOption returns the byref-only, all-windows-disabled default.
func DefaultCompileOption() CompileOption { return CompileOption{} }

// Translate lowers a validated source instruction stream for fn into a
// CompiledFunction, fusing recognized instruction groups (fusion.go) and
// resolving every branch label to an absolute byte offset in the emitted
// op stream. It never panics on a malformed-but-already-validated body: an
// internal inconsistency (an unresolved label, an arity mismatch) is
// reported as a *diagnostics.CompileError with RuleInternal, per spec.md
// §4.5's documented failure model for this case.
func Translate(mod *wasm.Module, fn *wasm.FunctionInstance, instrs []SourceInstr, opt CompileOption) (*CompiledFunction, error) {
	lowered, frameBytes, err := lowerLocalIndices(fn, instrs, opt.CurrWasmID)
	if err != nil {
		return nil, err
	}
	fused := fuseInstrs(lowered)

	e := &emitter{mod: mod, fn: fn, opt: opt, labelOffsets: map[int]uint32{}}
	maxDepth, err := e.emitAll(fused)
	if err != nil {
		return nil, err
	}
	e.emitOpcode(opEnd)

	for _, p := range e.patches {
		off, ok := e.labelOffsets[p.label]
		if !ok {
			return nil, &diagnostics.CompileError{
				FuncName: fn.Name, Rule: diagnostics.RuleInternal,
				Detail: fmt.Sprintf("label %d referenced but never defined (wasm_id=%s)", p.label, opt.CurrWasmID),
			}
		}
		binary.LittleEndian.PutUint32(e.buf[p.pos:], off)
	}

	return &CompiledFunction{
		ModuleID:    mod.ID,
		FuncIndex:   fn.Index,
		Name:        fn.Name,
		Signature:   fn.Signature,
		LocalsBytes: frameBytes,
		MaxStack:    uint32(maxDepth),
		Ops:         e.buf,
	}, nil
}

// localsLayout assigns each parameter, then each declared local, a byte
// offset into the packed frame (spec.md §4.1/§4.5 step 1): plain
// concatenation in declaration order, each kind at its own natural size (4
// bytes for i32/f32, 8 for i64/f64), with one trailing 8-byte scratch slot
// reserved past the last local. offsets[i] is indexed the same way Wasm
// local indices are: parameters first, then LocalKinds.
func localsLayout(fn *wasm.FunctionInstance) (offsets []uint32, frameBytes uint32) {
	offsets = make([]uint32, 0, len(fn.Signature.Params)+len(fn.LocalKinds))
	off := uint32(0)
	for _, k := range fn.Signature.Params {
		offsets = append(offsets, off)
		off += api.ValueTypeSize(k)
	}
	for _, k := range fn.LocalKinds {
		offsets = append(offsets, off)
		off += api.ValueTypeSize(k)
	}
	return offsets, off + localsScratchBytes
}

// localsScratchBytes is the trailing scratch slot spec.md §4.1 reserves
// past the packed parameter/local frame.
const localsScratchBytes = 8

// lowerLocalIndices resolves every local.get/set/tee's local-index
// immediate (LocalIdx) to its byte offset in the packed locals frame,
// using the layout localsLayout computes from fn's signature and declared
// local kinds. It runs before fuseInstrs so fusion.go and every exec_*
// consumer keep dealing in nothing but final byte offsets, exactly as
// before this pass existed.
func lowerLocalIndices(fn *wasm.FunctionInstance, instrs []SourceInstr, wasmID string) ([]SourceInstr, uint32, error) {
	offsets, frameBytes := localsLayout(fn)

	out := make([]SourceInstr, len(instrs))
	for i, instr := range instrs {
		if !isLocalAccessOp(instr.op) {
			out[i] = instr
			continue
		}
		idx := uint32(instr.imms[0].val)
		if int(idx) >= len(offsets) {
			return nil, 0, &diagnostics.CompileError{
				FuncName: fn.Name, Rule: diagnostics.RuleInternal,
				Detail: fmt.Sprintf("local index %d out of range (wasm_id=%s): internal bug", idx, wasmID),
			}
		}
		imms := append([]imm(nil), instr.imms...)
		imms[0] = I32Imm(offsets[idx])
		out[i] = SourceInstr{kind: instr.kind, op: instr.op, imms: imms, label: instr.label}
	}
	return out, frameBytes, nil
}

func isLocalAccessOp(op opcode) bool {
	switch op {
	case opLocalGetI32, opLocalGetI64, opLocalGetF32, opLocalGetF64,
		opLocalSetI32, opLocalSetI64, opLocalSetF32, opLocalSetF64,
		opLocalTeeI32, opLocalTeeI64, opLocalTeeF32, opLocalTeeF64:
		return true
	}
	return false
}

type pendingPatch struct {
	pos   int
	label int
}

type emitter struct {
	mod *wasm.Module
	fn  *wasm.FunctionInstance
	opt CompileOption

	buf          []byte
	labelOffsets map[int]uint32
	patches      []pendingPatch
}

func (e *emitter) emitOpcode(op opcode) {
	var tmp [2]byte
	binary.LittleEndian.PutUint16(tmp[:], uint16(op))
	e.buf = append(e.buf, tmp[:]...)
}

func (e *emitter) emitU32(v uint32) {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	e.buf = append(e.buf, tmp[:]...)
}

func (e *emitter) emitU64(v uint64) {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	e.buf = append(e.buf, tmp[:]...)
}

// emitLabelRef emits a label immediate: if the label's defining point has
// already been passed (a backward reference, e.g. a loop's back-edge),
// it is resolved immediately; otherwise a placeholder is emitted and the
// position recorded for patching once the whole function is emitted.
func (e *emitter) emitLabelRef(id int) {
	pos := len(e.buf)
	if off, ok := e.labelOffsets[id]; ok {
		e.emitU32(off)
		return
	}
	e.emitU32(0xffffffff)
	e.patches = append(e.patches, pendingPatch{pos: pos, label: id})
}

// emitAll emits every instruction and returns the operand-stack depth
// budget (spec.md §4.6): the translator tracks a symbolic push/pop count
// alongside emission and the budget is the high-water mark, so the
// dispatch loop (C6) can preallocate a stack slice sized exactly once per
// call instead of growing it op by op.
func (e *emitter) emitAll(instrs []SourceInstr) (int, error) {
	depth, maxDepth := 0, 0
	for _, instr := range instrs {
		if instr.kind == sourceLabel {
			e.labelOffsets[instr.label] = uint32(len(e.buf))
			continue
		}

		pop, push, err := e.stackEffect(instr)
		if err != nil {
			return 0, err
		}
		depth -= pop
		if depth < 0 {
			return 0, &diagnostics.CompileError{
				FuncName: e.fn.Name, Rule: diagnostics.RuleInternal,
				Detail: "operand stack underflow during translation: internal bug",
			}
		}
		depth += push
		if depth > maxDepth {
			maxDepth = depth
		}

		e.emitOpcode(instr.op)
		for _, im := range instr.imms {
			switch im.kind {
			case imm32:
				e.emitU32(uint32(im.val))
			case imm64:
				e.emitU64(im.val)
			case immLabel:
				e.emitLabelRef(im.label)
			}
		}
	}
	return maxDepth, nil
}

// stackEffect returns the (pop, push) operand-stack arity of instr. call
// and call_indirect are signature-dependent, so they consult e.mod.
func (e *emitter) stackEffect(instr SourceInstr) (pop, push int, err error) {
	switch instr.op {
	case opUnreachable, opBr:
		return 0, 0, nil
	case opDrop:
		return 1, 0, nil
	case opSelect:
		return 3, 1, nil
	case opLocalGetI32, opLocalGetI64, opLocalGetF32, opLocalGetF64:
		return 0, 1, nil
	case opLocalSetI32, opLocalSetI64, opLocalSetF32, opLocalSetF64:
		return 1, 0, nil
	case opLocalTeeI32, opLocalTeeI64, opLocalTeeF32, opLocalTeeF64:
		return 1, 1, nil
	case opConstI32, opConstI64, opConstF32, opConstF64:
		return 0, 1, nil
	case opI32Clz, opI32Ctz, opI32Popcnt, opI32Eqz,
		opI64Clz, opI64Ctz, opI64Popcnt, opI64Eqz,
		opF32Abs, opF32Neg, opF32Ceil, opF32Floor, opF32Trunc, opF32Nearest, opF32Sqrt,
		opF64Abs, opF64Neg, opF64Ceil, opF64Floor, opF64Trunc, opF64Nearest, opF64Sqrt,
		opI32WrapI64, opI64ExtendI32S, opI64ExtendI32U,
		opF32ConvertI32S, opF32ConvertI32U, opF32ConvertI64S, opF32ConvertI64U,
		opF64ConvertI32S, opF64ConvertI32U, opF64ConvertI64S, opF64ConvertI64U,
		opF32DemoteF64, opF64PromoteF32,
		opI32TruncF32S, opI32TruncF32U, opI32TruncF64S, opI32TruncF64U,
		opI64TruncF32S, opI64TruncF32U, opI64TruncF64S, opI64TruncF64U:
		return 1, 1, nil
	case opI32Add, opI32Sub, opI32Mul, opI32DivS, opI32DivU, opI32RemS, opI32RemU,
		opI32And, opI32Or, opI32Xor, opI32Shl, opI32ShrS, opI32ShrU, opI32Rotl, opI32Rotr,
		opI32Eq, opI32Ne, opI32LtS, opI32LtU, opI32GtS, opI32GtU, opI32LeS, opI32LeU, opI32GeS, opI32GeU,
		opI64Add, opI64Sub, opI64Mul, opI64DivS, opI64DivU, opI64RemS, opI64RemU,
		opI64And, opI64Or, opI64Xor, opI64Shl, opI64ShrS, opI64ShrU, opI64Rotl, opI64Rotr,
		opI64Eq, opI64Ne, opI64LtS, opI64LtU, opI64GtS, opI64GtU, opI64LeS, opI64LeU, opI64GeS, opI64GeU,
		opF32Add, opF32Sub, opF32Mul, opF32Div, opF32Min, opF32Max, opF32Copysign,
		opF32Eq, opF32Ne, opF32Lt, opF32Gt, opF32Le, opF32Ge,
		opF64Add, opF64Sub, opF64Mul, opF64Div, opF64Min, opF64Max, opF64Copysign,
		opF64Eq, opF64Ne, opF64Lt, opF64Gt, opF64Le, opF64Ge:
		return 2, 1, nil
	case opI32Load, opI64Load, opF32Load, opF64Load,
		opI32Load8S, opI32Load8U, opI32Load16S, opI32Load16U,
		opI64Load8S, opI64Load8U, opI64Load16S, opI64Load16U, opI64Load32S, opI64Load32U:
		return 1, 1, nil
	case opI32Store, opI64Store, opF32Store, opF64Store,
		opI32Store8, opI32Store16, opI64Store8, opI64Store16, opI64Store32:
		return 2, 0, nil
	case opMemorySize:
		return 0, 1, nil
	case opMemoryGrow:
		return 1, 1, nil
	case opBrIf:
		return 1, 0, nil
	case opCall:
		return e.callStackEffect(instr)
	case opCallIndirect:
		return e.callIndirectStackEffect(instr)
	case opFusedLocalConstAddI32, opFusedTwoLocalBinOpI32, opFusedMacAddI32, opFusedLoadEffectiveAddrI32,
		opFusedCountedLoopStep:
		return 0, 1, nil
	case opFusedCompareBranch, opFusedSelectStore, opFusedBitMixXorShift32:
		return 0, 0, nil
	case opFusedLoadThenSetLocalI32:
		return 1, 0, nil
	}
	return 0, 0, &diagnostics.CompileError{
		FuncName: e.fn.Name, Rule: diagnostics.RuleInternal,
		Detail: fmt.Sprintf("unhandled opcode %d during stack-effect analysis: internal bug", instr.op),
	}
}

func (e *emitter) callStackEffect(instr SourceInstr) (int, int, error) {
	raw := uint32(instr.imms[0].val)
	imported := raw&callTargetImportedFlag != 0
	idx := raw &^ callTargetImportedFlag
	if imported {
		if int(idx) >= len(e.mod.ImportedFunctions) {
			return 0, 0, &diagnostics.CompileError{FuncName: e.fn.Name, Rule: diagnostics.RuleInternal, Detail: "call targets unknown import index"}
		}
		sig := e.mod.ImportedFunctions[idx].Signature
		return len(sig.Params), len(sig.Results), nil
	}
	if int(idx) >= len(e.mod.Functions) {
		return 0, 0, &diagnostics.CompileError{FuncName: e.fn.Name, Rule: diagnostics.RuleInternal, Detail: "call targets unknown function index"}
	}
	sig := e.mod.Functions[idx].Signature
	return len(sig.Params), len(sig.Results), nil
}

func (e *emitter) callIndirectStackEffect(instr SourceInstr) (int, int, error) {
	typeIndex := uint32(instr.imms[1].val)
	if int(typeIndex) >= len(e.mod.Types) {
		return 0, 0, &diagnostics.CompileError{FuncName: e.fn.Name, Rule: diagnostics.RuleInternal, Detail: "call_indirect targets unknown type index"}
	}
	sig := e.mod.Types[typeIndex]
	return len(sig.Params) + 1, len(sig.Results), nil
}
