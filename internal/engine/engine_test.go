package engine

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wazerothread/tvm/api"
	"github.com/wazerothread/tvm/internal/wasm"
)

// compileModule is a small harness shared by the scenario tests: it builds
// a one-function module, translates body, wires Compiled in, and returns
// the store plus the module (whose ID and function index 0 CallFunction takes).
func compileModule(t *testing.T, name string, sig api.Signature, localKinds []api.ValueType, body []SourceInstr) (*wasm.Store, *wasm.Module) {
	t.Helper()
	store := wasm.NewStore()
	mod := &wasm.Module{Name: name}
	store.AddModule(mod)

	fn := &wasm.FunctionInstance{ModuleID: mod.ID, Index: 0, Name: "f", Signature: sig, LocalKinds: localKinds}
	mod.Functions = []*wasm.FunctionInstance{fn}

	cf, err := Translate(mod, fn, body, DefaultCompileOption())
	require.NoError(t, err)
	fn.Compiled = cf

	require.NoError(t, store.BuildImportDispatchCache())
	return store, mod
}

func i32Sig() api.Signature {
	return api.NewSignature([]api.ValueType{api.ValueTypeI32, api.ValueTypeI32}, []api.ValueType{api.ValueTypeI32})
}

func packI32Pair(a, b int32) []byte {
	buf := make([]byte, 8)
	putI32(buf[0:4], a)
	putI32(buf[4:8], b)
	return buf
}

func putI32(buf []byte, v int32) {
	buf[0] = byte(uint32(v))
	buf[1] = byte(uint32(v) >> 8)
	buf[2] = byte(uint32(v) >> 16)
	buf[3] = byte(uint32(v) >> 24)
}

func unpackI32(buf []byte) int32 {
	return int32(uint32(buf[0]) | uint32(buf[1])<<8 | uint32(buf[2])<<16 | uint32(buf[3])<<24)
}

// Scenario 1: i32 add with overflow wraparound.
func TestScenarioI32AddOverflowWraps(t *testing.T) {
	body := []SourceInstr{
		Instr(opLocalGetI32, LocalIdx(0)),
		Instr(opLocalGetI32, LocalIdx(1)),
		Instr(opI32Add),
	}
	store, mod := compileModule(t, "m", i32Sig(), nil, body)

	resultBuf, trap := CallFunction(store, mod.ID, 0, packI32Pair(int32(^uint32(0)>>1), 1)) // MaxInt32 + 1
	require.Nil(t, trap)
	require.Equal(t, int32(-2147483648), unpackI32(resultBuf))
}

// Scenario 2: integer divide by zero traps, and the call-stack trace names
// the failing function.
func TestScenarioIntegerDivideByZeroTrap(t *testing.T) {
	body := []SourceInstr{
		Instr(opLocalGetI32, LocalIdx(0)),
		Instr(opLocalGetI32, LocalIdx(1)),
		Instr(opI32DivS),
	}
	store, mod := compileModule(t, "m", i32Sig(), nil, body)
	mod.Functions[0].Name = "divider"

	_, trap := CallFunction(store, mod.ID, 0, packI32Pair(10, 0))
	require.NotNil(t, trap)
	require.Contains(t, trap.Report(), "integer_divide_by_zero")
	require.Contains(t, trap.Report(), "divider")
}

// Scenario 3: memory out-of-bounds traps with the exact operand tuple.
func TestScenarioMemoryOOBTrapTuple(t *testing.T) {
	sig := api.NewSignature([]api.ValueType{api.ValueTypeI32}, nil)
	body := []SourceInstr{
		Instr(opLocalGetI32, LocalIdx(0)),
		Instr(opI32Load, I32Imm(4)), // static offset 4
		Instr(opDrop),
	}
	store, mod := compileModule(t, "m", sig, nil, body)
	mod.Memory = wasm.NewLinearMemory(1, 1)

	addr := wasm.PageSize - 2 // + static offset 4 + width 4 runs past the single page
	paramBuf := make([]byte, 4)
	putI32(paramBuf, int32(addr))

	_, trap := CallFunction(store, mod.ID, 0, paramBuf)
	require.NotNil(t, trap)
	require.NotNil(t, trap.Memory)
	require.Equal(t, uint32(4), trap.Memory.StaticOffset)
	require.Equal(t, uint32(addr), trap.Memory.Address)
	require.Equal(t, uint64(addr)+4, trap.Memory.EffectiveOffset)
	require.Equal(t, uint32(wasm.PageSize), trap.Memory.MemoryLength)
	require.Equal(t, uint32(4), trap.Memory.Width)
}

// Scenario 4: call_indirect traps on a signature mismatch between the
// element's actual type and the call site's declared type.
func TestScenarioCallIndirectSignatureMismatch(t *testing.T) {
	store := wasm.NewStore()
	mod := &wasm.Module{Name: "m"}
	store.AddModule(mod)

	// target: (i32) -> i32, but the call site declares () -> i32.
	targetSig := api.NewSignature([]api.ValueType{api.ValueTypeI32}, []api.ValueType{api.ValueTypeI32})
	target := &wasm.FunctionInstance{ModuleID: mod.ID, Index: 0, Name: "target", Signature: targetSig}

	declared := api.NewSignature(nil, []api.ValueType{api.ValueTypeI32})
	mod.Types = []api.Signature{declared}
	mod.Tables = []*wasm.Table{{Elements: []wasm.FuncrefElement{{Kind: wasm.FuncrefLocal, FuncOrImportIndex: 0}}}}

	caller := &wasm.FunctionInstance{ModuleID: mod.ID, Index: 1, Name: "caller", Signature: declared}
	mod.Functions = []*wasm.FunctionInstance{target, caller}

	body := []SourceInstr{
		Instr(opConstI32, I32Imm(0)), // selector
		Instr(opCallIndirect, I32Imm(0), I32Imm(0)), // tableIndex=0, typeIndex=0
	}
	cf, err := Translate(mod, caller, body, DefaultCompileOption())
	require.NoError(t, err)
	caller.Compiled = cf

	require.NoError(t, store.BuildImportDispatchCache())

	_, trap := CallFunction(store, mod.ID, 1, nil)
	require.NotNil(t, trap)
	require.Contains(t, trap.Report(), "call_indirect_type_mismatch")
}

// TestTranslateFusesLocalConstAdd confirms the fusion pass actually
// collapses the local.get/const/add idiom into the single fused op (and
// that it still executes correctly), rather than only compiling the
// unfused fallback.
func TestTranslateFusesLocalConstAdd(t *testing.T) {
	body := []SourceInstr{
		Instr(opLocalGetI32, LocalIdx(0)),
		Instr(opConstI32, I32Imm(7)),
		Instr(opI32Add),
	}
	sig := api.NewSignature([]api.ValueType{api.ValueTypeI32}, []api.ValueType{api.ValueTypeI32})
	store, mod := compileModule(t, "m", sig, nil, body)

	cf := mod.Functions[0].Compiled.(*CompiledFunction)
	require.Greater(t, len(cf.Ops), 0)
	require.Equal(t, opFusedLocalConstAddI32, opcodeAt(cf.Ops, 0))

	paramBuf := make([]byte, 4)
	putI32(paramBuf, 35)
	resultBuf, trap := CallFunction(store, mod.ID, 0, paramBuf)
	require.Nil(t, trap)
	require.Equal(t, int32(42), unpackI32(resultBuf))
}

func opcodeAt(ops []byte, byteOffset int) opcode {
	return opcode(uint16(ops[byteOffset]) | uint16(ops[byteOffset+1])<<8)
}

// TestLocalsLayoutPacksByNaturalSize exercises the "Local frame packing"
// invariant directly: parameters then declared locals are concatenated in
// index order, each at its own natural size, with no inter-element
// padding, plus one trailing 8-byte scratch slot.
func TestLocalsLayoutPacksByNaturalSize(t *testing.T) {
	sig := api.NewSignature(
		[]api.ValueType{api.ValueTypeI32, api.ValueTypeI64, api.ValueTypeI32},
		[]api.ValueType{api.ValueTypeI64},
	)
	fn := &wasm.FunctionInstance{
		Signature:  sig,
		LocalKinds: []api.ValueType{api.ValueTypeF32, api.ValueTypeF64},
	}

	offsets, frameBytes := localsLayout(fn)
	require.Equal(t, []uint32{0, 4, 12, 16, 20}, offsets)
	require.Equal(t, uint32(28+localsScratchBytes), frameBytes)
}

// TestTranslateLowersLocalIndicesAcrossMixedKinds confirms the lowering
// pass resolves local indices to the byte offsets localsLayout computes,
// end to end: a function with an i64 param and an i32 param reads back
// each param's own value rather than a neighbor's bytes.
func TestTranslateLowersLocalIndicesAcrossMixedKinds(t *testing.T) {
	sig := api.NewSignature(
		[]api.ValueType{api.ValueTypeI64, api.ValueTypeI32},
		[]api.ValueType{api.ValueTypeI32},
	)
	body := []SourceInstr{
		Instr(opLocalGetI32, LocalIdx(1)),
	}
	store, mod := compileModule(t, "m", sig, nil, body)

	paramBuf := make([]byte, 12)
	binary.LittleEndian.PutUint64(paramBuf[0:8], 0xffffffffffffffff)
	putI32(paramBuf[8:12], 99)

	resultBuf, trap := CallFunction(store, mod.ID, 0, paramBuf)
	require.Nil(t, trap)
	require.Equal(t, int32(99), unpackI32(resultBuf))
}
