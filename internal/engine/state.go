// Package engine implements the translator (C5), dispatch engine (C6), and
// call bridge & trap model (C7). They are kept in one package, mirroring
// the teacher's internal/engine/interpreter package, because the op table
// (C4), the translator's fusion/emission logic, and the call bridge's
// direct/indirect-call handling are mutually recursive: an op that calls
// another function must drive the same dispatch loop that is driving it.
package engine

import (
	"encoding/binary"
	"math"

	"github.com/wazerothread/tvm/internal/diagnostics"
	"github.com/wazerothread/tvm/internal/wasm"
)

// execState is the byref-ABI execution context threaded through every op
// (spec.md §4.4): references to the instruction pointer, the operand-stack
// pointer, and the locals base. Go has no guaranteed tail call, so per
// spec.md §4.4's own fallback clause this repository implements the byref
// flavor unconditionally; the surrounding dispatch loop (C6, in dispatch.go)
// re-reads the next op handle after each op returns.
type execState struct {
	ops    []byte
	ip     int
	stack  []uint64
	sp     int
	locals []byte

	moduleID uint32
	mem      *wasm.LinearMemory

	ce *callEngine // owns the call-stack trace and import/table resolution context

	trap *diagnostics.TrapError
}

func (s *execState) push(v uint64) {
	s.stack[s.sp] = v
	s.sp++
}

func (s *execState) pop() uint64 {
	s.sp--
	return s.stack[s.sp]
}

func (s *execState) top() uint64 {
	return s.stack[s.sp-1]
}

func (s *execState) readOpcode() opcode {
	op := opcode(binary.LittleEndian.Uint16(s.ops[s.ip:]))
	s.ip += 2
	return op
}

func (s *execState) readU32() uint32 {
	v := binary.LittleEndian.Uint32(s.ops[s.ip:])
	s.ip += 4
	return v
}

func (s *execState) readU64() uint64 {
	v := binary.LittleEndian.Uint64(s.ops[s.ip:])
	s.ip += 8
	return v
}

// readLocalOffset reads a local_offset immediate: a non-negative byte
// offset into the locals frame.
func (s *execState) readLocalOffset() uint32 { return s.readU32() }

// readLabel reads a label_ip immediate: an absolute byte offset into this
// function's ops buffer, patched by the translator after emission.
func (s *execState) readLabel() uint32 { return s.readU32() }

func (s *execState) localI32(off uint32) uint32 {
	return binary.LittleEndian.Uint32(s.locals[off:])
}

func (s *execState) setLocalI32(off uint32, v uint32) {
	binary.LittleEndian.PutUint32(s.locals[off:], v)
}

func (s *execState) localI64(off uint32) uint64 {
	return binary.LittleEndian.Uint64(s.locals[off:])
}

func (s *execState) setLocalI64(off uint32, v uint64) {
	binary.LittleEndian.PutUint64(s.locals[off:], v)
}

func (s *execState) localF32(off uint32) float32 {
	return math.Float32frombits(s.localI32(off))
}

func (s *execState) setLocalF32(off uint32, v float32) {
	s.setLocalI32(off, math.Float32bits(v))
}

func (s *execState) localF64(off uint32) float64 {
	return math.Float64frombits(s.localI64(off))
}

func (s *execState) setLocalF64(off uint32, v float64) {
	s.setLocalI64(off, math.Float64bits(v))
}

// setTrap records a fatal trap. Ops that trap must not perform any further
// observable effect; the dispatch loop checks this after every op and
// unwinds immediately (spec.md §7: a trap is a single-producer event that
// never returns normally).
func (s *execState) setTrap(kind diagnostics.TrapKind) {
	s.trap = &diagnostics.TrapError{Kind: kind, Frames: s.ce.snapshotFrames()}
}

func (s *execState) setMemoryTrap(t *diagnostics.TrapError) {
	t.Frames = s.ce.snapshotFrames()
	s.trap = t
}
