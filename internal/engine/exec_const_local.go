package engine

import (
	"math"

	"github.com/wazerothread/tvm/internal/diagnostics"
)

func init() {
	registerOp(opUnreachable, execUnreachable)
	registerOp(opEnd, func(s *execState) {}) // dispatch loop stops on opEnd, never actually invoked
	registerOp(opDrop, execDrop)
	registerOp(opSelect, execSelect)

	registerOp(opLocalGetI32, execLocalGetI32)
	registerOp(opLocalGetI64, execLocalGetI64)
	registerOp(opLocalGetF32, execLocalGetF32)
	registerOp(opLocalGetF64, execLocalGetF64)
	registerOp(opLocalSetI32, execLocalSetI32)
	registerOp(opLocalSetI64, execLocalSetI64)
	registerOp(opLocalSetF32, execLocalSetF32)
	registerOp(opLocalSetF64, execLocalSetF64)
	registerOp(opLocalTeeI32, execLocalTeeI32)
	registerOp(opLocalTeeI64, execLocalTeeI64)
	registerOp(opLocalTeeF32, execLocalTeeF32)
	registerOp(opLocalTeeF64, execLocalTeeF64)

	registerOp(opConstI32, execConstI32)
	registerOp(opConstI64, execConstI64)
	registerOp(opConstF32, execConstF32)
	registerOp(opConstF64, execConstF64)
}

func execUnreachable(s *execState) { s.setTrap(diagnostics.TrapUnreachable) }

func execDrop(s *execState) { s.pop() }

func execSelect(s *execState) {
	cond := uint32(s.pop())
	b := s.pop()
	a := s.pop()
	if cond != 0 {
		s.push(a)
	} else {
		s.push(b)
	}
}

func execLocalGetI32(s *execState) { s.push(uint64(s.localI32(s.readLocalOffset()))) }
func execLocalGetI64(s *execState) { s.push(s.localI64(s.readLocalOffset())) }
func execLocalGetF32(s *execState) { s.push(uint64(math.Float32bits(s.localF32(s.readLocalOffset())))) }
func execLocalGetF64(s *execState) { s.push(math.Float64bits(s.localF64(s.readLocalOffset()))) }

func execLocalSetI32(s *execState) { off := s.readLocalOffset(); s.setLocalI32(off, uint32(s.pop())) }
func execLocalSetI64(s *execState) { off := s.readLocalOffset(); s.setLocalI64(off, s.pop()) }
func execLocalSetF32(s *execState) {
	off := s.readLocalOffset()
	s.setLocalF32(off, math.Float32frombits(uint32(s.pop())))
}
func execLocalSetF64(s *execState) {
	off := s.readLocalOffset()
	s.setLocalF64(off, math.Float64frombits(s.pop()))
}

func execLocalTeeI32(s *execState) { off := s.readLocalOffset(); s.setLocalI32(off, uint32(s.top())) }
func execLocalTeeI64(s *execState) { off := s.readLocalOffset(); s.setLocalI64(off, s.top()) }
func execLocalTeeF32(s *execState) {
	off := s.readLocalOffset()
	s.setLocalF32(off, math.Float32frombits(uint32(s.top())))
}
func execLocalTeeF64(s *execState) {
	off := s.readLocalOffset()
	s.setLocalF64(off, math.Float64frombits(s.top()))
}

func execConstI32(s *execState) { s.push(uint64(s.readU32())) }
func execConstI64(s *execState) { s.push(s.readU64()) }
func execConstF32(s *execState) { s.push(uint64(s.readU32())) }
func execConstF64(s *execState) { s.push(s.readU64()) }
