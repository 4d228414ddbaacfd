package engine

import (
	"math"
	"math/bits"

	"github.com/wazerothread/tvm/internal/diagnostics"
)

func init() {
	registerOp(opI64Add, func(s *execState) { b := s.pop(); a := s.pop(); s.push(a + b) })
	registerOp(opI64Sub, func(s *execState) { b := s.pop(); a := s.pop(); s.push(a - b) })
	registerOp(opI64Mul, func(s *execState) { b := s.pop(); a := s.pop(); s.push(a * b) })
	registerOp(opI64DivS, execI64DivS)
	registerOp(opI64DivU, execI64DivU)
	registerOp(opI64RemS, execI64RemS)
	registerOp(opI64RemU, execI64RemU)
	registerOp(opI64And, func(s *execState) { b := s.pop(); a := s.pop(); s.push(a & b) })
	registerOp(opI64Or, func(s *execState) { b := s.pop(); a := s.pop(); s.push(a | b) })
	registerOp(opI64Xor, func(s *execState) { b := s.pop(); a := s.pop(); s.push(a ^ b) })
	registerOp(opI64Shl, func(s *execState) { b := s.pop(); a := s.pop(); s.push(a << (b & 63)) })
	registerOp(opI64ShrS, func(s *execState) { b := s.pop(); a := int64(s.pop()); s.push(uint64(a >> (b & 63))) })
	registerOp(opI64ShrU, func(s *execState) { b := s.pop(); a := s.pop(); s.push(a >> (b & 63)) })
	registerOp(opI64Rotl, func(s *execState) { b := s.pop(); a := s.pop(); s.push(bits.RotateLeft64(a, int(b))) })
	registerOp(opI64Rotr, func(s *execState) { b := s.pop(); a := s.pop(); s.push(bits.RotateLeft64(a, -int(b))) })
	registerOp(opI64Clz, func(s *execState) { s.push(uint64(bits.LeadingZeros64(s.pop()))) })
	registerOp(opI64Ctz, func(s *execState) { s.push(uint64(bits.TrailingZeros64(s.pop()))) })
	registerOp(opI64Popcnt, func(s *execState) { s.push(uint64(bits.OnesCount64(s.pop()))) })
	registerOp(opI64Eqz, func(s *execState) { s.push(b2u64(s.pop() == 0)) })
	registerOp(opI64Eq, func(s *execState) { b := s.pop(); a := s.pop(); s.push(b2u64(a == b)) })
	registerOp(opI64Ne, func(s *execState) { b := s.pop(); a := s.pop(); s.push(b2u64(a != b)) })
	registerOp(opI64LtS, func(s *execState) { b := int64(s.pop()); a := int64(s.pop()); s.push(b2u64(a < b)) })
	registerOp(opI64LtU, func(s *execState) { b := s.pop(); a := s.pop(); s.push(b2u64(a < b)) })
	registerOp(opI64GtS, func(s *execState) { b := int64(s.pop()); a := int64(s.pop()); s.push(b2u64(a > b)) })
	registerOp(opI64GtU, func(s *execState) { b := s.pop(); a := s.pop(); s.push(b2u64(a > b)) })
	registerOp(opI64LeS, func(s *execState) { b := int64(s.pop()); a := int64(s.pop()); s.push(b2u64(a <= b)) })
	registerOp(opI64LeU, func(s *execState) { b := s.pop(); a := s.pop(); s.push(b2u64(a <= b)) })
	registerOp(opI64GeS, func(s *execState) { b := int64(s.pop()); a := int64(s.pop()); s.push(b2u64(a >= b)) })
	registerOp(opI64GeU, func(s *execState) { b := s.pop(); a := s.pop(); s.push(b2u64(a >= b)) })
}

func execI64DivS(s *execState) {
	b := int64(s.pop())
	a := int64(s.pop())
	if b == 0 {
		s.setTrap(diagnostics.TrapIntegerDivideByZero)
		return
	}
	if a == math.MinInt64 && b == -1 {
		s.setTrap(diagnostics.TrapIntegerOverflow)
		return
	}
	s.push(uint64(a / b))
}

func execI64DivU(s *execState) {
	b := s.pop()
	a := s.pop()
	if b == 0 {
		s.setTrap(diagnostics.TrapIntegerDivideByZero)
		return
	}
	s.push(a / b)
}

func execI64RemS(s *execState) {
	b := int64(s.pop())
	a := int64(s.pop())
	if b == 0 {
		s.setTrap(diagnostics.TrapIntegerDivideByZero)
		return
	}
	if a == math.MinInt64 && b == -1 {
		s.push(0)
		return
	}
	s.push(uint64(a % b))
}

func execI64RemU(s *execState) {
	b := s.pop()
	a := s.pop()
	if b == 0 {
		s.setTrap(diagnostics.TrapIntegerDivideByZero)
		return
	}
	s.push(a % b)
}
