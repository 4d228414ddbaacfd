package engine

import (
	"math"
	"math/bits"

	"github.com/wazerothread/tvm/internal/diagnostics"
)

func init() {
	registerOp(opI32Add, func(s *execState) { b := uint32(s.pop()); a := uint32(s.pop()); s.push(uint64(a + b)) })
	registerOp(opI32Sub, func(s *execState) { b := uint32(s.pop()); a := uint32(s.pop()); s.push(uint64(a - b)) })
	registerOp(opI32Mul, func(s *execState) { b := uint32(s.pop()); a := uint32(s.pop()); s.push(uint64(a * b)) })
	registerOp(opI32DivS, execI32DivS)
	registerOp(opI32DivU, execI32DivU)
	registerOp(opI32RemS, execI32RemS)
	registerOp(opI32RemU, execI32RemU)
	registerOp(opI32And, func(s *execState) { b := uint32(s.pop()); a := uint32(s.pop()); s.push(uint64(a & b)) })
	registerOp(opI32Or, func(s *execState) { b := uint32(s.pop()); a := uint32(s.pop()); s.push(uint64(a | b)) })
	registerOp(opI32Xor, func(s *execState) { b := uint32(s.pop()); a := uint32(s.pop()); s.push(uint64(a ^ b)) })
	registerOp(opI32Shl, func(s *execState) { b := uint32(s.pop()); a := uint32(s.pop()); s.push(uint64(a << (b & 31))) })
	registerOp(opI32ShrS, func(s *execState) { b := uint32(s.pop()); a := int32(uint32(s.pop())); s.push(uint64(uint32(a >> (b & 31)))) })
	registerOp(opI32ShrU, func(s *execState) { b := uint32(s.pop()); a := uint32(s.pop()); s.push(uint64(a >> (b & 31))) })
	registerOp(opI32Rotl, func(s *execState) { b := uint32(s.pop()); a := uint32(s.pop()); s.push(uint64(bits.RotateLeft32(a, int(b)))) })
	registerOp(opI32Rotr, func(s *execState) { b := uint32(s.pop()); a := uint32(s.pop()); s.push(uint64(bits.RotateLeft32(a, -int(b)))) })
	registerOp(opI32Clz, func(s *execState) { s.push(uint64(bits.LeadingZeros32(uint32(s.pop())))) })
	registerOp(opI32Ctz, func(s *execState) { s.push(uint64(bits.TrailingZeros32(uint32(s.pop())))) })
	registerOp(opI32Popcnt, func(s *execState) { s.push(uint64(bits.OnesCount32(uint32(s.pop())))) })
	registerOp(opI32Eqz, func(s *execState) { s.push(b2u64(uint32(s.pop()) == 0)) })
	registerOp(opI32Eq, func(s *execState) { b := uint32(s.pop()); a := uint32(s.pop()); s.push(b2u64(a == b)) })
	registerOp(opI32Ne, func(s *execState) { b := uint32(s.pop()); a := uint32(s.pop()); s.push(b2u64(a != b)) })
	registerOp(opI32LtS, func(s *execState) { b := int32(uint32(s.pop())); a := int32(uint32(s.pop())); s.push(b2u64(a < b)) })
	registerOp(opI32LtU, func(s *execState) { b := uint32(s.pop()); a := uint32(s.pop()); s.push(b2u64(a < b)) })
	registerOp(opI32GtS, func(s *execState) { b := int32(uint32(s.pop())); a := int32(uint32(s.pop())); s.push(b2u64(a > b)) })
	registerOp(opI32GtU, func(s *execState) { b := uint32(s.pop()); a := uint32(s.pop()); s.push(b2u64(a > b)) })
	registerOp(opI32LeS, func(s *execState) { b := int32(uint32(s.pop())); a := int32(uint32(s.pop())); s.push(b2u64(a <= b)) })
	registerOp(opI32LeU, func(s *execState) { b := uint32(s.pop()); a := uint32(s.pop()); s.push(b2u64(a <= b)) })
	registerOp(opI32GeS, func(s *execState) { b := int32(uint32(s.pop())); a := int32(uint32(s.pop())); s.push(b2u64(a >= b)) })
	registerOp(opI32GeU, func(s *execState) { b := uint32(s.pop()); a := uint32(s.pop()); s.push(b2u64(a >= b)) })
}

func b2u64(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

// execI32DivS etc. lower div-by-zero and min_signed/-1 to trap primitives
// per spec.md §4.5: these are never optimized away even for
// apparently-constant operands.
func execI32DivS(s *execState) {
	b := int32(uint32(s.pop()))
	a := int32(uint32(s.pop()))
	if b == 0 {
		s.setTrap(diagnostics.TrapIntegerDivideByZero)
		return
	}
	if a == math.MinInt32 && b == -1 {
		s.setTrap(diagnostics.TrapIntegerOverflow)
		return
	}
	s.push(uint64(uint32(a / b)))
}

func execI32DivU(s *execState) {
	b := uint32(s.pop())
	a := uint32(s.pop())
	if b == 0 {
		s.setTrap(diagnostics.TrapIntegerDivideByZero)
		return
	}
	s.push(uint64(a / b))
}

func execI32RemS(s *execState) {
	b := int32(uint32(s.pop()))
	a := int32(uint32(s.pop()))
	if b == 0 {
		s.setTrap(diagnostics.TrapIntegerDivideByZero)
		return
	}
	if a == math.MinInt32 && b == -1 {
		s.push(0)
		return
	}
	s.push(uint64(uint32(a % b)))
}

func execI32RemU(s *execState) {
	b := uint32(s.pop())
	a := uint32(s.pop())
	if b == 0 {
		s.setTrap(diagnostics.TrapIntegerDivideByZero)
		return
	}
	s.push(uint64(a % b))
}
