package engine

import (
	"math"

	"github.com/wazerothread/tvm/internal/moremath"
)

func init() {
	registerOp(opF32Add, func(s *execState) { b := s.popF32(); a := s.popF32(); s.pushF32(a + b) })
	registerOp(opF32Sub, func(s *execState) { b := s.popF32(); a := s.popF32(); s.pushF32(a - b) })
	registerOp(opF32Mul, func(s *execState) { b := s.popF32(); a := s.popF32(); s.pushF32(a * b) })
	registerOp(opF32Div, func(s *execState) { b := s.popF32(); a := s.popF32(); s.pushF32(a / b) })
	registerOp(opF32Abs, func(s *execState) { s.pushF32(float32(math.Abs(float64(s.popF32())))) })
	registerOp(opF32Neg, func(s *execState) { s.pushF32(-s.popF32()) })
	registerOp(opF32Ceil, func(s *execState) { s.pushF32(float32(math.Ceil(float64(s.popF32())))) })
	registerOp(opF32Floor, func(s *execState) { s.pushF32(float32(math.Floor(float64(s.popF32())))) })
	registerOp(opF32Trunc, func(s *execState) { s.pushF32(float32(math.Trunc(float64(s.popF32())))) })
	registerOp(opF32Nearest, func(s *execState) { s.pushF32(float32(math.RoundToEven(float64(s.popF32())))) })
	registerOp(opF32Sqrt, func(s *execState) { s.pushF32(float32(math.Sqrt(float64(s.popF32())))) })
	registerOp(opF32Min, func(s *execState) {
		b := s.popF32()
		a := s.popF32()
		s.pushF32(float32(moremath.WasmCompatMin(float64(a), float64(b))))
	})
	registerOp(opF32Max, func(s *execState) {
		b := s.popF32()
		a := s.popF32()
		s.pushF32(float32(moremath.WasmCompatMax(float64(a), float64(b))))
	})
	registerOp(opF32Copysign, func(s *execState) {
		b := s.popF32()
		a := s.popF32()
		s.pushF32(float32(math.Copysign(float64(a), float64(b))))
	})
	registerOp(opF32Eq, func(s *execState) { b := s.popF32(); a := s.popF32(); s.push(b2u64(a == b)) })
	registerOp(opF32Ne, func(s *execState) { b := s.popF32(); a := s.popF32(); s.push(b2u64(a != b)) })
	registerOp(opF32Lt, func(s *execState) { b := s.popF32(); a := s.popF32(); s.push(b2u64(a < b)) })
	registerOp(opF32Gt, func(s *execState) { b := s.popF32(); a := s.popF32(); s.push(b2u64(a > b)) })
	registerOp(opF32Le, func(s *execState) { b := s.popF32(); a := s.popF32(); s.push(b2u64(a <= b)) })
	registerOp(opF32Ge, func(s *execState) { b := s.popF32(); a := s.popF32(); s.push(b2u64(a >= b)) })

	registerOp(opF64Add, func(s *execState) { b := s.popF64(); a := s.popF64(); s.pushF64(a + b) })
	registerOp(opF64Sub, func(s *execState) { b := s.popF64(); a := s.popF64(); s.pushF64(a - b) })
	registerOp(opF64Mul, func(s *execState) { b := s.popF64(); a := s.popF64(); s.pushF64(a * b) })
	registerOp(opF64Div, func(s *execState) { b := s.popF64(); a := s.popF64(); s.pushF64(a / b) })
	registerOp(opF64Abs, func(s *execState) { s.pushF64(math.Abs(s.popF64())) })
	registerOp(opF64Neg, func(s *execState) { s.pushF64(-s.popF64()) })
	registerOp(opF64Ceil, func(s *execState) { s.pushF64(math.Ceil(s.popF64())) })
	registerOp(opF64Floor, func(s *execState) { s.pushF64(math.Floor(s.popF64())) })
	registerOp(opF64Trunc, func(s *execState) { s.pushF64(math.Trunc(s.popF64())) })
	registerOp(opF64Nearest, func(s *execState) { s.pushF64(math.RoundToEven(s.popF64())) })
	registerOp(opF64Sqrt, func(s *execState) { s.pushF64(math.Sqrt(s.popF64())) })
	registerOp(opF64Min, func(s *execState) { b := s.popF64(); a := s.popF64(); s.pushF64(moremath.WasmCompatMin(a, b)) })
	registerOp(opF64Max, func(s *execState) { b := s.popF64(); a := s.popF64(); s.pushF64(moremath.WasmCompatMax(a, b)) })
	registerOp(opF64Copysign, func(s *execState) { b := s.popF64(); a := s.popF64(); s.pushF64(math.Copysign(a, b)) })
	registerOp(opF64Eq, func(s *execState) { b := s.popF64(); a := s.popF64(); s.push(b2u64(a == b)) })
	registerOp(opF64Ne, func(s *execState) { b := s.popF64(); a := s.popF64(); s.push(b2u64(a != b)) })
	registerOp(opF64Lt, func(s *execState) { b := s.popF64(); a := s.popF64(); s.push(b2u64(a < b)) })
	registerOp(opF64Gt, func(s *execState) { b := s.popF64(); a := s.popF64(); s.push(b2u64(a > b)) })
	registerOp(opF64Le, func(s *execState) { b := s.popF64(); a := s.popF64(); s.push(b2u64(a <= b)) })
	registerOp(opF64Ge, func(s *execState) { b := s.popF64(); a := s.popF64(); s.push(b2u64(a >= b)) })
}

func (s *execState) popF32() float32 { return math.Float32frombits(uint32(s.pop())) }
func (s *execState) pushF32(v float32) { s.push(uint64(math.Float32bits(v))) }
func (s *execState) popF64() float64 { return math.Float64frombits(s.pop()) }
func (s *execState) pushF64(v float64) { s.push(math.Float64bits(v)) }
