package engine

import (
	"math"

	"github.com/wazerothread/tvm/internal/diagnostics"
)

func init() {
	registerOp(opI32WrapI64, func(s *execState) { s.push(uint64(uint32(s.pop()))) })
	registerOp(opI64ExtendI32S, func(s *execState) { s.push(uint64(int64(int32(uint32(s.pop()))))) })
	registerOp(opI64ExtendI32U, func(s *execState) { s.push(uint64(uint32(s.pop()))) })

	registerOp(opF32ConvertI32S, func(s *execState) { s.pushF32(float32(int32(uint32(s.pop())))) })
	registerOp(opF32ConvertI32U, func(s *execState) { s.pushF32(float32(uint32(s.pop()))) })
	registerOp(opF32ConvertI64S, func(s *execState) { s.pushF32(float32(int64(s.pop()))) })
	registerOp(opF32ConvertI64U, func(s *execState) { s.pushF32(float32(s.pop())) })
	registerOp(opF64ConvertI32S, func(s *execState) { s.pushF64(float64(int32(uint32(s.pop())))) })
	registerOp(opF64ConvertI32U, func(s *execState) { s.pushF64(float64(uint32(s.pop()))) })
	registerOp(opF64ConvertI64S, func(s *execState) { s.pushF64(float64(int64(s.pop()))) })
	registerOp(opF64ConvertI64U, func(s *execState) { s.pushF64(float64(s.pop())) })

	registerOp(opF32DemoteF64, func(s *execState) { s.pushF32(float32(s.popF64())) })
	registerOp(opF64PromoteF32, func(s *execState) { s.pushF64(float64(s.popF32())) })

	registerOp(opI32TruncF32S, execI32TruncF32S)
	registerOp(opI32TruncF32U, execI32TruncF32U)
	registerOp(opI32TruncF64S, execI32TruncF64S)
	registerOp(opI32TruncF64U, execI32TruncF64U)
	registerOp(opI64TruncF32S, execI64TruncF32S)
	registerOp(opI64TruncF32U, execI64TruncF32U)
	registerOp(opI64TruncF64S, execI64TruncF64S)
	registerOp(opI64TruncF64U, execI64TruncF64U)
}

// The truncating float-to-int conversions are one of the three conversion
// paths spec.md §4.5/§7 singles out as a mandatory trap site: NaN and
// out-of-representable-range operands must trap rather than saturate or
// produce an implementation-defined bit pattern.

// Every variant truncates toward zero first and range-checks the truncated
// value, not the raw operand (mirroring interpreter.go's trunc-then-compare
// order): a fractional operand whose truncation lands exactly on a
// representable boundary (e.g. trunc_f64_s(-2147483648.5) == MinInt32, or
// trunc_f32_u(-0.5) == 0) is a valid conversion, not a trap.

func execI32TruncF32S(s *execState) {
	v := math.Trunc(float64(s.popF32()))
	if math.IsNaN(v) || v < math.MinInt32 || v >= math.MaxInt32+1 {
		s.setTrap(truncTrapKind(v))
		return
	}
	s.push(uint64(uint32(int32(v))))
}

func execI32TruncF32U(s *execState) {
	v := math.Trunc(float64(s.popF32()))
	if math.IsNaN(v) || v < 0 || v >= math.MaxUint32+1 {
		s.setTrap(truncTrapKind(v))
		return
	}
	s.push(uint64(uint32(v)))
}

func execI32TruncF64S(s *execState) {
	v := math.Trunc(s.popF64())
	if math.IsNaN(v) || v < math.MinInt32 || v >= math.MaxInt32+1 {
		s.setTrap(truncTrapKind(v))
		return
	}
	s.push(uint64(uint32(int32(v))))
}

func execI32TruncF64U(s *execState) {
	v := math.Trunc(s.popF64())
	if math.IsNaN(v) || v < 0 || v >= math.MaxUint32+1 {
		s.setTrap(truncTrapKind(v))
		return
	}
	s.push(uint64(uint32(v)))
}

func execI64TruncF32S(s *execState) {
	v := math.Trunc(float64(s.popF32()))
	if math.IsNaN(v) || v < math.MinInt64 || v >= math.MaxInt64 {
		s.setTrap(truncTrapKind(v))
		return
	}
	s.push(uint64(int64(v)))
}

func execI64TruncF32U(s *execState) {
	v := math.Trunc(float64(s.popF32()))
	if math.IsNaN(v) || v < 0 || v >= math.MaxUint64 {
		s.setTrap(truncTrapKind(v))
		return
	}
	s.push(uint64(v))
}

func execI64TruncF64S(s *execState) {
	v := math.Trunc(s.popF64())
	if math.IsNaN(v) || v < math.MinInt64 || v >= math.MaxInt64 {
		s.setTrap(truncTrapKind(v))
		return
	}
	s.push(uint64(int64(v)))
}

func execI64TruncF64U(s *execState) {
	v := math.Trunc(s.popF64())
	if math.IsNaN(v) || v < 0 || v >= math.MaxUint64 {
		s.setTrap(truncTrapKind(v))
		return
	}
	s.push(uint64(v))
}

func truncTrapKind(f float64) diagnostics.TrapKind {
	if math.IsNaN(f) {
		return diagnostics.TrapInvalidConversionToInteger
	}
	return diagnostics.TrapIntegerOverflow
}
