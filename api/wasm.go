// Package api includes the value and type model (component C1) shared by
// the translator, dispatcher and call bridge.
package api

import "math"

// ValueType describes a numeric type used in WebAssembly 1.0 (MVP). Function
// parameters, results and locals are only definable as a value type.
//
// The encoding matches the WebAssembly binary format's valtype byte, so a
// ValueType read off the wire needs no translation.
//
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#binary-valtype
type ValueType = byte

const (
	// ValueTypeI32 is a 32-bit integer.
	ValueTypeI32 ValueType = 0x7f
	// ValueTypeI64 is a 64-bit integer.
	ValueTypeI64 ValueType = 0x7e
	// ValueTypeF32 is a 32-bit floating point number.
	ValueTypeF32 ValueType = 0x7d
	// ValueTypeF64 is a 64-bit floating point number.
	ValueTypeF64 ValueType = 0x7c
)

// ValueTypeName returns the type name of the given ValueType, matching the
// names used in the WebAssembly text format. Returns "unknown" for an
// undefined ValueType.
func ValueTypeName(t ValueType) string {
	switch t {
	case ValueTypeI32:
		return "i32"
	case ValueTypeI64:
		return "i64"
	case ValueTypeF32:
		return "f32"
	case ValueTypeF64:
		return "f64"
	}
	return "unknown"
}

// ValueTypeSize returns the in-memory/ABI size in bytes of t: 4 for the
// 32-bit kinds, 8 for the 64-bit kinds. Each kind is naturally aligned to
// its own size (spec.md §4.1), so size doubles as alignment.
func ValueTypeSize(t ValueType) uint32 {
	switch t {
	case ValueTypeI32, ValueTypeF32:
		return 4
	case ValueTypeI64, ValueTypeF64:
		return 8
	}
	panic("unknown value type")
}

// EncodeI32 encodes the input as a ValueTypeI32.
func EncodeI32(input int32) uint64 {
	return uint64(uint32(input))
}

// EncodeI64 encodes the input as a ValueTypeI64.
func EncodeI64(input int64) uint64 {
	return uint64(input)
}

// EncodeF32 encodes the input as a ValueTypeF32.
//
// See DecodeF32
func EncodeF32(input float32) uint64 {
	return uint64(math.Float32bits(input))
}

// DecodeF32 decodes the input as a ValueTypeF32.
//
// See EncodeF32
func DecodeF32(input uint64) float32 {
	return math.Float32frombits(uint32(input))
}

// EncodeF64 encodes the input as a ValueTypeF64.
func EncodeF64(input float64) uint64 {
	return math.Float64bits(input)
}

// DecodeF64 decodes the input as a ValueTypeF64.
//
// See EncodeF64
func DecodeF64(input uint64) float64 {
	return math.Float64frombits(input)
}

// Signature is a reference-into-storage view of a function type: an ordered
// sequence of parameter kinds followed by an ordered sequence of result
// kinds. Signature does not own Params or Results; it is valid only as long
// as the backing arrays are.
type Signature struct {
	Params  []ValueType
	Results []ValueType

	// ParamBytes and ResultBytes are the packed ABI sizes (spec.md §4.1),
	// precomputed once so C5/C6/C7 never recompute them per call.
	ParamBytes  uint32
	ResultBytes uint32
}

// NewSignature builds a Signature and precomputes its ABI byte totals.
func NewSignature(params, results []ValueType) Signature {
	return Signature{
		Params:      params,
		Results:     results,
		ParamBytes:  packedSize(params),
		ResultBytes: packedSize(results),
	}
}

func packedSize(kinds []ValueType) uint32 {
	var total uint32
	for _, k := range kinds {
		total += ValueTypeSize(k)
	}
	return total
}

// Equal reports strict elementwise equality over Params then Results, per
// spec.md §4.1. Equal is both reflexive and symmetric.
func (s Signature) Equal(o Signature) bool {
	return valueTypesEqual(s.Params, o.Params) && valueTypesEqual(s.Results, o.Results)
}

func valueTypesEqual(a, b []ValueType) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
