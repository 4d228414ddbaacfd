package engine

// opcode is the op handle (spec.md §4.4): a dense, pointer-sized-on-native-
// targets identifier read from the ops stream. On this target it is a
// 2-byte tag into a fixed dispatch table (opExec), since Go has no
// function-pointer tail-call ABI to exploit directly.
type opcode uint16

const (
	opUnreachable opcode = iota
	opEnd                // end-of-function sentinel; dispatch loop stops here

	opDrop
	opSelect

	opLocalGetI32
	opLocalGetI64
	opLocalGetF32
	opLocalGetF64
	opLocalSetI32
	opLocalSetI64
	opLocalSetF32
	opLocalSetF64
	opLocalTeeI32
	opLocalTeeI64
	opLocalTeeF32
	opLocalTeeF64

	opConstI32
	opConstI64
	opConstF32
	opConstF64

	// i32 arithmetic / bitwise / compare
	opI32Add
	opI32Sub
	opI32Mul
	opI32DivS
	opI32DivU
	opI32RemS
	opI32RemU
	opI32And
	opI32Or
	opI32Xor
	opI32Shl
	opI32ShrS
	opI32ShrU
	opI32Rotl
	opI32Rotr
	opI32Clz
	opI32Ctz
	opI32Popcnt
	opI32Eqz
	opI32Eq
	opI32Ne
	opI32LtS
	opI32LtU
	opI32GtS
	opI32GtU
	opI32LeS
	opI32LeU
	opI32GeS
	opI32GeU

	// i64 arithmetic / bitwise / compare
	opI64Add
	opI64Sub
	opI64Mul
	opI64DivS
	opI64DivU
	opI64RemS
	opI64RemU
	opI64And
	opI64Or
	opI64Xor
	opI64Shl
	opI64ShrS
	opI64ShrU
	opI64Rotl
	opI64Rotr
	opI64Clz
	opI64Ctz
	opI64Popcnt
	opI64Eqz
	opI64Eq
	opI64Ne
	opI64LtS
	opI64LtU
	opI64GtS
	opI64GtU
	opI64LeS
	opI64LeU
	opI64GeS
	opI64GeU

	// f32/f64 arithmetic / compare
	opF32Add
	opF32Sub
	opF32Mul
	opF32Div
	opF32Abs
	opF32Neg
	opF32Ceil
	opF32Floor
	opF32Trunc
	opF32Nearest
	opF32Sqrt
	opF32Min
	opF32Max
	opF32Copysign
	opF32Eq
	opF32Ne
	opF32Lt
	opF32Gt
	opF32Le
	opF32Ge

	opF64Add
	opF64Sub
	opF64Mul
	opF64Div
	opF64Abs
	opF64Neg
	opF64Ceil
	opF64Floor
	opF64Trunc
	opF64Nearest
	opF64Sqrt
	opF64Min
	opF64Max
	opF64Copysign
	opF64Eq
	opF64Ne
	opF64Lt
	opF64Gt
	opF64Le
	opF64Ge

	// conversions
	opI32WrapI64
	opI64ExtendI32S
	opI64ExtendI32U
	opF32ConvertI32S
	opF32ConvertI32U
	opF32ConvertI64S
	opF32ConvertI64U
	opF64ConvertI32S
	opF64ConvertI32U
	opF64ConvertI64S
	opF64ConvertI64U
	opF32DemoteF64
	opF64PromoteF32
	opI32TruncF32S
	opI32TruncF32U
	opI32TruncF64S
	opI32TruncF64U
	opI64TruncF32S
	opI64TruncF32U
	opI64TruncF64S
	opI64TruncF64U

	// memory
	opI32Load
	opI64Load
	opF32Load
	opF64Load
	opI32Load8S
	opI32Load8U
	opI32Load16S
	opI32Load16U
	opI64Load8S
	opI64Load8U
	opI64Load16S
	opI64Load16U
	opI64Load32S
	opI64Load32U
	opI32Store
	opI64Store
	opF32Store
	opF64Store
	opI32Store8
	opI32Store16
	opI64Store8
	opI64Store16
	opI64Store32
	opMemorySize
	opMemoryGrow

	// control
	opBr
	opBrIf
	opCall
	opCallIndirect

	// fused ops (spec.md §4.4 catalog; representative, not exhaustive)
	opFusedLocalConstAddI32    // local.get; i32.const; i32.add
	opFusedTwoLocalBinOpI32    // local.get; local.get; <binop>
	opFusedMacAddI32           // a*b + c (i32)
	opFusedCompareBranch       // local.get; local.get; i32.lt_s; br_if
	opFusedCountedLoopStep     // the loop/tee counted-loop idiom (spec.md §4.4 example row)
	opFusedSelectStore         // local.get a; local.get b; local.get cond; select; local.set dst
	opFusedBitMixXorShift32    // x ^= x<<a; x ^= x>>b; x ^= x<<c (32-bit)
	opFusedLoadEffectiveAddrI32 // local.get addr; i32.const off; i32.add; i32.load
	opFusedLoadThenSetLocalI32  // i32.load; local.set

	opCount
)

// subOp parametrizes the small number of fused ops whose shape is fixed but
// whose operation varies (e.g. opFusedTwoLocalBinOpI32 covers the i32 ops
// listed below with one fused opcode). Other i32 binary ops (div, rem,
// shifts, compares) are not fused by it.
type subOp byte

const (
	subAdd subOp = iota
	subSub
	subMul
	subAnd
	subOr
	subXor
	subRotl
	subRotr
)

type execFunc func(*execState)

// opExec is the dispatch table: byref-ABI flavor means every op is a plain
// function that mutates execState in place and returns, and the dispatch
// loop (dispatch.go) re-reads the next opcode — there is no tail call.
var opExec [opCount]execFunc

func registerOp(op opcode, fn execFunc) {
	opExec[op] = fn
}
