package engine

import "github.com/wazerothread/tvm/internal/wasm"

// This file implements the fused/threaded ops of the representative-not-
// exhaustive catalog (spec.md §4.4): each one collapses a short, common
// sequence of base ops the translator (C5) recognizes at compile time into
// a single dispatch, trading a larger opcode space for fewer redispatches
// per guest instruction.

func init() {
	registerOp(opFusedLocalConstAddI32, execFusedLocalConstAddI32)
	registerOp(opFusedTwoLocalBinOpI32, execFusedTwoLocalBinOpI32)
	registerOp(opFusedMacAddI32, execFusedMacAddI32)
	registerOp(opFusedCompareBranch, execFusedCompareBranch)
	registerOp(opFusedCountedLoopStep, execFusedCountedLoopStep)
	registerOp(opFusedSelectStore, execFusedSelectStore)
	registerOp(opFusedBitMixXorShift32, execFusedBitMixXorShift32)
	registerOp(opFusedLoadEffectiveAddrI32, execFusedLoadEffectiveAddrI32)
	registerOp(opFusedLoadThenSetLocalI32, execFusedLoadThenSetLocalI32)
}

// local.get; i32.const; i32.add, fused.
func execFusedLocalConstAddI32(s *execState) {
	off := s.readLocalOffset()
	c := s.readU32()
	s.push(uint64(s.localI32(off) + c))
}

// local.get a; local.get b; <binop>, fused for i32 add, sub, mul, and, or,
// xor, rotl and rotr.
func execFusedTwoLocalBinOpI32(s *execState) {
	offA := s.readLocalOffset()
	offB := s.readLocalOffset()
	sub := subOp(s.readU32())
	a, b := s.localI32(offA), s.localI32(offB)
	var r uint32
	switch sub {
	case subAdd:
		r = a + b
	case subSub:
		r = a - b
	case subMul:
		r = a * b
	case subAnd:
		r = a & b
	case subOr:
		r = a | b
	case subXor:
		r = a ^ b
	case subRotl:
		r = a<<(b&31) | a>>((32-b)&31)
	case subRotr:
		r = a>>(b&31) | a<<((32-b)&31)
	}
	s.push(uint64(r))
}

// a*b + c (i32), all three operands locals: the widened-then-truncated
// multiply-accumulate idiom.
func execFusedMacAddI32(s *execState) {
	offA := s.readLocalOffset()
	offB := s.readLocalOffset()
	offC := s.readLocalOffset()
	s.push(uint64(s.localI32(offA)*s.localI32(offB) + s.localI32(offC)))
}

// local.get a; local.get b; i32.lt_s; br_if, fused.
func execFusedCompareBranch(s *execState) {
	offA := s.readLocalOffset()
	offB := s.readLocalOffset()
	label := s.readLabel()
	if int32(s.localI32(offA)) < int32(s.localI32(offB)) {
		s.ip = int(label)
	}
}

// The counted-loop idiom: local.get i; i32.const 1; i32.add; local.tee i;
// local.get i; local.get bound; i32.lt_s; br_if, fused into one increment-
// compare-branch step (spec.md §4.4's example row). The value local.tee
// leaves on the stack is pushed, as the unfused sequence leaves it there.
func execFusedCountedLoopStep(s *execState) {
	counterOff := s.readLocalOffset()
	boundOff := s.readLocalOffset()
	label := s.readLabel()
	v := s.localI32(counterOff) + 1
	s.setLocalI32(counterOff, v)
	s.push(uint64(v))
	if int32(v) < int32(s.localI32(boundOff)) {
		s.ip = int(label)
	}
}

// local.get a; local.get b; local.get cond; select; local.set dst, fused.
func execFusedSelectStore(s *execState) {
	offA := s.readLocalOffset()
	offB := s.readLocalOffset()
	offCond := s.readLocalOffset()
	dstOff := s.readLocalOffset()
	var v uint32
	if s.localI32(offCond) != 0 {
		v = s.localI32(offA)
	} else {
		v = s.localI32(offB)
	}
	s.setLocalI32(dstOff, v)
}

// x ^= x<<a; x ^= x>>b; x ^= x<<c, the xorshift32 bit-mixing idiom, fused
// into a single in-place local update.
func execFusedBitMixXorShift32(s *execState) {
	off := s.readLocalOffset()
	shiftA := s.readU32()
	shiftB := s.readU32()
	shiftC := s.readU32()
	x := s.localI32(off)
	x ^= x << (shiftA & 31)
	x ^= x >> (shiftB & 31)
	x ^= x << (shiftC & 31)
	s.setLocalI32(off, x)
}

// local.get addr; i32.const staticOffset; i32.add; i32.load, fused: the
// effective-address computation is folded into the access instead of
// materializing an intermediate i32 on the stack. The sum wraps at 32 bits
// like i32.add, and the load then uses a zero memarg offset.
func execFusedLoadEffectiveAddrI32(s *execState) {
	addrOff := s.readLocalOffset()
	staticOffset := s.readU32()
	addr := s.localI32(addrOff) + staticOffset
	v, trap := wasm.Load32(s.mem, addr, 0)
	if trap != nil {
		s.setMemoryTrap(trap)
		return
	}
	s.push(uint64(v))
}

// i32.load; local.set dst, fused: skips round-tripping the loaded value
// through the operand stack when it is immediately stored to a local.
func execFusedLoadThenSetLocalI32(s *execState) {
	staticOffset := s.readU32()
	dstOff := s.readLocalOffset()
	addr := uint32(s.pop())
	v, trap := wasm.Load32(s.mem, addr, staticOffset)
	if trap != nil {
		s.setMemoryTrap(trap)
		return
	}
	s.setLocalI32(dstOff, v)
}
