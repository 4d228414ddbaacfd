package engine

// fuseInstrs recognizes the representative fusion patterns of spec.md
// §4.4's catalog over a flat source stream. Matching is longest-match,
// left-to-right: at each position the longest applicable pattern wins: a
// position gets at most one pattern match, tried from widest to narrowest,
// before falling back to emitting the instruction unfused. A sourceLabel
// entry inside a candidate window breaks the match (its kind/op never
// equals what the pattern expects), which is exactly the desired behavior:
// fusing across a branch target would change observable control flow.
func fuseInstrs(in []SourceInstr) []SourceInstr {
	out := make([]SourceInstr, 0, len(in))
	i := 0
	for i < len(in) {
		if in[i].kind == sourceLabel {
			out = append(out, in[i])
			i++
			continue
		}
		if fused, n := tryFuse(in, i); n > 0 {
			out = append(out, fused)
			i += n
			continue
		}
		out = append(out, in[i])
		i++
	}
	return out
}

// tryFuse attempts every pattern at position i, widest first, and returns
// the fused instruction plus how many source instructions it consumed. A
// zero-length return means no pattern matched.
func tryFuse(in []SourceInstr, i int) (SourceInstr, int) {
	if fused, ok := matchBitMixXorShift32(in, i); ok {
		return fused, 18
	}
	if fused, ok := matchCountedLoopStep(in, i); ok {
		return fused, 8
	}
	if fused, ok := matchMacAddI32(in, i); ok {
		return fused, 5
	}
	if fused, ok := matchSelectStore(in, i); ok {
		return fused, 5
	}
	if fused, ok := matchCompareBranch(in, i); ok {
		return fused, 4
	}
	if fused, ok := matchLoadEffectiveAddr(in, i); ok {
		return fused, 4
	}
	if fused, ok := matchLocalConstAdd(in, i); ok {
		return fused, 3
	}
	if fused, ok := matchTwoLocalBinOp(in, i); ok {
		return fused, 3
	}
	if fused, ok := matchLoadThenSetLocal(in, i); ok {
		return fused, 2
	}
	return SourceInstr{}, 0
}

func opAt(in []SourceInstr, i int) (opcode, bool) {
	if i >= len(in) || in[i].kind != sourceOp {
		return 0, false
	}
	return in[i].op, true
}

func localOffAt(instr SourceInstr) uint32 {
	return uint32(instr.imms[0].val)
}

// local.get x; i32.const c; i32.add
func matchLocalConstAdd(in []SourceInstr, i int) (SourceInstr, bool) {
	if i+3 > len(in) {
		return SourceInstr{}, false
	}
	a, ok1 := opAt(in, i)
	b, ok2 := opAt(in, i+1)
	c, ok3 := opAt(in, i+2)
	if !ok1 || !ok2 || !ok3 || a != opLocalGetI32 || b != opConstI32 || c != opI32Add {
		return SourceInstr{}, false
	}
	localOff := localOffAt(in[i])
	constVal := in[i+1].imms[0].val
	return Instr(opFusedLocalConstAddI32, I32Imm(localOff), I32Imm(uint32(constVal))), true
}

// local.get a; local.get b; i32.add/sub/mul/and/or/xor/rotl/rotr
func matchTwoLocalBinOp(in []SourceInstr, i int) (SourceInstr, bool) {
	if i+3 > len(in) {
		return SourceInstr{}, false
	}
	a, ok1 := opAt(in, i)
	b, ok2 := opAt(in, i+1)
	c, ok3 := opAt(in, i+2)
	if !ok1 || !ok2 || !ok3 || a != opLocalGetI32 || b != opLocalGetI32 {
		return SourceInstr{}, false
	}
	var sub subOp
	switch c {
	case opI32Add:
		sub = subAdd
	case opI32Sub:
		sub = subSub
	case opI32Mul:
		sub = subMul
	case opI32And:
		sub = subAnd
	case opI32Or:
		sub = subOr
	case opI32Xor:
		sub = subXor
	case opI32Rotl:
		sub = subRotl
	case opI32Rotr:
		sub = subRotr
	default:
		return SourceInstr{}, false
	}
	return Instr(opFusedTwoLocalBinOpI32, I32Imm(localOffAt(in[i])), I32Imm(localOffAt(in[i+1])), SubOpImm(sub)), true
}

// local.get a; local.get b; i32.mul; local.get c; i32.add
func matchMacAddI32(in []SourceInstr, i int) (SourceInstr, bool) {
	if i+5 > len(in) {
		return SourceInstr{}, false
	}
	ops := make([]opcode, 5)
	for k := 0; k < 5; k++ {
		op, ok := opAt(in, i+k)
		if !ok {
			return SourceInstr{}, false
		}
		ops[k] = op
	}
	if ops[0] != opLocalGetI32 || ops[1] != opLocalGetI32 || ops[2] != opI32Mul ||
		ops[3] != opLocalGetI32 || ops[4] != opI32Add {
		return SourceInstr{}, false
	}
	return Instr(opFusedMacAddI32, I32Imm(localOffAt(in[i])), I32Imm(localOffAt(in[i+1])), I32Imm(localOffAt(in[i+3]))), true
}

// local.get a; local.get b; i32.lt_s; br_if
func matchCompareBranch(in []SourceInstr, i int) (SourceInstr, bool) {
	if i+4 > len(in) {
		return SourceInstr{}, false
	}
	a, ok1 := opAt(in, i)
	b, ok2 := opAt(in, i+1)
	c, ok3 := opAt(in, i+2)
	d, ok4 := opAt(in, i+3)
	if !ok1 || !ok2 || !ok3 || !ok4 || a != opLocalGetI32 || b != opLocalGetI32 || c != opI32LtS || d != opBrIf {
		return SourceInstr{}, false
	}
	label := in[i+3].imms[0].label
	return Instr(opFusedCompareBranch, I32Imm(localOffAt(in[i])), I32Imm(localOffAt(in[i+1])), LabelImm(label)), true
}

// local.get i; i32.const 1; i32.add; local.tee i; local.get i; local.get
// bound; i32.lt_s; br_if — the counted-loop idiom.
func matchCountedLoopStep(in []SourceInstr, i int) (SourceInstr, bool) {
	if i+8 > len(in) {
		return SourceInstr{}, false
	}
	ops := make([]opcode, 8)
	for k := 0; k < 8; k++ {
		op, ok := opAt(in, i+k)
		if !ok {
			return SourceInstr{}, false
		}
		ops[k] = op
	}
	want := []opcode{opLocalGetI32, opConstI32, opI32Add, opLocalTeeI32, opLocalGetI32, opLocalGetI32, opI32LtS, opBrIf}
	for k, w := range want {
		if ops[k] != w {
			return SourceInstr{}, false
		}
	}
	counterOff := localOffAt(in[i])
	if in[i+1].imms[0].val != 1 {
		return SourceInstr{}, false
	}
	if localOffAt(in[i+3]) != counterOff || localOffAt(in[i+4]) != counterOff {
		return SourceInstr{}, false
	}
	boundOff := localOffAt(in[i+5])
	label := in[i+7].imms[0].label
	return Instr(opFusedCountedLoopStep, I32Imm(counterOff), I32Imm(boundOff), LabelImm(label)), true
}

// local.get a; local.get b; local.get cond; select; local.set dst
func matchSelectStore(in []SourceInstr, i int) (SourceInstr, bool) {
	if i+5 > len(in) {
		return SourceInstr{}, false
	}
	ops := make([]opcode, 5)
	for k := 0; k < 5; k++ {
		op, ok := opAt(in, i+k)
		if !ok {
			return SourceInstr{}, false
		}
		ops[k] = op
	}
	if ops[0] != opLocalGetI32 || ops[1] != opLocalGetI32 || ops[2] != opLocalGetI32 ||
		ops[3] != opSelect || ops[4] != opLocalSetI32 {
		return SourceInstr{}, false
	}
	return Instr(opFusedSelectStore,
		I32Imm(localOffAt(in[i])), I32Imm(localOffAt(in[i+1])), I32Imm(localOffAt(in[i+2])), I32Imm(localOffAt(in[i+4]))), true
}

// x ^= x<<a; x ^= x>>b; x ^= x<<c — the xorshift32 bit-mixing idiom,
// expanded as three get/get/const/shift/xor/set groups on the same local.
func matchBitMixXorShift32(in []SourceInstr, i int) (SourceInstr, bool) {
	if i+18 > len(in) {
		return SourceInstr{}, false
	}
	shape := []opcode{opLocalGetI32, opLocalGetI32, opConstI32, 0 /* shift */, opI32Xor, opLocalSetI32}
	shifts := []opcode{opI32Shl, opI32ShrU, opI32Shl}
	var x uint32
	var consts [3]uint32
	for g := 0; g < 3; g++ {
		base := i + g*6
		for k, want := range shape {
			op, ok := opAt(in, base+k)
			if !ok {
				return SourceInstr{}, false
			}
			if k == 3 {
				if op != shifts[g] {
					return SourceInstr{}, false
				}
				continue
			}
			if op != want {
				return SourceInstr{}, false
			}
		}
		xOff := localOffAt(in[base])
		if localOffAt(in[base+1]) != xOff {
			return SourceInstr{}, false
		}
		if g == 0 {
			x = xOff
		} else if xOff != x {
			return SourceInstr{}, false
		}
		if localOffAt(in[base+5]) != x {
			return SourceInstr{}, false
		}
		consts[g] = uint32(in[base+2].imms[0].val)
	}
	return Instr(opFusedBitMixXorShift32, I32Imm(x), I32Imm(consts[0]), I32Imm(consts[1]), I32Imm(consts[2])), true
}

// local.get addr; i32.const staticOff; i32.add; i32.load(offset=0)
func matchLoadEffectiveAddr(in []SourceInstr, i int) (SourceInstr, bool) {
	if i+4 > len(in) {
		return SourceInstr{}, false
	}
	a, ok1 := opAt(in, i)
	b, ok2 := opAt(in, i+1)
	c, ok3 := opAt(in, i+2)
	d, ok4 := opAt(in, i+3)
	if !ok1 || !ok2 || !ok3 || !ok4 || a != opLocalGetI32 || b != opConstI32 || c != opI32Add || d != opI32Load {
		return SourceInstr{}, false
	}
	// Only fuse when the base load's own memarg offset is zero; a nonzero
	// one would double-count against the already-folded static offset.
	if in[i+3].imms[0].val != 0 {
		return SourceInstr{}, false
	}
	addrOff := localOffAt(in[i])
	staticOff := uint32(in[i+1].imms[0].val)
	return Instr(opFusedLoadEffectiveAddrI32, I32Imm(addrOff), I32Imm(staticOff)), true
}

// i32.load(offset); local.set dst
func matchLoadThenSetLocal(in []SourceInstr, i int) (SourceInstr, bool) {
	if i+2 > len(in) {
		return SourceInstr{}, false
	}
	a, ok1 := opAt(in, i)
	b, ok2 := opAt(in, i+1)
	if !ok1 || !ok2 || a != opI32Load || b != opLocalSetI32 {
		return SourceInstr{}, false
	}
	staticOff := uint32(in[i].imms[0].val)
	dstOff := localOffAt(in[i+1])
	return Instr(opFusedLoadThenSetLocalI32, I32Imm(staticOff), I32Imm(dstOff)), true
}
