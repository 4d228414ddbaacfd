package engine

import "github.com/wazerothread/tvm/internal/wasm"

func init() {
	registerOp(opI32Load, execI32Load)
	registerOp(opI64Load, execI64Load)
	registerOp(opF32Load, execF32Load)
	registerOp(opF64Load, execF64Load)
	registerOp(opI32Load8S, execI32Load8S)
	registerOp(opI32Load8U, execI32Load8U)
	registerOp(opI32Load16S, execI32Load16S)
	registerOp(opI32Load16U, execI32Load16U)
	registerOp(opI64Load8S, execI64Load8S)
	registerOp(opI64Load8U, execI64Load8U)
	registerOp(opI64Load16S, execI64Load16S)
	registerOp(opI64Load16U, execI64Load16U)
	registerOp(opI64Load32S, execI64Load32S)
	registerOp(opI64Load32U, execI64Load32U)

	registerOp(opI32Store, execI32Store)
	registerOp(opI64Store, execI64Store)
	registerOp(opF32Store, execF32Store)
	registerOp(opF64Store, execF64Store)
	registerOp(opI32Store8, execI32Store8)
	registerOp(opI32Store16, execI32Store16)
	registerOp(opI64Store8, execI64Store8)
	registerOp(opI64Store16, execI64Store16)
	registerOp(opI64Store32, execI64Store32)

	registerOp(opMemorySize, execMemorySize)
	registerOp(opMemoryGrow, execMemoryGrow)
}

func execI32Load(s *execState) {
	off := s.readU32()
	addr := uint32(s.pop())
	v, trap := wasm.Load32(s.mem, addr, off)
	if trap != nil {
		s.setMemoryTrap(trap)
		return
	}
	s.push(uint64(v))
}

func execI64Load(s *execState) {
	off := s.readU32()
	addr := uint32(s.pop())
	v, trap := wasm.Load64(s.mem, addr, off)
	if trap != nil {
		s.setMemoryTrap(trap)
		return
	}
	s.push(v)
}

func execF32Load(s *execState) {
	off := s.readU32()
	addr := uint32(s.pop())
	v, trap := wasm.Load32(s.mem, addr, off)
	if trap != nil {
		s.setMemoryTrap(trap)
		return
	}
	s.push(uint64(v))
}

func execF64Load(s *execState) {
	off := s.readU32()
	addr := uint32(s.pop())
	v, trap := wasm.Load64(s.mem, addr, off)
	if trap != nil {
		s.setMemoryTrap(trap)
		return
	}
	s.push(v)
}

func execI32Load8S(s *execState) {
	off := s.readU32()
	addr := uint32(s.pop())
	v, trap := wasm.Load8(s.mem, addr, off)
	if trap != nil {
		s.setMemoryTrap(trap)
		return
	}
	s.push(uint64(uint32(int32(int8(v)))))
}

func execI32Load8U(s *execState) {
	off := s.readU32()
	addr := uint32(s.pop())
	v, trap := wasm.Load8(s.mem, addr, off)
	if trap != nil {
		s.setMemoryTrap(trap)
		return
	}
	s.push(uint64(v))
}

func execI32Load16S(s *execState) {
	off := s.readU32()
	addr := uint32(s.pop())
	v, trap := wasm.Load16(s.mem, addr, off)
	if trap != nil {
		s.setMemoryTrap(trap)
		return
	}
	s.push(uint64(uint32(int32(int16(v)))))
}

func execI32Load16U(s *execState) {
	off := s.readU32()
	addr := uint32(s.pop())
	v, trap := wasm.Load16(s.mem, addr, off)
	if trap != nil {
		s.setMemoryTrap(trap)
		return
	}
	s.push(uint64(v))
}

func execI64Load8S(s *execState) {
	off := s.readU32()
	addr := uint32(s.pop())
	v, trap := wasm.Load8(s.mem, addr, off)
	if trap != nil {
		s.setMemoryTrap(trap)
		return
	}
	s.push(uint64(int64(int8(v))))
}

func execI64Load8U(s *execState) {
	off := s.readU32()
	addr := uint32(s.pop())
	v, trap := wasm.Load8(s.mem, addr, off)
	if trap != nil {
		s.setMemoryTrap(trap)
		return
	}
	s.push(uint64(v))
}

func execI64Load16S(s *execState) {
	off := s.readU32()
	addr := uint32(s.pop())
	v, trap := wasm.Load16(s.mem, addr, off)
	if trap != nil {
		s.setMemoryTrap(trap)
		return
	}
	s.push(uint64(int64(int16(v))))
}

func execI64Load16U(s *execState) {
	off := s.readU32()
	addr := uint32(s.pop())
	v, trap := wasm.Load16(s.mem, addr, off)
	if trap != nil {
		s.setMemoryTrap(trap)
		return
	}
	s.push(uint64(v))
}

func execI64Load32S(s *execState) {
	off := s.readU32()
	addr := uint32(s.pop())
	v, trap := wasm.Load32(s.mem, addr, off)
	if trap != nil {
		s.setMemoryTrap(trap)
		return
	}
	s.push(uint64(int64(int32(v))))
}

func execI64Load32U(s *execState) {
	off := s.readU32()
	addr := uint32(s.pop())
	v, trap := wasm.Load32(s.mem, addr, off)
	if trap != nil {
		s.setMemoryTrap(trap)
		return
	}
	s.push(uint64(v))
}

func execI32Store(s *execState) {
	off := s.readU32()
	v := uint32(s.pop())
	addr := uint32(s.pop())
	if trap := wasm.Store32(s.mem, addr, off, v); trap != nil {
		s.setMemoryTrap(trap)
	}
}

func execI64Store(s *execState) {
	off := s.readU32()
	v := s.pop()
	addr := uint32(s.pop())
	if trap := wasm.Store64(s.mem, addr, off, v); trap != nil {
		s.setMemoryTrap(trap)
	}
}

func execF32Store(s *execState) {
	off := s.readU32()
	v := uint32(s.pop())
	addr := uint32(s.pop())
	if trap := wasm.Store32(s.mem, addr, off, v); trap != nil {
		s.setMemoryTrap(trap)
	}
}

func execF64Store(s *execState) {
	off := s.readU32()
	v := s.pop()
	addr := uint32(s.pop())
	if trap := wasm.Store64(s.mem, addr, off, v); trap != nil {
		s.setMemoryTrap(trap)
	}
}

func execI32Store8(s *execState) {
	off := s.readU32()
	v := byte(uint32(s.pop()))
	addr := uint32(s.pop())
	if trap := wasm.Store8(s.mem, addr, off, v); trap != nil {
		s.setMemoryTrap(trap)
	}
}

func execI32Store16(s *execState) {
	off := s.readU32()
	v := uint16(uint32(s.pop()))
	addr := uint32(s.pop())
	if trap := wasm.Store16(s.mem, addr, off, v); trap != nil {
		s.setMemoryTrap(trap)
	}
}

func execI64Store8(s *execState) {
	off := s.readU32()
	v := byte(s.pop())
	addr := uint32(s.pop())
	if trap := wasm.Store8(s.mem, addr, off, v); trap != nil {
		s.setMemoryTrap(trap)
	}
}

func execI64Store16(s *execState) {
	off := s.readU32()
	v := uint16(s.pop())
	addr := uint32(s.pop())
	if trap := wasm.Store16(s.mem, addr, off, v); trap != nil {
		s.setMemoryTrap(trap)
	}
}

func execI64Store32(s *execState) {
	off := s.readU32()
	v := uint32(s.pop())
	addr := uint32(s.pop())
	if trap := wasm.Store32(s.mem, addr, off, v); trap != nil {
		s.setMemoryTrap(trap)
	}
}

func execMemorySize(s *execState) {
	_, length, release := s.mem.Acquire()
	release()
	s.push(uint64(length / wasm.PageSize))
}

func execMemoryGrow(s *execState) {
	delta := uint32(s.pop())
	prev, ok := s.mem.Grow(delta)
	if !ok {
		s.push(uint64(uint32(0xffffffff)))
		return
	}
	s.push(uint64(prev))
}
