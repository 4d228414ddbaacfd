// This file implements the memory access primitives (spec.md §4.2) shared
// by every fused load/store op in the op table (C4). All multi-byte
// accesses are little-endian regardless of host endianness, and bounds
// checking is performed on the 33-bit effective offset so a wraparound
// into the top bit is rejected rather than silently accepted.
package wasm

import (
	"encoding/binary"

	"github.com/wazerothread/tvm/internal/diagnostics"
)

// effectiveOffset computes the 33-bit sum described in spec.md §4.2. Using
// a uint64 accumulator means the addition itself never wraps for any
// uint32 inputs; the "33rd bit" is just effective > math.MaxUint32.
func effectiveOffset(addr, staticOffset uint32) uint64 {
	return uint64(addr) + uint64(staticOffset)
}

func boundsCheck(effective uint64, width, length uint32) bool {
	// effective+width is computed in uint64 so this can't wrap either.
	return effective+uint64(width) <= uint64(length)
}

func memoryTrap(staticOffset, addr uint32, effective uint64, length, width uint32) *diagnostics.TrapError {
	return &diagnostics.TrapError{
		Kind: diagnostics.TrapMemoryOutOfBounds,
		Memory: &diagnostics.MemoryTrapDetail{
			StaticOffset:    staticOffset,
			Address:         addr,
			EffectiveOffset: effective,
			MemoryLength:    length,
			Width:           width,
		},
	}
}

// Load8/Load16/Load32/Load64 read an unsigned little-endian scalar of the
// named width at effective offset addr+staticOffset, under the memory's
// operation-lock, trapping on out-of-bounds.

func Load8(m *LinearMemory, addr, staticOffset uint32) (byte, *diagnostics.TrapError) {
	base, length, release := m.Acquire()
	defer release()
	eff := effectiveOffset(addr, staticOffset)
	if !boundsCheck(eff, 1, length) {
		return 0, memoryTrap(staticOffset, addr, eff, length, 1)
	}
	return base[eff], nil
}

func Load16(m *LinearMemory, addr, staticOffset uint32) (uint16, *diagnostics.TrapError) {
	base, length, release := m.Acquire()
	defer release()
	eff := effectiveOffset(addr, staticOffset)
	if !boundsCheck(eff, 2, length) {
		return 0, memoryTrap(staticOffset, addr, eff, length, 2)
	}
	return binary.LittleEndian.Uint16(base[eff:]), nil
}

func Load32(m *LinearMemory, addr, staticOffset uint32) (uint32, *diagnostics.TrapError) {
	base, length, release := m.Acquire()
	defer release()
	eff := effectiveOffset(addr, staticOffset)
	if !boundsCheck(eff, 4, length) {
		return 0, memoryTrap(staticOffset, addr, eff, length, 4)
	}
	return binary.LittleEndian.Uint32(base[eff:]), nil
}

func Load64(m *LinearMemory, addr, staticOffset uint32) (uint64, *diagnostics.TrapError) {
	base, length, release := m.Acquire()
	defer release()
	eff := effectiveOffset(addr, staticOffset)
	if !boundsCheck(eff, 8, length) {
		return 0, memoryTrap(staticOffset, addr, eff, length, 8)
	}
	return binary.LittleEndian.Uint64(base[eff:]), nil
}

// Store8/Store16/Store32/Store64 write a little-endian scalar of the named
// width, under the memory's operation-lock, trapping on out-of-bounds.

func Store8(m *LinearMemory, addr, staticOffset uint32, v byte) *diagnostics.TrapError {
	base, length, release := m.Acquire()
	defer release()
	eff := effectiveOffset(addr, staticOffset)
	if !boundsCheck(eff, 1, length) {
		return memoryTrap(staticOffset, addr, eff, length, 1)
	}
	base[eff] = v
	return nil
}

func Store16(m *LinearMemory, addr, staticOffset uint32, v uint16) *diagnostics.TrapError {
	base, length, release := m.Acquire()
	defer release()
	eff := effectiveOffset(addr, staticOffset)
	if !boundsCheck(eff, 2, length) {
		return memoryTrap(staticOffset, addr, eff, length, 2)
	}
	binary.LittleEndian.PutUint16(base[eff:], v)
	return nil
}

func Store32(m *LinearMemory, addr, staticOffset uint32, v uint32) *diagnostics.TrapError {
	base, length, release := m.Acquire()
	defer release()
	eff := effectiveOffset(addr, staticOffset)
	if !boundsCheck(eff, 4, length) {
		return memoryTrap(staticOffset, addr, eff, length, 4)
	}
	binary.LittleEndian.PutUint32(base[eff:], v)
	return nil
}

func Store64(m *LinearMemory, addr, staticOffset uint32, v uint64) *diagnostics.TrapError {
	base, length, release := m.Acquire()
	defer release()
	eff := effectiveOffset(addr, staticOffset)
	if !boundsCheck(eff, 8, length) {
		return memoryTrap(staticOffset, addr, eff, length, 8)
	}
	binary.LittleEndian.PutUint64(base[eff:], v)
	return nil
}

// ReadBytes reads byteCount raw bytes at addr for bulk operations (used by
// the poll_oneoff subscription decoder),
// trapping on out-of-bounds the same way scalar accesses do.
func ReadBytes(m *LinearMemory, addr, byteCount uint32) ([]byte, *diagnostics.TrapError) {
	base, length, release := m.Acquire()
	defer release()
	eff := effectiveOffset(addr, 0)
	if !boundsCheck(eff, byteCount, length) {
		return nil, memoryTrap(0, addr, eff, length, byteCount)
	}
	buf := make([]byte, byteCount)
	copy(buf, base[eff:eff+uint64(byteCount)])
	return buf, nil
}

// WriteBytes writes v at addr, trapping on out-of-bounds.
func WriteBytes(m *LinearMemory, addr uint32, v []byte) *diagnostics.TrapError {
	base, length, release := m.Acquire()
	defer release()
	eff := effectiveOffset(addr, 0)
	if !boundsCheck(eff, uint32(len(v)), length) {
		return memoryTrap(0, addr, eff, length, uint32(len(v)))
	}
	copy(base[eff:], v)
	return nil
}
