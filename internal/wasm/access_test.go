package wasm

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadStoreRoundTrip(t *testing.T) {
	m := NewLinearMemory(1, 1)

	require.Nil(t, Store32(m, 0, 0, 0xdeadbeef))
	v, trap := Load32(m, 0, 0)
	require.Nil(t, trap)
	require.Equal(t, uint32(0xdeadbeef), v)

	require.Nil(t, Store64(m, 100, 4, 0x0102030405060708))
	v64, trap := Load64(m, 100, 4)
	require.Nil(t, trap)
	require.Equal(t, uint64(0x0102030405060708), v64)

	// Little-endian on the wire regardless of host endianness.
	raw, trap := ReadBytes(m, 0, 4)
	require.Nil(t, trap)
	require.Equal(t, []byte{0xef, 0xbe, 0xad, 0xde}, raw)
}

func TestEffectiveOffsetBounds(t *testing.T) {
	m := NewLinearMemory(1, 1) // 65536 bytes

	// Exactly at the edge: accepted.
	require.Nil(t, Store32(m, PageSize-4, 0, 1))

	// One byte past the edge: trapped.
	trap := Store32(m, PageSize-3, 0, 1)
	require.NotNil(t, trap)
	require.Equal(t, uint32(PageSize), trap.Memory.MemoryLength)
	require.Equal(t, uint32(4), trap.Memory.Width)

	// Static offset pushes address+offset past uint32 range; must not wrap
	// and silently pass bounds checking.
	_, trap = Load32(m, 0xffffffff, 0x10000)
	require.NotNil(t, trap)
}

func TestGrowSafetyNoTornRead(t *testing.T) {
	m := NewLinearMemory(1, 16)
	require.Nil(t, Store32(m, 0, 0, 42))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			base, length, release := m.Acquire()
			defer release()
			// Either observes pre-grow (65536) or post-grow (10*65536)
			// length, never a half-applied value, and base/length always
			// agree (base long enough for length).
			if uint32(len(base)) != length {
				t.Errorf("torn base/length pair: len(base)=%d length=%d", len(base), length)
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		m.Grow(9)
	}()
	wg.Wait()

	v, trap := Load32(m, 0, 0)
	require.Nil(t, trap)
	require.Equal(t, uint32(42), v)
}

func TestGrowFailureIsNotATrap(t *testing.T) {
	m := NewLinearMemory(1, 1)
	prev, ok := m.Grow(1)
	require.False(t, ok)
	require.Equal(t, uint32(1), prev)
}
