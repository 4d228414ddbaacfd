package wasi

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wazerothread/tvm/internal/wasm"
)

type fakeClock struct {
	now int64
	err error
}

func (c fakeClock) Now(id uint32) (int64, error) { return c.now, c.err }

func writeSubscriptionAt(t *testing.T, mem *wasm.LinearMemory, addr uint32, raw []byte) {
	t.Helper()
	require.Nil(t, wasm.WriteBytes(mem, addr, raw))
}

func readU32At(t *testing.T, mem *wasm.LinearMemory, addr uint32) uint32 {
	t.Helper()
	buf, trap := wasm.ReadBytes(mem, addr, 4)
	require.Nil(t, trap)
	return binary.LittleEndian.Uint32(buf)
}

// Scenario 5: a single relative-sleep clock subscription sleeps ~10ms,
// writes 0 events, and returns esuccess.
func TestScenarioPollOneoffSingleRelativeSleep(t *testing.T) {
	mem := wasm.NewLinearMemory(1, 1)
	const inAddr, outAddr, neventsAddr = 0, 64, 128

	sub := EncodeClockSubscription(ClockSubscription{
		Userdata: 42,
		ClockID:  ClockMonotonic,
		Timeout:  10_000_000, // 10ms in nanoseconds
		Flags:    0,          // relative
	})
	writeSubscriptionAt(t, mem, inAddr, sub)

	start := time.Now()
	errno := PollOneoff(mem, SystemClock{}, inAddr, outAddr, 1, neventsAddr)
	elapsed := time.Since(start)

	require.Equal(t, ErrnoSuccess, errno)
	require.GreaterOrEqual(t, elapsed, 8*time.Millisecond)
	require.Equal(t, uint32(0), readU32At(t, mem, neventsAddr))
}

// Scenario 6: zero subscriptions writes 0 events and returns einval.
func TestScenarioPollOneoffZeroSubscriptions(t *testing.T) {
	mem := wasm.NewLinearMemory(1, 1)
	const neventsAddr = 128
	writeSubscriptionAt(t, mem, neventsAddr, []byte{0xff, 0xff, 0xff, 0xff}) // poison, must be overwritten

	errno := PollOneoff(mem, SystemClock{}, 0, 64, 0, neventsAddr)

	require.Equal(t, ErrnoInval, errno)
	require.Equal(t, uint32(0), readU32At(t, mem, neventsAddr))
}

func TestPollOneoffAbsoluteClockSleepsUntilTarget(t *testing.T) {
	mem := wasm.NewLinearMemory(1, 1)
	const inAddr, outAddr, neventsAddr = 0, 64, 128

	clock := fakeClock{now: 1_000_000_000}
	sub := EncodeClockSubscription(ClockSubscription{
		ClockID: ClockRealtime,
		Timeout: 1_000_000_000 + 5_000_000, // 5ms after "now"
		Flags:   clockFlagAbsolute,
	})
	writeSubscriptionAt(t, mem, inAddr, sub)

	start := time.Now()
	errno := PollOneoff(mem, clock, inAddr, outAddr, 1, neventsAddr)
	elapsed := time.Since(start)

	require.Equal(t, ErrnoSuccess, errno)
	require.GreaterOrEqual(t, elapsed, 3*time.Millisecond)
}

func TestPollOneoffClockReadFailureIsEIO(t *testing.T) {
	mem := wasm.NewLinearMemory(1, 1)
	const inAddr, outAddr, neventsAddr = 0, 64, 128

	clock := fakeClock{err: errUnknownClock}
	sub := EncodeClockSubscription(ClockSubscription{
		ClockID: ClockRealtime,
		Timeout: 1,
		Flags:   clockFlagAbsolute,
	})
	writeSubscriptionAt(t, mem, inAddr, sub)

	errno := PollOneoff(mem, clock, inAddr, outAddr, 1, neventsAddr)
	require.Equal(t, ErrnoIO, errno)
}

func TestPollOneoffUnknownClockIDIsEinval(t *testing.T) {
	mem := wasm.NewLinearMemory(1, 1)
	const inAddr, outAddr, neventsAddr = 0, 64, 128

	sub := EncodeClockSubscription(ClockSubscription{ClockID: 99, Timeout: 1})
	writeSubscriptionAt(t, mem, inAddr, sub)

	errno := PollOneoff(mem, SystemClock{}, inAddr, outAddr, 1, neventsAddr)
	require.Equal(t, ErrnoInval, errno)
}

func TestPollOneoffOverflowIsEoverflow(t *testing.T) {
	mem := wasm.NewLinearMemory(1, 1)
	errno := PollOneoff(mem, SystemClock{}, 0, 64, 0xffffffff, 128)
	require.Equal(t, ErrnoOverflow, errno)
}

func TestPollOneoffUnknownUnionTagIsEinval(t *testing.T) {
	mem := wasm.NewLinearMemory(1, 1)
	const inAddr, outAddr, neventsAddr = 0, 64, 128

	raw := make([]byte, subscriptionSize)
	raw[8] = 0x7f // not a recognized union tag
	writeSubscriptionAt(t, mem, inAddr, raw)

	errno := PollOneoff(mem, SystemClock{}, inAddr, outAddr, 1, neventsAddr)
	require.Equal(t, ErrnoInval, errno)
}

// Decode(encode(subscription)) yields bitwise identity for every
// well-formed clock subscription (spec.md §8).
func TestClockSubscriptionRoundTrip(t *testing.T) {
	cs := ClockSubscription{Userdata: 0xdeadbeef, ClockID: ClockProcessCputimeID, Timeout: 123456789, Precision: 42, Flags: 1}
	decoded, ok := DecodeClockSubscription(EncodeClockSubscription(cs))
	require.True(t, ok)
	require.Equal(t, cs, decoded)
}
