package wasm

import "sync"

// PageSize is the fixed Wasm 1.0 linear-memory page size in bytes.
const PageSize = 65536

// LinearMemory owns a growable byte region (spec.md §4.3). It exposes a
// {base, length} pair that is stable for the duration of a held lock; grow
// acquires the same lock exclusively and atomically publishes a new pair,
// so no access ever observes a torn base/length combination.
//
// Go's garbage-collected, bounds-checked slices mean there is no hardware
// guard-page region to reserve (spec.md §4.2's guard-page fast path is a
// target-specific optimization); every access on this target takes the
// generic-checked path. This is recorded as an Open Question resolution in
// DESIGN.md, not a silent scope cut. The translator has no fast-path op
// variant to select; every load/store op goes through access.go's checks.
type LinearMemory struct {
	mu       sync.RWMutex
	data     []byte
	maxPages uint32
}

// NewLinearMemory allocates a LinearMemory with initialPages resident and a
// hard ceiling of maxPages.
func NewLinearMemory(initialPages, maxPages uint32) *LinearMemory {
	return &LinearMemory{
		data:     make([]byte, uint64(initialPages)*PageSize),
		maxPages: maxPages,
	}
}

// Acquire takes the memory operation-lock for the duration of a single
// bounds-checked access and returns the current base/length snapshot, along
// with the unlock function the caller must defer/call exactly once.
//
// Multiple concurrent Acquire callers are allowed (shared lock): this
// models spec.md §5's guarantee that ordinary loads/stores don't serialize
// against each other, only against Grow.
func (m *LinearMemory) Acquire() (base []byte, length uint32, release func()) {
	m.mu.RLock()
	return m.data, uint32(len(m.data)), m.mu.RUnlock
}

// Grow attempts to grow the memory by deltaPages pages. It acquires the
// operation-lock exclusively, so it never races a concurrent Acquire: any
// in-flight access either completed against the pre-grow pair already, or
// is blocked until Grow publishes the new one.
//
// Returns the previous page count, or ok=false if the delta would exceed
// maxPages (an ordinary failure, not a trap, per spec.md §4.3).
func (m *LinearMemory) Grow(deltaPages uint32) (previousPages uint32, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	previousPages = uint32(len(m.data)) / PageSize
	newPages := previousPages + deltaPages
	if deltaPages > 0 && newPages < previousPages { // overflow
		return previousPages, false
	}
	if newPages > m.maxPages {
		return previousPages, false
	}

	grown := make([]byte, uint64(newPages)*PageSize)
	copy(grown, m.data)
	m.data = grown
	return previousPages, true
}

// LengthUnlocked returns the current length without acquiring the lock.
// Valid only when the caller already holds the lock via Acquire, or during
// single-threaded test setup before any guest code runs.
func (m *LinearMemory) LengthUnlocked() uint32 {
	return uint32(len(m.data))
}
