package alloc

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/joshuapare/segalloc/internal/buf"
	"github.com/joshuapare/segalloc/internal/logger"
)

// BucketAllocator serves variable-size requests from several allocation
// classes carved out of one owned arena.
//
// Managers are sorted by descending capacity at construction and never
// re-sorted. Arena sub-ranges are assigned in that same order, so ascending
// address order and descending capacity order coincide; both binary searches
// below depend on it.
type BucketAllocator struct {
	arena   []byte
	release func() error

	managers []BucketManager

	// maxAllocatable is the capacity of the largest manager with a free
	// block, or 0 when every manager is full.
	maxAllocatable int

	stats allocatorStats
}

// allocatorStats holds internal allocator counters.
type allocatorStats struct {
	AllocCalls    int // Total Allocate() calls
	AllocFailures int // Allocate() calls that returned ErrExhausted
	Escalations   int // Requests served by a larger class than the best fit
	FreeCalls     int // Deallocate() calls that released a block
	IgnoredFrees  int // Deallocate() calls that were no-ops
	MaxRefreshes  int // Times the max-allocatable cache was recomputed
}

// New builds an allocator for cfg.Classes. The arena is obtained once and its
// size never changes.
func New(cfg Config) (*BucketAllocator, error) {
	classes, elemSize, err := sortedClasses(cfg)
	if err != nil {
		return nil, err
	}

	total := 0
	for _, c := range classes {
		n, ok := classBytes(c, elemSize)
		if !ok {
			return nil, fmt.Errorf("%w: class %s arena bytes overflow", ErrConstruction, c)
		}
		if total, ok = buf.AddOverflowSafe(total, n); !ok {
			return nil, fmt.Errorf("%w: arena size overflows", ErrConstruction)
		}
	}

	data, release, err := cfg.provider()(total)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConstruction, err)
	}
	if len(data) != total {
		_ = release()
		return nil, fmt.Errorf("%w: arena provider returned %d bytes, want %d",
			ErrConstruction, len(data), total)
	}

	ba := &BucketAllocator{
		arena:    data,
		release:  release,
		managers: make([]BucketManager, 0, len(classes)),
	}

	// Sub-ranges are handed out in capacity order.
	off := 0
	for _, c := range classes {
		m, err := NewBucketManager(data, Ref(off), c.Count, c.Size, elemSize)
		if err != nil {
			_ = release()
			return nil, err
		}
		ba.managers = append(ba.managers, *m)
		off += m.extent()
	}

	ba.maxAllocatable = ba.managers[0].Capacity()

	logger.Debug("allocator: created",
		"classes", len(ba.managers), "arenaBytes", total, "maxAllocatable", ba.maxAllocatable)
	return ba, nil
}

// sortedClasses validates the schedule and returns a copy sorted by
// descending capacity, keeping schedule order for ties.
func sortedClasses(cfg Config) ([]ClassSpec, int, error) {
	if len(cfg.Classes) == 0 {
		return nil, 0, fmt.Errorf("%w: empty class schedule", ErrConstruction)
	}
	elemSize := cfg.elemSize()
	if elemSize <= 0 {
		return nil, 0, fmt.Errorf("%w: element size must be positive, got %d", ErrConstruction, elemSize)
	}
	for i, c := range cfg.Classes {
		if c.Count <= 0 || c.Size <= 0 {
			return nil, 0, fmt.Errorf("%w: class %d (%s) needs positive count and size",
				ErrConstruction, i, c)
		}
	}

	classes := slices.Clone(cfg.Classes)
	slices.SortStableFunc(classes, func(a, b ClassSpec) int {
		return cmp.Compare(b.Size, a.Size)
	})
	return classes, elemSize, nil
}

// classBytes is the arena share of one class: Count * Size * elemSize.
func classBytes(c ClassSpec, elemSize int) (int, bool) {
	blockBytes, ok := buf.MulOverflowSafe(c.Size, elemSize)
	if !ok {
		return 0, false
	}
	return buf.MulOverflowSafe(c.Count, blockBytes)
}

// MaxSize returns the largest request size that can currently succeed.
func (ba *BucketAllocator) MaxSize() int {
	return ba.maxAllocatable
}

// Allocate serves n elements from the smallest class that fits, escalating to
// larger classes while the chosen one is full. The payload views the arena and
// must not be retained past Close.
func (ba *BucketAllocator) Allocate(n int) (Ref, []byte, error) {
	ba.stats.AllocCalls++

	if n < 0 || n > ba.maxAllocatable {
		ba.stats.AllocFailures++
		return 0, nil, ErrExhausted
	}

	best := ba.searchBucket(n)
	idx := best
	for idx >= 0 && ba.managers[idx].Full() {
		idx--
	}
	if idx < 0 {
		// Every class with enough capacity is full.
		ba.stats.AllocFailures++
		return 0, nil, ErrExhausted
	}

	m := &ba.managers[idx]
	if m.Capacity() > ba.managers[best].Capacity() {
		ba.stats.Escalations++
		if logger.DebugEnabled() {
			logger.Debug("allocator: escalated request",
				"n", n, "bestFit", ba.managers[best].Capacity(), "served", m.Capacity())
		}
	}

	ref, payload, err := m.Allocate(n)
	if err != nil {
		ba.stats.AllocFailures++
		return 0, nil, err
	}

	if m.Full() && m.Capacity() == ba.maxAllocatable {
		ba.refreshMax(idx)
	}
	return ref, payload, nil
}

// Deallocate returns the block at ref to its class. Refs outside the arena
// and refs the owning class rejects are ignored.
func (ba *BucketAllocator) Deallocate(ref Ref, n int) {
	if !buf.Has(ba.arena, int(ref), 1) {
		ba.stats.IgnoredFrees++
		if logger.DebugEnabled() {
			logger.Debug("allocator: ignored deallocation outside arena", "ref", ref, "arenaBytes", len(ba.arena))
		}
		return
	}

	idx := ba.locateBucket(ref)
	if idx < 0 {
		ba.stats.IgnoredFrees++
		return
	}

	m := &ba.managers[idx]
	before := m.Available()
	m.Deallocate(ref, n)
	if m.Available() == before {
		ba.stats.IgnoredFrees++
		return
	}
	ba.stats.FreeCalls++

	if !m.Full() && m.Capacity() > ba.maxAllocatable {
		if logger.DebugEnabled() {
			logger.Debug("allocator: raised max allocatable", "old", ba.maxAllocatable, "new", m.Capacity())
		}
		ba.maxAllocatable = m.Capacity()
	}
}

// searchBucket returns the highest index whose capacity is >= n, i.e. the
// smallest class that fits, or -1 when no class is large enough.
func (ba *BucketAllocator) searchBucket(n int) int {
	found := -1
	lo, hi := 0, len(ba.managers)-1
	for lo <= hi {
		mid := (lo + hi) / 2
		if ba.managers[mid].Capacity() >= n {
			found = mid
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}
	return found
}

// locateBucket returns the index of the manager whose range contains ref,
// or -1.
func (ba *BucketAllocator) locateBucket(ref Ref) int {
	lo, hi := 0, len(ba.managers)-1
	for lo <= hi {
		mid := (lo + hi) / 2
		m := &ba.managers[mid]
		switch {
		case m.Contains(ref):
			return mid
		case ref < m.Start():
			hi = mid - 1
		default:
			lo = mid + 1
		}
	}
	return -1
}

// refreshMax recomputes maxAllocatable after manager idx, which held the
// cached maximum, became full.
func (ba *BucketAllocator) refreshMax(idx int) {
	ba.stats.MaxRefreshes++
	capacity := ba.managers[idx].Capacity()

	// Another class of the same capacity may still have room.
	for i := idx - 1; i >= 0 && ba.managers[i].Capacity() == capacity; i-- {
		if !ba.managers[i].Full() {
			return
		}
	}
	for i := idx + 1; i < len(ba.managers) && ba.managers[i].Capacity() == capacity; i++ {
		if !ba.managers[i].Full() {
			return
		}
	}

	// Every class at or above this capacity is full; the next non-full class
	// in sorted order is the new maximum.
	old := ba.maxAllocatable
	ba.maxAllocatable = 0
	for i := idx + 1; i < len(ba.managers); i++ {
		if !ba.managers[i].Full() {
			ba.maxAllocatable = ba.managers[i].Capacity()
			break
		}
	}
	logger.Debug("allocator: lowered max allocatable", "old", old, "new", ba.maxAllocatable)
}

// Buckets returns a snapshot of every class in sorted order.
func (ba *BucketAllocator) Buckets() []BucketInfo {
	out := make([]BucketInfo, len(ba.managers))
	for i := range ba.managers {
		out[i] = bucketInfo(&ba.managers[i])
	}
	return out
}

// Bytes returns the arena. Callers must not retain it past Close.
func (ba *BucketAllocator) Bytes() []byte {
	return ba.arena
}

// Check verifies the arena tiling, every manager's bitmap and the cached
// maximum.
func (ba *BucketAllocator) Check() error {
	off := Ref(0)
	for i := range ba.managers {
		m := &ba.managers[i]
		if m.Start() != off {
			return fmt.Errorf("allocator: bucket %d starts at %d, want %d", i, m.Start(), off)
		}
		if i > 0 && m.Capacity() > ba.managers[i-1].Capacity() {
			return fmt.Errorf("allocator: bucket %d capacity %d exceeds bucket %d capacity %d",
				i, m.Capacity(), i-1, ba.managers[i-1].Capacity())
		}
		if err := m.Check(); err != nil {
			return fmt.Errorf("allocator: bucket %d: %w", i, err)
		}
		off = m.End()
	}
	if int(off) != len(ba.arena) {
		return fmt.Errorf("allocator: buckets cover %d bytes, arena has %d", off, len(ba.arena))
	}

	want := 0
	for i := range ba.managers {
		if !ba.managers[i].Full() {
			want = ba.managers[i].Capacity()
			break
		}
	}
	if want != ba.maxAllocatable {
		return fmt.Errorf("allocator: cached max allocatable %d, want %d", ba.maxAllocatable, want)
	}
	return nil
}

// Close releases the arena. Afterwards every Allocate fails with ErrExhausted
// and every Deallocate is ignored. Calling Close twice is a no-op.
func (ba *BucketAllocator) Close() error {
	if ba.release == nil {
		return nil
	}
	err := ba.release()
	ba.release = nil
	ba.arena = nil
	ba.managers = nil
	ba.maxAllocatable = 0
	return err
}
