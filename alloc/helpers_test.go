package alloc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// newTestAllocator builds a heap-backed BucketAllocator that is closed when
// the test ends.
func newTestAllocator(t testing.TB, classes ...ClassSpec) *BucketAllocator {
	t.Helper()
	ba, err := New(Config{Classes: classes, Arena: HeapArena})
	require.NoError(t, err)
	t.Cleanup(func() { _ = ba.Close() })
	return ba
}

// newTestManager builds a standalone manager over a fresh heap arena.
func newTestManager(t testing.TB, blockCount, blockSize int) *BucketManager {
	t.Helper()
	m, err := NewBucketManager(make([]byte, blockCount*blockSize), 0, blockCount, blockSize, 1)
	require.NoError(t, err)
	return m
}

// expectedMax recomputes the max-allocatable value from scratch.
func expectedMax(ba *BucketAllocator) int {
	best := 0
	for _, b := range ba.Buckets() {
		if b.Available > 0 && b.Capacity > best {
			best = b.Capacity
		}
	}
	return best
}

// requireInvariants checks every structural invariant of ba.
func requireInvariants(t testing.TB, ba *BucketAllocator) {
	t.Helper()
	require.NoError(t, ba.Check())
	require.Equal(t, expectedMax(ba), ba.MaxSize(), "cached max allocatable out of sync")
}
