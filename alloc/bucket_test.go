package alloc

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestBucketManager_ExhaustsAfterBlockCount covers a 3x8 manager: three
// allocations succeed, the fourth fails and MaxSize drops to zero.
func TestBucketManager_ExhaustsAfterBlockCount(t *testing.T) {
	m := newTestManager(t, 3, 8)
	require.Equal(t, 8, m.MaxSize())

	for i := range 3 {
		ref, payload, err := m.Allocate(8)
		require.NoError(t, err, "Allocate %d should succeed", i)
		assert.Equal(t, Ref(i*8), ref)
		assert.Len(t, payload, 8)
	}

	_, _, err := m.Allocate(8)
	require.ErrorIs(t, err, ErrExhausted)
	assert.True(t, m.Full())
	assert.Equal(t, 0, m.MaxSize())
}

func TestBucketManager_FirstFitIncreasingOrder(t *testing.T) {
	m := newTestManager(t, 20, 16)

	prev := Ref(-1)
	for i := range 20 {
		ref, _, err := m.Allocate(1)
		require.NoError(t, err)
		assert.Equal(t, Ref(i*16), ref, "block %d", i)
		assert.Greater(t, ref, prev)
		prev = ref
	}
}

func TestBucketManager_ReusesLowestFreedBlock(t *testing.T) {
	m := newTestManager(t, 12, 4)
	refs := make([]Ref, 12)
	for i := range refs {
		ref, _, err := m.Allocate(4)
		require.NoError(t, err)
		refs[i] = ref
	}

	m.Deallocate(refs[10], 4)
	m.Deallocate(refs[3], 4)
	m.Deallocate(refs[9], 4)

	for _, want := range []Ref{refs[3], refs[9], refs[10]} {
		ref, _, err := m.Allocate(4)
		require.NoError(t, err)
		assert.Equal(t, want, ref)
	}
}

func TestBucketManager_RequestLargerThanCapacity(t *testing.T) {
	m := newTestManager(t, 2, 8)

	_, _, err := m.Allocate(9)
	require.ErrorIs(t, err, ErrExhausted)
	_, _, err = m.Allocate(-1)
	require.ErrorIs(t, err, ErrExhausted)
	assert.Equal(t, 2, m.Available(), "failed requests must not consume blocks")

	_, _, err = m.Allocate(0)
	require.NoError(t, err, "zero-size requests take a block")
}

func TestBucketManager_DoubleFreeIgnored(t *testing.T) {
	m := newTestManager(t, 4, 8)
	ref, _, err := m.Allocate(8)
	require.NoError(t, err)

	m.Deallocate(ref, 8)
	require.Equal(t, 4, m.Available())

	m.Deallocate(ref, 8)
	assert.Equal(t, 4, m.Available(), "second free of the same block is a no-op")
	require.NoError(t, m.Check())
}

func TestBucketManager_InvalidDeallocationsIgnored(t *testing.T) {
	arena := make([]byte, 256)
	m, err := NewBucketManager(arena, 64, 4, 16, 1)
	require.NoError(t, err)

	for range 4 {
		_, _, err := m.Allocate(16)
		require.NoError(t, err)
	}

	tests := []struct {
		name string
		ref  Ref
	}{
		{"before start", 48},
		{"negative", -16},
		{"at end", 128},
		{"past end", 200},
		{"misaligned", 65},
		{"mid block", 72},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m.Deallocate(tt.ref, 16)
			assert.Equal(t, 0, m.Available())
			assert.True(t, m.Full())
		})
	}

	m.Deallocate(80, 16)
	assert.Equal(t, 1, m.Available())
	assert.True(t, m.IsFree(1))
}

func TestBucketManager_RoundTrip(t *testing.T) {
	const blocks = 37
	m := newTestManager(t, blocks, 8)

	var refs []Ref
	for !m.Full() {
		ref, _, err := m.Allocate(8)
		require.NoError(t, err)
		refs = append(refs, ref)
	}
	require.Len(t, refs, blocks)

	rng := rand.New(rand.NewSource(7))
	rng.Shuffle(len(refs), func(i, j int) { refs[i], refs[j] = refs[j], refs[i] })
	for _, ref := range refs {
		m.Deallocate(ref, 8)
		require.NoError(t, m.Check())
	}
	require.Equal(t, blocks, m.Available())

	ref, _, err := m.Allocate(8)
	require.NoError(t, err)
	assert.True(t, m.Contains(ref))
	assert.Equal(t, Ref(0), ref)
}

func TestBucketManager_AvailableMatchesBitmap(t *testing.T) {
	m := newTestManager(t, 29, 4)
	rng := rand.New(rand.NewSource(42)) // Fixed seed for reproducibility
	live := map[Ref]struct{}{}

	for step := range 500 {
		if rng.Intn(2) == 0 {
			ref, _, err := m.Allocate(rng.Intn(5))
			if err == nil {
				live[ref] = struct{}{}
			} else {
				require.True(t, m.Full(), "step %d: only a full bucket may fail", step)
			}
		} else {
			// Mix real frees with garbage refs.
			ref := Ref(rng.Intn(29*4 + 8))
			if _, ok := live[ref]; ok {
				delete(live, ref)
			}
			m.Deallocate(ref, 4)
		}
		require.NoError(t, m.Check(), "step %d", step)
		require.Equal(t, 29-len(live), m.Available(), "step %d", step)
	}
}

func TestBucketManager_PayloadIsBlockView(t *testing.T) {
	arena := make([]byte, 64)
	m, err := NewBucketManager(arena, 32, 2, 4, 4) // 2 blocks of 4 uint32s
	require.NoError(t, err)

	assert.Equal(t, 4, m.Capacity())
	assert.Equal(t, 16, m.BlockByteSize())

	ref, payload, err := m.Allocate(4)
	require.NoError(t, err)
	require.Equal(t, Ref(32), ref)
	require.Len(t, payload, 16)
	assert.Equal(t, 16, cap(payload), "payload must not reach the next block")

	payload[0] = 0xAA
	payload[15] = 0xBB
	assert.Equal(t, byte(0xAA), arena[32])
	assert.Equal(t, byte(0xBB), arena[47])

	_, _, err = m.Allocate(5)
	assert.ErrorIs(t, err, ErrExhausted, "capacity is counted in elements")
}

func TestBucketManager_CloneDoesNotAlias(t *testing.T) {
	m := newTestManager(t, 10, 8)
	_, _, err := m.Allocate(8)
	require.NoError(t, err)

	c := m.Clone(nil)
	_, _, err = c.Allocate(8)
	require.NoError(t, err)

	assert.Equal(t, 9, m.Available())
	assert.Equal(t, 8, c.Available())
	assert.True(t, m.IsFree(1))
	assert.False(t, c.IsFree(1))
	require.NoError(t, m.Check())
	require.NoError(t, c.Check())

	other := make([]byte, 80)
	moved := m.Clone(other)
	_, payload, err := moved.Allocate(8)
	require.NoError(t, err)
	payload[0] = 1
	assert.Equal(t, byte(1), other[8])
}

func TestBucketManager_CheckDetectsCorruption(t *testing.T) {
	m := newTestManager(t, 10, 8)
	m.available--
	require.Error(t, m.Check())
	m.available++
	require.NoError(t, m.Check())

	m.occupancy[1] |= 0x01 // block 15 does not exist
	m.available++
	err := m.Check()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stray")
}

func TestBucketManager_EmptyBucket(t *testing.T) {
	m, err := NewBucketManager(nil, 0, 0, 8, 1)
	require.NoError(t, err)
	assert.True(t, m.Full())
	assert.Equal(t, 0, m.MaxSize())
	assert.False(t, m.Contains(0))
	_, _, err = m.Allocate(1)
	assert.ErrorIs(t, err, ErrExhausted)
	require.NoError(t, m.Check())
}

func TestNewBucketManager_Errors(t *testing.T) {
	arena := make([]byte, 64)
	tests := []struct {
		name                       string
		start                      Ref
		count, blockSize, elemSize int
	}{
		{"zero block size", 0, 4, 0, 1},
		{"zero element size", 0, 4, 8, 0},
		{"negative count", 0, -1, 8, 1},
		{"negative start", -8, 1, 8, 1},
		{"past arena", 32, 5, 8, 1},
		{"overflow", 0, 2, int(^uint(0) >> 2), 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewBucketManager(arena, tt.start, tt.count, tt.blockSize, tt.elemSize)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrConstruction), "got %v", err)
		})
	}
}
