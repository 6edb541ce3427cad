package alloc

import (
	"fmt"
	"math/bits"
	"slices"

	"github.com/joshuapare/segalloc/internal/buf"
	"github.com/joshuapare/segalloc/internal/logger"
)

// BucketManager tracks free/used state for one allocation class: blockCount
// equal blocks starting at start inside a borrowed arena.
//
// The manager never owns its arena. BlockAllocator and BucketAllocator hand
// it a view and release the memory themselves.
type BucketManager struct {
	// arena is the owner's whole region; the manager only touches
	// [start, end).
	arena []byte

	start         Ref
	blockCount    int
	blockByteSize int // block size * element size
	elemSize      int

	// available always equals occupancy.count().
	available int
	occupancy occupancy
}

// NewBucketManager creates a manager for blockCount blocks of blockSize
// elements (elemSize bytes each) starting at start within arena. Every block
// starts out free.
func NewBucketManager(arena []byte, start Ref, blockCount, blockSize, elemSize int) (*BucketManager, error) {
	if blockSize <= 0 {
		return nil, fmt.Errorf("%w: block size must be positive, got %d", ErrConstruction, blockSize)
	}
	if elemSize <= 0 {
		return nil, fmt.Errorf("%w: element size must be positive, got %d", ErrConstruction, elemSize)
	}
	byteSize, ok := buf.MulOverflowSafe(blockSize, elemSize)
	if !ok {
		return nil, fmt.Errorf("%w: block byte size overflows (%d * %d)", ErrConstruction, blockSize, elemSize)
	}
	if _, err := buf.CheckExtent(len(arena), int(start), blockCount, byteSize); err != nil {
		return nil, fmt.Errorf("%w: bucket does not fit arena: %w", ErrConstruction, err)
	}

	return &BucketManager{
		arena:         arena,
		start:         start,
		blockCount:    blockCount,
		blockByteSize: byteSize,
		elemSize:      elemSize,
		available:     blockCount,
		occupancy:     newOccupancy(blockCount),
	}, nil
}

// Full reports whether every block is in use.
func (m *BucketManager) Full() bool {
	return m.available == 0
}

// MaxSize returns the block capacity when at least one block is free, else 0.
func (m *BucketManager) MaxSize() int {
	if m.available == 0 {
		return 0
	}
	return m.Capacity()
}

// Capacity is the number of elements one block holds.
func (m *BucketManager) Capacity() int { return m.blockByteSize / m.elemSize }

// Available is the number of free blocks.
func (m *BucketManager) Available() int { return m.available }

// BlockCount is the total number of blocks.
func (m *BucketManager) BlockCount() int { return m.blockCount }

// BlockByteSize is the size of one block in bytes.
func (m *BucketManager) BlockByteSize() int { return m.blockByteSize }

// Start is the ref of block 0.
func (m *BucketManager) Start() Ref { return m.start }

// End is the ref one past the last block.
func (m *BucketManager) End() Ref { return m.start + Ref(m.extent()) }

func (m *BucketManager) extent() int { return m.blockCount * m.blockByteSize }

// Contains reports whether ref lies within the manager's address range.
func (m *BucketManager) Contains(ref Ref) bool {
	return ref >= m.start && ref < m.End()
}

// IsFree reports whether block index is free. Out-of-range indexes report false.
func (m *BucketManager) IsFree(index int) bool {
	if index < 0 || index >= m.blockCount {
		return false
	}
	return m.occupancy.free(index)
}

// Allocate hands out the lowest-indexed free block. It fails with
// ErrExhausted when every block is used or n exceeds the block capacity.
func (m *BucketManager) Allocate(n int) (Ref, []byte, error) {
	if m.available == 0 || n < 0 || n > m.Capacity() {
		return 0, nil, ErrExhausted
	}

	index := m.occupancy.firstFree()
	if index < 0 || index >= m.blockCount {
		// Only reachable if available and the bitmap disagree.
		return 0, nil, ErrExhausted
	}

	m.occupancy.set(index, false)
	m.available--

	ref := m.blockRef(index)
	if logger.DebugEnabled() {
		logger.Debug("bucket: allocated block",
			"index", index, "ref", ref, "capacity", m.Capacity(), "available", m.available)
		m.dumpTable()
	}
	return ref, m.payload(ref), nil
}

// Deallocate marks the block at ref free. Refs outside the bucket, refs not on
// a block boundary and blocks that are already free are ignored. n is
// accepted for symmetry with Allocate and is not used.
func (m *BucketManager) Deallocate(ref Ref, n int) {
	index, ok := m.blockIndex(ref)
	if !ok {
		if logger.DebugEnabled() {
			logger.Debug("bucket: ignored deallocation of foreign or misaligned ref",
				"ref", ref, "start", m.start, "end", m.End(), "blockBytes", m.blockByteSize)
		}
		return
	}
	if m.occupancy.free(index) {
		if logger.DebugEnabled() {
			logger.Debug("bucket: ignored deallocation of free block", "index", index, "ref", ref)
		}
		return
	}

	m.occupancy.set(index, true)
	m.available++

	if logger.DebugEnabled() {
		logger.Debug("bucket: deallocated block",
			"index", index, "ref", ref, "capacity", m.Capacity(), "available", m.available)
		m.dumpTable()
	}
}

// Clone returns a copy with its own bitmap. The copy views arena, or the
// receiver's arena when arena is nil.
func (m *BucketManager) Clone(arena []byte) *BucketManager {
	c := *m
	if arena != nil {
		c.arena = arena
	}
	c.occupancy = slices.Clone(m.occupancy)
	return &c
}

// Check verifies that the free count matches the bitmap and that no bit past
// the last block is set.
func (m *BucketManager) Check() error {
	if free := m.occupancy.count(); free != m.available {
		return fmt.Errorf("bucket @%d: available=%d but bitmap has %d free blocks",
			m.start, m.available, free)
	}
	if rem := m.blockCount % 8; rem != 0 {
		tail := m.occupancy[len(m.occupancy)-1] & (0xFF >> rem)
		if tail != 0 {
			return fmt.Errorf("bucket @%d: %d stray bits set past block %d",
				m.start, bits.OnesCount8(tail), m.blockCount)
		}
	}
	return nil
}

// blockIndex maps ref to its block index when ref is inside the bucket and
// on a block boundary.
func (m *BucketManager) blockIndex(ref Ref) (int, bool) {
	if !m.Contains(ref) {
		return 0, false
	}
	off := int(ref - m.start)
	if off%m.blockByteSize != 0 {
		return 0, false
	}
	return off / m.blockByteSize, true
}

func (m *BucketManager) blockRef(index int) Ref {
	return m.start + Ref(index*m.blockByteSize)
}

func (m *BucketManager) payload(ref Ref) []byte {
	p, _ := buf.Slice(m.arena, int(ref), m.blockByteSize)
	return p
}

// dumpTable logs the bitmap, one character per block.
func (m *BucketManager) dumpTable() {
	logger.Debug("bucket: table",
		"start", m.start, "blockBytes", m.blockByteSize, "free", m.occupancy.render(m.blockCount))
}
