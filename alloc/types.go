package alloc

import (
	"github.com/joshuapare/segalloc/internal/arena"
)

// Ref is a byte offset into the arena that owns the block. Refs are only
// meaningful to the allocator that returned them.
type Ref int

// ClassSpec describes one allocation class: Count blocks, each holding Size
// elements.
type ClassSpec struct {
	Count int
	Size  int
}

// Config describes an allocator instance. It is read once at construction.
type Config struct {
	// Classes is the allocation-class schedule. Order only matters for ties:
	// classes of equal size keep their relative order.
	Classes []ClassSpec

	// ElemSize is the byte size of one element (default 1). Block byte size is
	// Size*ElemSize and every request size is counted in elements.
	ElemSize int

	// Arena supplies the backing memory (default: anonymous mapping where the
	// platform supports it, heap otherwise).
	Arena ArenaProvider
}

// ArenaProvider returns a zeroed region of exactly size bytes and a release
// func that is safe to call more than once.
type ArenaProvider func(size int) ([]byte, func() error, error)

// HeapArena backs allocators with a plain Go heap slice.
var HeapArena ArenaProvider = arena.Heap

// MappedArena backs allocators with an anonymous memory mapping.
var MappedArena ArenaProvider = arena.Map

// Allocator is the contract shared by every allocator in this package.
//
// Implementations:
//   - BucketManager: one class over a borrowed arena view
//   - BlockAllocator: one class over an owned arena
//   - BucketAllocator: several classes over one owned arena
//   - SafeAllocator: mutex-guarded BucketAllocator
type Allocator interface {
	// Allocate returns the ref and payload of a block able to hold n elements,
	// or ErrExhausted. The payload views the owner's arena and must not be
	// retained past Close.
	Allocate(n int) (Ref, []byte, error)

	// Deallocate returns a block. Refs that were never handed out, are
	// misaligned or already free are ignored.
	Deallocate(ref Ref, n int)

	// MaxSize returns the largest request that can currently succeed.
	MaxSize() int
}

var (
	_ Allocator = (*BucketManager)(nil)
	_ Allocator = (*BlockAllocator)(nil)
	_ Allocator = (*BucketAllocator)(nil)
	_ Allocator = (*SafeAllocator)(nil)
)

func (c Config) elemSize() int {
	if c.ElemSize == 0 {
		return 1
	}
	return c.ElemSize
}

func (c Config) provider() ArenaProvider {
	if c.Arena == nil {
		return MappedArena
	}
	return c.Arena
}
