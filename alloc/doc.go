// Package alloc provides fixed-arena slab allocation with segregated
// allocation classes.
//
// # Overview
//
// An arena is obtained once at construction and never grows. It is divided
// into allocation classes (buckets), each made of equally sized blocks whose
// free/used state lives in a bitmap. Blocks are addressed by Ref, a byte
// offset into the arena, so no raw pointers cross the API.
//
// # Allocators
//
// BucketManager: one class over a borrowed arena view
//
//   - First-fit: always the lowest-indexed free block
//   - Whole bitmap bytes with no free block are skipped eight at a time
//   - Never frees the arena it views
//
// BlockAllocator: a BucketManager plus the arena it owns
//
// BucketAllocator: several classes over one owned arena
//
//   - Classes sorted by descending capacity, arena sub-ranges assigned in
//     that same order
//   - Binary search for the smallest fitting class, escalation to larger
//     classes when it is full
//   - O(1) MaxSize from a cache kept in sync on every call
//
// SafeAllocator: a BucketAllocator behind one mutex
//
// # Usage Example
//
//	ba, err := alloc.New(alloc.Config{
//	    Classes: []alloc.ClassSpec{{Count: 4, Size: 16}, {Count: 2, Size: 64}},
//	})
//	if err != nil {
//	    return err
//	}
//	defer ba.Close()
//
//	ref, block, err := ba.Allocate(24) // served by a 64-byte block
//	if errors.Is(err, alloc.ErrExhausted) {
//	    // every eligible class is full
//	}
//	copy(block, payload)
//
//	ba.Deallocate(ref, 24)
//
// # Size Classes
//
// Schedules are plain []ClassSpec values. Schedule generates one from a
// SizeClassConfig (linear small classes followed by geometric medium classes)
// and ParseSchedule reads the "4x16,2x64" form used by segallocctl.
//
// # Errors
//
// Allocate fails with ErrExhausted; constructors fail with ErrConstruction.
// Deallocate never fails: foreign, misaligned and double-freed refs are
// ignored. Set SEGALLOC_LOG_ALLOC=1 to log those cases, and every bitmap
// change, to stderr.
//
// # Thread Safety
//
// BucketManager, BlockAllocator and BucketAllocator are not thread-safe.
// Use SafeAllocator or synchronize externally.
package alloc
