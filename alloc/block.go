package alloc

import "fmt"

// BlockAllocator hands out equally sized blocks from an arena it owns. It is
// the single-class counterpart of BucketAllocator.
type BlockAllocator struct {
	arena   []byte
	release func() error
	manager *BucketManager
}

// NewBlockAllocator builds a single-class allocator. cfg.Classes must hold
// exactly one class.
func NewBlockAllocator(cfg Config) (*BlockAllocator, error) {
	if len(cfg.Classes) != 1 {
		return nil, fmt.Errorf("%w: block allocator needs exactly one class, got %d",
			ErrConstruction, len(cfg.Classes))
	}
	classes, elemSize, err := sortedClasses(cfg)
	if err != nil {
		return nil, err
	}
	c := classes[0]

	size, ok := classBytes(c, elemSize)
	if !ok {
		return nil, fmt.Errorf("%w: class %s arena bytes overflow", ErrConstruction, c)
	}

	data, release, err := cfg.provider()(size)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConstruction, err)
	}
	if len(data) != size {
		_ = release()
		return nil, fmt.Errorf("%w: arena provider returned %d bytes, want %d",
			ErrConstruction, len(data), size)
	}

	m, err := NewBucketManager(data, 0, c.Count, c.Size, elemSize)
	if err != nil {
		_ = release()
		return nil, err
	}
	return &BlockAllocator{arena: data, release: release, manager: m}, nil
}

// Allocate returns the lowest free block. The payload must not be retained
// past Close. See BucketManager.Allocate.
func (b *BlockAllocator) Allocate(n int) (Ref, []byte, error) {
	if b.manager == nil {
		return 0, nil, ErrExhausted
	}
	return b.manager.Allocate(n)
}

// Deallocate returns a block. See BucketManager.Deallocate.
func (b *BlockAllocator) Deallocate(ref Ref, n int) {
	if b.manager == nil {
		return
	}
	b.manager.Deallocate(ref, n)
}

// MaxSize returns the block capacity while a block is free, else 0.
func (b *BlockAllocator) MaxSize() int {
	if b.manager == nil {
		return 0
	}
	return b.manager.MaxSize()
}

// Full reports whether every block is in use.
func (b *BlockAllocator) Full() bool {
	return b.manager == nil || b.manager.Full()
}

// Info returns a snapshot of the single class.
func (b *BlockAllocator) Info() BucketInfo {
	if b.manager == nil {
		return BucketInfo{}
	}
	return bucketInfo(b.manager)
}

// Bytes returns the arena. Callers must not retain it past Close.
func (b *BlockAllocator) Bytes() []byte { return b.arena }

// Check verifies the manager's bitmap.
func (b *BlockAllocator) Check() error {
	if b.manager == nil {
		return nil
	}
	return b.manager.Check()
}

// Close releases the arena. Calling Close twice is a no-op.
func (b *BlockAllocator) Close() error {
	if b.release == nil {
		return nil
	}
	err := b.release()
	b.release = nil
	b.arena = nil
	b.manager = nil
	return err
}
