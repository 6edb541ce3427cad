package alloc

import "sync"

// SafeAllocator guards a BucketAllocator with a single mutex so it can be
// shared between goroutines. Allocation, deallocation and the max-size cache
// update all happen under the same lock.
type SafeAllocator struct {
	mu sync.Mutex
	ba *BucketAllocator
}

// NewSafe builds a BucketAllocator for cfg and wraps it.
func NewSafe(cfg Config) (*SafeAllocator, error) {
	ba, err := New(cfg)
	if err != nil {
		return nil, err
	}
	return &SafeAllocator{ba: ba}, nil
}

// Allocate thread-safely serves a request. See BucketAllocator.Allocate.
func (s *SafeAllocator) Allocate(n int) (Ref, []byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ba.Allocate(n)
}

// Deallocate thread-safely returns a block. See BucketAllocator.Deallocate.
func (s *SafeAllocator) Deallocate(ref Ref, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ba.Deallocate(ref, n)
}

// MaxSize thread-safely returns the cached max allocatable size.
func (s *SafeAllocator) MaxSize() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ba.MaxSize()
}

// Stats thread-safely returns a snapshot of the allocator's counters.
func (s *SafeAllocator) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ba.Stats()
}

// Check thread-safely verifies the allocator's invariants.
func (s *SafeAllocator) Check() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ba.Check()
}

// Close thread-safely releases the arena.
func (s *SafeAllocator) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ba.Close()
}
