package alloc

import "errors"

var (
	// ErrExhausted indicates that no free block large enough was found in any
	// eligible bucket. It is never retried internally: only the caller can
	// release memory.
	ErrExhausted = errors.New("alloc: allocation exhausted")

	// ErrConstruction indicates that an allocator could not be built: the
	// schedule was invalid or the arena could not be obtained.
	ErrConstruction = errors.New("alloc: construction failed")
)
