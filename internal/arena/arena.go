// Package arena obtains and releases the fixed-size byte regions that back
// allocator instances.
package arena

import "fmt"

// Provider returns a zeroed region of exactly size bytes and a release func.
// The release func must be safe to call more than once.
type Provider func(size int) ([]byte, func() error, error)

// Heap allocates the region on the Go heap. Release drops nothing; the
// garbage collector reclaims the slice once the owner lets go of it.
func Heap(size int) ([]byte, func() error, error) {
	if size < 0 {
		return nil, nil, fmt.Errorf("arena: negative size %d", size)
	}
	return make([]byte, size), func() error { return nil }, nil
}
