//go:build !unix

package arena

// Map falls back to a heap region when anonymous mappings are not available.
func Map(size int) ([]byte, func() error, error) {
	return Heap(size)
}
