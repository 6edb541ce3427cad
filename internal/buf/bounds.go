// Package buf contains overflow-safe size arithmetic for arena layout.
package buf

import (
	"fmt"
	"math"
)

// AddOverflowSafe adds a and b, returning ok = false when the result would overflow int.
func AddOverflowSafe(a, b int) (int, bool) {
	switch {
	case b > 0 && a > math.MaxInt-b:
		return 0, false
	case b < 0 && a < math.MinInt-b:
		return 0, false
	default:
		return a + b, true
	}
}

// MulOverflowSafe multiplies two non-negative values, returning ok = false when
// the result would overflow int or either operand is negative.
func MulOverflowSafe(a, b int) (int, bool) {
	if a < 0 || b < 0 {
		return 0, false
	}
	if a == 0 || b == 0 {
		return 0, true
	}
	if a > math.MaxInt/b {
		return 0, false
	}
	return a * b, true
}

// CheckExtent validates that count blocks of blockSize bytes fit in an arena
// of arenaLen bytes starting at offset. Returns the end offset (exclusive) if
// valid, or an error describing the specific failure.
//
//	end, err := buf.CheckExtent(len(arena), start, count, size)
//	if err != nil {
//	    return fmt.Errorf("bucket: %w", err)
//	}
func CheckExtent(arenaLen, offset, count, blockSize int) (int, error) {
	if offset < 0 {
		return 0, fmt.Errorf("negative offset: %d", offset)
	}
	if count < 0 {
		return 0, fmt.Errorf("negative count: %d", count)
	}
	if blockSize < 0 {
		return 0, fmt.Errorf("negative block size: %d", blockSize)
	}

	total, ok := MulOverflowSafe(count, blockSize)
	if !ok {
		return 0, fmt.Errorf("overflow: count=%d * blockSize=%d", count, blockSize)
	}

	end, ok := AddOverflowSafe(offset, total)
	if !ok {
		return 0, fmt.Errorf("overflow: offset=%d + size=%d", offset, total)
	}

	if end > arenaLen {
		return 0, fmt.Errorf("bounds: end=%d > len=%d", end, arenaLen)
	}

	return end, nil
}

// Slice returns the sub-slice [off:off+n] if it fits within len(b).
// The result's capacity is clipped to n so appends cannot spill into
// neighbouring memory.
func Slice(b []byte, off, n int) ([]byte, bool) {
	if off < 0 || n < 0 || off > len(b) {
		return nil, false
	}
	end, ok := AddOverflowSafe(off, n)
	if !ok || end > len(b) {
		return nil, false
	}
	return b[off:end:end], true
}

// Has reports whether b[off:off+n] is within bounds.
func Has(b []byte, off, n int) bool {
	_, ok := Slice(b, off, n)
	return ok
}
