package alloc

import (
	"math/bits"
	"strings"
)

// occupancy is one bit per block, most significant bit first within each
// byte. 1 = free, 0 = used. Bits past the block count are always 0.
type occupancy []byte

// newOccupancy returns a bitmap for n blocks with every block free.
func newOccupancy(n int) occupancy {
	o := make(occupancy, (n+7)/8)
	whole := n / 8
	for i := range whole {
		o[i] = 0xFF
	}
	if rem := n % 8; rem != 0 {
		o[whole] = byte(0xFF) << (8 - rem)
	}
	return o
}

func (o occupancy) free(i int) bool {
	return o[i/8]&(0x80>>(i%8)) != 0
}

func (o occupancy) set(i int, free bool) {
	mask := byte(0x80) >> (i % 8)
	if free {
		o[i/8] |= mask
	} else {
		o[i/8] &^= mask
	}
}

// firstFree returns the lowest free index, or -1. A zero byte has no free
// block so the scan skips all eight of its indices at once.
func (o occupancy) firstFree() int {
	for bi, b := range o {
		if b == 0 {
			continue
		}
		return bi*8 + bits.LeadingZeros8(b)
	}
	return -1
}

// count returns the number of free blocks.
func (o occupancy) count() int {
	n := 0
	for _, b := range o {
		n += bits.OnesCount8(b)
	}
	return n
}

// render draws the first n bits as '1' (free) and '0' (used).
func (o occupancy) render(n int) string {
	var sb strings.Builder
	sb.Grow(n)
	for i := range n {
		if o.free(i) {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String()
}
