package alloc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOccupancy_NewAllFree(t *testing.T) {
	tests := []struct {
		blocks int
		bytes  []byte
	}{
		{0, []byte{}},
		{1, []byte{0x80}},
		{3, []byte{0xE0}},
		{8, []byte{0xFF}},
		{11, []byte{0xFF, 0xE0}},
		{16, []byte{0xFF, 0xFF}},
	}
	for _, tt := range tests {
		o := newOccupancy(tt.blocks)
		assert.Equal(t, tt.bytes, []byte(o), "blocks=%d", tt.blocks)
		assert.Equal(t, tt.blocks, o.count(), "blocks=%d", tt.blocks)
	}
}

func TestOccupancy_SetAndFree(t *testing.T) {
	o := newOccupancy(10)

	o.set(0, false)
	o.set(9, false)
	assert.False(t, o.free(0))
	assert.False(t, o.free(9))
	assert.True(t, o.free(1))
	assert.Equal(t, byte(0x7F), o[0], "block 0 is the most significant bit")
	assert.Equal(t, byte(0x80), o[1])
	assert.Equal(t, 8, o.count())

	o.set(0, true)
	assert.True(t, o.free(0))
	assert.Equal(t, 9, o.count())
}

func TestOccupancy_FirstFreeSkipsFullBytes(t *testing.T) {
	o := newOccupancy(24)
	for i := range 19 {
		o.set(i, false)
	}
	require.Equal(t, byte(0), o[0])
	require.Equal(t, byte(0), o[1])
	assert.Equal(t, 19, o.firstFree())

	o.set(4, true)
	assert.Equal(t, 4, o.firstFree())

	for i := range 24 {
		o.set(i, false)
	}
	assert.Equal(t, -1, o.firstFree())
}

func TestOccupancy_Render(t *testing.T) {
	o := newOccupancy(5)
	o.set(1, false)
	o.set(3, false)
	assert.Equal(t, "10101", o.render(5))
}
