package vkgui

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteCursorOffsets(t *testing.T) {
	dst := make([]byte, 16)
	c := newWriteCursor(dst)

	off, err := c.push([]byte{1, 2, 3, 4})
	require.NoError(t, err)
	assert.Equal(t, 0, off)

	off, err = c.push([]byte{5, 6})
	require.NoError(t, err)
	assert.Equal(t, 4, off)

	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6}, dst[:6])
}

func TestWriteCursorExactFit(t *testing.T) {
	c := newWriteCursor(make([]byte, 8))

	_, err := c.push(make([]byte, 6))
	require.NoError(t, err)

	// Filling the region to exactly its capacity is allowed.
	off, err := c.push(make([]byte, 2))
	require.NoError(t, err)
	assert.Equal(t, 6, off)
}

func TestWriteCursorOverflow(t *testing.T) {
	c := newWriteCursor(make([]byte, 8))

	_, err := c.push(make([]byte, 8))
	require.NoError(t, err)

	_, err = c.push([]byte{1})
	assert.ErrorIs(t, err, ErrGeometryOverflow)
}

func TestBufferBytesCappedAtDeclaredSize(t *testing.T) {
	// A pooling allocator may round the block up past the request. The
	// padding is not writable buffer space and must not widen the
	// overflow ceiling.
	backing := make([]byte, 32)
	b := &Buffer{
		Size: 16,
		Allocation: &Allocation{
			Size: uint64(len(backing)),
			Ptr:  unsafe.Pointer(&backing[0]),
		},
	}

	require.Len(t, b.Bytes(), 16)

	c := newWriteCursor(b.Bytes())
	_, err := c.push(make([]byte, 24))
	assert.ErrorIs(t, err, ErrGeometryOverflow)

	off, err := c.push(make([]byte, 16))
	require.NoError(t, err)
	assert.Equal(t, 0, off)
	_, err = c.push([]byte{1})
	assert.ErrorIs(t, err, ErrGeometryOverflow)
}

func TestVertexStride(t *testing.T) {
	// The pipeline's vertex input state hardcodes this layout.
	assert.Equal(t, 20, vertexStride)
}

func TestVertexBytesRoundTrip(t *testing.T) {
	v := []Vertex{
		{Pos: [2]float32{1, 2}, UV: [2]float32{3, 4}, Col: [4]uint8{5, 6, 7, 8}},
		{Pos: [2]float32{9, 10}, UV: [2]float32{11, 12}, Col: [4]uint8{13, 14, 15, 16}},
	}
	b := vertexBytes(v)
	require.Len(t, b, 2*vertexStride)
	assert.Equal(t, []byte{5, 6, 7, 8}, b[16:20])

	ix := []uint32{0, 1, 2}
	assert.Len(t, indexBytes(ix), 12)

	assert.Nil(t, vertexBytes(nil))
	assert.Nil(t, indexBytes(nil))
}
