package vkgui

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	vk "github.com/vulkan-go/vulkan"
)

func resolveAll(TextureID) (vk.DescriptorSet, bool) {
	return vk.NullDescriptorSet, true
}

func testQuad(tex TextureID, clip Rect) Primitive {
	return Primitive{
		Clip:    clip,
		Texture: tex,
		Vertices: []Vertex{
			{Pos: [2]float32{clip.MinX, clip.MinY}},
			{Pos: [2]float32{clip.MaxX, clip.MinY}},
			{Pos: [2]float32{clip.MaxX, clip.MaxY}},
			{Pos: [2]float32{clip.MinX, clip.MaxY}},
		},
		Indices: []uint32{0, 1, 2, 2, 3, 0},
	}
}

func testCursors(vcap, icap int) (*writeCursor, *writeCursor) {
	return newWriteCursor(make([]byte, vcap)), newWriteCursor(make([]byte, icap))
}

func TestScissorClamping(t *testing.T) {
	// A clip hanging off every edge is clamped to the surface.
	s := scissorFor(Rect{MinX: -50, MinY: -50, MaxX: 900, MaxY: 700}, 1, 800, 600)
	assert.Equal(t, int32(0), s.Offset.X)
	assert.Equal(t, int32(0), s.Offset.Y)
	assert.Equal(t, uint32(800), s.Extent.Width)
	assert.Equal(t, uint32(600), s.Extent.Height)

	// An inverted clip collapses to an empty rect instead of going
	// negative.
	s = scissorFor(Rect{MinX: 100, MinY: 100, MaxX: 50, MaxY: 50}, 1, 800, 600)
	assert.Equal(t, int32(100), s.Offset.X)
	assert.Equal(t, uint32(0), s.Extent.Width)
	assert.Equal(t, uint32(0), s.Extent.Height)
}

func TestScissorScaleFactor(t *testing.T) {
	s := scissorFor(Rect{MinX: 10, MinY: 20, MaxX: 110, MaxY: 220}, 2, 800, 600)
	assert.Equal(t, int32(20), s.Offset.X)
	assert.Equal(t, int32(40), s.Offset.Y)
	assert.Equal(t, uint32(200), s.Extent.Width)
	assert.Equal(t, uint32(400), s.Extent.Height)
}

func TestBuildDrawsPreservesOrder(t *testing.T) {
	clips := []Rect{
		{MaxX: 100, MaxY: 100},
		{MinX: 10, MinY: 10, MaxX: 20, MaxY: 20},
		{MinX: 30, MinY: 30, MaxX: 90, MaxY: 90},
	}
	prims := make([]Primitive, 0, len(clips))
	for _, c := range clips {
		prims = append(prims, testQuad(ManagedTextureID(0), c))
	}

	v, ix := testCursors(4096, 4096)
	draws, err := buildDraws(prims, 1, 800, 600, v, ix, resolveAll, testLogger())
	require.NoError(t, err)
	require.Len(t, draws, len(clips))

	for i, c := range clips {
		assert.Equal(t, scissorFor(c, 1, 800, 600), draws[i].scissor, "draw %d", i)
	}
}

func TestBuildDrawsCumulativeBases(t *testing.T) {
	prims := []Primitive{
		testQuad(ManagedTextureID(0), Rect{MaxX: 10, MaxY: 10}),
		testQuad(ManagedTextureID(0), Rect{MaxX: 20, MaxY: 20}),
		testQuad(ManagedTextureID(0), Rect{MaxX: 30, MaxY: 30}),
	}

	v, ix := testCursors(4096, 4096)
	draws, err := buildDraws(prims, 1, 800, 600, v, ix, resolveAll, testLogger())
	require.NoError(t, err)
	require.Len(t, draws, 3)

	for i, d := range draws {
		assert.Equal(t, uint32(6), d.indexCount)
		assert.Equal(t, int32(i*4), d.baseVertex)
		assert.Equal(t, uint32(i*6), d.firstIndex)
	}
}

func TestBuildDrawsSkipsEmptyPrimitives(t *testing.T) {
	prims := []Primitive{
		{Texture: ManagedTextureID(0), Vertices: []Vertex{{}}, Indices: nil},
		{Texture: ManagedTextureID(0), Vertices: nil, Indices: []uint32{0}},
		testQuad(ManagedTextureID(0), Rect{MaxX: 10, MaxY: 10}),
	}

	v, ix := testCursors(4096, 4096)
	draws, err := buildDraws(prims, 1, 800, 600, v, ix, resolveAll, testLogger())
	require.NoError(t, err)
	assert.Len(t, draws, 1)
	assert.Equal(t, int32(0), draws[0].baseVertex)
}

func TestBuildDrawsSkipsUnknownTexture(t *testing.T) {
	known := ManagedTextureID(1)
	resolve := func(id TextureID) (vk.DescriptorSet, bool) {
		return vk.NullDescriptorSet, id == known
	}

	prims := []Primitive{
		testQuad(UserTextureID(9), Rect{MaxX: 10, MaxY: 10}),
		testQuad(known, Rect{MaxX: 10, MaxY: 10}),
	}

	v, ix := testCursors(4096, 4096)
	draws, err := buildDraws(prims, 1, 800, 600, v, ix, resolve, testLogger())
	require.NoError(t, err)
	require.Len(t, draws, 1)

	// The skipped primitive wrote no geometry either.
	assert.Equal(t, int32(0), draws[0].baseVertex)
	assert.Equal(t, uint32(0), draws[0].firstIndex)
}

func TestBuildDrawsOverflowIsFatal(t *testing.T) {
	prims := []Primitive{
		testQuad(ManagedTextureID(0), Rect{MaxX: 10, MaxY: 10}),
		testQuad(ManagedTextureID(0), Rect{MaxX: 10, MaxY: 10}),
	}

	// Room for exactly one quad of vertices.
	v, ix := testCursors(4*vertexStride, 4096)
	_, err := buildDraws(prims, 1, 800, 600, v, ix, resolveAll, testLogger())
	assert.ErrorIs(t, err, ErrGeometryOverflow)

	// Index overflow is caught the same way.
	v, ix = testCursors(4096, 6*4)
	_, err = buildDraws(prims, 1, 800, 600, v, ix, resolveAll, testLogger())
	assert.ErrorIs(t, err, ErrGeometryOverflow)
}

// TestManagedTextureDrawLifecycle walks one managed texture through set,
// draw and free against the cache and recorder together.
func TestManagedTextureDrawLifecycle(t *testing.T) {
	engine := &fakeEngine{}
	cache := newTextureCache(testLogger(), engine)
	id := ManagedTextureID(0)

	delta := TexturesDelta{
		Set: []TextureSet{
			{ID: id, Image: NewRGBAPremultiplied(2, 2, make([]byte, 16))},
		},
		Free: []TextureID{id},
	}

	require.NoError(t, cache.applySets(delta.Set))
	assert.Equal(t, 1, cache.len())

	resolve := func(tid TextureID) (vk.DescriptorSet, bool) {
		return cache.binding(tid)
	}

	v, ix := testCursors(4096, 4096)
	draws, err := buildDraws(
		[]Primitive{testQuad(id, Rect{MaxX: 800, MaxY: 600})},
		1, 800, 600, v, ix, resolve, testLogger())
	require.NoError(t, err)

	require.Len(t, draws, 1)
	assert.Equal(t, uint32(6), draws[0].indexCount)
	assert.Equal(t, vk.Rect2D{
		Offset: vk.Offset2D{X: 0, Y: 0},
		Extent: vk.Extent2D{Width: 800, Height: 600},
	}, draws[0].scissor)

	cache.applyFrees(delta.Free)
	assert.Equal(t, 0, cache.len())
}
