package vkgui

import (
	"errors"
	"image"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeEngine satisfies transferEngine without a device, recording what the
// cache asked it to do.
type fakeEngine struct {
	created   int
	destroyed int
	patches   []image.Point
	failNext  error
}

func (f *fakeEngine) createTexture(img *PixelImage) (*gpuTexture, error) {
	if f.failNext != nil {
		err := f.failNext
		f.failNext = nil
		return nil, err
	}
	f.created++
	return &gpuTexture{width: img.Width, height: img.Height}, nil
}

func (f *fakeEngine) patchTexture(dst *gpuTexture, at image.Point, img *PixelImage) error {
	if f.failNext != nil {
		err := f.failNext
		f.failNext = nil
		return err
	}
	f.patches = append(f.patches, at)
	return nil
}

func (f *fakeEngine) destroyTexture(t *gpuTexture) {
	f.destroyed++
}

func rgbaSet(id TextureID, w, h int) TextureSet {
	return TextureSet{ID: id, Image: NewRGBAPremultiplied(w, h, make([]byte, w*h*4))}
}

func TestCacheSetFreeLifecycle(t *testing.T) {
	engine := &fakeEngine{}
	cache := newTextureCache(testLogger(), engine)
	id := ManagedTextureID(7)

	require.NoError(t, cache.applySets([]TextureSet{rgbaSet(id, 2, 2)}))
	assert.Equal(t, 1, cache.len())

	_, ok := cache.binding(id)
	assert.True(t, ok)

	cache.applyFrees([]TextureID{id})
	assert.Equal(t, 0, cache.len())
	assert.Equal(t, 1, engine.destroyed)

	_, ok = cache.binding(id)
	assert.False(t, ok)

	// A set after the free behaves as a fresh creation.
	require.NoError(t, cache.applySets([]TextureSet{rgbaSet(id, 4, 4)}))
	assert.Equal(t, 1, cache.len())
	assert.Equal(t, 2, engine.created)
}

func TestCacheSetReplacesExisting(t *testing.T) {
	engine := &fakeEngine{}
	cache := newTextureCache(testLogger(), engine)
	id := ManagedTextureID(0)

	require.NoError(t, cache.applySets([]TextureSet{rgbaSet(id, 2, 2)}))
	require.NoError(t, cache.applySets([]TextureSet{rgbaSet(id, 8, 8)}))

	assert.Equal(t, 1, cache.len())
	assert.Equal(t, 2, engine.created)
	assert.Equal(t, 1, engine.destroyed)
}

func TestCachePatchUnknownIsNoOp(t *testing.T) {
	engine := &fakeEngine{}
	cache := newTextureCache(testLogger(), engine)

	at := image.Pt(0, 0)
	set := rgbaSet(ManagedTextureID(3), 1, 1)
	set.At = &at

	require.NoError(t, cache.applySets([]TextureSet{set}))
	assert.Equal(t, 0, cache.len())
	assert.Equal(t, 0, engine.created)
	assert.Empty(t, engine.patches)
}

func TestCachePatchInBounds(t *testing.T) {
	engine := &fakeEngine{}
	cache := newTextureCache(testLogger(), engine)
	id := ManagedTextureID(1)

	require.NoError(t, cache.applySets([]TextureSet{rgbaSet(id, 8, 8)}))

	at := image.Pt(4, 4)
	patch := rgbaSet(id, 4, 4)
	patch.At = &at
	require.NoError(t, cache.applySets([]TextureSet{patch}))
	assert.Equal(t, []image.Point{at}, engine.patches)

	// Still one record; a patch mutates in place.
	assert.Equal(t, 1, cache.len())
	assert.Equal(t, 1, engine.created)
}

func TestCachePatchOutOfBounds(t *testing.T) {
	engine := &fakeEngine{}
	cache := newTextureCache(testLogger(), engine)
	id := ManagedTextureID(1)

	require.NoError(t, cache.applySets([]TextureSet{rgbaSet(id, 8, 8)}))

	at := image.Pt(6, 6)
	patch := rgbaSet(id, 4, 4)
	patch.At = &at
	err := cache.applySets([]TextureSet{patch})
	assert.Error(t, err)
	assert.Empty(t, engine.patches)
}

func TestCacheFreeUnknownIsSilent(t *testing.T) {
	engine := &fakeEngine{}
	cache := newTextureCache(testLogger(), engine)

	cache.applyFrees([]TextureID{ManagedTextureID(42)})
	assert.Equal(t, 0, engine.destroyed)
}

func TestCacheCreateFailurePropagates(t *testing.T) {
	engine := &fakeEngine{failNext: errors.New("out of memory")}
	cache := newTextureCache(testLogger(), engine)

	err := cache.applySets([]TextureSet{rgbaSet(ManagedTextureID(0), 2, 2)})
	assert.Error(t, err)
	assert.Equal(t, 0, cache.len())
}

func TestCacheDestroyReleasesAll(t *testing.T) {
	engine := &fakeEngine{}
	cache := newTextureCache(testLogger(), engine)

	require.NoError(t, cache.applySets([]TextureSet{
		rgbaSet(ManagedTextureID(0), 2, 2),
		rgbaSet(ManagedTextureID(1), 2, 2),
	}))

	cache.destroy()
	assert.Equal(t, 0, cache.len())
	assert.Equal(t, 2, engine.destroyed)
}

func TestPixelImageRGBA(t *testing.T) {
	pix := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	img := NewRGBAPremultiplied(2, 1, pix)
	got, err := img.RGBA()
	require.NoError(t, err)
	assert.Equal(t, pix, got)

	cov := NewCoverage(2, 1, []byte{0, 128})
	got, err = cov.RGBA()
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 0, 0, 128, 128, 128, 128}, got)

	_, err = NewRGBAPremultiplied(2, 2, pix).RGBA()
	assert.Error(t, err)

	_, err = NewCoverage(3, 1, []byte{1}).RGBA()
	assert.Error(t, err)
}
