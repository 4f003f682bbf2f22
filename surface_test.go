package vkgui

import (
	"testing"

	"github.com/stretchr/testify/assert"
	vk "github.com/vulkan-go/vulkan"
)

func TestSurfaceStateValueEquality(t *testing.T) {
	a := newSurfaceState(800, 600, vk.FormatB8g8r8a8Unorm, 3)
	b := newSurfaceState(800, 600, vk.FormatB8g8r8a8Unorm, 3)

	// Rebuilding with identical parameters must land on an equal state
	// even though the backing objects are recreated.
	assert.Equal(t, a, b)

	c := newSurfaceState(1024, 768, vk.FormatB8g8r8a8Unorm, 3)
	assert.NotEqual(t, a, c)

	d := newSurfaceState(800, 600, vk.FormatR8g8b8a8Unorm, 3)
	assert.NotEqual(t, a, d)
}

func TestSurfaceReflectsRebuildParameters(t *testing.T) {
	images := make([]vk.Image, 3)

	// Two rebuilds from identical parameter sets land on equal states, and
	// Surface exposes exactly the state the last rebuild assigned.
	b := &Backend{surface: surfaceStateFor(1024, 768, images, vk.FormatB8g8r8a8Unorm)}
	assert.Equal(t, surfaceStateFor(1024, 768, images, vk.FormatB8g8r8a8Unorm), b.Surface())

	b.surface = surfaceStateFor(1280, 720, images[:2], vk.FormatB8g8r8a8Unorm)
	assert.Equal(t, SurfaceState{
		Width:      1280,
		Height:     720,
		Format:     vk.FormatB8g8r8a8Unorm,
		ImageCount: 2,
	}, b.Surface())
}
