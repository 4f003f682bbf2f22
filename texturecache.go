package vkgui

import (
	"fmt"
	"image"
	"log/slog"

	vk "github.com/vulkan-go/vulkan"
)

// gpuTexture is the full GPU side of one managed texture: the image, its
// memory, the sampling view and the descriptor set draws bind.
type gpuTexture struct {
	image      *Image
	allocation *Allocation
	view       *ImageView
	set        vk.DescriptorSet
	width      int
	height     int
}

// transferEngine is what the texture cache needs from the GPU: it creates,
// patches and destroys textures. The backend's transfer context implements
// it against the real device.
type transferEngine interface {
	createTexture(img *PixelImage) (*gpuTexture, error)
	patchTexture(dst *gpuTexture, at image.Point, img *PixelImage) error
	destroyTexture(t *gpuTexture)
}

// textureCache tracks every live managed texture by ID and applies the
// per frame texture deltas against the transfer engine.
type textureCache struct {
	log      *slog.Logger
	engine   transferEngine
	textures map[TextureID]*gpuTexture
}

func newTextureCache(log *slog.Logger, engine transferEngine) *textureCache {
	return &textureCache{
		log:      log,
		engine:   engine,
		textures: make(map[TextureID]*gpuTexture),
	}
}

// applySets applies the frame's texture creations and patches, in order.
// Patches addressing an unknown texture are logged and skipped; everything
// else that goes wrong is fatal for the frame.
func (c *textureCache) applySets(sets []TextureSet) error {
	for _, set := range sets {
		if set.At != nil {
			existing, ok := c.textures[set.ID]
			if !ok {
				c.log.Warn("patch for unknown texture, skipping", "texture", set.ID)
				continue
			}
			if err := c.patch(existing, set); err != nil {
				return err
			}
			continue
		}
		if err := c.create(set); err != nil {
			return err
		}
	}
	return nil
}

func (c *textureCache) patch(existing *gpuTexture, set TextureSet) error {
	at := *set.At
	if at.X < 0 || at.Y < 0 ||
		at.X+set.Image.Width > existing.width ||
		at.Y+set.Image.Height > existing.height {
		return fmt.Errorf("patch %dx%d at (%d,%d) does not fit texture %s (%dx%d)",
			set.Image.Width, set.Image.Height, at.X, at.Y, set.ID, existing.width, existing.height)
	}
	if err := c.engine.patchTexture(existing, at, set.Image); err != nil {
		return fmt.Errorf("unable to patch texture %s: %w", set.ID, err)
	}
	return nil
}

func (c *textureCache) create(set TextureSet) error {
	t, err := c.engine.createTexture(set.Image)
	if err != nil {
		return fmt.Errorf("unable to create texture %s: %w", set.ID, err)
	}
	// A set for an already live ID replaces it wholesale, as happens
	// when the toolkit regenerates its font atlas.
	if old, ok := c.textures[set.ID]; ok {
		c.engine.destroyTexture(old)
	}
	c.textures[set.ID] = t
	return nil
}

// applyFrees destroys the listed textures. Unknown IDs are ignored; frees
// can trail creations by more than a frame when the toolkit drops a
// texture it never finished using.
func (c *textureCache) applyFrees(ids []TextureID) {
	for _, id := range ids {
		t, ok := c.textures[id]
		if !ok {
			continue
		}
		c.engine.destroyTexture(t)
		delete(c.textures, id)
	}
}

// binding resolves a texture ID to the descriptor set draws bind.
func (c *textureCache) binding(id TextureID) (vk.DescriptorSet, bool) {
	t, ok := c.textures[id]
	if !ok {
		return vk.NullDescriptorSet, false
	}
	return t.set, true
}

func (c *textureCache) len() int {
	return len(c.textures)
}

// destroy releases every remaining texture.
func (c *textureCache) destroy() {
	for id, t := range c.textures {
		c.engine.destroyTexture(t)
		delete(c.textures, id)
	}
}
