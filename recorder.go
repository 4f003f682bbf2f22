package vkgui

import (
	"log/slog"

	"github.com/chewxy/math32"
	vk "github.com/vulkan-go/vulkan"
)

// drawCommand is one recorded indexed draw: the texture binding, the
// scissor in physical pixels and the offsets into the frame slot's
// geometry buffers.
type drawCommand struct {
	set        vk.DescriptorSet
	indexCount uint32
	firstIndex uint32
	baseVertex int32
	scissor    vk.Rect2D
}

func clamp32(v, lo, hi float32) float32 {
	return math32.Min(math32.Max(v, lo), hi)
}

// scissorFor converts a clip rectangle in UI points to a physical pixel
// scissor: scaled by the scale factor, clamped to the surface, and with
// the max corner clamped to stay at or beyond the min corner.
func scissorFor(clip Rect, scale float32, surfaceWidth, surfaceHeight uint32) vk.Rect2D {
	w := float32(surfaceWidth)
	h := float32(surfaceHeight)

	minX := clamp32(clip.MinX*scale, 0, w)
	minY := clamp32(clip.MinY*scale, 0, h)
	maxX := clamp32(clip.MaxX*scale, minX, w)
	maxY := clamp32(clip.MaxY*scale, minY, h)

	x := int32(math32.Round(minX))
	y := int32(math32.Round(minY))
	return vk.Rect2D{
		Offset: vk.Offset2D{X: x, Y: y},
		Extent: vk.Extent2D{
			Width:  uint32(math32.Round(maxX) - float32(x)),
			Height: uint32(math32.Round(maxY) - float32(y)),
		},
	}
}

// buildDraws writes each primitive's geometry through the cursors and
// produces the draw commands in input order. Input order is the UI's z
// order, back to front, and must survive into the command stream exactly.
// Primitives with no geometry, or referencing a texture the resolver does
// not know, produce no draw.
func buildDraws(prims []Primitive, scale float32, surfaceWidth, surfaceHeight uint32,
	vertices, indices *writeCursor,
	resolve func(TextureID) (vk.DescriptorSet, bool),
	log *slog.Logger) ([]drawCommand, error) {

	draws := make([]drawCommand, 0, len(prims))
	for i := range prims {
		p := &prims[i]
		if len(p.Vertices) == 0 || len(p.Indices) == 0 {
			continue
		}

		set, ok := resolve(p.Texture)
		if !ok {
			log.Warn("primitive references unknown texture, skipping", "texture", p.Texture)
			continue
		}

		vertexOffset, err := vertices.push(vertexBytes(p.Vertices))
		if err != nil {
			return nil, err
		}
		indexOffset, err := indices.push(indexBytes(p.Indices))
		if err != nil {
			return nil, err
		}

		draws = append(draws, drawCommand{
			set:        set,
			indexCount: uint32(len(p.Indices)),
			firstIndex: uint32(indexOffset / 4),
			baseVertex: int32(vertexOffset / vertexStride),
			scissor:    scissorFor(p.Clip, scale, surfaceWidth, surfaceHeight),
		})
	}
	return draws, nil
}
