package vkgui

import (
	"fmt"
	"image"
	"unsafe"
)

// TextureKind distinguishes who owns the GPU side of a texture handle.
type TextureKind uint8

const (
	// TextureManaged textures are created and owned by the backend from
	// pixel data supplied by the UI toolkit. Their IDs are assigned by
	// the toolkit.
	TextureManaged TextureKind = iota
	// TextureUser textures wrap an externally owned image view and
	// sampler registered by the host application. Their IDs are assigned
	// by the backend on registration.
	TextureUser
)

// TextureID is an opaque texture handle. It identifies at most one live
// GPU texture at a time.
type TextureID struct {
	Kind  TextureKind
	Index uint64
}

// ManagedTextureID returns the handle for a toolkit owned texture.
func ManagedTextureID(n uint64) TextureID {
	return TextureID{Kind: TextureManaged, Index: n}
}

// UserTextureID returns the handle for an application owned texture.
func UserTextureID(n uint64) TextureID {
	return TextureID{Kind: TextureUser, Index: n}
}

func (t TextureID) String() string {
	if t.Kind == TextureUser {
		return fmt.Sprintf("user(%d)", t.Index)
	}
	return fmt.Sprintf("managed(%d)", t.Index)
}

// Vertex is one UI vertex: position and texture coordinates in UI points,
// premultiplied color as 8 bit channels. The layout matches the pipeline's
// vertex input state and must not be reordered.
type Vertex struct {
	Pos [2]float32
	UV  [2]float32
	Col [4]uint8
}

const vertexStride = int(unsafe.Sizeof(Vertex{}))

// Rect is an axis aligned rectangle in UI points.
type Rect struct {
	MinX, MinY float32
	MaxX, MaxY float32
}

// Primitive is a single drawable unit: a triangle mesh bound to one
// texture and clipped to a rectangle. Primitives are drawn strictly in
// list order, back to front; the order encodes the UI z ordering.
type Primitive struct {
	Clip     Rect
	Texture  TextureID
	Vertices []Vertex
	Indices  []uint32
}

// vertexBytes views the vertex slice as raw bytes for the staging copy.
func vertexBytes(v []Vertex) []byte {
	if len(v) == 0 {
		return nil
	}
	return toBytes(unsafe.Pointer(&v[0]), len(v)*vertexStride)
}

// indexBytes views the index slice as raw bytes for the staging copy.
func indexBytes(ix []uint32) []byte {
	if len(ix) == 0 {
		return nil
	}
	return toBytes(unsafe.Pointer(&ix[0]), len(ix)*4)
}

// PixelFormat identifies the source representation of a PixelImage.
type PixelFormat uint8

const (
	// PixelRGBAPremultiplied is 4 bytes per pixel, alpha premultiplied.
	PixelRGBAPremultiplied PixelFormat = iota
	// PixelCoverage is 1 byte per pixel, a grayscale coverage mask as
	// produced for glyph atlases.
	PixelCoverage
)

// PixelImage is the pixel payload of a texture delta.
type PixelImage struct {
	Width  int
	Height int
	Format PixelFormat
	Pix    []byte
}

// NewRGBAPremultiplied wraps a premultiplied RGBA byte slice, which must
// hold width*height*4 bytes.
func NewRGBAPremultiplied(width, height int, pix []byte) *PixelImage {
	return &PixelImage{Width: width, Height: height, Format: PixelRGBAPremultiplied, Pix: pix}
}

// NewCoverage wraps a grayscale coverage mask, which must hold
// width*height bytes.
func NewCoverage(width, height int, pix []byte) *PixelImage {
	return &PixelImage{Width: width, Height: height, Format: PixelCoverage, Pix: pix}
}

// RGBA normalizes the image to the single upload format: linear, one byte
// per channel RGBA. Coverage masks become premultiplied white, so a
// coverage value c expands to (c,c,c,c).
func (p *PixelImage) RGBA() ([]byte, error) {
	n := p.Width * p.Height
	switch p.Format {
	case PixelRGBAPremultiplied:
		if len(p.Pix) != n*4 {
			return nil, fmt.Errorf("pixel image %dx%d: have %d bytes, want %d", p.Width, p.Height, len(p.Pix), n*4)
		}
		return p.Pix, nil
	case PixelCoverage:
		if len(p.Pix) != n {
			return nil, fmt.Errorf("coverage image %dx%d: have %d bytes, want %d", p.Width, p.Height, len(p.Pix), n)
		}
		out := make([]byte, n*4)
		for i, c := range p.Pix {
			out[i*4+0] = c
			out[i*4+1] = c
			out[i*4+2] = c
			out[i*4+3] = c
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unknown pixel format %d", p.Format)
	}
}

// TextureSet instructs the backend to create a texture, or to patch an
// existing one when At is non nil.
type TextureSet struct {
	ID TextureID
	// At, when set, places Image as a sub region of the existing
	// texture instead of creating a new one.
	At    *image.Point
	Image *PixelImage
}

// TexturesDelta is the incremental texture work emitted by the UI toolkit
// for one frame. Set entries are applied before the frame's draws are
// recorded; Free entries after, so draws in the same frame may still
// reference a texture being freed.
type TexturesDelta struct {
	Set  []TextureSet
	Free []TextureID
}
