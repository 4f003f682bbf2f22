package vkgui

import (
	"fmt"
	"image"

	// Register the common image loaders for LoadUserTextureFromDisk.
	_ "image/jpeg"
	_ "image/png"
	"os"

	vk "github.com/vulkan-go/vulkan"
	xdraw "golang.org/x/image/draw"
)

// UserTexture is a GPU texture created by the backend on the host's
// behalf, ready to be passed to RegisterUserTexture. Unlike managed
// textures the caller owns it and must Destroy it after unregistering.
type UserTexture struct {
	Image      *Image
	Allocation *Allocation
	View       *ImageView
	Sampler    vk.Sampler

	alloc Allocator
}

// CreateUserTexture uploads any image.Image as a GPU texture. Images
// larger than the backend's max texture side are downscaled to fit,
// preserving aspect ratio. The pixels are converted to premultiplied RGBA
// and the returned view is left in the shader read only layout.
func (b *Backend) CreateUserTexture(src image.Image) (*UserTexture, error) {
	rgba := toPremultipliedRGBA(src, b.maxTextureSide)
	bounds := rgba.Bounds()

	img, allocation, err := b.transfer.stageTexture(bounds.Dx(), bounds.Dy(), rgba.Pix,
		vk.ImageLayoutShaderReadOnlyOptimal, vk.AccessShaderReadBit, vk.PipelineStageFragmentShaderBit)
	if err != nil {
		return nil, err
	}

	view, err := img.CreateImageView()
	if err != nil {
		img.Destroy()
		b.alloc.Free(allocation)
		return nil, fmt.Errorf("unable to create user texture view: %w", err)
	}

	sampler, err := b.device.CreateUISampler()
	if err != nil {
		view.Destroy()
		img.Destroy()
		b.alloc.Free(allocation)
		return nil, fmt.Errorf("unable to create user texture sampler: %w", err)
	}

	return &UserTexture{
		Image:      img,
		Allocation: allocation,
		View:       view,
		Sampler:    sampler,
		alloc:      b.alloc,
	}, nil
}

// LoadUserTextureFromDisk decodes an image file and uploads it via
// CreateUserTexture.
func (b *Backend) LoadUserTextureFromDisk(filename string) (*UserTexture, error) {
	reader, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	src, _, err := image.Decode(reader)
	if err != nil {
		return nil, fmt.Errorf("unable to decode %s: %w", filename, err)
	}
	return b.CreateUserTexture(src)
}

// Destroy releases the texture's GPU objects. The texture must be
// unregistered and all GPU work referencing it finished.
func (t *UserTexture) Destroy() {
	vk.DestroySampler(t.Image.Device.VKDevice, t.Sampler, nil)
	t.View.Destroy()
	t.Image.Destroy()
	t.alloc.Free(t.Allocation)
}

// toPremultipliedRGBA converts src to premultiplied RGBA, scaling it down
// with Catmull-Rom resampling if either side exceeds maxSide.
func toPremultipliedRGBA(src image.Image, maxSide int) *image.RGBA {
	bounds := src.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	if width > maxSide || height > maxSide {
		if width >= height {
			height = height * maxSide / width
			width = maxSide
		} else {
			width = width * maxSide / height
			height = maxSide
		}
		if width < 1 {
			width = 1
		}
		if height < 1 {
			height = 1
		}
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	if width == bounds.Dx() && height == bounds.Dy() {
		xdraw.Draw(dst, dst.Bounds(), src, bounds.Min, xdraw.Src)
	} else {
		xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Src, nil)
	}
	return dst
}
