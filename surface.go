package vkgui

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"
)

// SurfaceState is the backend's view of the presentation surface. The
// pipeline, image views and framebuffers are all derived from it, so a
// change to any field forces a full rebuild of all of them.
type SurfaceState struct {
	Width      uint32
	Height     uint32
	Format     vk.Format
	ImageCount int
}

func newSurfaceState(width, height uint32, format vk.Format, imageCount int) SurfaceState {
	return SurfaceState{Width: width, Height: height, Format: format, ImageCount: imageCount}
}

// surfaceStateFor derives the surface state from an UpdateSurface
// parameter set.
func surfaceStateFor(width, height uint32, images []vk.Image, format vk.Format) SurfaceState {
	return newSurfaceState(width, height, format, len(images))
}

// createFramebuffer creates a single attachment framebuffer for one
// presentation image view.
func createFramebuffer(d *Device, renderPass vk.RenderPass, view *ImageView, width, height uint32) (vk.Framebuffer, error) {
	fbCreateInfo := vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      renderPass,
		AttachmentCount: 1,
		PAttachments:    []vk.ImageView{view.VKImageView},
		Width:           width,
		Height:          height,
		Layers:          1,
	}

	var framebuffer vk.Framebuffer
	err := vk.Error(vk.CreateFramebuffer(d.VKDevice, &fbCreateInfo, nil, &framebuffer))
	if err != nil {
		return vk.NullFramebuffer, err
	}
	return framebuffer, nil
}

// buildSurface creates the render pass, pipeline, per image views and
// framebuffers for the given surface parameters. The previous set must
// already be torn down.
func (b *Backend) buildSurface(width, height uint32, images []vk.Image, format vk.Format) error {
	renderPass, err := b.device.CreateUIRenderPass(format)
	if err != nil {
		return fmt.Errorf("unable to create render pass: %w", err)
	}

	pipeline, err := b.device.CreateUIPipeline(renderPass, b.setLayout, b.vert, b.frag)
	if err != nil {
		vk.DestroyRenderPass(b.device.VKDevice, renderPass, nil)
		return fmt.Errorf("unable to create pipeline: %w", err)
	}

	views := make([]*ImageView, 0, len(images))
	framebuffers := make([]vk.Framebuffer, 0, len(images))
	fail := func(err error) error {
		for _, fb := range framebuffers {
			vk.DestroyFramebuffer(b.device.VKDevice, fb, nil)
		}
		for _, v := range views {
			v.Destroy()
		}
		pipeline.Destroy()
		return err
	}

	for i, image := range images {
		view, err := b.device.CreateImageView(image, format)
		if err != nil {
			return fail(fmt.Errorf("unable to create view for image %d: %w", i, err))
		}
		views = append(views, view)

		fb, err := createFramebuffer(b.device, renderPass, view, width, height)
		if err != nil {
			return fail(fmt.Errorf("unable to create framebuffer %d: %w", i, err))
		}
		framebuffers = append(framebuffers, fb)
	}

	b.pipeline = pipeline
	b.views = views
	b.framebuffers = framebuffers
	b.surface = surfaceStateFor(width, height, images, format)
	return nil
}

// teardownSurface destroys the surface dependent objects. Framebuffers go
// first since they reference the views, then the views, then the pipeline
// together with its render pass.
func (b *Backend) teardownSurface() {
	for _, fb := range b.framebuffers {
		vk.DestroyFramebuffer(b.device.VKDevice, fb, nil)
	}
	b.framebuffers = nil
	for _, v := range b.views {
		v.Destroy()
	}
	b.views = nil
	if b.pipeline != nil {
		b.pipeline.Destroy()
		b.pipeline = nil
	}
}

// UpdateSurface rebuilds everything tied to the presentation surface after
// the host recreated its swapchain: new size, new image set, possibly a
// new format. The caller must guarantee no in flight GPU work still uses
// the old framebuffers. Texture and frame geometry state survive
// untouched except that the frame pool grows or shrinks to match the new
// image count. A failure here is fatal; the backend must be discarded.
func (b *Backend) UpdateSurface(width, height uint32, images []vk.Image, format vk.Format) error {
	b.teardownSurface()

	if err := b.buildSurface(width, height, images, format); err != nil {
		return err
	}
	if err := b.frames.resize(b.device, len(images)); err != nil {
		return err
	}

	b.log.Debug("surface updated",
		"width", width, "height", height, "format", int32(format), "images", len(images))
	return nil
}

// Surface returns the current surface state.
func (b *Backend) Surface() SurfaceState {
	return b.surface
}
