package vkgui

import (
	"fmt"
	"image"
	"log/slog"

	vk "github.com/vulkan-go/vulkan"
)

// textureFormat is the one format every managed texture uses. Color math
// happens in linear space; the UI toolkit already hands us linear
// premultiplied pixels.
const textureFormat = vk.FormatR8g8b8a8Unorm

// gpuTransfer is the real transferEngine. Every operation is synchronous:
// it records a one time command buffer, submits it and waits on a fence
// before returning, so callers may touch or free the source pixels
// immediately afterwards.
type gpuTransfer struct {
	log       *slog.Logger
	device    *Device
	alloc     Allocator
	pool      *CommandPool
	queue     *Queue
	sampler   vk.Sampler
	descPool  *DescriptorPool
	setLayout *DescriptorSetLayout
}

// stageTexture creates a device local image, fills it from pix and leaves
// it in the given layout. The caller owns the returned image and
// allocation.
func (g *gpuTransfer) stageTexture(width, height int, pix []byte, finalLayout vk.ImageLayout, finalAccess vk.AccessFlagBits, finalStage vk.PipelineStageFlagBits) (*Image, *Allocation, error) {
	staging, err := createHostBuffer(g.device, g.alloc, uint64(len(pix)), vk.BufferUsageTransferSrcBit)
	if err != nil {
		return nil, nil, err
	}
	defer staging.Destroy(g.alloc)
	copy(staging.Bytes(), pix)

	extent := vk.Extent2D{Width: uint32(width), Height: uint32(height)}
	usage := vk.ImageUsageFlags(vk.ImageUsageSampledBit | vk.ImageUsageTransferDstBit | vk.ImageUsageTransferSrcBit)
	img, err := g.device.CreateImage(extent, textureFormat, usage)
	if err != nil {
		return nil, nil, fmt.Errorf("unable to create texture image: %w", err)
	}

	allocation, err := g.alloc.Allocate(img.VKMemoryRequirements(), MemoryGPUOnly, false)
	if err != nil {
		img.Destroy()
		return nil, nil, fmt.Errorf("unable to allocate texture memory: %w", err)
	}
	if err := img.BindAllocation(allocation); err != nil {
		img.Destroy()
		g.alloc.Free(allocation)
		return nil, nil, fmt.Errorf("unable to bind texture memory: %w", err)
	}

	err = oneShot(g.pool, g.queue, func(cmd *CommandBuffer) error {
		cmd.InsertImageBarrier(img.VKImage,
			0, vk.AccessTransferWriteBit,
			vk.ImageLayoutUndefined, vk.ImageLayoutTransferDstOptimal,
			vk.PipelineStageTopOfPipeBit, vk.PipelineStageTransferBit)
		cmd.CopyBufferToImage(staging, img)
		cmd.InsertImageBarrier(img.VKImage,
			vk.AccessTransferWriteBit, finalAccess,
			vk.ImageLayoutTransferDstOptimal, finalLayout,
			vk.PipelineStageTransferBit, finalStage)
		return nil
	})
	if err != nil {
		img.Destroy()
		g.alloc.Free(allocation)
		return nil, nil, fmt.Errorf("unable to upload texture pixels: %w", err)
	}

	return img, allocation, nil
}

func (g *gpuTransfer) createTexture(src *PixelImage) (*gpuTexture, error) {
	pix, err := src.RGBA()
	if err != nil {
		return nil, err
	}

	img, allocation, err := g.stageTexture(src.Width, src.Height, pix,
		vk.ImageLayoutShaderReadOnlyOptimal, vk.AccessShaderReadBit, vk.PipelineStageFragmentShaderBit)
	if err != nil {
		return nil, err
	}

	view, err := img.CreateImageView()
	if err != nil {
		img.Destroy()
		g.alloc.Free(allocation)
		return nil, fmt.Errorf("unable to create texture view: %w", err)
	}

	set, err := g.descPool.Allocate(g.setLayout)
	if err != nil {
		view.Destroy()
		img.Destroy()
		g.alloc.Free(allocation)
		return nil, fmt.Errorf("unable to allocate texture descriptor set: %w", err)
	}
	g.device.WriteCombinedImageSampler(set, view.VKImageView, g.sampler)

	return &gpuTexture{
		image:      img,
		allocation: allocation,
		view:       view,
		set:        set,
		width:      src.Width,
		height:     src.Height,
	}, nil
}

// patchTexture uploads the patch pixels to a temporary image and blits
// them into the destination at the given offset. Going through an image
// rather than a direct buffer copy keeps a single upload path for both
// whole textures and sub regions.
func (g *gpuTransfer) patchTexture(dst *gpuTexture, at image.Point, src *PixelImage) error {
	pix, err := src.RGBA()
	if err != nil {
		return err
	}

	tmp, tmpAlloc, err := g.stageTexture(src.Width, src.Height, pix,
		vk.ImageLayoutTransferSrcOptimal, vk.AccessTransferReadBit, vk.PipelineStageTransferBit)
	if err != nil {
		return err
	}
	defer func() {
		tmp.Destroy()
		g.alloc.Free(tmpAlloc)
	}()

	return oneShot(g.pool, g.queue, func(cmd *CommandBuffer) error {
		cmd.InsertImageBarrier(dst.image.VKImage,
			vk.AccessShaderReadBit, vk.AccessTransferWriteBit,
			vk.ImageLayoutShaderReadOnlyOptimal, vk.ImageLayoutTransferDstOptimal,
			vk.PipelineStageFragmentShaderBit, vk.PipelineStageTransferBit)
		cmd.BlitImage(tmp, dst.image, int32(at.X), int32(at.Y))
		cmd.InsertImageBarrier(dst.image.VKImage,
			vk.AccessTransferWriteBit, vk.AccessShaderReadBit,
			vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutShaderReadOnlyOptimal,
			vk.PipelineStageTransferBit, vk.PipelineStageFragmentShaderBit)
		return nil
	})
}

// allocBinding allocates a descriptor set for a caller owned view and
// sampler pair.
func (g *gpuTransfer) allocBinding(view vk.ImageView, sampler vk.Sampler) (vk.DescriptorSet, error) {
	set, err := g.descPool.Allocate(g.setLayout)
	if err != nil {
		return vk.NullDescriptorSet, fmt.Errorf("unable to allocate user texture descriptor set: %w", err)
	}
	g.device.WriteCombinedImageSampler(set, view, sampler)
	return set, nil
}

// freeBinding returns a user texture descriptor set to the pool.
func (g *gpuTransfer) freeBinding(set vk.DescriptorSet) error {
	return g.descPool.Free(set)
}

// destroyTexture tears a texture down in dependency order: the descriptor
// set referencing the view, the view referencing the image, then the image
// and its memory. Callers guarantee the GPU is done with it.
func (g *gpuTransfer) destroyTexture(t *gpuTexture) {
	if err := g.descPool.Free(t.set); err != nil {
		g.log.Warn("unable to free texture descriptor set", "err", err)
	}
	t.view.Destroy()
	t.image.Destroy()
	g.alloc.Free(t.allocation)
}
