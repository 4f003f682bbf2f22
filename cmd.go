package vkgui

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"
)

// CommandPool wraps a vulkan command pool on the backend's queue family.
type CommandPool struct {
	Device        *Device
	VKCommandPool vk.CommandPool
}

// CreateCommandPool creates a transient, resettable command pool for the
// given queue family.
func (d *Device) CreateCommandPool(queueFamilyIndex uint32) (*CommandPool, error) {
	var commandPoolCreateInfo = vk.CommandPoolCreateInfo{}
	commandPoolCreateInfo.SType = vk.StructureTypeCommandPoolCreateInfo
	commandPoolCreateInfo.Flags = vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit | vk.CommandPoolCreateTransientBit)
	commandPoolCreateInfo.QueueFamilyIndex = queueFamilyIndex

	var commandPool vk.CommandPool
	err := vk.Error(vk.CreateCommandPool(d.VKDevice, &commandPoolCreateInfo, nil, &commandPool))
	if err != nil {
		return nil, err
	}

	var ret CommandPool
	ret.Device = d
	ret.VKCommandPool = commandPool

	return &ret, nil
}

// AllocateBuffer allocates one primary command buffer from the pool.
func (c *CommandPool) AllocateBuffer() (*CommandBuffer, error) {
	var commandBufferAllocateInfo = vk.CommandBufferAllocateInfo{}
	commandBufferAllocateInfo.SType = vk.StructureTypeCommandBufferAllocateInfo
	commandBufferAllocateInfo.CommandPool = c.VKCommandPool
	commandBufferAllocateInfo.Level = vk.CommandBufferLevelPrimary
	commandBufferAllocateInfo.CommandBufferCount = 1

	cmdBuffers := make([]vk.CommandBuffer, 1)
	err := vk.Error(vk.AllocateCommandBuffers(c.Device.VKDevice, &commandBufferAllocateInfo, cmdBuffers))
	if err != nil {
		return nil, err
	}

	return &CommandBuffer{VKCommandBuffer: cmdBuffers[0]}, nil
}

// FreeBuffer returns a command buffer to the pool.
func (c *CommandPool) FreeBuffer(b *CommandBuffer) {
	vk.FreeCommandBuffers(c.Device.VKDevice, c.VKCommandPool, 1, []vk.CommandBuffer{b.VKCommandBuffer})
}

// Destroy destroys the pool and all buffers allocated from it.
func (c *CommandPool) Destroy() {
	vk.DestroyCommandPool(c.Device.VKDevice, c.VKCommandPool, nil)
}

// CommandBuffer wraps a vulkan command buffer. Only the commands the
// backend records are wrapped; Paint receives one of these from the host.
type CommandBuffer struct {
	VKCommandBuffer vk.CommandBuffer
}

// WrapCommandBuffer wraps a command buffer owned by the host so the
// backend can record into it.
func WrapCommandBuffer(cmd vk.CommandBuffer) *CommandBuffer {
	return &CommandBuffer{VKCommandBuffer: cmd}
}

// VK is a utility function for accessing the native vulkan command buffer.
func (c *CommandBuffer) VK() vk.CommandBuffer {
	return c.VKCommandBuffer
}

// BeginOneTime begins recording with the one time submit stipulation.
func (c *CommandBuffer) BeginOneTime() error {
	var beginInfo = vk.CommandBufferBeginInfo{}
	beginInfo.SType = vk.StructureTypeCommandBufferBeginInfo
	beginInfo.Flags = vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit)
	return vk.Error(vk.BeginCommandBuffer(c.VKCommandBuffer, &beginInfo))
}

// End finishes recording.
func (c *CommandBuffer) End() error {
	return vk.Error(vk.EndCommandBuffer(c.VKCommandBuffer))
}

// Reset resets the buffer for rerecording.
func (c *CommandBuffer) Reset() error {
	return vk.Error(vk.ResetCommandBuffer(c.VKCommandBuffer, 0))
}

// InsertImageBarrier records a single image memory barrier covering the
// whole color subresource of the image.
func (c *CommandBuffer) InsertImageBarrier(image vk.Image,
	srcAccess, dstAccess vk.AccessFlagBits,
	oldLayout, newLayout vk.ImageLayout,
	srcStage, dstStage vk.PipelineStageFlagBits) {

	var barrier = vk.ImageMemoryBarrier{}
	barrier.SType = vk.StructureTypeImageMemoryBarrier
	barrier.SrcAccessMask = vk.AccessFlags(srcAccess)
	barrier.DstAccessMask = vk.AccessFlags(dstAccess)
	barrier.OldLayout = oldLayout
	barrier.NewLayout = newLayout
	barrier.SrcQueueFamilyIndex = vk.QueueFamilyIgnored
	barrier.DstQueueFamilyIndex = vk.QueueFamilyIgnored
	barrier.Image = image
	barrier.SubresourceRange.AspectMask = vk.ImageAspectFlags(vk.ImageAspectColorBit)
	barrier.SubresourceRange.BaseMipLevel = 0
	barrier.SubresourceRange.LevelCount = 1
	barrier.SubresourceRange.BaseArrayLayer = 0
	barrier.SubresourceRange.LayerCount = 1

	vk.CmdPipelineBarrier(c.VKCommandBuffer,
		vk.PipelineStageFlags(srcStage), vk.PipelineStageFlags(dstStage),
		0, 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{barrier})
}

// CopyBufferToImage copies the buffer's contents into the image, which
// must be in the transfer destination layout.
func (c *CommandBuffer) CopyBufferToImage(buffer *Buffer, image *Image) {
	vk.CmdCopyBufferToImage(c.VKCommandBuffer, buffer.VKBuffer, image.VKImage, vk.ImageLayoutTransferDstOptimal, 1, []vk.BufferImageCopy{
		{
			BufferOffset:      0,
			BufferRowLength:   image.Extent.Width,
			BufferImageHeight: image.Extent.Height,
			ImageSubresource: vk.ImageSubresourceLayers{
				AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
				MipLevel:       0,
				BaseArrayLayer: 0,
				LayerCount:     1,
			},
			ImageOffset: vk.Offset3D{},
			ImageExtent: vk.Extent3D{
				Width: image.Extent.Width, Height: image.Extent.Height, Depth: 1,
			},
		},
	})
}

// BlitImage copies the whole source image into the destination at the
// given offset, without filtering. Source must be in the transfer source
// layout, destination in the transfer destination layout.
func (c *CommandBuffer) BlitImage(src, dst *Image, dstX, dstY int32) {
	layers := vk.ImageSubresourceLayers{
		AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
		MipLevel:       0,
		BaseArrayLayer: 0,
		LayerCount:     1,
	}
	region := vk.ImageBlit{
		SrcSubresource: layers,
		SrcOffsets: [2]vk.Offset3D{
			{},
			{X: int32(src.Extent.Width), Y: int32(src.Extent.Height), Z: 1},
		},
		DstSubresource: layers,
		DstOffsets: [2]vk.Offset3D{
			{X: dstX, Y: dstY},
			{X: dstX + int32(src.Extent.Width), Y: dstY + int32(src.Extent.Height), Z: 1},
		},
	}
	vk.CmdBlitImage(c.VKCommandBuffer,
		src.VKImage, vk.ImageLayoutTransferSrcOptimal,
		dst.VKImage, vk.ImageLayoutTransferDstOptimal,
		1, []vk.ImageBlit{region}, vk.FilterNearest)
}

// Fence wraps a vulkan fence.
type Fence struct {
	Device  *Device
	VKFence vk.Fence
}

// CreateFence creates an unsignaled fence.
func (d *Device) CreateFence() (*Fence, error) {
	var fenceCreateInfo = vk.FenceCreateInfo{}
	fenceCreateInfo.SType = vk.StructureTypeFenceCreateInfo

	var fence vk.Fence
	err := vk.Error(vk.CreateFence(d.VKDevice, &fenceCreateInfo, nil, &fence))
	if err != nil {
		return nil, err
	}

	var ret Fence
	ret.Device = d
	ret.VKFence = fence
	return &ret, nil
}

// Wait blocks until the fence signals. There is no timeout; on a lost
// device this never returns.
func (f *Fence) Wait() error {
	return vk.Error(vk.WaitForFences(f.Device.VKDevice, 1, []vk.Fence{f.VKFence}, vk.True, vk.MaxUint64))
}

// Reset returns the fence to the unsignaled state.
func (f *Fence) Reset() error {
	return vk.Error(vk.ResetFences(f.Device.VKDevice, 1, []vk.Fence{f.VKFence}))
}

// Destroy destroys the fence.
func (f *Fence) Destroy() {
	vk.DestroyFence(f.Device.VKDevice, f.VKFence, nil)
}

// oneShot runs record against a fresh one time command buffer, submits it
// and waits for its fence. This is the blocking transfer path used for
// texture uploads; see the package documentation for why it is
// synchronous.
func oneShot(pool *CommandPool, queue *Queue, record func(cmd *CommandBuffer) error) error {
	cmd, err := pool.AllocateBuffer()
	if err != nil {
		return fmt.Errorf("unable to allocate transfer command buffer: %w", err)
	}
	defer pool.FreeBuffer(cmd)

	fence, err := pool.Device.CreateFence()
	if err != nil {
		return fmt.Errorf("unable to create transfer fence: %w", err)
	}
	defer fence.Destroy()

	err = cmd.BeginOneTime()
	if err != nil {
		return err
	}
	err = record(cmd)
	if err != nil {
		return err
	}
	err = cmd.End()
	if err != nil {
		return err
	}

	err = queue.SubmitWithFence(fence, cmd)
	if err != nil {
		return fmt.Errorf("unable to submit transfer: %w", err)
	}

	return fence.Wait()
}
