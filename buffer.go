package vkgui

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"
)

// Buffer wraps a vulkan buffer together with the allocation backing it.
type Buffer struct {
	Device     *Device
	VKBuffer   vk.Buffer
	Size       uint64
	Allocation *Allocation
}

// CreateBuffer creates a buffer of the given size and usage without
// backing memory. Bind it with BindAllocation.
func (d *Device) CreateBuffer(sizeInBytes uint64, usage vk.BufferUsageFlagBits) (*Buffer, error) {
	bufferCreateInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(sizeInBytes),
		Usage:       vk.BufferUsageFlags(usage),
		SharingMode: vk.SharingModeExclusive,
	}

	var buffer vk.Buffer
	err := vk.Error(vk.CreateBuffer(d.VKDevice, &bufferCreateInfo, nil, &buffer))
	if err != nil {
		return nil, err
	}

	var ret Buffer
	ret.VKBuffer = buffer
	ret.Device = d
	ret.Size = sizeInBytes

	return &ret, nil
}

// VKMemoryRequirements queries the buffer's memory requirements.
func (b *Buffer) VKMemoryRequirements() vk.MemoryRequirements {
	var memoryRequirements vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(b.Device.VKDevice, b.VKBuffer, &memoryRequirements)
	memoryRequirements.Deref()
	return memoryRequirements
}

// BindAllocation binds the buffer to memory obtained from the allocator.
func (b *Buffer) BindAllocation(a *Allocation) error {
	err := vk.Error(vk.BindBufferMemory(b.Device.VKDevice, b.VKBuffer, a.VKDeviceMemory, vk.DeviceSize(a.Offset)))
	if err != nil {
		return err
	}
	b.Allocation = a
	return nil
}

// Bytes returns the persistently mapped contents of the buffer, or nil if
// the backing allocation is not host visible. The slice is capped at the
// buffer's declared size; pooling allocators may hand back blocks rounded
// up past the request, and that padding is not part of the buffer.
func (b *Buffer) Bytes() []byte {
	if b.Allocation == nil {
		return nil
	}
	raw := b.Allocation.Bytes()
	if raw == nil {
		return nil
	}
	return raw[:b.Size]
}

// Destroy destroys the buffer and releases its allocation back to the
// allocator.
func (b *Buffer) Destroy(alloc Allocator) {
	vk.DestroyBuffer(b.Device.VKDevice, b.VKBuffer, nil)
	if b.Allocation != nil {
		alloc.Free(b.Allocation)
		b.Allocation = nil
	}
}

// createHostBuffer creates, allocates and binds a persistently mapped host
// visible buffer in one step.
func createHostBuffer(d *Device, alloc Allocator, size uint64, usage vk.BufferUsageFlagBits) (*Buffer, error) {
	b, err := d.CreateBuffer(size, usage)
	if err != nil {
		return nil, fmt.Errorf("unable to create host buffer: %w", err)
	}

	a, err := alloc.Allocate(b.VKMemoryRequirements(), MemoryCPUToGPU, true)
	if err != nil {
		vk.DestroyBuffer(d.VKDevice, b.VKBuffer, nil)
		return nil, fmt.Errorf("unable to allocate host buffer memory: %w", err)
	}

	err = b.BindAllocation(a)
	if err != nil {
		vk.DestroyBuffer(d.VKDevice, b.VKBuffer, nil)
		alloc.Free(a)
		return nil, fmt.Errorf("unable to bind host buffer memory: %w", err)
	}

	return b, nil
}
