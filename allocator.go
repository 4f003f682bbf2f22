package vkgui

import (
	"fmt"
	"unsafe"

	vk "github.com/vulkan-go/vulkan"
)

// MemoryLocation hints where an allocation should live.
type MemoryLocation int

const (
	// MemoryCPUToGPU is host visible memory the CPU writes and the GPU
	// reads: staging buffers and the per frame geometry buffers.
	MemoryCPUToGPU MemoryLocation = iota
	// MemoryGPUOnly is device local memory: texture images.
	MemoryGPUOnly
)

// Allocation is one block of device memory handed out by an Allocator.
// Ptr is non nil for host visible allocations, which stay persistently
// mapped for their whole lifetime.
type Allocation struct {
	VKDeviceMemory vk.DeviceMemory
	Offset         uint64
	Size           uint64
	Ptr            unsafe.Pointer
}

// Bytes returns the mapped memory as a writable byte slice, or nil if the
// allocation is not host visible.
func (a *Allocation) Bytes() []byte {
	if a.Ptr == nil {
		return nil
	}
	return toBytes(a.Ptr, int(a.Size))
}

// Allocator is the capability the backend requires from the host's memory
// allocator. The backend never allocates device memory directly, so hosts
// using a pooling or suballocating strategy can supply their own
// implementation. When mapped is true the returned allocation must be host
// visible and persistently mapped.
type Allocator interface {
	Allocate(requirements vk.MemoryRequirements, location MemoryLocation, mapped bool) (*Allocation, error)
	Free(a *Allocation) error
}

// DedicatedAllocator is the simplest possible Allocator: every request
// becomes its own vkAllocateMemory call. Fine for the handful of long
// lived allocations this package makes; hosts with real allocation
// traffic should bring their own.
type DedicatedAllocator struct {
	Device           *Device
	VKPhysicalDevice vk.PhysicalDevice
}

// NewDedicatedAllocator creates an allocator backed by direct device
// allocations.
func NewDedicatedAllocator(d *Device, physicalDevice vk.PhysicalDevice) *DedicatedAllocator {
	return &DedicatedAllocator{Device: d, VKPhysicalDevice: physicalDevice}
}

func (da *DedicatedAllocator) findMemoryType(memoryTypeBits uint32, properties vk.MemoryPropertyFlagBits) (uint32, error) {
	var memoryProperties vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(da.VKPhysicalDevice, &memoryProperties)
	mp := &memoryProperties
	mp.Deref()

	var i uint32
	for i = 0; i < mp.MemoryTypeCount; i++ {
		mt := mp.MemoryTypes[i]
		mt.Deref()
		if memoryTypeBits&(1<<i) != 0 &&
			vk.MemoryPropertyFlagBits(mt.PropertyFlags)&properties == properties {
			return i, nil
		}
	}
	return 0, fmt.Errorf("no matching memory type found")
}

// Allocate satisfies Allocator.
func (da *DedicatedAllocator) Allocate(requirements vk.MemoryRequirements, location MemoryLocation, mapped bool) (*Allocation, error) {
	props := vk.MemoryPropertyFlagBits(vk.MemoryPropertyDeviceLocalBit)
	if location == MemoryCPUToGPU {
		props = vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit
	}

	memoryTypeIndex, err := da.findMemoryType(requirements.MemoryTypeBits, props)
	if err != nil {
		return nil, err
	}

	var allocateInfo = vk.MemoryAllocateInfo{}
	allocateInfo.SType = vk.StructureTypeMemoryAllocateInfo
	allocateInfo.AllocationSize = requirements.Size
	allocateInfo.MemoryTypeIndex = memoryTypeIndex

	var deviceMemory vk.DeviceMemory
	err = vk.Error(vk.AllocateMemory(da.Device.VKDevice, &allocateInfo, nil, &deviceMemory))
	if err != nil {
		return nil, fmt.Errorf("unable to allocate %d bytes of device memory: %w", uint64(requirements.Size), err)
	}

	a := &Allocation{
		VKDeviceMemory: deviceMemory,
		Offset:         0,
		Size:           uint64(requirements.Size),
	}

	if mapped {
		var ptr unsafe.Pointer
		err = vk.Error(vk.MapMemory(da.Device.VKDevice, deviceMemory, 0, requirements.Size, 0, &ptr))
		if err != nil {
			vk.FreeMemory(da.Device.VKDevice, deviceMemory, nil)
			return nil, fmt.Errorf("unable to map allocation: %w", err)
		}
		a.Ptr = ptr
	}

	return a, nil
}

// Free satisfies Allocator. Mapped allocations are unmapped implicitly by
// freeing the memory.
func (da *DedicatedAllocator) Free(a *Allocation) error {
	if a == nil {
		return nil
	}
	vk.FreeMemory(da.Device.VKDevice, a.VKDeviceMemory, nil)
	a.Ptr = nil
	return nil
}
