package vkgui

import (
	vk "github.com/vulkan-go/vulkan"
)

// Device is a non owning wrapper around the host's logical device. The
// backend never creates or destroys the device itself, it only creates
// objects on it.
type Device struct {
	VKDevice vk.Device
}

// NewDevice wraps an existing logical device.
func NewDevice(device vk.Device) *Device {
	return &Device{VKDevice: device}
}

// WaitIdle blocks until the device has finished all submitted work.
func (d *Device) WaitIdle() {
	vk.DeviceWaitIdle(d.VKDevice)
}

// Queue is a non owning wrapper around a device queue capable of graphics
// and transfer work.
type Queue struct {
	Device      *Device
	FamilyIndex uint32
	VKQueue     vk.Queue
}

// NewQueue wraps an existing queue of the given family.
func NewQueue(d *Device, familyIndex uint32, queue vk.Queue) *Queue {
	return &Queue{Device: d, FamilyIndex: familyIndex, VKQueue: queue}
}

// WaitIdle blocks until the queue has drained.
func (q *Queue) WaitIdle() error {
	return vk.Error(vk.QueueWaitIdle(q.VKQueue))
}

// SubmitWithFence submits the command buffers and signals the fence on
// completion.
func (q *Queue) SubmitWithFence(fence *Fence, buffers ...*CommandBuffer) error {
	b := make([]vk.CommandBuffer, len(buffers))
	for i := range buffers {
		b[i] = buffers[i].VKCommandBuffer
	}

	var submitInfo = vk.SubmitInfo{}
	submitInfo.SType = vk.StructureTypeSubmitInfo
	submitInfo.CommandBufferCount = uint32(len(buffers))
	submitInfo.PCommandBuffers = b

	return vk.Error(vk.QueueSubmit(q.VKQueue, 1, []vk.SubmitInfo{submitInfo}, fence.VKFence))
}
