package vkgui

import (
	vk "github.com/vulkan-go/vulkan"
)

// uiDescriptorCapacity bounds how many textures can be live at once. One
// descriptor set is allocated per texture.
const uiDescriptorCapacity = 1024

// DescriptorSetLayout describes the single binding every UI texture uses:
// one combined image sampler visible to the fragment stage.
type DescriptorSetLayout struct {
	Device                *Device
	VKDescriptorSetLayout vk.DescriptorSetLayout
}

// CreateUIDescriptorSetLayout creates the shared texture set layout.
func (d *Device) CreateUIDescriptorSetLayout() (*DescriptorSetLayout, error) {
	var descriptorSetLayoutCreateInfo = vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: 1,
		PBindings: []vk.DescriptorSetLayoutBinding{
			{
				Binding:         0,
				DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
				DescriptorCount: 1,
				StageFlags:      vk.ShaderStageFlags(vk.ShaderStageFragmentBit),
			},
		},
	}

	var descriptorSetLayout vk.DescriptorSetLayout
	err := vk.Error(vk.CreateDescriptorSetLayout(d.VKDevice, &descriptorSetLayoutCreateInfo, nil, &descriptorSetLayout))
	if err != nil {
		return nil, err
	}

	var ret DescriptorSetLayout
	ret.Device = d
	ret.VKDescriptorSetLayout = descriptorSetLayout

	return &ret, nil
}

// Destroy destroys this descriptor set layout.
func (l *DescriptorSetLayout) Destroy() {
	vk.DestroyDescriptorSetLayout(l.Device.VKDevice, l.VKDescriptorSetLayout, nil)
}

// DescriptorPool hands out one descriptor set per texture. Sets are freed
// individually as textures die, so the pool is created with the free
// descriptor set bit.
type DescriptorPool struct {
	Device           *Device
	VKDescriptorPool vk.DescriptorPool
}

// CreateUIDescriptorPool creates the texture descriptor pool.
func (d *Device) CreateUIDescriptorPool() (*DescriptorPool, error) {
	var descriptorPoolCreateInfo = vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       uiDescriptorCapacity,
		Flags:         vk.DescriptorPoolCreateFlags(vk.DescriptorPoolCreateFreeDescriptorSetBit),
		PoolSizeCount: 1,
		PPoolSizes: []vk.DescriptorPoolSize{
			{
				Type:            vk.DescriptorTypeCombinedImageSampler,
				DescriptorCount: uiDescriptorCapacity,
			},
		},
	}

	var descriptorPool vk.DescriptorPool
	err := vk.Error(vk.CreateDescriptorPool(d.VKDevice, &descriptorPoolCreateInfo, nil, &descriptorPool))
	if err != nil {
		return nil, err
	}

	var ret DescriptorPool
	ret.Device = d
	ret.VKDescriptorPool = descriptorPool

	return &ret, nil
}

// Allocate allocates one descriptor set with the given layout.
func (p *DescriptorPool) Allocate(layout *DescriptorSetLayout) (vk.DescriptorSet, error) {
	var descriptorSetAllocateInfo = vk.DescriptorSetAllocateInfo{}
	descriptorSetAllocateInfo.SType = vk.StructureTypeDescriptorSetAllocateInfo
	descriptorSetAllocateInfo.DescriptorPool = p.VKDescriptorPool
	descriptorSetAllocateInfo.DescriptorSetCount = 1
	descriptorSetAllocateInfo.PSetLayouts = []vk.DescriptorSetLayout{layout.VKDescriptorSetLayout}

	var descriptorSet vk.DescriptorSet
	err := vk.Error(vk.AllocateDescriptorSets(p.Device.VKDevice, &descriptorSetAllocateInfo, &descriptorSet))
	if err != nil {
		return vk.NullDescriptorSet, err
	}
	return descriptorSet, nil
}

// Free returns a descriptor set to the pool.
func (p *DescriptorPool) Free(set vk.DescriptorSet) error {
	return vk.Error(vk.FreeDescriptorSets(p.Device.VKDevice, p.VKDescriptorPool, 1, &set))
}

// Destroy destroys the pool and every set allocated from it.
func (p *DescriptorPool) Destroy() {
	vk.DestroyDescriptorPool(p.Device.VKDevice, p.VKDescriptorPool, nil)
}

// WriteCombinedImageSampler points the set's binding 0 at the given view
// and sampler. The view must be in the shader read only layout whenever
// the set is bound.
func (d *Device) WriteCombinedImageSampler(set vk.DescriptorSet, view vk.ImageView, sampler vk.Sampler) {
	var descriptorImageInfo = vk.DescriptorImageInfo{}
	descriptorImageInfo.ImageView = view
	descriptorImageInfo.ImageLayout = vk.ImageLayoutShaderReadOnlyOptimal
	descriptorImageInfo.Sampler = sampler

	var writeDescriptorSet = vk.WriteDescriptorSet{}
	writeDescriptorSet.SType = vk.StructureTypeWriteDescriptorSet
	writeDescriptorSet.DstSet = set
	writeDescriptorSet.DstBinding = 0
	writeDescriptorSet.DescriptorCount = 1
	writeDescriptorSet.DescriptorType = vk.DescriptorTypeCombinedImageSampler
	writeDescriptorSet.PImageInfo = []vk.DescriptorImageInfo{descriptorImageInfo}

	vk.UpdateDescriptorSets(d.VKDevice, 1, []vk.WriteDescriptorSet{writeDescriptorSet}, 0, nil)
}
