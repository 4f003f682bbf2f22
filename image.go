package vkgui

import (
	vk "github.com/vulkan-go/vulkan"
)

// Image wraps a vulkan image and its creation parameters.
type Image struct {
	Device   *Device
	VKImage  vk.Image
	VKFormat vk.Format
	Extent   vk.Extent2D
}

// CreateImage creates a 2D single level, single layer image.
func (d *Device) CreateImage(extent vk.Extent2D, format vk.Format, usage vk.ImageUsageFlags) (*Image, error) {
	var imageInfo = vk.ImageCreateInfo{}
	imageInfo.SType = vk.StructureTypeImageCreateInfo
	imageInfo.ImageType = vk.ImageType2d
	imageInfo.Extent.Width = extent.Width
	imageInfo.Extent.Height = extent.Height
	imageInfo.Extent.Depth = 1
	imageInfo.MipLevels = 1
	imageInfo.ArrayLayers = 1
	imageInfo.Format = format
	imageInfo.Tiling = vk.ImageTilingOptimal
	imageInfo.InitialLayout = vk.ImageLayoutUndefined
	imageInfo.Usage = usage
	imageInfo.Samples = vk.SampleCount1Bit
	imageInfo.SharingMode = vk.SharingModeExclusive

	var image vk.Image
	err := vk.Error(vk.CreateImage(d.VKDevice, &imageInfo, nil, &image))
	if err != nil {
		return nil, err
	}

	var ret Image
	ret.Device = d
	ret.VKImage = image
	ret.VKFormat = format
	ret.Extent = extent

	return &ret, nil
}

// VKMemoryRequirements queries the image's memory requirements.
func (i *Image) VKMemoryRequirements() vk.MemoryRequirements {
	var memRequirements vk.MemoryRequirements
	vk.GetImageMemoryRequirements(i.Device.VKDevice, i.VKImage, &memRequirements)
	memRequirements.Deref()
	return memRequirements
}

// BindAllocation binds the image to memory obtained from the allocator.
func (i *Image) BindAllocation(a *Allocation) error {
	return vk.Error(vk.BindImageMemory(i.Device.VKDevice, i.VKImage, a.VKDeviceMemory, vk.DeviceSize(a.Offset)))
}

// Destroy destroys the image. The backing allocation is released
// separately by whoever owns it.
func (i *Image) Destroy() {
	vk.DestroyImage(i.Device.VKDevice, i.VKImage, nil)
}

// ImageView wraps a vulkan image view.
type ImageView struct {
	Device      *Device
	VKImageView vk.ImageView
}

// CreateImageView creates a 2D color view of the image.
func (i *Image) CreateImageView() (*ImageView, error) {
	return i.Device.CreateImageView(i.VKImage, i.VKFormat)
}

// CreateImageView creates a 2D color view of an image the device did not
// necessarily create, such as a presentation image.
func (d *Device) CreateImageView(image vk.Image, format vk.Format) (*ImageView, error) {
	createInfo := &vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    image,
		ViewType: vk.ImageViewType2d,
		Format:   format,
		Components: vk.ComponentMapping{
			R: vk.ComponentSwizzleR,
			G: vk.ComponentSwizzleG,
			B: vk.ComponentSwizzleB,
			A: vk.ComponentSwizzleA,
		},
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
			LevelCount: 1,
			LayerCount: 1,
		},
	}

	var view vk.ImageView
	err := vk.Error(vk.CreateImageView(d.VKDevice, createInfo, nil, &view))
	if err != nil {
		return nil, err
	}

	var ret ImageView
	ret.Device = d
	ret.VKImageView = view

	return &ret, nil
}

// Destroy destroys the image view.
func (v *ImageView) Destroy() {
	vk.DestroyImageView(v.Device.VKDevice, v.VKImageView, nil)
}

// CreateUISampler creates the sampler shared by every UI texture: linear
// filtering, clamp to edge.
func (d *Device) CreateUISampler() (vk.Sampler, error) {
	var sampler vk.Sampler
	err := vk.Error(vk.CreateSampler(d.VKDevice, &vk.SamplerCreateInfo{
		SType:        vk.StructureTypeSamplerCreateInfo,
		MagFilter:    vk.FilterLinear,
		MinFilter:    vk.FilterLinear,
		MipmapMode:   vk.SamplerMipmapModeLinear,
		AddressModeU: vk.SamplerAddressModeClampToEdge,
		AddressModeV: vk.SamplerAddressModeClampToEdge,
		AddressModeW: vk.SamplerAddressModeClampToEdge,
		MinLod:       0,
		MaxLod:       0,
	}, nil, &sampler))
	if err != nil {
		return vk.NullSampler, err
	}
	return sampler, nil
}
