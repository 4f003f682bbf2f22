package vkgui

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"
)

// pushConstantSize is the size of the push constant block: the logical
// screen width and height as two float32s, consumed by the vertex stage.
const pushConstantSize = 8

// Pipeline bundles the render pass, pipeline layout and graphics pipeline
// used to draw the UI. It is rebuilt whenever the presentation surface
// changes, since the render pass is tied to the surface format.
type Pipeline struct {
	Device           *Device
	VKRenderPass     vk.RenderPass
	VKPipelineLayout vk.PipelineLayout
	VKPipeline       vk.Pipeline
}

// CreateUIRenderPass creates a render pass with a single color attachment
// in the given surface format. Existing contents are loaded, so the UI
// composites over whatever the host rendered earlier in the frame, and the
// image ends up ready for presentation.
func (d *Device) CreateUIRenderPass(format vk.Format) (vk.RenderPass, error) {
	attachment := vk.AttachmentDescription{
		Format:         format,
		Samples:        vk.SampleCount1Bit,
		LoadOp:         vk.AttachmentLoadOpLoad,
		StoreOp:        vk.AttachmentStoreOpStore,
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		InitialLayout:  vk.ImageLayoutColorAttachmentOptimal,
		FinalLayout:    vk.ImageLayoutPresentSrc,
	}

	colorRef := vk.AttachmentReference{
		Attachment: 0,
		Layout:     vk.ImageLayoutColorAttachmentOptimal,
	}

	subpass := vk.SubpassDescription{
		PipelineBindPoint:    vk.PipelineBindPointGraphics,
		ColorAttachmentCount: 1,
		PColorAttachments:    []vk.AttachmentReference{colorRef},
	}

	dependency := vk.SubpassDependency{
		SrcSubpass:    vk.SubpassExternal,
		DstSubpass:    0,
		SrcStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		DstStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		DstAccessMask: vk.AccessFlags(vk.AccessColorAttachmentWriteBit),
	}

	renderPassCreateInfo := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: 1,
		PAttachments:    []vk.AttachmentDescription{attachment},
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
		DependencyCount: 1,
		PDependencies:   []vk.SubpassDependency{dependency},
	}

	var renderPass vk.RenderPass
	err := vk.Error(vk.CreateRenderPass(d.VKDevice, &renderPassCreateInfo, nil, &renderPass))
	if err != nil {
		return vk.NullRenderPass, err
	}
	return renderPass, nil
}

// uiVertexBindings describes the vertex layout of Vertex: position and UV
// as float pairs, premultiplied color as four unorm bytes.
func uiVertexBindings() ([]vk.VertexInputBindingDescription, []vk.VertexInputAttributeDescription) {
	bindings := []vk.VertexInputBindingDescription{
		{
			Binding:   0,
			Stride:    uint32(vertexStride),
			InputRate: vk.VertexInputRateVertex,
		},
	}
	attributes := []vk.VertexInputAttributeDescription{
		{Location: 0, Binding: 0, Format: vk.FormatR32g32Sfloat, Offset: 0},
		{Location: 1, Binding: 0, Format: vk.FormatR32g32Sfloat, Offset: 8},
		{Location: 2, Binding: 0, Format: vk.FormatR8g8b8a8Unorm, Offset: 16},
	}
	return bindings, attributes
}

// CreateUIPipeline builds the UI graphics pipeline against the given
// render pass. Viewport and scissor are dynamic so the pipeline survives
// resizes of the same format; blending expects premultiplied alpha.
func (d *Device) CreateUIPipeline(renderPass vk.RenderPass, setLayout *DescriptorSetLayout, vert, frag *ShaderModule) (*Pipeline, error) {
	layout, err := d.createUIPipelineLayout(setLayout)
	if err != nil {
		return nil, fmt.Errorf("unable to create pipeline layout: %w", err)
	}

	shaderStages := []vk.PipelineShaderStageCreateInfo{
		vert.VKPipelineShaderStageCreateInfo(vk.ShaderStageVertexBit, "main"),
		frag.VKPipelineShaderStageCreateInfo(vk.ShaderStageFragmentBit, "main"),
	}

	bindings, attributes := uiVertexBindings()
	var vertexInputState = vk.PipelineVertexInputStateCreateInfo{}
	vertexInputState.SType = vk.StructureTypePipelineVertexInputStateCreateInfo
	vertexInputState.VertexBindingDescriptionCount = uint32(len(bindings))
	vertexInputState.PVertexBindingDescriptions = bindings
	vertexInputState.VertexAttributeDescriptionCount = uint32(len(attributes))
	vertexInputState.PVertexAttributeDescriptions = attributes

	var inputAssemblyState = vk.PipelineInputAssemblyStateCreateInfo{}
	inputAssemblyState.SType = vk.StructureTypePipelineInputAssemblyStateCreateInfo
	inputAssemblyState.Topology = vk.PrimitiveTopologyTriangleList
	inputAssemblyState.PrimitiveRestartEnable = vk.False

	// Placeholder values; both are dynamic state.
	var viewportState = vk.PipelineViewportStateCreateInfo{}
	viewportState.SType = vk.StructureTypePipelineViewportStateCreateInfo
	viewportState.ViewportCount = 1
	viewportState.PViewports = []vk.Viewport{{Width: 1, Height: 1, MaxDepth: 1}}
	viewportState.ScissorCount = 1
	viewportState.PScissors = []vk.Rect2D{{Extent: vk.Extent2D{Width: 1, Height: 1}}}

	var rasterState = vk.PipelineRasterizationStateCreateInfo{}
	rasterState.SType = vk.StructureTypePipelineRasterizationStateCreateInfo
	rasterState.DepthClampEnable = vk.False
	rasterState.RasterizerDiscardEnable = vk.False
	rasterState.PolygonMode = vk.PolygonModeFill
	rasterState.LineWidth = 1.0
	rasterState.CullMode = vk.CullModeFlags(vk.CullModeNone)
	rasterState.FrontFace = vk.FrontFaceCounterClockwise
	rasterState.DepthBiasEnable = vk.False

	var multisampleState = vk.PipelineMultisampleStateCreateInfo{}
	multisampleState.SType = vk.StructureTypePipelineMultisampleStateCreateInfo
	multisampleState.SampleShadingEnable = vk.False
	multisampleState.RasterizationSamples = vk.SampleCount1Bit

	blendAttachments := []vk.PipelineColorBlendAttachmentState{
		{
			ColorWriteMask:      vk.ColorComponentFlags(vk.ColorComponentRBit | vk.ColorComponentGBit | vk.ColorComponentBBit | vk.ColorComponentABit),
			BlendEnable:         vk.True,
			SrcColorBlendFactor: vk.BlendFactorOne,
			DstColorBlendFactor: vk.BlendFactorOneMinusSrcAlpha,
			ColorBlendOp:        vk.BlendOpAdd,
			SrcAlphaBlendFactor: vk.BlendFactorOne,
			DstAlphaBlendFactor: vk.BlendFactorOneMinusSrcAlpha,
			AlphaBlendOp:        vk.BlendOpAdd,
		},
	}

	var colorBlendState = vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		AttachmentCount: uint32(len(blendAttachments)),
		PAttachments:    blendAttachments,
	}

	dynamicStates := []vk.DynamicState{vk.DynamicStateViewport, vk.DynamicStateScissor}
	dynamicState := vk.PipelineDynamicStateCreateInfo{
		SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
		DynamicStateCount: uint32(len(dynamicStates)),
		PDynamicStates:    dynamicStates,
	}

	pipelineCreateInfo := vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          uint32(len(shaderStages)),
		PStages:             shaderStages,
		PVertexInputState:   &vertexInputState,
		PInputAssemblyState: &inputAssemblyState,
		PViewportState:      &viewportState,
		PRasterizationState: &rasterState,
		PMultisampleState:   &multisampleState,
		PColorBlendState:    &colorBlendState,
		PDynamicState:       &dynamicState,
		Layout:              layout,
		RenderPass:          renderPass,
		Subpass:             0,
	}

	pipelines := make([]vk.Pipeline, 1)
	err = vk.Error(vk.CreateGraphicsPipelines(d.VKDevice, vk.NullPipelineCache, 1, []vk.GraphicsPipelineCreateInfo{pipelineCreateInfo}, nil, pipelines))
	if err != nil {
		vk.DestroyPipelineLayout(d.VKDevice, layout, nil)
		return nil, fmt.Errorf("unable to create graphics pipeline: %w", err)
	}

	var ret Pipeline
	ret.Device = d
	ret.VKRenderPass = renderPass
	ret.VKPipelineLayout = layout
	ret.VKPipeline = pipelines[0]

	return &ret, nil
}

func (d *Device) createUIPipelineLayout(setLayout *DescriptorSetLayout) (vk.PipelineLayout, error) {
	var pipelineLayoutCreateInfo = vk.PipelineLayoutCreateInfo{}
	pipelineLayoutCreateInfo.SType = vk.StructureTypePipelineLayoutCreateInfo
	pipelineLayoutCreateInfo.SetLayoutCount = 1
	pipelineLayoutCreateInfo.PSetLayouts = []vk.DescriptorSetLayout{setLayout.VKDescriptorSetLayout}
	pipelineLayoutCreateInfo.PushConstantRangeCount = 1
	pipelineLayoutCreateInfo.PPushConstantRanges = []vk.PushConstantRange{
		{
			StageFlags: vk.ShaderStageFlags(vk.ShaderStageVertexBit),
			Offset:     0,
			Size:       pushConstantSize,
		},
	}

	var pipelineLayout vk.PipelineLayout
	err := vk.Error(vk.CreatePipelineLayout(d.VKDevice, &pipelineLayoutCreateInfo, nil, &pipelineLayout))
	if err != nil {
		return vk.NullPipelineLayout, err
	}
	return pipelineLayout, nil
}

// Destroy destroys the pipeline, its layout and the render pass.
func (p *Pipeline) Destroy() {
	vk.DestroyPipeline(p.Device.VKDevice, p.VKPipeline, nil)
	vk.DestroyPipelineLayout(p.Device.VKDevice, p.VKPipelineLayout, nil)
	vk.DestroyRenderPass(p.Device.VKDevice, p.VKRenderPass, nil)
}
