package vkgui

import (
	"errors"
	"fmt"
	"log/slog"
	"unsafe"

	vk "github.com/vulkan-go/vulkan"
)

// defaultMaxTextureSide caps user texture dimensions when the host does
// not supply a limit from its physical device properties.
const defaultMaxTextureSide = 4096

// Config carries everything the backend needs from the host. The device,
// queue and swapchain images remain owned by the host; the backend only
// creates objects on them.
type Config struct {
	// Device is the host's logical device.
	Device vk.Device

	// PhysicalDevice is used to pick memory types when Allocator is nil.
	PhysicalDevice vk.PhysicalDevice

	// Queue must support graphics and transfer work. QueueFamilyIndex is
	// the family it was created from.
	Queue            vk.Queue
	QueueFamilyIndex uint32

	// Allocator supplies device memory. Leave nil to use a
	// DedicatedAllocator over PhysicalDevice.
	Allocator Allocator

	// Presentation surface parameters at construction time.
	SurfaceWidth    uint32
	SurfaceHeight   uint32
	SurfaceFormat   vk.Format
	SwapchainImages []vk.Image

	// ScaleFactor converts UI points to physical pixels. Defaults to 1.
	ScaleFactor float32

	// MaxTextureSide bounds user texture dimensions. Defaults to 4096.
	MaxTextureSide int

	// VertexShader and FragmentShader are the offline compiled SPIR-V
	// blobs for the UI pipeline.
	VertexShader   []byte
	FragmentShader []byte

	// Logger receives stale handle warnings and misuse reports. Defaults
	// to slog.Default().
	Logger *slog.Logger
}

// Backend is a per frame GPU resource manager and draw command recorder
// for an immediate mode UI. One instance serves one UI context drawing to
// one presentation surface. All methods must be called from the single
// render thread; see the package documentation for the frame protocol.
type Backend struct {
	log   *slog.Logger
	scale float32

	device *Device
	queue  *Queue
	alloc  Allocator

	maxTextureSide int

	cmdPool   *CommandPool
	sampler   vk.Sampler
	descPool  *DescriptorPool
	setLayout *DescriptorSetLayout
	vert      *ShaderModule
	frag      *ShaderModule

	transfer *gpuTransfer
	cache    *textureCache
	users    *userRegistry
	frames   *framePool

	pipeline     *Pipeline
	surface      SurfaceState
	views        []*ImageView
	framebuffers []vk.Framebuffer
}

// New constructs a backend. Any failure is fatal; a partially constructed
// backend is torn down before returning.
func New(config Config) (*Backend, error) {
	if config.Device == nil {
		return nil, errors.New("config: Device is required")
	}
	if config.Queue == nil {
		return nil, errors.New("config: Queue is required")
	}
	if len(config.SwapchainImages) == 0 {
		return nil, errors.New("config: at least one swapchain image is required")
	}
	if len(config.VertexShader) == 0 || len(config.FragmentShader) == 0 {
		return nil, errors.New("config: vertex and fragment shader blobs are required")
	}

	b := &Backend{
		log:            config.Logger,
		scale:          config.ScaleFactor,
		maxTextureSide: config.MaxTextureSide,
	}
	if b.log == nil {
		b.log = slog.Default()
	}
	if b.scale <= 0 {
		b.scale = 1
	}
	if b.maxTextureSide <= 0 {
		b.maxTextureSide = defaultMaxTextureSide
	}

	b.device = NewDevice(config.Device)
	b.queue = NewQueue(b.device, config.QueueFamilyIndex, config.Queue)

	b.alloc = config.Allocator
	if b.alloc == nil {
		if config.PhysicalDevice == nil {
			return nil, errors.New("config: PhysicalDevice is required when Allocator is nil")
		}
		b.alloc = NewDedicatedAllocator(b.device, config.PhysicalDevice)
	}

	var err error
	fail := func(err error) (*Backend, error) {
		b.Destroy()
		return nil, err
	}

	b.cmdPool, err = b.device.CreateCommandPool(config.QueueFamilyIndex)
	if err != nil {
		return fail(fmt.Errorf("unable to create command pool: %w", err))
	}

	b.sampler, err = b.device.CreateUISampler()
	if err != nil {
		return fail(fmt.Errorf("unable to create sampler: %w", err))
	}

	b.descPool, err = b.device.CreateUIDescriptorPool()
	if err != nil {
		return fail(fmt.Errorf("unable to create descriptor pool: %w", err))
	}

	b.setLayout, err = b.device.CreateUIDescriptorSetLayout()
	if err != nil {
		return fail(fmt.Errorf("unable to create descriptor set layout: %w", err))
	}

	b.vert, err = b.device.CreateShaderModule(config.VertexShader)
	if err != nil {
		return fail(fmt.Errorf("unable to create vertex shader: %w", err))
	}
	b.frag, err = b.device.CreateShaderModule(config.FragmentShader)
	if err != nil {
		return fail(fmt.Errorf("unable to create fragment shader: %w", err))
	}

	b.transfer = &gpuTransfer{
		log:       b.log,
		device:    b.device,
		alloc:     b.alloc,
		pool:      b.cmdPool,
		queue:     b.queue,
		sampler:   b.sampler,
		descPool:  b.descPool,
		setLayout: b.setLayout,
	}
	b.cache = newTextureCache(b.log, b.transfer)
	b.users = newUserRegistry(b.log, b.transfer)

	b.frames, err = newFramePool(b.device, b.alloc, len(config.SwapchainImages))
	if err != nil {
		return fail(err)
	}

	err = b.buildSurface(config.SurfaceWidth, config.SurfaceHeight, config.SwapchainImages, config.SurfaceFormat)
	if err != nil {
		return fail(err)
	}

	return b, nil
}

// SetScaleFactor updates the point to pixel ratio, typically after the
// window moved to a monitor with a different DPI.
func (b *Backend) SetScaleFactor(scale float32) {
	if scale <= 0 {
		b.log.Warn("ignoring non positive scale factor", "scale", scale)
		return
	}
	b.scale = scale
}

// ScaleFactor returns the current point to pixel ratio.
func (b *Backend) ScaleFactor() float32 {
	return b.scale
}

// RegisterUserTexture binds a caller owned image view and sampler and
// returns the texture ID primitives can reference. The view must stay in
// the shader read only layout and both objects must outlive the
// registration.
func (b *Backend) RegisterUserTexture(view vk.ImageView, sampler vk.Sampler) (TextureID, error) {
	return b.users.register(view, sampler)
}

// UnregisterUserTexture releases a user texture binding. The caller must
// guarantee no in flight draws still reference it. Passing a managed ID
// is an error and a no-op.
func (b *Backend) UnregisterUserTexture(id TextureID) error {
	return b.users.unregister(id)
}

// TextureCount reports how many managed textures are live.
func (b *Backend) TextureCount() int {
	return b.cache.len()
}

// resolveBinding maps a texture ID to its descriptor set, whichever table
// owns it.
func (b *Backend) resolveBinding(id TextureID) (vk.DescriptorSet, bool) {
	if id.Kind == TextureUser {
		return b.users.binding(id)
	}
	return b.cache.binding(id)
}

// Paint is the per frame entry point. It applies the delta's texture
// creations and patches (blocking on their transfer fences), records the
// frame's draws into cmd against the framebuffer for imageIndex, and then
// applies the delta's frees. Frees run last so draws recorded this frame
// may still reference a texture being freed.
//
// cmd must be in the recording state and imageIndex must be the
// presentation image the host acquired for this frame. The caller must
// guarantee the GPU is done reading imageIndex's geometry buffers from
// their previous use.
func (b *Backend) Paint(cmd *CommandBuffer, imageIndex int, prims []Primitive, delta TexturesDelta) error {
	if imageIndex < 0 || imageIndex >= b.frames.count() {
		return fmt.Errorf("image index %d out of range (%d images)", imageIndex, b.frames.count())
	}

	if err := b.cache.applySets(delta.Set); err != nil {
		return err
	}

	slot := b.frames.slot(imageIndex)
	vertices := newWriteCursor(slot.vertexBuffer.Bytes())
	indices := newWriteCursor(slot.indexBuffer.Bytes())

	draws, err := buildDraws(prims, b.scale, b.surface.Width, b.surface.Height,
		vertices, indices, b.resolveBinding, b.log)
	if err != nil {
		return err
	}

	b.recordDraws(cmd, imageIndex, slot, draws)

	b.cache.applyFrees(delta.Free)
	return nil
}

// recordDraws emits the render pass for one frame: full surface viewport,
// logical size push constants, then one scissored indexed draw per
// command, strictly in order.
func (b *Backend) recordDraws(cmd *CommandBuffer, imageIndex int, slot *frameSlot, draws []drawCommand) {
	beginInfo := vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  b.pipeline.VKRenderPass,
		Framebuffer: b.framebuffers[imageIndex],
		RenderArea: vk.Rect2D{
			Extent: vk.Extent2D{Width: b.surface.Width, Height: b.surface.Height},
		},
	}
	vk.CmdBeginRenderPass(cmd.VKCommandBuffer, &beginInfo, vk.SubpassContentsInline)

	vk.CmdBindPipeline(cmd.VKCommandBuffer, vk.PipelineBindPointGraphics, b.pipeline.VKPipeline)
	vk.CmdBindVertexBuffers(cmd.VKCommandBuffer, 0, 1, []vk.Buffer{slot.vertexBuffer.VKBuffer}, []vk.DeviceSize{0})
	vk.CmdBindIndexBuffer(cmd.VKCommandBuffer, slot.indexBuffer.VKBuffer, 0, vk.IndexTypeUint32)

	vk.CmdSetViewport(cmd.VKCommandBuffer, 0, 1, []vk.Viewport{
		{
			Width:    float32(b.surface.Width),
			Height:   float32(b.surface.Height),
			MaxDepth: 1,
		},
	})

	// The vertex shader maps UI points to clip space from the logical
	// surface size.
	logical := [2]float32{
		float32(b.surface.Width) / b.scale,
		float32(b.surface.Height) / b.scale,
	}
	vk.CmdPushConstants(cmd.VKCommandBuffer, b.pipeline.VKPipelineLayout,
		vk.ShaderStageFlags(vk.ShaderStageVertexBit), 0, pushConstantSize, unsafe.Pointer(&logical))

	for i := range draws {
		d := &draws[i]
		vk.CmdBindDescriptorSets(cmd.VKCommandBuffer, vk.PipelineBindPointGraphics,
			b.pipeline.VKPipelineLayout, 0, 1, []vk.DescriptorSet{d.set}, 0, nil)
		vk.CmdSetScissor(cmd.VKCommandBuffer, 0, 1, []vk.Rect2D{d.scissor})
		vk.CmdDrawIndexed(cmd.VKCommandBuffer, d.indexCount, 1, d.firstIndex, d.baseVertex, 0)
	}

	vk.CmdEndRenderPass(cmd.VKCommandBuffer)
}

// Destroy releases every GPU object the backend owns. The caller must
// guarantee no in flight GPU work references them, typically by waiting
// for the device to idle first. Safe to call on a partially constructed
// backend.
func (b *Backend) Destroy() {
	b.teardownSurface()

	if b.frames != nil {
		b.frames.destroy()
		b.frames = nil
	}
	if b.cache != nil {
		b.cache.destroy()
		b.cache = nil
	}
	if b.users != nil {
		b.users.destroy()
		b.users = nil
	}

	if b.frag != nil {
		b.frag.Destroy()
		b.frag = nil
	}
	if b.vert != nil {
		b.vert.Destroy()
		b.vert = nil
	}
	if b.setLayout != nil {
		b.setLayout.Destroy()
		b.setLayout = nil
	}
	if b.descPool != nil {
		b.descPool.Destroy()
		b.descPool = nil
	}
	if b.sampler != vk.NullSampler {
		vk.DestroySampler(b.device.VKDevice, b.sampler, nil)
		b.sampler = vk.NullSampler
	}
	if b.cmdPool != nil {
		b.cmdPool.Destroy()
		b.cmdPool = nil
	}
}
