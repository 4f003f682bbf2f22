/*
Package vkgui renders the output of an immediate mode UI toolkit with Vulkan.

An immediate mode UI library produces, every frame, an ordered list of
primitives (triangle meshes clipped to a rectangle and bound to a texture)
along with a set of texture deltas (create, patch or free instructions for
the textures the UI references, such as the font atlas). This package owns
every GPU object needed to turn that output into draw commands: per
presentation image vertex and index staging buffers, a cache of UI managed
textures, a registry for application supplied textures, and the pipeline,
sampler and render target state which must be rebuilt whenever the
presentation surface changes.

The package deliberately does not own the render loop. The host application
creates the instance, device, swapchain and synchronization primitives,
acquires a presentation image each frame, and hands this package a command
buffer to record into via Backend.Paint. The host then submits and presents.
When the swapchain is invalidated the host calls Backend.UpdateSurface with
the new images, size and format.

Division of responsibilities per frame:

	1. Host acquires the next presentation image (slot)
	2. UI toolkit builds the frame and emits (primitives, texture delta)
	3. Backend.Paint applies texture set deltas, records the draw
	   commands for the slot, then applies texture frees
	4. Host submits the command buffer and presents

Texture delta application is the only blocking point: new or patched
textures are uploaded through a staging buffer with a one shot command
buffer and the upload fence is waited on before Paint records any draws.
Texture uploads are assumed to be rare relative to draw frames, so the
stall is accepted in exchange for not having to track in flight staging
resources. Draw recording itself never blocks.

Device memory is obtained through the Allocator interface so that hosts
with their own allocation strategy can plug it in. DedicatedAllocator is
provided for hosts that do not care: it performs one device allocation per
request.
*/
package vkgui
