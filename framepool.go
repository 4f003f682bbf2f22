package vkgui

import (
	"errors"
	"fmt"

	vk "github.com/vulkan-go/vulkan"
)

// Per slot geometry capacity. A slot holds every vertex and index the UI
// emits for one frame; overflow is a hard error rather than a realloc so
// frame recording never stalls on memory traffic.
const (
	vertexBufferSize = 4 * 1024 * 1024
	indexBufferSize  = 2 * 1024 * 1024
)

// ErrGeometryOverflow is returned by Paint when a frame's vertices or
// indices exceed the fixed per slot buffer capacity.
var ErrGeometryOverflow = errors.New("frame geometry exceeds buffer capacity")

// writeCursor appends byte runs to a fixed capacity destination and hands
// back the offset each run landed at. Exactly filling the destination is
// fine; going past it is ErrGeometryOverflow.
type writeCursor struct {
	dst []byte
	off int
}

func newWriteCursor(dst []byte) *writeCursor {
	return &writeCursor{dst: dst}
}

// push copies b at the current offset and returns that offset.
func (w *writeCursor) push(b []byte) (int, error) {
	if w.off+len(b) > len(w.dst) {
		return 0, fmt.Errorf("write of %d bytes at offset %d exceeds capacity %d: %w",
			len(b), w.off, len(w.dst), ErrGeometryOverflow)
	}
	at := w.off
	copy(w.dst[at:], b)
	w.off += len(b)
	return at, nil
}

// frameSlot is the geometry storage for one in flight frame: a vertex and
// an index buffer, both host visible and persistently mapped.
type frameSlot struct {
	vertexBuffer *Buffer
	indexBuffer  *Buffer
}

// framePool owns one frameSlot per presentation image. Paint for image i
// writes only slot i, so a slot is never rewritten while the GPU may still
// be reading it.
type framePool struct {
	alloc Allocator
	slots []frameSlot
}

// newFramePool creates count slots worth of geometry buffers.
func newFramePool(d *Device, alloc Allocator, count int) (*framePool, error) {
	p := &framePool{alloc: alloc}
	for i := 0; i < count; i++ {
		vb, err := createHostBuffer(d, alloc, vertexBufferSize, vk.BufferUsageVertexBufferBit)
		if err != nil {
			p.destroy()
			return nil, fmt.Errorf("unable to create vertex buffer for slot %d: %w", i, err)
		}
		ib, err := createHostBuffer(d, alloc, indexBufferSize, vk.BufferUsageIndexBufferBit)
		if err != nil {
			vb.Destroy(alloc)
			p.destroy()
			return nil, fmt.Errorf("unable to create index buffer for slot %d: %w", i, err)
		}
		p.slots = append(p.slots, frameSlot{vertexBuffer: vb, indexBuffer: ib})
	}
	return p, nil
}

func (p *framePool) slot(i int) *frameSlot {
	return &p.slots[i]
}

func (p *framePool) count() int {
	return len(p.slots)
}

// resize adjusts the slot count to match a new presentation image count,
// keeping existing slots when it shrinks and creating fresh ones when it
// grows.
func (p *framePool) resize(d *Device, count int) error {
	for len(p.slots) > count {
		last := p.slots[len(p.slots)-1]
		last.vertexBuffer.Destroy(p.alloc)
		last.indexBuffer.Destroy(p.alloc)
		p.slots = p.slots[:len(p.slots)-1]
	}
	for len(p.slots) < count {
		vb, err := createHostBuffer(d, p.alloc, vertexBufferSize, vk.BufferUsageVertexBufferBit)
		if err != nil {
			return fmt.Errorf("unable to grow frame pool: %w", err)
		}
		ib, err := createHostBuffer(d, p.alloc, indexBufferSize, vk.BufferUsageIndexBufferBit)
		if err != nil {
			vb.Destroy(p.alloc)
			return fmt.Errorf("unable to grow frame pool: %w", err)
		}
		p.slots = append(p.slots, frameSlot{vertexBuffer: vb, indexBuffer: ib})
	}
	return nil
}

func (p *framePool) destroy() {
	for _, s := range p.slots {
		s.vertexBuffer.Destroy(p.alloc)
		s.indexBuffer.Destroy(p.alloc)
	}
	p.slots = nil
}
