package vkgui

import (
	"fmt"
	"log/slog"

	vk "github.com/vulkan-go/vulkan"
)

// bindingAllocator is what the user texture registry needs from the GPU:
// descriptor sets pointing at caller owned views and samplers.
type bindingAllocator interface {
	allocBinding(view vk.ImageView, sampler vk.Sampler) (vk.DescriptorSet, error)
	freeBinding(set vk.DescriptorSet) error
}

type userSlot struct {
	set  vk.DescriptorSet
	live bool
}

// userRegistry is a sparse table of registered user textures. Slot indices
// become the Index of the texture's ID, and freed slots are reused lowest
// index first.
type userRegistry struct {
	log      *slog.Logger
	bindings bindingAllocator
	slots    []userSlot
}

func newUserRegistry(log *slog.Logger, bindings bindingAllocator) *userRegistry {
	return &userRegistry{log: log, bindings: bindings}
}

// register allocates a binding for the caller owned view and sampler and
// returns the user texture ID referencing it. The caller keeps ownership
// of the view and sampler, must keep the view in the shader read only
// layout, and must not destroy either until after unregister.
func (r *userRegistry) register(view vk.ImageView, sampler vk.Sampler) (TextureID, error) {
	set, err := r.bindings.allocBinding(view, sampler)
	if err != nil {
		return TextureID{}, err
	}

	for i := range r.slots {
		if !r.slots[i].live {
			r.slots[i] = userSlot{set: set, live: true}
			return UserTextureID(uint64(i)), nil
		}
	}
	r.slots = append(r.slots, userSlot{set: set, live: true})
	return UserTextureID(uint64(len(r.slots) - 1)), nil
}

// unregister releases the slot's binding and marks it free. The caller
// must guarantee no in flight draws still reference the slot.
func (r *userRegistry) unregister(id TextureID) error {
	if id.Kind != TextureUser {
		err := fmt.Errorf("texture %s is not a user texture", id)
		r.log.Error("unregister refused", "err", err)
		return err
	}
	if id.Index >= uint64(len(r.slots)) || !r.slots[id.Index].live {
		r.log.Warn("unregister of a free user texture slot", "texture", id)
		return nil
	}
	slot := &r.slots[id.Index]
	if err := r.bindings.freeBinding(slot.set); err != nil {
		return err
	}
	*slot = userSlot{}
	return nil
}

// binding resolves a user texture ID to its descriptor set.
func (r *userRegistry) binding(id TextureID) (vk.DescriptorSet, bool) {
	if id.Index >= uint64(len(r.slots)) || !r.slots[id.Index].live {
		return vk.NullDescriptorSet, false
	}
	return r.slots[id.Index].set, true
}

// destroy frees every live binding.
func (r *userRegistry) destroy() {
	for i := range r.slots {
		if !r.slots[i].live {
			continue
		}
		if err := r.bindings.freeBinding(r.slots[i].set); err != nil {
			r.log.Warn("unable to free user texture binding", "slot", i, "err", err)
		}
		r.slots[i] = userSlot{}
	}
	r.slots = nil
}
