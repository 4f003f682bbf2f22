package vkgui

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	vk "github.com/vulkan-go/vulkan"
)

// fakeBindings satisfies bindingAllocator without a device.
type fakeBindings struct {
	allocated int
	freed     int
	freeErr   error
}

func (f *fakeBindings) allocBinding(view vk.ImageView, sampler vk.Sampler) (vk.DescriptorSet, error) {
	f.allocated++
	return vk.NullDescriptorSet, nil
}

func (f *fakeBindings) freeBinding(set vk.DescriptorSet) error {
	f.freed++
	return f.freeErr
}

func TestUserRegistrySlotReuse(t *testing.T) {
	r := newUserRegistry(testLogger(), &fakeBindings{})

	a, err := r.register(vk.NullImageView, vk.NullSampler)
	require.NoError(t, err)
	b, err := r.register(vk.NullImageView, vk.NullSampler)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), a.Index)
	assert.Equal(t, uint64(1), b.Index)

	require.NoError(t, r.unregister(a))

	// The freed slot is the lowest free index and gets reused.
	c, err := r.register(vk.NullImageView, vk.NullSampler)
	require.NoError(t, err)
	assert.Equal(t, a.Index, c.Index)
	assert.Equal(t, TextureUser, c.Kind)
}

func TestUserRegistryUnregisterManagedIsError(t *testing.T) {
	bindings := &fakeBindings{}
	r := newUserRegistry(testLogger(), bindings)

	err := r.unregister(ManagedTextureID(0))
	assert.Error(t, err)
	assert.Equal(t, 0, bindings.freed)
}

func TestUserRegistryDoubleUnregisterIsNoOp(t *testing.T) {
	bindings := &fakeBindings{}
	r := newUserRegistry(testLogger(), bindings)

	id, err := r.register(vk.NullImageView, vk.NullSampler)
	require.NoError(t, err)

	require.NoError(t, r.unregister(id))
	require.NoError(t, r.unregister(id))
	assert.Equal(t, 1, bindings.freed)

	// Never-registered slots behave the same.
	require.NoError(t, r.unregister(UserTextureID(99)))
	assert.Equal(t, 1, bindings.freed)
}

func TestUserRegistryBinding(t *testing.T) {
	r := newUserRegistry(testLogger(), &fakeBindings{})

	id, err := r.register(vk.NullImageView, vk.NullSampler)
	require.NoError(t, err)

	_, ok := r.binding(id)
	assert.True(t, ok)

	_, ok = r.binding(UserTextureID(5))
	assert.False(t, ok)

	require.NoError(t, r.unregister(id))
	_, ok = r.binding(id)
	assert.False(t, ok)
}

func TestUserRegistryDestroy(t *testing.T) {
	bindings := &fakeBindings{}
	r := newUserRegistry(testLogger(), bindings)

	_, err := r.register(vk.NullImageView, vk.NullSampler)
	require.NoError(t, err)
	_, err = r.register(vk.NullImageView, vk.NullSampler)
	require.NoError(t, err)

	r.destroy()
	assert.Equal(t, 2, bindings.freed)
}

func TestUserRegistryDestroyLogsFreeFailure(t *testing.T) {
	var logged bytes.Buffer
	log := slog.New(slog.NewTextHandler(&logged, nil))

	bindings := &fakeBindings{freeErr: errors.New("pool gone")}
	r := newUserRegistry(log, bindings)

	_, err := r.register(vk.NullImageView, vk.NullSampler)
	require.NoError(t, err)
	_, err = r.register(vk.NullImageView, vk.NullSampler)
	require.NoError(t, err)

	// A failing free is reported but does not stop the teardown.
	r.destroy()
	assert.Equal(t, 2, bindings.freed)
	assert.Empty(t, r.slots)
	assert.Contains(t, logged.String(), "unable to free user texture binding")
}
