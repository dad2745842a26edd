package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/aurora/engine/renderer/metadata"
)

// VulkanImageView wraps a native image view. Implements the renderer's
// opaque view handle.
type VulkanImageView struct {
	device *Device
	handle vk.ImageView
}

// Handle returns the native view.
func (v *VulkanImageView) Handle() vk.ImageView {
	return v.handle
}

func (v *VulkanImageView) Destroy() {
	if v.handle != vk.NullImageView {
		vk.DestroyImageView(v.device.LogicalDevice, v.handle, v.device.context.Allocator)
		v.handle = vk.NullImageView
	}
}

// VulkanSampler wraps a native sampler. Implements the renderer's opaque
// sampler handle.
type VulkanSampler struct {
	device *Device
	handle vk.Sampler
}

// CreateSampler creates a linear-filtering repeat sampler with anisotropy
// capped at the device limit.
func (d *Device) CreateSampler() (metadata.Sampler, error) {
	limits := d.Properties.Limits
	limits.Deref()

	samplerInfo := vk.SamplerCreateInfo{
		SType:                   vk.StructureTypeSamplerCreateInfo,
		MagFilter:               vk.FilterLinear,
		MinFilter:               vk.FilterLinear,
		MipmapMode:              vk.SamplerMipmapModeLinear,
		AddressModeU:            vk.SamplerAddressModeRepeat,
		AddressModeV:            vk.SamplerAddressModeRepeat,
		AddressModeW:            vk.SamplerAddressModeRepeat,
		AnisotropyEnable:        vk.True,
		MaxAnisotropy:           limits.MaxSamplerAnisotropy,
		BorderColor:             vk.BorderColorIntOpaqueBlack,
		UnnormalizedCoordinates: vk.False,
		CompareEnable:           vk.False,
		CompareOp:               vk.CompareOpAlways,
		MaxLod:                  vk.LodClampNone,
	}

	var handle vk.Sampler
	if res := vk.CreateSampler(d.LogicalDevice, &samplerInfo, d.context.Allocator, &handle); res != vk.Success {
		return nil, d.creationError(res, "sampler")
	}
	return &VulkanSampler{device: d, handle: handle}, nil
}

// Handle returns the native sampler.
func (s *VulkanSampler) Handle() vk.Sampler {
	return s.handle
}

func (s *VulkanSampler) Destroy() {
	if s.handle != vk.NullSampler {
		vk.DestroySampler(s.device.LogicalDevice, s.handle, s.device.context.Allocator)
		s.handle = vk.NullSampler
	}
}

func viewHandle(view metadata.ImageView) (vk.ImageView, error) {
	native, ok := view.(*VulkanImageView)
	if !ok {
		return vk.NullImageView, fmt.Errorf("foreign image view type %T", view)
	}
	return native.handle, nil
}

func samplerHandle(sampler metadata.Sampler) (vk.Sampler, error) {
	native, ok := sampler.(*VulkanSampler)
	if !ok {
		return vk.NullSampler, fmt.Errorf("foreign sampler type %T", sampler)
	}
	return native.handle, nil
}
