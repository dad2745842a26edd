package vulkan

import (
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/aurora/engine/renderer/metadata"
)

func vulkanFormat(f metadata.Format) vk.Format {
	switch f {
	case metadata.FormatB8G8R8A8Unorm:
		return vk.FormatB8g8r8a8Unorm
	case metadata.FormatB8G8R8A8Srgb:
		return vk.FormatB8g8r8a8Srgb
	case metadata.FormatR8G8B8A8Unorm:
		return vk.FormatR8g8b8a8Unorm
	case metadata.FormatR8G8B8A8Srgb:
		return vk.FormatR8g8b8a8Srgb
	case metadata.FormatR16G16B16A16Sfloat:
		return vk.FormatR16g16b16a16Sfloat
	case metadata.FormatA2B10G10R10UnormPack32:
		return vk.FormatA2b10g10r10UnormPack32
	}
	return vk.FormatUndefined
}

func formatFromVulkan(f vk.Format) metadata.Format {
	switch f {
	case vk.FormatB8g8r8a8Unorm:
		return metadata.FormatB8G8R8A8Unorm
	case vk.FormatB8g8r8a8Srgb:
		return metadata.FormatB8G8R8A8Srgb
	case vk.FormatR8g8b8a8Unorm:
		return metadata.FormatR8G8B8A8Unorm
	case vk.FormatR8g8b8a8Srgb:
		return metadata.FormatR8G8B8A8Srgb
	case vk.FormatR16g16b16a16Sfloat:
		return metadata.FormatR16G16B16A16Sfloat
	case vk.FormatA2b10g10r10UnormPack32:
		return metadata.FormatA2B10G10R10UnormPack32
	}
	return metadata.FormatUndefined
}

// Present mode values mirror the native enumeration.
func vulkanPresentMode(m metadata.PresentMode) vk.PresentMode {
	return vk.PresentMode(m)
}

func presentModeFromVulkan(m vk.PresentMode) (metadata.PresentMode, bool) {
	switch m {
	case vk.PresentModeImmediate, vk.PresentModeMailbox, vk.PresentModeFifo, vk.PresentModeFifoRelaxed:
		return metadata.PresentMode(m), true
	}
	return 0, false
}

// Usage, transform, composite alpha and access bit values mirror the
// native flag bits, so conversion is a masked cast.

func vulkanImageUsage(u metadata.ImageUsage) vk.ImageUsageFlags {
	return vk.ImageUsageFlags(u)
}

func imageUsageFromVulkan(u vk.ImageUsageFlags) metadata.ImageUsage {
	const known = metadata.ImageUsageTransferSrc | metadata.ImageUsageTransferDst |
		metadata.ImageUsageSampled | metadata.ImageUsageStorage |
		metadata.ImageUsageColorAttachment | metadata.ImageUsageDepthStencilAttachment |
		metadata.ImageUsageInputAttachment
	return metadata.ImageUsage(u) & known
}

func vulkanSurfaceTransform(t metadata.SurfaceTransformFlags) vk.SurfaceTransformFlagBits {
	return vk.SurfaceTransformFlagBits(t)
}

func surfaceTransformFromVulkan(t vk.SurfaceTransformFlags) metadata.SurfaceTransformFlags {
	return metadata.SurfaceTransformFlags(t)
}

func vulkanCompositeAlpha(a metadata.CompositeAlphaFlags) vk.CompositeAlphaFlagBits {
	return vk.CompositeAlphaFlagBits(a)
}

func compositeAlphaFromVulkan(a vk.CompositeAlphaFlags) metadata.CompositeAlphaFlags {
	return metadata.CompositeAlphaFlags(a)
}

func vulkanAccessFlags(a metadata.AccessFlags) vk.AccessFlags {
	return vk.AccessFlags(a)
}

func vulkanBufferUsage(u metadata.BufferUsage) vk.BufferUsageFlags {
	return vk.BufferUsageFlags(u)
}

func vulkanImageLayout(l metadata.Layout) vk.ImageLayout {
	switch l {
	case metadata.LayoutGeneral:
		return vk.ImageLayoutGeneral
	case metadata.LayoutColorAttachmentOptimal:
		return vk.ImageLayoutColorAttachmentOptimal
	case metadata.LayoutDepthStencilAttachmentOptimal:
		return vk.ImageLayoutDepthStencilAttachmentOptimal
	case metadata.LayoutDepthStencilReadOnlyOptimal:
		return vk.ImageLayoutDepthStencilReadOnlyOptimal
	case metadata.LayoutShaderReadOnlyOptimal:
		return vk.ImageLayoutShaderReadOnlyOptimal
	case metadata.LayoutTransferSrcOptimal:
		return vk.ImageLayoutTransferSrcOptimal
	case metadata.LayoutTransferDstOptimal:
		return vk.ImageLayoutTransferDstOptimal
	case metadata.LayoutPresent:
		return vk.ImageLayoutPresentSrc
	}
	return vk.ImageLayoutUndefined
}

// vulkanDescriptorType maps a binding kind to its native descriptor
// type. Ray tracing kinds are absent; the device is created without the
// extensions they need.
func vulkanDescriptorType(k metadata.BindingKind) (vk.DescriptorType, bool) {
	switch k {
	case metadata.BindingKindSampler:
		return vk.DescriptorTypeSampler, true
	case metadata.BindingKindSampledImage:
		return vk.DescriptorTypeSampledImage, true
	case metadata.BindingKindCombinedImageSampler:
		return vk.DescriptorTypeCombinedImageSampler, true
	case metadata.BindingKindUniformBuffer:
		return vk.DescriptorTypeUniformBuffer, true
	case metadata.BindingKindStorageBuffer:
		return vk.DescriptorTypeStorageBuffer, true
	}
	return 0, false
}
