package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/aurora/engine/renderer"
	"github.com/spaghettifunk/aurora/engine/renderer/metadata"
)

// VulkanSurface adapts a native window surface to the renderer's surface
// service. Capability queries always go to the driver; surface state
// changes with the window, so nothing is cached here.
type VulkanSurface struct {
	handle vk.Surface
	device *Device
}

// Handle returns the native surface.
func (s *VulkanSurface) Handle() vk.Surface {
	return s.handle
}

func (s *VulkanSurface) Capabilities() (metadata.SurfaceCapabilities, error) {
	var caps metadata.SurfaceCapabilities

	var native vk.SurfaceCapabilities
	if res := vk.GetPhysicalDeviceSurfaceCapabilities(s.device.PhysicalDevice, s.handle, &native); res != vk.Success {
		return caps, s.surfaceError(res, "capabilities")
	}
	native.Deref()
	native.CurrentExtent.Deref()
	native.MinImageExtent.Deref()
	native.MaxImageExtent.Deref()

	caps.MinImageCount = native.MinImageCount
	caps.MaxImageCount = native.MaxImageCount
	caps.CurrentExtent = metadata.Extent2D{
		Width:  native.CurrentExtent.Width,
		Height: native.CurrentExtent.Height,
	}
	caps.MinImageExtent = metadata.Extent2D{
		Width:  native.MinImageExtent.Width,
		Height: native.MinImageExtent.Height,
	}
	caps.MaxImageExtent = metadata.Extent2D{
		Width:  native.MaxImageExtent.Width,
		Height: native.MaxImageExtent.Height,
	}
	caps.CurrentTransform = surfaceTransformFromVulkan(vk.SurfaceTransformFlags(native.CurrentTransform))
	caps.SupportedTransforms = surfaceTransformFromVulkan(native.SupportedTransforms)
	caps.SupportedCompositeAlpha = compositeAlphaFromVulkan(native.SupportedCompositeAlpha)
	caps.SupportedUsage = imageUsageFromVulkan(native.SupportedUsageFlags)

	var formatCount uint32
	if res := vk.GetPhysicalDeviceSurfaceFormats(s.device.PhysicalDevice, s.handle, &formatCount, nil); res != vk.Success {
		return caps, s.surfaceError(res, "formats")
	}
	if formatCount != 0 {
		formats := make([]vk.SurfaceFormat, formatCount)
		if res := vk.GetPhysicalDeviceSurfaceFormats(s.device.PhysicalDevice, s.handle, &formatCount, formats); res != vk.Success {
			return caps, s.surfaceError(res, "formats")
		}
		for i := range formats {
			formats[i].Deref()
			if f := formatFromVulkan(formats[i].Format); f != metadata.FormatUndefined {
				caps.Formats = append(caps.Formats, f)
			}
		}
	}

	var presentModeCount uint32
	if res := vk.GetPhysicalDeviceSurfacePresentModes(s.device.PhysicalDevice, s.handle, &presentModeCount, nil); res != vk.Success {
		return caps, s.surfaceError(res, "present modes")
	}
	if presentModeCount != 0 {
		modes := make([]vk.PresentMode, presentModeCount)
		if res := vk.GetPhysicalDeviceSurfacePresentModes(s.device.PhysicalDevice, s.handle, &presentModeCount, modes); res != vk.Success {
			return caps, s.surfaceError(res, "present modes")
		}
		for _, m := range modes {
			if mode, ok := presentModeFromVulkan(m); ok {
				caps.PresentModes = append(caps.PresentModes, mode)
			}
		}
	}

	var queueFamilyCount uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(s.device.PhysicalDevice, &queueFamilyCount, nil)
	caps.SupportedFamilies = make([]bool, queueFamilyCount)
	for i := uint32(0); i < queueFamilyCount; i++ {
		var supported vk.Bool32
		if res := vk.GetPhysicalDeviceSurfaceSupport(s.device.PhysicalDevice, i, s.handle, &supported); res != vk.Success {
			return caps, s.surfaceError(res, "family support")
		}
		caps.SupportedFamilies[i] = supported == vk.True
	}

	return caps, nil
}

func (s *VulkanSurface) surfaceError(res vk.Result, what string) error {
	if res == vk.ErrorSurfaceLost {
		return renderer.ErrSurfaceLost
	}
	return fmt.Errorf("surface %s query failed: %s", what, VulkanResultString(res))
}
