package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/aurora/engine/core"
	"github.com/spaghettifunk/aurora/engine/renderer"
	"github.com/spaghettifunk/aurora/engine/renderer/metadata"
)

/**
 * @brief VulkanSwapchain is one native swapchain generation and its
 * presentable images. The renderer's swapchain manager owns its lifetime
 * and drives acquisition; presentation goes through Present.
 */
type VulkanSwapchain struct {
	device *Device
	handle vk.Swapchain

	format metadata.Format
	images []vk.Image
	views  []*VulkanImageView
}

func (d *Device) CreateSwapchain(surface renderer.Surface, info renderer.SwapchainInfo) (renderer.NativeSwapchain, error) {
	nativeSurface, ok := surface.(*VulkanSurface)
	if !ok {
		core.LogFatal("swapchain creation was handed a foreign surface type %T", surface)
		return nil, fmt.Errorf("foreign surface type %T", surface)
	}

	swapchainCreateInfo := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          nativeSurface.Handle(),
		MinImageCount:    info.MinImageCount,
		ImageFormat:      vulkanFormat(info.Format),
		ImageColorSpace:  vk.ColorSpaceSrgbNonlinear,
		ImageExtent:      vk.Extent2D{Width: info.Extent.Width, Height: info.Extent.Height},
		ImageArrayLayers: info.ArrayLayers,
		ImageUsage:       vulkanImageUsage(info.Usage),
		PreTransform:     vulkanSurfaceTransform(info.PreTransform),
		CompositeAlpha:   vulkanCompositeAlpha(info.CompositeAlpha),
		PresentMode:      vulkanPresentMode(info.PresentMode),
		Clipped:          vk.True,
	}

	// Images are shared between the graphics and present queues when the
	// families differ.
	if d.GraphicsQueueIndex != d.PresentQueueIndex {
		swapchainCreateInfo.ImageSharingMode = vk.SharingModeConcurrent
		swapchainCreateInfo.QueueFamilyIndexCount = 2
		swapchainCreateInfo.PQueueFamilyIndices = []uint32{
			uint32(d.GraphicsQueueIndex),
			uint32(d.PresentQueueIndex),
		}
	} else {
		swapchainCreateInfo.ImageSharingMode = vk.SharingModeExclusive
	}

	if info.OldSwapchain != nil {
		old, ok := info.OldSwapchain.(*VulkanSwapchain)
		if !ok {
			core.LogFatal("swapchain creation was handed a foreign previous chain type %T", info.OldSwapchain)
			return nil, fmt.Errorf("foreign swapchain type %T", info.OldSwapchain)
		}
		swapchainCreateInfo.OldSwapchain = old.handle
	}

	var handle vk.Swapchain
	if res := vk.CreateSwapchain(d.LogicalDevice, &swapchainCreateInfo, d.context.Allocator, &handle); res != vk.Success {
		return nil, d.creationError(res, "swapchain")
	}

	swapchain := &VulkanSwapchain{
		device: d,
		handle: handle,
		format: info.Format,
	}

	var imageCount uint32
	if res := vk.GetSwapchainImages(d.LogicalDevice, handle, &imageCount, nil); res != vk.Success {
		swapchain.destroy()
		return nil, fmt.Errorf("failed to get swapchain images: %s", VulkanResultString(res))
	}
	swapchain.images = make([]vk.Image, imageCount)
	if res := vk.GetSwapchainImages(d.LogicalDevice, handle, &imageCount, swapchain.images); res != vk.Success {
		swapchain.destroy()
		return nil, fmt.Errorf("failed to get swapchain images: %s", VulkanResultString(res))
	}

	for i := 0; i < int(imageCount); i++ {
		viewInfo := vk.ImageViewCreateInfo{
			SType:    vk.StructureTypeImageViewCreateInfo,
			Image:    swapchain.images[i],
			ViewType: vk.ImageViewType2d,
			Format:   vulkanFormat(info.Format),
			SubresourceRange: vk.ImageSubresourceRange{
				AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
				BaseMipLevel:   0,
				LevelCount:     1,
				BaseArrayLayer: 0,
				LayerCount:     1,
			},
		}

		var view vk.ImageView
		if res := vk.CreateImageView(d.LogicalDevice, &viewInfo, d.context.Allocator, &view); res != vk.Success {
			swapchain.destroy()
			return nil, d.creationError(res, "swapchain image view")
		}
		swapchain.views = append(swapchain.views, &VulkanImageView{device: d, handle: view})
	}

	core.LogInfo("Swapchain created successfully with %d images.", imageCount)
	return swapchain, nil
}

func (d *Device) DestroySwapchain(chain renderer.NativeSwapchain) {
	swapchain, ok := chain.(*VulkanSwapchain)
	if !ok {
		core.LogFatal("swapchain destruction was handed a foreign chain type %T", chain)
		return
	}
	swapchain.destroy()
}

func (vs *VulkanSwapchain) ImageCount() int {
	return len(vs.images)
}

// Image returns the native image at the given index.
func (vs *VulkanSwapchain) Image(index uint32) vk.Image {
	return vs.images[index]
}

// View returns the color view over the image at the given index.
func (vs *VulkanSwapchain) View(index uint32) metadata.ImageView {
	return vs.views[index]
}

func (vs *VulkanSwapchain) Acquire(timeoutNs uint64, signal metadata.Semaphore) (uint32, renderer.AcquireResult) {
	semaphore, ok := signal.(*VulkanSemaphore)
	if !ok {
		core.LogFatal("acquire was handed a foreign semaphore type %T", signal)
		return 0, renderer.AcquireUnexpected
	}

	var imageIndex uint32
	result := vk.AcquireNextImage(vs.device.LogicalDevice, vs.handle, timeoutNs, semaphore.Handle(), vk.NullFence, &imageIndex)

	switch result {
	case vk.Success:
		return imageIndex, renderer.AcquireSuccess
	case vk.Suboptimal:
		return imageIndex, renderer.AcquireSuboptimal
	case vk.ErrorOutOfDate:
		return 0, renderer.AcquireOutOfDate
	case vk.ErrorSurfaceLost:
		return 0, renderer.AcquireSurfaceLost
	case vk.ErrorOutOfHostMemory:
		return 0, renderer.AcquireOutOfHostMemory
	case vk.ErrorOutOfDeviceMemory:
		return 0, renderer.AcquireOutOfDeviceMemory
	default:
		core.LogError("unexpected acquire result: %s", VulkanResultString(result))
		return 0, renderer.AcquireUnexpected
	}
}

/**
 * @brief Present hands the image at the given index back to the
 * presentation engine, waiting on the given semaphore. The result uses
 * the same closed outcome set as acquisition; suboptimal and out-of-date
 * feed the manager's reconfiguration logic.
 */
func (vs *VulkanSwapchain) Present(wait metadata.Semaphore, imageIndex uint32) renderer.AcquireResult {
	semaphore, ok := wait.(*VulkanSemaphore)
	if !ok {
		core.LogFatal("present was handed a foreign semaphore type %T", wait)
		return renderer.AcquireUnexpected
	}

	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{semaphore.Handle()},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{vs.handle},
		PImageIndices:      []uint32{imageIndex},
	}

	result := vk.QueuePresent(vs.device.PresentQueue, &presentInfo)
	switch result {
	case vk.Success:
		return renderer.AcquireSuccess
	case vk.Suboptimal:
		return renderer.AcquireSuboptimal
	case vk.ErrorOutOfDate:
		return renderer.AcquireOutOfDate
	case vk.ErrorSurfaceLost:
		return renderer.AcquireSurfaceLost
	case vk.ErrorOutOfHostMemory:
		return renderer.AcquireOutOfHostMemory
	case vk.ErrorOutOfDeviceMemory:
		return renderer.AcquireOutOfDeviceMemory
	default:
		core.LogError("unexpected present result: %s", VulkanResultString(result))
		return renderer.AcquireUnexpected
	}
}

func (vs *VulkanSwapchain) destroy() {
	// Only the views are destroyed, not the images; those are owned by the
	// swapchain and go away with it.
	for _, view := range vs.views {
		view.Destroy()
	}
	vs.views = nil

	if vs.handle != vk.NullSwapchain {
		vk.DestroySwapchain(vs.device.LogicalDevice, vs.handle, vs.device.context.Allocator)
		vs.handle = vk.NullSwapchain
	}
}
