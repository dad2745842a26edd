package vulkan

import (
	vk "github.com/goki/vulkan"
)

// VulkanSemaphore wraps a native binary semaphore. Implements the
// renderer's opaque semaphore handle.
type VulkanSemaphore struct {
	device *Device
	handle vk.Semaphore
}

// Handle returns the native semaphore.
func (s *VulkanSemaphore) Handle() vk.Semaphore {
	return s.handle
}

func (s *VulkanSemaphore) Destroy() {
	if s.handle != vk.NullSemaphore {
		vk.DestroySemaphore(s.device.LogicalDevice, s.handle, s.device.context.Allocator)
		s.handle = vk.NullSemaphore
	}
}
