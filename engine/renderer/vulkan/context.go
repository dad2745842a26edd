package vulkan

import (
	vk "github.com/goki/vulkan"
)

// VulkanContext carries the instance-level state shared by every object
// the backend creates.
type VulkanContext struct {
	Instance  vk.Instance
	Allocator *vk.AllocationCallbacks
	Surface   vk.Surface

	// TODO: only in DEBUG mode
	debugMessenger vk.DebugReportCallback

	Device *Device
}
