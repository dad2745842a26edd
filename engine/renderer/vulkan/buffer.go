package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/aurora/engine/renderer/metadata"
)

// VulkanBuffer wraps a native buffer and its bound device memory.
// Implements the renderer's opaque buffer handle.
type VulkanBuffer struct {
	device *Device
	handle vk.Buffer
	memory vk.DeviceMemory
	size   uint64
}

func (d *Device) CreateBuffer(info metadata.BufferInfo) (metadata.Buffer, error) {
	bufferInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(info.Size),
		Usage:       vulkanBufferUsage(info.Usage),
		SharingMode: vk.SharingModeExclusive,
	}

	var handle vk.Buffer
	if res := vk.CreateBuffer(d.LogicalDevice, &bufferInfo, d.context.Allocator, &handle); res != vk.Success {
		return nil, d.creationError(res, "buffer")
	}

	var requirements vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(d.LogicalDevice, handle, &requirements)
	requirements.Deref()

	// The caller's alignment requirement joins the driver's. Binding at
	// offset zero of a dedicated allocation satisfies both.
	memoryIndex := d.FindMemoryIndex(requirements.MemoryTypeBits, vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit))
	if memoryIndex < 0 {
		vk.DestroyBuffer(d.LogicalDevice, handle, d.context.Allocator)
		return nil, fmt.Errorf("no device-local memory type for buffer")
	}

	allocInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  requirements.Size,
		MemoryTypeIndex: uint32(memoryIndex),
	}
	var memory vk.DeviceMemory
	if res := vk.AllocateMemory(d.LogicalDevice, &allocInfo, d.context.Allocator, &memory); res != vk.Success {
		vk.DestroyBuffer(d.LogicalDevice, handle, d.context.Allocator)
		return nil, d.creationError(res, "buffer memory")
	}

	if res := vk.BindBufferMemory(d.LogicalDevice, handle, memory, 0); res != vk.Success {
		vk.FreeMemory(d.LogicalDevice, memory, d.context.Allocator)
		vk.DestroyBuffer(d.LogicalDevice, handle, d.context.Allocator)
		return nil, d.creationError(res, "buffer memory binding")
	}

	return &VulkanBuffer{
		device: d,
		handle: handle,
		memory: memory,
		size:   info.Size,
	}, nil
}

// Handle returns the native buffer.
func (b *VulkanBuffer) Handle() vk.Buffer {
	return b.handle
}

func (b *VulkanBuffer) Size() uint64 {
	return b.size
}

func (b *VulkanBuffer) Destroy() {
	if b.handle != vk.NullBuffer {
		vk.DestroyBuffer(b.device.LogicalDevice, b.handle, b.device.context.Allocator)
		b.handle = vk.NullBuffer
	}
	if b.memory != vk.NullDeviceMemory {
		vk.FreeMemory(b.device.LogicalDevice, b.memory, b.device.context.Allocator)
		b.memory = vk.NullDeviceMemory
	}
}

func bufferHandle(buffer metadata.Buffer) (vk.Buffer, error) {
	native, ok := buffer.(*VulkanBuffer)
	if !ok {
		return vk.NullBuffer, fmt.Errorf("foreign buffer type %T", buffer)
	}
	return native.handle, nil
}
