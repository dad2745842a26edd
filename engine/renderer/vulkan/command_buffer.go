package vulkan

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/aurora/engine/core"
	"github.com/spaghettifunk/aurora/engine/renderer/metadata"
)

type VulkanCommandBufferState int

const (
	COMMAND_BUFFER_STATE_READY VulkanCommandBufferState = iota
	COMMAND_BUFFER_STATE_RECORDING
	COMMAND_BUFFER_STATE_RECORDING_ENDED
	COMMAND_BUFFER_STATE_SUBMITTED
	COMMAND_BUFFER_STATE_NOT_ALLOCATED
)

// VulkanCommandBuffer records device commands. It doubles as the
// renderer's encoder service for staged buffer updates.
type VulkanCommandBuffer struct {
	device *Device
	Handle vk.CommandBuffer
	// Command buffer state.
	State VulkanCommandBufferState
}

func NewVulkanCommandBuffer(device *Device, pool vk.CommandPool, isPrimary bool) (*VulkanCommandBuffer, error) {
	level := vk.CommandBufferLevelSecondary
	if isPrimary {
		level = vk.CommandBufferLevelPrimary
	}

	allocateInfo := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        pool,
		CommandBufferCount: 1,
		Level:              level,
	}

	handles := make([]vk.CommandBuffer, 1)
	if res := vk.AllocateCommandBuffers(device.LogicalDevice, &allocateInfo, handles); res != vk.Success {
		err := fmt.Errorf("failed to allocate command buffer: %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}

	return &VulkanCommandBuffer{
		device: device,
		Handle: handles[0],
		State:  COMMAND_BUFFER_STATE_READY,
	}, nil
}

func (v *VulkanCommandBuffer) Free(pool vk.CommandPool) {
	vk.FreeCommandBuffers(v.device.LogicalDevice, pool, 1, []vk.CommandBuffer{v.Handle})
	v.Handle = nil
	v.State = COMMAND_BUFFER_STATE_NOT_ALLOCATED
}

func (v *VulkanCommandBuffer) Begin(isSingleUse bool) error {
	beginInfo := &vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: 0,
	}
	if isSingleUse {
		beginInfo.Flags |= vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit)
	}

	if res := vk.BeginCommandBuffer(v.Handle, beginInfo); res != vk.Success {
		err := fmt.Errorf("failed to begin command buffer: %s", VulkanResultString(res))
		core.LogError(err.Error())
		return err
	}
	v.State = COMMAND_BUFFER_STATE_RECORDING

	return nil
}

func (v *VulkanCommandBuffer) End() error {
	if res := vk.EndCommandBuffer(v.Handle); res != vk.Success {
		err := fmt.Errorf("failed to end command buffer: %s", VulkanResultString(res))
		core.LogError(err.Error())
		return err
	}
	v.State = COMMAND_BUFFER_STATE_RECORDING_ENDED
	return nil
}

func (v *VulkanCommandBuffer) UpdateSubmitted() {
	v.State = COMMAND_BUFFER_STATE_SUBMITTED
}

func (v *VulkanCommandBuffer) Reset() {
	v.State = COMMAND_BUFFER_STATE_READY
}

// UpdateBuffer records an inline copy of data into buffer at offset. The
// driver consumes data during recording, so the slice may be reused as
// soon as this returns.
func (v *VulkanCommandBuffer) UpdateBuffer(buffer metadata.Buffer, offset uint64, data []byte) {
	if len(data) == 0 {
		return
	}
	handle, err := bufferHandle(buffer)
	if err != nil {
		core.LogFatal("buffer update: %s", err.Error())
		return
	}
	vk.CmdUpdateBuffer(v.Handle, handle, vk.DeviceSize(offset), vk.DeviceSize(len(data)), unsafe.Pointer(&data[0]))
}

// TransitionImage records a layout transition for the whole color
// subresource of image.
func (v *VulkanCommandBuffer) TransitionImage(image vk.Image, barrier metadata.ImageBarrier) {
	nativeBarrier := vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		OldLayout:           vulkanImageLayout(barrier.OldLayout),
		NewLayout:           vulkanImageLayout(barrier.NewLayout),
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               image,
		SrcAccessMask:       vulkanAccessFlags(barrier.Src),
		DstAccessMask:       vulkanAccessFlags(barrier.Dst),
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
			BaseMipLevel:   0,
			LevelCount:     1,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	}

	vk.CmdPipelineBarrier(
		v.Handle,
		pipelineStagesFor(barrier.Src),
		pipelineStagesFor(barrier.Dst),
		0,
		0, nil,
		0, nil,
		1, []vk.ImageMemoryBarrier{nativeBarrier},
	)
}

// ClearColor records a clear of the whole color subresource of image,
// which must be in the transfer-destination layout.
func (v *VulkanCommandBuffer) ClearColor(image vk.Image, r, g, b, a float32) {
	color := vk.ClearColorValue{}
	floats := (*[4]float32)(unsafe.Pointer(&color))
	floats[0] = r
	floats[1] = g
	floats[2] = b
	floats[3] = a

	subresource := vk.ImageSubresourceRange{
		AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
		BaseMipLevel:   0,
		LevelCount:     1,
		BaseArrayLayer: 0,
		LayerCount:     1,
	}
	vk.CmdClearColorImage(v.Handle, image, vk.ImageLayoutTransferDstOptimal, &color, 1, []vk.ImageSubresourceRange{subresource})
}

// Submit ends recording and submits to the queue, optionally waiting on
// and signaling semaphores and signaling a fence on completion.
func (v *VulkanCommandBuffer) Submit(queue vk.Queue, wait, signal metadata.Semaphore, fence *VulkanFence) error {
	if err := v.End(); err != nil {
		return err
	}

	submitInfo := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    []vk.CommandBuffer{v.Handle},
	}

	if wait != nil {
		semaphore, ok := wait.(*VulkanSemaphore)
		if !ok {
			return fmt.Errorf("foreign semaphore type %T", wait)
		}
		submitInfo.WaitSemaphoreCount = 1
		submitInfo.PWaitSemaphores = []vk.Semaphore{semaphore.Handle()}
		// The submission must not touch the image before it is available.
		submitInfo.PWaitDstStageMask = []vk.PipelineStageFlags{
			vk.PipelineStageFlags(vk.PipelineStageTransferBit | vk.PipelineStageColorAttachmentOutputBit),
		}
	}
	if signal != nil {
		semaphore, ok := signal.(*VulkanSemaphore)
		if !ok {
			return fmt.Errorf("foreign semaphore type %T", signal)
		}
		submitInfo.SignalSemaphoreCount = 1
		submitInfo.PSignalSemaphores = []vk.Semaphore{semaphore.Handle()}
	}

	var fenceHandle vk.Fence
	if fence != nil {
		fenceHandle = fence.Handle
	}

	if res := vk.QueueSubmit(queue, 1, []vk.SubmitInfo{submitInfo}, fenceHandle); res != vk.Success {
		err := fmt.Errorf("vkQueueSubmit failed with result: %s", VulkanResultString(res))
		core.LogError(err.Error())
		return err
	}
	v.UpdateSubmitted()
	return nil
}

// pipelineStagesFor derives a conservative stage mask for one side of a
// barrier from its access scope.
func pipelineStagesFor(access metadata.AccessFlags) vk.PipelineStageFlags {
	if access == 0 {
		return vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit)
	}

	var stages vk.PipelineStageFlags
	if access&(metadata.AccessTransferRead|metadata.AccessTransferWrite) != 0 {
		stages |= vk.PipelineStageFlags(vk.PipelineStageTransferBit)
	}
	if access&(metadata.AccessColorAttachmentRead|metadata.AccessColorAttachmentWrite) != 0 {
		stages |= vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)
	}
	if access&(metadata.AccessDepthStencilAttachmentRead|metadata.AccessDepthStencilAttachmentWrite) != 0 {
		stages |= vk.PipelineStageFlags(vk.PipelineStageEarlyFragmentTestsBit | vk.PipelineStageLateFragmentTestsBit)
	}
	if access&(metadata.AccessShaderRead|metadata.AccessShaderWrite|metadata.AccessUniformRead) != 0 {
		stages |= vk.PipelineStageFlags(vk.PipelineStageVertexShaderBit | vk.PipelineStageFragmentShaderBit)
	}
	if access&(metadata.AccessIndexRead|metadata.AccessVertexAttributeRead) != 0 {
		stages |= vk.PipelineStageFlags(vk.PipelineStageVertexInputBit)
	}
	if access&(metadata.AccessHostRead|metadata.AccessHostWrite) != 0 {
		stages |= vk.PipelineStageFlags(vk.PipelineStageHostBit)
	}
	if access&(metadata.AccessMemoryRead|metadata.AccessMemoryWrite) != 0 || stages == 0 {
		stages |= vk.PipelineStageFlags(vk.PipelineStageAllCommandsBit)
	}
	return stages
}

/**
 * Allocates and begins recording a single-use command buffer.
 */
func AllocateAndBeginSingleUse(device *Device, pool vk.CommandPool) (*VulkanCommandBuffer, error) {
	cb, err := NewVulkanCommandBuffer(device, pool, true)
	if err != nil {
		return nil, err
	}
	if err := cb.Begin(true); err != nil {
		return nil, err
	}
	return cb, nil
}

/**
 * Ends recording, submits to and waits for the queue operation and frees
 * the provided command buffer.
 */
func (v *VulkanCommandBuffer) EndSingleUse(pool vk.CommandPool, queue vk.Queue) error {
	if err := v.Submit(queue, nil, nil, nil); err != nil {
		return err
	}

	if res := vk.QueueWaitIdle(queue); res != vk.Success {
		err := fmt.Errorf("queue failed to wait in idle mode: %s", VulkanResultString(res))
		core.LogError(err.Error())
		return err
	}

	v.Free(pool)
	return nil
}
