package engine

import (
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/aurora/engine/config"
	"github.com/spaghettifunk/aurora/engine/renderer"
	"github.com/spaghettifunk/aurora/engine/renderer/metadata"
	"github.com/spaghettifunk/aurora/engine/renderer/vulkan"
)

type Game struct {
	Config       *config.Config
	State        interface{}
	FnInitialize Initialize
	FnRender     Render
	FnOnResize   OnResize
	FnShutdown   Shutdown
}

type Initialize func(device *vulkan.Device) error
type Render func(frame *Frame) error
type OnResize func(width uint32, height uint32) error
type Shutdown func(device *vulkan.Device) error

/**
 * @brief Frame hands the game everything it needs to record one frame:
 * the acquired swapchain image, the command buffer being recorded, the
 * frame-in-flight index selecting descriptor ring slots, and the write
 * batch the engine flushes after the render hook returns.
 */
type Frame struct {
	// Index of the frame in flight. Stable modulo frames_in_flight, so it
	// doubles as the fence index for descriptor instances.
	Index int
	// Seconds since the previous frame.
	Delta float64

	Image         *renderer.SwapchainImage
	Chain         *vulkan.VulkanSwapchain
	CommandBuffer *vulkan.VulkanCommandBuffer
	Device        *vulkan.Device
	Writes        *metadata.WriteBatch
}

// Target returns the native image being rendered to this frame.
func (f *Frame) Target() vk.Image {
	return f.Chain.Image(f.Image.Index())
}

// View returns the image view over the acquired swapchain image.
func (f *Frame) View() metadata.ImageView {
	return f.Chain.View(f.Image.Index())
}
