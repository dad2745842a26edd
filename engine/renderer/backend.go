package renderer

import (
	"github.com/spaghettifunk/aurora/engine/renderer/metadata"
)

// NoTimeout makes a native acquire wait indefinitely. This is safe as long
// as the caller never holds more acquired images than the swapchain allows,
// so a matching present is always forthcoming.
const NoTimeout = ^uint64(0)

/**
 * @brief The closed set of outcomes of a native image acquisition.
 * Anything the backend cannot map onto this set is an invariant violation
 * between this layer and the driver, reported as AcquireUnexpected.
 */
type AcquireResult int

const (
	AcquireSuccess AcquireResult = iota
	/** @brief Image acquired but the swapchain no longer matches the surface exactly. */
	AcquireSuboptimal
	/** @brief No image acquired; the swapchain must be recreated. */
	AcquireOutOfDate
	AcquireSurfaceLost
	AcquireOutOfHostMemory
	AcquireOutOfDeviceMemory
	AcquireUnexpected
)

// SwapchainInfo describes a native swapchain at creation time.
type SwapchainInfo struct {
	MinImageCount  uint32
	Format         metadata.Format
	Extent         metadata.Extent2D
	ArrayLayers    uint32
	Usage          metadata.ImageUsage
	PreTransform   metadata.SurfaceTransformFlags
	CompositeAlpha metadata.CompositeAlphaFlags
	PresentMode    metadata.PresentMode
	// OldSwapchain links the superseded chain into the native recreation
	// call so the backend can carry resources over. May be nil.
	OldSwapchain NativeSwapchain
}

// NativeSwapchain is one native swapchain and its image set, owned by the
// device. The Swapchain manager drives it and controls its destruction.
type NativeSwapchain interface {
	// ImageCount returns the number of presentable images in the chain.
	ImageCount() int

	// Acquire blocks until an image is available, then returns its index.
	// The given semaphore is signaled when the image is actually ready
	// for GPU work.
	Acquire(timeoutNs uint64, signal metadata.Semaphore) (uint32, AcquireResult)
}

// Device is the contract consumed by the swapchain manager and the
// descriptor update engine. Implemented by the vulkan backend; tests
// substitute fakes.
type Device interface {
	// Alive reports whether the native device is still usable. A device
	// that went away surfaces as ErrSurfaceLost from every manager call.
	Alive() bool

	// WaitIdle blocks until the device has finished all outstanding work.
	WaitIdle()

	CreateSemaphore() (metadata.Semaphore, error)
	CreateBuffer(info metadata.BufferInfo) (metadata.Buffer, error)
	CreateDescriptorSet(layout metadata.DescriptorSetLayout) (metadata.DescriptorSet, error)

	// CreateSwapchain creates a native swapchain for the surface. The
	// info's OldSwapchain, when set, is passed to the native call so
	// presentation does not glitch across recreation.
	CreateSwapchain(surface Surface, info SwapchainInfo) (NativeSwapchain, error)

	// DestroySwapchain destroys a chain previously created by
	// CreateSwapchain. Only called once none of its images are referenced.
	DestroySwapchain(chain NativeSwapchain)
}

// Surface represents a native window surface.
type Surface interface {
	// Capabilities re-queries the live surface state. Capabilities change
	// with the window, so configuration always queries fresh.
	Capabilities() (metadata.SurfaceCapabilities, error)
}

// Encoder records staged commands to be submitted by the caller. The
// descriptor engine uses it to stream uniform block contents.
type Encoder interface {
	// UpdateBuffer records a copy of data into buffer at offset.
	UpdateBuffer(buffer metadata.Buffer, offset uint64, data []byte)
}
