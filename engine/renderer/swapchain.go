package renderer

import (
	"fmt"
	"math/bits"
	"runtime"

	"github.com/spaghettifunk/aurora/engine/containers"
	"github.com/spaghettifunk/aurora/engine/core"
	amath "github.com/spaghettifunk/aurora/engine/math"
	"github.com/spaghettifunk/aurora/engine/renderer/metadata"
)

const (
	// Preferred number of presentable images, clamped to what the surface
	// allows. Three images keep the presentation engine and the
	// application from stalling each other.
	preferredImageCount = 3

	// Soft cap on retired generations awaiting destruction. Exceeding it
	// means the application is not releasing old-generation resources in
	// a timely manner.
	maxRetiredGenerations = 16
)

type swapchainImageAndSemaphores struct {
	image *Image
	// acquire is waited upon before first GPU access to the image;
	// release is signaled after the last one. The acquire semaphore
	// rotates with the manager's free semaphore on every acquisition.
	acquire metadata.Semaphore
	release metadata.Semaphore
}

/**
 * @brief One generation of swapchain resources: a native chain, its image
 * set and their paired synchronization primitives. Valid until superseded
 * by reconfiguration, then queued for retirement.
 */
type swapchainGeneration struct {
	chain         NativeSwapchain
	images        []swapchainImageAndSemaphores
	acquiredCount uint32
	format        metadata.Format
	extent        metadata.Extent2D
	usage         metadata.ImageUsage
	mode          metadata.PresentMode
	optimal       bool
}

// disposable reports whether every image of the generation has no
// outstanding external references.
func (g *swapchainGeneration) disposable() bool {
	for i := range g.images {
		if !g.images[i].image.Disposable() {
			return false
		}
	}
	return true
}

func (g *swapchainGeneration) destroy(device Device) {
	for i := range g.images {
		g.images[i].acquire.Destroy()
		g.images[i].release.Destroy()
	}
	device.DestroySwapchain(g.chain)
}

/**
 * @brief Swapchain manages the full lifecycle of presentable images for
 * one surface: configuration, acquisition and retirement. At most one
 * generation is current; superseded generations are queued and destroyed
 * only once none of their images is referenced anywhere.
 *
 * All methods must be called from the application's frame thread; the
 * manager performs no internal locking.
 */
type Swapchain struct {
	current      *swapchainGeneration
	retired      *containers.Queue[*swapchainGeneration]
	device       Device
	surface      Surface
	capabilities metadata.SurfaceCapabilities

	// One spare semaphore used as the signal primitive of the next native
	// acquire, then swapped into the acquired image's slot. Keeps any
	// semaphore still referenced by in-flight work out of rotation.
	freeSemaphore metadata.Semaphore
}

// NewSwapchain creates a swapchain manager for the given surface and
// device. The swapchain starts unconfigured; call Configure before the
// first AcquireImage.
func NewSwapchain(surface Surface, device Device) (*Swapchain, error) {
	capabilities, err := surface.Capabilities()
	if err != nil {
		return nil, err
	}

	core.LogDebug("surface capabilities: %+v", capabilities)

	supported := false
	for _, ok := range capabilities.SupportedFamilies {
		if ok {
			supported = true
			break
		}
	}
	if !supported {
		return nil, ErrSurfaceNotSupported
	}

	freeSemaphore, err := device.CreateSemaphore()
	if err != nil {
		return nil, err
	}

	core.LogDebug("swapchain manager created")
	return &Swapchain{
		retired:       containers.NewQueue[*swapchainGeneration](4),
		device:        device,
		surface:       surface,
		capabilities:  capabilities,
		freeSemaphore: freeSemaphore,
	}, nil
}

// Capabilities returns the surface capabilities as of the last query.
func (s *Swapchain) Capabilities() *metadata.SurfaceCapabilities {
	return &s.capabilities
}

/**
 * @brief Configure creates a new swapchain generation for the requested
 * usage, format and present mode, retiring the current one. The retired
 * generation is only destroyed once every one of its images reports zero
 * outstanding references, never while application resources may still
 * point at them.
 */
func (s *Swapchain) Configure(usage metadata.ImageUsage, format metadata.Format, mode metadata.PresentMode) error {
	if !s.device.Alive() {
		return ErrSurfaceLost
	}

	if s.retired.Len() > maxRetiredGenerations {
		// Too many generations accumulated. Give their resources a
		// chance to be freed before piling on another one.
		core.LogWarn("too many retired swapchains (%d), waiting for device idle", s.retired.Len())
		s.device.WaitIdle()
	}

	s.drainRetired()

	if s.retired.Len() > maxRetiredGenerations {
		core.LogFatal("resources referencing old swapchain images must be released in a timely manner; %d generations still alive after device idle", s.retired.Len())
	}

	capabilities, err := s.surface.Capabilities()
	if err != nil {
		return err
	}
	s.capabilities = capabilities

	if !capabilities.SupportedUsage.Contains(usage) {
		return fmt.Errorf("%w: %#x", ErrUsageNotSupported, uint32(usage))
	}
	if !capabilities.SupportsFormat(format) {
		return fmt.Errorf("%w: %s", ErrFormatUnsupported, format)
	}
	if !capabilities.SupportsPresentMode(mode) {
		return fmt.Errorf("%w: %s", ErrPresentModeUnsupported, mode)
	}

	compositeAlpha := metadata.CompositeAlphaOpaque
	if capabilities.SupportedCompositeAlpha == 0 {
		core.LogWarn("surface reports no supported composite alpha mode; picking opaque and hoping for the best")
	} else {
		// Lowest set bit keeps the selection deterministic.
		compositeAlpha = metadata.CompositeAlphaFlags(1 << bits.TrailingZeros32(uint32(capabilities.SupportedCompositeAlpha)))
	}

	maxImageCount := capabilities.MaxImageCount
	if maxImageCount == 0 {
		maxImageCount = ^uint32(0)
	}
	imageCount := amath.Clamp(uint32(preferredImageCount), capabilities.MinImageCount, maxImageCount)

	var oldChain NativeSwapchain
	if s.current != nil {
		oldChain = s.current.chain
		s.retired.Enqueue(s.current)
		s.current = nil
	}

	chain, err := s.device.CreateSwapchain(s.surface, SwapchainInfo{
		MinImageCount:  imageCount,
		Format:         format,
		Extent:         capabilities.CurrentExtent,
		ArrayLayers:    1,
		Usage:          usage,
		PreTransform:   capabilities.CurrentTransform,
		CompositeAlpha: compositeAlpha,
		PresentMode:    mode,
		OldSwapchain:   oldChain,
	})
	if err != nil {
		return err
	}

	images := make([]swapchainImageAndSemaphores, 0, chain.ImageCount())
	for i := 0; i < chain.ImageCount(); i++ {
		acquire, err := s.device.CreateSemaphore()
		if err == nil {
			var release metadata.Semaphore
			release, err = s.device.CreateSemaphore()
			if err != nil {
				acquire.Destroy()
			} else {
				images = append(images, swapchainImageAndSemaphores{
					image: newSwapchainImage(metadata.ImageInfo{
						Extent:  capabilities.CurrentExtent,
						Format:  format,
						Levels:  1,
						Layers:  1,
						Samples: metadata.Samples1,
						Usage:   usage,
					}, s.device),
					acquire: acquire,
					release: release,
				})
				continue
			}
		}

		// Destroy the partially-created generation before surfacing.
		for j := range images {
			images[j].acquire.Destroy()
			images[j].release.Destroy()
		}
		s.device.DestroySwapchain(chain)
		return fmt.Errorf("%w: swapchain semaphore allocation failed", ErrOutOfMemory)
	}

	s.current = &swapchainGeneration{
		chain:         chain,
		images:        images,
		acquiredCount: 0,
		format:        format,
		extent:        capabilities.CurrentExtent,
		usage:         usage,
		mode:          mode,
		optimal:       true,
	}

	core.LogDebug("swapchain configured: %d images, %s, %s, %dx%d",
		len(images), format, mode, capabilities.CurrentExtent.Width, capabilities.CurrentExtent.Height)
	return nil
}

// drainRetired destroys retired generations from the front of the queue
// until one still has referenced images.
func (s *Swapchain) drainRetired() {
	for !s.retired.IsEmpty() {
		generation, _ := s.retired.Dequeue()
		if !generation.disposable() {
			s.retired.EnqueueFront(generation)
			return
		}

		generation.destroy(s.device)
		core.LogDebug("destroyed retired swapchain, %d left", s.retired.Len())
	}
}

/**
 * @brief Destroy tears the swapchain down: waits for the device to go
 * idle, destroys every retired generation, the current one and the spare
 * semaphore. Outstanding handles must have been presented first.
 */
func (s *Swapchain) Destroy() {
	if s.device.Alive() {
		s.device.WaitIdle()
	}
	if s.current != nil {
		s.retired.Enqueue(s.current)
		s.current = nil
	}
	s.drainRetired()
	if !s.retired.IsEmpty() {
		core.LogError("%d swapchain generations still referenced at destruction", s.retired.Len())
	}
	s.freeSemaphore.Destroy()
}

/**
 * @brief AcquireImage blocks until the presentation engine hands over an
 * image, then returns a single-use handle that must be consumed through
 * Presented. When optimal is true and the current generation went
 * suboptimal, the swapchain reconfigures itself first.
 */
func (s *Swapchain) AcquireImage(optimal bool) (*SwapchainImage, error) {
	for {
		if !s.device.Alive() {
			return nil, ErrSurfaceLost
		}

		generation := s.current
		if generation == nil {
			return nil, ErrNotConfigured
		}

		if generation.acquiredCount > uint32(len(generation.images))-s.capabilities.MinImageCount {
			return nil, ErrTooManyAcquired
		}

		if optimal && !generation.optimal {
			// Self-heal: recreate with the same parameters and retry.
			if err := s.Configure(generation.usage, generation.format, generation.mode); err != nil {
				return nil, err
			}
			continue
		}

		index, result := generation.chain.Acquire(NoTimeout, s.freeSemaphore)
		switch result {
		case AcquireSuccess:
		case AcquireSuboptimal:
			// Image acquired but the chain should be replaced. It must
			// still be presented either way.
			generation.optimal = false
		case AcquireOutOfDate:
			// No image acquired. Reconfigure and retry.
			if err := s.Configure(generation.usage, generation.format, generation.mode); err != nil {
				return nil, err
			}
			continue
		case AcquireSurfaceLost:
			return nil, ErrSurfaceLost
		case AcquireOutOfHostMemory:
			core.LogFatal("host memory exhausted while acquiring swapchain image")
		case AcquireOutOfDeviceMemory:
			return nil, ErrOutOfMemory
		default:
			core.LogFatal("unexpected native result %d from swapchain acquire", result)
		}

		slot := &generation.images[index]

		// The free semaphore was just handed to the presentation engine
		// for this image; adopt it as the image's acquire semaphore and
		// recycle the previous one, which no in-flight work references.
		slot.acquire, s.freeSemaphore = s.freeSemaphore, slot.acquire

		generation.acquiredCount++
		slot.image.Retain()

		image := &SwapchainImage{
			image:             slot.image,
			wait:              slot.acquire,
			signal:            slot.release,
			owner:             s.device,
			generation:        generation,
			supportedFamilies: s.capabilities.SupportedFamilies,
			index:             index,
			optimal:           generation.optimal,
		}
		// Reproduces the must-present contract: a handle collected
		// without passing through Presented is a usage error worth
		// shouting about, though not fatal on its own.
		runtime.SetFinalizer(image, func(img *SwapchainImage) {
			core.LogError("swapchain image %s dropped without being presented; swapchain images MUST be presented", img.image.ID())
		})
		return image, nil
	}
}

/**
 * @brief Presented consumes the handle, returning image ownership to the
 * presentation engine's cycle. This is the only legitimate way to retire
 * an acquired image.
 */
func (s *Swapchain) Presented(image *SwapchainImage) {
	if image.presented {
		core.LogError("swapchain image %s presented twice", image.image.ID())
		return
	}
	image.presented = true
	image.generation.acquiredCount--
	image.image.Release()
	runtime.SetFinalizer(image, nil)
}

/**
 * @brief A borrowed, single-use view of one acquired swapchain image plus
 * its paired synchronization primitives. Must be returned through
 * Swapchain.Presented exactly once.
 */
type SwapchainImage struct {
	image             *Image
	wait              metadata.Semaphore
	signal            metadata.Semaphore
	owner             Device
	generation        *swapchainGeneration
	supportedFamilies []bool
	index             uint32
	optimal           bool
	presented         bool
}

// Image returns the underlying image record.
func (si *SwapchainImage) Image() *Image {
	return si.image
}

// Chain returns the native swapchain the image belongs to, for the
// backend's present call.
func (si *SwapchainImage) Chain() NativeSwapchain {
	return si.generation.chain
}

// Wait returns the semaphore GPU work must wait on before touching the image.
func (si *SwapchainImage) Wait() metadata.Semaphore {
	return si.wait
}

// Signal returns the semaphore to signal after the last image access; the
// presentation engine waits on it.
func (si *SwapchainImage) Signal() metadata.Semaphore {
	return si.signal
}

// Index returns the image's position within its generation.
func (si *SwapchainImage) Index() uint32 {
	return si.index
}

// IsOptimal reports whether the image is optimal for the surface. A
// non-optimal image can still be rendered to and must be presented; it is
// the hint that the swapchain should be reconfigured.
func (si *SwapchainImage) IsOptimal() bool {
	return si.optimal
}

// IsOwnedBy reports whether the handle was produced by device.
func (si *SwapchainImage) IsOwnedBy(device Device) bool {
	return si.owner == device
}

// SupportedFamilies reports, per queue family, whether presentation to the
// owning surface is supported.
func (si *SwapchainImage) SupportedFamilies() []bool {
	return si.supportedFamilies
}
