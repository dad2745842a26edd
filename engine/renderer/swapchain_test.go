package renderer

import (
	"errors"
	"testing"

	"github.com/spaghettifunk/aurora/engine/renderer/metadata"
)

func TestConfigurePicksPreferredImageCount(t *testing.T) {
	swapchain, device, _ := newTestSwapchain(t)

	err := swapchain.Configure(metadata.ImageUsageColorAttachment, metadata.FormatB8G8R8A8Unorm, metadata.PresentModeImmediate)
	if err != nil {
		t.Fatalf("Configure failed: %v", err)
	}

	if len(device.chainsCreated) != 1 {
		t.Fatalf("expected 1 native swapchain, got %d", len(device.chainsCreated))
	}
	chain := device.chainsCreated[0]
	if chain.info.MinImageCount != 3 {
		t.Fatalf("expected preferred image count 3, got %d", chain.info.MinImageCount)
	}
	if !swapchain.current.optimal {
		t.Fatalf("fresh generation should be optimal")
	}
	if chain.info.CompositeAlpha != metadata.CompositeAlphaOpaque {
		t.Fatalf("expected lowest composite alpha bit (opaque), got %#x", uint32(chain.info.CompositeAlpha))
	}
	if chain.info.OldSwapchain != nil {
		t.Fatalf("first configuration should not chain an old swapchain")
	}
}

func TestConfigureClampsImageCountToMinimum(t *testing.T) {
	device := newFakeDevice()
	caps := defaultCaps()
	caps.MinImageCount = 4
	surface := &fakeSurface{caps: caps}
	swapchain, err := NewSwapchain(surface, device)
	if err != nil {
		t.Fatalf("NewSwapchain failed: %v", err)
	}

	if err := swapchain.Configure(metadata.ImageUsageColorAttachment, metadata.FormatB8G8R8A8Unorm, metadata.PresentModeFifo); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}
	if got := device.chainsCreated[0].info.MinImageCount; got != 4 {
		t.Fatalf("expected image count clamped up to 4, got %d", got)
	}
}

func TestConfigureValidatesParameters(t *testing.T) {
	tests := []struct {
		name   string
		usage  metadata.ImageUsage
		format metadata.Format
		mode   metadata.PresentMode
		want   error
	}{
		{"usage", metadata.ImageUsageStorage, metadata.FormatB8G8R8A8Unorm, metadata.PresentModeFifo, ErrUsageNotSupported},
		{"format", metadata.ImageUsageColorAttachment, metadata.FormatR16G16B16A16Sfloat, metadata.PresentModeFifo, ErrFormatUnsupported},
		{"mode", metadata.ImageUsageColorAttachment, metadata.FormatB8G8R8A8Unorm, metadata.PresentModeMailbox, ErrPresentModeUnsupported},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			swapchain, _, _ := newTestSwapchain(t)
			err := swapchain.Configure(tt.usage, tt.format, tt.mode)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestConfigureCompositeAlphaFallback(t *testing.T) {
	device := newFakeDevice()
	caps := defaultCaps()
	caps.SupportedCompositeAlpha = 0
	surface := &fakeSurface{caps: caps}
	swapchain, err := NewSwapchain(surface, device)
	if err != nil {
		t.Fatalf("NewSwapchain failed: %v", err)
	}

	if err := swapchain.Configure(metadata.ImageUsageColorAttachment, metadata.FormatB8G8R8A8Unorm, metadata.PresentModeFifo); err != nil {
		t.Fatalf("Configure should fall back to opaque, got %v", err)
	}
	if got := device.chainsCreated[0].info.CompositeAlpha; got != metadata.CompositeAlphaOpaque {
		t.Fatalf("expected opaque fallback, got %#x", uint32(got))
	}
}

func TestConfigureLowestCompositeAlphaBit(t *testing.T) {
	device := newFakeDevice()
	caps := defaultCaps()
	caps.SupportedCompositeAlpha = metadata.CompositeAlphaPostMultiplied | metadata.CompositeAlphaInherit
	surface := &fakeSurface{caps: caps}
	swapchain, err := NewSwapchain(surface, device)
	if err != nil {
		t.Fatalf("NewSwapchain failed: %v", err)
	}

	if err := swapchain.Configure(metadata.ImageUsageColorAttachment, metadata.FormatB8G8R8A8Unorm, metadata.PresentModeFifo); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}
	if got := device.chainsCreated[0].info.CompositeAlpha; got != metadata.CompositeAlphaPostMultiplied {
		t.Fatalf("expected lowest set bit (post-multiplied), got %#x", uint32(got))
	}
}

func TestReconfigureChainsAndRetiresOldGeneration(t *testing.T) {
	swapchain, device, _ := newTestSwapchain(t)

	usage := metadata.ImageUsageColorAttachment
	format := metadata.FormatB8G8R8A8Unorm
	if err := swapchain.Configure(usage, format, metadata.PresentModeFifo); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}
	first := device.chainsCreated[0]

	if err := swapchain.Configure(usage, format, metadata.PresentModeImmediate); err != nil {
		t.Fatalf("reconfigure failed: %v", err)
	}
	second := device.chainsCreated[1]
	if second.info.OldSwapchain != NativeSwapchain(first) {
		t.Fatalf("reconfiguration should chain the superseded swapchain")
	}
	if swapchain.retired.Len() != 1 {
		t.Fatalf("expected 1 retired generation, got %d", swapchain.retired.Len())
	}
	if len(device.chainsDestroyed) != 0 {
		t.Fatalf("retired generation destroyed too early")
	}

	// The next configuration drains the (now unreferenced) generation.
	if err := swapchain.Configure(usage, format, metadata.PresentModeFifo); err != nil {
		t.Fatalf("reconfigure failed: %v", err)
	}
	if len(device.chainsDestroyed) != 1 || device.chainsDestroyed[0] != first {
		t.Fatalf("expected first chain destroyed, got %v", device.chainsDestroyed)
	}
}

func TestRetiredGenerationWaitsForImageReferences(t *testing.T) {
	swapchain, device, _ := newTestSwapchain(t)

	usage := metadata.ImageUsageColorAttachment
	format := metadata.FormatB8G8R8A8Unorm
	if err := swapchain.Configure(usage, format, metadata.PresentModeFifo); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}

	image, err := swapchain.AcquireImage(false)
	if err != nil {
		t.Fatalf("AcquireImage failed: %v", err)
	}

	// Retire the generation while one of its images is still out.
	if err := swapchain.Configure(usage, format, metadata.PresentModeFifo); err != nil {
		t.Fatalf("reconfigure failed: %v", err)
	}
	if err := swapchain.Configure(usage, format, metadata.PresentModeFifo); err != nil {
		t.Fatalf("reconfigure failed: %v", err)
	}
	if len(device.chainsDestroyed) != 0 {
		t.Fatalf("generation with an acquired image must not be destroyed")
	}

	swapchain.Presented(image)

	if err := swapchain.Configure(usage, format, metadata.PresentModeFifo); err != nil {
		t.Fatalf("reconfigure failed: %v", err)
	}
	if len(device.chainsDestroyed) == 0 {
		t.Fatalf("released generation should have been destroyed")
	}
}

func TestAcquireBeforeConfigure(t *testing.T) {
	swapchain, _, _ := newTestSwapchain(t)
	if _, err := swapchain.AcquireImage(false); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestAcquireLimitsOutstandingImages(t *testing.T) {
	swapchain, _, _ := newTestSwapchain(t)
	if err := swapchain.Configure(metadata.ImageUsageColorAttachment, metadata.FormatB8G8R8A8Unorm, metadata.PresentModeFifo); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}

	// 3 images, min 2: two may be held at once.
	first, err := swapchain.AcquireImage(false)
	if err != nil {
		t.Fatalf("first acquire failed: %v", err)
	}
	second, err := swapchain.AcquireImage(false)
	if err != nil {
		t.Fatalf("second acquire failed: %v", err)
	}
	if _, err := swapchain.AcquireImage(false); !errors.Is(err, ErrTooManyAcquired) {
		t.Fatalf("expected ErrTooManyAcquired, got %v", err)
	}

	swapchain.Presented(first)

	third, err := swapchain.AcquireImage(false)
	if err != nil {
		t.Fatalf("acquire after present failed: %v", err)
	}
	swapchain.Presented(second)
	swapchain.Presented(third)
}

func TestPresentedDecrementsOnce(t *testing.T) {
	swapchain, _, _ := newTestSwapchain(t)
	if err := swapchain.Configure(metadata.ImageUsageColorAttachment, metadata.FormatB8G8R8A8Unorm, metadata.PresentModeFifo); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}

	image, err := swapchain.AcquireImage(false)
	if err != nil {
		t.Fatalf("AcquireImage failed: %v", err)
	}
	if swapchain.current.acquiredCount != 1 {
		t.Fatalf("expected acquiredCount 1, got %d", swapchain.current.acquiredCount)
	}

	swapchain.Presented(image)
	if swapchain.current.acquiredCount != 0 {
		t.Fatalf("expected acquiredCount 0, got %d", swapchain.current.acquiredCount)
	}

	// A second present of the same handle is a diagnosed no-op.
	swapchain.Presented(image)
	if swapchain.current.acquiredCount != 0 {
		t.Fatalf("double present must not decrement again, got %d", swapchain.current.acquiredCount)
	}
}

func TestAcquireOutOfDateSelfHeals(t *testing.T) {
	swapchain, device, _ := newTestSwapchain(t)
	device.nextChainScript = []AcquireResult{AcquireOutOfDate}
	if err := swapchain.Configure(metadata.ImageUsageColorAttachment, metadata.FormatB8G8R8A8Unorm, metadata.PresentModeFifo); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}

	image, err := swapchain.AcquireImage(false)
	if err != nil {
		t.Fatalf("acquire should self-heal after out-of-date, got %v", err)
	}
	if len(device.chainsCreated) != 2 {
		t.Fatalf("expected automatic reconfiguration, chains created: %d", len(device.chainsCreated))
	}
	if device.chainsCreated[1].info.OldSwapchain != NativeSwapchain(device.chainsCreated[0]) {
		t.Fatalf("reconfiguration should chain the out-of-date swapchain")
	}
	swapchain.Presented(image)
}

func TestAcquireSuboptimalStillReturnsImage(t *testing.T) {
	swapchain, device, _ := newTestSwapchain(t)
	device.nextChainScript = []AcquireResult{AcquireSuboptimal}
	if err := swapchain.Configure(metadata.ImageUsageColorAttachment, metadata.FormatB8G8R8A8Unorm, metadata.PresentModeFifo); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}

	image, err := swapchain.AcquireImage(false)
	if err != nil {
		t.Fatalf("suboptimal acquire must still hand out the image, got %v", err)
	}
	if image.IsOptimal() {
		t.Fatalf("image from a suboptimal chain should not be optimal")
	}
	if len(device.chainsCreated) != 1 {
		t.Fatalf("suboptimal must not reconfigure on its own")
	}
	swapchain.Presented(image)

	// Requesting an optimal image now triggers reconfiguration.
	image, err = swapchain.AcquireImage(true)
	if err != nil {
		t.Fatalf("optimal acquire failed: %v", err)
	}
	if len(device.chainsCreated) != 2 {
		t.Fatalf("optimal request on a suboptimal chain should reconfigure")
	}
	if !image.IsOptimal() {
		t.Fatalf("image from the fresh chain should be optimal")
	}
	swapchain.Presented(image)
}

func TestAcquireDeviceMemoryExhaustion(t *testing.T) {
	swapchain, device, _ := newTestSwapchain(t)
	device.nextChainScript = []AcquireResult{AcquireOutOfDeviceMemory}
	if err := swapchain.Configure(metadata.ImageUsageColorAttachment, metadata.FormatB8G8R8A8Unorm, metadata.PresentModeFifo); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}
	if _, err := swapchain.AcquireImage(false); !errors.Is(err, ErrOutOfMemory) {
		t.Fatalf("expected ErrOutOfMemory, got %v", err)
	}
}

func TestAcquireRotatesFreeSemaphore(t *testing.T) {
	swapchain, _, _ := newTestSwapchain(t)
	if err := swapchain.Configure(metadata.ImageUsageColorAttachment, metadata.FormatB8G8R8A8Unorm, metadata.PresentModeFifo); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}

	spare := swapchain.freeSemaphore
	image, err := swapchain.AcquireImage(false)
	if err != nil {
		t.Fatalf("AcquireImage failed: %v", err)
	}
	if image.Wait() != spare {
		t.Fatalf("acquired image should wait on the semaphore handed to the native acquire")
	}
	if swapchain.freeSemaphore == spare {
		t.Fatalf("free semaphore should have been swapped into the image slot")
	}
	swapchain.Presented(image)
}

func TestDeadDeviceSurfacesAsLost(t *testing.T) {
	swapchain, device, _ := newTestSwapchain(t)
	if err := swapchain.Configure(metadata.ImageUsageColorAttachment, metadata.FormatB8G8R8A8Unorm, metadata.PresentModeFifo); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}

	device.alive = false
	if err := swapchain.Configure(metadata.ImageUsageColorAttachment, metadata.FormatB8G8R8A8Unorm, metadata.PresentModeFifo); !errors.Is(err, ErrSurfaceLost) {
		t.Fatalf("expected ErrSurfaceLost from Configure, got %v", err)
	}
	if _, err := swapchain.AcquireImage(false); !errors.Is(err, ErrSurfaceLost) {
		t.Fatalf("expected ErrSurfaceLost from AcquireImage, got %v", err)
	}
}

func TestRetiredBacklogForcesDeviceIdle(t *testing.T) {
	swapchain, device, _ := newTestSwapchain(t)

	usage := metadata.ImageUsageColorAttachment
	format := metadata.FormatB8G8R8A8Unorm
	if err := swapchain.Configure(usage, format, metadata.PresentModeFifo); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}

	// Simulate an application pinning one image per generation; release
	// everything only when the device goes idle.
	var pinned []*Image
	device.onWaitIdle = func() {
		for _, image := range pinned {
			image.Release()
		}
		pinned = nil
	}

	for i := 0; i < maxRetiredGenerations+2; i++ {
		image, err := swapchain.AcquireImage(false)
		if err != nil {
			t.Fatalf("acquire %d failed: %v", i, err)
		}
		image.Image().Retain()
		pinned = append(pinned, image.Image())
		swapchain.Presented(image)

		if err := swapchain.Configure(usage, format, metadata.PresentModeFifo); err != nil {
			t.Fatalf("reconfigure %d failed: %v", i, err)
		}
	}

	if device.idleWaits == 0 {
		t.Fatalf("exceeding the retirement backlog should force a device idle wait")
	}
	if swapchain.retired.Len() > maxRetiredGenerations {
		t.Fatalf("backlog not drained after idle wait: %d", swapchain.retired.Len())
	}
}

func TestDestroyDrainsEverything(t *testing.T) {
	swapchain, device, _ := newTestSwapchain(t)
	if err := swapchain.Configure(metadata.ImageUsageColorAttachment, metadata.FormatB8G8R8A8Unorm, metadata.PresentModeFifo); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}
	if err := swapchain.Configure(metadata.ImageUsageColorAttachment, metadata.FormatB8G8R8A8Unorm, metadata.PresentModeFifo); err != nil {
		t.Fatalf("reconfigure failed: %v", err)
	}

	swapchain.Destroy()
	if len(device.chainsDestroyed) != 2 {
		t.Fatalf("expected both generations destroyed, got %d", len(device.chainsDestroyed))
	}
}
