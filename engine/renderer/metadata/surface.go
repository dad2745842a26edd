package metadata

/**
 * @brief Presentation modes supported by a surface. Mirrors the native
 * present mode set; which modes are actually offered is reported per
 * surface in SurfaceCapabilities.
 */
type PresentMode int

const (
	/** @brief Presentation does not wait for vertical blanking. Tearing is visible. */
	PresentModeImmediate PresentMode = iota
	/** @brief Single-entry mailbox; a newer image replaces the waiting one. */
	PresentModeMailbox
	/** @brief First-in first-out queue, always supported. */
	PresentModeFifo
	/** @brief Fifo that does not wait for the next vertical blank if late. */
	PresentModeFifoRelaxed
)

func (pm PresentMode) String() string {
	switch pm {
	case PresentModeImmediate:
		return "immediate"
	case PresentModeMailbox:
		return "mailbox"
	case PresentModeFifo:
		return "fifo"
	case PresentModeFifoRelaxed:
		return "fifo_relaxed"
	}
	return "unknown"
}

/** @brief Holds bit flags for supported composite alpha modes. */
type CompositeAlphaFlags uint32

const (
	CompositeAlphaOpaque         CompositeAlphaFlags = 0x1
	CompositeAlphaPreMultiplied  CompositeAlphaFlags = 0x2
	CompositeAlphaPostMultiplied CompositeAlphaFlags = 0x4
	CompositeAlphaInherit        CompositeAlphaFlags = 0x8
)

/** @brief Holds bit flags for surface transforms. */
type SurfaceTransformFlags uint32

const (
	SurfaceTransformIdentity                  SurfaceTransformFlags = 0x001
	SurfaceTransformRotate90                  SurfaceTransformFlags = 0x002
	SurfaceTransformRotate180                 SurfaceTransformFlags = 0x004
	SurfaceTransformRotate270                 SurfaceTransformFlags = 0x008
	SurfaceTransformHorizontalMirror          SurfaceTransformFlags = 0x010
	SurfaceTransformHorizontalMirrorRotate90  SurfaceTransformFlags = 0x020
	SurfaceTransformHorizontalMirrorRotate180 SurfaceTransformFlags = 0x040
	SurfaceTransformHorizontalMirrorRotate270 SurfaceTransformFlags = 0x080
	SurfaceTransformInherit                   SurfaceTransformFlags = 0x100
)

// Extent2D is a two-dimensional extent in pixels.
type Extent2D struct {
	Width  uint32
	Height uint32
}

/**
 * @brief Capabilities of a presentation surface as reported by the device.
 * Re-queried on every swapchain configuration since the current extent and
 * transform change with the window.
 */
type SurfaceCapabilities struct {
	/** @brief Per queue family, whether presentation to the surface is supported. */
	SupportedFamilies []bool
	/** @brief The minimum number of images the presentation engine requires. Always >= 1. */
	MinImageCount uint32
	/** @brief The maximum number of images. Zero means no limit. */
	MaxImageCount           uint32
	CurrentExtent           Extent2D
	MinImageExtent          Extent2D
	MaxImageExtent          Extent2D
	CurrentTransform        SurfaceTransformFlags
	SupportedTransforms     SurfaceTransformFlags
	SupportedCompositeAlpha CompositeAlphaFlags
	/** @brief Usages the surface supports for its images. */
	SupportedUsage ImageUsage
	/** @brief Present modes offered by the surface. */
	PresentModes []PresentMode
	/** @brief Image formats offered by the surface. */
	Formats []Format
}

// SupportsFormat reports whether the surface offers the given image format.
func (sc *SurfaceCapabilities) SupportsFormat(format Format) bool {
	for _, f := range sc.Formats {
		if f == format {
			return true
		}
	}
	return false
}

// SupportsPresentMode reports whether the surface offers the given present mode.
func (sc *SurfaceCapabilities) SupportsPresentMode(mode PresentMode) bool {
	for _, m := range sc.PresentModes {
		if m == mode {
			return true
		}
	}
	return false
}
