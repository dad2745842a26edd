package metadata

/** @brief Texel formats usable for surface images. */
type Format int

const (
	FormatUndefined Format = iota
	FormatB8G8R8A8Unorm
	FormatB8G8R8A8Srgb
	FormatR8G8B8A8Unorm
	FormatR8G8B8A8Srgb
	FormatR16G16B16A16Sfloat
	FormatA2B10G10R10UnormPack32
)

func (f Format) String() string {
	switch f {
	case FormatB8G8R8A8Unorm:
		return "B8G8R8A8_UNORM"
	case FormatB8G8R8A8Srgb:
		return "B8G8R8A8_SRGB"
	case FormatR8G8B8A8Unorm:
		return "R8G8B8A8_UNORM"
	case FormatR8G8B8A8Srgb:
		return "R8G8B8A8_SRGB"
	case FormatR16G16B16A16Sfloat:
		return "R16G16B16A16_SFLOAT"
	case FormatA2B10G10R10UnormPack32:
		return "A2B10G10R10_UNORM_PACK32"
	}
	return "UNDEFINED"
}

/** @brief Holds bit flags for allowed image usages. */
type ImageUsage uint32

const (
	/** @brief Image can be the source of transfer operations. */
	ImageUsageTransferSrc ImageUsage = 0x001
	/** @brief Image can be the destination of transfer operations. */
	ImageUsageTransferDst ImageUsage = 0x002
	/** @brief Image can be bound as a sampled-image descriptor. */
	ImageUsageSampled ImageUsage = 0x004
	/** @brief Image can be bound as a storage-image descriptor. */
	ImageUsageStorage ImageUsage = 0x008
	/** @brief Image can be a color attachment. */
	ImageUsageColorAttachment ImageUsage = 0x010
	/** @brief Image can be a depth-stencil attachment. */
	ImageUsageDepthStencilAttachment ImageUsage = 0x020
	/** @brief Image can be an input attachment. */
	ImageUsageInputAttachment ImageUsage = 0x080
)

// Contains reports whether every bit of other is set in u.
func (u ImageUsage) Contains(other ImageUsage) bool {
	return u&other == other
}

// IsRenderTarget reports whether the usage allows attachment use, color or depth.
func (u ImageUsage) IsRenderTarget() bool {
	return u&(ImageUsageColorAttachment|ImageUsageDepthStencilAttachment) != 0
}

// IsReadOnly reports whether no mutating usage is allowed.
// Content can still be modified through memory mapping.
func (u ImageUsage) IsReadOnly() bool {
	return u&(ImageUsageTransferDst|ImageUsageStorage|ImageUsageColorAttachment|ImageUsageDepthStencilAttachment) == 0
}

/**
 * @brief Image layout. Operations require the image to be in one of the
 * layouts they accept; the application inserts the transitions.
 */
type Layout int

const (
	LayoutUndefined Layout = iota
	/** @brief Usable with all device operations except presentation. */
	LayoutGeneral
	LayoutColorAttachmentOptimal
	LayoutDepthStencilAttachmentOptimal
	LayoutDepthStencilReadOnlyOptimal
	/** @brief For images read from shaders without writes. */
	LayoutShaderReadOnlyOptimal
	LayoutTransferSrcOptimal
	LayoutTransferDstOptimal
	/** @brief Layout for swapchain image presentation. */
	LayoutPresent
)

/** @brief Sample counts for multisampled images. */
type Samples int

const (
	Samples1 Samples = 1 << iota
	Samples2
	Samples4
	Samples8
	Samples16
	Samples32
	Samples64
)

/** @brief Describes an image at creation time. */
type ImageInfo struct {
	Extent  Extent2D
	Format  Format
	Levels  uint32
	Layers  uint32
	Samples Samples
	Usage   ImageUsage
}

/**
 * @brief A descriptor payload binding an image view with the layout the
 * shader will observe it in.
 */
type ImageViewDescriptor struct {
	View   ImageView
	Layout Layout
}

/** @brief A combined image-sampler descriptor payload. */
type CombinedImageSampler struct {
	View    ImageView
	Sampler Sampler
	Layout  Layout
}
