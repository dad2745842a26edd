package metadata

/** @brief Holds bit flags for memory access kinds, used in barriers. */
type AccessFlags uint32

const (
	AccessIndirectCommandRead AccessFlags = 1 << iota
	AccessIndexRead
	AccessVertexAttributeRead
	AccessUniformRead
	AccessInputAttachmentRead
	AccessShaderRead
	AccessShaderWrite
	AccessColorAttachmentRead
	AccessColorAttachmentWrite
	AccessDepthStencilAttachmentRead
	AccessDepthStencilAttachmentWrite
	AccessTransferRead
	AccessTransferWrite
	AccessHostRead
	AccessHostWrite
	AccessMemoryRead
	AccessMemoryWrite
)

/** @brief A global memory dependency between two access scopes. */
type MemoryBarrier struct {
	Src AccessFlags
	Dst AccessFlags
}

/**
 * @brief A layout transition plus memory dependency for one image. The
 * backend translates it into the native pipeline barrier.
 */
type ImageBarrier struct {
	OldLayout Layout
	NewLayout Layout
	Src       AccessFlags
	Dst       AccessFlags
}
