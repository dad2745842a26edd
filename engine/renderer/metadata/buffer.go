package metadata

/** @brief Holds bit flags for allowed buffer usages. */
type BufferUsage uint32

const (
	BufferUsageTransferSrc BufferUsage = 0x001
	BufferUsageTransferDst BufferUsage = 0x002
	BufferUsageUniform     BufferUsage = 0x010
	BufferUsageStorage     BufferUsage = 0x020
	BufferUsageIndex       BufferUsage = 0x040
	BufferUsageVertex      BufferUsage = 0x080
)

/** @brief Describes a buffer at creation time. */
type BufferInfo struct {
	/** @brief Required alignment of the buffer's backing memory. */
	Align uint64
	/** @brief Size of the buffer in bytes. */
	Size  uint64
	Usage BufferUsage
}

/**
 * @brief A range of a buffer, used as the resolved form of buffer
 * descriptor bindings. Two ranges are equal when they name the same
 * buffer object, offset and size.
 */
type BufferRange struct {
	Buffer Buffer
	Offset uint64
	Size   uint64
}

// WholeBuffer returns the range covering all of buffer.
func WholeBuffer(buffer Buffer) BufferRange {
	return BufferRange{
		Buffer: buffer,
		Offset: 0,
		Size:   buffer.Size(),
	}
}
