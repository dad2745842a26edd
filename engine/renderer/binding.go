package renderer

import (
	"github.com/spaghettifunk/aurora/engine/renderer/metadata"
)

// SampledImageBinding is implemented by logical image resources bound as
// sampled images. A logical resource may resolve to a different underlying
// view over time (for instance after a resize), so equality is defined on
// the resolved view, not on the resource itself.
type SampledImageBinding interface {
	// MatchesView reports whether the resource currently resolves to view.
	MatchesView(view metadata.ImageView) bool

	// ResolveView returns the view the resource currently maps to.
	ResolveView(device Device) (metadata.ImageView, error)
}

// BufferBinding is implemented by logical resources bound as uniform or
// storage buffers. Equality is defined on the resolved range: buffer
// identity, offset and size.
type BufferBinding interface {
	MatchesRange(r metadata.BufferRange) bool
	ResolveRange(device Device) (metadata.BufferRange, error)
}

// UniformBlock is the embedded inline-uniform block of a descriptor set
// declaration. The block's serialized size is fixed; its contents may
// change every frame.
type UniformBlock interface {
	// ByteSize returns the serialized size of the block.
	ByteSize() uint64

	// WriteTo serializes the block's current values into dst, which has
	// length ByteSize.
	WriteTo(dst []byte)
}

// StaticImageView adapts a fixed image view to SampledImageBinding.
type StaticImageView struct {
	View metadata.ImageView
}

func (b StaticImageView) MatchesView(view metadata.ImageView) bool {
	return b.View == view
}

func (b StaticImageView) ResolveView(Device) (metadata.ImageView, error) {
	return b.View, nil
}

// WholeBufferBinding binds the entirety of a buffer. It stays clean as
// long as the cached range covers the same buffer from offset zero to its
// full size.
type WholeBufferBinding struct {
	Buffer metadata.Buffer
}

func (b WholeBufferBinding) MatchesRange(r metadata.BufferRange) bool {
	return r.Buffer == b.Buffer && r.Offset == 0 && r.Size == b.Buffer.Size()
}

func (b WholeBufferBinding) ResolveRange(Device) (metadata.BufferRange, error) {
	return metadata.WholeBuffer(b.Buffer), nil
}

// RangeBinding binds an explicit buffer range.
type RangeBinding metadata.BufferRange

func (b RangeBinding) MatchesRange(r metadata.BufferRange) bool {
	return metadata.BufferRange(b) == r
}

func (b RangeBinding) ResolveRange(Device) (metadata.BufferRange, error) {
	return metadata.BufferRange(b), nil
}
