package renderer

import (
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/spaghettifunk/aurora/engine/renderer/metadata"
)

/**
 * @brief One presentable image of a swapchain generation. The image memory
 * itself is owned by the native swapchain; this record carries the shared
 * bookkeeping: creation info, identity, the last known layout and the
 * outstanding-reference count that gates generation retirement.
 */
type Image struct {
	info  metadata.ImageInfo
	owner Device
	id    uuid.UUID

	// Number of outstanding external references: acquired handles and
	// application resources built on this image. The owning generation is
	// destroyed only once this drops to zero for every image.
	refs atomic.Int32

	layout metadata.Layout
}

func newSwapchainImage(info metadata.ImageInfo, owner Device) *Image {
	return &Image{
		info:   info,
		owner:  owner,
		id:     uuid.New(),
		layout: metadata.LayoutUndefined,
	}
}

func (i *Image) Info() metadata.ImageInfo {
	return i.info
}

// ID returns the unique identity of this image, stable for its lifetime.
func (i *Image) ID() uuid.UUID {
	return i.id
}

// IsOwnedBy reports whether the image was created by device. Identity
// comparison only; holding an Image never extends the device's lifetime.
func (i *Image) IsOwnedBy(device Device) bool {
	return i.owner == device
}

// Retain registers an external reference to the image.
func (i *Image) Retain() {
	i.refs.Add(1)
}

// Release drops a reference previously added with Retain.
func (i *Image) Release() {
	i.refs.Add(-1)
}

// Disposable reports whether no external references remain.
func (i *Image) Disposable() bool {
	return i.refs.Load() == 0
}

// Layout returns the last layout recorded for the image.
func (i *Image) Layout() metadata.Layout {
	return i.layout
}

/**
 * @brief TransitionTo records a layout change and returns the barrier the
 * backend must execute to make it real. Access scopes are derived from the
 * layouts involved.
 */
func (i *Image) TransitionTo(layout metadata.Layout) metadata.ImageBarrier {
	barrier := metadata.ImageBarrier{
		OldLayout: i.layout,
		NewLayout: layout,
		Src:       accessFor(i.layout),
		Dst:       accessFor(layout),
	}
	i.layout = layout
	return barrier
}

func accessFor(layout metadata.Layout) metadata.AccessFlags {
	switch layout {
	case metadata.LayoutColorAttachmentOptimal:
		return metadata.AccessColorAttachmentRead | metadata.AccessColorAttachmentWrite
	case metadata.LayoutDepthStencilAttachmentOptimal:
		return metadata.AccessDepthStencilAttachmentRead | metadata.AccessDepthStencilAttachmentWrite
	case metadata.LayoutDepthStencilReadOnlyOptimal:
		return metadata.AccessDepthStencilAttachmentRead
	case metadata.LayoutShaderReadOnlyOptimal:
		return metadata.AccessShaderRead
	case metadata.LayoutTransferSrcOptimal:
		return metadata.AccessTransferRead
	case metadata.LayoutTransferDstOptimal:
		return metadata.AccessTransferWrite
	case metadata.LayoutGeneral:
		return metadata.AccessMemoryRead | metadata.AccessMemoryWrite
	}
	// Undefined and Present carry no access requirements.
	return 0
}
