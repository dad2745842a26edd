package renderer

import (
	"errors"
)

var (
	// ErrOutOfMemory reports device memory exhaustion. Host memory
	// exhaustion is never surfaced as an error; it is process-fatal.
	ErrOutOfMemory = errors.New("out of device memory")

	ErrSurfaceLost         = errors.New("surface was lost")
	ErrSurfaceNotSupported = errors.New("surface is not supported")

	// ErrNotConfigured is returned by AcquireImage before the first
	// successful Configure call.
	ErrNotConfigured = errors.New("swapchain is not configured")

	// ErrTooManyAcquired means the caller holds more images concurrently
	// than the swapchain permits. This is a caller contract violation,
	// not a transient condition.
	ErrTooManyAcquired = errors.New("too many swapchain images acquired")

	ErrUsageNotSupported      = errors.New("image usage is not supported for surface images")
	ErrFormatUnsupported      = errors.New("format is not supported for surface images")
	ErrPresentModeUnsupported = errors.New("present mode is not supported for surface images")
)
