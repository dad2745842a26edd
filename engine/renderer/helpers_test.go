package renderer

import (
	"github.com/spaghettifunk/aurora/engine/renderer/metadata"
)

type fakeSemaphore struct {
	id        int
	destroyed bool
}

func (s *fakeSemaphore) Destroy() { s.destroyed = true }

type fakeBuffer struct {
	size      uint64
	destroyed bool
}

func (b *fakeBuffer) Size() uint64 { return b.size }
func (b *fakeBuffer) Destroy()     { b.destroyed = true }

type fakeView struct{ name string }

func (v *fakeView) Destroy() {}

type fakeSampler struct{ name string }

func (s *fakeSampler) Destroy() {}

type fakeAccel struct{ name string }

func (a *fakeAccel) Destroy() {}

type fakeLayout struct{ name string }

func (l *fakeLayout) Destroy() {}

type fakeSet struct {
	layout metadata.DescriptorSetLayout
}

func (s *fakeSet) Layout() metadata.DescriptorSetLayout { return s.layout }

// fakeChain pretends to be a native swapchain. Acquire results can be
// scripted; once the script runs out every acquire succeeds round-robin.
type fakeChain struct {
	imageCount int
	script     []AcquireResult
	next       uint32
	acquires   int
	destroyed  bool
	info       SwapchainInfo
}

func (c *fakeChain) ImageCount() int { return c.imageCount }

func (c *fakeChain) Acquire(timeoutNs uint64, signal metadata.Semaphore) (uint32, AcquireResult) {
	c.acquires++
	result := AcquireSuccess
	if len(c.script) > 0 {
		result = c.script[0]
		c.script = c.script[1:]
	}
	if result == AcquireOutOfDate || result == AcquireSurfaceLost ||
		result == AcquireOutOfHostMemory || result == AcquireOutOfDeviceMemory ||
		result == AcquireUnexpected {
		return 0, result
	}
	index := c.next % uint32(c.imageCount)
	c.next++
	return index, result
}

type fakeSurface struct {
	caps metadata.SurfaceCapabilities
	err  error
}

func (s *fakeSurface) Capabilities() (metadata.SurfaceCapabilities, error) {
	if s.err != nil {
		return metadata.SurfaceCapabilities{}, s.err
	}
	// Hand out fresh slices; callers keep what they get.
	caps := s.caps
	caps.SupportedFamilies = append([]bool(nil), s.caps.SupportedFamilies...)
	caps.PresentModes = append([]metadata.PresentMode(nil), s.caps.PresentModes...)
	caps.Formats = append([]metadata.Format(nil), s.caps.Formats...)
	return caps, nil
}

type fakeDevice struct {
	alive bool

	semaphoresCreated int
	semaphoreErr      error
	buffersCreated    []*fakeBuffer
	bufferErr         error
	setsCreated       int

	chainsCreated   []*fakeChain
	chainsDestroyed []*fakeChain
	// Script handed to the next created chain.
	nextChainScript []AcquireResult

	idleWaits  int
	onWaitIdle func()
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{alive: true}
}

func (d *fakeDevice) Alive() bool { return d.alive }

func (d *fakeDevice) WaitIdle() {
	d.idleWaits++
	if d.onWaitIdle != nil {
		d.onWaitIdle()
	}
}

func (d *fakeDevice) CreateSemaphore() (metadata.Semaphore, error) {
	if d.semaphoreErr != nil {
		return nil, d.semaphoreErr
	}
	d.semaphoresCreated++
	return &fakeSemaphore{id: d.semaphoresCreated}, nil
}

func (d *fakeDevice) CreateBuffer(info metadata.BufferInfo) (metadata.Buffer, error) {
	if d.bufferErr != nil {
		return nil, d.bufferErr
	}
	buffer := &fakeBuffer{size: info.Size}
	d.buffersCreated = append(d.buffersCreated, buffer)
	return buffer, nil
}

func (d *fakeDevice) CreateDescriptorSet(layout metadata.DescriptorSetLayout) (metadata.DescriptorSet, error) {
	d.setsCreated++
	return &fakeSet{layout: layout}, nil
}

func (d *fakeDevice) CreateSwapchain(surface Surface, info SwapchainInfo) (NativeSwapchain, error) {
	chain := &fakeChain{
		imageCount: int(info.MinImageCount),
		script:     d.nextChainScript,
		info:       info,
	}
	d.nextChainScript = nil
	d.chainsCreated = append(d.chainsCreated, chain)
	return chain, nil
}

func (d *fakeDevice) DestroySwapchain(chain NativeSwapchain) {
	d.chainsDestroyed = append(d.chainsDestroyed, chain.(*fakeChain))
}

// fakeEncoder records staged buffer updates.
type fakeEncoder struct {
	buffers []metadata.Buffer
	datas   [][]byte
}

func (e *fakeEncoder) UpdateBuffer(buffer metadata.Buffer, offset uint64, data []byte) {
	e.buffers = append(e.buffers, buffer)
	e.datas = append(e.datas, append([]byte(nil), data...))
}

// fakeImageResource resolves to whatever view it currently holds, like a
// logical texture that re-resolves after a resize.
type fakeImageResource struct {
	view metadata.ImageView
	err  error
}

func (r *fakeImageResource) MatchesView(view metadata.ImageView) bool {
	return r.view == view
}

func (r *fakeImageResource) ResolveView(Device) (metadata.ImageView, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.view, nil
}

// fakeBufferResource resolves to its current range.
type fakeBufferResource struct {
	rng metadata.BufferRange
	err error
}

func (r *fakeBufferResource) MatchesRange(rng metadata.BufferRange) bool {
	return r.rng == rng
}

func (r *fakeBufferResource) ResolveRange(Device) (metadata.BufferRange, error) {
	if r.err != nil {
		return metadata.BufferRange{}, r.err
	}
	return r.rng, nil
}

// fakeUniforms fills the whole block with a single byte value.
type fakeUniforms struct {
	size  uint64
	value byte
}

func (u *fakeUniforms) ByteSize() uint64 { return u.size }

func (u *fakeUniforms) WriteTo(dst []byte) {
	for i := range dst {
		dst[i] = u.value
	}
}

func defaultCaps() metadata.SurfaceCapabilities {
	return metadata.SurfaceCapabilities{
		SupportedFamilies:       []bool{true},
		MinImageCount:           2,
		MaxImageCount:           0,
		CurrentExtent:           metadata.Extent2D{Width: 1280, Height: 720},
		MinImageExtent:          metadata.Extent2D{Width: 1, Height: 1},
		MaxImageExtent:          metadata.Extent2D{Width: 4096, Height: 4096},
		CurrentTransform:        metadata.SurfaceTransformIdentity,
		SupportedTransforms:     metadata.SurfaceTransformIdentity,
		SupportedCompositeAlpha: metadata.CompositeAlphaOpaque | metadata.CompositeAlphaInherit,
		SupportedUsage:          metadata.ImageUsageColorAttachment | metadata.ImageUsageTransferDst,
		PresentModes:            []metadata.PresentMode{metadata.PresentModeImmediate, metadata.PresentModeFifo},
		Formats:                 []metadata.Format{metadata.FormatB8G8R8A8Unorm, metadata.FormatB8G8R8A8Srgb},
	}
}

func newTestSwapchain(t interface{ Fatalf(string, ...interface{}) }) (*Swapchain, *fakeDevice, *fakeSurface) {
	device := newFakeDevice()
	surface := &fakeSurface{caps: defaultCaps()}
	swapchain, err := NewSwapchain(surface, device)
	if err != nil {
		t.Fatalf("NewSwapchain failed: %v", err)
	}
	return swapchain, device, surface
}
