package testbed

import (
	"encoding/binary"
	"math"

	"github.com/spaghettifunk/aurora/engine"
	"github.com/spaghettifunk/aurora/engine/config"
	"github.com/spaghettifunk/aurora/engine/core"
	"github.com/spaghettifunk/aurora/engine/renderer"
	"github.com/spaghettifunk/aurora/engine/renderer/metadata"
	"github.com/spaghettifunk/aurora/engine/renderer/vulkan"
)

type TestGame struct {
	*engine.Game
}

type gameState struct {
	width  uint32
	height uint32

	elapsed    float64
	frameCount uint64

	sampler  metadata.Sampler
	particle metadata.Buffer
	instance *renderer.DescriptorInstance
	uniforms *sceneUniforms
}

/**
 * @brief The embedded uniform block of the scene descriptor set. The
 * block's size is fixed; its values change every frame and are streamed
 * through the command buffer.
 */
type sceneUniforms struct {
	Time   float32
	Extent [2]float32
	Tint   [4]float32
}

func (u *sceneUniforms) ByteSize() uint64 {
	return 7 * 4
}

func (u *sceneUniforms) WriteTo(dst []byte) {
	binary.LittleEndian.PutUint32(dst[0:], math.Float32bits(u.Time))
	binary.LittleEndian.PutUint32(dst[4:], math.Float32bits(u.Extent[0]))
	binary.LittleEndian.PutUint32(dst[8:], math.Float32bits(u.Extent[1]))
	for i, v := range u.Tint {
		binary.LittleEndian.PutUint32(dst[12+i*4:], math.Float32bits(v))
	}
}

func NewTestGame() (*TestGame, error) {
	cfg := config.Default()
	cfg.Application.Name = "Aurora Testbed"
	// Clearing through transfer and sampling our own swapchain images
	// back needs more than the color attachment bit.
	cfg.Renderer.Usages = []string{"transfer_dst", "sampled"}

	if loaded, err := config.Load("testbed.toml"); err == nil {
		cfg = loaded
	}

	tg := &TestGame{
		Game: &engine.Game{
			Config: cfg,
			State: &gameState{
				uniforms: &sceneUniforms{
					Tint: [4]float32{1, 1, 1, 1},
				},
			},
		},
	}

	tg.FnInitialize = tg.Initialize
	tg.FnRender = tg.Render
	tg.FnOnResize = tg.OnResize
	tg.FnShutdown = tg.Shutdown

	return tg, nil
}

// sceneBindings declares the descriptor set exercised by the testbed:
// the previously presented image sampled back plus a particle buffer,
// with the scene uniform block appended as the last binding.
func sceneBindings() []renderer.DescriptorBinding {
	return []renderer.DescriptorBinding{
		{Kind: metadata.BindingKindCombinedImageSampler, Name: "feedback_color"},
		{Kind: metadata.BindingKindStorageBuffer, Name: "particles"},
	}
}

func (g *TestGame) Initialize(device *vulkan.Device) error {
	core.LogInfo("initializing testbed...")
	state := g.State.(*gameState)

	bindings := sceneBindings()
	layout, err := device.CreateDescriptorSetLayout(bindings, true)
	if err != nil {
		core.LogError(err.Error())
		return err
	}
	state.instance = renderer.NewDescriptorInstance(layout, bindings, true)

	sampler, err := device.CreateSampler()
	if err != nil {
		return err
	}
	state.sampler = sampler

	particle, err := device.CreateBuffer(metadata.BufferInfo{
		Align: 16,
		Size:  64 * 1024,
		Usage: metadata.BufferUsageStorage | metadata.BufferUsageTransferDst,
	})
	if err != nil {
		return err
	}
	state.particle = particle

	return nil
}

func (g *TestGame) Render(frame *engine.Frame) error {
	state := g.State.(*gameState)

	state.elapsed += frame.Delta
	state.frameCount++

	pulse := float32(0.5 + 0.5*math.Sin(state.elapsed))
	frame.CommandBuffer.ClearColor(frame.Target(), 0.1*pulse, 0.2, 0.4+0.3*pulse, 1.0)

	state.uniforms.Time = float32(state.elapsed)
	state.uniforms.Extent = [2]float32{float32(state.width), float32(state.height)}
	state.uniforms.Tint[0] = pulse

	// The acquired image's view changes index to index, so the combined
	// binding goes dirty most frames while the particle buffer stays
	// clean. The uniform block is re-staged every call either way.
	values := []renderer.BindingValue{
		{
			Image:   renderer.StaticImageView{View: frame.View()},
			Sampler: state.sampler,
		},
		{
			Buffer: renderer.WholeBufferBinding{Buffer: state.particle},
		},
	}

	element, err := state.instance.Update(values, state.uniforms, frame.Index, frame.Device, frame.Writes, frame.CommandBuffer)
	if err != nil {
		return err
	}
	// The set behind element.Raw() is bindable as soon as the engine
	// flushes the write batch.
	_ = element.Raw()

	if state.frameCount%240 == 0 {
		fps, frameTime := core.MetricsFrame()
		core.LogDebug("fps: %.0f, frame time: %.2fms", fps, frameTime)
	}

	return nil
}

func (g *TestGame) OnResize(width uint32, height uint32) error {
	state := g.State.(*gameState)
	state.width = width
	state.height = height
	core.LogDebug("testbed resized to %dx%d", width, height)
	return nil
}

func (g *TestGame) Shutdown(device *vulkan.Device) error {
	core.LogInfo("shutting down testbed...")
	state := g.State.(*gameState)

	if state.particle != nil {
		state.particle.Destroy()
	}
	if state.sampler != nil {
		state.sampler.Destroy()
	}
	if state.instance != nil {
		state.instance.Destroy()
		state.instance.RawLayout().Destroy()
	}
	return nil
}
