package engine

import (
	"errors"
	"fmt"

	"github.com/spaghettifunk/aurora/engine/config"
	"github.com/spaghettifunk/aurora/engine/core"
	"github.com/spaghettifunk/aurora/engine/platform"
	"github.com/spaghettifunk/aurora/engine/renderer"
	"github.com/spaghettifunk/aurora/engine/renderer/metadata"
	"github.com/spaghettifunk/aurora/engine/renderer/vulkan"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
)

// frameResources is the per-frame-in-flight slice of GPU state: the fence
// guarding command buffer reuse and the buffer itself.
type frameResources struct {
	fence         *vulkan.VulkanFence
	commandBuffer *vulkan.VulkanCommandBuffer
}

type Engine struct {
	currentStage Stage
	gameInstance *Game
	isRunning    bool
	isSuspended  bool

	platform  *platform.Platform
	backend   *vulkan.Backend
	swapchain *renderer.Swapchain
	watcher   *config.Watcher

	// Active swapchain parameters. Reapplied on resize, replaced when the
	// configuration file changes.
	usage  metadata.ImageUsage
	format metadata.Format
	mode   metadata.PresentMode

	frames     []*frameResources
	frameIndex int
	writes     metadata.WriteBatch

	clock    *core.Clock
	lastTime float64
}

func New(g *Game) (*Engine, error) {
	if g.Config == nil {
		g.Config = config.Default()
	}

	p, err := platform.New()
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}

	return &Engine{
		currentStage: EngineStageUninitialized,
		gameInstance: g,
		clock:        core.NewClock(),
		platform:     p,
		backend:      vulkan.New(p, g.Config.Renderer.Validation),
		isRunning:    true,
		isSuspended:  false,
		lastTime:     0,
	}, nil
}

// WatchConfig reloads the configuration from path whenever it changes on
// disk. Must be called before Initialize.
func (e *Engine) WatchConfig(path string) error {
	w, err := config.NewWatcher(path, e.gameInstance.Config)
	if err != nil {
		return err
	}
	e.watcher = w
	return nil
}

func (e *Engine) Initialize() error {
	e.currentStage = EngineStageInitializing

	cfg := e.gameInstance.Config
	core.LogSetLevel(cfg.LogLevel)

	if err := core.MetricsInitialize(); err != nil {
		return err
	}

	if err := e.platform.Startup(cfg.Application.Name, 100, 100,
		cfg.Application.Width, cfg.Application.Height); err != nil {
		return err
	}

	if err := e.backend.Initialize(cfg.Application.Name); err != nil {
		return err
	}

	swapchain, err := renderer.NewSwapchain(e.backend.Surface(), e.backend.Device())
	if err != nil {
		core.LogError(err.Error())
		return err
	}
	e.swapchain = swapchain

	if err := e.applyRendererConfig(cfg); err != nil {
		return err
	}

	device := e.backend.Device()
	for i := 0; i < cfg.Renderer.FramesInFlight; i++ {
		fence, err := vulkan.NewFence(device, true)
		if err != nil {
			return err
		}
		commandBuffer, err := vulkan.NewVulkanCommandBuffer(device, device.GraphicsCommandPool, true)
		if err != nil {
			fence.Destroy()
			return err
		}
		e.frames = append(e.frames, &frameResources{
			fence:         fence,
			commandBuffer: commandBuffer,
		})
	}

	if err := e.gameInstance.FnInitialize(device); err != nil {
		return err
	}
	if err := e.gameInstance.FnOnResize(cfg.Application.Width, cfg.Application.Height); err != nil {
		return err
	}

	e.currentStage = EngineStageInitialized
	return nil
}

// applyRendererConfig decodes the renderer section and reconfigures the
// swapchain with it.
func (e *Engine) applyRendererConfig(cfg *config.Config) error {
	format, err := cfg.Format()
	if err != nil {
		return err
	}
	mode, err := cfg.PresentMode()
	if err != nil {
		return err
	}
	usage, err := cfg.Usage()
	if err != nil {
		return err
	}

	if err := e.swapchain.Configure(usage, format, mode); err != nil {
		core.LogError(err.Error())
		return err
	}

	e.usage = usage
	e.format = format
	e.mode = mode
	return nil
}

func (e *Engine) Run() error {
	e.currentStage = EngineStageRunning

	e.clock.Start()
	e.clock.Update()
	e.lastTime = e.clock.Elapsed()

	for e.isRunning {
		if !e.platform.PumpMessages() {
			e.isRunning = false
			break
		}

		if e.platform.ConsumeResize() {
			width, height := e.platform.FramebufferSize()
			if width == 0 || height == 0 {
				core.LogInfo("window minimized, suspending rendering")
				e.isSuspended = true
			} else {
				if e.isSuspended {
					core.LogInfo("window restored, resuming rendering")
					e.isSuspended = false
				}
				if err := e.gameInstance.FnOnResize(width, height); err != nil {
					core.LogError(err.Error())
				}
				if err := e.swapchain.Configure(e.usage, e.format, e.mode); err != nil {
					return err
				}
			}
		}

		if e.watcher != nil {
			if cfg, changed := e.watcher.Changed(); changed {
				core.LogSetLevel(cfg.LogLevel)
				if err := e.applyRendererConfig(cfg); err != nil {
					core.LogWarn("keeping previous renderer configuration: %v", err)
					// The surface rejected the new parameters; fall back
					// so the loop keeps a configured swapchain.
					if err := e.swapchain.Configure(e.usage, e.format, e.mode); err != nil {
						return err
					}
				} else {
					e.gameInstance.Config = cfg
				}
			}
		}

		if e.isSuspended {
			continue
		}

		e.clock.Update()
		currentTime := e.clock.Elapsed()
		delta := currentTime - e.lastTime
		frameStartTime := platform.GetAbsoluteTime()

		if err := e.renderFrame(delta); err != nil {
			if errors.Is(err, renderer.ErrSurfaceLost) {
				core.LogError("surface lost, shutting down")
				e.isRunning = false
				break
			}
			core.LogFatal("frame failed, shutting down: %s", err)
		}

		frameElapsedTime := platform.GetAbsoluteTime() - frameStartTime
		core.MetricsUpdate(frameElapsedTime)

		e.frameIndex = (e.frameIndex + 1) % len(e.frames)
		e.lastTime = currentTime
	}

	return nil
}

func (e *Engine) renderFrame(delta float64) error {
	device := e.backend.Device()
	frame := e.frames[e.frameIndex]

	// The fence gates reuse of this frame's command buffer; it was
	// created signaled so the first pass through does not block.
	if !frame.fence.Wait(renderer.NoTimeout) {
		return fmt.Errorf("frame fence wait failed")
	}

	image, err := e.swapchain.AcquireImage(true)
	if err != nil {
		return err
	}

	chain, ok := image.Chain().(*vulkan.VulkanSwapchain)
	if !ok {
		return fmt.Errorf("foreign swapchain type %T", image.Chain())
	}

	frame.commandBuffer.Reset()
	if err := frame.commandBuffer.Begin(false); err != nil {
		return err
	}

	target := chain.Image(image.Index())
	frame.commandBuffer.TransitionImage(target, image.Image().TransitionTo(metadata.LayoutTransferDstOptimal))

	if err := e.gameInstance.FnRender(&Frame{
		Index:         e.frameIndex,
		Delta:         delta,
		Image:         image,
		Chain:         chain,
		CommandBuffer: frame.commandBuffer,
		Device:        device,
		Writes:        &e.writes,
	}); err != nil {
		core.LogError("game render failed: %s", err)
		return err
	}

	if err := device.FlushWrites(&e.writes); err != nil {
		return err
	}

	frame.commandBuffer.TransitionImage(target, image.Image().TransitionTo(metadata.LayoutPresent))

	// Reset only once the submission is certain; a reset fence nothing
	// signals would deadlock the next pass over this frame slot.
	if err := frame.fence.Reset(); err != nil {
		return err
	}
	if err := frame.commandBuffer.Submit(device.GraphicsQueue, image.Wait(), image.Signal(), frame.fence); err != nil {
		return err
	}

	switch result := chain.Present(image.Signal(), image.Index()); result {
	case renderer.AcquireSuccess, renderer.AcquireSuboptimal, renderer.AcquireOutOfDate:
		// Suboptimal and out-of-date surfaces heal on the next acquire.
	case renderer.AcquireSurfaceLost:
		e.swapchain.Presented(image)
		return renderer.ErrSurfaceLost
	default:
		core.LogFatal("unexpected native result %d from swapchain present", result)
	}

	e.swapchain.Presented(image)
	return nil
}

func (e *Engine) Shutdown() error {
	if e.currentStage == EngineStageShuttingDown {
		return nil
	}
	e.currentStage = EngineStageShuttingDown
	e.isRunning = false

	device := e.backend.Device()
	if device != nil && device.Alive() {
		device.WaitIdle()
	}

	if e.gameInstance.FnShutdown != nil {
		if err := e.gameInstance.FnShutdown(device); err != nil {
			core.LogError(err.Error())
		}
	}

	for _, frame := range e.frames {
		frame.commandBuffer.Free(device.GraphicsCommandPool)
		frame.fence.Destroy()
	}
	e.frames = nil

	if e.swapchain != nil {
		e.swapchain.Destroy()
	}
	if e.watcher != nil {
		if err := e.watcher.Close(); err != nil {
			core.LogError(err.Error())
		}
	}
	if err := e.backend.Shutdown(); err != nil {
		return err
	}
	return e.platform.Shutdown()
}

// GetFramebufferSize returns the width and height (in this order) of the
// application framebuffer.
func (e *Engine) GetFramebufferSize() (uint32, uint32) {
	return e.platform.FramebufferSize()
}
