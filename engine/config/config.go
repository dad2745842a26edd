package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/spaghettifunk/aurora/engine/renderer/metadata"
)

type ApplicationConfig struct {
	Name   string `toml:"name"`
	Width  uint32 `toml:"width"`
	Height uint32 `toml:"height"`
}

type RendererConfig struct {
	Format      string `toml:"format"`
	PresentMode string `toml:"present_mode"`
	// Extra usages on top of color attachment, e.g. "transfer_dst".
	Usages     []string `toml:"usages"`
	Validation bool     `toml:"validation"`
	// Number of frames the CPU may run ahead of the GPU.
	FramesInFlight int `toml:"frames_in_flight"`
}

type Config struct {
	Application ApplicationConfig `toml:"application"`
	Renderer    RendererConfig    `toml:"renderer"`
	LogLevel    string            `toml:"log_level"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Application: ApplicationConfig{
			Name:   "aurora",
			Width:  1280,
			Height: 720,
		},
		Renderer: RendererConfig{
			Format:         "bgra8_unorm",
			PresentMode:    "fifo",
			FramesInFlight: 2,
		},
		LogLevel: "info",
	}
}

// Load reads and validates a TOML configuration file.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := toml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if _, err := c.Format(); err != nil {
		return err
	}
	if _, err := c.PresentMode(); err != nil {
		return err
	}
	if _, err := c.Usage(); err != nil {
		return err
	}
	if c.Renderer.FramesInFlight < 1 || c.Renderer.FramesInFlight > 3 {
		return fmt.Errorf("frames_in_flight must be between 1 and 3, got %d", c.Renderer.FramesInFlight)
	}
	return nil
}

// Format returns the requested surface format.
func (c *Config) Format() (metadata.Format, error) {
	switch c.Renderer.Format {
	case "bgra8_unorm":
		return metadata.FormatB8G8R8A8Unorm, nil
	case "bgra8_srgb":
		return metadata.FormatB8G8R8A8Srgb, nil
	case "rgba8_unorm":
		return metadata.FormatR8G8B8A8Unorm, nil
	case "rgba8_srgb":
		return metadata.FormatR8G8B8A8Srgb, nil
	case "rgba16_sfloat":
		return metadata.FormatR16G16B16A16Sfloat, nil
	}
	return metadata.FormatUndefined, fmt.Errorf("unknown format %q", c.Renderer.Format)
}

// PresentMode returns the requested presentation mode.
func (c *Config) PresentMode() (metadata.PresentMode, error) {
	switch c.Renderer.PresentMode {
	case "immediate":
		return metadata.PresentModeImmediate, nil
	case "mailbox":
		return metadata.PresentModeMailbox, nil
	case "fifo":
		return metadata.PresentModeFifo, nil
	case "fifo_relaxed":
		return metadata.PresentModeFifoRelaxed, nil
	}
	return 0, fmt.Errorf("unknown present mode %q", c.Renderer.PresentMode)
}

// Usage returns the requested swapchain image usage. Color attachment is
// always included.
func (c *Config) Usage() (metadata.ImageUsage, error) {
	usage := metadata.ImageUsageColorAttachment
	for _, name := range c.Renderer.Usages {
		switch name {
		case "transfer_src":
			usage |= metadata.ImageUsageTransferSrc
		case "transfer_dst":
			usage |= metadata.ImageUsageTransferDst
		case "sampled":
			usage |= metadata.ImageUsageSampled
		case "storage":
			usage |= metadata.ImageUsageStorage
		default:
			return 0, fmt.Errorf("unknown image usage %q", name)
		}
	}
	return usage, nil
}
