package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spaghettifunk/aurora/engine/renderer/metadata"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "renderer.toml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
log_level = "debug"

[application]
name = "demo"
width = 800
height = 600

[renderer]
format = "bgra8_srgb"
present_mode = "mailbox"
usages = ["transfer_dst"]
frames_in_flight = 3
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Application.Name != "demo" || cfg.Application.Width != 800 {
		t.Fatalf("application section not parsed: %+v", cfg.Application)
	}

	format, err := cfg.Format()
	if err != nil || format != metadata.FormatB8G8R8A8Srgb {
		t.Fatalf("expected bgra8_srgb, got %v (%v)", format, err)
	}
	mode, err := cfg.PresentMode()
	if err != nil || mode != metadata.PresentModeMailbox {
		t.Fatalf("expected mailbox, got %v (%v)", mode, err)
	}
	usage, err := cfg.Usage()
	if err != nil {
		t.Fatalf("Usage failed: %v", err)
	}
	if !usage.Contains(metadata.ImageUsageColorAttachment | metadata.ImageUsageTransferDst) {
		t.Fatalf("expected color attachment + transfer dst, got %#x", uint32(usage))
	}
}

func TestLoadDefaultsApply(t *testing.T) {
	path := writeConfig(t, `
[application]
name = "bare"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Renderer.PresentMode != "fifo" || cfg.Renderer.FramesInFlight != 2 {
		t.Fatalf("defaults not applied: %+v", cfg.Renderer)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name     string
		contents string
	}{
		{"format", "[renderer]\nformat = \"yuv420\"\nframes_in_flight = 2\npresent_mode = \"fifo\""},
		{"mode", "[renderer]\nformat = \"bgra8_unorm\"\nframes_in_flight = 2\npresent_mode = \"adaptive\""},
		{"usage", "[renderer]\nformat = \"bgra8_unorm\"\nframes_in_flight = 2\npresent_mode = \"fifo\"\nusages = [\"depth\"]"},
		{"frames", "[renderer]\nformat = \"bgra8_unorm\"\nframes_in_flight = 9\npresent_mode = \"fifo\""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.contents)
			if _, err := Load(path); err == nil {
				t.Fatalf("expected validation failure")
			}
		})
	}
}
