package core

import "testing"

func TestMetricsRollingAverageAndFPS(t *testing.T) {
	if err := MetricsInitialize(); err != nil {
		t.Fatalf("initialize failed: %v", err)
	}

	// 150 frames of 10ms: the rolling average settles at 10ms and the
	// FPS counter latches 100 when the accumulated time crosses one second.
	for i := 0; i < 150; i++ {
		MetricsUpdate(0.010)
	}

	fps, frameTime := MetricsFrame()
	if frameTime < 9.99 || frameTime > 10.01 {
		t.Fatalf("average frame time: got %fms, want 10ms", frameTime)
	}
	if fps != 100 {
		t.Fatalf("fps: got %f, want 100", fps)
	}
}
