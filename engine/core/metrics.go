package core

import "sync"

// Number of frames folded into the rolling frame-time average.
const metricsSampleCount = 30

type MetricsState struct {
	sampleCounter      uint8
	frameTimes         [metricsSampleCount]float64
	frameTimeAvg       float64
	frames             int32
	accumulatedFrameMS float64
	fps                float64
}

var onceMetrics sync.Once
var metricsState *MetricsState

func MetricsInitialize() error {
	onceMetrics.Do(func() {
		metricsState = &MetricsState{}
	})
	return nil
}

// MetricsUpdate folds one frame into the rolling frame-time average and
// the frames-per-second counter. frameElapsedTime is in seconds.
func MetricsUpdate(frameElapsedTime float64) {
	frameMS := frameElapsedTime * 1000.0
	metricsState.frameTimes[metricsState.sampleCounter] = frameMS
	if metricsState.sampleCounter == metricsSampleCount-1 {
		sum := 0.0
		for _, ms := range metricsState.frameTimes {
			sum += ms
		}
		metricsState.frameTimeAvg = sum / metricsSampleCount
	}
	metricsState.sampleCounter = (metricsState.sampleCounter + 1) % metricsSampleCount

	metricsState.accumulatedFrameMS += frameMS
	if metricsState.accumulatedFrameMS > 1000 {
		metricsState.fps = float64(metricsState.frames)
		metricsState.accumulatedFrameMS -= 1000
		metricsState.frames = 0
	}
	metricsState.frames++
}

// MetricsFrame returns the frames-per-second and the average frame time
// in milliseconds.
func MetricsFrame() (float64, float64) {
	return metricsState.fps, metricsState.frameTimeAvg
}
