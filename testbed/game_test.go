package testbed

import (
	"encoding/binary"
	"math"
	"testing"
)

func TestSceneUniformsLayout(t *testing.T) {
	u := &sceneUniforms{
		Time:   1.5,
		Extent: [2]float32{1280, 720},
		Tint:   [4]float32{0.25, 0.5, 0.75, 1},
	}

	dst := make([]byte, u.ByteSize())
	u.WriteTo(dst)

	at := func(offset int) float32 {
		return math.Float32frombits(binary.LittleEndian.Uint32(dst[offset:]))
	}
	if at(0) != 1.5 {
		t.Fatalf("time at offset 0: got %f", at(0))
	}
	if at(4) != 1280 || at(8) != 720 {
		t.Fatalf("extent at offset 4: got %f x %f", at(4), at(8))
	}
	for i, want := range []float32{0.25, 0.5, 0.75, 1} {
		if got := at(12 + i*4); got != want {
			t.Fatalf("tint[%d]: got %f, want %f", i, got, want)
		}
	}
}
