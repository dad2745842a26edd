package renderer

import (
	"bytes"
	"errors"
	"testing"

	"github.com/spaghettifunk/aurora/engine/renderer/metadata"
)

func materialBindings() []DescriptorBinding {
	return []DescriptorBinding{
		{Kind: metadata.BindingKindSampler, Name: "base_sampler"},
		{Kind: metadata.BindingKindSampledImage, Name: "albedo"},
		{Kind: metadata.BindingKindCombinedImageSampler, Name: "normal_map"},
		{Kind: metadata.BindingKindStorageBuffer, Name: "lights"},
	}
}

func materialValues() ([]BindingValue, *fakeImageResource, *fakeImageResource, *fakeBufferResource) {
	albedo := &fakeImageResource{view: &fakeView{name: "albedo_view"}}
	normal := &fakeImageResource{view: &fakeView{name: "normal_view"}}
	lights := &fakeBufferResource{rng: metadata.BufferRange{Buffer: &fakeBuffer{size: 4096}, Offset: 0, Size: 4096}}
	values := []BindingValue{
		{Sampler: &fakeSampler{name: "linear"}},
		{Image: albedo},
		{Image: normal, Sampler: &fakeSampler{name: "nearest"}},
		{Buffer: lights},
	}
	return values, albedo, normal, lights
}

func TestUpdatePopulatesEveryBinding(t *testing.T) {
	device := newFakeDevice()
	instance := NewDescriptorInstance(&fakeLayout{name: "material"}, materialBindings(), true)
	values, _, _, _ := materialValues()
	uniforms := &fakeUniforms{size: 128, value: 1}

	var writes metadata.WriteBatch
	var encoder fakeEncoder
	elem, err := instance.Update(values, uniforms, 0, device, &writes, &encoder)
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if elem.Raw() == nil {
		t.Fatalf("element has no descriptor set")
	}

	// Four declared bindings plus the uniform block, all dirty on first touch.
	if len(writes.Writes) != 5 {
		t.Fatalf("expected 5 writes on first update, got %d", len(writes.Writes))
	}

	// The uniform block takes the last binding index.
	seen := map[uint32]bool{}
	for _, w := range writes.Writes {
		if w.Set != elem.Raw() {
			t.Fatalf("write targets the wrong set")
		}
		if w.Element != 0 {
			t.Fatalf("non-arrayed bindings write element 0, got %d", w.Element)
		}
		seen[w.Binding] = true
	}
	for binding := uint32(0); binding < 5; binding++ {
		if !seen[binding] {
			t.Fatalf("missing write for binding %d", binding)
		}
	}
}

func TestUpdateIdempotentUnderNoChange(t *testing.T) {
	device := newFakeDevice()
	instance := NewDescriptorInstance(&fakeLayout{}, materialBindings(), true)
	values, _, _, _ := materialValues()
	uniforms := &fakeUniforms{size: 64, value: 7}

	var writes metadata.WriteBatch
	var encoder fakeEncoder
	if _, err := instance.Update(values, uniforms, 0, device, &writes, &encoder); err != nil {
		t.Fatalf("first update failed: %v", err)
	}

	writes.Reset()
	if _, err := instance.Update(values, uniforms, 0, device, &writes, &encoder); err != nil {
		t.Fatalf("second update failed: %v", err)
	}
	if len(writes.Writes) != 0 {
		t.Fatalf("identical inputs must emit zero writes, got %d", len(writes.Writes))
	}

	// The uniform contents are still staged on every call.
	if len(encoder.datas) != 2 {
		t.Fatalf("uniform contents should be staged per call, got %d stagings", len(encoder.datas))
	}
}

func TestUpdateEmitsExactlyOneWriteForChangedBinding(t *testing.T) {
	device := newFakeDevice()
	instance := NewDescriptorInstance(&fakeLayout{}, materialBindings(), false)
	values, _, _, _ := materialValues()

	var writes metadata.WriteBatch
	var encoder fakeEncoder
	elem, err := instance.Update(values, nil, 0, device, &writes, &encoder)
	if err != nil {
		t.Fatalf("first update failed: %v", err)
	}
	before := make([]metadata.DescriptorPayload, len(elem.descriptors))
	for i, d := range elem.descriptors {
		before[i] = d.payload
	}

	// Swap only the sampler at binding 0.
	values[0].Sampler = &fakeSampler{name: "anisotropic"}
	writes.Reset()
	if _, err := instance.Update(values, nil, 0, device, &writes, &encoder); err != nil {
		t.Fatalf("second update failed: %v", err)
	}

	if len(writes.Writes) != 1 {
		t.Fatalf("expected exactly 1 write, got %d", len(writes.Writes))
	}
	if writes.Writes[0].Binding != 0 {
		t.Fatalf("expected write for binding 0, got %d", writes.Writes[0].Binding)
	}
	for i := 1; i < len(elem.descriptors); i++ {
		if elem.descriptors[i].payload != before[i] {
			t.Fatalf("binding %d cache changed without cause", i)
		}
	}
}

func TestUpdateDetectsResolvedViewChange(t *testing.T) {
	device := newFakeDevice()
	instance := NewDescriptorInstance(&fakeLayout{}, materialBindings(), false)
	values, albedo, normal, _ := materialValues()

	var writes metadata.WriteBatch
	var encoder fakeEncoder
	if _, err := instance.Update(values, nil, 0, device, &writes, &encoder); err != nil {
		t.Fatalf("first update failed: %v", err)
	}

	// The logical resource now resolves to a new view, as after a resize.
	albedo.view = &fakeView{name: "albedo_view_resized"}
	writes.Reset()
	if _, err := instance.Update(values, nil, 0, device, &writes, &encoder); err != nil {
		t.Fatalf("second update failed: %v", err)
	}
	if len(writes.Writes) != 1 || writes.Writes[0].Binding != 1 {
		t.Fatalf("expected one write for the sampled image binding, got %+v", writes.Writes)
	}
	if writes.Writes[0].Payload.Image.Layout != metadata.LayoutShaderReadOnlyOptimal {
		t.Fatalf("sampled image layout must be pinned to shader read-only optimal")
	}

	// Changing only the combined binding's sampler dirties it too.
	values[2].Sampler = &fakeSampler{name: "trilinear"}
	writes.Reset()
	if _, err := instance.Update(values, nil, 0, device, &writes, &encoder); err != nil {
		t.Fatalf("third update failed: %v", err)
	}
	if len(writes.Writes) != 1 || writes.Writes[0].Binding != 2 {
		t.Fatalf("expected one write for the combined binding, got %+v", writes.Writes)
	}
	_ = normal
}

func TestUpdateFenceIndicesAreIndependent(t *testing.T) {
	device := newFakeDevice()
	instance := NewDescriptorInstance(&fakeLayout{}, materialBindings(), false)
	values, _, _, _ := materialValues()

	var writes metadata.WriteBatch
	var encoder fakeEncoder
	if _, err := instance.Update(values, nil, 0, device, &writes, &encoder); err != nil {
		t.Fatalf("fence 0 update failed: %v", err)
	}

	// A fresh ring slot knows nothing of fence 0's cache.
	writes.Reset()
	if _, err := instance.Update(values, nil, 1, device, &writes, &encoder); err != nil {
		t.Fatalf("fence 1 update failed: %v", err)
	}
	if len(writes.Writes) != len(materialBindings()) {
		t.Fatalf("fence 1 should write every binding, got %d writes", len(writes.Writes))
	}

	// And fence 0 is still clean.
	writes.Reset()
	if _, err := instance.Update(values, nil, 0, device, &writes, &encoder); err != nil {
		t.Fatalf("fence 0 re-update failed: %v", err)
	}
	if len(writes.Writes) != 0 {
		t.Fatalf("fence 0 cache disturbed by fence 1 update: %d writes", len(writes.Writes))
	}
}

func TestUpdateGrowsRingWithoutTruncation(t *testing.T) {
	device := newFakeDevice()
	instance := NewDescriptorInstance(&fakeLayout{}, materialBindings(), false)
	values, _, _, _ := materialValues()

	var writes metadata.WriteBatch
	var encoder fakeEncoder
	if _, err := instance.Update(values, nil, 5, device, &writes, &encoder); err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if len(instance.cycle) != 6 {
		t.Fatalf("ring should cover fence 5, got length %d", len(instance.cycle))
	}
	if device.setsCreated != 6 {
		t.Fatalf("expected 6 descriptor sets allocated, got %d", device.setsCreated)
	}

	kept := instance.cycle[5]
	if _, err := instance.Update(values, nil, 2, device, &writes, &encoder); err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if len(instance.cycle) != 6 || instance.cycle[5] != kept {
		t.Fatalf("updating a lower fence must not truncate the ring")
	}
}

func TestUniformBufferAllocatedOnceContentsStreamed(t *testing.T) {
	device := newFakeDevice()
	instance := NewDescriptorInstance(&fakeLayout{}, nil, true)
	uniforms := &fakeUniforms{size: 256}

	var writes metadata.WriteBatch
	var encoder fakeEncoder
	var buffer metadata.Buffer
	uniformWrites := 0

	for frame := 0; frame < 10; frame++ {
		uniforms.value = byte(frame)
		writes.Reset()
		elem, err := instance.Update(nil, uniforms, 0, device, &writes, &encoder)
		if err != nil {
			t.Fatalf("update %d failed: %v", frame, err)
		}

		uniformWrites += len(writes.Writes)
		if buffer == nil {
			buffer = elem.uniforms.rng.Buffer
		} else if elem.uniforms.rng.Buffer != buffer {
			t.Fatalf("uniform backing buffer identity changed at frame %d", frame)
		}
	}

	if len(device.buffersCreated) != 1 {
		t.Fatalf("backing buffer should be allocated exactly once, got %d", len(device.buffersCreated))
	}
	if uniformWrites != 1 {
		t.Fatalf("uniform descriptor should be written exactly once, got %d", uniformWrites)
	}
	if len(encoder.datas) != 10 {
		t.Fatalf("expected 10 content stagings, got %d", len(encoder.datas))
	}
	for frame, data := range encoder.datas {
		if data[0] != byte(frame) {
			t.Fatalf("staged contents for frame %d are stale: %d", frame, data[0])
		}
		if !bytes.Equal(data, bytes.Repeat([]byte{byte(frame)}, 256)) {
			t.Fatalf("staged contents for frame %d corrupted", frame)
		}
	}
}

func TestUpdateDiffsAccelerationStructures(t *testing.T) {
	device := newFakeDevice()
	bindings := []DescriptorBinding{
		{Kind: metadata.BindingKindAccelerationStructure, Name: "scene_tlas"},
	}
	instance := NewDescriptorInstance(&fakeLayout{}, bindings, false)

	tlas := &fakeAccel{name: "tlas_v1"}
	values := []BindingValue{{Accel: tlas}}

	var writes metadata.WriteBatch
	var encoder fakeEncoder
	if _, err := instance.Update(values, nil, 0, device, &writes, &encoder); err != nil {
		t.Fatalf("first update failed: %v", err)
	}
	if len(writes.Writes) != 1 {
		t.Fatalf("first touch should write the binding, got %d writes", len(writes.Writes))
	}
	write := writes.Writes[0]
	if write.Payload.Kind != metadata.BindingKindAccelerationStructure || write.Payload.Accel != tlas {
		t.Fatalf("unexpected payload: %+v", write.Payload)
	}

	writes.Reset()
	if _, err := instance.Update(values, nil, 0, device, &writes, &encoder); err != nil {
		t.Fatalf("unchanged update failed: %v", err)
	}
	if len(writes.Writes) != 0 {
		t.Fatalf("unchanged structure must not be rewritten, got %d writes", len(writes.Writes))
	}

	writes.Reset()
	rebuilt := &fakeAccel{name: "tlas_v2"}
	values[0].Accel = rebuilt
	if _, err := instance.Update(values, nil, 0, device, &writes, &encoder); err != nil {
		t.Fatalf("changed update failed: %v", err)
	}
	if len(writes.Writes) != 1 || writes.Writes[0].Payload.Accel != rebuilt {
		t.Fatalf("rebuilt structure should be written exactly once, got %+v", writes.Writes)
	}
}

func TestUniformWriteSurvivesAbortedFirstUpdate(t *testing.T) {
	device := newFakeDevice()
	bindings := []DescriptorBinding{
		{Kind: metadata.BindingKindSampledImage, Name: "albedo"},
	}
	instance := NewDescriptorInstance(&fakeLayout{}, bindings, true)
	uniforms := &fakeUniforms{size: 64}

	resolveErr := errors.New("out of device memory")
	albedo := &fakeImageResource{view: &fakeView{name: "albedo_view"}, err: resolveErr}
	values := []BindingValue{{Image: albedo}}

	// The backing buffer is allocated before the binding fails to resolve.
	var writes metadata.WriteBatch
	var encoder fakeEncoder
	if _, err := instance.Update(values, uniforms, 0, device, &writes, &encoder); !errors.Is(err, resolveErr) {
		t.Fatalf("expected resolution failure to propagate, got %v", err)
	}
	if len(device.buffersCreated) != 1 {
		t.Fatalf("backing buffer should have been allocated, got %d", len(device.buffersCreated))
	}
	if len(writes.Writes) != 0 {
		t.Fatalf("aborted update must not emit writes, got %d", len(writes.Writes))
	}

	albedo.err = nil
	if _, err := instance.Update(values, uniforms, 0, device, &writes, &encoder); err != nil {
		t.Fatalf("recovery update failed: %v", err)
	}
	uniformWrites := 0
	for _, write := range writes.Writes {
		if write.Binding == uint32(len(bindings)) {
			uniformWrites++
		}
	}
	if uniformWrites != 1 {
		t.Fatalf("uniform descriptor write lost across the aborted update: got %d", uniformWrites)
	}
	if len(device.buffersCreated) != 1 {
		t.Fatalf("recovery must reuse the allocated buffer, got %d", len(device.buffersCreated))
	}

	writes.Reset()
	if _, err := instance.Update(values, uniforms, 0, device, &writes, &encoder); err != nil {
		t.Fatalf("steady-state update failed: %v", err)
	}
	if len(writes.Writes) != 0 {
		t.Fatalf("uniform descriptor must be written exactly once, got %d extra writes", len(writes.Writes))
	}
}

func TestDestroyReleasesUniformBuffers(t *testing.T) {
	device := newFakeDevice()
	instance := NewDescriptorInstance(&fakeLayout{}, nil, true)
	uniforms := &fakeUniforms{size: 64}

	var writes metadata.WriteBatch
	var encoder fakeEncoder
	for fence := 0; fence < 3; fence++ {
		if _, err := instance.Update(nil, uniforms, fence, device, &writes, &encoder); err != nil {
			t.Fatalf("update for fence %d failed: %v", fence, err)
		}
	}
	if len(device.buffersCreated) != 3 {
		t.Fatalf("expected 3 backing buffers, got %d", len(device.buffersCreated))
	}

	instance.Destroy()
	for i, buffer := range device.buffersCreated {
		if !buffer.destroyed {
			t.Fatalf("backing buffer %d not destroyed", i)
		}
	}
	if instance.cycle != nil {
		t.Fatalf("ring should be dropped on destroy")
	}
}

func TestUpdateAbortsOnResolutionFailure(t *testing.T) {
	device := newFakeDevice()
	instance := NewDescriptorInstance(&fakeLayout{}, materialBindings(), false)
	values, albedo, _, _ := materialValues()

	var writes metadata.WriteBatch
	var encoder fakeEncoder
	elem, err := instance.Update(values, nil, 0, device, &writes, &encoder)
	if err != nil {
		t.Fatalf("first update failed: %v", err)
	}
	cachedAlbedo := elem.descriptors[1].payload

	resolveErr := errors.New("out of device memory")
	albedo.view = &fakeView{name: "albedo_view_next"}
	albedo.err = resolveErr
	writes.Reset()
	if _, err := instance.Update(values, nil, 0, device, &writes, &encoder); !errors.Is(err, resolveErr) {
		t.Fatalf("expected resolution failure to propagate, got %v", err)
	}
	if elem.descriptors[1].payload != cachedAlbedo {
		t.Fatalf("failed resolution must leave the cached descriptor untouched")
	}

	// Recovery: the next successful update re-resolves and writes.
	albedo.err = nil
	writes.Reset()
	if _, err := instance.Update(values, nil, 0, device, &writes, &encoder); err != nil {
		t.Fatalf("recovery update failed: %v", err)
	}
	if len(writes.Writes) != 1 || writes.Writes[0].Binding != 1 {
		t.Fatalf("expected the recovered binding to be written, got %+v", writes.Writes)
	}
}

func TestUpdateValidatesDeclaration(t *testing.T) {
	device := newFakeDevice()
	instance := NewDescriptorInstance(&fakeLayout{}, materialBindings(), true)
	values, _, _, _ := materialValues()

	var writes metadata.WriteBatch
	var encoder fakeEncoder
	if _, err := instance.Update(values[:2], &fakeUniforms{size: 16}, 0, device, &writes, &encoder); err == nil {
		t.Fatalf("mismatched value count must fail")
	}
	if _, err := instance.Update(values, nil, 0, device, &writes, &encoder); err == nil {
		t.Fatalf("declared uniform block without values must fail")
	}
}
