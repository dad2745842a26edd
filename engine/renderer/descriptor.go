package renderer

import (
	"fmt"

	"github.com/spaghettifunk/aurora/engine/core"
	"github.com/spaghettifunk/aurora/engine/renderer/metadata"
)

// uniformBufferAlign is the alignment requested for uniform block backing
// buffers, covering the strictest minUniformBufferOffsetAlignment in the wild.
const uniformBufferAlign = 255

/**
 * @brief Declares one binding of a descriptor set. Binding indices are
 * assigned in declaration order: 0, 1, 2, … with the embedded uniform
 * block, when present, taking the last index.
 */
type DescriptorBinding struct {
	Kind metadata.BindingKind
	/** @brief Used in diagnostics only. */
	Name string
}

/**
 * @brief The caller's logical value for one binding on a given update
 * call. Which fields are read depends on the declared kind:
 *
 *   sampler                 -> Sampler
 *   sampled image           -> Image
 *   combined image sampler  -> Image + Sampler
 *   uniform/storage buffer  -> Buffer
 *   acceleration structure  -> Accel
 */
type BindingValue struct {
	Sampler metadata.Sampler
	Image   SampledImageBinding
	Buffer  BufferBinding
	Accel   metadata.AccelerationStructure
}

type cachedDescriptor struct {
	valid   bool
	payload metadata.DescriptorPayload
}

type uniformsBuffer struct {
	// Host-side image of the block, staged into the backing buffer on
	// every update call.
	data []byte
	rng  metadata.BufferRange
	// written flips when the block's descriptor write is actually
	// emitted, so an update aborted by a later binding's resolution
	// failure does not lose the first-touch write.
	written bool
}

/**
 * @brief One ring slot of a DescriptorInstance: the underlying descriptor
 * set plus the last descriptor value written to the GPU for every binding.
 */
type DescriptorInstanceElement struct {
	set         metadata.DescriptorSet
	descriptors []cachedDescriptor
	uniforms    *uniformsBuffer
}

// Raw returns the underlying descriptor set, ready to bind after a
// successful Update call.
func (e *DescriptorInstanceElement) Raw() metadata.DescriptorSet {
	return e.set
}

/**
 * @brief DescriptorInstance owns one descriptor-set layout and a ring of
 * per-frame-index elements. Each Update call diffs the requested bindings
 * against the selected element's cached state and emits only the writes
 * actually needed, so static bindings reused across frames cost nothing.
 *
 * Update calls for the same instance must not run concurrently; the ring
 * is what makes per-frame reuse safe, not locking.
 */
type DescriptorInstance struct {
	layout   metadata.DescriptorSetLayout
	bindings []DescriptorBinding

	// When true the set ends with an embedded uniform block, bound at
	// index len(bindings).
	hasUniformBlock bool

	// Grows to cover the highest fence index seen; never shrinks.
	cycle []*DescriptorInstanceElement
}

// NewDescriptorInstance creates an instance for the given layout and
// binding declaration. withUniformBlock appends an embedded uniform block
// as the last binding of the set.
func NewDescriptorInstance(layout metadata.DescriptorSetLayout, bindings []DescriptorBinding, withUniformBlock bool) *DescriptorInstance {
	return &DescriptorInstance{
		layout:          layout,
		bindings:        bindings,
		hasUniformBlock: withUniformBlock,
	}
}

// RawLayout returns the instance's descriptor-set layout.
func (di *DescriptorInstance) RawLayout() metadata.DescriptorSetLayout {
	return di.layout
}

// Destroy releases the ring's uniform backing buffers. The descriptor
// sets themselves are pool-allocated and released with their pool; the
// layout stays with the caller.
func (di *DescriptorInstance) Destroy() {
	for _, elem := range di.cycle {
		if elem.uniforms != nil {
			elem.uniforms.rng.Buffer.Destroy()
			elem.uniforms = nil
		}
	}
	di.cycle = nil
}

func (di *DescriptorInstance) newCycleElem(device Device) (*DescriptorInstanceElement, error) {
	set, err := device.CreateDescriptorSet(di.layout)
	if err != nil {
		return nil, err
	}
	return &DescriptorInstanceElement{
		set:         set,
		descriptors: make([]cachedDescriptor, len(di.bindings)),
	}, nil
}

/**
 * @brief Update selects the element for the given fence index, growing the
 * ring as needed, diffs values (and the uniform block, when declared)
 * against the element's cached descriptors and appends a write-description
 * to writes for every binding that actually changed. The uniform block's
 * backing buffer is allocated on first touch and its descriptor written
 * once; the block's contents are re-staged through the encoder on every
 * call. Returns the element, ready to bind.
 */
func (di *DescriptorInstance) Update(
	values []BindingValue,
	uniforms UniformBlock,
	fence int,
	device Device,
	writes metadata.WriteSink,
	encoder Encoder,
) (*DescriptorInstanceElement, error) {
	if len(values) != len(di.bindings) {
		return nil, fmt.Errorf("descriptor update: %d values for %d declared bindings", len(values), len(di.bindings))
	}
	if di.hasUniformBlock && uniforms == nil {
		return nil, fmt.Errorf("descriptor update: declared uniform block but no block values")
	}

	for len(di.cycle) <= fence {
		elem, err := di.newCycleElem(device)
		if err != nil {
			return nil, err
		}
		di.cycle = append(di.cycle, elem)
	}

	elem := di.cycle[fence]

	writeUniforms := false
	if di.hasUniformBlock {
		if elem.uniforms == nil {
			size := uniforms.ByteSize()
			buffer, err := device.CreateBuffer(metadata.BufferInfo{
				Align: uniformBufferAlign,
				Size:  size,
				Usage: metadata.BufferUsageUniform | metadata.BufferUsageTransferDst,
			})
			if err != nil {
				return nil, err
			}

			data := make([]byte, size)
			uniforms.WriteTo(data)
			elem.uniforms = &uniformsBuffer{
				data: data,
				rng:  metadata.WholeBuffer(buffer),
			}
		} else {
			uniforms.WriteTo(elem.uniforms.data)
		}
		writeUniforms = !elem.uniforms.written
	}

	dirty := make([]bool, len(di.bindings))
	for i := range di.bindings {
		changed, err := di.updateBinding(&elem.descriptors[i], di.bindings[i].Kind, values[i], device)
		if err != nil {
			return nil, err
		}
		dirty[i] = changed
	}

	if writeUniforms {
		writes.Append(metadata.WriteDescriptorSet{
			Set:     elem.set,
			Binding: uint32(len(di.bindings)),
			Element: 0,
			Payload: metadata.DescriptorPayload{
				Kind:   metadata.BindingKindUniformBuffer,
				Buffer: elem.uniforms.rng,
			},
		})
		elem.uniforms.written = true
	}
	if di.hasUniformBlock {
		// The descriptor points at a stable buffer, but the block's
		// host-side values may differ every frame; stream them.
		encoder.UpdateBuffer(elem.uniforms.rng.Buffer, 0, elem.uniforms.data)
	}

	for i := range di.bindings {
		if !dirty[i] {
			continue
		}
		writes.Append(metadata.WriteDescriptorSet{
			Set:     elem.set,
			Binding: uint32(i),
			Element: 0,
			Payload: elem.descriptors[i].payload,
		})
	}

	for i := range elem.descriptors {
		if !elem.descriptors[i].valid {
			core.LogFatal("descriptor binding %d (%s) left unpopulated after update; instance declaration is broken",
				i, di.bindings[i].Name)
		}
	}

	return elem, nil
}

// updateBinding diffs one binding value against its cached descriptor
// using the kind's own equality, resolving and caching the new descriptor
// when dirty. The cache slot is written only after successful resolution.
func (di *DescriptorInstance) updateBinding(cached *cachedDescriptor, kind metadata.BindingKind, value BindingValue, device Device) (bool, error) {
	switch kind {
	case metadata.BindingKindSampler:
		if cached.valid && cached.payload.Sampler == value.Sampler {
			return false, nil
		}
		cached.payload = metadata.DescriptorPayload{
			Kind:    kind,
			Sampler: value.Sampler,
		}
		cached.valid = true
		return true, nil

	case metadata.BindingKindSampledImage:
		// Layout is pinned to shader read-only for sampled paths, so the
		// resolved view is the whole identity.
		if cached.valid && value.Image.MatchesView(cached.payload.Image.View) {
			return false, nil
		}
		view, err := value.Image.ResolveView(device)
		if err != nil {
			return false, err
		}
		cached.payload = metadata.DescriptorPayload{
			Kind: kind,
			Image: metadata.ImageViewDescriptor{
				View:   view,
				Layout: metadata.LayoutShaderReadOnlyOptimal,
			},
		}
		cached.valid = true
		return true, nil

	case metadata.BindingKindCombinedImageSampler:
		if cached.valid &&
			value.Image.MatchesView(cached.payload.Combined.View) &&
			cached.payload.Combined.Sampler == value.Sampler {
			return false, nil
		}
		view, err := value.Image.ResolveView(device)
		if err != nil {
			return false, err
		}
		cached.payload = metadata.DescriptorPayload{
			Kind: kind,
			Combined: metadata.CombinedImageSampler{
				View:    view,
				Sampler: value.Sampler,
				Layout:  metadata.LayoutShaderReadOnlyOptimal,
			},
		}
		cached.valid = true
		return true, nil

	case metadata.BindingKindUniformBuffer, metadata.BindingKindStorageBuffer:
		if cached.valid && value.Buffer.MatchesRange(cached.payload.Buffer) {
			return false, nil
		}
		rng, err := value.Buffer.ResolveRange(device)
		if err != nil {
			return false, err
		}
		cached.payload = metadata.DescriptorPayload{
			Kind:   kind,
			Buffer: rng,
		}
		cached.valid = true
		return true, nil

	case metadata.BindingKindAccelerationStructure:
		if cached.valid && cached.payload.Accel == value.Accel {
			return false, nil
		}
		cached.payload = metadata.DescriptorPayload{
			Kind:  kind,
			Accel: value.Accel,
		}
		cached.valid = true
		return true, nil
	}

	return false, fmt.Errorf("descriptor update: unknown binding kind %d", kind)
}
