package metadata

/**
 * @brief The closed set of descriptor binding kinds handled by the
 * descriptor update engine. Each kind carries its own cached form and
 * its own equality rule.
 */
type BindingKind int

const (
	BindingKindSampler BindingKind = iota
	BindingKindSampledImage
	BindingKindCombinedImageSampler
	BindingKindUniformBuffer
	BindingKindStorageBuffer
	BindingKindAccelerationStructure
)

func (bk BindingKind) String() string {
	switch bk {
	case BindingKindSampler:
		return "sampler"
	case BindingKindSampledImage:
		return "sampled_image"
	case BindingKindCombinedImageSampler:
		return "combined_image_sampler"
	case BindingKindUniformBuffer:
		return "uniform_buffer"
	case BindingKindStorageBuffer:
		return "storage_buffer"
	case BindingKindAccelerationStructure:
		return "acceleration_structure"
	}
	return "unknown"
}

/**
 * @brief The resolved payload of one descriptor write. Exactly one field,
 * selected by Kind, is meaningful. A tagged struct rather than per-kind
 * types so the write path is a single dispatch over a closed set.
 */
type DescriptorPayload struct {
	Kind BindingKind

	Sampler  Sampler
	Image    ImageViewDescriptor
	Combined CombinedImageSampler
	Buffer   BufferRange
	Accel    AccelerationStructure
}

/**
 * @brief One pending update to a descriptor set binding, queued for
 * batched application by the device.
 */
type WriteDescriptorSet struct {
	Set DescriptorSet
	/** @brief The fixed index of the binding within the set. */
	Binding uint32
	/** @brief The first array element updated. Always 0 for non-arrayed bindings. */
	Element uint32
	Payload DescriptorPayload
}

// WriteSink collects write-descriptors for deferred, batched application.
type WriteSink interface {
	Append(write WriteDescriptorSet)
}

/**
 * @brief WriteBatch is the plain WriteSink used by callers that flush
 * collected writes through the device once per frame.
 */
type WriteBatch struct {
	Writes []WriteDescriptorSet
}

func (wb *WriteBatch) Append(write WriteDescriptorSet) {
	wb.Writes = append(wb.Writes, write)
}

// Reset drops collected writes, retaining capacity.
func (wb *WriteBatch) Reset() {
	wb.Writes = wb.Writes[:0]
}
