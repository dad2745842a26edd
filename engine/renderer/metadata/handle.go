package metadata

// Destroyer wraps the Destroy method common to device-created objects.
type Destroyer interface {
	Destroy()
}

// Semaphore is an opaque GPU synchronization primitive created by the device.
// Two semaphores are the same primitive exactly when their values compare equal.
type Semaphore interface {
	Destroyer
}

// Sampler is an opaque immutable sampler object.
type Sampler interface {
	Destroyer
}

// ImageView is an opaque view over an image subresource.
type ImageView interface {
	Destroyer
}

// AccelerationStructure is an opaque ray-tracing acceleration structure.
type AccelerationStructure interface {
	Destroyer
}

// DescriptorSetLayout describes the bindings of a descriptor set.
type DescriptorSetLayout interface {
	Destroyer
}

// DescriptorSet is a GPU-visible table of bound resource references.
// Sets are pool-allocated by the device and released with their pool.
type DescriptorSet interface {
	Layout() DescriptorSetLayout
}

// Buffer is an opaque GPU buffer object.
type Buffer interface {
	Destroyer

	// Size returns the size of the buffer in bytes, fixed at creation.
	Size() uint64
}
