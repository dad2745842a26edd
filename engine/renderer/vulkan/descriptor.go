package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/aurora/engine/core"
	"github.com/spaghettifunk/aurora/engine/renderer"
	"github.com/spaghettifunk/aurora/engine/renderer/metadata"
)

/**
 * @brief Max number of descriptor sets per pool chunk. A new chunk is
 * created when the current one runs dry.
 * @todo TODO: make configurable
 */
const descriptorPoolMaxSets uint32 = 256

// VulkanDescriptorSetLayout wraps a native set layout.
type VulkanDescriptorSetLayout struct {
	device *Device
	handle vk.DescriptorSetLayout
}

// VulkanDescriptorSet is a pool-allocated native descriptor set. Sets
// are returned to the driver with their pool, never individually.
type VulkanDescriptorSet struct {
	handle vk.DescriptorSet
	layout *VulkanDescriptorSetLayout
}

func (s *VulkanDescriptorSet) Layout() metadata.DescriptorSetLayout {
	return s.layout
}

// Handle returns the native descriptor set, ready to bind.
func (s *VulkanDescriptorSet) Handle() vk.DescriptorSet {
	return s.handle
}

/**
 * @brief CreateDescriptorSetLayout builds a native layout from a binding
 * declaration. Binding indices are assigned in declaration order;
 * withUniformBlock appends a uniform-buffer binding at the last index,
 * matching the descriptor engine's layout convention.
 */
func (d *Device) CreateDescriptorSetLayout(bindings []renderer.DescriptorBinding, withUniformBlock bool) (metadata.DescriptorSetLayout, error) {
	nativeBindings := make([]vk.DescriptorSetLayoutBinding, 0, len(bindings)+1)
	for i, binding := range bindings {
		descriptorType, ok := vulkanDescriptorType(binding.Kind)
		if !ok {
			return nil, fmt.Errorf("%w: %s descriptors on this device", renderer.ErrUsageNotSupported, binding.Kind)
		}
		nativeBindings = append(nativeBindings, vk.DescriptorSetLayoutBinding{
			Binding:         uint32(i),
			DescriptorType:  descriptorType,
			DescriptorCount: 1,
			StageFlags:      vk.ShaderStageFlags(vk.ShaderStageAllGraphics),
		})
	}
	if withUniformBlock {
		nativeBindings = append(nativeBindings, vk.DescriptorSetLayoutBinding{
			Binding:         uint32(len(bindings)),
			DescriptorType:  vk.DescriptorTypeUniformBuffer,
			DescriptorCount: 1,
			StageFlags:      vk.ShaderStageFlags(vk.ShaderStageAllGraphics),
		})
	}

	layoutInfo := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(nativeBindings)),
		PBindings:    nativeBindings,
	}

	var handle vk.DescriptorSetLayout
	if res := vk.CreateDescriptorSetLayout(d.LogicalDevice, &layoutInfo, d.context.Allocator, &handle); res != vk.Success {
		return nil, d.creationError(res, "descriptor set layout")
	}
	return &VulkanDescriptorSetLayout{device: d, handle: handle}, nil
}

func (l *VulkanDescriptorSetLayout) Destroy() {
	if l.handle != vk.NullDescriptorSetLayout {
		vk.DestroyDescriptorSetLayout(l.device.LogicalDevice, l.handle, l.device.context.Allocator)
		l.handle = vk.NullDescriptorSetLayout
	}
}

func (d *Device) newDescriptorPool() (vk.DescriptorPool, error) {
	poolSizes := []vk.DescriptorPoolSize{
		{Type: vk.DescriptorTypeSampler, DescriptorCount: descriptorPoolMaxSets},
		{Type: vk.DescriptorTypeSampledImage, DescriptorCount: descriptorPoolMaxSets},
		{Type: vk.DescriptorTypeCombinedImageSampler, DescriptorCount: descriptorPoolMaxSets},
		{Type: vk.DescriptorTypeUniformBuffer, DescriptorCount: descriptorPoolMaxSets},
		{Type: vk.DescriptorTypeStorageBuffer, DescriptorCount: descriptorPoolMaxSets},
	}

	poolInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       descriptorPoolMaxSets,
		PoolSizeCount: uint32(len(poolSizes)),
		PPoolSizes:    poolSizes,
	}

	var pool vk.DescriptorPool
	if res := vk.CreateDescriptorPool(d.LogicalDevice, &poolInfo, d.context.Allocator, &pool); res != vk.Success {
		return vk.NullDescriptorPool, d.creationError(res, "descriptor pool")
	}
	d.descriptorPools = append(d.descriptorPools, pool)
	core.LogDebug("Descriptor pool chunk created (%d total).", len(d.descriptorPools))
	return pool, nil
}

func (d *Device) CreateDescriptorSet(layout metadata.DescriptorSetLayout) (metadata.DescriptorSet, error) {
	nativeLayout, ok := layout.(*VulkanDescriptorSetLayout)
	if !ok {
		core.LogFatal("descriptor set allocation was handed a foreign layout type %T", layout)
		return nil, fmt.Errorf("foreign descriptor set layout type %T", layout)
	}

	if d.currentDescriptorPool == vk.NullDescriptorPool {
		pool, err := d.newDescriptorPool()
		if err != nil {
			return nil, err
		}
		d.currentDescriptorPool = pool
	}

	handle, res := d.allocateDescriptorSet(d.currentDescriptorPool, nativeLayout.handle)
	if res == vk.ErrorOutOfPoolMemory || res == vk.ErrorFragmentedPool {
		// Current chunk is dry; start a fresh one and retry once.
		pool, err := d.newDescriptorPool()
		if err != nil {
			return nil, err
		}
		d.currentDescriptorPool = pool
		handle, res = d.allocateDescriptorSet(pool, nativeLayout.handle)
	}
	if res != vk.Success {
		return nil, d.creationError(res, "descriptor set")
	}

	return &VulkanDescriptorSet{handle: handle, layout: nativeLayout}, nil
}

func (d *Device) allocateDescriptorSet(pool vk.DescriptorPool, layout vk.DescriptorSetLayout) (vk.DescriptorSet, vk.Result) {
	allocInfo := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     pool,
		DescriptorSetCount: 1,
		PSetLayouts:        []vk.DescriptorSetLayout{layout},
	}
	sets := make([]vk.DescriptorSet, 1)
	res := vk.AllocateDescriptorSets(d.LogicalDevice, &allocInfo, &sets[0])
	return sets[0], res
}

/**
 * @brief FlushWrites applies a batch of collected descriptor writes in a
 * single native update call and resets the batch. Callers flush once per
 * frame after all instances have been diffed.
 */
func (d *Device) FlushWrites(batch *metadata.WriteBatch) error {
	if len(batch.Writes) == 0 {
		return nil
	}

	nativeWrites := make([]vk.WriteDescriptorSet, 0, len(batch.Writes))

	for _, w := range batch.Writes {
		set, ok := w.Set.(*VulkanDescriptorSet)
		if !ok {
			return fmt.Errorf("foreign descriptor set type %T", w.Set)
		}
		descriptorType, ok := vulkanDescriptorType(w.Payload.Kind)
		if !ok {
			return fmt.Errorf("%w: %s descriptors on this device", renderer.ErrUsageNotSupported, w.Payload.Kind)
		}

		write := vk.WriteDescriptorSet{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          set.handle,
			DstBinding:      w.Binding,
			DstArrayElement: w.Element,
			DescriptorCount: 1,
			DescriptorType:  descriptorType,
		}

		switch w.Payload.Kind {
		case metadata.BindingKindSampler:
			sampler, err := samplerHandle(w.Payload.Sampler)
			if err != nil {
				return err
			}
			write.PImageInfo = []vk.DescriptorImageInfo{{Sampler: sampler}}

		case metadata.BindingKindSampledImage:
			view, err := viewHandle(w.Payload.Image.View)
			if err != nil {
				return err
			}
			write.PImageInfo = []vk.DescriptorImageInfo{{
				ImageView:   view,
				ImageLayout: vulkanImageLayout(w.Payload.Image.Layout),
			}}

		case metadata.BindingKindCombinedImageSampler:
			view, err := viewHandle(w.Payload.Combined.View)
			if err != nil {
				return err
			}
			sampler, err := samplerHandle(w.Payload.Combined.Sampler)
			if err != nil {
				return err
			}
			write.PImageInfo = []vk.DescriptorImageInfo{{
				Sampler:     sampler,
				ImageView:   view,
				ImageLayout: vulkanImageLayout(w.Payload.Combined.Layout),
			}}

		case metadata.BindingKindUniformBuffer, metadata.BindingKindStorageBuffer:
			buffer, err := bufferHandle(w.Payload.Buffer.Buffer)
			if err != nil {
				return err
			}
			write.PBufferInfo = []vk.DescriptorBufferInfo{{
				Buffer: buffer,
				Offset: vk.DeviceSize(w.Payload.Buffer.Offset),
				Range:  vk.DeviceSize(w.Payload.Buffer.Size),
			}}
		}

		nativeWrites = append(nativeWrites, write)
	}

	vk.UpdateDescriptorSets(d.LogicalDevice, uint32(len(nativeWrites)), nativeWrites, 0, nil)
	batch.Reset()
	return nil
}
