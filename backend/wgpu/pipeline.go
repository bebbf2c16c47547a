package wgpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/rhi"
)

// Bind group 0 layout: constant buffer i at @binding(i), then for each
// logical texture slot j a texture at @binding(n+2j) and its sampler at
// @binding(n+2j+1), where n is the number of constant buffers.
func textureBindingIndex(constants, slot int) uint32 { return uint32(constants + 2*slot) }

const maxLogicalTextures = rhi.NumShaderStages * rhi.MaxTextureSlots

// texture layout entry flags, packed with the stage set.
const (
	texturePresent = 1 << 7
	textureCube    = 1 << 6
)

// pipelineKey identifies one render pipeline. Every field that feeds the
// HAL descriptor is part of it.
type pipelineKey struct {
	shaders  *shaderSet
	blend    *blendState
	depth    *depthState
	raster   *rasterState
	topology rhi.PrimitiveTopology
	// stripIndex is set only for strip topologies.
	stripIndex  gputypes.IndexFormat
	colors      [rhi.MaxColorAttachments]gputypes.TextureFormat
	depthFormat gputypes.TextureFormat

	constants int
	textures  [maxLogicalTextures]uint8
}

type pipelineEntry struct {
	groupLayout    hal.BindGroupLayout
	pipelineLayout hal.PipelineLayout
	pipeline       hal.RenderPipeline
}

// pipelineCache builds render pipelines on first use. Pipeline creation is
// expensive (shader compilation and validation), so pipelines live until a
// shader set they reference is disposed or the device is destroyed.
type pipelineCache struct {
	dev     *Device
	entries map[pipelineKey]*pipelineEntry

	hits, misses uint64
}

func newPipelineCache(d *Device) *pipelineCache {
	return &pipelineCache{dev: d, entries: make(map[pipelineKey]*pipelineEntry)}
}

// Stats returns cache hits and misses.
func (c *pipelineCache) Stats() (hits, misses uint64) { return c.hits, c.misses }

func (c *pipelineCache) Len() int { return len(c.entries) }

func (c *pipelineCache) get(k pipelineKey) (*pipelineEntry, error) {
	if e, ok := c.entries[k]; ok {
		c.hits++
		return e, nil
	}
	e, err := c.create(k)
	if err != nil {
		return nil, err
	}
	c.entries[k] = e
	c.misses++
	return e, nil
}

func (c *pipelineCache) evict(match func(pipelineKey) bool) {
	for k, e := range c.entries {
		if !match(k) {
			continue
		}
		c.dev.release(e)
		c.dev.device.DestroyRenderPipeline(e.pipeline)
		c.dev.device.DestroyPipelineLayout(e.pipelineLayout)
		c.dev.device.DestroyBindGroupLayout(e.groupLayout)
		delete(c.entries, k)
	}
}

func groupLayoutEntries(k pipelineKey) []gputypes.BindGroupLayoutEntry {
	var entries []gputypes.BindGroupLayoutEntry
	for i := range k.constants {
		entries = append(entries, gputypes.BindGroupLayoutEntry{
			Binding:    uint32(i),
			Visibility: gputypes.ShaderStageVertex | gputypes.ShaderStageFragment,
			Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
		})
	}
	for j, t := range k.textures {
		if t&texturePresent == 0 {
			continue
		}
		vis := rhi.ShaderStages(t & 0x0f).GPUStages()
		dim := gputypes.TextureViewDimension2D
		if t&textureCube != 0 {
			dim = gputypes.TextureViewDimensionCube
		}
		b := textureBindingIndex(k.constants, j)
		entries = append(entries,
			gputypes.BindGroupLayoutEntry{
				Binding:    b,
				Visibility: vis,
				Texture: &gputypes.TextureBindingLayout{
					SampleType:    gputypes.TextureSampleTypeFloat,
					ViewDimension: dim,
				},
			},
			gputypes.BindGroupLayoutEntry{
				Binding:    b + 1,
				Visibility: vis,
				Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
			})
	}
	return entries
}

func (c *pipelineCache) create(k pipelineKey) (*pipelineEntry, error) {
	device := c.dev.device
	groupLayout, err := device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   "rhi_material_layout",
		Entries: groupLayoutEntries(k),
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create bind group layout: %w", err)
	}
	pipelineLayout, err := device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "rhi_pipeline_layout",
		BindGroupLayouts: []hal.BindGroupLayout{groupLayout},
	})
	if err != nil {
		device.DestroyBindGroupLayout(groupLayout)
		return nil, fmt.Errorf("wgpu: create pipeline layout: %w", err)
	}
	pipeline, err := device.CreateRenderPipeline(renderPipelineDescriptor(k, pipelineLayout))
	if err != nil {
		device.DestroyPipelineLayout(pipelineLayout)
		device.DestroyBindGroupLayout(groupLayout)
		return nil, fmt.Errorf("wgpu: create render pipeline: %w", err)
	}
	rhi.Logger().Debug("wgpu: pipeline created",
		"vs", k.shaders.vs.name, "fs", k.shaders.fs.name, "topology", k.topology)
	return &pipelineEntry{groupLayout: groupLayout, pipelineLayout: pipelineLayout, pipeline: pipeline}, nil
}

func renderPipelineDescriptor(k pipelineKey, layout hal.PipelineLayout) *hal.RenderPipelineDescriptor {
	primitive := gputypes.PrimitiveState{
		Topology:  k.topology.GPUTopology(),
		FrontFace: gputypes.FrontFaceCW,
		CullMode:  gputypes.CullModeBack,
	}
	if k.stripIndex != 0 {
		f := k.stripIndex
		primitive.StripIndexFormat = &f
	}
	if k.raster != nil {
		primitive.CullMode = k.raster.desc.CullMode.CullMode()
		primitive.UnclippedDepth = !k.raster.desc.DepthClipEnabled
	}

	var depthStencil *hal.DepthStencilState
	if k.depthFormat != gputypes.TextureFormatUndefined {
		keep := hal.StencilFaceState{
			Compare:     gputypes.CompareFunctionAlways,
			FailOp:      hal.StencilOperationKeep,
			DepthFailOp: hal.StencilOperationKeep,
			PassOp:      hal.StencilOperationKeep,
		}
		depthStencil = &hal.DepthStencilState{
			Format:            k.depthFormat,
			DepthWriteEnabled: true,
			DepthCompare:      gputypes.CompareFunctionLess,
			StencilFront:      keep,
			StencilBack:       keep,
			StencilReadMask:   0xff,
			StencilWriteMask:  0xff,
		}
		if k.depth != nil {
			desc := k.depth.desc
			depthStencil.DepthWriteEnabled = desc.DepthTestEnabled && desc.DepthWriteEnabled
			depthStencil.DepthCompare = gputypes.CompareFunctionAlways
			if desc.DepthTestEnabled {
				depthStencil.DepthCompare = desc.Comparison.CompareFunction()
			}
		}
	}

	var blend *gputypes.BlendState
	if k.blend != nil {
		blend = k.blend.gpuBlend()
	}
	var targets []gputypes.ColorTargetState
	for _, f := range k.colors {
		if f == gputypes.TextureFormatUndefined {
			continue
		}
		targets = append(targets, gputypes.ColorTargetState{
			Format:    f,
			Blend:     blend,
			WriteMask: gputypes.ColorWriteMaskAll,
		})
	}

	return &hal.RenderPipelineDescriptor{
		Label:  "rhi_pipeline",
		Layout: layout,
		Vertex: hal.VertexState{
			Module:     k.shaders.vs.module,
			EntryPoint: k.shaders.vs.entry,
			Buffers:    k.shaders.layout.buffers,
		},
		Primitive:    primitive,
		DepthStencil: depthStencil,
		Multisample:  gputypes.DefaultMultisampleState(),
		Fragment: &hal.FragmentState{
			Module:     k.shaders.fs.module,
			EntryPoint: k.shaders.fs.entry,
			Targets:    targets,
		},
	}
}
