package wgpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/rhi"
	"github.com/gogpu/rhi/shader"
)

// Device is the rhi.DeviceFactory of the webgpu backend. It owns the HAL
// device unless the device came from a provider.
type Device struct {
	device   hal.Device
	queue    hal.Queue
	instance hal.Instance
	external bool

	sampler   hal.Sampler
	pipelines *pipelineCache

	// frame is the platform recording commands on this device, if any.
	frame *platform
}

func newDevice(device hal.Device, queue hal.Queue, instance hal.Instance, external bool) *Device {
	d := &Device{device: device, queue: queue, instance: instance, external: external}
	d.pipelines = newPipelineCache(d)
	return d
}

// HalDevice and HalQueue expose the HAL objects, so a Device can itself be
// used as a provider by other gogpu components.
func (d *Device) HalDevice() any { return d.device }
func (d *Device) HalQueue() any  { return d.queue }

// release makes it safe to overwrite or destroy res: commands recorded but
// not yet submitted that reference res are submitted first.
func (d *Device) release(res any) {
	if d.frame != nil && d.frame.references(res) {
		d.frame.flush()
	}
}

func (d *Device) linearSampler() (hal.Sampler, error) {
	if d.sampler != nil {
		return d.sampler, nil
	}
	s, err := d.device.CreateSampler(&hal.SamplerDescriptor{
		Label:        "rhi_linear_clamp",
		AddressModeU: gputypes.AddressModeClampToEdge,
		AddressModeV: gputypes.AddressModeClampToEdge,
		AddressModeW: gputypes.AddressModeClampToEdge,
		MagFilter:    gputypes.FilterModeLinear,
		MinFilter:    gputypes.FilterModeLinear,
		MipmapFilter: gputypes.FilterModeLinear,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create sampler: %w", err)
	}
	d.sampler = s
	return s, nil
}

// destroy releases cached objects and, unless external, the device.
func (d *Device) destroy() {
	d.pipelines.evict(func(pipelineKey) bool { return true })
	if d.sampler != nil {
		d.device.DestroySampler(d.sampler)
		d.sampler = nil
	}
	if d.external {
		return
	}
	_ = d.device.WaitIdle()
	d.device.Destroy()
	if d.instance != nil {
		d.instance.Destroy()
	}
}

func (d *Device) Backend() rhi.Backend { return rhi.BackendWebGPU }

func (d *Device) ShaderLanguages() []shader.Language { return []shader.Language{shader.WGSL} }

func (d *Device) CreateVertexBuffer(sizeInBytes int, dynamic bool) (rhi.VertexBuffer, error) {
	b, err := newBuffer(d, "rhi_vertex", gputypes.BufferUsageVertex, sizeInBytes, 1)
	if err != nil {
		return nil, err
	}
	return &vertexBuffer{buffer: *b}, nil
}

func (d *Device) CreateIndexBuffer(sizeInBytes int, dynamic bool, format rhi.IndexFormat) (rhi.IndexBuffer, error) {
	nativeFormat(format)
	b, err := newBuffer(d, "rhi_index", gputypes.BufferUsageIndex, sizeInBytes, indexScale(format))
	if err != nil {
		return nil, err
	}
	return &indexBuffer{buffer: *b, format: format}, nil
}

func (d *Device) CreateConstantBuffer(sizeInBytes int) (rhi.ConstantBuffer, error) {
	b, err := newBuffer(d, "rhi_constant", gputypes.BufferUsageUniform, sizeInBytes, 1)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (d *Device) CreateShader(typ rhi.ShaderType, src shader.Source) (rhi.Shader, error) {
	if typ == rhi.ShaderTypeGeometry {
		return nil, rhi.Unsupported(rhi.BackendWebGPU, "geometry shaders")
	}
	if src.Language != shader.WGSL {
		return nil, rhi.Unsupported(rhi.BackendWebGPU, src.Language.String()+" shaders")
	}
	refl, err := shader.Reflect(src.Text)
	if err != nil {
		return nil, fmt.Errorf("wgpu: shader %s: %w", src.Name, err)
	}
	ep, ok := refl.Entry(shaderStage(typ))
	if !ok {
		return nil, fmt.Errorf("wgpu: shader %s has no %s entry point", src.Name, typ)
	}
	module, err := d.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  src.Name,
		Source: hal.ShaderSource{WGSL: src.Text},
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create shader module %s: %w", src.Name, err)
	}
	return &shaderModule{dev: d, typ: typ, name: src.Name, module: module, entry: ep.Name}, nil
}

func (d *Device) CreateInputLayout(vs rhi.Shader, inputs []rhi.MaterialVertexInput) (rhi.VertexInputLayout, error) {
	if _, ok := vs.(*shaderModule); !ok {
		return nil, fmt.Errorf("wgpu: input layout for %T: %w", vs, rhi.ErrBackendMismatch)
	}
	return newInputLayout(inputs), nil
}

func (d *Device) CreateShaderSet(layout rhi.VertexInputLayout, vs, gs, fs rhi.Shader) (rhi.ShaderSet, error) {
	if gs != nil {
		return nil, rhi.Unsupported(rhi.BackendWebGPU, "geometry shaders")
	}
	l, lok := layout.(*inputLayout)
	v, vok := vs.(*shaderModule)
	f, fok := fs.(*shaderModule)
	if !lok || !vok || !fok {
		return nil, fmt.Errorf("wgpu: shader set: %w", rhi.ErrBackendMismatch)
	}
	return &shaderSet{dev: d, layout: l, vs: v, fs: f}, nil
}

func (d *Device) CreateShaderConstantBindings(ss rhi.ShaderSet, globals []rhi.MaterialGlobalInputElement,
	perObject []rhi.MaterialPerObjectInputElement) (rhi.ShaderConstantBindings, error) {
	table, err := rhi.NewConstantBindingTable(d, globals, perObject)
	if err != nil {
		return nil, err
	}
	return &constantBindings{table}, nil
}

func (d *Device) CreateShaderTextureBindingSlots(ss rhi.ShaderSet, inputs []rhi.MaterialTextureInputElement) (rhi.ShaderTextureBindingSlots, error) {
	table, err := rhi.AssignTextureSlots(inputs)
	if err != nil {
		return nil, err
	}
	return &textureSlots{table}, nil
}

func (d *Device) CreateFramebuffer(width, height int) (rhi.Framebuffer, error) {
	return &framebuffer{dev: d, width: width, height: height}, nil
}

const sampledUsage = gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst |
	gputypes.TextureUsageCopySrc | gputypes.TextureUsageRenderAttachment

func (d *Device) CreateTexture2D(width, height int, format rhi.PixelFormat, data []byte) (rhi.Texture2D, error) {
	t, err := d.newTexture("rhi_texture", width, height, format, format.TextureFormat(), sampledUsage, false)
	if err != nil {
		return nil, err
	}
	if data != nil {
		if err := t.SetTextureData(0, 0, width, height, data); err != nil {
			t.Dispose()
			return nil, err
		}
	}
	return t, nil
}

// Depth textures report PixelFormatR32G32B32A32Float; they cannot be read back.
func (d *Device) CreateDepthTexture(width, height int) (rhi.Texture2D, error) {
	t, err := d.newTexture("rhi_depth", width, height, rhi.PixelFormatR32G32B32A32Float,
		gputypes.TextureFormatDepth24PlusStencil8,
		gputypes.TextureUsageRenderAttachment|gputypes.TextureUsageTextureBinding, false)
	if err != nil {
		return nil, err
	}
	t.depth = true
	return t, nil
}

func (d *Device) CreateCubemapTexture(width, height int, format rhi.PixelFormat, faces [6][]byte) (rhi.CubemapTexture, error) {
	t, err := d.newTexture("rhi_cubemap", width, height, format, format.TextureFormat(),
		gputypes.TextureUsageTextureBinding|gputypes.TextureUsageCopyDst, true)
	if err != nil {
		return nil, err
	}
	for i, face := range faces {
		if err := t.writeLayer(i, 0, 0, width, height, face); err != nil {
			t.Dispose()
			return nil, fmt.Errorf("wgpu: cubemap face %d: %w", i, err)
		}
	}
	return t, nil
}

func (d *Device) CreateShaderTextureBinding(tex rhi.DeviceTexture) (rhi.ShaderTextureBinding, error) {
	t, ok := tex.(*texture)
	if !ok || t.swap {
		return nil, fmt.Errorf("wgpu: texture binding for %T: %w", tex, rhi.ErrBackendMismatch)
	}
	layers, dim := uint32(1), gputypes.TextureViewDimension2D
	aspect := gputypes.TextureAspectAll
	if t.cube {
		layers, dim = 6, gputypes.TextureViewDimensionCube
	}
	if t.depth {
		aspect = gputypes.TextureAspectDepthOnly
	}
	view, err := d.device.CreateTextureView(t.raw, &hal.TextureViewDescriptor{
		Label:           "rhi_binding",
		Format:          t.gpuFormat,
		Dimension:       dim,
		Aspect:          aspect,
		MipLevelCount:   1,
		ArrayLayerCount: layers,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create texture binding: %w", err)
	}
	return &textureBinding{dev: d, tex: t, view: view}, nil
}

func (d *Device) CreateBlendState(desc rhi.BlendStateDescription) (rhi.BlendState, error) {
	return &blendState{desc: desc}, nil
}

func (d *Device) CreateDepthStencilState(desc rhi.DepthStencilDescription) (rhi.DepthStencilState, error) {
	return &depthState{desc: desc}, nil
}

func (d *Device) CreateRasterizerState(desc rhi.RasterizerDescription) (rhi.RasterizerState, error) {
	if desc.FillMode == rhi.TriangleFillModeWireframe {
		return nil, rhi.Unsupported(rhi.BackendWebGPU, "wireframe fill")
	}
	return &rasterState{desc: desc}, nil
}
