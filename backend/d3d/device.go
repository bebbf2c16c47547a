package d3d

import (
	"fmt"
	"math"

	"github.com/gogpu/rhi"
	"github.com/gogpu/rhi/shader"
)

// Device is the rhi.DeviceFactory of the d3d11 backend.
type Device struct {
	device   NativeDevice
	context  DeviceContext
	compiler Compiler
	flags    CompileFlag

	sampler SamplerState
}

func newDevice(device NativeDevice, compiler Compiler, debug bool) *Device {
	d := &Device{device: device, context: device.ImmediateContext(), compiler: compiler, flags: CompileEnableStrictness}
	if debug {
		d.flags |= CompileDebug | CompileSkipOptimization
	}
	return d
}

// linearSampler is shared by every texture binding.
func (d *Device) linearSampler() (SamplerState, error) {
	if d.sampler != nil {
		return d.sampler, nil
	}
	s, err := d.device.CreateSamplerState(&SamplerDesc{
		Filter:         FilterMinMagMipLinear,
		AddressU:       AddressClamp,
		AddressV:       AddressClamp,
		AddressW:       AddressClamp,
		MaxAnisotropy:  1,
		ComparisonFunc: ComparisonNever,
		MaxLOD:         math.MaxFloat32,
	})
	if err != nil {
		return nil, fmt.Errorf("d3d: create sampler: %w", err)
	}
	d.sampler = s
	return s, nil
}

func (d *Device) destroy() {
	if d.sampler != nil {
		d.sampler.Release()
		d.sampler = nil
	}
	d.context.ClearState()
	d.device.Release()
}

func (d *Device) Backend() rhi.Backend { return rhi.BackendD3D11 }

func (d *Device) ShaderLanguages() []shader.Language {
	return []shader.Language{shader.HLSL, shader.WGSL}
}

func (d *Device) CreateVertexBuffer(sizeInBytes int, dynamic bool) (rhi.VertexBuffer, error) {
	b, err := newBuffer(d, "vertex", BindVertexBuffer, dynamic, sizeInBytes, 1)
	if err != nil {
		return nil, err
	}
	return &vertexBuffer{buffer: *b}, nil
}

func (d *Device) CreateIndexBuffer(sizeInBytes int, dynamic bool, format rhi.IndexFormat) (rhi.IndexBuffer, error) {
	indexFormat(format)
	b, err := newBuffer(d, "index", BindIndexBuffer, dynamic, sizeInBytes, indexScale(format))
	if err != nil {
		return nil, err
	}
	return &indexBuffer{buffer: *b, format: format}, nil
}

func (d *Device) CreateConstantBuffer(sizeInBytes int) (rhi.ConstantBuffer, error) {
	b, err := newBuffer(d, "constant", BindConstantBuffer, false, sizeInBytes, 1)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// CreateShader compiles HLSL directly, with entry points VS, GS and PS.
// WGSL is translated to HLSL first; it has no geometry stage.
func (d *Device) CreateShader(typ rhi.ShaderType, src shader.Source) (rhi.Shader, error) {
	entry, profile := entryPoint(typ)
	text, translated := src.Text, false
	switch src.Language {
	case shader.HLSL:
	case shader.WGSL:
		if typ == rhi.ShaderTypeGeometry {
			return nil, rhi.Unsupported(rhi.BackendD3D11, "wgsl geometry shaders")
		}
		tr, err := shader.TranslateHLSL(src, stage(typ))
		if err != nil {
			return nil, err
		}
		text, entry, translated = tr.Text, tr.EntryPoint, true
	default:
		return nil, rhi.Unsupported(rhi.BackendD3D11, src.Language.String()+" shaders")
	}

	bytecode, err := d.compiler.Compile([]byte(text), src.Name, entry, profile, d.flags)
	if err != nil {
		return nil, fmt.Errorf("d3d: compile %s (%s): %w", src.Name, profile, err)
	}
	s := &shaderModule{typ: typ, name: src.Name, bytecode: bytecode, translated: translated}
	switch typ {
	case rhi.ShaderTypeVertex:
		s.raw, err = d.device.CreateVertexShader(bytecode)
	case rhi.ShaderTypeGeometry:
		s.raw, err = d.device.CreateGeometryShader(bytecode)
	case rhi.ShaderTypeFragment:
		s.raw, err = d.device.CreatePixelShader(bytecode)
	}
	if err != nil {
		return nil, fmt.Errorf("d3d: create %s shader %s: %w", typ, src.Name, err)
	}
	rhi.Logger().Debug("d3d: shader compiled", "name", src.Name, "profile", profile, "translated", translated)
	return s, nil
}

func stage(t rhi.ShaderType) shader.Stage {
	if t == rhi.ShaderTypeVertex {
		return shader.StageVertex
	}
	return shader.StageFragment
}

// CreateInputLayout validates inputs against the vertex shader's input
// signature.
func (d *Device) CreateInputLayout(vs rhi.Shader, inputs []rhi.MaterialVertexInput) (rhi.VertexInputLayout, error) {
	v, ok := vs.(*shaderModule)
	if !ok || v.typ != rhi.ShaderTypeVertex {
		return nil, fmt.Errorf("d3d: input layout for %T: %w", vs, rhi.ErrBackendMismatch)
	}
	raw, err := d.device.CreateInputLayout(inputElements(inputs, v.translated), v.bytecode)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", rhi.ErrInputLayoutMismatch, v.name, err)
	}
	return &inputLayout{inputs: inputs, raw: raw}, nil
}

func (d *Device) CreateShaderSet(layout rhi.VertexInputLayout, vs, gs, fs rhi.Shader) (rhi.ShaderSet, error) {
	l, lok := layout.(*inputLayout)
	v, vok := vs.(*shaderModule)
	f, fok := fs.(*shaderModule)
	if !lok || !vok || !fok {
		return nil, fmt.Errorf("d3d: shader set: %w", rhi.ErrBackendMismatch)
	}
	set := &shaderSet{layout: l, vs: v, fs: f}
	if gs != nil {
		g, ok := gs.(*shaderModule)
		if !ok {
			return nil, fmt.Errorf("d3d: shader set geometry %T: %w", gs, rhi.ErrBackendMismatch)
		}
		set.gs = g
	}
	return set, nil
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
	return &framebuffer{width: width, height: height}, nil
}

func colorDesc(width, height int, format Format) Texture2DDesc {
	return Texture2DDesc{
		Width:       uint32(width),
		Height:      uint32(height),
		MipLevels:   1,
		ArraySize:   1,
		Format:      format,
		SampleCount: 1,
		Usage:       UsageDefault,
		BindFlags:   BindShaderResource | BindRenderTarget,
	}
}

func (d *Device) CreateTexture2D(width, height int, format rhi.PixelFormat, data []byte) (rhi.Texture2D, error) {
	var initial []SubresourceData
	if data != nil {
		initial = []SubresourceData{{Data: data, RowPitch: uint32(width * format.SizeInBytes())}}
	}
	t, err := d.newTexture(colorDesc(width, height, pixelFormat(format)), format, initial)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// CreateDepthTexture allocates D24S8 storage behind a typeless format, so
// the texture can be both a depth target and sampled. Depth textures report
// PixelFormatR32G32B32A32Float.
func (d *Device) CreateDepthTexture(width, height int) (rhi.Texture2D, error) {
	desc := colorDesc(width, height, FormatR24G8Typeless)
	desc.BindFlags = BindDepthStencil | BindShaderResource
	t, err := d.newTexture(desc, rhi.PixelFormatR32G32B32A32Float, nil)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (d *Device) CreateCubemapTexture(width, height int, format rhi.PixelFormat, faces [6][]byte) (rhi.CubemapTexture, error) {
	pitch := width * format.SizeInBytes()
	initial := make([]SubresourceData, len(faces))
	for i, face := range faces {
		if len(face) != pitch*height {
			return nil, fmt.Errorf("d3d: cubemap face %d is %d bytes, want %d: %w", i, len(face), pitch*height, rhi.ErrOutOfRange)
		}
		initial[i] = SubresourceData{Data: face, RowPitch: uint32(pitch)}
	}
	desc := colorDesc(width, height, pixelFormat(format))
	desc.ArraySize = 6
	desc.BindFlags = BindShaderResource
	desc.MiscFlags = MiscTextureCube
	t, err := d.newTexture(desc, format, initial)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (d *Device) CreateShaderTextureBinding(tex rhi.DeviceTexture) (rhi.ShaderTextureBinding, error) {
	t, ok := tex.(*texture)
	if !ok || t.backbuffer {
		return nil, fmt.Errorf("d3d: texture binding for %T: %w", tex, rhi.ErrBackendMismatch)
	}
	desc := &ShaderResourceViewDesc{Format: t.desc.Format, Dimension: SRVDimensionTexture2D, MipLevels: 1}
	if t.cube {
		desc.Dimension = SRVDimensionTextureCube
	}
	if t.depth {
		desc.Format = FormatR24UnormX8Typeless
	}
	srv, err := d.device.CreateShaderResourceView(t.raw, desc)
	if err != nil {
		return nil, fmt.Errorf("d3d: create shader resource view: %w", err)
	}
	return &textureBinding{tex: t, srv: srv}, nil
}

func (d *Device) CreateBlendState(desc rhi.BlendStateDescription) (rhi.BlendState, error) {
	raw, err := d.device.CreateBlendState(&BlendDesc{
		BlendEnable:           desc.Enabled,
		SrcBlend:              blend(desc.SourceColor),
		DestBlend:             blend(desc.DestinationColor),
		BlendOp:               blendOp(desc.ColorFunction),
		SrcBlendAlpha:         blend(desc.SourceAlpha),
		DestBlendAlpha:        blend(desc.DestinationAlpha),
		BlendOpAlpha:          blendOp(desc.AlphaFunction),
		RenderTargetWriteMask: ColorWriteEnableAll,
	})
	if err != nil {
		return nil, fmt.Errorf("d3d: create blend state: %w", err)
	}
	return &blendState{desc: desc, raw: raw}, nil
}

func (d *Device) CreateDepthStencilState(desc rhi.DepthStencilDescription) (rhi.DepthStencilState, error) {
	mask := DepthWriteMaskZero
	if desc.DepthWriteEnabled {
		mask = DepthWriteMaskAll
	}
	raw, err := d.device.CreateDepthStencilState(&DepthStencilDesc{
		DepthEnable:    desc.DepthTestEnabled,
		DepthWriteMask: mask,
		DepthFunc:      comparison(desc.Comparison),
	})
	if err != nil {
		return nil, fmt.Errorf("d3d: create depth stencil state: %w", err)
	}
	return &depthState{desc: desc, raw: raw}, nil
}

func (d *Device) CreateRasterizerState(desc rhi.RasterizerDescription) (rhi.RasterizerState, error) {
	raw, err := d.device.CreateRasterizerState(&RasterizerDesc{
		FillMode:        fillMode(desc.FillMode),
		CullMode:        cullMode(desc.CullMode),
		DepthClipEnable: desc.DepthClipEnabled,
		ScissorEnable:   desc.ScissorTestEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("d3d: create rasterizer state: %w", err)
	}
	return &rasterState{desc: desc, raw: raw}, nil
}
