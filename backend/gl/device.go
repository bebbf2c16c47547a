package gl

import (
	"fmt"

	"github.com/gogpu/rhi"
	"github.com/gogpu/rhi/shader"
)

// Device is the rhi.DeviceFactory of the OpenGL backend.
type Device struct {
	fn    Functions
	state *glState
}

func newDevice(fn Functions) *Device {
	fn.PixelStorei(UnpackAlignment, 1)
	fn.PixelStorei(PackAlignment, 1)
	return &Device{fn: fn, state: newGLState(fn)}
}

func (d *Device) Backend() rhi.Backend { return rhi.BackendOpenGL }

func (d *Device) ShaderLanguages() []shader.Language {
	return []shader.Language{shader.GLSL, shader.WGSL}
}

func (d *Device) CreateVertexBuffer(sizeInBytes int, dynamic bool) (rhi.VertexBuffer, error) {
	return &vertexBuffer{buffer: *newBuffer(d, "vertex", dynamic, sizeInBytes)}, nil
}

func (d *Device) CreateIndexBuffer(sizeInBytes int, dynamic bool, format rhi.IndexFormat) (rhi.IndexBuffer, error) {
	indexType(format)
	return &indexBuffer{buffer: *newBuffer(d, "index", dynamic, sizeInBytes), format: format}, nil
}

func (d *Device) CreateConstantBuffer(sizeInBytes int) (rhi.ConstantBuffer, error) {
	return newBuffer(d, "constant", true, sizeInBytes), nil
}

// CreateShader compiles GLSL directly. WGSL is translated to GLSL 3.30
// first; it has no geometry stage.
func (d *Device) CreateShader(typ rhi.ShaderType, src shader.Source) (rhi.Shader, error) {
	kind := shaderKind(typ)
	text := src.Text
	var tr *shader.Translation
	switch src.Language {
	case shader.GLSL:
	case shader.WGSL:
		if typ == rhi.ShaderTypeGeometry {
			return nil, rhi.Unsupported(rhi.BackendOpenGL, "wgsl geometry shaders")
		}
		t, err := shader.TranslateGLSL(src, stage(typ))
		if err != nil {
			return nil, err
		}
		text, tr = t.Text, &t
	default:
		return nil, rhi.Unsupported(rhi.BackendOpenGL, src.Language.String()+" shaders")
	}

	id := d.fn.CreateShader(kind)
	d.fn.ShaderSource(id, text)
	d.fn.CompileShader(id)
	if d.fn.GetShaderi(id, CompileStatus) == 0 {
		log := d.fn.GetShaderInfoLog(id)
		d.fn.DeleteShader(id)
		return nil, fmt.Errorf("gl: compile %s %s shader: %s", src.Name, typ, log)
	}
	rhi.Logger().Debug("gl: shader compiled", "name", src.Name, "type", typ, "translated", tr != nil)
	return &shaderModule{dev: d, typ: typ, name: src.Name, id: id, translated: tr}, nil
}

func stage(t rhi.ShaderType) shader.Stage {
	if t == rhi.ShaderTypeVertex {
		return shader.StageVertex
	}
	return shader.StageFragment
}

// CreateInputLayout checks that a translated vertex shader has an input for
// every element. Native GLSL inputs are matched by name at link time.
func (d *Device) CreateInputLayout(vs rhi.Shader, inputs []rhi.MaterialVertexInput) (rhi.VertexInputLayout, error) {
	v, ok := vs.(*shaderModule)
	if !ok || v.typ != rhi.ShaderTypeVertex {
		return nil, fmt.Errorf("gl: input layout for %T: %w", vs, rhi.ErrBackendMismatch)
	}
	if v.translated != nil {
		n := 0
		for _, in := range inputs {
			n += len(in.Elements)
		}
		if have := len(v.translated.Reflection.VertexInputs); n != have {
			return nil, fmt.Errorf("%w: %s reads %d inputs, layout has %d", rhi.ErrInputLayoutMismatch, v.name, have, n)
		}
	}
	return &inputLayout{inputs: inputs, vs: v}, nil
}

// CreateShaderSet links the program and resolves attribute locations.
func (d *Device) CreateShaderSet(layout rhi.VertexInputLayout, vs, gs, fs rhi.Shader) (rhi.ShaderSet, error) {
	l, lok := layout.(*inputLayout)
	v, vok := vs.(*shaderModule)
	f, fok := fs.(*shaderModule)
	if !lok || !vok || !fok {
		return nil, fmt.Errorf("gl: shader set: %w", rhi.ErrBackendMismatch)
	}
	set := &shaderSet{dev: d, layout: l, vs: v, fs: f}
	if gs != nil {
		g, ok := gs.(*shaderModule)
		if !ok {
			return nil, fmt.Errorf("gl: shader set geometry %T: %w", gs, rhi.ErrBackendMismatch)
		}
		set.gs = g
	}

	p := d.fn.CreateProgram()
	d.fn.AttachShader(p, v.id)
	if set.gs != nil {
		d.fn.AttachShader(p, set.gs.id)
	}
	d.fn.AttachShader(p, f.id)
	d.fn.LinkProgram(p)
	if d.fn.GetProgrami(p, LinkStatus) == 0 {
		log := d.fn.GetProgramInfoLog(p)
		d.fn.DeleteProgram(p)
		return nil, fmt.Errorf("gl: link %s+%s: %s", v.name, f.name, log)
	}
	set.program = p
	set.locations = d.attribLocations(p, l, v)
	return set, nil
}

// attribLocations numbers translated inputs by their reflected locations in
// element order. Native GLSL inputs are looked up by element name.
func (d *Device) attribLocations(program uint32, l *inputLayout, vs *shaderModule) [][]int32 {
	locs := make([][]int32, len(l.inputs))
	k := 0
	for i, in := range l.inputs {
		locs[i] = make([]int32, len(in.Elements))
		for j, el := range in.Elements {
			if vs.translated != nil {
				locs[i][j] = int32(vs.translated.Reflection.VertexInputs[k].Location)
			} else {
				locs[i][j] = d.fn.GetAttribLocation(program, el.Name)
				if locs[i][j] < 0 {
					rhi.Logger().Debug("gl: vertex input not read by program", "shader", vs.name, "input", el.Name)
				}
			}
			k++
		}
	}
	return locs
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

func (d *Device) CreateTexture2D(width, height int, format rhi.PixelFormat, data []byte) (rhi.Texture2D, error) {
	if data != nil && len(data) != width*height*format.SizeInBytes() {
		return nil, fmt.Errorf("gl: texture data is %d bytes, want %d: %w",
			len(data), width*height*format.SizeInBytes(), rhi.ErrOutOfRange)
	}
	return d.newTexture(Texture2D, width, height, format, pixelFormat(format), [][]byte{data}), nil
}

// CreateDepthTexture allocates a D24S8 texture. Depth textures report
// PixelFormatR32G32B32A32Float.
func (d *Device) CreateDepthTexture(width, height int) (rhi.Texture2D, error) {
	return d.newDepthTexture(width, height), nil
}

func (d *Device) newDepthTexture(width, height int) *texture {
	tf := texFormat{internal: Depth24Stencil8, format: DepthStencil, typ: UnsignedInt24_8}
	return d.newTexture(Texture2D, width, height, rhi.PixelFormatR32G32B32A32Float, tf, [][]byte{nil})
}

func (d *Device) CreateCubemapTexture(width, height int, format rhi.PixelFormat, faces [6][]byte) (rhi.CubemapTexture, error) {
	n := width * height * format.SizeInBytes()
	for i, face := range faces {
		if len(face) != n {
			return nil, fmt.Errorf("gl: cubemap face %d is %d bytes, want %d: %w", i, len(face), n, rhi.ErrOutOfRange)
		}
	}
	return d.newTexture(TextureCubeMap, width, height, format, pixelFormat(format), faces[:]), nil
}

func (d *Device) CreateShaderTextureBinding(tex rhi.DeviceTexture) (rhi.ShaderTextureBinding, error) {
	t, ok := tex.(*texture)
	if !ok {
		return nil, fmt.Errorf("gl: texture binding for %T: %w", tex, rhi.ErrBackendMismatch)
	}
	return &textureBinding{tex: t}, nil
}

// State descriptions are validated here so bad values panic at creation,
// not at bind time.
func (d *Device) CreateBlendState(desc rhi.BlendStateDescription) (rhi.BlendState, error) {
	blend(desc.SourceColor)
	blend(desc.DestinationColor)
	blend(desc.SourceAlpha)
	blend(desc.DestinationAlpha)
	blendEquation(desc.ColorFunction)
	blendEquation(desc.AlphaFunction)
	return &blendState{desc: desc}, nil
}

func (d *Device) CreateDepthStencilState(desc rhi.DepthStencilDescription) (rhi.DepthStencilState, error) {
	depthFunc(desc.Comparison)
	return &depthState{desc: desc}, nil
}

func (d *Device) CreateRasterizerState(desc rhi.RasterizerDescription) (rhi.RasterizerState, error) {
	cullFace(desc.CullMode)
	polygonMode(desc.FillMode)
	return &rasterState{desc: desc}, nil
}
