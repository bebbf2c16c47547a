package d3d

import (
	"encoding/binary"
	"fmt"

	"github.com/gogpu/rhi"
)

func align16(n int) int { return (n + 15) &^ 15 }

// buffer is a D3D11 buffer with a host copy of its contents. Dynamic buffers
// are rewritten through Map with WRITE_DISCARD, default buffers through
// UpdateSubresource. Constant buffers cannot be partially updated, so every
// constant write uploads the whole buffer. 8-bit index buffers store widened
// 16-bit indices natively (scale 2).
type buffer struct {
	dev     *Device
	label   string
	bind    BindFlag
	dynamic bool
	scale   int
	raw     Buffer
	rawSize int
	size    int
	data    []byte
	gen     uint64
}

func newBuffer(d *Device, label string, bind BindFlag, dynamic bool, size, scale int) (*buffer, error) {
	b := &buffer{dev: d, label: label, bind: bind, dynamic: dynamic, scale: scale}
	if err := b.replace(make([]byte, size)); err != nil {
		return nil, err
	}
	return b, nil
}

// replace creates native storage initialized from data, which becomes the
// host copy, and bumps the generation.
func (b *buffer) replace(data []byte) error {
	rawSize := len(data) * b.scale
	if b.bind == BindConstantBuffer {
		rawSize = align16(rawSize)
	}
	desc := &BufferDesc{ByteWidth: uint32(rawSize), Usage: UsageDefault, BindFlags: b.bind}
	if b.dynamic {
		desc.Usage, desc.CPUAccessFlags = UsageDynamic, CPUAccessWrite
	}
	old := b.data
	b.data = data
	raw, err := b.dev.device.CreateBuffer(desc, b.native(0, rawSize))
	if err != nil {
		b.data = old
		return fmt.Errorf("d3d: create %s buffer: %w", b.label, err)
	}
	if b.raw != nil {
		b.raw.Release()
	}
	b.raw, b.rawSize, b.size = raw, rawSize, len(data)
	b.gen++
	return nil
}

// native returns native bytes [lo, hi) built from the host copy.
func (b *buffer) native(lo, hi int) []byte {
	if b.scale == 1 && hi <= len(b.data) {
		return b.data[lo:hi]
	}
	out := make([]byte, hi-lo)
	if b.scale == 1 {
		copy(out, b.data[lo:])
		return out
	}
	for i := lo / 2; i < hi/2 && i < len(b.data); i++ {
		binary.LittleEndian.PutUint16(out[2*i-lo:], uint16(b.data[i]))
	}
	return out
}

func (b *buffer) Backend() rhi.Backend { return rhi.BackendD3D11 }
func (b *buffer) SizeInBytes() int     { return b.size }
func (b *buffer) Generation() uint64   { return b.gen }

func (b *buffer) SetData(data []byte, offsetInBytes int) error {
	if offsetInBytes < 0 {
		return fmt.Errorf("d3d: buffer offset %d: %w", offsetInBytes, rhi.ErrOutOfRange)
	}
	end := offsetInBytes + len(data)
	if end > b.size {
		grown := make([]byte, end)
		copy(grown, b.data)
		copy(grown[offsetInBytes:], data)
		return b.replace(grown)
	}
	copy(b.data[offsetInBytes:], data)
	return b.upload(offsetInBytes, end)
}

// upload writes logical bytes [lo, hi) to the native buffer.
func (b *buffer) upload(lo, hi int) error {
	if hi <= lo {
		return nil
	}
	ctx := b.dev.context
	switch {
	case b.dynamic:
		m, err := ctx.Map(b.raw, 0, MapWriteDiscard)
		if err != nil {
			return fmt.Errorf("d3d: map %s buffer: %w", b.label, err)
		}
		copy(m.Data, b.native(0, b.rawSize))
		ctx.Unmap(b.raw, 0)
	case b.bind == BindConstantBuffer:
		ctx.UpdateSubresource(b.raw, 0, nil, b.native(0, b.rawSize), 0, 0)
	default:
		nlo, nhi := lo*b.scale, hi*b.scale
		box := &Box{Left: uint32(nlo), Right: uint32(nhi), Bottom: 1, Back: 1}
		ctx.UpdateSubresource(b.raw, 0, box, b.native(nlo, nhi), 0, 0)
	}
	return nil
}

func (b *buffer) GetData(dst []byte, offsetInBytes int) error {
	if offsetInBytes < 0 || offsetInBytes+len(dst) > b.size {
		return fmt.Errorf("d3d: read %d bytes at %d of %d: %w", len(dst), offsetInBytes, b.size, rhi.ErrOutOfRange)
	}
	copy(dst, b.data[offsetInBytes:])
	return nil
}

func (b *buffer) Dispose() {
	if b.raw == nil {
		return
	}
	b.raw.Release()
	b.raw, b.data = nil, nil
}

type vertexBuffer struct {
	buffer
	stride, offset int
}

func (b *vertexBuffer) SetVertexData(data []byte, desc rhi.VertexDescriptor, destinationOffset int) error {
	b.stride, b.offset = desc.VertexSizeInBytes, desc.Offset
	return b.SetData(data, destinationOffset*desc.VertexSizeInBytes)
}

func (b *vertexBuffer) Stride() int { return b.stride }
func (b *vertexBuffer) Offset() int { return b.offset }

type indexBuffer struct {
	buffer
	format rhi.IndexFormat
}

func (b *indexBuffer) Format() rhi.IndexFormat { return b.format }

func (b *indexBuffer) SetIndexData(data []byte, format rhi.IndexFormat, offsetInBytes int) error {
	indexFormat(format)
	if s := indexScale(format); s != b.scale {
		b.scale = s
		if err := b.replace(b.data); err != nil {
			return err
		}
	}
	b.format = format
	return b.SetData(data, offsetInBytes)
}

// texture is a 2D or cube texture. Views are created on first use.
type texture struct {
	dev    *Device
	raw    Texture2D
	desc   Texture2DDesc
	width  int
	height int
	format rhi.PixelFormat
	depth  bool
	cube   bool

	// backbuffer marks buffer 0 of the swap chain.
	backbuffer bool

	rtv RenderTargetView
	dsv DepthStencilView
}

func (d *Device) newTexture(desc Texture2DDesc, format rhi.PixelFormat, initial []SubresourceData) (*texture, error) {
	raw, err := d.device.CreateTexture2D(&desc, initial)
	if err != nil {
		return nil, fmt.Errorf("d3d: create %dx%d texture: %w", desc.Width, desc.Height, err)
	}
	return &texture{
		dev:    d,
		raw:    raw,
		desc:   desc,
		width:  int(desc.Width),
		height: int(desc.Height),
		format: format,
		depth:  desc.BindFlags&BindDepthStencil != 0,
		cube:   desc.MiscFlags&MiscTextureCube != 0,
	}, nil
}

func (t *texture) Backend() rhi.Backend     { return rhi.BackendD3D11 }
func (t *texture) Width() int               { return t.width }
func (t *texture) Height() int              { return t.height }
func (t *texture) Format() rhi.PixelFormat { return t.format }

func (t *texture) SetTextureData(x, y, width, height int, data []byte) error {
	if t.depth || t.backbuffer {
		return rhi.Unsupported(rhi.BackendD3D11, "uploads to depth or swap chain textures")
	}
	if x < 0 || y < 0 || width <= 0 || height <= 0 || x+width > t.width || y+height > t.height {
		return fmt.Errorf("d3d: region %dx%d at %d,%d of %dx%d texture: %w",
			width, height, x, y, t.width, t.height, rhi.ErrOutOfRange)
	}
	px := t.format.SizeInBytes()
	if len(data) != width*height*px {
		return fmt.Errorf("d3d: texture data is %d bytes, want %d: %w", len(data), width*height*px, rhi.ErrOutOfRange)
	}
	box := &Box{Left: uint32(x), Top: uint32(y), Right: uint32(x + width), Bottom: uint32(y + height), Back: 1}
	t.dev.context.UpdateSubresource(t.raw, 0, box, data, uint32(width*px), 0)
	return nil
}

// GetTextureData copies the texture into a staging texture and reads it
// back row by row.
func (t *texture) GetTextureData(dst []byte) error {
	if t.depth || t.backbuffer {
		return rhi.Unsupported(rhi.BackendD3D11, "readback of depth or swap chain textures")
	}
	rowBytes := t.width * t.format.SizeInBytes()
	if len(dst) > rowBytes*t.height {
		return fmt.Errorf("d3d: read %d bytes of %d: %w", len(dst), rowBytes*t.height, rhi.ErrOutOfRange)
	}
	desc := t.desc
	desc.Usage = UsageStaging
	desc.BindFlags = 0
	desc.CPUAccessFlags = CPUAccessRead
	staging, err := t.dev.device.CreateTexture2D(&desc, nil)
	if err != nil {
		return fmt.Errorf("d3d: create staging texture: %w", err)
	}
	defer staging.Release()

	ctx := t.dev.context
	ctx.CopyResource(staging, t.raw)
	m, err := ctx.Map(staging, 0, MapRead)
	if err != nil {
		return fmt.Errorf("d3d: map staging texture: %w", err)
	}
	defer ctx.Unmap(staging, 0)
	for row := 0; row*rowBytes < len(dst); row++ {
		src := m.Data[row*int(m.RowPitch):]
		copy(dst[row*rowBytes:], src[:rowBytes])
	}
	return nil
}

func (t *texture) renderTarget() (RenderTargetView, error) {
	if t.rtv == nil {
		rtv, err := t.dev.device.CreateRenderTargetView(t.raw)
		if err != nil {
			return nil, fmt.Errorf("d3d: create render target view: %w", err)
		}
		t.rtv = rtv
	}
	return t.rtv, nil
}

func (t *texture) depthStencil() (DepthStencilView, error) {
	if t.dsv == nil {
		dsv, err := t.dev.device.CreateDepthStencilView(t.raw, FormatD24UnormS8Uint)
		if err != nil {
			return nil, fmt.Errorf("d3d: create depth stencil view: %w", err)
		}
		t.dsv = dsv
	}
	return t.dsv, nil
}

func (t *texture) Dispose() {
	if t.raw == nil {
		return
	}
	if t.rtv != nil {
		t.rtv.Release()
	}
	if t.dsv != nil {
		t.dsv.Release()
	}
	t.raw.Release()
	t.raw, t.rtv, t.dsv = nil, nil, nil
}

type textureBinding struct {
	tex *texture
	srv ShaderResourceView
}

func (b *textureBinding) Backend() rhi.Backend            { return rhi.BackendD3D11 }
func (b *textureBinding) BoundTexture() rhi.DeviceTexture { return b.tex }

func (b *textureBinding) Dispose() {
	if b.srv == nil {
		return
	}
	b.srv.Release()
	b.srv = nil
}

type framebuffer struct {
	width, height int
	colors        [rhi.MaxColorAttachments]*texture
	depth         *texture
	gen           uint64
	// owned attachments are disposed with the framebuffer.
	owned []*texture
}

func (f *framebuffer) Backend() rhi.Backend { return rhi.BackendD3D11 }
func (f *framebuffer) Width() int           { return f.width }
func (f *framebuffer) Height() int          { return f.height }
func (f *framebuffer) Generation() uint64   { return f.gen }

func (f *framebuffer) ColorTexture(i int) rhi.DeviceTexture {
	if i < 0 || i >= len(f.colors) || f.colors[i] == nil {
		return nil
	}
	return f.colors[i]
}

func (f *framebuffer) DepthTexture() rhi.DeviceTexture {
	if f.depth == nil {
		return nil
	}
	return f.depth
}

func (f *framebuffer) attachment(tex rhi.Texture2D) (*texture, error) {
	if tex == nil {
		return nil, nil
	}
	t, ok := tex.(*texture)
	if !ok {
		return nil, fmt.Errorf("d3d: attach %T: %w", tex, rhi.ErrBackendMismatch)
	}
	if t.width != f.width || t.height != f.height {
		return nil, fmt.Errorf("d3d: attach %dx%d texture to %dx%d framebuffer: %w",
			t.width, t.height, f.width, f.height, rhi.ErrInvalidDimensions)
	}
	return t, nil
}

func (f *framebuffer) AttachColorTexture(i int, tex rhi.Texture2D) error {
	if i < 0 || i >= len(f.colors) {
		return fmt.Errorf("d3d: color attachment %d: %w", i, rhi.ErrOutOfRange)
	}
	t, err := f.attachment(tex)
	if err != nil {
		return err
	}
	if t != nil && (t.depth || t.cube) {
		return fmt.Errorf("d3d: %v texture cannot be a color attachment", t.format)
	}
	f.colors[i] = t
	f.gen++
	return nil
}

func (f *framebuffer) SetDepthTexture(tex rhi.Texture2D) error {
	t, err := f.attachment(tex)
	if err != nil {
		return err
	}
	if t != nil && !t.depth {
		return fmt.Errorf("d3d: %v texture is not a depth texture", t.format)
	}
	f.depth = t
	f.gen++
	return nil
}

// views returns the render target views of the color attachments and the
// depth view. Slot i of the result is attachment i; empty slots below the
// last attachment are nil.
func (f *framebuffer) views() ([]RenderTargetView, DepthStencilView, error) {
	n := 0
	for i, c := range f.colors {
		if c != nil {
			n = i + 1
		}
	}
	rtvs := make([]RenderTargetView, n)
	for i, c := range f.colors[:n] {
		if c == nil {
			continue
		}
		rtv, err := c.renderTarget()
		if err != nil {
			return nil, nil, err
		}
		rtvs[i] = rtv
	}
	if f.depth == nil {
		return rtvs, nil, nil
	}
	dsv, err := f.depth.depthStencil()
	if err != nil {
		return nil, nil, err
	}
	return rtvs, dsv, nil
}

func (f *framebuffer) Dispose() {
	for _, t := range f.owned {
		t.Dispose()
	}
	f.owned = nil
	f.colors = [rhi.MaxColorAttachments]*texture{}
	f.depth = nil
}

type blendState struct {
	desc rhi.BlendStateDescription
	raw  BlendState
}

func (s *blendState) Backend() rhi.Backend                    { return rhi.BackendD3D11 }
func (s *blendState) Description() rhi.BlendStateDescription { return s.desc }
func (s *blendState) Dispose()                                { s.raw.Release() }

func (s *blendState) factor() [4]float32 {
	c := s.desc.BlendFactor
	return [4]float32{c.R, c.G, c.B, c.A}
}

type depthState struct {
	desc rhi.DepthStencilDescription
	raw  DepthStencilState
}

func (s *depthState) Backend() rhi.Backend                      { return rhi.BackendD3D11 }
func (s *depthState) Description() rhi.DepthStencilDescription { return s.desc }
func (s *depthState) Dispose()                                  { s.raw.Release() }

type rasterState struct {
	desc rhi.RasterizerDescription
	raw  RasterizerState
}

func (s *rasterState) Backend() rhi.Backend                    { return rhi.BackendD3D11 }
func (s *rasterState) Description() rhi.RasterizerDescription { return s.desc }
func (s *rasterState) Dispose()                                { s.raw.Release() }

// shaderModule is a compiled stage. raw is a VertexShader, GeometryShader or
// PixelShader matching typ.
type shaderModule struct {
	typ      rhi.ShaderType
	name     string
	bytecode []byte
	raw      Object
	// translated modules came from WGSL and take LOC semantics.
	translated bool
}

func (s *shaderModule) Backend() rhi.Backend { return rhi.BackendD3D11 }
func (s *shaderModule) Type() rhi.ShaderType { return s.typ }
func (s *shaderModule) Name() string         { return s.name }

func (s *shaderModule) Dispose() {
	if s.raw == nil {
		return
	}
	s.raw.Release()
	s.raw = nil
}

type inputLayout struct {
	inputs []rhi.MaterialVertexInput
	raw    InputLayout
}

func (l *inputLayout) Backend() rhi.Backend               { return rhi.BackendD3D11 }
func (l *inputLayout) Inputs() []rhi.MaterialVertexInput { return l.inputs }
func (l *inputLayout) Dispose()                           { l.raw.Release() }

// inputElements describes inputs with one input slot per buffer. Native HLSL
// binds by semantic, indexed per name in declaration order. Shaders translated
// from WGSL read LOC0..LOCn, numbered consecutively across buffers.
func inputElements(inputs []rhi.MaterialVertexInput, translated bool) []InputElementDesc {
	var elems []InputElementDesc
	semIndex := map[string]uint32{}
	loc := uint32(0)
	for slot, in := range inputs {
		offs := in.Offsets()
		for i, el := range in.Elements {
			e := InputElementDesc{
				Format:            vertexFormat(el.Format),
				InputSlot:         uint32(slot),
				AlignedByteOffset: uint32(offs[i]),
				InputSlotClass:    inputClass(el.InputClass),
			}
			if el.InputClass == rhi.VertexInputClassPerInstance {
				e.InstanceDataStepRate = uint32(el.InstanceStepRate)
			}
			if translated {
				e.SemanticName, e.SemanticIndex = "LOC", loc
			} else {
				name := semanticName(el.SemanticType)
				e.SemanticName, e.SemanticIndex = name, semIndex[name]
				semIndex[name]++
			}
			loc++
			elems = append(elems, e)
		}
	}
	return elems
}

type shaderSet struct {
	layout     *inputLayout
	vs, gs, fs *shaderModule
}

func (s *shaderSet) Backend() rhi.Backend               { return rhi.BackendD3D11 }
func (s *shaderSet) InputLayout() rhi.VertexInputLayout { return s.layout }
func (s *shaderSet) VertexShader() rhi.Shader           { return s.vs }
func (s *shaderSet) FragmentShader() rhi.Shader         { return s.fs }

func (s *shaderSet) GeometryShader() rhi.Shader {
	if s.gs == nil {
		return nil
	}
	return s.gs
}

func (s *shaderSet) Dispose() {
	s.layout.Dispose()
	s.vs.Dispose()
	if s.gs != nil {
		s.gs.Dispose()
	}
	s.fs.Dispose()
}

type constantBindings struct {
	*rhi.ConstantBindingTable
}

func (b *constantBindings) Backend() rhi.Backend { return rhi.BackendD3D11 }

// buffers returns the native buffers in slot order.
func (b *constantBindings) buffers() []Buffer {
	out := make([]Buffer, b.Len())
	for i := range out {
		out[i] = b.Buffer(i).(*buffer).raw
	}
	return out
}

type textureSlots struct {
	*rhi.TextureSlotTable
}

func (s *textureSlots) Backend() rhi.Backend { return rhi.BackendD3D11 }
func (s *textureSlots) Dispose()             {}
