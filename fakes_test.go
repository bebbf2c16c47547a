package rhi

import (
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/rhi/shader"
)

// Call-recording fakes for Platform and DeviceFactory.

const fakeBackend = BackendD3D11

type fakeResource struct{ disposed bool }

func (r *fakeResource) Backend() Backend { return fakeBackend }
func (r *fakeResource) Dispose()         { r.disposed = true }

type fakeBuffer struct {
	fakeResource
	data   []byte
	gen    uint64
	writes int
}

func newFakeBuffer(size int) fakeBuffer { return fakeBuffer{data: make([]byte, size), gen: 1} }

func (b *fakeBuffer) SizeInBytes() int   { return len(b.data) }
func (b *fakeBuffer) Generation() uint64 { return b.gen }

func (b *fakeBuffer) SetData(data []byte, off int) error {
	if off < 0 {
		return ErrOutOfRange
	}
	if end := off + len(data); end > len(b.data) {
		grown := make([]byte, end)
		copy(grown, b.data)
		b.data = grown
		b.gen++
	}
	copy(b.data[off:], data)
	b.writes++
	return nil
}

func (b *fakeBuffer) GetData(dst []byte, off int) error {
	if off < 0 || off+len(dst) > len(b.data) {
		return ErrOutOfRange
	}
	copy(dst, b.data[off:])
	return nil
}

type fakeVertexBuffer struct {
	fakeBuffer
	stride, offset int
}

func (b *fakeVertexBuffer) SetVertexData(data []byte, desc VertexDescriptor, dst int) error {
	b.stride, b.offset = desc.VertexSizeInBytes, desc.Offset
	return b.SetData(data, dst*desc.VertexSizeInBytes)
}
func (b *fakeVertexBuffer) Stride() int { return b.stride }
func (b *fakeVertexBuffer) Offset() int { return b.offset }

type fakeIndexBuffer struct {
	fakeBuffer
	format IndexFormat
}

func (b *fakeIndexBuffer) Format() IndexFormat { return b.format }

func (b *fakeIndexBuffer) SetIndexData(data []byte, format IndexFormat, off int) error {
	b.format = format
	return b.SetData(data, off)
}

type fakeTexture struct {
	fakeResource
	w, h   int
	format PixelFormat
	data   []byte
}

func (t *fakeTexture) Width() int          { return t.w }
func (t *fakeTexture) Height() int         { return t.h }
func (t *fakeTexture) Format() PixelFormat { return t.format }

func (t *fakeTexture) SetTextureData(x, y, w, h int, data []byte) error {
	copy(t.data, data)
	return nil
}

func (t *fakeTexture) GetTextureData(dst []byte) error {
	copy(dst, t.data)
	return nil
}

type fakeBinding struct {
	fakeResource
	tex DeviceTexture
}

func (b *fakeBinding) BoundTexture() DeviceTexture { return b.tex }

type fakeFramebuffer struct {
	fakeResource
	w, h   int
	colors [MaxColorAttachments]Texture2D
	depth  Texture2D
	gen    uint64
}

func (f *fakeFramebuffer) Width() int         { return f.w }
func (f *fakeFramebuffer) Height() int        { return f.h }
func (f *fakeFramebuffer) Generation() uint64 { return f.gen }

func (f *fakeFramebuffer) ColorTexture(i int) DeviceTexture {
	if f.colors[i] == nil {
		return nil
	}
	return f.colors[i]
}

func (f *fakeFramebuffer) DepthTexture() DeviceTexture {
	if f.depth == nil {
		return nil
	}
	return f.depth
}

func (f *fakeFramebuffer) AttachColorTexture(i int, tex Texture2D) error {
	if i < 0 || i >= MaxColorAttachments {
		return ErrOutOfRange
	}
	f.colors[i] = tex
	f.gen++
	return nil
}

func (f *fakeFramebuffer) SetDepthTexture(tex Texture2D) error {
	f.depth = tex
	f.gen++
	return nil
}

type fakeBlendState struct {
	fakeResource
	desc BlendStateDescription
}

func (s *fakeBlendState) Description() BlendStateDescription { return s.desc }

type fakeDepthState struct {
	fakeResource
	desc DepthStencilDescription
}

func (s *fakeDepthState) Description() DepthStencilDescription { return s.desc }

type fakeRasterizerState struct {
	fakeResource
	desc RasterizerDescription
}

func (s *fakeRasterizerState) Description() RasterizerDescription { return s.desc }

type fakeShader struct {
	fakeResource
	typ ShaderType
	src shader.Source
}

func (s *fakeShader) Type() ShaderType { return s.typ }
func (s *fakeShader) Name() string     { return s.src.Name }

type fakeLayout struct {
	fakeResource
	inputs []MaterialVertexInput
}

func (l *fakeLayout) Inputs() []MaterialVertexInput { return l.inputs }

type fakeShaderSet struct {
	fakeResource
	layout     VertexInputLayout
	vs, gs, fs Shader
}

func (s *fakeShaderSet) InputLayout() VertexInputLayout { return s.layout }
func (s *fakeShaderSet) VertexShader() Shader           { return s.vs }
func (s *fakeShaderSet) GeometryShader() Shader         { return s.gs }
func (s *fakeShaderSet) FragmentShader() Shader         { return s.fs }

func (s *fakeShaderSet) Dispose() {
	s.disposed = true
	s.layout.Dispose()
	s.vs.Dispose()
	if s.gs != nil {
		s.gs.Dispose()
	}
	s.fs.Dispose()
}

type fakeConstantBindings struct {
	*ConstantBindingTable
	disposed bool
}

func (b *fakeConstantBindings) Backend() Backend { return fakeBackend }

func (b *fakeConstantBindings) Dispose() {
	b.disposed = true
	b.ConstantBindingTable.Dispose()
}

type fakeTextureSlots struct {
	*TextureSlotTable
	fakeResource
}

// fakeDevice is a DeviceFactory backed by in-memory resources.
type fakeDevice struct {
	created   []Resource
	langs     []shader.Language
	failStage string
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{langs: []shader.Language{shader.WGSL}}
}

var errFake = errors.New("fake failure")

func (d *fakeDevice) track(r Resource) { d.created = append(d.created, r) }

func (d *fakeDevice) fail(stage string) error {
	if d.failStage == stage {
		return errFake
	}
	return nil
}

func (d *fakeDevice) Backend() Backend                   { return fakeBackend }
func (d *fakeDevice) ShaderLanguages() []shader.Language { return d.langs }

func (d *fakeDevice) CreateVertexBuffer(size int, dynamic bool) (VertexBuffer, error) {
	vb := &fakeVertexBuffer{fakeBuffer: newFakeBuffer(size)}
	d.track(vb)
	return vb, nil
}

func (d *fakeDevice) CreateIndexBuffer(size int, dynamic bool, format IndexFormat) (IndexBuffer, error) {
	ib := &fakeIndexBuffer{fakeBuffer: newFakeBuffer(size), format: format}
	d.track(ib)
	return ib, nil
}

func (d *fakeDevice) CreateConstantBuffer(size int) (ConstantBuffer, error) {
	if err := d.fail("constant"); err != nil {
		return nil, err
	}
	cb := &fakeBuffer{data: make([]byte, size), gen: 1}
	d.track(cb)
	return cb, nil
}

func (d *fakeDevice) CreateShader(typ ShaderType, src shader.Source) (Shader, error) {
	if err := d.fail("shader:" + typ.String()); err != nil {
		return nil, err
	}
	s := &fakeShader{typ: typ, src: src}
	d.track(s)
	return s, nil
}

func (d *fakeDevice) CreateInputLayout(vs Shader, inputs []MaterialVertexInput) (VertexInputLayout, error) {
	l := &fakeLayout{inputs: inputs}
	d.track(l)
	return l, nil
}

func (d *fakeDevice) CreateShaderSet(layout VertexInputLayout, vs, gs, fs Shader) (ShaderSet, error) {
	if err := d.fail("shaderset"); err != nil {
		return nil, err
	}
	s := &fakeShaderSet{layout: layout, vs: vs, gs: gs, fs: fs}
	d.track(s)
	return s, nil
}

func (d *fakeDevice) CreateShaderConstantBindings(ss ShaderSet, globals []MaterialGlobalInputElement,
	perObject []MaterialPerObjectInputElement) (ShaderConstantBindings, error) {
	if err := d.fail("constants"); err != nil {
		return nil, err
	}
	t, err := NewConstantBindingTable(d, globals, perObject)
	if err != nil {
		return nil, err
	}
	b := &fakeConstantBindings{ConstantBindingTable: t}
	d.track(b)
	return b, nil
}

func (d *fakeDevice) CreateShaderTextureBindingSlots(ss ShaderSet, inputs []MaterialTextureInputElement) (ShaderTextureBindingSlots, error) {
	if err := d.fail("slots"); err != nil {
		return nil, err
	}
	t, err := AssignTextureSlots(inputs)
	if err != nil {
		return nil, err
	}
	s := &fakeTextureSlots{TextureSlotTable: t}
	d.track(s)
	return s, nil
}

func (d *fakeDevice) CreateFramebuffer(w, h int) (Framebuffer, error) {
	fb := &fakeFramebuffer{w: w, h: h}
	d.track(fb)
	return fb, nil
}

func (d *fakeDevice) CreateTexture2D(w, h int, format PixelFormat, data []byte) (Texture2D, error) {
	if err := d.fail("texture"); err != nil {
		return nil, err
	}
	t := &fakeTexture{w: w, h: h, format: format, data: append([]byte(nil), data...)}
	d.track(t)
	return t, nil
}

func (d *fakeDevice) CreateDepthTexture(w, h int) (Texture2D, error) {
	t := &fakeTexture{w: w, h: h, format: PixelFormatR32G32B32A32Float}
	d.track(t)
	return t, nil
}

func (d *fakeDevice) CreateCubemapTexture(w, h int, format PixelFormat, faces [6][]byte) (CubemapTexture, error) {
	var all []byte
	for _, f := range faces {
		all = append(all, f...)
	}
	t := &fakeTexture{w: w, h: h, format: format, data: all}
	d.track(t)
	return t, nil
}

func (d *fakeDevice) CreateShaderTextureBinding(tex DeviceTexture) (ShaderTextureBinding, error) {
	b := &fakeBinding{tex: tex}
	d.track(b)
	return b, nil
}

func (d *fakeDevice) CreateBlendState(desc BlendStateDescription) (BlendState, error) {
	return &fakeBlendState{desc: desc}, nil
}

func (d *fakeDevice) CreateDepthStencilState(desc DepthStencilDescription) (DepthStencilState, error) {
	return &fakeDepthState{desc: desc}, nil
}

func (d *fakeDevice) CreateRasterizerState(desc RasterizerDescription) (RasterizerState, error) {
	return &fakeRasterizerState{desc: desc}, nil
}

// fakePlatform records every call as a short string.
type fakePlatform struct {
	calls      []string
	framebufs  []*fakeFramebuffer
	bound      Framebuffer
	resizeErr  error
	presentErr error
}

func (p *fakePlatform) record(format string, args ...any) {
	p.calls = append(p.calls, fmt.Sprintf(format, args...))
}

// count returns how many recorded calls start with prefix.
func (p *fakePlatform) count(prefix string) int {
	n := 0
	for _, c := range p.calls {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

func (p *fakePlatform) reset() { p.calls = nil }

func (p *fakePlatform) Backend() Backend { return fakeBackend }

func (p *fakePlatform) Clear(fb Framebuffer, c Color, depth float32, stencil uint8) {
	p.record("Clear %v %g %d", c, depth, stencil)
}

func (p *fakePlatform) SwapBuffers(interval int) error {
	p.record("SwapBuffers %d", interval)
	return p.presentErr
}

func (p *fakePlatform) ResizeSwapSurface(w, h int) error {
	p.record("ResizeSwapSurface %d %d", w, h)
	return p.resizeErr
}

func (p *fakePlatform) CreateDefaultFramebuffer(w, h int) (Framebuffer, error) {
	p.record("CreateDefaultFramebuffer %d %d", w, h)
	fb := &fakeFramebuffer{w: w, h: h, depth: &fakeTexture{w: w, h: h}}
	fb.colors[0] = &fakeTexture{w: w, h: h, format: PixelFormatR8G8B8A8UInt}
	p.framebufs = append(p.framebufs, fb)
	return fb, nil
}

func (p *fakePlatform) SetViewport(v Viewport) {
	p.record("SetViewport %d %d %d %d", v.X, v.Y, v.Width, v.Height)
}

func (p *fakePlatform) SetScissorRectangle(r image.Rectangle) {
	p.record("SetScissorRectangle %v", r)
}

func (p *fakePlatform) SetPrimitiveTopology(t PrimitiveTopology) {
	p.record("SetPrimitiveTopology %d", t)
}

func (p *fakePlatform) SetVertexBuffer(slot int, vb VertexBuffer) { p.record("SetVertexBuffer %d", slot) }
func (p *fakePlatform) SetIndexBuffer(ib IndexBuffer)            { p.record("SetIndexBuffer") }
func (p *fakePlatform) SetShaderSet(ss ShaderSet)                { p.record("SetShaderSet") }

func (p *fakePlatform) SetShaderConstantBindings(b ShaderConstantBindings) {
	p.record("SetShaderConstantBindings")
}

func (p *fakePlatform) SetShaderTextureBindingSlots(s ShaderTextureBindingSlots) {
	p.record("SetShaderTextureBindingSlots")
}

func (p *fakePlatform) SetTexture(stage ShaderType, slot int, b ShaderTextureBinding) {
	p.record("SetTexture %s %d", stage, slot)
}

func (p *fakePlatform) UnbindTexture(stage ShaderType, slot int) {
	p.record("UnbindTexture %s %d", stage, slot)
}

func (p *fakePlatform) SetFramebuffer(fb Framebuffer) {
	p.bound = fb
	p.record("SetFramebuffer")
}

func (p *fakePlatform) SetBlendState(s BlendState)               { p.record("SetBlendState") }
func (p *fakePlatform) SetDepthStencilState(s DepthStencilState) { p.record("SetDepthStencilState") }
func (p *fakePlatform) SetRasterizerState(s RasterizerState)     { p.record("SetRasterizerState") }

func (p *fakePlatform) DrawIndexedPrimitives(count, startIndex, startVertex int) {
	p.record("DrawIndexedPrimitives %d %d %d", count, startIndex, startVertex)
}

func (p *fakePlatform) DrawInstancedPrimitives(indexCount, instanceCount, startIndex, startVertex, startInstance int) {
	p.record("DrawInstancedPrimitives %d %d %d %d %d", indexCount, instanceCount, startIndex, startVertex, startInstance)
}

func (p *fakePlatform) ClearMaterialResourceBindings() { p.record("ClearMaterialResourceBindings") }

func (p *fakePlatform) TopLeftUV() mgl32.Vec2     { return mgl32.Vec2{0, 0} }
func (p *fakePlatform) BottomRightUV() mgl32.Vec2 { return mgl32.Vec2{1, 1} }
func (p *fakePlatform) Dispose()                  { p.record("Dispose") }
