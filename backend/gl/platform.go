package gl

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/rhi"
)

// maxAttribs is the vertex attribute count every GL 3.3 context supports.
const maxAttribs = 16

var errNoIndexBuffer = errors.New("gl: draw without an index buffer")

// platform implements rhi.Platform on one GL context with a single vertex
// array object. GL origin is bottom-left, so viewports and scissor
// rectangles are flipped against the bound framebuffer.
type platform struct {
	dev      *Device
	fn       Functions
	state    *glState
	surface  Surface
	interval int
	// checkErrors polls GetError after draws when the context has no
	// debug output.
	checkErrors bool

	vao     uint32
	fb      *framebuffer
	scissor image.Rectangle
	mode    uint32
	vbs     [rhi.MaxVertexBuffers]*vertexBuffer
	ib      *indexBuffer
	set     *shaderSet
	attribs [maxAttribs]bool

	depthWrite bool
	constants  *constantBindings
	constGens  []uint64
	slots      *textureSlots

	err error
}

func newPlatform(d *Device, surface Surface) *platform {
	p := &platform{
		dev:        d,
		fn:         d.fn,
		state:      d.state,
		surface:    surface,
		interval:   -1,
		mode:       Triangles,
		depthWrite: true,
	}
	p.vao = p.fn.GenVertexArray()
	p.fn.BindVertexArray(p.vao)
	return p
}

// enableDebug routes KHR_debug messages to the logger, or falls back to
// polling GetError.
func (p *platform) enableDebug() {
	out, ok := p.fn.(DebugOutput)
	if !ok {
		p.checkErrors = true
		rhi.Logger().Warn("gl: no debug output, polling errors after draws")
		return
	}
	p.state.enable(DebugOutputBit, true)
	p.state.enable(DebugOutputSync, true)
	out.DebugMessageCallback(logDebugMessage)
}

func logDebugMessage(source, typ, id, severity uint32, message string) {
	level := slog.LevelDebug
	switch severity {
	case DebugSeverityHigh:
		level = slog.LevelError
	case DebugSeverityMedium:
		level = slog.LevelWarn
	case DebugSeverityLow:
		level = slog.LevelInfo
	}
	rhi.Logger().Log(context.Background(), level, "gl: "+message,
		"source", source, "type", typ, "id", id)
}

func (p *platform) fail(err error) {
	rhi.Logger().Error("gl: command failed", "err", err)
	p.err = errors.Join(p.err, err)
}

// native returns r as this backend's handle type T; ok is false for nil. A
// handle made by another backend is reported at the next SwapBuffers.
func native[T rhi.Resource](p *platform, r rhi.Resource) (T, bool) {
	t, ok := r.(T)
	if !ok && r != nil {
		p.fail(fmt.Errorf("gl: %T: %w", r, rhi.ErrBackendMismatch))
	}
	return t, ok
}

func (p *platform) pollErrors(op string) {
	if !p.checkErrors {
		return
	}
	for code := p.fn.GetError(); code != NoError; code = p.fn.GetError() {
		p.fail(fmt.Errorf("gl: %s: error 0x%x", op, code))
	}
}

func (p *platform) Backend() rhi.Backend { return rhi.BackendOpenGL }

// Clear ignores the scissor test and depth write mask, like a D3D clear.
func (p *platform) Clear(fb rhi.Framebuffer, color rhi.Color, depth float32, stencil uint8) {
	f, ok := fb.(*framebuffer)
	if !ok {
		return
	}
	if err := f.bind(); err != nil {
		p.fail(err)
		return
	}
	scissor := p.state.enabled(ScissorTest)
	p.state.enable(ScissorTest, false)
	if !p.depthWrite {
		p.fn.DepthMask(true)
	}
	p.fn.ClearColor(color.R, color.G, color.B, color.A)
	p.fn.ClearDepth(float64(depth))
	p.fn.ClearStencil(int32(stencil))
	p.fn.Clear(f.clearMask())
	if !p.depthWrite {
		p.fn.DepthMask(false)
	}
	p.state.enable(ScissorTest, scissor)
	if p.fb != nil && p.fb != f {
		if err := p.fb.bind(); err != nil {
			p.fail(err)
		}
	}
}

// SwapBuffers presents the window, then reports errors recorded since the
// last call. Offscreen contexts only report errors.
func (p *platform) SwapBuffers(presentInterval int) error {
	if p.surface != nil {
		if presentInterval != p.interval {
			if err := p.surface.SetSwapInterval(presentInterval); err != nil {
				p.fail(fmt.Errorf("gl: swap interval %d: %w", presentInterval, err))
			}
			p.interval = presentInterval
		}
		if err := p.surface.SwapBuffers(); err != nil {
			p.fail(fmt.Errorf("gl: swap buffers: %w", err))
		}
	}
	p.pollErrors("frame")
	err := p.err
	p.err = nil
	return err
}

// ResizeSwapSurface has nothing to do: the window framebuffer follows the
// window size.
func (p *platform) ResizeSwapSurface(width, height int) error { return nil }

// CreateDefaultFramebuffer returns the window framebuffer. Without a
// surface it is an offscreen RGBA8 target with a depth texture.
func (p *platform) CreateDefaultFramebuffer(width, height int) (rhi.Framebuffer, error) {
	fb := &framebuffer{dev: p.dev, width: width, height: height}
	if p.surface != nil {
		fb.window = true
		return fb, nil
	}
	color := p.dev.newTexture(Texture2D, width, height, rhi.PixelFormatR8G8B8A8UInt,
		pixelFormat(rhi.PixelFormatR8G8B8A8UInt), [][]byte{nil})
	fb.colors[0], fb.depth = color, p.dev.newDepthTexture(width, height)
	fb.owned = []*texture{color, fb.depth}
	return fb, nil
}

func (p *platform) targetHeight(fallback int) int {
	if p.fb != nil {
		return p.fb.height
	}
	return fallback
}

func (p *platform) SetViewport(v rhi.Viewport) {
	y := p.targetHeight(v.Y+v.Height) - (v.Y + v.Height)
	p.fn.Viewport(int32(v.X), int32(y), int32(v.Width), int32(v.Height))
}

func (p *platform) SetScissorRectangle(r image.Rectangle) {
	p.scissor = r
	p.applyScissor()
}

func (p *platform) applyScissor() {
	r := p.scissor
	y := p.targetHeight(r.Max.Y) - r.Max.Y
	p.fn.Scissor(int32(r.Min.X), int32(y), int32(r.Dx()), int32(r.Dy()))
}

func (p *platform) SetPrimitiveTopology(t rhi.PrimitiveTopology) {
	p.mode = drawMode(t)
}

func (p *platform) SetVertexBuffer(slot int, vb rhi.VertexBuffer) {
	p.vbs[slot] = nil
	if vb != nil {
		b, ok := native[*vertexBuffer](p, vb)
		if !ok {
			return
		}
		p.vbs[slot] = b
	}
	p.applyAttribs(slot, 0)
}

// applyAttribs points the attributes of vertex input slot at its buffer.
// Per-instance attributes start at firstInstance.
func (p *platform) applyAttribs(slot, firstInstance int) {
	if p.set == nil || slot >= len(p.set.layout.inputs) {
		return
	}
	in := p.set.layout.inputs[slot]
	locs := p.set.locations[slot]
	vb := p.vbs[slot]
	if vb == nil {
		for _, loc := range locs {
			p.enableAttrib(loc, false)
		}
		return
	}
	stride := vb.stride
	if stride == 0 {
		stride = in.SizeInBytes
	}
	p.state.bindArrayBuffer(vb.name)
	offs := in.Offsets()
	for i, el := range in.Elements {
		loc := locs[i]
		if loc < 0 {
			continue
		}
		div := divisor(el.InputClass, el.InstanceStepRate)
		off := vb.offset + offs[i]
		if div > 0 {
			off += firstInstance / int(div) * stride
		}
		f := vertexFormat(el.Format)
		if f.integer {
			p.fn.VertexAttribIPointer(uint32(loc), f.size, f.typ, int32(stride), off)
		} else {
			p.fn.VertexAttribPointer(uint32(loc), f.size, f.typ, f.normalized, int32(stride), off)
		}
		p.fn.VertexAttribDivisor(uint32(loc), div)
		p.enableAttrib(loc, true)
	}
}

func (p *platform) enableAttrib(loc int32, on bool) {
	if loc < 0 || loc >= maxAttribs || p.attribs[loc] == on {
		return
	}
	if on {
		p.fn.EnableVertexAttribArray(uint32(loc))
	} else {
		p.fn.DisableVertexAttribArray(uint32(loc))
	}
	p.attribs[loc] = on
}

func (p *platform) SetIndexBuffer(ib rhi.IndexBuffer) {
	if ib == nil {
		p.ib = nil
		p.state.bindElementBuffer(0)
		return
	}
	b, ok := native[*indexBuffer](p, ib)
	if !ok {
		return
	}
	p.ib = b
	p.state.bindElementBuffer(p.ib.name)
}

func (p *platform) SetShaderSet(ss rhi.ShaderSet) {
	s, ok := native[*shaderSet](p, ss)
	if !ok {
		return
	}
	p.state.useProgram(s.program)
	p.set = s
	var used [maxAttribs]bool
	for _, locs := range s.locations {
		for _, loc := range locs {
			if loc >= 0 && loc < maxAttribs {
				used[loc] = true
			}
		}
	}
	for loc, on := range p.attribs {
		if on && !used[loc] {
			p.enableAttrib(int32(loc), false)
		}
	}
	for slot := range s.layout.inputs {
		p.applyAttribs(slot, 0)
	}
	if p.constants != nil {
		p.bindConstants()
	}
	if p.slots != nil {
		p.assignUnits()
	}
}

// SetShaderConstantBindings binds constant i at uniform buffer binding i
// and points the program's matching uniform blocks at it.
func (p *platform) SetShaderConstantBindings(b rhi.ShaderConstantBindings) {
	c, ok := native[*constantBindings](p, b)
	if !ok {
		return
	}
	p.constants = c
	p.bindConstants()
}

func (p *platform) bindConstants() {
	p.constGens = p.constGens[:0]
	for i := range p.constants.Len() {
		buf := p.constants.Buffer(i).(*buffer)
		p.constGens = append(p.constGens, buf.Generation())
		p.fn.BindBufferBase(UniformBuffer, uint32(i), buf.name)
		if p.set == nil {
			continue
		}
		for _, name := range p.set.blockNames(i, p.constants.Name(i)) {
			if idx := p.fn.GetUniformBlockIndex(p.set.program, name); idx != InvalidIndex {
				p.fn.UniformBlockBinding(p.set.program, idx, uint32(i))
			}
		}
	}
}

// syncConstants rebinds the constant buffers if any was reallocated.
func (p *platform) syncConstants() {
	if p.constants == nil {
		return
	}
	for i, gen := range p.constGens {
		if p.constants.Buffer(i).Generation() != gen {
			p.bindConstants()
			return
		}
	}
}

// SetShaderTextureBindingSlots points each sampler uniform at the texture
// unit of its stage and slot.
func (p *platform) SetShaderTextureBindingSlots(s rhi.ShaderTextureBindingSlots) {
	slots, ok := native[*textureSlots](p, s)
	if !ok {
		return
	}
	p.slots = slots
	p.assignUnits()
}

func (p *platform) assignUnits() {
	if p.set == nil {
		return
	}
	p.state.useProgram(p.set.program)
	for i := range p.slots.Len() {
		slot := p.slots.Slot(i)
		input := p.slots.Input(i).Name
		for st := rhi.ShaderTypeVertex; st <= rhi.ShaderTypeFragment; st++ {
			m := p.set.stage(st)
			if m == nil || !slot.Stages.Has(st) {
				continue
			}
			name := m.samplerName(slot.DeviceSlots[st], input)
			if name == "" {
				continue
			}
			if loc := p.fn.GetUniformLocation(p.set.program, name); loc >= 0 {
				p.fn.Uniform1i(loc, int32(textureUnit(st, slot.DeviceSlots[st])))
			}
		}
	}
}

func (p *platform) SetTexture(stage rhi.ShaderType, slot int, b rhi.ShaderTextureBinding) {
	unit := textureUnit(stage, slot)
	if b == nil {
		p.state.unbindTexture(unit)
		return
	}
	tb, ok := native[*textureBinding](p, b)
	if !ok {
		return
	}
	t := tb.tex
	p.state.bindTexture(unit, t.target, t.name)
}

func (p *platform) UnbindTexture(stage rhi.ShaderType, slot int) {
	p.state.unbindTexture(textureUnit(stage, slot))
}

func (p *platform) SetFramebuffer(fb rhi.Framebuffer) {
	if fb == nil {
		p.fb = nil
		p.state.bindFramebuffer(0)
		return
	}
	f, ok := native[*framebuffer](p, fb)
	if !ok {
		return
	}
	p.fb = f
	if err := f.bind(); err != nil {
		p.fail(err)
		return
	}
	p.applyScissor()
}

func (p *platform) SetBlendState(s rhi.BlendState) {
	b, ok := native[*blendState](p, s)
	if !ok {
		return
	}
	d := b.desc
	p.state.enable(Blend, d.Enabled)
	p.fn.BlendFuncSeparate(blend(d.SourceColor), blend(d.DestinationColor), blend(d.SourceAlpha), blend(d.DestinationAlpha))
	p.fn.BlendEquationSeparate(blendEquation(d.ColorFunction), blendEquation(d.AlphaFunction))
	c := d.BlendFactor
	p.fn.BlendColor(c.R, c.G, c.B, c.A)
}

func (p *platform) SetDepthStencilState(s rhi.DepthStencilState) {
	ds, ok := native[*depthState](p, s)
	if !ok {
		return
	}
	d := ds.desc
	p.state.enable(DepthTest, d.DepthTestEnabled)
	p.fn.DepthMask(d.DepthWriteEnabled)
	p.fn.DepthFunc(depthFunc(d.Comparison))
	p.depthWrite = d.DepthWriteEnabled
}

func (p *platform) SetRasterizerState(s rhi.RasterizerState) {
	rs, ok := native[*rasterState](p, s)
	if !ok {
		return
	}
	d := rs.desc
	face, cull := cullFace(d.CullMode)
	p.state.enable(CullFaceMode, cull)
	if cull {
		p.fn.CullFace(face)
	}
	p.fn.PolygonMode(FrontAndBack, polygonMode(d.FillMode))
	p.state.enable(DepthClamp, !d.DepthClipEnabled)
	p.state.enable(ScissorTest, d.ScissorTestEnabled)
}

func (p *platform) DrawIndexedPrimitives(count, startIndex, startVertex int) {
	if p.ib == nil {
		p.fail(errNoIndexBuffer)
		return
	}
	p.syncConstants()
	p.fn.DrawElementsBaseVertex(p.mode, int32(count), indexType(p.ib.format),
		startIndex*p.ib.format.SizeInBytes(), int32(startVertex))
	p.pollErrors("draw")
}

// DrawInstancedPrimitives emulates a base instance, which GL 3.3 lacks, by
// offsetting per-instance attributes for the draw.
func (p *platform) DrawInstancedPrimitives(indexCount, instanceCount, startIndex, startVertex, startInstance int) {
	if p.ib == nil {
		p.fail(errNoIndexBuffer)
		return
	}
	p.syncConstants()
	if startInstance != 0 && p.set != nil {
		for slot := range p.set.layout.inputs {
			p.applyAttribs(slot, startInstance)
		}
	}
	p.fn.DrawElementsInstancedBaseVertex(p.mode, int32(indexCount), indexType(p.ib.format),
		startIndex*p.ib.format.SizeInBytes(), int32(instanceCount), int32(startVertex))
	if startInstance != 0 && p.set != nil {
		for slot := range p.set.layout.inputs {
			p.applyAttribs(slot, 0)
		}
	}
	p.pollErrors("draw instanced")
}

// ClearMaterialResourceBindings unbinds every stage texture unit.
func (p *platform) ClearMaterialResourceBindings() {
	for unit := range uint32(scratchUnit) {
		p.state.unbindTexture(unit)
	}
	p.constants, p.constGens, p.slots = nil, p.constGens[:0], nil
}

func (p *platform) TopLeftUV() mgl32.Vec2     { return mgl32.Vec2{0, 1} }
func (p *platform) BottomRightUV() mgl32.Vec2 { return mgl32.Vec2{1, 0} }

func (p *platform) Dispose() {
	if p.vao == 0 {
		return
	}
	p.fn.BindVertexArray(0)
	p.fn.DeleteVertexArray(p.vao)
	p.vao = 0
}
