package rhi

import (
	"errors"
	"fmt"
	"image"
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/gpucontext"
)

// RenderContext is the bound-state mediator between application code and a
// backend Platform. It remembers what is bound at every pipeline stage and
// only calls into the platform when a Set* call changes something.
//
// A RenderContext is not safe for concurrent use. All calls must come from
// the goroutine that owns the native device.
type RenderContext struct {
	platform Platform
	cfg      Config

	defaultFramebuffer Framebuffer
	framebuffer        Framebuffer
	framebufferGen     uint64
	// defaultBound survives a failed Resize so a later one rebinds.
	defaultBound bool

	vertexBuffers [MaxVertexBuffers]VertexBuffer
	vertexGens    [MaxVertexBuffers]uint64
	indexBuffer   IndexBuffer
	indexGen      uint64

	topology      PrimitiveTopology
	topologyValid bool
	viewport      Viewport
	viewportValid bool
	scissor       image.Rectangle
	scissorValid  bool
	clearColor    Color

	material         *Material
	shaderSet        ShaderSet
	constantBindings ShaderConstantBindings
	textureSlots     ShaderTextureBindingSlots
	textures         [NumShaderStages][MaxTextureSlots]ShaderTextureBinding

	blendState        BlendState
	depthStencilState DepthStencilState
	rasterizerState   RasterizerState

	// pendingResize packs width<<32|height from an event source; zero means none.
	pendingResize atomic.Uint64
	deferredErr   error
}

// ContextOption configures NewRenderContext.
type ContextOption func(*contextOptions)

type contextOptions struct {
	cfg    Config
	window gpucontext.WindowProvider
	events gpucontext.EventSource
}

// WithConfig sets the configuration. The default is DefaultConfig().
func WithConfig(cfg Config) ContextOption {
	return func(o *contextOptions) { o.cfg = cfg }
}

// WithWindow takes the initial default framebuffer size from w, scaled to
// pixels, instead of the configuration.
func WithWindow(w gpucontext.WindowProvider) ContextOption {
	return func(o *contextOptions) { o.window = w }
}

// WithEventSource subscribes to resize events from es. Resizes are applied
// at the next ClearBuffer.
func WithEventSource(es gpucontext.EventSource) ContextOption {
	return func(o *contextOptions) { o.events = es }
}

// NewRenderContext creates a render context over p, builds the default
// framebuffer, and binds it.
func NewRenderContext(p Platform, opts ...ContextOption) (*RenderContext, error) {
	o := contextOptions{cfg: DefaultConfig()}
	for _, opt := range opts {
		opt(&o)
	}
	w, h := o.cfg.Width, o.cfg.Height
	if o.window != nil {
		// Size is in logical points; the framebuffer is in pixels.
		if ww, wh := o.window.Size(); ww > 0 && wh > 0 {
			sf := o.window.ScaleFactor()
			if sf <= 0 {
				sf = 1
			}
			w, h = int(float64(ww)*sf), int(float64(wh)*sf)
		}
	}
	if err := checkExtent("default framebuffer", w, h); err != nil {
		return nil, err
	}

	fb, err := p.CreateDefaultFramebuffer(w, h)
	if err != nil {
		return nil, fmt.Errorf("rhi: create default framebuffer: %w", err)
	}
	rc := &RenderContext{
		platform:           p,
		cfg:                o.cfg,
		defaultFramebuffer: fb,
		clearColor:         ColorCornflowerBlue,
	}
	rc.SetFramebuffer(fb)

	if o.events != nil {
		o.events.OnResize(func(w, h int) {
			if w > 0 && h > 0 {
				rc.pendingResize.Store(uint64(uint32(w))<<32 | uint64(uint32(h)))
			}
		})
	}

	Logger().Info("rhi: render context created", "backend", p.Backend(), "width", w, "height", h)
	return rc, nil
}

// Backend reports which backend the platform drives.
func (rc *RenderContext) Backend() Backend { return rc.platform.Backend() }

// Platform returns the backend platform the context delegates to.
func (rc *RenderContext) Platform() Platform { return rc.platform }

// Config returns the configuration the context was created with.
func (rc *RenderContext) Config() Config { return rc.cfg }

// DefaultFramebuffer returns the window-backed framebuffer. It is nil after
// a failed Resize until the next successful one.
func (rc *RenderContext) DefaultFramebuffer() Framebuffer { return rc.defaultFramebuffer }

// CurrentFramebuffer returns the bound render target, or nil.
func (rc *RenderContext) CurrentFramebuffer() Framebuffer { return rc.framebuffer }

// CurrentIndexBuffer returns the bound index buffer, or nil.
func (rc *RenderContext) CurrentIndexBuffer() IndexBuffer { return rc.indexBuffer }

// CurrentMaterial returns the bound material, or nil.
func (rc *RenderContext) CurrentMaterial() *Material { return rc.material }

// CurrentShaderSet returns the shader set of the bound material, or nil.
func (rc *RenderContext) CurrentShaderSet() ShaderSet { return rc.shaderSet }

// CurrentBlendState returns the bound blend state, or nil.
func (rc *RenderContext) CurrentBlendState() BlendState { return rc.blendState }

// ClearColor returns the color ClearBuffer clears to.
func (rc *RenderContext) ClearColor() Color { return rc.clearColor }

// Viewport returns the last viewport set, explicitly or by SetFramebuffer.
func (rc *RenderContext) Viewport() Viewport { return rc.viewport }

// ScissorRectangle returns the last scissor rectangle set.
func (rc *RenderContext) ScissorRectangle() image.Rectangle { return rc.scissor }

// CurrentDepthStencilState returns the bound depth-stencil state, or nil.
func (rc *RenderContext) CurrentDepthStencilState() DepthStencilState {
	return rc.depthStencilState
}

// CurrentRasterizerState returns the bound rasterizer state, or nil.
func (rc *RenderContext) CurrentRasterizerState() RasterizerState {
	return rc.rasterizerState
}

// CurrentVertexBuffer returns the buffer bound at slot, or nil.
func (rc *RenderContext) CurrentVertexBuffer(slot int) VertexBuffer {
	return rc.vertexBuffers[slot]
}

// BoundTexture returns the binding at the native slot of stage, or nil.
func (rc *RenderContext) BoundTexture(stage ShaderType, slot int) ShaderTextureBinding {
	return rc.textures[stage][slot]
}

// TopLeftUV returns the texture coordinate of an image's top-left corner.
func (rc *RenderContext) TopLeftUV() mgl32.Vec2 { return rc.platform.TopLeftUV() }

// BottomRightUV returns the texture coordinate of an image's bottom-right corner.
func (rc *RenderContext) BottomRightUV() mgl32.Vec2 { return rc.platform.BottomRightUV() }

// SetClearColor sets the color ClearBuffer clears to.
func (rc *RenderContext) SetClearColor(c Color) { rc.clearColor = c }

// SetViewport sets the viewport.
func (rc *RenderContext) SetViewport(v Viewport) {
	if rc.viewportValid && rc.viewport == v {
		return
	}
	rc.viewport, rc.viewportValid = v, true
	rc.platform.SetViewport(v)
}

// SetScissorRectangle sets the scissor rectangle.
func (rc *RenderContext) SetScissorRectangle(r image.Rectangle) {
	if rc.scissorValid && rc.scissor == r {
		return
	}
	rc.scissor, rc.scissorValid = r, true
	rc.platform.SetScissorRectangle(r)
}

// SetPrimitiveTopology sets how indices are assembled.
func (rc *RenderContext) SetPrimitiveTopology(t PrimitiveTopology) {
	if rc.topologyValid && rc.topology == t {
		return
	}
	t.GPUTopology()
	rc.topology, rc.topologyValid = t, true
	rc.platform.SetPrimitiveTopology(t)
}

// SetVertexBuffer binds vb at input slot. A buffer that reallocated since it
// was bound is bound again.
func (rc *RenderContext) SetVertexBuffer(slot int, vb VertexBuffer) {
	if slot < 0 || slot >= MaxVertexBuffers {
		panic(fmt.Sprintf("rhi: vertex buffer slot %d out of range [0,%d)", slot, MaxVertexBuffers))
	}
	gen := generationOf(vb)
	if rc.vertexBuffers[slot] == vb && rc.vertexGens[slot] == gen {
		return
	}
	rc.vertexBuffers[slot], rc.vertexGens[slot] = vb, gen
	rc.platform.SetVertexBuffer(slot, vb)
}

// SetIndexBuffer binds ib.
func (rc *RenderContext) SetIndexBuffer(ib IndexBuffer) {
	gen := generationOf(ib)
	if rc.indexBuffer == ib && rc.indexGen == gen {
		return
	}
	rc.indexBuffer, rc.indexGen = ib, gen
	rc.platform.SetIndexBuffer(ib)
}

func generationOf(b Buffer) uint64 {
	if b == nil {
		return 0
	}
	return b.Generation()
}

// SetBlendState binds s.
func (rc *RenderContext) SetBlendState(s BlendState) {
	if rc.blendState == s {
		return
	}
	rc.blendState = s
	rc.platform.SetBlendState(s)
}

// SetDepthStencilState binds s.
func (rc *RenderContext) SetDepthStencilState(s DepthStencilState) {
	if rc.depthStencilState == s {
		return
	}
	rc.depthStencilState = s
	rc.platform.SetDepthStencilState(s)
}

// SetRasterizerState binds s.
func (rc *RenderContext) SetRasterizerState(s RasterizerState) {
	if rc.rasterizerState == s {
		return
	}
	rc.rasterizerState = s
	rc.platform.SetRasterizerState(s)
}

// SetMaterial binds m's shader set, constant bindings, texture slots, and
// default textures, then uploads its global constants. Binding the material
// that is already bound only uploads globals whose data changed.
func (rc *RenderContext) SetMaterial(m *Material) error {
	if m == nil {
		return errors.New("rhi: nil material")
	}
	if rc.material != m {
		rc.platform.ClearMaterialResourceBindings()
		rc.textures = [NumShaderStages][MaxTextureSlots]ShaderTextureBinding{}
		rc.material = m

		if rc.shaderSet != m.ShaderSet() {
			rc.shaderSet = m.ShaderSet()
			rc.platform.SetShaderSet(rc.shaderSet)
		}
		rc.constantBindings = m.ConstantBindings()
		rc.platform.SetShaderConstantBindings(rc.constantBindings)
		rc.textureSlots = m.TextureBindingSlots()
		rc.platform.SetShaderTextureBindingSlots(rc.textureSlots)

		for i := 0; i < rc.textureSlots.Len(); i++ {
			if b := m.DefaultTextureBinding(i); b != nil {
				rc.SetTexture(i, b)
			}
		}
	}
	return m.ConstantBindings().UpdateGlobalInputs()
}

// SetTexture binds b at logical texture slot of the current material, on
// every stage the slot is visible to.
func (rc *RenderContext) SetTexture(slot int, b ShaderTextureBinding) {
	if rc.textureSlots == nil || slot < 0 || slot >= rc.textureSlots.Len() {
		panic(fmt.Sprintf("rhi: texture slot %d out of range for the bound material", slot))
	}
	ts := rc.textureSlots.Slot(slot)
	for st := ShaderTypeVertex; st <= ShaderTypeFragment; st++ {
		if !ts.Stages.Has(st) {
			continue
		}
		n := ts.DeviceSlots[st]
		if rc.textures[st][n] == b {
			continue
		}
		rc.textures[st][n] = b
		rc.platform.SetTexture(st, n, b)
	}
}

// SetFramebuffer binds fb as the render target. Any texture of fb that is
// bound for sampling is unbound first, vertex stage before geometry before
// fragment and slots in ascending order. The viewport is reset to cover fb.
// Binding the bound framebuffer again only reaches the platform if its
// attachments changed since.
func (rc *RenderContext) SetFramebuffer(fb Framebuffer) {
	if fb != nil {
		rc.unbindAttachments(fb)
	}
	gen := framebufferGeneration(fb)
	rc.defaultBound = fb != nil && fb == rc.defaultFramebuffer
	if rc.framebuffer == fb && rc.framebufferGen == gen {
		return
	}
	rc.framebuffer, rc.framebufferGen = fb, gen
	rc.platform.SetFramebuffer(fb)
	if fb != nil {
		rc.SetViewport(Viewport{Width: fb.Width(), Height: fb.Height()})
	}
}

func framebufferGeneration(fb Framebuffer) uint64 {
	if fb == nil {
		return 0
	}
	return fb.Generation()
}

func (rc *RenderContext) unbindAttachments(fb Framebuffer) {
	var targets []DeviceTexture
	for i := 0; i < MaxColorAttachments; i++ {
		if t := fb.ColorTexture(i); t != nil {
			targets = append(targets, t)
		}
	}
	if t := fb.DepthTexture(); t != nil {
		targets = append(targets, t)
	}
	if len(targets) == 0 {
		return
	}
	for st := ShaderTypeVertex; st <= ShaderTypeFragment; st++ {
		for slot, b := range rc.textures[st] {
			if b == nil {
				continue
			}
			bound := b.BoundTexture()
			for _, t := range targets {
				if bound == t {
					rc.textures[st][slot] = nil
					rc.platform.UnbindTexture(st, slot)
					break
				}
			}
		}
	}
}

// SetDefaultFramebuffer binds the window-backed framebuffer.
func (rc *RenderContext) SetDefaultFramebuffer() {
	rc.SetFramebuffer(rc.defaultFramebuffer)
}

// ClearBuffer clears the current framebuffer's color attachments to the
// clear color and its depth attachment to 1.0 with stencil 0. A resize
// reported by the event source is applied first.
func (rc *RenderContext) ClearBuffer() {
	rc.applyPendingResize()
	if rc.framebuffer == nil {
		return
	}
	rc.platform.Clear(rc.framebuffer, rc.clearColor, 1.0, 0)
}

func (rc *RenderContext) applyPendingResize() {
	v := rc.pendingResize.Swap(0)
	if v == 0 {
		return
	}
	w, h := int(uint32(v>>32)), int(uint32(v))
	if err := rc.Resize(w, h); err != nil {
		rc.deferredErr = errors.Join(rc.deferredErr, err)
	}
}

// Resize rebuilds the default framebuffer at width x height. If it was bound,
// the new one is bound in its place, also when an earlier Resize failed
// after releasing it.
func (rc *RenderContext) Resize(width, height int) error {
	if err := checkExtent("default framebuffer", width, height); err != nil {
		return err
	}
	if old := rc.defaultFramebuffer; old != nil {
		if rc.framebuffer == old {
			rc.framebuffer, rc.framebufferGen = nil, 0
		}
		old.Dispose()
		rc.defaultFramebuffer = nil
	}
	if err := rc.platform.ResizeSwapSurface(width, height); err != nil {
		rc.releaseDefault()
		return fmt.Errorf("rhi: resize swap surface: %w", err)
	}
	fb, err := rc.platform.CreateDefaultFramebuffer(width, height)
	if err != nil {
		rc.releaseDefault()
		return fmt.Errorf("rhi: create default framebuffer: %w", err)
	}
	rc.defaultFramebuffer = fb
	rebind := rc.defaultBound
	if rebind {
		rc.SetFramebuffer(fb)
	}
	Logger().Info("rhi: default framebuffer resized", "width", width, "height", height, "rebound", rebind)
	return nil
}

// releaseDefault unbinds the released default framebuffer at the platform
// after a failed Resize.
func (rc *RenderContext) releaseDefault() {
	if rc.defaultBound && rc.framebuffer == nil {
		rc.platform.SetFramebuffer(nil)
	}
}

// DrawIndexedPrimitives draws count indices starting at startIndex.
func (rc *RenderContext) DrawIndexedPrimitives(count, startIndex int) {
	rc.DrawIndexedPrimitivesAt(count, startIndex, 0)
}

// DrawIndexedPrimitivesAt draws count indices starting at startIndex, adding
// startVertex to every index.
func (rc *RenderContext) DrawIndexedPrimitivesAt(count, startIndex, startVertex int) {
	rc.platform.DrawIndexedPrimitives(count, startIndex, startVertex)
}

// DrawInstancedPrimitives draws instanceCount instances of indexCount indices.
func (rc *RenderContext) DrawInstancedPrimitives(indexCount, instanceCount, startIndex, startVertex, startInstance int) {
	rc.platform.DrawInstancedPrimitives(indexCount, instanceCount, startIndex, startVertex, startInstance)
}

// SwapBuffers presents the frame with the configured present interval. It
// also reports any error from a resize applied since the last call.
func (rc *RenderContext) SwapBuffers() error {
	err := rc.deferredErr
	rc.deferredErr = nil
	if serr := rc.platform.SwapBuffers(rc.cfg.PresentInterval); serr != nil {
		err = errors.Join(err, fmt.Errorf("rhi: present: %w", serr))
	}
	return err
}

// Dispose releases the default framebuffer and the platform. Resources the
// caller created are not touched.
func (rc *RenderContext) Dispose() {
	if rc.defaultFramebuffer != nil {
		rc.defaultFramebuffer.Dispose()
		rc.defaultFramebuffer = nil
	}
	rc.framebuffer, rc.defaultBound = nil, false
	rc.platform.Dispose()
}
