package wgpu

import (
	"errors"
	"fmt"
	"image"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/rhi"
)

// platform records one command encoder per frame. Binding a framebuffer ends
// the open render pass; the next clear or draw begins a new one. Bound state
// is collected here and applied to the pass lazily before each draw, since a
// pass change invalidates everything set on the previous pass.
//
// Errors from draw-time work (pipeline creation, bind groups) are collected
// and returned by the next SwapBuffers.
type platform struct {
	dev *Device

	surface       hal.Surface
	surfaceFormat gputypes.TextureFormat
	interval      int
	configured    bool
	acquired      *hal.AcquiredSurfaceTexture
	acquiredView  hal.TextureView

	encoder hal.CommandEncoder
	pass    hal.RenderPassEncoder
	// refs holds resources referenced by commands not yet submitted.
	refs map[any]struct{}
	// garbage is destroyed after the next submit.
	garbage []hal.BindGroup

	fb            *framebuffer
	defaultFB     *framebuffer
	vertexBuffers [rhi.MaxVertexBuffers]*vertexBuffer
	indexBuffer   *indexBuffer
	topology      rhi.PrimitiveTopology
	viewport      rhi.Viewport
	scissor       image.Rectangle
	shaders       *shaderSet
	constants     *constantBindings
	slots         *textureSlots
	textures      [maxLogicalTextures]*textureBinding
	blend         *blendState
	depth         *depthState
	raster        *rasterState

	// Pass-local state: what has been set on the current pass.
	passPipeline *pipelineEntry
	groupDirty   bool
	passVertex   [rhi.MaxVertexBuffers]hal.Buffer
	passIndex    hal.Buffer
	passViewport bool
	passScissor  bool
	passBlendSet bool

	err error
}

func newPlatform(d *Device, surface hal.Surface, format gputypes.TextureFormat, interval int) *platform {
	if format == gputypes.TextureFormatUndefined {
		format = gputypes.TextureFormatBGRA8Unorm
	}
	p := &platform{
		dev:           d,
		surface:       surface,
		surfaceFormat: format,
		interval:      interval,
		refs:          make(map[any]struct{}),
	}
	d.frame = p
	return p
}

func (p *platform) Backend() rhi.Backend { return rhi.BackendWebGPU }

func (p *platform) fail(err error) {
	p.err = errors.Join(p.err, err)
}

// native returns r as this backend's handle type T, or the zero T for nil.
// A handle made by another backend is reported at the next SwapBuffers.
func native[T rhi.Resource](p *platform, r rhi.Resource) T {
	t, ok := r.(T)
	if !ok && r != nil {
		p.fail(fmt.Errorf("wgpu: %T: %w", r, rhi.ErrBackendMismatch))
	}
	return t
}

func (p *platform) references(res any) bool {
	_, ok := p.refs[res]
	return ok
}

func (p *platform) ref(res any) { p.refs[res] = struct{}{} }

// endPass closes the open render pass, if any.
func (p *platform) endPass() {
	if p.pass == nil {
		return
	}
	p.pass.End()
	p.pass = nil
}

// flush submits everything recorded so far. Render passes begun afterwards
// load the attachment contents.
func (p *platform) flush() {
	p.endPass()
	if p.encoder == nil {
		return
	}
	cmd, err := p.encoder.EndEncoding()
	p.encoder = nil
	if err != nil {
		p.fail(fmt.Errorf("wgpu: end encoding: %w", err))
		return
	}
	if _, err := p.dev.queue.Submit([]hal.CommandBuffer{cmd}); err != nil {
		p.fail(fmt.Errorf("wgpu: submit: %w", err))
	}
	p.dev.device.FreeCommandBuffer(cmd)
	for _, g := range p.garbage {
		p.dev.device.DestroyBindGroup(g)
	}
	p.garbage = p.garbage[:0]
	clear(p.refs)
	p.groupDirty = true
}

func (p *platform) beginEncoder() error {
	if p.encoder != nil {
		return nil
	}
	enc, err := p.dev.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "rhi_frame"})
	if err != nil {
		return fmt.Errorf("wgpu: create command encoder: %w", err)
	}
	if err := enc.BeginEncoding("rhi_frame"); err != nil {
		return fmt.Errorf("wgpu: begin encoding: %w", err)
	}
	p.encoder = enc
	return nil
}

// colorView returns the view rendered to for attachment t.
func (p *platform) colorView(t *texture) (hal.TextureView, error) {
	if !t.swap {
		return t.view, nil
	}
	if p.acquiredView != nil {
		return p.acquiredView, nil
	}
	if err := p.configureSurface(); err != nil {
		return nil, err
	}
	st, err := p.surface.AcquireTexture(nil)
	if err != nil {
		return nil, fmt.Errorf("wgpu: acquire surface texture: %w", err)
	}
	view, err := p.dev.device.CreateTextureView(st.Texture, &hal.TextureViewDescriptor{
		Label:           "rhi_surface",
		Format:          p.surfaceFormat,
		Dimension:       gputypes.TextureViewDimension2D,
		Aspect:          gputypes.TextureAspectAll,
		MipLevelCount:   1,
		ArrayLayerCount: 1,
	})
	if err != nil {
		p.surface.DiscardTexture(st.Texture)
		return nil, fmt.Errorf("wgpu: create surface view: %w", err)
	}
	p.acquired, p.acquiredView = st, view
	return view, nil
}

func (p *platform) configureSurface() error {
	if p.configured {
		return nil
	}
	mode := gputypes.PresentModeFifo
	if p.interval == 0 {
		mode = gputypes.PresentModeImmediate
	}
	err := p.surface.Configure(p.dev.device, &hal.SurfaceConfiguration{
		Width:       uint32(p.defaultFB.width),
		Height:      uint32(p.defaultFB.height),
		Format:      p.surfaceFormat,
		Usage:       gputypes.TextureUsageRenderAttachment,
		PresentMode: mode,
		AlphaMode:   gputypes.CompositeAlphaModeOpaque,
	})
	if err != nil {
		return fmt.Errorf("wgpu: configure surface: %w", err)
	}
	p.configured = true
	return nil
}

// beginPass opens a render pass on the bound framebuffer. clear, when set,
// clears every attachment; otherwise contents are loaded.
func (p *platform) beginPass(clear *clearValues) error {
	p.endPass()
	fb := p.fb
	if fb == nil {
		return errors.New("wgpu: no framebuffer bound")
	}
	if err := p.beginEncoder(); err != nil {
		return err
	}

	desc := &hal.RenderPassDescriptor{Label: "rhi_pass"}
	for _, t := range fb.colors {
		if t == nil {
			continue
		}
		view, err := p.colorView(t)
		if err != nil {
			return err
		}
		att := hal.RenderPassColorAttachment{
			View:    view,
			LoadOp:  gputypes.LoadOpLoad,
			StoreOp: gputypes.StoreOpStore,
		}
		if clear != nil {
			att.LoadOp = gputypes.LoadOpClear
			att.ClearValue = clear.color.GPUColor()
		}
		desc.ColorAttachments = append(desc.ColorAttachments, att)
		p.ref(t)
	}
	if fb.depth != nil {
		att := &hal.RenderPassDepthStencilAttachment{
			View:           fb.depth.view,
			DepthLoadOp:    gputypes.LoadOpLoad,
			DepthStoreOp:   gputypes.StoreOpStore,
			StencilLoadOp:  gputypes.LoadOpLoad,
			StencilStoreOp: gputypes.StoreOpStore,
		}
		if clear != nil {
			att.DepthLoadOp, att.StencilLoadOp = gputypes.LoadOpClear, gputypes.LoadOpClear
			att.DepthClearValue = clear.depth
			att.StencilClearValue = uint32(clear.stencil)
		}
		desc.DepthStencilAttachment = att
		p.ref(fb.depth)
	}

	p.pass = p.encoder.BeginRenderPass(desc)
	p.passPipeline = nil
	p.groupDirty = true
	p.passVertex = [rhi.MaxVertexBuffers]hal.Buffer{}
	p.passIndex = nil
	p.passViewport, p.passScissor, p.passBlendSet = false, false, false
	return nil
}

type clearValues struct {
	color   rhi.Color
	depth   float32
	stencil uint8
}

func (p *platform) Clear(fb rhi.Framebuffer, color rhi.Color, depth float32, stencil uint8) {
	f, ok := fb.(*framebuffer)
	if !ok {
		p.fail(fmt.Errorf("wgpu: clear %T: %w", fb, rhi.ErrBackendMismatch))
		return
	}
	p.fb = f
	if err := p.beginPass(&clearValues{color: color, depth: depth, stencil: stencil}); err != nil {
		p.fail(err)
	}
}

func (p *platform) SwapBuffers(presentInterval int) error {
	if presentInterval != p.interval {
		p.interval = presentInterval
		p.configured = false
	}
	p.flush()
	if p.acquired != nil {
		if err := p.dev.queue.Present(p.surface, p.acquired.Texture, nil); err != nil {
			p.fail(fmt.Errorf("wgpu: present: %w", err))
		}
		p.dev.device.DestroyTextureView(p.acquiredView)
		p.acquired, p.acquiredView = nil, nil
	}
	err := p.err
	p.err = nil
	return err
}

func (p *platform) ResizeSwapSurface(width, height int) error {
	p.flush()
	if p.acquired != nil {
		p.dev.device.DestroyTextureView(p.acquiredView)
		p.surface.DiscardTexture(p.acquired.Texture)
		p.acquired, p.acquiredView = nil, nil
	}
	// The surface is reconfigured at the next acquire, with the new default
	// framebuffer's size.
	p.configured = false
	return nil
}

func (p *platform) CreateDefaultFramebuffer(width, height int) (rhi.Framebuffer, error) {
	fb := &framebuffer{dev: p.dev, width: width, height: height}
	if p.surface != nil {
		fb.colors[0] = &texture{
			dev:       p.dev,
			width:     width,
			height:    height,
			format:    rhi.PixelFormatR8G8B8A8UInt,
			gpuFormat: p.surfaceFormat,
			swap:      true,
		}
	} else {
		color, err := p.dev.newTexture("rhi_backbuffer", width, height, rhi.PixelFormatR8G8B8A8UInt,
			p.surfaceFormat, sampledUsage, false)
		if err != nil {
			return nil, err
		}
		fb.colors[0] = color
		fb.owned = append(fb.owned, color)
	}
	depth, err := p.dev.CreateDepthTexture(width, height)
	if err != nil {
		fb.Dispose()
		return nil, err
	}
	fb.depth = depth.(*texture)
	fb.owned = append(fb.owned, fb.depth)
	p.defaultFB = fb
	return fb, nil
}

func (p *platform) SetViewport(v rhi.Viewport) {
	p.viewport = v
	p.passViewport = false
}

func (p *platform) SetScissorRectangle(r image.Rectangle) {
	p.scissor = r
	p.passScissor = false
}

func (p *platform) SetPrimitiveTopology(t rhi.PrimitiveTopology) {
	t.GPUTopology()
	p.topology = t
}

func (p *platform) SetVertexBuffer(slot int, vb rhi.VertexBuffer) {
	p.vertexBuffers[slot] = native[*vertexBuffer](p, vb)
	p.passVertex[slot] = nil
}

func (p *platform) SetIndexBuffer(ib rhi.IndexBuffer) {
	p.indexBuffer = native[*indexBuffer](p, ib)
	p.passIndex = nil
}

func (p *platform) SetShaderSet(ss rhi.ShaderSet) {
	p.shaders = native[*shaderSet](p, ss)
}

func (p *platform) SetShaderConstantBindings(b rhi.ShaderConstantBindings) {
	p.constants = native[*constantBindings](p, b)
	p.groupDirty = true
}

func (p *platform) SetShaderTextureBindingSlots(s rhi.ShaderTextureBindingSlots) {
	p.slots = native[*textureSlots](p, s)
	p.groupDirty = true
}

func (p *platform) SetTexture(stage rhi.ShaderType, slot int, b rhi.ShaderTextureBinding) {
	if p.slots == nil {
		return
	}
	i := p.slots.logical(stage, slot)
	if i < 0 {
		return
	}
	p.textures[i] = native[*textureBinding](p, b)
	p.groupDirty = true
}

func (p *platform) UnbindTexture(stage rhi.ShaderType, slot int) {
	p.SetTexture(stage, slot, nil)
}

func (p *platform) SetFramebuffer(fb rhi.Framebuffer) {
	p.endPass()
	p.fb = native[*framebuffer](p, fb)
}

func (p *platform) SetBlendState(s rhi.BlendState) {
	p.blend = native[*blendState](p, s)
	p.passBlendSet = false
}

func (p *platform) SetDepthStencilState(s rhi.DepthStencilState) {
	p.depth = native[*depthState](p, s)
}

func (p *platform) SetRasterizerState(s rhi.RasterizerState) {
	p.raster = native[*rasterState](p, s)
	p.passScissor = false
}

func (p *platform) ClearMaterialResourceBindings() {
	p.textures = [maxLogicalTextures]*textureBinding{}
	p.constants, p.slots = nil, nil
	p.groupDirty = true
}

func (p *platform) DrawIndexedPrimitives(count, startIndex, startVertex int) {
	p.DrawInstancedPrimitives(count, 1, startIndex, startVertex, 0)
}

func (p *platform) DrawInstancedPrimitives(indexCount, instanceCount, startIndex, startVertex, startInstance int) {
	if err := p.prepareDraw(); err != nil {
		p.fail(err)
		return
	}
	p.pass.DrawIndexed(uint32(indexCount), uint32(instanceCount), uint32(startIndex),
		int32(startVertex), uint32(startInstance))
}

func (p *platform) key() pipelineKey {
	k := pipelineKey{
		shaders:  p.shaders,
		blend:    p.blend,
		depth:    p.depth,
		raster:   p.raster,
		topology: p.topology,
	}
	if p.topology.IsStrip() && p.indexBuffer != nil {
		k.stripIndex = nativeFormat(p.indexBuffer.format)
	}
	for i, t := range p.fb.colors {
		if t != nil {
			k.colors[i] = t.gpuFormat
		}
	}
	if p.fb.depth != nil {
		k.depthFormat = p.fb.depth.gpuFormat
	}
	if p.constants != nil {
		k.constants = p.constants.Len()
	}
	if p.slots != nil {
		for i := range min(p.slots.Len(), maxLogicalTextures) {
			v := uint8(p.slots.Slot(i).Stages) | texturePresent
			if tb := p.textures[i]; tb != nil && tb.tex.cube {
				v |= textureCube
			}
			k.textures[i] = v
		}
	}
	return k
}

func (p *platform) prepareDraw() error {
	if p.shaders == nil {
		return errors.New("wgpu: draw without a shader set")
	}
	if p.indexBuffer == nil {
		return errors.New("wgpu: draw without an index buffer")
	}
	if p.pass == nil {
		if err := p.beginPass(nil); err != nil {
			return err
		}
	}

	entry, err := p.dev.pipelines.get(p.key())
	if err != nil {
		return err
	}
	if entry != p.passPipeline {
		p.pass.SetPipeline(entry.pipeline)
		p.ref(entry)
		if p.passPipeline == nil || p.passPipeline.groupLayout != entry.groupLayout {
			p.groupDirty = true
		}
		p.passPipeline = entry
	}
	if p.groupDirty {
		g, err := p.bindGroup(entry.groupLayout)
		if err != nil {
			return err
		}
		p.pass.SetBindGroup(0, g, nil)
		p.groupDirty = false
	}

	for slot, vb := range p.vertexBuffers {
		if vb == nil || vb.raw == nil {
			continue
		}
		if p.passVertex[slot] != vb.raw {
			p.pass.SetVertexBuffer(uint32(slot), vb.raw, uint64(vb.offset))
			p.passVertex[slot] = vb.raw
		}
		p.ref(&vb.buffer)
	}
	if p.passIndex != p.indexBuffer.raw {
		p.pass.SetIndexBuffer(p.indexBuffer.raw, nativeFormat(p.indexBuffer.format), 0)
		p.passIndex = p.indexBuffer.raw
	}
	p.ref(&p.indexBuffer.buffer)

	if !p.passViewport {
		v := p.viewport
		p.pass.SetViewport(float32(v.X), float32(v.Y), float32(v.Width), float32(v.Height), 0, 1)
		p.passViewport = true
	}
	if !p.passScissor {
		r := image.Rect(0, 0, p.fb.width, p.fb.height)
		if p.raster != nil && p.raster.desc.ScissorTestEnabled {
			r = p.scissor.Intersect(r)
		}
		p.pass.SetScissorRect(uint32(r.Min.X), uint32(r.Min.Y), uint32(r.Dx()), uint32(r.Dy()))
		p.passScissor = true
	}
	if !p.passBlendSet && p.blend != nil {
		c := p.blend.desc.BlendFactor.GPUColor()
		p.pass.SetBlendConstant(&c)
		p.passBlendSet = true
	}
	return nil
}

// bindGroup builds bind group 0 from the bound constants and textures.
// Unbound texture slots fail: WebGPU has no null bindings.
func (p *platform) bindGroup(layout hal.BindGroupLayout) (hal.BindGroup, error) {
	var entries []gputypes.BindGroupEntry
	n := 0
	if p.constants != nil {
		n = p.constants.Len()
		for i := range n {
			cb := p.constants.Buffer(i).(*buffer)
			entries = append(entries, gputypes.BindGroupEntry{
				Binding:  uint32(i),
				Resource: gputypes.BufferBinding{Buffer: cb.raw.NativeHandle(), Size: cb.rawSize},
			})
			p.ref(cb)
		}
	}
	if p.slots != nil && p.slots.Len() > 0 {
		sampler, err := p.dev.linearSampler()
		if err != nil {
			return nil, err
		}
		for j := range p.slots.Len() {
			tb := p.textures[j]
			if tb == nil || tb.view == nil {
				return nil, fmt.Errorf("wgpu: texture input %q is not bound", p.slots.Input(j).Name)
			}
			b := textureBindingIndex(n, j)
			entries = append(entries,
				gputypes.BindGroupEntry{
					Binding:  b,
					Resource: gputypes.TextureViewBinding{TextureView: tb.view.NativeHandle()},
				},
				gputypes.BindGroupEntry{
					Binding:  b + 1,
					Resource: gputypes.SamplerBinding{Sampler: sampler.NativeHandle()},
				})
			p.ref(tb)
			p.ref(tb.tex)
		}
	}
	g, err := p.dev.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:   "rhi_material",
		Layout:  layout,
		Entries: entries,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create bind group: %w", err)
	}
	p.garbage = append(p.garbage, g)
	return g, nil
}

// WebGPU texture coordinates put (0,0) at the top-left texel.
func (p *platform) TopLeftUV() mgl32.Vec2     { return mgl32.Vec2{0, 0} }
func (p *platform) BottomRightUV() mgl32.Vec2 { return mgl32.Vec2{1, 1} }

func (p *platform) Dispose() {
	p.flush()
	if p.acquired != nil {
		p.dev.device.DestroyTextureView(p.acquiredView)
		p.surface.DiscardTexture(p.acquired.Texture)
		p.acquired, p.acquiredView = nil, nil
	}
	if p.configured {
		p.surface.Unconfigure(p.dev.device)
	}
	if p.dev.frame == p {
		p.dev.frame = nil
	}
	p.dev.destroy()
}
