package d3d

import (
	"errors"
	"fmt"
	"image"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/rhi"
)

// SwapChainFunc creates the swap chain presenting the default framebuffer.
type SwapChainFunc func(d NativeDevice, width, height int, format Format) (SwapChain, error)

// platform implements rhi.Platform over the immediate context. The context
// already filters redundant calls, so each method maps to the D3D11 call
// of the same name. D3D11 resolves read-after-write hazards on the immediate
// context itself.
type platform struct {
	dev       *Device
	ctx       DeviceContext
	newSwap   SwapChainFunc
	swap      SwapChain
	hasGS     bool
	constants *constantBindings
	constGens []uint64
	err       error
}

func newPlatform(d *Device, newSwap SwapChainFunc) *platform {
	return &platform{dev: d, ctx: d.context, newSwap: newSwap}
}

func (p *platform) fail(err error) {
	rhi.Logger().Error("d3d: command failed", "err", err)
	p.err = errors.Join(p.err, err)
}

// native returns r as this backend's handle type T; ok is false for nil. A
// handle made by another backend is reported at the next SwapBuffers.
func native[T rhi.Resource](p *platform, r rhi.Resource) (T, bool) {
	t, ok := r.(T)
	if !ok && r != nil {
		p.fail(fmt.Errorf("d3d: %T: %w", r, rhi.ErrBackendMismatch))
	}
	return t, ok
}

func (p *platform) Backend() rhi.Backend { return rhi.BackendD3D11 }

func (p *platform) Clear(fb rhi.Framebuffer, color rhi.Color, depth float32, stencil uint8) {
	f, ok := fb.(*framebuffer)
	if !ok {
		return
	}
	rtvs, dsv, err := f.views()
	if err != nil {
		p.fail(err)
		return
	}
	c := [4]float32{color.R, color.G, color.B, color.A}
	for _, rtv := range rtvs {
		if rtv == nil {
			continue
		}
		p.ctx.ClearRenderTargetView(rtv, c)
	}
	if dsv != nil {
		p.ctx.ClearDepthStencilView(dsv, ClearDepth|ClearStencil, depth, stencil)
	}
}

// SwapBuffers presents, then reports errors recorded since the last call.
func (p *platform) SwapBuffers(presentInterval int) error {
	if p.swap != nil {
		if err := p.swap.Present(uint32(presentInterval), 0); err != nil {
			p.fail(fmt.Errorf("d3d: present: %w", err))
		}
	}
	err := p.err
	p.err = nil
	return err
}

// ResizeSwapSurface resizes the swap chain buffers. Every reference to the
// old back buffer must be gone first, so render targets are unbound.
func (p *platform) ResizeSwapSurface(width, height int) error {
	if p.swap == nil {
		return nil
	}
	p.ctx.OMSetRenderTargets(nil, nil)
	if err := p.swap.ResizeBuffers(0, uint32(width), uint32(height), FormatUnknown, 0); err != nil {
		return fmt.Errorf("d3d: resize swap chain to %dx%d: %w", width, height, err)
	}
	return nil
}

// CreateDefaultFramebuffer wraps buffer 0 of the swap chain. Without a swap
// chain the color attachment is an offscreen RGBA8 texture.
func (p *platform) CreateDefaultFramebuffer(width, height int) (rhi.Framebuffer, error) {
	fb := &framebuffer{width: width, height: height}
	color, err := p.backbuffer(width, height)
	if err != nil {
		return nil, err
	}
	depth, err := p.dev.CreateDepthTexture(width, height)
	if err != nil {
		color.Dispose()
		return nil, err
	}
	fb.colors[0], fb.depth = color, depth.(*texture)
	fb.owned = []*texture{color, fb.depth}
	return fb, nil
}

func (p *platform) backbuffer(width, height int) (*texture, error) {
	desc := colorDesc(width, height, FormatR8G8B8A8Unorm)
	if p.newSwap == nil {
		return p.dev.newTexture(desc, rhi.PixelFormatR8G8B8A8UInt, nil)
	}
	if p.swap == nil {
		swap, err := p.newSwap(p.dev.device, width, height, FormatR8G8B8A8Unorm)
		if err != nil {
			return nil, fmt.Errorf("d3d: create swap chain: %w", err)
		}
		p.swap = swap
	}
	raw, err := p.swap.GetBuffer(0)
	if err != nil {
		return nil, fmt.Errorf("d3d: get back buffer: %w", err)
	}
	desc.BindFlags = BindRenderTarget
	return &texture{
		dev:        p.dev,
		raw:        raw,
		desc:       desc,
		width:      width,
		height:     height,
		format:     rhi.PixelFormatR8G8B8A8UInt,
		backbuffer: true,
	}, nil
}

func (p *platform) SetViewport(v rhi.Viewport) {
	p.ctx.RSSetViewports([]Viewport{{
		TopLeftX: float32(v.X),
		TopLeftY: float32(v.Y),
		Width:    float32(v.Width),
		Height:   float32(v.Height),
		MaxDepth: 1,
	}})
}

func (p *platform) SetScissorRectangle(r image.Rectangle) {
	p.ctx.RSSetScissorRects([]Rect{{
		Left:   int32(r.Min.X),
		Top:    int32(r.Min.Y),
		Right:  int32(r.Max.X),
		Bottom: int32(r.Max.Y),
	}})
}

func (p *platform) SetPrimitiveTopology(t rhi.PrimitiveTopology) {
	p.ctx.IASetPrimitiveTopology(topology(t))
}

func (p *platform) SetVertexBuffer(slot int, vb rhi.VertexBuffer) {
	if vb == nil {
		p.ctx.IASetVertexBuffers(uint32(slot), []Buffer{nil}, []uint32{0}, []uint32{0})
		return
	}
	b, ok := native[*vertexBuffer](p, vb)
	if !ok {
		return
	}
	p.ctx.IASetVertexBuffers(uint32(slot), []Buffer{b.raw}, []uint32{uint32(b.stride)}, []uint32{uint32(b.offset)})
}

func (p *platform) SetIndexBuffer(ib rhi.IndexBuffer) {
	if ib == nil {
		p.ctx.IASetIndexBuffer(nil, FormatUnknown, 0)
		return
	}
	b, ok := native[*indexBuffer](p, ib)
	if !ok {
		return
	}
	p.ctx.IASetIndexBuffer(b.raw, indexFormat(b.format), 0)
}

func (p *platform) SetShaderSet(ss rhi.ShaderSet) {
	s, ok := native[*shaderSet](p, ss)
	if !ok {
		return
	}
	p.ctx.IASetInputLayout(s.layout.raw)
	p.ctx.VSSetShader(s.vs.raw)
	if s.gs != nil {
		p.ctx.GSSetShader(s.gs.raw)
	} else {
		p.ctx.GSSetShader(nil)
	}
	p.ctx.PSSetShader(s.fs.raw)
	p.hasGS = s.gs != nil
	if p.constants != nil {
		p.bindConstants()
	}
}

// SetShaderConstantBindings binds constant i at register b<i> of every
// active stage.
func (p *platform) SetShaderConstantBindings(b rhi.ShaderConstantBindings) {
	c, ok := native[*constantBindings](p, b)
	if !ok {
		return
	}
	p.constants = c
	p.bindConstants()
}

func (p *platform) bindConstants() {
	bufs := p.constants.buffers()
	p.constGens = p.constGens[:0]
	for i := range p.constants.Len() {
		p.constGens = append(p.constGens, p.constants.Buffer(i).Generation())
	}
	p.ctx.VSSetConstantBuffers(0, bufs)
	if p.hasGS {
		p.ctx.GSSetConstantBuffers(0, bufs)
	}
	p.ctx.PSSetConstantBuffers(0, bufs)
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

// Texture slots resolve to native slots in the context; nothing to bind.
func (p *platform) SetShaderTextureBindingSlots(rhi.ShaderTextureBindingSlots) {}

// SetTexture binds the view at t<slot> and the shared sampler at s<slot>.
func (p *platform) SetTexture(stage rhi.ShaderType, slot int, b rhi.ShaderTextureBinding) {
	var srv ShaderResourceView
	if b != nil {
		tb, ok := native[*textureBinding](p, b)
		if !ok {
			return
		}
		srv = tb.srv
	}
	sampler, err := p.dev.linearSampler()
	if err != nil {
		p.fail(err)
		return
	}
	p.setResources(stage, slot, []ShaderResourceView{srv})
	s := uint32(slot)
	samplers := []SamplerState{sampler}
	switch stage {
	case rhi.ShaderTypeVertex:
		p.ctx.VSSetSamplers(s, samplers)
	case rhi.ShaderTypeGeometry:
		p.ctx.GSSetSamplers(s, samplers)
	case rhi.ShaderTypeFragment:
		p.ctx.PSSetSamplers(s, samplers)
	default:
		panic(rhi.IllegalValue(stage))
	}
}

func (p *platform) UnbindTexture(stage rhi.ShaderType, slot int) {
	p.setResources(stage, slot, []ShaderResourceView{nil})
}

func (p *platform) setResources(stage rhi.ShaderType, slot int, views []ShaderResourceView) {
	s := uint32(slot)
	switch stage {
	case rhi.ShaderTypeVertex:
		p.ctx.VSSetShaderResources(s, views)
	case rhi.ShaderTypeGeometry:
		p.ctx.GSSetShaderResources(s, views)
	case rhi.ShaderTypeFragment:
		p.ctx.PSSetShaderResources(s, views)
	default:
		panic(rhi.IllegalValue(stage))
	}
}

func (p *platform) SetFramebuffer(fb rhi.Framebuffer) {
	if fb == nil {
		p.ctx.OMSetRenderTargets(nil, nil)
		return
	}
	f, ok := native[*framebuffer](p, fb)
	if !ok {
		return
	}
	rtvs, dsv, err := f.views()
	if err != nil {
		p.fail(err)
		return
	}
	p.ctx.OMSetRenderTargets(rtvs, dsv)
}

func (p *platform) SetBlendState(s rhi.BlendState) {
	b, ok := native[*blendState](p, s)
	if !ok {
		return
	}
	p.ctx.OMSetBlendState(b.raw, b.factor(), 0xffffffff)
}

func (p *platform) SetDepthStencilState(s rhi.DepthStencilState) {
	if d, ok := native[*depthState](p, s); ok {
		p.ctx.OMSetDepthStencilState(d.raw, 0)
	}
}

func (p *platform) SetRasterizerState(s rhi.RasterizerState) {
	if r, ok := native[*rasterState](p, s); ok {
		p.ctx.RSSetState(r.raw)
	}
}

func (p *platform) DrawIndexedPrimitives(count, startIndex, startVertex int) {
	p.syncConstants()
	p.ctx.DrawIndexed(uint32(count), uint32(startIndex), int32(startVertex))
}

func (p *platform) DrawInstancedPrimitives(indexCount, instanceCount, startIndex, startVertex, startInstance int) {
	p.syncConstants()
	p.ctx.DrawIndexedInstanced(uint32(indexCount), uint32(instanceCount), uint32(startIndex),
		int32(startVertex), uint32(startInstance))
}

// ClearMaterialResourceBindings unbinds every texture slot of every stage.
func (p *platform) ClearMaterialResourceBindings() {
	none := make([]ShaderResourceView, rhi.MaxTextureSlots)
	p.ctx.VSSetShaderResources(0, none)
	p.ctx.GSSetShaderResources(0, none)
	p.ctx.PSSetShaderResources(0, none)
	p.constants, p.constGens = nil, p.constGens[:0]
}

func (p *platform) TopLeftUV() mgl32.Vec2     { return mgl32.Vec2{0, 0} }
func (p *platform) BottomRightUV() mgl32.Vec2 { return mgl32.Vec2{1, 1} }

func (p *platform) Dispose() {
	if p.swap != nil {
		p.swap.Release()
		p.swap = nil
	}
	p.dev.destroy()
}
