package rhi

import (
	"errors"
	"image"
	"slices"
	"testing"

	"github.com/gogpu/gpucontext"
)

func newTestContext(t *testing.T, opts ...ContextOption) (*RenderContext, *fakePlatform) {
	t.Helper()
	p := &fakePlatform{}
	rc, err := NewRenderContext(p, opts...)
	if err != nil {
		t.Fatalf("NewRenderContext() error = %v", err)
	}
	return rc, p
}

func newTestMaterial(t *testing.T, d *fakeDevice, textures []MaterialTextureInputElement,
	defaults []ShaderTextureBinding, globals ...MaterialGlobalInputElement) *Material {
	t.Helper()
	ss, err := d.CreateShaderSet(&fakeLayout{},
		&fakeShader{typ: ShaderTypeVertex}, nil, &fakeShader{typ: ShaderTypeFragment})
	if err != nil {
		t.Fatal(err)
	}
	cb, err := d.CreateShaderConstantBindings(ss, globals, nil)
	if err != nil {
		t.Fatal(err)
	}
	ts, err := d.CreateShaderTextureBindingSlots(ss, textures)
	if err != nil {
		t.Fatal(err)
	}
	return NewMaterial(ss, cb, ts, defaults)
}

func assertCalls(t *testing.T, p *fakePlatform, want ...string) {
	t.Helper()
	if !slices.Equal(p.calls, want) {
		t.Errorf("platform calls:\n got %q\nwant %q", p.calls, want)
	}
}

func TestNewRenderContext(t *testing.T) {
	rc, p := newTestContext(t)
	assertCalls(t, p,
		"CreateDefaultFramebuffer 800 600",
		"SetFramebuffer",
		"SetViewport 0 0 800 600",
	)
	if rc.CurrentFramebuffer() != rc.DefaultFramebuffer() {
		t.Error("default framebuffer is not bound after creation")
	}
	if rc.ClearColor() != ColorCornflowerBlue {
		t.Errorf("ClearColor() = %v, want cornflower blue", rc.ClearColor())
	}
	if rc.Backend() != fakeBackend {
		t.Errorf("Backend() = %v, want %v", rc.Backend(), fakeBackend)
	}
}

func TestNewRenderContextWindowSize(t *testing.T) {
	_, p := newTestContext(t, WithWindow(gpucontext.NullWindowProvider{W: 320, H: 200, SF: 2}))
	if p.calls[0] != "CreateDefaultFramebuffer 640 400" {
		t.Errorf("first call = %q, want framebuffer sized from the window in pixels", p.calls[0])
	}
}

func TestNewRenderContextInvalidSize(t *testing.T) {
	p := &fakePlatform{}
	_, err := NewRenderContext(p, WithConfig(NewConfig(WithSize(0, 600))))
	if !errors.Is(err, ErrInvalidDimensions) {
		t.Fatalf("NewRenderContext() error = %v, want ErrInvalidDimensions", err)
	}
	if len(p.calls) != 0 {
		t.Errorf("platform was called: %q", p.calls)
	}
}

func TestSetIsIdempotent(t *testing.T) {
	d := newFakeDevice()
	vb, _ := d.CreateVertexBuffer(64, false)
	ib, _ := d.CreateIndexBuffer(64, false, IndexFormatUInt16)
	blend, _ := d.CreateBlendState(BlendAlpha)
	depth, _ := d.CreateDepthStencilState(DepthStencilDescription{DepthTestEnabled: true})
	raster, _ := d.CreateRasterizerState(RasterizerDescription{CullMode: FaceCullingModeNone})
	fb, _ := d.CreateFramebuffer(32, 32)

	tests := []struct {
		name   string
		prefix string
		set    func(rc *RenderContext)
	}{
		{"viewport", "SetViewport", func(rc *RenderContext) { rc.SetViewport(Viewport{X: 1, Width: 10, Height: 10}) }},
		{"scissor", "SetScissorRectangle", func(rc *RenderContext) { rc.SetScissorRectangle(image.Rect(0, 0, 5, 5)) }},
		{"topology", "SetPrimitiveTopology", func(rc *RenderContext) { rc.SetPrimitiveTopology(PrimitiveTopologyLineList) }},
		{"vertex buffer", "SetVertexBuffer", func(rc *RenderContext) { rc.SetVertexBuffer(1, vb) }},
		{"index buffer", "SetIndexBuffer", func(rc *RenderContext) { rc.SetIndexBuffer(ib) }},
		{"blend", "SetBlendState", func(rc *RenderContext) { rc.SetBlendState(blend) }},
		{"depth", "SetDepthStencilState", func(rc *RenderContext) { rc.SetDepthStencilState(depth) }},
		{"rasterizer", "SetRasterizerState", func(rc *RenderContext) { rc.SetRasterizerState(raster) }},
		{"framebuffer", "SetFramebuffer", func(rc *RenderContext) { rc.SetFramebuffer(fb) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rc, p := newTestContext(t)
			p.reset()
			tt.set(rc)
			tt.set(rc)
			if n := p.count(tt.prefix); n != 1 {
				t.Errorf("%s issued %d times, want 1", tt.prefix, n)
			}
		})
	}
}

func TestSetTopologyInitialCallAlwaysIssued(t *testing.T) {
	rc, p := newTestContext(t)
	p.reset()
	// The zero value is a valid topology and must still reach the platform once.
	rc.SetPrimitiveTopology(PrimitiveTopologyTriangleList)
	assertCalls(t, p, "SetPrimitiveTopology 0")
}

func TestSetVertexBufferRebindsAfterReallocation(t *testing.T) {
	f := NewResourceFactory(newFakeDevice())
	desc := VertexDescriptor{VertexSizeInBytes: 32, ElementCount: 3}
	vb, err := NewVertexBuffer(f, make([]testVertex, 3), desc, true)
	if err != nil {
		t.Fatal(err)
	}
	rc, p := newTestContext(t)
	p.reset()
	rc.SetVertexBuffer(0, vb)
	rc.SetVertexBuffer(0, vb)

	if err := SetVertices(vb, make([]testVertex, 4), desc, 0); err != nil {
		t.Fatal(err)
	}
	rc.SetVertexBuffer(0, vb)
	if n := p.count("SetVertexBuffer"); n != 2 {
		t.Errorf("SetVertexBuffer issued %d times, want 2 (bind, rebind after growth)", n)
	}
}

func TestSetVertexBufferSlotOutOfRange(t *testing.T) {
	rc, _ := newTestContext(t)
	defer func() {
		if recover() == nil {
			t.Error("SetVertexBuffer with slot MaxVertexBuffers did not panic")
		}
	}()
	rc.SetVertexBuffer(MaxVertexBuffers, nil)
}

func TestSetFramebufferUnbindsSampledTargets(t *testing.T) {
	d := newFakeDevice()
	inputs := []MaterialTextureInputElement{
		{Name: "shadow", Stages: ShaderStageVertex | ShaderStageFragment},
		{Name: "diffuse"},
		{Name: "mask", Stages: ShaderStageVertex | ShaderStageFragment},
	}
	m := newTestMaterial(t, d, inputs, nil)

	target := &fakeTexture{w: 64, h: 64}
	other := &fakeTexture{w: 8, h: 8}
	shadow := &fakeBinding{tex: target}
	diffuse := &fakeBinding{tex: other}
	mask := &fakeBinding{tex: target}

	rc, p := newTestContext(t)
	if err := rc.SetMaterial(m); err != nil {
		t.Fatal(err)
	}
	rc.SetTexture(0, shadow)
	rc.SetTexture(1, diffuse)
	rc.SetTexture(2, mask)

	fb := &fakeFramebuffer{w: 64, h: 64}
	fb.colors[0] = target

	p.reset()
	rc.SetFramebuffer(fb)
	assertCalls(t, p,
		"UnbindTexture vertex 0",
		"UnbindTexture vertex 1",
		"UnbindTexture fragment 0",
		"UnbindTexture fragment 2",
		"SetFramebuffer",
		"SetViewport 0 0 64 64",
	)
	if got := rc.BoundTexture(ShaderTypeFragment, 1); got != diffuse {
		t.Errorf("unrelated binding was cleared: got %v", got)
	}
	for _, st := range []ShaderType{ShaderTypeVertex, ShaderTypeFragment} {
		if got := rc.BoundTexture(st, 0); got != nil {
			t.Errorf("%s slot 0 still bound to render target", st)
		}
	}

	// The cleared slot is no longer considered bound.
	p.reset()
	rc.SetTexture(0, shadow)
	assertCalls(t, p, "SetTexture vertex 0", "SetTexture fragment 0")
}

func TestSetFramebufferUnbindsDepthTarget(t *testing.T) {
	d := newFakeDevice()
	m := newTestMaterial(t, d, []MaterialTextureInputElement{{Name: "depth"}}, nil)
	depth := &fakeTexture{w: 16, h: 16}

	rc, p := newTestContext(t)
	if err := rc.SetMaterial(m); err != nil {
		t.Fatal(err)
	}
	rc.SetTexture(0, &fakeBinding{tex: depth})

	fb := &fakeFramebuffer{w: 16, h: 16}
	fb.colors[0] = &fakeTexture{w: 16, h: 16}
	fb.depth = depth

	p.reset()
	rc.SetFramebuffer(fb)
	if p.calls[0] != "UnbindTexture fragment 0" {
		t.Errorf("first call = %q, want depth target unbound first", p.calls[0])
	}
}

func TestSetMaterial(t *testing.T) {
	d := newFakeDevice()
	tex := &fakeTexture{w: 1, h: 1}
	def := &fakeBinding{tex: tex}
	view := NewIdentityProvider()
	m := newTestMaterial(t, d,
		[]MaterialTextureInputElement{{Name: "albedo"}},
		[]ShaderTextureBinding{def},
		MaterialGlobalInputElement{Name: "view", Type: ShaderConstantTypeMatrix4x4, Provider: view},
	)
	global := m.ConstantBindings().(*fakeConstantBindings).Globals[0].Buffer.(*fakeBuffer)

	rc, p := newTestContext(t)
	p.reset()
	if err := rc.SetMaterial(m); err != nil {
		t.Fatal(err)
	}
	assertCalls(t, p,
		"ClearMaterialResourceBindings",
		"SetShaderSet",
		"SetShaderConstantBindings",
		"SetShaderTextureBindingSlots",
		"SetTexture fragment 0",
	)
	if rc.BoundTexture(ShaderTypeFragment, 0) != def {
		t.Error("default texture not bound")
	}
	if global.writes != 1 {
		t.Fatalf("global writes = %d, want 1", global.writes)
	}

	p.reset()
	if err := rc.SetMaterial(m); err != nil {
		t.Fatal(err)
	}
	if len(p.calls) != 0 {
		t.Errorf("rebinding the same material issued %q", p.calls)
	}
	if global.writes != 1 {
		t.Errorf("unchanged global uploaded again: writes = %d", global.writes)
	}

	view.Set(view.Data().Mul(2))
	if err := rc.SetMaterial(m); err != nil {
		t.Fatal(err)
	}
	if global.writes != 2 {
		t.Errorf("changed global not uploaded: writes = %d", global.writes)
	}
}

func TestSetMaterialNil(t *testing.T) {
	rc, _ := newTestContext(t)
	if err := rc.SetMaterial(nil); err == nil {
		t.Error("SetMaterial(nil) returned nil error")
	}
}

func TestSetTextureWithoutMaterialPanics(t *testing.T) {
	rc, _ := newTestContext(t)
	defer func() {
		if recover() == nil {
			t.Error("SetTexture without a material did not panic")
		}
	}()
	rc.SetTexture(0, nil)
}

func TestClearBuffer(t *testing.T) {
	rc, p := newTestContext(t)
	rc.SetClearColor(ColorBlack)
	p.reset()
	rc.ClearBuffer()
	assertCalls(t, p, "Clear {0 0 0 1} 1 0")
}

func TestSetFramebufferAgainUnbindsSampledTarget(t *testing.T) {
	d := newFakeDevice()
	m := newTestMaterial(t, d, []MaterialTextureInputElement{{Name: "diffuse"}}, nil)
	target := &fakeTexture{w: 64, h: 64}
	fb := &fakeFramebuffer{w: 64, h: 64}
	fb.colors[0] = target

	rc, p := newTestContext(t)
	if err := rc.SetMaterial(m); err != nil {
		t.Fatal(err)
	}
	rc.SetFramebuffer(fb)
	rc.SetTexture(0, &fakeBinding{tex: target})

	p.reset()
	rc.SetFramebuffer(fb)
	assertCalls(t, p, "UnbindTexture fragment 0")
	if got := rc.BoundTexture(ShaderTypeFragment, 0); got != nil {
		t.Errorf("render target still bound for sampling: %v", got)
	}

	p.reset()
	rc.SetFramebuffer(fb)
	assertCalls(t, p)
}

func TestSetFramebufferAfterAttachmentChange(t *testing.T) {
	rc, p := newTestContext(t)
	fb := &fakeFramebuffer{w: 64, h: 64}
	rc.SetFramebuffer(fb)

	p.reset()
	if err := fb.AttachColorTexture(1, &fakeTexture{w: 64, h: 64}); err != nil {
		t.Fatal(err)
	}
	rc.SetFramebuffer(fb)
	assertCalls(t, p, "SetFramebuffer")

	p.reset()
	rc.SetFramebuffer(fb)
	assertCalls(t, p)
}

func TestResizeRebindsDefaultFramebuffer(t *testing.T) {
	rc, p := newTestContext(t)
	old := rc.DefaultFramebuffer().(*fakeFramebuffer)

	p.reset()
	if err := rc.Resize(1024, 768); err != nil {
		t.Fatal(err)
	}
	assertCalls(t, p,
		"ResizeSwapSurface 1024 768",
		"CreateDefaultFramebuffer 1024 768",
		"SetFramebuffer",
		"SetViewport 0 0 1024 768",
	)
	if !old.disposed {
		t.Error("old default framebuffer was not disposed")
	}
	if rc.CurrentFramebuffer() != rc.DefaultFramebuffer() {
		t.Error("new default framebuffer is not bound")
	}
	if w := rc.DefaultFramebuffer().Width(); w != 1024 {
		t.Errorf("default framebuffer width = %d, want 1024", w)
	}
}

func TestResizeKeepsOffscreenFramebuffer(t *testing.T) {
	rc, p := newTestContext(t)
	off := &fakeFramebuffer{w: 128, h: 128}
	rc.SetFramebuffer(off)

	p.reset()
	if err := rc.Resize(640, 480); err != nil {
		t.Fatal(err)
	}
	assertCalls(t, p, "ResizeSwapSurface 640 480", "CreateDefaultFramebuffer 640 480")
	if rc.CurrentFramebuffer() != off {
		t.Error("resize changed the bound offscreen framebuffer")
	}

	p.reset()
	rc.SetDefaultFramebuffer()
	if p.count("SetFramebuffer") != 1 {
		t.Error("SetDefaultFramebuffer did not bind the rebuilt framebuffer")
	}
}

func TestResizeAfterFailureRebindsDefaultFramebuffer(t *testing.T) {
	rc, p := newTestContext(t)
	p.resizeErr = errFake
	if err := rc.Resize(800, 600); !errors.Is(err, errFake) {
		t.Fatalf("Resize() error = %v, want swap surface failure", err)
	}
	if rc.DefaultFramebuffer() != nil || rc.CurrentFramebuffer() != nil {
		t.Fatal("failed resize left a released framebuffer bound")
	}
	if p.bound != nil {
		t.Fatal("platform still holds the released framebuffer")
	}

	p.resizeErr = nil
	p.reset()
	if err := rc.Resize(640, 480); err != nil {
		t.Fatal(err)
	}
	if p.count("SetFramebuffer") != 1 {
		t.Errorf("platform calls %q, want the rebuilt framebuffer bound", p.calls)
	}
	fb := rc.DefaultFramebuffer()
	if fb == nil || rc.CurrentFramebuffer() != fb {
		t.Fatal("default framebuffer was bound before the resizes but is not bound after")
	}
	if fb.Width() != 640 || fb.Height() != 480 {
		t.Errorf("default framebuffer is %dx%d, want 640x480", fb.Width(), fb.Height())
	}
}

func TestResizeInvalid(t *testing.T) {
	rc, p := newTestContext(t)
	p.reset()
	if err := rc.Resize(0, 10); !errors.Is(err, ErrInvalidDimensions) {
		t.Errorf("Resize(0, 10) error = %v, want ErrInvalidDimensions", err)
	}
	if len(p.calls) != 0 {
		t.Errorf("invalid resize reached the platform: %q", p.calls)
	}
}

type resizeSource struct {
	gpucontext.NullEventSource
	fn func(w, h int)
}

func (s *resizeSource) OnResize(fn func(w, h int)) { s.fn = fn }

func TestResizeFromEventSource(t *testing.T) {
	src := &resizeSource{}
	rc, p := newTestContext(t, WithEventSource(src))
	if src.fn == nil {
		t.Fatal("render context did not subscribe to resize events")
	}

	p.reset()
	src.fn(640, 480)
	if len(p.calls) != 0 {
		t.Fatalf("resize applied before the next clear: %q", p.calls)
	}
	rc.SetClearColor(ColorWhite)
	rc.ClearBuffer()
	assertCalls(t, p,
		"ResizeSwapSurface 640 480",
		"CreateDefaultFramebuffer 640 480",
		"SetFramebuffer",
		"SetViewport 0 0 640 480",
		"Clear {1 1 1 1} 1 0",
	)
}

func TestResizeErrorReportedBySwapBuffers(t *testing.T) {
	src := &resizeSource{}
	rc, p := newTestContext(t, WithEventSource(src))
	p.resizeErr = errFake

	src.fn(100, 100)
	rc.ClearBuffer()
	if err := rc.SwapBuffers(); !errors.Is(err, errFake) {
		t.Errorf("SwapBuffers() error = %v, want resize failure", err)
	}
	if err := rc.SwapBuffers(); err != nil {
		t.Errorf("second SwapBuffers() error = %v, want nil", err)
	}
}

func TestDrawCalls(t *testing.T) {
	rc, p := newTestContext(t)
	p.reset()
	rc.DrawIndexedPrimitives(6, 0)
	rc.DrawIndexedPrimitives(6, 0)
	rc.DrawIndexedPrimitivesAt(3, 6, 4)
	rc.DrawInstancedPrimitives(6, 10, 0, 0, 2)
	assertCalls(t, p,
		"DrawIndexedPrimitives 6 0 0",
		"DrawIndexedPrimitives 6 0 0",
		"DrawIndexedPrimitives 3 6 4",
		"DrawInstancedPrimitives 6 10 0 0 2",
	)
}

func TestSwapBuffersPresentInterval(t *testing.T) {
	rc, p := newTestContext(t, WithConfig(NewConfig(WithPresentInterval(0))))
	p.reset()
	if err := rc.SwapBuffers(); err != nil {
		t.Fatal(err)
	}
	assertCalls(t, p, "SwapBuffers 0")

	p.presentErr = errFake
	if err := rc.SwapBuffers(); !errors.Is(err, errFake) {
		t.Errorf("SwapBuffers() error = %v, want present failure", err)
	}
}

func TestUVConvention(t *testing.T) {
	rc, _ := newTestContext(t)
	if tl := rc.TopLeftUV(); tl.X() != 0 || tl.Y() != 0 {
		t.Errorf("TopLeftUV() = %v", tl)
	}
	if br := rc.BottomRightUV(); br.X() != 1 || br.Y() != 1 {
		t.Errorf("BottomRightUV() = %v", br)
	}
}

func TestDispose(t *testing.T) {
	rc, p := newTestContext(t)
	fb := rc.DefaultFramebuffer().(*fakeFramebuffer)
	p.reset()
	rc.Dispose()
	if !fb.disposed {
		t.Error("default framebuffer not disposed")
	}
	assertCalls(t, p, "Dispose")
}
