package d3d

import (
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/rhi"
	"github.com/gogpu/rhi/backend"
	"github.com/gogpu/rhi/shader"
)

const quadHLSL = `
cbuffer Globals : register(b0) { float4x4 mvp; };
Texture2D tex : register(t0);
SamplerState samp : register(s0);
struct VSIn { float3 pos : POSITION; float2 uv : TEXCOORD0; };
struct PSIn { float4 pos : SV_Position; float2 uv : TEXCOORD0; };
PSIn VS(VSIn v) { PSIn o; o.pos = mul(mvp, float4(v.pos, 1)); o.uv = v.uv; return o; }
float4 PS(PSIn i) : SV_Target { return tex.Sample(samp, i.uv); }
`

type harness struct {
	rc   *rhi.RenderContext
	f    *rhi.ResourceFactory
	dev  *fakeDevice
	swap *fakeSwapChain
}

func fakeBindings(dev *fakeDevice, swap *fakeSwapChain) Bindings {
	b := Bindings{
		CreateDevice: func(flags CreateDeviceFlag) (NativeDevice, error) {
			dev.flags = flags
			return dev, nil
		},
		Compiler: dev,
	}
	if swap != nil {
		b.CreateSwapChain = func(_ NativeDevice, width, height int, _ Format) (SwapChain, error) {
			swap.width, swap.height = uint32(width), uint32(height)
			return swap, nil
		}
	}
	return b
}

func open(t *testing.T, cfg rhi.Config, withSwap bool) *harness {
	t.Helper()
	h := &harness{dev: newFakeDevice()}
	if withSwap {
		h.swap = &fakeSwapChain{dev: h.dev}
	}
	b := &Backend{Bindings: fakeBindings(h.dev, h.swap)}
	rc, f, err := b.Open(cfg, rhi.WithConfig(cfg))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(rc.Dispose)
	h.rc, h.f = rc, f
	return h
}

func testConfig() rhi.Config {
	return rhi.Config{Width: 64, Height: 32, PresentInterval: 1}
}

// bindQuad creates and binds an HLSL material with one constant buffer and
// one fragment texture, plus vertex and index buffers.
func (h *harness) bindQuad(t *testing.T) *rhi.Material {
	t.Helper()
	h.f.AddShaderLoader(shader.MapLoader{"quad.hlsl": quadHLSL})
	mat, err := h.f.CreateMaterial(rhi.MaterialDescription{
		VertexShader:   "quad",
		FragmentShader: "quad",
		VertexInputs: []rhi.MaterialVertexInput{rhi.NewMaterialVertexInput(
			rhi.MaterialVertexInputElement{Name: "pos", SemanticType: rhi.VertexSemanticTypePosition, Format: rhi.VertexElementFormatFloat3},
			rhi.MaterialVertexInputElement{Name: "uv", SemanticType: rhi.VertexSemanticTypeTextureCoordinate, Format: rhi.VertexElementFormatFloat2},
		)},
		GlobalInputs: []rhi.MaterialGlobalInputElement{
			{Name: "mvp", Type: rhi.ShaderConstantTypeMatrix4x4, Provider: rhi.NewIdentityProvider()},
		},
		TextureInputs: []rhi.MaterialTextureInputElement{
			{Name: "tex", Default: rhi.SolidColorTexture{Color: rhi.ColorWhite}},
		},
	})
	if err != nil {
		t.Fatalf("CreateMaterial() error = %v", err)
	}
	t.Cleanup(mat.Dispose)

	vb, err := rhi.NewVertexBuffer(h.f, make([]float32, 15), rhi.VertexDescriptor{VertexSizeInBytes: 20, ElementCount: 2}, false)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(vb.Dispose)
	ib, err := rhi.NewIndexBuffer(h.f, []uint16{0, 1, 2}, rhi.IndexFormatUInt16, false)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(ib.Dispose)

	if err := h.rc.SetMaterial(mat); err != nil {
		t.Fatalf("SetMaterial() error = %v", err)
	}
	h.rc.SetVertexBuffer(0, vb)
	h.rc.SetIndexBuffer(ib)
	return mat
}

// index returns the position of the first call starting with prefix, or -1.
func (f *fakeDevice) index(prefix string) int {
	return slices.IndexFunc(f.calls, func(c string) bool { return strings.HasPrefix(c, prefix) })
}

func TestOpenHeadless(t *testing.T) {
	h := open(t, testConfig(), false)
	if h.dev.flags&CreateDeviceDebug != 0 {
		t.Error("debug device created without Config.Debug")
	}
	fb := h.rc.DefaultFramebuffer()
	if fb.Width() != 64 || fb.Height() != 32 {
		t.Errorf("default framebuffer is %dx%d, want 64x32", fb.Width(), fb.Height())
	}

	h.dev.reset()
	h.rc.ClearBuffer()
	c := h.dev.called("ClearRenderTargetView")
	if len(c) != 1 {
		t.Fatalf("ClearRenderTargetView calls = %v", c)
	}
	d := h.dev.called("ClearDepthStencilView")
	if len(d) != 1 || !strings.HasSuffix(d[0], "flags=3 depth=1 stencil=0") {
		t.Errorf("ClearDepthStencilView calls = %v, want depth 1 and stencil 0", d)
	}
	if err := h.rc.SwapBuffers(); err != nil {
		t.Errorf("SwapBuffers() error = %v", err)
	}
}

func TestDebugFlags(t *testing.T) {
	cfg := testConfig()
	cfg.Debug = true
	h := open(t, cfg, false)
	if h.dev.flags&CreateDeviceDebug == 0 {
		t.Error("Config.Debug did not request a debug device")
	}
	if d := h.f.Device().(*Device); d.flags&CompileDebug == 0 {
		t.Error("Config.Debug did not enable debug shader compilation")
	}
}

func TestOpenIncompleteBindings(t *testing.T) {
	_, _, err := (&Backend{}).Open(testConfig())
	if !errors.Is(err, errIncomplete) {
		t.Errorf("Open() error = %v, want %v", err, errIncomplete)
	}
}

func TestSetMaterialBindsResources(t *testing.T) {
	h := open(t, testConfig(), false)
	h.dev.reset()
	h.bindQuad(t)

	for _, prefix := range []string{
		"VSSetShaderResources 0 nil,nil",
		"IASetInputLayout layout#",
		"VSSetShader vs#",
		"GSSetShader nil",
		"PSSetShader ps#",
		"VSSetConstantBuffers 0 buffer#",
		"PSSetConstantBuffers 0 buffer#",
		"PSSetShaderResources 0 srv#",
		"PSSetSamplers 0 sampler#",
		"IASetVertexBuffers 0 buffer#",
		"IASetIndexBuffer buffer#",
	} {
		if h.dev.index(prefix) < 0 {
			t.Errorf("no %q call in %v", prefix, h.dev.calls)
		}
	}
	if len(h.dev.called("GSSetConstantBuffers")) != 0 {
		t.Error("constants bound to the geometry stage without a geometry shader")
	}
	if got := h.dev.called("IASetVertexBuffers"); !strings.HasSuffix(got[0], "stride=20 offset=0") {
		t.Errorf("vertex buffer bound as %q", got[0])
	}
	if got := h.dev.called("IASetIndexBuffer"); !strings.HasSuffix(got[0], "format=57") {
		t.Errorf("index buffer bound as %q, want R16_UINT", got[0])
	}
}

func TestDraw(t *testing.T) {
	h := open(t, testConfig(), false)
	h.bindQuad(t)

	h.dev.reset()
	h.rc.DrawIndexedPrimitivesAt(3, 0, 4)
	h.rc.DrawInstancedPrimitives(3, 10, 0, 0, 2)
	want := []string{"DrawIndexed 3 0 4", "DrawIndexedInstanced 3 10 0 0 2"}
	if !slices.Equal(h.dev.calls, want) {
		t.Errorf("calls = %v, want %v", h.dev.calls, want)
	}
}

func TestConstantBufferGrowthRebinds(t *testing.T) {
	h := open(t, testConfig(), false)
	mat := h.bindQuad(t)

	cb := mat.ConstantBindings().(*constantBindings).Buffer(0)
	if err := cb.SetData(make([]byte, 128), 0); err != nil {
		t.Fatal(err)
	}
	h.dev.reset()
	h.rc.DrawIndexedPrimitives(3, 0)
	vs, draw := h.dev.index("VSSetConstantBuffers"), h.dev.index("DrawIndexed")
	if vs < 0 || vs > draw {
		t.Errorf("reallocated constant buffer not rebound before the draw: %v", h.dev.calls)
	}

	h.dev.reset()
	h.rc.DrawIndexedPrimitives(3, 0)
	if len(h.dev.called("VSSetConstantBuffers")) != 0 {
		t.Errorf("constants rebound without a change: %v", h.dev.calls)
	}
}

func TestRenderTargetUnbindsSampledTexture(t *testing.T) {
	h := open(t, testConfig(), false)
	h.bindQuad(t)

	color, err := h.f.CreateTexture2D(nil, 16, 16, rhi.PixelFormatR8G8B8A8UInt)
	if err != nil {
		t.Fatal(err)
	}
	defer color.Dispose()
	b, err := h.f.CreateShaderTextureBinding(color)
	if err != nil {
		t.Fatal(err)
	}
	defer b.Dispose()
	fb, err := h.f.CreateFramebufferWith(color, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer fb.Dispose()

	h.rc.SetTexture(0, b)
	h.dev.reset()
	h.rc.SetFramebuffer(fb)
	unbind, target := h.dev.index("PSSetShaderResources 0 nil"), h.dev.index("OMSetRenderTargets rtv#")
	if unbind < 0 || target < 0 || unbind > target {
		t.Errorf("sampled texture not unbound before it became a target: %v", h.dev.calls)
	}
	if got := h.dev.called("RSSetViewports"); len(got) != 1 || !strings.Contains(got[0], "16 16") {
		t.Errorf("viewport not reset to the framebuffer: %v", got)
	}
}

func TestRenderTargetSlotsArePositional(t *testing.T) {
	h := open(t, testConfig(), false)

	color, err := h.f.CreateTexture2D(nil, 16, 16, rhi.PixelFormatR8G8B8A8UInt)
	if err != nil {
		t.Fatal(err)
	}
	defer color.Dispose()
	fb, err := h.f.CreateFramebuffer(16, 16)
	if err != nil {
		t.Fatal(err)
	}
	defer fb.Dispose()
	if err := fb.AttachColorTexture(1, color); err != nil {
		t.Fatal(err)
	}

	h.dev.reset()
	h.rc.SetFramebuffer(fb)
	if got := h.dev.called("OMSetRenderTargets"); len(got) != 1 || !strings.HasPrefix(got[0], "OMSetRenderTargets nil,rtv#") {
		t.Errorf("attachment 1 not bound to slot 1: %v", got)
	}
	h.rc.ClearBuffer()
	if got := h.dev.called("ClearRenderTargetView"); len(got) != 1 {
		t.Errorf("ClearRenderTargetView calls = %v, want one", got)
	}
}

type foreignBlend struct{}

func (foreignBlend) Backend() rhi.Backend                   { return rhi.BackendOpenGL }
func (foreignBlend) Dispose()                               {}
func (foreignBlend) Description() rhi.BlendStateDescription { return rhi.BlendStateDescription{} }

func TestForeignHandleReportedAtSwap(t *testing.T) {
	h := open(t, testConfig(), false)
	h.dev.reset()
	h.rc.SetBlendState(foreignBlend{})
	if got := h.dev.called("OMSetBlendState"); len(got) != 0 {
		t.Errorf("foreign blend state reached the device: %v", got)
	}
	if err := h.rc.SwapBuffers(); !errors.Is(err, rhi.ErrBackendMismatch) {
		t.Errorf("SwapBuffers() = %v, want ErrBackendMismatch", err)
	}
	if err := h.rc.SwapBuffers(); err != nil {
		t.Errorf("error reported twice: %v", err)
	}
}

func TestSwapChain(t *testing.T) {
	h := open(t, testConfig(), true)
	if h.swap.width != 64 || h.swap.height != 32 {
		t.Errorf("swap chain created at %dx%d, want 64x32", h.swap.width, h.swap.height)
	}
	color := h.rc.DefaultFramebuffer().ColorTexture(0).(*texture)
	if !color.backbuffer {
		t.Fatal("default color attachment is not the back buffer")
	}
	if err := color.GetTextureData(make([]byte, 4)); !errors.Is(err, rhi.ErrUnsupported) {
		t.Errorf("back buffer readback error = %v, want ErrUnsupported", err)
	}

	if err := h.rc.SwapBuffers(); err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(h.swap.intervals, []uint32{1}) {
		t.Errorf("Present intervals = %v, want [1]", h.swap.intervals)
	}

	old := color.raw.(*fakeObj)
	h.dev.reset()
	if err := h.rc.Resize(128, 96); err != nil {
		t.Fatalf("Resize() error = %v", err)
	}
	if !old.released {
		t.Error("old back buffer still referenced")
	}
	unbind, resize := h.dev.index("OMSetRenderTargets  nil"), h.dev.index("ResizeBuffers 128x96")
	if unbind < 0 || resize < 0 || unbind > resize {
		t.Errorf("render targets not unbound before ResizeBuffers: %v", h.dev.calls)
	}
	if h.dev.index("OMSetRenderTargets rtv#") < resize {
		t.Errorf("new back buffer not bound after resize: %v", h.dev.calls)
	}

	h.swap.presentErr = errors.New("DXGI_ERROR_DEVICE_REMOVED")
	if err := h.rc.SwapBuffers(); !errors.Is(err, h.swap.presentErr) {
		t.Errorf("SwapBuffers() error = %v, want the present error", err)
	}
}

func TestDispose(t *testing.T) {
	h := &harness{dev: newFakeDevice()}
	h.swap = &fakeSwapChain{dev: h.dev}
	rc, _, err := (&Backend{Bindings: fakeBindings(h.dev, h.swap)}).Open(testConfig())
	if err != nil {
		t.Fatal(err)
	}
	rc.Dispose()
	if !h.swap.released || !h.dev.released {
		t.Errorf("swap chain released=%v, device released=%v", h.swap.released, h.dev.released)
	}
	if h.dev.index("ClearState") < 0 {
		t.Error("context state not cleared on dispose")
	}
}

func TestUVConvention(t *testing.T) {
	h := open(t, testConfig(), false)
	if got := h.rc.TopLeftUV(); got != (mgl32.Vec2{0, 0}) {
		t.Errorf("TopLeftUV() = %v, want (0,0)", got)
	}
	if got := h.rc.BottomRightUV(); got != (mgl32.Vec2{1, 1}) {
		t.Errorf("BottomRightUV() = %v, want (1,1)", got)
	}
}

func TestRegister(t *testing.T) {
	dev := newFakeDevice()
	Register(fakeBindings(dev, nil))
	t.Cleanup(func() { backend.Unregister(backend.NameD3D11) })

	if got := backend.DefaultName(); got != backend.NameD3D11 {
		t.Errorf("DefaultName() = %q, want %q", got, backend.NameD3D11)
	}
	cfg := testConfig()
	cfg.Backend = backend.NameD3D11
	rc, f, err := backend.Open(cfg)
	if err != nil {
		t.Fatalf("backend.Open() error = %v", err)
	}
	defer rc.Dispose()
	defer f.Close()
	if rc.Backend() != rhi.BackendD3D11 {
		t.Errorf("Backend() = %v", rc.Backend())
	}
}
