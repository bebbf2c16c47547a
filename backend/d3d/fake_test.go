package d3d

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// fakeObj is every native object of the fake device. Buffers and textures
// keep their contents in data; textures are tightly packed rows.
type fakeObj struct {
	kind     string
	id       int
	data     []byte
	pitch    int
	desc     any
	released bool
}

func (o *fakeObj) Release() { o.released = true }

func (o *fakeObj) String() string { return fmt.Sprintf("%s#%d", o.kind, o.id) }

func name(o any) string {
	if o == nil {
		return "nil"
	}
	if f, ok := o.(*fakeObj); ok && f != nil {
		return f.String()
	}
	return "nil"
}

// fakeDevice is a NativeDevice, its DeviceContext and a Compiler that record
// every call.
type fakeDevice struct {
	calls   []string
	objects []*fakeObj

	flags      CreateDeviceFlag
	compiles   []string
	compileErr error
	layoutErr  error
	layouts    [][]InputElementDesc
	released   bool
}

func newFakeDevice() *fakeDevice { return &fakeDevice{} }

func (f *fakeDevice) record(format string, args ...any) {
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
}

// called returns the recorded calls starting with prefix.
func (f *fakeDevice) called(prefix string) []string {
	var out []string
	for _, c := range f.calls {
		if strings.HasPrefix(c, prefix) {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeDevice) reset() { f.calls = nil }

func (f *fakeDevice) obj(kind string) *fakeObj {
	o := &fakeObj{kind: kind, id: len(f.objects)}
	f.objects = append(f.objects, o)
	return o
}

func (f *fakeDevice) ofKind(kind string) []*fakeObj {
	var out []*fakeObj
	for _, o := range f.objects {
		if o.kind == kind {
			out = append(out, o)
		}
	}
	return out
}

func texelSize(format Format) int {
	switch format {
	case FormatR32G32B32A32Float:
		return 16
	case FormatR16Unorm:
		return 2
	case FormatR8Uint, FormatA8Unorm:
		return 1
	default:
		return 4
	}
}

func (f *fakeDevice) CreateBuffer(desc *BufferDesc, initial []byte) (Buffer, error) {
	o := f.obj("buffer")
	o.desc = *desc
	o.data = make([]byte, desc.ByteWidth)
	copy(o.data, initial)
	f.record("CreateBuffer %d", desc.ByteWidth)
	return o, nil
}

func (f *fakeDevice) CreateTexture2D(desc *Texture2DDesc, initial []SubresourceData) (Texture2D, error) {
	o := f.obj("texture")
	o.desc = *desc
	o.pitch = int(desc.Width) * texelSize(desc.Format)
	layer := o.pitch * int(desc.Height)
	o.data = make([]byte, layer*int(max(desc.ArraySize, 1)))
	for i, sub := range initial {
		copy(o.data[i*layer:], sub.Data)
	}
	f.record("CreateTexture2D %dx%d usage=%d", desc.Width, desc.Height, desc.Usage)
	return o, nil
}

func (f *fakeDevice) CreateShaderResourceView(res Texture2D, desc *ShaderResourceViewDesc) (ShaderResourceView, error) {
	o := f.obj("srv")
	o.desc = *desc
	return o, nil
}

func (f *fakeDevice) CreateRenderTargetView(res Texture2D) (RenderTargetView, error) {
	o := f.obj("rtv")
	o.desc = res
	return o, nil
}

func (f *fakeDevice) CreateDepthStencilView(res Texture2D, format Format) (DepthStencilView, error) {
	o := f.obj("dsv")
	o.desc = res
	return o, nil
}

func (f *fakeDevice) CreateVertexShader(bytecode []byte) (VertexShader, error) {
	return f.obj("vs"), nil
}

func (f *fakeDevice) CreateGeometryShader(bytecode []byte) (GeometryShader, error) {
	return f.obj("gs"), nil
}

func (f *fakeDevice) CreatePixelShader(bytecode []byte) (PixelShader, error) {
	return f.obj("ps"), nil
}

func (f *fakeDevice) CreateInputLayout(elements []InputElementDesc, vsBytecode []byte) (InputLayout, error) {
	if f.layoutErr != nil {
		return nil, f.layoutErr
	}
	f.layouts = append(f.layouts, slices.Clone(elements))
	return f.obj("layout"), nil
}

func (f *fakeDevice) CreateBlendState(desc *BlendDesc) (BlendState, error) {
	o := f.obj("blend")
	o.desc = *desc
	return o, nil
}

func (f *fakeDevice) CreateDepthStencilState(desc *DepthStencilDesc) (DepthStencilState, error) {
	o := f.obj("depth")
	o.desc = *desc
	return o, nil
}

func (f *fakeDevice) CreateRasterizerState(desc *RasterizerDesc) (RasterizerState, error) {
	o := f.obj("raster")
	o.desc = *desc
	return o, nil
}

func (f *fakeDevice) CreateSamplerState(desc *SamplerDesc) (SamplerState, error) {
	o := f.obj("sampler")
	o.desc = *desc
	return o, nil
}

func (f *fakeDevice) ImmediateContext() DeviceContext { return f }
func (f *fakeDevice) Release()                        { f.released = true }

func (f *fakeDevice) Compile(source []byte, name, entryPoint, target string, flags CompileFlag) ([]byte, error) {
	if f.compileErr != nil {
		return nil, f.compileErr
	}
	f.compiles = append(f.compiles, fmt.Sprintf("%s %s %s flags=%d", name, entryPoint, target, flags))
	return []byte(entryPoint + "@" + target), nil
}

func (f *fakeDevice) IASetInputLayout(l InputLayout) { f.record("IASetInputLayout %s", name(l)) }

func (f *fakeDevice) IASetPrimitiveTopology(t PrimitiveTopology) {
	f.record("IASetPrimitiveTopology %d", t)
}

func (f *fakeDevice) IASetVertexBuffers(startSlot uint32, buffers []Buffer, strides, offsets []uint32) {
	f.record("IASetVertexBuffers %d %s stride=%d offset=%d", startSlot, name(buffers[0]), strides[0], offsets[0])
}

func (f *fakeDevice) IASetIndexBuffer(b Buffer, format Format, offset uint32) {
	f.record("IASetIndexBuffer %s format=%d", name(b), format)
}

func (f *fakeDevice) VSSetShader(s VertexShader)   { f.record("VSSetShader %s", name(s)) }
func (f *fakeDevice) GSSetShader(s GeometryShader) { f.record("GSSetShader %s", name(s)) }
func (f *fakeDevice) PSSetShader(s PixelShader)    { f.record("PSSetShader %s", name(s)) }

func names[T any](objs []T) string {
	s := make([]string, len(objs))
	for i, o := range objs {
		s[i] = name(o)
	}
	return strings.Join(s, ",")
}

func (f *fakeDevice) VSSetConstantBuffers(start uint32, b []Buffer) {
	f.record("VSSetConstantBuffers %d %s", start, names(b))
}

func (f *fakeDevice) GSSetConstantBuffers(start uint32, b []Buffer) {
	f.record("GSSetConstantBuffers %d %s", start, names(b))
}

func (f *fakeDevice) PSSetConstantBuffers(start uint32, b []Buffer) {
	f.record("PSSetConstantBuffers %d %s", start, names(b))
}

func (f *fakeDevice) VSSetShaderResources(start uint32, v []ShaderResourceView) {
	f.record("VSSetShaderResources %d %s", start, names(v))
}

func (f *fakeDevice) GSSetShaderResources(start uint32, v []ShaderResourceView) {
	f.record("GSSetShaderResources %d %s", start, names(v))
}

func (f *fakeDevice) PSSetShaderResources(start uint32, v []ShaderResourceView) {
	f.record("PSSetShaderResources %d %s", start, names(v))
}

func (f *fakeDevice) VSSetSamplers(start uint32, s []SamplerState) {
	f.record("VSSetSamplers %d %s", start, names(s))
}

func (f *fakeDevice) GSSetSamplers(start uint32, s []SamplerState) {
	f.record("GSSetSamplers %d %s", start, names(s))
}

func (f *fakeDevice) PSSetSamplers(start uint32, s []SamplerState) {
	f.record("PSSetSamplers %d %s", start, names(s))
}

func (f *fakeDevice) OMSetRenderTargets(rtvs []RenderTargetView, dsv DepthStencilView) {
	f.record("OMSetRenderTargets %s %s", names(rtvs), name(dsv))
}

func (f *fakeDevice) OMSetBlendState(s BlendState, factor [4]float32, sampleMask uint32) {
	f.record("OMSetBlendState %s %v", name(s), factor)
}

func (f *fakeDevice) OMSetDepthStencilState(s DepthStencilState, stencilRef uint32) {
	f.record("OMSetDepthStencilState %s", name(s))
}

func (f *fakeDevice) RSSetState(s RasterizerState) { f.record("RSSetState %s", name(s)) }

func (f *fakeDevice) RSSetViewports(vps []Viewport) {
	f.record("RSSetViewports %v", vps[0])
}

func (f *fakeDevice) RSSetScissorRects(rects []Rect) {
	f.record("RSSetScissorRects %v", rects[0])
}

func (f *fakeDevice) ClearRenderTargetView(rtv RenderTargetView, color [4]float32) {
	f.record("ClearRenderTargetView %s %v", name(rtv), color)
}

func (f *fakeDevice) ClearDepthStencilView(dsv DepthStencilView, flags ClearFlag, depth float32, stencil uint8) {
	f.record("ClearDepthStencilView %s flags=%d depth=%v stencil=%d", name(dsv), flags, depth, stencil)
}

func (f *fakeDevice) UpdateSubresource(dst Object, subresource uint32, box *Box, data []byte, rowPitch, depthPitch uint32) {
	o := dst.(*fakeObj)
	switch {
	case box == nil:
		copy(o.data, data)
		f.record("UpdateSubresource %s all", o)
	case o.kind == "buffer":
		copy(o.data[box.Left:box.Right], data)
		f.record("UpdateSubresource %s [%d,%d)", o, box.Left, box.Right)
	default:
		px := texelSize(o.desc.(Texture2DDesc).Format)
		w := int(box.Right-box.Left) * px
		for row := range int(box.Bottom - box.Top) {
			at := (int(box.Top)+row)*o.pitch + int(box.Left)*px
			copy(o.data[at:at+w], data[row*int(rowPitch):])
		}
		f.record("UpdateSubresource %s %v", o, *box)
	}
}

func (f *fakeDevice) CopyResource(dst, src Object) {
	copy(dst.(*fakeObj).data, src.(*fakeObj).data)
	f.record("CopyResource %s %s", name(dst), name(src))
}

var errNotMappable = errors.New("fake: resource is not mappable")

func (f *fakeDevice) Map(res Object, subresource uint32, typ MapType) (MappedSubresource, error) {
	o := res.(*fakeObj)
	f.record("Map %s %d", o, typ)
	if o.data == nil {
		return MappedSubresource{}, errNotMappable
	}
	return MappedSubresource{Data: o.data, RowPitch: uint32(o.pitch)}, nil
}

func (f *fakeDevice) Unmap(res Object, subresource uint32) { f.record("Unmap %s", name(res)) }

func (f *fakeDevice) DrawIndexed(indexCount, startIndex uint32, baseVertex int32) {
	f.record("DrawIndexed %d %d %d", indexCount, startIndex, baseVertex)
}

func (f *fakeDevice) DrawIndexedInstanced(indexCountPerInstance, instanceCount, startIndex uint32, baseVertex int32, startInstance uint32) {
	f.record("DrawIndexedInstanced %d %d %d %d %d", indexCountPerInstance, instanceCount, startIndex, baseVertex, startInstance)
}

func (f *fakeDevice) ClearState() { f.record("ClearState") }

// fakeSwapChain hands out a new back buffer object per GetBuffer.
type fakeSwapChain struct {
	dev        *fakeDevice
	width      uint32
	height     uint32
	intervals  []uint32
	presentErr error
	released   bool
}

func (s *fakeSwapChain) Present(syncInterval, flags uint32) error {
	s.intervals = append(s.intervals, syncInterval)
	return s.presentErr
}

func (s *fakeSwapChain) ResizeBuffers(bufferCount, width, height uint32, format Format, flags uint32) error {
	s.width, s.height = width, height
	s.dev.record("ResizeBuffers %dx%d", width, height)
	return nil
}

func (s *fakeSwapChain) GetBuffer(index uint32) (Texture2D, error) {
	return s.dev.obj("backbuffer"), nil
}

func (s *fakeSwapChain) Release() { s.released = true }
