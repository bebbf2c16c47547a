package d3d

// The interfaces below are the slice of Direct3D 11 the backend drives. They
// are supplied by the application (usually a thin cgo or syscall wrapper over
// d3d11.dll) through Bindings. Methods are named after the D3D11 calls they
// stand for and take the same arguments, minus out-parameters.

// Object is any native object. Release drops the reference the backend holds.
type Object interface {
	Release()
}

type (
	Buffer             interface{ Object }
	Texture2D          interface{ Object }
	ShaderResourceView interface{ Object }
	RenderTargetView   interface{ Object }
	DepthStencilView   interface{ Object }
	VertexShader       interface{ Object }
	GeometryShader     interface{ Object }
	PixelShader        interface{ Object }
	InputLayout        interface{ Object }
	BlendState         interface{ Object }
	DepthStencilState  interface{ Object }
	RasterizerState    interface{ Object }
	SamplerState       interface{ Object }
)

// NativeDevice is ID3D11Device.
type NativeDevice interface {
	CreateBuffer(desc *BufferDesc, initial []byte) (Buffer, error)
	CreateTexture2D(desc *Texture2DDesc, initial []SubresourceData) (Texture2D, error)
	CreateShaderResourceView(res Texture2D, desc *ShaderResourceViewDesc) (ShaderResourceView, error)
	CreateRenderTargetView(res Texture2D) (RenderTargetView, error)
	CreateDepthStencilView(res Texture2D, format Format) (DepthStencilView, error)
	CreateVertexShader(bytecode []byte) (VertexShader, error)
	CreateGeometryShader(bytecode []byte) (GeometryShader, error)
	CreatePixelShader(bytecode []byte) (PixelShader, error)
	CreateInputLayout(elements []InputElementDesc, vsBytecode []byte) (InputLayout, error)
	CreateBlendState(desc *BlendDesc) (BlendState, error)
	CreateDepthStencilState(desc *DepthStencilDesc) (DepthStencilState, error)
	CreateRasterizerState(desc *RasterizerDesc) (RasterizerState, error)
	CreateSamplerState(desc *SamplerDesc) (SamplerState, error)
	ImmediateContext() DeviceContext
	Release()
}

// DeviceContext is ID3D11DeviceContext, the immediate context.
type DeviceContext interface {
	IASetInputLayout(l InputLayout)
	IASetPrimitiveTopology(t PrimitiveTopology)
	IASetVertexBuffers(startSlot uint32, buffers []Buffer, strides, offsets []uint32)
	IASetIndexBuffer(b Buffer, format Format, offset uint32)

	VSSetShader(s VertexShader)
	GSSetShader(s GeometryShader)
	PSSetShader(s PixelShader)
	VSSetConstantBuffers(startSlot uint32, buffers []Buffer)
	GSSetConstantBuffers(startSlot uint32, buffers []Buffer)
	PSSetConstantBuffers(startSlot uint32, buffers []Buffer)
	VSSetShaderResources(startSlot uint32, views []ShaderResourceView)
	GSSetShaderResources(startSlot uint32, views []ShaderResourceView)
	PSSetShaderResources(startSlot uint32, views []ShaderResourceView)
	VSSetSamplers(startSlot uint32, samplers []SamplerState)
	GSSetSamplers(startSlot uint32, samplers []SamplerState)
	PSSetSamplers(startSlot uint32, samplers []SamplerState)

	OMSetRenderTargets(rtvs []RenderTargetView, dsv DepthStencilView)
	OMSetBlendState(s BlendState, factor [4]float32, sampleMask uint32)
	OMSetDepthStencilState(s DepthStencilState, stencilRef uint32)
	RSSetState(s RasterizerState)
	RSSetViewports(vps []Viewport)
	RSSetScissorRects(rects []Rect)

	ClearRenderTargetView(rtv RenderTargetView, color [4]float32)
	ClearDepthStencilView(dsv DepthStencilView, flags ClearFlag, depth float32, stencil uint8)

	UpdateSubresource(dst Object, subresource uint32, box *Box, data []byte, rowPitch, depthPitch uint32)
	CopyResource(dst, src Object)
	Map(res Object, subresource uint32, typ MapType) (MappedSubresource, error)
	Unmap(res Object, subresource uint32)

	DrawIndexed(indexCount, startIndex uint32, baseVertex int32)
	DrawIndexedInstanced(indexCountPerInstance, instanceCount, startIndex uint32, baseVertex int32, startInstance uint32)
	ClearState()
}

// SwapChain is IDXGISwapChain.
type SwapChain interface {
	Present(syncInterval, flags uint32) error
	ResizeBuffers(bufferCount, width, height uint32, format Format, flags uint32) error
	GetBuffer(index uint32) (Texture2D, error)
	Release()
}

// Compiler is D3DCompile.
type Compiler interface {
	Compile(source []byte, name, entryPoint, target string, flags CompileFlag) ([]byte, error)
}

// Format is DXGI_FORMAT.
type Format uint32

const (
	FormatUnknown            Format = 0
	FormatR32G32B32A32Float  Format = 2
	FormatR32G32B32A32Uint   Format = 3
	FormatR32G32B32Float     Format = 6
	FormatR32G32B32Uint      Format = 7
	FormatR32G32Float        Format = 16
	FormatR32G32Uint         Format = 17
	FormatR8G8B8A8Unorm      Format = 28
	FormatR8G8B8A8Uint       Format = 30
	FormatR32Float           Format = 41
	FormatR32Uint            Format = 42
	FormatR24G8Typeless      Format = 44
	FormatD24UnormS8Uint     Format = 45
	FormatR24UnormX8Typeless Format = 46
	FormatR16Unorm           Format = 56
	FormatR16Uint            Format = 57
	FormatR8Unorm            Format = 61
	FormatR8Uint             Format = 62
	FormatA8Unorm            Format = 65
	FormatB8G8R8A8Unorm      Format = 87
)

// Usage is D3D11_USAGE.
type Usage uint32

const (
	UsageDefault   Usage = 0
	UsageImmutable Usage = 1
	UsageDynamic   Usage = 2
	UsageStaging   Usage = 3
)

// BindFlag is D3D11_BIND_FLAG.
type BindFlag uint32

const (
	BindVertexBuffer   BindFlag = 0x1
	BindIndexBuffer    BindFlag = 0x2
	BindConstantBuffer BindFlag = 0x4
	BindShaderResource BindFlag = 0x8
	BindRenderTarget   BindFlag = 0x20
	BindDepthStencil   BindFlag = 0x40
)

// CPUAccess is D3D11_CPU_ACCESS_FLAG.
type CPUAccess uint32

const (
	CPUAccessWrite CPUAccess = 0x10000
	CPUAccessRead  CPUAccess = 0x20000
)

// MiscFlag is D3D11_RESOURCE_MISC_FLAG.
type MiscFlag uint32

const MiscTextureCube MiscFlag = 0x4

// MapType is D3D11_MAP.
type MapType uint32

const (
	MapRead         MapType = 1
	MapWrite        MapType = 2
	MapWriteDiscard MapType = 4
)

// ClearFlag is D3D11_CLEAR_FLAG.
type ClearFlag uint32

const (
	ClearDepth   ClearFlag = 0x1
	ClearStencil ClearFlag = 0x2
)

// CreateDeviceFlag is D3D11_CREATE_DEVICE_FLAG.
type CreateDeviceFlag uint32

const (
	CreateDeviceDebug       CreateDeviceFlag = 0x2
	CreateDeviceBGRASupport CreateDeviceFlag = 0x20
)

// CompileFlag is the D3DCOMPILE_* flag set.
type CompileFlag uint32

const (
	CompileDebug            CompileFlag = 1 << 0
	CompileSkipOptimization CompileFlag = 1 << 2
	CompileEnableStrictness CompileFlag = 1 << 11
)

// PrimitiveTopology is D3D11_PRIMITIVE_TOPOLOGY.
type PrimitiveTopology uint32

const (
	TopologyPointList     PrimitiveTopology = 1
	TopologyLineList      PrimitiveTopology = 2
	TopologyLineStrip     PrimitiveTopology = 3
	TopologyTriangleList  PrimitiveTopology = 4
	TopologyTriangleStrip PrimitiveTopology = 5
)

// Blend is D3D11_BLEND.
type Blend uint32

const (
	BlendZero           Blend = 1
	BlendOne            Blend = 2
	BlendSrcColor       Blend = 3
	BlendInvSrcColor    Blend = 4
	BlendSrcAlpha       Blend = 5
	BlendInvSrcAlpha    Blend = 6
	BlendDestAlpha      Blend = 7
	BlendInvDestAlpha   Blend = 8
	BlendDestColor      Blend = 9
	BlendInvDestColor   Blend = 10
	BlendBlendFactor    Blend = 14
	BlendInvBlendFactor Blend = 15
)

// BlendOp is D3D11_BLEND_OP.
type BlendOp uint32

const (
	BlendOpAdd         BlendOp = 1
	BlendOpSubtract    BlendOp = 2
	BlendOpRevSubtract BlendOp = 3
	BlendOpMin         BlendOp = 4
	BlendOpMax         BlendOp = 5
)

// ComparisonFunc is D3D11_COMPARISON_FUNC.
type ComparisonFunc uint32

const (
	ComparisonNever        ComparisonFunc = 1
	ComparisonLess         ComparisonFunc = 2
	ComparisonEqual        ComparisonFunc = 3
	ComparisonLessEqual    ComparisonFunc = 4
	ComparisonGreater      ComparisonFunc = 5
	ComparisonNotEqual     ComparisonFunc = 6
	ComparisonGreaterEqual ComparisonFunc = 7
	ComparisonAlways       ComparisonFunc = 8
)

// CullMode is D3D11_CULL_MODE.
type CullMode uint32

const (
	CullNone  CullMode = 1
	CullFront CullMode = 2
	CullBack  CullMode = 3
)

// FillMode is D3D11_FILL_MODE.
type FillMode uint32

const (
	FillWireframe FillMode = 2
	FillSolid     FillMode = 3
)

// InputClassification is D3D11_INPUT_CLASSIFICATION.
type InputClassification uint32

const (
	InputPerVertexData   InputClassification = 0
	InputPerInstanceData InputClassification = 1
)

// SRVDimension is D3D11_SRV_DIMENSION.
type SRVDimension uint32

const (
	SRVDimensionTexture2D   SRVDimension = 4
	SRVDimensionTextureCube SRVDimension = 9
)

// Filter is D3D11_FILTER.
type Filter uint32

const FilterMinMagMipLinear Filter = 0x15

// TextureAddressMode is D3D11_TEXTURE_ADDRESS_MODE.
type TextureAddressMode uint32

const (
	AddressWrap  TextureAddressMode = 1
	AddressClamp TextureAddressMode = 3
)

// DepthWriteMask is D3D11_DEPTH_WRITE_MASK.
type DepthWriteMask uint32

const (
	DepthWriteMaskZero DepthWriteMask = 0
	DepthWriteMaskAll  DepthWriteMask = 1
)

// ColorWriteEnableAll is D3D11_COLOR_WRITE_ENABLE_ALL.
const ColorWriteEnableAll uint8 = 0xf

type BufferDesc struct {
	ByteWidth      uint32
	Usage          Usage
	BindFlags      BindFlag
	CPUAccessFlags CPUAccess
}

type Texture2DDesc struct {
	Width, Height  uint32
	MipLevels      uint32
	ArraySize      uint32
	Format         Format
	SampleCount    uint32
	Usage          Usage
	BindFlags      BindFlag
	CPUAccessFlags CPUAccess
	MiscFlags      MiscFlag
}

// SubresourceData is D3D11_SUBRESOURCE_DATA.
type SubresourceData struct {
	Data     []byte
	RowPitch uint32
}

type ShaderResourceViewDesc struct {
	Format    Format
	Dimension SRVDimension
	MipLevels uint32
}

type InputElementDesc struct {
	SemanticName         string
	SemanticIndex        uint32
	Format               Format
	InputSlot            uint32
	AlignedByteOffset    uint32
	InputSlotClass       InputClassification
	InstanceDataStepRate uint32
}

// BlendDesc is D3D11_BLEND_DESC with one render target description applied
// to every target.
type BlendDesc struct {
	BlendEnable           bool
	SrcBlend              Blend
	DestBlend             Blend
	BlendOp               BlendOp
	SrcBlendAlpha         Blend
	DestBlendAlpha        Blend
	BlendOpAlpha          BlendOp
	RenderTargetWriteMask uint8
}

// DepthStencilDesc is D3D11_DEPTH_STENCIL_DESC without the stencil faces,
// which are always disabled.
type DepthStencilDesc struct {
	DepthEnable    bool
	DepthWriteMask DepthWriteMask
	DepthFunc      ComparisonFunc
}

type RasterizerDesc struct {
	FillMode              FillMode
	CullMode              CullMode
	FrontCounterClockwise bool
	DepthClipEnable       bool
	ScissorEnable         bool
}

type SamplerDesc struct {
	Filter                       Filter
	AddressU, AddressV, AddressW TextureAddressMode
	MaxAnisotropy                uint32
	ComparisonFunc               ComparisonFunc
	MinLOD, MaxLOD               float32
}

// Viewport is D3D11_VIEWPORT.
type Viewport struct {
	TopLeftX, TopLeftY float32
	Width, Height      float32
	MinDepth, MaxDepth float32
}

// Rect is D3D11_RECT.
type Rect struct {
	Left, Top, Right, Bottom int32
}

// Box is D3D11_BOX.
type Box struct {
	Left, Top, Front, Right, Bottom, Back uint32
}

// MappedSubresource is D3D11_MAPPED_SUBRESOURCE.
type MappedSubresource struct {
	Data       []byte
	RowPitch   uint32
	DepthPitch uint32
}
