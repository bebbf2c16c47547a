package rhi

// Limits of the fixed binding arrays held by RenderContext.
const (
	MaxTextureSlots     = 10
	MaxVertexBuffers    = 4
	MaxColorAttachments = 4
)

// Resource is the capability every handle has. A handle is created by one
// factory, owned by the caller, and released with Dispose. Using a handle
// after Dispose is undefined.
type Resource interface {
	// Backend reports which backend created the handle.
	Backend() Backend
	Dispose()
}

// Buffer is GPU memory holding vertex, index, or constant data.
//
// Uploads that do not fit reallocate the native storage to the required
// size and increment Generation. A render context that had the old storage
// bound notices the new generation and binds again on the next Set call.
type Buffer interface {
	Resource
	SizeInBytes() int
	Generation() uint64
	SetData(data []byte, offsetInBytes int) error
	GetData(dst []byte, offsetInBytes int) error
}

// VertexDescriptor describes interleaved vertex data being uploaded.
type VertexDescriptor struct {
	// VertexSizeInBytes is the stride between consecutive vertices.
	VertexSizeInBytes int
	// ElementCount is the number of attributes per vertex.
	ElementCount int
	// Offset is the byte offset applied when the buffer is bound.
	Offset int
}

// VertexBuffer holds interleaved vertices.
type VertexBuffer interface {
	Buffer
	// SetVertexData uploads data starting at vertex destinationOffset.
	SetVertexData(data []byte, desc VertexDescriptor, destinationOffset int) error
	// Stride and Offset are taken from the last SetVertexData descriptor.
	Stride() int
	Offset() int
}

// IndexBuffer holds indices of a fixed width.
type IndexBuffer interface {
	Buffer
	Format() IndexFormat
	// SetIndexData uploads packed indices and switches the buffer to format.
	SetIndexData(data []byte, format IndexFormat, offsetInBytes int) error
}

// ConstantBuffer holds shader constants.
type ConstantBuffer interface {
	Buffer
}

// DeviceTexture is any texture the device can sample or render to.
type DeviceTexture interface {
	Resource
	Width() int
	Height() int
	Format() PixelFormat
}

// Texture2D is a single 2D image.
type Texture2D interface {
	DeviceTexture
	SetTextureData(x, y, width, height int, data []byte) error
	GetTextureData(dst []byte) error
}

// CubemapTexture is six square faces in +X, -X, +Y, -Y, +Z, -Z order.
type CubemapTexture interface {
	DeviceTexture
}

// ShaderTextureBinding is a shader-resource view of a texture. It references
// the texture, it does not own it.
type ShaderTextureBinding interface {
	Resource
	BoundTexture() DeviceTexture
}

// Framebuffer is a set of render targets. Attachments are referenced, not
// owned. Attachments changed while the framebuffer is bound take effect on
// the next SetFramebuffer.
type Framebuffer interface {
	Resource
	Width() int
	Height() int
	// Generation increases whenever an attachment changes.
	Generation() uint64
	// ColorTexture returns the attachment at index i, or nil.
	ColorTexture(i int) DeviceTexture
	DepthTexture() DeviceTexture
	AttachColorTexture(i int, tex Texture2D) error
	SetDepthTexture(tex Texture2D) error
}

// BlendStateDescription configures color blending for every render target.
type BlendStateDescription struct {
	Enabled          bool
	SourceColor      Blend
	DestinationColor Blend
	ColorFunction    BlendFunction
	SourceAlpha      Blend
	DestinationAlpha Blend
	AlphaFunction    BlendFunction
	BlendFactor      Color
}

// Common blend descriptions.
var (
	BlendOverride = BlendStateDescription{
		SourceColor: BlendOne, DestinationColor: BlendZero, ColorFunction: BlendFunctionAdd,
		SourceAlpha: BlendOne, DestinationAlpha: BlendZero, AlphaFunction: BlendFunctionAdd,
	}
	BlendAlpha = BlendStateDescription{
		Enabled:     true,
		SourceColor: BlendSourceAlpha, DestinationColor: BlendInverseSourceAlpha, ColorFunction: BlendFunctionAdd,
		SourceAlpha: BlendSourceAlpha, DestinationAlpha: BlendInverseSourceAlpha, AlphaFunction: BlendFunctionAdd,
	}
	BlendAdditive = BlendStateDescription{
		Enabled:     true,
		SourceColor: BlendSourceAlpha, DestinationColor: BlendOne, ColorFunction: BlendFunctionAdd,
		SourceAlpha: BlendSourceAlpha, DestinationAlpha: BlendOne, AlphaFunction: BlendFunctionAdd,
	}
)

// DepthStencilDescription configures the depth test.
type DepthStencilDescription struct {
	DepthTestEnabled  bool
	DepthWriteEnabled bool
	Comparison        DepthComparison
}

// RasterizerDescription configures triangle rasterization.
type RasterizerDescription struct {
	CullMode           FaceCullingMode
	FillMode           TriangleFillMode
	DepthClipEnabled   bool
	ScissorTestEnabled bool
}

// BlendState is an immutable blend configuration.
type BlendState interface {
	Resource
	Description() BlendStateDescription
}

// DepthStencilState is an immutable depth configuration.
type DepthStencilState interface {
	Resource
	Description() DepthStencilDescription
}

// RasterizerState is an immutable rasterizer configuration.
type RasterizerState interface {
	Resource
	Description() RasterizerDescription
}

// Shader is one compiled stage.
type Shader interface {
	Resource
	Type() ShaderType
	Name() string
}

// VertexInputLayout binds vertex buffer contents to vertex shader inputs.
type VertexInputLayout interface {
	Resource
	Inputs() []MaterialVertexInput
}

// ShaderSet is a linked program: layout plus vertex, optional geometry, and
// fragment shaders.
type ShaderSet interface {
	Resource
	InputLayout() VertexInputLayout
	VertexShader() Shader
	// GeometryShader returns nil when the set has no geometry stage.
	GeometryShader() Shader
	FragmentShader() Shader
}

// ShaderConstantBindings holds the constant buffers a material feeds its shaders.
type ShaderConstantBindings interface {
	Resource
	// UpdateGlobalInputs uploads global provider data that changed since
	// the last upload.
	UpdateGlobalInputs() error
	// ApplyPerObjectInput uploads p into the first per-object buffer.
	ApplyPerObjectInput(p ConstantBufferDataProvider) error
	// ApplyPerObjectInputs uploads ps into the per-object buffers in order.
	ApplyPerObjectInputs(ps []ConstantBufferDataProvider) error
}

// TextureBindingSlot resolves one logical texture input to the stages it is
// visible to and its native slot on each of them.
type TextureBindingSlot struct {
	Stages      ShaderStages
	DeviceSlots [NumShaderStages]int
}

// ShaderTextureBindingSlots is the texture slot table of a shader set.
type ShaderTextureBindingSlots interface {
	Resource
	Len() int
	Slot(i int) TextureBindingSlot
}
