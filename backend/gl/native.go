package gl

// Functions is the subset of OpenGL 3.3 core the backend calls. Methods are
// named after the GL entry points; handles are GL names, offsets are byte
// offsets into the bound buffer. The context must be current on the calling
// goroutine.
type Functions interface {
	GetError() uint32

	Enable(cap uint32)
	Disable(cap uint32)
	Viewport(x, y, width, height int32)
	Scissor(x, y, width, height int32)
	ClearColor(r, g, b, a float32)
	ClearDepth(depth float64)
	ClearStencil(s int32)
	Clear(mask uint32)
	ColorMask(r, g, b, a bool)
	DepthMask(flag bool)
	DepthFunc(fn uint32)
	BlendFuncSeparate(srcRGB, dstRGB, srcAlpha, dstAlpha uint32)
	BlendEquationSeparate(modeRGB, modeAlpha uint32)
	BlendColor(r, g, b, a float32)
	CullFace(mode uint32)
	PolygonMode(face, mode uint32)

	GenBuffer() uint32
	DeleteBuffer(buffer uint32)
	BindBuffer(target, buffer uint32)
	BindBufferBase(target, index, buffer uint32)
	BufferData(target uint32, size int, data []byte, usage uint32)
	BufferSubData(target uint32, offset int, data []byte)
	GetBufferSubData(target uint32, offset int, dst []byte)

	GenVertexArray() uint32
	DeleteVertexArray(array uint32)
	BindVertexArray(array uint32)
	EnableVertexAttribArray(index uint32)
	DisableVertexAttribArray(index uint32)
	VertexAttribPointer(index uint32, size int32, typ uint32, normalized bool, stride int32, offset int)
	VertexAttribIPointer(index uint32, size int32, typ uint32, stride int32, offset int)
	VertexAttribDivisor(index, divisor uint32)

	GenTexture() uint32
	DeleteTexture(texture uint32)
	ActiveTexture(unit uint32)
	BindTexture(target, texture uint32)
	TexParameteri(target, pname uint32, param int32)
	TexImage2D(target uint32, level, internalFormat, width, height int32, format, typ uint32, data []byte)
	TexSubImage2D(target uint32, level, x, y, width, height int32, format, typ uint32, data []byte)
	GetTexImage(target uint32, level int32, format, typ uint32, dst []byte)
	PixelStorei(pname uint32, param int32)

	GenFramebuffer() uint32
	DeleteFramebuffer(fb uint32)
	BindFramebuffer(target, fb uint32)
	FramebufferTexture2D(target, attachment, texTarget, texture uint32, level int32)
	DrawBuffers(bufs []uint32)
	CheckFramebufferStatus(target uint32) uint32

	CreateShader(typ uint32) uint32
	ShaderSource(shader uint32, source string)
	CompileShader(shader uint32)
	GetShaderi(shader, pname uint32) int32
	GetShaderInfoLog(shader uint32) string
	DeleteShader(shader uint32)
	CreateProgram() uint32
	AttachShader(program, shader uint32)
	LinkProgram(program uint32)
	GetProgrami(program, pname uint32) int32
	GetProgramInfoLog(program uint32) string
	UseProgram(program uint32)
	DeleteProgram(program uint32)
	GetAttribLocation(program uint32, name string) int32
	GetUniformLocation(program uint32, name string) int32
	Uniform1i(location, v int32)
	GetUniformBlockIndex(program uint32, name string) uint32
	UniformBlockBinding(program, index, binding uint32)

	DrawElementsBaseVertex(mode uint32, count int32, typ uint32, offset int, baseVertex int32)
	DrawElementsInstancedBaseVertex(mode uint32, count int32, typ uint32, offset int, instances, baseVertex int32)
}

// DebugOutput is implemented by Functions of a context with KHR_debug.
type DebugOutput interface {
	DebugMessageCallback(fn func(source, typ, id, severity uint32, message string))
}

// Surface is the window the default framebuffer (GL name 0) belongs to.
type Surface interface {
	SwapBuffers() error
	SetSwapInterval(interval int) error
}

// GL enums used by the backend.
const (
	NoError = 0

	Blend           = 0x0BE2
	CullFaceMode    = 0x0B44
	DepthTest       = 0x0B71
	ScissorTest     = 0x0C11
	DepthClamp      = 0x864F
	DebugOutputBit  = 0x92E0
	DebugOutputSync = 0x8242

	ColorBufferBit   = 0x4000
	DepthBufferBit   = 0x0100
	StencilBufferBit = 0x0400

	Zero                  = 0
	One                   = 1
	SrcColor              = 0x0300
	OneMinusSrcColor      = 0x0301
	SrcAlpha              = 0x0302
	OneMinusSrcAlpha      = 0x0303
	DstAlpha              = 0x0304
	OneMinusDstAlpha      = 0x0305
	DstColor              = 0x0306
	OneMinusDstColor      = 0x0307
	ConstantColor         = 0x8001
	OneMinusConstantColor = 0x8002

	FuncAdd             = 0x8006
	Min                 = 0x8007
	Max                 = 0x8008
	FuncSubtract        = 0x800A
	FuncReverseSubtract = 0x800B

	Never    = 0x0200
	Less     = 0x0201
	Equal    = 0x0202
	Lequal   = 0x0203
	Greater  = 0x0204
	Notequal = 0x0205
	Gequal   = 0x0206
	Always   = 0x0207

	Front        = 0x0404
	Back         = 0x0405
	FrontAndBack = 0x0408
	Line         = 0x1B01
	Fill         = 0x1B02

	Points        = 0x0000
	Lines         = 0x0001
	LineStrip     = 0x0003
	Triangles     = 0x0004
	TriangleStrip = 0x0005

	ArrayBuffer        = 0x8892
	ElementArrayBuffer = 0x8893
	UniformBuffer      = 0x8A11
	CopyWriteBuffer    = 0x8F37
	StaticDraw         = 0x88E4
	DynamicDraw        = 0x88E8

	UnsignedByte    = 0x1401
	UnsignedShort   = 0x1403
	Int             = 0x1404
	UnsignedInt     = 0x1405
	Float           = 0x1406
	UnsignedInt24_8 = 0x84FA

	Texture2D          = 0x0DE1
	TextureCubeMap     = 0x8513
	TextureCubeMapPosX = 0x8515
	Texture0           = 0x84C0
	TextureMagFilter   = 0x2800
	TextureMinFilter   = 0x2801
	TextureWrapS       = 0x2802
	TextureWrapT       = 0x2803
	TextureWrapR       = 0x8072
	TextureSwizzleR    = 0x8E42
	TextureSwizzleG    = 0x8E43
	TextureSwizzleB    = 0x8E44
	TextureSwizzleA    = 0x8E45
	TextureMaxLevel    = 0x813D
	Linear             = 0x2601
	ClampToEdge        = 0x812F
	UnpackAlignment    = 0x0CF5
	PackAlignment      = 0x0D05
	Red                = 0x1903
	Alpha              = 0x1906
	RGBA               = 0x1908
	R8                 = 0x8229
	R16                = 0x822A
	RGBA8              = 0x8058
	RGBA32F            = 0x8814
	DepthStencil       = 0x84F9
	Depth24Stencil8    = 0x88F0

	Framebuffer            = 0x8D40
	ColorAttachment0       = 0x8CE0
	DepthStencilAttachment = 0x821A
	FramebufferComplete    = 0x8CD5
	None                   = 0

	VertexShader   = 0x8B31
	FragmentShader = 0x8B30
	GeometryShader = 0x8DD9
	CompileStatus  = 0x8B81
	LinkStatus     = 0x8B82
	InvalidIndex   = 0xFFFFFFFF

	DebugSeverityHigh         = 0x9146
	DebugSeverityMedium       = 0x9147
	DebugSeverityLow          = 0x9148
	DebugSeverityNotification = 0x826B
)
