package rhi

import (
	"fmt"

	"github.com/gogpu/gputypes"
)

// Backend tags every resource with the backend family that created it.
type Backend uint8

const (
	BackendD3D11 Backend = iota + 1
	BackendOpenGL
	BackendWebGPU
)

func (b Backend) String() string {
	switch b {
	case BackendD3D11:
		return "d3d11"
	case BackendOpenGL:
		return "opengl"
	case BackendWebGPU:
		return "webgpu"
	default:
		return fmt.Sprintf("Backend(%d)", b)
	}
}

// PixelFormat is the closed set of texel layouts a texture can be created with.
type PixelFormat uint8

const (
	PixelFormatR32G32B32A32Float PixelFormat = iota
	PixelFormatR8UInt
	PixelFormatAlpha8UInt
	PixelFormatR8G8B8A8UInt
	PixelFormatAlpha16UInt
)

// SizeInBytes returns the size of one texel.
func (f PixelFormat) SizeInBytes() int {
	switch f {
	case PixelFormatR32G32B32A32Float:
		return 16
	case PixelFormatR8UInt, PixelFormatAlpha8UInt:
		return 1
	case PixelFormatR8G8B8A8UInt:
		return 4
	case PixelFormatAlpha16UInt:
		return 2
	default:
		panic(IllegalValue(f))
	}
}

// TextureFormat maps f to its WebGPU texture format.
func (f PixelFormat) TextureFormat() gputypes.TextureFormat {
	switch f {
	case PixelFormatR32G32B32A32Float:
		return gputypes.TextureFormatRGBA32Float
	case PixelFormatR8UInt:
		return gputypes.TextureFormatR8Uint
	case PixelFormatAlpha8UInt:
		return gputypes.TextureFormatR8Unorm
	case PixelFormatR8G8B8A8UInt:
		return gputypes.TextureFormatRGBA8Unorm
	case PixelFormatAlpha16UInt:
		return gputypes.TextureFormatR16Unorm
	default:
		panic(IllegalValue(f))
	}
}

func (f PixelFormat) String() string {
	switch f {
	case PixelFormatR32G32B32A32Float:
		return "R32G32B32A32Float"
	case PixelFormatR8UInt:
		return "R8UInt"
	case PixelFormatAlpha8UInt:
		return "Alpha8UInt"
	case PixelFormatR8G8B8A8UInt:
		return "R8G8B8A8UInt"
	case PixelFormatAlpha16UInt:
		return "Alpha16UInt"
	default:
		return fmt.Sprintf("PixelFormat(%d)", f)
	}
}

// IndexFormat is the width of one index.
type IndexFormat uint8

const (
	IndexFormatUInt32 IndexFormat = iota
	IndexFormatUInt16
	IndexFormatUInt8
)

// SizeInBytes returns the width of one index.
func (f IndexFormat) SizeInBytes() int {
	switch f {
	case IndexFormatUInt32:
		return 4
	case IndexFormatUInt16:
		return 2
	case IndexFormatUInt8:
		return 1
	default:
		panic(IllegalValue(f))
	}
}

// ShaderType identifies a programmable stage. Its value is also the stage's
// index into the render context's texture binding arrays.
type ShaderType uint8

const (
	ShaderTypeVertex ShaderType = iota
	ShaderTypeGeometry
	ShaderTypeFragment
)

// NumShaderStages is the number of programmable stages tracked per context.
const NumShaderStages = 3

// Stages returns the single-stage flag set for t.
func (t ShaderType) Stages() ShaderStages {
	switch t {
	case ShaderTypeVertex:
		return ShaderStageVertex
	case ShaderTypeGeometry:
		return ShaderStageGeometry
	case ShaderTypeFragment:
		return ShaderStageFragment
	default:
		panic(IllegalValue(t))
	}
}

func (t ShaderType) String() string {
	switch t {
	case ShaderTypeVertex:
		return "vertex"
	case ShaderTypeGeometry:
		return "geometry"
	case ShaderTypeFragment:
		return "fragment"
	default:
		return fmt.Sprintf("ShaderType(%d)", t)
	}
}

// ShaderStages is a set of stages a binding is visible to.
type ShaderStages uint8

const (
	ShaderStageVertex ShaderStages = 1 << iota
	ShaderStageGeometry
	ShaderStageFragment
)

// Has reports whether stage t is in the set.
func (s ShaderStages) Has(t ShaderType) bool {
	return s&t.Stages() != 0
}

// GPUStages maps the set to WebGPU visibility. Geometry has no WebGPU equivalent
// and is dropped.
func (s ShaderStages) GPUStages() gputypes.ShaderStages {
	var out gputypes.ShaderStages
	if s&ShaderStageVertex != 0 {
		out |= gputypes.ShaderStageVertex
	}
	if s&ShaderStageFragment != 0 {
		out |= gputypes.ShaderStageFragment
	}
	return out
}

// Blend is a blend factor.
type Blend uint8

const (
	BlendZero Blend = iota
	BlendOne
	BlendSourceAlpha
	BlendInverseSourceAlpha
	BlendDestinationAlpha
	BlendInverseDestinationAlpha
	BlendSourceColor
	BlendInverseSourceColor
	BlendDestinationColor
	BlendInverseDestinationColor
	BlendBlendFactor
	BlendInverseBlendFactor
)

// Factor maps b to its WebGPU blend factor.
func (b Blend) Factor() gputypes.BlendFactor {
	switch b {
	case BlendZero:
		return gputypes.BlendFactorZero
	case BlendOne:
		return gputypes.BlendFactorOne
	case BlendSourceAlpha:
		return gputypes.BlendFactorSrcAlpha
	case BlendInverseSourceAlpha:
		return gputypes.BlendFactorOneMinusSrcAlpha
	case BlendDestinationAlpha:
		return gputypes.BlendFactorDstAlpha
	case BlendInverseDestinationAlpha:
		return gputypes.BlendFactorOneMinusDstAlpha
	case BlendSourceColor:
		return gputypes.BlendFactorSrc
	case BlendInverseSourceColor:
		return gputypes.BlendFactorOneMinusSrc
	case BlendDestinationColor:
		return gputypes.BlendFactorDst
	case BlendInverseDestinationColor:
		return gputypes.BlendFactorOneMinusDst
	case BlendBlendFactor:
		return gputypes.BlendFactorConstant
	case BlendInverseBlendFactor:
		return gputypes.BlendFactorOneMinusConstant
	default:
		panic(IllegalValue(b))
	}
}

// BlendFunction combines source and destination terms.
type BlendFunction uint8

const (
	BlendFunctionAdd BlendFunction = iota
	BlendFunctionSubtract
	BlendFunctionReverseSubtract
	BlendFunctionMinimum
	BlendFunctionMaximum
)

// Operation maps f to its WebGPU blend operation.
func (f BlendFunction) Operation() gputypes.BlendOperation {
	switch f {
	case BlendFunctionAdd:
		return gputypes.BlendOperationAdd
	case BlendFunctionSubtract:
		return gputypes.BlendOperationSubtract
	case BlendFunctionReverseSubtract:
		return gputypes.BlendOperationReverseSubtract
	case BlendFunctionMinimum:
		return gputypes.BlendOperationMin
	case BlendFunctionMaximum:
		return gputypes.BlendOperationMax
	default:
		panic(IllegalValue(f))
	}
}

// PrimitiveTopology is how indices are assembled into primitives.
type PrimitiveTopology uint8

const (
	PrimitiveTopologyTriangleList PrimitiveTopology = iota
	PrimitiveTopologyTriangleStrip
	PrimitiveTopologyLineList
	PrimitiveTopologyLineStrip
	PrimitiveTopologyPointList
)

// GPUTopology maps t to its WebGPU topology.
func (t PrimitiveTopology) GPUTopology() gputypes.PrimitiveTopology {
	switch t {
	case PrimitiveTopologyTriangleList:
		return gputypes.PrimitiveTopologyTriangleList
	case PrimitiveTopologyTriangleStrip:
		return gputypes.PrimitiveTopologyTriangleStrip
	case PrimitiveTopologyLineList:
		return gputypes.PrimitiveTopologyLineList
	case PrimitiveTopologyLineStrip:
		return gputypes.PrimitiveTopologyLineStrip
	case PrimitiveTopologyPointList:
		return gputypes.PrimitiveTopologyPointList
	default:
		panic(IllegalValue(t))
	}
}

// IsStrip reports whether t needs a strip index format.
func (t PrimitiveTopology) IsStrip() bool {
	return t == PrimitiveTopologyTriangleStrip || t == PrimitiveTopologyLineStrip
}

// DepthComparison is the depth test function.
type DepthComparison uint8

const (
	DepthComparisonNever DepthComparison = iota
	DepthComparisonLess
	DepthComparisonEqual
	DepthComparisonLessEqual
	DepthComparisonGreater
	DepthComparisonNotEqual
	DepthComparisonGreaterEqual
	DepthComparisonAlways
)

// CompareFunction maps c to its WebGPU compare function.
func (c DepthComparison) CompareFunction() gputypes.CompareFunction {
	switch c {
	case DepthComparisonNever:
		return gputypes.CompareFunctionNever
	case DepthComparisonLess:
		return gputypes.CompareFunctionLess
	case DepthComparisonEqual:
		return gputypes.CompareFunctionEqual
	case DepthComparisonLessEqual:
		return gputypes.CompareFunctionLessEqual
	case DepthComparisonGreater:
		return gputypes.CompareFunctionGreater
	case DepthComparisonNotEqual:
		return gputypes.CompareFunctionNotEqual
	case DepthComparisonGreaterEqual:
		return gputypes.CompareFunctionGreaterEqual
	case DepthComparisonAlways:
		return gputypes.CompareFunctionAlways
	default:
		panic(IllegalValue(c))
	}
}

// FaceCullingMode selects which triangle faces are discarded.
type FaceCullingMode uint8

const (
	FaceCullingModeBack FaceCullingMode = iota
	FaceCullingModeFront
	FaceCullingModeNone
)

// CullMode maps m to its WebGPU cull mode.
func (m FaceCullingMode) CullMode() gputypes.CullMode {
	switch m {
	case FaceCullingModeBack:
		return gputypes.CullModeBack
	case FaceCullingModeFront:
		return gputypes.CullModeFront
	case FaceCullingModeNone:
		return gputypes.CullModeNone
	default:
		panic(IllegalValue(m))
	}
}

// TriangleFillMode selects solid or wireframe rasterization.
type TriangleFillMode uint8

const (
	TriangleFillModeSolid TriangleFillMode = iota
	TriangleFillModeWireframe
)

// VertexElementFormat is the type of one vertex attribute.
type VertexElementFormat uint8

const (
	VertexElementFormatFloat1 VertexElementFormat = iota
	VertexElementFormatFloat2
	VertexElementFormatFloat3
	VertexElementFormatFloat4
	VertexElementFormatByte4Norm
	VertexElementFormatByte4
	VertexElementFormatUInt1
	VertexElementFormatUInt2
	VertexElementFormatUInt3
	VertexElementFormatUInt4
)

// SizeInBytes returns the size of one attribute.
func (f VertexElementFormat) SizeInBytes() int {
	switch f {
	case VertexElementFormatFloat1, VertexElementFormatUInt1,
		VertexElementFormatByte4Norm, VertexElementFormatByte4:
		return 4
	case VertexElementFormatFloat2, VertexElementFormatUInt2:
		return 8
	case VertexElementFormatFloat3, VertexElementFormatUInt3:
		return 12
	case VertexElementFormatFloat4, VertexElementFormatUInt4:
		return 16
	default:
		panic(IllegalValue(f))
	}
}

// VertexFormat maps f to its WebGPU vertex format.
func (f VertexElementFormat) VertexFormat() gputypes.VertexFormat {
	switch f {
	case VertexElementFormatFloat1:
		return gputypes.VertexFormatFloat32
	case VertexElementFormatFloat2:
		return gputypes.VertexFormatFloat32x2
	case VertexElementFormatFloat3:
		return gputypes.VertexFormatFloat32x3
	case VertexElementFormatFloat4:
		return gputypes.VertexFormatFloat32x4
	case VertexElementFormatByte4Norm:
		return gputypes.VertexFormatUnorm8x4
	case VertexElementFormatByte4:
		return gputypes.VertexFormatUint8x4
	case VertexElementFormatUInt1:
		return gputypes.VertexFormatUint32
	case VertexElementFormatUInt2:
		return gputypes.VertexFormatUint32x2
	case VertexElementFormatUInt3:
		return gputypes.VertexFormatUint32x3
	case VertexElementFormatUInt4:
		return gputypes.VertexFormatUint32x4
	default:
		panic(IllegalValue(f))
	}
}

// ShaderFormat returns the type the vertex shader sees for f. Normalized
// byte attributes arrive as floats, integer bytes as 32-bit integers.
func (f VertexElementFormat) ShaderFormat() gputypes.VertexFormat {
	switch f {
	case VertexElementFormatByte4Norm:
		return gputypes.VertexFormatFloat32x4
	case VertexElementFormatByte4:
		return gputypes.VertexFormatUint32x4
	default:
		return f.VertexFormat()
	}
}

// VertexSemanticType tags what an attribute carries.
type VertexSemanticType uint8

const (
	VertexSemanticTypePosition VertexSemanticType = iota
	VertexSemanticTypeTextureCoordinate
	VertexSemanticTypeNormal
	VertexSemanticTypeColor
)

// VertexInputClass selects per-vertex or per-instance stepping.
type VertexInputClass uint8

const (
	VertexInputClassPerVertex VertexInputClass = iota
	VertexInputClassPerInstance
)

// ShaderConstantType is the type of one constant-buffer input.
type ShaderConstantType uint8

const (
	ShaderConstantTypeMatrix4x4 ShaderConstantType = iota
	ShaderConstantTypeFloat1
	ShaderConstantTypeFloat2
	ShaderConstantTypeFloat3
	ShaderConstantTypeFloat4
	ShaderConstantTypeInt1
	ShaderConstantTypeCustom
)

// SizeInBytes returns the size of one value. Custom types report 0; their
// size comes from the data provider.
func (t ShaderConstantType) SizeInBytes() int {
	switch t {
	case ShaderConstantTypeMatrix4x4:
		return 64
	case ShaderConstantTypeFloat1, ShaderConstantTypeInt1:
		return 4
	case ShaderConstantTypeFloat2:
		return 8
	case ShaderConstantTypeFloat3:
		return 12
	case ShaderConstantTypeFloat4:
		return 16
	case ShaderConstantTypeCustom:
		return 0
	default:
		panic(IllegalValue(t))
	}
}

// Color is a linear RGBA color.
type Color struct {
	R, G, B, A float32
}

// Common colors.
var (
	ColorBlack          = Color{0, 0, 0, 1}
	ColorWhite          = Color{1, 1, 1, 1}
	ColorClear          = Color{0, 0, 0, 0}
	ColorCornflowerBlue = Color{100.0 / 255, 149.0 / 255, 237.0 / 255, 1}
)

// GPUColor converts c to the WebGPU clear color.
func (c Color) GPUColor() gputypes.Color {
	return gputypes.Color{R: float64(c.R), G: float64(c.G), B: float64(c.B), A: float64(c.A)}
}

// RGBA8 returns c quantized to four bytes.
func (c Color) RGBA8() [4]byte {
	q := func(v float32) byte {
		switch {
		case v <= 0:
			return 0
		case v >= 1:
			return 255
		default:
			return byte(v*255 + 0.5)
		}
	}
	return [4]byte{q(c.R), q(c.G), q(c.B), q(c.A)}
}

// Viewport is the rectangle rasterized output maps to, in framebuffer pixels.
type Viewport struct {
	X, Y          int
	Width, Height int
}
