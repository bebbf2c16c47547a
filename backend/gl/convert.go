package gl

import (
	"github.com/gogpu/rhi"
)

// texFormat is the storage of a pixel format: internal format, upload
// format and type, and whether the single channel is alpha.
type texFormat struct {
	internal int32
	format   uint32
	typ      uint32
	alpha    bool
}

func pixelFormat(f rhi.PixelFormat) texFormat {
	switch f {
	case rhi.PixelFormatR32G32B32A32Float:
		return texFormat{RGBA32F, RGBA, Float, false}
	case rhi.PixelFormatR8UInt:
		return texFormat{R8, Red, UnsignedByte, false}
	case rhi.PixelFormatAlpha8UInt:
		return texFormat{R8, Red, UnsignedByte, true}
	case rhi.PixelFormatR8G8B8A8UInt:
		return texFormat{RGBA8, RGBA, UnsignedByte, false}
	case rhi.PixelFormatAlpha16UInt:
		return texFormat{R16, Red, UnsignedShort, true}
	default:
		panic(rhi.IllegalValue(f))
	}
}

func indexType(f rhi.IndexFormat) uint32 {
	switch f {
	case rhi.IndexFormatUInt8:
		return UnsignedByte
	case rhi.IndexFormatUInt16:
		return UnsignedShort
	case rhi.IndexFormatUInt32:
		return UnsignedInt
	default:
		panic(rhi.IllegalValue(f))
	}
}

// attribFormat is a vertex attribute: component count and type, whether it
// is normalized, and whether it is read as an integer.
type attribFormat struct {
	size       int32
	typ        uint32
	normalized bool
	integer    bool
}

func vertexFormat(f rhi.VertexElementFormat) attribFormat {
	switch f {
	case rhi.VertexElementFormatFloat1:
		return attribFormat{1, Float, false, false}
	case rhi.VertexElementFormatFloat2:
		return attribFormat{2, Float, false, false}
	case rhi.VertexElementFormatFloat3:
		return attribFormat{3, Float, false, false}
	case rhi.VertexElementFormatFloat4:
		return attribFormat{4, Float, false, false}
	case rhi.VertexElementFormatByte4Norm:
		return attribFormat{4, UnsignedByte, true, false}
	case rhi.VertexElementFormatByte4:
		return attribFormat{4, UnsignedByte, false, true}
	case rhi.VertexElementFormatUInt1:
		return attribFormat{1, UnsignedInt, false, true}
	case rhi.VertexElementFormatUInt2:
		return attribFormat{2, UnsignedInt, false, true}
	case rhi.VertexElementFormatUInt3:
		return attribFormat{3, UnsignedInt, false, true}
	case rhi.VertexElementFormatUInt4:
		return attribFormat{4, UnsignedInt, false, true}
	default:
		panic(rhi.IllegalValue(f))
	}
}

func divisor(c rhi.VertexInputClass, stepRate int) uint32 {
	switch c {
	case rhi.VertexInputClassPerVertex:
		return 0
	case rhi.VertexInputClassPerInstance:
		return uint32(max(stepRate, 1))
	default:
		panic(rhi.IllegalValue(c))
	}
}

func blend(b rhi.Blend) uint32 {
	switch b {
	case rhi.BlendZero:
		return Zero
	case rhi.BlendOne:
		return One
	case rhi.BlendSourceAlpha:
		return SrcAlpha
	case rhi.BlendInverseSourceAlpha:
		return OneMinusSrcAlpha
	case rhi.BlendDestinationAlpha:
		return DstAlpha
	case rhi.BlendInverseDestinationAlpha:
		return OneMinusDstAlpha
	case rhi.BlendSourceColor:
		return SrcColor
	case rhi.BlendInverseSourceColor:
		return OneMinusSrcColor
	case rhi.BlendDestinationColor:
		return DstColor
	case rhi.BlendInverseDestinationColor:
		return OneMinusDstColor
	case rhi.BlendBlendFactor:
		return ConstantColor
	case rhi.BlendInverseBlendFactor:
		return OneMinusConstantColor
	default:
		panic(rhi.IllegalValue(b))
	}
}

func blendEquation(f rhi.BlendFunction) uint32 {
	switch f {
	case rhi.BlendFunctionAdd:
		return FuncAdd
	case rhi.BlendFunctionSubtract:
		return FuncSubtract
	case rhi.BlendFunctionReverseSubtract:
		return FuncReverseSubtract
	case rhi.BlendFunctionMinimum:
		return Min
	case rhi.BlendFunctionMaximum:
		return Max
	default:
		panic(rhi.IllegalValue(f))
	}
}

func depthFunc(c rhi.DepthComparison) uint32 {
	switch c {
	case rhi.DepthComparisonNever:
		return Never
	case rhi.DepthComparisonLess:
		return Less
	case rhi.DepthComparisonEqual:
		return Equal
	case rhi.DepthComparisonLessEqual:
		return Lequal
	case rhi.DepthComparisonGreater:
		return Greater
	case rhi.DepthComparisonNotEqual:
		return Notequal
	case rhi.DepthComparisonGreaterEqual:
		return Gequal
	case rhi.DepthComparisonAlways:
		return Always
	default:
		panic(rhi.IllegalValue(c))
	}
}

// cullFace returns the face to cull; ok is false when culling is off.
func cullFace(m rhi.FaceCullingMode) (face uint32, ok bool) {
	switch m {
	case rhi.FaceCullingModeBack:
		return Back, true
	case rhi.FaceCullingModeFront:
		return Front, true
	case rhi.FaceCullingModeNone:
		return 0, false
	default:
		panic(rhi.IllegalValue(m))
	}
}

func polygonMode(m rhi.TriangleFillMode) uint32 {
	switch m {
	case rhi.TriangleFillModeSolid:
		return Fill
	case rhi.TriangleFillModeWireframe:
		return Line
	default:
		panic(rhi.IllegalValue(m))
	}
}

func drawMode(t rhi.PrimitiveTopology) uint32 {
	switch t {
	case rhi.PrimitiveTopologyTriangleList:
		return Triangles
	case rhi.PrimitiveTopologyTriangleStrip:
		return TriangleStrip
	case rhi.PrimitiveTopologyLineList:
		return Lines
	case rhi.PrimitiveTopologyLineStrip:
		return LineStrip
	case rhi.PrimitiveTopologyPointList:
		return Points
	default:
		panic(rhi.IllegalValue(t))
	}
}

func shaderKind(t rhi.ShaderType) uint32 {
	switch t {
	case rhi.ShaderTypeVertex:
		return VertexShader
	case rhi.ShaderTypeGeometry:
		return GeometryShader
	case rhi.ShaderTypeFragment:
		return FragmentShader
	default:
		panic(rhi.IllegalValue(t))
	}
}

// textureUnit maps a per-stage slot to a GL texture unit. GL units are
// shared by all stages, so each stage owns a range of MaxTextureSlots.
func textureUnit(stage rhi.ShaderType, slot int) uint32 {
	switch stage {
	case rhi.ShaderTypeVertex, rhi.ShaderTypeGeometry, rhi.ShaderTypeFragment:
		return uint32(int(stage)*rhi.MaxTextureSlots + slot)
	default:
		panic(rhi.IllegalValue(stage))
	}
}

// scratchUnit is the unit used for uploads, outside every stage's range.
const scratchUnit = rhi.NumShaderStages * rhi.MaxTextureSlots
