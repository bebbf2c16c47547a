package d3d

import (
	"github.com/gogpu/rhi"
)

func pixelFormat(f rhi.PixelFormat) Format {
	switch f {
	case rhi.PixelFormatR32G32B32A32Float:
		return FormatR32G32B32A32Float
	case rhi.PixelFormatR8UInt:
		return FormatR8Uint
	case rhi.PixelFormatAlpha8UInt:
		return FormatA8Unorm
	case rhi.PixelFormatR8G8B8A8UInt:
		return FormatR8G8B8A8Unorm
	case rhi.PixelFormatAlpha16UInt:
		return FormatR16Unorm
	default:
		panic(rhi.IllegalValue(f))
	}
}

// indexFormat is the format the input assembler sees. D3D11 has no 8-bit
// indices; those buffers hold widened 16-bit values.
func indexFormat(f rhi.IndexFormat) Format {
	switch f {
	case rhi.IndexFormatUInt8, rhi.IndexFormatUInt16:
		return FormatR16Uint
	case rhi.IndexFormatUInt32:
		return FormatR32Uint
	default:
		panic(rhi.IllegalValue(f))
	}
}

func indexScale(f rhi.IndexFormat) int {
	if f == rhi.IndexFormatUInt8 {
		return 2
	}
	return 1
}

func vertexFormat(f rhi.VertexElementFormat) Format {
	switch f {
	case rhi.VertexElementFormatFloat1:
		return FormatR32Float
	case rhi.VertexElementFormatFloat2:
		return FormatR32G32Float
	case rhi.VertexElementFormatFloat3:
		return FormatR32G32B32Float
	case rhi.VertexElementFormatFloat4:
		return FormatR32G32B32A32Float
	case rhi.VertexElementFormatByte4Norm:
		return FormatR8G8B8A8Unorm
	case rhi.VertexElementFormatByte4:
		return FormatR8G8B8A8Uint
	case rhi.VertexElementFormatUInt1:
		return FormatR32Uint
	case rhi.VertexElementFormatUInt2:
		return FormatR32G32Uint
	case rhi.VertexElementFormatUInt3:
		return FormatR32G32B32Uint
	case rhi.VertexElementFormatUInt4:
		return FormatR32G32B32A32Uint
	default:
		panic(rhi.IllegalValue(f))
	}
}

func semanticName(s rhi.VertexSemanticType) string {
	switch s {
	case rhi.VertexSemanticTypePosition:
		return "POSITION"
	case rhi.VertexSemanticTypeTextureCoordinate:
		return "TEXCOORD"
	case rhi.VertexSemanticTypeNormal:
		return "NORMAL"
	case rhi.VertexSemanticTypeColor:
		return "COLOR"
	default:
		panic(rhi.IllegalValue(s))
	}
}

func inputClass(c rhi.VertexInputClass) InputClassification {
	switch c {
	case rhi.VertexInputClassPerVertex:
		return InputPerVertexData
	case rhi.VertexInputClassPerInstance:
		return InputPerInstanceData
	default:
		panic(rhi.IllegalValue(c))
	}
}

func blend(b rhi.Blend) Blend {
	switch b {
	case rhi.BlendZero:
		return BlendZero
	case rhi.BlendOne:
		return BlendOne
	case rhi.BlendSourceAlpha:
		return BlendSrcAlpha
	case rhi.BlendInverseSourceAlpha:
		return BlendInvSrcAlpha
	case rhi.BlendDestinationAlpha:
		return BlendDestAlpha
	case rhi.BlendInverseDestinationAlpha:
		return BlendInvDestAlpha
	case rhi.BlendSourceColor:
		return BlendSrcColor
	case rhi.BlendInverseSourceColor:
		return BlendInvSrcColor
	case rhi.BlendDestinationColor:
		return BlendDestColor
	case rhi.BlendInverseDestinationColor:
		return BlendInvDestColor
	case rhi.BlendBlendFactor:
		return BlendBlendFactor
	case rhi.BlendInverseBlendFactor:
		return BlendInvBlendFactor
	default:
		panic(rhi.IllegalValue(b))
	}
}

func blendOp(f rhi.BlendFunction) BlendOp {
	switch f {
	case rhi.BlendFunctionAdd:
		return BlendOpAdd
	case rhi.BlendFunctionSubtract:
		return BlendOpSubtract
	case rhi.BlendFunctionReverseSubtract:
		return BlendOpRevSubtract
	case rhi.BlendFunctionMinimum:
		return BlendOpMin
	case rhi.BlendFunctionMaximum:
		return BlendOpMax
	default:
		panic(rhi.IllegalValue(f))
	}
}

func comparison(c rhi.DepthComparison) ComparisonFunc {
	switch c {
	case rhi.DepthComparisonNever:
		return ComparisonNever
	case rhi.DepthComparisonLess:
		return ComparisonLess
	case rhi.DepthComparisonEqual:
		return ComparisonEqual
	case rhi.DepthComparisonLessEqual:
		return ComparisonLessEqual
	case rhi.DepthComparisonGreater:
		return ComparisonGreater
	case rhi.DepthComparisonNotEqual:
		return ComparisonNotEqual
	case rhi.DepthComparisonGreaterEqual:
		return ComparisonGreaterEqual
	case rhi.DepthComparisonAlways:
		return ComparisonAlways
	default:
		panic(rhi.IllegalValue(c))
	}
}

func cullMode(m rhi.FaceCullingMode) CullMode {
	switch m {
	case rhi.FaceCullingModeBack:
		return CullBack
	case rhi.FaceCullingModeFront:
		return CullFront
	case rhi.FaceCullingModeNone:
		return CullNone
	default:
		panic(rhi.IllegalValue(m))
	}
}

func fillMode(m rhi.TriangleFillMode) FillMode {
	switch m {
	case rhi.TriangleFillModeSolid:
		return FillSolid
	case rhi.TriangleFillModeWireframe:
		return FillWireframe
	default:
		panic(rhi.IllegalValue(m))
	}
}

func topology(t rhi.PrimitiveTopology) PrimitiveTopology {
	switch t {
	case rhi.PrimitiveTopologyTriangleList:
		return TopologyTriangleList
	case rhi.PrimitiveTopologyTriangleStrip:
		return TopologyTriangleStrip
	case rhi.PrimitiveTopologyLineList:
		return TopologyLineList
	case rhi.PrimitiveTopologyLineStrip:
		return TopologyLineStrip
	case rhi.PrimitiveTopologyPointList:
		return TopologyPointList
	default:
		panic(rhi.IllegalValue(t))
	}
}

// HLSL entry points and shader model 5.0 profiles per stage.
func entryPoint(t rhi.ShaderType) (entry, profile string) {
	switch t {
	case rhi.ShaderTypeVertex:
		return "VS", "vs_5_0"
	case rhi.ShaderTypeGeometry:
		return "GS", "gs_5_0"
	case rhi.ShaderTypeFragment:
		return "PS", "ps_5_0"
	default:
		panic(rhi.IllegalValue(t))
	}
}
