package rhi

import (
	"image"

	"github.com/go-gl/mathgl/mgl32"
)

// Platform is the device-specific half of a RenderContext. Each backend
// implements it once. The render context performs all dirty checking and
// hazard resolution before calling in, so every call here is a real state
// change or draw.
type Platform interface {
	Backend() Backend

	// Clear clears every color attachment of fb to color and its depth
	// attachment, if any, to depth and stencil.
	Clear(fb Framebuffer, color Color, depth float32, stencil uint8)

	// SwapBuffers presents the swap surface, waiting presentInterval vertical blanks.
	SwapBuffers(presentInterval int) error

	// ResizeSwapSurface resizes the window-backed surface. The previous
	// default framebuffer has already been disposed.
	ResizeSwapSurface(width, height int) error

	// CreateDefaultFramebuffer builds the window-backed framebuffer: color from
	// the swap surface, depth newly allocated at the same size.
	CreateDefaultFramebuffer(width, height int) (Framebuffer, error)

	SetViewport(v Viewport)
	SetScissorRectangle(r image.Rectangle)
	SetPrimitiveTopology(t PrimitiveTopology)
	SetVertexBuffer(slot int, vb VertexBuffer)
	SetIndexBuffer(ib IndexBuffer)
	SetShaderSet(ss ShaderSet)
	SetShaderConstantBindings(b ShaderConstantBindings)
	SetShaderTextureBindingSlots(s ShaderTextureBindingSlots)

	// SetTexture binds b at the native slot of stage. b may be nil.
	SetTexture(stage ShaderType, slot int, b ShaderTextureBinding)

	// UnbindTexture clears the shader-resource binding at the native slot of stage.
	UnbindTexture(stage ShaderType, slot int)

	SetFramebuffer(fb Framebuffer)
	SetBlendState(s BlendState)
	SetDepthStencilState(s DepthStencilState)
	SetRasterizerState(s RasterizerState)

	DrawIndexedPrimitives(count, startIndex, startVertex int)
	DrawInstancedPrimitives(indexCount, instanceCount, startIndex, startVertex, startInstance int)

	// ClearMaterialResourceBindings drops per-material native bindings before a
	// different material is applied.
	ClearMaterialResourceBindings()

	// TopLeftUV and BottomRightUV report the texture coordinates of the
	// corresponding image corners.
	TopLeftUV() mgl32.Vec2
	BottomRightUV() mgl32.Vec2

	Dispose()
}
