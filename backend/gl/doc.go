// Package gl is the OpenGL 3.3 core backend.
//
// The package calls GL through the Functions table and never loads a GL
// library itself. Applications make a context current, wrap it in Bindings
// and call Register; package glcore provides bindings for a GLFW window:
//
//	b, err := glcore.New(win)
//	if err != nil {
//		return err
//	}
//	gl.Register(b)
//	rc, f, err := backend.Open(rhi.Config{Backend: backend.NameOpenGL, Width: 1280, Height: 720})
//
// All rendering must happen on the goroutine the context is current on.
//
// # Shaders
//
// GLSL sources are compiled as given; WGSL sources are translated to GLSL
// 3.30. GLSL 3.30 has no binding qualifiers, so resources are matched by name
// after linking:
//
//   - Constant i is bound at uniform buffer binding i. Native GLSL declares
//     it as a uniform block named like the constant input.
//   - Logical texture slot j of a stage is sampled from texture unit
//     stage*10+j. Native GLSL names the sampler uniform like the texture
//     input.
//   - Native GLSL vertex attributes are named like the vertex elements.
//     Translated shaders use their reflected locations.
//
// # Coordinates
//
// Viewports and scissor rectangles are given with a top-left origin and
// flipped against the bound framebuffer. Texture coordinates run bottom-up:
// TopLeftUV is (0,1).
//
// # Limitations
//
// WGSL has no geometry stage; geometry shaders must be GLSL.
// Depth textures cannot be written or read back.
// The window framebuffer has no texture attachments.
// Debug output needs KHR_debug; without it Config.Debug polls glGetError
// after every draw.
package gl
