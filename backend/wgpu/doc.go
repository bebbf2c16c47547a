// Package wgpu is the webgpu backend, built on the gogpu/wgpu HAL.
//
// Importing the package registers it under backend.NameWebGPU:
//
//	import _ "github.com/gogpu/rhi/backend/wgpu"
//
//	rc, f, err := backend.Open(rhi.Config{Backend: backend.NameWebGPU, Width: 800, Height: 600})
//
// The HAL backend is chosen from Backend.Variants (Vulkan first by default).
// The noop HAL device is always linked in and is used when no GPU adapter
// is found, which makes the backend usable headless and in tests.
//
// # Shaders
//
// Shaders are WGSL. Every material resource lives in bind group 0:
//
//	@binding(i)        constant buffer i
//	@binding(n+2j)     texture for logical texture slot j (n = constant buffers)
//	@binding(n+2j+1)   sampler for logical texture slot j
//
// Vertex attributes use consecutive @location numbers across all vertex
// buffers, in input order.
//
// # Command recording
//
// Commands for a frame are recorded into one encoder and submitted by
// SwapBuffers. Pipelines are built on first use and cached per shader set and
// state combination.
//
// Writing to, or disposing, a resource that recorded commands still reference
// submits the recorded commands first, so draws always see the data that was
// current when they were issued.
//
// # Limitations
//
// Geometry shaders and wireframe fill are reported as rhi.ErrUnsupported.
// 8-bit index buffers are widened to 16 bits on upload.
package wgpu
