// Package d3d is the Direct3D 11 backend.
//
// The package does not load d3d11.dll itself. The application supplies the
// native device, swap chain and shader compiler through Bindings and calls
// Register, after which the backend is available as backend.NameD3D11 and
// preferred over webgpu:
//
//	d3d.Register(d3d.Bindings{
//		CreateDevice:    win.CreateDevice,
//		CreateSwapChain: win.SwapChainFor(hwnd),
//		Compiler:        win.Compiler{},
//	})
//	rc, f, err := backend.Open(rhi.Config{Width: 1280, Height: 720})
//
// # Shaders
//
// HLSL sources are compiled with shader model 5.0 and entry points VS, GS and
// PS. WGSL sources are translated to HLSL first and keep their own entry
// points; resources are packed per register class in binding order, so
// constant buffer i is b<i>, and logical texture j is t<j> with its sampler
// at s<j>. Translated vertex shaders read attributes through the semantics
// LOC0..LOCn, numbered across all vertex buffers in input order.
//
// Native HLSL vertex inputs use the POSITION, TEXCOORD, NORMAL and COLOR
// semantics of each element, indexed per semantic in declaration order.
//
// # Limitations
//
// WGSL has no geometry stage; geometry shaders must be HLSL.
// 8-bit index buffers are widened to 16 bits on upload.
// Depth and swap chain textures cannot be written or read back.
package d3d
