// Package backend selects and opens rhi backends.
//
// Backends register a factory under a name from init() and are selected at
// runtime, either by name from rhi.Config.Backend or by priority:
//
//	import _ "github.com/gogpu/rhi/backend/wgpu"
//
//	rc, f, err := backend.Open(rhi.NewConfig())
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer rc.Dispose()
//	defer f.Close()
//
// # Available Backends
//
//   - "webgpu": gogpu/wgpu HAL devices (Vulkan, Metal, DX12, GLES, or the
//     headless noop device). Registers itself on import.
//   - "d3d11": Direct3D 11 through an application-supplied binding of the
//     d3d.Device interfaces. Registered with d3d.Register.
//   - "opengl": OpenGL 3.3 core through an application-supplied
//     gl.Functions table. Registered with gl.Register.
//
// When several are registered the priority is d3d11, opengl, webgpu.
package backend
