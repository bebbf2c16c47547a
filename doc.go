// Package rhi is a render hardware interface: one API for issuing draw
// calls and managing GPU resources, dispatched to a Direct3D 11, OpenGL, or
// WebGPU backend without changes to application code.
//
// # Overview
//
// Application code talks to two types. A ResourceFactory creates buffers,
// textures, shaders, pipeline states, framebuffers, and materials. A
// RenderContext binds them and issues draws. Each backend supplies the
// device-specific halves, a DeviceFactory and a Platform.
//
// # Quick Start
//
//	import (
//		"github.com/gogpu/rhi"
//		"github.com/gogpu/rhi/backend"
//		_ "github.com/gogpu/rhi/backend/wgpu"
//	)
//
//	rc, f, err := backend.Open(rhi.NewConfig(rhi.WithSize(1280, 720)))
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer rc.Dispose()
//
//	mat, err := f.CreateMaterial(desc)
//	...
//	rc.SetMaterial(mat)
//	rc.SetVertexBuffer(0, vb)
//	rc.SetIndexBuffer(ib)
//	rc.ClearBuffer()
//	rc.DrawIndexedPrimitives(6, 0)
//	rc.SwapBuffers()
//
// # State
//
// Every Set method compares against what is bound and returns early when
// nothing changed. SetFramebuffer unbinds any sampled texture that is about
// to become a render target before binding. Draw calls never re-validate
// state.
//
// # Shaders
//
// Shaders are resolved by name through an ordered chain of loaders (see
// package shader). WGSL sources are reflected to check vertex input layouts
// and translated to HLSL or GLSL for the native backends.
//
// # Threading
//
// Neither RenderContext nor ResourceFactory is safe for concurrent use.
// Calls must come from the goroutine that owns the native device.
package rhi

// Version information
const (
	// Version is the current version of the library
	Version = "0.1.0"

	// VersionMajor is the major version
	VersionMajor = 0

	// VersionMinor is the minor version
	VersionMinor = 1

	// VersionPatch is the patch version
	VersionPatch = 0
)
