package backend

import (
	"slices"

	"github.com/gogpu/gpucontext"
)

// Registry names of the built-in backends.
const (
	NameD3D11  = "d3d11"
	NameOpenGL = "opengl"
	NameWebGPU = "webgpu"
)

// Priority order for backend selection (earliest available name wins). The native
// backends register only when the application supplies native bindings, so
// an explicit binding is preferred over the portable webgpu fallback.
var registry = gpucontext.NewRegistry[Backend](
	gpucontext.WithPriority(NameD3D11, NameOpenGL, NameWebGPU),
)

// Register registers a backend factory with the given name.
// This is typically called from init() functions in backend packages.
// If a backend with the same name is already registered, it will be replaced.
func Register(name string, factory func() Backend) {
	registry.Register(name, factory)
}

// Unregister removes a backend from the registry.
// This is useful for testing.
func Unregister(name string) {
	registry.Unregister(name)
}

// Available returns the registered backend names in sorted order.
func Available() []string {
	names := registry.Available()
	slices.Sort(names)
	return names
}

// IsRegistered checks if a backend with the given name is registered.
func IsRegistered(name string) bool {
	return registry.Has(name)
}

// Get returns a backend instance by name.
// Returns nil if the backend is not registered.
func Get(name string) Backend {
	return registry.Get(name)
}

// Default returns the best available backend based on priority.
// Returns nil if no backends are registered.
func Default() Backend {
	return registry.Best()
}

// DefaultName returns the name Default would pick, or "".
func DefaultName() string {
	return registry.BestName()
}
