package gl

import (
	"errors"

	"github.com/gogpu/rhi"
	"github.com/gogpu/rhi/backend"
)

// Bindings connect the backend to an OpenGL 3.3 core context.
type Bindings struct {
	// Functions of a context current on the goroutine that renders.
	Functions Functions

	// Surface presents the window framebuffer. Nil renders the default
	// framebuffer offscreen.
	Surface Surface
}

var errIncomplete = errors.New("gl: bindings need Functions")

// Register makes the backend available as "opengl", replacing bindings
// registered before. Applications call it once a context is current.
func Register(b Bindings) {
	backend.Register(backend.NameOpenGL, func() backend.Backend { return &Backend{Bindings: b} })
}

// Backend opens rhi devices on an OpenGL context.
type Backend struct {
	Bindings
}

func (b *Backend) Name() string { return backend.NameOpenGL }

// Open implements backend.Backend. Debug routes KHR_debug output to the
// rhi logger.
func (b *Backend) Open(cfg rhi.Config, opts ...rhi.ContextOption) (*rhi.RenderContext, *rhi.ResourceFactory, error) {
	if b.Functions == nil {
		return nil, nil, errIncomplete
	}
	d := newDevice(b.Functions)
	p := newPlatform(d, b.Surface)
	if cfg.Debug {
		p.enableDebug()
	}
	rhi.Logger().Info("gl: context opened", "debug", cfg.Debug, "surface", b.Surface != nil)

	rc, err := rhi.NewRenderContext(p, opts...)
	if err != nil {
		p.Dispose()
		return nil, nil, err
	}
	return rc, rhi.NewResourceFactory(d), nil
}
