package backend

import (
	"fmt"

	"github.com/gogpu/rhi"
)

// Backend opens a render context and resource factory on one native API.
// Implementations register themselves from init under one of the Name*
// constants:
//
//	import _ "github.com/gogpu/rhi/backend/wgpu"
type Backend interface {
	// Name returns the registry name, e.g. "webgpu".
	Name() string

	// Open creates the native device, the default framebuffer, and the
	// factory that allocates resources on the same device. The caller owns
	// both results and must Dispose the context and Close the factory.
	Open(cfg rhi.Config, opts ...rhi.ContextOption) (*rhi.RenderContext, *rhi.ResourceFactory, error)
}

// Open opens the backend named by cfg.Backend, or the best registered
// backend when the name is empty, and applies cfg to the factory.
func Open(cfg rhi.Config, opts ...rhi.ContextOption) (*rhi.RenderContext, *rhi.ResourceFactory, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	name := cfg.Backend
	if name == "" {
		name = registry.BestName()
	}
	b := registry.Get(name)
	if b == nil {
		if name == "" {
			return nil, nil, rhi.ErrNoBackend
		}
		return nil, nil, fmt.Errorf("%w: %q", rhi.ErrNoBackend, name)
	}

	opts = append([]rhi.ContextOption{rhi.WithConfig(cfg)}, opts...)
	rc, f, err := b.Open(cfg, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("backend: open %s: %w", name, err)
	}
	if err := f.ApplyConfig(cfg); err != nil {
		rc.Dispose()
		_ = f.Close()
		return nil, nil, fmt.Errorf("backend: open %s: %w", name, err)
	}
	rhi.Logger().Info("backend: opened", "name", name, "debug", cfg.Debug)
	return rc, f, nil
}
