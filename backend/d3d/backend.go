package d3d

import (
	"errors"
	"fmt"

	"github.com/gogpu/rhi"
	"github.com/gogpu/rhi/backend"
)

// Bindings connect the backend to a Direct3D 11 implementation.
type Bindings struct {
	// CreateDevice is D3D11CreateDevice on the hardware driver.
	CreateDevice func(flags CreateDeviceFlag) (NativeDevice, error)

	// CreateSwapChain creates the swap chain of the target window. Nil
	// renders the default framebuffer offscreen.
	CreateSwapChain SwapChainFunc

	// Compiler is D3DCompile.
	Compiler Compiler
}

var errIncomplete = errors.New("d3d: bindings need CreateDevice and Compiler")

// Register makes the backend available as "d3d11", replacing bindings
// registered before. Applications call it once the native API is loaded.
func Register(b Bindings) {
	backend.Register(backend.NameD3D11, func() backend.Backend { return &Backend{Bindings: b} })
}

// Backend opens rhi devices on Direct3D 11.
type Backend struct {
	Bindings
}

func (b *Backend) Name() string { return backend.NameD3D11 }

// Open implements backend.Backend.
func (b *Backend) Open(cfg rhi.Config, opts ...rhi.ContextOption) (*rhi.RenderContext, *rhi.ResourceFactory, error) {
	if b.CreateDevice == nil || b.Compiler == nil {
		return nil, nil, errIncomplete
	}
	flags := CreateDeviceBGRASupport
	if cfg.Debug {
		flags |= CreateDeviceDebug
	}
	native, err := b.CreateDevice(flags)
	if err != nil {
		return nil, nil, fmt.Errorf("d3d: create device: %w", err)
	}
	rhi.Logger().Info("d3d: device created", "debug", cfg.Debug, "swapChain", b.CreateSwapChain != nil)

	d := newDevice(native, b.Compiler, cfg.Debug)
	rc, err := rhi.NewRenderContext(newPlatform(d, b.CreateSwapChain), opts...)
	if err != nil {
		d.destroy()
		return nil, nil, err
	}
	return rc, rhi.NewResourceFactory(d), nil
}
