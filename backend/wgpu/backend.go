package wgpu

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	_ "github.com/gogpu/wgpu/hal/noop"   // headless fallback
	_ "github.com/gogpu/wgpu/hal/vulkan" // primary GPU backend

	"github.com/gogpu/rhi"
	"github.com/gogpu/rhi/backend"
)

func init() {
	backend.Register(backend.NameWebGPU, func() backend.Backend { return &Backend{} })
}

// ErrNoAdapter is returned when none of the tried HAL backends exposes an adapter.
var ErrNoAdapter = errors.New("wgpu: no GPU adapter found")

// DefaultVariants is the HAL backend order tried when Backend.Variants is empty.
// BackendEmpty is the noop device, which renders nothing and always opens.
var DefaultVariants = []gputypes.Backend{
	gputypes.BackendVulkan,
	gputypes.BackendMetal,
	gputypes.BackendDX12,
	gputypes.BackendGL,
	gputypes.BackendEmpty,
}

// Backend opens rhi devices on gogpu/wgpu HAL.
type Backend struct {
	// Variants are the HAL backends tried in order. Empty means DefaultVariants.
	// A variant is only available when its hal package is linked in.
	Variants []gputypes.Backend

	// Provider, when set, supplies an existing device instead of opening one.
	// It must expose HalDevice() any and HalQueue() any returning hal.Device
	// and hal.Queue. The device is not destroyed by Dispose.
	Provider any

	// Surface receives the default framebuffer. Nil renders the default
	// framebuffer offscreen.
	Surface hal.Surface

	// SurfaceFormat is the swap format. Zero means BGRA8Unorm.
	SurfaceFormat gputypes.TextureFormat
}

func (b *Backend) Name() string { return backend.NameWebGPU }

// Open implements backend.Backend.
func (b *Backend) Open(cfg rhi.Config, opts ...rhi.ContextOption) (*rhi.RenderContext, *rhi.ResourceFactory, error) {
	d, err := b.openDevice(cfg)
	if err != nil {
		return nil, nil, err
	}
	p := newPlatform(d, b.Surface, b.SurfaceFormat, cfg.PresentInterval)
	rc, err := rhi.NewRenderContext(p, opts...)
	if err != nil {
		d.destroy()
		return nil, nil, err
	}
	return rc, rhi.NewResourceFactory(d), nil
}

// OpenDevice opens only the device half, for callers that drive their own
// Platform or need a factory without a context.
func (b *Backend) OpenDevice(cfg rhi.Config) (*Device, error) {
	return b.openDevice(cfg)
}

type halProvider interface {
	HalDevice() any
	HalQueue() any
}

func (b *Backend) openDevice(cfg rhi.Config) (*Device, error) {
	if b.Provider != nil {
		hp, ok := b.Provider.(halProvider)
		if !ok {
			return nil, fmt.Errorf("wgpu: provider does not expose HAL types")
		}
		device, ok := hp.HalDevice().(hal.Device)
		if !ok || device == nil {
			return nil, fmt.Errorf("wgpu: provider HalDevice is not hal.Device")
		}
		queue, ok := hp.HalQueue().(hal.Queue)
		if !ok || queue == nil {
			return nil, fmt.Errorf("wgpu: provider HalQueue is not hal.Queue")
		}
		rhi.Logger().Info("wgpu: using provided device")
		return newDevice(device, queue, nil, true), nil
	}

	variants := b.Variants
	if len(variants) == 0 {
		variants = DefaultVariants
	}
	var errs []error
	for _, v := range variants {
		d, err := openVariant(v, cfg.Debug)
		if err == nil {
			return d, nil
		}
		errs = append(errs, err)
	}
	return nil, fmt.Errorf("%w: %w", ErrNoAdapter, errors.Join(errs...))
}

// openVariant creates an instance of one HAL backend and opens the first
// discrete or integrated adapter, falling back to whatever is listed first.
func openVariant(v gputypes.Backend, debug bool) (*Device, error) {
	api, ok := hal.GetBackend(v)
	if !ok {
		return nil, fmt.Errorf("%v backend not available", v)
	}
	flags := gputypes.InstanceFlagsNone
	if debug {
		flags = gputypes.InstanceFlagsDebug | gputypes.InstanceFlagsValidation
	}
	instance, err := api.CreateInstance(&hal.InstanceDescriptor{Flags: flags})
	if err != nil {
		return nil, fmt.Errorf("create %v instance: %w", v, err)
	}

	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, fmt.Errorf("%v: no adapters", v)
	}
	selected := &adapters[0]
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}

	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("open %v device: %w", v, err)
	}
	rhi.Logger().Info("wgpu: device opened", "backend", v, "adapter", selected.Info.Name, "debug", debug)
	return newDevice(openDev.Device, openDev.Queue, instance, false), nil
}
