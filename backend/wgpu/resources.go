package wgpu

import (
	"encoding/binary"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/rhi"
	"github.com/gogpu/rhi/shader"
)

func align4(n uint64) uint64 { return (n + 3) &^ 3 }

// buffer is a HAL buffer with a host copy of its contents. Queue writes must
// be 4-byte aligned, so uploads are widened to aligned ranges taken from the
// host copy. 8-bit index buffers store widened 16-bit indices natively
// (scale 2) and keep the logical bytes on the host.
type buffer struct {
	dev     *Device
	label   string
	usage   gputypes.BufferUsage
	scale   int
	raw     hal.Buffer
	rawSize uint64
	size    int
	data    []byte
	gen     uint64
}

func newBuffer(d *Device, label string, usage gputypes.BufferUsage, size, scale int) (*buffer, error) {
	b := &buffer{dev: d, label: label, usage: usage | gputypes.BufferUsageCopyDst, scale: scale}
	if err := b.alloc(size); err != nil {
		return nil, err
	}
	return b, nil
}

// alloc replaces the native storage with one holding size logical bytes,
// keeping the host contents, and bumps the generation.
func (b *buffer) alloc(size int) error {
	rawSize := align4(uint64(size * b.scale))
	raw, err := b.dev.device.CreateBuffer(&hal.BufferDescriptor{
		Label: b.label,
		Size:  rawSize,
		Usage: b.usage,
	})
	if err != nil {
		return fmt.Errorf("wgpu: create %s buffer: %w", b.label, err)
	}
	if b.raw != nil {
		b.dev.release(b)
		b.dev.device.DestroyBuffer(b.raw)
	}
	data := make([]byte, align4(uint64(size)))
	copy(data, b.data)
	b.raw, b.rawSize, b.size, b.data = raw, rawSize, size, data
	b.gen++
	return nil
}

func (b *buffer) Backend() rhi.Backend { return rhi.BackendWebGPU }
func (b *buffer) SizeInBytes() int     { return b.size }
func (b *buffer) Generation() uint64   { return b.gen }

func (b *buffer) SetData(data []byte, offsetInBytes int) error {
	if offsetInBytes < 0 {
		return fmt.Errorf("wgpu: buffer offset %d: %w", offsetInBytes, rhi.ErrOutOfRange)
	}
	end := offsetInBytes + len(data)
	lo := offsetInBytes
	b.dev.release(b)
	if end > b.size {
		if err := b.alloc(end); err != nil {
			return err
		}
		lo = 0
	}
	copy(b.data[offsetInBytes:], data)
	return b.upload(lo, end)
}

// upload writes logical bytes [lo, hi) to the native buffer.
func (b *buffer) upload(lo, hi int) error {
	nlo := uint64(lo*b.scale) &^ 3
	nhi := min(align4(uint64(hi*b.scale)), b.rawSize)
	if nhi <= nlo {
		return nil
	}
	if err := b.dev.queue.WriteBuffer(b.raw, nlo, b.native(nlo, nhi)); err != nil {
		return fmt.Errorf("wgpu: write %s buffer: %w", b.label, err)
	}
	return nil
}

// native returns native bytes [nlo, nhi) built from the host copy.
func (b *buffer) native(nlo, nhi uint64) []byte {
	if b.scale == 1 {
		return b.data[nlo:nhi]
	}
	out := make([]byte, nhi-nlo)
	for i := nlo / 2; i < nhi/2; i++ {
		if int(i) < len(b.data) {
			binary.LittleEndian.PutUint16(out[2*i-nlo:], uint16(b.data[i]))
		}
	}
	return out
}

func (b *buffer) GetData(dst []byte, offsetInBytes int) error {
	if offsetInBytes < 0 || offsetInBytes+len(dst) > b.size {
		return fmt.Errorf("wgpu: read %d bytes at %d of %d: %w", len(dst), offsetInBytes, b.size, rhi.ErrOutOfRange)
	}
	copy(dst, b.data[offsetInBytes:])
	return nil
}

func (b *buffer) Dispose() {
	if b.raw == nil {
		return
	}
	b.dev.release(b)
	b.dev.device.DestroyBuffer(b.raw)
	b.raw, b.data = nil, nil
}

type vertexBuffer struct {
	buffer
	stride, offset int
}

func (b *vertexBuffer) SetVertexData(data []byte, desc rhi.VertexDescriptor, destinationOffset int) error {
	b.stride, b.offset = desc.VertexSizeInBytes, desc.Offset
	return b.SetData(data, destinationOffset*desc.VertexSizeInBytes)
}

func (b *vertexBuffer) Stride() int { return b.stride }
func (b *vertexBuffer) Offset() int { return b.offset }

type indexBuffer struct {
	buffer
	format rhi.IndexFormat
}

func indexScale(f rhi.IndexFormat) int {
	if f == rhi.IndexFormatUInt8 {
		return 2
	}
	return 1
}

// nativeFormat is the format the HAL sees. WebGPU has no 8-bit indices.
func nativeFormat(f rhi.IndexFormat) gputypes.IndexFormat {
	switch f {
	case rhi.IndexFormatUInt8, rhi.IndexFormatUInt16:
		return gputypes.IndexFormatUint16
	case rhi.IndexFormatUInt32:
		return gputypes.IndexFormatUint32
	default:
		panic(rhi.IllegalValue(f))
	}
}

func (b *indexBuffer) Format() rhi.IndexFormat { return b.format }

func (b *indexBuffer) SetIndexData(data []byte, format rhi.IndexFormat, offsetInBytes int) error {
	nativeFormat(format)
	if s := indexScale(format); s != b.scale {
		b.scale = s
		if err := b.alloc(b.size); err != nil {
			return err
		}
		if err := b.upload(0, b.size); err != nil {
			return err
		}
	}
	b.format = format
	return b.SetData(data, offsetInBytes)
}

// texture is a 2D or cube HAL texture with a default view. Color textures
// keep a host copy of level 0 for GetTextureData.
type texture struct {
	dev       *Device
	raw       hal.Texture
	view      hal.TextureView
	width     int
	height    int
	format    rhi.PixelFormat
	gpuFormat gputypes.TextureFormat
	depth     bool
	cube      bool
	data      []byte

	// swap marks the placeholder for the surface image of the default
	// framebuffer; the platform supplies its view each frame.
	swap bool
}

func (d *Device) newTexture(label string, w, h int, format rhi.PixelFormat, gpuFormat gputypes.TextureFormat,
	usage gputypes.TextureUsage, cube bool) (*texture, error) {
	layers := uint32(1)
	viewDim := gputypes.TextureViewDimension2D
	if cube {
		layers = 6
		viewDim = gputypes.TextureViewDimensionCube
	}
	raw, err := d.device.CreateTexture(&hal.TextureDescriptor{
		Label:         label,
		Size:          hal.Extent3D{Width: uint32(w), Height: uint32(h), DepthOrArrayLayers: layers},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        gpuFormat,
		Usage:         usage,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create %s texture: %w", label, err)
	}
	view, err := d.device.CreateTextureView(raw, &hal.TextureViewDescriptor{
		Label:           label,
		Format:          gpuFormat,
		Dimension:       viewDim,
		Aspect:          gputypes.TextureAspectAll,
		MipLevelCount:   1,
		ArrayLayerCount: layers,
	})
	if err != nil {
		d.device.DestroyTexture(raw)
		return nil, fmt.Errorf("wgpu: create %s texture view: %w", label, err)
	}
	return &texture{
		dev:       d,
		raw:       raw,
		view:      view,
		width:     w,
		height:    h,
		format:    format,
		gpuFormat: gpuFormat,
		cube:      cube,
	}, nil
}

func (t *texture) Backend() rhi.Backend     { return rhi.BackendWebGPU }
func (t *texture) Width() int               { return t.width }
func (t *texture) Height() int              { return t.height }
func (t *texture) Format() rhi.PixelFormat { return t.format }

func (t *texture) SetTextureData(x, y, width, height int, data []byte) error {
	return t.writeLayer(0, x, y, width, height, data)
}

func (t *texture) writeLayer(layer, x, y, width, height int, data []byte) error {
	if t.depth || t.swap {
		return rhi.Unsupported(rhi.BackendWebGPU, "uploads to depth or surface textures")
	}
	if x < 0 || y < 0 || width <= 0 || height <= 0 || x+width > t.width || y+height > t.height {
		return fmt.Errorf("wgpu: region %dx%d at %d,%d of %dx%d texture: %w",
			width, height, x, y, t.width, t.height, rhi.ErrOutOfRange)
	}
	px := t.format.SizeInBytes()
	if len(data) != width*height*px {
		return fmt.Errorf("wgpu: texture data is %d bytes, want %d: %w", len(data), width*height*px, rhi.ErrOutOfRange)
	}
	t.dev.release(t)
	err := t.dev.queue.WriteTexture(&hal.ImageCopyTexture{
		Texture: t.raw,
		Origin:  hal.Origin3D{X: uint32(x), Y: uint32(y), Z: uint32(layer)},
		Aspect:  gputypes.TextureAspectAll,
	}, data, &hal.ImageDataLayout{
		BytesPerRow:  uint32(width * px),
		RowsPerImage: uint32(height),
	}, &hal.Extent3D{Width: uint32(width), Height: uint32(height), DepthOrArrayLayers: 1})
	if err != nil {
		return fmt.Errorf("wgpu: write texture: %w", err)
	}
	if layer == 0 {
		if t.data == nil {
			t.data = make([]byte, t.width*t.height*px)
		}
		for row := range height {
			copy(t.data[((y+row)*t.width+x)*px:], data[row*width*px:(row+1)*width*px])
		}
	}
	return nil
}

func (t *texture) GetTextureData(dst []byte) error {
	if t.depth || t.swap {
		return rhi.Unsupported(rhi.BackendWebGPU, "readback of depth or surface textures")
	}
	size := t.width * t.height * t.format.SizeInBytes()
	if len(dst) > size {
		return fmt.Errorf("wgpu: read %d bytes of %d: %w", len(dst), size, rhi.ErrOutOfRange)
	}
	// Never-written textures read back as zero.
	copy(dst, t.data)
	return nil
}

func (t *texture) Dispose() {
	if t.raw == nil {
		return
	}
	t.dev.release(t)
	t.dev.device.DestroyTextureView(t.view)
	t.dev.device.DestroyTexture(t.raw)
	t.raw, t.view, t.data = nil, nil, nil
}

// textureBinding is a shader-resource view of a texture.
type textureBinding struct {
	dev  *Device
	tex  *texture
	view hal.TextureView
}

func (b *textureBinding) Backend() rhi.Backend            { return rhi.BackendWebGPU }
func (b *textureBinding) BoundTexture() rhi.DeviceTexture { return b.tex }

func (b *textureBinding) Dispose() {
	if b.view == nil {
		return
	}
	b.dev.release(b)
	b.dev.device.DestroyTextureView(b.view)
	b.view = nil
}

type framebuffer struct {
	dev           *Device
	width, height int
	colors        [rhi.MaxColorAttachments]*texture
	depth         *texture
	gen           uint64
	// owned attachments are disposed with the framebuffer.
	owned []*texture
}

func (f *framebuffer) Backend() rhi.Backend { return rhi.BackendWebGPU }
func (f *framebuffer) Width() int           { return f.width }
func (f *framebuffer) Height() int          { return f.height }
func (f *framebuffer) Generation() uint64   { return f.gen }

func (f *framebuffer) ColorTexture(i int) rhi.DeviceTexture {
	if i < 0 || i >= len(f.colors) || f.colors[i] == nil {
		return nil
	}
	return f.colors[i]
}

func (f *framebuffer) DepthTexture() rhi.DeviceTexture {
	if f.depth == nil {
		return nil
	}
	return f.depth
}

func (f *framebuffer) attachment(tex rhi.Texture2D) (*texture, error) {
	if tex == nil {
		return nil, nil
	}
	t, ok := tex.(*texture)
	if !ok {
		return nil, fmt.Errorf("wgpu: attach %T: %w", tex, rhi.ErrBackendMismatch)
	}
	if t.width != f.width || t.height != f.height {
		return nil, fmt.Errorf("wgpu: attach %dx%d texture to %dx%d framebuffer: %w",
			t.width, t.height, f.width, f.height, rhi.ErrInvalidDimensions)
	}
	return t, nil
}

func (f *framebuffer) AttachColorTexture(i int, tex rhi.Texture2D) error {
	if i < 0 || i >= len(f.colors) {
		return fmt.Errorf("wgpu: color attachment %d: %w", i, rhi.ErrOutOfRange)
	}
	t, err := f.attachment(tex)
	if err != nil {
		return err
	}
	f.colors[i] = t
	f.gen++
	return nil
}

func (f *framebuffer) SetDepthTexture(tex rhi.Texture2D) error {
	t, err := f.attachment(tex)
	if err != nil {
		return err
	}
	if t != nil && !t.depth {
		return fmt.Errorf("wgpu: %v texture is not a depth texture", t.format)
	}
	f.depth = t
	f.gen++
	return nil
}

func (f *framebuffer) Dispose() {
	for _, t := range f.owned {
		t.Dispose()
	}
	f.owned = nil
	f.colors = [rhi.MaxColorAttachments]*texture{}
	f.depth = nil
}

type blendState struct{ desc rhi.BlendStateDescription }

func (s *blendState) Backend() rhi.Backend                    { return rhi.BackendWebGPU }
func (s *blendState) Description() rhi.BlendStateDescription { return s.desc }
func (s *blendState) Dispose()                                {}

// gpuBlend returns nil when blending is off.
func (s *blendState) gpuBlend() *gputypes.BlendState {
	if !s.desc.Enabled {
		return nil
	}
	return &gputypes.BlendState{
		Color: gputypes.BlendComponent{
			SrcFactor: s.desc.SourceColor.Factor(),
			DstFactor: s.desc.DestinationColor.Factor(),
			Operation: s.desc.ColorFunction.Operation(),
		},
		Alpha: gputypes.BlendComponent{
			SrcFactor: s.desc.SourceAlpha.Factor(),
			DstFactor: s.desc.DestinationAlpha.Factor(),
			Operation: s.desc.AlphaFunction.Operation(),
		},
	}
}

type depthState struct{ desc rhi.DepthStencilDescription }

func (s *depthState) Backend() rhi.Backend                      { return rhi.BackendWebGPU }
func (s *depthState) Description() rhi.DepthStencilDescription { return s.desc }
func (s *depthState) Dispose()                                  {}

type rasterState struct{ desc rhi.RasterizerDescription }

func (s *rasterState) Backend() rhi.Backend                    { return rhi.BackendWebGPU }
func (s *rasterState) Description() rhi.RasterizerDescription { return s.desc }
func (s *rasterState) Dispose()                                {}

type shaderModule struct {
	dev    *Device
	typ    rhi.ShaderType
	name   string
	module hal.ShaderModule
	entry  string
}

func (s *shaderModule) Backend() rhi.Backend { return rhi.BackendWebGPU }
func (s *shaderModule) Type() rhi.ShaderType { return s.typ }
func (s *shaderModule) Name() string         { return s.name }

func (s *shaderModule) Dispose() {
	if s.module == nil {
		return
	}
	s.dev.device.DestroyShaderModule(s.module)
	s.module = nil
}

func shaderStage(t rhi.ShaderType) shader.Stage {
	switch t {
	case rhi.ShaderTypeVertex:
		return shader.StageVertex
	case rhi.ShaderTypeFragment:
		return shader.StageFragment
	default:
		panic(rhi.IllegalValue(t))
	}
}

type inputLayout struct {
	inputs  []rhi.MaterialVertexInput
	buffers []gputypes.VertexBufferLayout
}

func (l *inputLayout) Backend() rhi.Backend               { return rhi.BackendWebGPU }
func (l *inputLayout) Inputs() []rhi.MaterialVertexInput { return l.inputs }
func (l *inputLayout) Dispose()                           {}

// newInputLayout numbers shader locations consecutively across buffers.
func newInputLayout(inputs []rhi.MaterialVertexInput) *inputLayout {
	l := &inputLayout{inputs: inputs}
	loc := uint32(0)
	for _, in := range inputs {
		step := gputypes.VertexStepModeVertex
		offs := in.Offsets()
		attrs := make([]gputypes.VertexAttribute, len(in.Elements))
		for i, el := range in.Elements {
			if el.InputClass == rhi.VertexInputClassPerInstance {
				step = gputypes.VertexStepModeInstance
			}
			attrs[i] = gputypes.VertexAttribute{
				Format:         el.Format.VertexFormat(),
				Offset:         uint64(offs[i]),
				ShaderLocation: loc,
			}
			loc++
		}
		l.buffers = append(l.buffers, gputypes.VertexBufferLayout{
			ArrayStride: uint64(in.SizeInBytes),
			StepMode:    step,
			Attributes:  attrs,
		})
	}
	return l
}

type shaderSet struct {
	dev    *Device
	layout *inputLayout
	vs, fs *shaderModule
}

func (s *shaderSet) Backend() rhi.Backend               { return rhi.BackendWebGPU }
func (s *shaderSet) InputLayout() rhi.VertexInputLayout { return s.layout }
func (s *shaderSet) VertexShader() rhi.Shader           { return s.vs }
func (s *shaderSet) GeometryShader() rhi.Shader         { return nil }
func (s *shaderSet) FragmentShader() rhi.Shader         { return s.fs }

func (s *shaderSet) Dispose() {
	s.dev.pipelines.evict(func(k pipelineKey) bool { return k.shaders == s })
	s.vs.Dispose()
	s.fs.Dispose()
}

type constantBindings struct {
	*rhi.ConstantBindingTable
}

func (b *constantBindings) Backend() rhi.Backend { return rhi.BackendWebGPU }

type textureSlots struct {
	*rhi.TextureSlotTable
}

func (s *textureSlots) Backend() rhi.Backend { return rhi.BackendWebGPU }
func (s *textureSlots) Dispose()             {}

// logical returns the logical slot bound at device slot of stage, or -1.
func (s *textureSlots) logical(stage rhi.ShaderType, slot int) int {
	for i := range s.Len() {
		ts := s.Slot(i)
		if ts.Stages.Has(stage) && ts.DeviceSlots[stage] == slot {
			return i
		}
	}
	return -1
}
