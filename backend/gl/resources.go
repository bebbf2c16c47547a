package gl

import (
	"fmt"
	"slices"

	"github.com/gogpu/rhi"
	"github.com/gogpu/rhi/shader"
)

// buffer is a GL buffer object. Uploads go through GL_COPY_WRITE_BUFFER so
// they never disturb the vertex array or uniform bindings. Growth
// re-specifies the storage of the same buffer name.
type buffer struct {
	dev   *Device
	label string
	usage uint32
	name  uint32
	size  int
	gen   uint64
}

func newBuffer(d *Device, label string, dynamic bool, size int) *buffer {
	b := &buffer{dev: d, label: label, usage: StaticDraw, name: d.fn.GenBuffer()}
	if dynamic {
		b.usage = DynamicDraw
	}
	b.respecify(make([]byte, size))
	return b
}

func (b *buffer) respecify(data []byte) {
	fn := b.dev.fn
	fn.BindBuffer(CopyWriteBuffer, b.name)
	fn.BufferData(CopyWriteBuffer, len(data), data, b.usage)
	b.size = len(data)
	b.gen++
}

func (b *buffer) Backend() rhi.Backend { return rhi.BackendOpenGL }
func (b *buffer) SizeInBytes() int     { return b.size }
func (b *buffer) Generation() uint64   { return b.gen }

func (b *buffer) SetData(data []byte, offsetInBytes int) error {
	if offsetInBytes < 0 {
		return fmt.Errorf("gl: buffer offset %d: %w", offsetInBytes, rhi.ErrOutOfRange)
	}
	end := offsetInBytes + len(data)
	if end > b.size {
		grown := make([]byte, end)
		if err := b.GetData(grown[:b.size], 0); err != nil {
			return err
		}
		copy(grown[offsetInBytes:], data)
		b.respecify(grown)
		return nil
	}
	if len(data) == 0 {
		return nil
	}
	fn := b.dev.fn
	fn.BindBuffer(CopyWriteBuffer, b.name)
	fn.BufferSubData(CopyWriteBuffer, offsetInBytes, data)
	return nil
}

func (b *buffer) GetData(dst []byte, offsetInBytes int) error {
	if offsetInBytes < 0 || offsetInBytes+len(dst) > b.size {
		return fmt.Errorf("gl: read %d bytes at %d of %d: %w", len(dst), offsetInBytes, b.size, rhi.ErrOutOfRange)
	}
	if len(dst) == 0 {
		return nil
	}
	fn := b.dev.fn
	fn.BindBuffer(CopyWriteBuffer, b.name)
	fn.GetBufferSubData(CopyWriteBuffer, offsetInBytes, dst)
	return nil
}

func (b *buffer) Dispose() {
	if b.name == 0 {
		return
	}
	b.dev.fn.DeleteBuffer(b.name)
	b.dev.state.forgetBuffer(b.name)
	b.name = 0
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

// indexBuffer keeps indices at their own width; GL draws 8, 16 and 32-bit
// indices natively.
type indexBuffer struct {
	buffer
	format rhi.IndexFormat
}

func (b *indexBuffer) Format() rhi.IndexFormat { return b.format }

func (b *indexBuffer) SetIndexData(data []byte, format rhi.IndexFormat, offsetInBytes int) error {
	indexType(format)
	b.format = format
	return b.SetData(data, offsetInBytes)
}

// texture is a 2D, cube or depth-stencil texture object with a single mip
// level. Single-channel alpha formats are stored as red and swizzled.
type texture struct {
	dev    *Device
	name   uint32
	target uint32
	width  int
	height int
	format rhi.PixelFormat
	tf     texFormat
	depth  bool
}

// newTexture allocates the texture on the scratch unit. faces holds one
// image for 2D textures and six for cubemaps; nil entries leave the
// contents undefined.
func (d *Device) newTexture(target uint32, width, height int, format rhi.PixelFormat, tf texFormat, faces [][]byte) *texture {
	t := &texture{
		dev:    d,
		name:   d.fn.GenTexture(),
		target: target,
		width:  width,
		height: height,
		format: format,
		tf:     tf,
		depth:  tf.format == DepthStencil,
	}
	fn := d.fn
	d.state.bindTexture(scratchUnit, target, t.name)
	fn.TexParameteri(target, TextureMinFilter, Linear)
	fn.TexParameteri(target, TextureMagFilter, Linear)
	fn.TexParameteri(target, TextureWrapS, ClampToEdge)
	fn.TexParameteri(target, TextureWrapT, ClampToEdge)
	fn.TexParameteri(target, TextureMaxLevel, 0)
	if target == TextureCubeMap {
		fn.TexParameteri(target, TextureWrapR, ClampToEdge)
	}
	if tf.alpha {
		fn.TexParameteri(target, TextureSwizzleR, Zero)
		fn.TexParameteri(target, TextureSwizzleG, Zero)
		fn.TexParameteri(target, TextureSwizzleB, Zero)
		fn.TexParameteri(target, TextureSwizzleA, Red)
	}
	for i, face := range faces {
		img := target
		if target == TextureCubeMap {
			img = TextureCubeMapPosX + uint32(i)
		}
		fn.TexImage2D(img, 0, tf.internal, int32(width), int32(height), tf.format, tf.typ, face)
	}
	return t
}

func (t *texture) Backend() rhi.Backend    { return rhi.BackendOpenGL }
func (t *texture) Width() int              { return t.width }
func (t *texture) Height() int             { return t.height }
func (t *texture) Format() rhi.PixelFormat { return t.format }

func (t *texture) SetTextureData(x, y, width, height int, data []byte) error {
	if t.depth {
		return rhi.Unsupported(rhi.BackendOpenGL, "uploads to depth textures")
	}
	if x < 0 || y < 0 || width <= 0 || height <= 0 || x+width > t.width || y+height > t.height {
		return fmt.Errorf("gl: region %dx%d at %d,%d of %dx%d texture: %w",
			width, height, x, y, t.width, t.height, rhi.ErrOutOfRange)
	}
	if n := width * height * t.format.SizeInBytes(); len(data) != n {
		return fmt.Errorf("gl: texture data is %d bytes, want %d: %w", len(data), n, rhi.ErrOutOfRange)
	}
	t.dev.state.bindTexture(scratchUnit, t.target, t.name)
	t.dev.fn.TexSubImage2D(t.target, 0, int32(x), int32(y), int32(width), int32(height), t.tf.format, t.tf.typ, data)
	return nil
}

// GetTextureData reads the whole image and copies its first len(dst) bytes.
func (t *texture) GetTextureData(dst []byte) error {
	if t.depth {
		return rhi.Unsupported(rhi.BackendOpenGL, "readback of depth textures")
	}
	size := t.width * t.height * t.format.SizeInBytes()
	if len(dst) > size {
		return fmt.Errorf("gl: read %d bytes of %d: %w", len(dst), size, rhi.ErrOutOfRange)
	}
	pixels := dst
	if len(dst) < size {
		pixels = make([]byte, size)
	}
	t.dev.state.bindTexture(scratchUnit, t.target, t.name)
	t.dev.fn.GetTexImage(t.target, 0, t.tf.format, t.tf.typ, pixels)
	copy(dst, pixels)
	return nil
}

func (t *texture) Dispose() {
	if t.name == 0 {
		return
	}
	t.dev.fn.DeleteTexture(t.name)
	t.dev.state.forgetTexture(t.name)
	t.name = 0
}

// textureBinding only references its texture; GL samples texture objects
// directly.
type textureBinding struct {
	tex *texture
}

func (b *textureBinding) Backend() rhi.Backend            { return rhi.BackendOpenGL }
func (b *textureBinding) BoundTexture() rhi.DeviceTexture { return b.tex }
func (b *textureBinding) Dispose()                        {}

// framebuffer is a framebuffer object built on first bind, or the window
// framebuffer (GL name 0), which has no texture attachments.
type framebuffer struct {
	dev           *Device
	width, height int
	colors        [rhi.MaxColorAttachments]*texture
	depth         *texture
	name          uint32
	window        bool
	// dirty attachments are reattached on the next bind.
	dirty bool
	gen   uint64
	// owned attachments are disposed with the framebuffer.
	owned []*texture
}

func (f *framebuffer) Backend() rhi.Backend { return rhi.BackendOpenGL }
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
	if f.window {
		return nil, rhi.Unsupported(rhi.BackendOpenGL, "attachments on the window framebuffer")
	}
	if tex == nil {
		return nil, nil
	}
	t, ok := tex.(*texture)
	if !ok {
		return nil, fmt.Errorf("gl: attach %T: %w", tex, rhi.ErrBackendMismatch)
	}
	if t.width != f.width || t.height != f.height {
		return nil, fmt.Errorf("gl: attach %dx%d texture to %dx%d framebuffer: %w",
			t.width, t.height, f.width, f.height, rhi.ErrInvalidDimensions)
	}
	return t, nil
}

func (f *framebuffer) AttachColorTexture(i int, tex rhi.Texture2D) error {
	if i < 0 || i >= len(f.colors) {
		return fmt.Errorf("gl: color attachment %d: %w", i, rhi.ErrOutOfRange)
	}
	t, err := f.attachment(tex)
	if err != nil {
		return err
	}
	if t != nil && (t.depth || t.target != Texture2D) {
		return fmt.Errorf("gl: %v texture cannot be a color attachment", t.format)
	}
	f.colors[i] = t
	f.dirty = true
	f.gen++
	return nil
}

func (f *framebuffer) SetDepthTexture(tex rhi.Texture2D) error {
	t, err := f.attachment(tex)
	if err != nil {
		return err
	}
	if t != nil && !t.depth {
		return fmt.Errorf("gl: %v texture is not a depth texture", t.format)
	}
	f.depth = t
	f.dirty = true
	f.gen++
	return nil
}

// bind makes f the draw framebuffer, attaching textures changed since the
// last bind.
func (f *framebuffer) bind() error {
	st := f.dev.state
	if f.window {
		st.bindFramebuffer(0)
		return nil
	}
	if f.name == 0 {
		f.name = f.dev.fn.GenFramebuffer()
		f.dirty = true
	}
	st.bindFramebuffer(f.name)
	if !f.dirty {
		return nil
	}
	fn := f.dev.fn
	var draw []uint32
	for i, c := range f.colors {
		var name uint32
		if c != nil {
			name = c.name
			draw = append(draw, ColorAttachment0+uint32(i))
		} else {
			draw = append(draw, None)
		}
		fn.FramebufferTexture2D(Framebuffer, ColorAttachment0+uint32(i), Texture2D, name, 0)
	}
	var depth uint32
	if f.depth != nil {
		depth = f.depth.name
	}
	fn.FramebufferTexture2D(Framebuffer, DepthStencilAttachment, Texture2D, depth, 0)
	for len(draw) > 1 && draw[len(draw)-1] == None {
		draw = draw[:len(draw)-1]
	}
	fn.DrawBuffers(draw)
	f.dirty = false
	if status := fn.CheckFramebufferStatus(Framebuffer); status != FramebufferComplete {
		return fmt.Errorf("gl: framebuffer %d incomplete: status 0x%x", f.name, status)
	}
	return nil
}

// clearMask reports the buffers Clear can touch.
func (f *framebuffer) clearMask() uint32 {
	if f.window {
		return ColorBufferBit | DepthBufferBit | StencilBufferBit
	}
	var mask uint32
	for _, c := range f.colors {
		if c != nil {
			mask |= ColorBufferBit
		}
	}
	if f.depth != nil {
		mask |= DepthBufferBit | StencilBufferBit
	}
	return mask
}

func (f *framebuffer) Dispose() {
	if f.name != 0 {
		f.dev.fn.DeleteFramebuffer(f.name)
		f.dev.state.forgetFramebuffer(f.name)
		f.name = 0
	}
	for _, t := range f.owned {
		t.Dispose()
	}
	f.owned = nil
	f.colors = [rhi.MaxColorAttachments]*texture{}
	f.depth = nil
}

// GL has no state objects; descriptions are applied when bound.
type blendState struct{ desc rhi.BlendStateDescription }

func (s *blendState) Backend() rhi.Backend                   { return rhi.BackendOpenGL }
func (s *blendState) Description() rhi.BlendStateDescription { return s.desc }
func (s *blendState) Dispose()                               {}

type depthState struct{ desc rhi.DepthStencilDescription }

func (s *depthState) Backend() rhi.Backend                     { return rhi.BackendOpenGL }
func (s *depthState) Description() rhi.DepthStencilDescription { return s.desc }
func (s *depthState) Dispose()                                 {}

type rasterState struct{ desc rhi.RasterizerDescription }

func (s *rasterState) Backend() rhi.Backend                   { return rhi.BackendOpenGL }
func (s *rasterState) Description() rhi.RasterizerDescription { return s.desc }
func (s *rasterState) Dispose()                               {}

// shaderModule is a compiled shader object. translated is set for shaders
// generated from WGSL.
type shaderModule struct {
	dev        *Device
	typ        rhi.ShaderType
	name       string
	id         uint32
	translated *shader.Translation
}

func (s *shaderModule) Backend() rhi.Backend { return rhi.BackendOpenGL }
func (s *shaderModule) Type() rhi.ShaderType { return s.typ }
func (s *shaderModule) Name() string         { return s.name }

func (s *shaderModule) Dispose() {
	if s.id == 0 {
		return
	}
	s.dev.fn.DeleteShader(s.id)
	s.id = 0
}

// blockName is the uniform block of constant i in this stage, or "".
func (s *shaderModule) blockName(i int, constant string) string {
	if s.translated == nil {
		return constant
	}
	if i < len(s.translated.Blocks) {
		return s.translated.Blocks[i]
	}
	return ""
}

// samplerName is the sampler uniform read at the stage's texture slot.
func (s *shaderModule) samplerName(slot int, input string) string {
	if s.translated == nil {
		return input
	}
	if slot < len(s.translated.Samplers) {
		return s.translated.Samplers[slot]
	}
	return ""
}

// inputLayout records the vertex inputs. Attribute locations are known
// once the shader set is linked.
type inputLayout struct {
	inputs []rhi.MaterialVertexInput
	vs     *shaderModule
}

func (l *inputLayout) Backend() rhi.Backend              { return rhi.BackendOpenGL }
func (l *inputLayout) Inputs() []rhi.MaterialVertexInput { return l.inputs }
func (l *inputLayout) Dispose()                          {}

// shaderSet is a linked program. locations holds the attribute location of
// each element of each vertex input, -1 for inputs the program does not
// read.
type shaderSet struct {
	dev        *Device
	program    uint32
	layout     *inputLayout
	vs, gs, fs *shaderModule
	locations  [][]int32
}

func (s *shaderSet) Backend() rhi.Backend               { return rhi.BackendOpenGL }
func (s *shaderSet) InputLayout() rhi.VertexInputLayout { return s.layout }
func (s *shaderSet) VertexShader() rhi.Shader           { return s.vs }
func (s *shaderSet) FragmentShader() rhi.Shader         { return s.fs }

func (s *shaderSet) GeometryShader() rhi.Shader {
	if s.gs == nil {
		return nil
	}
	return s.gs
}

func (s *shaderSet) stage(t rhi.ShaderType) *shaderModule {
	switch t {
	case rhi.ShaderTypeVertex:
		return s.vs
	case rhi.ShaderTypeGeometry:
		return s.gs
	case rhi.ShaderTypeFragment:
		return s.fs
	default:
		panic(rhi.IllegalValue(t))
	}
}

// blockNames lists the distinct uniform block names constant i has in the
// program's stages.
func (s *shaderSet) blockNames(i int, constant string) []string {
	var names []string
	for _, m := range []*shaderModule{s.vs, s.gs, s.fs} {
		if m == nil {
			continue
		}
		name := m.blockName(i, constant)
		if name == "" || slices.Contains(names, name) {
			continue
		}
		names = append(names, name)
	}
	return names
}

func (s *shaderSet) Dispose() {
	if s.program == 0 {
		return
	}
	s.dev.fn.DeleteProgram(s.program)
	s.dev.state.forgetProgram(s.program)
	s.program = 0
	s.vs.Dispose()
	if s.gs != nil {
		s.gs.Dispose()
	}
	s.fs.Dispose()
}

type constantBindings struct {
	*rhi.ConstantBindingTable
}

func (b *constantBindings) Backend() rhi.Backend { return rhi.BackendOpenGL }

type textureSlots struct {
	*rhi.TextureSlotTable
}

func (s *textureSlots) Backend() rhi.Backend { return rhi.BackendOpenGL }
func (s *textureSlots) Dispose()             {}
