package rhi

import (
	"fmt"
	"image"
	"unsafe"

	"golang.org/x/image/draw"

	"github.com/gogpu/rhi/shader"
)

// DeviceFactory is the per-backend primitive creation surface. Every method
// returns a new, fully initialized handle owned by the caller.
type DeviceFactory interface {
	Backend() Backend

	// ShaderLanguages lists the languages CreateShader accepts, most preferred first.
	ShaderLanguages() []shader.Language

	CreateVertexBuffer(sizeInBytes int, dynamic bool) (VertexBuffer, error)
	CreateIndexBuffer(sizeInBytes int, dynamic bool, format IndexFormat) (IndexBuffer, error)
	CreateConstantBuffer(sizeInBytes int) (ConstantBuffer, error)

	CreateShader(typ ShaderType, src shader.Source) (Shader, error)
	CreateInputLayout(vs Shader, inputs []MaterialVertexInput) (VertexInputLayout, error)
	// CreateShaderSet takes ownership of layout and the shaders; gs may be nil.
	CreateShaderSet(layout VertexInputLayout, vs, gs, fs Shader) (ShaderSet, error)
	CreateShaderConstantBindings(ss ShaderSet, globals []MaterialGlobalInputElement,
		perObject []MaterialPerObjectInputElement) (ShaderConstantBindings, error)
	CreateShaderTextureBindingSlots(ss ShaderSet, inputs []MaterialTextureInputElement) (ShaderTextureBindingSlots, error)

	CreateFramebuffer(width, height int) (Framebuffer, error)
	// CreateTexture2D creates a texture; data may be nil for uninitialized contents.
	CreateTexture2D(width, height int, format PixelFormat, data []byte) (Texture2D, error)
	CreateDepthTexture(width, height int) (Texture2D, error)
	CreateCubemapTexture(width, height int, format PixelFormat, faces [6][]byte) (CubemapTexture, error)
	CreateShaderTextureBinding(tex DeviceTexture) (ShaderTextureBinding, error)

	CreateBlendState(desc BlendStateDescription) (BlendState, error)
	CreateDepthStencilState(desc DepthStencilDescription) (DepthStencilState, error)
	CreateRasterizerState(desc RasterizerDescription) (RasterizerState, error)
}

// ResourceFactory is the application-facing factory. It validates
// descriptors, composes typed convenience constructors over a DeviceFactory,
// resolves shaders through an ordered loader chain, and assembles materials.
type ResourceFactory struct {
	device  DeviceFactory
	shaders *shader.Chain
	watcher *shader.DirWatcher
}

// NewResourceFactory returns a factory over d. loaders seed the shader chain.
func NewResourceFactory(d DeviceFactory, loaders ...shader.Loader) *ResourceFactory {
	return &ResourceFactory{device: d, shaders: shader.NewChain(loaders...)}
}

// ApplyConfig registers a directory loader for each configured shader
// directory and starts the hot-reload watcher when enabled.
func (f *ResourceFactory) ApplyConfig(cfg Config) error {
	for _, dir := range cfg.ShaderDirs {
		f.shaders.Add(shader.DirLoader(dir))
	}
	if cfg.HotReload && len(cfg.ShaderDirs) > 0 {
		return f.WatchShaders(cfg.ShaderDirs, nil)
	}
	return nil
}

// WatchShaders evicts cached sources when files in dirs change. onChange,
// if set, runs on the watcher goroutine.
func (f *ResourceFactory) WatchShaders(dirs []string, onChange func(name string)) error {
	if f.watcher != nil {
		_ = f.watcher.Close()
	}
	w, err := shader.Watch(f.shaders, dirs, onChange)
	if err != nil {
		return err
	}
	f.watcher = w
	return nil
}

// Close stops the shader watcher, if any.
func (f *ResourceFactory) Close() error {
	if f.watcher == nil {
		return nil
	}
	err := f.watcher.Close()
	f.watcher = nil
	return err
}

func (f *ResourceFactory) Backend() Backend       { return f.device.Backend() }
func (f *ResourceFactory) Device() DeviceFactory  { return f.device }
func (f *ResourceFactory) Shaders() *shader.Chain { return f.shaders }

// AddShaderLoader appends l to the loader chain with the lowest priority.
func (f *ResourceFactory) AddShaderLoader(l shader.Loader) { f.shaders.Add(l) }

func checkSize(what string, n int) error {
	if n <= 0 {
		return fmt.Errorf("rhi: %s size %d: %w", what, n, ErrInvalidDimensions)
	}
	return nil
}

func checkExtent(what string, w, h int) error {
	if w <= 0 || h <= 0 {
		return fmt.Errorf("rhi: %s %dx%d: %w", what, w, h, ErrInvalidDimensions)
	}
	return nil
}

func (f *ResourceFactory) CreateVertexBuffer(sizeInBytes int, dynamic bool) (VertexBuffer, error) {
	if err := checkSize("vertex buffer", sizeInBytes); err != nil {
		return nil, err
	}
	return f.device.CreateVertexBuffer(sizeInBytes, dynamic)
}

func (f *ResourceFactory) CreateIndexBuffer(sizeInBytes int, dynamic bool, format IndexFormat) (IndexBuffer, error) {
	if err := checkSize("index buffer", sizeInBytes); err != nil {
		return nil, err
	}
	format.SizeInBytes()
	return f.device.CreateIndexBuffer(sizeInBytes, dynamic, format)
}

// CreateIndexBufferFrom creates a 32-bit index buffer holding indices.
func (f *ResourceFactory) CreateIndexBufferFrom(indices []int32, dynamic bool) (IndexBuffer, error) {
	return NewIndexBuffer(f, indices, IndexFormatUInt32, dynamic)
}

func (f *ResourceFactory) CreateConstantBuffer(sizeInBytes int) (ConstantBuffer, error) {
	if err := checkSize("constant buffer", sizeInBytes); err != nil {
		return nil, err
	}
	return f.device.CreateConstantBuffer(sizeInBytes)
}

func (f *ResourceFactory) CreateFramebuffer(width, height int) (Framebuffer, error) {
	if err := checkExtent("framebuffer", width, height); err != nil {
		return nil, err
	}
	return f.device.CreateFramebuffer(width, height)
}

// CreateFramebufferWith creates a framebuffer sized to color and attaches
// color at index 0 and depth, which may be nil.
func (f *ResourceFactory) CreateFramebufferWith(color, depth Texture2D) (Framebuffer, error) {
	fb, err := f.CreateFramebuffer(color.Width(), color.Height())
	if err != nil {
		return nil, err
	}
	if err := fb.AttachColorTexture(0, color); err != nil {
		fb.Dispose()
		return nil, err
	}
	if depth != nil {
		if err := fb.SetDepthTexture(depth); err != nil {
			fb.Dispose()
			return nil, err
		}
	}
	return fb, nil
}

// CreateTexture2D creates a texture from packed pixels; data may be nil.
func (f *ResourceFactory) CreateTexture2D(data []byte, width, height int, format PixelFormat) (Texture2D, error) {
	if err := checkExtent("texture", width, height); err != nil {
		return nil, err
	}
	if data != nil && len(data) != width*height*format.SizeInBytes() {
		return nil, fmt.Errorf("rhi: texture data is %d bytes, want %d: %w",
			len(data), width*height*format.SizeInBytes(), ErrOutOfRange)
	}
	return f.device.CreateTexture2D(width, height, format, data)
}

func (f *ResourceFactory) CreateDepthTexture(width, height int) (Texture2D, error) {
	if err := checkExtent("depth texture", width, height); err != nil {
		return nil, err
	}
	return f.device.CreateDepthTexture(width, height)
}

// CreateCubemapTexture creates a cubemap from six packed faces.
func (f *ResourceFactory) CreateCubemapTexture(faces [6][]byte, width, height int, format PixelFormat) (CubemapTexture, error) {
	if err := checkExtent("cubemap", width, height); err != nil {
		return nil, err
	}
	want := width * height * format.SizeInBytes()
	for i, face := range faces {
		if len(face) != want {
			return nil, fmt.Errorf("rhi: cubemap face %d is %d bytes, want %d: %w", i, len(face), want, ErrOutOfRange)
		}
	}
	return f.device.CreateCubemapTexture(width, height, format, faces)
}

// CreateTextureFromImage uploads img as an RGBA8 texture.
func (f *ResourceFactory) CreateTextureFromImage(img image.Image) (Texture2D, error) {
	b := img.Bounds()
	return f.CreateTextureFromImageScaled(img, b.Dx(), b.Dy())
}

// CreateTextureFromImageScaled resamples img to width x height and uploads it.
func (f *ResourceFactory) CreateTextureFromImageScaled(img image.Image, width, height int) (Texture2D, error) {
	if err := checkExtent("image", width, height); err != nil {
		return nil, err
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	src := img.Bounds()
	if src.Dx() == width && src.Dy() == height {
		draw.Draw(dst, dst.Bounds(), img, src.Min, draw.Src)
	} else {
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, src, draw.Src, nil)
	}
	return f.CreateTexture2D(dst.Pix, width, height, PixelFormatR8G8B8A8UInt)
}

func (f *ResourceFactory) CreateShaderTextureBinding(tex DeviceTexture) (ShaderTextureBinding, error) {
	return f.device.CreateShaderTextureBinding(tex)
}

func (f *ResourceFactory) CreateBlendState(desc BlendStateDescription) (BlendState, error) {
	desc.SourceColor.Factor()
	desc.DestinationColor.Factor()
	desc.SourceAlpha.Factor()
	desc.DestinationAlpha.Factor()
	desc.ColorFunction.Operation()
	desc.AlphaFunction.Operation()
	return f.device.CreateBlendState(desc)
}

func (f *ResourceFactory) CreateDepthStencilState(desc DepthStencilDescription) (DepthStencilState, error) {
	desc.Comparison.CompareFunction()
	return f.device.CreateDepthStencilState(desc)
}

func (f *ResourceFactory) CreateRasterizerState(desc RasterizerDescription) (RasterizerState, error) {
	desc.CullMode.CullMode()
	return f.device.CreateRasterizerState(desc)
}

// CreateShader compiles src for stage typ.
func (f *ResourceFactory) CreateShader(typ ShaderType, src shader.Source) (Shader, error) {
	typ.Stages()
	return f.device.CreateShader(typ, src)
}

// CreateShaderFromSource compiles raw text without consulting the loader chain.
func (f *ResourceFactory) CreateShaderFromSource(typ ShaderType, name string, lang shader.Language, text string) (Shader, error) {
	return f.CreateShader(typ, shader.Source{Name: name, Language: lang, Text: text})
}

// LoadShader resolves name through the loader chain in the device's
// language preference order and compiles it.
func (f *ResourceFactory) LoadShader(typ ShaderType, name string) (Shader, error) {
	src, err := f.shaders.Load(name, f.device.ShaderLanguages()...)
	if err != nil {
		return nil, err
	}
	return f.CreateShader(typ, src)
}

func (f *ResourceFactory) CreateInputLayout(vs Shader, inputs []MaterialVertexInput) (VertexInputLayout, error) {
	return f.device.CreateInputLayout(vs, inputs)
}

func (f *ResourceFactory) CreateShaderSet(layout VertexInputLayout, vs, gs, fs Shader) (ShaderSet, error) {
	return f.device.CreateShaderSet(layout, vs, gs, fs)
}

func (f *ResourceFactory) CreateShaderConstantBindings(ss ShaderSet, globals []MaterialGlobalInputElement,
	perObject []MaterialPerObjectInputElement) (ShaderConstantBindings, error) {
	return f.device.CreateShaderConstantBindings(ss, globals, perObject)
}

func (f *ResourceFactory) CreateShaderTextureBindingSlots(ss ShaderSet, inputs []MaterialTextureInputElement) (ShaderTextureBindingSlots, error) {
	return f.device.CreateShaderTextureBindingSlots(ss, inputs)
}

// CreateMaterial builds a material from desc: shaders by name, an input
// layout checked against the vertex shader, a shader set, constant and
// texture bindings, and the default textures the texture inputs declare.
// On failure everything created so far is disposed.
func (f *ResourceFactory) CreateMaterial(desc MaterialDescription) (_ *Material, err error) {
	if n := len(desc.VertexInputs); n < 1 || n > 2 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidVertexInputs, n)
	}

	var cleanup []Resource
	defer func() {
		if err != nil {
			for i := len(cleanup) - 1; i >= 0; i-- {
				cleanup[i].Dispose()
			}
		}
	}()

	vsrc, err := f.shaders.Load(desc.VertexShader, f.device.ShaderLanguages()...)
	if err != nil {
		return nil, err
	}
	if err := verifyVertexInputs(vsrc, desc.VertexInputs); err != nil {
		return nil, err
	}
	vs, err := f.CreateShader(ShaderTypeVertex, vsrc)
	if err != nil {
		return nil, err
	}
	cleanup = append(cleanup, vs)

	var gs Shader
	if desc.GeometryShader != "" {
		if gs, err = f.LoadShader(ShaderTypeGeometry, desc.GeometryShader); err != nil {
			return nil, err
		}
		cleanup = append(cleanup, gs)
	}
	fs, err := f.LoadShader(ShaderTypeFragment, desc.FragmentShader)
	if err != nil {
		return nil, err
	}
	cleanup = append(cleanup, fs)

	layout, err := f.device.CreateInputLayout(vs, desc.VertexInputs)
	if err != nil {
		return nil, err
	}
	cleanup = append(cleanup, layout)

	ss, err := f.device.CreateShaderSet(layout, vs, gs, fs)
	if err != nil {
		return nil, err
	}
	// The set owns the layout and shaders from here on.
	cleanup = append(cleanup[:0], ss)

	cb, err := f.device.CreateShaderConstantBindings(ss, desc.GlobalInputs, desc.PerObjectInputs)
	if err != nil {
		return nil, err
	}
	cleanup = append(cleanup, cb)

	ts, err := f.device.CreateShaderTextureBindingSlots(ss, desc.TextureInputs)
	if err != nil {
		return nil, err
	}
	cleanup = append(cleanup, ts)

	m := &Material{
		shaderSet:        ss,
		constantBindings: cb,
		textureSlots:     ts,
		defaultBindings:  make([]ShaderTextureBinding, len(desc.TextureInputs)),
	}
	for i, in := range desc.TextureInputs {
		if in.Default == nil {
			continue
		}
		tex, err := in.Default.CreateTexture(f)
		if err != nil {
			return nil, fmt.Errorf("rhi: default texture for %q: %w", in.Name, err)
		}
		cleanup = append(cleanup, tex)
		b, err := f.device.CreateShaderTextureBinding(tex)
		if err != nil {
			return nil, fmt.Errorf("rhi: default texture binding for %q: %w", in.Name, err)
		}
		cleanup = append(cleanup, b)
		m.defaultTextures = append(m.defaultTextures, tex)
		m.defaultBindings[i] = b
	}

	Logger().Debug("rhi: material created",
		"backend", f.Backend(),
		"vertex", desc.VertexShader,
		"fragment", desc.FragmentShader,
		"globals", len(desc.GlobalInputs),
		"perObject", len(desc.PerObjectInputs),
		"textures", len(desc.TextureInputs))
	return m, nil
}

// verifyVertexInputs checks that the declared elements, in order across
// buffers, match the vertex shader's inputs at locations 0..n-1. Only WGSL
// sources can be reflected; native sources are trusted.
func verifyVertexInputs(src shader.Source, inputs []MaterialVertexInput) error {
	if src.Language != shader.WGSL {
		return nil
	}
	r, err := shader.Reflect(src.Text)
	if err != nil {
		return fmt.Errorf("rhi: reflect %s: %w", src.Name, err)
	}
	var elems []MaterialVertexInputElement
	for _, in := range inputs {
		elems = append(elems, in.Elements...)
	}
	if len(elems) != len(r.VertexInputs) {
		return fmt.Errorf("%w: %s consumes %d attributes, layout declares %d",
			ErrInputLayoutMismatch, src.Name, len(r.VertexInputs), len(elems))
	}
	for i, in := range r.VertexInputs {
		if in.Location != uint32(i) {
			return fmt.Errorf("%w: %s input %q at location %d, want %d",
				ErrInputLayoutMismatch, src.Name, in.Name, in.Location, i)
		}
		if got := elems[i].Format.ShaderFormat(); got != in.Format {
			return fmt.Errorf("%w: %s input %q is %v, layout element %q is %v",
				ErrInputLayoutMismatch, src.Name, in.Name, in.Format, elems[i].Name, got)
		}
	}
	return nil
}

// asBytes reinterprets a slice of fixed-size values as bytes without copying.
func asBytes[T any](s []T) []byte {
	if len(s) == 0 {
		return nil
	}
	var zero T
	return unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(s))), len(s)*int(unsafe.Sizeof(zero)))
}

// Index is an integer type an index buffer can be filled from.
type Index interface {
	~uint8 | ~uint16 | ~uint32 | ~int8 | ~int16 | ~int32
}

// NewVertexBuffer creates a vertex buffer sized for vertices and uploads them.
func NewVertexBuffer[T any](f *ResourceFactory, vertices []T, desc VertexDescriptor, dynamic bool) (VertexBuffer, error) {
	data := asBytes(vertices)
	vb, err := f.CreateVertexBuffer(len(data), dynamic)
	if err != nil {
		return nil, err
	}
	if err := vb.SetVertexData(data, desc, 0); err != nil {
		vb.Dispose()
		return nil, err
	}
	return vb, nil
}

// SetVertices uploads vertices at vertex destinationOffset.
func SetVertices[T any](vb VertexBuffer, vertices []T, desc VertexDescriptor, destinationOffset int) error {
	return vb.SetVertexData(asBytes(vertices), desc, destinationOffset)
}

// NewIndexBuffer creates an index buffer holding indices in format. The
// element size of T must equal the format width.
func NewIndexBuffer[T Index](f *ResourceFactory, indices []T, format IndexFormat, dynamic bool) (IndexBuffer, error) {
	data, err := indexBytes(indices, format)
	if err != nil {
		return nil, err
	}
	ib, err := f.CreateIndexBuffer(len(data), dynamic, format)
	if err != nil {
		return nil, err
	}
	if err := ib.SetIndexData(data, format, 0); err != nil {
		ib.Dispose()
		return nil, err
	}
	return ib, nil
}

// SetIndices uploads indices in format starting at index offset.
func SetIndices[T Index](ib IndexBuffer, indices []T, format IndexFormat, offset int) error {
	data, err := indexBytes(indices, format)
	if err != nil {
		return err
	}
	return ib.SetIndexData(data, format, offset*format.SizeInBytes())
}

func indexBytes[T Index](indices []T, format IndexFormat) ([]byte, error) {
	var zero T
	if int(unsafe.Sizeof(zero)) != format.SizeInBytes() {
		return nil, fmt.Errorf("rhi: %T indices with %d-byte format: %w", zero, format.SizeInBytes(), ErrOutOfRange)
	}
	if len(indices) == 0 {
		return nil, fmt.Errorf("rhi: no indices: %w", ErrInvalidDimensions)
	}
	return asBytes(indices), nil
}

// ReadIndices reads count indices back from ib, widening them to int32.
func ReadIndices(ib IndexBuffer, count int) ([]int32, error) {
	width := ib.Format().SizeInBytes()
	raw := make([]byte, count*width)
	if err := ib.GetData(raw, 0); err != nil {
		return nil, err
	}
	out := make([]int32, count)
	for i := range out {
		switch width {
		case 1:
			out[i] = int32(raw[i])
		case 2:
			out[i] = int32(uint16(raw[2*i]) | uint16(raw[2*i+1])<<8)
		case 4:
			out[i] = int32(uint32(raw[4*i]) | uint32(raw[4*i+1])<<8 | uint32(raw[4*i+2])<<16 | uint32(raw[4*i+3])<<24)
		}
	}
	return out, nil
}

// NewTexture2D creates a texture from typed pixels. pixelSizeInBytes must
// match format.
func NewTexture2D[T any](f *ResourceFactory, pixels []T, width, height, pixelSizeInBytes int, format PixelFormat) (Texture2D, error) {
	if pixelSizeInBytes != format.SizeInBytes() {
		return nil, fmt.Errorf("rhi: pixel size %d for %v: %w", pixelSizeInBytes, format, ErrOutOfRange)
	}
	return f.CreateTexture2D(asBytes(pixels), width, height, format)
}

// NewCubemap creates a cubemap from six typed faces.
func NewCubemap[T any](f *ResourceFactory, faces [6][]T, width, height, pixelSizeInBytes int, format PixelFormat) (CubemapTexture, error) {
	if pixelSizeInBytes != format.SizeInBytes() {
		return nil, fmt.Errorf("rhi: pixel size %d for %v: %w", pixelSizeInBytes, format, ErrOutOfRange)
	}
	var raw [6][]byte
	for i, face := range faces {
		raw[i] = asBytes(face)
	}
	return f.CreateCubemapTexture(raw, width, height, format)
}
