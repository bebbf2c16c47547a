package rhi

import (
	"image"
	"image/color"
)

// MaterialVertexInputElement is one attribute of an interleaved vertex buffer.
type MaterialVertexInputElement struct {
	Name             string
	SemanticType     VertexSemanticType
	Format           VertexElementFormat
	InputClass       VertexInputClass
	InstanceStepRate int
}

// MaterialVertexInput describes one interleaved vertex buffer.
type MaterialVertexInput struct {
	// SizeInBytes is the vertex stride.
	SizeInBytes int
	Elements    []MaterialVertexInputElement
}

// NewMaterialVertexInput packs elements tightly and computes the stride.
func NewMaterialVertexInput(elements ...MaterialVertexInputElement) MaterialVertexInput {
	size := 0
	for _, el := range elements {
		size += el.Format.SizeInBytes()
	}
	return MaterialVertexInput{SizeInBytes: size, Elements: elements}
}

// Offsets returns the byte offset of each element.
func (in MaterialVertexInput) Offsets() []int {
	offs := make([]int, len(in.Elements))
	off := 0
	for i, el := range in.Elements {
		offs[i] = off
		off += el.Format.SizeInBytes()
	}
	return offs
}

// MaterialGlobalInputElement is a constant shared by every draw of a material,
// fed by a caller-owned provider.
type MaterialGlobalInputElement struct {
	Name     string
	Type     ShaderConstantType
	Provider ConstantBufferDataProvider
}

// MaterialPerObjectInputElement is a constant uploaded before each draw.
type MaterialPerObjectInputElement struct {
	Name string
	Type ShaderConstantType
	// BufferSizeInBytes overrides the size implied by Type. Required for custom types.
	BufferSizeInBytes int
}

// MaterialTextureInputElement is a texture the shaders sample.
type MaterialTextureInputElement struct {
	Name string
	// Stages the texture is visible to. Zero means fragment only.
	Stages ShaderStages
	// Default, when set, produces the texture bound until the caller binds another.
	Default DefaultTextureSource
}

// DefaultTextureSource creates a material's default texture.
type DefaultTextureSource interface {
	CreateTexture(f *ResourceFactory) (DeviceTexture, error)
}

// SolidColorTexture is a 1x1 texture of one color.
type SolidColorTexture struct {
	Color Color
}

func (s SolidColorTexture) CreateTexture(f *ResourceFactory) (DeviceTexture, error) {
	px := s.Color.RGBA8()
	return f.CreateTexture2D(px[:], 1, 1, PixelFormatR8G8B8A8UInt)
}

// ImageTexture uploads an image, converting it to RGBA8.
type ImageTexture struct {
	Image image.Image
}

func (s ImageTexture) CreateTexture(f *ResourceFactory) (DeviceTexture, error) {
	return f.CreateTextureFromImage(s.Image)
}

// CheckerTexture is a two-color checkerboard, useful as a missing-texture marker.
type CheckerTexture struct {
	Size, Cell int
	A, B       Color
}

func (s CheckerTexture) CreateTexture(f *ResourceFactory) (DeviceTexture, error) {
	img := image.NewRGBA(image.Rect(0, 0, s.Size, s.Size))
	a, b := s.A.RGBA8(), s.B.RGBA8()
	cell := max(s.Cell, 1)
	for y := 0; y < s.Size; y++ {
		for x := 0; x < s.Size; x++ {
			c := a
			if (x/cell+y/cell)%2 == 1 {
				c = b
			}
			img.SetRGBA(x, y, color.RGBA{R: c[0], G: c[1], B: c[2], A: c[3]})
		}
	}
	return f.CreateTextureFromImage(img)
}

// MaterialDescription declares everything CreateMaterial builds.
type MaterialDescription struct {
	VertexShader string
	// GeometryShader is optional.
	GeometryShader string
	FragmentShader string

	// VertexInputs describes one or two interleaved vertex buffers.
	VertexInputs    []MaterialVertexInput
	GlobalInputs    []MaterialGlobalInputElement
	PerObjectInputs []MaterialPerObjectInputElement
	TextureInputs   []MaterialTextureInputElement
}

// Material is a shader set with its constant and texture bindings. It owns
// everything it holds, including the default textures it created.
type Material struct {
	shaderSet        ShaderSet
	constantBindings ShaderConstantBindings
	textureSlots     ShaderTextureBindingSlots
	defaultBindings  []ShaderTextureBinding
	defaultTextures  []DeviceTexture
}

// NewMaterial assembles a material from existing parts. defaults is indexed by
// logical texture slot and may contain nils.
func NewMaterial(ss ShaderSet, cb ShaderConstantBindings, ts ShaderTextureBindingSlots,
	defaults []ShaderTextureBinding) *Material {
	return &Material{shaderSet: ss, constantBindings: cb, textureSlots: ts, defaultBindings: defaults}
}

func (m *Material) ShaderSet() ShaderSet                           { return m.shaderSet }
func (m *Material) ConstantBindings() ShaderConstantBindings       { return m.constantBindings }
func (m *Material) TextureBindingSlots() ShaderTextureBindingSlots { return m.textureSlots }

// DefaultTextureBinding returns the default binding of logical slot i, or nil.
func (m *Material) DefaultTextureBinding(i int) ShaderTextureBinding {
	if i < 0 || i >= len(m.defaultBindings) {
		return nil
	}
	return m.defaultBindings[i]
}

// ApplyPerObjectInput uploads p into the material's first per-object buffer.
func (m *Material) ApplyPerObjectInput(p ConstantBufferDataProvider) error {
	return m.constantBindings.ApplyPerObjectInput(p)
}

// ApplyPerObjectInputs uploads ps into the per-object buffers in order.
func (m *Material) ApplyPerObjectInputs(ps ...ConstantBufferDataProvider) error {
	return m.constantBindings.ApplyPerObjectInputs(ps)
}

// Dispose releases the material and everything it owns.
func (m *Material) Dispose() {
	for _, b := range m.defaultBindings {
		if b != nil {
			b.Dispose()
		}
	}
	for _, t := range m.defaultTextures {
		t.Dispose()
	}
	m.textureSlots.Dispose()
	m.constantBindings.Dispose()
	m.shaderSet.Dispose()
	m.defaultBindings, m.defaultTextures = nil, nil
}
