package rhi

import "fmt"

// ConstantBufferCreator is the part of a DeviceFactory constant bindings need.
type ConstantBufferCreator interface {
	CreateConstantBuffer(sizeInBytes int) (ConstantBuffer, error)
}

// GlobalConstantBinding is one global input and the buffer backing it.
type GlobalConstantBinding struct {
	Element  MaterialGlobalInputElement
	Buffer   ConstantBuffer
	uploaded bool
	version  uint64
}

// PerObjectConstantBinding is one per-object input and the buffer backing it.
type PerObjectConstantBinding struct {
	Element MaterialPerObjectInputElement
	Buffer  ConstantBuffer
}

// ConstantBindingTable creates and fills the constant buffers of a material.
// Backends embed it in their ShaderConstantBindings and bind Buffer(i) at
// constant slot i: globals first, then per-object inputs, in declaration order.
type ConstantBindingTable struct {
	Globals   []GlobalConstantBinding
	PerObject []PerObjectConstantBinding
}

// NewConstantBindingTable allocates one buffer per input. Sizes are rounded up
// to 16 bytes, the constant-buffer granularity of every supported backend.
func NewConstantBindingTable(c ConstantBufferCreator, globals []MaterialGlobalInputElement,
	perObject []MaterialPerObjectInputElement) (*ConstantBindingTable, error) {
	t := &ConstantBindingTable{}
	for _, el := range globals {
		if el.Provider == nil {
			t.Dispose()
			return nil, fmt.Errorf("rhi: global input %q has no data provider", el.Name)
		}
		size := el.Provider.DataSizeInBytes()
		if size <= 0 {
			size = el.Type.SizeInBytes()
		}
		cb, err := c.CreateConstantBuffer(alignConstant(size))
		if err != nil {
			t.Dispose()
			return nil, fmt.Errorf("rhi: global input %q: %w", el.Name, err)
		}
		t.Globals = append(t.Globals, GlobalConstantBinding{Element: el, Buffer: cb})
	}
	for _, el := range perObject {
		size := el.BufferSizeInBytes
		if size <= 0 {
			size = el.Type.SizeInBytes()
		}
		cb, err := c.CreateConstantBuffer(alignConstant(size))
		if err != nil {
			t.Dispose()
			return nil, fmt.Errorf("rhi: per-object input %q: %w", el.Name, err)
		}
		t.PerObject = append(t.PerObject, PerObjectConstantBinding{Element: el, Buffer: cb})
	}
	return t, nil
}

func alignConstant(n int) int {
	if n <= 0 {
		return 16
	}
	return (n + 15) &^ 15
}

// Len returns the number of constant slots.
func (t *ConstantBindingTable) Len() int { return len(t.Globals) + len(t.PerObject) }

// Buffer returns the buffer at constant slot i.
func (t *ConstantBindingTable) Buffer(i int) ConstantBuffer {
	if i < len(t.Globals) {
		return t.Globals[i].Buffer
	}
	return t.PerObject[i-len(t.Globals)].Buffer
}

// Name returns the shader-side name of constant slot i.
func (t *ConstantBindingTable) Name(i int) string {
	if i < len(t.Globals) {
		return t.Globals[i].Element.Name
	}
	return t.PerObject[i-len(t.Globals)].Element.Name
}

// UpdateGlobalInputs uploads global provider data. Versioned providers are
// uploaded only when their version moved; others every time.
func (t *ConstantBindingTable) UpdateGlobalInputs() error {
	for i := range t.Globals {
		g := &t.Globals[i]
		vp, versioned := g.Element.Provider.(VersionedProvider)
		if versioned && g.uploaded && vp.Version() == g.version {
			continue
		}
		if err := g.Element.Provider.SetData(g.Buffer); err != nil {
			return fmt.Errorf("rhi: update global input %q: %w", g.Element.Name, err)
		}
		g.uploaded = true
		if versioned {
			g.version = vp.Version()
		}
	}
	return nil
}

// ApplyPerObjectInput uploads p into the first per-object buffer.
func (t *ConstantBindingTable) ApplyPerObjectInput(p ConstantBufferDataProvider) error {
	if len(t.PerObject) == 0 {
		return fmt.Errorf("rhi: material has no per-object inputs: %w", ErrOutOfRange)
	}
	return p.SetData(t.PerObject[0].Buffer)
}

// ApplyPerObjectInputs uploads ps into the per-object buffers in order.
func (t *ConstantBindingTable) ApplyPerObjectInputs(ps []ConstantBufferDataProvider) error {
	if len(ps) > len(t.PerObject) {
		return fmt.Errorf("rhi: %d per-object providers for %d inputs: %w", len(ps), len(t.PerObject), ErrOutOfRange)
	}
	for i, p := range ps {
		if err := p.SetData(t.PerObject[i].Buffer); err != nil {
			return fmt.Errorf("rhi: per-object input %q: %w", t.PerObject[i].Element.Name, err)
		}
	}
	return nil
}

// Dispose releases every buffer.
func (t *ConstantBindingTable) Dispose() {
	for _, g := range t.Globals {
		g.Buffer.Dispose()
	}
	for _, p := range t.PerObject {
		p.Buffer.Dispose()
	}
	t.Globals, t.PerObject = nil, nil
}

// TextureSlotTable numbers texture inputs per stage in declaration order.
// Backends embed it in their ShaderTextureBindingSlots.
type TextureSlotTable struct {
	inputs []MaterialTextureInputElement
	slots  []TextureBindingSlot
}

// AssignTextureSlots builds the slot table for inputs. An input with no
// stages is visible to the fragment stage. Each stage counts its own slots,
// so one input can sit at different native slots on different stages.
func AssignTextureSlots(inputs []MaterialTextureInputElement) (*TextureSlotTable, error) {
	t := &TextureSlotTable{
		inputs: inputs,
		slots:  make([]TextureBindingSlot, len(inputs)),
	}
	var next [NumShaderStages]int
	for i, in := range inputs {
		stages := in.Stages
		if stages == 0 {
			stages = ShaderStageFragment
		}
		slot := TextureBindingSlot{Stages: stages}
		for st := ShaderTypeVertex; st <= ShaderTypeFragment; st++ {
			if !stages.Has(st) {
				continue
			}
			if next[st] >= MaxTextureSlots {
				return nil, fmt.Errorf("rhi: texture input %q on %s stage: %w", in.Name, st, ErrTooManyTextures)
			}
			slot.DeviceSlots[st] = next[st]
			next[st]++
		}
		t.slots[i] = slot
	}
	return t, nil
}

func (t *TextureSlotTable) Len() int { return len(t.slots) }

func (t *TextureSlotTable) Slot(i int) TextureBindingSlot { return t.slots[i] }

// Input returns the declaration of logical slot i.
func (t *TextureSlotTable) Input(i int) MaterialTextureInputElement { return t.inputs[i] }
