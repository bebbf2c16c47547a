package rhi

import (
	"image"
	"slices"
	"testing"
)

func TestNewMaterialVertexInput(t *testing.T) {
	in := NewMaterialVertexInput(
		MaterialVertexInputElement{Name: "pos", Format: VertexElementFormatFloat3},
		MaterialVertexInputElement{Name: "color", Format: VertexElementFormatByte4Norm},
		MaterialVertexInputElement{Name: "uv", Format: VertexElementFormatFloat2},
	)
	if in.SizeInBytes != 24 {
		t.Errorf("SizeInBytes = %d, want 24", in.SizeInBytes)
	}
	if got := in.Offsets(); !slices.Equal(got, []int{0, 12, 16}) {
		t.Errorf("Offsets() = %v", got)
	}
}

func TestDefaultTextureSources(t *testing.T) {
	f, _ := newTestFactory()
	tests := []struct {
		name      string
		src       DefaultTextureSource
		w, h      int
		firstTexel []byte
	}{
		{"solid", SolidColorTexture{Color: ColorBlack}, 1, 1, []byte{0, 0, 0, 255}},
		{"image", ImageTexture{Image: image.NewRGBA(image.Rect(0, 0, 3, 2))}, 3, 2, []byte{0, 0, 0, 0}},
		{"checker", CheckerTexture{Size: 4, Cell: 2, A: ColorWhite, B: ColorBlack}, 4, 4, []byte{255, 255, 255, 255}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tex, err := tt.src.CreateTexture(f)
			if err != nil {
				t.Fatal(err)
			}
			if tex.Width() != tt.w || tex.Height() != tt.h {
				t.Errorf("size %dx%d, want %dx%d", tex.Width(), tex.Height(), tt.w, tt.h)
			}
			px := make([]byte, 4)
			if err := tex.(Texture2D).GetTextureData(px); err != nil {
				t.Fatal(err)
			}
			if !slices.Equal(px, tt.firstTexel) {
				t.Errorf("first texel = %v, want %v", px, tt.firstTexel)
			}
		})
	}
}

func TestCheckerTexturePattern(t *testing.T) {
	f, _ := newTestFactory()
	tex, err := CheckerTexture{Size: 4, Cell: 2, A: ColorWhite, B: ColorBlack}.CreateTexture(f)
	if err != nil {
		t.Fatal(err)
	}
	px := make([]byte, 4*4*4)
	if err := tex.(Texture2D).GetTextureData(px); err != nil {
		t.Fatal(err)
	}
	at := func(x, y int) byte { return px[(y*4+x)*4] }
	if at(0, 0) != 255 || at(2, 0) != 0 || at(0, 2) != 0 || at(3, 3) != 255 {
		t.Errorf("unexpected checker pattern: %v", px)
	}
}

func TestMaterialDefaultTextureBindingRange(t *testing.T) {
	d := newFakeDevice()
	def := &fakeBinding{}
	m := newTestMaterial(t, d, []MaterialTextureInputElement{{Name: "a"}}, []ShaderTextureBinding{def})
	if m.DefaultTextureBinding(0) != def {
		t.Error("DefaultTextureBinding(0) lost the binding")
	}
	for _, i := range []int{-1, 1, 10} {
		if m.DefaultTextureBinding(i) != nil {
			t.Errorf("DefaultTextureBinding(%d) != nil", i)
		}
	}
}

func TestMaterialApplyPerObjectInput(t *testing.T) {
	f, _ := newTestFactory()
	desc := texturedDescription()
	desc.PerObjectInputs = []MaterialPerObjectInputElement{{Name: "world", Type: ShaderConstantTypeMatrix4x4}}
	m, err := f.CreateMaterial(desc)
	if err != nil {
		t.Fatal(err)
	}
	defer m.Dispose()

	if err := m.ApplyPerObjectInput(NewIdentityProvider()); err != nil {
		t.Fatal(err)
	}
	table := m.ConstantBindings().(*fakeConstantBindings)
	if table.PerObject[0].Buffer.(*fakeBuffer).writes != 1 {
		t.Error("per-object buffer not written")
	}
	if err := m.ApplyPerObjectInputs(NewIdentityProvider(), NewIdentityProvider()); err == nil {
		t.Error("two providers for one per-object input accepted")
	}
}
