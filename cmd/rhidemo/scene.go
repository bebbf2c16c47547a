package main

import (
	"embed"
	"image"
	"image/color"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/rhi"
	"github.com/gogpu/rhi/shader"
)

//go:embed shaders
var shaders embed.FS

type vertex struct {
	pos mgl32.Vec3
	uv  mgl32.Vec2
}

// scene is a quad with a checkerboard texture, rotated by a camera matrix.
type scene struct {
	material *rhi.Material
	camera   *rhi.MatrixProvider
	vb       rhi.VertexBuffer
	ib       rhi.IndexBuffer
	blend    rhi.BlendState
	texture  rhi.Texture2D
	binding  rhi.ShaderTextureBinding
}

func newScene(rc *rhi.RenderContext, f *rhi.ResourceFactory) (_ *scene, err error) {
	s := &scene{camera: rhi.NewIdentityProvider()}
	defer func() {
		if err != nil {
			s.Dispose()
		}
	}()

	f.AddShaderLoader(shader.FSLoader{FS: shaders, Dir: "shaders"})
	s.material, err = f.CreateMaterial(rhi.MaterialDescription{
		VertexShader:   "quad",
		FragmentShader: "quad",
		VertexInputs: []rhi.MaterialVertexInput{rhi.NewMaterialVertexInput(
			rhi.MaterialVertexInputElement{Name: "pos", SemanticType: rhi.VertexSemanticTypePosition, Format: rhi.VertexElementFormatFloat3},
			rhi.MaterialVertexInputElement{Name: "uv", SemanticType: rhi.VertexSemanticTypeTextureCoordinate, Format: rhi.VertexElementFormatFloat2},
		)},
		GlobalInputs: []rhi.MaterialGlobalInputElement{
			{Name: "Camera", Type: rhi.ShaderConstantTypeMatrix4x4, Provider: s.camera},
		},
		TextureInputs: []rhi.MaterialTextureInputElement{
			{Name: "tex", Default: rhi.SolidColorTexture{Color: rhi.ColorWhite}},
		},
	})
	if err != nil {
		return nil, err
	}

	// Texture coordinates follow the backend: GL samples bottom-up.
	tl, br := rc.TopLeftUV(), rc.BottomRightUV()
	quad := []vertex{
		{mgl32.Vec3{-0.5, 0.5, 0}, tl},
		{mgl32.Vec3{0.5, 0.5, 0}, mgl32.Vec2{br.X(), tl.Y()}},
		{mgl32.Vec3{0.5, -0.5, 0}, br},
		{mgl32.Vec3{-0.5, -0.5, 0}, mgl32.Vec2{tl.X(), br.Y()}},
	}
	s.vb, err = rhi.NewVertexBuffer(f, quad, rhi.VertexDescriptor{VertexSizeInBytes: 20, ElementCount: 2}, false)
	if err != nil {
		return nil, err
	}
	s.ib, err = rhi.NewIndexBuffer(f, []uint16{0, 1, 2, 0, 2, 3}, rhi.IndexFormatUInt16, false)
	if err != nil {
		return nil, err
	}
	if s.blend, err = f.CreateBlendState(rhi.BlendAlpha); err != nil {
		return nil, err
	}
	if s.texture, err = f.CreateTextureFromImage(checkerboard(64, 8)); err != nil {
		return nil, err
	}
	s.binding, err = f.CreateShaderTextureBinding(s.texture)
	return s, err
}

func checkerboard(size, cell int) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, size, size))
	light := color.NRGBA{R: 240, G: 200, B: 80, A: 255}
	dark := color.NRGBA{R: 40, G: 60, B: 120, A: 255}
	for y := range size {
		for x := range size {
			c := dark
			if (x/cell+y/cell)%2 == 0 {
				c = light
			}
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

// Draw renders one frame at time t seconds into the default framebuffer.
func (s *scene) Draw(rc *rhi.RenderContext, t float32) error {
	fb := rc.DefaultFramebuffer()
	aspect := float32(fb.Width()) / float32(fb.Height())
	s.camera.Set(mgl32.Ortho2D(-aspect, aspect, -1, 1).Mul4(mgl32.HomogRotate3DZ(t)))

	rc.SetDefaultFramebuffer()
	rc.ClearBuffer()
	if err := rc.SetMaterial(s.material); err != nil {
		return err
	}
	rc.SetTexture(0, s.binding)
	rc.SetBlendState(s.blend)
	rc.SetVertexBuffer(0, s.vb)
	rc.SetIndexBuffer(s.ib)
	rc.DrawIndexedPrimitives(6, 0)
	return nil
}

func (s *scene) Dispose() {
	for _, r := range []rhi.Resource{s.binding, s.texture, s.blend, s.ib, s.vb} {
		if r != nil {
			r.Dispose()
		}
	}
	if s.material != nil {
		s.material.Dispose()
	}
}
