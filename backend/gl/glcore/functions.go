// Package glcore binds the gl backend to a desktop OpenGL 4.1 core context
// created with GLFW.
//
//	glfw.WindowHint(glfw.ContextVersionMajor, 4)
//	glfw.WindowHint(glfw.ContextVersionMinor, 1)
//	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
//	win, _ := glfw.CreateWindow(1280, 720, "demo", nil, nil)
//	b, err := glcore.New(win)
//	gl.Register(b)
//
// The package needs cgo and the platform GL headers.
package glcore

import (
	"strings"
	"unsafe"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"

	rhigl "github.com/gogpu/rhi/backend/gl"
)

// New makes the window's context current, loads the GL entry points, and
// returns bindings that present to the window.
func New(win *glfw.Window) (rhigl.Bindings, error) {
	win.MakeContextCurrent()
	if err := gl.Init(); err != nil {
		return rhigl.Bindings{}, err
	}
	return rhigl.Bindings{Functions: Functions{}, Surface: Window{win}}, nil
}

// Window presents the default framebuffer of a GLFW window.
type Window struct {
	*glfw.Window
}

func (w Window) SwapBuffers() error {
	w.Window.SwapBuffers()
	return nil
}

// SetSwapInterval applies to the current context, which is the window's.
func (w Window) SetSwapInterval(interval int) error {
	glfw.SwapInterval(interval)
	return nil
}

// Functions calls the loaded GL 4.1 core entry points.
type Functions struct{}

var _ rhigl.Functions = Functions{}

func ptr(b []byte) unsafe.Pointer {
	if len(b) == 0 {
		return nil
	}
	return gl.Ptr(b)
}

func cstr(s string) *uint8 { return gl.Str(s + "\x00") }

func (Functions) GetError() uint32                  { return gl.GetError() }
func (Functions) Enable(c uint32)                   { gl.Enable(c) }
func (Functions) Disable(c uint32)                  { gl.Disable(c) }
func (Functions) Viewport(x, y, w, h int32)         { gl.Viewport(x, y, w, h) }
func (Functions) Scissor(x, y, w, h int32)          { gl.Scissor(x, y, w, h) }
func (Functions) ClearColor(r, g, b, a float32)     { gl.ClearColor(r, g, b, a) }
func (Functions) ClearDepth(depth float64)          { gl.ClearDepth(depth) }
func (Functions) ClearStencil(s int32)              { gl.ClearStencil(s) }
func (Functions) Clear(mask uint32)                 { gl.Clear(mask) }
func (Functions) ColorMask(r, g, b, a bool)         { gl.ColorMask(r, g, b, a) }
func (Functions) DepthMask(flag bool)               { gl.DepthMask(flag) }
func (Functions) DepthFunc(fn uint32)               { gl.DepthFunc(fn) }
func (Functions) BlendColor(r, g, b, a float32)     { gl.BlendColor(r, g, b, a) }
func (Functions) CullFace(mode uint32)              { gl.CullFace(mode) }
func (Functions) PolygonMode(face, mode uint32)     { gl.PolygonMode(face, mode) }
func (Functions) BlendEquationSeparate(c, a uint32) { gl.BlendEquationSeparate(c, a) }

func (Functions) BlendFuncSeparate(srcRGB, dstRGB, srcAlpha, dstAlpha uint32) {
	gl.BlendFuncSeparate(srcRGB, dstRGB, srcAlpha, dstAlpha)
}

func (Functions) GenBuffer() uint32 {
	var b uint32
	gl.GenBuffers(1, &b)
	return b
}

func (Functions) DeleteBuffer(b uint32)                  { gl.DeleteBuffers(1, &b) }
func (Functions) BindBuffer(target, b uint32)            { gl.BindBuffer(target, b) }
func (Functions) BindBufferBase(target, index, b uint32) { gl.BindBufferBase(target, index, b) }

func (Functions) BufferData(target uint32, size int, data []byte, usage uint32) {
	gl.BufferData(target, size, ptr(data), usage)
}

func (Functions) BufferSubData(target uint32, offset int, data []byte) {
	gl.BufferSubData(target, offset, len(data), ptr(data))
}

func (Functions) GetBufferSubData(target uint32, offset int, dst []byte) {
	gl.GetBufferSubData(target, offset, len(dst), ptr(dst))
}

func (Functions) GenVertexArray() uint32 {
	var a uint32
	gl.GenVertexArrays(1, &a)
	return a
}

func (Functions) DeleteVertexArray(a uint32)            { gl.DeleteVertexArrays(1, &a) }
func (Functions) BindVertexArray(a uint32)              { gl.BindVertexArray(a) }
func (Functions) EnableVertexAttribArray(i uint32)      { gl.EnableVertexAttribArray(i) }
func (Functions) DisableVertexAttribArray(i uint32)     { gl.DisableVertexAttribArray(i) }
func (Functions) VertexAttribDivisor(i, divisor uint32) { gl.VertexAttribDivisor(i, divisor) }

func (Functions) VertexAttribPointer(i uint32, size int32, typ uint32, normalized bool, stride int32, offset int) {
	gl.VertexAttribPointer(i, size, typ, normalized, stride, gl.PtrOffset(offset))
}

func (Functions) VertexAttribIPointer(i uint32, size int32, typ uint32, stride int32, offset int) {
	gl.VertexAttribIPointer(i, size, typ, stride, gl.PtrOffset(offset))
}

func (Functions) GenTexture() uint32 {
	var t uint32
	gl.GenTextures(1, &t)
	return t
}

func (Functions) DeleteTexture(t uint32)                      { gl.DeleteTextures(1, &t) }
func (Functions) ActiveTexture(unit uint32)                   { gl.ActiveTexture(unit) }
func (Functions) BindTexture(target, t uint32)                { gl.BindTexture(target, t) }
func (Functions) TexParameteri(target, pname uint32, v int32) { gl.TexParameteri(target, pname, v) }
func (Functions) PixelStorei(pname uint32, v int32)           { gl.PixelStorei(pname, v) }

func (Functions) TexImage2D(target uint32, level, internalFormat, width, height int32, format, typ uint32, data []byte) {
	gl.TexImage2D(target, level, internalFormat, width, height, 0, format, typ, ptr(data))
}

func (Functions) TexSubImage2D(target uint32, level, x, y, width, height int32, format, typ uint32, data []byte) {
	gl.TexSubImage2D(target, level, x, y, width, height, format, typ, ptr(data))
}

func (Functions) GetTexImage(target uint32, level int32, format, typ uint32, dst []byte) {
	gl.GetTexImage(target, level, format, typ, ptr(dst))
}

func (Functions) GenFramebuffer() uint32 {
	var fb uint32
	gl.GenFramebuffers(1, &fb)
	return fb
}

func (Functions) DeleteFramebuffer(fb uint32)                 { gl.DeleteFramebuffers(1, &fb) }
func (Functions) BindFramebuffer(target, fb uint32)           { gl.BindFramebuffer(target, fb) }
func (Functions) CheckFramebufferStatus(target uint32) uint32 { return gl.CheckFramebufferStatus(target) }

func (Functions) FramebufferTexture2D(target, attachment, texTarget, t uint32, level int32) {
	gl.FramebufferTexture2D(target, attachment, texTarget, t, level)
}

func (Functions) DrawBuffers(bufs []uint32) {
	if len(bufs) == 0 {
		return
	}
	gl.DrawBuffers(int32(len(bufs)), &bufs[0])
}

func (Functions) CreateShader(typ uint32) uint32 { return gl.CreateShader(typ) }

func (Functions) ShaderSource(s uint32, source string) {
	csources, free := gl.Strs(source + "\x00")
	gl.ShaderSource(s, 1, csources, nil)
	free()
}

func (Functions) CompileShader(s uint32) { gl.CompileShader(s) }

func (Functions) GetShaderi(s, pname uint32) int32 {
	var v int32
	gl.GetShaderiv(s, pname, &v)
	return v
}

func (Functions) GetShaderInfoLog(s uint32) string {
	var n int32
	gl.GetShaderiv(s, gl.INFO_LOG_LENGTH, &n)
	msg := strings.Repeat("\x00", int(n+1))
	gl.GetShaderInfoLog(s, n, nil, gl.Str(msg))
	return strings.TrimRight(msg, "\x00")
}

func (Functions) DeleteShader(s uint32)    { gl.DeleteShader(s) }
func (Functions) CreateProgram() uint32    { return gl.CreateProgram() }
func (Functions) AttachShader(p, s uint32) { gl.AttachShader(p, s) }
func (Functions) LinkProgram(p uint32)     { gl.LinkProgram(p) }
func (Functions) UseProgram(p uint32)      { gl.UseProgram(p) }
func (Functions) DeleteProgram(p uint32)   { gl.DeleteProgram(p) }

func (Functions) GetProgrami(p, pname uint32) int32 {
	var v int32
	gl.GetProgramiv(p, pname, &v)
	return v
}

func (Functions) GetProgramInfoLog(p uint32) string {
	var n int32
	gl.GetProgramiv(p, gl.INFO_LOG_LENGTH, &n)
	msg := strings.Repeat("\x00", int(n+1))
	gl.GetProgramInfoLog(p, n, nil, gl.Str(msg))
	return strings.TrimRight(msg, "\x00")
}

func (Functions) GetAttribLocation(p uint32, name string) int32 {
	return gl.GetAttribLocation(p, cstr(name))
}

func (Functions) GetUniformLocation(p uint32, name string) int32 {
	return gl.GetUniformLocation(p, cstr(name))
}

func (Functions) Uniform1i(loc, v int32) { gl.Uniform1i(loc, v) }

func (Functions) GetUniformBlockIndex(p uint32, name string) uint32 {
	return gl.GetUniformBlockIndex(p, cstr(name))
}

func (Functions) UniformBlockBinding(p, index, binding uint32) {
	gl.UniformBlockBinding(p, index, binding)
}

func (Functions) DrawElementsBaseVertex(mode uint32, count int32, typ uint32, offset int, baseVertex int32) {
	gl.DrawElementsBaseVertex(mode, count, typ, gl.PtrOffset(offset), baseVertex)
}

func (Functions) DrawElementsInstancedBaseVertex(mode uint32, count int32, typ uint32, offset int, instances, baseVertex int32) {
	gl.DrawElementsInstancedBaseVertex(mode, count, typ, gl.PtrOffset(offset), instances, baseVertex)
}
