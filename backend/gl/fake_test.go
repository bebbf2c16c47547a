package gl

import (
	"fmt"
	"slices"
	"strings"
)

type fakeTexture struct {
	width, height int32
	// images of level 0, one per face.
	images map[uint32][]byte
	params map[uint32]int32
}

// fakeGL records every GL call and emulates buffer and texture storage.
type fakeGL struct {
	calls []string
	next  uint32

	buffers  map[uint32][]byte
	textures map[uint32]*fakeTexture
	bound    map[uint32]uint32 // target -> buffer
	unit     uint32
	units    map[uint32]map[uint32]uint32 // unit -> target -> texture
	deleted  []uint32

	compileFail map[uint32]bool // shader type or object -> fail
	linkFail    bool
	attribs     map[string]int32
	uniforms    map[string]int32
	blocks      map[string]uint32
	status      uint32
	errs        []uint32
}

func newFakeGL() *fakeGL {
	return &fakeGL{
		next:        1,
		buffers:     map[uint32][]byte{},
		textures:    map[uint32]*fakeTexture{},
		bound:       map[uint32]uint32{},
		units:       map[uint32]map[uint32]uint32{},
		compileFail: map[uint32]bool{},
		attribs:     map[string]int32{},
		uniforms:    map[string]int32{},
		blocks:      map[string]uint32{},
		status:      FramebufferComplete,
	}
}

func (f *fakeGL) record(format string, args ...any) {
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
}

// called returns the recorded calls starting with prefix.
func (f *fakeGL) called(prefix string) []string {
	var out []string
	for _, c := range f.calls {
		if strings.HasPrefix(c, prefix) {
			out = append(out, c)
		}
	}
	return out
}

// index returns the position of the first call starting with prefix, or -1.
func (f *fakeGL) index(prefix string) int {
	return slices.IndexFunc(f.calls, func(c string) bool { return strings.HasPrefix(c, prefix) })
}

func (f *fakeGL) reset() { f.calls = nil }

func (f *fakeGL) gen() uint32 {
	n := f.next
	f.next++
	return n
}

func (f *fakeGL) GetError() uint32 {
	if len(f.errs) == 0 {
		return NoError
	}
	e := f.errs[0]
	f.errs = f.errs[1:]
	return e
}

func (f *fakeGL) Enable(c uint32)                   { f.record("Enable 0x%x", c) }
func (f *fakeGL) Disable(c uint32)                  { f.record("Disable 0x%x", c) }
func (f *fakeGL) Viewport(x, y, w, h int32)         { f.record("Viewport %d %d %d %d", x, y, w, h) }
func (f *fakeGL) Scissor(x, y, w, h int32)          { f.record("Scissor %d %d %d %d", x, y, w, h) }
func (f *fakeGL) ClearColor(r, g, b, a float32)     { f.record("ClearColor %v %v %v %v", r, g, b, a) }
func (f *fakeGL) ClearDepth(d float64)              { f.record("ClearDepth %v", d) }
func (f *fakeGL) ClearStencil(s int32)              { f.record("ClearStencil %d", s) }
func (f *fakeGL) Clear(mask uint32)                 { f.record("Clear 0x%x", mask) }
func (f *fakeGL) ColorMask(r, g, b, a bool)         { f.record("ColorMask %v %v %v %v", r, g, b, a) }
func (f *fakeGL) DepthMask(flag bool)               { f.record("DepthMask %v", flag) }
func (f *fakeGL) DepthFunc(fn uint32)               { f.record("DepthFunc 0x%x", fn) }
func (f *fakeGL) BlendColor(r, g, b, a float32)     { f.record("BlendColor %v %v %v %v", r, g, b, a) }
func (f *fakeGL) CullFace(mode uint32)              { f.record("CullFace 0x%x", mode) }
func (f *fakeGL) PolygonMode(face, mode uint32)     { f.record("PolygonMode 0x%x 0x%x", face, mode) }
func (f *fakeGL) BlendEquationSeparate(c, a uint32) { f.record("BlendEquationSeparate 0x%x 0x%x", c, a) }

func (f *fakeGL) BlendFuncSeparate(srcRGB, dstRGB, srcAlpha, dstAlpha uint32) {
	f.record("BlendFuncSeparate 0x%x 0x%x 0x%x 0x%x", srcRGB, dstRGB, srcAlpha, dstAlpha)
}

func (f *fakeGL) GenBuffer() uint32 {
	b := f.gen()
	f.buffers[b] = nil
	f.record("GenBuffer %d", b)
	return b
}

func (f *fakeGL) DeleteBuffer(b uint32) {
	delete(f.buffers, b)
	f.deleted = append(f.deleted, b)
	f.record("DeleteBuffer %d", b)
}

func (f *fakeGL) BindBuffer(target, b uint32) {
	f.bound[target] = b
	f.record("BindBuffer 0x%x %d", target, b)
}

func (f *fakeGL) BindBufferBase(target, index, b uint32) {
	f.record("BindBufferBase 0x%x %d %d", target, index, b)
}

func (f *fakeGL) BufferData(target uint32, size int, data []byte, usage uint32) {
	buf := make([]byte, size)
	copy(buf, data)
	f.buffers[f.bound[target]] = buf
	f.record("BufferData %d size=%d usage=0x%x", f.bound[target], size, usage)
}

func (f *fakeGL) BufferSubData(target uint32, offset int, data []byte) {
	copy(f.buffers[f.bound[target]][offset:], data)
	f.record("BufferSubData %d [%d,%d)", f.bound[target], offset, offset+len(data))
}

func (f *fakeGL) GetBufferSubData(target uint32, offset int, dst []byte) {
	copy(dst, f.buffers[f.bound[target]][offset:])
	f.record("GetBufferSubData %d [%d,%d)", f.bound[target], offset, offset+len(dst))
}

func (f *fakeGL) GenVertexArray() uint32 {
	a := f.gen()
	f.record("GenVertexArray %d", a)
	return a
}

func (f *fakeGL) DeleteVertexArray(a uint32)        { f.record("DeleteVertexArray %d", a) }
func (f *fakeGL) BindVertexArray(a uint32)          { f.record("BindVertexArray %d", a) }
func (f *fakeGL) EnableVertexAttribArray(i uint32)  { f.record("EnableVertexAttribArray %d", i) }
func (f *fakeGL) DisableVertexAttribArray(i uint32) { f.record("DisableVertexAttribArray %d", i) }
func (f *fakeGL) VertexAttribDivisor(i, div uint32) { f.record("VertexAttribDivisor %d %d", i, div) }

func (f *fakeGL) VertexAttribPointer(i uint32, size int32, typ uint32, normalized bool, stride int32, offset int) {
	f.record("VertexAttribPointer %d size=%d type=0x%x norm=%v stride=%d offset=%d", i, size, typ, normalized, stride, offset)
}

func (f *fakeGL) VertexAttribIPointer(i uint32, size int32, typ uint32, stride int32, offset int) {
	f.record("VertexAttribIPointer %d size=%d type=0x%x stride=%d offset=%d", i, size, typ, stride, offset)
}

func (f *fakeGL) GenTexture() uint32 {
	t := f.gen()
	f.textures[t] = &fakeTexture{images: map[uint32][]byte{}, params: map[uint32]int32{}}
	f.record("GenTexture %d", t)
	return t
}

func (f *fakeGL) DeleteTexture(t uint32) {
	delete(f.textures, t)
	f.deleted = append(f.deleted, t)
	f.record("DeleteTexture %d", t)
}

func (f *fakeGL) ActiveTexture(unit uint32) {
	f.unit = unit - Texture0
	f.record("ActiveTexture %d", f.unit)
}

func (f *fakeGL) BindTexture(target, t uint32) {
	if f.units[f.unit] == nil {
		f.units[f.unit] = map[uint32]uint32{}
	}
	f.units[f.unit][target] = t
	f.record("BindTexture 0x%x %d", target, t)
}

// boundTexture is the texture bound to target on the active unit.
func (f *fakeGL) boundTexture(target uint32) *fakeTexture {
	return f.textures[f.units[f.unit][target]]
}

func (f *fakeGL) TexParameteri(target, pname uint32, param int32) {
	f.boundTexture(target).params[pname] = param
	f.record("TexParameteri 0x%x 0x%x 0x%x", target, pname, param)
}

func faceTarget(img uint32) uint32 {
	if img >= TextureCubeMapPosX && img < TextureCubeMapPosX+6 {
		return TextureCubeMap
	}
	return img
}

func texelBytes(format, typ uint32) int {
	n := 1
	if format == RGBA {
		n = 4
	}
	switch typ {
	case Float, UnsignedInt24_8:
		return n * 4
	case UnsignedShort:
		return n * 2
	default:
		return n
	}
}

func (f *fakeGL) TexImage2D(img uint32, level, internalFormat, width, height int32, format, typ uint32, data []byte) {
	t := f.boundTexture(faceTarget(img))
	t.width, t.height = width, height
	buf := make([]byte, int(width*height)*texelBytes(format, typ))
	copy(buf, data)
	t.images[img] = buf
	f.record("TexImage2D 0x%x %dx%d internal=0x%x data=%v", img, width, height, internalFormat, data != nil)
}

func (f *fakeGL) TexSubImage2D(target uint32, level, x, y, width, height int32, format, typ uint32, data []byte) {
	t := f.boundTexture(target)
	px := texelBytes(format, typ)
	img := t.images[target]
	for row := range int(height) {
		dst := (int(y)+row)*int(t.width)*px + int(x)*px
		copy(img[dst:dst+int(width)*px], data[row*int(width)*px:])
	}
	f.record("TexSubImage2D %d,%d %dx%d", x, y, width, height)
}

func (f *fakeGL) GetTexImage(target uint32, level int32, format, typ uint32, dst []byte) {
	copy(dst, f.boundTexture(target).images[target])
	f.record("GetTexImage 0x%x %d", target, len(dst))
}

func (f *fakeGL) PixelStorei(pname uint32, param int32) { f.record("PixelStorei 0x%x %d", pname, param) }

func (f *fakeGL) GenFramebuffer() uint32 {
	fb := f.gen()
	f.record("GenFramebuffer %d", fb)
	return fb
}

func (f *fakeGL) DeleteFramebuffer(fb uint32) {
	f.deleted = append(f.deleted, fb)
	f.record("DeleteFramebuffer %d", fb)
}

func (f *fakeGL) BindFramebuffer(target, fb uint32) { f.record("BindFramebuffer %d", fb) }

func (f *fakeGL) FramebufferTexture2D(target, attachment, texTarget, t uint32, level int32) {
	f.record("FramebufferTexture2D 0x%x %d", attachment, t)
}

func (f *fakeGL) DrawBuffers(bufs []uint32) { f.record("DrawBuffers %x", bufs) }

func (f *fakeGL) CheckFramebufferStatus(target uint32) uint32 { return f.status }

func (f *fakeGL) CreateShader(typ uint32) uint32 {
	s := f.gen()
	if f.compileFail[typ] {
		f.compileFail[s] = true
	}
	f.record("CreateShader 0x%x %d", typ, s)
	return s
}

func (f *fakeGL) ShaderSource(s uint32, source string) { f.record("ShaderSource %d", s) }
func (f *fakeGL) CompileShader(s uint32)               { f.record("CompileShader %d", s) }

func (f *fakeGL) GetShaderi(s, pname uint32) int32 {
	if pname == CompileStatus && f.compileFail[s] {
		return 0
	}
	return 1
}

func (f *fakeGL) GetShaderInfoLog(s uint32) string { return "0:1: syntax error" }

func (f *fakeGL) DeleteShader(s uint32) {
	f.deleted = append(f.deleted, s)
	f.record("DeleteShader %d", s)
}

func (f *fakeGL) CreateProgram() uint32 {
	p := f.gen()
	f.record("CreateProgram %d", p)
	return p
}

func (f *fakeGL) AttachShader(p, s uint32) { f.record("AttachShader %d %d", p, s) }
func (f *fakeGL) LinkProgram(p uint32)     { f.record("LinkProgram %d", p) }

func (f *fakeGL) GetProgrami(p, pname uint32) int32 {
	if pname == LinkStatus && f.linkFail {
		return 0
	}
	return 1
}

func (f *fakeGL) GetProgramInfoLog(p uint32) string { return "link error" }
func (f *fakeGL) UseProgram(p uint32)               { f.record("UseProgram %d", p) }

func (f *fakeGL) DeleteProgram(p uint32) {
	f.deleted = append(f.deleted, p)
	f.record("DeleteProgram %d", p)
}

func (f *fakeGL) GetAttribLocation(p uint32, name string) int32 {
	if loc, ok := f.attribs[name]; ok {
		return loc
	}
	return -1
}

func (f *fakeGL) GetUniformLocation(p uint32, name string) int32 {
	if loc, ok := f.uniforms[name]; ok {
		return loc
	}
	return -1
}

func (f *fakeGL) Uniform1i(loc, v int32) { f.record("Uniform1i %d %d", loc, v) }

func (f *fakeGL) GetUniformBlockIndex(p uint32, name string) uint32 {
	if idx, ok := f.blocks[name]; ok {
		return idx
	}
	return InvalidIndex
}

func (f *fakeGL) UniformBlockBinding(p, index, binding uint32) {
	f.record("UniformBlockBinding %d %d %d", p, index, binding)
}

func (f *fakeGL) DrawElementsBaseVertex(mode uint32, count int32, typ uint32, offset int, baseVertex int32) {
	f.record("DrawElementsBaseVertex 0x%x %d 0x%x %d %d", mode, count, typ, offset, baseVertex)
}

func (f *fakeGL) DrawElementsInstancedBaseVertex(mode uint32, count int32, typ uint32, offset int, instances, baseVertex int32) {
	f.record("DrawElementsInstancedBaseVertex 0x%x %d 0x%x %d %d %d", mode, count, typ, offset, instances, baseVertex)
}

// fakeDebugGL adds KHR_debug output.
type fakeDebugGL struct {
	*fakeGL
	callback func(source, typ, id, severity uint32, message string)
}

func (f *fakeDebugGL) DebugMessageCallback(fn func(source, typ, id, severity uint32, message string)) {
	f.callback = fn
	f.record("DebugMessageCallback")
}

type fakeSurface struct {
	swaps     int
	intervals []int
	swapErr   error
}

func (s *fakeSurface) SwapBuffers() error {
	s.swaps++
	return s.swapErr
}

func (s *fakeSurface) SetSwapInterval(interval int) error {
	s.intervals = append(s.intervals, interval)
	return nil
}
