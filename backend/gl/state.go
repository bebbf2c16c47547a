package gl

// boundTexture is the texture bound to one unit.
type boundTexture struct {
	target, name uint32
}

// glState shadows the GL bindings the backend changes most, so repeated
// binds of the same object are skipped. Every bind of these objects goes
// through it; a zero cache entry means "unknown or unbound".
type glState struct {
	fn Functions

	program       uint32
	framebuffer   uint32
	arrayBuffer   uint32
	elementBuffer uint32
	activeUnit    uint32
	units         [scratchUnit + 1]boundTexture

	caps map[uint32]bool
}

func newGLState(fn Functions) *glState {
	return &glState{fn: fn, caps: map[uint32]bool{}}
}

func (s *glState) useProgram(p uint32) {
	if s.program != p {
		s.fn.UseProgram(p)
		s.program = p
	}
}

func (s *glState) bindFramebuffer(fb uint32) {
	if s.framebuffer != fb {
		s.fn.BindFramebuffer(Framebuffer, fb)
		s.framebuffer = fb
	}
}

func (s *glState) bindArrayBuffer(b uint32) {
	if s.arrayBuffer != b {
		s.fn.BindBuffer(ArrayBuffer, b)
		s.arrayBuffer = b
	}
}

// bindElementBuffer records the index buffer of the bound vertex array.
func (s *glState) bindElementBuffer(b uint32) {
	if s.elementBuffer != b {
		s.fn.BindBuffer(ElementArrayBuffer, b)
		s.elementBuffer = b
	}
}

func (s *glState) activeTexture(unit uint32) {
	if s.activeUnit != unit {
		s.fn.ActiveTexture(Texture0 + unit)
		s.activeUnit = unit
	}
}

// bindTexture binds name on unit. A different target on the same unit is
// unbound first, so a unit never has 2D and cube textures at once.
func (s *glState) bindTexture(unit, target, name uint32) {
	cur := s.units[unit]
	if cur.target == target && cur.name == name {
		return
	}
	s.activeTexture(unit)
	if cur.name != 0 && cur.target != target {
		s.fn.BindTexture(cur.target, 0)
	}
	s.fn.BindTexture(target, name)
	s.units[unit] = boundTexture{target: target, name: name}
}

func (s *glState) unbindTexture(unit uint32) {
	cur := s.units[unit]
	if cur.name == 0 {
		return
	}
	s.activeTexture(unit)
	s.fn.BindTexture(cur.target, 0)
	s.units[unit] = boundTexture{}
}

func (s *glState) enable(c uint32, on bool) {
	if v, ok := s.caps[c]; ok && v == on {
		return
	}
	if on {
		s.fn.Enable(c)
	} else {
		s.fn.Disable(c)
	}
	s.caps[c] = on
}

func (s *glState) enabled(c uint32) bool { return s.caps[c] }

// forgetTexture drops the cached bindings of a deleted texture. GL unbinds
// deleted objects itself.
func (s *glState) forgetTexture(name uint32) {
	for i, u := range s.units {
		if u.name == name {
			s.units[i] = boundTexture{}
		}
	}
}

func (s *glState) forgetBuffer(name uint32) {
	if s.arrayBuffer == name {
		s.arrayBuffer = 0
	}
	if s.elementBuffer == name {
		s.elementBuffer = 0
	}
}

func (s *glState) forgetProgram(name uint32) {
	if s.program == name {
		s.program = 0
	}
}

func (s *glState) forgetFramebuffer(name uint32) {
	if s.framebuffer == name {
		s.framebuffer = 0
	}
}
