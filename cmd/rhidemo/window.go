package main

import (
	"fmt"
	"runtime"

	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/gogpu/rhi"
	"github.com/gogpu/rhi/backend"
	"github.com/gogpu/rhi/backend/gl"
	"github.com/gogpu/rhi/backend/gl/glcore"
)

func init() {
	// GLFW and the GL context must stay on the main thread.
	runtime.LockOSThread()
}

func runWindow(cfg rhi.Config) error {
	if err := glfw.Init(); err != nil {
		return fmt.Errorf("glfw: %w", err)
	}
	defer glfw.Terminate()

	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	win, err := glfw.CreateWindow(cfg.Width, cfg.Height, "rhidemo", nil, nil)
	if err != nil {
		return fmt.Errorf("glfw: %w", err)
	}
	defer win.Destroy()

	b, err := glcore.New(win)
	if err != nil {
		return fmt.Errorf("gl: %w", err)
	}
	gl.Register(b)
	cfg.Backend = backend.NameOpenGL
	cfg.Width, cfg.Height = win.GetFramebufferSize()

	rc, f, err := backend.Open(cfg)
	if err != nil {
		return err
	}
	defer rc.Dispose()
	defer f.Close()

	s, err := newScene(rc, f)
	if err != nil {
		return err
	}
	defer s.Dispose()

	var resized [2]int
	win.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
		resized = [2]int{width, height}
	})

	start := glfw.GetTime()
	for !win.ShouldClose() {
		if w, h := resized[0], resized[1]; w > 0 && h > 0 {
			resized = [2]int{}
			if err := rc.Resize(w, h); err != nil {
				return fmt.Errorf("resize: %w", err)
			}
		}
		if err := s.Draw(rc, float32(glfw.GetTime()-start)); err != nil {
			return err
		}
		if err := rc.SwapBuffers(); err != nil {
			return err
		}
		glfw.PollEvents()
	}
	return nil
}
