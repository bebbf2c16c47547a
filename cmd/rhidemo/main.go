// Command rhidemo renders a spinning textured quad through rhi.
//
// By default it opens the best registered backend offscreen, renders a few
// frames, resizes once, and writes the last frame to a PNG when the backend
// can read it back. With -window it opens a GLFW window and renders through
// the OpenGL backend until the window is closed.
package main

import (
	"flag"
	"fmt"
	"image"
	"image/png"
	"log"
	"log/slog"
	"os"

	"github.com/gogpu/rhi"
	"github.com/gogpu/rhi/backend"
	_ "github.com/gogpu/rhi/backend/wgpu"
)

func main() {
	var (
		configPath = flag.String("config", "", "TOML configuration file")
		name       = flag.String("backend", "", "backend to open (d3d11, opengl, webgpu)")
		width      = flag.Int("width", 0, "framebuffer width")
		height     = flag.Int("height", 0, "framebuffer height")
		frames     = flag.Int("frames", 60, "frames to render offscreen")
		debug      = flag.Bool("debug", false, "enable the native debug layer")
		window     = flag.Bool("window", false, "render to a GLFW window through OpenGL")
		output     = flag.String("output", "", "write the last offscreen frame to this PNG file")
		verbose    = flag.Bool("v", false, "log debug messages")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	rhi.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	cfg := rhi.DefaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = rhi.LoadConfigFile(*configPath); err != nil {
			log.Fatal(err)
		}
	}
	if *name != "" {
		cfg.Backend = *name
	}
	if *width > 0 && *height > 0 {
		cfg.Width, cfg.Height = *width, *height
	}
	cfg.Debug = cfg.Debug || *debug

	var err error
	if *window {
		err = runWindow(cfg)
	} else {
		err = runOffscreen(cfg, *frames, *output)
	}
	if err != nil {
		log.Fatal(err)
	}
}

func runOffscreen(cfg rhi.Config, frames int, output string) error {
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

	for i := range frames {
		if i == frames/2 {
			if err := rc.Resize(cfg.Width*2, cfg.Height*2); err != nil {
				return fmt.Errorf("resize: %w", err)
			}
		}
		if err := s.Draw(rc, float32(i)/30); err != nil {
			return err
		}
		if err := rc.SwapBuffers(); err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
	}
	rhi.Logger().Info("rendered", "frames", frames, "backend", rc.Backend())

	if output == "" {
		return nil
	}
	return savePNG(rc.DefaultFramebuffer(), output)
}

// savePNG reads back the first color attachment of fb.
func savePNG(fb rhi.Framebuffer, path string) error {
	tex, ok := fb.ColorTexture(0).(rhi.Texture2D)
	if !ok || tex.Format() != rhi.PixelFormatR8G8B8A8UInt {
		return fmt.Errorf("framebuffer color attachment cannot be read back")
	}
	img := image.NewRGBA(image.Rect(0, 0, tex.Width(), tex.Height()))
	if err := tex.GetTextureData(img.Pix); err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(file, img); err != nil {
		file.Close()
		return err
	}
	log.Printf("Frame saved to %s (%dx%d)\n", path, tex.Width(), tex.Height())
	return file.Close()
}
