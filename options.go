package rhi

import (
	"fmt"
	"io"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Config is the explicit configuration a backend is opened with.
// Device-creation flags such as the debug layer come from here and nowhere else.
type Config struct {
	// Backend names the registered backend to open. Empty selects the best available.
	Backend string `toml:"backend"`

	// Debug requests the native debug/validation layer at device creation.
	Debug bool `toml:"debug"`

	// PresentInterval is the number of vertical blanks SwapBuffers waits for.
	// 0 presents immediately, 1 is vsync.
	PresentInterval int `toml:"present_interval"`

	// Width and Height size the default framebuffer when no window provider is given.
	Width  int `toml:"width"`
	Height int `toml:"height"`

	// ShaderDirs are searched in order by the factory's directory loaders.
	ShaderDirs []string `toml:"shader_dirs"`

	// HotReload watches ShaderDirs and reloads changed shaders.
	HotReload bool `toml:"hot_reload"`
}

// DefaultConfig returns the configuration used when no options are given.
func DefaultConfig() Config {
	return Config{
		PresentInterval: 1,
		Width:           800,
		Height:          600,
	}
}

// Option configures a Config.
//
// Example:
//
//	cfg := rhi.NewConfig(rhi.WithBackend("d3d11"), rhi.WithDebug(true))
type Option func(*Config)

// NewConfig applies opts on top of DefaultConfig.
func NewConfig(opts ...Option) Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// WithBackend selects a backend by registry name.
func WithBackend(name string) Option {
	return func(c *Config) {
		c.Backend = name
	}
}

// WithDebug enables the native debug layer.
func WithDebug(debug bool) Option {
	return func(c *Config) {
		c.Debug = debug
	}
}

// WithPresentInterval sets the swap interval used by SwapBuffers.
func WithPresentInterval(n int) Option {
	return func(c *Config) {
		c.PresentInterval = n
	}
}

// WithSize sets the initial default framebuffer size.
func WithSize(width, height int) Option {
	return func(c *Config) {
		c.Width = width
		c.Height = height
	}
}

// WithShaderDirs appends shader search directories.
func WithShaderDirs(dirs ...string) Option {
	return func(c *Config) {
		c.ShaderDirs = append(c.ShaderDirs, dirs...)
	}
}

// WithHotReload toggles shader directory watching.
func WithHotReload(enabled bool) Option {
	return func(c *Config) {
		c.HotReload = enabled
	}
}

// LoadConfig decodes a TOML document on top of DefaultConfig.
// Unknown keys are rejected.
func LoadConfig(r io.Reader) (Config, error) {
	cfg := DefaultConfig()
	dec := toml.NewDecoder(r).DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("rhi: decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfigFile reads and decodes the TOML file at path.
func LoadConfigFile(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("rhi: open config: %w", err)
	}
	defer f.Close()
	return LoadConfig(f)
}

// Validate reports configuration values no backend can honor.
func (c Config) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("rhi: config size %dx%d: %w", c.Width, c.Height, ErrInvalidDimensions)
	}
	if c.PresentInterval < 0 || c.PresentInterval > 4 {
		return fmt.Errorf("rhi: present interval %d out of range [0,4]", c.PresentInterval)
	}
	return nil
}
