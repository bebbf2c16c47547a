// Package shader resolves named shader sources through an ordered loader
// chain and translates WGSL into the native languages of the rhi backends.
package shader

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sync"
)

// ErrNotFound is returned when no loader resolves a name.
var ErrNotFound = errors.New("rhi: shader not found")

// Language is a shading language.
type Language uint8

const (
	WGSL Language = iota
	GLSL
	HLSL
)

// Ext returns the file extension loaders look for.
func (l Language) Ext() string {
	switch l {
	case WGSL:
		return ".wgsl"
	case GLSL:
		return ".glsl"
	case HLSL:
		return ".hlsl"
	default:
		return ""
	}
}

func (l Language) String() string {
	switch l {
	case WGSL:
		return "wgsl"
	case GLSL:
		return "glsl"
	case HLSL:
		return "hlsl"
	default:
		return fmt.Sprintf("Language(%d)", l)
	}
}

// Source is shader text in one language.
type Source struct {
	Name     string
	Language Language
	Text     string
}

// Loader resolves a shader name in one language. A loader that does not
// have the name returns ok == false and a nil error.
type Loader interface {
	Load(name string, lang Language) (src Source, ok bool, err error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(name string, lang Language) (Source, bool, error)

func (f LoaderFunc) Load(name string, lang Language) (Source, bool, error) { return f(name, lang) }

// MapLoader serves sources from memory. Keys are file names: name plus the
// language extension, for example "basic.wgsl".
type MapLoader map[string]string

func (m MapLoader) Load(name string, lang Language) (Source, bool, error) {
	text, ok := m[name+lang.Ext()]
	if !ok {
		return Source{}, false, nil
	}
	return Source{Name: name, Language: lang, Text: text}, true, nil
}

// FSLoader reads name plus the language extension from a file system.
type FSLoader struct {
	FS fs.FS
	// Dir is an optional directory inside FS.
	Dir string
}

// DirLoader returns an FSLoader over a directory on disk.
func DirLoader(dir string) FSLoader {
	return FSLoader{FS: os.DirFS(dir)}
}

func (l FSLoader) Load(name string, lang Language) (Source, bool, error) {
	p := name + lang.Ext()
	if l.Dir != "" {
		p = path.Join(l.Dir, p)
	}
	data, err := fs.ReadFile(l.FS, p)
	if errors.Is(err, fs.ErrNotExist) {
		return Source{}, false, nil
	}
	if err != nil {
		return Source{}, false, fmt.Errorf("shader: read %s: %w", p, err)
	}
	return Source{Name: name, Language: lang, Text: string(data)}, true, nil
}

type cacheKey struct {
	name string
	lang Language
}

// Chain consults its loaders in registration order. Within one loader the
// languages passed to Load are tried in order, so the first loader that has
// the name in any acceptable language wins. Resolved sources are cached
// until invalidated.
type Chain struct {
	mu      sync.Mutex
	loaders []Loader
	cache   map[cacheKey]Source
}

// NewChain returns a chain over loaders.
func NewChain(loaders ...Loader) *Chain {
	return &Chain{loaders: loaders, cache: make(map[cacheKey]Source)}
}

// Add appends a loader with the lowest priority.
func (c *Chain) Add(l Loader) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loaders = append(c.loaders, l)
}

// Len returns the number of registered loaders.
func (c *Chain) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.loaders)
}

// Load resolves name in the first acceptable language any loader has.
func (c *Chain) Load(name string, langs ...Language) (Source, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, lang := range langs {
		if src, ok := c.cache[cacheKey{name, lang}]; ok {
			return src, nil
		}
	}
	for _, l := range c.loaders {
		for _, lang := range langs {
			src, ok, err := l.Load(name, lang)
			if err != nil {
				return Source{}, err
			}
			if ok {
				c.cache[cacheKey{name, lang}] = src
				return src, nil
			}
		}
	}
	return Source{}, fmt.Errorf("%w: %q (%v)", ErrNotFound, name, langs)
}

// Invalidate drops cached sources for name in every language.
func (c *Chain) Invalidate(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.cache {
		if k.name == name {
			delete(c.cache, k)
		}
	}
}
