package shader

import (
	"fmt"
	"regexp"

	"github.com/gogpu/naga/glsl"
	"github.com/gogpu/naga/hlsl"
	"github.com/gogpu/naga/ir"
)

// Translation is WGSL rewritten for a native backend.
type Translation struct {
	Source
	// EntryPoint is the function name the native compiler must use.
	EntryPoint string
	// Reflection of the original WGSL module.
	Reflection *Reflection

	// Blocks and Samplers are set for GLSL. They name the uniform block of
	// each buffer binding and the combined sampler of each texture binding,
	// in binding order. An entry is empty when the stage does not use the
	// binding.
	Blocks   []string
	Samplers []string
}

// TranslateGLSL rewrites the stage entry point of a WGSL source as GLSL 3.30 core.
func TranslateGLSL(src Source, stage Stage) (Translation, error) {
	mod, r, ep, err := prepare(src, stage)
	if err != nil {
		return Translation{}, err
	}
	opts := glsl.DefaultOptions()
	opts.LangVersion = glsl.Version330
	opts.EntryPoint = ep.Name
	text, _, err := glsl.Compile(mod, opts)
	if err != nil {
		return Translation{}, fmt.Errorf("shader: %s to glsl: %w", src.Name, err)
	}
	slogger().Debug("shader: translated", "name", src.Name, "stage", stage, "lang", GLSL)
	blocks, samplers := glslNames(text, r)
	return Translation{
		Source:     Source{Name: src.Name, Language: GLSL, Text: text},
		EntryPoint: "main",
		Reflection: r,
		Blocks:     blocks,
		Samplers:   samplers,
	}, nil
}

// GLSL 3.30 has no binding layout qualifier, so bindings are resolved by
// name after linking. Globals are named _group_G_binding_B_<stage>; blocks
// carry a per-stage generated name.
var (
	glslBlock   = regexp.MustCompile(`uniform (\w+) \{ \w+ _group_(\d+)_binding_(\d+)_`)
	glslSampler = regexp.MustCompile(`uniform (?:highp )?[iu]?sampler\w* (_group_(\d+)_binding_(\d+)_\w+);`)
)

func glslNames(text string, r *Reflection) (blocks, samplers []string) {
	found := map[string]string{}
	for _, m := range glslBlock.FindAllStringSubmatch(text, -1) {
		found[m[2]+"/"+m[3]] = m[1]
	}
	for _, m := range glslSampler.FindAllStringSubmatch(text, -1) {
		found[m[2]+"/"+m[3]] = m[1]
	}
	for _, b := range r.Bindings {
		name := found[fmt.Sprintf("%d/%d", b.Group, b.Binding)]
		switch b.Kind {
		case BindingBuffer:
			blocks = append(blocks, name)
		case BindingTexture:
			samplers = append(samplers, name)
		}
	}
	return blocks, samplers
}

// TranslateHLSL rewrites the stage entry point of a WGSL source as HLSL
// shader model 5.0.
func TranslateHLSL(src Source, stage Stage) (Translation, error) {
	mod, r, ep, err := prepare(src, stage)
	if err != nil {
		return Translation{}, err
	}
	opts := hlsl.DefaultOptions()
	opts.ShaderModel = hlsl.ShaderModel5_0
	opts.EntryPoint = ep.Name
	opts.BindingMap = registers(r)
	text, info, err := hlsl.Compile(mod, opts)
	if err != nil {
		return Translation{}, fmt.Errorf("shader: %s to hlsl: %w", src.Name, err)
	}
	entry := ep.Name
	if info != nil {
		if renamed, ok := info.EntryPointNames[ep.Name]; ok {
			entry = renamed
		}
	}
	slogger().Debug("shader: translated", "name", src.Name, "stage", stage, "lang", HLSL)
	return Translation{
		Source:     Source{Name: src.Name, Language: HLSL, Text: text},
		EntryPoint: entry,
		Reflection: r,
	}, nil
}

func prepare(src Source, stage Stage) (*ir.Module, *Reflection, EntryPoint, error) {
	if src.Language != WGSL {
		return nil, nil, EntryPoint{}, fmt.Errorf("shader: %s is %s, only wgsl can be translated", src.Name, src.Language)
	}
	mod, err := Compile(src.Text)
	if err != nil {
		return nil, nil, EntryPoint{}, fmt.Errorf("shader: %s: %w", src.Name, err)
	}
	r := reflectModule(mod)
	ep, ok := r.Entry(stage)
	if !ok {
		return nil, nil, EntryPoint{}, fmt.Errorf("shader: %s has no %s entry point", src.Name, stage)
	}
	return mod, r, ep, nil
}

// registers packs bindings into D3D register classes in binding order:
// buffers to b0.., textures to t0.., samplers to s0...
func registers(r *Reflection) map[hlsl.ResourceBinding]hlsl.BindTarget {
	m := make(map[hlsl.ResourceBinding]hlsl.BindTarget, len(r.Bindings))
	var next [3]uint32
	for _, b := range r.Bindings {
		m[hlsl.ResourceBinding{Group: b.Group, Binding: b.Binding}] = hlsl.BindTarget{Register: next[b.Kind]}
		next[b.Kind]++
	}
	return m
}
