package shader

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
	"github.com/gogpu/naga/ir"
)

// Stage is a pipeline stage an entry point runs in.
type Stage uint8

const (
	StageVertex Stage = iota
	StageFragment
	StageCompute
)

func (s Stage) String() string {
	switch s {
	case StageVertex:
		return "vertex"
	case StageFragment:
		return "fragment"
	case StageCompute:
		return "compute"
	default:
		return fmt.Sprintf("Stage(%d)", s)
	}
}

// EntryPoint is a named function of a module.
type EntryPoint struct {
	Name  string
	Stage Stage
}

// VertexInput is one @location input of the vertex entry point.
type VertexInput struct {
	Name     string
	Location uint32
	Format   gputypes.VertexFormat
}

// BindingKind classifies a resource binding.
type BindingKind uint8

const (
	BindingBuffer BindingKind = iota
	BindingTexture
	BindingSampler
)

// ResourceBinding is one @group/@binding global.
type ResourceBinding struct {
	Name    string
	Group   uint32
	Binding uint32
	Kind    BindingKind
}

// Reflection describes the interface of a WGSL module.
type Reflection struct {
	EntryPoints []EntryPoint
	// VertexInputs of the first vertex entry point, sorted by location.
	VertexInputs []VertexInput
	// Bindings sorted by group, then binding.
	Bindings []ResourceBinding
}

// Entry returns the first entry point of stage.
func (r *Reflection) Entry(stage Stage) (EntryPoint, bool) {
	for _, ep := range r.EntryPoints {
		if ep.Stage == stage {
			return ep, true
		}
	}
	return EntryPoint{}, false
}

// Compile parses, lowers, and validates WGSL text.
func Compile(text string) (*ir.Module, error) {
	ast, err := naga.Parse(text)
	if err != nil {
		return nil, fmt.Errorf("shader: parse: %w", err)
	}
	mod, err := naga.LowerWithSource(ast, text)
	if err != nil {
		return nil, fmt.Errorf("shader: lower: %w", err)
	}
	verrs, err := naga.Validate(mod)
	if err != nil {
		return nil, fmt.Errorf("shader: validate: %w", err)
	}
	if len(verrs) > 0 {
		msgs := make([]string, len(verrs))
		for i, e := range verrs {
			msgs[i] = e.Error()
		}
		return nil, errors.New("shader: validate: " + strings.Join(msgs, "; "))
	}
	return mod, nil
}

// Reflect compiles WGSL text and reports its entry points, vertex inputs,
// and resource bindings.
func Reflect(text string) (*Reflection, error) {
	mod, err := Compile(text)
	if err != nil {
		return nil, err
	}
	return reflectModule(mod), nil
}

func reflectModule(mod *ir.Module) *Reflection {
	r := &Reflection{}
	vertexSeen := false
	for i := range mod.EntryPoints {
		ep := &mod.EntryPoints[i]
		stage, ok := stageOf(ep.Stage)
		if !ok {
			continue
		}
		r.EntryPoints = append(r.EntryPoints, EntryPoint{Name: ep.Name, Stage: stage})
		if stage == StageVertex && !vertexSeen {
			vertexSeen = true
			r.VertexInputs = vertexInputs(mod, &ep.Function)
		}
	}
	for _, gv := range mod.GlobalVariables {
		if gv.Binding == nil {
			continue
		}
		kind := BindingBuffer
		switch mod.Types[gv.Type].Inner.(type) {
		case ir.ImageType:
			kind = BindingTexture
		case ir.SamplerType:
			kind = BindingSampler
		}
		r.Bindings = append(r.Bindings, ResourceBinding{
			Name:    gv.Name,
			Group:   gv.Binding.Group,
			Binding: gv.Binding.Binding,
			Kind:    kind,
		})
	}
	sort.Slice(r.Bindings, func(i, j int) bool {
		if r.Bindings[i].Group != r.Bindings[j].Group {
			return r.Bindings[i].Group < r.Bindings[j].Group
		}
		return r.Bindings[i].Binding < r.Bindings[j].Binding
	})
	return r
}

func stageOf(s ir.ShaderStage) (Stage, bool) {
	switch s {
	case ir.StageVertex:
		return StageVertex, true
	case ir.StageFragment:
		return StageFragment, true
	case ir.StageCompute:
		return StageCompute, true
	default:
		return 0, false
	}
}

func vertexInputs(mod *ir.Module, fn *ir.Function) []VertexInput {
	var out []VertexInput
	add := func(name string, th ir.TypeHandle, b *ir.Binding) {
		if b == nil {
			return
		}
		loc, ok := (*b).(ir.LocationBinding)
		if !ok {
			return
		}
		format, _ := vertexFormat(mod.Types[th].Inner)
		out = append(out, VertexInput{Name: name, Location: loc.Location, Format: format})
	}
	for _, arg := range fn.Arguments {
		if arg.Binding != nil {
			add(arg.Name, arg.Type, arg.Binding)
			continue
		}
		// Inputs grouped into a struct carry their bindings on the members.
		if st, ok := mod.Types[arg.Type].Inner.(ir.StructType); ok {
			for _, m := range st.Members {
				add(m.Name, m.Type, m.Binding)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Location < out[j].Location })
	return out
}

func vertexFormat(inner ir.TypeInner) (gputypes.VertexFormat, bool) {
	switch t := inner.(type) {
	case ir.ScalarType:
		if t.Width != 4 {
			return gputypes.VertexFormatUndefined, false
		}
		switch t.Kind {
		case ir.ScalarFloat:
			return gputypes.VertexFormatFloat32, true
		case ir.ScalarUint:
			return gputypes.VertexFormatUint32, true
		case ir.ScalarSint:
			return gputypes.VertexFormatSint32, true
		}
	case ir.VectorType:
		if t.Scalar.Width != 4 {
			return gputypes.VertexFormatUndefined, false
		}
		formats := map[ir.ScalarKind][3]gputypes.VertexFormat{
			ir.ScalarFloat: {gputypes.VertexFormatFloat32x2, gputypes.VertexFormatFloat32x3, gputypes.VertexFormatFloat32x4},
			ir.ScalarUint:  {gputypes.VertexFormatUint32x2, gputypes.VertexFormatUint32x3, gputypes.VertexFormatUint32x4},
			ir.ScalarSint:  {gputypes.VertexFormatSint32x2, gputypes.VertexFormatSint32x3, gputypes.VertexFormatSint32x4},
		}
		row, ok := formats[t.Scalar.Kind]
		if !ok || t.Size < ir.Vec2 || t.Size > ir.Vec4 {
			return gputypes.VertexFormatUndefined, false
		}
		return row[t.Size-ir.Vec2], true
	}
	return gputypes.VertexFormatUndefined, false
}
