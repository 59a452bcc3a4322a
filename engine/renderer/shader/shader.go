package shader

import (
	_ "embed"
	"fmt"
	"sort"

	"github.com/gogpu/naga"
	"github.com/gogpu/naga/ir"
)

// TrianglesSource is the WGSL program shared by both pipeline variants.
// Group 0 binding 0 holds the time scalar; group 1 binding 0 holds one instance's parameters.
//
//go:embed assets/triangles.wgsl
var TrianglesSource string

// ShaderType identifies the programmable stage of an entry point.
type ShaderType int

const (
	// ShaderTypeVertex is the vertex shader type, used for vertex processing in render pipelines.
	ShaderTypeVertex ShaderType = iota

	// ShaderTypeFragment is the fragment shader type, used for fragment processing in pair with a vertex shader.
	ShaderTypeFragment
)

// Binding describes one uniform resource declared by the shader.
type Binding struct {
	Group   uint32
	Binding uint32
	Name    string
	// Size is the byte size of the bound struct or scalar as laid out for the uniform address space.
	Size uint64
}

// shader is the implementation of the Shader interface.
// It holds the validated source and the reflection data needed for pipeline creation.
type shader struct {
	key         string
	source      string
	entryPoints map[ShaderType]string
	bindings    []Binding
}

// Shader defines the interface for a parsed and validated WGSL program. It exposes the program's
// unique key, source code, entry points and the uniform bindings it declares.
type Shader interface {
	// Key retrieves the unique identifier for this shader, used for labels and lookups.
	//
	// Returns:
	//   - string: the shader's unique key
	Key() string

	// Source retrieves the WGSL shader source code.
	//
	// Returns:
	//   - string: the WGSL source code of the shader
	Source() string

	// EntryPoint returns the entry point name declared for a stage.
	//
	// Parameters:
	//   - shaderType: the stage to look up
	//
	// Returns:
	//   - string: the entry point name, or an empty string if the stage has none
	EntryPoint(shaderType ShaderType) string

	// Bindings returns the uniform bindings declared by the program, ordered by group then binding.
	//
	// Returns:
	//   - []Binding: the declared bindings
	Bindings() []Binding

	// Binding looks up a single declared binding.
	//
	// Parameters:
	//   - group: the bind group index
	//   - binding: the binding index within the group
	//
	// Returns:
	//   - Binding: the binding
	//   - bool: true if the program declares it
	Binding(group, binding uint32) (Binding, bool)
}

var _ Shader = &shader{}

// NewShader parses, lowers and validates WGSL source, then reflects its entry points and uniform
// bindings. The source is rejected if it fails validation or lacks a vertex or fragment entry point.
//
// Parameters:
//   - key: a unique identifier for the shader, used as the module label
//   - source: the WGSL source text
//
// Returns:
//   - Shader: the validated shader
//   - error: the parse, lowering or validation failure
func NewShader(key, source string) (Shader, error) {
	ast, err := naga.Parse(source)
	if err != nil {
		return nil, fmt.Errorf("shader %s: %w", key, err)
	}
	module, err := naga.LowerWithSource(ast, source)
	if err != nil {
		return nil, fmt.Errorf("shader %s: %w", key, err)
	}
	errs, err := naga.Validate(module)
	if err != nil {
		return nil, fmt.Errorf("shader %s: %w", key, err)
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("shader %s: validation failed: %w", key, &errs[0])
	}

	s := &shader{
		key:         key,
		source:      source,
		entryPoints: make(map[ShaderType]string),
	}
	for _, ep := range module.EntryPoints {
		switch ep.Stage {
		case ir.StageVertex:
			s.entryPoints[ShaderTypeVertex] = ep.Name
		case ir.StageFragment:
			s.entryPoints[ShaderTypeFragment] = ep.Name
		}
	}
	if s.entryPoints[ShaderTypeVertex] == "" || s.entryPoints[ShaderTypeFragment] == "" {
		return nil, fmt.Errorf("shader %s: needs both a vertex and a fragment entry point", key)
	}

	for _, gv := range module.GlobalVariables {
		if gv.Binding == nil || gv.Space != ir.SpaceUniform {
			continue
		}
		s.bindings = append(s.bindings, Binding{
			Group:   gv.Binding.Group,
			Binding: gv.Binding.Binding,
			Name:    gv.Name,
			Size:    typeSize(module, gv.Type),
		})
	}
	sort.Slice(s.bindings, func(i, j int) bool {
		if s.bindings[i].Group != s.bindings[j].Group {
			return s.bindings[i].Group < s.bindings[j].Group
		}
		return s.bindings[i].Binding < s.bindings[j].Binding
	})
	return s, nil
}

// typeSize returns the uniform layout size of a module type, or 0 if it is not a struct or scalar.
func typeSize(module *ir.Module, h ir.TypeHandle) uint64 {
	if int(h) >= len(module.Types) {
		return 0
	}
	switch inner := module.Types[h].Inner.(type) {
	case ir.StructType:
		return uint64(inner.Span)
	case ir.ScalarType:
		return uint64(inner.Width)
	default:
		return 0
	}
}

func (s *shader) Key() string {
	return s.key
}

func (s *shader) Source() string {
	return s.source
}

func (s *shader) EntryPoint(shaderType ShaderType) string {
	return s.entryPoints[shaderType]
}

func (s *shader) Bindings() []Binding {
	return append([]Binding(nil), s.bindings...)
}

func (s *shader) Binding(group, binding uint32) (Binding, bool) {
	for _, b := range s.bindings {
		if b.Group == group && b.Binding == binding {
			return b, true
		}
	}
	return Binding{}, false
}
