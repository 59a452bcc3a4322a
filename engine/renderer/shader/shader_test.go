package shader

import (
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-bench/engine/instance"
	"github.com/Carmen-Shannon/oxy-bench/engine/model"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewShader_Triangles(t *testing.T) {
	s, err := NewShader("triangles", TrianglesSource)
	require.NoError(t, err)

	assert.Equal(t, "triangles", s.Key())
	assert.Equal(t, "vert_main", s.EntryPoint(ShaderTypeVertex))
	assert.Equal(t, "frag_main", s.EntryPoint(ShaderTypeFragment))

	bindings := s.Bindings()
	require.Len(t, bindings, 2)
	assert.Equal(t, uint32(0), bindings[0].Group)
	assert.Equal(t, uint32(1), bindings[1].Group)

	timeBinding, ok := s.Binding(0, 0)
	require.True(t, ok)
	assert.Equal(t, uint64(4), timeBinding.Size)

	params, ok := s.Binding(1, 0)
	require.True(t, ok)
	assert.Equal(t, uint64(instance.LogicalSize), params.Size)
	assert.LessOrEqual(t, params.Size, uint64(instance.BindingRangeSize))

	_, ok = s.Binding(2, 0)
	assert.False(t, ok)
}

func TestNewShader_Rejects(t *testing.T) {
	_, err := NewShader("broken", "fn vert_main( {")
	assert.Error(t, err)

	computeOnly := `
@compute @workgroup_size(1)
fn main() {
}
`
	_, err = NewShader("compute", computeOnly)
	assert.Error(t, err)
}

func TestFade(t *testing.T) {
	assert.InDelta(t, 0.0, Fade(0, 1, 0), 1e-6)
	assert.InDelta(t, 0.5, Fade(0, 1, 0.25), 1e-6)
	assert.InDelta(t, 1.0, Fade(0, 1, 0.5), 1e-6)
	assert.InDelta(t, 0.5, Fade(0, 1, 0.75), 1e-6)
	// 5 seconds at scalar 1 advances the phase by 0.5.
	assert.InDelta(t, 1.0, Fade(5, 1, 0), 1e-6)
	for _, ts := range []float32{0, 0.3, 7.1, 123.4} {
		f := Fade(ts, 1.7, 3.3)
		assert.True(t, f >= 0 && f <= 1, "fade %v out of range", f)
	}
}

func TestTransformVertex(t *testing.T) {
	apex := model.TriangleVertices()[0]
	params := instance.GPUInstanceParams{Scale: 0.5, OffsetX: 0.25, OffsetY: -0.25, Scalar: 1, ScalarOffset: 0}

	// Fade 0: no rotation, scale then translate.
	pos, color := TransformVertex(params, 0, apex)
	assert.InDelta(t, 0.25, pos.X(), 1e-6)
	assert.InDelta(t, -0.25+0.05, pos.Y(), 1e-6)
	assert.Equal(t, float32(1), pos.W())
	assert.True(t, color.ApproxEqual(mgl32.Vec4{1, 1, 0, 2}))

	// Fade 0.25: quarter turn maps (0, 0.05) to (-0.05, 0).
	params.ScalarOffset = 0.125
	pos, _ = TransformVertex(params, 0, apex)
	assert.InDelta(t, 0.25-0.05, pos.X(), 1e-5)
	assert.InDelta(t, -0.25, pos.Y(), 1e-5)
	assert.False(t, math.IsNaN(float64(pos.X())))
}
