package shader

import (
	"math"

	"github.com/Carmen-Shannon/oxy-bench/engine/instance"
	"github.com/Carmen-Shannon/oxy-bench/engine/model"
	"github.com/go-gl/mathgl/mgl32"
)

// Fade returns the triangle-wave phase in [0,1] that vert_main derives from elapsed time and the
// instance's scalar and scalarOffset.
//
// Parameters:
//   - time: elapsed seconds
//   - scalar: the instance rotation speed
//   - scalarOffset: the instance phase
//
// Returns:
//   - float32: the folded fade value
func Fade(time, scalar, scalarOffset float32) float32 {
	fade := float32(math.Mod(float64(scalarOffset+time*scalar/10), 1))
	if fade < 0.5 {
		return fade * 2
	}
	return (1 - fade) * 2
}

// TransformVertex evaluates vert_main on the host for one vertex of one instance.
//
// Parameters:
//   - params: the instance parameters
//   - time: elapsed seconds
//   - v: the template vertex
//
// Returns:
//   - mgl32.Vec4: the clip-space position
//   - mgl32.Vec4: the output color
func TransformVertex(params instance.GPUInstanceParams, time float32, v model.GPUVertex) (mgl32.Vec4, mgl32.Vec4) {
	fade := Fade(time, params.Scalar, params.ScalarOffset)
	angle := float32(math.Pi) * 2 * fade

	scaled := mgl32.Vec2{v.Position[0], v.Position[1]}.Mul(params.Scale)
	rotated := mgl32.Rotate2D(angle).Mul2x1(scaled)

	position := mgl32.Vec4{rotated.X() + params.OffsetX, rotated.Y() + params.OffsetY, 0, 1}
	color := mgl32.Vec4{fade, 1 - fade, 0, 1}.Add(mgl32.Vec4(v.Color))
	return position, color
}
