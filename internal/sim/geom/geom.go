// Package geom holds the pure spherical geometry used by the subdivision
// engine. Every function is side-effect free and safe for concurrent use.
//
// All direction inputs are expected to be unit vectors; passing a zero vector
// is a precondition violation and yields NaN components.
package geom

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Corner indices of a triangular patch.
const (
	Top = iota
	BottomLeft
	BottomRight
)

// CartesianToSpherical converts a unit vector to (azimuth, polar).
// Azimuth is measured in the X-Z plane from +X toward +Z, in (-pi, pi].
// Polar is the angle from +Y, in [0, pi].
func CartesianToSpherical(v r3.Vec) (azimuth, polar float64) {
	azimuth = math.Atan2(v.Z, v.X)
	// atan2 keeps precision near the poles where acos(y) does not.
	polar = math.Atan2(math.Hypot(v.X, v.Z), v.Y)
	return azimuth, polar
}

// SphericalToCartesian is the inverse of CartesianToSpherical.
func SphericalToCartesian(azimuth, polar float64) r3.Vec {
	sp, cp := math.Sincos(polar)
	sa, ca := math.Sincos(azimuth)
	return r3.Vec{X: sp * ca, Y: cp, Z: sp * sa}
}

// Midpoint returns the normalized average of a and b.
// It is bitwise commutative, which lets two patches that share an edge derive
// identical split vertices independently.
func Midpoint(a, b r3.Vec) r3.Vec {
	return r3.Unit(r3.Add(a, b))
}

// Centroid returns the normalized average of the three corners.
func Centroid(c [3]r3.Vec) r3.Vec {
	return r3.Unit(r3.Add(r3.Add(c[0], c[1]), c[2]))
}

// EdgeMidpoints returns the midpoints of the left (top-bottomLeft), right
// (top-bottomRight) and bottom (bottomLeft-bottomRight) edges, in that order.
func EdgeMidpoints(c [3]r3.Vec) (left, right, bottom r3.Vec) {
	return Midpoint(c[Top], c[BottomLeft]),
		Midpoint(c[Top], c[BottomRight]),
		Midpoint(c[BottomLeft], c[BottomRight])
}

// Quadrisect splits a patch into four using its edge midpoints only.
// The order is top, bottom-left, bottom-right, center; every child keeps the
// winding of the parent.
func Quadrisect(c [3]r3.Vec) [4][3]r3.Vec {
	m01, m02, m12 := EdgeMidpoints(c)
	return [4][3]r3.Vec{
		{c[Top], m01, m02},
		{m01, c[BottomLeft], m12},
		{m02, m12, c[BottomRight]},
		{m12, m02, m01},
	}
}

// Angle returns the angle between two unit vectors in radians.
func Angle(a, b r3.Vec) float64 {
	return math.Atan2(r3.Norm(r3.Cross(a, b)), r3.Dot(a, b))
}
