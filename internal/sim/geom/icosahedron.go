package geom

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Phi is the golden ratio.
var Phi = (1 + math.Sqrt(5)) / 2

// icosaFaces index into icosaVertices. Winding is counter-clockwise seen from
// outside the sphere.
var icosaFaces = [20][3]int{
	{0, 11, 5}, {0, 5, 1}, {0, 1, 7}, {0, 7, 10}, {0, 10, 11},
	{1, 5, 9}, {5, 11, 4}, {11, 10, 2}, {10, 7, 6}, {7, 1, 8},
	{3, 9, 4}, {3, 4, 2}, {3, 2, 6}, {3, 6, 8}, {3, 8, 9},
	{4, 9, 5}, {2, 4, 11}, {6, 2, 10}, {8, 6, 7}, {9, 8, 1},
}

// IcosahedronVertices returns the twelve unit-length icosahedron vertices
// built from the golden-ratio rectangles.
func IcosahedronVertices() [12]r3.Vec {
	t := Phi
	raw := [12]r3.Vec{
		{X: -1, Y: t}, {X: 1, Y: t}, {X: -1, Y: -t}, {X: 1, Y: -t},
		{Y: -1, Z: t}, {Y: 1, Z: t}, {Y: -1, Z: -t}, {Y: 1, Z: -t},
		{X: t, Z: -1}, {X: t, Z: 1}, {X: -t, Z: -1}, {X: -t, Z: 1},
	}
	var out [12]r3.Vec
	for i, v := range raw {
		out[i] = r3.Unit(v)
	}
	return out
}

// IcosahedronFaces returns the twenty faces as corner triples
// (top, bottom-left, bottom-right).
func IcosahedronFaces() [20][3]r3.Vec {
	verts := IcosahedronVertices()
	var out [20][3]r3.Vec
	for i, f := range icosaFaces {
		out[i] = [3]r3.Vec{verts[f[0]], verts[f[1]], verts[f[2]]}
	}
	return out
}

// IcosahedronFaceIndices exposes the face table.
func IcosahedronFaceIndices() [20][3]int { return icosaFaces }
