package geom

import (
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

func randomUnit(rng *rand.Rand) r3.Vec {
	for {
		v := r3.Vec{X: rng.Float64()*2 - 1, Y: rng.Float64()*2 - 1, Z: rng.Float64()*2 - 1}
		if n := r3.Norm(v); n > 1e-3 && n <= 1 {
			return r3.Unit(v)
		}
	}
}

func TestSphericalRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	cases := []r3.Vec{
		{Y: 1}, {Y: -1}, {X: 1}, {X: -1}, {Z: 1}, {Z: -1},
		r3.Unit(r3.Vec{X: 1e-12, Y: 1}),
	}
	for i := 0; i < 2000; i++ {
		cases = append(cases, randomUnit(rng))
	}
	for _, v := range cases {
		az, pol := CartesianToSpherical(v)
		got := SphericalToCartesian(az, pol)
		if d := r3.Norm(r3.Sub(got, v)); d > 1e-9 {
			t.Fatalf("round trip %v -> (%v,%v) -> %v: err=%g", v, az, pol, got, d)
		}
	}
}

func TestCartesianToSpherical_Axes(t *testing.T) {
	tests := []struct {
		name    string
		v       r3.Vec
		az, pol float64
	}{
		{"north", r3.Vec{Y: 1}, 0, 0},
		{"south", r3.Vec{Y: -1}, 0, math.Pi},
		{"+x", r3.Vec{X: 1}, 0, math.Pi / 2},
		{"+z", r3.Vec{Z: 1}, math.Pi / 2, math.Pi / 2},
	}
	for _, tc := range tests {
		az, pol := CartesianToSpherical(tc.v)
		if math.Abs(az-tc.az) > 1e-12 || math.Abs(pol-tc.pol) > 1e-12 {
			t.Fatalf("%s: got (%v,%v) want (%v,%v)", tc.name, az, pol, tc.az, tc.pol)
		}
	}
}

func TestMidpoint_CommutativeAndUnit(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	for i := 0; i < 1000; i++ {
		a, b := randomUnit(rng), randomUnit(rng)
		if r3.Dot(a, b) < -0.99 {
			continue
		}
		m1, m2 := Midpoint(a, b), Midpoint(b, a)
		if m1 != m2 {
			t.Fatalf("midpoint not commutative: %v vs %v", m1, m2)
		}
		if math.Abs(r3.Norm(m1)-1) > 1e-12 {
			t.Fatalf("midpoint not unit: %v", r3.Norm(m1))
		}
		if math.Abs(Angle(a, m1)-Angle(m1, b)) > 1e-9 {
			t.Fatalf("midpoint does not bisect: %v vs %v", Angle(a, m1), Angle(m1, b))
		}
	}
}

func TestQuadrisect_SharesEdgeVertices(t *testing.T) {
	faces := IcosahedronFaces()
	kids := Quadrisect(faces[0])
	c := faces[0]
	if kids[0][Top] != c[Top] || kids[1][BottomLeft] != c[BottomLeft] || kids[2][BottomRight] != c[BottomRight] {
		t.Fatalf("corner children must keep the parent corners")
	}
	// center child uses only the three midpoints
	m01, m02, m12 := EdgeMidpoints(c)
	if kids[3] != [3]r3.Vec{m12, m02, m01} {
		t.Fatalf("center child = %v", kids[3])
	}
	parentN := r3.Cross(r3.Sub(c[1], c[0]), r3.Sub(c[2], c[0]))
	for i, k := range kids {
		n := r3.Cross(r3.Sub(k[1], k[0]), r3.Sub(k[2], k[0]))
		if r3.Dot(n, parentN) <= 0 {
			t.Fatalf("child %d flipped winding", i)
		}
	}
}

func TestIcosahedron_Topology(t *testing.T) {
	verts := IcosahedronVertices()
	for i, v := range verts {
		if math.Abs(r3.Norm(v)-1) > 1e-12 {
			t.Fatalf("vertex %d not unit", i)
		}
	}

	type edge struct{ a, b int }
	edges := map[edge]int{}
	for i, f := range IcosahedronFaceIndices() {
		for k := 0; k < 3; k++ {
			a, b := f[k], f[(k+1)%3]
			if a > b {
				a, b = b, a
			}
			edges[edge{a, b}]++
		}
		c := [3]r3.Vec{verts[f[0]], verts[f[1]], verts[f[2]]}
		n := r3.Cross(r3.Sub(c[1], c[0]), r3.Sub(c[2], c[0]))
		if r3.Dot(n, Centroid(c)) <= 0 {
			t.Fatalf("face %d is wound inward", i)
		}
	}
	if len(edges) != 30 {
		t.Fatalf("edges=%d want 30", len(edges))
	}
	for e, n := range edges {
		if n != 2 {
			t.Fatalf("edge %v shared by %d faces", e, n)
		}
	}
}
