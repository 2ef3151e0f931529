package sphere

import (
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

func TestDeterminism_SameViewpointsSameDigest(t *testing.T) {
	detail := Detail{SubdivideDistance: 0.7, UnsubdivideDistance: 0.9, LevelScale: 0.55, MaxLevel: 5}
	s1 := newTestSphere(t, testConfig(detail))
	s2 := newTestSphere(t, testConfig(detail))

	path := orbit(42, 50)
	for i, vp := range path {
		r1 := s1.StepOnce(vp)
		r2 := s2.StepOnce(vp)
		if r1.Digest != r2.Digest {
			t.Fatalf("digest mismatch at tick %d: %s vs %s", r1.Tick, r1.Digest, r2.Digest)
		}
		if r1 != r2 {
			t.Fatalf("report mismatch at step %d: %+v vs %+v", i, r1, r2)
		}
	}
}

// A sphere whose slots were churned before reaching a tree still digests the
// same as one that got there directly.
func TestDeterminism_DigestIgnoresHandles(t *testing.T) {
	detail := Detail{SubdivideDistance: 0.7, UnsubdivideDistance: 0.9, LevelScale: 0.55, MaxLevel: 4}
	direct := newTestSphere(t, testConfig(detail))
	churned := newTestSphere(t, testConfig(detail))

	for _, vp := range orbit(9, 25) {
		churned.StepOnce(vp)
	}
	target := orbit(1, 1)[0]
	far := r3.Vec{X: 100}
	for i := 0; i < detail.MaxLevel+1; i++ {
		churned.StepOnce(far)
	}
	for i := 0; i < detail.MaxLevel+1; i++ {
		direct.StepOnce(target)
		churned.StepOnce(target)
	}
	if direct.StateDigest() != churned.StateDigest() {
		t.Fatalf("digests differ for the same tree")
	}
}
