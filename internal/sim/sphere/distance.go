package sphere

import (
	"gonum.org/v1/gonum/spatial/r3"

	"geosphere.ai/internal/sim/geom"
	"geosphere.ai/internal/sim/graph"
)

// WorldCentroid returns the patch centroid on the sphere surface in world space.
func (s *Sphere) WorldCentroid(n graph.Node) r3.Vec {
	return s.cfg.Transform.WorldPoint(geom.Centroid(n.Corners))
}

func (s *Sphere) distance(n graph.Node, vp r3.Vec) float64 {
	return r3.Norm(r3.Sub(s.WorldCentroid(n), vp))
}

// evaluateDistances recomputes the distance desires of every leaf and every
// collapse candidate. Each worker writes only the flags of its own nodes.
func (s *Sphere) evaluateDistances(p *tickPass) {
	if !s.hasViewpoint {
		return
	}
	vp := s.viewpoint
	st := s.store
	d := s.cfg.Detail

	eval := func(hs []graph.Handle, leaf bool) {
		parallelFor(len(hs), s.cfg.Workers, func(lo, hi int) {
			for _, h := range hs[lo:hi] {
				n, err := st.Get(h)
				if err != nil {
					continue
				}
				f, _ := st.Flags(h)
				f &^= graph.WantsSubdivide | graph.WantsUnsubdivide

				dist := s.distance(n, vp)
				sub, unsub := d.Thresholds(n.Level)
				if leaf && n.Level < d.MaxLevel && dist < sub {
					f |= graph.WantsSubdivide
				}
				if dist > unsub {
					f |= graph.WantsUnsubdivide
				}
				_ = st.SetFlags(h, f)
			}
		})
	}
	eval(p.leaves, true)
	eval(p.candidates, false)
	p.evaluated = len(p.leaves) + len(p.candidates)
}
