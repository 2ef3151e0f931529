package sphere

import "geosphere.ai/internal/sim/graph"

// resetFlags clears every transient bit on the nodes this tick touched.
// Nodes freed by a collapse are skipped; nodes created by a split start clean.
func (s *Sphere) resetFlags(p *tickPass) {
	st := s.store
	resetAll := func(hs []graph.Handle) {
		parallelFor(len(hs), s.cfg.Workers, func(lo, hi int) {
			for _, h := range hs[lo:hi] {
				_ = st.SetFlags(h, 0)
			}
		})
	}
	resetAll(p.leaves)
	resetAll(p.candidates)
}
