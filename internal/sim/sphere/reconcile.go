package sphere

import (
	"fmt"
	"sync/atomic"

	"geosphere.ai/internal/sim/graph"
)

// reconcile turns desires into commitments: local decisions first, then the
// neighbor-forced fixed point, then collapses against the final split set.
func (s *Sphere) reconcile(p *tickPass) {
	st := s.store
	maxLevel := s.cfg.Detail.MaxLevel

	var conflicts atomic.Int64
	parallelFor(len(p.leaves), s.cfg.Workers, func(lo, hi int) {
		for _, h := range p.leaves[lo:hi] {
			f, err := st.Flags(h)
			if err != nil {
				continue
			}
			switch {
			case f.Has(graph.WantsSubdivide | graph.WantsUnsubdivide):
				// Only reachable from stale flags: drop both, no change this tick.
				f &^= graph.WantsSubdivide | graph.WantsUnsubdivide
				conflicts.Add(1)
			case f.Has(graph.WantsSubdivide):
				if n, err := st.Get(h); err == nil && n.Level < maxLevel {
					f |= graph.CommitSubdivide
				}
			}
			_ = st.SetFlags(h, f)
		}
	})
	p.conflicts = int(conflicts.Load())

	s.propagateForced(p)

	parallelFor(len(p.candidates), s.cfg.Workers, func(lo, hi int) {
		for _, h := range p.candidates[lo:hi] {
			if s.canCollapse(h) {
				f, _ := st.Flags(h)
				_ = st.SetFlags(h, f|graph.CommitUnsubdivide)
			}
		}
	})
}

// propagateForced raises ForcedSubdivide on every leaf that would otherwise
// end the tick two or more levels above an adjacent leaf. Each iteration
// reads the commitments of the previous one and writes into a scratch slice;
// flags are applied after the barrier. Only coarser leaves next to newly
// forced nodes are re-examined.
func (s *Sphere) propagateForced(p *tickPass) {
	st := s.store
	limit := s.cfg.Detail.MaxLevel + 2

	work := make([]graph.Handle, len(p.leaves))
	copy(work, p.leaves)
	for iter := 0; len(work) > 0; iter++ {
		if iter >= limit {
			s.violation(p, graph.Nil, fmt.Errorf("%w: forced subdivision did not settle after %d iterations", graph.ErrInvariantViolation, limit))
			return
		}
		p.iterations++

		hits := make([]bool, len(work))
		parallelFor(len(work), s.cfg.Workers, func(lo, hi int) {
			for i := lo; i < hi; i++ {
				h := work[i]
				n, err := st.Get(h)
				if err != nil || !n.IsLeaf() {
					continue
				}
				if f, _ := st.Flags(h); f.Has(graph.CommitSubdivide) {
					continue
				}
				if maxAdjacentCommittedLevel(st, n) >= n.Level+2 {
					hits[i] = true
				}
			}
		})

		var next []graph.Handle
		queued := map[graph.Handle]struct{}{}
		for i, hit := range hits {
			if !hit {
				continue
			}
			h := work[i]
			f, _ := st.Flags(h)
			if f.Has(graph.CommitSubdivide) {
				continue
			}
			_ = st.SetFlags(h, f|graph.ForcedSubdivide|graph.CommitSubdivide)
			p.forced = append(p.forced, h)

			n, _ := st.Get(h)
			for sd := graph.Side(0); sd < graph.NumSides; sd++ {
				edgeLeaves(st, n, sd, func(lh graph.Handle, leaf graph.Node) {
					if leaf.Level >= n.Level {
						return
					}
					if _, ok := queued[lh]; ok {
						return
					}
					queued[lh] = struct{}{}
					next = append(next, lh)
				})
			}
		}
		work = next
	}
}

// canCollapse applies the unsubdivide rule to a collapse candidate.
func (s *Sphere) canCollapse(h graph.Handle) bool {
	st := s.store
	n, err := st.Get(h)
	if err != nil || n.IsLeaf() {
		return false
	}
	f, _ := st.Flags(h)
	if !f.Has(graph.WantsUnsubdivide) || f.Has(graph.WantsSubdivide) || f.Has(graph.ForcedSubdivide) {
		return false
	}
	for _, k := range n.Children {
		kn, err := st.Get(k)
		if err != nil || !kn.IsLeaf() {
			return false
		}
		kf, _ := st.Flags(k)
		if kf&(graph.CommitSubdivide|graph.ForcedSubdivide) != 0 {
			return false
		}
	}
	// As a leaf, n must stay within one level of everything around it.
	return maxAdjacentCommittedLevel(st, n) < n.Level+2
}
