package sphere

import (
	"errors"
	"fmt"

	"geosphere.ai/internal/sim/graph"
)

// CheckInvariants walks the whole graph and reports every structural problem
// it finds: child-set shape, parent/level consistency, link targets and the
// one-level rule between adjacent leaves.
func (s *Sphere) CheckInvariants() error {
	st := s.store
	var errs []error
	bad := func(h graph.Handle, format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: %s: %s", graph.ErrInvariantViolation, s.NodePath(h), fmt.Sprintf(format, args...)))
	}

	st.Each(func(h graph.Handle, n graph.Node) bool {
		live := 0
		for _, k := range n.Children {
			if k.IsNil() {
				continue
			}
			kn, err := st.Get(k)
			if err != nil {
				bad(h, "child %s: %v", k, err)
				continue
			}
			live++
			if kn.Parent != h {
				bad(h, "child %s names parent %s", k, kn.Parent)
			}
			if kn.Level != n.Level+1 {
				bad(h, "child %s at level %d", k, kn.Level)
			}
		}
		if live != 0 && live != graph.NumChildren {
			bad(h, "%d children", live)
		}

		for sd := graph.Side(0); sd < graph.NumSides; sd++ {
			l := n.Neighbors[sd]
			y, err := st.Get(l.Node)
			if err != nil {
				bad(h, "side %s: %v", sd, err)
				continue
			}
			if y.Level > n.Level {
				bad(h, "side %s links finer node at level %d", sd, y.Level)
			}
			if y.Level < n.Level && !y.IsLeaf() {
				bad(h, "side %s links coarser non-leaf", sd)
			}
			if y.Level == n.Level && y.Neighbors[l.Side].Node != h {
				bad(h, "side %s link is not reciprocal", sd)
			}
		}

		if n.IsLeaf() {
			for sd := graph.Side(0); sd < graph.NumSides; sd++ {
				edgeLeaves(st, n, sd, func(_ graph.Handle, leaf graph.Node) {
					if d := leaf.Level - n.Level; d > 1 || d < -1 {
						bad(h, "side %s touches leaf at level %d", sd, leaf.Level)
					}
				})
			}
		}
		return true
	})
	return errors.Join(errs...)
}
