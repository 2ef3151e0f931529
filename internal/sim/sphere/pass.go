package sphere

import (
	"geosphere.ai/internal/sim/graph"
)

// tickPass is the per-tick working set, captured from the pre-tick graph.
type tickPass struct {
	tick uint64

	leaves []graph.Handle
	// candidates are internal nodes whose four children are leaves.
	candidates []graph.Handle

	forced     []graph.Handle
	evaluated  int
	iterations int
	conflicts  int
	splits     int
	collapses  int
	violations int

	// Post-tick shape.
	nodeCount int
	leafCount int
	maxLevel  int
}

func (s *Sphere) collectPass(tick uint64) *tickPass {
	p := &tickPass{tick: tick}
	st := s.store
	st.Each(func(h graph.Handle, n graph.Node) bool {
		if n.IsLeaf() {
			p.leaves = append(p.leaves, h)
			return true
		}
		for _, k := range n.Children {
			kn, err := st.Get(k)
			if err != nil || !kn.IsLeaf() {
				return true
			}
		}
		p.candidates = append(p.candidates, h)
		return true
	})
	return p
}

// violation logs an invariant violation and records it; the offending
// request has already been dropped by the caller.
func (s *Sphere) violation(p *tickPass, h graph.Handle, err error) {
	path := ""
	level := 0
	if !h.IsNil() {
		path = s.NodePath(h)
		if n, gerr := s.store.Get(h); gerr == nil {
			level = n.Level
		}
	}
	s.log.Printf("tick %d: node %s: %v", p.tick, path, err)
	p.violations++
	s.totals.Violations++
	s.auditsThisTick = append(s.auditsThisTick, AuditEntry{
		Tick:   p.tick,
		Action: AuditInvariant,
		Path:   path,
		Level:  level,
		Reason: err.Error(),
	})
}
