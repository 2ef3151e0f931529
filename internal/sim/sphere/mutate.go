package sphere

import (
	"fmt"

	"geosphere.ai/internal/sim/geom"
	"geosphere.ai/internal/sim/graph"
)

// applyDecisions performs every committed split and collapse inside one edit
// window. Collapses go first, splits second, and a final pass re-derives the
// links touched by either, so the result does not depend on visit order.
func (s *Sphere) applyDecisions(p *tickPass) error {
	st := s.store
	edit, err := st.Begin()
	if err != nil {
		return err
	}
	defer edit.Commit()

	for _, h := range p.candidates {
		f, err := st.Flags(h)
		if err != nil || !f.Has(graph.CommitUnsubdivide) {
			continue
		}
		path := s.NodePath(h)
		n, _ := st.Get(h)
		if err := s.collapseNode(edit, h); err != nil {
			s.violation(p, h, err)
			continue
		}
		p.collapses++
		s.audit(p, AuditUnsubdivide, path, n.Level, "")
	}

	var split []graph.Handle
	for _, h := range p.leaves {
		f, err := st.Flags(h)
		if err != nil || !f.Has(graph.CommitSubdivide) {
			continue
		}
		if err := s.splitNode(edit, h); err != nil {
			s.violation(p, h, err)
			continue
		}
		split = append(split, h)
		p.splits++
		n, _ := st.Get(h)
		if f.Has(graph.ForcedSubdivide) {
			s.audit(p, AuditForcedSubdivide, s.NodePath(h), n.Level, "neighbor two levels finer")
		} else {
			s.audit(p, AuditSubdivide, s.NodePath(h), n.Level, "")
		}
	}

	for _, h := range s.collectDirty(split) {
		if err := s.refineLinks(edit, h); err != nil {
			s.violation(p, h, err)
		}
	}
	return nil
}

// splitNode quadrisects a leaf. External child edges start out pointing
// wherever the parent's edge pointed; refineLinks narrows them.
func (s *Sphere) splitNode(edit *graph.Edit, h graph.Handle) error {
	st := s.store
	n, err := st.Get(h)
	if err != nil {
		return err
	}
	if !n.IsLeaf() {
		return fmt.Errorf("%w: split of non-leaf", graph.ErrInvariantViolation)
	}
	if n.Level >= s.cfg.Detail.MaxLevel {
		return fmt.Errorf("%w: split beyond max level %d", graph.ErrInvariantViolation, s.cfg.Detail.MaxLevel)
	}

	quads := geom.Quadrisect(n.Corners)
	var kids [graph.NumChildren]graph.Handle
	for i := range kids {
		k, err := edit.Allocate(quads[i], n.Level+1, h)
		if err != nil {
			return err
		}
		if n.Debug {
			_ = st.SetDebug(k, true)
		}
		kids[i] = k
	}
	for i, k := range kids {
		for sd := graph.Side(0); sd < graph.NumSides; sd++ {
			ce := childEdges[i][sd]
			l := n.Neighbors[ce.parentSide]
			if ce.internal {
				l = graph.Link{Node: kids[ce.sibling], Side: ce.siblingSide}
			}
			if err := edit.SetNeighbor(k, sd, l); err != nil {
				return err
			}
		}
	}
	return edit.SetChildren(h, kids)
}

// collapseNode frees the four leaf children of h. Every link that named a
// child is re-pointed at h first.
func (s *Sphere) collapseNode(edit *graph.Edit, h graph.Handle) error {
	st := s.store
	n, err := st.Get(h)
	if err != nil {
		return err
	}
	if n.IsLeaf() {
		return fmt.Errorf("%w: collapse of leaf", graph.ErrInvariantViolation)
	}
	for i, k := range n.Children {
		kn, err := st.Get(k)
		if err != nil {
			return err
		}
		if !kn.IsLeaf() {
			return fmt.Errorf("%w: collapse with grandchildren", graph.ErrInvariantViolation)
		}
		for sd := graph.Side(0); sd < graph.NumSides; sd++ {
			ce := childEdges[i][sd]
			if ce.internal {
				continue
			}
			up := graph.Link{Node: h, Side: ce.parentSide}
			var fixes []graph.Link
			walkEdge(st, edgeMid(kn, sd), kn.Level, kn.Neighbors[sd], func(yh graph.Handle, y graph.Node, ys graph.Side) bool {
				if y.Neighbors[ys].Node == k {
					fixes = append(fixes, graph.Link{Node: yh, Side: ys})
				}
				return true
			})
			for _, fx := range fixes {
				if err := edit.SetNeighbor(fx.Node, fx.Side, up); err != nil {
					return err
				}
			}
		}
	}
	for _, k := range n.Children {
		if err := edit.Free(k); err != nil {
			return err
		}
	}
	return edit.ClearChildren(h)
}

// collectDirty returns the nodes whose links may be stale after splits: the
// new children, and everything finer than a split node along its edges.
func (s *Sphere) collectDirty(split []graph.Handle) []graph.Handle {
	st := s.store
	seen := map[graph.Handle]struct{}{}
	var out []graph.Handle
	add := func(h graph.Handle) {
		if _, ok := seen[h]; ok {
			return
		}
		seen[h] = struct{}{}
		out = append(out, h)
	}
	for _, h := range split {
		n, err := st.Get(h)
		if err != nil {
			continue
		}
		for _, k := range n.Children {
			add(k)
		}
		for sd := graph.Side(0); sd < graph.NumSides; sd++ {
			walkEdge(st, edgeMid(n, sd), n.Level, n.Neighbors[sd], func(yh graph.Handle, y graph.Node, _ graph.Side) bool {
				if y.Level > n.Level {
					add(yh)
				}
				return true
			})
		}
	}
	return out
}

// refineLinks re-resolves every side of h against the current tree.
func (s *Sphere) refineLinks(edit *graph.Edit, h graph.Handle) error {
	st := s.store
	n, err := st.Get(h)
	if err != nil {
		return err
	}
	for sd := graph.Side(0); sd < graph.NumSides; sd++ {
		cur := n.Neighbors[sd]
		if cur.IsNil() {
			continue
		}
		l := resolveLink(st, edgeMid(n, sd), n.Level, cur)
		if l.IsNil() {
			return fmt.Errorf("%w: side %s link %s does not resolve", graph.ErrInvariantViolation, sd, cur.Node)
		}
		if l != cur {
			if err := edit.SetNeighbor(h, sd, l); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Sphere) audit(p *tickPass, action, path string, level int, reason string) {
	s.auditsThisTick = append(s.auditsThisTick, AuditEntry{
		Tick:   p.tick,
		Action: action,
		Path:   path,
		Level:  level,
		Reason: reason,
	})
}
