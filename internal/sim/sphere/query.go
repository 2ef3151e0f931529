package sphere

import (
	"fmt"
	"strconv"
	"strings"

	"geosphere.ai/internal/sim/graph"
)

// Walk visits the tree depth-first in root order then child order. fn
// returning false skips the subtree.
func (s *Sphere) Walk(fn func(h graph.Handle, n graph.Node, path string) bool) {
	for i, r := range s.store.Roots() {
		s.walk(r, strconv.Itoa(i), fn)
	}
}

func (s *Sphere) walk(h graph.Handle, path string, fn func(graph.Handle, graph.Node, string) bool) {
	n, err := s.store.Get(h)
	if err != nil {
		return
	}
	if !fn(h, n, path) || n.IsLeaf() {
		return
	}
	for i, k := range n.Children {
		s.walk(k, path+"/"+strconv.Itoa(i), fn)
	}
}

// NodePath returns "root/child/child..." for a live node, or "" if stale.
func (s *Sphere) NodePath(h graph.Handle) string {
	var parts []string
	cur := h
	for {
		n, err := s.store.Get(cur)
		if err != nil {
			return ""
		}
		if n.Parent.IsNil() {
			idx, ok := s.rootIndex[cur]
			if !ok {
				return ""
			}
			parts = append(parts, strconv.Itoa(idx))
			break
		}
		p, err := s.store.Get(n.Parent)
		if err != nil {
			return ""
		}
		slot := -1
		for i, k := range p.Children {
			if k == cur {
				slot = i
				break
			}
		}
		if slot < 0 {
			return ""
		}
		parts = append(parts, strconv.Itoa(slot))
		cur = n.Parent
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, "/")
}

// FindPath resolves a path produced by NodePath.
func (s *Sphere) FindPath(path string) (graph.Handle, error) {
	parts := strings.Split(strings.TrimSpace(path), "/")
	roots := s.store.Roots()
	ri, err := strconv.Atoi(parts[0])
	if err != nil || ri < 0 || ri >= len(roots) {
		return graph.Nil, fmt.Errorf("%w: bad root in path %q", ErrPathNotFound, path)
	}
	cur := roots[ri]
	for _, p := range parts[1:] {
		ci, err := strconv.Atoi(p)
		if err != nil || ci < 0 || ci >= graph.NumChildren {
			return graph.Nil, fmt.Errorf("%w: bad child %q in path %q", ErrPathNotFound, p, path)
		}
		n, err := s.store.Get(cur)
		if err != nil {
			return graph.Nil, err
		}
		if n.IsLeaf() {
			return graph.Nil, fmt.Errorf("%w: %q descends past a leaf", ErrPathNotFound, path)
		}
		cur = n.Children[ci]
	}
	return cur, nil
}

// LeafView is a leaf in world space.
type LeafView struct {
	Path    string
	Level   int
	Corners [3][3]float64
	Debug   bool
}

// Leaves returns the current leaf handles in traversal order.
func (s *Sphere) Leaves() []graph.Handle {
	var out []graph.Handle
	s.Walk(func(h graph.Handle, n graph.Node, _ string) bool {
		if n.IsLeaf() {
			out = append(out, h)
		}
		return true
	})
	return out
}

// LeafViews lists every leaf in traversal order.
func (s *Sphere) LeafViews() []LeafView {
	var out []LeafView
	s.Walk(func(_ graph.Handle, n graph.Node, path string) bool {
		if n.IsLeaf() {
			out = append(out, LeafView{Path: path, Level: n.Level, Corners: s.worldCorners(n), Debug: n.Debug})
		}
		return true
	})
	return out
}

func (s *Sphere) worldCorners(n graph.Node) [3][3]float64 {
	var out [3][3]float64
	for i, c := range n.Corners {
		w := s.cfg.Transform.WorldPoint(c)
		out[i] = [3]float64{w.X, w.Y, w.Z}
	}
	return out
}

// SetDebugTag sets the debug-draw tag on the node at path. Children created
// later inherit it. Loop goroutine only; use DebugTag() from elsewhere.
func (s *Sphere) SetDebugTag(path string, on bool) error {
	h, err := s.FindPath(path)
	if err != nil {
		return err
	}
	if err := s.store.SetDebug(h, on); err != nil {
		return err
	}
	// Logged with the next tick so replays see the same tags.
	s.tagsThisTick = append(s.tagsThisTick, TagChange{Path: path, On: on})
	return nil
}
