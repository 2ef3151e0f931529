package sphere

import (
	"gonum.org/v1/gonum/spatial/r3"

	"geosphere.ai/internal/sim/geom"
	"geosphere.ai/internal/sim/graph"
)

type halfEdge struct {
	child int
	side  graph.Side
}

// halves[s] lists the child edges covering side s, starting at the side's
// first corner.
var halves = [graph.NumSides][2]halfEdge{
	graph.SideLeft:   {{graph.ChildTop, graph.SideLeft}, {graph.ChildBottomLeft, graph.SideLeft}},
	graph.SideRight:  {{graph.ChildTop, graph.SideRight}, {graph.ChildBottomRight, graph.SideRight}},
	graph.SideBottom: {{graph.ChildBottomLeft, graph.SideBottom}, {graph.ChildBottomRight, graph.SideBottom}},
}

type childEdge struct {
	internal bool
	// internal: the sibling slot and its facing side.
	sibling     int
	siblingSide graph.Side
	// external: the parent side this edge is half of.
	parentSide graph.Side
}

var childEdges = [graph.NumChildren][graph.NumSides]childEdge{
	graph.ChildTop: {
		graph.SideLeft:   {parentSide: graph.SideLeft},
		graph.SideRight:  {parentSide: graph.SideRight},
		graph.SideBottom: {internal: true, sibling: graph.ChildCenter, siblingSide: graph.SideBottom},
	},
	graph.ChildBottomLeft: {
		graph.SideLeft:   {parentSide: graph.SideLeft},
		graph.SideRight:  {internal: true, sibling: graph.ChildCenter, siblingSide: graph.SideRight},
		graph.SideBottom: {parentSide: graph.SideBottom},
	},
	graph.ChildBottomRight: {
		graph.SideLeft:   {internal: true, sibling: graph.ChildCenter, siblingSide: graph.SideLeft},
		graph.SideRight:  {parentSide: graph.SideRight},
		graph.SideBottom: {parentSide: graph.SideBottom},
	},
	graph.ChildCenter: {
		graph.SideLeft:   {internal: true, sibling: graph.ChildBottomRight, siblingSide: graph.SideLeft},
		graph.SideRight:  {internal: true, sibling: graph.ChildBottomLeft, siblingSide: graph.SideRight},
		graph.SideBottom: {internal: true, sibling: graph.ChildTop, siblingSide: graph.SideBottom},
	},
}

func edgeMid(n graph.Node, s graph.Side) r3.Vec {
	a, b := n.Edge(s)
	return geom.Midpoint(a, b)
}

// resolveLink descends from start until it reaches the node at the given
// level that shares the edge around x, or the coarser leaf covering it.
func resolveLink(st *graph.Store, x r3.Vec, level int, start graph.Link) graph.Link {
	cur := start
	for {
		y, err := st.Get(cur.Node)
		if err != nil {
			return graph.Link{}
		}
		if y.IsLeaf() || y.Level >= level {
			return cur
		}
		a, b := y.Edge(cur.Side)
		hi := 0
		if r3.Dot(x, b) > r3.Dot(x, a) {
			hi = 1
		}
		he := halves[cur.Side][hi]
		cur = graph.Link{Node: y.Children[he.child], Side: he.side}
	}
}

// walkEdge visits every node on the far side of an edge, starting at the
// link target and descending along the facing side. Below fromLevel only the
// half containing x is followed; from fromLevel down both halves are.
// fn returning false stops descent under that node.
func walkEdge(st *graph.Store, x r3.Vec, fromLevel int, l graph.Link, fn func(h graph.Handle, n graph.Node, side graph.Side) bool) {
	if l.IsNil() {
		return
	}
	y, err := st.Get(l.Node)
	if err != nil {
		return
	}
	if !fn(l.Node, y, l.Side) || y.IsLeaf() {
		return
	}
	if y.Level < fromLevel {
		a, b := y.Edge(l.Side)
		hi := 0
		if r3.Dot(x, b) > r3.Dot(x, a) {
			hi = 1
		}
		he := halves[l.Side][hi]
		walkEdge(st, x, fromLevel, graph.Link{Node: y.Children[he.child], Side: he.side}, fn)
		return
	}
	for _, he := range halves[l.Side] {
		walkEdge(st, x, fromLevel, graph.Link{Node: y.Children[he.child], Side: he.side}, fn)
	}
}

// edgeLeaves calls fn for every leaf adjacent to side s of n.
func edgeLeaves(st *graph.Store, n graph.Node, s graph.Side, fn func(h graph.Handle, leaf graph.Node)) {
	walkEdge(st, edgeMid(n, s), n.Level, n.Neighbors[s], func(h graph.Handle, y graph.Node, _ graph.Side) bool {
		if y.IsLeaf() {
			fn(h, y)
		}
		return true
	})
}

// committedLevel is the level a leaf will have after this tick's splits.
func committedLevel(st *graph.Store, h graph.Handle, n graph.Node) int {
	f, _ := st.Flags(h)
	if f.Has(graph.CommitSubdivide) {
		return n.Level + 1
	}
	return n.Level
}

// maxAdjacentCommittedLevel returns the deepest committed level among the
// leaves touching n, or -1 when n has no neighbors.
func maxAdjacentCommittedLevel(st *graph.Store, n graph.Node) int {
	best := -1
	for s := graph.Side(0); s < graph.NumSides; s++ {
		edgeLeaves(st, n, s, func(h graph.Handle, leaf graph.Node) {
			if lv := committedLevel(st, h, leaf); lv > best {
				best = lv
			}
		})
	}
	return best
}
