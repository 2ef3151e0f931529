package graph

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// Handle addresses a node slot. Gen is never zero for an issued handle, so the
// zero Handle is the nil handle.
type Handle struct {
	Index uint32
	Gen   uint32
}

// Nil is the zero handle.
var Nil Handle

func (h Handle) IsNil() bool { return h.Gen == 0 }

func (h Handle) String() string {
	if h.IsNil() {
		return "nil"
	}
	return fmt.Sprintf("%d@%d", h.Index, h.Gen)
}

// Side names an edge of a patch by the corners it joins.
type Side uint8

const (
	SideLeft   Side = iota // top - bottomLeft
	SideRight              // top - bottomRight
	SideBottom             // bottomLeft - bottomRight
)

// NumSides is the number of edges of a patch.
const NumSides = 3

var sideNames = [NumSides]string{"left", "right", "bottom"}

func (s Side) String() string {
	if int(s) < len(sideNames) {
		return sideNames[s]
	}
	return fmt.Sprintf("side(%d)", uint8(s))
}

// Corners returns the corner indices joined by s.
func (s Side) Corners() (int, int) {
	switch s {
	case SideLeft:
		return 0, 1
	case SideRight:
		return 0, 2
	default:
		return 1, 2
	}
}

// Child slots, in quadrisection order.
const (
	ChildTop = iota
	ChildBottomLeft
	ChildBottomRight
	ChildCenter
)

// NumChildren is the size of a complete child set.
const NumChildren = 4

// Link is a non-owning neighbor relation: the node across an edge and the
// side of that node which faces back.
type Link struct {
	Node Handle
	Side Side
}

func (l Link) IsNil() bool { return l.Node.IsNil() }

// Flags are the per-tick desire and decision bits of a node.
type Flags uint8

const (
	WantsSubdivide Flags = 1 << iota
	WantsUnsubdivide
	ForcedSubdivide
	CommitSubdivide
	CommitUnsubdivide
)

// AllFlags is every transient bit.
const AllFlags = WantsSubdivide | WantsUnsubdivide | ForcedSubdivide | CommitSubdivide | CommitUnsubdivide

func (f Flags) Has(x Flags) bool { return f&x == x }

// Node is a read-only view of a patch. Corners never change after Allocate.
type Node struct {
	Level     int
	Corners   [3]r3.Vec
	Parent    Handle
	Children  [NumChildren]Handle
	Neighbors [NumSides]Link
	Debug     bool
}

// IsLeaf reports whether the node has no child set.
func (n Node) IsLeaf() bool { return n.Children[0].IsNil() }

// Edge returns the endpoints of side s.
func (n Node) Edge(s Side) (r3.Vec, r3.Vec) {
	a, b := s.Corners()
	return n.Corners[a], n.Corners[b]
}
