// Package graph is the node arena behind the subdivision engine.
//
// Reads may run from many goroutines at once. Topology changes only through
// an Edit, and only one Edit is open at a time; callers must not read while
// an Edit is open. Per-node flags are not topology: a goroutine may update
// the flags of the nodes it owns during a pass.
package graph

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

type slot struct {
	gen   uint32
	live  bool
	flags Flags
	node  Node
}

type Store struct {
	slots []slot

	// free slots may be handed out now; pending slots were freed during the
	// last edit and become reusable at the next Begin.
	free    []uint32
	pending []uint32

	roots       []Handle
	initialized bool
	live        int

	editing bool
	epoch   uint64
}

func NewStore() *Store {
	return &Store{}
}

func (s *Store) lookup(h Handle) (*slot, error) {
	if h.IsNil() || int(h.Index) >= len(s.slots) {
		return nil, fmt.Errorf("%w: %s", ErrStaleHandle, h)
	}
	sl := &s.slots[h.Index]
	if !sl.live || sl.gen != h.Gen {
		return nil, fmt.Errorf("%w: %s", ErrStaleHandle, h)
	}
	return sl, nil
}

// Valid reports whether h names a live node.
func (s *Store) Valid(h Handle) bool {
	_, err := s.lookup(h)
	return err == nil
}

// Get returns a copy of the node.
func (s *Store) Get(h Handle) (Node, error) {
	sl, err := s.lookup(h)
	if err != nil {
		return Node{}, err
	}
	return sl.node, nil
}

// Children returns nil for a leaf, otherwise the four child handles.
func (s *Store) Children(h Handle) ([]Handle, error) {
	sl, err := s.lookup(h)
	if err != nil {
		return nil, err
	}
	if sl.node.IsLeaf() {
		return nil, nil
	}
	out := make([]Handle, NumChildren)
	copy(out, sl.node.Children[:])
	return out, nil
}

func (s *Store) Neighbor(h Handle, side Side) (Link, error) {
	sl, err := s.lookup(h)
	if err != nil {
		return Link{}, err
	}
	if side >= NumSides {
		return Link{}, fmt.Errorf("%w: bad side %d", ErrInvariantViolation, side)
	}
	return sl.node.Neighbors[side], nil
}

func (s *Store) Flags(h Handle) (Flags, error) {
	sl, err := s.lookup(h)
	if err != nil {
		return 0, err
	}
	return sl.flags, nil
}

func (s *Store) SetFlags(h Handle, f Flags) error {
	sl, err := s.lookup(h)
	if err != nil {
		return err
	}
	sl.flags = f
	return nil
}

// SetDebug toggles the debug-draw tag. It is presentation state, not topology.
func (s *Store) SetDebug(h Handle, on bool) error {
	sl, err := s.lookup(h)
	if err != nil {
		return err
	}
	sl.node.Debug = on
	return nil
}

func (s *Store) Roots() []Handle {
	out := make([]Handle, len(s.roots))
	copy(out, s.roots)
	return out
}

func (s *Store) Initialized() bool { return s.initialized }

// Len returns the number of live nodes.
func (s *Store) Len() int { return s.live }

// Epoch counts committed edits.
func (s *Store) Epoch() uint64 { return s.epoch }

// Each visits live nodes in slot order until fn returns false.
func (s *Store) Each(fn func(h Handle, n Node) bool) {
	for i := range s.slots {
		sl := &s.slots[i]
		if !sl.live {
			continue
		}
		if !fn(Handle{Index: uint32(i), Gen: sl.gen}, sl.node) {
			return
		}
	}
}

// Leaves returns every live leaf in slot order.
func (s *Store) Leaves() []Handle {
	var out []Handle
	for i := range s.slots {
		sl := &s.slots[i]
		if sl.live && sl.node.IsLeaf() {
			out = append(out, Handle{Index: uint32(i), Gen: sl.gen})
		}
	}
	return out
}

// Begin opens the structural edit window for this tick.
func (s *Store) Begin() (*Edit, error) {
	if s.editing {
		return nil, ErrEditInProgress
	}
	s.free = append(s.free, s.pending...)
	s.pending = s.pending[:0]
	s.editing = true
	return &Edit{s: s}, nil
}

// Edit is the only way to change topology.
type Edit struct {
	s      *Store
	closed bool

	allocated int
	freed     int
}

func (e *Edit) open() error {
	if e == nil || e.closed {
		return ErrEditClosed
	}
	return nil
}

// Allocate creates a leaf. It never blocks.
func (e *Edit) Allocate(corners [3]r3.Vec, level int, parent Handle) (Handle, error) {
	if err := e.open(); err != nil {
		return Nil, err
	}
	s := e.s
	var idx uint32
	if n := len(s.free); n > 0 {
		idx = s.free[n-1]
		s.free = s.free[:n-1]
	} else {
		s.slots = append(s.slots, slot{gen: 1})
		idx = uint32(len(s.slots) - 1)
	}
	sl := &s.slots[idx]
	sl.live = true
	sl.flags = 0
	sl.node = Node{Level: level, Corners: corners, Parent: parent}
	s.live++
	e.allocated++
	return Handle{Index: idx, Gen: sl.gen}, nil
}

// Free invalidates h at once. The slot is reused only after the next Begin.
func (e *Edit) Free(h Handle) error {
	if err := e.open(); err != nil {
		return err
	}
	s := e.s
	sl, err := s.lookup(h)
	if err != nil {
		return err
	}
	if !sl.node.IsLeaf() {
		return fmt.Errorf("%w: free of %s with live children", ErrInvariantViolation, h)
	}
	sl.live = false
	sl.flags = 0
	sl.node = Node{}
	sl.gen++
	if sl.gen == 0 {
		sl.gen = 1
	}
	s.pending = append(s.pending, h.Index)
	s.live--
	e.freed++
	return nil
}

func (e *Edit) SetNeighbor(h Handle, side Side, l Link) error {
	if err := e.open(); err != nil {
		return err
	}
	sl, err := e.s.lookup(h)
	if err != nil {
		return err
	}
	if side >= NumSides || l.Side >= NumSides {
		return fmt.Errorf("%w: bad side", ErrInvariantViolation)
	}
	sl.node.Neighbors[side] = l
	return nil
}

// SetChildren installs a complete child set on a leaf.
func (e *Edit) SetChildren(h Handle, kids [NumChildren]Handle) error {
	if err := e.open(); err != nil {
		return err
	}
	sl, err := e.s.lookup(h)
	if err != nil {
		return err
	}
	if !sl.node.IsLeaf() {
		return fmt.Errorf("%w: %s already has children", ErrInvariantViolation, h)
	}
	for _, k := range kids {
		if _, err := e.s.lookup(k); err != nil {
			return err
		}
	}
	sl.node.Children = kids
	return nil
}

// ClearChildren reverts h to a leaf. The children must already be freed.
func (e *Edit) ClearChildren(h Handle) error {
	if err := e.open(); err != nil {
		return err
	}
	sl, err := e.s.lookup(h)
	if err != nil {
		return err
	}
	for _, k := range sl.node.Children {
		if e.s.Valid(k) {
			return fmt.Errorf("%w: child %s of %s still live", ErrInvariantViolation, k, h)
		}
	}
	sl.node.Children = [NumChildren]Handle{}
	return nil
}

func (e *Edit) AddRoot(h Handle) error {
	if err := e.open(); err != nil {
		return err
	}
	if _, err := e.s.lookup(h); err != nil {
		return err
	}
	e.s.roots = append(e.s.roots, h)
	return nil
}

func (e *Edit) MarkInitialized() {
	if e.open() == nil {
		e.s.initialized = true
	}
}

// Counts reports how many nodes this edit allocated and freed.
func (e *Edit) Counts() (allocated, freed int) { return e.allocated, e.freed }

// Commit closes the window.
func (e *Edit) Commit() {
	if e.open() != nil {
		return
	}
	e.closed = true
	e.s.editing = false
	e.s.epoch++
}
