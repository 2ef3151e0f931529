package graph

import (
	"errors"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

var tri = [3]r3.Vec{{Y: 1}, {X: 1}, {Z: 1}}

func mustBegin(t *testing.T, s *Store) *Edit {
	t.Helper()
	e, err := s.Begin()
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	return e
}

func mustAlloc(t *testing.T, e *Edit, level int, parent Handle) Handle {
	t.Helper()
	h, err := e.Allocate(tri, level, parent)
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	return h
}

func TestStore_FreeInvalidatesImmediately(t *testing.T) {
	s := NewStore()
	e := mustBegin(t, s)
	h := mustAlloc(t, e, 0, Nil)
	if _, err := s.Get(h); err != nil {
		t.Fatalf("get live: %v", err)
	}
	if err := e.Free(h); err != nil {
		t.Fatalf("free: %v", err)
	}
	if _, err := s.Get(h); !errors.Is(err, ErrStaleHandle) {
		t.Fatalf("get after free: err=%v want ErrStaleHandle", err)
	}
	if err := e.Free(h); !errors.Is(err, ErrStaleHandle) {
		t.Fatalf("double free: err=%v", err)
	}
	e.Commit()
	if s.Len() != 0 {
		t.Fatalf("len=%d want 0", s.Len())
	}
}

func TestStore_SlotReuseDeferredToNextEdit(t *testing.T) {
	s := NewStore()
	e := mustBegin(t, s)
	a := mustAlloc(t, e, 0, Nil)
	e.Commit()

	e = mustBegin(t, s)
	if err := e.Free(a); err != nil {
		t.Fatalf("free: %v", err)
	}
	b := mustAlloc(t, e, 0, Nil)
	if b.Index == a.Index {
		t.Fatalf("slot %d reused within the edit that freed it", a.Index)
	}
	e.Commit()

	e = mustBegin(t, s)
	c := mustAlloc(t, e, 0, Nil)
	e.Commit()
	if c.Index != a.Index {
		t.Fatalf("expected reuse of slot %d, got %d", a.Index, c.Index)
	}
	if c == a {
		t.Fatalf("reused slot must carry a new generation")
	}
	if _, err := s.Get(a); !errors.Is(err, ErrStaleHandle) {
		t.Fatalf("old handle aliases new node: err=%v", err)
	}
}

func TestStore_NestedBeginFails(t *testing.T) {
	s := NewStore()
	e := mustBegin(t, s)
	if _, err := s.Begin(); !errors.Is(err, ErrEditInProgress) {
		t.Fatalf("nested begin err=%v", err)
	}
	e.Commit()
	if _, err := e.Allocate(tri, 0, Nil); !errors.Is(err, ErrEditClosed) {
		t.Fatalf("allocate after commit err=%v", err)
	}
	if s.Epoch() != 1 {
		t.Fatalf("epoch=%d want 1", s.Epoch())
	}
}

func TestStore_ChildrenLifecycle(t *testing.T) {
	s := NewStore()
	e := mustBegin(t, s)
	p := mustAlloc(t, e, 0, Nil)
	var kids [NumChildren]Handle
	for i := range kids {
		kids[i] = mustAlloc(t, e, 1, p)
	}
	if err := e.SetChildren(p, kids); err != nil {
		t.Fatalf("set children: %v", err)
	}
	if err := e.SetChildren(p, kids); !errors.Is(err, ErrInvariantViolation) {
		t.Fatalf("second SetChildren err=%v", err)
	}
	if err := e.Free(p); !errors.Is(err, ErrInvariantViolation) {
		t.Fatalf("free of internal node err=%v", err)
	}
	if err := e.ClearChildren(p); !errors.Is(err, ErrInvariantViolation) {
		t.Fatalf("clear with live children err=%v", err)
	}
	e.Commit()

	got, err := s.Children(p)
	if err != nil || len(got) != NumChildren {
		t.Fatalf("children=%v err=%v", got, err)
	}
	if leaves := s.Leaves(); len(leaves) != 4 {
		t.Fatalf("leaves=%d want 4", len(leaves))
	}

	e = mustBegin(t, s)
	for _, k := range kids {
		if err := e.Free(k); err != nil {
			t.Fatalf("free child: %v", err)
		}
	}
	if err := e.ClearChildren(p); err != nil {
		t.Fatalf("clear: %v", err)
	}
	e.Commit()
	n, _ := s.Get(p)
	if !n.IsLeaf() {
		t.Fatalf("parent should be a leaf again")
	}
	for _, k := range kids {
		if _, err := s.Children(k); !errors.Is(err, ErrStaleHandle) {
			t.Fatalf("child %s err=%v", k, err)
		}
	}
}

func TestStore_FlagsAndNeighbors(t *testing.T) {
	s := NewStore()
	e := mustBegin(t, s)
	a := mustAlloc(t, e, 0, Nil)
	b := mustAlloc(t, e, 0, Nil)
	if err := e.SetNeighbor(a, SideBottom, Link{Node: b, Side: SideLeft}); err != nil {
		t.Fatalf("set neighbor: %v", err)
	}
	if err := e.SetNeighbor(a, Side(9), Link{Node: b}); !errors.Is(err, ErrInvariantViolation) {
		t.Fatalf("bad side err=%v", err)
	}
	e.Commit()

	l, err := s.Neighbor(a, SideBottom)
	if err != nil || l.Node != b || l.Side != SideLeft {
		t.Fatalf("neighbor=%+v err=%v", l, err)
	}
	if err := s.SetFlags(a, WantsSubdivide|CommitSubdivide); err != nil {
		t.Fatalf("set flags: %v", err)
	}
	f, _ := s.Flags(a)
	if !f.Has(CommitSubdivide) || f.Has(WantsUnsubdivide) {
		t.Fatalf("flags=%b", f)
	}
}
