package sphere

import (
	"testing"

	"geosphere.ai/internal/sim/geom"
	"geosphere.ai/internal/sim/graph"
)

func TestReconcile_ConflictingDesiresCancel(t *testing.T) {
	s := newTestSphere(t, testConfig(Detail{SubdivideDistance: 0.5, UnsubdivideDistance: 0.7, LevelScale: 1, MaxLevel: 2}))
	st := s.Store()
	leaf := st.Roots()[3]
	if err := st.SetFlags(leaf, graph.WantsSubdivide|graph.WantsUnsubdivide); err != nil {
		t.Fatalf("set flags: %v", err)
	}

	p := s.collectPass(s.CurrentTick())
	s.reconcile(p)

	f, err := st.Flags(leaf)
	if err != nil {
		t.Fatalf("flags: %v", err)
	}
	if f != 0 {
		t.Fatalf("flags after reconcile: got %b want 0", f)
	}
	if p.conflicts != 1 {
		t.Fatalf("conflicts: got %d want 1", p.conflicts)
	}

	if err := s.applyDecisions(p); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if p.splits != 0 || p.collapses != 0 || st.Len() != RootCount {
		t.Fatalf("conflict changed the tree: splits=%d collapses=%d nodes=%d", p.splits, p.collapses, st.Len())
	}
}

func TestApplyDecisions_CollapseWithGrandchildrenIsNoop(t *testing.T) {
	s := newTestSphere(t, testConfig(Detail{SubdivideDistance: 0.5, UnsubdivideDistance: 0.7, LevelScale: 0.5, MaxLevel: 2}))
	mustStep(t, s, rootCentroid(0))
	topH, err := s.FindPath("0/0")
	if err != nil {
		t.Fatalf("find top child: %v", err)
	}
	top, _ := s.Store().Get(topH)
	mustStep(t, s, geom.Centroid(top.Corners))

	st := s.Store()
	root, _ := s.FindPath("0")
	if n, _ := st.Get(topH); n.IsLeaf() {
		t.Fatalf("0/0 should have a level-2 family")
	}
	before := st.Len()

	if err := st.SetFlags(root, graph.CommitUnsubdivide); err != nil {
		t.Fatalf("set flags: %v", err)
	}
	s.auditsThisTick = nil
	p := &tickPass{tick: s.CurrentTick(), candidates: []graph.Handle{root}}
	if err := s.applyDecisions(p); err != nil {
		t.Fatalf("apply: %v", err)
	}
	_ = st.SetFlags(root, 0)

	if n, _ := st.Get(root); n.IsLeaf() {
		t.Fatalf("root 0 collapsed over grandchildren")
	}
	if p.collapses != 0 || p.violations != 1 {
		t.Fatalf("collapses=%d violations=%d", p.collapses, p.violations)
	}
	if st.Len() != before {
		t.Fatalf("nodes: got %d want %d", st.Len(), before)
	}
	if len(s.auditsThisTick) != 1 || s.auditsThisTick[0].Action != AuditInvariant || s.auditsThisTick[0].Path != "0" {
		t.Fatalf("audits: %+v", s.auditsThisTick)
	}
	if err := s.CheckInvariants(); err != nil {
		t.Fatalf("invariants: %v", err)
	}
}
