package main

import (
	"math"
	"path/filepath"
	"strings"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	persistlog "geosphere.ai/internal/persistence/log"
	"geosphere.ai/internal/persistence/snapshot"
	"geosphere.ai/internal/sim/sphere"
)

func newSphere(t *testing.T) *sphere.Sphere {
	t.Helper()
	s, err := sphere.New(sphere.SphereConfig{
		ID:              "replay",
		TickRateHz:      20,
		Transform:       sphere.Transform{Radius: 1, Axis: r3.Vec{Y: 1}},
		Detail:          sphere.Detail{SubdivideDistance: 0.9, UnsubdivideDistance: 1.2, LevelScale: 0.6, MaxLevel: 4},
		Workers:         1,
		CheckInvariants: true,
	}, nil)
	if err != nil {
		t.Fatalf("new sphere: %v", err)
	}
	return s
}

func orbitPoint(i int) r3.Vec {
	a := float64(i) * 0.35
	return r3.Vec{X: 1.15 * math.Cos(a), Y: 0.3 * math.Sin(2*a), Z: 1.15 * math.Sin(a)}
}

// record runs ticks 0..n-1 with logging and returns the snapshot exported
// after tick at.
func record(t *testing.T, dir string, n int, at uint64) snapshot.SnapshotV1 {
	t.Helper()
	s := newSphere(t)
	tl := persistlog.NewTickLogger(dir)
	s.SetTickLogger(tl)

	var snap snapshot.SnapshotV1
	for i := 0; i < n; i++ {
		if i == 3 {
			if err := s.SetDebugTag("2", true); err != nil {
				t.Fatalf("tag: %v", err)
			}
		}
		rep := s.StepOnce(orbitPoint(i))
		if rep.Tick == at {
			snap = s.ExportSnapshot(rep.Tick)
		}
	}
	if err := tl.Close(); err != nil {
		t.Fatalf("close logger: %v", err)
	}
	return snap
}

func TestReplay_VerifiesDigests(t *testing.T) {
	dir := t.TempDir()
	snap := record(t, dir, 16, 5)

	s := newSphere(t)
	if err := s.ImportSnapshot(snap); err != nil {
		t.Fatalf("import: %v", err)
	}
	checked, err := replay(s, filepath.Join(dir, "ticks"), 0, 0)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if checked != 10 {
		t.Fatalf("checked=%d want 10", checked)
	}
}

func TestReplay_StopsAtToTick(t *testing.T) {
	dir := t.TempDir()
	snap := record(t, dir, 12, 2)

	s := newSphere(t)
	if err := s.ImportSnapshot(snap); err != nil {
		t.Fatalf("import: %v", err)
	}
	checked, err := replay(s, filepath.Join(dir, "ticks"), 5, 8)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if checked != 4 {
		t.Fatalf("checked=%d want 4", checked)
	}
	if s.CurrentTick() != 9 {
		t.Fatalf("tick=%d want 9", s.CurrentTick())
	}
}

func TestReplay_DetectsDivergence(t *testing.T) {
	dir := t.TempDir()
	snap := record(t, dir, 10, 2)

	// Same shape, different detail: the replayed sphere diverges.
	snap.SubdivideDistance = 0.5
	snap.UnsubdivideDistance = 0.7
	s := newSphere(t)
	if err := s.ImportSnapshot(snap); err != nil {
		t.Fatalf("import: %v", err)
	}
	_, err := replay(s, filepath.Join(dir, "ticks"), 0, 0)
	if err == nil || !strings.Contains(err.Error(), "digest mismatch") {
		t.Fatalf("want digest mismatch, got %v", err)
	}
}
