package indexdb

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"geosphere.ai/internal/persistence/snapshot"
	"geosphere.ai/internal/sim/sphere"
	"geosphere.ai/internal/sim/tuning"
)

func TestSQLiteIndex_WritesTables(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "index", "sphere.sqlite")
	idx, err := OpenSQLite(dbPath)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	if err := idx.UpsertTuning("main", tuning.Defaults()); err != nil {
		t.Fatalf("upsert tuning: %v", err)
	}
	v, ok, err := idx.Meta(context.Background(), "sphere_id")
	if err != nil || !ok || v != "main" {
		t.Fatalf("meta sphere_id: %q %v %v", v, ok, err)
	}

	vp := [3]float64{1, 2, 3}
	_ = idx.WriteTick(sphere.TickLogEntry{Tick: 1, Viewpoint: &vp, Splits: 2, Nodes: 28, Leaves: 26, Digest: "d1"})
	_ = idx.WriteTick(sphere.TickLogEntry{Tick: 2, Digest: "d2"})
	_ = idx.WriteAudit(sphere.AuditEntry{Tick: 1, Action: sphere.AuditSubdivide, Path: "0", Level: 0})
	_ = idx.WriteAudit(sphere.AuditEntry{Tick: 1, Action: sphere.AuditForcedSubdivide, Path: "4", Level: 0, Reason: "neighbor"})
	idx.RecordSnapshot("/tmp/1.snap.zst", snapshot.SnapshotV1{
		Header:   snapshot.Header{Version: snapshot.Version, SphereID: "main", Tick: 1},
		MaxLevel: 3,
		Roots:    []snapshot.RootV1{{Index: 0, Nodes: 5}, {Index: 1, Nodes: 1}},
		Digest:   "d1",
	})

	if err := idx.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()

	count := func(q string, args ...any) int {
		t.Helper()
		var n int
		if err := db.QueryRow(q, args...).Scan(&n); err != nil {
			t.Fatalf("%s: %v", q, err)
		}
		return n
	}
	if n := count(`SELECT COUNT(*) FROM ticks`); n != 2 {
		t.Fatalf("ticks=%d want 2", n)
	}
	if n := count(`SELECT COUNT(*) FROM ticks WHERE vx IS NULL`); n != 1 {
		t.Fatalf("ticks without viewpoint=%d want 1", n)
	}
	if n := count(`SELECT COUNT(*) FROM audits WHERE tick=1`); n != 2 {
		t.Fatalf("audits=%d want 2", n)
	}
	if n := count(`SELECT seq FROM audits WHERE path=?`, "4"); n != 1 {
		t.Fatalf("second audit seq=%d want 1", n)
	}
	if n := count(`SELECT nodes FROM snapshots WHERE tick=1`); n != 6 {
		t.Fatalf("snapshot nodes=%d want 6", n)
	}
}

func TestSQLiteIndex_QueueDropStats(t *testing.T) {
	s := &SQLiteIndex{ch: make(chan req, 1)}
	s.ch <- req{kind: reqTick, tick: sphere.TickLogEntry{Tick: 1}}

	_ = s.WriteTick(sphere.TickLogEntry{Tick: 2})
	_ = s.WriteAudit(sphere.AuditEntry{Tick: 2})
	s.RecordSnapshot("/tmp/2.snap.zst", snapshot.SnapshotV1{})

	st := s.Stats()
	if st.DropTickTotal != 1 || st.DropAuditTotal != 1 || st.DropSnapshotTotal != 1 {
		t.Fatalf("drop stats: %+v", st)
	}
	if st.QueueDepth != 1 || st.QueueCapacity != 1 {
		t.Fatalf("queue stats mismatch: depth=%d cap=%d", st.QueueDepth, st.QueueCapacity)
	}
}

func TestSQLiteIndex_NilIsNoop(t *testing.T) {
	var s *SQLiteIndex
	if err := s.WriteTick(sphere.TickLogEntry{}); err != nil {
		t.Fatalf("nil WriteTick: %v", err)
	}
	s.RecordSnapshot("", snapshot.SnapshotV1{})
	if st := s.Stats(); st.QueueCapacity != 0 {
		t.Fatalf("nil stats: %+v", st)
	}
}
