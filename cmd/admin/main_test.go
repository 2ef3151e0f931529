package main

import (
	"database/sql"
	"path/filepath"
	"testing"

	"geosphere.ai/internal/persistence/indexdb"
	persistlog "geosphere.ai/internal/persistence/log"
	"geosphere.ai/internal/sim/sphere"
)

func TestReadAudit_FiltersSubtree(t *testing.T) {
	dir := t.TempDir()
	l := persistlog.NewAuditLogger(dir)
	entries := []sphere.AuditEntry{
		{Tick: 1, Action: sphere.AuditSubdivide, Path: "3", Level: 0},
		{Tick: 2, Action: sphere.AuditSubdivide, Path: "3/0", Level: 1},
		{Tick: 2, Action: sphere.AuditForcedSubdivide, Path: "4", Level: 0},
		{Tick: 3, Action: sphere.AuditSubdivide, Path: "31", Level: 0},
		{Tick: 5, Action: sphere.AuditUnsubdivide, Path: "3/0", Level: 1},
	}
	for _, e := range entries {
		if err := l.WriteAudit(e); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	got, err := readAudit(filepath.Join(dir, "audit"), auditFilter{PathPrefix: "3"})
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("subtree 3: got %d entries want 3: %+v", len(got), got)
	}

	got, err = readAudit(filepath.Join(dir, "audit"), auditFilter{Since: 2, To: 3, Action: sphere.AuditSubdivide})
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 2 || got[0].Path != "3/0" || got[1].Path != "31" {
		t.Fatalf("range filter: %+v", got)
	}
}

func TestDBQueries(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "sphere.sqlite")
	idx, err := indexdb.OpenSQLite(dbPath)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	vp := [3]float64{0, 0, 2}
	_ = idx.WriteTick(sphere.TickLogEntry{Tick: 0, Digest: "a"})
	_ = idx.WriteTick(sphere.TickLogEntry{Tick: 1, Digest: "b", Viewpoint: &vp, Splits: 1})
	_ = idx.WriteAudit(sphere.AuditEntry{Tick: 1, Action: sphere.AuditSubdivide, Path: "0", Level: 0})
	_ = idx.WriteAudit(sphere.AuditEntry{Tick: 1, Action: sphere.AuditSubdivide, Path: "0/2", Level: 1})
	_ = idx.WriteAudit(sphere.AuditEntry{Tick: 1, Action: sphere.AuditSubdivide, Path: "1", Level: 0})
	if err := idx.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("sql open: %v", err)
	}
	defer db.Close()

	ticks, err := queryTicks(db, 10)
	if err != nil {
		t.Fatalf("ticks: %v", err)
	}
	if len(ticks) != 2 {
		t.Fatalf("ticks: %+v", ticks)
	}
	if r := ticks[0].(tickRow); r.Tick != 1 || r.Viewpoint == nil || *r.Viewpoint != vp {
		t.Fatalf("latest tick row: %+v", r)
	}
	if r := ticks[1].(tickRow); r.Viewpoint != nil {
		t.Fatalf("tick 0 should have no viewpoint: %+v", r)
	}

	audits, err := queryAudits(db, "0", 10)
	if err != nil {
		t.Fatalf("audits: %v", err)
	}
	if len(audits) != 2 {
		t.Fatalf("audits under 0: %+v", audits)
	}

	snaps, err := querySnapshots(db, 10)
	if err != nil || len(snaps) != 0 {
		t.Fatalf("snapshots: %v %+v", err, snaps)
	}
}
