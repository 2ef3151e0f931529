package log

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"geosphere.ai/internal/sim/sphere"
)

func TestTickLogger_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	l := NewTickLogger(dir)
	vp := [3]float64{1, 2, 3}
	for i := uint64(0); i < 5; i++ {
		e := sphere.TickLogEntry{Tick: i, Splits: int(i), Digest: "d"}
		if i == 2 {
			e.Viewpoint = &vp
			e.Tags = []sphere.TagChange{{Path: "0/1", On: true}}
		}
		if err := l.WriteTick(e); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	var got []sphere.TickLogEntry
	if err := ReadTicks(filepath.Join(dir, "ticks"), func(e sphere.TickLogEntry) error {
		got = append(got, e)
		return nil
	}); err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 5 {
		t.Fatalf("entries: got %d want 5", len(got))
	}
	if got[2].Viewpoint == nil || *got[2].Viewpoint != vp || len(got[2].Tags) != 1 {
		t.Fatalf("entry 2: %+v", got[2])
	}
}

func TestJSONLZstdWriter_RotatesHourly(t *testing.T) {
	dir := t.TempDir()
	w := NewJSONLZstdWriter(dir, "audit")
	base := time.Date(2026, 3, 1, 10, 59, 0, 0, time.UTC)
	now := base
	w.now = func() time.Time { return now }

	if err := w.Write(sphere.AuditEntry{Tick: 1, Action: sphere.AuditSubdivide, Path: "0"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	now = base.Add(2 * time.Minute)
	if err := w.Write(sphere.AuditEntry{Tick: 2, Action: sphere.AuditUnsubdivide, Path: "0"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	files, err := ListFiles(dir, "audit")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("files: got %v", files)
	}
	if filepath.Base(files[0]) != "audit-2026-03-01-10.jsonl.zst" {
		t.Fatalf("unexpected name %s", files[0])
	}

	lines := 0
	err = ScanFile(files[1], func([]byte) error {
		lines++
		return ErrStopScan
	})
	if err != nil || lines != 1 {
		t.Fatalf("scan: lines=%d err=%v", lines, err)
	}

	boom := errors.New("boom")
	if err := ScanFile(files[0], func([]byte) error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped callback error, got %v", err)
	}
}
