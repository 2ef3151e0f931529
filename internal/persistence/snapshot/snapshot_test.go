package snapshot

import (
	"path/filepath"
	"testing"
)

func TestWriteReadSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshots", "00000042.snap.zst")
	vp := [3]float64{1, 2, 3}
	in := SnapshotV1{
		Header:              Header{Version: Version, SphereID: "S1", Tick: 42},
		TickRate:            20,
		Radius:              1000,
		RotationAxis:        [3]float64{0, 1, 0},
		SubdivideDistance:   1500,
		UnsubdivideDistance: 1800,
		LevelScale:          0.5,
		MaxLevel:            8,
		Viewpoint:           &vp,
		Roots:               []RootV1{{Index: 0, Nodes: 5, Shape: "AQEABA=="}},
		DebugPaths:          []string{"0/3"},
		Totals:              TotalsV1{Splits: 1},
		Digest:              "abc",
	}
	if err := WriteSnapshot(path, in); err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}

	h, err := ReadHeader(path)
	if err != nil {
		t.Fatalf("ReadHeader: %v", err)
	}
	if h.SphereID != "S1" || h.Tick != 42 {
		t.Fatalf("header: %+v", h)
	}

	out, err := ReadSnapshot(path)
	if err != nil {
		t.Fatalf("ReadSnapshot: %v", err)
	}
	if out.Header != in.Header || out.MaxLevel != 8 || out.Digest != "abc" {
		t.Fatalf("round trip mismatch: %+v", out)
	}
	if out.Viewpoint == nil || *out.Viewpoint != vp {
		t.Fatalf("viewpoint: %v", out.Viewpoint)
	}
	if len(out.Roots) != 1 || out.Roots[0].Shape != "AQEABA==" {
		t.Fatalf("roots: %+v", out.Roots)
	}
}

func TestReadSnapshot_RejectsVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.snap.zst")
	if err := WriteSnapshot(path, SnapshotV1{Header: Header{Version: 99}}); err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}
	if _, err := ReadSnapshot(path); err == nil {
		t.Fatalf("expected version error")
	}
}
