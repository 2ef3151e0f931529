package snapshot

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

const Version = 1

type Header struct {
	Version  int    `json:"version"`
	SphereID string `json:"sphere_id"`
	Tick     uint64 `json:"tick"`
}

// SnapshotV1 captures the tree shape of a sphere and the parameters needed to
// resume it. Handles are not persisted; the tree is rebuilt from shape bits.
type SnapshotV1 struct {
	Header Header `json:"header"`

	TickRate           int `json:"tick_rate_hz"`
	SnapshotEveryTicks int `json:"snapshot_every_ticks,omitempty"`

	Radius        float64    `json:"radius"`
	Position      [3]float64 `json:"position"`
	RotationAxis  [3]float64 `json:"rotation_axis"`
	RotationAngle float64    `json:"rotation_angle"`

	SubdivideDistance   float64 `json:"subdivide_distance"`
	UnsubdivideDistance float64 `json:"unsubdivide_distance"`
	LevelScale          float64 `json:"level_scale"`
	MaxLevel            int     `json:"max_level"`

	Viewpoint *[3]float64 `json:"viewpoint,omitempty"`

	// Roots holds one entry per root in root order.
	Roots []RootV1 `json:"roots"`
	// DebugPaths lists every node carrying the debug-draw tag.
	DebugPaths []string `json:"debug_paths,omitempty"`

	Totals TotalsV1 `json:"totals"`
	Digest string   `json:"digest"`
}

// RootV1 is the preorder has-children bitmap of one root tree, RLE encoded.
type RootV1 struct {
	Index int    `json:"index"`
	Nodes int    `json:"nodes"`
	Shape string `json:"shape"`
}

type TotalsV1 struct {
	Splits     uint64 `json:"splits"`
	Collapses  uint64 `json:"collapses"`
	Forced     uint64 `json:"forced"`
	Violations uint64 `json:"violations"`
}

func WriteSnapshot(path string, snap SnapshotV1) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}

	bw := bufio.NewWriterSize(enc, 256*1024)

	hb, _ := json.Marshal(snap.Header)
	if _, err := bw.Write(hb); err != nil {
		enc.Close()
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		enc.Close()
		return err
	}
	if err := gob.NewEncoder(bw).Encode(&snap); err != nil {
		enc.Close()
		return fmt.Errorf("gob encode: %w", err)
	}
	if err := bw.Flush(); err != nil {
		enc.Close()
		return err
	}
	return enc.Close()
}

func ReadSnapshot(path string) (SnapshotV1, error) {
	var snap SnapshotV1
	f, err := os.Open(path)
	if err != nil {
		return snap, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return snap, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)

	// The header line is for tools; gob carries it too.
	if _, err := br.ReadBytes('\n'); err != nil {
		return snap, fmt.Errorf("read header: %w", err)
	}
	if err := gob.NewDecoder(br).Decode(&snap); err != nil {
		return snap, fmt.Errorf("gob decode: %w", err)
	}
	if snap.Header.Version != Version {
		return snap, fmt.Errorf("unsupported snapshot version %d", snap.Header.Version)
	}
	return snap, nil
}

// ReadHeader reads only the JSON header line.
func ReadHeader(path string) (Header, error) {
	var h Header
	f, err := os.Open(path)
	if err != nil {
		return h, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return h, err
	}
	defer dec.Close()

	line, err := bufio.NewReader(dec).ReadBytes('\n')
	if err != nil {
		return h, fmt.Errorf("read header: %w", err)
	}
	if err := json.Unmarshal(line, &h); err != nil {
		return h, fmt.Errorf("decode header: %w", err)
	}
	return h, nil
}
