package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"geosphere.ai/internal/sim/sphere"
)

func TestLatestSnapshot(t *testing.T) {
	dir := t.TempDir()
	if got := latestSnapshot(dir); got != "" {
		t.Fatalf("empty dir: got %q", got)
	}
	snaps := filepath.Join(dir, "snapshots")
	if err := os.MkdirAll(snaps, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	for _, name := range []string{"9.snap.zst", "120.snap.zst", "30.snap.zst", "bad.snap.zst", "500.txt"} {
		if err := os.WriteFile(filepath.Join(snaps, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if got, want := latestSnapshot(dir), filepath.Join(snaps, "120.snap.zst"); got != want {
		t.Fatalf("latest=%q want %q", got, want)
	}
}

func TestWriteMetrics(t *testing.T) {
	var b strings.Builder
	writeMetrics(&b, "s1", 3, sphere.SphereMetrics{
		Tick:   7,
		Nodes:  24,
		Leaves: 23,
		Splits: 1,
		Totals: sphere.Totals{Splits: 4},
	}, nil)
	out := b.String()
	for _, want := range []string{
		`geosphere_tick{sphere="s1"} 7`,
		`geosphere_nodes{sphere="s1"} 24`,
		`geosphere_leaves{sphere="s1"} 23`,
		`geosphere_tick_ops{sphere="s1",op="split"} 1`,
		`geosphere_ops_total{sphere="s1",op="split"} 4`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("metrics missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "geosphere_index_") {
		t.Fatalf("index metrics without an index")
	}
}

func TestIsLoopbackRemote(t *testing.T) {
	if !isLoopbackRemote("127.0.0.1:1234") || isLoopbackRemote("192.168.1.2:80") {
		t.Fatalf("loopback detection")
	}
}

func TestDefaultEnableAdminHTTP(t *testing.T) {
	t.Setenv("DEPLOY_ENV", "production")
	if defaultEnableAdminHTTP() {
		t.Fatalf("admin should default off in production")
	}
	t.Setenv("DEPLOY_ENV", "")
	if !defaultEnableAdminHTTP() {
		t.Fatalf("admin should default on in dev")
	}
}
