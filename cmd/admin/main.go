package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	persistlog "geosphere.ai/internal/persistence/log"
	"geosphere.ai/internal/sim/sphere"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "audit":
			auditCmd(os.Args[2:])
			return
		case "db":
			dbCmd(os.Args[2:])
			return
		case "state":
			stateCmd(os.Args[2:])
			return
		}
	}
	listCmd(os.Args[1:])
}

func listCmd(args []string) {
	fs := flag.NewFlagSet("admin", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	sphereID := fs.String("sphere", "", "sphere id (optional)")
	_ = fs.Parse(args)

	base := filepath.Join(*dataDir, "spheres")
	if *sphereID != "" {
		base = filepath.Join(base, *sphereID)
	}

	entries, err := os.ReadDir(base)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read:", err)
		os.Exit(1)
	}
	for _, e := range entries {
		fmt.Println(e.Name())
	}
}

// auditCmd prints audit log entries for a subtree and tick range.
func auditCmd(args []string) {
	fs := flag.NewFlagSet("audit", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	sphereID := fs.String("sphere", "", "sphere id")
	path := fs.String("path", "", "node path prefix, e.g. 3/0 (optional)")
	action := fs.String("action", "", "SUBDIVIDE, FORCED_SUBDIVIDE, UNSUBDIVIDE or INVARIANT (optional)")
	sinceTick := fs.Uint64("since_tick", 0, "first tick (inclusive)")
	toTick := fs.Uint64("to_tick", 0, "last tick (inclusive, optional)")
	_ = fs.Parse(args)

	if strings.TrimSpace(*sphereID) == "" {
		fmt.Fprintln(os.Stderr, "missing -sphere")
		os.Exit(2)
	}
	f := auditFilter{PathPrefix: strings.TrimSpace(*path), Action: strings.ToUpper(strings.TrimSpace(*action)), Since: *sinceTick, To: *toTick}
	recs, err := readAudit(filepath.Join(*dataDir, "spheres", *sphereID, "audit"), f)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read audit:", err)
		os.Exit(1)
	}
	enc := json.NewEncoder(os.Stdout)
	for _, r := range recs {
		_ = enc.Encode(r)
	}
}

type auditFilter struct {
	PathPrefix string
	Action     string
	Since      uint64
	To         uint64
}

func (f auditFilter) match(e sphere.AuditEntry) bool {
	if e.Tick < f.Since || (f.To != 0 && e.Tick > f.To) {
		return false
	}
	if f.Action != "" && e.Action != f.Action {
		return false
	}
	if f.PathPrefix != "" && e.Path != f.PathPrefix && !strings.HasPrefix(e.Path, f.PathPrefix+"/") {
		return false
	}
	return true
}

func readAudit(dir string, f auditFilter) ([]sphere.AuditEntry, error) {
	files, err := persistlog.ListFiles(dir, "audit")
	if err != nil {
		return nil, err
	}
	var out []sphere.AuditEntry
	for _, p := range files {
		err := persistlog.ScanFile(p, func(line []byte) error {
			var e sphere.AuditEntry
			if err := json.Unmarshal(line, &e); err != nil {
				return err
			}
			if f.To != 0 && e.Tick > f.To {
				return persistlog.ErrStopScan
			}
			if f.match(e) {
				out = append(out, e)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}
