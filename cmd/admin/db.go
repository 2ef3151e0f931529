package main

import (
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

func dbCmd(args []string) {
	fs := flag.NewFlagSet("db", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	sphereID := fs.String("sphere", "", "sphere id (required unless -db)")
	dbPath := fs.String("db", "", "sqlite db path (optional)")
	limit := fs.Int("limit", 20, "result limit")
	nodePath := fs.String("path", "", "node path filter (audits)")
	_ = fs.Parse(args)

	q := "snapshots"
	if fs.NArg() > 0 {
		q = strings.TrimSpace(fs.Arg(0))
	}

	path := strings.TrimSpace(*dbPath)
	if path == "" {
		if strings.TrimSpace(*sphereID) == "" {
			fmt.Fprintln(os.Stderr, "missing -sphere or -db")
			os.Exit(2)
		}
		path = filepath.Join(*dataDir, "spheres", *sphereID, "index", "sphere.sqlite")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	defer db.Close()

	if *limit <= 0 {
		*limit = 20
	}
	var rows []any
	switch q {
	case "snapshots":
		rows, err = querySnapshots(db, *limit)
	case "ticks":
		rows, err = queryTicks(db, *limit)
	case "audits":
		rows, err = queryAudits(db, strings.TrimSpace(*nodePath), *limit)
	case "meta":
		rows, err = queryMeta(db)
	default:
		fmt.Fprintln(os.Stderr, "unknown query:", q, "(want snapshots|ticks|audits|meta)")
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "query:", err)
		os.Exit(1)
	}
	enc := json.NewEncoder(os.Stdout)
	for _, r := range rows {
		_ = enc.Encode(r)
	}
}

type snapshotRow struct {
	Tick     int64  `json:"tick"`
	Path     string `json:"path"`
	SphereID string `json:"sphere_id"`
	Nodes    int    `json:"nodes"`
	MaxLevel int    `json:"max_level"`
	Digest   string `json:"digest"`
}

func querySnapshots(db *sql.DB, limit int) ([]any, error) {
	rows, err := db.Query(`SELECT tick,path,sphere_id,nodes,max_level,digest FROM snapshots ORDER BY tick DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []any
	for rows.Next() {
		var r snapshotRow
		if err := rows.Scan(&r.Tick, &r.Path, &r.SphereID, &r.Nodes, &r.MaxLevel, &r.Digest); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type tickRow struct {
	Tick       int64       `json:"tick"`
	Digest     string      `json:"digest"`
	Splits     int         `json:"splits"`
	Collapses  int         `json:"collapses"`
	Forced     int         `json:"forced"`
	Iterations int         `json:"iterations"`
	Nodes      int         `json:"nodes"`
	Leaves     int         `json:"leaves"`
	Viewpoint  *[3]float64 `json:"viewpoint,omitempty"`
}

func queryTicks(db *sql.DB, limit int) ([]any, error) {
	rows, err := db.Query(`SELECT tick,digest,splits,collapses,forced,iterations,nodes,leaves,vx,vy,vz FROM ticks ORDER BY tick DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []any
	for rows.Next() {
		var r tickRow
		var vx, vy, vz sql.NullFloat64
		if err := rows.Scan(&r.Tick, &r.Digest, &r.Splits, &r.Collapses, &r.Forced, &r.Iterations, &r.Nodes, &r.Leaves, &vx, &vy, &vz); err != nil {
			return nil, err
		}
		if vx.Valid && vy.Valid && vz.Valid {
			r.Viewpoint = &[3]float64{vx.Float64, vy.Float64, vz.Float64}
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type auditRow struct {
	Tick   int64  `json:"tick"`
	Seq    int    `json:"seq"`
	Action string `json:"action"`
	Path   string `json:"path"`
	Level  int    `json:"level"`
	Reason string `json:"reason,omitempty"`
}

func queryAudits(db *sql.DB, nodePath string, limit int) ([]any, error) {
	q := `SELECT tick,seq,action,path,level,COALESCE(reason,'') FROM audits`
	args := []any{}
	if nodePath != "" {
		q += ` WHERE path=? OR path LIKE ?`
		args = append(args, nodePath, nodePath+"/%")
	}
	q += ` ORDER BY tick DESC, seq ASC LIMIT ?`
	args = append(args, limit)

	rows, err := db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []any
	for rows.Next() {
		var r auditRow
		if err := rows.Scan(&r.Tick, &r.Seq, &r.Action, &r.Path, &r.Level, &r.Reason); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func queryMeta(db *sql.DB) ([]any, error) {
	rows, err := db.Query(`SELECT key,value FROM meta ORDER BY key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []any
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out = append(out, map[string]string{"key": k, "value": v})
	}
	return out, rows.Err()
}
