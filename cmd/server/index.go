package main

import (
	"os"
	"path/filepath"
	"strings"

	"geosphere.ai/internal/persistence/indexdb"
	"geosphere.ai/internal/sim/sphere"
)

func openRuntimeIndex(sphereDir string, disableDB bool) (*indexdb.SQLiteIndex, error) {
	if disableDB {
		return nil, nil
	}
	switch strings.ToLower(strings.TrimSpace(os.Getenv("GS_INDEX_BACKEND"))) {
	case "none", "off", "disabled":
		return nil, nil
	}
	return indexdb.OpenSQLite(filepath.Join(sphereDir, "index", "sphere.sqlite"))
}

type multiTickLogger struct {
	a sphere.TickLogger
	b sphere.TickLogger
}

func (m multiTickLogger) WriteTick(entry sphere.TickLogEntry) error {
	if m.a != nil {
		_ = m.a.WriteTick(entry)
	}
	if m.b != nil {
		_ = m.b.WriteTick(entry)
	}
	return nil
}

type multiAuditLogger struct {
	a sphere.AuditLogger
	b sphere.AuditLogger
}

func (m multiAuditLogger) WriteAudit(entry sphere.AuditEntry) error {
	if m.a != nil {
		_ = m.a.WriteAudit(entry)
	}
	if m.b != nil {
		_ = m.b.WriteAudit(entry)
	}
	return nil
}
