package main

import (
	"fmt"
	"io"

	"geosphere.ai/internal/persistence/indexdb"
	"geosphere.ai/internal/sim/sphere"
)

// writeMetrics renders a minimal Prometheus exposition.
func writeMetrics(w io.Writer, sphereID string, tick uint64, m sphere.SphereMetrics, idx *indexdb.SQLiteIndex) {
	if m.Tick != 0 {
		tick = m.Tick
	}

	fmt.Fprintf(w, "# HELP geosphere_tick Current sphere tick.\n")
	fmt.Fprintf(w, "# TYPE geosphere_tick gauge\n")
	fmt.Fprintf(w, "geosphere_tick{sphere=%q} %d\n", sphereID, tick)

	fmt.Fprintf(w, "# HELP geosphere_nodes Live nodes in the patch tree.\n")
	fmt.Fprintf(w, "# TYPE geosphere_nodes gauge\n")
	fmt.Fprintf(w, "geosphere_nodes{sphere=%q} %d\n", sphereID, m.Nodes)

	fmt.Fprintf(w, "# HELP geosphere_leaves Renderable leaf patches.\n")
	fmt.Fprintf(w, "# TYPE geosphere_leaves gauge\n")
	fmt.Fprintf(w, "geosphere_leaves{sphere=%q} %d\n", sphereID, m.Leaves)

	fmt.Fprintf(w, "# HELP geosphere_max_level Deepest leaf level.\n")
	fmt.Fprintf(w, "# TYPE geosphere_max_level gauge\n")
	fmt.Fprintf(w, "geosphere_max_level{sphere=%q} %d\n", sphereID, m.MaxLevel)

	fmt.Fprintf(w, "# HELP geosphere_observers Connected viewer and debug sessions.\n")
	fmt.Fprintf(w, "# TYPE geosphere_observers gauge\n")
	fmt.Fprintf(w, "geosphere_observers{sphere=%q} %d\n", sphereID, m.Observers)

	fmt.Fprintf(w, "# HELP geosphere_step_ms Last tick step duration in milliseconds.\n")
	fmt.Fprintf(w, "# TYPE geosphere_step_ms gauge\n")
	fmt.Fprintf(w, "geosphere_step_ms{sphere=%q} %.3f\n", sphereID, m.StepMS)

	fmt.Fprintf(w, "# HELP geosphere_tick_ops Structural operations in the last tick.\n")
	fmt.Fprintf(w, "# TYPE geosphere_tick_ops gauge\n")
	fmt.Fprintf(w, "geosphere_tick_ops{sphere=%q,op=%q} %d\n", sphereID, "split", m.Splits)
	fmt.Fprintf(w, "geosphere_tick_ops{sphere=%q,op=%q} %d\n", sphereID, "collapse", m.Collapses)
	fmt.Fprintf(w, "geosphere_tick_ops{sphere=%q,op=%q} %d\n", sphereID, "forced", m.Forced)
	fmt.Fprintf(w, "geosphere_tick_ops{sphere=%q,op=%q} %d\n", sphereID, "iteration", m.Iterations)
	fmt.Fprintf(w, "geosphere_tick_ops{sphere=%q,op=%q} %d\n", sphereID, "conflict", m.Conflicts)

	fmt.Fprintf(w, "# HELP geosphere_ops_total Structural operations since start.\n")
	fmt.Fprintf(w, "# TYPE geosphere_ops_total counter\n")
	fmt.Fprintf(w, "geosphere_ops_total{sphere=%q,op=%q} %d\n", sphereID, "split", m.Totals.Splits)
	fmt.Fprintf(w, "geosphere_ops_total{sphere=%q,op=%q} %d\n", sphereID, "collapse", m.Totals.Collapses)
	fmt.Fprintf(w, "geosphere_ops_total{sphere=%q,op=%q} %d\n", sphereID, "forced", m.Totals.Forced)
	fmt.Fprintf(w, "geosphere_ops_total{sphere=%q,op=%q} %d\n", sphereID, "violation", m.Totals.Violations)

	fmt.Fprintf(w, "# HELP geosphere_queue_depth Channel backlog depth.\n")
	fmt.Fprintf(w, "# TYPE geosphere_queue_depth gauge\n")
	fmt.Fprintf(w, "geosphere_queue_depth{sphere=%q,queue=%q} %d\n", sphereID, "viewpoint", m.QueueDepths.Viewpoint)
	fmt.Fprintf(w, "geosphere_queue_depth{sphere=%q,queue=%q} %d\n", sphereID, "join", m.QueueDepths.Join)
	fmt.Fprintf(w, "geosphere_queue_depth{sphere=%q,queue=%q} %d\n", sphereID, "leave", m.QueueDepths.Leave)
	fmt.Fprintf(w, "geosphere_queue_depth{sphere=%q,queue=%q} %d\n", sphereID, "debug_tag", m.QueueDepths.DebugTag)

	if idx == nil {
		return
	}
	st := idx.Stats()
	fmt.Fprintf(w, "# HELP geosphere_index_queue_depth Index writer backlog.\n")
	fmt.Fprintf(w, "# TYPE geosphere_index_queue_depth gauge\n")
	fmt.Fprintf(w, "geosphere_index_queue_depth %d\n", st.QueueDepth)

	fmt.Fprintf(w, "# HELP geosphere_index_dropped_total Index rows dropped because the writer fell behind.\n")
	fmt.Fprintf(w, "# TYPE geosphere_index_dropped_total counter\n")
	fmt.Fprintf(w, "geosphere_index_dropped_total{kind=%q} %d\n", "tick", st.DropTickTotal)
	fmt.Fprintf(w, "geosphere_index_dropped_total{kind=%q} %d\n", "audit", st.DropAuditTotal)
	fmt.Fprintf(w, "geosphere_index_dropped_total{kind=%q} %d\n", "snapshot", st.DropSnapshotTotal)
}
