package sphere

import (
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"geosphere.ai/internal/sim/graph"
)

// TickReport summarizes one tick.
type TickReport struct {
	Tick       uint64
	Digest     string
	Splits     int
	Collapses  int
	Forced     int
	Iterations int
	Conflicts  int
	Violations int
	Nodes      int
	Leaves     int
	MaxLevel   int
}

// StepOnce sets the viewpoint and advances one tick using the same ordering
// as the loop. It is primarily intended for deterministic replays/tests.
func (s *Sphere) StepOnce(vp r3.Vec) TickReport {
	s.SetViewpoint(vp)
	return s.step()
}

// Step advances one tick with the current viewpoint.
func (s *Sphere) Step() TickReport {
	return s.step()
}

func (s *Sphere) step() TickReport {
	stepStart := time.Now()
	nowTick := s.tick.Load()

	s.auditsThisTick = s.auditsThisTick[:0]

	if !s.store.Initialized() {
		if err := s.SeedRoots(); err != nil {
			s.log.Printf("tick %d: seed roots: %v", nowTick, err)
		}
	}

	// Evaluate, reconcile, mutate, reset. Each pass finishes before the next.
	p := s.collectPass(nowTick)
	s.evaluateDistances(p)
	s.reconcile(p)
	if err := s.applyDecisions(p); err != nil {
		s.log.Printf("tick %d: apply: %v", nowTick, err)
	}
	s.resetFlags(p)

	if s.cfg.CheckInvariants {
		if err := s.CheckInvariants(); err != nil {
			s.violation(p, graph.Nil, err)
		}
	}

	s.store.Each(func(_ graph.Handle, n graph.Node) bool {
		p.nodeCount++
		if n.IsLeaf() {
			p.leafCount++
		}
		if n.Level > p.maxLevel {
			p.maxLevel = n.Level
		}
		return true
	})

	s.totals.Splits += uint64(p.splits)
	s.totals.Collapses += uint64(p.collapses)
	s.totals.Forced += uint64(len(p.forced))

	digest := s.StateDigest()

	if s.auditLogger != nil {
		for _, a := range s.auditsThisTick {
			_ = s.auditLogger.WriteAudit(a)
		}
	}
	if s.tickLogger != nil {
		entry := TickLogEntry{
			Tick:       nowTick,
			Splits:     p.splits,
			Collapses:  p.collapses,
			Forced:     len(p.forced),
			Iterations: p.iterations,
			Nodes:      p.nodeCount,
			Leaves:     p.leafCount,
			Digest:     digest,
			Tags:       s.tagsThisTick,
		}
		if s.hasViewpoint {
			entry.Viewpoint = &[3]float64{s.viewpoint.X, s.viewpoint.Y, s.viewpoint.Z}
		}
		_ = s.tickLogger.WriteTick(entry)
	}

	s.stepObservers(p, digest, s.auditsThisTick)
	s.tagsThisTick = nil

	// Snapshot every N ticks, starting after tick 0.
	if s.snapshotSink != nil && nowTick != 0 && s.cfg.SnapshotEveryTicks > 0 {
		if nowTick%uint64(s.cfg.SnapshotEveryTicks) == 0 {
			snap := s.ExportSnapshot(nowTick)
			select {
			case s.snapshotSink <- snap:
			default:
				// Drop snapshot if sink is backed up.
			}
		}
	}

	stepMS := float64(time.Since(stepStart).Microseconds()) / 1000.0
	nextTick := s.tick.Add(1)

	s.metrics.Store(SphereMetrics{
		Tick:       nextTick,
		Nodes:      p.nodeCount,
		Leaves:     p.leafCount,
		MaxLevel:   p.maxLevel,
		Observers:  len(s.observers),
		StepMS:     stepMS,
		Splits:     p.splits,
		Collapses:  p.collapses,
		Forced:     len(p.forced),
		Iterations: p.iterations,
		Conflicts:  p.conflicts,
		Totals:     s.totals,
		QueueDepths: QueueDepths{
			Viewpoint: len(s.viewIn),
			Join:      len(s.observerJoin),
			Leave:     len(s.observerLeave),
			DebugTag:  len(s.debugTag),
		},
	})

	return TickReport{
		Tick:       nowTick,
		Digest:     digest,
		Splits:     p.splits,
		Collapses:  p.collapses,
		Forced:     len(p.forced),
		Iterations: p.iterations,
		Conflicts:  p.conflicts,
		Violations: p.violations,
		Nodes:      p.nodeCount,
		Leaves:     p.leafCount,
		MaxLevel:   p.maxLevel,
	}
}
