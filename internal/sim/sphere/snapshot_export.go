package sphere

import (
	"geosphere.ai/internal/persistence/snapshot"
	"geosphere.ai/internal/sim/encoding"
	"geosphere.ai/internal/sim/graph"
)

// ExportSnapshot must be called from the loop goroutine.
func (s *Sphere) ExportSnapshot(nowTick uint64) snapshot.SnapshotV1 {
	cfg := s.cfg
	t := cfg.Transform
	snap := snapshot.SnapshotV1{
		Header: snapshot.Header{
			Version:  snapshot.Version,
			SphereID: cfg.ID,
			Tick:     nowTick,
		},
		TickRate:            cfg.TickRateHz,
		SnapshotEveryTicks:  cfg.SnapshotEveryTicks,
		Radius:              t.Radius,
		Position:            [3]float64{t.Position.X, t.Position.Y, t.Position.Z},
		RotationAxis:        [3]float64{t.Axis.X, t.Axis.Y, t.Axis.Z},
		RotationAngle:       t.Angle,
		SubdivideDistance:   cfg.Detail.SubdivideDistance,
		UnsubdivideDistance: cfg.Detail.UnsubdivideDistance,
		LevelScale:          cfg.Detail.LevelScale,
		MaxLevel:            cfg.Detail.MaxLevel,
		Totals: snapshot.TotalsV1{
			Splits:     s.totals.Splits,
			Collapses:  s.totals.Collapses,
			Forced:     s.totals.Forced,
			Violations: s.totals.Violations,
		},
		Digest: s.StateDigest(),
	}
	if s.hasViewpoint {
		snap.Viewpoint = &[3]float64{s.viewpoint.X, s.viewpoint.Y, s.viewpoint.Z}
	}

	for i, r := range s.store.Roots() {
		var bits []bool
		s.walk(r, "", func(_ graph.Handle, n graph.Node, _ string) bool {
			bits = append(bits, !n.IsLeaf())
			return true
		})
		snap.Roots = append(snap.Roots, snapshot.RootV1{
			Index: i,
			Nodes: len(bits),
			Shape: encoding.EncodeBits(bits),
		})
	}
	s.Walk(func(_ graph.Handle, n graph.Node, path string) bool {
		if n.Debug {
			snap.DebugPaths = append(snap.DebugPaths, path)
		}
		return true
	})
	return snap
}
