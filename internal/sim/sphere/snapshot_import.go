package sphere

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"geosphere.ai/internal/persistence/snapshot"
	"geosphere.ai/internal/sim/encoding"
	"geosphere.ai/internal/sim/graph"
)

// ImportSnapshot rebuilds the tree of a fresh sphere from a snapshot: the
// roots are seeded, the recorded splits are replayed and every link is
// re-derived. The rebuilt digest must match the recorded one. On error the
// sphere is left as it was and may be imported into again.
func (s *Sphere) ImportSnapshot(snap snapshot.SnapshotV1) (err error) {
	if snap.Header.Version != snapshot.Version {
		return fmt.Errorf("unsupported snapshot version: %d", snap.Header.Version)
	}
	if s.store.Initialized() {
		return fmt.Errorf("%w: import into a seeded sphere", graph.ErrInvariantViolation)
	}
	if len(snap.Roots) != RootCount {
		return fmt.Errorf("snapshot has %d roots, want %d", len(snap.Roots), RootCount)
	}

	cfg := s.cfg
	if snap.Header.SphereID != "" {
		cfg.ID = snap.Header.SphereID
	}
	if snap.TickRate > 0 {
		cfg.TickRateHz = snap.TickRate
	}
	if snap.SnapshotEveryTicks > 0 {
		cfg.SnapshotEveryTicks = snap.SnapshotEveryTicks
	}
	cfg.Transform = Transform{
		Position: r3.Vec{X: snap.Position[0], Y: snap.Position[1], Z: snap.Position[2]},
		Axis:     r3.Vec{X: snap.RotationAxis[0], Y: snap.RotationAxis[1], Z: snap.RotationAxis[2]},
		Angle:    snap.RotationAngle,
		Radius:   snap.Radius,
	}
	cfg.Detail = Detail{
		SubdivideDistance:   snap.SubdivideDistance,
		UnsubdivideDistance: snap.UnsubdivideDistance,
		LevelScale:          snap.LevelScale,
		MaxLevel:            snap.MaxLevel,
	}
	if err := cfg.normalize(); err != nil {
		return fmt.Errorf("snapshot config: %w", err)
	}

	// Build on a scratch store; restore the old one if anything fails.
	prevCfg, prevStore, prevRoots, prevTags := s.cfg, s.store, s.rootIndex, s.tagsThisTick
	s.cfg, s.store, s.rootIndex = cfg, graph.NewStore(), map[graph.Handle]int{}
	defer func() {
		if err != nil {
			s.cfg, s.store, s.rootIndex, s.tagsThisTick = prevCfg, prevStore, prevRoots, prevTags
		}
	}()

	if err := s.SeedRoots(); err != nil {
		return err
	}
	if err := s.replayShape(snap.Roots); err != nil {
		return err
	}
	for _, path := range snap.DebugPaths {
		if err := s.SetDebugTag(path, true); err != nil {
			return fmt.Errorf("debug tag %q: %w", path, err)
		}
	}
	if snap.Digest != "" {
		if got := s.StateDigest(); got != snap.Digest {
			return fmt.Errorf("%w: snapshot digest mismatch: got %s want %s", graph.ErrInvariantViolation, got, snap.Digest)
		}
	}

	if snap.Viewpoint != nil {
		v := snap.Viewpoint
		s.SetViewpoint(r3.Vec{X: v[0], Y: v[1], Z: v[2]})
	}
	s.totals = Totals{
		Splits:     snap.Totals.Splits,
		Collapses:  snap.Totals.Collapses,
		Forced:     snap.Totals.Forced,
		Violations: snap.Totals.Violations,
	}
	// Restored tags are part of the snapshot, not a change at the next tick.
	s.tagsThisTick = nil
	s.tick.Store(snap.Header.Tick + 1)
	return nil
}

func (s *Sphere) replayShape(roots []snapshot.RootV1) error {
	// A tree of depth MaxLevel over one root has at most (4^(L+1)-1)/3 nodes.
	limit := 1
	for l, n := 0, 1; l < s.cfg.Detail.MaxLevel && limit < 1<<26; l++ {
		n *= 4
		limit += n
	}

	edit, err := s.store.Begin()
	if err != nil {
		return err
	}
	defer edit.Commit()

	rootHandles := s.store.Roots()
	var created []graph.Handle
	for _, r := range roots {
		if r.Index < 0 || r.Index >= len(rootHandles) {
			return fmt.Errorf("snapshot root index %d out of range", r.Index)
		}
		bits, err := encoding.DecodeBits(r.Shape, limit)
		if err != nil {
			return fmt.Errorf("root %d shape: %w", r.Index, err)
		}
		if len(bits) != r.Nodes {
			return fmt.Errorf("root %d shape has %d nodes, header says %d", r.Index, len(bits), r.Nodes)
		}
		pos := 0
		var grow func(h graph.Handle) error
		grow = func(h graph.Handle) error {
			if pos >= len(bits) {
				return fmt.Errorf("root %d shape truncated", r.Index)
			}
			split := bits[pos]
			pos++
			if !split {
				return nil
			}
			if err := s.splitNode(edit, h); err != nil {
				return err
			}
			n, _ := s.store.Get(h)
			for _, k := range n.Children {
				created = append(created, k)
				if err := grow(k); err != nil {
					return err
				}
			}
			return nil
		}
		if err := grow(rootHandles[r.Index]); err != nil {
			return err
		}
		if pos != len(bits) {
			return fmt.Errorf("root %d shape has %d trailing bits", r.Index, len(bits)-pos)
		}
	}

	// Initial child links point at ancestors of their targets, so any order works.
	for _, h := range created {
		if err := s.refineLinks(edit, h); err != nil {
			return err
		}
	}
	return nil
}
