package sphere

import (
	"fmt"
	"math"
	"runtime"

	"gonum.org/v1/gonum/spatial/r3"

	"geosphere.ai/internal/sim/tuning"
)

type SphereConfig struct {
	ID                 string
	TickRateHz         int
	Transform          Transform
	Detail             Detail
	Workers            int
	SnapshotEveryTicks int
	CheckInvariants    bool
}

// Detail holds the distance thresholds at level 0 and how they shrink per level.
type Detail struct {
	SubdivideDistance   float64
	UnsubdivideDistance float64
	LevelScale          float64
	MaxLevel            int
}

// Thresholds returns (Dsub, Dunsub) for a level.
func (d Detail) Thresholds(level int) (sub, unsub float64) {
	k := 1.0
	if d.LevelScale != 1 {
		k = math.Pow(d.LevelScale, float64(level))
	}
	return d.SubdivideDistance * k, d.UnsubdivideDistance * k
}

func ConfigFromTuning(id string, t tuning.Tuning) SphereConfig {
	sh := t.Sphere
	return SphereConfig{
		ID:         id,
		TickRateHz: t.TickRateHz,
		Transform: Transform{
			Position: r3.Vec{X: sh.Position[0], Y: sh.Position[1], Z: sh.Position[2]},
			Axis:     r3.Vec{X: sh.RotationAxis[0], Y: sh.RotationAxis[1], Z: sh.RotationAxis[2]},
			Angle:    sh.RotationAngle,
			Radius:   sh.Radius,
		},
		Detail: Detail{
			SubdivideDistance:   t.Detail.SubdivideDistance,
			UnsubdivideDistance: t.Detail.UnsubdivideDistance,
			LevelScale:          t.Detail.LevelScale,
			MaxLevel:            t.Detail.MaxLevel,
		},
		Workers:            t.Workers,
		SnapshotEveryTicks: t.SnapshotEveryTicks,
		CheckInvariants:    t.CheckInvariants,
	}
}

func (c *SphereConfig) normalize() error {
	if c.TickRateHz <= 0 {
		c.TickRateHz = 20
	}
	if c.Workers <= 0 {
		c.Workers = runtime.GOMAXPROCS(0)
	}
	if c.Transform.Radius <= 0 {
		c.Transform.Radius = 1
	}
	if c.Detail.LevelScale == 0 {
		c.Detail.LevelScale = 1
	}
	if c.Detail.SubdivideDistance <= 0 || c.Detail.UnsubdivideDistance <= c.Detail.SubdivideDistance {
		return fmt.Errorf("thresholds must satisfy 0 < Dsub (%g) < Dunsub (%g)", c.Detail.SubdivideDistance, c.Detail.UnsubdivideDistance)
	}
	if c.Transform.Angle != 0 && r3.Norm(c.Transform.Axis) == 0 {
		return fmt.Errorf("rotation axis must be non-zero when angle is set")
	}
	return nil
}

// Transform places the unit sphere in the world. Every root shares it.
type Transform struct {
	Position r3.Vec
	Axis     r3.Vec
	Angle    float64
	Radius   float64
}

// WorldPoint maps a unit direction to world space.
func (t Transform) WorldPoint(dir r3.Vec) r3.Vec {
	p := r3.Scale(t.Radius, dir)
	if t.Angle != 0 {
		p = r3.Rotate(p, t.Angle, t.Axis)
	}
	return r3.Add(t.Position, p)
}
