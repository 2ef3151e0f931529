package sphere

import "geosphere.ai/internal/protocol"

// SphereMetrics is a thread-safe read-only view of key runtime signals.
// It is updated from the loop goroutine and read from HTTP handlers/tests.
type SphereMetrics struct {
	Tick uint64 `json:"tick"`

	Nodes     int `json:"nodes"`
	Leaves    int `json:"leaves"`
	MaxLevel  int `json:"max_level"`
	Observers int `json:"observers"`

	StepMS float64 `json:"step_ms"`

	// Last tick.
	Splits     int `json:"splits"`
	Collapses  int `json:"collapses"`
	Forced     int `json:"forced"`
	Iterations int `json:"iterations"`
	Conflicts  int `json:"conflicts"`

	Totals Totals `json:"totals"`

	QueueDepths QueueDepths `json:"queue_depths"`
}

type QueueDepths struct {
	Viewpoint int `json:"viewpoint"`
	Join      int `json:"join"`
	Leave     int `json:"leave"`
	DebugTag  int `json:"debug_tag"`
}

func (s *Sphere) Metrics() SphereMetrics {
	if s == nil {
		return SphereMetrics{}
	}
	v := s.metrics.Load()
	if v == nil {
		return SphereMetrics{}
	}
	m, ok := v.(SphereMetrics)
	if !ok {
		return SphereMetrics{}
	}
	return m
}

// Params describes the sphere to clients. The config is fixed once the loop
// runs, so this is safe to call from any goroutine.
func (s *Sphere) Params() protocol.SphereParams {
	c := s.cfg
	tr := c.Transform
	return protocol.SphereParams{
		SphereID:            c.ID,
		TickRateHz:          c.TickRateHz,
		Radius:              tr.Radius,
		Position:            [3]float64{tr.Position.X, tr.Position.Y, tr.Position.Z},
		RotationAxis:        [3]float64{tr.Axis.X, tr.Axis.Y, tr.Axis.Z},
		RotationAngle:       tr.Angle,
		SubdivideDistance:   c.Detail.SubdivideDistance,
		UnsubdivideDistance: c.Detail.UnsubdivideDistance,
		LevelScale:          c.Detail.LevelScale,
		MaxLevel:            c.Detail.MaxLevel,
		RootCount:           RootCount,
	}
}
