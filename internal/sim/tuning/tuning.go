package tuning

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	ProtocolVersion string `yaml:"protocol_version"`

	TickRateHz         int  `yaml:"tick_rate_hz"`
	SnapshotEveryTicks int  `yaml:"snapshot_every_ticks"`
	Workers            int  `yaml:"workers"`
	CheckInvariants    bool `yaml:"check_invariants"`

	Sphere     SphereShape `yaml:"sphere"`
	Detail     Detail      `yaml:"detail"`
	RateLimits RateLimits  `yaml:"rate_limits"`
}

// SphereShape is the world transform shared by every root patch.
type SphereShape struct {
	Radius        float64    `yaml:"radius"`
	Position      [3]float64 `yaml:"position"`
	RotationAxis  [3]float64 `yaml:"rotation_axis"`
	RotationAngle float64    `yaml:"rotation_angle"`
}

// Detail holds the subdivision thresholds, in world units.
type Detail struct {
	SubdivideDistance   float64 `yaml:"subdivide_distance"`
	UnsubdivideDistance float64 `yaml:"unsubdivide_distance"`
	LevelScale          float64 `yaml:"level_scale"`
	MaxLevel            int     `yaml:"max_level"`
}

type RateLimits struct {
	ViewpointMaxPerSec int `yaml:"viewpoint_max_per_sec"`
	FrameQueue         int `yaml:"frame_queue"`
}

func Defaults() Tuning {
	return Tuning{
		ProtocolVersion:    "1.0",
		TickRateHz:         20,
		SnapshotEveryTicks: 6000,
		Sphere: SphereShape{
			Radius:       1000,
			RotationAxis: [3]float64{0, 1, 0},
		},
		Detail: Detail{
			SubdivideDistance:   1500,
			UnsubdivideDistance: 1800,
			LevelScale:          0.5,
			MaxLevel:            10,
		},
		RateLimits: RateLimits{
			ViewpointMaxPerSec: 60,
			FrameQueue:         4,
		},
	}
}

// Load reads a tuning file on top of Defaults.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t Tuning) Validate() error {
	var errs []error
	if t.TickRateHz <= 0 {
		errs = append(errs, fmt.Errorf("tick_rate_hz must be > 0"))
	}
	if t.Sphere.Radius <= 0 {
		errs = append(errs, fmt.Errorf("sphere.radius must be > 0"))
	}
	d := t.Detail
	if d.SubdivideDistance <= 0 {
		errs = append(errs, fmt.Errorf("detail.subdivide_distance must be > 0"))
	}
	if d.UnsubdivideDistance <= d.SubdivideDistance {
		errs = append(errs, fmt.Errorf("detail.unsubdivide_distance (%g) must exceed subdivide_distance (%g)", d.UnsubdivideDistance, d.SubdivideDistance))
	}
	if d.LevelScale <= 0 || d.LevelScale > 1 {
		errs = append(errs, fmt.Errorf("detail.level_scale must be in (0,1]"))
	}
	if d.MaxLevel < 0 || d.MaxLevel > 24 {
		errs = append(errs, fmt.Errorf("detail.max_level must be in [0,24]"))
	}
	if t.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers must be >= 0"))
	}
	return errors.Join(errs...)
}
