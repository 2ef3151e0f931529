package main

import (
	"math"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"geosphere.ai/internal/protocol"
)

// orbit is a circular path around the sphere center, inclined by tilt
// about the world X axis.
type orbit struct {
	center r3.Vec
	radius float64
	tilt   float64
	period time.Duration
}

func newOrbit(p protocol.SphereParams, altitude, tilt float64, period time.Duration) orbit {
	if altitude <= 0 {
		altitude = 1.2
	}
	if period <= 0 {
		period = time.Minute
	}
	return orbit{
		center: r3.Vec{X: p.Position[0], Y: p.Position[1], Z: p.Position[2]},
		radius: p.Radius * altitude,
		tilt:   tilt,
		period: period,
	}
}

func (o orbit) at(elapsed time.Duration) [3]float64 {
	a := 2 * math.Pi * float64(elapsed%o.period) / float64(o.period)
	flat := r3.Vec{X: o.radius * math.Cos(a), Z: o.radius * math.Sin(a)}
	p := r3.Add(o.center, r3.Rotate(flat, o.tilt, r3.Vec{X: 1}))
	return [3]float64{p.X, p.Y, p.Z}
}
