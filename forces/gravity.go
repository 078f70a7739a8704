package forces

import (
	"github.com/signalsfoundry/orbital-propagator/events"
	"github.com/signalsfoundry/orbital-propagator/model"
)

// EarthMu is the Earth gravitational parameter (m^3/s^2) used when no other
// central body is specified.
const EarthMu = 3.986004415e14

// PointMassGravity models the central-body attraction -mu/r^3 * r.
type PointMassGravity struct {
	Mu float64
}

// NewPointMassGravity builds a central attraction model; mu <= 0 falls back
// to EarthMu.
func NewPointMassGravity(mu float64) *PointMassGravity {
	if mu <= 0 {
		mu = EarthMu
	}
	return &PointMassGravity{Mu: mu}
}

// AddContribution adds the central-body acceleration.
func (g *PointMassGravity) AddContribution(s model.State, acc *Accumulator) {
	r := s.Position.Norm()
	acc.AddAcceleration(s.Position.Scale(-g.Mu / (r * r * r)))
}

// Detectors returns nil: gravity never switches.
func (g *PointMassGravity) Detectors() []events.Detector { return nil }
