// Package forces holds the derivative models feeding the propagation
// right-hand side: each ForceModel adds its acceleration and mass-rate
// contribution, and may expose event detectors that switch its behaviour
// (an engine igniting, a shadow entry, ...).
package forces

import (
	"github.com/signalsfoundry/orbital-propagator/events"
	"github.com/signalsfoundry/orbital-propagator/model"
)

// Accumulator collects derivative contributions from all force models for
// one right-hand-side evaluation.
type Accumulator struct {
	Acceleration model.Vec3
	MassRate     float64
}

// AddAcceleration adds an inertial-frame acceleration contribution.
func (a *Accumulator) AddAcceleration(acc model.Vec3) {
	a.Acceleration = a.Acceleration.Add(acc)
}

// AddMassRate adds a mass flow contribution (negative while consuming
// propellant).
func (a *Accumulator) AddMassRate(rate float64) {
	a.MassRate += rate
}

// ForceModel contributes to the global state derivative.
type ForceModel interface {
	// AddContribution adds this model's effect at state s into the
	// accumulator. It must not mutate s.
	AddContribution(s model.State, acc *Accumulator)

	// Detectors returns the event detectors controlling this model, or nil
	// when its contribution never switches.
	Detectors() []events.Detector
}
