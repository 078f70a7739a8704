package forces

import (
	"errors"
	"fmt"

	"github.com/signalsfoundry/orbital-propagator/events"
	"github.com/signalsfoundry/orbital-propagator/frames"
	"github.com/signalsfoundry/orbital-propagator/model"
)

// G0 is the reference gravity acceleration (m/s^2) relating specific impulse
// to mass flow.
const G0 = 9.80665

// ThrustFrame identifies the frame the thrust direction is expressed in.
type ThrustFrame int

const (
	// FrameTNW aligns axes with (velocity, normal, cross-track).
	FrameTNW ThrustFrame = iota
	// FrameQSW aligns axes with (radial, along-track, cross-track).
	FrameQSW
	// FrameInertial takes the direction as inertial coordinates directly.
	FrameInertial
)

// ErrUnsupportedFrame indicates a thrust frame code outside the supported
// set; surfaced at construction, before any propagation starts.
var ErrUnsupportedFrame = errors.New("forces: unsupported thrust direction frame")

// ConstantThrustManeuver is a finite burn with constant thrust and specific
// impulse. The maneuver object itself owns the firing status; the start and
// stop detectors it exposes are two triggers over that single shared cell,
// so one maneuver instance must not be shared across concurrent runs.
type ConstantThrustManeuver struct {
	start, stop model.Epoch
	duration    float64
	thrust      float64
	flowRate    float64 // negative while firing
	direction   model.Vec3
	frame       ThrustFrame

	firing bool
}

// NewConstantThrustManeuver builds a burn starting at date for the given
// duration in seconds (a negative duration makes date the cutoff instead),
// with thrust in newtons and specific impulse in seconds. direction is
// normalised and interpreted in the given frame.
func NewConstantThrustManeuver(date model.Epoch, duration, thrust, isp float64, direction model.Vec3, frame ThrustFrame) (*ConstantThrustManeuver, error) {
	if frame != FrameTNW && frame != FrameQSW && frame != FrameInertial {
		return nil, fmt.Errorf("%w: %d (supported: TNW, QSW, inertial)", ErrUnsupportedFrame, frame)
	}
	if thrust <= 0 || isp <= 0 {
		return nil, fmt.Errorf("forces: thrust and isp must be positive, got %v N / %v s", thrust, isp)
	}
	if direction.Norm() == 0 {
		return nil, errors.New("forces: thrust direction must be non-zero")
	}

	m := &ConstantThrustManeuver{
		thrust:    thrust,
		flowRate:  -thrust / (G0 * isp),
		direction: direction.Normalized(),
		frame:     frame,
	}
	if duration >= 0 {
		m.start = date
		m.stop = date.Shifted(duration)
		m.duration = duration
	} else {
		m.stop = date
		m.start = date.Shifted(duration)
		m.duration = -duration
	}
	return m, nil
}

// Firing reports whether the engine is currently active.
func (m *ConstantThrustManeuver) Firing() bool { return m.firing }

// FlowRate returns the mass flow while firing (kg/s, negative).
func (m *ConstantThrustManeuver) FlowRate() float64 { return m.flowRate }

// AddContribution adds thrust acceleration and mass flow while firing.
func (m *ConstantThrustManeuver) AddContribution(s model.State, acc *Accumulator) {
	if !m.firing {
		return
	}
	a := m.thrust / s.Mass
	acc.AddAcceleration(m.inertialDirection(s).Scale(a))
	acc.AddMassRate(m.flowRate)
}

// inertialDirection rotates the configured direction into the inertial frame
// using the local orbital frame at s.
func (m *ConstantThrustManeuver) inertialDirection(s model.State) model.Vec3 {
	switch m.frame {
	case FrameInertial:
		return m.direction
	case FrameTNW:
		t := s.Velocity.Normalized()
		w := s.Position.Cross(s.Velocity).Normalized()
		n := w.Cross(t)
		return frames.NewRotationFromColumns(t, n, w).Apply(m.direction)
	default: // FrameQSW
		q := s.Position.Normalized()
		w := s.Position.Cross(s.Velocity).Normalized()
		sAxis := w.Cross(q)
		return frames.NewRotationFromColumns(q, sAxis, w).Apply(m.direction)
	}
}

// Detectors returns the ignition and cutoff triggers.
func (m *ConstantThrustManeuver) Detectors() []events.Detector {
	return []events.Detector{
		&maneuverSwitch{m: m, target: m.start, ignite: true},
		&maneuverSwitch{m: m, target: m.stop, ignite: false},
	}
}

// maneuverSwitch is one of the two triggers flipping the maneuver's firing
// cell. Its indicator is the signed time from the target date to the state,
// so crossings are increasing when propagating forward.
type maneuverSwitch struct {
	m      *ConstantThrustManeuver
	target model.Epoch
	ignite bool
}

func (w *maneuverSwitch) Indicator(s model.State) float64 {
	return w.target.Until(s.Epoch)
}

// MaxCheckInterval is the burn duration: the two switches are exactly that
// far apart, so a coarser cadence could miss the whole burn.
func (w *maneuverSwitch) MaxCheckInterval() float64 { return w.m.duration }

func (w *maneuverSwitch) Threshold() float64 { return 1e-6 }

func (w *maneuverSwitch) MaxIterations() int { return 100 }

// Occurred flips the shared firing status. The derivative provider reads it
// on the next evaluation, hence the reset of cached derivatives.
func (w *maneuverSwitch) Occurred(s model.State, increasing bool) (events.Action, error) {
	w.m.firing = w.ignite
	return events.ResetDerivatives, nil
}
