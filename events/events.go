// Package events defines the detector contract bridging continuous-time
// propagation with discrete event semantics. A detector exposes a scalar
// indicator ("g") function of the propagated state; the propagation loop
// watches for sign changes, isolates the crossing time, and hands the event
// back to the detector, which decides how the run proceeds.
package events

import (
	"errors"

	"github.com/signalsfoundry/orbital-propagator/model"
)

// Action tells the propagation loop what to do after an event fired.
type Action int

const (
	// Continue resumes propagation; the detector keeps being sampled for
	// further crossings.
	Continue Action = iota
	// Stop terminates the run; the state at the event time is the result.
	Stop
	// ResetDerivatives keeps the state but discards cached right-hand-side
	// evaluations: some flag the derivative models read has changed.
	ResetDerivatives
	// ResetState replaces the state via the detector's StateResetter and
	// restarts integration from the event time.
	ResetState
)

func (a Action) String() string {
	switch a {
	case Continue:
		return "continue"
	case Stop:
		return "stop"
	case ResetDerivatives:
		return "reset-derivatives"
	case ResetState:
		return "reset-state"
	default:
		return "unknown"
	}
}

// Detector is the capability every event source implements.
//
// The indicator is assumed continuous within one macro-step and is sampled
// at a cadence no coarser than MaxCheckInterval; crossings spaced closer
// than that cadence can be missed, which is a documented limitation of
// sampling-based detection, not a bug.
type Detector interface {
	// Indicator evaluates the switching function at the given state.
	Indicator(s model.State) float64

	// MaxCheckInterval is the upper bound, in seconds, on the sampling
	// cadence for this detector.
	MaxCheckInterval() float64

	// Threshold is the absolute convergence tolerance, in seconds, on the
	// isolated occurrence time.
	Threshold() float64

	// MaxIterations bounds the root-isolation refinement loop.
	MaxIterations() int

	// Occurred is invoked with the exact state at the isolated event time.
	// increasing reports the crossing direction (negative to positive).
	// Occurred may flip internal flags or arm future triggers but must not
	// mutate s.
	Occurred(s model.State, increasing bool) (Action, error)
}

// StateResetter is implemented by detectors whose occurrences can return
// ResetState. It is consulted only in that case.
type StateResetter interface {
	ResetState(s model.State) (model.State, error)
}

// ScheduledEvent is an isolated crossing awaiting dispatch. It lives only
// within one resolution pass and is never persisted.
type ScheduledEvent struct {
	Epoch      model.Epoch
	Detector   Detector
	Increasing bool
}

// Domain errors.
var (
	// ErrMonotonicityViolation indicates a detector armed a trigger time
	// that does not progress in the propagation direction, or progresses by
	// less than the detector's max check interval.
	ErrMonotonicityViolation = errors.New("events: trigger time violates schedule monotonicity")

	// ErrInvalidConfig indicates detector parameters that cannot work
	// (non-positive cadence, threshold, or iteration budget).
	ErrInvalidConfig = errors.New("events: invalid detector configuration")
)
