package events

import (
	"fmt"

	"github.com/signalsfoundry/orbital-propagator/model"
)

// DateHandler reacts to a date trigger firing. A nil handler stops the run
// at the trigger time.
type DateHandler func(s model.State, increasing bool) (Action, error)

// DateDetector triggers at fixed calendar instants. Its indicator is the
// signed time difference between the current state and the pending target,
// so the crossing is increasing when propagating forward and decreasing
// when propagating backward.
//
// Handlers may arm further targets with AddEventTime; requests issued while
// the handler runs are queued and applied strictly after it returns, so the
// pending-target list is never mutated under the scanning loop. Each new
// target must progress in the direction established by the existing schedule
// by more than the max check interval, otherwise arming fails with
// ErrMonotonicityViolation: a closer target could fall inside the sampling
// cadence and be silently missed.
type DateDetector struct {
	maxCheck  float64
	threshold float64
	maxIter   int
	handler   DateHandler

	targets []model.Epoch
	current int     // index of the pending target
	dir     float64 // +1 or -1 once the schedule has two entries

	inHandler bool
	queued    []model.Epoch
}

// NewDateDetector builds a date detector with the given sampling cadence and
// convergence threshold (seconds) and optional initial target times.
func NewDateDetector(maxCheck, threshold float64, maxIter int, handler DateHandler, targets ...model.Epoch) (*DateDetector, error) {
	if maxCheck <= 0 || threshold <= 0 || maxIter <= 0 {
		return nil, fmt.Errorf("%w: maxCheck=%v threshold=%v maxIter=%d", ErrInvalidConfig, maxCheck, threshold, maxIter)
	}
	d := &DateDetector{
		maxCheck:  maxCheck,
		threshold: threshold,
		maxIter:   maxIter,
		handler:   handler,
	}
	for _, t := range targets {
		if err := d.arm(t); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// AddEventTime arms an additional trigger time. Called from inside the
// occurrence handler it is deferred until the handler returns.
func (d *DateDetector) AddEventTime(t model.Epoch) error {
	if d.inHandler {
		d.queued = append(d.queued, t)
		return nil
	}
	return d.arm(t)
}

// Indicator returns the signed time from the pending target to the state.
// With no pending target it keeps the sign of the last crossing so no
// further bracket opens.
func (d *DateDetector) Indicator(s model.State) float64 {
	if len(d.targets) == 0 {
		return 1
	}
	i := d.current
	if i >= len(d.targets) {
		i = len(d.targets) - 1
	}
	return d.targets[i].Until(s.Epoch)
}

func (d *DateDetector) MaxCheckInterval() float64 { return d.maxCheck }
func (d *DateDetector) Threshold() float64        { return d.threshold }
func (d *DateDetector) MaxIterations() int        { return d.maxIter }

// Occurred advances to the next pending target and drains any targets the
// handler queued.
func (d *DateDetector) Occurred(s model.State, increasing bool) (Action, error) {
	action := Stop
	if d.handler != nil {
		d.inHandler = true
		var err error
		action, err = d.handler(s, increasing)
		d.inHandler = false
		if err != nil {
			return action, err
		}
	}

	d.current++

	// Queued arm requests are validated only now, after the handler has
	// returned.
	queued := d.queued
	d.queued = nil
	for _, t := range queued {
		if err := d.arm(t); err != nil {
			return action, err
		}
	}
	return action, nil
}

func (d *DateDetector) arm(t model.Epoch) error {
	if len(d.targets) == 0 {
		d.targets = append(d.targets, t)
		return nil
	}
	last := d.targets[len(d.targets)-1]
	gap := last.Until(t)
	dir := d.dir
	if dir == 0 {
		if gap > 0 {
			dir = 1
		} else {
			dir = -1
		}
	}
	if gap*dir <= d.maxCheck {
		return fmt.Errorf("%w: target %v is %.6g s from previous target %v, need more than %g s in the schedule direction",
			ErrMonotonicityViolation, t, gap, last, d.maxCheck)
	}
	d.dir = dir
	d.targets = append(d.targets, t)
	return nil
}
