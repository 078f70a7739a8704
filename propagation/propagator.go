// Package propagation drives numerical orbit propagation in segments,
// scanning registered event detectors over every accepted integration step,
// isolating indicator roots via dense output, and dispatching the resulting
// actions (continue, stop, derivative reset, state reset).
package propagation

import (
	"context"
	"math"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/signalsfoundry/orbital-propagator/events"
	"github.com/signalsfoundry/orbital-propagator/forces"
	"github.com/signalsfoundry/orbital-propagator/internal/logging"
	"github.com/signalsfoundry/orbital-propagator/model"
	"github.com/signalsfoundry/orbital-propagator/ode"
)

const tracerName = "github.com/signalsfoundry/orbital-propagator/propagation"

// Metrics receives engine measurements. The observability package provides
// a Prometheus-backed implementation; a nil Metrics drops them.
type Metrics interface {
	StepAccepted()
	RootIsolated(iterations int)
	EventOccurred(detector string, increasing bool, action events.Action)
}

// Config assembles a NumericalPropagator.
type Config struct {
	Integrator ode.Config
	Logger     logging.Logger // nil falls back to Noop
	Metrics    Metrics        // nil drops measurements
}

// NumericalPropagator integrates the equations of motion assembled from its
// force models while resolving discrete events. A propagator and its
// detectors are single-owner: one run at a time, no concurrent sharing.
type NumericalPropagator struct {
	integ     *ode.DormandPrince54
	log       logging.Logger
	metrics   Metrics
	forceList []forces.ForceModel
	detectors []events.Detector
}

// New constructs a propagator.
func New(cfg Config) *NumericalPropagator {
	log := cfg.Logger
	if log == nil {
		log = logging.Noop()
	}
	return &NumericalPropagator{
		integ:   ode.NewDormandPrince54(cfg.Integrator),
		log:     log,
		metrics: cfg.Metrics,
	}
}

// AddForceModel adds a derivative contributor and registers its detectors.
func (p *NumericalPropagator) AddForceModel(fm forces.ForceModel) {
	p.forceList = append(p.forceList, fm)
	for _, d := range fm.Detectors() {
		p.Register(d)
	}
}

// Register adds an event detector. Registration order is the tie-break for
// simultaneous events, so register before starting a run and not during one.
func (p *NumericalPropagator) Register(d events.Detector) {
	p.detectors = append(p.detectors, d)
}

// rhs assembles the state derivative from all force models.
// y layout: [px py pz vx vy vz m].
func (p *NumericalPropagator) rhs(t float64, y []float64, dy []float64) {
	s := stateFromVector(t, y)
	var acc forces.Accumulator
	for _, fm := range p.forceList {
		fm.AddContribution(s, &acc)
	}
	dy[0], dy[1], dy[2] = s.Velocity.X, s.Velocity.Y, s.Velocity.Z
	dy[3], dy[4], dy[5] = acc.Acceleration.X, acc.Acceleration.Y, acc.Acceleration.Z
	dy[6] = acc.MassRate
}

func stateFromVector(t float64, y []float64) model.State {
	return model.State{
		Epoch:    model.Epoch(t),
		Position: model.Vec3{X: y[0], Y: y[1], Z: y[2]},
		Velocity: model.Vec3{X: y[3], Y: y[4], Z: y[5]},
		Mass:     y[6],
	}
}

func vectorFromState(s model.State) []float64 {
	return []float64{
		s.Position.X, s.Position.Y, s.Position.Z,
		s.Velocity.X, s.Velocity.Y, s.Velocity.Z,
		s.Mass,
	}
}

// Propagate advances initial to the target epoch, resolving events along the
// way. It returns the state at the target, or the state at a stopping event,
// or the failure that aborted the run. Backward propagation (target before
// the initial epoch) is supported. The context is consulted at resolved
// event boundaries only; integration itself is not preemptible mid-step.
func (p *NumericalPropagator) Propagate(ctx context.Context, initial model.State, target model.Epoch) (model.State, error) {
	runID := uuid.NewString()
	log := p.log.With(logging.String("run_id", runID))

	tracer := otel.Tracer(tracerName)
	ctx, span := tracer.Start(ctx, "propagation.run", trace.WithAttributes(
		attribute.String("run_id", runID),
		attribute.Float64("epoch.initial", float64(initial.Epoch)),
		attribute.Float64("epoch.target", float64(target)),
	))
	defer span.End()

	if initial.Epoch == target {
		return initial, nil
	}

	log.Debug(ctx, "propagation started",
		logging.Any("initial_epoch", initial.Epoch),
		logging.Any("target_epoch", target),
		logging.Int("detectors", len(p.detectors)))

	run := &resolutionRun{
		p:      p,
		ctx:    ctx,
		log:    log,
		span:   span,
		lastTe: make(map[events.Detector]float64, len(p.detectors)),
	}
	p.integ.Reset()

	final, err := run.resolve(initial, target)
	if err != nil {
		span.RecordError(err)
		log.Error(ctx, "propagation failed", logging.String("error", err.Error()))
		return model.State{}, err
	}
	log.Debug(ctx, "propagation finished", logging.Any("final_epoch", final.Epoch))
	return final, nil
}

// resolutionRun is the per-run state of the event resolution loop: the
// propagator owns nothing mutable across runs except integrator statistics.
type resolutionRun struct {
	p    *NumericalPropagator
	ctx  context.Context
	log  logging.Logger
	span trace.Span

	// lastTe remembers each detector's last dispatched occurrence so the
	// rescan after a non-STOP action does not re-isolate the same root.
	lastTe map[events.Detector]float64
}

func (r *resolutionRun) resolve(state model.State, target model.Epoch) (model.State, error) {
	t := float64(state.Epoch)
	tEnd := float64(target)
	y := vectorFromState(state)

	for {
		if t == tEnd {
			// A reset landed exactly on the target.
			return stateFromVector(t, y), nil
		}
		dense, err := r.p.integ.Step(r.p.rhs, t, y, tEnd)
		if err != nil {
			return model.State{}, err
		}
		if r.p.metrics != nil {
			r.p.metrics.StepAccepted()
		}
		_, stepEnd := dense.Span()

		cursor := t
	rescan:
		ev, te, err := r.earliestEvent(dense, cursor, stepEnd)
		if err != nil {
			return model.State{}, err
		}
		if ev != nil {
			eventState := stateFromVector(te, dense.At(te))
			action, err := r.dispatch(ev, eventState)
			if err != nil {
				return model.State{}, err
			}
			if err := r.ctx.Err(); err != nil {
				return model.State{}, err
			}

			switch action {
			case events.Stop:
				return eventState, nil

			case events.Continue:
				cursor = te
				goto rescan

			case events.ResetDerivatives:
				// State is untouched, but derivative models changed
				// behaviour at te: discard everything integrated past it
				// and every cached right-hand-side evaluation.
				t = te
				y = vectorFromState(eventState)
				r.p.integ.Reset()
				continue

			case events.ResetState:
				resetter, ok := ev.Detector.(events.StateResetter)
				if !ok {
					return model.State{}, &EventError{Detector: ev.Detector, Epoch: model.Epoch(te), Err: ErrNoResetter}
				}
				newState, err := resetter.ResetState(eventState)
				if err != nil {
					return model.State{}, &EventError{Detector: ev.Detector, Epoch: model.Epoch(te), Err: err}
				}
				// Fresh segment from te; no integration history crosses
				// the discontinuity.
				t = te
				y = vectorFromState(newState)
				r.p.integ.Reset()
				continue
			}
		}

		// No event in the remainder of this step: commit it.
		t = stepEnd
		y = dense.End()
		if t == tEnd {
			return stateFromVector(t, y), nil
		}
	}
}

// dispatch invokes the detector callback with the exact event state.
func (r *resolutionRun) dispatch(ev *events.ScheduledEvent, eventState model.State) (events.Action, error) {
	action, err := ev.Detector.Occurred(eventState, ev.Increasing)
	if err != nil {
		return action, &EventError{Detector: ev.Detector, Epoch: ev.Epoch, Err: err}
	}
	r.lastTe[ev.Detector] = float64(ev.Epoch)

	name := detectorName(ev.Detector)
	if r.p.metrics != nil {
		r.p.metrics.EventOccurred(name, ev.Increasing, action)
	}
	r.span.AddEvent("event", trace.WithAttributes(
		attribute.String("detector", name),
		attribute.Float64("epoch", float64(ev.Epoch)),
		attribute.Bool("increasing", ev.Increasing),
		attribute.String("action", action.String()),
	))
	r.log.Info(r.ctx, "event dispatched",
		logging.String("detector", name),
		logging.Any("epoch", ev.Epoch),
		logging.Any("increasing", ev.Increasing),
		logging.String("action", action.String()))

	return action, nil
}

// earliestEvent scans every detector over (from, to] and returns the event
// with the smallest isolated time. Detectors are visited in registration
// order and only a strictly earlier time displaces the current candidate,
// which makes registration order the tie-break for simultaneous events.
func (r *resolutionRun) earliestEvent(dense *ode.DenseOutput, from, to float64) (*events.ScheduledEvent, float64, error) {
	var best *events.ScheduledEvent
	bestTe := 0.0

	for _, d := range r.p.detectors {
		te, increasing, found, err := r.scanDetector(d, dense, from, to)
		if err != nil {
			return nil, 0, err
		}
		if !found {
			continue
		}
		if best == nil || absLess(from, te, bestTe) {
			best = &events.ScheduledEvent{Epoch: model.Epoch(te), Detector: d, Increasing: increasing}
			bestTe = te
		}
	}
	return best, bestTe, nil
}

// absLess reports whether a is strictly closer to the scan origin than b,
// in either propagation direction.
func absLess(origin, a, b float64) bool {
	return math.Abs(a-origin) < math.Abs(b-origin)
}

// scanDetector samples d's indicator over (from, to] at the detector's
// cadence and isolates the earliest crossing.
func (r *resolutionRun) scanDetector(d events.Detector, dense *ode.DenseOutput, from, to float64) (te float64, increasing, found bool, err error) {
	span := to - from
	if span == 0 {
		return 0, false, false, nil
	}
	cadence := d.MaxCheckInterval()
	if cadence <= 0 {
		cadence = math.Abs(span)
	}
	n := int(math.Ceil(math.Abs(span) / cadence))
	if n < 1 {
		n = 1
	}
	h := span / float64(n)
	threshold := d.Threshold()

	g := func(t float64) float64 {
		return d.Indicator(stateFromVector(t, dense.At(t)))
	}

	ta := from
	ga := g(ta)

	// A root can sit exactly at the window start: when two detectors isolate
	// the same instant, dispatching the first leaves the other's crossing at
	// the rescan cursor, already past its sign change, where no bracket would
	// open. Dispatch it from here unless it is the occurrence just handled.
	if math.Abs(ga) < threshold {
		if last, seen := r.lastTe[d]; !seen || math.Abs(from-last) > threshold {
			return from, g(from+h) > 0, true, nil
		}
	}

	for i := 1; i <= n; i++ {
		tb := from + float64(i)*h
		if i == n {
			tb = to
		}
		gb := g(tb)

		if crossed(ga, gb, threshold) {
			root, iterations, ok := r.isolate(g, ta, tb, ga, threshold, d.MaxIterations())
			if r.p.metrics != nil && ok {
				r.p.metrics.RootIsolated(iterations)
			}
			if !ok {
				return 0, false, false, &EventError{Detector: d, Epoch: model.Epoch(tb), Err: ErrRootIsolationFailed}
			}
			// Skip the root just dispatched for this detector; the rescan
			// after a non-STOP action starts at (or within threshold of)
			// the previous occurrence.
			if last, seen := r.lastTe[d]; !seen || math.Abs(root-last) > threshold {
				return root, ga < 0, true, nil
			}
		}
		ta, ga = tb, gb
	}
	return 0, false, false, nil
}

// crossed reports whether [ga, gb] brackets a root: a sign change, or the
// new sample landing within the convergence threshold of zero.
func crossed(ga, gb, threshold float64) bool {
	if ga < 0 && gb >= 0 {
		return true
	}
	if ga > 0 && gb <= 0 {
		return true
	}
	return math.Abs(gb) < threshold && gb != ga
}

// isolate refines the bracket [ta, tb] by bisection until its width is at
// most the threshold, evaluating the indicator via dense output. It reports
// failure when the iteration budget runs out first, or when the bracket
// collapses to floating-point resolution while still wider than the
// threshold: a tolerance finer than one ulp of the epoch cannot be met, and
// pretending otherwise would quietly relax the convergence contract.
func (r *resolutionRun) isolate(g func(float64) float64, ta, tb, ga, threshold float64, budget int) (root float64, iterations int, ok bool) {
	for math.Abs(tb-ta) > threshold {
		if iterations >= budget {
			return 0, iterations, false
		}
		iterations++
		tm := 0.5 * (ta + tb)
		if tm == ta || tm == tb {
			return 0, iterations, false
		}
		gm := g(tm)
		if (ga < 0) == (gm < 0) {
			ta, ga = tm, gm
		} else {
			tb = tm
		}
	}
	return tb, iterations, true
}

func detectorName(d events.Detector) string {
	type named interface{ Name() string }
	if n, ok := d.(named); ok {
		return n.Name()
	}
	return typeName(d)
}
