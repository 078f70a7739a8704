// Package ode provides the adaptive-step integration primitive used by the
// propagation engine. The integrator is an embedded Runge-Kutta pair with
// free dense output: once a step is accepted, the solution can be evaluated
// anywhere inside it without re-integrating.
package ode

import "errors"

// Func evaluates the right-hand side of the differential equation,
// writing y'(t) into dy. dy has the same length as y.
type Func func(t float64, y []float64, dy []float64)

// Config controls adaptive step selection.
type Config struct {
	// InitialStepSize, if > 0, is the magnitude of the first attempted step.
	// Otherwise the integrator picks a default from the integration span.
	InitialStepSize float64

	// MinStepSize, if > 0, is the smallest step magnitude the controller may
	// select; falling below it aborts integration.
	MinStepSize float64

	// MaxStepSize, if > 0, caps the step magnitude.
	MaxStepSize float64

	// AbsoluteTolerance and RelativeTolerance bound the local error estimate
	// per component. Zero values fall back to 1e-9 and 1e-9.
	AbsoluteTolerance float64
	RelativeTolerance float64

	// MaxStepCount, if > 0, bounds the number of attempted steps per call to
	// Step before the integrator gives up.
	MaxStepCount uint
}

// Statistics accumulates integrator effort across steps.
type Statistics struct {
	StepCount       uint
	RejectedCount   uint
	EvaluationCount uint
	LastStepSize    float64
}

// Domain errors.
var (
	// ErrStepTooSmall indicates the adaptive controller drove the step size
	// below the configured minimum without meeting the error tolerance.
	ErrStepTooSmall = errors.New("ode: adaptive step size below minimum")

	// ErrTooManySteps indicates MaxStepCount was exhausted within one Step call.
	ErrTooManySteps = errors.New("ode: maximum step count exceeded")

	// ErrEmptySpan indicates integration was requested over a zero-length span.
	ErrEmptySpan = errors.New("ode: integration span is empty")
)

// DenseOutput is the interpolant over one accepted step, valid on the closed
// interval between T0 and T1 (which satisfy T0 < T1 going forward or
// T0 > T1 going backward). Interpolation is cubic Hermite on the solution
// and its derivative at both step ends, the standard free interpolant for
// embedded pairs of this order.
type DenseOutput struct {
	T0, T1 float64
	y0, y1 []float64
	f0, f1 []float64
}

// Span returns the step interval (from, to) in integration order.
func (d *DenseOutput) Span() (float64, float64) { return d.T0, d.T1 }

// Contains reports whether t lies inside the accepted step.
func (d *DenseOutput) Contains(t float64) bool {
	if d.T0 <= d.T1 {
		return t >= d.T0 && t <= d.T1
	}
	return t <= d.T0 && t >= d.T1
}

// At evaluates the interpolated solution at time t inside the step.
// Querying outside the step is not checked here; callers clamp or check
// Contains first.
func (d *DenseOutput) At(t float64) []float64 {
	h := d.T1 - d.T0
	out := make([]float64, len(d.y0))
	if h == 0 {
		copy(out, d.y0)
		return out
	}
	theta := (t - d.T0) / h
	// Hermite basis in theta.
	t2 := theta * theta
	t3 := t2 * theta
	h00 := 2*t3 - 3*t2 + 1
	h10 := t3 - 2*t2 + theta
	h01 := -2*t3 + 3*t2
	h11 := t3 - t2
	for i := range out {
		out[i] = h00*d.y0[i] + h10*h*d.f0[i] + h01*d.y1[i] + h11*h*d.f1[i]
	}
	return out
}

// End returns the solution at the accepted step end without interpolation.
func (d *DenseOutput) End() []float64 {
	out := make([]float64, len(d.y1))
	copy(out, d.y1)
	return out
}
