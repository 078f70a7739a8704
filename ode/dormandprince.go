package ode

import "math"

// Dormand-Prince 5(4) coefficients.
var (
	dpC = [7]float64{0, 1.0 / 5, 3.0 / 10, 4.0 / 5, 8.0 / 9, 1, 1}
	dpA = [7][6]float64{
		{},
		{1.0 / 5},
		{3.0 / 40, 9.0 / 40},
		{44.0 / 45, -56.0 / 15, 32.0 / 9},
		{19372.0 / 6561, -25360.0 / 2187, 64448.0 / 6561, -212.0 / 729},
		{9017.0 / 3168, -355.0 / 33, 46732.0 / 5247, 49.0 / 176, -5103.0 / 18656},
		{35.0 / 384, 0, 500.0 / 1113, 125.0 / 192, -2187.0 / 6784, 11.0 / 84},
	}
	// Fifth-order weights equal the last stage row (FSAL).
	dpB = [7]float64{35.0 / 384, 0, 500.0 / 1113, 125.0 / 192, -2187.0 / 6784, 11.0 / 84, 0}
	// Fourth-order weights for the embedded error estimate.
	dpBStar = [7]float64{5179.0 / 57600, 0, 7571.0 / 16695, 393.0 / 640, -92097.0 / 339200, 187.0 / 2100, 1.0 / 40}
)

const (
	dpOrder         = 5
	dpSafety        = 0.9
	dpMinShrink     = 0.2
	dpMaxGrow       = 5.0
	defaultTol      = 1e-9
	defaultMaxSteps = 100000
)

// DormandPrince54 is an adaptive Dormand-Prince 5(4) integrator. It advances
// one accepted step at a time so the caller can scan each step for events
// before committing to the next one. It is not safe for concurrent use: the
// step-size memory and statistics are per-instance state.
type DormandPrince54 struct {
	cfg   Config
	stats Statistics

	// nextStep remembers the controller's suggestion across calls; zero
	// means "not initialised yet". Reset clears it after discontinuities.
	nextStep float64
}

// NewDormandPrince54 constructs an integrator with the given configuration.
func NewDormandPrince54(cfg Config) *DormandPrince54 {
	if cfg.AbsoluteTolerance <= 0 {
		cfg.AbsoluteTolerance = defaultTol
	}
	if cfg.RelativeTolerance <= 0 {
		cfg.RelativeTolerance = defaultTol
	}
	if cfg.MaxStepCount == 0 {
		cfg.MaxStepCount = defaultMaxSteps
	}
	return &DormandPrince54{cfg: cfg}
}

// Stats returns accumulated integrator statistics.
func (dp *DormandPrince54) Stats() Statistics { return dp.stats }

// Reset discards the remembered step size. Call it after the solution has a
// discontinuity (a state or derivative reset) so the controller re-probes
// instead of trusting pre-discontinuity smoothness.
func (dp *DormandPrince54) Reset() { dp.nextStep = 0 }

// Step advances a single accepted step from (t, y) toward tEnd, never
// stepping past it, and returns the dense interpolant over the accepted
// step. Backward integration (tEnd < t) is supported. y is not modified.
func (dp *DormandPrince54) Step(f Func, t float64, y []float64, tEnd float64) (*DenseOutput, error) {
	if t == tEnd {
		return nil, ErrEmptySpan
	}
	dir := 1.0
	if tEnd < t {
		dir = -1.0
	}

	n := len(y)
	k := make([][]float64, 7)
	for i := range k {
		k[i] = make([]float64, n)
	}
	yCur := make([]float64, n)
	copy(yCur, y)
	yTmp := make([]float64, n)
	yNew := make([]float64, n)
	yErr := make([]float64, n)

	h := dp.initialStep(t, tEnd)
	f(t, yCur, k[0])
	dp.stats.EvaluationCount++

	var attempts uint
	for {
		attempts++
		if attempts > dp.cfg.MaxStepCount {
			return nil, ErrTooManySteps
		}

		// Clamp to the target; the final step lands exactly on tEnd.
		last := false
		if dir*(t+h-tEnd) >= 0 {
			h = tEnd - t
			last = true
		}

		// Stages 2..7 (stage 7 evaluates at the step end, FSAL).
		for s := 1; s < 7; s++ {
			for i := 0; i < n; i++ {
				acc := 0.0
				for j := 0; j < s; j++ {
					acc += dpA[s][j] * k[j][i]
				}
				yTmp[i] = yCur[i] + h*acc
			}
			f(t+dpC[s]*h, yTmp, k[s])
			dp.stats.EvaluationCount++
		}

		for i := 0; i < n; i++ {
			acc5, acc4 := 0.0, 0.0
			for s := 0; s < 7; s++ {
				acc5 += dpB[s] * k[s][i]
				acc4 += dpBStar[s] * k[s][i]
			}
			yNew[i] = yCur[i] + h*acc5
			yErr[i] = h * (acc5 - acc4)
		}

		errNorm := dp.errorNorm(yCur, yNew, yErr)
		if errNorm <= 1 {
			// Accepted.
			dp.stats.StepCount++
			dp.stats.LastStepSize = h
			dp.nextStep = dp.scaledStep(h, errNorm)

			f0 := make([]float64, n)
			copy(f0, k[0])
			f1 := make([]float64, n)
			copy(f1, k[6]) // FSAL stage is the derivative at the step end
			y1 := make([]float64, n)
			copy(y1, yNew)
			t1 := t + h
			if last {
				t1 = tEnd // avoid a one-ulp overshoot on the final step
			}
			return &DenseOutput{T0: t, T1: t1, y0: yCur, y1: y1, f0: f0, f1: f1}, nil
		}

		// Rejected: shrink and retry from the same point.
		dp.stats.RejectedCount++
		h = dp.scaledStep(h, errNorm)
		if dp.cfg.MinStepSize > 0 && math.Abs(h) < dp.cfg.MinStepSize {
			return nil, ErrStepTooSmall
		}
	}
}

func (dp *DormandPrince54) initialStep(t, tEnd float64) float64 {
	span := tEnd - t
	h := dp.nextStep
	if h == 0 {
		h = dp.cfg.InitialStepSize
		if tEnd < t {
			h = -h
		}
	}
	if h == 0 || h*span < 0 {
		h = span / 100
	}
	return dp.clampStep(h)
}

func (dp *DormandPrince54) scaledStep(h, errNorm float64) float64 {
	factor := dpMaxGrow
	if errNorm > 0 {
		factor = dpSafety * math.Pow(errNorm, -1.0/dpOrder)
		if factor < dpMinShrink {
			factor = dpMinShrink
		} else if factor > dpMaxGrow {
			factor = dpMaxGrow
		}
	}
	return dp.clampStep(h * factor)
}

func (dp *DormandPrince54) clampStep(h float64) float64 {
	if dp.cfg.MaxStepSize > 0 && math.Abs(h) > dp.cfg.MaxStepSize {
		h = math.Copysign(dp.cfg.MaxStepSize, h)
	}
	if dp.cfg.MinStepSize > 0 && math.Abs(h) < dp.cfg.MinStepSize {
		h = math.Copysign(dp.cfg.MinStepSize, h)
	}
	return h
}

func (dp *DormandPrince54) errorNorm(y0, y1, yErr []float64) float64 {
	sum := 0.0
	for i := range yErr {
		scale := dp.cfg.AbsoluteTolerance +
			dp.cfg.RelativeTolerance*math.Max(math.Abs(y0[i]), math.Abs(y1[i]))
		r := yErr[i] / scale
		sum += r * r
	}
	return math.Sqrt(sum / float64(len(yErr)))
}
