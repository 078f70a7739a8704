package ode

import (
	"math"
	"testing"
)

func integrateTo(t *testing.T, dp *DormandPrince54, f Func, t0 float64, y []float64, tEnd float64) []float64 {
	t.Helper()
	cur := t0
	for {
		dense, err := dp.Step(f, cur, y, tEnd)
		if err != nil {
			t.Fatalf("Step(%v -> %v): %v", cur, tEnd, err)
		}
		_, cur = dense.Span()
		y = dense.End()
		if cur == tEnd {
			return y
		}
	}
}

func TestExponentialGrowth(t *testing.T) {
	f := func(_ float64, y []float64, dy []float64) { dy[0] = y[0] }
	dp := NewDormandPrince54(Config{AbsoluteTolerance: 1e-12, RelativeTolerance: 1e-12})

	y := integrateTo(t, dp, f, 0, []float64{1}, 2)
	want := math.Exp(2)
	if math.Abs(y[0]-want) > 1e-8*want {
		t.Fatalf("y(2) = %v, want %v", y[0], want)
	}
	if dp.Stats().StepCount == 0 || dp.Stats().EvaluationCount == 0 {
		t.Fatalf("statistics not accumulated: %+v", dp.Stats())
	}
}

func TestHarmonicOscillatorRoundTrip(t *testing.T) {
	f := func(_ float64, y []float64, dy []float64) {
		dy[0] = y[1]
		dy[1] = -y[0]
	}
	dp := NewDormandPrince54(Config{AbsoluteTolerance: 1e-11, RelativeTolerance: 1e-11})

	y := integrateTo(t, dp, f, 0, []float64{1, 0}, 2*math.Pi)
	if math.Abs(y[0]-1) > 1e-7 || math.Abs(y[1]) > 1e-7 {
		t.Fatalf("one period should return to (1, 0), got (%v, %v)", y[0], y[1])
	}
}

func TestBackwardIntegration(t *testing.T) {
	f := func(_ float64, y []float64, dy []float64) { dy[0] = y[0] }
	dp := NewDormandPrince54(Config{})

	y := integrateTo(t, dp, f, 0, []float64{1}, -1)
	want := math.Exp(-1)
	if math.Abs(y[0]-want) > 1e-7 {
		t.Fatalf("y(-1) = %v, want %v", y[0], want)
	}
}

func TestDenseOutputMatchesSolution(t *testing.T) {
	f := func(tt float64, _ []float64, dy []float64) { dy[0] = math.Cos(tt) }
	dp := NewDormandPrince54(Config{MaxStepSize: 0.5})

	dense, err := dp.Step(f, 0, []float64{0}, 10)
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	from, to := dense.Span()
	for i := 0; i <= 10; i++ {
		tt := from + (to-from)*float64(i)/10
		if !dense.Contains(tt) {
			t.Fatalf("dense output should contain %v in [%v, %v]", tt, from, to)
		}
		got := dense.At(tt)[0]
		if math.Abs(got-math.Sin(tt)) > 1e-6 {
			t.Fatalf("dense(%v) = %v, want %v", tt, got, math.Sin(tt))
		}
	}
}

func TestDenseOutputEndpointsExact(t *testing.T) {
	f := func(_ float64, y []float64, dy []float64) { dy[0] = y[0] }
	dp := NewDormandPrince54(Config{})

	y0 := []float64{2.5}
	dense, err := dp.Step(f, 1, y0, 3)
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	from, to := dense.Span()
	if got := dense.At(from)[0]; got != y0[0] {
		t.Fatalf("dense at step start = %v, want %v", got, y0[0])
	}
	if got, end := dense.At(to)[0], dense.End()[0]; math.Abs(got-end) > 1e-12*math.Abs(end) {
		t.Fatalf("dense at step end = %v, want %v", got, end)
	}
}

func TestEmptySpanRejected(t *testing.T) {
	dp := NewDormandPrince54(Config{})
	if _, err := dp.Step(func(_ float64, _, dy []float64) { dy[0] = 0 }, 1, []float64{0}, 1); err != ErrEmptySpan {
		t.Fatalf("expected ErrEmptySpan, got %v", err)
	}
}
