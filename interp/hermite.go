// Package interp provides bracketed polynomial interpolation over a sampled
// curve with derivative consistency: the derivative of the interpolated
// value channel is the interpolated derivative channel.
package interp

import (
	"errors"
	"fmt"
)

// Sample is one point of the sampled curve: an ordinate, a value vector, and
// the value's derivative with respect to the ordinate.
type Sample struct {
	Ordinate   float64
	Value      []float64
	Derivative []float64
}

// ErrOutOfRange indicates a query outside the covered ordinate span; the
// interpolator refuses to extrapolate silently.
var ErrOutOfRange = errors.New("interp: query outside covered ordinate range")

// BracketedInterpolator locates a query ordinate inside a strictly monotonic
// sampled sequence (increasing or decreasing) and interpolates with a
// Hermite polynomial built on the 4 samples around the bracket.
type BracketedInterpolator struct {
	samples   []Sample
	ascending bool
	dim       int
}

// New validates the sample sequence: at least 4 samples, consistent vector
// dimensions, strictly monotonic ordinates in either direction. The samples
// are immutable once handed over.
func New(samples []Sample) (*BracketedInterpolator, error) {
	if len(samples) < 4 {
		return nil, fmt.Errorf("interp: need at least 4 samples, got %d", len(samples))
	}
	dim := len(samples[0].Value)
	if dim == 0 {
		return nil, errors.New("interp: empty value vector")
	}
	for i, s := range samples {
		if len(s.Value) != dim || len(s.Derivative) != dim {
			return nil, fmt.Errorf("interp: sample %d has inconsistent dimensions", i)
		}
	}
	ascending := samples[1].Ordinate > samples[0].Ordinate
	for i := 1; i < len(samples); i++ {
		d := samples[i].Ordinate - samples[i-1].Ordinate
		if (ascending && d <= 0) || (!ascending && d >= 0) {
			return nil, fmt.Errorf("interp: ordinates not strictly monotonic at index %d", i)
		}
	}
	return &BracketedInterpolator{samples: samples, ascending: ascending, dim: dim}, nil
}

// Span returns the covered ordinate range as (first, last) in sample order.
func (bi *BracketedInterpolator) Span() (float64, float64) {
	return bi.samples[0].Ordinate, bi.samples[len(bi.samples)-1].Ordinate
}

// ValueAt interpolates the value and derivative vectors at ordinate x.
// Queries outside the covered span fail with ErrOutOfRange.
func (bi *BracketedInterpolator) ValueAt(x float64) (value, derivative []float64, err error) {
	first, last := bi.Span()
	lo, hi := first, last
	if !bi.ascending {
		lo, hi = last, first
	}
	if x < lo || x > hi {
		return nil, nil, fmt.Errorf("%w: %v not in [%v, %v]", ErrOutOfRange, x, lo, hi)
	}

	// Bracket the query ordinate; the comparison is direction-aware since
	// the sequence may run either way.
	iInf := 0
	iSup := len(bi.samples) - 1
	for iSup-iInf > 1 {
		mid := (iInf + iSup) / 2
		if bi.ascending != (bi.samples[mid].Ordinate > x) {
			iInf = mid
		} else {
			iSup = mid
		}
	}

	// Shift the window so exactly 4 consecutive samples contribute, sliding
	// inward near either end.
	start := iInf - 1
	if start < 0 {
		start = 0
	}
	if start > len(bi.samples)-4 {
		start = len(bi.samples) - 4
	}

	return bi.hermite(bi.samples[start:start+4], x)
}

// hermite builds the divided-difference table with doubled nodes (value and
// derivative conditions at each sample) and evaluates the Newton form and
// its derivative at x.
func (bi *BracketedInterpolator) hermite(window []Sample, x float64) (value, derivative []float64, err error) {
	const n = 8 // 4 samples, 2 conditions each
	var z [n]float64
	for i, s := range window {
		z[2*i] = s.Ordinate
		z[2*i+1] = s.Ordinate
	}

	value = make([]float64, bi.dim)
	derivative = make([]float64, bi.dim)

	var table [n]float64
	for c := 0; c < bi.dim; c++ {
		// Zeroth column.
		for i, s := range window {
			table[2*i] = s.Value[c]
			table[2*i+1] = s.Value[c]
		}
		// In-place divided differences; repeated nodes take the supplied
		// derivative for the first-order entry.
		coeffs := [n]float64{table[0]}
		for order := 1; order < n; order++ {
			for i := 0; i < n-order; i++ {
				if order == 1 && z[i] == z[i+1] {
					table[i] = window[i/2].Derivative[c]
				} else {
					table[i] = (table[i+1] - table[i]) / (z[i+order] - z[i])
				}
			}
			coeffs[order] = table[0]
		}

		// Evaluate P(x) and P'(x) over the Newton basis.
		val := coeffs[0]
		der := 0.0
		prod := 1.0
		dprod := 0.0
		for k := 1; k < n; k++ {
			dprod = dprod*(x-z[k-1]) + prod
			prod *= x - z[k-1]
			val += coeffs[k] * prod
			der += coeffs[k] * dprod
		}
		value[c] = val
		derivative[c] = der
	}
	return value, derivative, nil
}
