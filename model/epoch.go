package model

import "time"

// J2000 is the reference instant all epochs are measured from.
var J2000 = time.Date(2000, time.January, 1, 12, 0, 0, 0, time.UTC)

// Epoch is an instant expressed as seconds past J2000.
//
// Event convergence thresholds go down to 1e-10 s, below the nanosecond
// resolution of time.Time, so all propagation arithmetic stays in float64
// seconds and only converts to time.Time at the edges. Resolution scales
// with magnitude: one ulp is about 1.2e-7 s for 2021-era epochs, so
// thresholds that fine are only meaningful near J2000; root isolation fails
// rather than fake convergence when a threshold is below the local ulp.
type Epoch float64

// NewEpoch converts a wall-clock instant to an Epoch.
func NewEpoch(t time.Time) Epoch {
	return Epoch(t.Sub(J2000).Seconds())
}

// Time converts the epoch back to a wall-clock instant, rounded to
// nanosecond resolution.
func (e Epoch) Time() time.Time {
	return J2000.Add(time.Duration(float64(e) * float64(time.Second)))
}

// Shifted returns the epoch offset by dt seconds (dt may be negative).
func (e Epoch) Shifted(dt float64) Epoch {
	return e + Epoch(dt)
}

// Until returns the signed duration in seconds from e to other.
func (e Epoch) Until(other Epoch) float64 {
	return float64(other - e)
}
