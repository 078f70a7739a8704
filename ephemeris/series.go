// Package ephemeris selects the best reference record to extrapolate from
// when state must be rebuilt from tracking data. A Series holds time-stamped
// TLE records sorted by epoch; queries pick the closest record, an adjacency
// cache avoids re-searching for time-coherent query sequences, and the SGP4
// propagator derived from the selected record is memoized by record identity.
package ephemeris

import (
	"errors"
	"fmt"
	"math"
	"sort"

	satellite "github.com/joshuaferrara/go-satellite"

	"github.com/signalsfoundry/orbital-propagator/frames"
	"github.com/signalsfoundry/orbital-propagator/interp"
	"github.com/signalsfoundry/orbital-propagator/model"
)

// Record is one tracking entry: an identity key (catalog number plus
// international designator), the record epoch, and the raw TLE payload.
// Records are immutable once inserted. Uniqueness is on (Key, Epoch), not
// epoch alone: distinct objects can share an instant.
type Record struct {
	Key          string
	Epoch        model.Epoch
	Line1, Line2 string
}

// ErrDuplicateRecord indicates two records with the same (key, epoch).
var ErrDuplicateRecord = errors.New("ephemeris: duplicate (key, epoch) record")

// Series is a sorted set of records with a single-owner adjacency cache.
// It is not safe for concurrent use.
type Series struct {
	records []Record

	// Adjacency cache: indices of the records bracketing the last query,
	// -1 while invalid. The cache is the only mutable per-run state.
	prev, next int

	// Memoized propagator for the last selected record.
	lastRec  Record
	lastOK   bool
	lastProp satellite.Satellite

	hits, misses int
}

// NewSeries sorts the records by epoch (identity key breaks exact-epoch
// ties) and rejects duplicates on (key, epoch).
func NewSeries(records []Record) (*Series, error) {
	if len(records) == 0 {
		return nil, errors.New("ephemeris: empty record set")
	}
	sorted := make([]Record, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Epoch != sorted[j].Epoch {
			return sorted[i].Epoch < sorted[j].Epoch
		}
		return sorted[i].Key < sorted[j].Key
	})
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Key == sorted[i-1].Key && sorted[i].Epoch == sorted[i-1].Epoch {
			return nil, fmt.Errorf("%w: key=%s epoch=%v", ErrDuplicateRecord, sorted[i].Key, sorted[i].Epoch)
		}
	}
	return &Series{records: sorted, prev: -1, next: -1}, nil
}

// Span returns the earliest and latest record epochs.
func (s *Series) Span() (model.Epoch, model.Epoch) {
	return s.records[0].Epoch, s.records[len(s.records)-1].Epoch
}

// Closest returns the record best suited to extrapolate to the query epoch.
// Queries before the earliest record clamp to it, queries after the latest
// clamp to it; in between, the nearer of the bracketing records wins and an
// exact tie goes to the later record. The tie rule is load-bearing for
// boundary determinism and is pinned by tests; do not flip it.
func (s *Series) Closest(query model.Epoch) Record {
	if s.prev >= 0 && s.next >= 0 &&
		s.records[s.prev].Epoch <= query && query <= s.records[s.next].Epoch {
		s.hits++
		return s.pick(query)
	}

	// Cache miss: recompute the bracket with a binary search.
	s.prev, s.next = -1, -1
	s.misses++

	idx := sort.Search(len(s.records), func(i int) bool {
		return s.records[i].Epoch >= query
	})
	switch {
	case idx == len(s.records):
		// Past the latest record.
		return s.records[len(s.records)-1]
	case idx == 0 && s.records[0].Epoch > query:
		// Before the earliest record.
		return s.records[0]
	case s.records[idx].Epoch == query:
		s.prev, s.next = idx, idx
	default:
		s.prev, s.next = idx-1, idx
	}
	return s.pick(query)
}

func (s *Series) pick(query model.Epoch) Record {
	prev := s.records[s.prev]
	next := s.records[s.next]
	if query.Until(next.Epoch) > prev.Epoch.Until(query) {
		return prev
	}
	return next
}

// CacheStats reports adjacency cache hits and misses (full searches).
func (s *Series) CacheStats() (hits, misses int) {
	return s.hits, s.misses
}

// propagatorFor returns the memoized SGP4 propagator, rebuilding it only
// when the selected record changes.
func (s *Series) propagatorFor(rec Record) satellite.Satellite {
	if !s.lastOK || rec != s.lastRec {
		s.lastRec = rec
		s.lastProp = satellite.TLEToSat(rec.Line1, rec.Line2, satellite.GravityWGS72)
		s.lastOK = true
	}
	return s.lastProp
}

// PVAt extrapolates inertial (TEME) position and velocity to the query
// epoch, in metres and metres per second, from the closest record.
func (s *Series) PVAt(query model.Epoch) (pos, vel model.Vec3) {
	sat := s.propagatorFor(s.Closest(query))

	t := query.Time()
	year, month, day := t.Date()
	hour, min, sec := t.Clock()
	p, v := satellite.Propagate(sat, year, int(month), day, hour, min, sec)

	const kmToM = 1000.0
	pos = model.Vec3{X: p.X * kmToM, Y: p.Y * kmToM, Z: p.Z * kmToM}
	vel = model.Vec3{X: v.X * kmToM, Y: v.Y * kmToM, Z: v.Z * kmToM}
	return pos, vel
}

// Interpolator samples position and velocity at n evenly spaced epochs over
// [from, to] and returns a bracketed interpolant over them; velocity is the
// derivative of position, so the interpolant stays derivative-consistent.
// Useful when many intermediate evaluations are needed and per-query SGP4
// extrapolation would be wasteful. n must be at least 4.
func (s *Series) Interpolator(from, to model.Epoch, n int) (*interp.BracketedInterpolator, error) {
	if n < 4 {
		return nil, fmt.Errorf("ephemeris: need at least 4 interpolation samples, got %d", n)
	}
	if from == to {
		return nil, errors.New("ephemeris: empty interpolation span")
	}
	step := from.Until(to) / float64(n-1)
	samples := make([]interp.Sample, n)
	for i := range samples {
		epoch := from.Shifted(float64(i) * step)
		pos, vel := s.PVAt(epoch)
		samples[i] = interp.Sample{
			Ordinate:   float64(epoch),
			Value:      []float64{pos.X, pos.Y, pos.Z},
			Derivative: []float64{vel.X, vel.Y, vel.Z},
		}
	}
	return interp.New(samples)
}

// InertialToEarthFixed returns the transform rotating inertial coordinates
// into the Earth-fixed frame at the given epoch: a rotation about the pole by
// Greenwich mean sidereal time, with no origin shift.
func InertialToEarthFixed(epoch model.Epoch) frames.Transform {
	t := epoch.Time()
	year, month, day := t.Date()
	hour, min, sec := t.Clock()
	gmst := satellite.ThetaG_JD(satellite.JDay(year, int(month), day, hour, min, sec))
	c, sn := math.Cos(gmst), math.Sin(gmst)
	return frames.NewTransform(model.Vec3{}, frames.NewRotationFromColumns(
		model.Vec3{X: c, Y: -sn},
		model.Vec3{X: sn, Y: c},
		model.Vec3{Z: 1},
	))
}

// ECEFAt extrapolates to the query epoch and rotates the position into the
// Earth-fixed frame.
func (s *Series) ECEFAt(query model.Epoch) model.Vec3 {
	pos, _ := s.PVAt(query)
	return InertialToEarthFixed(query).TransformPosition(pos)
}
