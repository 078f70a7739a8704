package observability

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/signalsfoundry/orbital-propagator/events"
)

// PropagationCollector bundles Prometheus metrics for the propagation engine.
// It satisfies the propagation package's Metrics interface so the event
// resolution loop can drive counters directly.
type PropagationCollector struct {
	gatherer prometheus.Gatherer

	EventsTotal    *prometheus.CounterVec
	RootIterations prometheus.Histogram
	StepsAccepted  prometheus.Counter

	SelectorCacheHits   prometheus.Gauge
	SelectorCacheMisses prometheus.Gauge
}

// NewPropagationCollector registers propagation Prometheus metrics against
// the provided registerer, defaulting to the global Prometheus registry when
// nil.
func NewPropagationCollector(reg prometheus.Registerer) (*PropagationCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	eventsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "propagation_events_total",
		Help: "Total number of dispatched propagation events, labeled by detector, crossing direction, and resulting action.",
	}, []string{"detector", "direction", "action"})
	eventsTotal, err := registerCounterVec(reg, eventsTotal, "propagation_events_total")
	if err != nil {
		return nil, err
	}

	iterations := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "propagation_root_isolation_iterations",
		Help:    "Bisection iterations spent isolating one event time.",
		Buckets: []float64{1, 2, 4, 8, 16, 32, 64, 128},
	})
	iterations, err = registerHistogram(reg, iterations, "propagation_root_isolation_iterations")
	if err != nil {
		return nil, err
	}

	steps, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "propagation_steps_accepted_total",
		Help: "Cumulative number of accepted integration steps.",
	}), "propagation_steps_accepted_total")
	if err != nil {
		return nil, err
	}

	cacheHits, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ephemeris_selector_cache_hits",
		Help: "Adjacency cache hits of the nearest-record selector.",
	}), "ephemeris_selector_cache_hits")
	if err != nil {
		return nil, err
	}
	cacheMisses, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ephemeris_selector_cache_misses",
		Help: "Full sorted-set searches performed by the nearest-record selector.",
	}), "ephemeris_selector_cache_misses")
	if err != nil {
		return nil, err
	}

	return &PropagationCollector{
		gatherer:            gatherer,
		EventsTotal:         eventsTotal,
		RootIterations:      iterations,
		StepsAccepted:       steps,
		SelectorCacheHits:   cacheHits,
		SelectorCacheMisses: cacheMisses,
	}, nil
}

// StepAccepted counts one accepted integration step.
func (c *PropagationCollector) StepAccepted() {
	if c == nil || c.StepsAccepted == nil {
		return
	}
	c.StepsAccepted.Inc()
}

// RootIsolated records the refinement effort for one isolated event time.
func (c *PropagationCollector) RootIsolated(iterations int) {
	if c == nil || c.RootIterations == nil {
		return
	}
	c.RootIterations.Observe(float64(iterations))
}

// EventOccurred counts one dispatched event.
func (c *PropagationCollector) EventOccurred(detector string, increasing bool, action events.Action) {
	if c == nil || c.EventsTotal == nil {
		return
	}
	direction := "decreasing"
	if increasing {
		direction = "increasing"
	}
	c.EventsTotal.WithLabelValues(detector, direction, action.String()).Inc()
}

// SetSelectorCacheStats publishes the record selector's adjacency cache
// counters, typically after a run completes.
func (c *PropagationCollector) SetSelectorCacheStats(hits, misses int) {
	if c == nil {
		return
	}
	if c.SelectorCacheHits != nil {
		c.SelectorCacheHits.Set(float64(hits))
	}
	if c.SelectorCacheMisses != nil {
		c.SelectorCacheMisses.Set(float64(misses))
	}
}

// Handler exposes a ready-to-use /metrics handler.
func (c *PropagationCollector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogram(reg prometheus.Registerer, hist prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(hist); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return hist, nil
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
