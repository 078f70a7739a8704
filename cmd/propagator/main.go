package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/signalsfoundry/orbital-propagator/ephemeris"
	"github.com/signalsfoundry/orbital-propagator/events"
	"github.com/signalsfoundry/orbital-propagator/forces"
	"github.com/signalsfoundry/orbital-propagator/internal/logging"
	"github.com/signalsfoundry/orbital-propagator/internal/observability"
	"github.com/signalsfoundry/orbital-propagator/model"
	"github.com/signalsfoundry/orbital-propagator/ode"
	"github.com/signalsfoundry/orbital-propagator/propagation"
)

// ISS (ZARYA) reference TLE used when no tracking file is given.
const (
	defaultTLE1 = "1 25544U 98067A   21275.59097222  .00000204  00000-0  10270-4 0  9990"
	defaultTLE2 = "2 25544  51.6459 115.9059 0001817  61.3028  35.9198 15.49370953257760"
)

func main() {
	horizon := flag.Duration("horizon", 30*time.Minute, "propagation horizon past the start epoch")
	burnStart := flag.Duration("burn-start", 5*time.Minute, "burn ignition offset from the start epoch")
	burnDuration := flag.Float64("burn-duration", 600, "burn duration in seconds")
	thrust := flag.Float64("thrust", 400, "engine thrust in newtons")
	isp := flag.Float64("isp", 300, "specific impulse in seconds")
	mass := flag.Float64("mass", 2000, "initial spacecraft mass in kilograms")
	logEvery := flag.Duration("log-every", 5*time.Minute, "interval between progress triggers")
	metricsAddr := flag.String("metrics-addr", "", "HTTP address for Prometheus /metrics (empty disables the server)")
	flag.Parse()

	log := logging.NewFromEnv()
	ctx := context.Background()

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfigFromEnv(), log)
	if err != nil {
		log.Error(ctx, "failed to initialise tracing", logging.String("error", err.Error()))
		os.Exit(1)
	}
	defer observability.ShutdownWithTimeout(ctx, shutdownTracing, log)

	collector, err := observability.NewPropagationCollector(nil)
	if err != nil {
		log.Error(ctx, "failed to initialise metrics collector", logging.String("error", err.Error()))
		os.Exit(1)
	}
	metricsSrv := serveMetrics(*metricsAddr, collector, log)

	// Seed the state from tracking data: the series hands back the record
	// closest to the requested instant and extrapolates with SGP4.
	startEpoch := model.NewEpoch(time.Date(2021, 10, 2, 14, 0, 0, 0, time.UTC))
	series, err := ephemeris.NewSeries([]ephemeris.Record{
		{Key: "25544", Epoch: startEpoch.Shifted(-3600), Line1: defaultTLE1, Line2: defaultTLE2},
	})
	if err != nil {
		log.Error(ctx, "failed to build ephemeris series", logging.String("error", err.Error()))
		os.Exit(1)
	}
	pos, vel := series.PVAt(startEpoch)
	initial := model.State{
		Epoch:    startEpoch,
		Position: pos,
		Velocity: vel,
		Mass:     *mass,
	}

	prop := propagation.New(propagation.Config{
		Integrator: ode.Config{
			MaxStepSize:       60,
			AbsoluteTolerance: 1e-6,
			RelativeTolerance: 1e-9,
		},
		Logger:  log,
		Metrics: collector,
	})
	prop.AddForceModel(forces.NewPointMassGravity(0))

	burn, err := forces.NewConstantThrustManeuver(
		startEpoch.Shifted(burnStart.Seconds()),
		*burnDuration, *thrust, *isp,
		model.Vec3{X: 1}, forces.FrameTNW)
	if err != nil {
		log.Error(ctx, "invalid maneuver", logging.String("error", err.Error()))
		os.Exit(1)
	}
	prop.AddForceModel(burn)

	// A progress trigger that re-arms itself until the horizon. The 1e-6 s
	// threshold stays above the float64 ulp of 2021-era epochs.
	var progress *events.DateDetector
	step := logEvery.Seconds()
	progress, err = events.NewDateDetector(step/4, 1e-6, 100,
		func(s model.State, increasing bool) (events.Action, error) {
			fmt.Printf("[%s] r=%.1f km v=%.1f m/s m=%.3f kg firing=%v\n",
				s.Epoch.Time().Format(time.RFC3339),
				s.Position.Norm()/1000, s.Velocity.Norm(), s.Mass, burn.Firing())
			if err := progress.AddEventTime(s.Epoch.Shifted(step)); err != nil {
				return events.Stop, err
			}
			return events.Continue, nil
		},
		startEpoch.Shifted(step))
	if err != nil {
		log.Error(ctx, "invalid progress trigger", logging.String("error", err.Error()))
		os.Exit(1)
	}
	prop.Register(progress)

	target := startEpoch.Shifted(horizon.Seconds())
	final, err := prop.Propagate(ctx, initial, target)
	if err != nil {
		log.Error(ctx, "propagation failed", logging.String("error", err.Error()))
		os.Exit(1)
	}

	collector.SetSelectorCacheStats(series.CacheStats())

	spent := *mass - final.Mass
	fmt.Printf("Propagation complete at %s\n", final.Epoch.Time().Format(time.RFC3339))
	fmt.Printf("  radius   %.3f km\n", final.Position.Norm()/1000)
	fmt.Printf("  speed    %.3f m/s\n", final.Velocity.Norm())
	fmt.Printf("  mass     %.3f kg (%.3f kg of propellant spent)\n", final.Mass, spent)

	if metricsSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsSrv.Shutdown(shutdownCtx)
	}
}

func serveMetrics(addr string, collector *observability.PropagationCollector, log logging.Logger) *http.Server {
	if addr == "" || collector == nil {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())

	srv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn(context.Background(), "metrics server exited", logging.String("error", err.Error()))
		}
	}()

	log.Info(context.Background(), "serving Prometheus metrics", logging.String("addr", addr))
	return srv
}
