package forces

import (
	"errors"
	"math"
	"testing"

	"github.com/signalsfoundry/orbital-propagator/model"
)

func leoState() model.State {
	return model.State{
		Epoch:    model.Epoch(0),
		Position: model.Vec3{X: 7e6},
		Velocity: model.Vec3{Y: 7500},
		Mass:     2000,
	}
}

func TestManeuverRejectsBadConfig(t *testing.T) {
	dir := model.Vec3{X: 1}

	if _, err := NewConstantThrustManeuver(0, 600, 400, 300, dir, ThrustFrame(9)); !errors.Is(err, ErrUnsupportedFrame) {
		t.Fatalf("unknown frame code should be rejected, got %v", err)
	}
	if _, err := NewConstantThrustManeuver(0, 600, -1, 300, dir, FrameTNW); err == nil {
		t.Fatal("negative thrust accepted")
	}
	if _, err := NewConstantThrustManeuver(0, 600, 400, 0, dir, FrameTNW); err == nil {
		t.Fatal("zero isp accepted")
	}
	if _, err := NewConstantThrustManeuver(0, 600, 400, 300, model.Vec3{}, FrameTNW); err == nil {
		t.Fatal("zero direction accepted")
	}
}

func TestManeuverFlowRate(t *testing.T) {
	m, err := NewConstantThrustManeuver(0, 600, 400, 300, model.Vec3{X: 1}, FrameInertial)
	if err != nil {
		t.Fatalf("NewConstantThrustManeuver: %v", err)
	}
	want := -400.0 / (G0 * 300.0)
	if got := m.FlowRate(); math.Abs(got-want) > 1e-15 {
		t.Fatalf("flow rate = %v kg/s, want %v", got, want)
	}
}

func TestNegativeDurationMakesDateTheCutoff(t *testing.T) {
	m, err := NewConstantThrustManeuver(model.Epoch(700), -600, 400, 300, model.Vec3{X: 1}, FrameTNW)
	if err != nil {
		t.Fatalf("NewConstantThrustManeuver: %v", err)
	}
	ds := m.Detectors()
	if len(ds) != 2 {
		t.Fatalf("expected start and stop detectors, got %d", len(ds))
	}
	// Indicator roots sit at the burn boundaries.
	at := func(d int, epoch float64) float64 {
		s := leoState()
		s.Epoch = model.Epoch(epoch)
		return ds[d].Indicator(s)
	}
	if g := at(0, 100); g != 0 {
		t.Fatalf("ignition indicator at 100 = %v, want 0", g)
	}
	if g := at(1, 700); g != 0 {
		t.Fatalf("cutoff indicator at 700 = %v, want 0", g)
	}
}

func TestContributionOnlyWhileFiring(t *testing.T) {
	m, err := NewConstantThrustManeuver(0, 600, 400, 300, model.Vec3{X: 1}, FrameTNW)
	if err != nil {
		t.Fatalf("NewConstantThrustManeuver: %v", err)
	}

	var acc Accumulator
	m.AddContribution(leoState(), &acc)
	if acc.Acceleration != (model.Vec3{}) || acc.MassRate != 0 {
		t.Fatalf("idle engine contributed %+v", acc)
	}

	// Ignite via the start detector, as the resolution loop would.
	if _, err := m.Detectors()[0].Occurred(leoState(), true); err != nil {
		t.Fatalf("ignition: %v", err)
	}
	if !m.Firing() {
		t.Fatal("start trigger did not ignite the engine")
	}

	acc = Accumulator{}
	m.AddContribution(leoState(), &acc)
	wantA := 400.0 / 2000.0
	if got := acc.Acceleration.Norm(); math.Abs(got-wantA) > 1e-12 {
		t.Fatalf("thrust acceleration = %v m/s^2, want %v", got, wantA)
	}
	if acc.MassRate >= 0 {
		t.Fatalf("firing engine should consume mass, rate = %v", acc.MassRate)
	}

	// Cut off via the stop detector.
	if _, err := m.Detectors()[1].Occurred(leoState(), true); err != nil {
		t.Fatalf("cutoff: %v", err)
	}
	if m.Firing() {
		t.Fatal("stop trigger did not cut the engine off")
	}
}

func TestThrustDirectionFrames(t *testing.T) {
	s := leoState() // position along +x, velocity along +y

	// TNW: first axis is the velocity direction.
	m, err := NewConstantThrustManeuver(0, 600, 400, 300, model.Vec3{X: 1}, FrameTNW)
	if err != nil {
		t.Fatalf("TNW maneuver: %v", err)
	}
	m.Detectors()[0].Occurred(s, true)
	var acc Accumulator
	m.AddContribution(s, &acc)
	along := s.Velocity.Normalized()
	if got := acc.Acceleration.Normalized().Dot(along); math.Abs(got-1) > 1e-12 {
		t.Fatalf("TNW +x thrust should be prograde, cos = %v", got)
	}

	// QSW: first axis is the radial direction.
	m, err = NewConstantThrustManeuver(0, 600, 400, 300, model.Vec3{X: 1}, FrameQSW)
	if err != nil {
		t.Fatalf("QSW maneuver: %v", err)
	}
	m.Detectors()[0].Occurred(s, true)
	acc = Accumulator{}
	m.AddContribution(s, &acc)
	radial := s.Position.Normalized()
	if got := acc.Acceleration.Normalized().Dot(radial); math.Abs(got-1) > 1e-12 {
		t.Fatalf("QSW +x thrust should be radial, cos = %v", got)
	}

	// Inertial: direction passes through unchanged.
	m, err = NewConstantThrustManeuver(0, 600, 400, 300, model.Vec3{Z: 1}, FrameInertial)
	if err != nil {
		t.Fatalf("inertial maneuver: %v", err)
	}
	m.Detectors()[0].Occurred(s, true)
	acc = Accumulator{}
	m.AddContribution(s, &acc)
	if got := acc.Acceleration.Normalized().Dot(model.Vec3{Z: 1}); math.Abs(got-1) > 1e-12 {
		t.Fatalf("inertial thrust direction rotated, cos = %v", got)
	}
}

func TestGravityPointsInward(t *testing.T) {
	g := NewPointMassGravity(0)
	s := leoState()
	var acc Accumulator
	g.AddContribution(s, &acc)

	want := EarthMu / (7e6 * 7e6)
	if got := acc.Acceleration.Norm(); math.Abs(got-want) > 1e-9 {
		t.Fatalf("gravity magnitude = %v, want %v", got, want)
	}
	if acc.Acceleration.X >= 0 {
		t.Fatalf("gravity should point toward the origin, got %+v", acc.Acceleration)
	}
	if g.Detectors() != nil {
		t.Fatal("gravity should expose no detectors")
	}
}
