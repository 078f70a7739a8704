package events

import (
	"errors"
	"testing"

	"github.com/signalsfoundry/orbital-propagator/model"
)

func stateAt(epoch model.Epoch) model.State {
	return model.State{Epoch: epoch, Mass: 1000}
}

func TestDateDetectorConfigValidation(t *testing.T) {
	if _, err := NewDateDetector(0, 1e-9, 10, nil); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("zero maxCheck should be rejected, got %v", err)
	}
	if _, err := NewDateDetector(10, -1, 10, nil); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("negative threshold should be rejected, got %v", err)
	}
	if _, err := NewDateDetector(10, 1e-9, 0, nil); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("zero iteration budget should be rejected, got %v", err)
	}
}

func TestDateDetectorIndicatorSign(t *testing.T) {
	d, err := NewDateDetector(10, 1e-10, 100, nil, model.Epoch(100))
	if err != nil {
		t.Fatalf("NewDateDetector: %v", err)
	}
	if g := d.Indicator(stateAt(40)); g >= 0 {
		t.Fatalf("indicator before target should be negative, got %v", g)
	}
	if g := d.Indicator(stateAt(160)); g <= 0 {
		t.Fatalf("indicator after target should be positive, got %v", g)
	}
	if g := d.Indicator(stateAt(100)); g != 0 {
		t.Fatalf("indicator at target should be zero, got %v", g)
	}
}

func TestDateDetectorMonotonicityForward(t *testing.T) {
	d, err := NewDateDetector(10, 1e-10, 100, nil, model.Epoch(0), model.Epoch(60))
	if err != nil {
		t.Fatalf("NewDateDetector: %v", err)
	}

	// Progressing forward by more than maxCheck is fine.
	if err := d.AddEventTime(model.Epoch(120)); err != nil {
		t.Fatalf("AddEventTime(120): %v", err)
	}
	// A gap smaller than maxCheck must be rejected, not silently reordered.
	if err := d.AddEventTime(model.Epoch(125)); !errors.Is(err, ErrMonotonicityViolation) {
		t.Fatalf("short gap should violate monotonicity, got %v", err)
	}
	// Going backward against the established direction must be rejected too.
	if err := d.AddEventTime(model.Epoch(20)); !errors.Is(err, ErrMonotonicityViolation) {
		t.Fatalf("backward target should violate monotonicity, got %v", err)
	}
}

func TestDateDetectorMonotonicityBackward(t *testing.T) {
	d, err := NewDateDetector(10, 1e-10, 100, nil, model.Epoch(0), model.Epoch(-60))
	if err != nil {
		t.Fatalf("NewDateDetector: %v", err)
	}
	if err := d.AddEventTime(model.Epoch(-120)); err != nil {
		t.Fatalf("AddEventTime(-120): %v", err)
	}
	if err := d.AddEventTime(model.Epoch(-125)); !errors.Is(err, ErrMonotonicityViolation) {
		t.Fatalf("short backward gap should violate monotonicity, got %v", err)
	}
}

func TestDateDetectorHandlerArmIsDeferred(t *testing.T) {
	var d *DateDetector
	var err error
	d, err = NewDateDetector(10, 1e-10, 100, func(s model.State, increasing bool) (Action, error) {
		// Arming from inside the handler must queue, not mutate the schedule.
		if aerr := d.AddEventTime(s.Epoch.Shifted(60)); aerr != nil {
			t.Fatalf("in-handler AddEventTime: %v", aerr)
		}
		if got := len(d.targets); got != 1 {
			t.Fatalf("schedule mutated during handler: %d targets", got)
		}
		return Continue, nil
	}, model.Epoch(0))
	if err != nil {
		t.Fatalf("NewDateDetector: %v", err)
	}

	action, err := d.Occurred(stateAt(0), true)
	if err != nil {
		t.Fatalf("Occurred: %v", err)
	}
	if action != Continue {
		t.Fatalf("action = %v, want continue", action)
	}
	if got := len(d.targets); got != 2 {
		t.Fatalf("queued target not applied after handler: %d targets", got)
	}
	if g := d.Indicator(stateAt(30)); g >= 0 {
		t.Fatalf("indicator should track the newly armed target, got %v", g)
	}
}

func TestDateDetectorDefaultHandlerStops(t *testing.T) {
	d, err := NewDateDetector(10, 1e-10, 100, nil, model.Epoch(0))
	if err != nil {
		t.Fatalf("NewDateDetector: %v", err)
	}
	action, err := d.Occurred(stateAt(0), true)
	if err != nil {
		t.Fatalf("Occurred: %v", err)
	}
	if action != Stop {
		t.Fatalf("default action = %v, want stop", action)
	}
}
