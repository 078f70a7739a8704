package propagation

import (
	"errors"
	"fmt"

	"github.com/signalsfoundry/orbital-propagator/events"
	"github.com/signalsfoundry/orbital-propagator/model"
)

// Domain errors.
var (
	// ErrRootIsolationFailed indicates a bracket was found but refinement
	// did not reach the detector's threshold within its iteration budget.
	// The run is aborted; there are no automatic retries.
	ErrRootIsolationFailed = errors.New("propagation: root isolation did not converge within iteration budget")

	// ErrNoResetter indicates a detector returned ResetState without
	// implementing events.StateResetter.
	ErrNoResetter = errors.New("propagation: detector requested state reset but implements no resetter")
)

// EventError wraps a failure attributable to one detector, identifying the
// detector and the epoch being processed when it failed.
type EventError struct {
	Detector events.Detector
	Epoch    model.Epoch
	Err      error
}

func (e *EventError) Error() string {
	return fmt.Sprintf("detector %T at epoch %v: %v", e.Detector, e.Epoch, e.Err)
}

func (e *EventError) Unwrap() error { return e.Err }

func typeName(v any) string { return fmt.Sprintf("%T", v) }
