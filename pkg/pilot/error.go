package pilot

import "fmt"

// Kind classifies what failed during a tick.
type Kind int

// Tick failure kinds.
const (
	KindScan Kind = iota // positioning the scan head
	KindSensor           // reading the range sensor
	KindDrive            // commanding the motors
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindScan:
		return "scan"
	case KindSensor:
		return "sensor"
	default:
		return "drive"
	}
}

// TickError is a transient per-tick failure. It is logged and discarded
// by the loop, never propagated out of it.
type TickError struct {
	Kind Kind
	Err  error
}

// Error implements error.
func (e *TickError) Error() string {
	return fmt.Sprintf("pilot: %s failure: %v", e.Kind, e.Err)
}

// Unwrap exposes the underlying failure.
func (e *TickError) Unwrap() error {
	return e.Err
}
