// Package hal abstracts the pin-level hardware the robot runs on.
//
// The rest of the codebase only sees these small interfaces. Production
// wiring uses the periph.io implementations in periph.go; tests and the
// daemon's -sim flag use the in-memory pins in memory.go.
package hal

import "time"

// PWMPin is a pulse-width-modulated output. Duty is a unit-interval
// fraction of the PWM period.
type PWMPin interface {
	SetDuty(duty float64) error
}

// OutPin is a simple digital output.
type OutPin interface {
	Set(high bool) error
}

// InPin is a level-significant digital input.
type InPin interface {
	Read() (bool, error)
}

// EdgePin is a digital input that reports edges. The callback runs on the
// pin's watch goroutine; keep it short.
type EdgePin interface {
	InPin

	// OnEdge registers cb, invoked once per observed edge with the new
	// level (true = rising) and the edge timestamp. Only one callback
	// may be registered per pin.
	OnEdge(cb func(rising bool, at time.Time))

	// Close stops edge delivery and releases the pin.
	Close() error
}
