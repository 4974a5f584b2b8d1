// Package encoder tracks wheel rotation from a pulse/phase quadrature
// encoder pair.
//
// The pulse pin fires a debounced rising-edge callback; the phase pin is
// sampled at each pulse to decide the direction of rotation. Tick counts
// are informational odometry only, there is no closed-loop use.
package encoder

import (
	"sync"
	"time"

	"github.com/autocar/go-autocar/pkg/hal"
)

// Wheel constants of the reference build.
const (
	PulsesPerRev         = 500
	WheelCircumferenceCm = 20.42
)

// Debounce is the pulse-edge debounce window. It must exceed contact
// bounce but stay below the minimum inter-pulse interval at top speed;
// 5 ms is the compromise for 500 pulses per revolution.
const Debounce = 5 * time.Millisecond

// Tracker accumulates signed ticks for one wheel. The counter lives for
// the process lifetime and is never reset.
type Tracker struct {
	pulse hal.EdgePin
	phase hal.InPin

	mu    sync.Mutex
	ticks int64
	dir   int64
}

// NewTracker attaches to the pulse and phase pins and starts counting.
func NewTracker(pulse hal.EdgePin, phase hal.InPin) *Tracker {
	t := &Tracker{pulse: pulse, phase: phase, dir: 1}
	pulse.OnEdge(t.onPulse)
	return t
}

// onPulse runs in the pin's edge-delivery context, concurrent with any
// reader. The critical section is the single add; nothing else may sit
// under the lock or the callback starves.
func (t *Tracker) onPulse(rising bool, _ time.Time) {
	if !rising {
		return
	}
	high, err := t.phase.Read()
	t.mu.Lock()
	dir := t.dir
	if err == nil {
		dir = 1
		if high {
			dir = -1
		}
	}
	t.ticks += dir
	t.dir = dir
	t.mu.Unlock()
}

// Ticks returns the signed tick count.
func (t *Tracker) Ticks() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ticks
}

// Direction returns the direction of the last pulse, +1 or -1.
func (t *Tracker) Direction() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dir
}

// DistanceCm converts the tick count to linear travel.
func (t *Tracker) DistanceCm() float64 {
	return float64(t.Ticks()) / PulsesPerRev * WheelCircumferenceCm
}
