package scanner

import (
	"errors"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/autocar/go-autocar/pkg/hal"
)

// DistanceSensor yields a single instantaneous range sample. No retry,
// no averaging.
type DistanceSensor interface {
	DistanceCm() (float64, error)
}

// ErrEchoTimeout is returned when the echo pulse never arrives.
var ErrEchoTimeout = errors.New("scanner: echo timeout")

// speedOfSoundCmPerSec at room temperature. The echo travels out and
// back, so distance is half the pulse length times this.
const speedOfSoundCmPerSec = 34300.0

// HCSR04 measures distance with an ultrasonic trigger/echo pair. A 10 µs
// trigger pulse starts a ping; the echo pin goes high until the
// reflection returns, and the high-pulse width encodes the distance.
type HCSR04 struct {
	trigger hal.OutPin
	echo    hal.EdgePin
	clk     clock.Clock
	timeout time.Duration

	// pingMu serializes ping cycles. The transducer answers one ping at
	// a time; overlapping cycles would steal each other's echo.
	pingMu sync.Mutex

	mu     sync.Mutex
	riseAt time.Time

	echoes chan time.Duration
}

// NewHCSR04 wires the sensor to its trigger and echo pins.
func NewHCSR04(trigger hal.OutPin, echo hal.EdgePin, clk clock.Clock) *HCSR04 {
	s := &HCSR04{
		trigger: trigger,
		echo:    echo,
		clk:     clk,
		timeout: time.Second,
		echoes:  make(chan time.Duration, 1),
	}
	echo.OnEdge(s.onEcho)
	return s
}

func (s *HCSR04) onEcho(rising bool, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rising {
		s.riseAt = at
		return
	}
	if s.riseAt.IsZero() {
		return
	}
	width := at.Sub(s.riseAt)
	s.riseAt = time.Time{}
	select {
	case s.echoes <- width:
	default:
	}
}

// DistanceCm fires one ping and returns the measured range. The sensor
// covers roughly 2 cm to 4 m; readings outside that are the caller's
// problem, not an error. Safe for concurrent use; concurrent callers
// take turns, one full ping cycle each.
func (s *HCSR04) DistanceCm() (float64, error) {
	s.pingMu.Lock()
	defer s.pingMu.Unlock()

	// Drop any echo left over from an abandoned ping.
	select {
	case <-s.echoes:
	default:
	}

	if err := s.trigger.Set(true); err != nil {
		return 0, err
	}
	time.Sleep(10 * time.Microsecond)
	if err := s.trigger.Set(false); err != nil {
		return 0, err
	}

	timer := s.clk.Timer(s.timeout)
	defer timer.Stop()
	select {
	case width := <-s.echoes:
		return width.Seconds() * speedOfSoundCmPerSec / 2, nil
	case <-timer.C:
		return 0, ErrEchoTimeout
	}
}

// FixedSensor always reports the same distance. Used by the daemon's
// simulation mode.
type FixedSensor struct {
	Cm float64
}

// DistanceCm returns the fixed reading.
func (f FixedSensor) DistanceCm() (float64, error) {
	return f.Cm, nil
}
