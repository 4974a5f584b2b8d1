package scanner

import (
	"time"

	"github.com/benbjohnson/clock"
)

// Sweep defaults: 5° per step, 30 ms settle per step.
const (
	DefaultStepDeg   = 5
	DefaultStepDelay = 30 * time.Millisecond
)

// Scanner couples the steering servo with the distance sensor. SweepTo is
// blocking and cooperative: it occupies the calling goroutine for the full
// sweep and must not run concurrently with another sweep of the same
// scanner.
type Scanner struct {
	servo  Servo
	sensor DistanceSensor
	clk    clock.Clock

	// StepDeg and StepDelay control sweep granularity; tests shrink them.
	StepDeg   int
	StepDelay time.Duration

	angle int // last commanded angle
}

// New creates a scanner with the default sweep parameters. The scan head
// is assumed centered at startup.
func New(servo Servo, sensor DistanceSensor, clk clock.Clock) *Scanner {
	return &Scanner{
		servo:     servo,
		sensor:    sensor,
		clk:       clk,
		StepDeg:   DefaultStepDeg,
		StepDelay: DefaultStepDelay,
	}
}

// Angle returns the last commanded angle.
func (s *Scanner) Angle() int {
	return s.angle
}

// SetAngle commands the scan head directly, clamped to the travel limits.
func (s *Scanner) SetAngle(deg int) error {
	deg = ClampAngle(deg)
	if err := s.servo.SetAngle(deg); err != nil {
		return err
	}
	s.angle = deg
	return nil
}

// SweepTo walks the scan head from its last commanded angle to target in
// fixed-size steps with a settle delay after each, so the servo tracks
// instead of slewing. Each intermediate angle is clamped.
func (s *Scanner) SweepTo(target int) error {
	target = ClampAngle(target)
	step := s.StepDeg
	if step <= 0 {
		step = DefaultStepDeg
	}
	if target < s.angle {
		step = -step
	}
	for a := s.angle; (step > 0 && a <= target) || (step < 0 && a >= target); a += step {
		if err := s.SetAngle(a); err != nil {
			return err
		}
		s.clk.Sleep(s.StepDelay)
	}
	if s.angle != target {
		if err := s.SetAngle(target); err != nil {
			return err
		}
		s.clk.Sleep(s.StepDelay)
	}
	return nil
}

// DistanceCm returns one instantaneous range sample at the current angle.
func (s *Scanner) DistanceCm() (float64, error) {
	return s.sensor.DistanceCm()
}
