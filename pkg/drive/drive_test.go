package drive

import (
	"math"
	"testing"

	"github.com/autocar/go-autocar/pkg/motor"
)

const floatTolerance = 1e-9

// recordingMotors captures the last speed commanded per channel.
type recordingMotors struct {
	speeds map[motor.ChannelID]float64
}

func newRecordingMotors() *recordingMotors {
	return &recordingMotors{speeds: make(map[motor.ChannelID]float64)}
}

func (r *recordingMotors) SetChannelSpeed(ch motor.ChannelID, speed float64) error {
	r.speeds[ch] = speed
	return nil
}

func (r *recordingMotors) pair() (left, right float64) {
	return r.speeds[motor.Left], r.speeds[motor.Right]
}

func TestDirectionalPairs(t *testing.T) {
	cases := []struct {
		name        string
		call        func(*Drive) error
		left, right float64
	}{
		{"forward", func(d *Drive) error { return d.Forward(0.5) }, 0.5, 0.5},
		{"backward", func(d *Drive) error { return d.Backward(0.5) }, -0.5, -0.5},
		{"left", func(d *Drive) error { return d.Left(0.5) }, -0.5, 0.5},
		{"right", func(d *Drive) error { return d.Right(0.5) }, 0.5, -0.5},
		{"stop", func(d *Drive) error { return d.Stop() }, 0, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			motors := newRecordingMotors()
			d := New(motors)
			if err := tc.call(d); err != nil {
				t.Fatalf("%s: %v", tc.name, err)
			}
			l, r := motors.pair()
			if math.Abs(l-tc.left) > floatTolerance || math.Abs(r-tc.right) > floatTolerance {
				t.Errorf("%s: got (%v,%v), want (%v,%v)", tc.name, l, r, tc.left, tc.right)
			}
		})
	}
}

func TestSpeedStepsAndBounds(t *testing.T) {
	s := NewState(0.3)

	if got := s.Increase(); math.Abs(got-0.4) > floatTolerance {
		t.Errorf("Increase from 0.3 = %v, want 0.4", got)
	}
	if got := s.Decrease(); math.Abs(got-0.3) > floatTolerance {
		t.Errorf("Decrease back = %v, want 0.3", got)
	}
}

// Repeated adjustment at a boundary must be idempotent.
func TestSpeedIdempotentAtBounds(t *testing.T) {
	s := NewState(0.95)
	for i := 0; i < 5; i++ {
		if got := s.Increase(); got != 1.0 {
			t.Fatalf("Increase #%d = %v, want 1.0", i, got)
		}
	}

	s = NewState(0.05)
	for i := 0; i < 5; i++ {
		if got := s.Decrease(); got != 0.0 {
			t.Fatalf("Decrease #%d = %v, want 0.0", i, got)
		}
	}
}

func TestNewStateClampsInitial(t *testing.T) {
	if got := NewState(7).Speed(); got != 1.0 {
		t.Errorf("initial 7 → %v, want 1.0", got)
	}
	if got := NewState(-1).Speed(); got != 0.0 {
		t.Errorf("initial -1 → %v, want 0.0", got)
	}
}
