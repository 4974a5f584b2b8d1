package encoder

import (
	"math"
	"sync"
	"testing"

	"github.com/autocar/go-autocar/pkg/hal"
)

func pulseTracker() (*Tracker, *hal.MemoryEdge, *hal.MemoryIn) {
	pulse := &hal.MemoryEdge{}
	phase := &hal.MemoryIn{}
	return NewTracker(pulse, phase), pulse, phase
}

// Phase low means forward, phase high means reverse; the final count is
// the signed sum of per-pulse directions.
func TestQuadratureDecode(t *testing.T) {
	tr, pulse, phase := pulseTracker()

	// Phase levels per pulse: false = +1, true = -1.
	seq := []bool{false, false, true, false, true, true, true, false}
	want := int64(0)
	for _, high := range seq {
		phase.SetLevel(high)
		pulse.Rise()
		pulse.Fall()
		if high {
			want--
		} else {
			want++
		}
	}
	if got := tr.Ticks(); got != want {
		t.Errorf("ticks = %d, want %d", got, want)
	}
	if got := tr.Direction(); got != 1 {
		t.Errorf("direction = %d, want 1 (last pulse was forward)", got)
	}
}

func TestFallingEdgesIgnored(t *testing.T) {
	tr, pulse, phase := pulseTracker()
	phase.SetLevel(false)
	pulse.Fall()
	pulse.Fall()
	if got := tr.Ticks(); got != 0 {
		t.Errorf("ticks = %d after falling edges only, want 0", got)
	}
}

// Concurrent odometry reads must not lose pulses.
func TestNoLostUpdatesUnderConcurrentReads(t *testing.T) {
	tr, pulse, phase := pulseTracker()
	phase.SetLevel(false)

	const pulses = 5000
	done := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
					_ = tr.Ticks()
					_ = tr.DistanceCm()
				}
			}
		}()
	}

	for i := 0; i < pulses; i++ {
		pulse.Rise()
		pulse.Fall()
	}
	close(done)
	wg.Wait()

	if got := tr.Ticks(); got != pulses {
		t.Errorf("ticks = %d, want %d", got, pulses)
	}
}

func TestDistanceConversion(t *testing.T) {
	tr, pulse, phase := pulseTracker()
	phase.SetLevel(false)
	for i := 0; i < PulsesPerRev; i++ {
		pulse.Rise()
		pulse.Fall()
	}
	if got := tr.DistanceCm(); math.Abs(got-WheelCircumferenceCm) > 1e-9 {
		t.Errorf("one revolution = %v cm, want %v", got, WheelCircumferenceCm)
	}
}
