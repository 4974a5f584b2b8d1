package drive

import "sync"

// Speed adjustment step for the speed+/speed- commands.
const speedStep = 0.1

// State holds the shared drive speed. It is written by the command router
// and read by every movement command, including the autonomous pilot, so
// access is mutex-guarded to avoid torn reads.
type State struct {
	mu    sync.Mutex
	speed float64
}

// NewState creates the drive state with an initial speed, clamped to [0,1].
func NewState(initial float64) *State {
	return &State{speed: clampUnit(initial)}
}

// Speed returns the current drive speed.
func (s *State) Speed() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.speed
}

// Increase raises the speed one step, clamped to 1.0, and returns the new
// value. Repeated calls at the ceiling stay at the ceiling.
func (s *State) Increase() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.speed = clampUnit(s.speed + speedStep)
	return s.speed
}

// Decrease lowers the speed one step, clamped to 0.0, and returns the new
// value.
func (s *State) Decrease() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.speed = clampUnit(s.speed - speedStep)
	return s.speed
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
