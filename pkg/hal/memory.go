package hal

import (
	"sync"
	"time"
)

// MemoryPWM is an in-memory PWMPin for tests and simulation.
type MemoryPWM struct {
	mu   sync.Mutex
	duty float64
}

// SetDuty records the duty cycle.
func (m *MemoryPWM) SetDuty(duty float64) error {
	m.mu.Lock()
	m.duty = duty
	m.mu.Unlock()
	return nil
}

// Duty returns the last commanded duty cycle.
func (m *MemoryPWM) Duty() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.duty
}

// MemoryOut is an in-memory OutPin.
type MemoryOut struct {
	mu   sync.Mutex
	high bool
}

// Set records the level.
func (m *MemoryOut) Set(high bool) error {
	m.mu.Lock()
	m.high = high
	m.mu.Unlock()
	return nil
}

// High returns the last commanded level.
func (m *MemoryOut) High() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.high
}

// MemoryIn is an in-memory InPin whose level tests control directly.
type MemoryIn struct {
	mu   sync.Mutex
	high bool
}

// SetLevel sets the level returned by Read.
func (m *MemoryIn) SetLevel(high bool) {
	m.mu.Lock()
	m.high = high
	m.mu.Unlock()
}

// Read returns the current level.
func (m *MemoryIn) Read() (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.high, nil
}

// MemoryEdge is an in-memory EdgePin. Tests fire edges with Rise, Fall or
// Edge; the callback runs synchronously on the caller's goroutine, which
// mirrors the interrupt-context delivery of the real pin.
type MemoryEdge struct {
	mu   sync.Mutex
	high bool
	cb   func(rising bool, at time.Time)
}

// Read returns the current level.
func (m *MemoryEdge) Read() (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.high, nil
}

// OnEdge registers the edge callback.
func (m *MemoryEdge) OnEdge(cb func(rising bool, at time.Time)) {
	m.mu.Lock()
	m.cb = cb
	m.mu.Unlock()
}

// Close drops the callback.
func (m *MemoryEdge) Close() error {
	m.mu.Lock()
	m.cb = nil
	m.mu.Unlock()
	return nil
}

// Edge sets the level and delivers an edge with an explicit timestamp.
func (m *MemoryEdge) Edge(rising bool, at time.Time) {
	m.mu.Lock()
	m.high = rising
	cb := m.cb
	m.mu.Unlock()
	if cb != nil {
		cb(rising, at)
	}
}

// Rise delivers a rising edge stamped now.
func (m *MemoryEdge) Rise() { m.Edge(true, time.Now()) }

// Fall delivers a falling edge stamped now.
func (m *MemoryEdge) Fall() { m.Edge(false, time.Now()) }
