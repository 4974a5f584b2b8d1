package hal

import (
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

// Init loads the periph.io host drivers. Call once before creating pins.
func Init() error {
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("hal: host init: %w", err)
	}
	return nil
}

// PeriphPWM drives a GPIO pin with hardware or software PWM.
type PeriphPWM struct {
	pin  gpio.PinIO
	freq physic.Frequency
}

// NewPWMPin opens the named pin (e.g. "GPIO18") for PWM output at freq.
func NewPWMPin(name string, freq physic.Frequency) (*PeriphPWM, error) {
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("hal: no such pin %q", name)
	}
	return &PeriphPWM{pin: p, freq: freq}, nil
}

// SetDuty sets the duty cycle as a unit-interval fraction.
func (p *PeriphPWM) SetDuty(duty float64) error {
	if duty < 0 {
		duty = 0
	} else if duty > 1 {
		duty = 1
	}
	d := gpio.Duty(duty * float64(gpio.DutyMax))
	if err := p.pin.PWM(d, p.freq); err != nil {
		return fmt.Errorf("hal: pwm %s: %w", p.pin.Name(), err)
	}
	return nil
}

// PeriphOut is a plain digital output pin.
type PeriphOut struct {
	pin gpio.PinIO
}

// NewOutPin opens the named pin for digital output, initially low.
func NewOutPin(name string) (*PeriphOut, error) {
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("hal: no such pin %q", name)
	}
	if err := p.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("hal: out %s: %w", name, err)
	}
	return &PeriphOut{pin: p}, nil
}

// Set drives the pin high or low.
func (p *PeriphOut) Set(high bool) error {
	if err := p.pin.Out(gpio.Level(high)); err != nil {
		return fmt.Errorf("hal: out %s: %w", p.pin.Name(), err)
	}
	return nil
}

// PeriphIn is a level-read input pin.
type PeriphIn struct {
	pin gpio.PinIO
}

// NewInPin opens the named pin for level reads with the given pull.
func NewInPin(name string, pull gpio.Pull) (*PeriphIn, error) {
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("hal: no such pin %q", name)
	}
	if err := p.In(pull, gpio.NoEdge); err != nil {
		return nil, fmt.Errorf("hal: in %s: %w", name, err)
	}
	return &PeriphIn{pin: p}, nil
}

// Read returns the current level.
func (p *PeriphIn) Read() (bool, error) {
	return p.pin.Read() == gpio.High, nil
}

// PeriphEdge watches a pin for edges on a dedicated goroutine.
// Rising edges within the debounce window of the previous rising edge are
// dropped; falling edges are always delivered (pulse-width measurement
// depends on them).
type PeriphEdge struct {
	pin      gpio.PinIO
	debounce time.Duration

	mu     sync.Mutex
	cb     func(rising bool, at time.Time)
	closed bool
}

// NewEdgePin opens the named pin for edge watching.
func NewEdgePin(name string, pull gpio.Pull, debounce time.Duration) (*PeriphEdge, error) {
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("hal: no such pin %q", name)
	}
	if err := p.In(pull, gpio.BothEdges); err != nil {
		return nil, fmt.Errorf("hal: in %s: %w", name, err)
	}
	e := &PeriphEdge{pin: p, debounce: debounce}
	go e.watch()
	return e, nil
}

// Read returns the current level.
func (e *PeriphEdge) Read() (bool, error) {
	return e.pin.Read() == gpio.High, nil
}

// OnEdge registers the edge callback.
func (e *PeriphEdge) OnEdge(cb func(rising bool, at time.Time)) {
	e.mu.Lock()
	e.cb = cb
	e.mu.Unlock()
}

// Close stops the watch goroutine and releases the pin.
func (e *PeriphEdge) Close() error {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()
	return e.pin.Halt()
}

func (e *PeriphEdge) watch() {
	var lastRise time.Time
	for {
		if !e.pin.WaitForEdge(time.Second) {
			e.mu.Lock()
			closed := e.closed
			e.mu.Unlock()
			if closed {
				return
			}
			continue
		}
		now := time.Now()
		rising := e.pin.Read() == gpio.High
		if rising && e.debounce > 0 {
			if now.Sub(lastRise) < e.debounce {
				continue
			}
			lastRise = now
		}
		e.mu.Lock()
		cb := e.cb
		closed := e.closed
		e.mu.Unlock()
		if closed {
			return
		}
		if cb != nil {
			cb(rising, now)
		}
	}
}
