// Package pilot runs the autonomous obstacle-avoidance loop.
//
// One background worker polls the range scanner roughly every 100 ms:
// cruise forward while the way ahead is clear, and when an obstacle comes
// inside the threshold, scan both sides, back off, and turn toward the
// more open side. The worker honors its stop flag only at the top of a
// tick; a sweep or timed maneuver already in progress runs to completion.
package pilot

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/autocar/go-autocar/internal/log"
)

// State is the pilot's coarse mode, exported for telemetry.
type State int32

// Pilot states.
const (
	Stopped State = iota
	Cruising
	Scanning
	Evading
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Cruising:
		return "cruising"
	case Scanning:
		return "scanning"
	case Evading:
		return "evading"
	default:
		return "stopped"
	}
}

// Start/stop misuse errors.
var (
	ErrAlreadyRunning = errors.New("pilot: already running")
	ErrNotRunning     = errors.New("pilot: not running")
)

// DriveControl is what the pilot needs from the drive coordinator.
type DriveControl interface {
	Forward(speed float64) error
	Backward(speed float64) error
	Left(speed float64) error
	Right(speed float64) error
	Stop() error
}

// Ranger is what the pilot needs from the range scanner.
type Ranger interface {
	SweepTo(deg int) error
	DistanceCm() (float64, error)
}

// Power enables and disables the motor driver around a pilot session.
type Power interface {
	Enable() error
	Disable() error
}

// SpeedSource yields the current drive speed each time it is needed.
type SpeedSource interface {
	Speed() float64
}

// Config tunes the avoidance behavior.
type Config struct {
	ThresholdCm float64       // obstacle distance that triggers evasion
	Tick        time.Duration // polling interval
	ReverseHold time.Duration // how long to back off
	TurnHold    time.Duration // how long to hold the turn
}

// DefaultConfig matches the reference build.
func DefaultConfig() Config {
	return Config{
		ThresholdCm: 20,
		Tick:        100 * time.Millisecond,
		ReverseHold: 500 * time.Millisecond,
		TurnHold:    600 * time.Millisecond,
	}
}

// Pilot is the autonomous controller. At most one worker runs at a time;
// Stop joins the worker, so motors are disabled before it returns.
type Pilot struct {
	cfg    Config
	drive  DriveControl
	ranger Ranger
	power  Power
	speed  SpeedSource
	clk    clock.Clock

	enabled atomic.Bool
	state   atomic.Int32

	mu       sync.Mutex
	running  bool
	stopping bool
	done     chan struct{}
}

// New creates a pilot. Zero config fields get defaults.
func New(cfg Config, drv DriveControl, ranger Ranger, power Power, speed SpeedSource, clk clock.Clock) *Pilot {
	def := DefaultConfig()
	if cfg.ThresholdCm <= 0 {
		cfg.ThresholdCm = def.ThresholdCm
	}
	if cfg.Tick <= 0 {
		cfg.Tick = def.Tick
	}
	if cfg.ReverseHold <= 0 {
		cfg.ReverseHold = def.ReverseHold
	}
	if cfg.TurnHold <= 0 {
		cfg.TurnHold = def.TurnHold
	}
	return &Pilot{
		cfg:    cfg,
		drive:  drv,
		ranger: ranger,
		power:  power,
		speed:  speed,
		clk:    clk,
	}
}

// Active reports whether a worker is running.
func (p *Pilot) Active() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// State returns the pilot's current mode.
func (p *Pilot) State() State {
	return State(p.state.Load())
}

// Start launches the avoidance worker. Starting while already running is
// a no-op that returns ErrAlreadyRunning; no second worker is spawned.
func (p *Pilot) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return ErrAlreadyRunning
	}
	p.running = true
	p.enabled.Store(true)
	p.done = make(chan struct{})
	go p.run(p.done)
	log.Info("pilot started", "threshold_cm", p.cfg.ThresholdCm)
	return nil
}

// Stop clears the worker's flag and blocks until the worker has observed
// it and exited; the motor driver is disabled before Stop returns.
// Stopping while not running returns ErrNotRunning. One caller owns the
// shutdown: a second concurrent Stop gets ErrNotRunning, it does not
// join.
func (p *Pilot) Stop() error {
	p.mu.Lock()
	if !p.running || p.stopping {
		p.mu.Unlock()
		return ErrNotRunning
	}
	p.stopping = true
	done := p.done
	p.enabled.Store(false)
	p.mu.Unlock()

	<-done

	p.mu.Lock()
	p.running = false
	p.stopping = false
	p.mu.Unlock()
	log.Info("pilot stopped")
	return nil
}

func (p *Pilot) run(done chan struct{}) {
	defer close(done)

	if err := p.power.Enable(); err != nil {
		log.Error("pilot: enable driver", "err", err)
	}
	p.state.Store(int32(Cruising))

	for p.enabled.Load() {
		if err := p.tick(); err != nil {
			// A transient failure stops the motors for this tick and
			// the loop carries on; it never terminates on an error.
			log.Warn("pilot tick failed", "err", err)
			if stopErr := p.drive.Stop(); stopErr != nil {
				log.Error("pilot: stop after failed tick", "err", stopErr)
			}
		}
		p.clk.Sleep(p.cfg.Tick)
	}

	if err := p.power.Disable(); err != nil {
		log.Error("pilot: disable driver", "err", err)
	}
	p.state.Store(int32(Stopped))
}

// tick is one iteration of the avoidance loop.
func (p *Pilot) tick() error {
	if err := p.ranger.SweepTo(0); err != nil {
		return &TickError{Kind: KindScan, Err: err}
	}
	front, err := p.ranger.DistanceCm()
	if err != nil {
		return &TickError{Kind: KindSensor, Err: err}
	}

	if front < p.cfg.ThresholdCm {
		return p.evade()
	}

	p.state.Store(int32(Cruising))
	if err := p.drive.Forward(p.speed.Speed()); err != nil {
		return &TickError{Kind: KindDrive, Err: err}
	}
	return nil
}

// evade backs away from an obstacle and turns toward the more open side.
// The ordering is a correctness requirement: the right scan completes
// before the left one starts, and the robot is stopped before each
// reading is taken.
func (p *Pilot) evade() error {
	if err := p.drive.Stop(); err != nil {
		return &TickError{Kind: KindDrive, Err: err}
	}

	p.state.Store(int32(Scanning))
	right, err := p.scanSide(MaxScan)
	if err != nil {
		return err
	}
	left, err := p.scanSide(MinScan)
	if err != nil {
		return err
	}
	if err := p.ranger.SweepTo(0); err != nil {
		return &TickError{Kind: KindScan, Err: err}
	}

	p.state.Store(int32(Evading))
	speed := p.speed.Speed()
	if err := p.drive.Backward(speed); err != nil {
		return &TickError{Kind: KindDrive, Err: err}
	}
	p.clk.Sleep(p.cfg.ReverseHold)
	if err := p.drive.Stop(); err != nil {
		return &TickError{Kind: KindDrive, Err: err}
	}

	turn := p.drive.Left
	if right > left {
		turn = p.drive.Right
	}
	if err := turn(speed); err != nil {
		return &TickError{Kind: KindDrive, Err: err}
	}
	p.clk.Sleep(p.cfg.TurnHold)
	if err := p.drive.Stop(); err != nil {
		return &TickError{Kind: KindDrive, Err: err}
	}

	p.state.Store(int32(Cruising))
	return nil
}

// Scan extremes for the side readings.
const (
	MaxScan = 85
	MinScan = -85
)

// scanSide sweeps to deg and takes one reading there.
func (p *Pilot) scanSide(deg int) (float64, error) {
	if err := p.ranger.SweepTo(deg); err != nil {
		return 0, &TickError{Kind: KindScan, Err: err}
	}
	d, err := p.ranger.DistanceCm()
	if err != nil {
		return 0, &TickError{Kind: KindSensor, Err: err}
	}
	return d, nil
}
