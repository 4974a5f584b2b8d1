package pilot

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
)

// opLog records hardware operations in order across the fakes.
type opLog struct {
	mu  sync.Mutex
	ops []string
}

func (l *opLog) add(op string) {
	l.mu.Lock()
	l.ops = append(l.ops, op)
	l.mu.Unlock()
}

func (l *opLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.ops))
	copy(out, l.ops)
	return out
}

func (l *opLog) count(op string) int {
	n := 0
	for _, o := range l.snapshot() {
		if o == op {
			n++
		}
	}
	return n
}

type fakeDrive struct{ log *opLog }

func (d *fakeDrive) Forward(speed float64) error { d.log.add("forward"); return nil }
func (d *fakeDrive) Backward(speed float64) error { d.log.add("backward"); return nil }
func (d *fakeDrive) Left(speed float64) error { d.log.add("left"); return nil }
func (d *fakeDrive) Right(speed float64) error { d.log.add("right"); return nil }
func (d *fakeDrive) Stop() error { d.log.add("stop"); return nil }

type reading struct {
	cm  float64
	err error
}

// fakeRanger consumes a scripted list of readings; after the script runs
// out, the last entry repeats.
type fakeRanger struct {
	log *opLog

	mu     sync.Mutex
	script []reading
	idx    int
}

func (r *fakeRanger) SweepTo(deg int) error {
	r.log.add(fmt.Sprintf("sweep:%d", deg))
	return nil
}

func (r *fakeRanger) DistanceCm() (float64, error) {
	r.mu.Lock()
	rd := r.script[r.idx]
	if r.idx < len(r.script)-1 {
		r.idx++
	}
	r.mu.Unlock()
	r.log.add("read")
	return rd.cm, rd.err
}

type fakePower struct {
	log *opLog

	mu       sync.Mutex
	enables  int
	disables int
}

func (p *fakePower) Enable() error {
	p.mu.Lock()
	p.enables++
	p.mu.Unlock()
	p.log.add("power-on")
	return nil
}

func (p *fakePower) Disable() error {
	p.mu.Lock()
	p.disables++
	p.mu.Unlock()
	p.log.add("power-off")
	return nil
}

func (p *fakePower) counts() (int, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.enables, p.disables
}

type fixedSpeed float64

func (f fixedSpeed) Speed() float64 { return float64(f) }

func fastConfig() Config {
	return Config{
		ThresholdCm: 20,
		Tick:        time.Millisecond,
		ReverseHold: time.Millisecond,
		TurnHold:    time.Millisecond,
	}
}

func newRig(script ...reading) (*Pilot, *opLog, *fakePower) {
	log := &opLog{}
	power := &fakePower{log: log}
	p := New(fastConfig(),
		&fakeDrive{log: log},
		&fakeRanger{log: log, script: script},
		power,
		fixedSpeed(0.3),
		clock.New(),
	)
	return p, log, power
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestCruisesWhileClear(t *testing.T) {
	p, log, _ := newRig(reading{cm: 50})

	if err := p.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitFor(t, "repeated forward commands", func() bool { return log.count("forward") >= 3 })

	if got := p.State(); got != Cruising {
		t.Errorf("state = %v, want cruising", got)
	}
	if err := p.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	for _, op := range log.snapshot() {
		if op == "backward" || op == "left" || op == "right" {
			t.Errorf("unexpected evasion op %q with a clear path", op)
		}
	}
}

// indexAfter returns the index of the first occurrence of op at or after
// from, or -1.
func indexAfter(ops []string, op string, from int) int {
	for i := from; i < len(ops); i++ {
		if ops[i] == op {
			return i
		}
	}
	return -1
}

func TestEvadesWhenObstacleAppears(t *testing.T) {
	// Two clear ticks, then an obstacle; side scans see a wider left.
	p, log, _ := newRig(
		reading{cm: 50},
		reading{cm: 50},
		reading{cm: 10}, // front, triggers evasion
		reading{cm: 30}, // right
		reading{cm: 80}, // left
		reading{cm: 50}, // clear again
	)

	if err := p.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitFor(t, "the turn command", func() bool { return log.count("left") >= 1 })
	if err := p.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	ops := log.snapshot()

	// Forward driving happened before the evasion.
	firstForward := indexAfter(ops, "forward", 0)
	if firstForward < 0 {
		t.Fatal("no forward command before evasion")
	}

	// Evasion sequence, in order: stop, scan right, read, scan left,
	// read, recenter, backward, stop, turn left, stop.
	i := indexAfter(ops, "sweep:85", firstForward)
	if i < 0 {
		t.Fatalf("no right scan after forward: %v", ops)
	}
	if j := indexAfter(ops[:i], "stop", firstForward); j < 0 {
		t.Errorf("robot not stopped before the right scan: %v", ops)
	}
	i = indexAfter(ops, "sweep:-85", i)
	if i < 0 {
		t.Fatalf("no left scan after right scan: %v", ops)
	}
	i = indexAfter(ops, "sweep:0", i)
	if i < 0 {
		t.Fatalf("no recenter after side scans: %v", ops)
	}
	i = indexAfter(ops, "backward", i)
	if i < 0 {
		t.Fatalf("no backward after recenter: %v", ops)
	}
	i = indexAfter(ops, "left", i)
	if i < 0 {
		t.Fatalf("no left turn (left side was wider): %v", ops)
	}
	if indexAfter(ops, "right", 0) >= 0 {
		t.Errorf("turned right although left side was wider: %v", ops)
	}
}

func TestTurnsRightWhenRightSideWider(t *testing.T) {
	p, log, _ := newRig(
		reading{cm: 10}, // immediate obstacle
		reading{cm: 90}, // right
		reading{cm: 15}, // left
		reading{cm: 50},
	)
	if err := p.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitFor(t, "the turn command", func() bool { return log.count("right") >= 1 })
	if err := p.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if log.count("left") > 0 {
		t.Errorf("turned left although right side was wider: %v", log.snapshot())
	}
}

func TestDoubleStartIsRejected(t *testing.T) {
	p, log, power := newRig(reading{cm: 50})

	if err := p.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer p.Stop()

	waitFor(t, "the driver to be enabled", func() bool {
		en, _ := power.counts()
		return en == 1
	})

	if err := p.Start(); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("second Start = %v, want ErrAlreadyRunning", err)
	}

	// No duplicate enable side effect from a second worker.
	waitFor(t, "some loop progress", func() bool { return log.count("forward") >= 2 })
	if en, _ := power.counts(); en != 1 {
		t.Errorf("driver enabled %d times, want 1", en)
	}
}

func TestStopJoinsAndDisables(t *testing.T) {
	p, _, power := newRig(reading{cm: 50})

	if err := p.Stop(); !errors.Is(err, ErrNotRunning) {
		t.Fatalf("Stop before Start = %v, want ErrNotRunning", err)
	}

	if err := p.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitFor(t, "the driver to be enabled", func() bool {
		en, _ := power.counts()
		return en == 1
	})

	if err := p.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	// Join semantics: by the time Stop returns, the worker has disabled
	// the driver and parked.
	if _, dis := power.counts(); dis != 1 {
		t.Errorf("driver disabled %d times after Stop returned, want 1", dis)
	}
	if got := p.State(); got != Stopped {
		t.Errorf("state after Stop = %v, want stopped", got)
	}
	if p.Active() {
		t.Error("Active() true after Stop")
	}

	if err := p.Stop(); !errors.Is(err, ErrNotRunning) {
		t.Errorf("second Stop = %v, want ErrNotRunning", err)
	}
}

func TestConcurrentStopSingleWinner(t *testing.T) {
	p, _, power := newRig(reading{cm: 50})

	if err := p.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitFor(t, "the driver to be enabled", func() bool {
		en, _ := power.counts()
		return en == 1
	})

	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() { errs <- p.Stop() }()
	}
	var wins, rejections int
	for i := 0; i < 2; i++ {
		switch err := <-errs; {
		case err == nil:
			wins++
		case errors.Is(err, ErrNotRunning):
			rejections++
		default:
			t.Fatalf("Stop: %v", err)
		}
	}
	if wins != 1 || rejections != 1 {
		t.Errorf("concurrent Stop: %d succeeded, %d rejected; want 1 and 1", wins, rejections)
	}
	if _, dis := power.counts(); dis != 1 {
		t.Errorf("driver disabled %d times, want 1", dis)
	}
}

func TestRestartAfterStop(t *testing.T) {
	p, log, power := newRig(reading{cm: 50})

	if err := p.Start(); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	waitFor(t, "loop progress", func() bool { return log.count("forward") >= 1 })
	if err := p.Stop(); err != nil {
		t.Fatalf("first Stop: %v", err)
	}

	if err := p.Start(); err != nil {
		t.Fatalf("restart: %v", err)
	}
	waitFor(t, "the second session", func() bool {
		en, _ := power.counts()
		return en == 2
	})
	if err := p.Stop(); err != nil {
		t.Fatalf("second Stop: %v", err)
	}
}

func TestSensorFailureStopsMotorsForTheTick(t *testing.T) {
	sensorErr := errors.New("no echo")
	p, log, _ := newRig(
		reading{cm: 50},
		reading{err: sensorErr},
		reading{cm: 50},
	)

	if err := p.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	// The loop must survive the failure and drive forward again.
	waitFor(t, "recovery after the sensor failure", func() bool {
		return log.count("forward") >= 2
	})
	if err := p.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	ops := log.snapshot()
	firstForward := indexAfter(ops, "forward", 0)
	stopAfterFailure := indexAfter(ops, "stop", firstForward+1)
	if stopAfterFailure < 0 {
		t.Fatalf("motors were not stopped after the sensor failure: %v", ops)
	}
	if indexAfter(ops, "forward", stopAfterFailure+1) < 0 {
		t.Fatalf("loop did not continue after the failed tick: %v", ops)
	}
}

func TestTickErrorClassification(t *testing.T) {
	inner := errors.New("boom")
	e := &TickError{Kind: KindSensor, Err: inner}
	if !errors.Is(e, inner) {
		t.Error("TickError does not unwrap to the inner error")
	}
	if e.Kind.String() != "sensor" {
		t.Errorf("kind = %q, want sensor", e.Kind)
	}
}
