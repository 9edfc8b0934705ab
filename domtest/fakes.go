package domtest

import (
	"context"
	"sync"
	"time"

	"github.com/hazyhaar/windriver/driver"
)

// Clock is a driver.Scheduler on virtual time. Sleep returns at once and
// advances the clock.
type Clock struct {
	mu     sync.Mutex
	now    time.Duration
	sleeps []time.Duration
}

var _ driver.Scheduler = (*Clock)(nil)

// Sleep advances the clock by d. It fails only when ctx is already done.
func (c *Clock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	c.now += d
	c.sleeps = append(c.sleeps, d)
	c.mu.Unlock()
	return nil
}

// Now is the virtual time elapsed since the clock was created.
func (c *Clock) Now() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Sleeps returns every requested delay in order.
func (c *Clock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.sleeps...)
}

// RecordedEvent is a mouse event stamped with the virtual time it was
// sent at.
type RecordedEvent struct {
	driver.MouseEvent
	At time.Duration
}

// Input records synthesized mouse events.
type Input struct {
	clock *Clock

	mu     sync.Mutex
	events []RecordedEvent

	// Err, when set, is returned by every SendInputEvent.
	Err error
}

var _ driver.InputSynthesizer = (*Input)(nil)

// NewInput records against clock; a nil clock stamps every event at 0.
func NewInput(clock *Clock) *Input {
	return &Input{clock: clock}
}

func (in *Input) SendInputEvent(_ context.Context, ev driver.MouseEvent) error {
	if in.Err != nil {
		return in.Err
	}
	var at time.Duration
	if in.clock != nil {
		at = in.clock.Now()
	}
	in.mu.Lock()
	in.events = append(in.events, RecordedEvent{MouseEvent: ev, At: at})
	in.mu.Unlock()
	return nil
}

// Events returns the recorded events in order.
func (in *Input) Events() []RecordedEvent {
	in.mu.Lock()
	defer in.mu.Unlock()
	return append([]RecordedEvent(nil), in.events...)
}

// Window records devtools requests.
type Window struct {
	mu       sync.Mutex
	devtools []driver.DevToolsOptions

	// Err, when set, is returned by OpenDevTools.
	Err error
}

var _ driver.WindowController = (*Window)(nil)

func (w *Window) OpenDevTools(_ context.Context, opts driver.DevToolsOptions) error {
	if w.Err != nil {
		return w.Err
	}
	w.mu.Lock()
	w.devtools = append(w.devtools, opts)
	w.mu.Unlock()
	return nil
}

// DevTools returns the options of every successful OpenDevTools call.
func (w *Window) DevTools() []driver.DevToolsOptions {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]driver.DevToolsOptions(nil), w.devtools...)
}

// Terminal is an in-memory emulator: a fixed buffer plus a log of input.
type Terminal struct {
	mu     sync.Mutex
	lines  []string
	writes []string

	// Err, when set, is returned by both methods.
	Err error
}

var _ driver.Terminal = (*Terminal)(nil)

// NewTerminal returns a terminal showing lines, top to bottom.
func NewTerminal(lines ...string) *Terminal {
	return &Terminal{lines: lines}
}

func (t *Terminal) BufferLines(context.Context) ([]string, error) {
	if t.Err != nil {
		return nil, t.Err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.lines...), nil
}

func (t *Terminal) Input(_ context.Context, text string) error {
	if t.Err != nil {
		return t.Err
	}
	t.mu.Lock()
	t.writes = append(t.writes, text)
	t.mu.Unlock()
	return nil
}

// Writes returns every Input call's text in order.
func (t *Terminal) Writes() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.writes...)
}
