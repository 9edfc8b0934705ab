// Package driver is the per-window automation agent. A Driver resolves
// selectors against one window's Document and turns controller intents
// into synthetic effects: timed mouse clicks, value edits, terminal I/O
// and serializable element snapshots.
//
// Every capability the driver touches is injected:
//
//	d := driver.New(doc, input, window,
//		driver.WithScheduler(driver.RealScheduler{}),
//		driver.WithLogger(logger))
//	reg, err := d.Register(ctx, router, windowID)
//	defer reg.Close(ctx)
//
// The browser package provides live implementations over the DevTools
// protocol, domtest provides fabricated ones for tests.
package driver

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Operations is the surface a controller drives. *Driver implements it
// in-process, *Client over the channel.
type Operations interface {
	Click(ctx context.Context, selector string, offset *Offset) error
	DoubleClick(ctx context.Context, selector string) error
	SetValue(ctx context.Context, selector, text string) error
	TypeInEditor(ctx context.Context, selector, text string) error
	GetTitle(ctx context.Context) (string, error)
	IsActiveElement(ctx context.Context, selector string) (bool, error)
	GetElements(ctx context.Context, selector string, recursive bool) ([]ElementSnapshot, error)
	GetTerminalBuffer(ctx context.Context, selector string) ([]string, error)
	WriteInTerminal(ctx context.Context, selector, text string) error
	OpenDevTools(ctx context.Context) error
}

const (
	// MinMouseUpDelay separates mouseDown from mouseUp.
	MinMouseUpDelay = 10 * time.Millisecond
	// MinSettleDelay follows every mouseUp.
	MinSettleDelay = 100 * time.Millisecond
)

// Driver drives one window. It holds no state between calls beyond its
// wiring.
type Driver struct {
	doc    Document
	input  InputSynthesizer
	window WindowController
	sched  Scheduler
	logger *slog.Logger

	mouseUpDelay time.Duration
	settleDelay  time.Duration
	callTimeout  time.Duration
	onVerbose    func(ctx context.Context, d *Driver) error
}

// Option configures a Driver.
type Option func(*Driver)

// WithScheduler sets the delay primitive. Default: RealScheduler.
func WithScheduler(s Scheduler) Option {
	return func(d *Driver) { d.sched = s }
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(d *Driver) { d.logger = l }
}

// WithClickTiming sets the mouse-up and settle delays of the click
// sequence. Values below MinMouseUpDelay and MinSettleDelay are raised to
// the minimum.
func WithClickTiming(mouseUp, settle time.Duration) Option {
	return func(d *Driver) {
		d.mouseUpDelay = max(mouseUp, MinMouseUpDelay)
		d.settleDelay = max(settle, MinSettleDelay)
	}
}

// WithCallTimeout bounds each call served on the channel. Zero means no
// bound.
func WithCallTimeout(t time.Duration) Option {
	return func(d *Driver) { d.callTimeout = t }
}

// WithOnVerbose sets the hook run after registration when the registry
// asks for verbose mode.
func WithOnVerbose(fn func(ctx context.Context, d *Driver) error) Option {
	return func(d *Driver) { d.onVerbose = fn }
}

// OpenDevToolsWhenVerbose is an OnVerbose hook that opens devtools.
func OpenDevToolsWhenVerbose(ctx context.Context, d *Driver) error {
	return d.OpenDevTools(ctx)
}

// New wires a Driver. It has no side effects.
func New(doc Document, input InputSynthesizer, window WindowController, opts ...Option) *Driver {
	d := &Driver{
		doc:          doc,
		input:        input,
		window:       window,
		sched:        RealScheduler{},
		logger:       slog.Default(),
		mouseUpDelay: MinMouseUpDelay,
		settleDelay:  MinSettleDelay,
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// find is the single selector lookup. ok is false when nothing matches;
// callers map that to their own error.
func (d *Driver) find(ctx context.Context, selector string) (el Element, ok bool, err error) {
	el, err = d.doc.QuerySelector(ctx, selector)
	if err != nil {
		return nil, false, fmt.Errorf("driver: query %q: %w", selector, err)
	}
	return el, el != nil, nil
}
