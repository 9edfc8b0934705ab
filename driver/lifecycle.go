package driver

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hazyhaar/windriver/connectivity"
	"github.com/hazyhaar/windriver/kit"
)

// Channel is the part of *connectivity.Router a registration needs.
type Channel interface {
	connectivity.Caller
	RegisterLocal(service string, h connectivity.Handler)
	UnregisterLocal(service string) bool
}

// Register exposes the driver as ServiceName on ch, then registers
// windowID with the registry. If the registry refuses, the service is
// withdrawn and the error returned.
func (d *Driver) Register(ctx context.Context, ch Channel, windowID int64) (*Registration, error) {
	h := connectivity.Chain(
		connectivity.Recovery(d.logger),
		connectivity.WithCallLogging(d.logger, ServiceName),
		connectivity.Timeout(d.callTimeout),
		withWindowID(windowID),
	)(connectivity.ServeMethods(Methods(d)))
	ch.RegisterLocal(ServiceName, h)

	registry := NewRegistryClient(ch)
	opts, err := registry.RegisterWindowDriver(ctx, windowID)
	if err != nil {
		ch.UnregisterLocal(ServiceName)
		return nil, fmt.Errorf("driver: register window %d: %w", windowID, err)
	}
	d.logger.InfoContext(ctx, "driver: registered", "window", windowID, "verbose", opts.Verbose)

	if opts.Verbose && d.onVerbose != nil {
		if err := d.onVerbose(ctx, d); err != nil {
			d.logger.WarnContext(ctx, "driver: verbose hook failed", "window", windowID, "error", err)
		}
	}

	return &Registration{
		ch:       ch,
		registry: registry,
		windowID: windowID,
		opts:     opts,
		driver:   d,
	}, nil
}

func withWindowID(id int64) connectivity.HandlerMiddleware {
	return func(next connectivity.Handler) connectivity.Handler {
		return func(ctx context.Context, payload []byte) ([]byte, error) {
			return next(kit.WithWindowID(ctx, id), payload)
		}
	}
}

// Registration ties a driver to a window for the window's lifetime.
type Registration struct {
	ch       Channel
	registry *RegistryClient
	windowID int64
	opts     RegistryOptions
	driver   *Driver

	mu       sync.Mutex
	closed   bool
	releases []func() error
}

// WindowID is the registered window.
func (r *Registration) WindowID() int64 { return r.windowID }

// Options is what the registry answered.
func (r *Registration) Options() RegistryOptions { return r.opts }

// OnClose adds a release step run by Close after the service is withdrawn,
// such as closing the channel client.
func (r *Registration) OnClose(fn func() error) {
	r.mu.Lock()
	r.releases = append(r.releases, fn)
	r.mu.Unlock()
}

// Close asks the registry to reload the window, withdraws the service and
// runs the OnClose steps. Every step runs whatever the others return; the
// errors are joined. Calls after the first return nil.
func (r *Registration) Close(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	releases := r.releases
	r.mu.Unlock()

	var errs []error
	if err := r.registry.ReloadWindowDriver(ctx, r.windowID); err != nil {
		r.driver.logger.WarnContext(ctx, "driver: reload notification failed", "window", r.windowID, "error", err)
		errs = append(errs, fmt.Errorf("driver: reload window %d: %w", r.windowID, err))
	}
	r.ch.UnregisterLocal(ServiceName)
	for _, fn := range releases {
		if err := fn(); err != nil {
			errs = append(errs, fmt.Errorf("driver: release: %w", err))
		}
	}
	r.driver.logger.InfoContext(ctx, "driver: unregistered", "window", r.windowID)
	return errors.Join(errs...)
}
