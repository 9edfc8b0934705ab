// Package registry is an embedded window driver registry: the
// "windowDriverRegistry" collaborator a driver registers with, for
// standalone runs and tests.
//
// Flows:
//
//	Register: a driver starts in window N → registerWindowDriver(N) → {verbose}
//	Reload:   the driver is disposed → reloadWindowDriver(N) → window marked for reload
//
// Usage:
//
//	r, err := registry.New(&registry.Config{}, logger)
//	defer r.Close()
//	r.RegisterConnectivity(router)
//	r.RegisterMCP(mcpServer)
package registry

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hazyhaar/windriver/driver"
	"github.com/hazyhaar/windriver/registry/internal/store"
)

// Window is the registry's record of one window.
type Window = store.Window

// Window states.
const (
	StatePending    = store.StatePending
	StateRegistered = store.StateRegistered
	StateReload     = store.StateReload
)

// Registry tracks which windows have a live driver.
type Registry struct {
	store  *store.Store
	logger *slog.Logger
	config *Config
}

// New opens the registry database and initialises the schema.
func New(cfg *Config, logger *slog.Logger) (*Registry, error) {
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}

	s, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("registry: open: %w", err)
	}

	return &Registry{
		store:  s,
		logger: logger,
		config: cfg,
	}, nil
}

// Close closes the database.
func (r *Registry) Close() error {
	return r.store.Close()
}

// RegisterWindowDriver records that windowID has a live driver and returns
// the options the driver should run with.
func (r *Registry) RegisterWindowDriver(ctx context.Context, windowID int64) (driver.RegistryOptions, error) {
	if windowID < 1 {
		return driver.RegistryOptions{}, &ErrInvalidWindow{WindowID: windowID}
	}
	w, err := r.store.Register(ctx, windowID)
	if err != nil {
		return driver.RegistryOptions{}, fmt.Errorf("registry: register window %d: %w", windowID, err)
	}
	opts := driver.RegistryOptions{Verbose: r.config.Verbose || w.Verbose}
	r.logger.InfoContext(ctx, "registry: window registered",
		"window", windowID, "registrations", w.Registrations, "verbose", opts.Verbose)
	return opts, nil
}

// ReloadWindowDriver marks windowID as needing a fresh driver.
func (r *Registry) ReloadWindowDriver(ctx context.Context, windowID int64) error {
	ok, err := r.store.MarkReload(ctx, windowID)
	if err != nil {
		return fmt.Errorf("registry: reload window %d: %w", windowID, err)
	}
	if !ok {
		return &ErrUnknownWindow{WindowID: windowID}
	}
	r.logger.InfoContext(ctx, "registry: window marked for reload", "window", windowID)
	return nil
}

// SetVerbose sets the verbose preference of windowID, applied at its next
// registration.
func (r *Registry) SetVerbose(ctx context.Context, windowID int64, verbose bool) error {
	if windowID < 1 {
		return &ErrInvalidWindow{WindowID: windowID}
	}
	return r.store.SetVerbose(ctx, windowID, verbose)
}

// Window returns the record of windowID, or nil when unknown.
func (r *Registry) Window(ctx context.Context, windowID int64) (*Window, error) {
	return r.store.GetWindow(ctx, windowID)
}

// Windows lists known windows ordered by id. An empty state lists all.
func (r *Registry) Windows(ctx context.Context, state string) ([]*Window, error) {
	return r.store.ListWindows(ctx, state)
}

// Forget drops the record of windowID.
func (r *Registry) Forget(ctx context.Context, windowID int64) error {
	return r.store.DeleteWindow(ctx, windowID)
}
