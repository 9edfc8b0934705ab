// Package browser is the live backend of the window driver: a Chromium or
// Electron window reached over the DevTools protocol with go-rod.
//
// A Manager owns the browser connection. It either connects to a remote
// control URL (an Electron app started with --remote-debugging-port) or
// launches a local Chrome. A Window wraps one page target and implements
// driver.Document, driver.InputSynthesizer and driver.WindowController:
//
//	mgr := browser.NewManager(browser.Config{RemoteURL: u})
//	if err := mgr.Start(ctx); err != nil { ... }
//	defer mgr.Close()
//	w, err := browser.Attach(ctx, mgr, "index.html")
//	d := driver.New(w, w, w)
package browser

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
)

// Config configures the browser manager.
type Config struct {
	// RemoteURL is the DevTools WebSocket URL of a running browser.
	// Empty = launch a local Chrome via launcher.
	RemoteURL string

	// Headless applies to launched browsers only.
	Headless bool

	// XvfbDisplay, when set, starts an Xvfb display for a headful launch.
	XvfbDisplay string

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Manager manages the browser connection.
type Manager struct {
	cfg        Config
	mu         sync.RWMutex
	browser    *rod.Browser
	lnch       *launcher.Launcher
	xvfb       *exec.Cmd
	controlURL string
	closed     bool
}

// NewManager creates a browser Manager. Call Start to connect.
func NewManager(cfg Config) *Manager {
	cfg.defaults()
	return &Manager{cfg: cfg}
}

// Start launches Chrome (or connects to a remote instance).
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("browser: manager is closed")
	}
	if m.browser != nil {
		return nil
	}
	return m.launch(ctx)
}

// Browser returns the Rod browser handle, or nil before Start.
func (m *Manager) Browser() *rod.Browser {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.browser
}

// ControlURL is the DevTools WebSocket URL in use.
func (m *Manager) ControlURL() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.controlURL
}

// Close disconnects. A launched browser and Xvfb are shut down; a remote
// browser is left running.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	return m.cleanup()
}

func (m *Manager) launch(ctx context.Context) error {
	log := m.cfg.Logger

	var wsURL string
	if m.cfg.RemoteURL != "" {
		wsURL = m.cfg.RemoteURL
		log.InfoContext(ctx, "browser: connecting to remote", "url", wsURL)
	} else {
		l := launcher.New().Context(ctx)
		if bin, ok := launcher.LookPath(); ok {
			l = l.Bin(bin)
		}
		if !m.cfg.Headless && m.cfg.XvfbDisplay != "" {
			if err := m.startXvfb(); err != nil {
				return fmt.Errorf("browser: xvfb: %w", err)
			}
			l = l.Env("DISPLAY=" + m.cfg.XvfbDisplay)
		}
		l = l.Headless(m.cfg.Headless).Set("disable-blink-features", "AutomationControlled")

		u, err := l.Launch()
		if err != nil {
			m.stopXvfb()
			return fmt.Errorf("browser: launch: %w", err)
		}
		wsURL = u
		m.lnch = l
		log.InfoContext(ctx, "browser: launched local chrome", "url", wsURL, "headless", m.cfg.Headless)
	}

	b := rod.New().ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		m.cleanup()
		return fmt.Errorf("browser: connect: %w", err)
	}
	m.browser = b
	m.controlURL = wsURL
	return nil
}

func (m *Manager) cleanup() error {
	var err error
	if m.browser != nil {
		if m.lnch != nil {
			err = m.browser.Close()
		}
		m.browser = nil
	}
	if m.lnch != nil {
		m.lnch.Cleanup()
		m.lnch = nil
	}
	m.stopXvfb()
	return err
}
