// Command windowdriver attaches to one browser window and serves UI
// automation for it over the routed channel.
//
// Usage:
//
//	windowdriver -config windowdriver.yaml
//	windowdriver -window 3 -remote ws://127.0.0.1:9222/devtools/browser/<id>
//	windowdriver -window 1 -url http://localhost:3000
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/windriver/browser"
	"github.com/hazyhaar/windriver/connectivity"
	"github.com/hazyhaar/windriver/driver"
	"github.com/hazyhaar/windriver/internal/config"
	"github.com/hazyhaar/windriver/mcpquic"
	"github.com/hazyhaar/windriver/registry"
	"github.com/hazyhaar/windriver/tmuxterm"
)

const version = "0.1.0"

func main() {
	configPath := flag.String("config", "", "path to windowdriver.yaml")
	windowID := flag.Int64("window", 0, "window id to register (overrides window_id)")
	remote := flag.String("remote", "", "DevTools control URL of a running browser")
	launchURL := flag.String("url", "", "open this URL in a new window instead of attaching")
	logLevel := flag.String("log-level", "", "log level: debug, info, warn, error")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.LoadFile(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "windowdriver: load config: %v\n", err)
			os.Exit(1)
		}
	}
	if *windowID != 0 {
		cfg.WindowID = *windowID
	}
	if *remote != "" {
		cfg.Browser.Remote = *remote
	}
	if *launchURL != "" {
		cfg.Browser.LaunchURL = *launchURL
		cfg.Browser.Target = ""
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}))

	if cfg.WindowID < 1 {
		fmt.Fprintln(os.Stderr, "usage: windowdriver -window <id> [-config <file>] [-remote <ws url>] [-url <url>]")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, cfg); err != nil {
		logger.Error("windowdriver: fatal", "error", err)
		os.Exit(1)
	}
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func run(ctx context.Context, logger *slog.Logger, cfg *config.Config) error {
	mgr := browser.NewManager(browser.Config{
		RemoteURL:   cfg.Browser.Remote,
		Headless:    cfg.Browser.Headless,
		XvfbDisplay: cfg.Browser.XvfbDisplay,
		Logger:      logger,
	})
	if err := mgr.Start(ctx); err != nil {
		return fmt.Errorf("start browser: %w", err)
	}
	defer mgr.Close()

	win, err := openWindow(ctx, mgr, cfg.Browser)
	if err != nil {
		return err
	}
	defer win.Close()

	terms, err := attachTerminals(ctx, win, cfg.Terminals)
	defer func() {
		for _, t := range terms {
			t.Close()
		}
	}()
	if err != nil {
		return err
	}

	opts := []driver.Option{
		driver.WithLogger(logger),
		driver.WithClickTiming(cfg.Driver.MouseUpDelay, cfg.Driver.SettleDelay),
		driver.WithCallTimeout(cfg.Driver.CallTimeout),
	}
	if cfg.Driver.OpenDevToolsWhenVerbose {
		opts = append(opts, driver.WithOnVerbose(driver.OpenDevToolsWhenVerbose))
	}
	d := driver.New(win, win, win, opts...)

	router, routesDB, err := setupRouter(ctx, logger, cfg.Channel)
	if err != nil {
		return err
	}
	defer routesDB.Close()
	defer router.Close()
	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()
	go router.Watch(watchCtx, routesDB, cfg.Channel.WatchInterval)

	mcpSrv := mcp.NewServer(&mcp.Implementation{Name: "windowdriver", Version: version}, nil)
	driver.RegisterMCP(mcpSrv, d)
	connectivity.RegisterMCPService(mcpSrv, router, driver.ServiceName, "Window driver channel service")

	if cfg.Registry.Embedded {
		reg, err := registry.New(&registry.Config{DBPath: cfg.Registry.DBPath, Verbose: cfg.Registry.Verbose}, logger)
		if err != nil {
			return fmt.Errorf("start registry: %w", err)
		}
		defer reg.Close()
		reg.RegisterConnectivity(router)
		reg.RegisterMCP(mcpSrv)
	}

	registration, err := d.Register(ctx, router, cfg.WindowID)
	if err != nil {
		return err
	}

	logger.Info("windowdriver: ready", "window", cfg.WindowID, "verbose", registration.Options().Verbose)
	serveErr := serve(ctx, logger, cfg, connectivity.NewHTTPHandler(router, connectivity.WithHTTPLogger(logger)), mcpSrv)

	closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return errors.Join(serveErr, registration.Close(closeCtx))
}

// serve runs the HTTP channel, and the MCP QUIC listener when configured,
// until ctx ends or either fails. Both are stopped before it returns.
func serve(ctx context.Context, logger *slog.Logger, cfg *config.Config, handler http.Handler, mcpSrv *mcp.Server) error {
	var ln *mcpquic.Listener
	if cfg.MCP.QUICAddr != "" {
		var err error
		if ln, err = listenMCP(logger, cfg.MCP, mcpSrv); err != nil {
			return err
		}
		defer ln.Close()
	}

	httpLn, err := net.Listen("tcp", cfg.Channel.HTTPAddr)
	if err != nil {
		return fmt.Errorf("http channel: %w", err)
	}
	httpSrv := &http.Server{Handler: handler, ReadHeaderTimeout: 10 * time.Second}

	serveCtx, stop := context.WithCancel(ctx)
	defer stop()
	errc := make(chan error, 2)
	go func() {
		logger.Info("windowdriver: http channel listening", "addr", httpLn.Addr().String())
		if err := httpSrv.Serve(httpLn); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- fmt.Errorf("http channel: %w", err)
		}
	}()
	if ln != nil {
		go func() {
			if err := ln.Serve(serveCtx); err != nil && serveCtx.Err() == nil {
				errc <- fmt.Errorf("mcp quic: %w", err)
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errc:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return errors.Join(runErr, httpSrv.Shutdown(shutdownCtx))
}

// blankPage is opened in a browser launched without a target or URL.
const blankPage = "about:blank"

// windowPlan decides how the driven window is obtained: attach to a page
// of the browser (matching target, or its first page when target is empty)
// or open pageURL in a new page.
func windowPlan(cfg config.BrowserConfig) (attach bool, target, pageURL string) {
	switch {
	case cfg.Target != "":
		return true, cfg.Target, ""
	case cfg.LaunchURL != "":
		return false, "", cfg.LaunchURL
	case cfg.Remote != "":
		return true, "", ""
	default:
		return false, "", blankPage
	}
}

func openWindow(ctx context.Context, mgr *browser.Manager, cfg config.BrowserConfig) (*browser.Window, error) {
	attach, target, pageURL := windowPlan(cfg)
	if attach {
		w, err := browser.Attach(ctx, mgr, target)
		if err != nil {
			return nil, fmt.Errorf("attach window: %w", err)
		}
		return w, nil
	}
	w, err := browser.OpenWindow(ctx, mgr, pageURL, cfg.Stealth)
	if err != nil {
		return nil, fmt.Errorf("open window: %w", err)
	}
	return w, nil
}

func attachTerminals(ctx context.Context, win *browser.Window, cfgs []config.TerminalConfig) ([]*tmuxterm.Terminal, error) {
	var terms []*tmuxterm.Terminal
	for _, tc := range cfgs {
		t, err := tmuxterm.Open(ctx, tmuxterm.Options{Command: tc.Command, Width: tc.Width, Height: tc.Height})
		if err != nil {
			return terms, fmt.Errorf("terminal %s: %w", tc.Selector, err)
		}
		win.AttachTerminal(tc.Selector, t)
		terms = append(terms, t)
	}
	return terms, nil
}

func setupRouter(ctx context.Context, logger *slog.Logger, cfg config.ChannelConfig) (*connectivity.Router, *sql.DB, error) {
	db, err := connectivity.OpenDB(cfg.RoutesDB)
	if err != nil {
		return nil, nil, fmt.Errorf("open routes db: %w", err)
	}
	admin := connectivity.NewAdmin(db)
	for _, rc := range cfg.Routes {
		var raw json.RawMessage
		if rc.Config != nil {
			if raw, err = json.Marshal(rc.Config); err != nil {
				db.Close()
				return nil, nil, fmt.Errorf("route %s: %w", rc.Service, err)
			}
		}
		if err := admin.UpsertRoute(ctx, rc.Service, rc.Strategy, rc.Endpoint, raw); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("route %s: %w", rc.Service, err)
		}
	}

	router := connectivity.New(connectivity.WithLogger(logger))
	router.RegisterTransport("http", connectivity.Resilient(connectivity.HTTPFactory(), connectivity.DefaultResilience, logger))
	router.RegisterTransport("mcp", connectivity.Resilient(connectivity.MCPFactory(), connectivity.DefaultResilience, logger))
	if err := router.Reload(ctx, db); err != nil {
		db.Close()
		return nil, nil, err
	}
	return router, db, nil
}

func listenMCP(logger *slog.Logger, cfg config.MCPConfig, srv *mcp.Server) (*mcpquic.Listener, error) {
	tlsCfg, err := mcpquic.SelfSignedTLSConfig()
	if cfg.CertFile != "" {
		tlsCfg, err = mcpquic.ServerTLSConfig(cfg.CertFile, cfg.KeyFile)
	}
	if err != nil {
		return nil, fmt.Errorf("mcp tls: %w", err)
	}
	ln, err := mcpquic.NewListener(cfg.QUICAddr, tlsCfg, srv, logger)
	if err != nil {
		return nil, fmt.Errorf("mcp listen: %w", err)
	}
	return ln, nil
}
