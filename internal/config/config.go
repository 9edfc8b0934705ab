// Package config loads the windowdriver YAML configuration.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level windowdriver configuration.
type Config struct {
	WindowID  int64            `yaml:"window_id"`
	LogLevel  string           `yaml:"log_level"`
	Browser   BrowserConfig    `yaml:"browser"`
	Driver    DriverConfig     `yaml:"driver"`
	Channel   ChannelConfig    `yaml:"channel"`
	MCP       MCPConfig        `yaml:"mcp"`
	Registry  RegistryConfig   `yaml:"registry"`
	Terminals []TerminalConfig `yaml:"terminals"`
}

// BrowserConfig selects the window to drive.
type BrowserConfig struct {
	Remote      string `yaml:"remote"`     // control URL of a running browser
	LaunchURL   string `yaml:"launch_url"` // open this page instead of attaching
	Headless    bool   `yaml:"headless"`
	Stealth     bool   `yaml:"stealth"`
	Target      string `yaml:"target"` // substring of the page URL to attach to
	XvfbDisplay string `yaml:"xvfb_display"`
}

// DriverConfig tunes synthesized input.
type DriverConfig struct {
	MouseUpDelay            time.Duration `yaml:"mouse_up_delay"`
	SettleDelay             time.Duration `yaml:"settle_delay"`
	CallTimeout             time.Duration `yaml:"call_timeout"`
	OpenDevToolsWhenVerbose bool          `yaml:"open_devtools_when_verbose"`
}

// ChannelConfig controls the routed channel and its HTTP front.
type ChannelConfig struct {
	HTTPAddr      string        `yaml:"http_addr"`
	RoutesDB      string        `yaml:"routes_db"`
	WatchInterval time.Duration `yaml:"watch_interval"`
	Routes        []RouteConfig `yaml:"routes"`
}

// RouteConfig is upserted into the routes table at startup.
type RouteConfig struct {
	Service  string         `yaml:"service"`
	Strategy string         `yaml:"strategy"` // local | http | mcp | noop
	Endpoint string         `yaml:"endpoint"`
	Config   map[string]any `yaml:"config"`
}

// MCPConfig enables the MCP over QUIC listener when QUICAddr is set.
// Without a certificate pair a self-signed one is generated.
type MCPConfig struct {
	QUICAddr string `yaml:"quic_addr"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// RegistryConfig runs the window registry in process.
type RegistryConfig struct {
	Embedded bool   `yaml:"embedded"`
	Verbose  bool   `yaml:"verbose"`
	DBPath   string `yaml:"db_path"`
}

// TerminalConfig binds a tmux-backed terminal to elements matching Selector.
type TerminalConfig struct {
	Selector string   `yaml:"selector"`
	Command  []string `yaml:"command"`
	Width    int      `yaml:"width"`
	Height   int      `yaml:"height"`
}

// LoadFile reads a YAML configuration file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes YAML and applies defaults. Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration used without a file.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

func (c *Config) applyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Driver.MouseUpDelay == 0 {
		c.Driver.MouseUpDelay = 10 * time.Millisecond
	}
	if c.Driver.SettleDelay == 0 {
		c.Driver.SettleDelay = 100 * time.Millisecond
	}
	if c.Driver.CallTimeout == 0 {
		c.Driver.CallTimeout = 30 * time.Second
	}
	if c.Channel.HTTPAddr == "" {
		c.Channel.HTTPAddr = "127.0.0.1:8470"
	}
	if c.Channel.RoutesDB == "" {
		c.Channel.RoutesDB = ":memory:"
	}
	if c.Channel.WatchInterval == 0 {
		c.Channel.WatchInterval = 200 * time.Millisecond
	}
	if c.Registry.DBPath == "" {
		c.Registry.DBPath = ":memory:"
	}
	for i := range c.Channel.Routes {
		if c.Channel.Routes[i].Strategy == "" {
			c.Channel.Routes[i].Strategy = "http"
		}
	}
}

func (c *Config) validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: log_level %q: want debug, info, warn or error", c.LogLevel)
	}
	if c.WindowID < 0 {
		return fmt.Errorf("config: window_id must be positive, got %d", c.WindowID)
	}
	if (c.MCP.CertFile == "") != (c.MCP.KeyFile == "") {
		return fmt.Errorf("config: mcp cert_file and key_file must be set together")
	}
	for i, r := range c.Channel.Routes {
		if r.Service == "" {
			return fmt.Errorf("config: channel.routes[%d]: service is required", i)
		}
		if r.Strategy != "local" && r.Strategy != "noop" && r.Endpoint == "" {
			return fmt.Errorf("config: channel.routes[%d] (%s): endpoint is required for %s", i, r.Service, r.Strategy)
		}
	}
	for i, t := range c.Terminals {
		if t.Selector == "" {
			return fmt.Errorf("config: terminals[%d]: selector is required", i)
		}
	}
	return nil
}
