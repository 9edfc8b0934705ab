// Package tmuxterm is a terminal emulator backed by a private tmux server.
// tmux interprets the program's control sequences; BufferLines reads back
// the rendered screen as plain text.
//
//	term, err := tmuxterm.Open(ctx, tmuxterm.Options{Command: []string{"bash"}})
//	defer term.Close()
//	term.Input(ctx, "ls\r")
//	lines, err := term.BufferLines(ctx)
package tmuxterm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hazyhaar/windriver/driver"
)

const (
	minTmuxVersion      = "3.0"
	defaultWidth        = 80
	defaultHeight       = 24
	defaultHistoryLimit = 10000
	startTimeout        = 5 * time.Second
)

// ErrTmuxNotFound is returned by Open when no tmux binary is available.
var ErrTmuxNotFound = errors.New("tmuxterm: tmux not found")

// Options configures Open.
type Options struct {
	// TmuxPath overrides the binary. Default: $WINDRIVER_TMUX, then $PATH.
	TmuxPath string
	// Command is the program run in the pane. Default: $SHELL or /bin/sh.
	Command []string
	Dir     string
	Env     []string
	Width   int
	Height  int
	// Scrollback makes BufferLines return the history too, not only the
	// visible screen.
	Scrollback   bool
	HistoryLimit int
}

func (o *Options) defaults() {
	if len(o.Command) == 0 {
		sh := os.Getenv("SHELL")
		if sh == "" {
			sh = "/bin/sh"
		}
		o.Command = []string{sh}
	}
	if o.Width <= 0 {
		o.Width = defaultWidth
	}
	if o.Height <= 0 {
		o.Height = defaultHeight
	}
	if o.HistoryLimit <= 0 {
		o.HistoryLimit = defaultHistoryLimit
	}
}

// Terminal is one tmux pane.
type Terminal struct {
	r          *runner
	pane       string
	dir        string
	scrollback bool

	closeOnce sync.Once
	closeErr  error
}

var _ driver.Terminal = (*Terminal)(nil)

// Open starts an isolated tmux server running opts.Command.
func Open(ctx context.Context, opts Options) (*Terminal, error) {
	opts.defaults()

	tmuxPath, err := resolveTmuxPath(opts.TmuxPath)
	if err != nil {
		return nil, err
	}
	v, err := version(ctx, tmuxPath)
	if err != nil {
		return nil, fmt.Errorf("tmuxterm: open: %w", err)
	}
	if !versionAtLeast(v, minTmuxVersion) {
		return nil, fmt.Errorf("tmuxterm: open: tmux version %s is below minimum %s", v, minTmuxVersion)
	}

	dir, err := os.MkdirTemp("", "windriver-tmux-")
	if err != nil {
		return nil, fmt.Errorf("tmuxterm: open: %w", err)
	}
	r := &runner{
		tmuxPath:   tmuxPath,
		socketPath: filepath.Join(dir, "tmux.sock"),
		configPath: filepath.Join(dir, "tmux.conf"),
	}
	config := fmt.Sprintf("set-option -g history-limit %d\nset-option -g remain-on-exit on\nset-option -g status off\n", opts.HistoryLimit)
	if err := os.WriteFile(r.configPath, []byte(config), 0o644); err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("tmuxterm: open: write config: %w", err)
	}

	args := []string{"new-session", "-d", "-x", strconv.Itoa(opts.Width), "-y", strconv.Itoa(opts.Height)}
	if opts.Dir != "" {
		args = append(args, "-c", opts.Dir)
	}
	for _, e := range opts.Env {
		args = append(args, "-e", e)
	}
	args = append(args, "--")
	args = append(args, opts.Command...)
	if _, err := r.run(ctx, args...); err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("tmuxterm: open: start session: %w", err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, startTimeout)
	defer cancel()
	pane, err := r.waitForSession(waitCtx)
	if err != nil {
		r.run(context.Background(), "kill-server")
		os.RemoveAll(dir)
		return nil, err
	}
	return &Terminal{r: r, pane: pane, dir: dir, scrollback: opts.Scrollback}, nil
}

func resolveTmuxPath(configured string) (string, error) {
	if configured != "" {
		return configured, nil
	}
	if env := os.Getenv("WINDRIVER_TMUX"); env != "" {
		return env, nil
	}
	found, err := exec.LookPath("tmux")
	if err != nil {
		return "", ErrTmuxNotFound
	}
	return found, nil
}

// BufferLines returns the rendered lines top to bottom, with trailing
// spaces and trailing blank rows removed.
func (t *Terminal) BufferLines(ctx context.Context) ([]string, error) {
	args := []string{"capture-pane", "-p", "-t", t.pane}
	if t.scrollback {
		args = append(args, "-S", "-", "-E", "-")
	}
	out, err := t.r.run(ctx, args...)
	if err != nil {
		return nil, fmt.Errorf("tmuxterm: capture: %w", err)
	}
	return splitScreen(out), nil
}

// Input types text into the pane literally; "\r" is Enter.
func (t *Terminal) Input(ctx context.Context, text string) error {
	if _, err := t.r.run(ctx, "send-keys", "-t", t.pane, "-l", "--", text); err != nil {
		return fmt.Errorf("tmuxterm: send keys: %w", err)
	}
	return nil
}

// StatusUnknown is the exit status Exited reports when tmux marks the
// pane dead without recording a status.
const StatusUnknown = -1

// Exited reports whether the pane's program has exited, and its status.
// The status is StatusUnknown when tmux does not provide one.
func (t *Terminal) Exited(ctx context.Context) (bool, int, error) {
	out, err := t.r.run(ctx, "list-panes", "-t", t.pane, "-F", "#{pane_dead} #{pane_dead_status}")
	if err != nil {
		return false, 0, fmt.Errorf("tmuxterm: pane state: %w", err)
	}
	dead, status := parsePaneState(out)
	return dead, status, nil
}

// parsePaneState decodes "#{pane_dead} #{pane_dead_status}".
func parsePaneState(out string) (dead bool, status int) {
	first, _, _ := strings.Cut(strings.TrimSpace(out), "\n")
	flag, code, _ := strings.Cut(strings.TrimSpace(first), " ")
	if flag != "1" {
		return false, 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(code))
	if err != nil {
		return true, StatusUnknown
	}
	return true, n
}

// Close kills the tmux server and removes its socket.
func (t *Terminal) Close() error {
	t.closeOnce.Do(func() {
		_, err := t.r.run(context.Background(), "kill-server")
		t.closeErr = errors.Join(err, os.RemoveAll(t.dir))
	})
	return t.closeErr
}

func splitScreen(out string) []string {
	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " ")
	}
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	if lines == nil {
		lines = []string{}
	}
	return lines
}
