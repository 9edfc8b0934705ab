package tmuxterm

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// runner executes tmux commands against one private server socket.
type runner struct {
	tmuxPath   string
	socketPath string
	configPath string
}

func (r *runner) run(ctx context.Context, args ...string) (string, error) {
	var fullArgs []string
	if r.configPath != "" {
		fullArgs = append(fullArgs, "-f", r.configPath)
	}
	fullArgs = append(fullArgs, "-S", r.socketPath)
	fullArgs = append(fullArgs, args...)
	cmd := exec.CommandContext(ctx, r.tmuxPath, fullArgs...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", &Error{
			Op:     args[0],
			Args:   fullArgs,
			Stderr: strings.TrimSpace(stderr.String()),
			Err:    err,
		}
	}
	return stdout.String(), nil
}

// waitForSession polls until the server answers or ctx ends.
func (r *runner) waitForSession(ctx context.Context) (pane string, err error) {
	for {
		out, err := r.run(ctx, "list-panes", "-F", "#{pane_id}")
		if err == nil {
			if pane = strings.TrimSpace(out); pane != "" {
				return strings.SplitN(pane, "\n", 2)[0], nil
			}
		}
		select {
		case <-ctx.Done():
			return "", fmt.Errorf("tmuxterm: session not ready: %w", ctx.Err())
		case <-time.After(10 * time.Millisecond):
		}
	}
}

// Error represents a tmux command failure.
type Error struct {
	Op     string
	Args   []string
	Stderr string
	Err    error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("tmux %s failed: %v", e.Op, e.Err)
	if e.Stderr != "" {
		msg += "\nstderr: " + e.Stderr
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// version runs "tmux -V" and returns the version string (e.g. "3.4").
func version(ctx context.Context, tmuxPath string) (string, error) {
	out, err := exec.CommandContext(ctx, tmuxPath, "-V").Output()
	if err != nil {
		return "", fmt.Errorf("tmux -V failed: %w", err)
	}
	// "tmux 3.4" or "tmux next-3.5"
	return strings.TrimPrefix(strings.TrimSpace(string(out)), "tmux "), nil
}

var versionRe = regexp.MustCompile(`(\d+)\.(\d+)`)

// versionAtLeast handles version strings like "3.4", "next-3.5", "3.3a".
func versionAtLeast(version, minVersion string) bool {
	parse := func(v string) (int, int, bool) {
		m := versionRe.FindStringSubmatch(v)
		if m == nil {
			return 0, 0, false
		}
		major, _ := strconv.Atoi(m[1])
		minor, _ := strconv.Atoi(m[2])
		return major, minor, true
	}

	vMajor, vMinor, ok1 := parse(version)
	mMajor, mMinor, ok2 := parse(minVersion)
	if !ok1 || !ok2 {
		return false
	}
	if vMajor != mMajor {
		return vMajor > mMajor
	}
	return vMinor >= mMinor
}
