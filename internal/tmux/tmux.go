// Package tmux wraps the tmux control commands the assistant needs: reading a
// pane's scrollback and placing pending keystrokes on its input line. Commands
// run through the Exec seam so tests can substitute a fake tmux binary.
package tmux

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// ErrPaneUnavailable reports that the target pane is gone or unreadable.
// It is fatal for the current invocation and never retried.
var ErrPaneUnavailable = errors.New("tmux pane unavailable")

// Exec runs a tmux subcommand and returns its stdout.
type Exec interface {
	Run(args ...string) (string, error)
}

// RealExec invokes the tmux binary on PATH.
type RealExec struct{}

func (RealExec) Run(args ...string) (string, error) {
	out, err := exec.Command("tmux", args...).Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return "", fmt.Errorf("tmux %s: %s", args[0], strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", fmt.Errorf("tmux %s: %w", args[0], err)
	}
	return string(out), nil
}

// Context is one bounded capture of a pane's text, read fresh per invocation.
type Context struct {
	Lines      []string
	Truncated  bool // capture hit the line limit
	CapturedAt time.Time
}

// Text joins the captured lines back into pane text.
func (c Context) Text() string {
	return strings.Join(c.Lines, "\n")
}

type Adapter struct {
	exec Exec
}

func NewAdapter(e Exec) *Adapter {
	return &Adapter{exec: e}
}

// InsideTmux reports whether the process runs inside a tmux client.
func InsideTmux() bool {
	return os.Getenv("TMUX") != ""
}

// CurrentTarget resolves the pane the user invoked us from, in
// session:window.pane form.
func (a *Adapter) CurrentTarget() (string, error) {
	out, err := a.exec.Run("display-message", "-p", "#S:#I.#P")
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrPaneUnavailable, err)
	}
	target := strings.TrimSpace(out)
	if target == "" {
		return "", ErrPaneUnavailable
	}
	return target, nil
}

// PaneID resolves a target to its stable pane identifier (%N). The ID is
// recorded at capture time and checked again right before delivery, so a pane
// that was closed and replaced in between fails closed instead of receiving
// stale keystrokes.
func (a *Adapter) PaneID(target string) (string, error) {
	out, err := a.exec.Run("display-message", "-t", target, "-p", "#{pane_id}")
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrPaneUnavailable, err)
	}
	id := strings.TrimSpace(out)
	if id == "" {
		return "", ErrPaneUnavailable
	}
	return id, nil
}

// Capture reads the pane's visible content plus up to scrollback extra lines,
// bounded by maxLines. -J joins wrapped lines so commands are not split
// mid-word.
func (a *Adapter) Capture(target string, scrollback, maxLines int) (Context, error) {
	if scrollback < 0 {
		scrollback = 0
	}
	out, err := a.exec.Run("capture-pane", "-p", "-J", "-t", target, "-S", "-"+strconv.Itoa(scrollback))
	if err != nil {
		return Context{}, fmt.Errorf("%w: %v", ErrPaneUnavailable, err)
	}
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	// capture-pane -J can leave trailing spaces after a terminal resize
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " ")
	}
	truncated := false
	if maxLines > 0 && len(lines) > maxLines {
		lines = lines[len(lines)-maxLines:]
		truncated = true
	}
	return Context{Lines: lines, Truncated: truncated, CapturedAt: time.Now()}, nil
}

// SendText places text on the pane's input line as pending keystrokes.
// -l sends literally and -- guards against text starting with a dash; no
// Enter is ever sent, the user reviews and submits.
func (a *Adapter) SendText(target, text string) error {
	if strings.Contains(text, "\n") {
		return fmt.Errorf("refusing to send multi-line text to pane %s", target)
	}
	if _, err := a.exec.Run("send-keys", "-l", "-t", target, "--", text); err != nil {
		return fmt.Errorf("%w: %v", ErrPaneUnavailable, err)
	}
	return nil
}
