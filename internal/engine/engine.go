// Package engine runs one suggestion loop: capture pane context, compose the
// prompt, call the model, parse the reply, deliver the result. Everything is
// synchronous; the model call is the only suspension point and carries the
// configured deadline.
package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/sai-cli/sai-cli/internal/config"
	"github.com/sai-cli/sai-cli/internal/guard"
	"github.com/sai-cli/sai-cli/internal/parse"
	"github.com/sai-cli/sai-cli/internal/prompt"
	"github.com/sai-cli/sai-cli/internal/provider"
	"github.com/sai-cli/sai-cli/internal/tmux"
)

// ErrUnparseable reports that the model reply did not match the expected
// shape. The process fails with a diagnostic but the pane is never touched.
var ErrUnparseable = errors.New("model reply did not contain a usable suggestion")

// BlockedError reports a suggested command that matched a destructive
// pattern and was withheld pending explicit confirmation.
type BlockedError struct {
	Command string
	Pattern string
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("refusing to deliver %q (matched destructive pattern %s); re-run with --force to override", e.Command, e.Pattern)
}

// Pane is the slice of tmux operations the loop needs. *tmux.Adapter
// implements it; tests substitute fakes.
type Pane interface {
	Capture(target string, scrollback, maxLines int) (tmux.Context, error)
	PaneID(target string) (string, error)
	SendText(target, text string) error
}

// Request is one invocation of the loop.
type Request struct {
	Target     string
	Text       string
	Scrollback int
	Explain    bool
	Force      bool
	System     string        // override system instruction, "" for built-in
	Context    *tmux.Context // pre-supplied context (piped stdin); skips capture
	DropLast   bool          // drop the final captured line (our own invocation)
}

// Result carries the parsed suggestion back to the CLI for printing. Prose is
// the reply with the command block removed.
type Result struct {
	Suggestion parse.Suggestion
	Prose      string
	Delivered  bool
}

type Engine struct {
	Pane     Pane
	Provider provider.Provider
	Model    string
	Cfg      *config.Config
	Logger   *zap.Logger
}

func (e *Engine) Run(ctx context.Context, req Request) (*Result, error) {
	var paneCtx tmux.Context
	var paneID string

	// Resolve the pane identity up front whenever the pane will be read or
	// written; explain mode fed from stdin needs no pane at all.
	if req.Context == nil || !req.Explain {
		id, err := e.Pane.PaneID(req.Target)
		if err != nil {
			return nil, err
		}
		paneID = id
	}

	if req.Context != nil {
		paneCtx = *req.Context
	} else {
		var err error
		paneCtx, err = e.Pane.Capture(req.Target, req.Scrollback, e.Cfg.CaptureLines)
		if err != nil {
			return nil, err
		}
		if req.DropLast && len(paneCtx.Lines) > 0 {
			paneCtx.Lines = paneCtx.Lines[:len(paneCtx.Lines)-1]
		}
	}

	system := req.System
	if system == "" {
		system = prompt.SystemInstruction(req.Explain)
	}
	p, err := prompt.Compose(system, paneCtx, req.Text, e.Cfg.PromptBudget)
	if err != nil {
		return nil, err
	}
	e.Logger.Debug("prompt composed",
		zap.Int("context_lines", len(paneCtx.Lines)),
		zap.Bool("truncated", p.Truncated),
		zap.Int("size", len(p.System)+len(p.UserMessage())))

	callCtx, cancel := context.WithTimeout(ctx, time.Duration(e.Cfg.Timeout)*time.Second)
	defer cancel()
	reply, err := e.Provider.Complete(callCtx, e.Model, []provider.Message{
		{Role: "system", Content: p.System},
		{Role: "user", Content: p.UserMessage()},
	})
	if err != nil {
		e.Logger.Error("model call failed", zap.String("provider", e.Provider.Name()), zap.Error(err))
		return nil, err
	}
	e.Logger.Info("model replied",
		zap.String("provider", e.Provider.Name()),
		zap.String("model", e.Model),
		zap.Int("reply_chars", len(reply)))

	if req.Explain {
		s := parse.ExplainReply(reply)
		if s.Kind == parse.Unparseable {
			return &Result{Suggestion: s}, ErrUnparseable
		}
		return &Result{Suggestion: s}, nil
	}

	s := parse.CommandReply(reply)
	res := &Result{Suggestion: s, Prose: parse.Prose(reply)}
	if s.Kind == parse.Unparseable {
		return res, ErrUnparseable
	}

	if !req.Force {
		if pattern := guard.Check(s.Text); pattern != "" {
			return res, &BlockedError{Command: s.Text, Pattern: pattern}
		}
	}

	// The pane may have died between capture and now; re-validate its
	// identity and fail closed rather than typing into a stranger.
	if paneID != "" {
		id, err := e.Pane.PaneID(req.Target)
		if err != nil {
			return res, err
		}
		if id != paneID {
			return res, fmt.Errorf("%w: pane changed identity since capture", tmux.ErrPaneUnavailable)
		}
	}
	if err := e.Pane.SendText(req.Target, s.Text); err != nil {
		return res, err
	}
	res.Delivered = true
	e.logCommand(s.Text)
	e.Logger.Info("command delivered", zap.String("target", req.Target), zap.String("command", s.Text))
	return res, nil
}

func (e *Engine) logCommand(command string) {
	if e.Cfg.CommandLog == "" {
		return
	}
	f, err := os.OpenFile(e.Cfg.CommandLog, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		e.Logger.Warn("command log unavailable", zap.Error(err))
		return
	}
	defer f.Close()
	fmt.Fprintln(f, command)
}

// Exit codes let scripting callers tell failure classes apart.
const (
	ExitOK              = 0
	ExitUsage           = 1
	ExitPaneUnavailable = 2
	ExitBackend         = 3
	ExitTimeout         = 4
	ExitUnparseable     = 5
	ExitRequestTooLarge = 6
)

// ExitCodeFor maps the error taxonomy onto process exit codes.
func ExitCodeFor(err error) int {
	var apiErr *provider.APIError
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, tmux.ErrPaneUnavailable):
		return ExitPaneUnavailable
	case errors.Is(err, provider.ErrTimeout), errors.Is(err, provider.ErrTransient):
		return ExitTimeout
	case errors.As(err, &apiErr):
		return ExitBackend
	case errors.Is(err, ErrUnparseable):
		return ExitUnparseable
	case errors.Is(err, prompt.ErrRequestTooLarge):
		return ExitRequestTooLarge
	default:
		return ExitUsage
	}
}
