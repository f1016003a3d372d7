// Package prompt assembles the model prompt from the captured pane text and
// the user's request, holding the serialized size under a fixed budget.
package prompt

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/sai-cli/sai-cli/internal/tmux"
)

// ErrRequestTooLarge reports that the user request alone blows the budget.
// Context is trimmed silently, user intent never is.
var ErrRequestTooLarge = errors.New("request exceeds prompt budget")

const commandInstruction = `You are an AI assistant invoked from a shell command named 'sai'. You see the
user's terminal scrollback but not interactive input. Guidelines:

DO end every response with exactly one command in a fenced code block:
  ` + "```sh" + `
  command
  ` + "```" + `

DO NOT use more than one code block. For multiple commands, join them with
semicolons on a single line.

DO precede the command with a brief explanation.

DO suggest a command that gathers information (--help, man page) when you are
not certain what is happening.

DO NOT suggest interactive programs such as vim, nano, less or top. Use
non-interactive alternatives like sed, echo >> or cat.

DO NOT add anything after the code block.`

const explainInstruction = `You are an AI assistant invoked from a shell command named 'sai'. You see the
user's terminal scrollback but not interactive input. Answer the user's
question about what is on their terminal in plain prose. Do not include fenced
code blocks; quote short fragments inline if needed.`

// Prompt is the composed model input. Context arrives pre-truncated to the
// budget; System and Request are passed through verbatim.
type Prompt struct {
	System    string
	Context   string
	Request   string
	Truncated bool // pane context was cut to fit the budget
}

// UserMessage renders the context and request into the single user turn the
// backends receive.
func (p Prompt) UserMessage() string {
	if p.Context == "" {
		return p.Request
	}
	return p.Request + ":\n" + p.Context
}

// SystemInstruction returns the built-in instruction for the given mode,
// with the host OS name appended so suggestions match the platform.
func SystemInstruction(explain bool) string {
	base := commandInstruction
	if explain {
		base = explainInstruction
	}
	return base + "\nuser os: " + osName()
}

func osName() string {
	data, err := os.ReadFile("/etc/os-release")
	if err != nil {
		return "linux"
	}
	for _, line := range strings.Split(string(data), "\n") {
		if name, ok := strings.CutPrefix(line, "NAME="); ok {
			return strings.Trim(strings.TrimSpace(name), `"`)
		}
	}
	return "linux"
}

// Compose builds a Prompt whose serialized size stays within budget chars,
// dropping the oldest context lines first. Same inputs under the same budget
// always yield the same Prompt.
func Compose(system string, ctx tmux.Context, request string, budget int) (Prompt, error) {
	p := Prompt{System: system, Request: request, Truncated: ctx.Truncated}

	fixed := len(system) + len(request) + len(":\n")
	if fixed > budget {
		return Prompt{}, fmt.Errorf("%w: %d chars over a budget of %d", ErrRequestTooLarge, fixed-budget, budget)
	}

	lines := ctx.Lines
	for len(lines) > 0 {
		joined := strings.Join(lines, "\n")
		if fixed+len(joined) <= budget {
			p.Context = joined
			return p, nil
		}
		lines = lines[1:]
		p.Truncated = true
	}
	return p, nil
}
