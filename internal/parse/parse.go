// Package parse turns a raw model reply into a Suggestion. It never executes
// or evaluates the text; anything outside the expected shape degrades to
// Unparseable rather than a guess.
package parse

import (
	"regexp"
	"strings"
)

type Kind int

const (
	Unparseable Kind = iota
	Command
	Explanation
)

func (k Kind) String() string {
	switch k {
	case Command:
		return "command"
	case Explanation:
		return "explanation"
	default:
		return "unparseable"
	}
}

// Suggestion is the parsed outcome of one model reply. A Command suggestion
// is always a single line with no embedded newline.
type Suggestion struct {
	Kind Kind
	Text string
}

var fenceRe = regexp.MustCompile("(?s)```(?:bash|sh|shell)?[ \t]*\n(.*?)```")

// CommandReply parses a reply produced under the command instruction: the
// reply must contain exactly one fenced block holding a single command line.
// Zero blocks, several blocks, or a multi-line block all yield Unparseable.
func CommandReply(reply string) Suggestion {
	blocks := fenceRe.FindAllStringSubmatch(reply, -1)
	if len(blocks) != 1 {
		return Suggestion{Kind: Unparseable, Text: reply}
	}
	command := cleanCommand(blocks[0][1])
	if command == "" || strings.Contains(command, "\n") {
		return Suggestion{Kind: Unparseable, Text: reply}
	}
	return Suggestion{Kind: Command, Text: command}
}

// ExplainReply parses a reply produced under the explain instruction: plain
// prose, with any stray fences stripped of their markers.
func ExplainReply(reply string) Suggestion {
	text := strings.TrimSpace(reply)
	if text == "" {
		return Suggestion{Kind: Unparseable}
	}
	return Suggestion{Kind: Explanation, Text: text}
}

// Prose returns the reply with its fenced block removed, for printing above
// the delivered command.
func Prose(reply string) string {
	return strings.TrimSpace(fenceRe.ReplaceAllString(reply, ""))
}

// cleanCommand strips whitespace and quoting artifacts models wrap commands
// in: surrounding backticks or quotes and a leading "$ " prompt marker.
func cleanCommand(raw string) string {
	s := strings.TrimSpace(raw)
	for {
		trimmed := s
		trimmed = strings.TrimSpace(trimmed)
		if len(trimmed) >= 2 {
			for _, q := range []string{"`", `"`, "'"} {
				if strings.HasPrefix(trimmed, q) && strings.HasSuffix(trimmed, q) {
					trimmed = trimmed[1 : len(trimmed)-1]
				}
			}
		}
		trimmed = strings.TrimPrefix(trimmed, "$ ")
		if trimmed == s {
			return s
		}
		s = trimmed
	}
}
