package parse

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCommandReplySingleBlock(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  string
	}{
		{
			name:  "plain fence",
			reply: "You can list the root directory instead.\n```\nls /\n```",
			want:  "ls /",
		},
		{
			name:  "bash fence",
			reply: "Try this:\n```bash\ndu -sh * | sort -h\n```",
			want:  "du -sh * | sort -h",
		},
		{
			name:  "sh fence with surrounding whitespace",
			reply: "```sh\n   git push --force-with-lease   \n```",
			want:  "git push --force-with-lease",
		},
		{
			name:  "prompt artifact stripped",
			reply: "```sh\n$ systemctl status nginx\n```",
			want:  "systemctl status nginx",
		},
		{
			name:  "backtick wrapping stripped",
			reply: "```\n`uname -r`\n```",
			want:  "uname -r",
		},
		{
			name:  "semicolon-joined commands stay one line",
			reply: "explanation first\n```bash\ncd /tmp; ls -la\n```",
			want:  "cd /tmp; ls -la",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := CommandReply(tt.reply)
			assert.Equal(t, Command, s.Kind)
			assert.Equal(t, tt.want, s.Text)
			assert.NotContains(t, s.Text, "\n")
		})
	}
}

func TestCommandReplyUnparseable(t *testing.T) {
	tests := []struct {
		name  string
		reply string
	}{
		{name: "empty reply", reply: ""},
		{name: "prose only", reply: "I cannot help with that."},
		{name: "unclosed fence", reply: "```bash\nls /"},
		{
			name:  "two blocks",
			reply: "Either\n```bash\nls /\n```\nor\n```bash\nls /home\n```",
		},
		{
			name:  "multi-line block",
			reply: "```bash\ncd /tmp\nls -la\n```",
		},
		{name: "empty block", reply: "```bash\n\n```"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := CommandReply(tt.reply)
			assert.Equal(t, Unparseable, s.Kind)
		})
	}
}

func TestExplainReply(t *testing.T) {
	s := ExplainReply("  The error means the path does not exist.  ")
	assert.Equal(t, Explanation, s.Kind)
	assert.Equal(t, "The error means the path does not exist.", s.Text)

	assert.Equal(t, Unparseable, ExplainReply("").Kind)
	assert.Equal(t, Unparseable, ExplainReply("  \n ").Kind)
}

func TestProse(t *testing.T) {
	reply := "The directory is missing, list the root instead.\n```bash\nls /\n```"
	assert.Equal(t, "The directory is missing, list the root instead.", Prose(reply))

	assert.Equal(t, "no fences here", Prose("no fences here"))
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "command", Command.String())
	assert.Equal(t, "explanation", Explanation.String())
	assert.Equal(t, "unparseable", Unparseable.String())
}
