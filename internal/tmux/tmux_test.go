package tmux

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExec struct {
	out   string
	err   error
	calls [][]string
}

func (f *fakeExec) Run(args ...string) (string, error) {
	f.calls = append(f.calls, args)
	return f.out, f.err
}

func TestCaptureSplitsAndTrims(t *testing.T) {
	fe := &fakeExec{out: "line one   \nline two\n\n"}
	a := NewAdapter(fe)

	ctx, err := a.Capture("main:1.0", 0, 100)
	require.NoError(t, err)

	assert.Equal(t, []string{"line one", "line two"}, ctx.Lines)
	assert.False(t, ctx.Truncated)
	assert.False(t, ctx.CapturedAt.IsZero())

	require.Len(t, fe.calls, 1)
	assert.Equal(t, []string{"capture-pane", "-p", "-J", "-t", "main:1.0", "-S", "-0"}, fe.calls[0])
}

func TestCaptureBoundsLines(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 50; i++ {
		sb.WriteString("line\n")
	}
	fe := &fakeExec{out: sb.String()}
	a := NewAdapter(fe)

	ctx, err := a.Capture("main:1.0", 1000, 10)
	require.NoError(t, err)

	assert.Len(t, ctx.Lines, 10)
	assert.True(t, ctx.Truncated)
}

func TestCapturePaneGone(t *testing.T) {
	fe := &fakeExec{err: errors.New("can't find pane")}
	a := NewAdapter(fe)

	_, err := a.Capture("main:1.0", 0, 100)
	assert.ErrorIs(t, err, ErrPaneUnavailable)
}

func TestPaneID(t *testing.T) {
	fe := &fakeExec{out: "%42\n"}
	a := NewAdapter(fe)

	id, err := a.PaneID("main:1.0")
	require.NoError(t, err)
	assert.Equal(t, "%42", id)
	assert.Equal(t, []string{"display-message", "-t", "main:1.0", "-p", "#{pane_id}"}, fe.calls[0])
}

func TestCurrentTargetEmpty(t *testing.T) {
	fe := &fakeExec{out: "\n"}
	a := NewAdapter(fe)

	_, err := a.CurrentTarget()
	assert.ErrorIs(t, err, ErrPaneUnavailable)
}

func TestSendTextLiteralNoEnter(t *testing.T) {
	fe := &fakeExec{}
	a := NewAdapter(fe)

	require.NoError(t, a.SendText("main:1.0", "ls /"))

	require.Len(t, fe.calls, 1)
	assert.Equal(t, []string{"send-keys", "-l", "-t", "main:1.0", "--", "ls /"}, fe.calls[0])
	// nothing in the call sequence submits the command
	for _, call := range fe.calls {
		assert.NotContains(t, call, "Enter")
	}
}

func TestSendTextRefusesNewlines(t *testing.T) {
	fe := &fakeExec{}
	a := NewAdapter(fe)

	err := a.SendText("main:1.0", "ls\nrm -rf /")
	assert.Error(t, err)
	assert.Empty(t, fe.calls)
}
