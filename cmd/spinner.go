package cmd

import (
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/sai-cli/sai-cli/internal/engine"
)

type doneMsg struct {
	res *engine.Result
	err error
}

// waitModel shows a spinner while the suggestion loop runs in the
// background, on a TTY only.
type waitModel struct {
	spinner spinner.Model
	ch      chan doneMsg
	stop    func() // cancels the loop's context on Ctrl-C
	done    doneMsg
}

func waitForDone(ch chan doneMsg) tea.Cmd {
	return func() tea.Msg {
		return <-ch
	}
}

func (m waitModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitForDone(m.ch))
}

func (m waitModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case doneMsg:
		m.done = msg
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			// abort the model call; the loop reports the cancellation
			m.stop()
			return m, waitForDone(m.ch)
		}
		return m, nil
	default:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
}

func (m waitModel) View() string {
	return m.spinner.View() + sFaint.Render(" thinking...")
}

func runWithSpinner(stop func(), run func() (*engine.Result, error)) (*engine.Result, error) {
	ch := make(chan doneMsg, 1)
	go func() {
		res, err := run()
		ch <- doneMsg{res: res, err: err}
	}()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	final, err := tea.NewProgram(waitModel{spinner: sp, ch: ch, stop: stop}).Run()
	if err != nil {
		// terminal trouble; fall back to waiting without the spinner
		d := <-ch
		return d.res, d.err
	}
	d := final.(waitModel).done
	return d.res, d.err
}
