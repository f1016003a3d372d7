package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/sai-cli/sai-cli/internal/config"
	"github.com/sai-cli/sai-cli/internal/engine"
	"github.com/sai-cli/sai-cli/internal/provider"
	"github.com/sai-cli/sai-cli/internal/research"
	"github.com/sai-cli/sai-cli/internal/tmux"
)

var (
	sInfo  = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	sErr   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	sOK    = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	sFaint = lipgloss.NewStyle().Faint(true)
)

var (
	explainFlag    bool
	targetFlag     string
	scrollbackFlag int
	modelFlag      string
	quietFlag      bool
	fileFlag       string
	sysPromptFlag  string
	forceFlag      bool
	researchFlag   bool
)

var rootCmd = &cobra.Command{
	Use:   "sai [flags] <request...>",
	Short: "sai — AI assistant for your tmux pane",
	Long: `sai — AI assistant for your tmux pane.

Reads the scrollback of the active tmux pane, sends it with your request to a
language model, and places the suggested command on the pane's input line for
you to review. The command is never submitted automatically.

Examples:
  sai "fix this command"
  sai -e "what does this error mean"
  sai -S 500 -t mysession:1.0 "why did the build fail"
  git log | sai "summarize what changed this week"`,
	Args:          cobra.ArbitraryArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 && fileFlag == "" {
			return cmd.Help()
		}
		return runSuggest(args)
	},
}

func init() {
	f := rootCmd.Flags()
	f.BoolVarP(&explainFlag, "explain", "e", false, "explain instead of suggesting a command; never touches the pane")
	f.StringVarP(&targetFlag, "target", "t", "", "target tmux pane (default: current pane)")
	f.IntVarP(&scrollbackFlag, "scrollback", "S", 0, "scrollback lines to include beyond the visible screen")
	f.StringVarP(&modelFlag, "model", "m", "", "model as provider/model (default: from config)")
	f.BoolVarP(&quietFlag, "quiet", "q", false, "suppress the model's prose, only insert the command")
	f.StringVar(&fileFlag, "file", "", "append file contents to the request")
	f.StringVar(&sysPromptFlag, "system-prompt", "", "file containing a custom system instruction")
	f.BoolVar(&forceFlag, "force", false, "deliver commands matching destructive patterns")
	f.BoolVar(&researchFlag, "research", false, "enrich the prompt with Stack Overflow answers (needs Chrome)")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, sErr.Render("✘ ")+err.Error())
		os.Exit(engine.ExitCodeFor(err))
	}
}

func runSuggest(args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("run 'sai init' first: %w", err)
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	prov, model, err := buildProvider(cfg, modelFlag, logger)
	if err != nil {
		return err
	}

	request := strings.Join(args, " ")
	if fileFlag != "" {
		data, err := os.ReadFile(fileFlag)
		if err != nil {
			return fmt.Errorf("read --file: %w", err)
		}
		request = strings.TrimSpace(request + "\n" + string(data))
	}

	var system string
	if sysPromptFlag != "" {
		data, err := os.ReadFile(sysPromptFlag)
		if err != nil {
			return fmt.Errorf("read --system-prompt: %w", err)
		}
		system = string(data)
	}

	// A user interrupt during the model call aborts the invocation; nothing
	// is ever delivered after a cancel.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	adapter := tmux.NewAdapter(tmux.RealExec{})

	req := engine.Request{
		Text:       request,
		Scrollback: scrollbackFlag,
		Explain:    explainFlag,
		Force:      forceFlag,
		System:     system,
	}

	stdinPiped := !term.IsTerminal(int(os.Stdin.Fd()))
	if stdinPiped {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		c := tmux.Context{Lines: strings.Split(strings.TrimRight(string(data), "\n"), "\n"), CapturedAt: time.Now()}
		req.Context = &c
	}

	if req.Context == nil || !explainFlag {
		if targetFlag != "" {
			req.Target = targetFlag
		} else {
			if !tmux.InsideTmux() {
				return fmt.Errorf("%w: not inside tmux and no --target given", tmux.ErrPaneUnavailable)
			}
			current, err := adapter.CurrentTarget()
			if err != nil {
				return err
			}
			req.Target = current
			// the capture's last line is our own invocation
			req.DropLast = req.Context == nil
		}
	}

	if researchFlag {
		enrichRequest(ctx, cfg, prov, model, adapter, &req, logger)
	}

	eng := &engine.Engine{Pane: adapter, Provider: prov, Model: model, Cfg: cfg, Logger: logger}

	run := func() (*engine.Result, error) { return eng.Run(ctx, req) }
	var res *engine.Result
	if term.IsTerminal(int(os.Stdout.Fd())) {
		res, err = runWithSpinner(stop, run)
	} else {
		res, err = run()
	}
	return report(res, err)
}

// report prints the outcome and passes the error through for exit-code
// mapping.
func report(res *engine.Result, err error) error {
	if errors.Is(err, engine.ErrUnparseable) && res != nil && res.Suggestion.Text != "" {
		preview := runewidth.Truncate(strings.ReplaceAll(res.Suggestion.Text, "\n", " "), 120, "…")
		return fmt.Errorf("%w; reply was: %s", err, preview)
	}
	if err != nil {
		return err
	}

	switch {
	case res.Delivered:
		if !quietFlag && res.Prose != "" {
			fmt.Println(render(res.Prose))
		}
		fmt.Println(sOK.Render("✔ ") + res.Suggestion.Text + sFaint.Render("  (pending — review and press Enter)"))
	default:
		// explanation mode
		fmt.Println(render(res.Suggestion.Text))
	}
	return nil
}

func render(markdown string) string {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return markdown
	}
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
	if err != nil {
		return markdown
	}
	out, err := r.Render(markdown)
	if err != nil {
		return markdown
	}
	return strings.TrimRight(out, "\n")
}

// enrichRequest runs the --research loop: have the model phrase the terminal
// context as a searchable question, scrape the first matching Stack Overflow
// thread, and append it to the request. Failures degrade to the plain prompt.
func enrichRequest(ctx context.Context, cfg *config.Config, prov provider.Provider, model string, adapter *tmux.Adapter, req *engine.Request, logger *zap.Logger) {
	var paneText string
	if req.Context != nil {
		paneText = req.Context.Text()
	} else if req.Target != "" {
		c, err := adapter.Capture(req.Target, req.Scrollback, cfg.CaptureLines)
		if err != nil {
			logger.Warn("research: capture failed", zap.Error(err))
			return
		}
		paneText = c.Text()
	}

	callCtx, cancel := context.WithTimeout(ctx, time.Duration(cfg.Timeout)*time.Second)
	defer cancel()
	query, err := prov.Complete(callCtx, model, []provider.Message{
		{Role: "system", Content: "Convert this terminal context into a clear technical question for a web search. Reply with only the question."},
		{Role: "user", Content: req.Text + ":\n" + paneText},
	})
	if err != nil {
		logger.Warn("research: query formulation failed", zap.Error(err))
		return
	}
	query = strings.Trim(strings.TrimSpace(query), `"'`)

	br, err := research.NewBrowser()
	if err != nil {
		logger.Warn("research: browser unavailable", zap.Error(err))
		return
	}
	defer br.Close()
	content, err := br.StackAnswers(ctx, query)
	if err != nil || content == "" {
		logger.Warn("research: no usable answers", zap.String("query", query), zap.Error(err))
		return
	}
	logger.Info("research: prompt enriched", zap.String("query", query), zap.Int("chars", len(content)))
	req.Text += "\n\nRelevant Stack Overflow information:\n" + content
}

func buildProvider(cfg *config.Config, override string, logger *zap.Logger) (provider.Provider, string, error) {
	ref := cfg.DefaultModel
	if override != "" {
		ref = override
	}
	if ref == "" {
		return nil, "", fmt.Errorf("no model configured: set default_model in %s/sai.yaml or pass --model", config.SaiDir())
	}
	name, model, err := config.SplitModel(ref)
	if err != nil {
		return nil, "", err
	}
	pConf, ok := cfg.Providers[name]
	if !ok {
		return nil, "", fmt.Errorf("unknown provider: %s", name)
	}
	dbg := logger.Sugar().Debugf
	switch pConf.Type {
	case "anthropic":
		return &provider.Anthropic{APIKey: pConf.APIKey, BaseURL: pConf.BaseURL, Retries: cfg.Retries, Debug: dbg}, model, nil
	default:
		return &provider.OpenAI{ProviderName: name, APIKey: pConf.APIKey, BaseURL: pConf.BaseURL, Retries: cfg.Retries, Debug: dbg}, model, nil
	}
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if err := os.MkdirAll(config.SaiDir(), 0o755); err != nil {
		return nil, err
	}
	level, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	loggerConfig := zap.NewProductionConfig()
	loggerConfig.Level = level
	loggerConfig.OutputPaths = []string{config.LogFile()}
	return loggerConfig.Build()
}
