package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sai-cli/sai-cli/internal/config"
	"github.com/spf13/cobra"
)

var defaultSaiYAML = `default_model: openai/gpt-4o-mini

# Pane capture and prompt limits
capture_lines: 200
prompt_budget: 16000

# Model call deadline (seconds) and transient-failure retries
timeout: 60
retries: 2

log_level: info
# command_log: ~/.sai/commands.log

providers:
  openai:
    type: openai
    api_key: ${OPENAI_API_KEY}
    base_url: https://api.openai.com/v1
    models:
      - gpt-4o
      - gpt-4o-mini
  anthropic:
    type: anthropic
    api_key: ${ANTHROPIC_API_KEY}
    base_url: https://api.anthropic.com
    models:
      - claude-sonnet-4-20250514
      - claude-haiku-4-20250414
  openrouter:
    type: openai
    api_key: ${OPENROUTER_API_KEY}
    base_url: https://openrouter.ai/api/v1
    models:
      - nousresearch/hermes-3-llama-3.1-405b:free
  xai:
    type: openai
    api_key: ${XAI_API_KEY}
    base_url: https://api.x.ai/v1
    models:
      - grok-beta
  deepseek:
    type: openai
    api_key: ${DEEPSEEK_API_KEY}
    base_url: https://api.deepseek.com/v1
    models:
      - deepseek-chat
  ollama:
    type: openai
    base_url: http://localhost:11434/v1
    models:
      - llama3
`

func init() {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Initialize default config in ~/.sai/",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := config.SaiDir()
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}

			saiPath := filepath.Join(dir, "sai.yaml")
			if _, err := os.Stat(saiPath); os.IsNotExist(err) {
				if err := os.WriteFile(saiPath, []byte(defaultSaiYAML), 0o644); err != nil {
					return err
				}
				fmt.Println("Created", saiPath)
			} else {
				fmt.Println("Exists", saiPath)
			}

			fmt.Println(sOK.Render("✔") + " sai initialized at " + dir)
			return nil
		},
	})
}
