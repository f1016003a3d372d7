package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type Config struct {
	DefaultModel string                  `yaml:"default_model"` // "provider/model"
	CaptureLines int                     `yaml:"capture_lines"` // max pane lines read per invocation
	PromptBudget int                     `yaml:"prompt_budget"` // serialized prompt size limit in chars
	Timeout      int                     `yaml:"timeout"`       // model call deadline in seconds
	Retries      int                     `yaml:"retries"`       // retry count on transient backend failures
	LogLevel     string                  `yaml:"log_level"`
	CommandLog   string                  `yaml:"command_log"` // optional file collecting delivered commands
	Providers    map[string]ProviderConf `yaml:"providers"`
}

type ProviderConf struct {
	Type    string   `yaml:"type"` // "openai" (default) or "anthropic"
	APIKey  string   `yaml:"api_key"`
	BaseURL string   `yaml:"base_url"`
	Models  []string `yaml:"models"` // available models for this provider
}

func SaiDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".sai")
}

func LogFile() string {
	return filepath.Join(SaiDir(), "sai.log")
}

func Load() (*Config, error) {
	data, err := os.ReadFile(filepath.Join(SaiDir(), "sai.yaml"))
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	data = []byte(os.ExpandEnv(string(data)))
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.CaptureLines <= 0 {
		cfg.CaptureLines = 200
	}
	if cfg.PromptBudget <= 0 {
		cfg.PromptBudget = 16000
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60
	}
	if cfg.Retries < 0 {
		cfg.Retries = 2
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	return &cfg, nil
}

// SplitModel splits "provider/model" into its two halves.
func SplitModel(ref string) (providerName, model string, err error) {
	for i := 0; i < len(ref); i++ {
		if ref[i] == '/' {
			return ref[:i], ref[i+1:], nil
		}
	}
	return "", "", fmt.Errorf("invalid model format: %s (expected provider/model)", ref)
}
