package config

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// FileConfig is the on-disk YAML configuration shape for alertlens.
type FileConfig struct {
	Include   *string `yaml:"include"`
	Exclude   *string `yaml:"exclude"`
	Threads   *int    `yaml:"threads"`
	LogLevel  *string `yaml:"log_level"`
	LogFormat *string `yaml:"log_format"`
	FailOn    *string `yaml:"fail_on"`
	MinRisk   *int    `yaml:"min_risk"`
	NoColor   *bool   `yaml:"no_color"`
	NoCache   *bool   `yaml:"no_cache"`

	// Rules points at a YAML rule file replacing the embedded keyword and
	// severity tables.
	Rules   *string `yaml:"rules"`
	DocsDir *string `yaml:"docs_dir"`

	LLM *LLMConfig `yaml:"llm"`
}

// LLMConfig configures the optional chat-completions provider.
type LLMConfig struct {
	Endpoint *string `yaml:"endpoint"`
	Model    *string `yaml:"model"`
	// APIKeyEnv names the environment variable holding the API key. The key
	// itself is never read from the file.
	APIKeyEnv *string `yaml:"api_key_env"`
	Timeout   *string `yaml:"timeout"`
	Enabled   *bool   `yaml:"enabled"`
}

const (
	DefaultAPIKeyEnv  = "ALERTLENS_API_KEY"
	DefaultLLMTimeout = 60 * time.Second
)

// LoadFile reads a YAML config file from the provided path.
func LoadFile(path string) (FileConfig, error) {
	var cfg FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LocalNames are searched in order by LoadLocal.
var LocalNames = []string{".alertlens.yml", ".alertlens.yaml", "alertlens.yml", "alertlens.yaml"}

// LoadLocal searches for a config file in the given root.
func LoadLocal(root string) (FileConfig, error) {
	var cfg FileConfig
	for _, name := range LocalNames {
		p := filepath.Join(root, name)
		if _, err := os.Stat(p); err == nil {
			return LoadFile(p)
		}
	}
	return cfg, errors.New("no local config")
}

// LoadGlobal loads the global config file from XDG base directory or ~/.config.
func LoadGlobal() (FileConfig, error) {
	var cfg FileConfig
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, _ := os.UserHomeDir()
		if home != "" {
			base = filepath.Join(home, ".config")
		}
	}
	if base == "" {
		return cfg, errors.New("no config dir")
	}
	p := filepath.Join(base, "alertlens", "config.yml")
	if _, err := os.Stat(p); err == nil {
		return LoadFile(p)
	}
	return cfg, errors.New("no global config")
}

// GetLLMConfig returns the LLM section with defaults for nil fields.
func (fc FileConfig) GetLLMConfig() LLMConfig {
	var cfg LLMConfig
	if fc.LLM != nil {
		cfg = *fc.LLM
	}
	if cfg.APIKeyEnv == nil {
		env := DefaultAPIKeyEnv
		cfg.APIKeyEnv = &env
	}
	return cfg
}

// IsEnabled reports whether LLM mode is switched on (default: false).
func (lc LLMConfig) IsEnabled() bool {
	return lc.Enabled != nil && *lc.Enabled
}

func (lc LLMConfig) GetEndpoint() string {
	if lc.Endpoint == nil {
		return ""
	}
	return *lc.Endpoint
}

func (lc LLMConfig) GetModel() string {
	if lc.Model == nil {
		return ""
	}
	return *lc.Model
}

// APIKey reads the key from the configured environment variable.
func (lc LLMConfig) APIKey() string {
	name := DefaultAPIKeyEnv
	if lc.APIKeyEnv != nil && *lc.APIKeyEnv != "" {
		name = *lc.APIKeyEnv
	}
	return os.Getenv(name)
}

// GetTimeout parses the timeout, falling back to DefaultLLMTimeout when it is
// unset or invalid.
func (lc LLMConfig) GetTimeout() time.Duration {
	if lc.Timeout == nil {
		return DefaultLLMTimeout
	}
	d, err := time.ParseDuration(*lc.Timeout)
	if err != nil || d <= 0 {
		return DefaultLLMTimeout
	}
	return d
}

// Starter is written by `alertlens config init`.
const Starter = `# alertlens configuration
threads: 0          # 0 uses every CPU
log_level: warn
log_format: console
fail_on: high       # low | medium | high | critical | none
min_risk: 0
no_color: false
no_cache: false
# include: "**/200025_*"
# exclude: "**/archive/**"
# rules: rules.yaml
# docs_dir: th-context
llm:
  enabled: false
  endpoint: https://api.openai.com/v1
  model: gpt-4o-mini
  api_key_env: ALERTLENS_API_KEY
  timeout: 60s
`
