package alertlens

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/redactyl/alertlens/internal/cache"
	"github.com/redactyl/alertlens/internal/config"
	"github.com/redactyl/alertlens/internal/contextdocs"
	"github.com/redactyl/alertlens/internal/engine"
	"github.com/redactyl/alertlens/internal/llm"
	"github.com/redactyl/alertlens/internal/logging"
	"github.com/redactyl/alertlens/internal/rules"
)

// settings is the effective configuration of one command after applying
// CLI > local > global precedence.
type settings struct {
	root      string
	threads   int
	failOn    string
	minRisk   int
	noColor   bool
	noCache   bool
	rules     string
	docs      string
	include   string
	exclude   string
	logLevel  string
	logFormat string
	llm       config.LLMConfig
	log       zerolog.Logger
}

func resolve(root string) (settings, error) {
	var gcfg, lcfg config.FileConfig
	if c, err := config.LoadGlobal(); err == nil {
		gcfg = c
	}
	if flagConfig != "" {
		c, err := config.LoadFile(flagConfig)
		if err != nil {
			return settings{}, fmt.Errorf("config %s: %w", flagConfig, err)
		}
		lcfg = c
	} else if c, err := config.LoadLocal(root); err == nil {
		lcfg = c
	}

	s := settings{
		root:      root,
		threads:   pickInt(flagThreads, lcfg.Threads, gcfg.Threads),
		failOn:    pickString(flagFailOn, lcfg.FailOn, gcfg.FailOn),
		minRisk:   pickInt(flagMinRisk, lcfg.MinRisk, gcfg.MinRisk),
		noColor:   pickBool(flagNoColor, lcfg.NoColor, gcfg.NoColor),
		noCache:   pickBool(flagNoCache, lcfg.NoCache, gcfg.NoCache),
		rules:     pickString(flagRules, lcfg.Rules, gcfg.Rules),
		docs:      pickString(flagDocs, lcfg.DocsDir, gcfg.DocsDir),
		include:   pickString(flagInclude, lcfg.Include, gcfg.Include),
		exclude:   pickString(flagExclude, lcfg.Exclude, gcfg.Exclude),
		logLevel:  pickString(flagLogLevel, lcfg.LogLevel, gcfg.LogLevel),
		logFormat: pickString(flagLogFormat, lcfg.LogFormat, gcfg.LogFormat),
		llm:       mergeLLM(lcfg.GetLLMConfig(), gcfg.GetLLMConfig()),
	}
	if s.failOn == "" {
		s.failOn = "high"
	}
	if !isTerminal(os.Stdout) {
		s.noColor = true
	}
	s.log = logging.New(s.logLevel, s.logFormat, os.Stderr)
	return s, nil
}

// mergeLLM fills the unset fields of local from global.
func mergeLLM(local, global config.LLMConfig) config.LLMConfig {
	if local.Endpoint == nil {
		local.Endpoint = global.Endpoint
	}
	if local.Model == nil {
		local.Model = global.Model
	}
	if local.Timeout == nil {
		local.Timeout = global.Timeout
	}
	if local.Enabled == nil {
		local.Enabled = global.Enabled
	}
	if local.APIKeyEnv == nil || *local.APIKeyEnv == config.DefaultAPIKeyEnv {
		if global.APIKeyEnv != nil {
			local.APIKeyEnv = global.APIKeyEnv
		}
	}
	return local
}

type analyzerParams struct {
	useLLM     bool
	includeRaw bool
	cache      *cache.Store
	sink       engine.Sink
	progress   func()
}

func newAnalyzer(s settings, p analyzerParams) (*engine.Analyzer, error) {
	opts := engine.Options{
		Logger:     s.log,
		IncludeRaw: p.includeRaw,
		Sink:       p.sink,
		Progress:   p.progress,
	}
	if s.rules != "" {
		rs, err := rules.LoadFile(s.rules)
		if err != nil {
			return nil, fmt.Errorf("rules %s: %w", s.rules, err)
		}
		opts.Rules = rs
	}
	docsDir := s.docs
	if docsDir == "" {
		if fi, err := os.Stat(filepath.Join(s.root, "th-context")); err == nil && fi.IsDir() {
			docsDir = filepath.Join(s.root, "th-context")
		}
	}
	if docsDir != "" {
		opts.Docs = contextdocs.New(docsDir, logging.Component(s.log, "contextdocs"))
	}
	if p.useLLM || s.llm.IsEnabled() {
		cfg := llm.Config{
			Endpoint: s.llm.GetEndpoint(),
			Model:    s.llm.GetModel(),
			APIKey:   s.llm.APIKey(),
			Timeout:  s.llm.GetTimeout(),
			Logger:   logging.Component(s.log, "llm"),
		}
		if opts.Docs != nil {
			cfg.Reference = opts.Docs.CombinedSummary(contextdocs.DefaultSummaryLen)
		}
		provider, err := llm.NewHTTPProvider(cfg)
		if err != nil {
			return nil, err
		}
		opts.LLM = provider
	}
	if p.cache != nil {
		opts.Cache = p.cache
	}
	return engine.New(opts), nil
}

// openCache returns nil when caching is disabled. A corrupt cache file is
// logged and replaced on the next save.
func openCache(s settings) *cache.Store {
	if s.noCache {
		return nil
	}
	store, err := cache.Load(s.root)
	if err != nil {
		s.log.Warn().Err(err).Msg("ignoring unreadable cache")
	}
	return store
}

func saveCache(s settings, store *cache.Store) {
	if store == nil {
		return
	}
	if err := store.Save(); err != nil {
		s.log.Warn().Err(err).Msg("cache not saved")
	}
}

func withLogger(ctx context.Context, s settings) context.Context {
	return s.log.WithContext(ctx)
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

func pickString(cli string, local, global *string) string {
	if cli != "" {
		return cli
	}
	if local != nil && *local != "" {
		return *local
	}
	if global != nil && *global != "" {
		return *global
	}
	return ""
}

func pickInt(cli int, local, global *int) int {
	if cli != 0 {
		return cli
	}
	if local != nil && *local != 0 {
		return *local
	}
	if global != nil && *global != 0 {
		return *global
	}
	return 0
}

func pickBool(cli bool, local, global *bool) bool {
	if cli {
		return true
	}
	if local != nil {
		return *local
	}
	if global != nil {
		return *global
	}
	return false
}

func writeIndentedJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// stdoutFile returns the command's output as a file when it is one, for
// terminal checks.
func stdoutFile(cmd *cobra.Command) *os.File {
	if f, ok := cmd.OutOrStdout().(*os.File); ok {
		return f
	}
	return os.Stdout
}
