package alertlens

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/redactyl/alertlens/internal/audit"
	"github.com/redactyl/alertlens/internal/cache"
	"github.com/redactyl/alertlens/internal/engine"
	"github.com/redactyl/alertlens/internal/report"
	"github.com/redactyl/alertlens/internal/types"
)

const defaultBaseline = "alertlens.baseline.json"

var (
	flagInclude         string
	flagExclude         string
	flagDefaultExcludes bool
	flagBaseline        string
	flagWriteBaseline   bool
	flagText            bool
	flagNoHistory       bool
	flagBatchLLM        bool
)

func init() {
	cmd := &cobra.Command{
		Use:   "batch [root]",
		Short: "Discover and analyze every alert bundle under a root directory",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runBatch,
	}
	rootCmd.AddCommand(cmd)

	cmd.Flags().StringVar(&flagInclude, "include", "", "comma-separated include globs (doublestar)")
	cmd.Flags().StringVar(&flagExclude, "exclude", "", "comma-separated exclude globs (doublestar)")
	cmd.Flags().BoolVar(&flagDefaultExcludes, "default-excludes", true, "skip built-in directories (.git, node_modules, th-context, etc.)")
	cmd.Flags().StringVar(&flagBaseline, "baseline", "", "baseline file suppressing known findings (default <root>/"+defaultBaseline+")")
	cmd.Flags().BoolVar(&flagWriteBaseline, "write-baseline", false, "record the current findings as the baseline and exit")
	cmd.Flags().BoolVar(&flagText, "text", false, "plain text columns instead of a table")
	cmd.Flags().BoolVar(&flagNoHistory, "no-history", false, "do not append this run to the history log")
	cmd.Flags().BoolVar(&flagBatchLLM, "llm", false, "use the configured language model (falls back to rules on failure)")
}

func runBatch(cmd *cobra.Command, args []string) error {
	root := "."
	if len(args) == 1 {
		root = args[0]
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	s, err := resolve(abs)
	if err != nil {
		return err
	}
	ctx := withLogger(cmd.Context(), s)

	dirs, err := engine.Discover(engine.DiscoverConfig{
		Root:            abs,
		IncludeGlobs:    s.include,
		ExcludeGlobs:    s.exclude,
		DefaultExcludes: flagDefaultExcludes,
	})
	if err != nil {
		return err
	}

	quiet := flagJSON || flagSARIF
	if !quiet {
		_, _ = fmt.Fprintf(os.Stderr, "Analyzing %d alerts under %s...\n", len(dirs), abs)
	}
	var progress func()
	if total := len(dirs); total > 0 && !quiet && isTerminal(os.Stderr) {
		var mu sync.Mutex
		done := 0
		// workers report concurrently
		progress = func() {
			mu.Lock()
			defer mu.Unlock()
			done++
			if done%10 == 0 || done == total {
				pct := float64(done) / float64(total) * 100
				_, _ = fmt.Fprintf(os.Stderr, "\r[%d/%d] %.0f%%", done, total, pct)
			}
		}
	}

	store := openCache(s)
	collector := &audit.Collector{}
	a, err := newAnalyzer(s, analyzerParams{useLLM: flagBatchLLM, cache: store, sink: collector, progress: progress})
	if err != nil {
		return err
	}
	start := time.Now()
	findings := a.AnalyzeDirs(ctx, dirs, s.threads)
	duration := time.Since(start)
	if progress != nil {
		_, _ = fmt.Fprintln(os.Stderr)
	}
	saveCache(s, store)
	if err := cache.SaveResults(abs, findings); err != nil {
		s.log.Warn().Err(err).Msg("last run results not saved")
	}

	baselinePath := flagBaseline
	if baselinePath == "" {
		baselinePath = filepath.Join(abs, defaultBaseline)
	}
	if flagWriteBaseline {
		if err := report.SaveBaseline(baselinePath, findings); err != nil {
			return err
		}
		_, _ = fmt.Fprintln(os.Stdout, "Baseline updated:", baselinePath)
		return nil
	}
	baseline, err := report.LoadBaseline(baselinePath)
	if err != nil && flagBaseline != "" {
		s.log.Warn().Err(err).Str("path", baselinePath).Msg("baseline not loaded")
	}
	newFindings := report.FilterNewFindings(findings, baseline)
	baselined := len(findings) - len(newFindings)
	newFindings = report.FilterMinScore(newFindings, s.minRisk)
	if newFindings == nil {
		newFindings = []types.Finding{}
	}

	if !flagNoHistory {
		all := collector.Findings()
		rec := audit.CreateRunRecord(time.Now(), abs, all, newFindings, duration, baselineFileName(baselinePath, baseline))
		if err := audit.NewAuditLog(abs).LogRun(rec); err != nil {
			s.log.Warn().Err(err).Msg("history not written")
		}
	}

	out := cmd.OutOrStdout()
	opts := report.PrintOptions{NoColor: s.noColor, Duration: duration, AlertsAnalyzed: len(findings)}
	switch {
	case flagSARIF:
		stats := map[string]int{"alertsAnalyzed": len(findings), "baselined": baselined}
		if err := report.WriteSARIFWithStats(out, newFindings, stats); err != nil {
			return fmt.Errorf("sarif error: %w", err)
		}
	case flagJSON:
		if err := report.WriteJSON(out, newFindings); err != nil {
			return err
		}
	case flagText:
		report.PrintText(out, newFindings, opts)
	default:
		report.PrintTable(out, newFindings, opts)
	}

	if report.ShouldFail(newFindings, s.failOn) {
		os.Exit(1)
	}
	return nil
}

func baselineFileName(path string, b report.Baseline) string {
	if len(b.Items) == 0 {
		return ""
	}
	return path
}
