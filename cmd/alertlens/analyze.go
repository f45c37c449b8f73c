package alertlens

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"github.com/redactyl/alertlens/internal/report"
	"github.com/redactyl/alertlens/internal/types"
)

var (
	flagLLM  bool
	flagCopy bool
	flagRaw  bool
)

func init() {
	cmd := &cobra.Command{
		Use:   "analyze <alert-dir>",
		Short: "Analyze a single alert bundle",
		Args:  cobra.ExactArgs(1),
		RunE:  runAnalyze,
		Example: `
# Deterministic analysis
alertlens analyze "alerts/200025_001373 - Rarely Used Vendors"

# With the language model, copying the finding to the clipboard
ALERTLENS_API_KEY=... alertlens analyze --llm --copy alerts/200025_001373
`,
	}
	rootCmd.AddCommand(cmd)

	cmd.Flags().BoolVar(&flagLLM, "llm", false, "use the configured language model (falls back to rules on failure)")
	cmd.Flags().BoolVar(&flagCopy, "copy", false, "copy the finding text to the clipboard")
	cmd.Flags().BoolVar(&flagRaw, "raw", false, "include intermediate results in the finding (raw_analysis)")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	abs, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}
	// the cache is shared with batch runs over the parent directory
	s, err := resolve(filepath.Dir(abs))
	if err != nil {
		return err
	}
	store := openCache(s)
	a, err := newAnalyzer(s, analyzerParams{useLLM: flagLLM, includeRaw: flagRaw, cache: store})
	if err != nil {
		return err
	}
	f, err := a.AnalyzeDir(withLogger(cmd.Context(), s), abs)
	if err != nil {
		return err
	}
	saveCache(s, store)

	out := cmd.OutOrStdout()
	switch {
	case flagSARIF:
		if err := report.WriteSARIF(out, []types.Finding{f}); err != nil {
			return fmt.Errorf("sarif error: %w", err)
		}
	case flagJSON:
		if err := writeIndentedJSON(out, f); err != nil {
			return err
		}
	default:
		report.PrintFinding(out, f, report.PrintOptions{NoColor: s.noColor})
	}

	if flagCopy {
		var buf bytes.Buffer
		report.PrintFinding(&buf, f, report.PrintOptions{NoColor: true})
		if err := clipboard.WriteAll(buf.String()); err != nil {
			_, _ = fmt.Fprintln(os.Stderr, "clipboard warning:", err)
		} else {
			_, _ = fmt.Fprintln(os.Stderr, "Finding copied to clipboard")
		}
	}

	if report.ShouldFail([]types.Finding{f}, s.failOn) {
		os.Exit(1)
	}
	return nil
}
