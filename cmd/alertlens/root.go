package alertlens

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/redactyl/alertlens/internal/report"
)

var (
	flagJSON      bool
	flagSARIF     bool
	flagThreads   int
	flagFailOn    string
	flagMinRisk   int
	flagNoColor   bool
	flagLogLevel  string
	flagLogFormat string
	flagConfig    string
	flagNoCache   bool
	flagRules     string
	flagDocs      string

	version = "0.1.0"
)

// rootCmd is the base Cobra command for the alertlens CLI.
var rootCmd = &cobra.Command{
	Use:           "alertlens",
	Short:         "Classify, score and quantify SAP monitoring alerts",
	Long:          "alertlens reads exported alert bundles (code, explanation, metadata and summary artifacts) and turns each into a scored, quantified risk finding.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the alertlens CLI. It should be called by the main package.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(2)
	}
}

func init() {
	report.ToolVersion = version

	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "emit JSON")
	rootCmd.PersistentFlags().BoolVar(&flagSARIF, "sarif", false, "emit SARIF 2.1.0")
	rootCmd.PersistentFlags().IntVar(&flagThreads, "threads", 0, "worker count (0 = GOMAXPROCS)")
	rootCmd.PersistentFlags().StringVar(&flagFailOn, "fail-on", "", "exit 1 when a finding reaches low|medium|high|critical|none (default high)")
	rootCmd.PersistentFlags().IntVar(&flagMinRisk, "min-risk", 0, "only report findings with risk score >= value (0-100)")
	rootCmd.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "disable colorized output")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level: debug|info|warn|error (default warn)")
	rootCmd.PersistentFlags().StringVar(&flagLogFormat, "log-format", "", "log format: console|json")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default: .alertlens.yml in the analysed root)")
	rootCmd.PersistentFlags().BoolVar(&flagNoCache, "no-cache", false, "disable the result cache")
	rootCmd.PersistentFlags().StringVar(&flagRules, "rules", "", "YAML rule file replacing the built-in keyword and severity tables")
	rootCmd.PersistentFlags().StringVar(&flagDocs, "docs", "", "context documents directory (default: <root>/th-context)")
}
