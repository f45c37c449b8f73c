package alertlens

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/redactyl/alertlens/internal/report"
	"github.com/redactyl/alertlens/internal/rules"
	"github.com/redactyl/alertlens/internal/scoring"
	"github.com/redactyl/alertlens/internal/severity"
	"github.com/redactyl/alertlens/internal/types"
)

var (
	scoreFocusArea string
	scoreSeverity  string
	scoreAlertName string
	scoreCount     int
	scoreAmount    float64
	scoreCurrency  string
	scoreBackDays  int
)

func init() {
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score an alert from its counts without reading artifacts",
		Args:  cobra.NoArgs,
		RunE:  runScore,
		Example: `
alertlens score --focus-area BUSINESS_PROTECTION --alert-name "Rarely Used Vendors" --count 1943 --amount 2000000 --backdays 1
`,
	}
	rootCmd.AddCommand(cmd)

	cmd.Flags().StringVar(&scoreFocusArea, "focus-area", string(types.BusinessControl), "focus area")
	cmd.Flags().StringVar(&scoreSeverity, "severity", "Medium", "severity used when no alert name is given")
	cmd.Flags().StringVar(&scoreAlertName, "alert-name", "", "alert name (resolves severity from the rule table)")
	cmd.Flags().IntVar(&scoreCount, "count", 0, "record count")
	cmd.Flags().Float64Var(&scoreAmount, "amount", 0, "monetary amount")
	cmd.Flags().StringVar(&scoreCurrency, "currency", "USD", "currency of --amount")
	cmd.Flags().IntVar(&scoreBackDays, "backdays", 0, "days of history the count covers (0 = unknown)")
}

func runScore(cmd *cobra.Command, _ []string) error {
	area, ok := types.ParseFocusArea(scoreFocusArea)
	if !ok {
		return fmt.Errorf("unknown focus area %q", scoreFocusArea)
	}
	var rs *rules.Set
	if flagRules != "" {
		r, err := rules.LoadFile(flagRules)
		if err != nil {
			return fmt.Errorf("rules %s: %w", flagRules, err)
		}
		rs = r
	}
	quant := types.NewQuantitativeFinding()
	quant.TotalCount = scoreCount
	quant.MonetaryAmount = scoreAmount
	quant.Currency = scoreCurrency
	in := scoring.Input{
		FocusArea:    area,
		Quantitative: quant,
		Severity:     scoreSeverity,
		AlertName:    scoreAlertName,
	}
	if scoreBackDays > 0 {
		in.Metadata = map[string]any{"BACKDAYS": scoreBackDays}
	}
	out := scoring.New(severity.New(rs)).Score(in)

	w := cmd.OutOrStdout()
	if flagJSON {
		return writeIndentedJSON(w, out)
	}
	fmt.Fprintf(w, "Risk score: %d (%s)\n", out.RiskScore, out.RiskLevel)
	fmt.Fprintf(w, "Severity: %s\n", out.Qualitative.Severity)
	if out.Qualitative.SeverityReasoning != "" {
		fmt.Fprintf(w, "  %s\n", out.Qualitative.SeverityReasoning)
	}
	fmt.Fprintf(w, "Estimated loss: %s (confidence %.0f%%)\n", report.Amount(out.MoneyLossEstimate, quant.Currency), out.MoneyLossConfidence*100)
	keys := make([]string, 0, len(out.Breakdown))
	for k := range out.Breakdown {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fmt.Fprintln(w, "Breakdown:")
	for _, k := range keys {
		fmt.Fprintf(w, "  %-28s %g\n", k, out.Breakdown[k])
	}
	if len(out.RiskFactors) > 0 {
		fmt.Fprintln(w, "Risk factors:")
		for _, f := range out.RiskFactors {
			fmt.Fprintf(w, "  - %s\n", f)
		}
	}
	// score only gates the exit code when asked to
	if flagFailOn != "" && report.ShouldFail([]types.Finding{{RiskLevel: out.RiskLevel}}, flagFailOn) {
		os.Exit(1)
	}
	return nil
}
