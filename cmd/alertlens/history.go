package alertlens

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/redactyl/alertlens/internal/audit"
	"github.com/redactyl/alertlens/internal/cache"
	"github.com/redactyl/alertlens/internal/report"
	"github.com/redactyl/alertlens/internal/types"
)

var (
	flagHistoryDelete int
	flagHistoryLast   bool
	flagHistoryLimit  int
)

func init() {
	cmd := &cobra.Command{
		Use:   "history [root]",
		Short: "List previous batch runs",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runHistory,
	}
	rootCmd.AddCommand(cmd)
	cmd.Flags().IntVar(&flagHistoryDelete, "delete", -1, "delete the run at this index (0 = newest)")
	cmd.Flags().BoolVar(&flagHistoryLast, "last", false, "show the findings of the most recent run")
	cmd.Flags().IntVar(&flagHistoryLimit, "limit", 20, "maximum runs to list (0 = all)")
}

func runHistory(cmd *cobra.Command, args []string) error {
	root := "."
	if len(args) == 1 {
		root = args[0]
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	log := audit.NewAuditLog(abs)

	if flagHistoryDelete >= 0 {
		if err := log.DeleteRecord(flagHistoryDelete); err != nil {
			return err
		}
		fmt.Fprintf(w, "Deleted run %d from %s\n", flagHistoryDelete, log.Path())
		return nil
	}

	if flagHistoryLast {
		res, err := cache.LoadResults(abs)
		if err != nil {
			return fmt.Errorf("no previous run under %s: %w", abs, err)
		}
		if flagJSON {
			return report.WriteJSON(w, res.Findings)
		}
		fmt.Fprintf(w, "Last run: %s (%d findings)\n\n", res.Timestamp.Format("2006-01-02 15:04:05"), res.Count)
		report.PrintTable(w, res.Findings, report.PrintOptions{NoColor: flagNoColor || !isTerminal(stdoutFile(cmd))})
		return nil
	}

	records, err := log.LoadHistory()
	if err != nil {
		return err
	}
	if flagHistoryLimit > 0 && len(records) > flagHistoryLimit {
		records = records[:flagHistoryLimit]
	}
	if flagJSON {
		return writeIndentedJSON(w, records)
	}
	if len(records) == 0 {
		fmt.Fprintln(w, "No runs recorded")
		return nil
	}
	table := tablewriter.NewWriter(w)
	table.Header("#", "TIME", "ALERTS", "NEW", "CRITICAL", "HIGH", "MEDIUM", "LOW", "DEGRADED", "DURATION")
	for i, r := range records {
		_ = table.Append(
			strconv.Itoa(i),
			r.Timestamp.Format("2006-01-02 15:04"),
			strconv.Itoa(r.AlertsAnalyzed),
			strconv.Itoa(r.NewFindings),
			strconv.Itoa(r.RiskLevelCounts[string(types.RiskCritical)]),
			strconv.Itoa(r.RiskLevelCounts[string(types.RiskHigh)]),
			strconv.Itoa(r.RiskLevelCounts[string(types.RiskMedium)]),
			strconv.Itoa(r.RiskLevelCounts[string(types.RiskLow)]),
			strconv.Itoa(r.DegradedCount),
			r.Duration,
		)
	}
	return table.Render()
}
