// Package report renders Findings for people and tools: a table, plain text,
// JSON and SARIF. It also holds the baseline and exit-gate helpers used by
// batch runs.
package report

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/redactyl/alertlens/internal/types"
)

var printer = message.NewPrinter(language.English)

type PrintOptions struct {
	NoColor        bool
	Duration       time.Duration
	AlertsAnalyzed int
}

// Sorted returns findings ordered by risk score, highest first, then by
// alert id. The input is not modified.
func Sorted(findings []types.Finding) []types.Finding {
	out := append([]types.Finding(nil), findings...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].RiskScore != out[j].RiskScore {
			return out[i].RiskScore > out[j].RiskScore
		}
		return out[i].AlertID < out[j].AlertID
	})
	return out
}

func PrintTable(w io.Writer, findings []types.Finding, opts PrintOptions) {
	findings = Sorted(findings)
	if len(findings) == 0 {
		fmt.Fprintln(w, "No risky alerts found ✅")
	} else {
		table := tablewriter.NewWriter(w)
		table.Header("RISK", "SCORE", "FOCUS AREA", "ALERT ID", "ALERT", "COUNT", "AMOUNT")
		for _, f := range findings {
			_ = table.Append(
				riskLabel(f.RiskLevel, opts.NoColor),
				fmt.Sprint(f.RiskScore),
				string(f.FocusArea),
				f.AlertID,
				truncate(f.AlertName, 40),
				printer.Sprintf("%d", f.TotalCount),
				Amount(f.MonetaryAmount, f.Currency),
			)
		}
		_ = table.Render()
	}
	printFooter(w, findings, opts)
}

func PrintText(w io.Writer, findings []types.Finding, opts PrintOptions) {
	findings = Sorted(findings)
	if len(findings) == 0 {
		fmt.Fprintln(w, "No risky alerts found ✅")
	} else {
		maxArea := 10
		for _, f := range findings {
			maxArea = max(maxArea, len(f.FocusArea))
		}
		fmt.Fprintf(w, "Findings: %d\n", len(findings))
		for _, f := range findings {
			fmt.Fprintf(w, "%-8s %3d  %-*s %s  %s\n",
				riskLabel(f.RiskLevel, opts.NoColor), f.RiskScore, maxArea, f.FocusArea, f.AlertID, f.AlertName)
		}
	}
	printFooter(w, findings, opts)
}

// PrintFinding writes the full detail of one Finding.
func PrintFinding(w io.Writer, f types.Finding, opts PrintOptions) {
	fmt.Fprintf(w, "%s (%s)\n", f.Title, f.AlertID)
	fmt.Fprintf(w, "Risk: %s %d/100   Severity: %s\n", riskLabel(f.RiskLevel, opts.NoColor), f.RiskScore, f.Severity)
	fmt.Fprintf(w, "Focus area: %s (confidence %.2f)\n", f.FocusArea, f.FocusAreaConfidence)
	if f.ClassificationReasoning != "" {
		fmt.Fprintf(w, "  %s\n", f.ClassificationReasoning)
	}
	if f.SeverityReasoning != "" {
		fmt.Fprintf(w, "Severity reasoning: %s\n", f.SeverityReasoning)
	}
	fmt.Fprintln(w)
	section(w, "Description", f.Description)
	section(w, "What happened", f.WhatHappened)
	section(w, "Business risk", f.BusinessRisk)
	section(w, "Business impact", f.BusinessImpact)

	fmt.Fprintf(w, "Records: %s   Amount: %s\n", printer.Sprintf("%d", f.TotalCount), Amount(f.MonetaryAmount, f.Currency))
	if f.MoneyLossEstimate > 0 {
		fmt.Fprintf(w, "Estimated loss: %s (confidence %.0f%%)\n", Amount(f.MoneyLossEstimate, f.Currency), f.MoneyLossConfidence*100)
	}
	if len(f.NotableItems) > 0 {
		fmt.Fprintln(w, "Notable items:")
		for _, it := range f.NotableItems {
			fmt.Fprintf(w, "  - %s: %s (%.1f%%)\n", it.Title, Amount(it.Amount, f.Currency), it.PercentageOfTotal)
		}
	}
	list(w, "Threshold violations", f.ThresholdViolations)
	list(w, "Risk factors", f.RiskFactors)
	list(w, "Recommended actions", f.RecommendedActions)
	list(w, "Warnings", f.Warnings)
	if f.Degraded {
		fmt.Fprintln(w, "Degraded: analysis failed, manual review required")
	}
}

// Amount formats a monetary value with thousands separators.
func Amount(v float64, currency string) string {
	if currency == "" {
		currency = "USD"
	}
	return printer.Sprintf("%.2f %s", v, currency)
}

func section(w io.Writer, title, body string) {
	if strings.TrimSpace(body) == "" {
		return
	}
	fmt.Fprintf(w, "%s:\n  %s\n\n", title, strings.ReplaceAll(strings.TrimSpace(body), "\n", "\n  "))
}

func list(w io.Writer, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(w, "%s:\n", title)
	for _, it := range items {
		fmt.Fprintf(w, "  - %s\n", it)
	}
}

func printFooter(w io.Writer, findings []types.Finding, opts PrintOptions) {
	if opts.Duration <= 0 && opts.AlertsAnalyzed <= 0 {
		return
	}
	counts := map[types.RiskLevel]int{}
	for _, f := range findings {
		counts[f.RiskLevel]++
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Findings: %d (critical: %d, high: %d, medium: %d, low: %d)\n", len(findings),
		counts[types.RiskCritical], counts[types.RiskHigh], counts[types.RiskMedium], counts[types.RiskLow])
	if opts.Duration > 0 {
		fmt.Fprintf(w, "Analysis duration: %.2fs\n", opts.Duration.Seconds())
	}
	if opts.AlertsAnalyzed > 0 {
		fmt.Fprintf(w, "Alerts analyzed: %d\n", opts.AlertsAnalyzed)
	}
}

func riskLabel(r types.RiskLevel, noColor bool) string {
	s := strings.ToLower(string(r))
	if noColor {
		return s
	}
	switch r {
	case types.RiskCritical:
		return "\x1b[35m" + s + "\x1b[0m" // magenta
	case types.RiskHigh:
		return "\x1b[31m" + s + "\x1b[0m" // red
	case types.RiskMedium:
		return "\x1b[33m" + s + "\x1b[0m" // yellow
	default:
		return "\x1b[36m" + s + "\x1b[0m" // cyan
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
