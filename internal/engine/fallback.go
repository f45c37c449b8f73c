package engine

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/redactyl/alertlens/internal/llm"
	"github.com/redactyl/alertlens/internal/scoring"
	"github.com/redactyl/alertlens/internal/types"
)

var printer = message.NewPrinter(language.English)

const (
	volumeThreshold   = 1000
	exposureThreshold = 1_000_000
	concentrationPct  = 50
	maxNotable        = 5
)

// business-risk statements chosen by the first matching keyword group
var riskKeywords = []struct {
	words []string
	risk  string
}{
	{[]string{"fraud", "theft", "unauthorized", "security", "cyber", "debug"},
		"Potential fraud or security exposure requiring investigation"},
	{[]string{"revenue", "financial", "payment", "invoice", "cash", "credit"},
		"Potential financial loss or revenue leakage"},
	{[]string{"process", "operational", "job", "workflow", "batch"},
		"Operational or process control weakness"},
}

const defaultBusinessRisk = "Requires review to determine business impact"

// fallback is the deterministic analysis used without a model or when the
// model fails. Quantities come from the summary only; the explanation and
// metadata are context.
func (a *Analyzer) fallback(b types.ArtifactBundle, area types.FocusArea) llm.Analysis {
	q := quantities(b)
	explanation := types.Text(b.Explanation)

	what := firstParagraph(explanation)
	if what == "" {
		what = "Alert triggered: " + b.AlertName
	}
	sev, reason := a.resolver.Resolve(b.AlertName, area, explanation, b.CodeSummary)

	summary := strings.TrimSpace(explanation)
	if summary == "" {
		summary = "Alert: " + b.AlertName
	}
	return llm.Analysis{
		FindingsSummary: summary,
		Qualitative: types.QualitativeFinding{
			WhatHappened:      what,
			BusinessRisk:      businessRisk(b.AlertName + " " + explanation),
			AffectedAreas:     affectedAreas(b.Table),
			Severity:          sev,
			SeverityReasoning: reason,
		},
		Quantitative:       q,
		Severity:           sev,
		SeverityReasoning:  reason,
		RecommendedActions: actionsFor(sev),
	}
}

func quantities(b types.ArtifactBundle) types.QuantitativeFinding {
	if b.Table != nil && b.Table.RowCount > 0 {
		return tableQuantities(b.Table)
	}
	q := types.NewQuantitativeFinding()
	if b.Summary == nil {
		return q
	}
	m := scoring.ExtractMetricsFromText(*b.Summary)
	q.TotalCount = m.MaxCount()
	amount, currency := m.MaxAmount()
	q.MonetaryAmount = amount
	if currency != "" {
		q.Currency = currency
	}
	q.KeyMetrics["total_records"] = q.TotalCount
	q.KeyMetrics["total_amount"] = q.MonetaryAmount
	q.KeyMetrics["currency"] = q.Currency
	q.ThresholdViolations = thresholdViolations(q)
	return q
}

func tableQuantities(t *types.StructuredTable) types.QuantitativeFinding {
	q := types.NewQuantitativeFinding()
	q.TotalCount = t.RowCount
	if t.Currency != "" {
		q.Currency = t.Currency
	}
	amountCol, hasAmount := primaryAmountColumn(t)
	switch {
	case t.TotalAmount != nil:
		q.MonetaryAmount = *t.TotalAmount
	case hasAmount:
		q.MonetaryAmount = *amountCol.Total
	}
	if q.MonetaryAmount < 0 {
		q.MonetaryAmount = 0
	}
	q.KeyMetrics = map[string]any{
		"total_records": t.RowCount,
		"total_amount":  q.MonetaryAmount,
		"currency":      q.Currency,
		"row_count":     t.RowCount,
		"column_count":  t.ColumnCount,
	}
	if hasAmount {
		q.NotableItems = notableItems(t, amountCol, q.MonetaryAmount)
	}
	q.ThresholdViolations = thresholdViolations(q)
	if t.RowCount > 1 {
		for _, it := range q.NotableItems {
			if it.PercentageOfTotal > concentrationPct {
				q.ThresholdViolations = append(q.ThresholdViolations,
					printer.Sprintf("Concentration: %s holds %.1f%% of the total amount", it.Title, it.PercentageOfTotal))
			}
		}
	}
	return q
}

// primaryAmountColumn is the key-metric column with the largest total.
func primaryAmountColumn(t *types.StructuredTable) (types.ColumnDescriptor, bool) {
	var best types.ColumnDescriptor
	found := false
	for _, c := range t.KeyMetricColumns() {
		if c.Total == nil || c.DetectedType == types.ColCount {
			continue
		}
		if !found || *c.Total > *best.Total {
			best, found = c, true
		}
	}
	return best, found
}

// labelColumn names the entity a row belongs to: the first identifier
// column, else the first text column.
func labelColumn(t *types.StructuredTable) (string, bool) {
	for _, want := range []types.ColumnType{types.ColIdentifier, types.ColText} {
		for _, c := range t.Columns {
			if c.DetectedType == want {
				return c.OriginalName, true
			}
		}
	}
	return "", false
}

func notableItems(t *types.StructuredTable, amountCol types.ColumnDescriptor, total float64) []types.NotableItem {
	label, ok := labelColumn(t)
	if !ok {
		return []types.NotableItem{}
	}
	sums := map[string]float64{}
	var order []string
	for _, row := range t.DataRows() {
		v, ok := row[amountCol.OriginalName].(float64)
		if !ok {
			continue
		}
		name := strings.TrimSpace(toString(row[label]))
		if name == "" {
			continue
		}
		if _, seen := sums[name]; !seen {
			order = append(order, name)
		}
		sums[name] += v
	}
	items := make([]types.NotableItem, 0, len(order))
	for _, name := range order {
		it := types.NotableItem{Title: name, Amount: sums[name]}
		if total > 0 {
			it.PercentageOfTotal = roundTo(it.Amount/total*100, 2)
		}
		items = append(items, it)
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].Amount > items[j].Amount })
	if len(items) > maxNotable {
		items = items[:maxNotable]
	}
	return items
}

func thresholdViolations(q types.QuantitativeFinding) []string {
	v := []string{}
	if q.TotalCount >= volumeThreshold {
		v = append(v, printer.Sprintf("Volume threshold exceeded: %d records", q.TotalCount))
	}
	if q.MonetaryAmount >= exposureThreshold {
		v = append(v, printer.Sprintf("Financial exposure exceeds %d %s: %.2f", exposureThreshold, q.Currency, q.MonetaryAmount))
	}
	return v
}

// affectedAreas lists the identifier columns of the summary table.
func affectedAreas(t *types.StructuredTable) []string {
	out := []string{}
	if t == nil {
		return out
	}
	for _, c := range t.Columns {
		if c.DetectedType == types.ColIdentifier {
			out = append(out, c.Name)
		}
	}
	return out
}

func businessRisk(text string) string {
	lower := strings.ToLower(text)
	for _, g := range riskKeywords {
		for _, w := range g.words {
			if strings.Contains(lower, w) {
				return g.risk
			}
		}
	}
	return defaultBusinessRisk
}

func actionsFor(sev types.Severity) []string {
	switch sev {
	case types.SevCritical:
		return []string{
			"Immediately review flagged transactions and block suspicious activity",
			"Escalate to security and internal audit",
			"Preserve evidence for investigation",
		}
	case types.SevHigh:
		return []string{
			"Review flagged items within 24 hours",
			"Verify legitimacy with the responsible business owner",
			"Tighten the related controls",
		}
	case types.SevLow:
		return []string{
			"Review during the next scheduled control cycle",
			"Confirm the alert threshold still fits the business",
		}
	default:
		return []string{
			"Review alert details",
			"Verify data accuracy",
		}
	}
}

func fallbackDescription(b types.ArtifactBundle) llm.Description {
	desc := strings.TrimSpace(types.Text(b.Explanation))
	if desc == "" {
		desc = "Alert: " + b.AlertName
	}
	return llm.Description{
		Title:            b.AlertName,
		Description:      desc,
		BusinessImpact:   "Review required to assess business impact",
		TechnicalDetails: b.CodeSummary,
	}
}

// volumeNote states the count and amount behind a severity decision.
func volumeNote(q types.QuantitativeFinding) string {
	return printer.Sprintf("%d records, %.2f %s", q.TotalCount, q.MonetaryAmount, q.Currency)
}

func joinReasons(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	}
	return a + " (" + b + ")"
}

func toString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case nil:
		return ""
	}
	return fmt.Sprint(v)
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
