// Package scoring turns a classified, quantified alert into a 0-100 risk
// score, a risk level, a money-loss estimate and a list of risk factors.
//
// The score combines five factors:
//
//	(severity base + count + money + quantity) * focus-area multiplier
//
// clamped to [0, 100]. Every factor's contribution is kept in the breakdown.
package scoring

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/redactyl/alertlens/internal/severity"
	"github.com/redactyl/alertlens/internal/types"
)

// Breakdown keys.
const (
	KeySeverityBase     = "factor1_severity_base"
	KeyCountAdjustment  = "factor2_count_adjustment"
	KeyMoneyAdjustment  = "factor3_money_adjustment"
	KeyAreaMultiplier   = "factor4_focus_area_multiplier"
	KeyQuantityAdjust   = "factor5_quantity_adjustment"
	KeyFinalScore       = "final_score"
	KeyRawCount         = "raw_count"
	KeyBackDays         = "backdays"
	KeyNormalizedPerDay = "normalized_count_per_day"
)

var areaMultipliers = map[types.FocusArea]float64{
	types.BusinessProtection: 1.2,
	types.AccessGovernance:   1.15,
	types.BusinessControl:    1.0,
	types.TechnicalControl:   0.9,
	types.JobsControl:        0.85,
}

var lossPerItem = map[types.FocusArea]float64{
	types.BusinessProtection: 5000,
	types.BusinessControl:    1000,
	types.AccessGovernance:   2000,
	types.TechnicalControl:   500,
	types.JobsControl:        200,
}

var areaNarratives = map[types.FocusArea]string{
	types.BusinessProtection: "Possible fraud/security event - stakeholder review required",
	types.BusinessControl:    "Business process anomaly - review recommended",
	types.AccessGovernance:   "Compliance/authorization concern - audit trail needed",
	types.TechnicalControl:   "System stability indicator - technical review needed",
	types.JobsControl:        "Operational pattern - monitoring recommended",
}

var backDaysKeys = []string{"BACKDAYS", "backdays", "BackDays", "back_days"}

var reRawBackDays = regexp.MustCompile(`(?i)BACKDAYS\s*[=:]\s*(\d+)`)

// Input is everything the engine needs to score one alert.
type Input struct {
	FocusArea    types.FocusArea
	Qualitative  types.QualitativeFinding
	Quantitative types.QuantitativeFinding
	// Severity is used when AlertName or FocusArea is empty.
	Severity  string
	AlertName string
	// Explanation and CodeSummary feed severity resolution. Qualitative
	// WhatHappened stands in when Explanation is empty.
	Explanation string
	CodeSummary string
	// Metadata carries alert parameters. BACKDAYS is read from it, either
	// as a typed value or from the "raw_metadata" text.
	Metadata map[string]any
}

// Engine scores alerts. The zero value is not usable; call New.
type Engine struct {
	resolver *severity.Resolver
}

// New returns an Engine resolving severities with r, or with the built-in
// table when r is nil.
func New(r *severity.Resolver) *Engine {
	if r == nil {
		r = severity.Default()
	}
	return &Engine{resolver: r}
}

// Default returns an Engine over the built-in severity table.
func Default() *Engine { return New(nil) }

// Score computes the combined score of an alert.
func (e *Engine) Score(in Input) types.CombinedScore {
	qual := in.Qualitative
	if in.AlertName != "" && in.FocusArea != "" {
		explanation := in.Explanation
		if explanation == "" {
			explanation = qual.WhatHappened
		}
		qual.Severity, qual.SeverityReasoning = e.resolver.Resolve(in.AlertName, in.FocusArea, explanation, in.CodeSummary)
	} else {
		qual.Severity = types.ParseSeverity(in.Severity)
	}
	if qual.AffectedAreas == nil {
		qual.AffectedAreas = []string{}
	}
	quant := normalizeQuantitative(in.Quantitative)

	backDays, hasBackDays := BackDays(in.Metadata)
	breakdown, score := riskScore(in.FocusArea, qual.Severity, quant, backDays, hasBackDays)
	loss, conf := MoneyLoss(in.FocusArea, qual.Severity, quant)

	return types.CombinedScore{
		RiskScore:           score,
		RiskLevel:           types.RiskLevelFromScore(score),
		Qualitative:         qual,
		Quantitative:        quant,
		MoneyLossEstimate:   loss,
		MoneyLossConfidence: conf,
		RiskFactors:         riskFactors(in.FocusArea, qual, quant, backDays, hasBackDays),
		Breakdown:           breakdown,
	}
}

// BackDays returns the history depth recorded in alert metadata. Typed keys
// are checked first, then the raw metadata text. Only positive values count.
func BackDays(md map[string]any) (int, bool) {
	if md == nil {
		return 0, false
	}
	for _, k := range backDaysKeys {
		v, ok := md[k]
		if !ok {
			continue
		}
		if n, ok := toInt(v); ok {
			return n, n > 0
		}
	}
	if raw, ok := md["raw_metadata"]; ok && raw != nil {
		if m := reRawBackDays.FindStringSubmatch(fmt.Sprint(raw)); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				return n, n > 0
			}
		}
	}
	return 0, false
}

func riskScore(area types.FocusArea, sev types.Severity, q types.QuantitativeFinding, backDays int, hasBackDays bool) (map[string]float64, int) {
	b := map[string]float64{}

	base := severity.BaseScore(sev)
	b[KeySeverityBase] = float64(base)

	count := float64(q.TotalCount)
	if hasBackDays {
		count = float64(q.TotalCount) / float64(backDays)
		b[KeyRawCount] = float64(q.TotalCount)
		b[KeyBackDays] = float64(backDays)
		b[KeyNormalizedPerDay] = math.Round(count*100) / 100
	}
	countAdj := countAdjustment(count, hasBackDays)
	b[KeyCountAdjustment] = float64(countAdj)

	moneyAdj := moneyAdjustment(q.MonetaryAmount)
	b[KeyMoneyAdjustment] = float64(moneyAdj)

	mult := AreaMultiplier(area)
	b[KeyAreaMultiplier] = math.Round(mult * 100)

	qtyAdj := quantityAdjustment(q)
	b[KeyQuantityAdjust] = float64(qtyAdj)

	raw := float64(base+countAdj+moneyAdj+qtyAdj) * mult
	final := clamp(int(math.Round(raw)), 0, 100)
	b[KeyFinalScore] = float64(final)
	return b, final
}

// AreaMultiplier is the factor-four multiplier of a focus area.
func AreaMultiplier(area types.FocusArea) float64 {
	if m, ok := areaMultipliers[area]; ok {
		return m
	}
	return 1.0
}

// countAdjustment applies daily-rate thresholds when the count was
// normalised by BACKDAYS and raw-count thresholds otherwise.
func countAdjustment(n float64, perDay bool) int {
	if perDay {
		switch {
		case n >= 100:
			return 15
		case n >= 50:
			return 10
		case n >= 10:
			return 5
		case n >= 1:
			return 2
		}
		return 0
	}
	switch {
	case n >= 1000:
		return 15
	case n >= 500:
		return 10
	case n >= 100:
		return 5
	}
	return 0
}

func moneyAdjustment(amount float64) int {
	switch {
	case amount >= 1_000_000:
		return 20
	case amount >= 100_000:
		return 15
	case amount >= 10_000:
		return 10
	case amount >= 1_000:
		return 5
	}
	return 0
}

// quantityAdjustment rewards notable items, threshold violations and a high
// average amount per item. The total is capped at 15.
func quantityAdjustment(q types.QuantitativeFinding) int {
	adj := 0
	switch n := len(q.NotableItems); {
	case n >= 5:
		adj += 5
	case n >= 2:
		adj += 3
	}
	if v := len(q.ThresholdViolations); v >= 3 {
		adj += 5
	} else {
		adj += 2 * v
	}
	if q.TotalCount > 0 && q.MonetaryAmount > 0 {
		avg := q.MonetaryAmount / float64(q.TotalCount)
		switch {
		case avg >= 100_000:
			adj += 5
		case avg >= 10_000:
			adj += 3
		}
	}
	return min(adj, 15)
}

// MoneyLoss estimates the potential loss of an alert and the confidence in
// that estimate. A direct monetary amount is trusted at 0.8; otherwise a
// per-item figure for the focus area is scaled by count and severity at 0.4.
func MoneyLoss(area types.FocusArea, sev types.Severity, q types.QuantitativeFinding) (float64, float64) {
	if q.MonetaryAmount > 0 {
		return q.MonetaryAmount, 0.8
	}
	base, ok := lossPerItem[area]
	if !ok {
		base = 1000
	}
	count := max(1, q.TotalCount)
	return base * float64(count) * severityLossMultiplier(sev), 0.4
}

func severityLossMultiplier(s types.Severity) float64 {
	switch s {
	case types.SevCritical:
		return 2.0
	case types.SevHigh:
		return 1.5
	case types.SevLow:
		return 0.5
	default:
		return 1.0
	}
}

func riskFactors(area types.FocusArea, qual types.QualitativeFinding, q types.QuantitativeFinding, backDays int, hasBackDays bool) []string {
	out := []string{}
	if qual.Severity == types.SevCritical || qual.Severity == types.SevHigh {
		s := string(qual.Severity) + " severity"
		if qual.SeverityReasoning != "" {
			s += " - " + qual.SeverityReasoning
		}
		out = append(out, s)
	}
	if q.TotalCount > 0 {
		if hasBackDays {
			rate := float64(q.TotalCount) / float64(backDays)
			out = append(out, numbers.Sprintf("Volume: %d items over %d day(s) (%.1f/day)", q.TotalCount, backDays, rate))
		} else if q.TotalCount > 100 {
			out = append(out, numbers.Sprintf("High volume: %d items", q.TotalCount))
		}
	}
	if q.MonetaryAmount > 10_000 {
		out = append(out, numbers.Sprintf("Financial exposure: $%.2f", q.MonetaryAmount))
	}
	if s, ok := areaNarratives[area]; ok {
		out = append(out, s)
	}
	for i, v := range q.ThresholdViolations {
		if i == 3 {
			break
		}
		out = append(out, "Threshold exceeded: "+v)
	}
	if n := len(q.NotableItems); n > 0 {
		out = append(out, fmt.Sprintf("%d notable items requiring attention", n))
	}
	return out
}

func normalizeQuantitative(q types.QuantitativeFinding) types.QuantitativeFinding {
	if q.KeyMetrics == nil {
		q.KeyMetrics = map[string]any{}
	}
	if q.NotableItems == nil {
		q.NotableItems = []types.NotableItem{}
	}
	if q.ThresholdViolations == nil {
		q.ThresholdViolations = []string{}
	}
	if q.Currency == "" {
		q.Currency = "USD"
	}
	if q.TotalCount < 0 {
		q.TotalCount = 0
	}
	if q.MonetaryAmount < 0 || math.IsNaN(q.MonetaryAmount) {
		q.MonetaryAmount = 0
	}
	return q
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	case *int:
		if n != nil {
			return *n, true
		}
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		return i, err == nil
	case fmt.Stringer:
		i, err := strconv.Atoi(n.String())
		return i, err == nil
	}
	return 0, false
}

func clamp(v, lo, hi int) int {
	return max(lo, min(hi, v))
}
