package scoring

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redactyl/alertlens/internal/types"
)

func quant(count int, amount float64) types.QuantitativeFinding {
	q := types.NewQuantitativeFinding()
	q.TotalCount = count
	q.MonetaryAmount = amount
	return q
}

func TestScore_HighSeverityLargeExposureClampsToCritical(t *testing.T) {
	got := Default().Score(Input{
		FocusArea:    types.BusinessProtection,
		Severity:     "High",
		Quantitative: quant(1500, 2_000_000),
	})
	assert.Equal(t, 100, got.RiskScore)
	assert.Equal(t, types.RiskCritical, got.RiskLevel)
	assert.Equal(t, 75.0, got.Breakdown[KeySeverityBase])
	assert.Equal(t, 15.0, got.Breakdown[KeyCountAdjustment])
	assert.Equal(t, 20.0, got.Breakdown[KeyMoneyAdjustment])
	assert.Equal(t, 120.0, got.Breakdown[KeyAreaMultiplier])
	assert.Equal(t, 0.0, got.Breakdown[KeyQuantityAdjust])
	assert.Equal(t, 100.0, got.Breakdown[KeyFinalScore])
	assert.NotContains(t, got.Breakdown, KeyBackDays)

	assert.Equal(t, 2_000_000.0, got.MoneyLossEstimate)
	assert.Equal(t, 0.8, got.MoneyLossConfidence)
	assert.Equal(t, []string{
		"High severity",
		"High volume: 1,500 items",
		"Financial exposure: $2,000,000.00",
		"Possible fraud/security event - stakeholder review required",
	}, got.RiskFactors)
}

func TestScore_MediumBoundaryBandsAsHigh(t *testing.T) {
	got := Default().Score(Input{
		FocusArea:    types.BusinessControl,
		Severity:     "medium",
		Quantitative: quant(50, 0),
	})
	assert.Equal(t, 60, got.RiskScore)
	assert.Equal(t, types.RiskHigh, got.RiskLevel)
	assert.Equal(t, types.SevMedium, got.Qualitative.Severity)
}

func TestScore_BackDaysNormalisesCount(t *testing.T) {
	tests := []struct {
		name     string
		metadata map[string]any
		wantAdj  float64
		wantRate float64
		factor   string
	}{
		{"one week", map[string]any{"BACKDAYS": 7}, 15, 277.57, "Volume: 1,943 items over 7 day(s) (277.6/day)"},
		{"one month", map[string]any{"backdays": "30"}, 10, 64.77, "Volume: 1,943 items over 30 day(s) (64.8/day)"},
		{"raw metadata", map[string]any{"raw_metadata": "ALERT=1\nBackDays: 30\n"}, 10, 64.77, "Volume: 1,943 items over 30 day(s) (64.8/day)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Default().Score(Input{
				FocusArea:    types.BusinessControl,
				Severity:     "Medium",
				Quantitative: quant(1943, 0),
				Metadata:     tt.metadata,
			})
			assert.Equal(t, tt.wantAdj, got.Breakdown[KeyCountAdjustment])
			assert.Equal(t, 1943.0, got.Breakdown[KeyRawCount])
			assert.Equal(t, tt.wantRate, got.Breakdown[KeyNormalizedPerDay])
			assert.Contains(t, got.RiskFactors, tt.factor)
		})
	}

	t.Run("absent uses raw thresholds", func(t *testing.T) {
		got := Default().Score(Input{FocusArea: types.BusinessControl, Quantitative: quant(1943, 0)})
		assert.Equal(t, 15.0, got.Breakdown[KeyCountAdjustment])
		assert.Contains(t, got.RiskFactors, "High volume: 1,943 items")
	})
	t.Run("zero is ignored", func(t *testing.T) {
		got := Default().Score(Input{Quantitative: quant(600, 0), Metadata: map[string]any{"BACKDAYS": 0}})
		assert.Equal(t, 10.0, got.Breakdown[KeyCountAdjustment])
		assert.NotContains(t, got.Breakdown, KeyBackDays)
	})
}

func TestBackDays(t *testing.T) {
	tests := []struct {
		name string
		md   map[string]any
		want int
		ok   bool
	}{
		{"nil", nil, 0, false},
		{"int", map[string]any{"BACKDAYS": 3}, 3, true},
		{"float", map[string]any{"BackDays": 2.0}, 2, true},
		{"json number", map[string]any{"back_days": json.Number("14")}, 14, true},
		{"bad typed value falls through to raw", map[string]any{"BACKDAYS": "x", "raw_metadata": "BACKDAYS=5"}, 5, true},
		{"none", map[string]any{"DURATION": 1}, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := BackDays(tt.md)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestScore_ResolvesSeverityFromAlertType(t *testing.T) {
	got := Default().Score(Input{
		FocusArea: types.BusinessProtection,
		AlertName: "Rarely Used Vendors",
		Severity:  "Low",
		Qualitative: types.QualitativeFinding{
			WhatHappened: "Vendors without postings received payments",
		},
		Quantitative: quant(0, 0),
	})
	assert.Equal(t, types.SevHigh, got.Qualitative.Severity)
	assert.Contains(t, got.Qualitative.SeverityReasoning, "HIGH pattern")
	require.NotEmpty(t, got.RiskFactors)
	assert.Contains(t, got.RiskFactors[0], "High severity - Alert type matches HIGH pattern")
	// (75 + 0 + 0 + 0) * 1.2
	assert.Equal(t, 90, got.RiskScore)
}

func TestScore_ResolvesSeverityFromCodeSummary(t *testing.T) {
	got := Default().Score(Input{
		FocusArea:   types.BusinessProtection,
		AlertName:   "User Master Review",
		Explanation: "Lists users reviewed in the period.\n\nAny user holding the profile is flagged.",
		CodeSummary: "* Alert Definition: Users granted SAP_ALL profile",
		Qualitative: types.QualitativeFinding{
			WhatHappened: "Lists users reviewed in the period.",
		},
		Quantitative: quant(0, 0),
	})
	assert.Equal(t, types.SevCritical, got.Qualitative.Severity)
	assert.Contains(t, got.Qualitative.SeverityReasoning, "sap_all")
	// (90 + 0 + 0 + 0) * 1.2
	assert.Equal(t, 100, got.RiskScore)
}

func TestScore_ClampingAndBands(t *testing.T) {
	areas := append([]types.FocusArea{""}, types.FocusAreas...)
	severities := []string{"Critical", "High", "Medium", "Low", "bogus"}
	counts := []int{0, 1, 99, 100, 5000}
	amounts := []float64{0, 999, 50_000, 5_000_000}
	for _, a := range areas {
		for _, s := range severities {
			for _, c := range counts {
				for _, m := range amounts {
					q := quant(c, m)
					q.ThresholdViolations = []string{"a", "b", "c", "d"}
					q.NotableItems = make([]types.NotableItem, 5)
					got := Default().Score(Input{FocusArea: a, Severity: s, Quantitative: q})
					require.GreaterOrEqual(t, got.RiskScore, 0)
					require.LessOrEqual(t, got.RiskScore, 100)
					require.Equal(t, types.RiskLevelFromScore(got.RiskScore), got.RiskLevel)
					require.LessOrEqual(t, got.Breakdown[KeyQuantityAdjust], 15.0)
				}
			}
		}
	}
}

func TestRiskLevelBands(t *testing.T) {
	tests := []struct {
		score int
		want  types.RiskLevel
	}{
		{0, types.RiskLow}, {25, types.RiskLow}, {26, types.RiskMedium}, {50, types.RiskMedium},
		{51, types.RiskHigh}, {75, types.RiskHigh}, {76, types.RiskCritical}, {100, types.RiskCritical},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, types.RiskLevelFromScore(tt.score), "score %d", tt.score)
	}
}

func TestQuantityAdjustment(t *testing.T) {
	tests := []struct {
		name       string
		notable    int
		violations int
		count      int
		amount     float64
		want       int
	}{
		{"nothing", 0, 0, 0, 0, 0},
		{"two notable", 2, 0, 0, 0, 3},
		{"five notable", 5, 0, 0, 0, 5},
		{"two violations", 0, 2, 0, 0, 4},
		{"three violations flat", 0, 3, 0, 0, 5},
		{"medium concentration", 0, 0, 10, 150_000, 3},
		{"high concentration", 0, 0, 2, 400_000, 5},
		{"capped", 5, 4, 1, 1_000_000, 15},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := quant(tt.count, tt.amount)
			q.NotableItems = make([]types.NotableItem, tt.notable)
			for i := 0; i < tt.violations; i++ {
				q.ThresholdViolations = append(q.ThresholdViolations, "v")
			}
			assert.Equal(t, tt.want, quantityAdjustment(q))
		})
	}
}

func TestMoneyLoss(t *testing.T) {
	loss, conf := MoneyLoss(types.BusinessProtection, types.SevHigh, quant(10, 0))
	assert.Equal(t, 75_000.0, loss)
	assert.Equal(t, 0.4, conf)

	loss, conf = MoneyLoss(types.JobsControl, types.SevLow, quant(0, 0))
	assert.Equal(t, 100.0, loss, "count is floored at one")
	assert.Equal(t, 0.4, conf)

	loss, _ = MoneyLoss(types.S4HANAExcellence, types.SevCritical, quant(3, 0))
	assert.Equal(t, 6000.0, loss, "unknown areas use 1000 per item")

	loss, conf = MoneyLoss(types.TechnicalControl, types.SevLow, quant(3, 1234.5))
	assert.Equal(t, 1234.5, loss)
	assert.Equal(t, 0.8, conf)
}

func TestRiskFactors_Order(t *testing.T) {
	q := quant(12, 25_000)
	q.ThresholdViolations = []string{"one", "two", "three", "four"}
	q.NotableItems = []types.NotableItem{{Title: "A", Amount: 20_000}, {Title: "B", Amount: 5_000}}
	got := riskFactors(types.AccessGovernance, types.QualitativeFinding{Severity: types.SevCritical, SeverityReasoning: "why"}, q, 4, true)
	assert.Equal(t, []string{
		"Critical severity - why",
		"Volume: 12 items over 4 day(s) (3.0/day)",
		"Financial exposure: $25,000.00",
		"Compliance/authorization concern - audit trail needed",
		"Threshold exceeded: one",
		"Threshold exceeded: two",
		"Threshold exceeded: three",
		"2 notable items requiring attention",
	}, got)

	assert.Empty(t, riskFactors(types.S4HANAExcellence, types.QualitativeFinding{Severity: types.SevLow}, quant(0, 0), 0, false))
}

func TestScore_NormalisesCollections(t *testing.T) {
	got := Default().Score(Input{Quantitative: types.QuantitativeFinding{TotalCount: -4, MonetaryAmount: -1}})
	assert.NotNil(t, got.Quantitative.KeyMetrics)
	assert.NotNil(t, got.Quantitative.NotableItems)
	assert.NotNil(t, got.Quantitative.ThresholdViolations)
	assert.NotNil(t, got.Qualitative.AffectedAreas)
	assert.Equal(t, "USD", got.Quantitative.Currency)
	assert.Equal(t, 0, got.Quantitative.TotalCount)
	assert.Equal(t, 0.0, got.Quantitative.MonetaryAmount)
}
