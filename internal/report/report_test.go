package report

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redactyl/alertlens/internal/types"
)

func sample() []types.Finding {
	return []types.Finding{
		{AlertID: "200030_000001", AlertName: "Duplicate Payments", Title: "Duplicate Payments", FocusArea: types.BusinessControl,
			RiskScore: 40, RiskLevel: types.RiskMedium, TotalCount: 12, MonetaryAmount: 1500, Currency: "EUR", Source: "/alerts/dup"},
		{AlertID: "200025_001373", AlertName: "Rarely Used Vendors", Title: "Rarely Used Vendors", FocusArea: types.BusinessProtection,
			RiskScore: 90, RiskLevel: types.RiskCritical, TotalCount: 1943, MonetaryAmount: 2_000_000, Currency: "USD",
			BusinessImpact: "Cash leakage"},
	}
}

func TestPrintText_NoFindings_ShowsFooter(t *testing.T) {
	var buf bytes.Buffer
	PrintText(&buf, nil, PrintOptions{Duration: 1200 * time.Millisecond, AlertsAnalyzed: 10})
	out := buf.String()
	assert.Contains(t, out, "No risky alerts found")
	assert.Contains(t, out, "Alerts analyzed: 10")
	assert.Contains(t, out, "Analysis duration: 1.20s")
}

func TestPrintText_WithFindings(t *testing.T) {
	var buf bytes.Buffer
	PrintText(&buf, sample(), PrintOptions{NoColor: true})
	out := buf.String()
	assert.Contains(t, out, "Findings: 2")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[1], "critical")
	assert.Contains(t, lines[1], "200025_001373")
	assert.NotContains(t, out, "\x1b[")
}

func TestPrintTable_WithFindings(t *testing.T) {
	var buf bytes.Buffer
	PrintTable(&buf, sample(), PrintOptions{NoColor: true, AlertsAnalyzed: 2})
	out := buf.String()
	assert.Contains(t, out, "SCORE")
	assert.Contains(t, out, "Rarely Used Vendors")
	assert.Contains(t, out, "2,000,000.00 USD")
	assert.Contains(t, out, "1,943")
	assert.Contains(t, out, "critical: 1, high: 0, medium: 1, low: 0")
	assert.Less(t, strings.Index(out, "200025_001373"), strings.Index(out, "200030_000001"), "highest score first")
}

func TestPrintTable_NoFindings(t *testing.T) {
	var buf bytes.Buffer
	PrintTable(&buf, nil, PrintOptions{})
	assert.Equal(t, "No risky alerts found ✅\n", buf.String())
}

func TestPrintFinding(t *testing.T) {
	f := sample()[1]
	f.NotableItems = []types.NotableItem{{Title: "V100", Amount: 1_400_000, PercentageOfTotal: 70}}
	f.RecommendedActions = []string{"Review flagged items within 24 hours"}
	f.Degraded = true
	var buf bytes.Buffer
	PrintFinding(&buf, f, PrintOptions{NoColor: true})
	out := buf.String()
	assert.Contains(t, out, "Rarely Used Vendors (200025_001373)")
	assert.Contains(t, out, "Risk: critical 90/100")
	assert.Contains(t, out, "  - V100: 1,400,000.00 USD (70.0%)")
	assert.Contains(t, out, "Recommended actions:\n  - Review flagged items")
	assert.Contains(t, out, "Degraded")
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, nil))
	assert.Equal(t, "[]\n", buf.String())

	buf.Reset()
	require.NoError(t, WriteJSON(&buf, sample()))
	var back []types.Finding
	require.NoError(t, json.Unmarshal(buf.Bytes(), &back))
	assert.Equal(t, "200030_000001", back[0].AlertID, "JSON keeps input order")
}

func TestWriteSARIF(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSARIFWithStats(&buf, sample(), map[string]int{"alertsAnalyzed": 2}))

	var doc map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, "2.1.0", doc["version"])
	run := doc["runs"].([]any)[0].(map[string]any)
	assert.Equal(t, float64(2), run["properties"].(map[string]any)["alertsAnalyzed"])

	driver := run["tool"].(map[string]any)["driver"].(map[string]any)
	rules := driver["rules"].([]any)
	require.Len(t, rules, 2)
	assert.Equal(t, "BUSINESS_CONTROL", rules[0].(map[string]any)["id"])
	assert.Equal(t, "BusinessControl", rules[0].(map[string]any)["name"])

	results := run["results"].([]any)
	first := results[0].(map[string]any)
	assert.Equal(t, "BUSINESS_PROTECTION", first["ruleId"])
	assert.Equal(t, "error", first["level"])
	assert.Equal(t, "Rarely Used Vendors: Cash leakage", first["message"].(map[string]any)["text"])
	uri := first["locations"].([]any)[0].(map[string]any)["physicalLocation"].(map[string]any)["artifactLocation"].(map[string]any)["uri"]
	assert.Equal(t, "200025_001373", uri, "alert id stands in when there is no source dir")

	second := results[1].(map[string]any)
	assert.Equal(t, "warning", second["level"])
}

func TestRiskToLevel(t *testing.T) {
	assert.Equal(t, "error", riskToLevel(types.RiskHigh))
	assert.Equal(t, "note", riskToLevel(types.RiskLow))
}

func TestBaseline(t *testing.T) {
	p := filepath.Join(t.TempDir(), "baseline.json")
	fs := sample()
	require.NoError(t, SaveBaseline(p, fs[:1]))
	base, err := LoadBaseline(p)
	require.NoError(t, err)

	fresh := FilterNewFindings(fs, base)
	require.Len(t, fresh, 1)
	assert.Equal(t, "200025_001373", fresh[0].AlertID)

	// same alert at a new risk level resurfaces
	moved := fs[0]
	moved.RiskLevel = types.RiskHigh
	assert.Len(t, FilterNewFindings([]types.Finding{moved}, base), 1)

	_, err = LoadBaseline(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestShouldFail(t *testing.T) {
	fs := sample()
	tests := []struct {
		failOn string
		want   bool
	}{
		{"critical", true},
		{"high", true},
		{"", true},
		{"none", false},
	}
	for _, tt := range tests {
		t.Run(tt.failOn, func(t *testing.T) {
			assert.Equal(t, tt.want, ShouldFail(fs, tt.failOn))
		})
	}
	assert.False(t, ShouldFail(fs[:1], "high"))
	assert.True(t, ShouldFail(fs[:1], "medium"))
}

func TestFilterMinScore(t *testing.T) {
	assert.Len(t, FilterMinScore(sample(), 50), 1)
	assert.Len(t, FilterMinScore(sample(), 0), 2)
}
