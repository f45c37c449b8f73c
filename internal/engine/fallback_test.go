package engine

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redactyl/alertlens/internal/artifacts"
	"github.com/redactyl/alertlens/internal/types"
)

func TestActionsFor_AlwaysReview(t *testing.T) {
	for _, sev := range []types.Severity{types.SevCritical, types.SevHigh, types.SevMedium, types.SevLow} {
		t.Run(string(sev), func(t *testing.T) {
			found := false
			for _, a := range actionsFor(sev) {
				if strings.Contains(strings.ToLower(a), "review") {
					found = true
				}
			}
			assert.True(t, found, "no review action for %s", sev)
		})
	}
}

func TestBusinessRisk(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"Possible fraud in vendor master", "Potential fraud or security exposure requiring investigation"},
		{"Revenue recognised early", "Potential financial loss or revenue leakage"},
		{"Batch job cancelled", "Operational or process control weakness"},
		{"Something else", defaultBusinessRisk},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, businessRisk(tt.text))
		})
	}
}

func TestQuantities_Table(t *testing.T) {
	table, ok := artifacts.ReadCSV(vendorsSummary)
	require.True(t, ok)
	q := quantities(types.ArtifactBundle{Table: table})
	assert.Equal(t, 4, q.TotalCount)
	assert.Equal(t, 4, q.KeyMetrics["total_records"])
	assert.Equal(t, "EUR", q.KeyMetrics["currency"])
	assert.Equal(t, 4, q.KeyMetrics["column_count"])
	for i := 1; i < len(q.NotableItems); i++ {
		assert.GreaterOrEqual(t, q.NotableItems[i-1].Amount, q.NotableItems[i].Amount)
	}
}

func TestQuantities_SingleRowNoConcentration(t *testing.T) {
	table, ok := artifacts.ReadCSV("Vendor (LIFNR),Vendor Name,Amount (DMBTR),Currency (WAERS)\nV1,Acme,10.00,EUR\n")
	require.True(t, ok)
	q := quantities(types.ArtifactBundle{Table: table})
	require.Len(t, q.NotableItems, 1)
	assert.Equal(t, 100.0, q.NotableItems[0].PercentageOfTotal)
	assert.Empty(t, q.ThresholdViolations)
}

func TestQuantities_NotableItemsBeyondSampleRows(t *testing.T) {
	var b strings.Builder
	b.WriteString("Vendor (LIFNR),Vendor Name,Amount (DMBTR),Currency (WAERS)\n")
	for i := 0; i < 20; i++ {
		amount := "100.00"
		if i == 15 {
			amount = "9000000.00"
		}
		fmt.Fprintf(&b, "V%03d,Name %d,%s,EUR\n", i, i, amount)
	}
	table, ok := artifacts.ReadCSV(b.String())
	require.True(t, ok)
	require.Len(t, table.SampleRows, 10)

	q := quantities(types.ArtifactBundle{Table: table})
	require.NotEmpty(t, q.NotableItems)
	assert.Equal(t, "V015", q.NotableItems[0].Title)
	assert.Equal(t, 9_000_000.0, q.NotableItems[0].Amount)
	assert.Greater(t, q.NotableItems[0].PercentageOfTotal, 99.0)
	assert.Len(t, q.NotableItems, maxNotable)

	found := false
	for _, v := range q.ThresholdViolations {
		if strings.HasPrefix(v, "Concentration: V015") {
			found = true
		}
	}
	assert.True(t, found, "violations: %v", q.ThresholdViolations)
}

func TestQuantities_Text(t *testing.T) {
	q := quantities(types.ArtifactBundle{Summary: strp("Found 1,500 items totaling $2,000,000.00")})
	assert.Equal(t, 1500, q.TotalCount)
	assert.InDelta(t, 2_000_000, q.MonetaryAmount, 0.001)
	require.Len(t, q.ThresholdViolations, 2)
	assert.Equal(t, "Volume threshold exceeded: 1,500 records", q.ThresholdViolations[0])
}

func TestQuantities_NoSummary(t *testing.T) {
	q := quantities(types.ArtifactBundle{Explanation: strp("Example: 5,000 records worth $9,999,999")})
	assert.Equal(t, 0, q.TotalCount, "explanation text never feeds quantities")
	assert.Equal(t, 0.0, q.MonetaryAmount)
}

func TestFirstParagraph(t *testing.T) {
	assert.Equal(t, "Body text.", firstParagraph("# Heading\n\nBody text.\n\nMore."))
	assert.Equal(t, "", firstParagraph("  "))
}
