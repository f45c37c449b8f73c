// Package validate checks that a Finding is complete enough to be handed to
// downstream consumers. Problems are reported as warnings, never errors.
package validate

import (
	"fmt"
	"strings"

	"github.com/redactyl/alertlens/internal/types"
)

// Finding returns the completeness warnings for f. An empty result means the
// finding is complete.
func Finding(f types.Finding) []string {
	var w []string
	if strings.TrimSpace(f.AlertID) == "" {
		w = append(w, "Missing alert_id")
	}
	if strings.TrimSpace(f.AlertName) == "" {
		w = append(w, "Missing alert_name")
	}
	if f.FocusArea == "" {
		w = append(w, "Missing focus_area")
	} else if _, ok := types.ParseFocusArea(string(f.FocusArea)); !ok {
		w = append(w, fmt.Sprintf("Unknown focus_area %q", f.FocusArea))
	}
	if !f.Severity.Valid() {
		w = append(w, fmt.Sprintf("Invalid severity %q", f.Severity))
	}
	if f.RiskScore < 0 || f.RiskScore > 100 {
		w = append(w, fmt.Sprintf("risk_score %d out of range [0,100]", f.RiskScore))
	}
	if f.TotalCount < 0 {
		w = append(w, fmt.Sprintf("total_count %d is negative", f.TotalCount))
	}
	if !HasContent(f) {
		w = append(w, "Finding has no notable_items, description, business_impact or title")
	}
	if f.KeyMetrics == nil {
		w = append(w, "key_metrics is nil")
	}
	if f.NotableItems == nil {
		w = append(w, "notable_items is nil")
	}
	if f.RiskFactors == nil {
		w = append(w, "risk_factors is nil")
	}
	if f.RecommendedActions == nil {
		w = append(w, "recommended_actions is nil")
	}
	return w
}

// HasContent reports whether f carries anything a reader can act on.
func HasContent(f types.Finding) bool {
	return len(f.NotableItems) > 0 ||
		strings.TrimSpace(f.Description) != "" ||
		strings.TrimSpace(f.BusinessImpact) != "" ||
		strings.TrimSpace(f.Title) != ""
}

// BusinessPurpose is a one-line statement of why the finding matters:
// the business impact, else the description, else the alert name.
func BusinessPurpose(f types.Finding) string {
	for _, s := range []string{f.BusinessImpact, f.Description, f.AlertName} {
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return ""
}
