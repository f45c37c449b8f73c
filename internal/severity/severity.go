// Package severity maps an alert's type to a severity level using ordered,
// focus-area-specific pattern tiers.
package severity

import (
	"fmt"
	"strings"

	"github.com/redactyl/alertlens/internal/rules"
	"github.com/redactyl/alertlens/internal/types"
)

// Resolver resolves alert severity from a rule set.
type Resolver struct {
	rules *rules.Set
}

// New returns a Resolver over rs, or over the built-in table when rs is nil.
func New(rs *rules.Set) *Resolver {
	if rs == nil {
		rs = rules.Default()
	}
	return &Resolver{rules: rs}
}

// Default returns a Resolver over the built-in table.
func Default() *Resolver { return New(nil) }

// Resolve determines the severity of an alert and explains the decision.
// Tier patterns are tried first, then cross-area indicators, then the
// area's default.
func (r *Resolver) Resolve(alertName string, area types.FocusArea, explanation, codeSummary string) (types.Severity, string) {
	text := strings.ToLower(joinText(alertName, explanation, codeSummary))

	if m, ok := r.rules.MatchTier(area, text); ok {
		return m.Level, fmt.Sprintf("Alert type matches %s pattern: %s", strings.ToUpper(string(m.Level)), m.Pattern)
	}
	for _, ind := range r.rules.Severity.Indicators {
		if strings.Contains(text, ind.Keyword) {
			return ind.Level, ind.Reason
		}
	}
	if v, ok := r.rules.Severity.Defaults[area]; ok {
		return v.Level, v.Reason
	}
	fb := r.rules.Severity.Fallback
	return fb.Level, fb.Reason
}

// joinText joins the non-empty parts with single spaces so end-anchored
// patterns can match.
func joinText(parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " ")
}

// BaseScore is the factor-one contribution of a severity.
func BaseScore(s types.Severity) int {
	switch s {
	case types.SevCritical:
		return 90
	case types.SevHigh:
		return 75
	case types.SevLow:
		return 50
	default:
		return 60
	}
}
