package report

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/redactyl/alertlens/internal/types"
)

type Baseline struct {
	Items map[string]bool `json:"items"`
}

func LoadBaseline(path string) (Baseline, error) {
	b := Baseline{Items: map[string]bool{}}
	f, err := os.ReadFile(path)
	if err != nil {
		return b, err
	}
	if err := json.Unmarshal(f, &b); err != nil {
		return Baseline{Items: map[string]bool{}}, err
	}
	if b.Items == nil {
		b.Items = map[string]bool{}
	}
	return b, nil
}

func SaveBaseline(path string, findings []types.Finding) error {
	b := Baseline{Items: map[string]bool{}}
	for _, f := range findings {
		if f.Degraded {
			continue
		}
		b.Items[key(f)] = true
	}
	buf, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, buf, 0644)
}

// FilterNewFindings drops the findings already recorded in base.
func FilterNewFindings(findings []types.Finding, base Baseline) []types.Finding {
	var out []types.Finding
	for _, f := range findings {
		if !base.Items[key(f)] {
			out = append(out, f)
		}
	}
	return out
}

// a finding reappears when the same alert lands in the same focus area at
// the same risk level
func key(f types.Finding) string {
	return f.AlertID + "|" + string(f.FocusArea) + "|" + string(f.RiskLevel)
}

// FilterMinScore keeps findings scoring at least min.
func FilterMinScore(findings []types.Finding, min int) []types.Finding {
	if min <= 0 {
		return findings
	}
	var out []types.Finding
	for _, f := range findings {
		if f.RiskScore >= min {
			out = append(out, f)
		}
	}
	return out
}

// ShouldFail reports whether any finding is at or above the failOn risk
// level. "none" never fails; unknown levels default to high.
func ShouldFail(findings []types.Finding, failOn string) bool {
	failOn = strings.ToLower(strings.TrimSpace(failOn))
	if failOn == "none" {
		return false
	}
	level := map[string]int{"low": 1, "medium": 2, "high": 3, "critical": 4}
	th := level[failOn]
	if th == 0 {
		th = 3
	}
	for _, f := range findings {
		if f.RiskLevel.Rank() >= th {
			return true
		}
	}
	return false
}
