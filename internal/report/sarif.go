package report

import (
	"encoding/json"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/redactyl/alertlens/internal/types"
)

// ToolVersion is reported as the SARIF driver version.
var ToolVersion = "dev"

type sarif struct {
	Schema  string     `json:"$schema"`
	Version string     `json:"version"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool       sarifTool      `json:"tool"`
	Results    []sarifResult  `json:"results"`
	Properties map[string]int `json:"properties,omitempty"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name    string      `json:"name"`
	Version string      `json:"version"`
	Rules   []sarifRule `json:"rules,omitempty"`
}

type sarifRule struct {
	ID               string       `json:"id"`
	Name             string       `json:"name"`
	ShortDescription sarifMessage `json:"shortDescription"`
}

type sarifResult struct {
	RuleID     string         `json:"ruleId"`
	Level      string         `json:"level"`
	Message    sarifMessage   `json:"message"`
	Locations  []sarifLoc     `json:"locations"`
	Properties map[string]any `json:"properties,omitempty"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifLoc struct {
	PhysicalLocation sarifPhys `json:"physicalLocation"`
}

type sarifPhys struct {
	ArtifactLocation sarifArt `json:"artifactLocation"`
}

type sarifArt struct {
	URI string `json:"uri"`
}

func riskToLevel(r types.RiskLevel) string {
	switch r {
	case types.RiskCritical, types.RiskHigh:
		return "error"
	case types.RiskMedium:
		return "warning"
	default:
		return "note"
	}
}

// WriteSARIF writes findings as SARIF 2.1.0 to the provided writer.
func WriteSARIF(w io.Writer, findings []types.Finding) error {
	return WriteSARIFWithStats(w, findings, nil)
}

// WriteSARIFWithStats is WriteSARIF with run-level counters attached as
// properties.
func WriteSARIFWithStats(w io.Writer, findings []types.Finding, stats map[string]int) error {
	areas := map[types.FocusArea]bool{}
	run := sarifRun{
		Results:    []sarifResult{},
		Properties: stats,
	}
	for _, f := range Sorted(findings) {
		areas[f.FocusArea] = true
		msg := f.Title
		if msg == "" {
			msg = f.AlertName
		}
		if purpose := strings.TrimSpace(f.BusinessImpact); purpose != "" {
			msg += ": " + purpose
		}
		run.Results = append(run.Results, sarifResult{
			RuleID:  string(f.FocusArea),
			Level:   riskToLevel(f.RiskLevel),
			Message: sarifMessage{Text: msg},
			Locations: []sarifLoc{{
				PhysicalLocation: sarifPhys{ArtifactLocation: sarifArt{URI: location(f)}},
			}},
			Properties: map[string]any{
				"alert_id":        f.AlertID,
				"risk_score":      f.RiskScore,
				"risk_level":      f.RiskLevel,
				"severity":        f.Severity,
				"monetary_amount": f.MonetaryAmount,
				"currency":        f.Currency,
			},
		})
	}
	var ids []string
	for a := range areas {
		ids = append(ids, string(a))
	}
	sort.Strings(ids)
	rules := make([]sarifRule, 0, len(ids))
	for _, id := range ids {
		rules = append(rules, sarifRule{
			ID:               id,
			Name:             ruleName(id),
			ShortDescription: sarifMessage{Text: "Alerts classified as " + id},
		})
	}
	run.Tool = sarifTool{Driver: sarifDriver{Name: "alertlens", Version: ToolVersion, Rules: rules}}

	doc := sarif{
		Schema:  "https://json.schemastore.org/sarif-2.1.0.json",
		Version: "2.1.0",
		Runs:    []sarifRun{run},
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

func location(f types.Finding) string {
	if f.Source != "" {
		return filepath.ToSlash(f.Source)
	}
	return f.AlertID
}

// ruleName turns BUSINESS_PROTECTION into BusinessProtection.
func ruleName(id string) string {
	var b strings.Builder
	for _, part := range strings.Split(strings.ToLower(id), "_") {
		if part == "" {
			continue
		}
		b.WriteString(strings.ToUpper(part[:1]) + part[1:])
	}
	return b.String()
}
