package llm

import (
	"encoding/json"
	"strings"
	"text/template"

	"github.com/redactyl/alertlens/internal/types"
)

// PromptVersion identifies the prompt set; it is stored with raw analyses.
const PromptVersion = "1.0.0"

const (
	maxSummaryChars  = 10_000
	maxMetadataChars = 1_000
	notAvailable     = "Not available"
)

var prompts = template.Must(template.New("prompts").Parse(`
{{define "system"}}You are an expert ERP security and compliance analyst.

You review alerts raised by continuous monitoring of an SAP landscape and identify findings that represent business risks, compliance issues or operational problems.

You know these focus areas:

1. BUSINESS_PROTECTION - fraud detection, cybersecurity threats, vendor manipulation, unauthorized financial postings, payment diversions, backdated documents
2. BUSINESS_CONTROL - process bottlenecks, approval delays, stuck orders, unbilled deliveries, incomplete services, data exchange failures, business anomalies
3. ACCESS_GOVERNANCE - segregation of duties violations, excessive privileges, unauthorized access, long sessions, self-approval, authorization issues
4. TECHNICAL_CONTROL - system dumps, memory and CPU issues, infrastructure problems, lock conflicts, configuration drift
5. JOBS_CONTROL - long-running background jobs, job failures, resource contention, job overlaps
6. S4HANA_EXCELLENCE - post-migration safeguarding, S/4HANA configuration drift, migration validation, custom code adaptation

For every alert read the code (what it detects), the explanation (why it matters), the metadata (parameters and thresholds) and the summary (the actual data). Answer with JSON only.
{{- with .Reference}}

Reference material:
{{.}}
{{- end}}
{{end}}

{{define "classify"}}Classify the following alert into ONE focus area.

## Alert
**Alert Name:** {{.AlertName}}

**Code context:**
{{.CodeSummary}}

**Explanation:**
{{.Explanation}}

**Metadata:**
{{.Metadata}}

## Response (JSON)
{
    "focus_area": "FOCUS_AREA_CODE",
    "confidence": 0.0-1.0,
    "reasoning": "Brief explanation of the classification"
}
{{end}}

{{define "analyze"}}Analyze the summary data of the following alert and extract its findings.

## Context
**Alert Name:** {{.AlertName}}
**Focus Area:** {{.FocusArea}}

**What this alert detects:**
{{.Explanation}}

## Summary data
{{.Summary}}

## Task
1. Identify the key findings in the data.
2. Describe what happened and what is at risk.
3. Quantify counts, amounts and percentages.
4. Assess severity and business impact.

## Response (JSON)
{
    "findings_summary": "Human-readable summary of what was found",
    "qualitative_analysis": {
        "what_happened": "Events or issues detected",
        "business_risk": "Business risk they represent",
        "affected_areas": ["affected", "business", "areas"]
    },
    "quantitative_analysis": {
        "total_count": 0,
        "monetary_amount": 0.0,
        "currency": "USD",
        "key_metrics": {"metric_name": "value"},
        "notable_items": [{"item": "description", "value": "amount or count"}],
        "threshold_violations": ["violation"]
    },
    "severity": "Critical|High|Medium|Low",
    "severity_reasoning": "Why this severity",
    "recommended_actions": ["action1", "action2"]
}
{{end}}

{{define "risk"}}Based on the following analysis, estimate a risk score from 0 to 100.

## Alert
**Alert Name:** {{.AlertName}}
**Focus Area:** {{.FocusArea}}

## Analysis
{{.Analysis}}

## Guidelines
- 0-25: Low - minor issues, no immediate action
- 26-50: Medium - review, may escalate
- 51-75: High - needs attention, significant impact possible
- 76-100: Critical - immediate action, major impact

## Response (JSON)
{
    "risk_score": 0-100,
    "risk_level": "Low|Medium|High|Critical",
    "risk_factors": ["factor1", "factor2"],
    "potential_financial_impact": {
        "estimated_amount": 0.0,
        "currency": "USD",
        "confidence": 0.0-1.0,
        "reasoning": "How the estimate was derived"
    }
}
{{end}}

{{define "describe"}}Write a clear, professional finding for a business report.

## Alert
**Alert Name:** {{.AlertName}}
**Focus Area:** {{.FocusArea}}

## Analysis
{{.Analysis}}

## Requirements
- Title: brief and action-oriented, at most 100 characters
- Description: 2-3 sentences explaining the finding
- Business impact: why this matters to the business

## Response (JSON)
{
    "title": "Concise finding title",
    "description": "Description of the finding",
    "business_impact": "Why this matters",
    "technical_details": "Optional technical context"
}
{{end}}
`))

type promptData struct {
	Reference   string
	AlertName   string
	FocusArea   types.FocusArea
	CodeSummary string
	Explanation string
	Metadata    string
	Summary     string
	Analysis    string
}

func render(name string, d promptData) (string, error) {
	var sb strings.Builder
	if err := prompts.ExecuteTemplate(&sb, name, d); err != nil {
		return "", err
	}
	return strings.TrimSpace(sb.String()), nil
}

func bundlePrompt(b types.ArtifactBundle, area types.FocusArea) promptData {
	d := promptData{
		AlertName:   b.AlertName,
		FocusArea:   area,
		CodeSummary: orNA(b.CodeSummary),
		Explanation: orNA(types.Text(b.Explanation)),
		Metadata:    orNA(truncate(types.Text(b.Metadata), maxMetadataChars, "")),
		Summary:     types.Text(b.Summary),
	}
	if d.Summary == "" {
		d.Summary = "No summary data available"
	} else {
		d.Summary = truncate(d.Summary, maxSummaryChars, "\n... [truncated]")
	}
	return d
}

// analysisJSON is the compact analysis passed to follow-up prompts.
func analysisJSON(a Analysis) string {
	b, _ := json.MarshalIndent(struct {
		FindingsSummary string                    `json:"findings_summary"`
		Qualitative     types.QualitativeFinding  `json:"qualitative_analysis"`
		Quantitative    types.QuantitativeFinding `json:"quantitative_analysis"`
		Severity        types.Severity            `json:"severity"`
	}{a.FindingsSummary, a.Qualitative, a.Quantitative, a.Severity}, "", "  ")
	return string(b)
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return notAvailable
	}
	return s
}

func truncate(s string, n int, marker string) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + marker
}
