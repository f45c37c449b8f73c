package types

import (
	"strings"
	"time"
)

// FocusArea is the risk category an alert is classified into.
type FocusArea string

const (
	BusinessProtection FocusArea = "BUSINESS_PROTECTION"
	BusinessControl    FocusArea = "BUSINESS_CONTROL"
	AccessGovernance   FocusArea = "ACCESS_GOVERNANCE"
	TechnicalControl   FocusArea = "TECHNICAL_CONTROL"
	JobsControl        FocusArea = "JOBS_CONTROL"
	S4HANAExcellence   FocusArea = "S4HANA_EXCELLENCE"
)

// FocusAreas lists every focus area in declaration order. The order is used
// to break classification ties.
var FocusAreas = []FocusArea{
	BusinessProtection,
	BusinessControl,
	AccessGovernance,
	TechnicalControl,
	JobsControl,
	S4HANAExcellence,
}

// ParseFocusArea normalizes s and reports whether it names a known focus area.
func ParseFocusArea(s string) (FocusArea, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, " ", "_")
	for _, fa := range FocusAreas {
		if string(fa) == s {
			return fa, true
		}
	}
	return "", false
}

// Severity is the urgency of reviewing an alert, resolved from its type.
type Severity string

const (
	SevCritical Severity = "Critical"
	SevHigh     Severity = "High"
	SevMedium   Severity = "Medium"
	SevLow      Severity = "Low"
)

// ParseSeverity maps a case-insensitive severity string to a Severity.
// Unknown values fall back to Medium.
func ParseSeverity(s string) Severity {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "critical":
		return SevCritical
	case "high":
		return SevHigh
	case "low":
		return SevLow
	default:
		return SevMedium
	}
}

// Valid reports whether s is one of the four severity literals.
func (s Severity) Valid() bool {
	switch s {
	case SevCritical, SevHigh, SevMedium, SevLow:
		return true
	}
	return false
}

// RiskLevel is the band a 0-100 risk score falls into.
type RiskLevel string

const (
	RiskCritical RiskLevel = "Critical"
	RiskHigh     RiskLevel = "High"
	RiskMedium   RiskLevel = "Medium"
	RiskLow      RiskLevel = "Low"
)

// RiskLevelFromScore bands a score: 76-100 Critical, 51-75 High, 26-50 Medium,
// 0-25 Low.
func RiskLevelFromScore(score int) RiskLevel {
	switch {
	case score >= 76:
		return RiskCritical
	case score >= 51:
		return RiskHigh
	case score >= 26:
		return RiskMedium
	default:
		return RiskLow
	}
}

// Rank orders risk levels from Low (1) to Critical (4); unknown levels rank 0.
func (r RiskLevel) Rank() int {
	switch r {
	case RiskLow:
		return 1
	case RiskMedium:
		return 2
	case RiskHigh:
		return 3
	case RiskCritical:
		return 4
	}
	return 0
}

// ClassificationResult is the focus area assigned to a bundle.
type ClassificationResult struct {
	FocusArea  FocusArea `json:"focus_area"`
	Confidence float64   `json:"confidence"`
	Reasoning  string    `json:"reasoning"`
}

// QualitativeFinding describes what happened and why it matters.
type QualitativeFinding struct {
	WhatHappened      string   `json:"what_happened"`
	BusinessRisk      string   `json:"business_risk"`
	AffectedAreas     []string `json:"affected_areas"`
	Severity          Severity `json:"severity"`
	SeverityReasoning string   `json:"severity_reasoning"`
}

// NotableItem is one of the top entities by amount in an alert's output.
type NotableItem struct {
	Title             string  `json:"title"`
	Amount            float64 `json:"amount"`
	PercentageOfTotal float64 `json:"percentage_of_total"`
}

// QuantitativeFinding holds the counts and amounts extracted from a summary.
type QuantitativeFinding struct {
	TotalCount          int            `json:"total_count"`
	MonetaryAmount      float64        `json:"monetary_amount"`
	Currency            string         `json:"currency"`
	KeyMetrics          map[string]any `json:"key_metrics"`
	NotableItems        []NotableItem  `json:"notable_items"`
	ThresholdViolations []string       `json:"threshold_violations"`
}

// NewQuantitativeFinding returns a zero QuantitativeFinding with non-nil
// collections and the default USD currency.
func NewQuantitativeFinding() QuantitativeFinding {
	return QuantitativeFinding{
		Currency:            "USD",
		KeyMetrics:          map[string]any{},
		NotableItems:        []NotableItem{},
		ThresholdViolations: []string{},
	}
}

// CombinedScore is the output of the scoring engine.
type CombinedScore struct {
	RiskScore           int                 `json:"risk_score"`
	RiskLevel           RiskLevel           `json:"risk_level"`
	Qualitative         QualitativeFinding  `json:"qualitative"`
	Quantitative        QuantitativeFinding `json:"quantitative"`
	MoneyLossEstimate   float64             `json:"money_loss_estimate"`
	MoneyLossConfidence float64             `json:"money_loss_confidence"`
	RiskFactors         []string            `json:"risk_factors"`
	Breakdown           map[string]float64  `json:"scoring_breakdown"`
}

// AnalysisVersion is stamped on every Finding.
const AnalysisVersion = "1.0.0"

// Finding is the classified, scored and quantified assessment of one alert.
type Finding struct {
	AlertID   string `json:"alert_id"`
	AlertName string `json:"alert_name"`

	FocusArea               FocusArea `json:"focus_area"`
	FocusAreaConfidence     float64   `json:"focus_area_confidence"`
	ClassificationReasoning string    `json:"classification_reasoning"`

	Title          string `json:"title"`
	Description    string `json:"description"`
	BusinessImpact string `json:"business_impact"`

	WhatHappened  string   `json:"what_happened"`
	BusinessRisk  string   `json:"business_risk"`
	AffectedAreas []string `json:"affected_areas"`

	TotalCount          int            `json:"total_count"`
	MonetaryAmount      float64        `json:"monetary_amount"`
	Currency            string         `json:"currency"`
	KeyMetrics          map[string]any `json:"key_metrics"`
	NotableItems        []NotableItem  `json:"notable_items"`
	ThresholdViolations []string       `json:"threshold_violations"`

	Severity          Severity           `json:"severity"`
	SeverityReasoning string             `json:"severity_reasoning"`
	RiskScore         int                `json:"risk_score"`
	RiskLevel         RiskLevel          `json:"risk_level"`
	RiskFactors       []string           `json:"risk_factors"`
	ScoringBreakdown  map[string]float64 `json:"scoring_breakdown,omitempty"`

	MoneyLossEstimate   float64 `json:"money_loss_estimate"`
	MoneyLossConfidence float64 `json:"money_loss_confidence"`

	RecommendedActions []string `json:"recommended_actions"`

	AnalyzedAt      time.Time `json:"analyzed_at"`
	AnalysisVersion string    `json:"analysis_version"`
	Warnings        []string  `json:"warnings,omitempty"`
	Degraded        bool      `json:"degraded,omitempty"`
	Source          string    `json:"source,omitempty"` // directory the bundle was read from

	RawAnalysis map[string]any `json:"raw_analysis,omitempty"`
}
