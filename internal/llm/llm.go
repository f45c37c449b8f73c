// Package llm is the optional language-model path of the analyzer: focus-area
// classification, summary analysis, risk review and finding descriptions
// produced by a chat-completions model. The deterministic path never needs
// it; callers fall back to it whenever a Provider call fails.
package llm

import (
	"context"
	"errors"

	"github.com/redactyl/alertlens/internal/types"
)

// ErrNoContent is returned when the model reply has no message content.
var ErrNoContent = errors.New("llm: empty reply")

// Provider classifies and analyzes alert bundles with a language model.
type Provider interface {
	Classify(ctx context.Context, b types.ArtifactBundle) (types.ClassificationResult, error)
	AnalyzeSummary(ctx context.Context, b types.ArtifactBundle, area types.FocusArea) (Analysis, error)
}

// Describer writes the reader-facing text of a finding.
type Describer interface {
	DescribeFinding(ctx context.Context, b types.ArtifactBundle, area types.FocusArea, a Analysis) (Description, error)
}

// RiskReviewer asks the model for its own view of an alert's risk. The
// review is informational; it never replaces the computed score.
type RiskReviewer interface {
	ReviewRisk(ctx context.Context, b types.ArtifactBundle, area types.FocusArea, a Analysis) (RiskReview, error)
}

// Analysis is the model's reading of an alert's summary data.
type Analysis struct {
	FindingsSummary    string                    `json:"findings_summary"`
	Qualitative        types.QualitativeFinding  `json:"qualitative"`
	Quantitative       types.QuantitativeFinding `json:"quantitative"`
	Severity           types.Severity            `json:"severity"`
	SeverityReasoning  string                    `json:"severity_reasoning"`
	RecommendedActions []string                  `json:"recommended_actions"`
}

// Description is the title, body and business impact of a finding.
type Description struct {
	Title            string `json:"title"`
	Description      string `json:"description"`
	BusinessImpact   string `json:"business_impact"`
	TechnicalDetails string `json:"technical_details,omitempty"`
}

// RiskReview is the model's independent risk estimate.
type RiskReview struct {
	RiskScore       int             `json:"risk_score"`
	RiskLevel       types.RiskLevel `json:"risk_level"`
	RiskFactors     []string        `json:"risk_factors"`
	FinancialImpact FinancialImpact `json:"potential_financial_impact"`
}

// FinancialImpact is the money estimate inside a RiskReview.
type FinancialImpact struct {
	EstimatedAmount float64 `json:"estimated_amount"`
	Currency        string  `json:"currency"`
	Confidence      float64 `json:"confidence"`
	Reasoning       string  `json:"reasoning"`
}
