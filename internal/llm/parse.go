package llm

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/redactyl/alertlens/internal/scoring"
	"github.com/redactyl/alertlens/internal/types"
)

var (
	reFenced = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(.*?)\\n?```")
	reObject = regexp.MustCompile(`(?s)\{.*\}`)
)

// ExtractJSON returns the JSON document inside a model reply: the body of
// the first fenced block, else the outermost brace-delimited span, else the
// reply itself.
func ExtractJSON(reply string) string {
	if m := reFenced.FindStringSubmatch(reply); m != nil {
		return m[1]
	}
	if m := reObject.FindString(reply); m != "" {
		return m
	}
	return reply
}

// DecodeReply unmarshals the JSON document of a model reply into v.
func DecodeReply(reply string, v any) error {
	dec := json.NewDecoder(strings.NewReader(ExtractJSON(reply)))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("llm: decode reply: %w", err)
	}
	return nil
}

type classifyReply struct {
	FocusArea  string `json:"focus_area"`
	Confidence any    `json:"confidence"`
	Reasoning  string `json:"reasoning"`
}

// parseClassification converts a classification reply. Unknown focus areas
// become BUSINESS_CONTROL.
func parseClassification(reply string) (types.ClassificationResult, error) {
	var r classifyReply
	if err := DecodeReply(reply, &r); err != nil {
		return types.ClassificationResult{}, err
	}
	area, ok := types.ParseFocusArea(strings.ReplaceAll(r.FocusArea, "/", ""))
	if !ok {
		area = types.BusinessControl
	}
	conf := 0.5
	if v, ok := number(r.Confidence); ok {
		conf = math.Max(0, math.Min(1, v))
	}
	reasoning := r.Reasoning
	if reasoning == "" {
		reasoning = "Classification based on alert content"
	}
	return types.ClassificationResult{FocusArea: area, Confidence: conf, Reasoning: reasoning}, nil
}

type analysisReply struct {
	FindingsSummary string `json:"findings_summary"`
	Qualitative     struct {
		WhatHappened  string   `json:"what_happened"`
		BusinessRisk  string   `json:"business_risk"`
		AffectedAreas []string `json:"affected_areas"`
	} `json:"qualitative_analysis"`
	Quantitative struct {
		TotalCount          any            `json:"total_count"`
		MonetaryAmount      any            `json:"monetary_amount"`
		Currency            string         `json:"currency"`
		KeyMetrics          map[string]any `json:"key_metrics"`
		NotableItems        []notableReply `json:"notable_items"`
		ThresholdViolations []string       `json:"threshold_violations"`
	} `json:"quantitative_analysis"`
	Severity           string   `json:"severity"`
	SeverityReasoning  string   `json:"severity_reasoning"`
	RecommendedActions []string `json:"recommended_actions"`
}

type notableReply struct {
	Item  string `json:"item"`
	Title string `json:"title"`
	Value any    `json:"value"`
}

func parseAnalysis(reply string) (Analysis, error) {
	var r analysisReply
	if err := DecodeReply(reply, &r); err != nil {
		return Analysis{}, err
	}
	a := Analysis{
		FindingsSummary:    r.FindingsSummary,
		Severity:           types.ParseSeverity(r.Severity),
		SeverityReasoning:  r.SeverityReasoning,
		RecommendedActions: r.RecommendedActions,
	}
	if a.FindingsSummary == "" {
		a.FindingsSummary = "Analysis results"
	}
	if a.RecommendedActions == nil {
		a.RecommendedActions = []string{}
	}
	a.Qualitative = types.QualitativeFinding{
		WhatHappened:      r.Qualitative.WhatHappened,
		BusinessRisk:      r.Qualitative.BusinessRisk,
		AffectedAreas:     r.Qualitative.AffectedAreas,
		Severity:          a.Severity,
		SeverityReasoning: a.SeverityReasoning,
	}
	if a.Qualitative.WhatHappened == "" {
		a.Qualitative.WhatHappened = "Event detected"
	}
	if a.Qualitative.BusinessRisk == "" {
		a.Qualitative.BusinessRisk = "Potential business impact"
	}
	if a.Qualitative.AffectedAreas == nil {
		a.Qualitative.AffectedAreas = []string{}
	}

	q := types.NewQuantitativeFinding()
	rq := r.Quantitative
	if n, ok := number(rq.TotalCount); ok && n > 0 {
		q.TotalCount = int(n)
	}
	if rq.Currency != "" {
		q.Currency = strings.ToUpper(rq.Currency)
	}
	if rq.KeyMetrics != nil {
		q.KeyMetrics = rq.KeyMetrics
	}
	if v, ok := number(rq.MonetaryAmount); ok {
		q.MonetaryAmount = v
	} else if v, ok := q.KeyMetrics["total_amount"]; ok {
		q.MonetaryAmount = scoring.ParseMonetaryValue(fmt.Sprint(v))
	}
	for _, it := range rq.NotableItems {
		title := it.Item
		if title == "" {
			title = it.Title
		}
		s := fmt.Sprint(it.Value)
		amount, _ := number(it.Value)
		if _, isNum := it.Value.(json.Number); !isNum {
			amount = scoring.ParseMonetaryValue(s)
		}
		if strings.Contains(s, "$") && amount > q.MonetaryAmount {
			q.MonetaryAmount = amount
		}
		q.NotableItems = append(q.NotableItems, types.NotableItem{Title: title, Amount: amount})
	}
	sort.SliceStable(q.NotableItems, func(i, j int) bool {
		return q.NotableItems[i].Amount > q.NotableItems[j].Amount
	})
	if len(q.NotableItems) > 5 {
		q.NotableItems = q.NotableItems[:5]
	}
	if q.MonetaryAmount < 0 {
		q.MonetaryAmount = 0
	}
	if rq.ThresholdViolations != nil {
		q.ThresholdViolations = rq.ThresholdViolations
	}
	a.Quantitative = q
	return a, nil
}

func parseDescription(reply string) (Description, error) {
	var d Description
	err := DecodeReply(reply, &d)
	return d, err
}

type riskReply struct {
	RiskScore       any      `json:"risk_score"`
	RiskLevel       string   `json:"risk_level"`
	RiskFactors     []string `json:"risk_factors"`
	FinancialImpact struct {
		EstimatedAmount any    `json:"estimated_amount"`
		Currency        string `json:"currency"`
		Confidence      any    `json:"confidence"`
		Reasoning       string `json:"reasoning"`
	} `json:"potential_financial_impact"`
}

func parseRiskReview(reply string) (RiskReview, error) {
	var r riskReply
	if err := DecodeReply(reply, &r); err != nil {
		return RiskReview{}, err
	}
	rv := RiskReview{RiskScore: 50, RiskFactors: r.RiskFactors}
	if v, ok := number(r.RiskScore); ok {
		rv.RiskScore = max(0, min(100, int(math.Round(v))))
	}
	rv.RiskLevel = types.RiskLevel(types.ParseSeverity(r.RiskLevel))
	if rv.RiskFactors == nil {
		rv.RiskFactors = []string{}
	}
	fi := r.FinancialImpact
	rv.FinancialImpact.EstimatedAmount, _ = number(fi.EstimatedAmount)
	rv.FinancialImpact.Confidence, _ = number(fi.Confidence)
	rv.FinancialImpact.Currency = fi.Currency
	rv.FinancialImpact.Reasoning = fi.Reasoning
	return rv, nil
}

// number reads a JSON number or a numeric string.
func number(v any) (float64, bool) {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(n), ",", ""), 64)
		return f, err == nil
	}
	return 0, false
}
