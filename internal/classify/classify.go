// Package classify assigns a focus area to an alert bundle using the weighted
// keyword table from package rules.
package classify

import (
	"math"
	"strings"

	"github.com/redactyl/alertlens/internal/rules"
	"github.com/redactyl/alertlens/internal/types"
)

// Classifier scores bundle text against every focus area's pattern list.
type Classifier struct {
	rules *rules.Set
}

// New returns a Classifier over the given rule set. A nil set uses the
// built-in table.
func New(rs *rules.Set) *Classifier {
	if rs == nil {
		rs = rules.Default()
	}
	return &Classifier{rules: rs}
}

// Default returns a Classifier over the built-in table.
func Default() *Classifier { return New(nil) }

// Score is the accumulated weight and matched patterns for one area.
type Score struct {
	Area    types.FocusArea
	Points  int
	Matched []string
}

// Scores returns the per-area scores for text in table order. text must be
// lowercased.
func (c *Classifier) Scores(text string) []Score {
	out := make([]Score, 0, len(c.rules.Classifier.Areas))
	for _, a := range c.rules.Classifier.Areas {
		s := Score{Area: a.Area}
		for _, p := range a.Patterns {
			if p.Matches(text) {
				s.Points += p.Weight
				s.Matched = append(s.Matched, p.Match)
			}
		}
		out = append(out, s)
	}
	return out
}

// Classify returns the best-scoring focus area for the bundle. Ties keep the
// first declared area; no match at all yields the configured default.
func (c *Classifier) Classify(b types.ArtifactBundle) types.ClassificationResult {
	cfg := c.rules.Classifier
	best := Score{}
	for _, s := range c.Scores(Text(b)) {
		if s.Points > best.Points {
			best = s
		}
	}
	if best.Points == 0 {
		return types.ClassificationResult{
			FocusArea:  cfg.DefaultArea,
			Confidence: cfg.DefaultConfidence,
			Reasoning:  "Default classification",
		}
	}
	reasons := best.Matched
	if len(reasons) > cfg.MaxReasons {
		reasons = reasons[:cfg.MaxReasons]
	}
	return types.ClassificationResult{
		FocusArea:  best.Area,
		Confidence: math.Min(cfg.MaxConfidence, float64(best.Points)*cfg.ConfidencePerPoint),
		Reasoning:  strings.Join(reasons, ", "),
	}
}

// Text builds the lowercased classification text of a bundle.
func Text(b types.ArtifactBundle) string {
	return strings.ToLower(b.AlertName + " " + types.Text(b.Explanation) + " " + b.CodeSummary)
}
