package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/redactyl/alertlens/internal/artifacts"
	"github.com/redactyl/alertlens/internal/cache"
	"github.com/redactyl/alertlens/internal/classify"
	"github.com/redactyl/alertlens/internal/contextdocs"
	"github.com/redactyl/alertlens/internal/llm"
	"github.com/redactyl/alertlens/internal/rules"
	"github.com/redactyl/alertlens/internal/scoring"
	"github.com/redactyl/alertlens/internal/severity"
	"github.com/redactyl/alertlens/internal/types"
	"github.com/redactyl/alertlens/internal/validate"
)

// Cache stores Findings between runs. A hit requires the same key and
// fingerprint.
type Cache interface {
	Get(key, fp string) (types.Finding, bool)
	Put(key, fp string, f types.Finding)
}

var _ Cache = (*cache.Store)(nil)

// Sink receives every Finding the Analyzer produces.
type Sink interface {
	Store(ctx context.Context, f types.Finding) error
}

// Options configures an Analyzer. Nil components use the built-in tables.
type Options struct {
	Rules      *rules.Set
	Classifier *classify.Classifier
	Resolver   *severity.Resolver
	Scorer     *scoring.Engine
	// LLM enables the model path; every model failure falls back to the
	// deterministic path.
	LLM    llm.Provider
	Docs   *contextdocs.Loader
	Logger zerolog.Logger
	Cache  Cache
	Clock  func() time.Time
	Sink   Sink
	// IncludeRaw attaches the intermediate results to Finding.RawAnalysis.
	IncludeRaw bool
	// Progress is called once per finished alert in batch runs.
	Progress func()
}

// Analyzer turns artifact bundles into Findings. It is safe for concurrent
// use.
type Analyzer struct {
	opts       Options
	log        zerolog.Logger
	classifier *classify.Classifier
	resolver   *severity.Resolver
	scorer     *scoring.Engine
	reader     artifacts.Reader
	salt       []string
}

// New returns an Analyzer for opts.
func New(opts Options) *Analyzer {
	rs := opts.Rules
	if rs == nil {
		rs = rules.Default()
	}
	a := &Analyzer{
		opts:       opts,
		log:        opts.Logger.With().Str("component", "engine").Logger(),
		classifier: opts.Classifier,
		resolver:   opts.Resolver,
		scorer:     opts.Scorer,
	}
	if a.classifier == nil {
		a.classifier = classify.New(rs)
	}
	if a.resolver == nil {
		a.resolver = severity.New(rs)
	}
	if a.scorer == nil {
		a.scorer = scoring.New(a.resolver)
	}
	if a.opts.Clock == nil {
		a.opts.Clock = time.Now
	}
	mode := "deterministic"
	if opts.LLM != nil {
		mode = "llm"
	}
	a.salt = []string{rs.Digest(), types.AnalysisVersion, mode}
	return a
}

// AnalyzeDir reads the bundle in dir and analyzes it. Only input errors
// (a missing or unreadable directory) are returned.
func (a *Analyzer) AnalyzeDir(ctx context.Context, dir string) (types.Finding, error) {
	b, err := a.reader.ReadDir(a.log.WithContext(ctx), dir)
	if err != nil {
		return types.Finding{}, err
	}
	return a.Analyze(ctx, b), nil
}

// Analyze runs the pipeline on b. It always returns a Finding; failures
// inside the pipeline produce a degraded error Finding.
func (a *Analyzer) Analyze(ctx context.Context, b types.ArtifactBundle) (f types.Finding) {
	log := a.log.With().Str("alert_id", b.AlertID).Str("alert_name", b.AlertName).Logger()
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("analysis panicked")
			f = a.errorFinding(b, fmt.Errorf("%v", r))
		}
		a.store(ctx, log, f)
	}()

	if err := ctx.Err(); err != nil {
		return a.errorFinding(b, err)
	}
	key := cacheKey(b)
	var fp string
	if a.opts.Cache != nil {
		fp = cache.Fingerprint(b, a.salt...)
		if cached, ok := a.opts.Cache.Get(key, fp); ok {
			log.Debug().Str("fingerprint", fp).Msg("cache hit")
			return cached
		}
	}

	f, err := a.analyze(ctx, log, b)
	if err != nil {
		log.Error().Err(err).Msg("analysis failed")
		return a.errorFinding(b, err)
	}
	if a.opts.Cache != nil {
		a.opts.Cache.Put(key, fp, f)
	}
	log.Info().Int("risk_score", f.RiskScore).Str("focus_area", string(f.FocusArea)).Msg("analysis complete")
	return f
}

func (a *Analyzer) store(ctx context.Context, log zerolog.Logger, f types.Finding) {
	if a.opts.Sink == nil {
		return
	}
	if err := a.opts.Sink.Store(ctx, f); err != nil {
		log.Warn().Err(err).Msg("sink rejected finding")
	}
}

func (a *Analyzer) analyze(ctx context.Context, log zerolog.Logger, b types.ArtifactBundle) (types.Finding, error) {
	var warnings []string

	cls := a.classify(ctx, log, b, &warnings)
	an, fromLLM := a.analysis(ctx, log, b, cls.FocusArea, &warnings)
	if err := ctx.Err(); err != nil {
		return types.Finding{}, err
	}

	score := a.scorer.Score(scoring.Input{
		FocusArea:    cls.FocusArea,
		Qualitative:  an.Qualitative,
		Quantitative: an.Quantitative,
		Severity:     string(an.Severity),
		AlertName:    b.AlertName,
		Explanation:  types.Text(b.Explanation),
		CodeSummary:  b.CodeSummary,
		Metadata:     metadataMap(b),
	})
	desc := a.describe(ctx, log, b, cls.FocusArea, an, fromLLM, &warnings)

	sev := score.Qualitative.Severity
	q := score.Quantitative
	reasoning := score.Qualitative.SeverityReasoning
	if reasoning == "" {
		reasoning = an.SeverityReasoning
	}
	if !fromLLM {
		reasoning = joinReasons(reasoning, volumeNote(q))
	}
	actions := an.RecommendedActions
	if !fromLLM || len(actions) == 0 {
		actions = actionsFor(sev)
	}

	f := types.Finding{
		AlertID:                 b.AlertID,
		AlertName:               b.AlertName,
		FocusArea:               cls.FocusArea,
		FocusAreaConfidence:     cls.Confidence,
		ClassificationReasoning: cls.Reasoning,
		Title:                   desc.Title,
		Description:             desc.Description,
		BusinessImpact:          desc.BusinessImpact,
		WhatHappened:            score.Qualitative.WhatHappened,
		BusinessRisk:            score.Qualitative.BusinessRisk,
		AffectedAreas:           nonNil(score.Qualitative.AffectedAreas),
		TotalCount:              q.TotalCount,
		MonetaryAmount:          q.MonetaryAmount,
		Currency:                q.Currency,
		KeyMetrics:              q.KeyMetrics,
		NotableItems:            q.NotableItems,
		ThresholdViolations:     nonNil(q.ThresholdViolations),
		Severity:                sev,
		SeverityReasoning:       reasoning,
		RiskScore:               score.RiskScore,
		RiskLevel:               score.RiskLevel,
		RiskFactors:             nonNil(score.RiskFactors),
		ScoringBreakdown:        score.Breakdown,
		MoneyLossEstimate:       score.MoneyLossEstimate,
		MoneyLossConfidence:     score.MoneyLossConfidence,
		RecommendedActions:      actions,
		AnalyzedAt:              a.opts.Clock().UTC(),
		AnalysisVersion:         types.AnalysisVersion,
		Source:                  b.SourceDir,
	}
	if a.opts.IncludeRaw {
		f.RawAnalysis = a.raw(ctx, log, b, cls, an, fromLLM, score)
	}

	for _, w := range validate.Finding(f) {
		log.Warn().Str("check", "completeness").Msg(w)
		warnings = append(warnings, w)
	}
	f.Warnings = warnings
	return f, nil
}

func (a *Analyzer) classify(ctx context.Context, log zerolog.Logger, b types.ArtifactBundle, warnings *[]string) types.ClassificationResult {
	if a.opts.LLM != nil {
		res, err := a.opts.LLM.Classify(ctx, b)
		if err == nil {
			return res
		}
		log.Warn().Err(err).Msg("llm classification failed, using keyword classifier")
		*warnings = append(*warnings, "llm classification failed: "+err.Error())
	}
	return a.classifier.Classify(b)
}

func (a *Analyzer) analysis(ctx context.Context, log zerolog.Logger, b types.ArtifactBundle, area types.FocusArea, warnings *[]string) (llm.Analysis, bool) {
	if a.opts.LLM != nil {
		an, err := a.opts.LLM.AnalyzeSummary(ctx, b, area)
		if err == nil {
			return an, true
		}
		log.Warn().Err(err).Msg("llm analysis failed, using fallback analysis")
		*warnings = append(*warnings, "llm analysis failed: "+err.Error())
	}
	return a.fallback(b, area), false
}

func (a *Analyzer) describe(ctx context.Context, log zerolog.Logger, b types.ArtifactBundle, area types.FocusArea, an llm.Analysis, fromLLM bool, warnings *[]string) llm.Description {
	if d, ok := a.opts.LLM.(llm.Describer); ok && fromLLM {
		desc, err := d.DescribeFinding(ctx, b, area, an)
		if err == nil {
			return desc
		}
		log.Warn().Err(err).Msg("llm description failed, using fallback description")
		*warnings = append(*warnings, "llm description failed: "+err.Error())
	}
	return fallbackDescription(b)
}

func (a *Analyzer) raw(ctx context.Context, log zerolog.Logger, b types.ArtifactBundle, cls types.ClassificationResult, an llm.Analysis, fromLLM bool, score types.CombinedScore) map[string]any {
	source := "fallback"
	if fromLLM {
		source = "llm"
	}
	raw := map[string]any{
		"classification":    cls,
		"analysis":          an,
		"analysis_source":   source,
		"scoring_breakdown": score.Breakdown,
	}
	if rr, ok := a.opts.LLM.(llm.RiskReviewer); ok && fromLLM {
		if rv, err := rr.ReviewRisk(ctx, b, cls.FocusArea, an); err == nil {
			raw["risk"] = rv
		} else {
			log.Debug().Err(err).Msg("llm risk review failed")
		}
	}
	if a.opts.Docs != nil {
		if doc, ok := a.opts.Docs.FocusAreaContext(cls.FocusArea); ok {
			raw["focus_area_context"] = firstParagraph(doc)
		}
	}
	return raw
}

// errorFinding is the degraded Finding returned when the pipeline fails.
func (a *Analyzer) errorFinding(b types.ArtifactBundle, err error) types.Finding {
	msg := err.Error()
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		msg = "cancelled: " + msg
	}
	return types.Finding{
		AlertID:                 b.AlertID,
		AlertName:               b.AlertName,
		FocusArea:               types.BusinessControl,
		FocusAreaConfidence:     0,
		ClassificationReasoning: "Analysis failed: " + msg,
		Title:                   "Error analyzing: " + b.AlertName,
		Description:             "Analysis failed with error: " + msg,
		BusinessImpact:          "Unable to assess - manual review required",
		WhatHappened:            "Analysis error occurred",
		BusinessRisk:            "Unknown",
		AffectedAreas:           []string{},
		Currency:                "USD",
		KeyMetrics:              map[string]any{},
		NotableItems:            []types.NotableItem{},
		ThresholdViolations:     []string{},
		Severity:                types.SevMedium,
		SeverityReasoning:       "Default severity due to analysis error",
		RiskScore:               50,
		RiskLevel:               types.RiskMedium,
		RiskFactors:             []string{"Analysis failed - manual review required"},
		RecommendedActions:      []string{"Manual review required", "Check alert data integrity"},
		AnalyzedAt:              a.opts.Clock().UTC(),
		AnalysisVersion:         types.AnalysisVersion,
		Degraded:                true,
		Source:                  b.SourceDir,
	}
}

// metadataMap is the scoring metadata of a bundle: flattened metadata
// fields, the raw text and the typed parameters, which win over both.
func metadataMap(b types.ArtifactBundle) map[string]any {
	md := make(map[string]any, len(b.MetadataFields)+6)
	for k, v := range b.MetadataFields {
		md[k] = v
	}
	if b.Metadata != nil {
		md["raw_metadata"] = *b.Metadata
	}
	p := b.Params
	if p.BackDays == nil && b.Code != nil {
		p.BackDays = artifacts.ParseParams(*b.Code).BackDays
	}
	if p.BackDays != nil {
		md["BACKDAYS"] = *p.BackDays
	}
	if p.RepetBackDays != nil {
		md["REPET_BACKDAYS"] = *p.RepetBackDays
	}
	if p.Duration != nil {
		md["DURATION"] = *p.Duration
	}
	if p.Threshold != nil {
		md["THRESHOLD"] = *p.Threshold
	}
	if p.Amount != nil {
		md["AMOUNT"] = *p.Amount
	}
	return md
}

func cacheKey(b types.ArtifactBundle) string {
	if b.SourceDir != "" {
		return b.SourceDir
	}
	return b.AlertID
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func firstParagraph(s string) string {
	for _, p := range strings.Split(strings.TrimSpace(s), "\n\n") {
		p = strings.TrimSpace(p)
		if p != "" && !strings.HasPrefix(p, "#") {
			return p
		}
	}
	return ""
}
