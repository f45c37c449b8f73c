package core

import (
	"context"

	"github.com/redactyl/alertlens/internal/artifacts"
	"github.com/redactyl/alertlens/internal/engine"
	"github.com/redactyl/alertlens/internal/scoring"
	"github.com/redactyl/alertlens/internal/types"
)

// Re-export selected internal types as a stable public API surface.
type (
	Options       = engine.Options
	Finding       = types.Finding
	Bundle        = types.ArtifactBundle
	Content       = artifacts.Content
	Input         = scoring.Input
	CombinedScore = types.CombinedScore
)

// ErrNotFound is returned when an alert directory does not exist.
var ErrNotFound = artifacts.ErrNotFound

// Analyze reads the alert bundle in dir and returns its Finding. Only input
// errors are returned; analysis failures yield a degraded Finding.
func Analyze(ctx context.Context, dir string, opts Options) (Finding, error) {
	return engine.New(opts).AnalyzeDir(ctx, dir)
}

// AnalyzeBundle analyzes an already loaded bundle.
func AnalyzeBundle(ctx context.Context, b Bundle, opts Options) Finding {
	return engine.New(opts).Analyze(ctx, b)
}

// ReadArtifacts loads the bundle in dir without analyzing it.
func ReadArtifacts(ctx context.Context, dir string) (Bundle, error) {
	return artifacts.ReadDir(ctx, dir)
}

// ReadContent builds a bundle from in-memory artifact text.
func ReadContent(c Content) Bundle { return artifacts.ReadContent(c) }

// Score runs the scoring engine with the built-in severity table.
func Score(in Input) CombinedScore { return scoring.Default().Score(in) }
