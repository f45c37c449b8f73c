package engine

import (
	"context"
	"path/filepath"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/redactyl/alertlens/internal/artifacts"
	"github.com/redactyl/alertlens/internal/types"
)

// AnalyzeBatch analyzes bundles with at most workers analyses in flight.
// The result has one Finding per bundle, in input order. A failing bundle
// yields an error Finding and never stops its siblings.
func (a *Analyzer) AnalyzeBatch(ctx context.Context, bundles []types.ArtifactBundle, workers int) []types.Finding {
	out := make([]types.Finding, len(bundles))
	var g errgroup.Group
	g.SetLimit(poolSize(workers))
	for i := range bundles {
		i := i
		g.Go(func() error {
			out[i] = a.Analyze(ctx, bundles[i])
			a.progress()
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// AnalyzeDirs reads and analyzes each directory concurrently. Directories
// that cannot be read yield an error Finding named after the directory.
func (a *Analyzer) AnalyzeDirs(ctx context.Context, dirs []string, workers int) []types.Finding {
	out := make([]types.Finding, len(dirs))
	var g errgroup.Group
	g.SetLimit(poolSize(workers))
	for i, dir := range dirs {
		i, dir := i, dir
		g.Go(func() error {
			f, err := a.AnalyzeDir(ctx, dir)
			if err != nil {
				a.log.Error().Err(err).Str("dir", dir).Msg("read failed")
				id, name := artifacts.ParseDirName(filepath.Base(filepath.Clean(dir)))
				f = a.errorFinding(types.ArtifactBundle{AlertID: id, AlertName: name, SourceDir: dir}, err)
				a.store(ctx, a.log, f)
			}
			out[i] = f
			a.progress()
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (a *Analyzer) progress() {
	if a.opts.Progress != nil {
		a.opts.Progress()
	}
}

func poolSize(workers int) int {
	if workers <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return workers
}
