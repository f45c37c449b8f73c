package audit

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redactyl/alertlens/internal/types"
)

func finding(id string, score int, area types.FocusArea) types.Finding {
	return types.Finding{
		AlertID:          id,
		AlertName:        "Alert " + id,
		FocusArea:        area,
		RiskScore:        score,
		RiskLevel:        types.RiskLevelFromScore(score),
		ScoringBreakdown: map[string]float64{"final_score": float64(score)},
		RawAnalysis:      map[string]any{"analysis_source": "fallback"},
	}
}

func TestCreateRunRecord(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	all := []types.Finding{
		finding("a", 20, types.JobsControl),
		finding("b", 95, types.BusinessProtection),
		finding("c", 60, types.BusinessProtection),
	}
	all[0].Degraded = true
	rec := CreateRunRecord(now, "/data/alerts", all, all[1:], 3*time.Second, "baseline.json")

	assert.Equal(t, now, rec.Timestamp)
	assert.NotEmpty(t, rec.RunID)
	assert.Equal(t, 3, rec.TotalFindings)
	assert.Equal(t, 2, rec.NewFindings)
	assert.Equal(t, 1, rec.BaselinedCount)
	assert.Equal(t, 1, rec.DegradedCount)
	assert.Equal(t, map[string]int{"Low": 1, "Critical": 1, "High": 1}, rec.RiskLevelCounts)
	assert.Equal(t, 2, rec.FocusAreaCounts["BUSINESS_PROTECTION"])
	assert.Equal(t, "3s", rec.Duration)
	require.Len(t, rec.TopFindings, 2)
	assert.Equal(t, "b", rec.TopFindings[0].AlertID)
	for _, f := range rec.AllFindings {
		assert.Nil(t, f.RawAnalysis)
		assert.Nil(t, f.ScoringBreakdown)
	}
	assert.NotNil(t, all[1].RawAnalysis, "input findings are not modified")
}

func TestAuditLog_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	log := NewAuditLog(dir)
	_, err := log.LoadHistory()
	require.Error(t, err)

	for i, id := range []string{"first", "second", "third"} {
		rec := CreateRunRecord(time.Unix(int64(1000+i), 0), dir, []types.Finding{finding(id, 50, types.BusinessControl)}, nil, time.Second, "")
		rec.RunID = id
		require.NoError(t, log.LogRun(rec))
	}
	st, err := os.Stat(log.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), st.Mode().Perm())

	hist, err := log.LoadHistory()
	require.NoError(t, err)
	require.Len(t, hist, 3)
	assert.Equal(t, "third", hist[0].RunID, "newest first")

	require.NoError(t, log.DeleteRecord(1))
	hist, err = log.LoadHistory()
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.Equal(t, "third", hist[0].RunID)
	assert.Equal(t, "first", hist[1].RunID)

	assert.Error(t, log.DeleteRecord(5))
}

func TestLogRun_DefaultRunID(t *testing.T) {
	log := NewAuditLog(t.TempDir())
	require.NoError(t, log.LogRun(RunRecord{Timestamp: time.Unix(42, 0)}))
	hist, err := log.LoadHistory()
	require.NoError(t, err)
	assert.Equal(t, "run_42", hist[0].RunID)
}

func TestCollector(t *testing.T) {
	var c Collector
	var wg sync.WaitGroup
	for _, id := range []string{"c", "a", "b"} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_ = c.Store(context.Background(), types.Finding{AlertID: id})
		}(id)
	}
	wg.Wait()
	got := c.Findings()
	require.Len(t, got, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{got[0].AlertID, got[1].AlertID, got[2].AlertID})
}
