package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redactyl/alertlens/internal/types"
)

func TestDefault_Compiles(t *testing.T) {
	s := Default()
	require.NotNil(t, s)
	assert.NotEmpty(t, s.Digest())
	assert.Equal(t, types.BusinessControl, s.Classifier.DefaultArea)
	require.Len(t, s.Classifier.Areas, len(types.FocusAreas))
	for i, a := range s.Classifier.Areas {
		assert.Equal(t, types.FocusAreas[i], a.Area, "areas must follow declaration order")
	}
}

func TestDefault_CriticalOutweighsGenericVocabulary(t *testing.T) {
	s := Default()
	var maxWeight int
	for _, a := range s.Classifier.Areas {
		for _, p := range a.Patterns {
			if p.Weight > maxWeight {
				maxWeight = p.Weight
			}
			if a.Area == types.BusinessControl {
				assert.Less(t, p.Weight, 10, "business control has no signature patterns: %s", p.Match)
			}
		}
	}
	assert.Equal(t, 10, maxWeight)
}

func TestWeightedPattern_Matches(t *testing.T) {
	s, err := Load([]byte(`
classifier:
  areas:
    - area: BUSINESS_PROTECTION
      patterns:
        - {match: 'sod.*fraud', weight: 10}
        - {match: 'RUV ', weight: 10}
`))
	require.NoError(t, err)
	pats := s.Classifier.Areas[0].Patterns
	assert.True(t, IsRegex(pats[0].Match))
	assert.True(t, pats[0].Matches("sod conflict may hide fraud"))
	assert.False(t, pats[0].Matches("fraud before sod"))
	assert.False(t, IsRegex(pats[1].Match))
	assert.True(t, pats[1].Matches("ruv analysis"), "patterns are lowercased at load")
	assert.False(t, pats[1].Matches("ruv"))
}

func TestMatchTier_FirstTierWins(t *testing.T) {
	s := Default()
	m, ok := s.MatchTier(types.BusinessProtection, "debug session on rarely used vendors")
	require.True(t, ok)
	assert.Equal(t, types.SevCritical, m.Level)
	assert.Equal(t, "debug", m.Pattern)

	m, ok = s.MatchTier(types.BusinessControl, "Unbilled Deliveries Report")
	require.True(t, ok)
	assert.Equal(t, types.SevHigh, m.Level)
	assert.Contains(t, m.Pattern, "unbilled")

	_, ok = s.MatchTier(types.JobsControl, "debug")
	assert.False(t, ok, "areas without a tier table never match")
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad yaml", "classifier: ["},
		{"unknown area", "classifier:\n  areas:\n    - area: NOPE\n"},
		{"zero weight", "classifier:\n  areas:\n    - area: JOBS_CONTROL\n      patterns:\n        - {match: job, weight: 0}\n"},
		{"bad regex", "classifier:\n  areas:\n    - area: JOBS_CONTROL\n      patterns:\n        - {match: 'job(.', weight: 1}\n"},
		{"bad level", "severity:\n  tiers:\n    JOBS_CONTROL:\n      - level: Severe\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load([]byte(tt.body))
			assert.Error(t, err)
		})
	}
}

func TestLoad_DigestTracksContent(t *testing.T) {
	a, err := Load([]byte("version: a\n"))
	require.NoError(t, err)
	b, err := Load([]byte("version: b\n"))
	require.NoError(t, err)
	assert.NotEqual(t, a.Digest(), b.Digest())
	assert.Equal(t, types.SevMedium, a.Severity.Fallback.Level)
}
