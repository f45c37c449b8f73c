package cache

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redactyl/alertlens/internal/types"
)

func strp(s string) *string { return &s }

func TestLoadSave(t *testing.T) {
	dir := t.TempDir()
	// initial load returns an empty store and an error
	s, err := Load(dir)
	require.Error(t, err)
	require.NotNil(t, s)
	assert.Equal(t, 0, s.Len())

	s.Put("200025_001373", "deadbeefdeadbeef", types.Finding{AlertID: "200025_001373", RiskScore: 90})
	require.NoError(t, s.Save())
	_, err = os.Stat(filepath.Join(dir, FileName))
	require.NoError(t, err, "cache file not written")

	s2, err := Load(dir)
	require.NoError(t, err)
	f, ok := s2.Get("200025_001373", "deadbeefdeadbeef")
	require.True(t, ok)
	assert.Equal(t, 90, f.RiskScore)

	_, ok = s2.Get("200025_001373", "0000000000000000")
	assert.False(t, ok, "stale fingerprint must miss")
}

func TestPut_SkipsDegraded(t *testing.T) {
	s, _ := Load(t.TempDir())
	s.Put("a", "fp", types.Finding{Degraded: true})
	_, ok := s.Get("a", "fp")
	assert.False(t, ok)
}

func TestSave_NoChanges(t *testing.T) {
	dir := t.TempDir()
	s, _ := Load(dir)
	require.NoError(t, s.Save())
	_, err := os.Stat(filepath.Join(dir, FileName))
	assert.True(t, os.IsNotExist(err), "unchanged cache should not be written")
}

func TestFingerprint(t *testing.T) {
	b := types.ArtifactBundle{AlertID: "1", AlertName: "Vendors", Summary: strp("a,b\n1,2\n")}
	fp := Fingerprint(b, "rules", "1.0.0")
	assert.Len(t, fp, 16)
	assert.Equal(t, fp, Fingerprint(b, "rules", "1.0.0"))

	b2 := b
	b2.Summary = strp("a,b\n1,3\n")
	assert.NotEqual(t, fp, Fingerprint(b2, "rules", "1.0.0"))
	assert.NotEqual(t, fp, Fingerprint(b, "other-rules", "1.0.0"))

	// field boundaries are part of the hash
	x := types.ArtifactBundle{AlertID: "ab", AlertName: "c"}
	y := types.ArtifactBundle{AlertID: "a", AlertName: "bc"}
	assert.NotEqual(t, Fingerprint(x), Fingerprint(y))
}

func TestStore_Concurrent(t *testing.T) {
	s, _ := Load(t.TempDir())
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := string(rune('a' + i%8))
			s.Put(key, "fp", types.Finding{AlertID: key})
			s.Get(key, "fp")
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 8, s.Len())
}

func TestResults_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	fs := []types.Finding{{AlertID: "1"}, {AlertID: "2"}}
	require.NoError(t, SaveResults(dir, fs))
	r, err := LoadResults(dir)
	require.NoError(t, err)
	assert.Equal(t, 2, r.Count)
	assert.Equal(t, dir, r.Root)
	assert.Equal(t, "2", r.Findings[1].AlertID)
}
