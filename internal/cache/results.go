package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/redactyl/alertlens/internal/types"
)

// ResultsFileName holds the Findings of the most recent batch run.
const ResultsFileName = ".alertlens_last_run.json"

// RunResults stores the findings and metadata from a batch run
type RunResults struct {
	Findings  []types.Finding `json:"findings"`
	Timestamp time.Time       `json:"timestamp"`
	Root      string          `json:"root"`
	Count     int             `json:"count"`
}

func resultsPath(root string) string {
	return filepath.Join(root, ResultsFileName)
}

// SaveResults saves run results under root
func SaveResults(root string, findings []types.Finding) error {
	results := RunResults{
		Findings:  findings,
		Timestamp: time.Now(),
		Root:      root,
		Count:     len(findings),
	}
	b, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(resultsPath(root), b, 0644)
}

// LoadResults loads the last run results under root
func LoadResults(root string) (RunResults, error) {
	var results RunResults
	f, err := os.ReadFile(resultsPath(root))
	if err != nil {
		return results, err
	}
	if err := json.Unmarshal(f, &results); err != nil {
		return results, err
	}
	return results, nil
}
