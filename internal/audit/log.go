// Package audit keeps the run history of batch analyses as JSON lines under
// the analysed root.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/redactyl/alertlens/internal/types"
)

// FileName is the history file written under the analysed root.
const FileName = ".alertlens_audit.jsonl"

const maxTopFindings = 10

// RunRecord is one batch run as stored in the history file.
type RunRecord struct {
	Timestamp       time.Time        `json:"timestamp"`
	RunID           string           `json:"run_id"`
	Root            string           `json:"root"`
	TotalFindings   int              `json:"total_findings"`
	NewFindings     int              `json:"new_findings"`
	BaselinedCount  int              `json:"baselined_count"`
	DegradedCount   int              `json:"degraded_count"`
	RiskLevelCounts map[string]int   `json:"risk_level_counts"`
	FocusAreaCounts map[string]int   `json:"focus_area_counts"`
	AlertsAnalyzed  int              `json:"alerts_analyzed"`
	Duration        string           `json:"duration"`
	BaselineFile    string           `json:"baseline_file,omitempty"`
	TopFindings     []FindingSummary `json:"top_findings,omitempty"`
	AllFindings     []types.Finding  `json:"all_findings,omitempty"`
}

type FindingSummary struct {
	AlertID   string          `json:"alert_id"`
	AlertName string          `json:"alert_name"`
	FocusArea types.FocusArea `json:"focus_area"`
	RiskScore int             `json:"risk_score"`
	RiskLevel types.RiskLevel `json:"risk_level"`
}

type AuditLog struct {
	logPath string
}

func NewAuditLog(root string) *AuditLog {
	return &AuditLog{logPath: filepath.Join(root, FileName)}
}

// Path returns the history file location.
func (a *AuditLog) Path() string { return a.logPath }

// LoadHistory returns the recorded runs, newest first. Reading stops at the
// first corrupt record.
func (a *AuditLog) LoadHistory() ([]RunRecord, error) {
	f, err := os.Open(a.logPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}
	defer f.Close()

	var records []RunRecord
	decoder := json.NewDecoder(f)
	for decoder.More() {
		var record RunRecord
		if err := decoder.Decode(&record); err != nil {
			break
		}
		records = append(records, record)
	}

	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}
	return records, nil
}

func (a *AuditLog) LogRun(record RunRecord) error {
	if record.RunID == "" {
		record.RunID = fmt.Sprintf("run_%d", record.Timestamp.Unix())
	}

	// findings may carry business data; keep the log owner-only
	f, err := os.OpenFile(a.logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to open audit log: %w", err)
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	if err := encoder.Encode(record); err != nil {
		return fmt.Errorf("failed to write audit record: %w", err)
	}
	return nil
}

// DeleteRecord removes the run at index, counted newest first as returned by
// LoadHistory.
func (a *AuditLog) DeleteRecord(index int) error {
	records, err := a.LoadHistory()
	if err != nil {
		return err
	}

	if index < 0 || index >= len(records) {
		return fmt.Errorf("invalid index: %d", index)
	}

	records = append(records[:index], records[index+1:]...)

	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}

	f, err := os.Create(a.logPath)
	if err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	for _, record := range records {
		if err := encoder.Encode(record); err != nil {
			return fmt.Errorf("failed to write audit record: %w", err)
		}
	}
	return nil
}

// Collector gathers the Findings of one run. It implements the engine's
// Sink so the analyzer can feed it directly.
type Collector struct {
	mu       sync.Mutex
	findings []types.Finding
}

func (c *Collector) Store(_ context.Context, f types.Finding) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.findings = append(c.findings, f)
	return nil
}

// Findings returns the collected Findings ordered by alert id.
func (c *Collector) Findings() []types.Finding {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := append([]types.Finding(nil), c.findings...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].AlertID < out[j].AlertID })
	return out
}

func CreateRunRecord(
	now time.Time,
	root string,
	allFindings []types.Finding,
	newFindings []types.Finding,
	duration time.Duration,
	baselineFile string,
) RunRecord {
	levels := make(map[string]int)
	areas := make(map[string]int)
	degraded := 0
	for _, f := range allFindings {
		levels[string(f.RiskLevel)]++
		areas[string(f.FocusArea)]++
		if f.Degraded {
			degraded++
		}
	}

	ranked := append([]types.Finding(nil), newFindings...)
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].RiskScore > ranked[j].RiskScore })
	topFindings := make([]FindingSummary, 0, maxTopFindings)
	for i, f := range ranked {
		if i >= maxTopFindings {
			break
		}
		topFindings = append(topFindings, FindingSummary{
			AlertID:   f.AlertID,
			AlertName: f.AlertName,
			FocusArea: f.FocusArea,
			RiskScore: f.RiskScore,
			RiskLevel: f.RiskLevel,
		})
	}

	return RunRecord{
		Timestamp:       now,
		RunID:           fmt.Sprintf("run_%d", now.UnixNano()),
		Root:            root,
		TotalFindings:   len(allFindings),
		NewFindings:     len(newFindings),
		BaselinedCount:  len(allFindings) - len(newFindings),
		DegradedCount:   degraded,
		RiskLevelCounts: levels,
		FocusAreaCounts: areas,
		AlertsAnalyzed:  len(allFindings),
		Duration:        duration.String(),
		BaselineFile:    baselineFile,
		TopFindings:     topFindings,
		AllFindings:     compact(allFindings),
	}
}

// compact drops the bulky per-finding fields that the history never shows.
func compact(findings []types.Finding) []types.Finding {
	out := make([]types.Finding, len(findings))
	for i, f := range findings {
		out[i] = f
		out[i].RawAnalysis = nil
		out[i].ScoringBreakdown = nil
	}
	return out
}
