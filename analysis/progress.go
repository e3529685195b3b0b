package analysis

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ProgressReport is the root analysis-results/progress.json document
// (spec.md §4.5 "Progress record").
type ProgressReport struct {
	AnalyzedStates map[string]int `json:"analyzedStates"`
	TotalStates    map[string]int `json:"totalStates"`
	LastUpdated    string         `json:"lastUpdated"`
	IsComplete     bool           `json:"isComplete"`
}

func progressPath(outDir string) string {
	return filepath.Join(outDir, "progress.json")
}

func newProgress() *ProgressReport {
	return &ProgressReport{
		AnalyzedStates: map[string]int{},
		TotalStates:    map[string]int{},
	}
}

// LoadProgress reads progress.json, or returns a fresh zero-value report if
// it does not yet exist.
func LoadProgress(outDir string) (*ProgressReport, error) {
	data, err := os.ReadFile(progressPath(outDir))
	if os.IsNotExist(err) {
		return newProgress(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("analysis: read progress: %w", err)
	}
	p := newProgress()
	if err := json.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("analysis: parse progress: %w", err)
	}
	if p.AnalyzedStates == nil {
		p.AnalyzedStates = map[string]int{}
	}
	if p.TotalStates == nil {
		p.TotalStates = map[string]int{}
	}
	return p, nil
}

// SaveProgress recomputes IsComplete and timestamps, then writes
// progress.json. timestamp is passed in because the core never calls
// time.Now() from inside package logic used by driver batching tests;
// Driver.Init and Driver.Run supply real wall-clock time.
func SaveProgress(outDir string, p *ProgressReport, timestamp time.Time) error {
	p.IsComplete = true
	for turn, total := range p.TotalStates {
		if total > 0 && p.AnalyzedStates[turn] != total {
			p.IsComplete = false
			break
		}
	}
	p.LastUpdated = timestamp.UTC().Format(time.RFC3339)

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("analysis: mkdir %s: %w", outDir, err)
	}
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("analysis: marshal progress: %w", err)
	}
	return os.WriteFile(progressPath(outDir), data, 0o644)
}
