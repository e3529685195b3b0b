// Package query is the read-side interface external consumers (a CPU
// opponent, an operator tool) use to pull a solved strategy or the
// analyzer's overall progress, without reading strategystore's chunked
// files directly (spec.md §6 "Query interface for consumers").
package query

import (
	"fmt"
	"path/filepath"

	"chairsolver/analysis"
	"chairsolver/codec"
	"chairsolver/game"
	"chairsolver/strategystore"
)

// Strategy is the externally-facing view of a solved equilibrium: full-width
// per-chair probabilities for both players plus the game value.
type Strategy struct {
	P1Probs [game.NumChairs]float64
	P2Probs [game.NumChairs]float64
	Value   float64
}

func turnDir(outDir string, turn int) string {
	return filepath.Join(outDir, fmt.Sprintf("turn-%d", turn))
}

// Lookup returns the solved strategy for encoding, or (nil, nil) if it has
// not been solved yet — "strategy not found" is a soft condition for
// callers, not an error (spec.md §7).
func Lookup(outDir string, encoding uint32) (*Strategy, error) {
	s := codec.Decode(encoding)
	if codec.IsTerminal(s) {
		return nil, nil
	}

	store, err := strategystore.Open(turnDir(outDir, s.Turn), strategystore.DefaultChunkSize, strategystore.DefaultLRUSize)
	if err != nil {
		return nil, fmt.Errorf("query: open turn %d store: %w", s.Turn, err)
	}

	rec, found, err := store.Get(encoding)
	if err != nil {
		return nil, fmt.Errorf("query: lookup %#x: %w", encoding, err)
	}
	if !found {
		return nil, nil
	}

	return &Strategy{P1Probs: rec.P1Probs, P2Probs: rec.P2Probs, Value: rec.Value}, nil
}

// Progress returns the analyzer's current progress report.
func Progress(outDir string) (*analysis.ProgressReport, error) {
	return analysis.LoadProgress(outDir)
}
