package reachability

import (
	"context"
	"fmt"

	"chairsolver/codec"
	"chairsolver/game"
	"chairsolver/rules"
)

// MaxTurn is the highest turn partition the enumerator ever writes.
const MaxTurn = game.MaxTurn

// ProgressFunc reports enumeration progress after each turn completes.
type ProgressFunc func(turn, count int)

// Enumerate performs the level-by-level BFS described in spec.md §4.3,
// writing each turn's deduplicated state set to outDir as it completes.
//
// A subtlety drives the implementation: rules.Step decides whether to
// advance the turn field using the *pre-increment* turn (spec.md §4.2), so
// a transition out of an in-progress state at turn t lands either at turn
// t (a "same-turn" terminal — the selector got shocked or scored exactly
// into a win, the position never advances) or at turn t+1 (always, by
// construction, a fresh "advancing" candidate). Turn t's full state set
// therefore is not just what advanced into it from turn t-1: it also
// contains the same-turn terminal children produced by expanding t's own
// in-progress members. A turn can only be committed once both are known,
// so each level is processed by expanding its in-progress states, folding
// the same-turn children back into that level's own set, and carrying the
// advancing children forward as the next level's candidates.
func Enumerate(ctx context.Context, outDir string, chunkSize int, report ProgressFunc) error {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	inProgress := []uint32{codec.Encode(game.Initial())}
	for t := 0; t <= MaxTurn; t++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		next, err := processLevel(outDir, t, chunkSize, inProgress, report)
		if err != nil {
			return fmt.Errorf("reachability: turn %d: %w", t, err)
		}
		inProgress = next
	}
	return nil
}

// processLevel ensures turn t is committed to disk and returns the
// in-progress candidate set for turn t+1.
func processLevel(outDir string, t, chunkSize int, inProg []uint32, report ProgressFunc) ([]uint32, error) {
	if TurnComplete(outDir, t) {
		full, err := ReadAll(outDir, t)
		if err != nil {
			return nil, err
		}
		if report != nil {
			report(t, len(full))
		}

		if TurnComplete(outDir, t+1) {
			// Next turn is already fully computed too; skip re-expanding
			// this level entirely and hand back its recorded candidates.
			nextFull, err := ReadAll(outDir, t+1)
			if err != nil {
				return nil, err
			}
			return filterInProgress(nextFull), nil
		}

		inProg = filterInProgress(full)
	}

	sameTurn, advancing, err := expandTurn(t, inProg)
	if err != nil {
		return nil, err
	}

	if !TurnComplete(outDir, t) {
		full := append(append([]uint32{}, inProg...), sameTurn...)
		if err := writeTurn(outDir, t, full, chunkSize); err != nil {
			return nil, err
		}
		if report != nil {
			m, err := ReadMeta(outDir, t)
			if err != nil {
				return nil, err
			}
			report(t, m.TotalCount)
		}
	}

	return advancing, nil
}

// expandTurn applies every legal ordered choice pair to every in-progress
// state in inProg (all of which belong to turn t), splitting results into
// same-turn terminal children and turn-advancing children.
func expandTurn(t int, inProg []uint32) (sameTurn, advancing []uint32, err error) {
	for _, s := range inProg {
		decoded := codec.Decode(s)
		chairs := decoded.AvailableChairs()
		for _, a := range chairs {
			for _, b := range chairs {
				result, stepErr := rules.Step(s, a, b)
				if stepErr != nil {
					return nil, nil, fmt.Errorf("state %#x choices (%d,%d): %w", s, a, b, stepErr)
				}
				if codec.Decode(result.NextState).Turn == t {
					sameTurn = append(sameTurn, result.NextState)
				} else {
					advancing = append(advancing, result.NextState)
				}
			}
		}
	}
	return sameTurn, advancing, nil
}

func filterInProgress(states []uint32) []uint32 {
	out := make([]uint32, 0, len(states))
	for _, s := range states {
		if !codec.IsTerminalEncoded(s) {
			out = append(out, s)
		}
	}
	return out
}
