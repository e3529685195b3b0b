// Package analysis drives the backward-induction equilibrium computation
// across every reachable state, in strictly decreasing turn order, and
// persists results via strategystore (spec.md §4.5).
package analysis

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"chairsolver/codec"
	"chairsolver/config"
	"chairsolver/reachability"
	"chairsolver/solver"
	"chairsolver/strategystore"
)

// Driver orchestrates solving every in-progress state, turn by turn.
type Driver struct {
	ReachDir string
	OutDir   string
	Config   config.Config
	Rate     RateGauge
}

// NewDriver constructs a Driver over the given reachability and analysis
// output directories.
func NewDriver(reachDir, outDir string, cfg config.Config) *Driver {
	return &Driver{ReachDir: reachDir, OutDir: outDir, Config: cfg}
}

func turnStoreDir(outDir string, turn int) string {
	return filepath.Join(outDir, fmt.Sprintf("turn-%d", turn))
}

// Init loads reachability metadata and (re)initializes progress.json,
// seeding analyzedStates with each turn's terminal-state count (terminal
// states need no solving, spec.md §4.4) so completion bookkeeping is
// correct from the start.
func (d *Driver) Init() error {
	p := newProgress()

	for t := 0; t <= reachability.MaxTurn; t++ {
		if !reachability.TurnComplete(d.ReachDir, t) {
			continue
		}
		m, err := reachability.ReadMeta(d.ReachDir, t)
		if err != nil {
			return fmt.Errorf("analysis: init: %w", err)
		}
		if m.TotalCount == 0 {
			continue
		}
		states, err := reachability.ReadAll(d.ReachDir, t)
		if err != nil {
			return fmt.Errorf("analysis: init: %w", err)
		}
		terminal := 0
		for _, s := range states {
			if codec.IsTerminalEncoded(s) {
				terminal++
			}
		}
		key := strconv.Itoa(t)
		p.TotalStates[key] = m.TotalCount
		p.AnalyzedStates[key] = terminal
	}

	return SaveProgress(d.OutDir, p, time.Now())
}

// Status returns the current progress report (CLI --status).
func (d *Driver) Status() (*ProgressReport, error) {
	return LoadProgress(d.OutDir)
}

// Clear deletes every persisted strategy and resets progress (CLI --clear).
func (d *Driver) Clear() error {
	entries, err := os.ReadDir(d.OutDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("analysis: clear: %w", err)
	}
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(d.OutDir, e.Name())); err != nil {
			return fmt.Errorf("analysis: clear: %w", err)
		}
	}
	return nil
}

type mapOracle map[uint32]float64

func (o mapOracle) Value(x uint32) (float64, bool) {
	v, ok := o[x]
	return v, ok
}

func (d *Driver) loadOracle(turn int) (mapOracle, error) {
	if !reachability.TurnComplete(d.ReachDir, turn) {
		return mapOracle{}, nil
	}
	store, err := strategystore.Open(turnStoreDir(d.OutDir, turn), strategystore.DefaultChunkSize, strategystore.DefaultLRUSize)
	if err != nil {
		return nil, fmt.Errorf("analysis: load oracle for turn %d: %w", turn, err)
	}
	all, err := store.LoadAll()
	if err != nil {
		return nil, fmt.Errorf("analysis: load oracle for turn %d: %w", turn, err)
	}
	out := make(mapOracle, len(all))
	for x, rec := range all {
		out[x] = rec.Value
	}
	return out, nil
}

// Run solves up to maxStates states, walking turns in strictly decreasing
// order and resuming from progress.json. It returns cleanly (nil error) on
// context cancellation after flushing the in-flight batch.
func (d *Driver) Run(ctx context.Context, maxStates int) error {
	progress, err := LoadProgress(d.OutDir)
	if err != nil {
		return err
	}
	if len(progress.TotalStates) == 0 {
		if err := d.Init(); err != nil {
			return err
		}
		progress, err = LoadProgress(d.OutDir)
		if err != nil {
			return err
		}
	}

	turns := make([]int, 0, len(progress.TotalStates))
	for key := range progress.TotalStates {
		t, err := strconv.Atoi(key)
		if err != nil {
			return fmt.Errorf("analysis: progress.json has non-integer turn key %q: %w", key, err)
		}
		turns = append(turns, t)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(turns)))

	batchSize := d.Config.Analysis.MaxBatchSize
	if batchSize <= 0 {
		batchSize = config.Defaults().Analysis.MaxBatchSize
	}
	saveInterval := d.Config.Analysis.SaveInterval
	if saveInterval <= 0 {
		saveInterval = config.Defaults().Analysis.SaveInterval
	}

	solved := 0
	for _, t := range turns {
		key := strconv.Itoa(t)
		if progress.AnalyzedStates[key] >= progress.TotalStates[key] {
			continue
		}

		select {
		case <-ctx.Done():
			return nil
		default:
		}

		oracle, err := d.loadOracle(t + 1)
		if err != nil {
			return err
		}

		store, err := strategystore.Open(turnStoreDir(d.OutDir, t), strategystore.DefaultChunkSize, strategystore.DefaultLRUSize)
		if err != nil {
			return fmt.Errorf("analysis: open store for turn %d: %w", t, err)
		}

		states, err := reachability.ReadAll(d.ReachDir, t)
		if err != nil {
			return fmt.Errorf("analysis: read states for turn %d: %w", t, err)
		}

		pending := make([]uint32, 0, len(states))
		for _, s := range states {
			if codec.IsTerminalEncoded(s) {
				continue
			}
			if _, found, err := store.Get(s); err != nil {
				return err
			} else if !found {
				pending = append(pending, s)
			}
		}

		sinceCheckpoint := 0
	batchLoop:
		for start := 0; start < len(pending); start += batchSize {
			end := start + batchSize
			if end > len(pending) {
				end = len(pending)
			}
			batch := pending[start:end]

			if err := d.solveBatch(ctx, batch, oracle, store); err != nil {
				return err
			}

			solvedInBatch := len(batch)
			solved += solvedInBatch
			sinceCheckpoint += solvedInBatch
			progress.AnalyzedStates[key] += solvedInBatch
			d.Rate.Add(float64(solvedInBatch))

			if sinceCheckpoint >= saveInterval {
				if err := store.Flush(); err != nil {
					return err
				}
				if err := SaveProgress(d.OutDir, progress, time.Now()); err != nil {
					return err
				}
				sinceCheckpoint = 0
			}

			if solved >= maxStates {
				break batchLoop
			}
			select {
			case <-ctx.Done():
				break batchLoop
			default:
			}
		}

		if err := store.Flush(); err != nil {
			return err
		}
		if err := SaveProgress(d.OutDir, progress, time.Now()); err != nil {
			return err
		}

		if solved >= maxStates {
			break
		}
		select {
		case <-ctx.Done():
			return nil
		default:
		}
	}

	return nil
}

// solveBatch parallelizes the LP solve for one batch of states via
// errgroup, matching the teacher's server/fastview/client.go fan-out
// pattern. Each worker only writes its own results[i] slot; store.Put is
// called back on the calling goroutine once every solve has returned, so
// strategystore never sees concurrent writers.
func (d *Driver) solveBatch(ctx context.Context, batch []uint32, oracle mapOracle, store *strategystore.Store) error {
	group, _ := errgroup.WithContext(ctx)
	results := make([]strategystore.Record, len(batch))

	precision := d.Config.Analysis.PrecisionDigits
	drawValue := d.Config.Evaluation.Draw

	for i, state := range batch {
		i, state := i, state
		group.Go(func() error {
			strat, err := solver.Solve(state, drawValue, oracle, precision)
			if err != nil {
				return fmt.Errorf("analysis: solving state %#x: %w", state, err)
			}
			results[i] = strategystore.Record{
				P1Probs: strat.P1Probs,
				P2Probs: strat.P2Probs,
				Value:   strat.Value,
			}
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return err
	}

	for i, state := range batch {
		if err := store.Put(state, results[i]); err != nil {
			return err
		}
	}
	return nil
}
