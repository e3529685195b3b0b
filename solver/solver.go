// Package solver computes an exact mixed-strategy Nash equilibrium for one
// in-progress Electric Chair state by building its payoff matrix and solving
// the associated zero-sum matrix game via linear programming (spec.md §4.4).
package solver

import (
	"errors"
	"fmt"
	"log"
	"math"

	"gonum.org/v1/gonum/floats"

	"chairsolver/codec"
	"chairsolver/game"
	"chairsolver/rules"
)

// ErrOracleMiss is returned when the payoff matrix references a successor
// state with no recorded equilibrium value — a driver ordering bug.
var ErrOracleMiss = errors.New("solver: successor state has no recorded equilibrium value")

// DefaultPrecision is the number of decimal digits strategies and values are
// rounded to before storage (spec.md §4.4 "Post-processing").
const DefaultPrecision = 6

// nashGapTolerance bounds the acceptable best-response violation for Verify
// (spec.md §8 "Best-response property").
const nashGapTolerance = 5e-8

// Oracle returns the already-computed equilibrium value of a strictly-later
// successor state, Player-1 perspective.
type Oracle interface {
	Value(encoded uint32) (float64, bool)
}

// Strategy is one state's solved equilibrium: full-width (length
// game.NumChairs) probability vectors for both players plus the game value.
type Strategy struct {
	P1Probs [game.NumChairs]float64
	P2Probs [game.NumChairs]float64
	Value   float64
}

// Solve computes the Nash equilibrium of the matrix game rooted at state,
// given an oracle for successor values and the configured draw value and
// rounding precision.
func Solve(state uint32, drawValue float64, oracle Oracle, precision int) (Strategy, error) {
	if precision <= 0 {
		precision = DefaultPrecision
	}

	s := codec.Decode(state)
	if codec.IsTerminal(s) {
		return Strategy{}, fmt.Errorf("solver: state %#x is terminal, nothing to solve", state)
	}

	chairs := s.AvailableChairs()
	n := len(chairs)

	matrix := make([][]float64, n)
	for i := range matrix {
		matrix[i] = make([]float64, n)
	}

	aSelects := rules.Roles(s.Turn)
	for i, a := range chairs {
		for j, b := range chairs {
			var selectorChoice, setterChoice int
			if aSelects {
				selectorChoice, setterChoice = a, b
			} else {
				selectorChoice, setterChoice = b, a
			}

			result, err := rules.Step(state, selectorChoice, setterChoice)
			if err != nil {
				return Strategy{}, fmt.Errorf("solver: building payoff entry (%d,%d): %w", a, b, err)
			}

			next := codec.Decode(result.NextState)
			status := codec.Status(next)
			if status != game.InProgress {
				matrix[i][j] = codec.TerminalValue(status, drawValue)
				continue
			}

			v, ok := oracle.Value(result.NextState)
			if !ok {
				return Strategy{}, fmt.Errorf("%w: state=%#x successor=%#x", ErrOracleMiss, state, result.NextState)
			}
			matrix[i][j] = v
		}
	}

	if n == 1 {
		return Strategy{
			P1Probs: scatter(chairs, []float64{1}),
			P2Probs: scatter(chairs, []float64{1}),
			Value:   round(matrix[0][0], precision),
		}, nil
	}

	shift := shiftToNonnegative(matrix)
	shifted := addScalar(matrix, shift)

	a, err := solveMaximizer(shifted)
	if err != nil {
		return Strategy{}, fmt.Errorf("solver: player A LP: %w", err)
	}
	b, err := solveMaximizer(transposeNegate(shifted))
	if err != nil {
		return Strategy{}, fmt.Errorf("solver: player B LP: %w", err)
	}
	u := -b.v

	eps := 5e-8 * math.Max(1, shift+1)
	if math.Abs(a.v-u) > eps {
		// Warn only; the midpoint is still accepted per spec.md §4.4.
		log.Printf("solver: state %#x: LP values disagree (v=%g, u=%g, eps=%g)", state, a.v, u, eps)
	}

	value := (a.v+u)/2 - shift

	x := postProcess(a.x, precision)
	y := postProcess(b.x, precision)

	return Strategy{
		P1Probs: scatter(chairs, x),
		P2Probs: scatter(chairs, y),
		Value:   round(value, precision),
	}, nil
}

// Verify checks the best-response property (spec.md §8): no pure chair for
// either player beats the claimed value by more than nashGapTolerance
// against the opponent's mixed strategy. It rebuilds the payoff matrix the
// same way Solve does, so it requires the same oracle.
func Verify(state uint32, drawValue float64, oracle Oracle, strat Strategy) error {
	s := codec.Decode(state)
	chairs := s.AvailableChairs()
	n := len(chairs)
	aSelects := rules.Roles(s.Turn)

	matrix := make([][]float64, n)
	for i := range matrix {
		matrix[i] = make([]float64, n)
	}
	for i, a := range chairs {
		for j, b := range chairs {
			selectorChoice, setterChoice := a, b
			if !aSelects {
				selectorChoice, setterChoice = b, a
			}
			result, err := rules.Step(state, selectorChoice, setterChoice)
			if err != nil {
				return err
			}
			next := codec.Decode(result.NextState)
			status := codec.Status(next)
			if status != game.InProgress {
				matrix[i][j] = codec.TerminalValue(status, drawValue)
				continue
			}
			v, ok := oracle.Value(result.NextState)
			if !ok {
				return fmt.Errorf("%w: successor=%#x", ErrOracleMiss, result.NextState)
			}
			matrix[i][j] = v
		}
	}

	y := make([]float64, n)
	for j, chair := range chairs {
		y[j] = strat.P2Probs[chair-1]
	}
	for i := range chairs {
		var expected float64
		for j := range chairs {
			expected += matrix[i][j] * y[j]
		}
		if expected > strat.Value+nashGapTolerance {
			return fmt.Errorf("solver: player A pure chair %d beats claimed value (%f > %f)", chairs[i], expected, strat.Value)
		}
	}

	x := make([]float64, n)
	for i, chair := range chairs {
		x[i] = strat.P1Probs[chair-1]
	}
	for j := range chairs {
		var expected float64
		for i := range chairs {
			expected += matrix[i][j] * x[i]
		}
		if expected < strat.Value-nashGapTolerance {
			return fmt.Errorf("solver: player B pure chair %d beats claimed value (%f < %f)", chairs[j], expected, strat.Value)
		}
	}

	return nil
}

func shiftToNonnegative(m [][]float64) float64 {
	min := math.Inf(1)
	for _, row := range m {
		min = math.Min(min, floats.Min(row))
	}
	return math.Max(0, -min)
}

func addScalar(m [][]float64, shift float64) [][]float64 {
	out := make([][]float64, len(m))
	for i, row := range m {
		out[i] = make([]float64, len(row))
		for j, v := range row {
			out[i][j] = v + shift
		}
	}
	return out
}

func transposeNegate(m [][]float64) [][]float64 {
	n := len(m)
	out := make([][]float64, n)
	for i := range out {
		out[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			out[i][j] = -m[j][i]
		}
	}
	return out
}

// postProcess clips, renormalizes, and rounds a raw LP probability vector
// (spec.md §4.4 "Post-processing" steps 1-3).
func postProcess(raw []float64, precision int) []float64 {
	clipped := make([]float64, len(raw))
	for i, v := range raw {
		switch {
		case v < 0:
			v = 0
		case v > 1:
			v = 1
		}
		clipped[i] = v
	}
	sum := floats.Sum(clipped)

	out := make([]float64, len(clipped))
	if sum < 1e-8 {
		uniform := 1.0 / float64(len(clipped))
		for i := range out {
			out[i] = round(uniform, precision)
		}
		return out
	}

	for i, v := range clipped {
		out[i] = round(v/sum, precision)
	}
	return out
}

// scatter expands a |chairs|-length vector back to a full length-12 vector,
// placing entry i at position chairs[i]-1 (spec.md §4.4 "Post-processing"
// step 4); positions for removed chairs remain 0.
func scatter(chairs []int, values []float64) [game.NumChairs]float64 {
	var out [game.NumChairs]float64
	for i, chair := range chairs {
		out[chair-1] = values[i]
	}
	return out
}

func round(v float64, precision int) float64 {
	scale := math.Pow(10, float64(precision))
	return math.Round(v*scale) / scale
}
