package solver

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"
)

// ErrLPInfeasible is returned when the Big-M simplex fails to reach a
// feasible optimum. Matrix-game LPs built from a finite payoff matrix are
// always feasible and bounded (spec.md §4.4), so this indicates a bug in
// matrix construction rather than a property of the game.
var ErrLPInfeasible = errors.New("solver: LP infeasible or unbounded")

const (
	bigM                 = 1e7
	simplexTolerance     = 1e-9
	maxSimplexIterations = 4000
)

// lpResult is one player's solved reduced LP: the probability-like
// variables x and the free game-value variable v.
type lpResult struct {
	x []float64
	v float64
}

// solveMaximizer solves, via Big-M simplex over a gonum tableau:
//
//	maximize v
//	subject to   sum_i x_i*M[i][j] - v >= 0   for every column j
//	             sum_i x_i = 1, x_i >= 0, v free
//
// This is Player A's reduced LP from spec.md §4.4. Player B's problem is
// solved by calling this same routine against the transposed, negated
// matrix (see Solve in solver.go) rather than duplicating the tableau
// construction.
func solveMaximizer(m [][]float64) (lpResult, error) {
	n := len(m)
	if n == 0 {
		return lpResult{}, ErrLPInfeasible
	}

	// Variable layout: x[0..n) | vp | vm | surplus[0..n) | artificial[0..n) | artificialEq
	xOff := 0
	vpCol := n
	vmCol := n + 1
	sOff := n + 2
	aOff := n + 2 + n
	aEqCol := aOff + n
	rhsCol := aEqCol + 1
	cols := rhsCol + 1

	rows := n + 1 // n column constraints + 1 equality (sum x = 1)
	objRow := rows

	tab := mat.NewDense(rows+1, cols, nil)

	for j := 0; j < n; j++ {
		for i := 0; i < n; i++ {
			tab.Set(j, xOff+i, m[i][j])
		}
		tab.Set(j, vpCol, -1)
		tab.Set(j, vmCol, 1)
		tab.Set(j, sOff+j, -1)
		tab.Set(j, aOff+j, 1)
	}

	eqRow := n
	for i := 0; i < n; i++ {
		tab.Set(eqRow, xOff+i, 1)
	}
	tab.Set(eqRow, aEqCol, 1)
	tab.Set(eqRow, rhsCol, 1)

	basis := make([]int, rows)
	for j := 0; j < n; j++ {
		basis[j] = aOff + j
	}
	basis[eqRow] = aEqCol

	// Objective: minimize (vm - vp) + bigM * sum(artificials).
	tab.Set(objRow, vpCol, -1)
	tab.Set(objRow, vmCol, 1)
	for j := 0; j < n; j++ {
		tab.Set(objRow, aOff+j, bigM)
	}
	tab.Set(objRow, aEqCol, bigM)

	// Zero out the objective row's entries under the initial (artificial)
	// basis so the tableau starts in canonical form.
	for r := 0; r < rows; r++ {
		coeff := tab.At(objRow, basis[r])
		if coeff == 0 {
			continue
		}
		for c := 0; c < cols; c++ {
			tab.Set(objRow, c, tab.At(objRow, c)-coeff*tab.At(r, c))
		}
	}

	if err := pivotToOptimum(tab, basis, rows, cols, objRow); err != nil {
		return lpResult{}, err
	}

	for r := 0; r < rows; r++ {
		isArtificial := basis[r] == aEqCol || (basis[r] >= aOff && basis[r] < aEqCol)
		if isArtificial && tab.At(r, rhsCol) > simplexTolerance {
			return lpResult{}, ErrLPInfeasible
		}
	}

	x := make([]float64, n)
	var vp, vm float64
	for r := 0; r < rows; r++ {
		switch {
		case basis[r] >= xOff && basis[r] < xOff+n:
			x[basis[r]-xOff] = tab.At(r, rhsCol)
		case basis[r] == vpCol:
			vp = tab.At(r, rhsCol)
		case basis[r] == vmCol:
			vm = tab.At(r, rhsCol)
		}
	}

	return lpResult{x: x, v: vp - vm}, nil
}

// pivotToOptimum runs the primal simplex method (Dantzig's rule, Bland-style
// tie-break via strict improvement) to drive tab to an optimal basic
// feasible solution in place.
func pivotToOptimum(tab *mat.Dense, basis []int, rows, cols, objRow int) error {
	for iter := 0; iter < maxSimplexIterations; iter++ {
		entering := -1
		best := -simplexTolerance
		for c := 0; c < cols-1; c++ {
			v := tab.At(objRow, c)
			if v < best {
				best = v
				entering = c
			}
		}
		if entering == -1 {
			return nil
		}

		leaving := -1
		bestRatio := math.Inf(1)
		for r := 0; r < rows; r++ {
			coeff := tab.At(r, entering)
			if coeff <= simplexTolerance {
				continue
			}
			ratio := tab.At(r, cols-1) / coeff
			if ratio < bestRatio-simplexTolerance {
				bestRatio = ratio
				leaving = r
			}
		}
		if leaving == -1 {
			return ErrLPInfeasible
		}

		pivot(tab, rows+1, cols, leaving, entering)
		basis[leaving] = entering
	}
	return ErrLPInfeasible
}

func pivot(tab *mat.Dense, totalRows, cols, pr, pc int) {
	pv := tab.At(pr, pc)
	for c := 0; c < cols; c++ {
		tab.Set(pr, c, tab.At(pr, c)/pv)
	}
	for r := 0; r < totalRows; r++ {
		if r == pr {
			continue
		}
		factor := tab.At(r, pc)
		if factor == 0 {
			continue
		}
		for c := 0; c < cols; c++ {
			tab.Set(r, c, tab.At(r, c)-factor*tab.At(pr, c))
		}
	}
}
