// Package game holds the Electric Chair domain model: the canonical
// GameState, its field bounds, and the chair-mask helpers the codec, rule
// engine, and solver all build on.
package game

import "math/bits"

const (
	// NumChairs is the fixed number of labeled chairs in the game.
	NumChairs = 12
	// MaxTurn is the highest representable turn index (4-bit field).
	MaxTurn = 15
	// MaxScore is the terminal-win sentinel score; scores above this are unreachable.
	MaxScore = 40
	// MaxShock is the terminal-loss sentinel shock count.
	MaxShock = 3
	// AllChairsMask has all NumChairs bits set (every chair present).
	AllChairsMask = (1 << NumChairs) - 1
)

// Status is the derived outcome of a GameState.
type Status int

const (
	InProgress Status = iota
	AWins
	BWins
	Draw
)

func (s Status) String() string {
	switch s {
	case InProgress:
		return "in-progress"
	case AWins:
		return "A-wins"
	case BWins:
		return "B-wins"
	case Draw:
		return "draw"
	default:
		return "unknown"
	}
}

// State is the canonical, decoded game position (spec.md §3).
type State struct {
	Turn   int
	Chairs uint16 // bit k set means chair k+1 is present
	ScoreA int
	ScoreB int
	ShockA int
	ShockB int
}

// Initial returns the unique starting position: turn 0, all chairs present,
// zero scores and shocks.
func Initial() State {
	return State{Chairs: AllChairsMask}
}

// ChairPresent reports whether chair (1..NumChairs) is still present.
func (s State) ChairPresent(chair int) bool {
	return s.Chairs&(1<<(chair-1)) != 0
}

// WithChairRemoved returns a copy of the chair mask with the given chair cleared.
func (s State) WithChairRemoved(chair int) uint16 {
	return s.Chairs &^ (1 << (chair - 1))
}

// PopCount returns the number of chairs still present.
func (s State) PopCount() int {
	return bits.OnesCount16(s.Chairs)
}

// AvailableChairs returns the present chair numbers (1..NumChairs) in
// ascending order.
func (s State) AvailableChairs() []int {
	chairs := make([]int, 0, s.PopCount())
	for c := 1; c <= NumChairs; c++ {
		if s.ChairPresent(c) {
			chairs = append(chairs, c)
		}
	}
	return chairs
}

// ASelects returns true if Player A is the chair-selector on this turn
// (even turns select as A, odd turns select as B — spec.md §4.2).
func (s State) ASelects() bool {
	return s.Turn%2 == 0
}
