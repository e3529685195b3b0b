// Package codec bijectively packs a game.State into a 32-bit integer and
// derives terminal status from the packed fields alone (spec.md §3, §4.1).
package codec

import (
	"fmt"

	"chairsolver/game"
)

const (
	turnBits   = 4
	chairsBits = 12
	scoreBits  = 6
	shockBits  = 2

	shockBMask  = (1 << shockBits) - 1
	shockAShift = shockBits
	shockAMask  = (1 << shockBits) - 1

	scoreBShift = shockBits * 2
	scoreBMask  = (1 << scoreBits) - 1

	scoreAShift = scoreBShift + scoreBits
	scoreAMask  = (1 << scoreBits) - 1

	chairsShift = scoreAShift + scoreBits
	chairsMask  = (1 << chairsBits) - 1

	turnShift = chairsShift + chairsBits
	turnMask  = (1 << turnBits) - 1
)

// ErrEncodingOverflow indicates a GameState field exceeds its bit width, or
// violates the ruleset's score cap (spec.md §9, Open Question b).
type ErrEncodingOverflow struct {
	State game.State
	Field string
	Value int
}

func (e *ErrEncodingOverflow) Error() string {
	return fmt.Sprintf("codec: encoding overflow: field %s=%d out of range for state %+v", e.Field, e.Value, e.State)
}

// Encode packs a game.State into its canonical 32-bit form (spec.md §3).
// It panics with *ErrEncodingOverflow if any field is out of its valid
// range — these are programmer errors (spec.md §7), never caller input.
func Encode(s game.State) uint32 {
	checkField(s, "Turn", s.Turn, 0, game.MaxTurn)
	checkField(s, "Chairs", int(s.Chairs), 0, chairsMask)
	checkField(s, "ScoreA", s.ScoreA, 0, game.MaxScore)
	checkField(s, "ScoreB", s.ScoreB, 0, game.MaxScore)
	checkField(s, "ShockA", s.ShockA, 0, game.MaxShock)
	checkField(s, "ShockB", s.ShockB, 0, game.MaxShock)

	var encoded uint32
	encoded |= uint32(s.Turn&turnMask) << turnShift
	encoded |= uint32(s.Chairs&chairsMask) << chairsShift
	encoded |= uint32(s.ScoreA&scoreAMask) << scoreAShift
	encoded |= uint32(s.ScoreB&scoreBMask) << scoreBShift
	encoded |= uint32(s.ShockA&shockAMask) << shockAShift
	encoded |= uint32(s.ShockB & shockBMask)
	return encoded
}

func checkField(s game.State, field string, value, lo, hi int) {
	if value < lo || value > hi {
		panic(&ErrEncodingOverflow{State: s, Field: field, Value: value})
	}
}

// Decode unpacks a 32-bit encoding into a game.State. It is total: every
// bit pattern decodes to some State, and it inverts Encode on every value
// Encode produces. A pattern whose score field exceeds game.MaxScore
// decodes to a State that Encode rejects; only reachable states satisfy
// the invariants of spec.md §3.
func Decode(x uint32) game.State {
	return game.State{
		Turn:   int((x >> turnShift) & turnMask),
		Chairs: uint16((x >> chairsShift) & chairsMask),
		ScoreA: int((x >> scoreAShift) & scoreAMask),
		ScoreB: int((x >> scoreBShift) & scoreBMask),
		ShockA: int((x >> shockAShift) & shockAMask),
		ShockB: int(x & shockBMask),
	}
}

// Status derives the game outcome from a decoded state, per the priority
// order in spec.md §4.1.
func Status(s game.State) game.Status {
	switch {
	case s.ShockA == game.MaxShock:
		return game.BWins
	case s.ShockB == game.MaxShock:
		return game.AWins
	case s.ScoreA == game.MaxScore:
		return game.AWins
	case s.ScoreB == game.MaxScore:
		return game.BWins
	}

	remaining := s.PopCount()
	if remaining <= 1 || s.Turn >= game.MaxTurn {
		switch {
		case s.ScoreA > s.ScoreB:
			return game.AWins
		case s.ScoreB > s.ScoreA:
			return game.BWins
		default:
			return game.Draw
		}
	}

	return game.InProgress
}

// StatusOf derives the status directly from an encoded state, without an
// intermediate Decode call at the caller site.
func StatusOf(x uint32) game.Status {
	return Status(Decode(x))
}

// IsTerminal reports whether the decoded state has a terminal status.
func IsTerminal(s game.State) bool {
	return Status(s) != game.InProgress
}

// IsTerminalEncoded reports IsTerminal for an encoded state.
func IsTerminalEncoded(x uint32) bool {
	return StatusOf(x) != game.InProgress
}

// TerminalValue returns the Player-1-perspective payoff for a terminal
// status, using drawValue for draws (spec.md §4.4).
func TerminalValue(status game.Status, drawValue float64) float64 {
	switch status {
	case game.AWins:
		return 1
	case game.BWins:
		return -1
	case game.Draw:
		return drawValue
	default:
		panic(fmt.Sprintf("codec: TerminalValue called on non-terminal status %v", status))
	}
}
