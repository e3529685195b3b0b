// Package rules implements the Electric Chair transition function: given a
// state and both players' simultaneous chair choices, compute the next
// state (spec.md §4.2).
package rules

import (
	"errors"
	"fmt"

	"chairsolver/codec"
	"chairsolver/game"
)

// ErrInvalidChoice is returned when a choice is out of 1..NumChairs or
// names a chair no longer present.
var ErrInvalidChoice = errors.New("rules: invalid chair choice")

// ErrTerminalStep is returned when Step is invoked on a terminal state.
var ErrTerminalStep = errors.New("rules: step invoked on terminal state")

// Result bundles the new encoded state with diagnostics for observers;
// only NextState is required internally (spec.md §4.2).
type Result struct {
	NextState uint32
	Matched   bool
	Points    int
	Shocked   bool
	Removed   int // chair removed, or 0 if none
}

// Roles reports which player is the chair-selector and which is the
// electric-setter on the given turn. A is selector on even turns
// (spec.md §4.2, GLOSSARY).
func Roles(turn int) (selectorIsA bool) {
	return turn%2 == 0
}

// Step applies one simultaneous-move turn to state, given the
// chair-selector's and electric-setter's choices. Both choices must name a
// chair 1..game.NumChairs that is currently present, and state must be
// in-progress; violations are programmer errors per spec.md §7.
func Step(state uint32, selectorChoice, setterChoice int) (Result, error) {
	s := codec.Decode(state)

	if codec.IsTerminal(s) {
		return Result{}, fmt.Errorf("%w: state=%#x", ErrTerminalStep, state)
	}
	if err := validateChoice(s, selectorChoice); err != nil {
		return Result{}, err
	}
	if err := validateChoice(s, setterChoice); err != nil {
		return Result{}, err
	}

	matched := selectorChoice == setterChoice

	next := s
	result := Result{Matched: matched}
	if matched {
		// Shock branch: selector is electrocuted, score resets, no chair removed.
		if s.ASelects() {
			next.ScoreA = 0
			next.ShockA = s.ShockA + 1
		} else {
			next.ScoreB = 0
			next.ShockB = s.ShockB + 1
		}
		result.Shocked = true
	} else {
		// Score branch: selector gains the chosen chair's face value; chair is removed.
		next.Chairs = s.WithChairRemoved(selectorChoice)
		if s.ASelects() {
			next.ScoreA = s.ScoreA + selectorChoice
		} else {
			next.ScoreB = s.ScoreB + selectorChoice
		}
		result.Points = selectorChoice
		result.Removed = selectorChoice
	}

	if codec.Status(next) == game.InProgress {
		next.Turn = s.Turn + 1
	}
	// else: terminal states keep the pre-transition turn (spec.md §3, §9 Open Question a).

	result.NextState = codec.Encode(next)
	return result, nil
}

func validateChoice(s game.State, choice int) error {
	if choice < 1 || choice > game.NumChairs {
		return fmt.Errorf("%w: choice=%d out of range 1..%d", ErrInvalidChoice, choice, game.NumChairs)
	}
	if !s.ChairPresent(choice) {
		return fmt.Errorf("%w: chair %d not present (mask=%#x)", ErrInvalidChoice, choice, s.Chairs)
	}
	return nil
}
