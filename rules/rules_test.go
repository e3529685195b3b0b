package rules

import (
	"math/bits"
	"testing"

	"chairsolver/codec"
	"chairsolver/game"

	. "github.com/smartystreets/goconvey/convey"
)

func TestStepConservation(t *testing.T) {
	Convey("Given the initial state and every legal choice pair", t, func() {
		start := codec.Encode(game.Initial())

		Convey("exactly one of chair-removed or selector-shocked holds", func() {
			s := codec.Decode(start)
			for _, a := range s.AvailableChairs() {
				for _, b := range s.AvailableChairs() {
					result, err := Step(start, a, b)
					So(err, ShouldBeNil)

					next := codec.Decode(result.NextState)
					chairRemoved := next.PopCount() < s.PopCount()
					shockChanged := next.ShockA != s.ShockA || next.ShockB != s.ShockB

					So(chairRemoved != shockChanged, ShouldBeTrue)

					if a == b {
						So(result.Shocked, ShouldBeTrue)
						So(next.ShockA, ShouldEqual, s.ShockA+1)
						So(next.ScoreA, ShouldEqual, 0)
					} else {
						popDelta := s.PopCount() - next.PopCount()
						So(popDelta, ShouldBeIn, 0, 1)
					}
				}
			}
		})
	})
}

func TestStepMonotoneTurn(t *testing.T) {
	Convey("Given a non-terminal outcome", t, func() {
		start := codec.Encode(game.State{Turn: 2, Chairs: game.AllChairsMask})

		result, err := Step(start, 3, 5)
		So(err, ShouldBeNil)

		Convey("turn increments by exactly one", func() {
			next := codec.Decode(result.NextState)
			So(next.Turn, ShouldEqual, 3)
		})
	})

	Convey("Given an outcome that enters a terminal state", t, func() {
		// A has 2 shocks; a matched choice pushes to 3 shocks -> B wins, turn frozen.
		start := codec.Encode(game.State{Turn: 4, Chairs: (1 << 2) | (1 << 4), ShockA: 2})

		result, err := Step(start, 3, 3)
		So(err, ShouldBeNil)

		Convey("turn does not advance", func() {
			next := codec.Decode(result.NextState)
			So(next.Turn, ShouldEqual, 4)
			So(codec.Status(next), ShouldEqual, game.BWins)
		})
	})
}

func TestStepScoreTippingWin(t *testing.T) {
	Convey("Given A holds 31 points and chair 9 is present", t, func() {
		start := codec.Encode(game.State{Turn: 0, Chairs: game.AllChairsMask, ScoreA: 31})

		Convey("A selecting chair 9 unmatched yields exactly 40 and A wins", func() {
			result, err := Step(start, 9, 5)
			So(err, ShouldBeNil)
			next := codec.Decode(result.NextState)
			So(next.ScoreA, ShouldEqual, 40)
			So(codec.Status(next), ShouldEqual, game.AWins)
		})
	})
}

func TestStepErrorConditions(t *testing.T) {
	Convey("Given a choice naming an absent chair", t, func() {
		start := codec.Encode(game.State{Turn: 0, Chairs: 0b110})

		_, err := Step(start, 1, 2)

		Convey("Step returns ErrInvalidChoice", func() {
			So(err, ShouldNotBeNil)
		})
	})

	Convey("Given a choice out of range", t, func() {
		start := codec.Encode(game.Initial())

		_, err := Step(start, 13, 1)

		Convey("Step returns ErrInvalidChoice", func() {
			So(err, ShouldNotBeNil)
		})
	})

	Convey("Given a terminal state", t, func() {
		start := codec.Encode(game.State{Turn: 5, Chairs: 1, ShockA: game.MaxShock})

		_, err := Step(start, 1, 1)

		Convey("Step returns ErrTerminalStep", func() {
			So(err, ShouldNotBeNil)
		})
	})
}

func TestRolesAlternate(t *testing.T) {
	Convey("Given consecutive turns", t, func() {
		Convey("A selects on even turns, B on odd turns", func() {
			for turn := 0; turn <= game.MaxTurn; turn++ {
				So(Roles(turn), ShouldEqual, turn%2 == 0)
			}
		})
	})
}

func TestStepDeterminism(t *testing.T) {
	Convey("Given the same inputs applied twice", t, func() {
		start := codec.Encode(game.State{Turn: 1, Chairs: game.AllChairsMask, ScoreA: 3, ScoreB: 7})

		r1, err1 := Step(start, 4, 4)
		r2, err2 := Step(start, 4, 4)

		Convey("the outputs are bit-identical", func() {
			So(err1, ShouldBeNil)
			So(err2, ShouldBeNil)
			So(r1, ShouldResemble, r2)
		})
	})
}

func TestPopCountHelper(t *testing.T) {
	Convey("Sanity check against math/bits directly", t, func() {
		s := game.State{Chairs: 0x0AAA}
		So(s.PopCount(), ShouldEqual, bits.OnesCount16(0x0AAA))
	})
}
