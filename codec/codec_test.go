package codec

import (
	"testing"

	"chairsolver/game"

	. "github.com/smartystreets/goconvey/convey"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	Convey("Given a variety of reachable states", t, func() {
		cases := []game.State{
			game.Initial(),
			{Turn: 1, Chairs: 0x0FFE, ScoreA: 3, ScoreB: 0, ShockA: 0, ShockB: 0},
			{Turn: 15, Chairs: 0x0001, ScoreA: 39, ScoreB: 39, ShockA: 2, ShockB: 2},
			{Turn: 8, Chairs: 0x0AAA, ScoreA: 40, ScoreB: 0, ShockA: 0, ShockB: 0},
			{Turn: 0, Chairs: 0, ScoreA: 0, ScoreB: 0, ShockA: 3, ShockB: 0},
		}

		Convey("encode then decode returns the original state", func() {
			for _, s := range cases {
				So(Decode(Encode(s)), ShouldResemble, s)
			}
		})

		Convey("the top 4 bits of the encoding equal the turn", func() {
			for _, s := range cases {
				encoded := Encode(s)
				So(int(encoded>>turnShift)&turnMask, ShouldEqual, s.Turn)
			}
		})
	})

	Convey("Given the full enumerated 32-bit domain of a small field subset", t, func() {
		Convey("decode then encode is a fixpoint", func() {
			for turn := 0; turn <= game.MaxTurn; turn++ {
				for _, chairs := range []uint16{0, 1, 0x0FFF, 0x0AAA} {
					x := (uint32(turn) << turnShift) | (uint32(chairs) << chairsShift)
					So(Encode(Decode(x)), ShouldEqual, x)
				}
			}
		})
	})
}

func TestInitialStateEncoding(t *testing.T) {
	Convey("Given the initial state", t, func() {
		s := game.Initial()

		Convey("its encoding matches the documented value 0x0FFF0000", func() {
			So(Encode(s), ShouldEqual, uint32(0x0FFF0000))
		})

		Convey("its status is in-progress", func() {
			So(Status(s), ShouldEqual, game.InProgress)
		})
	})
}

func TestEncodeOverflowPanics(t *testing.T) {
	Convey("Given a state with an out-of-range score", t, func() {
		s := game.State{Turn: 0, Chairs: game.AllChairsMask, ScoreA: 41}

		Convey("Encode panics with ErrEncodingOverflow", func() {
			So(func() { Encode(s) }, ShouldPanicWith, &ErrEncodingOverflow{State: s, Field: "ScoreA", Value: 41})
		})
	})

	Convey("Given a state with an out-of-range turn", t, func() {
		s := game.State{Turn: 16, Chairs: game.AllChairsMask}

		Convey("Encode panics", func() {
			So(func() { Encode(s) }, ShouldPanic)
		})
	})
}

func TestStatusDerivation(t *testing.T) {
	Convey("Given shock sentinels take priority over scores", t, func() {
		s := game.State{Turn: 5, Chairs: game.AllChairsMask, ScoreA: 40, ShockB: game.MaxShock}

		Convey("B's third shock wins for A regardless of A's score also hitting 40", func() {
			So(Status(s), ShouldEqual, game.AWins)
		})
	})

	Convey("Given a one-chair endgame with tied scores", t, func() {
		s := game.State{Turn: 10, Chairs: 1 << 6, ScoreA: 20, ScoreB: 20}

		Convey("the status is a draw", func() {
			So(Status(s), ShouldEqual, game.Draw)
		})
	})

	Convey("Given turn has reached the cap with multiple chairs remaining", t, func() {
		s := game.State{Turn: game.MaxTurn, Chairs: 0x0007, ScoreA: 12, ScoreB: 30}

		Convey("the higher score wins even though more than one chair remains", func() {
			So(Status(s), ShouldEqual, game.BWins)
		})
	})

	Convey("Given two states with identical core fields", t, func() {
		a := game.State{Turn: 4, Chairs: 0x00F0, ScoreA: 10, ScoreB: 11, ShockA: 1, ShockB: 0}
		b := a

		Convey("their statuses are identical (status purity)", func() {
			So(Status(a), ShouldEqual, Status(b))
		})
	})
}

func TestTerminalValue(t *testing.T) {
	Convey("Given each terminal status", t, func() {
		Convey("A-wins maps to +1", func() {
			So(TerminalValue(game.AWins, 0), ShouldEqual, 1)
		})
		Convey("B-wins maps to -1", func() {
			So(TerminalValue(game.BWins, 0), ShouldEqual, -1)
		})
		Convey("Draw maps to the configured draw value", func() {
			So(TerminalValue(game.Draw, 0.25), ShouldEqual, 0.25)
		})
	})
}
