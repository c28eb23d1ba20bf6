package rating_test

import (
	"testing"

	"github.com/okian/wallarena/internal/domain/rating"
	. "github.com/smartystreets/goconvey/convey"
)

func ms(v int64) *int64 { return &v }

func TestUpdate(t *testing.T) {
	Convey("Given a rating engine with defaults", t, func() {
		engine := rating.New()

		Convey("When two equal provisional sides contest with a normal vote time", func() {
			winner := rating.Standing{Rating: 1000}
			loser := rating.Standing{Rating: 1000}

			newWinner, newLoser := engine.Update(winner, loser, ms(5000))

			Convey("Then the swing should be K/2 and mirror-symmetric", func() {
				So(newWinner, ShouldEqual, 1032)
				So(newLoser, ShouldEqual, 968)
			})
		})

		Convey("When a 1200 veteran beats a 1000 veteran", func() {
			winner := rating.Standing{Rating: 1200, Wins: 15, Losses: 5}
			loser := rating.Standing{Rating: 1000, Wins: 10, Losses: 10}

			newWinner, newLoser := engine.Update(winner, loser, ms(5000))

			Convey("Then the favorite should gain little and the underdog lose more", func() {
				So(newWinner, ShouldEqual, 1208)
				So(newLoser, ShouldEqual, 976)
				// Both deltas scale with the winner's expectation, so an
				// uneven matchup is deliberately not zero-sum.
				So(1000-newLoser, ShouldBeGreaterThan, newWinner-1200)
			})
		})

		Convey("When the vote comes in under 800ms", func() {
			winner := rating.Standing{Rating: 1000}
			loser := rating.Standing{Rating: 1000}

			fastWinner, _ := engine.Update(winner, loser, ms(500))
			normalWinner, _ := engine.Update(winner, loser, ms(5000))

			Convey("Then the swing should be half the undamped swing", func() {
				So(fastWinner-1000, ShouldEqual, (normalWinner-1000)/2)
				So(fastWinner, ShouldEqual, 1016)
			})
		})

		Convey("When the vote takes longer than 10s", func() {
			winner := rating.Standing{Rating: 1000}
			loser := rating.Standing{Rating: 1000}

			newWinner, _ := engine.Update(winner, loser, ms(15000))

			Convey("Then K should be damped to 90 percent", func() {
				// round(64*0.9) = 58, half of which is 29
				So(newWinner, ShouldEqual, 1029)
			})
		})

		Convey("When elapsed time is unknown", func() {
			winner := rating.Standing{Rating: 1000}
			loser := rating.Standing{Rating: 1000}

			newWinner, newLoser := engine.Update(winner, loser, nil)

			Convey("Then damping should be skipped entirely", func() {
				So(newWinner, ShouldEqual, 1032)
				So(newLoser, ShouldEqual, 968)
			})
		})

		Convey("When one side is provisional and the other is not", func() {
			winner := rating.Standing{Rating: 1000, Wins: 2, Losses: 1}
			loser := rating.Standing{Rating: 1000, Wins: 30, Losses: 30}

			newWinner, newLoser := engine.Update(winner, loser, ms(5000))

			Convey("Then the effective K should be the mean of both sides", func() {
				// (64+32)/2 = 48, equal ratings -> swing 24
				So(newWinner, ShouldEqual, 1024)
				So(newLoser, ShouldEqual, 976)
			})
		})

		Convey("When a very low-rated side keeps losing", func() {
			winner := rating.Standing{Rating: 1000}
			loser := rating.Standing{Rating: 10}

			_, newLoser := engine.Update(winner, loser, ms(5000))

			Convey("Then its rating may go negative (no floor by default)", func() {
				So(newLoser, ShouldBeLessThan, 10)
			})
		})

		Convey("When the same contest is replayed", func() {
			winner := rating.Standing{Rating: 1100, Wins: 3, Losses: 3}
			loser := rating.Standing{Rating: 950, Wins: 5, Losses: 2}

			w1, l1 := engine.Update(winner, loser, ms(2500))
			w2, l2 := engine.Update(winner, loser, ms(2500))

			Convey("Then the result should be deterministic", func() {
				So(w1, ShouldEqual, w2)
				So(l1, ShouldEqual, l2)
			})
		})
	})

	Convey("Given a rating engine with a configured floor", t, func() {
		engine := rating.New(rating.WithFloor(0))

		Convey("When a near-zero side loses", func() {
			winner := rating.Standing{Rating: 1000}
			loser := rating.Standing{Rating: 5}

			_, newLoser := engine.Update(winner, loser, ms(5000))

			Convey("Then the loser should be clamped at the floor", func() {
				So(newLoser, ShouldEqual, 0)
			})
		})
	})

	Convey("Given a rating engine with custom K-factors", t, func() {
		engine := rating.New(rating.WithKFactors(40, 20), rating.WithProvisionalBattles(5))

		Convey("When two fresh sides contest", func() {
			newWinner, _ := engine.Update(rating.Standing{Rating: 1000}, rating.Standing{Rating: 1000}, nil)

			Convey("Then the provisional K should apply", func() {
				So(newWinner, ShouldEqual, 1020)
			})
		})

		Convey("When both sides have five or more battles", func() {
			s := rating.Standing{Rating: 1000, Wins: 3, Losses: 2}
			newWinner, _ := engine.Update(s, s, nil)

			Convey("Then the standard K should apply", func() {
				So(newWinner, ShouldEqual, 1010)
			})
		})
	})
}
