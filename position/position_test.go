package position

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/vodsync/vodsync/eventlog"
)

var song = &eventlog.Track{Title: "song", Artist: "band", DurationMs: 240000}

func estimate(l *eventlog.Log, at, rate float64) float64 {
	return Estimate(l, at, rate).MustGet()
}

func TestEstimate(t *testing.T) {
	Convey("Given a single PLAY at 00:00:10 from 5s", t, func() {
		base := []eventlog.Event{{Timestamp: "00:00:10", Kind: eventlog.Play, PositionMs: 5000, Track: song}}
		l := eventlog.MustNew(base...)

		Convey("Position accrues linearly", func() {
			So(estimate(l, 15, 1.0), ShouldAlmostEqual, 10.0)
		})

		Convey("Position scales with playback rate", func() {
			So(estimate(l, 15, 2.0), ShouldAlmostEqual, 15.0)
		})

		Convey("Fractional primary time accrues too", func() {
			So(estimate(l, 10.5, 1.0), ShouldAlmostEqual, 5.5)
		})

		Convey("No opinion before the anchor", func() {
			So(Estimate(l, 9.9, 1.0).IsAbsent(), ShouldBeTrue)
		})

		Convey("A PAUSE freezes accrual", func() {
			paused := eventlog.MustNew(append(base, eventlog.Event{Timestamp: "00:00:12", Kind: eventlog.Pause})...)
			So(estimate(paused, 20, 1.0), ShouldAlmostEqual, 7.0)

			Convey("and RESUME restarts it", func() {
				resumed := eventlog.MustNew(append(base,
					eventlog.Event{Timestamp: "00:00:12", Kind: eventlog.Pause},
					eventlog.Event{Timestamp: "00:00:18", Kind: eventlog.Resume},
				)...)
				So(estimate(resumed, 20, 1.0), ShouldAlmostEqual, 9.0)
			})
		})

		Convey("A SEEK resets the position", func() {
			seeked := eventlog.MustNew(append(base, eventlog.Event{Timestamp: "00:00:13", Kind: eventlog.Seek, PositionMs: 60000})...)
			So(estimate(seeked, 15, 1.0), ShouldAlmostEqual, 62.0)
		})

		Convey("A SEEK while paused stays frozen at the new position", func() {
			l := eventlog.MustNew(append(base,
				eventlog.Event{Timestamp: "00:00:12", Kind: eventlog.Pause},
				eventlog.Event{Timestamp: "00:00:14", Kind: eventlog.Seek, PositionMs: 30000},
			)...)
			So(estimate(l, 40, 1.0), ShouldAlmostEqual, 30.0)
		})
	})

	Convey("Given a SEEK at 00:00:05 after the anchor", t, func() {
		l := eventlog.MustNew(
			eventlog.Event{Timestamp: "00:00:02", Kind: eventlog.Play, PositionMs: 120000, Track: song},
			eventlog.Event{Timestamp: "00:00:05", Kind: eventlog.Seek, PositionMs: 60000},
		)

		Convey("Accrual restarts from 60s regardless of the prior position", func() {
			So(estimate(l, 8, 1.0), ShouldAlmostEqual, 63.0)
		})

		Convey("Before the SEEK the anchor position still applies", func() {
			So(estimate(l, 4, 1.0), ShouldAlmostEqual, 122.0)
		})
	})

	Convey("Given two songs and a START", t, func() {
		other := &eventlog.Track{Title: "other", Artist: "band"}
		l := eventlog.MustNew(
			eventlog.Event{Timestamp: "00:00:10", Kind: eventlog.Play, PositionMs: 0, Track: song},
			eventlog.Event{Timestamp: "00:01:00", Kind: eventlog.Play, PositionMs: 1000, Track: other},
			eventlog.Event{Timestamp: "00:02:00", Kind: eventlog.Start},
		)

		Convey("The latest PLAY is the anchor", func() {
			ctx := Locate(l, 70, 1.0).MustGet()
			So(ctx.Track().Title, ShouldEqual, "other")
			So(ctx.Position, ShouldAlmostEqual, 11.0)
		})

		Convey("After START there is no context", func() {
			So(Locate(l, 130, 1.0).IsAbsent(), ShouldBeTrue)
		})
	})
}

func TestIntent(t *testing.T) {
	Convey("Given a paused song", t, func() {
		l := eventlog.MustNew(
			eventlog.Event{Timestamp: "00:00:10", Kind: eventlog.Play, Track: song},
			eventlog.Event{Timestamp: "00:00:20", Kind: eventlog.Pause},
			eventlog.Event{Timestamp: "00:00:30", Kind: eventlog.Resume},
		)

		Convey("Intent follows the latest toggle", func() {
			So(Locate(l, 15, 1).MustGet().Paused(), ShouldBeFalse)
			So(Locate(l, 25, 1).MustGet().Paused(), ShouldBeTrue)
			So(Locate(l, 35, 1).MustGet().Paused(), ShouldBeFalse)
		})

		Convey("Intent never reaches back past the anchor", func() {
			l := eventlog.MustNew(
				eventlog.Event{Timestamp: "00:00:05", Kind: eventlog.Play, Track: song},
				eventlog.Event{Timestamp: "00:00:06", Kind: eventlog.Pause},
				eventlog.Event{Timestamp: "00:00:10", Kind: eventlog.Play, Track: song},
			)
			ctx := Locate(l, 12, 1).MustGet()
			So(ctx.Paused(), ShouldBeFalse)
			So(ctx.Intent.Seconds, ShouldEqual, 10)
		})
	})
}

func TestSameSecondEvents(t *testing.T) {
	Convey("Given a PAUSE and a SEEK logged in the same second", t, func() {
		l := eventlog.MustNew(
			eventlog.Event{Timestamp: "00:00:10", Kind: eventlog.Play, PositionMs: 0, Track: song},
			eventlog.Event{Timestamp: "00:00:12", Kind: eventlog.Pause},
			eventlog.Event{Timestamp: "00:00:12", Kind: eventlog.Seek, PositionMs: 50000},
		)

		Convey("Both apply in log order", func() {
			So(estimate(l, 30, 1.0), ShouldAlmostEqual, 50.0)
		})
	})
}
