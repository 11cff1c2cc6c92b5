package eventlog

import (
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/vodsync/vodsync/filesystem"
	"github.com/vodsync/vodsync/internal/cache"
)

func play(ts string, posMs int64, title string) Event {
	return Event{Timestamp: ts, Kind: Play, PositionMs: posMs, Track: &Track{Title: title, Artist: "artist", DurationMs: 180000}}
}

func TestTimestamps(t *testing.T) {
	Convey("ParseTimestamp", t, func() {
		Convey("Parses hours, minutes and seconds", func() {
			secs, err := ParseTimestamp("01:02:03")
			So(err, ShouldBeNil)
			So(secs, ShouldEqual, 3723)
		})

		Convey("Accepts hours beyond two digits", func() {
			secs, err := ParseTimestamp("100:00:00")
			So(err, ShouldBeNil)
			So(secs, ShouldEqual, 360000)
		})

		Convey("Rejects garbage", func() {
			for _, bad := range []string{"", "12:34", "aa:bb:cc", "00:61:00", "00:00:-1"} {
				_, err := ParseTimestamp(bad)
				So(errors.Is(err, ErrMalformed), ShouldBeTrue)
			}
		})
	})

	Convey("FormatTimestamp", t, func() {
		So(FormatTimestamp(0), ShouldEqual, "00:00:00")
		So(FormatTimestamp(3723.9), ShouldEqual, "01:02:03")
		So(FormatTimestamp(-5), ShouldEqual, "00:00:00")
	})
}

func TestLog(t *testing.T) {
	Convey("Given an out-of-order log", t, func() {
		l, err := New([]Event{
			{Timestamp: "00:00:30", Kind: Pause},
			play("00:00:10", 0, "first"),
			{Timestamp: "00:00:30", Kind: Resume},
			{Timestamp: "00:01:00", Kind: Start},
			play("00:02:00", 1000, "second"),
		})
		So(err, ShouldBeNil)

		Convey("Events are sorted stably", func() {
			kinds := []Kind{}
			for _, e := range l.Events() {
				kinds = append(kinds, e.Kind)
			}
			So(kinds, ShouldResemble, []Kind{Play, Pause, Resume, Start, Play})
		})

		Convey("Anchor finds the opening PLAY", func() {
			i, ok := l.Anchor(45.5).Get()
			So(ok, ShouldBeTrue)
			So(l.At(i).Track.Title, ShouldEqual, "first")
		})

		Convey("Anchor includes an event at the same whole second", func() {
			i, ok := l.Anchor(10.2).Get()
			So(ok, ShouldBeTrue)
			So(l.At(i).Seconds, ShouldEqual, 10)
		})

		Convey("No anchor before the first PLAY", func() {
			So(l.Anchor(5).IsAbsent(), ShouldBeTrue)
		})

		Convey("START closes the context", func() {
			So(l.Anchor(90).IsAbsent(), ShouldBeTrue)
			i, ok := l.Anchor(150).Get()
			So(ok, ShouldBeTrue)
			So(l.At(i).Track.Title, ShouldEqual, "second")
		})

		Convey("LastOf respects the lower bound", func() {
			e, ok := l.LastOf(40, 0, Pause, Resume, Play).Get()
			So(ok, ShouldBeTrue)
			So(e.Kind, ShouldEqual, Resume)

			So(l.LastOf(40, 3, Pause).IsAbsent(), ShouldBeTrue)
		})
	})

	Convey("Given a log with repeated songs", t, func() {
		l := MustNew(
			play("00:00:01", 0, "a"),
			play("00:00:05", 0, "b"),
			Event{Timestamp: "00:00:09", Kind: Play, Track: &Track{Title: "a", Artist: "remaster"}},
			Event{Timestamp: "00:00:10", Kind: Play},
		)

		Convey("Tracks lists each title once in first-seen order with latest metadata", func() {
			tracks := l.Tracks()
			So(len(tracks), ShouldEqual, 2)
			So(tracks[0].Title, ShouldEqual, "a")
			So(tracks[0].Artist, ShouldEqual, "remaster")
			So(tracks[1].Title, ShouldEqual, "b")
		})
	})
}

func TestParse(t *testing.T) {
	Convey("Parse", t, func() {
		Convey("Accepts the envelope format", func() {
			l, err := Parse([]byte(`{"log":[{"timestamp":"00:00:10","event":"PLAY","position_ms":5000,"track":{"title":"t","artist":"a","duration_ms":1000}}]}`))
			So(err, ShouldBeNil)
			So(l.Len(), ShouldEqual, 1)
			So(l.At(0).Position(), ShouldEqual, 5.0)
			So(l.At(0).Track.Title, ShouldEqual, "t")
		})

		Convey("Accepts a bare array", func() {
			l, err := Parse([]byte(` [{"timestamp":"00:00:01","event":"START"}]`))
			So(err, ShouldBeNil)
			So(l.At(0).Kind, ShouldEqual, Start)
		})

		Convey("Rejects malformed documents", func() {
			for _, doc := range []string{"", "nope", `{"log":"x"}`, `[{"timestamp":"bad","event":"PLAY"}]`} {
				_, err := Parse([]byte(doc))
				So(errors.Is(err, ErrMalformed), ShouldBeTrue)
			}
		})

		Convey("Marshal output parses back to the same events", func() {
			l := MustNew(play("00:00:10", 5000, "t"))
			data, err := l.Marshal()
			So(err, ShouldBeNil)
			back, err := Parse(data)
			So(err, ShouldBeNil)
			So(back.Events(), ShouldResemble, l.Events())
		})
	})
}

func TestStore(t *testing.T) {
	Convey("Given a store backed by an in-memory disk", t, func() {
		filesystem.SetMemMapFs()
		disk := cache.New("/cache/eventlogs", 0)
		store := NewStore(disk)
		l := MustNew(play("00:00:10", 5000, "t"))

		Convey("A miss is absent", func() {
			So(store.Get("https://logs/1").IsAbsent(), ShouldBeTrue)
		})

		Convey("A put log is served from memory", func() {
			store.Put("https://logs/1", l)
			got, ok := store.Get("https://logs/1").Get()
			So(ok, ShouldBeTrue)
			So(got == l, ShouldBeTrue)
		})

		Convey("A fresh store reads the persisted copy", func() {
			store.Put("https://logs/1", l)
			other := NewStore(disk)
			got, ok := other.Get("https://logs/1").Get()
			So(ok, ShouldBeTrue)
			So(got.Events(), ShouldResemble, l.Events())
		})
	})
}
