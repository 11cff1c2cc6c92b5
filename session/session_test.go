package session

import (
	"context"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/vodsync/vodsync/eventlog"
	"github.com/vodsync/vodsync/internal/fake"
	"github.com/vodsync/vodsync/player"
	"go.uber.org/goleak"
)

func newSession(id string) *Session {
	return New(id, VOD{Platform: "twitch", ID: "123"}, eventlog.MustNew())
}

func TestSession(t *testing.T) {
	defer goleak.VerifyNone(t)

	Convey("Given a new session", t, func() {
		s := newSession("tab-1")

		Convey("It starts stopped at rate 1", func() {
			So(s.State, ShouldEqual, Stopped)
			So(s.ActiveTrack, ShouldBeEmpty)
			So(s.Primary().Rate, ShouldEqual, 1)
		})

		Convey("Updates replace the primary state", func() {
			s.Update(Primary{Time: 42, Paused: true, Rate: 1.5})
			p := s.Primary()
			So(p.Time, ShouldEqual, 42)
			So(p.Paused, ShouldBeTrue)
			So(p.Rate, ShouldEqual, 1.5)
			So(p.At.IsZero(), ShouldBeFalse)
		})

		Convey("A missing rate defaults to 1", func() {
			s.Update(Primary{Time: 10})
			So(s.Primary().Rate, ShouldEqual, 1)
		})

		Convey("Reset forgets player state", func() {
			s.State = Playing
			s.ActiveTrack = "abc"
			s.LastSynced = 12
			s.Reset()
			So(s.State, ShouldEqual, Stopped)
			So(s.ActiveTrack, ShouldBeEmpty)
			So(s.LastSynced, ShouldEqual, 0)
		})

		Convey("Stop cancels the running goroutine", func() {
			started := make(chan struct{})
			s.Run(context.Background(), func(ctx context.Context) {
				close(started)
				<-ctx.Done()
			})
			<-started

			stopped := make(chan struct{})
			go func() {
				s.Stop()
				close(stopped)
			}()

			select {
			case <-stopped:
			case <-time.After(time.Second):
				t.Fatal("Stop did not return")
			}
		})

		Convey("Stop without Run is a no-op", func() {
			So(func() { s.Stop() }, ShouldNotPanic)
		})

		Convey("Stop silences a playing transport before closing it", func() {
			tr := fake.NewTransport()
			s.Transport = tr
			s.State = Playing
			s.ActiveTrack = "abc"

			s.Stop()
			So(tr.Sent(), ShouldResemble, []player.Command{{Action: player.Stop}})
			So(tr.Closed(), ShouldEqual, 1)
			So(s.Transport, ShouldBeNil)
			So(s.State, ShouldEqual, Stopped)
			So(s.ActiveTrack, ShouldBeEmpty)
		})

		Convey("Stop sends nothing to a stopped transport", func() {
			tr := fake.NewTransport()
			s.Transport = tr

			s.Stop()
			So(tr.Sent(), ShouldBeEmpty)
			So(tr.Closed(), ShouldEqual, 1)
		})
	})

	Convey("VOD keys join platform and id", t, func() {
		So(VOD{Platform: "youtube", ID: "xyz"}.Key(), ShouldEqual, "youtube:xyz")
	})
}

func TestRegistry(t *testing.T) {
	Convey("Given a registry", t, func() {
		r := NewRegistry()

		Convey("Create, lookup and destroy", func() {
			a := newSession("a")
			So(r.Create(a), ShouldBeNil)

			got, ok := r.Lookup("a")
			So(ok, ShouldBeTrue)
			So(got == a, ShouldBeTrue)

			removed, ok := r.Destroy("a")
			So(ok, ShouldBeTrue)
			So(removed == a, ShouldBeTrue)

			_, ok = r.Lookup("a")
			So(ok, ShouldBeFalse)
		})

		Convey("Create returns the replaced session", func() {
			old := newSession("a")
			r.Create(old)
			So(r.Create(newSession("a")) == old, ShouldBeTrue)
			So(r.Len(), ShouldEqual, 1)
		})

		Convey("DestroyIf ignores a stale session", func() {
			old := newSession("a")
			r.Create(old)
			r.Create(newSession("a"))
			So(r.DestroyIf(old), ShouldBeFalse)
			So(r.Len(), ShouldEqual, 1)
		})

		Convey("All is ordered by id", func() {
			r.Create(newSession("b"))
			r.Create(newSession("a"))
			all := r.All()
			So(all, ShouldHaveLength, 2)
			So(all[0].ID, ShouldEqual, "a")
			So(all[1].ID, ShouldEqual, "b")
		})
	})
}
