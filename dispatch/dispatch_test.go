package dispatch

import (
	"context"
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/vodsync/vodsync/eventlog"
	"github.com/vodsync/vodsync/internal/fake"
	"github.com/vodsync/vodsync/player"
	"github.com/vodsync/vodsync/session"
)

type factoryStub struct {
	created []*fake.Transport
	err     error
}

func (f *factoryStub) factory(context.Context, *session.Session) (player.Transport, error) {
	if f.err != nil {
		return nil, f.err
	}
	t := fake.NewTransport()
	f.created = append(f.created, t)
	return t, nil
}

func playing(s *session.Session) {
	s.State = session.Playing
	s.ActiveTrack = "abc"
	s.LastSynced = 30
}

func TestDispatch(t *testing.T) {
	ctx := context.Background()

	Convey("Given a session without a transport", t, func() {
		stub := &factoryStub{}
		d := New(stub.factory, Recreate)
		s := session.New("tab", session.VOD{Platform: "twitch", ID: "1"}, eventlog.MustNew())

		Convey("A play with a track creates one", func() {
			d.Dispatch(ctx, s, player.Command{Action: player.Play, TrackID: "abc", SeekTo: 3})
			So(stub.created, ShouldHaveLength, 1)
			So(s.Transport, ShouldNotBeNil)
			So(stub.created[0].Sent(), ShouldResemble, []player.Command{{Action: player.Play, TrackID: "abc", SeekTo: 3}})

			Convey("and later commands reuse it", func() {
				d.Dispatch(ctx, s, player.Command{Action: player.Pause})
				So(stub.created, ShouldHaveLength, 1)
				So(stub.created[0].Sent(), ShouldHaveLength, 2)
			})
		})

		Convey("Other commands are dropped", func() {
			for _, cmd := range []player.Command{{Action: player.Pause}, {Action: player.Seek, SeekTo: 1}, {Action: player.Stop}, {Action: player.Play}} {
				d.Dispatch(ctx, s, cmd)
			}
			So(stub.created, ShouldBeEmpty)
			So(s.Transport, ShouldBeNil)
		})

		Convey("A failing factory resets state under recreate", func() {
			stub.err = errors.New("no player")
			playing(s)
			d.Dispatch(ctx, s, player.Command{Action: player.Play, TrackID: "abc"})
			So(s.Transport, ShouldBeNil)
			So(s.State, ShouldEqual, session.Stopped)
			So(s.ActiveTrack, ShouldBeEmpty)
		})
	})

	Convey("Given a session whose transport vanished", t, func() {
		for _, policy := range []Policy{Recreate, Drop} {
			stub := &factoryStub{}
			d := New(stub.factory, policy)
			s := session.New("tab", session.VOD{Platform: "twitch", ID: "1"}, eventlog.MustNew())
			old := fake.NewTransport()
			s.Transport = old
			playing(s)
			old.Vanish()

			Convey("Reap clears the handle under "+string(policy), func() {
				So(d.Reap(s), ShouldBeTrue)
				So(s.Transport, ShouldBeNil)
				So(old.Closed(), ShouldEqual, 1)
				So(d.Reap(s), ShouldBeFalse)

				if policy == Recreate {
					So(s.State, ShouldEqual, session.Stopped)
					So(s.ActiveTrack, ShouldBeEmpty)
				} else {
					So(s.State, ShouldEqual, session.Playing)
					So(s.ActiveTrack, ShouldEqual, "abc")
				}
			})

			Convey("A seek is dropped rather than creating a transport under "+string(policy), func() {
				d.Dispatch(ctx, s, player.Command{Action: player.Seek, SeekTo: 40})
				So(stub.created, ShouldBeEmpty)
				So(old.Sent(), ShouldBeEmpty)
			})

			Convey("A new play creates a fresh transport under "+string(policy), func() {
				d.Dispatch(ctx, s, player.Command{Action: player.Play, TrackID: "def"})
				So(stub.created, ShouldHaveLength, 1)
				So(s.Transport == player.Transport(stub.created[0]), ShouldBeTrue)
			})
		}
	})

	Convey("Given a transport that is busy", t, func() {
		stub := &factoryStub{}
		d := New(stub.factory, Recreate)
		s := session.New("tab", session.VOD{Platform: "twitch", ID: "1"}, eventlog.MustNew())
		busy := fake.NewTransport()
		busy.Err = player.ErrBusy
		s.Transport = busy
		playing(s)

		Convey("The command is dropped and the transport kept", func() {
			d.Dispatch(ctx, s, player.Command{Action: player.Seek, SeekTo: 1})
			So(s.Transport == player.Transport(busy), ShouldBeTrue)
			So(s.State, ShouldEqual, session.Playing)
		})
	})
}

func TestParsePolicy(t *testing.T) {
	Convey("ParsePolicy", t, func() {
		p, err := ParsePolicy("drop")
		So(err, ShouldBeNil)
		So(p, ShouldEqual, Drop)

		_, err = ParsePolicy("retry")
		So(err, ShouldNotBeNil)
	})
}

func TestForKind(t *testing.T) {
	Convey("ForKind", t, func() {
		hub := player.NewHub()
		_, err := ForKind("embedded", hub, "")
		So(err, ShouldBeNil)

		Convey("The embedded factory needs a connected page", func() {
			f, _ := ForKind("embedded", hub, "")
			s := session.New("tab", session.VOD{}, eventlog.MustNew())
			_, err := f(context.Background(), s)
			So(err, ShouldEqual, player.ErrNoSurface)
		})

		_, err = ForKind("vlc", hub, "")
		So(err, ShouldNotBeNil)
	})
}
