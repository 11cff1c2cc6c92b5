package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/samber/mo"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/vodsync/vodsync/directory"
	"github.com/vodsync/vodsync/dispatch"
	"github.com/vodsync/vodsync/eventlog"
	"github.com/vodsync/vodsync/filesystem"
	"github.com/vodsync/vodsync/internal/fake"
	"github.com/vodsync/vodsync/player"
	"github.com/vodsync/vodsync/reconcile"
	"github.com/vodsync/vodsync/session"
	"go.uber.org/goleak"
)

func init() {
	filesystem.SetMemMapFs()
}

var testLog = eventlog.MustNew(eventlog.Event{
	Timestamp:  "00:00:10",
	Kind:       eventlog.Play,
	PositionMs: 5000,
	Track:      &eventlog.Track{Title: "one", Artist: "artist"},
})

type fakeDirectory struct {
	lookups  atomic.Int32
	fetches  atomic.Int32
	delay    time.Duration
	fetchErr error
}

func (d *fakeDirectory) Lookup(ctx context.Context, platform, vodID string) (directory.Entry, error) {
	d.lookups.Add(1)
	if d.delay > 0 {
		time.Sleep(d.delay)
	}
	if vodID == "missing" {
		return directory.Entry{}, directory.ErrNotFound
	}
	return directory.Entry{Key: platform + ":" + vodID, LogURL: "https://logs.example/" + vodID, VODName: "vod " + vodID}, nil
}

func (d *fakeDirectory) Fetch(ctx context.Context, logURL string) (*eventlog.Log, error) {
	d.fetches.Add(1)
	if d.fetchErr != nil {
		return nil, d.fetchErr
	}
	return testLog, nil
}

type countingTicker struct {
	mu    sync.Mutex
	ticks map[*session.Session]int
}

func newCountingTicker() *countingTicker {
	return &countingTicker{ticks: make(map[*session.Session]int)}
}

func (c *countingTicker) Tick(_ context.Context, s *session.Session) reconcile.Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ticks[s]++
	return reconcile.Idle
}

func (c *countingTicker) count(s *session.Session) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ticks[s]
}

func eventually(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func update(vod string, at float64) Update {
	return Update{Platform: "twitch", VODID: vod, Primary: session.Primary{Time: at, Rate: 1}}
}

func TestLifecycle(t *testing.T) {
	defer goleak.VerifyNone(t)

	Convey("Given an engine", t, func() {
		dir := &fakeDirectory{}
		ticker := newCountingTicker()
		e := New(dir, ticker, Options{TickInterval: 10 * time.Millisecond})
		defer e.Shutdown()

		Convey("An unknown vod creates no session", func() {
			err := e.TimeUpdate("tab", update("missing", 1))
			So(errors.Is(err, ErrNoLog), ShouldBeTrue)
			So(e.Len(), ShouldEqual, 0)

			view, ok := e.View("tab")
			So(ok, ShouldBeTrue)
			So(view.Status, ShouldEqual, StatusNoLog)

			Convey("and is retried by the next update", func() {
				_ = e.TimeUpdate("tab", update("missing", 2))
				So(dir.lookups.Load(), ShouldEqual, 2)
			})
		})

		Convey("A fetch failure aborts creation", func() {
			dir.fetchErr = errors.New("bucket down")
			err := e.TimeUpdate("tab", update("1", 1))
			So(errors.Is(err, ErrFetch), ShouldBeTrue)
			So(e.Len(), ShouldEqual, 0)

			view, _ := e.View("tab")
			So(view.Status, ShouldEqual, StatusError)

			Convey("and the next update recovers", func() {
				dir.fetchErr = nil
				So(e.TimeUpdate("tab", update("1", 2)), ShouldBeNil)
				So(e.Len(), ShouldEqual, 1)
			})
		})

		Convey("A known vod opens a ticking session", func() {
			So(e.TimeUpdate("tab", update("1", 12)), ShouldBeNil)
			So(e.Len(), ShouldEqual, 1)

			s, ok := e.registry.Lookup("tab")
			So(ok, ShouldBeTrue)
			So(s.VODName, ShouldEqual, "vod 1")
			So(eventually(func() bool { return ticker.count(s) >= 3 }), ShouldBeTrue)

			Convey("Later updates only replace the primary state", func() {
				So(e.TimeUpdate("tab", update("1", 20)), ShouldBeNil)
				So(dir.lookups.Load(), ShouldEqual, 1)
				So(s.Primary().Time, ShouldEqual, 20)
			})

			Convey("A second tab on the same vod reuses the cached log", func() {
				So(e.TimeUpdate("tab-2", update("1", 12)), ShouldBeNil)
				So(e.Len(), ShouldEqual, 2)
				So(dir.fetches.Load(), ShouldEqual, 1)
			})

			Convey("Tracks lists the song history", func() {
				tracks, ok := e.Tracks("tab")
				So(ok, ShouldBeTrue)
				So(tracks, ShouldHaveLength, 1)
				So(tracks[0].Title, ShouldEqual, "one")
			})

			Convey("A vod change replaces the session", func() {
				So(e.TimeUpdate("tab", update("2", 1)), ShouldBeNil)
				next, _ := e.registry.Lookup("tab")
				So(next == s, ShouldBeFalse)
				So(next.VOD.ID, ShouldEqual, "2")

				stopped := ticker.count(s)
				time.Sleep(50 * time.Millisecond)
				So(ticker.count(s), ShouldEqual, stopped)
			})

			Convey("Close stops the session", func() {
				So(e.Close("tab"), ShouldBeTrue)
				So(e.Len(), ShouldEqual, 0)
				_, ok := e.View("tab")
				So(ok, ShouldBeFalse)

				stopped := ticker.count(s)
				time.Sleep(50 * time.Millisecond)
				So(ticker.count(s), ShouldEqual, stopped)

				So(e.Close("tab"), ShouldBeFalse)
			})
		})

		Convey("Concurrent first updates share one lookup", func() {
			dir.delay = 50 * time.Millisecond
			var wg sync.WaitGroup
			for i := 0; i < 5; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					_ = e.TimeUpdate("tab", update("1", float64(i)))
				}(i)
			}
			wg.Wait()

			So(dir.lookups.Load(), ShouldEqual, 1)
			So(e.Len(), ShouldEqual, 1)
		})

		Convey("Shutdown stops everything", func() {
			So(e.TimeUpdate("a", update("1", 1)), ShouldBeNil)
			So(e.TimeUpdate("b", update("2", 1)), ShouldBeNil)
			e.Shutdown()

			So(e.Len(), ShouldEqual, 0)
			So(e.TimeUpdate("a", update("1", 2)), ShouldEqual, ErrClosed)
		})
	})
}

type staticResolver map[string]string

func (r staticResolver) Resolve(_ context.Context, track eventlog.Track) mo.Option[string] {
	if id, ok := r[track.Title]; ok {
		return mo.Some(id)
	}
	return mo.None[string]()
}

func TestNowPlaying(t *testing.T) {
	defer goleak.VerifyNone(t)

	Convey("Given an engine with a real reconciler", t, func() {
		tr := fake.NewTransport()
		factory := func(context.Context, *session.Session) (player.Transport, error) { return tr, nil }
		rec := reconcile.New(staticResolver{"one": "id-one"}, dispatch.New(factory, dispatch.Recreate), reconcile.Options{Threshold: 2 * time.Second})

		np := NewNowPlaying("/cache/nowplaying.json")
		So(np.Clear(), ShouldBeNil)

		e := New(&fakeDirectory{}, rec, Options{TickInterval: 10 * time.Millisecond, NowPlaying: np})
		defer e.Shutdown()

		So(e.TimeUpdate("tab", update("1", 15)), ShouldBeNil)

		Convey("The player receives the song", func() {
			So(eventually(func() bool { return len(tr.Sent()) > 0 }), ShouldBeTrue)
			So(tr.Sent()[0], ShouldResemble, player.Command{Action: player.Play, TrackID: "id-one", SeekTo: 10})
		})

		Convey("The view reports the synced song", func() {
			So(eventually(func() bool {
				v, _ := e.View("tab")
				return v.Status == StatusSynced
			}), ShouldBeTrue)

			v, _ := e.View("tab")
			So(v.TrackID, ShouldEqual, "id-one")
			So(v.Track.Title, ShouldEqual, "one")
			So(v.Transport, ShouldEqual, "fake")
		})

		Convey("A snapshot is persisted and dropped on close", func() {
			So(eventually(func() bool {
				all, err := np.All()
				return err == nil && len(all) == 1
			}), ShouldBeTrue)

			all, _ := np.All()
			So(all[0].TrackID, ShouldEqual, "id-one")
			So(all[0].VOD, ShouldEqual, "twitch:1")

			e.Close("tab")
			all, _ = np.All()
			So(all, ShouldBeEmpty)
			So(tr.Closed(), ShouldEqual, 1)

			sent := tr.Sent()
			So(sent[len(sent)-1], ShouldResemble, player.Command{Action: player.Stop})
		})

		Convey("Switching to an unknown vod tears the old session down", func() {
			So(eventually(func() bool { return len(tr.Sent()) > 0 }), ShouldBeTrue)

			err := e.TimeUpdate("tab", update("missing", 15))
			So(errors.Is(err, ErrNoLog), ShouldBeTrue)
			So(e.Len(), ShouldEqual, 0)
			So(tr.Closed(), ShouldEqual, 1)

			sent := tr.Sent()
			So(sent[len(sent)-1], ShouldResemble, player.Command{Action: player.Stop})

			time.Sleep(50 * time.Millisecond)
			v, ok := e.View("tab")
			So(ok, ShouldBeTrue)
			So(v.Status, ShouldEqual, StatusNoLog)
			So(v.VOD.ID, ShouldEqual, "missing")
		})
	})
}

type firstTimeTicker struct {
	once  sync.Once
	first chan float64
}

func (f *firstTimeTicker) Tick(_ context.Context, s *session.Session) reconcile.Outcome {
	f.once.Do(func() { f.first <- s.Primary().Time })
	return reconcile.Idle
}

func TestFirstTick(t *testing.T) {
	defer goleak.VerifyNone(t)

	Convey("The first tick of a new session sees the update that created it", t, func() {
		ticker := &firstTimeTicker{first: make(chan float64, 1)}
		e := New(&fakeDirectory{}, ticker, Options{TickInterval: 10 * time.Millisecond})
		defer e.Shutdown()

		So(e.TimeUpdate("tab", update("1", 42)), ShouldBeNil)

		select {
		case at := <-ticker.first:
			So(at, ShouldEqual, 42)
		case <-time.After(2 * time.Second):
			t.Fatal("no tick")
		}
	})
}
