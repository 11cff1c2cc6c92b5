package resolver

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/vodsync/vodsync/eventlog"
	"github.com/vodsync/vodsync/filesystem"
)

func init() {
	filesystem.SetMemMapFs()
}

type countingSearcher struct {
	calls atomic.Int32
	id    string
	err   error
	delay time.Duration
}

func (s *countingSearcher) Search(ctx context.Context, _ eventlog.Track) (string, error) {
	s.calls.Add(1)
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return s.id, s.err
}

var song = eventlog.Track{Title: "Midnight City", Artist: "M83", DurationMs: 243000}

func TestResolve(t *testing.T) {
	Convey("Given a resolver with a working searcher", t, func() {
		searcher := &countingSearcher{id: "dX3k_QDnzHE"}
		r := New(searcher, NewMemoryStore(), time.Second)

		Convey("Two sequential resolutions search once", func() {
			first := r.Resolve(context.Background(), song)
			second := r.Resolve(context.Background(), song)

			So(first.MustGet(), ShouldEqual, "dX3k_QDnzHE")
			So(second.MustGet(), ShouldEqual, "dX3k_QDnzHE")
			So(searcher.calls.Load(), ShouldEqual, 1)
		})

		Convey("Keys ignore case and surrounding space", func() {
			r.Resolve(context.Background(), song)
			r.Resolve(context.Background(), eventlog.Track{Title: " midnight city ", Artist: "m83"})
			So(searcher.calls.Load(), ShouldEqual, 1)
		})

		Convey("Matches reach the store", func() {
			store := NewMemoryStore()
			r := New(searcher, store, time.Second)
			r.Resolve(context.Background(), song)
			r.Flush()
			So(store.Get(CacheKey(song)).MustGet(), ShouldEqual, "dX3k_QDnzHE")
		})
	})

	Convey("Given a store that already knows the track", t, func() {
		store := NewMemoryStore()
		So(store.Set(CacheKey(song), "cached"), ShouldBeNil)
		searcher := &countingSearcher{id: "fresh"}
		r := New(searcher, store, time.Second)

		Convey("No search happens", func() {
			So(r.Resolve(context.Background(), song).MustGet(), ShouldEqual, "cached")
			So(searcher.calls.Load(), ShouldEqual, 0)
		})
	})

	Convey("Given a failing searcher", t, func() {
		searcher := &countingSearcher{err: errors.New("boom")}
		r := New(searcher, NewMemoryStore(), time.Second)

		Convey("Failures are not cached", func() {
			So(r.Resolve(context.Background(), song).IsAbsent(), ShouldBeTrue)
			So(r.Resolve(context.Background(), song).IsAbsent(), ShouldBeTrue)
			So(searcher.calls.Load(), ShouldEqual, 2)
		})

		Convey("A later success is remembered", func() {
			r.Resolve(context.Background(), song)
			searcher.err = nil
			searcher.id = "late"
			So(r.Resolve(context.Background(), song).MustGet(), ShouldEqual, "late")
			So(r.Resolve(context.Background(), song).MustGet(), ShouldEqual, "late")
			So(searcher.calls.Load(), ShouldEqual, 2)
		})
	})

	Convey("Given a searcher without a match", t, func() {
		searcher := &countingSearcher{}
		r := New(searcher, NewMemoryStore(), time.Second)
		So(r.Resolve(context.Background(), song).IsAbsent(), ShouldBeTrue)
		So(r.Resolve(context.Background(), song).IsAbsent(), ShouldBeTrue)
		So(searcher.calls.Load(), ShouldEqual, 2)
	})

	Convey("Given a slow searcher", t, func() {
		Convey("Concurrent resolutions share one search", func() {
			searcher := &countingSearcher{id: "shared", delay: 50 * time.Millisecond}
			r := New(searcher, NewMemoryStore(), time.Second)

			var wg sync.WaitGroup
			results := make([]string, 8)
			for i := range results {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					results[i] = r.Resolve(context.Background(), song).OrEmpty()
				}(i)
			}
			wg.Wait()

			for _, got := range results {
				So(got, ShouldEqual, "shared")
			}
			So(searcher.calls.Load(), ShouldEqual, 1)
		})

		Convey("The timeout bounds the search", func() {
			searcher := &countingSearcher{id: "never", delay: time.Second}
			r := New(searcher, NewMemoryStore(), 20*time.Millisecond)

			start := time.Now()
			So(r.Resolve(context.Background(), song).IsAbsent(), ShouldBeTrue)
			So(time.Since(start), ShouldBeLessThan, 500*time.Millisecond)
		})
	})
}

func TestBackground(t *testing.T) {
	Convey("Given a background resolver over a slow searcher", t, func() {
		searcher := &countingSearcher{id: "late", delay: 200 * time.Millisecond}
		b := NewBackground(context.Background(), New(searcher, NewMemoryStore(), time.Second))
		defer b.Wait()

		Convey("A miss returns at once and is unresolved", func() {
			start := time.Now()
			So(b.Resolve(context.Background(), song).IsAbsent(), ShouldBeTrue)
			So(time.Since(start), ShouldBeLessThan, 100*time.Millisecond)
		})

		Convey("Repeated misses share one search and the match lands later", func() {
			for i := 0; i < 5; i++ {
				b.Resolve(context.Background(), song)
			}

			deadline := time.Now().Add(2 * time.Second)
			got := b.Resolve(context.Background(), song)
			for got.IsAbsent() && time.Now().Before(deadline) {
				time.Sleep(5 * time.Millisecond)
				got = b.Resolve(context.Background(), song)
			}
			So(got.OrEmpty(), ShouldEqual, "late")
			So(searcher.calls.Load(), ShouldEqual, 1)
		})
	})

	Convey("A failed search is retried by a later miss", t, func() {
		searcher := &countingSearcher{err: errors.New("down")}
		b := NewBackground(context.Background(), New(searcher, NewMemoryStore(), time.Second))

		b.Resolve(context.Background(), song)
		b.Wait()
		b.Resolve(context.Background(), song)
		b.Wait()
		So(searcher.calls.Load(), ShouldEqual, 2)
	})
}

func TestFileStore(t *testing.T) {
	Convey("Given a file store", t, func() {
		path := filepath.Join(t.TempDir(), "matches.json")
		store := NewFileStore(path)

		Convey("Unknown keys are absent", func() {
			So(store.Get("nope").IsAbsent(), ShouldBeTrue)
		})

		Convey("Stored matches survive a reopen", func() {
			So(store.Set("a", "1"), ShouldBeNil)
			So(store.Set("b", "2"), ShouldBeNil)

			reopened := NewFileStore(path)
			So(reopened.Get("a").MustGet(), ShouldEqual, "1")
			So(reopened.Get("b").MustGet(), ShouldEqual, "2")
			So(reopened.Len(), ShouldEqual, 2)
		})
	})
}

func TestHTTPSearcher(t *testing.T) {
	Convey("Given a search endpoint", t, func() {
		var gotQuery, gotDuration string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/youtube-search" {
				http.NotFound(w, r)
				return
			}
			gotQuery = r.URL.Query().Get("q")
			gotDuration = r.URL.Query().Get("duration")
			if gotQuery == "Unknown" {
				http.NotFound(w, r)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"bestMatchVideoId":"dX3k_QDnzHE"}`))
		}))
		defer srv.Close()

		s := NewHTTPSearcher(srv.URL+"/", 100, srv.Client())

		Convey("It sends title, artist and duration", func() {
			id, err := s.Search(context.Background(), song)
			So(err, ShouldBeNil)
			So(id, ShouldEqual, "dX3k_QDnzHE")
			So(gotQuery, ShouldEqual, "Midnight City M83")
			So(gotDuration, ShouldEqual, "243000")
		})

		Convey("A 404 is no match rather than an error", func() {
			id, err := s.Search(context.Background(), eventlog.Track{Title: "Unknown"})
			So(err, ShouldBeNil)
			So(id, ShouldBeEmpty)
		})
	})

	Convey("Given an endpoint that keeps failing", t, func() {
		var hits atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		s := NewHTTPSearcher(srv.URL, 100, srv.Client())

		Convey("The breaker opens after repeated failures", func() {
			for range 8 {
				_, err := s.Search(context.Background(), song)
				So(err, ShouldNotBeNil)
			}
			So(hits.Load(), ShouldEqual, 5)
		})
	})
}
