// Package resolver maps a logged track to a playable video identifier.
//
// Matches are cached by normalized (title, artist) and never invalidated. A failed
// search is not cached, so the next reconciliation tick simply asks again.
package resolver

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/samber/mo"
	"github.com/vodsync/vodsync/eventlog"
	"github.com/vodsync/vodsync/internal/metrics"
	"github.com/vodsync/vodsync/log"
	"golang.org/x/sync/singleflight"
)

// Searcher performs one external lookup. An empty id with a nil error means no match.
type Searcher interface {
	Search(ctx context.Context, track eventlog.Track) (string, error)
}

// Store persists matches. Implementations must tolerate concurrent use.
type Store interface {
	Get(key string) mo.Option[string]
	Set(key, id string) error
}

// Resolver resolves tracks through a memo, a persistent store and a searcher.
type Resolver struct {
	searcher Searcher
	store    Store
	timeout  time.Duration

	memo   sync.Map // key -> id
	flight singleflight.Group
	writes sync.WaitGroup
}

// New returns a resolver. timeout bounds each external search; zero means no extra bound.
func New(searcher Searcher, store Store, timeout time.Duration) *Resolver {
	return &Resolver{searcher: searcher, store: store, timeout: timeout}
}

// CacheKey normalizes a track into its cache key.
func CacheKey(track eventlog.Track) string {
	norm := func(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
	return norm(track.Title) + "\x1f" + norm(track.Artist)
}

// Resolve returns the playable id for track, or none if it cannot be resolved right now.
func (r *Resolver) Resolve(ctx context.Context, track eventlog.Track) mo.Option[string] {
	k := CacheKey(track)

	if id, ok := r.cached(k).Get(); ok {
		return mo.Some(id)
	}

	v, err, _ := r.flight.Do(k, func() (any, error) {
		if id, ok := r.memo.Load(k); ok {
			return id, nil
		}

		sctx := ctx
		if r.timeout > 0 {
			var cancel context.CancelFunc
			sctx, cancel = context.WithTimeout(ctx, r.timeout)
			defer cancel()
		}

		id, err := r.searcher.Search(sctx, track)
		if err != nil || id == "" {
			return "", err
		}

		r.memo.Store(k, id)
		r.persist(k, id)
		return id, nil
	})

	id, _ := v.(string)
	switch {
	case err != nil:
		metrics.ResolverLookupsTotal.WithLabelValues("fail").Inc()
		log.Warnf("resolver: search for %q failed: %v", track.String(), err)
		return mo.None[string]()
	case id == "":
		metrics.ResolverLookupsTotal.WithLabelValues("fail").Inc()
		log.Infof("resolver: no match for %q", track.String())
		return mo.None[string]()
	}

	metrics.ResolverLookupsTotal.WithLabelValues("miss").Inc()
	return mo.Some(id)
}

// cached answers from the memo or the store without searching.
func (r *Resolver) cached(k string) mo.Option[string] {
	if id, ok := r.memo.Load(k); ok {
		metrics.ResolverLookupsTotal.WithLabelValues("hit").Inc()
		return mo.Some(id.(string))
	}

	if id, ok := r.store.Get(k).Get(); ok && id != "" {
		r.memo.Store(k, id)
		metrics.ResolverLookupsTotal.WithLabelValues("hit").Inc()
		return mo.Some(id)
	}
	return mo.None[string]()
}

// persist writes to the store without blocking the caller.
func (r *Resolver) persist(k, id string) {
	r.writes.Add(1)
	go func() {
		defer r.writes.Done()
		if err := r.store.Set(k, id); err != nil {
			log.Warnf("resolver: persist match: %v", err)
		}
	}()
}

// Flush waits for pending store writes.
func (r *Resolver) Flush() {
	r.writes.Wait()
}
