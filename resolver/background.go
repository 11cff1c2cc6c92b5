package resolver

import (
	"context"
	"sync"

	"github.com/samber/mo"
	"github.com/vodsync/vodsync/eventlog"
)

// Background answers from the cache only and searches misses on its own
// goroutines. A miss reads as unresolved until its search lands, so callers
// on a tick loop are never held up by the search service.
type Background struct {
	r       *Resolver
	ctx     context.Context
	pending sync.Map // key -> struct{}
	wg      sync.WaitGroup
}

// NewBackground wraps r. Searches run under ctx.
func NewBackground(ctx context.Context, r *Resolver) *Background {
	return &Background{r: r, ctx: ctx}
}

// Resolve returns the cached id of track, starting a search when there is none.
func (b *Background) Resolve(_ context.Context, track eventlog.Track) mo.Option[string] {
	k := CacheKey(track)
	if id, ok := b.r.cached(k).Get(); ok {
		return mo.Some(id)
	}

	if _, running := b.pending.LoadOrStore(k, struct{}{}); running {
		return mo.None[string]()
	}

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer b.pending.Delete(k)
		b.r.Resolve(b.ctx, track)
	}()
	return mo.None[string]()
}

// Wait blocks until running searches and store writes are done.
func (b *Background) Wait() {
	b.wg.Wait()
	b.r.Flush()
}
