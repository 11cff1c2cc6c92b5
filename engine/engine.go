// Package engine manages the lifecycle of sync sessions.
//
// Each session runs on its own goroutine: a ticker drives reconciliation and is
// the only writer of the session's derived state. Time updates only replace the
// session's latest primary state.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/vodsync/vodsync/directory"
	"github.com/vodsync/vodsync/eventlog"
	"github.com/vodsync/vodsync/internal/metrics"
	"github.com/vodsync/vodsync/log"
	"github.com/vodsync/vodsync/reconcile"
	"github.com/vodsync/vodsync/session"
	"golang.org/x/sync/singleflight"
)

var (
	// ErrNoLog is returned when the directory knows no log for a VOD.
	ErrNoLog = errors.New("no event log for this vod")
	// ErrFetch is returned when a known log could not be loaded.
	ErrFetch = errors.New("event log unavailable")
	// ErrClosed is returned after Shutdown.
	ErrClosed = errors.New("engine closed")
)

// Directory locates and loads event logs.
type Directory interface {
	Lookup(ctx context.Context, platform, vodID string) (directory.Entry, error)
	Fetch(ctx context.Context, logURL string) (*eventlog.Log, error)
}

// Reconciler runs one tick for a session.
type Reconciler interface {
	Tick(ctx context.Context, s *session.Session) reconcile.Outcome
}

// Update is one time_update from a primary stream tab.
type Update struct {
	Platform string `json:"platform"`
	VODID    string `json:"vodId"`
	session.Primary
}

// Options tune an Engine.
type Options struct {
	// TickInterval is the reconciliation cadence.
	TickInterval time.Duration
	// LoadTimeout bounds the directory lookup plus log fetch.
	LoadTimeout time.Duration
	// Logs caches fetched logs. Nil keeps no cache.
	Logs *eventlog.Store
	// NowPlaying persists snapshots. Nil disables persistence.
	NowPlaying *NowPlaying
}

// Engine owns every live session.
type Engine struct {
	dir  Directory
	rec  Reconciler
	opts Options

	registry *session.Registry
	flight   singleflight.Group
	views    *views

	ctx    context.Context
	cancel context.CancelFunc
	mu     sync.Mutex // orders session start against Shutdown
	closed bool
}

// New returns a running engine.
func New(dir Directory, rec Reconciler, opts Options) *Engine {
	if opts.TickInterval <= 0 {
		opts.TickInterval = 750 * time.Millisecond
	}
	if opts.LoadTimeout <= 0 {
		opts.LoadTimeout = 10 * time.Second
	}
	if opts.Logs == nil {
		opts.Logs = eventlog.NewStore(nil)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		dir:      dir,
		rec:      rec,
		opts:     opts,
		registry: session.NewRegistry(),
		views:    newViews(),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// TimeUpdate records the latest primary state of tab id, creating or replacing
// its session when the VOD is new. Lookup and fetch failures abort creation and
// are retried by the next update.
func (e *Engine) TimeUpdate(id string, u Update) error {
	if e.isClosed() {
		return ErrClosed
	}

	vod := session.VOD{Platform: u.Platform, ID: u.VODID}
	if s, ok := e.registry.Lookup(id); ok && s.VOD == vod {
		s.Update(u.Primary)
		return nil
	}

	v, err, shared := e.flight.Do(id+"\x00"+vod.Key(), func() (any, error) {
		return e.open(id, vod, u.Primary)
	})
	if err != nil {
		return err
	}

	if shared {
		v.(*session.Session).Update(u.Primary)
	}
	return nil
}

// open loads the log of vod and starts its session for tab id, seeded with p.
// A session of the tab on another VOD is torn down first, so its music stops
// even when the new VOD cannot be loaded.
func (e *Engine) open(id string, vod session.VOD, p session.Primary) (*session.Session, error) {
	logger := log.Session(id).WithField("vod", vod.Key())

	if s, ok := e.registry.Lookup(id); ok {
		if s.VOD == vod {
			s.Update(p)
			return s, nil
		}
		if e.registry.DestroyIf(s) {
			logger.Infof("vod changed from %s", s.VOD)
			e.stop(s)
			metrics.ActiveSessions.Set(float64(e.registry.Len()))
		}
	}

	ctx, cancel := context.WithTimeout(e.ctx, e.opts.LoadTimeout)
	defer cancel()

	entry, err := e.dir.Lookup(ctx, vod.Platform, vod.ID)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			metrics.SessionFailuresTotal.WithLabelValues("lookup").Inc()
			e.views.fail(id, vod, StatusNoLog, ErrNoLog)
			logger.Info("no event log known")
			return nil, ErrNoLog
		}
		metrics.SessionFailuresTotal.WithLabelValues("lookup").Inc()
		e.views.fail(id, vod, StatusError, err)
		logger.Warnf("lookup: %v", err)
		return nil, fmt.Errorf("%w: lookup: %v", ErrFetch, err)
	}

	l, ok := e.opts.Logs.Get(entry.LogURL).Get()
	if !ok {
		l, err = e.dir.Fetch(ctx, entry.LogURL)
		if err != nil {
			metrics.SessionFailuresTotal.WithLabelValues("fetch").Inc()
			e.views.fail(id, vod, StatusError, err)
			logger.Warnf("fetch %s: %v", entry.LogURL, err)
			return nil, fmt.Errorf("%w: %v", ErrFetch, err)
		}
		e.opts.Logs.Put(entry.LogURL, l)
	}

	s := session.New(id, vod, l)
	s.LogURL = entry.LogURL
	s.VODName = entry.VODName
	s.Update(p)

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil, ErrClosed
	}
	replaced := e.registry.Create(s)
	e.mu.Unlock()

	if replaced != nil {
		logger.Infof("replaced session on %s", replaced.VOD)
		e.stop(replaced)
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil, ErrClosed
	}
	e.views.open(s)
	s.Run(e.ctx, func(ctx context.Context) { e.loop(ctx, s) })
	e.mu.Unlock()

	metrics.SessionsCreatedTotal.Inc()
	metrics.ActiveSessions.Set(float64(e.registry.Len()))
	logger.WithField("events", l.Len()).Info("session opened")
	return s, nil
}

func (e *Engine) loop(ctx context.Context, s *session.Session) {
	ticker := time.NewTicker(e.opts.TickInterval)
	defer ticker.Stop()

	for {
		e.tick(ctx, s)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (e *Engine) tick(ctx context.Context, s *session.Session) {
	if ctx.Err() != nil {
		return
	}

	before := s.ActiveTrack
	outcome := e.rec.Tick(ctx, s)
	if ctx.Err() != nil {
		return
	}

	e.views.publish(s, outcome)

	if s.ActiveTrack == before || e.opts.NowPlaying == nil {
		return
	}

	var err error
	if s.ActiveTrack == "" {
		err = e.opts.NowPlaying.Remove(s.ID)
	} else {
		err = e.opts.NowPlaying.Set(playingOf(s))
	}
	if err != nil {
		log.Session(s.ID).Warnf("persist now playing: %v", err)
	}
}

// Close tears down the session of tab id, if any.
func (e *Engine) Close(id string) bool {
	s, ok := e.registry.Destroy(id)
	if !ok {
		e.views.remove(id)
		return false
	}

	e.stop(s)
	e.views.remove(id)
	metrics.ActiveSessions.Set(float64(e.registry.Len()))
	log.Session(id).Info("session closed")
	return true
}

func (e *Engine) stop(s *session.Session) {
	s.Stop()
	if e.opts.NowPlaying != nil {
		if err := e.opts.NowPlaying.Remove(s.ID); err != nil {
			log.Session(s.ID).Warnf("clear now playing: %v", err)
		}
	}
}

// Shutdown stops every session. Later updates return ErrClosed.
func (e *Engine) Shutdown() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	e.mu.Unlock()

	e.cancel()
	for _, s := range e.registry.All() {
		if e.registry.DestroyIf(s) {
			e.stop(s)
			e.views.remove(s.ID)
		}
	}
	metrics.ActiveSessions.Set(0)
}

func (e *Engine) isClosed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

// View returns what is known about tab id.
func (e *Engine) View(id string) (View, bool) {
	return e.views.get(id)
}

// Views returns every known tab.
func (e *Engine) Views() []View {
	return e.views.all()
}

// Tracks returns the song history of the session of tab id.
func (e *Engine) Tracks(id string) ([]eventlog.Track, bool) {
	s, ok := e.registry.Lookup(id)
	if !ok {
		return nil, false
	}
	return s.Log.Tracks(), true
}

// Len returns the number of live sessions.
func (e *Engine) Len() int {
	return e.registry.Len()
}

func playingOf(s *session.Session) Playing {
	p := Playing{
		Session: s.ID,
		VOD:     s.VOD.Key(),
		VODName: s.VODName,
		Track:   s.ActiveSong,
		TrackID: s.ActiveTrack,
		Since:   time.Now(),
	}
	if s.Transport != nil {
		p.Transport = s.Transport.Kind()
	}
	return p
}
