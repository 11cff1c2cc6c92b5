// Package reconcile decides, once per tick, which commands bring a session's
// secondary player to where the event log says it should be.
//
// Rules run in priority order:
//  1. no song context: stop, once
//  2. track unresolved: do nothing, retry next tick
//  3. track changed: play the new track at the estimate
//  4. play/pause intent changed: play or pause
//  5. playing and drifted past the threshold: seek
//
// A tick with unchanged inputs emits nothing.
package reconcile

import (
	"context"
	"math"
	"time"

	"github.com/samber/mo"
	"github.com/vodsync/vodsync/eventlog"
	"github.com/vodsync/vodsync/internal/metrics"
	"github.com/vodsync/vodsync/player"
	"github.com/vodsync/vodsync/position"
	"github.com/vodsync/vodsync/session"
)

// Resolver maps a track to a playable id.
type Resolver interface {
	Resolve(ctx context.Context, track eventlog.Track) mo.Option[string]
}

// Dispatcher delivers commands for a session.
type Dispatcher interface {
	Reap(s *session.Session) bool
	Dispatch(ctx context.Context, s *session.Session, cmd player.Command)
}

// Outcome summarizes what a tick found.
type Outcome string

const (
	// Idle means no song should be playing.
	Idle Outcome = "idle"
	// Unresolved means a song should be playing but has no playable match yet.
	Unresolved Outcome = "unresolved"
	// Synced means the player was commanded into, or already is in, the desired state.
	Synced Outcome = "synced"
)

// Options tune a Reconciler.
type Options struct {
	// Offset is added to every estimate to absorb output latency.
	Offset time.Duration
	// Threshold is the drift tolerated before seeking.
	Threshold time.Duration
	// Volume is sent with every track switch. Zero leaves the player's volume alone.
	Volume int
}

// DefaultOptions returns the stock tuning.
func DefaultOptions() Options {
	return Options{
		Offset:    -2 * time.Second,
		Threshold: 2 * time.Second,
		Volume:    75,
	}
}

// Reconciler runs ticks. It holds no per-session state and may be shared by every session.
type Reconciler struct {
	resolver   Resolver
	dispatcher Dispatcher
	offset     float64
	threshold  float64
	volume     int
}

// New returns a reconciler.
func New(resolver Resolver, dispatcher Dispatcher, opts Options) *Reconciler {
	return &Reconciler{
		resolver:   resolver,
		dispatcher: dispatcher,
		offset:     opts.Offset.Seconds(),
		threshold:  opts.Threshold.Seconds(),
		volume:     opts.Volume,
	}
}

// Tick reconciles s once. It must only be called from the goroutine owning s.
func (r *Reconciler) Tick(ctx context.Context, s *session.Session) Outcome {
	r.dispatcher.Reap(s)

	primary := s.Primary()
	songCtx, ok := position.Locate(s.Log, primary.Time, primary.Rate).Get()
	if !ok {
		if s.State != session.Stopped {
			s.Reset()
			r.emit(ctx, s, player.Command{Action: player.Stop})
		}
		return Idle
	}

	track := songCtx.Track()
	if track == nil {
		return Unresolved
	}

	id, ok := r.resolver.Resolve(ctx, *track).Get()
	if !ok || ctx.Err() != nil {
		return Unresolved
	}

	estimate := songCtx.Position + r.offset

	if id != s.ActiveTrack {
		s.State = session.Playing
		s.ActiveTrack = id
		s.ActiveSong = *track
		s.LastSynced = estimate
		r.emit(ctx, s, player.Command{
			Action:  player.Play,
			TrackID: id,
			SeekTo:  math.Max(0, estimate),
			Volume:  r.volume,
		})
		return Synced
	}

	desired := session.Playing
	if songCtx.Paused() || primary.Paused {
		desired = session.Paused
	}

	if desired != s.State {
		s.State = desired
		if desired == session.Paused {
			r.emit(ctx, s, player.Command{Action: player.Pause})
		} else {
			r.emit(ctx, s, player.Command{Action: player.Play})
		}
	}

	if s.State == session.Playing {
		drift := math.Abs(estimate - s.LastSynced)
		metrics.DriftSeconds.Observe(drift)
		if drift > r.threshold {
			s.LastSynced = estimate
			r.emit(ctx, s, player.Command{Action: player.Seek, SeekTo: math.Max(0, estimate)})
			return Synced
		}
	}

	s.LastSynced = estimate
	return Synced
}

// emit must follow the state updates of a rule: the dispatcher may reset s.
func (r *Reconciler) emit(ctx context.Context, s *session.Session, cmd player.Command) {
	r.dispatcher.Dispatch(ctx, s, cmd)
}
