// Package position replays an event log against a primary stream time to find where the music should be.
//
// The log only records state changes, so between two events track time accrues
// linearly at the primary stream's playback rate while the song is not paused.
package position

import (
	"github.com/samber/mo"
	"github.com/vodsync/vodsync/eventlog"
)

// Context describes the song that should be audible at a primary stream time.
type Context struct {
	// Anchor is the PLAY event that opened the song context.
	Anchor eventlog.Event
	// Intent is the latest PLAY, PAUSE or RESUME of the context; it decides play versus pause.
	Intent eventlog.Event
	// Position is the estimated track position in seconds. It may be negative; callers clamp when seeking.
	Position float64
}

// Track returns the anchor's track, which may be nil for a PLAY logged without metadata.
func (c Context) Track() *eventlog.Track {
	return c.Anchor.Track
}

// Paused reports whether the log says the music is paused.
func (c Context) Paused() bool {
	return c.Intent.Kind == eventlog.Pause
}

// Locate returns the song context at primary time at, or none if no song should be playing.
func Locate(l *eventlog.Log, at, rate float64) mo.Option[Context] {
	idx, ok := l.Anchor(at).Get()
	if !ok {
		return mo.None[Context]()
	}

	anchor := l.At(idx)
	return mo.Some(Context{
		Anchor:   anchor,
		Intent:   l.LastOf(at, idx, eventlog.Play, eventlog.Pause, eventlog.Resume).OrElse(anchor),
		Position: replay(l, idx, at, rate),
	})
}

// Estimate returns the track position in seconds at primary time at, or none when no song context exists.
func Estimate(l *eventlog.Log, at, rate float64) mo.Option[float64] {
	ctx, ok := Locate(l, at, rate).Get()
	if !ok {
		return mo.None[float64]()
	}
	return mo.Some(ctx.Position)
}

func replay(l *eventlog.Log, anchorIdx int, at, rate float64) float64 {
	anchor := l.At(anchorIdx)
	pos := anchor.Position()
	cursor := float64(anchor.Seconds)
	playing := true

	for i := anchorIdx + 1; i < l.Len(); i++ {
		e := l.At(i)
		t := float64(e.Seconds)
		if t > at {
			break
		}
		// Events sharing the anchor's second were already in effect when it was logged.
		if e.Seconds <= anchor.Seconds {
			continue
		}

		if playing {
			pos += (t - cursor) * rate
		}

		switch e.Kind {
		case eventlog.Pause:
			playing = false
		case eventlog.Resume:
			playing = true
		case eventlog.Seek:
			pos = e.Position()
		}
		cursor = t
	}

	if playing {
		pos += (at - cursor) * rate
	}
	return pos
}
