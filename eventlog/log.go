package eventlog

import (
	"fmt"
	"math"
	"sort"

	"github.com/samber/lo"
	"github.com/samber/mo"
)

// Log is an ordered, immutable sequence of events for one VOD.
type Log struct {
	events []Event
}

// New builds a log from events, parsing their timestamps.
// Events are sorted stably by timestamp, so an out-of-order source keeps the
// relative order of events sharing a second.
func New(events []Event) (*Log, error) {
	out := make([]Event, len(events))
	for i, e := range events {
		secs, err := ParseTimestamp(e.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("event %d: %w", i, err)
		}
		e.Seconds = secs
		if e.Track != nil {
			t := *e.Track
			e.Track = &t
		}
		out[i] = e
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Seconds < out[j].Seconds
	})

	return &Log{events: out}, nil
}

// MustNew is New for fixtures known to be valid.
func MustNew(events ...Event) *Log {
	return lo.Must(New(events))
}

// Len returns the number of events.
func (l *Log) Len() int {
	return len(l.events)
}

// Events returns a copy of the events in ascending order.
func (l *Log) Events() []Event {
	return append([]Event(nil), l.events...)
}

// At returns the event at index i.
func (l *Log) At(i int) Event {
	return l.events[i]
}

// upperBound returns the index of the first event strictly after the whole second of t.
func (l *Log) upperBound(t float64) int {
	sec := int(math.Floor(t))
	return sort.Search(len(l.events), func(i int) bool {
		return l.events[i].Seconds > sec
	})
}

// Anchor returns the index of the PLAY event that opens the song context at primary time t.
// It is absent before the first PLAY and after a START that no PLAY follows.
func (l *Log) Anchor(t float64) mo.Option[int] {
	for i := l.upperBound(t) - 1; i >= 0; i-- {
		switch l.events[i].Kind {
		case Play:
			return mo.Some(i)
		case Start:
			return mo.None[int]()
		}
	}
	return mo.None[int]()
}

// LastOf returns the most recent event of one of kinds at or before t, searching no further back than index from.
func (l *Log) LastOf(t float64, from int, kinds ...Kind) mo.Option[Event] {
	for i := l.upperBound(t) - 1; i >= from && i >= 0; i-- {
		if lo.Contains(kinds, l.events[i].Kind) {
			return mo.Some(l.events[i])
		}
	}
	return mo.None[Event]()
}

// Tracks returns the song history: one entry per distinct title in order of first appearance,
// holding the metadata of that title's last PLAY.
func (l *Log) Tracks() []Track {
	var order []string
	latest := make(map[string]Track)

	for _, e := range l.events {
		if e.Kind != Play || e.Track == nil {
			continue
		}
		if _, seen := latest[e.Track.Title]; !seen {
			order = append(order, e.Track.Title)
		}
		latest[e.Track.Title] = *e.Track
	}

	return lo.Map(order, func(title string, _ int) Track {
		return latest[title]
	})
}
