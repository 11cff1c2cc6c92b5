// Package eventlog models the timestamped record of music playback changes captured during a live broadcast.
//
// Timestamps are elapsed time of the primary stream. A log is immutable once built
// and is always held in ascending timestamp order.
package eventlog

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrMalformed reports log content that cannot be interpreted.
var ErrMalformed = errors.New("malformed event log")

// Kind is the type of a playback change.
type Kind string

const (
	// Play opens a song context for Track at PositionMs.
	Play Kind = "PLAY"
	// Pause stops accrual of track time.
	Pause Kind = "PAUSE"
	// Resume restarts accrual of track time.
	Resume Kind = "RESUME"
	// Seek moves the track position to PositionMs without closing the context.
	Seek Kind = "SEEK"
	// Start closes the song context; no music plays until the next Play.
	Start Kind = "START"
)

// Track identifies a song as reported by the music service during the broadcast.
type Track struct {
	Title      string `json:"title"`
	Artist     string `json:"artist"`
	DurationMs int64  `json:"duration_ms,omitempty"`
}

// String renders "title - artist".
func (t Track) String() string {
	if t.Artist == "" {
		return t.Title
	}
	return t.Title + " - " + t.Artist
}

// Event is a single playback change.
type Event struct {
	Timestamp  string `json:"timestamp" jsonschema:"pattern=^[0-9]+:[0-5][0-9]:[0-5][0-9]$,description=Elapsed primary stream time HH:MM:SS"`
	Kind       Kind   `json:"event" jsonschema:"enum=PLAY,enum=PAUSE,enum=RESUME,enum=SEEK,enum=START"`
	PositionMs int64  `json:"position_ms,omitempty" jsonschema:"description=Track position in milliseconds; present for PLAY and SEEK"`
	Track      *Track `json:"track,omitempty" jsonschema:"description=Track metadata; present for PLAY"`

	// Seconds is Timestamp parsed, filled in by New.
	Seconds int `json:"-"`
}

// Position returns PositionMs in seconds.
func (e Event) Position() float64 {
	return float64(e.PositionMs) / 1000
}

// ParseTimestamp converts "HH:MM:SS" to whole seconds.
func ParseTimestamp(ts string) (int, error) {
	parts := strings.Split(strings.TrimSpace(ts), ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("%w: timestamp %q is not HH:MM:SS", ErrMalformed, ts)
	}

	var total int
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("%w: timestamp %q", ErrMalformed, ts)
		}
		if i > 0 && n > 59 {
			return 0, fmt.Errorf("%w: timestamp %q has a field over 59", ErrMalformed, ts)
		}
		total = total*60 + n
	}
	return total, nil
}

// FormatTimestamp renders seconds as "HH:MM:SS", flooring fractions. Negative input renders as zero.
func FormatTimestamp(seconds float64) string {
	s := int(math.Floor(seconds))
	if s < 0 {
		s = 0
	}
	return fmt.Sprintf("%02d:%02d:%02d", s/3600, (s%3600)/60, s%60)
}
