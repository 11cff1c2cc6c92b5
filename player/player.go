// Package player drives secondary music players.
//
// A Transport is one live player surface. Delivery is fire-and-forget: Send never
// waits for the player, and a transport that goes away closes its Done channel.
package player

import (
	"errors"
	"fmt"
)

var (
	// ErrClosed is returned by Send after the surface has gone away.
	ErrClosed = errors.New("transport closed")
	// ErrBusy is returned by Send when the outbox is full.
	ErrBusy = errors.New("transport busy")
)

// Action is the kind of a player command.
type Action string

const (
	Play  Action = "play"
	Pause Action = "pause"
	Seek  Action = "seek"
	Stop  Action = "stop"
)

// Command is one instruction to a player. A Play without TrackID resumes the current track.
type Command struct {
	Action  Action  `json:"action"`
	TrackID string  `json:"videoId,omitempty"`
	SeekTo  float64 `json:"seekTo,omitempty"`
	Volume  int     `json:"volume,omitempty"`
}

func (c Command) String() string {
	switch c.Action {
	case Play:
		if c.TrackID == "" {
			return "play"
		}
		return fmt.Sprintf("play(%s @ %.1fs)", c.TrackID, c.SeekTo)
	case Seek:
		return fmt.Sprintf("seek(%.1fs)", c.SeekTo)
	default:
		return string(c.Action)
	}
}

// Transport is a live player surface.
type Transport interface {
	// Send queues cmd without blocking.
	Send(cmd Command) error
	// Done is closed once the surface is gone.
	Done() <-chan struct{}
	// Close releases the surface. It is safe to call more than once.
	Close() error
	// Kind names the transport ("embedded", "mpv").
	Kind() string
}
