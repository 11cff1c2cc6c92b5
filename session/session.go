// Package session holds the per-tab synchronization state.
//
// The primary input is a latest-value cell written by the ingest path. Everything
// else (believed player state, active track, last synced position, transport) is
// derived state and is only touched by the goroutine running the session.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vodsync/vodsync/eventlog"
	"github.com/vodsync/vodsync/player"
)

// State is the believed state of the secondary player.
type State string

const (
	Stopped State = "STOPPED"
	Playing State = "PLAYING"
	Paused  State = "PAUSED"
)

// VOD identifies a recorded primary stream.
type VOD struct {
	Platform string `json:"platform"`
	ID       string `json:"vodId"`
}

// Key renders the directory key "platform:id".
func (v VOD) Key() string {
	return v.Platform + ":" + v.ID
}

func (v VOD) String() string {
	return v.Key()
}

// Primary is the latest known state of the primary stream.
type Primary struct {
	Time   float64   `json:"currentTime"`
	Paused bool      `json:"isPaused"`
	Rate   float64   `json:"playbackRate"`
	At     time.Time `json:"-"`
}

// Session is one primary-stream tab being synchronized.
type Session struct {
	ID      string
	VOD     VOD
	VODName string
	LogURL  string
	Log     *eventlog.Log

	mu      sync.Mutex
	primary Primary

	// Derived state, owned by the session goroutine.
	State       State
	ActiveTrack string
	ActiveSong  eventlog.Track
	LastSynced  float64
	Transport   player.Transport

	cancel context.CancelFunc
	done   chan struct{}
}

// New returns a stopped session over l.
func New(id string, vod VOD, l *eventlog.Log) *Session {
	return &Session{
		ID:      id,
		VOD:     vod,
		Log:     l,
		State:   Stopped,
		primary: Primary{Rate: 1},
	}
}

// Update records the latest primary stream state. A non-positive rate means 1.
func (s *Session) Update(p Primary) {
	if p.Rate <= 0 {
		p.Rate = 1
	}
	if p.At.IsZero() {
		p.At = time.Now()
	}

	s.mu.Lock()
	s.primary = p
	s.mu.Unlock()
}

// Primary returns the latest primary stream state.
func (s *Session) Primary() Primary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.primary
}

// Reset forgets the believed player state so the next tick starts over.
func (s *Session) Reset() {
	s.State = Stopped
	s.ActiveTrack = ""
	s.ActiveSong = eventlog.Track{}
	s.LastSynced = 0
}

// Run starts fn on its own goroutine with a context cancelled by Stop.
// It must be called at most once.
func (s *Session) Run(ctx context.Context, fn func(ctx context.Context)) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)
		fn(ctx)
	}()
}

// Stop cancels the session goroutine and waits for it, then silences and
// closes the transport.
func (s *Session) Stop() {
	if s.cancel != nil {
		s.cancel()
		<-s.done
	}
	if s.Transport != nil {
		if s.State != Stopped {
			_ = s.Transport.Send(player.Command{Action: player.Stop})
		}
		_ = s.Transport.Close()
		s.Transport = nil
	}
	s.Reset()
}

func (s *Session) String() string {
	return fmt.Sprintf("session %s (%s)", s.ID, s.VOD)
}
