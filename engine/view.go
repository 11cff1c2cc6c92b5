package engine

import (
	"sort"
	"sync"
	"time"

	"github.com/samber/lo"
	"github.com/vodsync/vodsync/eventlog"
	"github.com/vodsync/vodsync/reconcile"
	"github.com/vodsync/vodsync/session"
)

// Status is the advisory signal shown for a tab.
type Status string

const (
	StatusSynced Status = "synced"
	StatusIdle   Status = "idle"
	StatusNoLog  Status = "no_log"
	StatusError  Status = "error"
)

// View is a read-only copy of a tab's state, safe to hand to other goroutines.
type View struct {
	Session   string          `json:"session"`
	VOD       session.VOD     `json:"vod"`
	VODName   string          `json:"vodName,omitempty"`
	Status    Status          `json:"status"`
	Detail    string          `json:"detail,omitempty"`
	State     session.State   `json:"state,omitempty"`
	Track     *eventlog.Track `json:"track,omitempty"`
	TrackID   string          `json:"trackId,omitempty"`
	Position  float64         `json:"position"`
	Transport string          `json:"transport,omitempty"`
	Updated   time.Time       `json:"updated"`
}

type views struct {
	mu    sync.RWMutex
	byTab map[string]View
}

func newViews() *views {
	return &views{byTab: make(map[string]View)}
}

func (v *views) open(s *session.Session) {
	v.set(View{
		Session: s.ID,
		VOD:     s.VOD,
		VODName: s.VODName,
		Status:  StatusIdle,
		State:   session.Stopped,
		Updated: time.Now(),
	})
}

func (v *views) fail(id string, vod session.VOD, status Status, err error) {
	v.set(View{
		Session: id,
		VOD:     vod,
		Status:  status,
		Detail:  err.Error(),
		Updated: time.Now(),
	})
}

func (v *views) publish(s *session.Session, outcome reconcile.Outcome) {
	view := View{
		Session:  s.ID,
		VOD:      s.VOD,
		VODName:  s.VODName,
		Status:   StatusIdle,
		State:    s.State,
		TrackID:  s.ActiveTrack,
		Position: s.LastSynced,
		Updated:  time.Now(),
	}

	switch outcome {
	case reconcile.Synced:
		view.Status = StatusSynced
	case reconcile.Unresolved:
		view.Detail = "no playable match for the current song"
	}

	if s.ActiveTrack != "" {
		song := s.ActiveSong
		view.Track = &song
	}
	if s.Transport != nil {
		view.Transport = s.Transport.Kind()
	}

	v.set(view)
}

func (v *views) set(view View) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.byTab[view.Session] = view
}

func (v *views) remove(id string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.byTab, id)
}

func (v *views) get(id string) (View, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	view, ok := v.byTab[id]
	return view, ok
}

func (v *views) all() []View {
	v.mu.RLock()
	all := lo.Values(v.byTab)
	v.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool { return all[i].Session < all[j].Session })
	return all
}
