package engine

import (
	"sort"
	"sync"
	"time"

	"github.com/metafates/gache"
	"github.com/samber/lo"
	"github.com/vodsync/vodsync/eventlog"
	"github.com/vodsync/vodsync/filesystem"
)

// Playing is the persisted "currently playing" record of a session.
type Playing struct {
	Session   string         `json:"session"`
	VOD       string         `json:"vod"`
	VODName   string         `json:"vodName,omitempty"`
	Track     eventlog.Track `json:"track"`
	TrackID   string         `json:"trackId"`
	Transport string         `json:"transport,omitempty"`
	Since     time.Time      `json:"since"`
}

// NowPlaying persists one Playing record per session in a JSON file.
type NowPlaying struct {
	internal *gache.Cache[map[string]Playing]
	mu       sync.Mutex
}

// NewNowPlaying returns a snapshot store backed by the file at path.
func NewNowPlaying(path string) *NowPlaying {
	return &NowPlaying{
		internal: gache.New[map[string]Playing](&gache.Options{
			Path:       path,
			FileSystem: &filesystem.GacheFs{},
		}),
	}
}

func (n *NowPlaying) load() (map[string]Playing, error) {
	data, expired, err := n.internal.Get()
	if err != nil {
		return nil, err
	}
	if expired || data == nil {
		return make(map[string]Playing), nil
	}
	return data, nil
}

// Set records p for its session.
func (n *NowPlaying) Set(p Playing) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	data, err := n.load()
	if err != nil {
		return err
	}
	data[p.Session] = p
	return n.internal.Set(data)
}

// Remove forgets the record of session id.
func (n *NowPlaying) Remove(id string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	data, err := n.load()
	if err != nil {
		return err
	}
	if _, ok := data[id]; !ok {
		return nil
	}
	delete(data, id)
	return n.internal.Set(data)
}

// All returns every record ordered by session.
func (n *NowPlaying) All() ([]Playing, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	data, err := n.load()
	if err != nil {
		return nil, err
	}

	all := lo.Values(data)
	sort.Slice(all, func(i, j int) bool { return all[i].Session < all[j].Session })
	return all, nil
}

// Clear removes every record.
func (n *NowPlaying) Clear() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.internal.Set(make(map[string]Playing))
}
