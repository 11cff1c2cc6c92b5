package resolver

import (
	"sync"

	"github.com/metafates/gache"
	"github.com/samber/mo"
	"github.com/vodsync/vodsync/filesystem"
)

// matchData is the on-disk format of the match cache.
type matchData struct {
	Matches map[string]string `json:"matches"`
}

// FileStore persists matches in a single JSON file via gache.
type FileStore struct {
	internal *gache.Cache[*matchData]
	mu       sync.Mutex
}

// NewFileStore returns a store backed by the file at path. Entries never expire.
func NewFileStore(path string) *FileStore {
	return &FileStore{
		internal: gache.New[*matchData](&gache.Options{
			Path:       path,
			FileSystem: &filesystem.GacheFs{},
		}),
	}
}

// Get returns the stored match for key.
func (s *FileStore) Get(key string) mo.Option[string] {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, expired, err := s.internal.Get()
	if err != nil || expired || data == nil {
		return mo.None[string]()
	}

	if id, ok := data.Matches[key]; ok {
		return mo.Some(id)
	}
	return mo.None[string]()
}

// Set stores a match. Writes for different keys never clobber each other.
func (s *FileStore) Set(key, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, expired, err := s.internal.Get()
	if err != nil {
		return err
	}
	if expired || data == nil || data.Matches == nil {
		data = &matchData{Matches: make(map[string]string)}
	}

	data.Matches[key] = id
	return s.internal.Set(data)
}

// Len returns the number of stored matches.
func (s *FileStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, _, err := s.internal.Get()
	if err != nil || data == nil {
		return 0
	}
	return len(data.Matches)
}

// MemoryStore keeps matches in memory, for tests and ephemeral runs.
type MemoryStore struct {
	mu      sync.RWMutex
	matches map[string]string
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{matches: make(map[string]string)}
}

func (s *MemoryStore) Get(key string) mo.Option[string] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id, ok := s.matches[key]; ok {
		return mo.Some(id)
	}
	return mo.None[string]()
}

func (s *MemoryStore) Set(key, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.matches[key] = id
	return nil
}
