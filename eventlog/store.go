package eventlog

import (
	"sync"

	"github.com/samber/mo"
	"github.com/vodsync/vodsync/internal/cache"
	"github.com/vodsync/vodsync/log"
)

// Store caches parsed logs by their source URL, in memory and on disk.
// Logs are immutable, so a cached copy is always reusable.
type Store struct {
	mu     sync.RWMutex
	memory map[string]*Log
	disk   *cache.Dir
}

// NewStore returns a store persisting to disk. A nil disk keeps entries in memory only.
func NewStore(disk *cache.Dir) *Store {
	return &Store{memory: make(map[string]*Log), disk: disk}
}

// Get returns the log fetched from url, if cached.
func (s *Store) Get(url string) mo.Option[*Log] {
	s.mu.RLock()
	l, ok := s.memory[url]
	s.mu.RUnlock()
	if ok {
		return mo.Some(l)
	}

	if s.disk == nil {
		return mo.None[*Log]()
	}

	data, ok := s.disk.Read(url).Get()
	if !ok {
		return mo.None[*Log]()
	}

	l, err := Parse(data)
	if err != nil {
		log.Warnf("eventlog: dropping unreadable cached log for %s: %v", url, err)
		return mo.None[*Log]()
	}

	s.mu.Lock()
	s.memory[url] = l
	s.mu.Unlock()
	return mo.Some(l)
}

// Put records l as the content of url.
func (s *Store) Put(url string, l *Log) {
	s.mu.Lock()
	s.memory[url] = l
	s.mu.Unlock()

	if s.disk == nil {
		return
	}

	data, err := l.Marshal()
	if err != nil {
		log.Warnf("eventlog: encode %s: %v", url, err)
		return
	}
	if err := s.disk.Write(url, data); err != nil {
		log.Warnf("eventlog: persist %s: %v", url, err)
	}
}
