package session

import (
	"sort"
	"sync"

	"github.com/samber/lo"
)

// Registry indexes live sessions by id.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Create registers s, returning the session it replaced, if any.
func (r *Registry) Create(s *Session) (replaced *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	replaced = r.sessions[s.ID]
	r.sessions[s.ID] = s
	return replaced
}

// Lookup returns the session registered under id.
func (r *Registry) Lookup(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[id]
	return s, ok
}

// Destroy unregisters id and returns the removed session.
func (r *Registry) Destroy(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
	}
	return s, ok
}

// DestroyIf unregisters id only while it still maps to s.
func (r *Registry) DestroyIf(s *Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sessions[s.ID] != s {
		return false
	}
	delete(r.sessions, s.ID)
	return true
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// All returns the live sessions ordered by id.
func (r *Registry) All() []*Session {
	r.mu.RLock()
	all := lo.Values(r.sessions)
	r.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return all
}
