// Package session holds the single workflow session of one interactive run.
package session

import (
	"sync"

	"github.com/Veraticus/recon/internal/model"
)

// Store owns one model.Session. Reads are unrestricted; only the workflow machine
// should call Set and Reset.
type Store struct {
	session model.Session
	mu      sync.RWMutex
}

// NewStore creates a store holding an empty, Idle session.
func NewStore() *Store {
	return &Store{session: model.NewSession()}
}

// Get returns a copy of the current session. Result pointers are shared with the store
// and must be treated as read-only.
func (s *Store) Get() model.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session
}

// Stage returns the current workflow stage.
func (s *Store) Stage() model.Stage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session.Stage
}

// Set replaces the session.
func (s *Store) Set(session model.Session) {
	if session.Stage == "" {
		session.Stage = model.StageIdle
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = session
}

// Reset discards the session and starts a new empty one.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = model.NewSession()
}
