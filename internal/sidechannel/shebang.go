package sidechannel

import "sync"

// ShebangStore maps build names to the shebang stripped from their entry.
// An empty string records that the entry had none.
type ShebangStore struct {
	mu      sync.RWMutex
	entries map[string]string
}

func NewShebangStore() *ShebangStore {
	return &ShebangStore{entries: make(map[string]string)}
}

// Set records text for build, replacing any earlier entry.
func (s *ShebangStore) Set(build, text string) {
	s.mu.Lock()
	s.entries[build] = text
	s.mu.Unlock()
}

// Get returns the entry for build.
func (s *ShebangStore) Get(build string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	text, ok := s.entries[build]
	return text, ok
}

// Take returns and removes the entry for build. Post-bundle restoration uses
// it so finished builds do not accumulate.
func (s *ShebangStore) Take(build string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	text, ok := s.entries[build]
	delete(s.entries, build)
	return text, ok
}

// Len returns the number of recorded builds.
func (s *ShebangStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
