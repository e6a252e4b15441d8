package sidechannel

import (
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// Session is the caller-owned state shared by the builds of one run.
type Session struct {
	ID       string
	Shebangs *ShebangStore

	mu         sync.Mutex
	registries map[string]*ErrorCodeRegistry
	shared     map[string]any
}

func NewSession() *Session {
	return &Session{
		ID:         uuid.NewString(),
		Shebangs:   NewShebangStore(),
		registries: make(map[string]*ErrorCodeRegistry),
		shared:     make(map[string]any),
	}
}

// Registry returns the registry backed by path, loading it on first use.
// Builds running in the same session share one instance per file, so their
// writes are serialised.
func (s *Session) Registry(path string) (*ErrorCodeRegistry, error) {
	key := filepath.Clean(path)

	s.mu.Lock()
	defer s.mu.Unlock()

	if r, ok := s.registries[key]; ok {
		return r, nil
	}
	r, err := LoadErrorCodeRegistry(key)
	if err != nil {
		return nil, err
	}
	s.registries[key] = r
	return r, nil
}

// Shared returns the value stored under key, calling create on first use.
// Per-run helpers that outlive a single build (scan caches, for one) live
// here. create runs under the session lock and must not call back into s.
func (s *Session) Shared(key string, create func() (any, error)) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if v, ok := s.shared[key]; ok {
		return v, nil
	}
	v, err := create()
	if err != nil {
		return nil, err
	}
	s.shared[key] = v
	return v, nil
}
