// Package serializer implements a per-repo keyed mutual-exclusion
// facility: at most one action runs at a time for a given repo name,
// while different repo names run fully concurrently.
package serializer

import "sync"

type entry struct {
	mu      sync.Mutex
	waiters int
}

// Serializer is a keyed mutex, one lock per repo name, created lazily
// and torn down once nobody holds or waits on it.
type Serializer struct {
	mapMu   sync.Mutex
	entries map[string]*entry
}

// New returns an empty Serializer.
func New() *Serializer {
	return &Serializer{entries: map[string]*entry{}}
}

// WithExclusive runs action with exclusive access to repoName. Release
// happens on every exit path of action, including panics.
func (s *Serializer) WithExclusive(repoName string, action func() error) error {
	e := s.acquire(repoName)
	defer s.release(repoName, e)

	e.mu.Lock()
	defer e.mu.Unlock()

	return action()
}

func (s *Serializer) acquire(repoName string) *entry {
	s.mapMu.Lock()
	defer s.mapMu.Unlock()

	e, ok := s.entries[repoName]
	if !ok {
		e = &entry{}
		s.entries[repoName] = e
	}
	e.waiters++
	return e
}

func (s *Serializer) release(repoName string, e *entry) {
	s.mapMu.Lock()
	defer s.mapMu.Unlock()

	e.waiters--
	if e.waiters == 0 {
		delete(s.entries, repoName)
	}
}
