// Package memory is an in-process run store.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/Suryanshpandey5492/WebVision/pkg/agent/state"
	"github.com/Suryanshpandey5492/WebVision/pkg/store"
)

// Store keeps runs in a map. Its zero value is not usable; call New.
type Store struct {
	mu   sync.RWMutex
	runs map[string]store.Run
}

// New creates an empty store.
func New() *Store {
	return &Store{runs: make(map[string]store.Run)}
}

func (s *Store) Save(_ context.Context, run store.Run) error {
	if run.ID == "" {
		return fmt.Errorf("save run: empty id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[run.ID] = copyRun(run)
	return nil
}

func (s *Store) Get(_ context.Context, id string) (store.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[id]
	if !ok {
		return store.Run{}, fmt.Errorf("%w: %s", store.ErrNotFound, id)
	}
	return copyRun(run), nil
}

// List returns the newest runs first. A non-positive limit returns all.
func (s *Store) List(_ context.Context, limit int) ([]store.Run, error) {
	s.mu.RLock()
	out := make([]store.Run, 0, len(s.runs))
	for _, r := range s.runs {
		out = append(out, copyRun(r))
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) Close() error { return nil }

func copyRun(r store.Run) store.Run {
	r.VisitedSites = append([]state.VisitedSite(nil), r.VisitedSites...)
	if r.Answer != nil {
		r.Answer = state.String(*r.Answer)
	}
	if r.Errors != nil {
		r.Errors = state.String(*r.Errors)
	}
	return r
}
