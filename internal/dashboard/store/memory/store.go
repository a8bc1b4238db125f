// Package memory provides an in-memory RecordStore for tests and local
// development. It doubles as the failure-injecting fake in service tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/BlueCodeSystems/ecap-plus-pmp-sub000/internal/dashboard/models"
)

type Store struct {
	mu    sync.RWMutex
	snap  models.Snapshot
	err   error
	delay time.Duration
}

func New() *Store {
	return &Store{}
}

// Seed installs the snapshot returned by subsequent fetches.
func (s *Store) Seed(snap models.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = snap
}

// FailWith makes subsequent fetches return err; pass nil to heal.
func (s *Store) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// SetFetchDelay makes in-flight fetches observable in supersession tests.
func (s *Store) SetFetchDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay = d
}

func (s *Store) FetchSnapshot(ctx context.Context) (*models.Snapshot, error) {
	// Capture the result before the delay so a superseded fetch really does
	// deliver the data it started with.
	s.mu.RLock()
	delay := s.delay
	err := s.err
	snap := s.snap
	s.mu.RUnlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if err != nil {
		return nil, err
	}
	snap.FetchedAt = time.Now()
	return &snap, nil
}
