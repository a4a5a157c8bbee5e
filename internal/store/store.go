// Package store keeps finished paragraph results so an interrupted batch can
// be resumed without reprocessing DONE paragraphs.
package store

import (
	"context"
	"errors"
	"sync"

	"github.com/ppiankov/parafrasa/internal/model"
)

// ErrNotDone is returned when saving a result that never reached DONE
var ErrNotDone = errors.New("result not done")

// Store persists DONE results per run key
type Store interface {
	// Save records a DONE result under runKey, replacing any earlier record for the same paragraph ID
	Save(ctx context.Context, runKey string, result model.Result) error
	// Completed returns the DONE results of runKey keyed by paragraph ID
	Completed(ctx context.Context, runKey string) (map[string]model.Result, error)
	// Reset forgets every result of runKey
	Reset(ctx context.Context, runKey string) error
	Close() error
}

// MemoryStore is a Store that lives for the duration of the process
type MemoryStore struct {
	mu   sync.RWMutex
	runs map[string]map[string]model.Result
}

// NewMemory creates an empty in-memory store
func NewMemory() *MemoryStore {
	return &MemoryStore{runs: make(map[string]map[string]model.Result)}
}

func (s *MemoryStore) Save(_ context.Context, runKey string, result model.Result) error {
	if !result.Done() {
		return ErrNotDone
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[runKey]
	if !ok {
		run = make(map[string]model.Result)
		s.runs[runKey] = run
	}
	run[result.RequestID] = result
	return nil
}

func (s *MemoryStore) Completed(_ context.Context, runKey string) (map[string]model.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]model.Result, len(s.runs[runKey]))
	for id, r := range s.runs[runKey] {
		out[id] = r
	}
	return out, nil
}

func (s *MemoryStore) Reset(_ context.Context, runKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.runs, runKey)
	return nil
}

func (s *MemoryStore) Close() error { return nil }
