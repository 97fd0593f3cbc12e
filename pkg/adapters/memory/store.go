package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/warp/pkg/domain"
)

// Store implements ports.RunStore in memory.
// Models are kept as JSON snapshots, so a loaded model never aliases a saved one
// and behaves like one read back from a remote store.
// Safe for concurrent use.
type Store struct {
	data map[string][]byte
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string][]byte),
	}
}

// Save persists a snapshot of the model.
func (s *Store) Save(ctx context.Context, runID string, model *domain.Model) error {
	data, err := json.Marshal(model)
	if err != nil {
		return fmt.Errorf("failed to marshal model: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[runID] = data
	return nil
}

// Load retrieves a fresh copy of the model.
func (s *Store) Load(ctx context.Context, runID string) (*domain.Model, error) {
	s.mu.RLock()
	data, ok := s.data[runID]
	s.mu.RUnlock()
	if !ok {
		return nil, domain.ErrRunNotFound
	}

	model := domain.NewModel()
	if err := json.Unmarshal(data, model); err != nil {
		return nil, fmt.Errorf("failed to unmarshal model: %w", err)
	}
	return model, nil
}

// Delete removes the snapshot.
func (s *Store) Delete(ctx context.Context, runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, runID)
	return nil
}

// List returns the stored run IDs in lexical order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := make([]string, 0, len(s.data))
	for id := range s.data {
		runs = append(runs, id)
	}
	sort.Strings(runs)
	return runs, nil
}
