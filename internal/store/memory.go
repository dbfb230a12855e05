package store

import (
	"context"
	"errors"
	"sync"

	"github.com/pankaj-dahiya-devops/shiftleft/internal/analysis"
	"github.com/pankaj-dahiya-devops/shiftleft/internal/models"
)

// MemoryStore keeps results in a map. Stored and returned results are deep
// copies, so callers never share state with the store.
type MemoryStore struct {
	mu      sync.RWMutex
	results map[string]*models.AnalysisResult
}

// NewMemoryStore returns an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{results: make(map[string]*models.AnalysisResult)}
}

func (m *MemoryStore) Store(ctx context.Context, r *models.AnalysisResult) error {
	if r == nil || r.ID == "" {
		return errors.New("store: result must have an id")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	c, err := clone(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.results[r.ID] = c
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Fetch(ctx context.Context, id string) (*models.AnalysisResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	r, ok := m.results[id]
	m.mu.RUnlock()
	if !ok {
		return nil, analysis.ErrNotFound
	}
	return clone(r)
}

func (m *MemoryStore) List(ctx context.Context, filter analysis.ListFilter) ([]*models.AnalysisResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	all := make([]*models.AnalysisResult, 0, len(m.results))
	for _, r := range m.results {
		all = append(all, r)
	}
	m.mu.RUnlock()

	matched := filter.Apply(all)
	out := make([]*models.AnalysisResult, 0, len(matched))
	for _, r := range matched {
		c, err := clone(r)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.results[id]; !ok {
		return analysis.ErrNotFound
	}
	delete(m.results, id)
	return nil
}
