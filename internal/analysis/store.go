package analysis

import (
	"context"
	"errors"
	"sort"

	"github.com/pankaj-dahiya-devops/shiftleft/internal/models"
)

// ErrNotFound is returned by stores for an unknown analysis id.
var ErrNotFound = errors.New("analysis not found")

// Store persists analysis results. Implementations must be safe for
// concurrent use.
type Store interface {
	Store(ctx context.Context, result *models.AnalysisResult) error
	Fetch(ctx context.Context, id string) (*models.AnalysisResult, error)
	List(ctx context.Context, filter ListFilter) ([]*models.AnalysisResult, error)
	Delete(ctx context.Context, id string) error
}

// ListFilter narrows List. Zero-valued fields match everything; a Limit of
// zero or less means no limit.
type ListFilter struct {
	TenantID   string
	Status     models.AnalysisStatus
	Repository string
	Limit      int
}

// Matches reports whether r satisfies every set field of f.
func (f ListFilter) Matches(r *models.AnalysisResult) bool {
	if f.TenantID != "" && r.Metadata.TenantID != f.TenantID {
		return false
	}
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	if f.Repository != "" {
		if r.Metadata.Source == nil || r.Metadata.Source.RepositoryURL != f.Repository {
			return false
		}
	}
	return true
}

// Apply filters results, orders them newest first (ties by id) and
// truncates to the limit. Stores that cannot filter natively use it.
func (f ListFilter) Apply(results []*models.AnalysisResult) []*models.AnalysisResult {
	out := make([]*models.AnalysisResult, 0, len(results))
	for _, r := range results {
		if f.Matches(r) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		ti, tj := out[i].Metadata.Timestamp, out[j].Metadata.Timestamp
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return out[i].ID < out[j].ID
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out
}

// GetAnalysis fetches a stored result. Without a store it returns nil, nil.
func (o *Orchestrator) GetAnalysis(ctx context.Context, id string) (*models.AnalysisResult, error) {
	if o.store == nil {
		return nil, nil
	}
	return o.store.Fetch(ctx, id)
}

// ListAnalyses lists stored results. Without a store it returns an empty list.
func (o *Orchestrator) ListAnalyses(ctx context.Context, filter ListFilter) ([]*models.AnalysisResult, error) {
	if o.store == nil {
		return []*models.AnalysisResult{}, nil
	}
	return o.store.List(ctx, filter)
}

// DeleteAnalysis removes a stored result. Without a store it is a no-op.
func (o *Orchestrator) DeleteAnalysis(ctx context.Context, id string) error {
	if o.store == nil {
		return nil
	}
	return o.store.Delete(ctx, id)
}
