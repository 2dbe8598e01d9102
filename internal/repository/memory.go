package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/rocketscienceinc/gato-backend/internal/apperror"
	"github.com/rocketscienceinc/gato-backend/internal/entity"
)

// memResult keeps results in process memory when redis is disabled.
type memResult struct {
	mu      sync.RWMutex
	results map[string]entity.GameResult
	recent  []string
	stats   entity.ResultStats
}

func NewMemoryResultRepository() ResultRepository {
	return &memResult{
		results: make(map[string]entity.GameResult),
	}
}

func (that *memResult) Save(_ context.Context, result *entity.GameResult) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.results[result.ID] = *result
	that.recent = append([]string{result.ID}, that.recent...)
	if len(that.recent) > RecentLimit {
		that.recent = that.recent[:RecentLimit]
	}

	that.stats.Add(result.Outcome)

	return nil
}

func (that *memResult) GetByID(_ context.Context, id string) (*entity.GameResult, error) {
	that.mu.RLock()
	defer that.mu.RUnlock()

	result, ok := that.results[id]
	if !ok {
		return nil, fmt.Errorf("result %s: %w", id, apperror.ErrNotFound)
	}

	return &result, nil
}

func (that *memResult) Recent(_ context.Context, limit int) ([]*entity.GameResult, error) {
	that.mu.RLock()
	defer that.mu.RUnlock()

	ids := that.recent[:min(clampLimit(limit), len(that.recent))]

	results := make([]*entity.GameResult, 0, len(ids))
	for _, id := range ids {
		result := that.results[id]
		results = append(results, &result)
	}

	return results, nil
}

func (that *memResult) Stats(_ context.Context) (entity.ResultStats, error) {
	that.mu.RLock()
	defer that.mu.RUnlock()

	return that.stats, nil
}
