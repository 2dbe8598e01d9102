package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/rocketscienceinc/gato-backend/internal/apperror"
	"github.com/rocketscienceinc/gato-backend/internal/entity"
)

const (
	// RecentLimit caps the list of recent results.
	RecentLimit = 100

	recentKey = "results:recent"
	statsKey  = "results:stats"

	fieldXWins = "x_wins"
	fieldOWins = "o_wins"
	fieldDraws = "draws"
)

type ResultRepository interface {
	Save(ctx context.Context, result *entity.GameResult) error
	GetByID(ctx context.Context, id string) (*entity.GameResult, error)
	Recent(ctx context.Context, limit int) ([]*entity.GameResult, error)
	Stats(ctx context.Context) (entity.ResultStats, error)
}

type dbResult struct {
	client *redis.Client
}

func NewResultRepository(client *redis.Client) ResultRepository {
	return &dbResult{
		client: client,
	}
}

func resultKey(id string) string {
	return "result:" + id
}

func statsField(outcome entity.Outcome) string {
	switch {
	case outcome.Kind == entity.OutcomeDraw:
		return fieldDraws
	case outcome.Kind == entity.OutcomeWin && outcome.Winner == entity.PlayerX:
		return fieldXWins
	case outcome.Kind == entity.OutcomeWin && outcome.Winner == entity.PlayerO:
		return fieldOWins
	default:
		return ""
	}
}

// Save - stores the result, pushes it onto the recent list and bumps the counters in one transaction.
func (that *dbResult) Save(ctx context.Context, result *entity.GameResult) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("could not marshal result: %w", err)
	}

	_, err = that.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, resultKey(result.ID), resultJSON, 0)
		pipe.LPush(ctx, recentKey, result.ID)
		pipe.LTrim(ctx, recentKey, 0, RecentLimit-1)

		if field := statsField(result.Outcome); field != "" {
			pipe.HIncrBy(ctx, statsKey, field, 1)
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save result: %w", err)
	}

	return nil
}

func (that *dbResult) GetByID(ctx context.Context, id string) (*entity.GameResult, error) {
	response, err := that.client.Get(ctx, resultKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("result %s: %w", id, apperror.ErrNotFound)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get result by id: %w", err)
	}

	var result entity.GameResult
	if err = json.Unmarshal([]byte(response), &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal result: %w", err)
	}

	return &result, nil
}

// Recent - newest first, at most limit results.
func (that *dbResult) Recent(ctx context.Context, limit int) ([]*entity.GameResult, error) {
	limit = clampLimit(limit)

	ids, err := that.client.LRange(ctx, recentKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list recent results: %w", err)
	}

	if len(ids) == 0 {
		return []*entity.GameResult{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = resultKey(id)
	}

	values, err := that.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get recent results: %w", err)
	}

	results := make([]*entity.GameResult, 0, len(values))
	for _, value := range values {
		raw, ok := value.(string)
		if !ok {
			continue
		}

		var result entity.GameResult
		if err = json.Unmarshal([]byte(raw), &result); err != nil {
			return nil, fmt.Errorf("failed to unmarshal result: %w", err)
		}

		results = append(results, &result)
	}

	return results, nil
}

func (that *dbResult) Stats(ctx context.Context) (entity.ResultStats, error) {
	fields, err := that.client.HGetAll(ctx, statsKey).Result()
	if err != nil {
		return entity.ResultStats{}, fmt.Errorf("failed to get result stats: %w", err)
	}

	var stats entity.ResultStats
	for field, target := range map[string]*int64{
		fieldXWins: &stats.XWins,
		fieldOWins: &stats.OWins,
		fieldDraws: &stats.Draws,
	} {
		raw, ok := fields[field]
		if !ok {
			continue
		}

		if *target, err = strconv.ParseInt(raw, 10, 64); err != nil {
			return entity.ResultStats{}, fmt.Errorf("failed to parse %s: %w", field, err)
		}
	}

	return stats, nil
}

func clampLimit(limit int) int {
	if limit < 1 || limit > RecentLimit {
		return RecentLimit
	}

	return limit
}
