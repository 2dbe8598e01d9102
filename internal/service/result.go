package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/rocketscienceinc/gato-backend/internal/entity"
)

var ErrInvalidResult = errors.New("invalid game result")

type ResultService interface {
	Record(ctx context.Context, result *entity.GameResult) error

	GetByID(ctx context.Context, id string) (*entity.GameResult, error)
	Recent(ctx context.Context, limit int) ([]*entity.GameResult, error)
	Stats(ctx context.Context) (entity.ResultStats, error)
}

type resultRepo interface {
	Save(ctx context.Context, result *entity.GameResult) error

	GetByID(ctx context.Context, id string) (*entity.GameResult, error)
	Recent(ctx context.Context, limit int) ([]*entity.GameResult, error)
	Stats(ctx context.Context) (entity.ResultStats, error)
}

type resultService struct {
	logger *slog.Logger

	resultRepo resultRepo
}

func NewResultService(logger *slog.Logger, resultRepo resultRepo) ResultService {
	return &resultService{
		logger:     logger.With("component", "result_service"),
		resultRepo: resultRepo,
	}
}

// Record - stores a finished game. Results of unfinished games are refused.
func (that *resultService) Record(ctx context.Context, result *entity.GameResult) error {
	log := that.logger.With("method", "Record")

	if result == nil || result.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidResult)
	}

	if !result.Outcome.IsTerminal() {
		return fmt.Errorf("%w: game %s is %s", ErrInvalidResult, result.ID, result.Outcome)
	}

	if err := that.resultRepo.Save(ctx, result); err != nil {
		return fmt.Errorf("failed to save result to storage: %w", err)
	}

	log.Info("result recorded", "result_id", result.ID, "session_id", result.SessionID, "outcome", result.Outcome.String())

	return nil
}

func (that *resultService) GetByID(ctx context.Context, id string) (*entity.GameResult, error) {
	result, err := that.resultRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve result from storage: %w", err)
	}

	return result, nil
}

func (that *resultService) Recent(ctx context.Context, limit int) ([]*entity.GameResult, error) {
	results, err := that.resultRepo.Recent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve recent results from storage: %w", err)
	}

	return results, nil
}

func (that *resultService) Stats(ctx context.Context) (entity.ResultStats, error) {
	stats, err := that.resultRepo.Stats(ctx)
	if err != nil {
		return entity.ResultStats{}, fmt.Errorf("failed to retrieve result stats from storage: %w", err)
	}

	return stats, nil
}
