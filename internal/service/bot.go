package service

import (
	"fmt"
	"log/slog"

	"github.com/rocketscienceinc/gato-backend/internal/apperror"
	"github.com/rocketscienceinc/gato-backend/internal/entity"
	"github.com/rocketscienceinc/gato-backend/internal/search"
)

type BotService interface {
	ChooseMove(board *entity.Board, symbol entity.Symbol) (search.Result, error)
}

type botService struct {
	logger *slog.Logger
	engine *search.Engine
}

func NewBotService(logger *slog.Logger, depth int) BotService {
	return &botService{
		logger: logger.With("component", "bot_service"),
		engine: search.NewEngine(depth),
	}
}

// ChooseMove - asks the search engine for symbol's move. The board is left untouched.
func (that *botService) ChooseMove(board *entity.Board, symbol entity.Symbol) (search.Result, error) {
	log := that.logger.With("method", "ChooseMove", "symbol", symbol)

	if !symbol.IsPlayer() {
		return search.Result{Move: entity.NoMove}, fmt.Errorf("bot cannot play %q: %w", symbol, apperror.ErrInvalidSymbol)
	}

	if board.Outcome().IsTerminal() {
		return search.Result{Move: entity.NoMove}, apperror.ErrNoAvailableMoves
	}

	result := that.engine.BestMove(board, symbol)
	if result.Move.IsNone() {
		return result, apperror.ErrNoAvailableMoves
	}

	log.Debug("move chosen", "row", result.Move.Row, "col", result.Move.Col, "score", result.Score, "nodes", result.Nodes, "depth", that.engine.Depth())

	return result, nil
}
