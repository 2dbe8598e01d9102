// Package tictactoe drives single-process games where either side may be a human or the search engine.
package tictactoe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/rocketscienceinc/gato-backend/internal/apperror"
	"github.com/rocketscienceinc/gato-backend/internal/entity"
	"github.com/rocketscienceinc/gato-backend/internal/search"
)

type Mode string

const (
	ModeHumanVsHuman Mode = "human-vs-human"
	ModeHumanVsAI    Mode = "human-vs-ai"
	ModeAIVsAI       Mode = "ai-vs-ai"
)

var (
	ErrUnknownMode  = errors.New("unknown game mode")
	ErrNoBot        = errors.New("mode needs a bot")
	ErrAITurn       = errors.New("it is the bot's turn")
	ErrHumanTurn    = errors.New("it is a human's turn")
	ErrNoMoveSource = errors.New("no move source for human turn")
)

func ParseMode(raw string) (Mode, error) {
	switch mode := Mode(raw); mode {
	case ModeHumanVsHuman, ModeHumanVsAI, ModeAIVsAI:
		return mode, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, raw)
	}
}

type moveChooser interface {
	ChooseMove(board *entity.Board, symbol entity.Symbol) (search.Result, error)
}

// MoveSource supplies human moves, typically by reading a terminal.
type MoveSource interface {
	NextMove(ctx context.Context, board *entity.Board, symbol entity.Symbol) (entity.Move, error)
}

type Options struct {
	Mode      Mode
	BoardSize int
	// Human is the side a human plays in human-vs-ai, X when empty.
	Human entity.Symbol
}

type GameController struct {
	logger *slog.Logger
	opts   Options
	bot    moveChooser

	board   *entity.Board
	turn    entity.Symbol
	history []entity.Move
}

func NewGameController(logger *slog.Logger, opts Options, bot moveChooser) (*GameController, error) {
	if _, err := ParseMode(string(opts.Mode)); err != nil {
		return nil, err
	}

	if opts.Human == entity.EmptyCell {
		opts.Human = entity.PlayerX
	}

	if !opts.Human.IsPlayer() {
		return nil, fmt.Errorf("human side %q: %w", opts.Human, apperror.ErrInvalidSymbol)
	}

	if opts.Mode != ModeHumanVsHuman && bot == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoBot, opts.Mode)
	}

	controller := &GameController{
		logger: logger.With("component", "game_controller", "mode", string(opts.Mode)),
		opts:   opts,
		bot:    bot,
	}
	controller.Reset()

	return controller, nil
}

// Reset - starts over on an empty board with X to move.
func (that *GameController) Reset() {
	that.board = entity.NewBoard(that.opts.BoardSize)
	that.turn = entity.PlayerX
	that.history = nil
}

func (that *GameController) Mode() Mode {
	return that.opts.Mode
}

// Board - a copy of the current position.
func (that *GameController) Board() *entity.Board {
	return that.board.Clone()
}

func (that *GameController) Turn() entity.Symbol {
	return that.turn
}

func (that *GameController) Outcome() entity.Outcome {
	return that.board.Outcome()
}

func (that *GameController) History() []entity.Move {
	history := make([]entity.Move, len(that.history))
	copy(history, that.history)

	return history
}

func (that *GameController) IsAITurn() bool {
	return that.isAI(that.turn)
}

func (that *GameController) isAI(symbol entity.Symbol) bool {
	switch that.opts.Mode {
	case ModeAIVsAI:
		return true
	case ModeHumanVsAI:
		return symbol != that.opts.Human
	default:
		return false
	}
}

// SubmitMove - plays a human move for the side to move.
func (that *GameController) SubmitMove(row, col int) (entity.Outcome, error) {
	if that.Outcome().IsTerminal() {
		return that.Outcome(), apperror.ErrGameFinished
	}

	if that.IsAITurn() {
		return that.Outcome(), ErrAITurn
	}

	return that.apply(entity.Move{Row: row, Col: col})
}

// PlayAITurn - lets the bot play for the side to move.
func (that *GameController) PlayAITurn() (search.Result, error) {
	log := that.logger.With("method", "PlayAITurn", "symbol", that.turn)

	if that.Outcome().IsTerminal() {
		return search.Result{Move: entity.NoMove}, apperror.ErrGameFinished
	}

	if !that.IsAITurn() {
		return search.Result{Move: entity.NoMove}, ErrHumanTurn
	}

	result, err := that.bot.ChooseMove(that.board, that.turn)
	if err != nil {
		return result, fmt.Errorf("bot failed to choose a move: %w", err)
	}

	if _, err = that.apply(result.Move); err != nil {
		return result, fmt.Errorf("bot failed to make turn: %w", err)
	}

	log.Debug("bot moved", "row", result.Move.Row, "col", result.Move.Col, "score", result.Score)

	return result, nil
}

// Advance - plays bot turns until a human is to move or the game is over.
func (that *GameController) Advance() (entity.Outcome, error) {
	for !that.Outcome().IsTerminal() && that.IsAITurn() {
		if _, err := that.PlayAITurn(); err != nil {
			return that.Outcome(), err
		}
	}

	return that.Outcome(), nil
}

// Run - plays until the game is over, asking source for human moves. Illegal human moves are
// asked for again.
func (that *GameController) Run(ctx context.Context, source MoveSource) (entity.Outcome, error) {
	log := that.logger.With("method", "Run")

	for {
		if outcome := that.Outcome(); outcome.IsTerminal() {
			log.Info("game over", "outcome", outcome.String(), "moves", len(that.history))
			return outcome, nil
		}

		if err := ctx.Err(); err != nil {
			return that.Outcome(), err
		}

		if that.IsAITurn() {
			if _, err := that.PlayAITurn(); err != nil {
				return that.Outcome(), err
			}

			continue
		}

		if source == nil {
			return that.Outcome(), ErrNoMoveSource
		}

		move, err := source.NextMove(ctx, that.Board(), that.turn)
		if err != nil {
			return that.Outcome(), fmt.Errorf("failed to read move: %w", err)
		}

		_, err = that.SubmitMove(move.Row, move.Col)
		if errors.Is(err, apperror.ErrOccupiedCell) || errors.Is(err, apperror.ErrOutOfRange) {
			log.Debug("illegal move, asking again", "row", move.Row, "col", move.Col, "error", err)
			continue
		}

		if err != nil {
			return that.Outcome(), err
		}
	}
}

func (that *GameController) apply(move entity.Move) (entity.Outcome, error) {
	if _, err := that.board.ApplyMove(move.Row, move.Col, that.turn); err != nil {
		return that.Outcome(), fmt.Errorf("invalid turn: %w", err)
	}

	that.history = append(that.history, move)

	outcome := that.Outcome()
	if !outcome.IsTerminal() {
		that.turn = that.turn.Opponent()
	}

	return outcome, nil
}
