package tictactoe

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/gato-backend/internal/apperror"
	"github.com/rocketscienceinc/gato-backend/internal/entity"
	"github.com/rocketscienceinc/gato-backend/internal/service"
)

var errScriptExhausted = errors.New("script exhausted")

type scriptedSource struct {
	moves []entity.Move
	asked int
}

func (that *scriptedSource) NextMove(_ context.Context, _ *entity.Board, _ entity.Symbol) (entity.Move, error) {
	if that.asked >= len(that.moves) {
		return entity.NoMove, errScriptExhausted
	}

	move := that.moves[that.asked]
	that.asked++

	return move, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newController(t *testing.T, opts Options) *GameController {
	t.Helper()

	controller, err := NewGameController(discardLogger(), opts, service.NewBotService(discardLogger(), 2))
	require.NoError(t, err)

	return controller
}

func TestNewGameController(t *testing.T) {
	t.Run("Unknown mode", func(t *testing.T) {
		// When: a controller is created for an unknown mode
		_, err := NewGameController(discardLogger(), Options{Mode: "solo"}, nil)

		// Then: it is refused
		require.ErrorIs(t, err, ErrUnknownMode)
	})

	t.Run("AI mode without bot", func(t *testing.T) {
		// When: a bot mode has no bot
		_, err := NewGameController(discardLogger(), Options{Mode: ModeHumanVsAI}, nil)

		// Then: it is refused
		require.ErrorIs(t, err, ErrNoBot)
	})

	t.Run("Fresh game", func(t *testing.T) {
		// When: a human game is created
		controller, err := NewGameController(discardLogger(), Options{Mode: ModeHumanVsHuman}, nil)

		// Then: X is to move on an empty board
		require.NoError(t, err)
		assert.Equal(t, entity.PlayerX, controller.Turn())
		assert.Equal(t, entity.DefaultBoardSize, controller.Board().Size())
		assert.Empty(t, controller.History())
		assert.False(t, controller.IsAITurn())
	})
}

func TestParseMode(t *testing.T) {
	for _, raw := range []string{"human-vs-human", "human-vs-ai", "ai-vs-ai"} {
		mode, err := ParseMode(raw)
		require.NoError(t, err)
		assert.Equal(t, Mode(raw), mode)
	}

	_, err := ParseMode("ai-vs-human")
	require.ErrorIs(t, err, ErrUnknownMode)
}

func TestGameController_SubmitMove(t *testing.T) {
	t.Run("Turns alternate", func(t *testing.T) {
		controller := newController(t, Options{Mode: ModeHumanVsHuman})

		// When: X plays
		outcome, err := controller.SubmitMove(1, 2)

		// Then: the move is on the board and O is to move
		require.NoError(t, err)
		assert.False(t, outcome.IsTerminal())
		assert.Equal(t, entity.PlayerX, controller.Board().At(1, 2))
		assert.Equal(t, entity.PlayerO, controller.Turn())
	})

	t.Run("Occupied cell keeps the turn", func(t *testing.T) {
		controller := newController(t, Options{Mode: ModeHumanVsHuman})
		_, err := controller.SubmitMove(0, 0)
		require.NoError(t, err)

		// When: O plays on X's cell
		_, err = controller.SubmitMove(0, 0)

		// Then: the move is refused and O still has to move
		require.ErrorIs(t, err, apperror.ErrOccupiedCell)
		assert.Equal(t, entity.PlayerO, controller.Turn())
		assert.Len(t, controller.History(), 1)
	})

	t.Run("Bot's turn", func(t *testing.T) {
		controller := newController(t, Options{Mode: ModeHumanVsAI})
		_, err := controller.SubmitMove(0, 0)
		require.NoError(t, err)

		// When: the human tries to play for the bot
		_, err = controller.SubmitMove(1, 1)

		// Then: it is refused
		require.ErrorIs(t, err, ErrAITurn)
	})

	t.Run("Finished game", func(t *testing.T) {
		controller := newController(t, Options{Mode: ModeHumanVsHuman})
		for _, move := range xWinsColumnZero {
			_, err := controller.SubmitMove(move.Row, move.Col)
			require.NoError(t, err)
		}

		// When: a move is made after X won
		outcome, err := controller.SubmitMove(3, 3)

		// Then: it is refused
		require.ErrorIs(t, err, apperror.ErrGameFinished)
		assert.Equal(t, entity.Win(entity.PlayerX), outcome)
		assert.Equal(t, entity.PlayerX, controller.Turn())
	})
}

var xWinsColumnZero = []entity.Move{
	{Row: 0, Col: 0}, {Row: 0, Col: 1},
	{Row: 1, Col: 0}, {Row: 1, Col: 1},
	{Row: 2, Col: 0}, {Row: 2, Col: 1},
	{Row: 3, Col: 0},
}

func TestGameController_HumanVsAI(t *testing.T) {
	t.Run("Bot answers the human", func(t *testing.T) {
		controller := newController(t, Options{Mode: ModeHumanVsAI})

		// Given: the human plays X
		_, err := controller.SubmitMove(0, 0)
		require.NoError(t, err)
		require.True(t, controller.IsAITurn())

		// When: the game advances
		outcome, err := controller.Advance()

		// Then: the bot has played O and the human is to move
		require.NoError(t, err)
		assert.False(t, outcome.IsTerminal())
		assert.Equal(t, entity.PlayerX, controller.Turn())
		require.Len(t, controller.History(), 2)

		reply := controller.History()[1]
		assert.Equal(t, entity.PlayerO, controller.Board().At(reply.Row, reply.Col))
	})

	t.Run("Bot opens when the human plays O", func(t *testing.T) {
		controller := newController(t, Options{Mode: ModeHumanVsAI, Human: entity.PlayerO})

		// When: the game advances from the start
		_, err := controller.Advance()

		// Then: the bot played X
		require.NoError(t, err)
		require.Len(t, controller.History(), 1)
		assert.Equal(t, entity.PlayerO, controller.Turn())
	})

	t.Run("PlayAITurn on a human turn", func(t *testing.T) {
		controller := newController(t, Options{Mode: ModeHumanVsAI})

		// When: the bot is asked to play for the human
		_, err := controller.PlayAITurn()

		// Then: it is refused
		require.ErrorIs(t, err, ErrHumanTurn)
	})
}

func TestGameController_Run(t *testing.T) {
	t.Run("Human game with illegal moves", func(t *testing.T) {
		controller := newController(t, Options{Mode: ModeHumanVsHuman})

		// Given: a script where O first tries an occupied and an off-board cell
		script := []entity.Move{{Row: 0, Col: 0}, {Row: 0, Col: 0}, {Row: 9, Col: 9}}
		script = append(script, xWinsColumnZero[1:]...)
		source := &scriptedSource{moves: script}

		// When: the game runs
		outcome, err := controller.Run(context.Background(), source)

		// Then: O was asked again and X won
		require.NoError(t, err)
		assert.Equal(t, entity.Win(entity.PlayerX), outcome)
		assert.Equal(t, xWinsColumnZero, controller.History())
		assert.Equal(t, len(script), source.asked)
	})

	t.Run("Bot against bot", func(t *testing.T) {
		first := newController(t, Options{Mode: ModeAIVsAI})
		second := newController(t, Options{Mode: ModeAIVsAI})

		// When: two bot games run to completion
		outcome, err := first.Run(context.Background(), nil)
		require.NoError(t, err)
		_, err = second.Run(context.Background(), nil)
		require.NoError(t, err)

		// Then: the game ends and replays identically
		assert.True(t, outcome.IsTerminal())
		assert.Len(t, first.History(), first.Board().Filled())
		assert.Equal(t, first.History(), second.History())
	})

	t.Run("Source failure", func(t *testing.T) {
		controller := newController(t, Options{Mode: ModeHumanVsHuman})

		// When: the source runs out of moves
		_, err := controller.Run(context.Background(), &scriptedSource{})

		// Then: the error is reported
		require.ErrorIs(t, err, errScriptExhausted)
	})

	t.Run("Cancelled", func(t *testing.T) {
		controller := newController(t, Options{Mode: ModeHumanVsHuman})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		// When: Run starts with a cancelled context
		_, err := controller.Run(ctx, &scriptedSource{})

		// Then: it stops immediately
		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestGameController_Reset(t *testing.T) {
	controller := newController(t, Options{Mode: ModeHumanVsHuman})
	_, err := controller.SubmitMove(2, 2)
	require.NoError(t, err)

	// When: the game is reset
	controller.Reset()

	// Then: it starts over
	assert.Empty(t, controller.History())
	assert.Equal(t, entity.PlayerX, controller.Turn())
	assert.Zero(t, controller.Board().Filled())
}
