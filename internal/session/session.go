// Package session holds the per-game state machine shared by two peers. It performs no I/O;
// the caller serializes access and delivers the resulting notifications.
package session

import (
	"errors"
	"fmt"

	"github.com/rocketscienceinc/gato-backend/internal/apperror"
	"github.com/rocketscienceinc/gato-backend/internal/entity"
)

type State string

const (
	StateAwaitingPlayers      State = "awaiting_players"
	StatePlayerXTurn          State = "player_x_turn"
	StatePlayerOTurn          State = "player_o_turn"
	StateGameOver             State = "game_over"
	StateAwaitingRematchVotes State = "awaiting_rematch_votes"
	StateClosed               State = "closed"
)

var ErrInvalidTransition = errors.New("invalid session state transition")

type VoteResult int

const (
	VotePending VoteResult = iota
	VoteRematch
	VoteDeclined
)

// Summary is a board-free view of a session.
type Summary struct {
	ID      string         `json:"id"`
	State   State          `json:"state"`
	Round   int            `json:"round"`
	Moves   int            `json:"moves"`
	Outcome entity.Outcome `json:"outcome"`
}

type Session struct {
	id        string
	boardSize int

	board   *entity.Board
	players []*entity.Player
	state   State
	outcome entity.Outcome
	votes   map[entity.Symbol]bool
	round   int
}

func New(id string, boardSize int) *Session {
	if boardSize < 1 {
		boardSize = entity.DefaultBoardSize
	}

	return &Session{
		id:        id,
		boardSize: boardSize,
		board:     entity.NewBoard(boardSize),
		state:     StateAwaitingPlayers,
		outcome:   entity.InProgress(),
		votes:     make(map[entity.Symbol]bool, 2),
		round:     1,
	}
}

func (that *Session) ID() string {
	return that.id
}

func (that *Session) State() State {
	return that.state
}

func (that *Session) Round() int {
	return that.round
}

func (that *Session) Outcome() entity.Outcome {
	return that.outcome
}

// Board - returns a copy of the current board.
func (that *Session) Board() *entity.Board {
	return that.board.Clone()
}

// ActiveSymbol - returns whose move it is, EmptyCell outside of play.
func (that *Session) ActiveSymbol() entity.Symbol {
	switch that.state {
	case StatePlayerXTurn:
		return entity.PlayerX
	case StatePlayerOTurn:
		return entity.PlayerO
	default:
		return entity.EmptyCell
	}
}

func (that *Session) Players() []entity.Player {
	players := make([]entity.Player, 0, len(that.players))
	for _, player := range that.players {
		players = append(players, *player)
	}

	return players
}

func (that *Session) Summary() Summary {
	return Summary{
		ID:      that.id,
		State:   that.state,
		Round:   that.round,
		Moves:   that.board.Filled(),
		Outcome: that.outcome,
	}
}

// Attach - seats a peer. The first peer plays X, the second O; seating the second starts the game.
func (that *Session) Attach(peerID string) (*entity.Player, error) {
	if that.state == StateClosed {
		return nil, apperror.ErrSessionClosed
	}

	if _, ok := that.find(peerID); ok {
		return nil, fmt.Errorf("%w: peer %s is already seated", apperror.ErrSessionFull, peerID)
	}

	if len(that.players) == 2 {
		return nil, apperror.ErrSessionFull
	}

	symbol := entity.PlayerX
	if len(that.players) == 1 {
		symbol = entity.PlayerO
	}

	player := &entity.Player{ID: peerID, Symbol: symbol, SessionID: that.id}
	that.players = append(that.players, player)

	if len(that.players) == 2 {
		that.state = StatePlayerXTurn
	}

	return player, nil
}

func (that *Session) SymbolOf(peerID string) (entity.Symbol, bool) {
	player, ok := that.find(peerID)
	if !ok {
		return entity.EmptyCell, false
	}

	return player.Symbol, true
}

func (that *Session) find(peerID string) (*entity.Player, bool) {
	for _, player := range that.players {
		if player.ID == peerID {
			return player, true
		}
	}

	return nil, false
}

// ApplyMove - plays (row, col) for peerID. Rejected moves leave the board and state untouched.
func (that *Session) ApplyMove(peerID string, row, col int) (entity.Outcome, error) {
	switch that.state {
	case StateAwaitingPlayers:
		return that.outcome, apperror.ErrGameIsNotStarted
	case StateGameOver, StateAwaitingRematchVotes:
		return that.outcome, apperror.ErrGameFinished
	case StateClosed:
		return that.outcome, apperror.ErrSessionClosed
	}

	symbol, ok := that.SymbolOf(peerID)
	if !ok {
		return that.outcome, fmt.Errorf("%w: %s", apperror.ErrUnknownPeer, peerID)
	}

	if symbol != that.ActiveSymbol() {
		return that.outcome, apperror.ErrNotYourTurn
	}

	if _, err := that.board.ApplyMove(row, col, symbol); err != nil {
		return that.outcome, fmt.Errorf("failed to apply move: %w", err)
	}

	that.outcome = that.board.Outcome()
	if that.outcome.IsTerminal() {
		that.state = StateGameOver
		return that.outcome, nil
	}

	if symbol == entity.PlayerX {
		that.state = StatePlayerOTurn
	} else {
		that.state = StatePlayerXTurn
	}

	return that.outcome, nil
}

// PromptRematch - moves a finished game into vote collection.
func (that *Session) PromptRematch() error {
	if that.state != StateGameOver {
		return fmt.Errorf("%w: cannot prompt for rematch in state %s", ErrInvalidTransition, that.state)
	}

	clear(that.votes)
	that.state = StateAwaitingRematchVotes

	return nil
}

// Vote - records a rematch vote. Any "no" closes the session; two "yes" votes start a new
// round on a fresh board with X to move.
func (that *Session) Vote(peerID string, yes bool) (VoteResult, error) {
	if that.state != StateAwaitingRematchVotes {
		return VotePending, fmt.Errorf("%w: no vote is open in state %s", apperror.ErrInvalidVote, that.state)
	}

	symbol, ok := that.SymbolOf(peerID)
	if !ok {
		return VotePending, fmt.Errorf("%w: %s", apperror.ErrUnknownPeer, peerID)
	}

	if _, voted := that.votes[symbol]; voted {
		return VotePending, fmt.Errorf("%w: %s already voted", apperror.ErrInvalidVote, symbol)
	}

	if !yes {
		that.Close()
		return VoteDeclined, nil
	}

	that.votes[symbol] = true
	if len(that.votes) < 2 {
		return VotePending, nil
	}

	that.restart()

	return VoteRematch, nil
}

func (that *Session) restart() {
	that.board = entity.NewBoard(that.boardSize)
	that.outcome = entity.InProgress()
	clear(that.votes)
	that.round++

	that.state = StateAwaitingPlayers
	if len(that.players) == 2 {
		that.state = StatePlayerXTurn
	}
}

func (that *Session) Close() {
	that.state = StateClosed
}

func (that *Session) IsClosed() bool {
	return that.state == StateClosed
}
