package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/gato-backend/internal/apperror"
	"github.com/rocketscienceinc/gato-backend/internal/entity"
	"github.com/rocketscienceinc/gato-backend/internal/protocol"
	"github.com/rocketscienceinc/gato-backend/internal/session"
	mockedUseCase "github.com/rocketscienceinc/gato-backend/mocks/usecase"
)

const waitFor = 2 * time.Second

type fakeConn struct {
	name     string
	toServer chan protocol.Message
	toPeer   chan protocol.Message
	closed   chan struct{}
	once     sync.Once
}

func newFakeConn(name string) *fakeConn {
	return &fakeConn{
		name:     name,
		toServer: make(chan protocol.Message, 16),
		toPeer:   make(chan protocol.Message, 64),
		closed:   make(chan struct{}),
	}
}

func (that *fakeConn) ReadMessage() (protocol.Message, error) {
	select {
	case msg := <-that.toServer:
		return msg, nil
	case <-that.closed:
		return protocol.Message{}, fmt.Errorf("%w: %w", apperror.ErrPeerDisconnected, io.EOF)
	}
}

func (that *fakeConn) WriteMessage(msg protocol.Message) error {
	select {
	case <-that.closed:
		return apperror.ErrPeerDisconnected
	default:
	}

	select {
	case that.toPeer <- msg:
		return nil
	case <-that.closed:
		return apperror.ErrPeerDisconnected
	}
}

func (that *fakeConn) RemoteAddr() string {
	return that.name
}

func (that *fakeConn) Close() error {
	that.once.Do(func() { close(that.closed) })
	return nil
}

func (that *fakeConn) send(msgType protocol.Type, payload any) {
	that.toServer <- protocol.MustNew(msgType, payload)
}

func (that *fakeConn) move(row, col int) {
	that.send(protocol.TypeMove, protocol.NewMove(row, col))
}

func (that *fakeConn) next(t *testing.T) protocol.Message {
	t.Helper()

	select {
	case msg := <-that.toPeer:
		return msg
	case <-time.After(waitFor):
		t.Fatalf("%s: no message within %s", that.name, waitFor)
		return protocol.Message{}
	}
}

func (that *fakeConn) silent(t *testing.T) {
	t.Helper()

	select {
	case msg := <-that.toPeer:
		t.Fatalf("%s: unexpected %s message", that.name, msg.Type)
	case <-time.After(50 * time.Millisecond):
	}
}

func (that *fakeConn) waitClosed(t *testing.T) {
	t.Helper()

	select {
	case <-that.closed:
	case <-time.After(waitFor):
		t.Fatalf("%s: connection was not closed", that.name)
	}
}

func expect[T any](t *testing.T, conn *fakeConn, msgType protocol.Type) T {
	t.Helper()

	msg := conn.next(t)
	require.Equal(t, msgType, msg.Type, "%s received %s", conn.name, msg.Type)

	payload, err := protocol.Decode[T](msg)
	require.NoError(t, err)

	return payload
}

func newManager(t *testing.T, opts SessionOptions, recorder resultRecorder) *SessionManager {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	manager := NewSessionManager(logger, opts, recorder)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), waitFor)
		defer cancel()
		require.NoError(t, manager.Shutdown(ctx))
	})

	return manager
}

// pair attaches two peers and consumes their opening messages.
func pair(t *testing.T, manager *SessionManager) (*fakeConn, *fakeConn) {
	t.Helper()

	playerX := newFakeConn("x")
	playerO := newFakeConn("o")
	require.NoError(t, manager.Attach(playerX))
	require.NoError(t, manager.Attach(playerO))

	assignX := expect[protocol.AssignSymbol](t, playerX, protocol.TypeAssignSymbol)
	assignO := expect[protocol.AssignSymbol](t, playerO, protocol.TypeAssignSymbol)
	require.Equal(t, entity.PlayerX, assignX.Symbol)
	require.Equal(t, entity.PlayerO, assignO.Symbol)
	require.Equal(t, assignX.SessionID, assignO.SessionID)

	for _, conn := range []*fakeConn{playerX, playerO} {
		update := expect[protocol.StateUpdate](t, conn, protocol.TypeStateUpdate)
		require.Equal(t, entity.PlayerX, update.ActiveSymbol)
		require.Equal(t, entity.NewBoard(entity.DefaultBoardSize).Rows(), update.Board)
	}

	return playerX, playerO
}

// playAndSync sends a move and consumes the state update on both sides.
func playAndSync(t *testing.T, mover *fakeConn, both [2]*fakeConn, row, col int) protocol.StateUpdate {
	t.Helper()

	mover.move(row, col)

	first := expect[protocol.StateUpdate](t, both[0], protocol.TypeStateUpdate)
	second := expect[protocol.StateUpdate](t, both[1], protocol.TypeStateUpdate)
	require.Equal(t, first, second)

	return first
}

var drawMoves = []entity.Move{
	{Row: 0, Col: 0}, {Row: 0, Col: 2},
	{Row: 0, Col: 1}, {Row: 0, Col: 3},
	{Row: 1, Col: 2}, {Row: 1, Col: 0},
	{Row: 1, Col: 3}, {Row: 1, Col: 1},
	{Row: 2, Col: 0}, {Row: 2, Col: 2},
	{Row: 2, Col: 1}, {Row: 2, Col: 3},
	{Row: 3, Col: 2}, {Row: 3, Col: 0},
	{Row: 3, Col: 3}, {Row: 3, Col: 1},
}

func playDraw(t *testing.T, playerX, playerO *fakeConn) {
	t.Helper()

	both := [2]*fakeConn{playerX, playerO}
	for i, m := range drawMoves {
		mover := playerX
		if i%2 == 1 {
			mover = playerO
		}
		playAndSync(t, mover, both, m.Row, m.Col)
	}

	for _, conn := range both {
		result := expect[protocol.GameResult](t, conn, protocol.TypeGameResult)
		require.Equal(t, entity.Draw(), result.Outcome)
		expect[protocol.RematchPrompt](t, conn, protocol.TypeRematchPrompt)
	}
}

func TestSessionManager_Game(t *testing.T) {
	t.Run("Moves are broadcast and turn order is enforced", func(t *testing.T) {
		// Given: two paired peers
		manager := newManager(t, SessionOptions{BoardSize: entity.DefaultBoardSize}, nil)
		playerX, playerO := pair(t, manager)
		both := [2]*fakeConn{playerX, playerO}

		// When: X plays (0, 0)
		update := playAndSync(t, playerX, both, 0, 0)

		// Then: both see X at (0, 0) and O to move
		assert.Equal(t, entity.PlayerX, update.Board[0][0])
		assert.Equal(t, entity.PlayerO, update.ActiveSymbol)

		// When: O answers
		update = playAndSync(t, playerO, both, 1, 1)

		// Then: the move is accepted
		assert.Equal(t, entity.PlayerO, update.Board[1][1])
		assert.Equal(t, entity.PlayerX, update.ActiveSymbol)

		// When: O moves again out of turn
		playerO.move(2, 2)

		// Then: only O is told it is not its turn
		rejection := expect[protocol.Error](t, playerO, protocol.TypeError)
		assert.Equal(t, "not_your_turn", rejection.Code)
		playerX.silent(t)

		// And: the board did not change
		update = playAndSync(t, playerX, both, 3, 3)
		assert.Equal(t, entity.EmptyCell, update.Board[2][2])
	})

	t.Run("Occupied cell is re-prompted", func(t *testing.T) {
		// Given: X holds (0, 0)
		manager := newManager(t, SessionOptions{BoardSize: entity.DefaultBoardSize}, nil)
		playerX, playerO := pair(t, manager)
		playAndSync(t, playerX, [2]*fakeConn{playerX, playerO}, 0, 0)

		// When: O picks the same cell
		playerO.move(0, 0)

		// Then: O gets occupied_cell and keeps the move
		rejection := expect[protocol.Error](t, playerO, protocol.TypeError)
		assert.Equal(t, "occupied_cell", rejection.Code)

		update := playAndSync(t, playerO, [2]*fakeConn{playerX, playerO}, 0, 1)
		assert.Equal(t, entity.PlayerO, update.Board[0][1])
	})

	t.Run("Move without coordinates is out of range", func(t *testing.T) {
		// Given: two paired peers
		manager := newManager(t, SessionOptions{BoardSize: entity.DefaultBoardSize}, nil)
		playerX, playerO := pair(t, manager)

		// When: X sends an empty move
		playerX.toServer <- protocol.Message{Version: protocol.Version, Type: protocol.TypeMove, Payload: json.RawMessage(`{}`)}

		// Then: X is re-prompted and (0, 0) stays empty
		rejection := expect[protocol.Error](t, playerX, protocol.TypeError)
		assert.Equal(t, "out_of_range", rejection.Code)
		playerO.silent(t)

		update := playAndSync(t, playerX, [2]*fakeConn{playerX, playerO}, 1, 1)
		assert.Equal(t, entity.EmptyCell, update.Board[0][0])
		assert.Equal(t, entity.PlayerX, update.Board[1][1])
	})

	t.Run("Unsupported message is rejected without ending the session", func(t *testing.T) {
		// Given: two paired peers
		manager := newManager(t, SessionOptions{BoardSize: entity.DefaultBoardSize}, nil)
		playerX, playerO := pair(t, manager)

		// When: X sends a server-only message
		playerX.send(protocol.TypeAssignSymbol, protocol.AssignSymbol{Symbol: entity.PlayerO})

		// Then: X is told and can still play
		rejection := expect[protocol.Error](t, playerX, protocol.TypeError)
		assert.Equal(t, "unsupported_message", rejection.Code)
		playAndSync(t, playerX, [2]*fakeConn{playerX, playerO}, 0, 0)
	})

	t.Run("Sessions are listed while active", func(t *testing.T) {
		// Given: two paired peers
		manager := newManager(t, SessionOptions{BoardSize: entity.DefaultBoardSize}, nil)
		pair(t, manager)

		// When: listing sessions
		summaries := manager.Sessions()

		// Then: the session waits for X's first move
		require.Len(t, summaries, 1)
		assert.Equal(t, session.StatePlayerXTurn, summaries[0].State)
		assert.Equal(t, 1, summaries[0].Round)
		assert.Equal(t, 1, manager.Count())
		assert.False(t, manager.HasWaitingPeer())
	})
}

func TestSessionManager_Rematch(t *testing.T) {
	t.Run("Draw and two yes votes start a fresh board", func(t *testing.T) {
		// Given: a recorder expecting one drawn round
		recorder := mockedUseCase.NewMockresultRecorder(t)
		recorder.EXPECT().
			Record(mock.Anything, mock.MatchedBy(func(result *entity.GameResult) bool {
				return result.Outcome == entity.Draw() && result.Round == 1 && result.Moves == 16
			})).
			Return(nil).
			Once()

		manager := newManager(t, SessionOptions{BoardSize: entity.DefaultBoardSize}, recorder)
		playerX, playerO := pair(t, manager)

		// When: the game is drawn and both vote yes
		playDraw(t, playerX, playerO)
		playerO.send(protocol.TypeRematchVote, protocol.NewRematchVote(true))
		playerX.silent(t)
		playerX.send(protocol.TypeRematchVote, protocol.NewRematchVote(true))

		// Then: both receive an empty board with X to move
		for _, conn := range []*fakeConn{playerX, playerO} {
			update := expect[protocol.StateUpdate](t, conn, protocol.TypeStateUpdate)
			assert.Equal(t, entity.NewBoard(entity.DefaultBoardSize).Rows(), update.Board)
			assert.Equal(t, entity.PlayerX, update.ActiveSymbol)
			assert.Equal(t, 2, update.Round)
		}
	})

	t.Run("A single no closes both connections", func(t *testing.T) {
		// Given: a drawn game
		recorder := mockedUseCase.NewMockresultRecorder(t)
		recorder.EXPECT().Record(mock.Anything, mock.Anything).Return(nil).Once()

		manager := newManager(t, SessionOptions{BoardSize: entity.DefaultBoardSize}, recorder)
		playerX, playerO := pair(t, manager)
		playDraw(t, playerX, playerO)

		// When: X votes no
		playerX.send(protocol.TypeRematchVote, protocol.NewRematchVote(false))

		// Then: both are told the session closed and are disconnected
		for _, conn := range []*fakeConn{playerX, playerO} {
			closed := expect[protocol.SessionClosed](t, conn, protocol.TypeSessionClosed)
			assert.Equal(t, protocol.ReasonRematchDeclined, closed.Reason)
			conn.waitClosed(t)
		}

		require.Eventually(t, func() bool { return manager.Count() == 0 }, waitFor, 10*time.Millisecond)
	})

	t.Run("Vote without an answer is rejected and the session stays open", func(t *testing.T) {
		// Given: a drawn game
		manager := newManager(t, SessionOptions{BoardSize: entity.DefaultBoardSize}, nil)
		playerX, playerO := pair(t, manager)
		playDraw(t, playerX, playerO)

		// When: X votes with an unknown field instead of an answer
		playerX.toServer <- protocol.Message{Version: protocol.Version, Type: protocol.TypeRematchVote, Payload: json.RawMessage(`{"vote":"maybe"}`)}

		// Then: only X is told the vote is invalid
		rejection := expect[protocol.Error](t, playerX, protocol.TypeError)
		assert.Equal(t, "invalid_vote", rejection.Code)
		playerO.silent(t)
		assert.Equal(t, 1, manager.Count())

		// And: two real yes votes still start the next round
		playerO.send(protocol.TypeRematchVote, protocol.NewRematchVote(true))
		playerX.send(protocol.TypeRematchVote, protocol.NewRematchVote(true))

		for _, conn := range []*fakeConn{playerX, playerO} {
			update := expect[protocol.StateUpdate](t, conn, protocol.TypeStateUpdate)
			assert.Equal(t, 2, update.Round)
		}
	})

	t.Run("Vote during play is invalid", func(t *testing.T) {
		// Given: a game in progress
		manager := newManager(t, SessionOptions{BoardSize: entity.DefaultBoardSize}, nil)
		playerX, _ := pair(t, manager)

		// When: X votes
		playerX.send(protocol.TypeRematchVote, protocol.NewRematchVote(true))

		// Then: the vote is rejected
		rejection := expect[protocol.Error](t, playerX, protocol.TypeError)
		assert.Equal(t, "invalid_vote", rejection.Code)
	})

	t.Run("Missing vote times out", func(t *testing.T) {
		// Given: a short rematch window and a won game
		opts := SessionOptions{BoardSize: entity.DefaultBoardSize, RematchTimeout: 100 * time.Millisecond}
		manager := newManager(t, opts, nil)
		playerX, playerO := pair(t, manager)
		both := [2]*fakeConn{playerX, playerO}

		for col := range 3 {
			playAndSync(t, playerX, both, 0, col)
			playAndSync(t, playerO, both, 1, col)
		}
		playAndSync(t, playerX, both, 0, 3)

		for _, conn := range both {
			result := expect[protocol.GameResult](t, conn, protocol.TypeGameResult)
			assert.Equal(t, entity.Win(entity.PlayerX), result.Outcome)
			expect[protocol.RematchPrompt](t, conn, protocol.TypeRematchPrompt)
		}

		// When: only O votes
		playerO.send(protocol.TypeRematchVote, protocol.NewRematchVote(true))

		// Then: the session closes once the window expires
		for _, conn := range both {
			closed := expect[protocol.SessionClosed](t, conn, protocol.TypeSessionClosed)
			assert.Equal(t, protocol.ReasonRematchTimeout, closed.Reason)
			conn.waitClosed(t)
		}
	})
}

func TestSessionManager_Disconnects(t *testing.T) {
	t.Run("Peer leaving mid-game notifies the opponent", func(t *testing.T) {
		// Given: a game in progress
		manager := newManager(t, SessionOptions{BoardSize: entity.DefaultBoardSize}, nil)
		playerX, playerO := pair(t, manager)
		playAndSync(t, playerX, [2]*fakeConn{playerX, playerO}, 0, 0)

		// When: X hangs up
		require.NoError(t, playerX.Close())

		// Then: O is told and disconnected
		expect[protocol.PeerDisconnected](t, playerO, protocol.TypePeerDisconnected)
		playerO.waitClosed(t)
		require.Eventually(t, func() bool { return manager.Count() == 0 }, waitFor, 10*time.Millisecond)
	})

	t.Run("Undecodable payload is fatal", func(t *testing.T) {
		// Given: a game in progress
		manager := newManager(t, SessionOptions{BoardSize: entity.DefaultBoardSize}, nil)
		playerX, playerO := pair(t, manager)

		// When: X sends a move that cannot be decoded
		playerX.toServer <- protocol.Message{Version: protocol.Version, Type: protocol.TypeMove, Payload: json.RawMessage(`"oops"`)}

		// Then: X gets a framing error, O learns its opponent is gone
		rejection := expect[protocol.Error](t, playerX, protocol.TypeError)
		assert.Equal(t, "framing_error", rejection.Code)
		expect[protocol.PeerDisconnected](t, playerO, protocol.TypePeerDisconnected)
		playerX.waitClosed(t)
		playerO.waitClosed(t)
	})

	t.Run("Idle mover times out", func(t *testing.T) {
		// Given: a short move window
		opts := SessionOptions{BoardSize: entity.DefaultBoardSize, MoveTimeout: 100 * time.Millisecond}
		manager := newManager(t, opts, nil)
		playerX, playerO := pair(t, manager)

		// When: X never moves
		// Then: both peers are told why the session closed
		for _, conn := range []*fakeConn{playerX, playerO} {
			closed := expect[protocol.SessionClosed](t, conn, protocol.TypeSessionClosed)
			assert.Equal(t, protocol.ReasonMoveTimeout, closed.Reason)
		}
	})

	t.Run("Waiting peer that leaves is not paired", func(t *testing.T) {
		// Given: a peer waiting for an opponent
		manager := newManager(t, SessionOptions{BoardSize: entity.DefaultBoardSize}, nil)
		early := newFakeConn("early")
		require.NoError(t, manager.Attach(early))
		require.True(t, manager.HasWaitingPeer())

		// When: it hangs up before anyone arrives
		require.NoError(t, early.Close())
		require.Eventually(t, func() bool { return !manager.HasWaitingPeer() }, waitFor, 10*time.Millisecond)

		// Then: the next two peers form a session on their own
		pair(t, manager)
		early.silent(t)
	})
}

func TestSessionManager_Shutdown(t *testing.T) {
	// Given: an active session
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	manager := NewSessionManager(logger, SessionOptions{}, nil)
	playerX, playerO := pair(t, manager)

	// When: the manager shuts down
	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()
	require.NoError(t, manager.Shutdown(ctx))

	// Then: both peers learn why and new connections are refused
	for _, conn := range []*fakeConn{playerX, playerO} {
		closed := expect[protocol.SessionClosed](t, conn, protocol.TypeSessionClosed)
		assert.Equal(t, protocol.ReasonServerShutdown, closed.Reason)
		conn.waitClosed(t)
	}

	late := newFakeConn("late")
	require.ErrorIs(t, manager.Attach(late), apperror.ErrSessionClosed)
	late.waitClosed(t)
}
