package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rocketscienceinc/gato-backend/internal/apperror"
	"github.com/rocketscienceinc/gato-backend/internal/entity"
	"github.com/rocketscienceinc/gato-backend/internal/protocol"
	"github.com/rocketscienceinc/gato-backend/internal/session"
)

const recordTimeout = 2 * time.Second

// sessionRunner is the only goroutine that touches its session. Every accepted move is
// broadcast to both peers before the next inbound message is read.
type sessionRunner struct {
	logger   *slog.Logger
	opts     SessionOptions
	recorder resultRecorder

	session *session.Session
	peers   [2]*peer

	timer       *time.Timer
	timerReason string

	mu      sync.RWMutex
	summary session.Summary
}

func newSessionRunner(logger *slog.Logger, opts SessionOptions, recorder resultRecorder, id string, first, second *peer) *sessionRunner {
	s := session.New(id, opts.BoardSize)

	return &sessionRunner{
		logger:   logger.With("component", "session", "session_id", id),
		opts:     opts,
		recorder: recorder,
		session:  s,
		peers:    [2]*peer{first, second},
		summary:  s.Summary(),
	}
}

func (that *sessionRunner) Summary() session.Summary {
	that.mu.RLock()
	defer that.mu.RUnlock()

	return that.summary
}

func (that *sessionRunner) publish() {
	summary := that.session.Summary()

	that.mu.Lock()
	that.summary = summary
	that.mu.Unlock()
}

func (that *sessionRunner) run(ctx context.Context) {
	log := that.logger.With("method", "run")
	defer that.teardown()

	if !that.start() {
		return
	}

	for {
		select {
		case <-ctx.Done():
			that.closeWith(protocol.ReasonServerShutdown)
			return
		case msg := <-that.peers[0].inbound:
			if !that.handle(ctx, 0, msg) {
				return
			}
		case msg := <-that.peers[1].inbound:
			if !that.handle(ctx, 1, msg) {
				return
			}
		case <-that.peers[0].done:
			if that.drain(ctx, 0) {
				that.drop(0, that.peers[0].cause())
			}
			return
		case <-that.peers[1].done:
			if that.drain(ctx, 1) {
				that.drop(1, that.peers[1].cause())
			}
			return
		case <-that.timerC():
			log.Info("timer expired", "reason", that.timerReason)
			that.closeWith(that.timerReason)
			return
		}
	}
}

// start - seats both peers, assigns symbols and sends the opening board.
func (that *sessionRunner) start() bool {
	for i, p := range that.peers {
		player, err := that.session.Attach(p.id)
		if err != nil {
			that.logger.Error("failed to seat peer", "peer_id", p.id, "error", err)
			that.closeWith(protocol.ReasonProtocolError)
			return false
		}

		assign := protocol.MustNew(protocol.TypeAssignSymbol, protocol.AssignSymbol{
			Symbol:    player.Symbol,
			SessionID: that.session.ID(),
			BoardSize: that.opts.BoardSize,
		})

		if err = that.send(i, assign); err != nil {
			that.drop(i, err)
			return false
		}
	}

	that.publish()
	that.arm(that.opts.MoveTimeout, protocol.ReasonMoveTimeout)

	return that.broadcast(that.stateUpdate())
}

// drain - handles messages a departed peer sent before leaving. Reports whether the session is still open.
func (that *sessionRunner) drain(ctx context.Context, i int) bool {
	for {
		select {
		case msg := <-that.peers[i].inbound:
			if !that.handle(ctx, i, msg) {
				return false
			}
		default:
			return true
		}
	}
}

// handle - processes one inbound message, returning false once the session has ended.
func (that *sessionRunner) handle(ctx context.Context, i int, msg protocol.Message) bool {
	switch msg.Type {
	case protocol.TypeMove:
		return that.handleMove(ctx, i, msg)
	case protocol.TypeRematchVote:
		return that.handleVote(i, msg)
	default:
		return that.reject(i, fmt.Errorf("%w: %s", apperror.ErrUnsupportedMessage, msg.Type))
	}
}

func (that *sessionRunner) handleMove(ctx context.Context, i int, msg protocol.Message) bool {
	log := that.logger.With("method", "handleMove", "peer_id", that.peers[i].id)

	move, err := protocol.Decode[protocol.Move](msg)
	if err != nil {
		that.drop(i, err)
		return false
	}

	if move.Row == nil || move.Col == nil {
		return that.reject(i, fmt.Errorf("%w: missing coordinate", apperror.ErrOutOfRange))
	}

	row, col := *move.Row, *move.Col

	outcome, err := that.session.ApplyMove(that.peers[i].id, row, col)
	if err != nil {
		log.Debug("move rejected", "row", row, "col", col, "error", err)
		return that.reject(i, err)
	}

	log.Debug("move accepted", "row", row, "col", col)
	that.publish()

	if !that.broadcast(that.stateUpdate()) {
		return false
	}

	if !outcome.IsTerminal() {
		that.arm(that.opts.MoveTimeout, protocol.ReasonMoveTimeout)
		return true
	}

	return that.finishRound(ctx, outcome)
}

func (that *sessionRunner) finishRound(ctx context.Context, outcome entity.Outcome) bool {
	log := that.logger.With("method", "finishRound")
	log.Info("game over", "outcome", outcome.String(), "round", that.session.Round())

	board := that.session.Board()

	if !that.broadcast(protocol.MustNew(protocol.TypeGameResult, protocol.GameResult{Outcome: outcome})) {
		return false
	}

	if err := that.session.PromptRematch(); err != nil {
		log.Error("failed to open rematch vote", "error", err)
		that.closeWith(protocol.ReasonProtocolError)
		return false
	}

	that.publish()

	prompt := protocol.RematchPrompt{TimeoutSeconds: int(that.opts.RematchTimeout / time.Second)}
	if !that.broadcast(protocol.MustNew(protocol.TypeRematchPrompt, prompt)) {
		return false
	}

	that.arm(that.opts.RematchTimeout, protocol.ReasonRematchTimeout)
	that.record(ctx, outcome, board)

	return true
}

func (that *sessionRunner) handleVote(i int, msg protocol.Message) bool {
	log := that.logger.With("method", "handleVote", "peer_id", that.peers[i].id)

	vote, err := protocol.Decode[protocol.RematchVote](msg)
	if err != nil {
		that.drop(i, err)
		return false
	}

	if vote.Yes == nil {
		return that.reject(i, fmt.Errorf("%w: missing answer", apperror.ErrInvalidVote))
	}

	result, err := that.session.Vote(that.peers[i].id, *vote.Yes)
	if err != nil {
		log.Debug("vote rejected", "error", err)
		return that.reject(i, err)
	}

	switch result {
	case session.VoteDeclined:
		log.Info("rematch declined")
		that.closeWith(protocol.ReasonRematchDeclined)
		return false
	case session.VoteRematch:
		log.Info("rematch accepted", "round", that.session.Round())
		that.publish()
		that.arm(that.opts.MoveTimeout, protocol.ReasonMoveTimeout)
		return that.broadcast(that.stateUpdate())
	default:
		return true
	}
}

func (that *sessionRunner) record(ctx context.Context, outcome entity.Outcome, board *entity.Board) {
	if that.recorder == nil {
		return
	}

	log := that.logger.With("method", "record")

	result := &entity.GameResult{
		ID:         uuid.NewString(),
		SessionID:  that.session.ID(),
		Round:      that.session.Round(),
		Outcome:    outcome,
		Board:      board.Rows(),
		Moves:      board.Filled(),
		FinishedAt: time.Now().UTC(),
	}

	ctx, cancel := context.WithTimeout(ctx, recordTimeout)
	defer cancel()

	if err := that.recorder.Record(ctx, result); err != nil {
		log.Error("failed to record game result", "error", err)
		return
	}

	log.Debug("game result recorded", "result_id", result.ID)
}

func (that *sessionRunner) stateUpdate() protocol.Message {
	return protocol.MustNew(protocol.TypeStateUpdate, protocol.StateUpdate{
		Board:        that.session.Board().Rows(),
		ActiveSymbol: that.session.ActiveSymbol(),
		Round:        that.session.Round(),
	})
}

func (that *sessionRunner) send(i int, msg protocol.Message) error {
	if err := that.peers[i].conn.WriteMessage(msg); err != nil {
		return fmt.Errorf("failed to send %s: %w", msg.Type, err)
	}

	return nil
}

// broadcast - sends msg to both peers; a failed write ends the session.
func (that *sessionRunner) broadcast(msg protocol.Message) bool {
	for i := range that.peers {
		if err := that.send(i, msg); err != nil {
			that.drop(i, err)
			return false
		}
	}

	return true
}

// reject - answers a recoverable error to the sender only.
func (that *sessionRunner) reject(i int, cause error) bool {
	if err := that.send(i, protocol.NewError(cause)); err != nil {
		that.drop(i, err)
		return false
	}

	return true
}

// drop - ends the session because peer i is gone or misbehaved. The other peer is told
// its opponent disconnected.
func (that *sessionRunner) drop(i int, cause error) {
	log := that.logger.With("method", "drop", "peer_id", that.peers[i].id)

	if errors.Is(cause, apperror.ErrFraming) {
		log.Warn("protocol violation", "error", cause)
		_ = that.send(i, protocol.NewError(cause))
	} else {
		log.Info("peer disconnected", "cause", cause)
	}

	that.session.Close()
	that.publish()

	other := 1 - i
	notice := protocol.MustNew(protocol.TypePeerDisconnected, protocol.PeerDisconnected{})
	if err := that.send(other, notice); err != nil {
		log.Debug("failed to notify opponent", "error", err)
	}
}

// closeWith - ends the session and tells both peers why.
func (that *sessionRunner) closeWith(reason string) {
	that.session.Close()
	that.publish()

	notice := protocol.MustNew(protocol.TypeSessionClosed, protocol.SessionClosed{Reason: reason})
	for i := range that.peers {
		if err := that.send(i, notice); err != nil {
			that.logger.Debug("failed to deliver closure", "peer_id", that.peers[i].id, "error", err)
		}
	}
}

func (that *sessionRunner) teardown() {
	if that.timer != nil {
		that.timer.Stop()
	}

	for _, p := range that.peers {
		p.close()
	}

	that.logger.Info("session closed", "round", that.session.Round())
}

// arm - restarts the inactivity timer, d <= 0 disables it.
func (that *sessionRunner) arm(d time.Duration, reason string) {
	if that.timer != nil {
		that.timer.Stop()
		that.timer = nil
	}

	if d <= 0 {
		return
	}

	that.timer = time.NewTimer(d)
	that.timerReason = reason
}

func (that *sessionRunner) timerC() <-chan time.Time {
	if that.timer == nil {
		return nil
	}

	return that.timer.C
}
