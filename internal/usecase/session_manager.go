package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rocketscienceinc/gato-backend/internal/apperror"
	"github.com/rocketscienceinc/gato-backend/internal/entity"
	"github.com/rocketscienceinc/gato-backend/internal/session"
)

type resultRecorder interface {
	Record(ctx context.Context, result *entity.GameResult) error
}

type SessionOptions struct {
	BoardSize      int
	MoveTimeout    time.Duration
	RematchTimeout time.Duration
}

// SessionManager pairs incoming connections and runs one goroutine per session.
type SessionManager struct {
	logger   *slog.Logger
	opts     SessionOptions
	recorder resultRecorder

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.RWMutex
	sessions map[string]*sessionRunner
	waiting  *peer
	closed   bool
}

// NewSessionManager - recorder may be nil, finished games are then not recorded.
func NewSessionManager(logger *slog.Logger, opts SessionOptions, recorder resultRecorder) *SessionManager {
	if opts.BoardSize < 1 {
		opts.BoardSize = entity.DefaultBoardSize
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &SessionManager{
		logger:   logger.With("component", "session_manager"),
		opts:     opts,
		recorder: recorder,

		ctx:    ctx,
		cancel: cancel,

		sessions: make(map[string]*sessionRunner),
	}
}

// Attach - takes ownership of conn. The connection either waits for an opponent or is paired
// with the peer already waiting, the earlier peer playing X.
func (that *SessionManager) Attach(conn Conn) error {
	log := that.logger.With("method", "Attach", "remote", conn.RemoteAddr())

	incoming := newPeer(conn)

	that.mu.Lock()
	if that.closed {
		that.mu.Unlock()
		_ = conn.Close()

		return fmt.Errorf("failed to attach connection: %w", apperror.ErrSessionClosed)
	}

	first := that.waiting
	if first == nil || first.gone() {
		that.waiting = incoming
		that.mu.Unlock()

		go incoming.listen()
		go that.watchWaiting(incoming)

		log.Info("peer is waiting for an opponent", "peer_id", incoming.id)

		return nil
	}

	that.waiting = nil

	id := uuid.NewString()
	runner := newSessionRunner(that.logger, that.opts, that.recorder, id, first, incoming)
	that.sessions[id] = runner
	that.wg.Add(1)
	that.mu.Unlock()

	close(first.paired)
	go incoming.listen()

	go func() {
		defer that.wg.Done()
		defer that.remove(id)

		runner.run(that.ctx)
	}()

	log.Info("session formed", "session_id", id, "player_x", first.id, "player_o", incoming.id)

	return nil
}

// watchWaiting - forgets the waiting peer if it leaves before an opponent arrives.
func (that *SessionManager) watchWaiting(p *peer) {
	select {
	case <-p.paired:
		return
	case <-p.done:
	}

	that.mu.Lock()
	if that.waiting == p {
		that.waiting = nil
	}
	that.mu.Unlock()

	p.close()

	that.logger.Info("waiting peer left", "peer_id", p.id, "cause", p.cause())
}

func (that *SessionManager) remove(id string) {
	that.mu.Lock()
	delete(that.sessions, id)
	that.mu.Unlock()
}

// Sessions - lists active sessions ordered by id.
func (that *SessionManager) Sessions() []session.Summary {
	that.mu.RLock()
	summaries := make([]session.Summary, 0, len(that.sessions))
	for _, runner := range that.sessions {
		summaries = append(summaries, runner.Summary())
	}
	that.mu.RUnlock()

	slices.SortFunc(summaries, func(a, b session.Summary) int {
		return strings.Compare(a.ID, b.ID)
	})

	return summaries
}

func (that *SessionManager) Count() int {
	that.mu.RLock()
	defer that.mu.RUnlock()

	return len(that.sessions)
}

func (that *SessionManager) HasWaitingPeer() bool {
	that.mu.RLock()
	defer that.mu.RUnlock()

	return that.waiting != nil && !that.waiting.gone()
}

// Shutdown - refuses new connections, closes every session and waits for their goroutines.
func (that *SessionManager) Shutdown(ctx context.Context) error {
	log := that.logger.With("method", "Shutdown")

	that.mu.Lock()
	that.closed = true
	waiting := that.waiting
	that.waiting = nil
	active := len(that.sessions)
	that.mu.Unlock()

	if waiting != nil {
		waiting.close()
	}

	that.cancel()

	done := make(chan struct{})
	go func() {
		that.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info("all sessions closed", "sessions", active)
		return nil
	case <-ctx.Done():
		return fmt.Errorf("failed to close sessions: %w", ctx.Err())
	}
}
