package tcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/rocketscienceinc/gato-backend/internal/usecase"
)

const keepAlivePeriod = 30 * time.Second

type sessionAttacher interface {
	Attach(conn usecase.Conn) error
}

type Server struct {
	logger       *slog.Logger
	manager      sessionAttacher
	writeTimeout time.Duration

	listener net.Listener
}

func New(logger *slog.Logger, manager sessionAttacher, writeTimeout time.Duration) *Server {
	return &Server{
		logger:       logger.With("component", "tcp_server"),
		manager:      manager,
		writeTimeout: writeTimeout,
	}
}

// Start - listens on address and serves until ctx is done.
func (that *Server) Start(ctx context.Context, address string) error {
	if err := that.Listen(address); err != nil {
		return err
	}

	return that.Serve(ctx)
}

func (that *Server) Listen(address string) error {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", address, err)
	}

	that.listener = listener

	return nil
}

// Addr - bound address, nil before Listen.
func (that *Server) Addr() net.Addr {
	if that.listener == nil {
		return nil
	}

	return that.listener.Addr()
}

// Serve - accepts connections and hands each one to the session manager.
func (that *Server) Serve(ctx context.Context) error {
	log := that.logger.With("method", "Serve", "address", that.listener.Addr().String())

	stop := make(chan struct{})
	defer close(stop)

	go func() {
		select {
		case <-ctx.Done():
		case <-stop:
		}
		_ = that.listener.Close()
	}()

	log.Info("accepting connections")

	for {
		conn, err := that.listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				log.Info("listener stopped")
				return nil
			}

			return fmt.Errorf("failed to accept connection: %w", err)
		}

		if tcpConn, ok := conn.(*net.TCPConn); ok {
			_ = tcpConn.SetKeepAlive(true)
			_ = tcpConn.SetKeepAlivePeriod(keepAlivePeriod)
		}

		log.Debug("connection accepted", "remote", conn.RemoteAddr().String())

		if err = that.manager.Attach(NewConn(conn, that.writeTimeout)); err != nil {
			log.Warn("connection refused", "remote", conn.RemoteAddr().String(), "error", err)
		}
	}
}
