package websocket

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rocketscienceinc/gato-backend/internal/usecase"
)

type sessionAttacher interface {
	Attach(conn usecase.Conn) error
}

// Server upgrades HTTP requests and hands the connections to the session manager.
type Server struct {
	logger       *slog.Logger
	manager      sessionAttacher
	writeTimeout time.Duration
	upgrader     websocket.Upgrader
}

func New(logger *slog.Logger, manager sessionAttacher, writeTimeout time.Duration) *Server {
	return &Server{
		logger:       logger.With("component", "websocket_server"),
		manager:      manager,
		writeTimeout: writeTimeout,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

func (that *Server) ServeHTTP(writer http.ResponseWriter, req *http.Request) {
	log := that.logger.With("method", "ServeHTTP", "remote", req.RemoteAddr)

	ws, err := that.upgrader.Upgrade(writer, req, nil)
	if err != nil {
		log.Warn("failed to upgrade connection", "error", err)
		return
	}

	log.Info("websocket connection established")

	if err = that.manager.Attach(NewConn(ws, that.writeTimeout)); err != nil {
		log.Warn("connection refused", "error", err)
	}
}
