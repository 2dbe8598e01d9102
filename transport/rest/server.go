package rest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const (
	readHeaderTimeout = 10 * time.Second
	idleTimeout       = 30 * time.Second
	shutdownTimeout   = 5 * time.Second
)

// NewRouter - monitoring routes plus the websocket endpoint. ws may be nil.
func NewRouter(logger *slog.Logger, sessions sessionLister, results resultService, ws http.Handler) http.Handler {
	h := &handlers{
		logger:   logger.With("component", "rest"),
		sessions: sessions,
		results:  results,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(h.logger))
	r.Use(middleware.Recoverer)

	r.Get("/ping", h.Ping)
	r.Get("/sessions", h.Sessions)

	r.Route("/results", func(r chi.Router) {
		r.Get("/", h.Results)
		r.Get("/stats", h.Stats)
		r.Get("/{id}", h.Result)
	})

	if ws != nil {
		r.Handle("/ws", ws)
	}

	return r
}

// requestLogger - logs one line per request through slog.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			defer func() {
				logger.Debug("request served",
					"request_id", middleware.GetReqID(r.Context()),
					"method", r.Method,
					"path", r.URL.Path,
					"status", ww.Status(),
					"duration", time.Since(start),
				)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

// Start - serves handler on address until ctx is done, then shuts down gracefully.
func Start(ctx context.Context, logger *slog.Logger, address string, handler http.Handler) error {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", address, err)
	}

	return Serve(ctx, logger, listener, handler)
}

// Serve - like Start, on an existing listener.
func Serve(ctx context.Context, logger *slog.Logger, listener net.Listener, handler http.Handler) error {
	log := logger.With("component", "rest", "method", "Serve", "address", listener.Addr().String())

	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		IdleTimeout:       idleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting HTTP server")
		errCh <- srv.Serve(listener)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return fmt.Errorf("failed to serve HTTP: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down HTTP server: %w", err)
	}

	log.Info("HTTP server stopped")

	return nil
}
