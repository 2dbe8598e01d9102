package rest

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/rocketscienceinc/gato-backend/internal/apperror"
	"github.com/rocketscienceinc/gato-backend/internal/entity"
	"github.com/rocketscienceinc/gato-backend/internal/session"
)

type sessionLister interface {
	Sessions() []session.Summary
	HasWaitingPeer() bool
}

type resultService interface {
	GetByID(ctx context.Context, id string) (*entity.GameResult, error)
	Recent(ctx context.Context, limit int) ([]*entity.GameResult, error)
	Stats(ctx context.Context) (entity.ResultStats, error)
}

type sessionsResponse struct {
	Sessions []session.Summary `json:"sessions"`
	Waiting  bool              `json:"waiting"`
}

type resultsResponse struct {
	Results []*entity.GameResult `json:"results"`
}

type statsResponse struct {
	entity.ResultStats
	Total int64 `json:"total"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type handlers struct {
	logger *slog.Logger

	sessions sessionLister
	results  resultService
}

func (that *handlers) Ping(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("pong")); err != nil {
		that.logger.Debug("failed to write pong", "error", err)
	}
}

func (that *handlers) Sessions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, sessionsResponse{
		Sessions: that.sessions.Sessions(),
		Waiting:  that.sessions.HasWaitingPeer(),
	})
}

func (that *handlers) Results(w http.ResponseWriter, r *http.Request) {
	log := that.logger.With("method", "Results")

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "limit must be a positive integer"})
			return
		}

		limit = parsed
	}

	results, err := that.results.Recent(r.Context(), limit)
	if err != nil {
		log.Error("failed to list results", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, resultsResponse{Results: results})
}

func (that *handlers) Result(w http.ResponseWriter, r *http.Request) {
	log := that.logger.With("method", "Result")

	result, err := that.results.GetByID(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, apperror.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "result not found"})
		return
	}

	if err != nil {
		log.Error("failed to get result", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (that *handlers) Stats(w http.ResponseWriter, r *http.Request) {
	log := that.logger.With("method", "Stats")

	stats, err := that.results.Stats(r.Context())
	if err != nil {
		log.Error("failed to get stats", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, statsResponse{ResultStats: stats, Total: stats.Total()})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
