package handler

import (
	"net/http"

	"rally-api/internal/domain"
	"rally-api/internal/middleware"
	"rally-api/internal/service"
	"rally-api/pkg/logger"

	"github.com/go-chi/chi/v5"
)

// RallyHandler serves rallies and event feeds
type RallyHandler struct {
	rallies service.RallyService
	logger  *logger.Logger
}

// NewRallyHandler creates a new rally handler
func NewRallyHandler(rallies service.RallyService, logger *logger.Logger) *RallyHandler {
	return &RallyHandler{
		rallies: rallies,
		logger:  logger,
	}
}

// CastRally handles POST /api/v1/captures/{captureId}/rally
func (h *RallyHandler) CastRally(w http.ResponseWriter, r *http.Request) {
	result, err := h.rallies.CastRally(r.Context(), chi.URLParam(r, "captureId"), middleware.UserID(r.Context()))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusCreated, result)
}

// GetFeed handles GET /api/v1/events/{eventId}/feed. Anonymous viewers get
// the feed without personal rally flags.
func (h *RallyHandler) GetFeed(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	sort := domain.ParseFeedSort(r.URL.Query().Get("sort"))
	feed, err := h.rallies.GetFeed(r.Context(), chi.URLParam(r, "eventId"), middleware.UserID(r.Context()), sort, limit)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	// Personalised feeds must not be shared by intermediaries
	w.Header().Set("Cache-Control", "private, no-store")
	respondJSON(w, http.StatusOK, feed)
}
