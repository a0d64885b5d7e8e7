package handler

import (
	"net/http"

	"rally-api/internal/middleware"
	"rally-api/internal/service"
	"rally-api/pkg/logger"

	"github.com/go-chi/chi/v5"
)

// ReportHandler serves leaderboards, attribution, points and crowning
type ReportHandler struct {
	reports service.ReportService
	crowns  service.CrownService
	logger  *logger.Logger
}

// NewReportHandler creates a new report handler
func NewReportHandler(reports service.ReportService, crowns service.CrownService, logger *logger.Logger) *ReportHandler {
	return &ReportHandler{
		reports: reports,
		crowns:  crowns,
		logger:  logger,
	}
}

// SeasonLeaderboard handles GET /api/v1/leaderboard/season
func (h *ReportHandler) SeasonLeaderboard(w http.ResponseWriter, r *http.Request) {
	view, err := h.reports.SeasonLeaderboard(r.Context())
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	w.Header().Set("Cache-Control", "public, max-age=30")
	respondJSON(w, http.StatusOK, view)
}

// PointsSummary handles GET /api/v1/me/points
func (h *ReportHandler) PointsSummary(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	summary, err := h.reports.PointsSummary(r.Context(), middleware.UserID(r.Context()), limit)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, summary)
}

// Attribution handles GET /api/v1/admin/attribution
func (h *ReportHandler) Attribution(w http.ResponseWriter, r *http.Request) {
	windowDays, err := queryInt(r, "windowDays")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	view, err := h.reports.Attribution(r.Context(), windowDays)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, view)
}

// CrownMomentOfGame handles POST /api/v1/admin/events/{eventId}/crown
func (h *ReportHandler) CrownMomentOfGame(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventId")

	result, err := h.crowns.CrownMomentOfGame(r.Context(), eventID)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	h.logger.WithFields(map[string]interface{}{
		"event_id":   eventID,
		"admin_id":   middleware.UserID(r.Context()),
		"capture_id": result.CaptureID,
	}).Info("Moment of the Game crowned by admin")

	respondJSON(w, http.StatusOK, result)
}
