package handler

import (
	"net/http"

	"rally-api/internal/domain"
	"rally-api/internal/middleware"
	"rally-api/internal/service"
	"rally-api/pkg/logger"

	"github.com/go-chi/chi/v5"
)

// CaptureHandler serves capture posting, lookup and reporting
type CaptureHandler struct {
	captures service.CaptureService
	logger   *logger.Logger
}

// NewCaptureHandler creates a new capture handler
func NewCaptureHandler(captures service.CaptureService, logger *logger.Logger) *CaptureHandler {
	return &CaptureHandler{
		captures: captures,
		logger:   logger,
	}
}

// PostCapture handles POST /api/v1/events/{eventId}/captures
func (h *CaptureHandler) PostCapture(w http.ResponseWriter, r *http.Request) {
	var req domain.PostCaptureRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	// Identity and target come from the token and path, never the body
	req.EventID = chi.URLParam(r, "eventId")
	req.UserID = middleware.UserID(r.Context())

	result, err := h.captures.PostCapture(r.Context(), req)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusCreated, result)
}

// GetCapture handles GET /api/v1/captures/{captureId}
func (h *CaptureHandler) GetCapture(w http.ResponseWriter, r *http.Request) {
	capture, err := h.captures.GetCapture(r.Context(), chi.URLParam(r, "captureId"))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, capture)
}

// ReportCapture handles POST /api/v1/captures/{captureId}/report
func (h *CaptureHandler) ReportCapture(w http.ResponseWriter, r *http.Request) {
	captureID := chi.URLParam(r, "captureId")
	if err := h.captures.ReportCapture(r.Context(), captureID, middleware.UserID(r.Context())); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"capture_id": captureID,
		"reported":   true,
	})
}
