package handler

import (
	"context"
	"net/http"
	"time"

	"rally-api/internal/container"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	container *container.Container
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(container *container.Container) *HealthHandler {
	return &HealthHandler{
		container: container,
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status     string            `json:"status"`
	Timestamp  time.Time         `json:"timestamp"`
	Version    string            `json:"version"`
	Service    string            `json:"service"`
	Components map[string]string `json:"components"`
}

// Check handles GET /health
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	logger := h.container.GetLogger()

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	components, err := h.container.HealthCheck(ctx)

	response := HealthResponse{
		Status:     "healthy",
		Timestamp:  time.Now().UTC(),
		Version:    "1.0.0",
		Service:    "rally-api",
		Components: components,
	}
	status := http.StatusOK
	if err != nil {
		logger.WithError(err).Error("Health check failed")
		response.Status = "unhealthy"
		status = http.StatusServiceUnavailable
	}

	respondJSON(w, status, response)
}
