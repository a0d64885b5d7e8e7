package handler

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"rally-api/internal/domain"
	"rally-api/internal/middleware"
	"rally-api/pkg/errors"
	"rally-api/pkg/logger"

	"go.uber.org/zap"
)

// maxBodyBytes caps JSON request bodies
const maxBodyBytes = 1 << 20

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// respondError maps service errors onto the HTTP error taxonomy. Anything
// that is not a known domain error is logged and reported as opaque 500.
func respondError(w http.ResponseWriter, r *http.Request, log *logger.Logger, err error) {
	appErr := toAppError(err)
	requestID := middleware.GetRequestID(r.Context())

	if appErr.Type == errors.ErrorTypeInternal {
		log.Error("Request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", requestID),
			zap.Error(err))
	} else {
		log.Debug("Request rejected",
			zap.String("path", r.URL.Path),
			zap.String("type", string(appErr.Type)),
			zap.String("message", appErr.Message))
	}

	respondJSON(w, appErr.StatusCode, appErr.Response(requestID))
}

func toAppError(err error) *errors.AppError {
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}

	switch {
	case stderrors.Is(err, domain.ErrValidation):
		return errors.NewValidationError(detail(err, domain.ErrValidation), nil)
	case stderrors.Is(err, domain.ErrNotFound):
		return errors.NewNotFoundError(detail(err, domain.ErrNotFound))
	case stderrors.Is(err, domain.ErrForbidden):
		return errors.NewForbiddenError(detail(err, domain.ErrForbidden))
	case stderrors.Is(err, domain.ErrInvalidState):
		return errors.NewInvalidStateError(detail(err, domain.ErrInvalidState))
	case stderrors.Is(err, domain.ErrConflict):
		return errors.NewConflictError(detail(err, domain.ErrConflict))
	default:
		return errors.NewInternalError("Internal server error", err)
	}
}

// detail strips the sentinel prefix so clients see "capture abc" rather
// than "not found: capture abc"
func detail(err, sentinel error) string {
	msg := err.Error()
	if i := strings.Index(msg, sentinel.Error()+": "); i >= 0 {
		return msg[i+len(sentinel.Error())+2:]
	}
	return msg
}

// decodeJSON reads a JSON body into v, allowing an empty body
func decodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !stderrors.Is(err, io.EOF) {
		return errors.NewValidationError("Invalid request body", map[string]interface{}{"reason": err.Error()})
	}
	return nil
}

// queryInt parses an optional integer query parameter, returning 0 when absent
func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.NewValidationError(fmt.Sprintf("%s must be an integer", name), nil)
	}
	return v, nil
}
