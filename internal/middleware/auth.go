package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"rally-api/internal/domain"
	"rally-api/internal/service"
	"rally-api/pkg/errors"
	"rally-api/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ContextKey represents keys used in request context
type ContextKey string

const (
	// UserContextKey is the key for user information in context
	UserContextKey ContextKey = "user"
	// RequestIDContextKey is the key for request ID in context
	RequestIDContextKey ContextKey = "request_id"
)

// Auth rejects requests without a valid bearer token
func Auth(authService service.AuthService, logger *logger.Logger) func(http.Handler) http.Handler {
	return authenticate(authService, logger, true)
}

// OptionalAuth validates a bearer token when one is sent and otherwise lets
// the request through anonymously
func OptionalAuth(authService service.AuthService, logger *logger.Logger) func(http.Handler) http.Handler {
	return authenticate(authService, logger, false)
}

func authenticate(authService service.AuthService, logger *logger.Logger, required bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				if required {
					writeErrorResponse(w, r, errors.NewAuthenticationError("Authorization header is required"), logger)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			if !strings.HasPrefix(authHeader, "Bearer ") {
				writeErrorResponse(w, r, errors.NewAuthenticationError("Invalid authorization header format"), logger)
				return
			}

			token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
			if token == "" {
				writeErrorResponse(w, r, errors.NewAuthenticationError("Token is required"), logger)
				return
			}

			user, err := authService.ValidateToken(r.Context(), token)
			if err != nil {
				appErr, ok := err.(*errors.AppError)
				if !ok {
					appErr = errors.NewAuthenticationError("Invalid or expired token")
				}
				writeErrorResponse(w, r, appErr, logger)
				return
			}

			ctx := context.WithValue(r.Context(), UserContextKey, user)
			logger.Debug("User authenticated", zap.String("user_id", user.Sub))

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin lets only admin callers through. It must run after Auth.
func RequireAdmin(logger *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := UserFromContext(r.Context())
			if user == nil {
				writeErrorResponse(w, r, errors.NewAuthenticationError("Authentication required"), logger)
				return
			}
			if !user.IsAdmin() {
				writeErrorResponse(w, r, errors.NewAuthorizationError("Admin role required"), logger)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// UserFromContext returns the authenticated caller, or nil for anonymous requests
func UserFromContext(ctx context.Context) *domain.UserProfile {
	user, _ := ctx.Value(UserContextKey).(*domain.UserProfile)
	return user
}

// UserID returns the authenticated caller's id, or "" for anonymous requests
func UserID(ctx context.Context) string {
	if user := UserFromContext(ctx); user != nil {
		return user.Sub
	}
	return ""
}

// RequestID tags each request with an id, reusing X-Request-ID when the
// caller already sent one
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}

		ctx := context.WithValue(r.Context(), RequestIDContextKey, requestID)
		w.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID returns the request id set by RequestID
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDContextKey).(string)
	return id
}

// writeErrorResponse writes an error response to the client
func writeErrorResponse(w http.ResponseWriter, r *http.Request, appErr *errors.AppError, logger *logger.Logger) {
	logger.Debug("Request rejected",
		zap.String("path", r.URL.Path),
		zap.String("type", string(appErr.Type)),
		zap.String("message", appErr.Message))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.StatusCode)
	_ = json.NewEncoder(w).Encode(appErr.Response(GetRequestID(r.Context())))
}
