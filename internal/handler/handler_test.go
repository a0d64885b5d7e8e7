package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"rally-api/internal/config"
	"rally-api/internal/container"
	"rally-api/internal/domain"
	"rally-api/pkg/errors"
	"rally-api/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	t      *testing.T
	c      *container.Container
	router http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	cfg := &config.Config{
		Environment:    "development",
		JWTSecret:      "handler-secret",
		MetricsEnabled: true,
	}
	c, err := container.New(context.Background(), cfg, logger.NewNop())
	require.NoError(t, err)

	return &testServer{t: t, c: c, router: NewRouter(c)}
}

func (s *testServer) token(userID, role string) string {
	s.t.Helper()
	token, err := s.c.GetAuthService().IssueToken(userID, role, time.Hour)
	require.NoError(s.t, err)
	return token
}

func (s *testServer) do(method, path, token, body string) *httptest.ResponseRecorder {
	s.t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (s *testServer) postCapture(userID, eventID string) *domain.Capture {
	s.t.Helper()
	rec := s.do(http.MethodPost, "/api/v1/events/"+eventID+"/captures", s.token(userID, ""), `{"image_ref":"uploads/x.jpg"}`)
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[domain.PostCaptureResult](s.t, rec).Capture
}

func TestPostCapture(t *testing.T) {
	s := newTestServer(t)
	alice := s.token("alice", "")

	t.Run("requires a token", func(t *testing.T) {
		rec := s.do(http.MethodPost, "/api/v1/events/demo-final/captures", "", `{"image_ref":"a.jpg"}`)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("created", func(t *testing.T) {
		rec := s.do(http.MethodPost, "/api/v1/events/demo-final/captures", alice,
			`{"image_ref":"a.jpg","caption":"Go team","moment_type":"HISTORIC","is_in_stadium":false}`)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		result := decode[domain.PostCaptureResult](t, rec)
		assert.Equal(t, 120, result.PointsAwarded)
		assert.Equal(t, "alice", result.Capture.UserID)
		assert.Equal(t, "demo-final", result.Capture.EventID)
		assert.Equal(t, domain.MomentTypeHistoric, result.Capture.MomentType)
		assert.False(t, result.Capture.IsInStadium)
	})

	t.Run("unknown fields are rejected", func(t *testing.T) {
		rec := s.do(http.MethodPost, "/api/v1/events/demo-final/captures", alice, `{"image_ref":"a.jpg","user_id":"mallory"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing image", func(t *testing.T) {
		rec := s.do(http.MethodPost, "/api/v1/events/demo-final/captures", alice, `{}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, errors.ErrorTypeValidation, decode[errors.ErrorResponse](t, rec).Error.Type)
	})

	t.Run("upcoming event", func(t *testing.T) {
		rec := s.do(http.MethodPost, "/api/v1/events/demo-rivalry/captures", alice, `{"image_ref":"a.jpg"}`)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("unknown event", func(t *testing.T) {
		rec := s.do(http.MethodPost, "/api/v1/events/nope/captures", alice, `{"image_ref":"a.jpg"}`)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("not checked in", func(t *testing.T) {
		s.c.Store.OpenLobby("demo-final")
		t.Cleanup(func() { s.c.Store.CheckIn("demo-final", "alice", true) })

		rec := s.do(http.MethodPost, "/api/v1/events/demo-final/captures", alice, `{"image_ref":"a.jpg"}`)
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, errors.ErrorTypeForbidden, decode[errors.ErrorResponse](t, rec).Error.Type)
	})
}

func TestRallyFlow(t *testing.T) {
	s := newTestServer(t)
	capture := s.postCapture("alice", "demo-final")
	bob := s.token("bob", "")
	rallyPath := "/api/v1/captures/" + capture.ID + "/rally"

	rec := s.do(http.MethodPost, rallyPath, bob, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	result := decode[domain.RallyResult](t, rec)
	assert.Equal(t, 1, result.NewRallyCount)
	assert.Equal(t, 45, result.NewTotalPoints)
	assert.Equal(t, 11, result.RalliesRemaining)

	rec = s.do(http.MethodPost, rallyPath, bob, "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(http.MethodPost, rallyPath, s.token("alice", ""), "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "cannot rally your own capture", decode[errors.ErrorResponse](t, rec).Error.Message)

	rec = s.do(http.MethodPost, "/api/v1/captures/missing/rally", bob, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodPost, rallyPath, "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	t.Run("feed for the voter", func(t *testing.T) {
		rec := s.do(http.MethodGet, "/api/v1/events/demo-final/feed?sort=top", bob, "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "private, no-store", rec.Header().Get("Cache-Control"))

		feed := decode[domain.FeedView](t, rec)
		assert.Equal(t, domain.FeedSortTop, feed.Sort)
		require.Len(t, feed.Captures, 1)
		assert.True(t, feed.Captures[0].HasRallied)
		assert.Equal(t, 11, feed.RalliesRemaining)
	})

	t.Run("anonymous feed", func(t *testing.T) {
		rec := s.do(http.MethodGet, "/api/v1/events/demo-final/feed", "", "")
		require.Equal(t, http.StatusOK, rec.Code)

		feed := decode[domain.FeedView](t, rec)
		require.Len(t, feed.Captures, 1)
		assert.False(t, feed.Captures[0].HasRallied)
		assert.Equal(t, domain.RallyBudgetPerEvent, feed.RalliesRemaining)
	})

	t.Run("bad limit", func(t *testing.T) {
		rec := s.do(http.MethodGet, "/api/v1/events/demo-final/feed?limit=ten", "", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("points", func(t *testing.T) {
		rec := s.do(http.MethodGet, "/api/v1/me/points?limit=5", bob, "")
		require.Equal(t, http.StatusOK, rec.Code)

		summary := decode[domain.PointsSummary](t, rec)
		assert.Equal(t, "bob", summary.UserID)
		assert.Equal(t, int64(domain.RallyVoterReward), summary.Balance)
		assert.Equal(t, summary.Balance, summary.LedgerSum)
		require.Len(t, summary.Entries, 1)
	})
}

func TestGetAndReportCapture(t *testing.T) {
	s := newTestServer(t)
	capture := s.postCapture("alice", "demo-final")

	rec := s.do(http.MethodGet, "/api/v1/captures/"+capture.ID, "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, capture.ID, decode[domain.Capture](t, rec).ID)

	rec = s.do(http.MethodGet, "/api/v1/captures/missing", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "capture missing", decode[errors.ErrorResponse](t, rec).Error.Message)

	rec = s.do(http.MethodPost, "/api/v1/captures/"+capture.ID+"/report", s.token("bob", ""), "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(http.MethodGet, "/api/v1/events/demo-final/feed", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[domain.FeedView](t, rec).Captures)
}

func TestAdminRoutes(t *testing.T) {
	s := newTestServer(t)
	capture := s.postCapture("alice", "demo-final")
	for i := 0; i < 3; i++ {
		rec := s.do(http.MethodPost, "/api/v1/captures/"+capture.ID+"/rally", s.token(fmt.Sprintf("fan-%d", i), ""), "")
		require.Equal(t, http.StatusCreated, rec.Code)
	}
	admin := s.token("ops", domain.RoleAdmin)

	rec := s.do(http.MethodPost, "/api/v1/admin/events/demo-final/crown", s.token("bob", ""), "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(http.MethodPost, "/api/v1/admin/events/demo-final/crown", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(http.MethodPost, "/api/v1/admin/events/demo-final/crown", admin, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	crown := decode[domain.CrownResult](t, rec)
	assert.Equal(t, capture.ID, crown.CaptureID)
	assert.Equal(t, 300, crown.BonusPoints)
	assert.True(t, crown.BonusPaid)

	rec = s.do(http.MethodPost, "/api/v1/admin/events/demo-rivalry/crown", admin, "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = s.do(http.MethodGet, "/api/v1/admin/attribution?windowDays=7", admin, "")
	require.Equal(t, http.StatusOK, rec.Code)
	attribution := decode[domain.AttributionView](t, rec)
	assert.Equal(t, 7, attribution.WindowDays)
	assert.Len(t, attribution.Distribution, 4)

	rec = s.do(http.MethodGet, "/api/v1/admin/attribution?windowDays=abc", admin, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodGet, "/api/v1/leaderboard/season", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	board := decode[domain.LeaderboardView](t, rec)
	require.Len(t, board.Entries, 1)
	assert.Equal(t, domain.LeaderboardEntry{Rank: 1, UserID: "alice", TotalRallies: 3, CaptureCount: 1, MomentsOfGame: 1}, board.Entries[0])
}

func TestHealthMetricsAndNotFound(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/health", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	health := decode[HealthResponse](t, rec)
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "memory", health.Components["database"])
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = s.do(http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `rally_http_requests_total{method="GET",route="/health",status_code="200"} 1`)

	rec = s.do(http.MethodGet, "/api/v1/nothing", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestToAppError(t *testing.T) {
	tests := []struct {
		err     error
		typ     errors.ErrorType
		message string
	}{
		{fmt.Errorf("%w: event e1", domain.ErrNotFound), errors.ErrorTypeNotFound, "event e1"},
		{fmt.Errorf("%w: caption too long", domain.ErrValidation), errors.ErrorTypeValidation, "caption too long"},
		{fmt.Errorf("%w: check in first", domain.ErrForbidden), errors.ErrorTypeForbidden, "check in first"},
		{fmt.Errorf("%w: feed locked", domain.ErrInvalidState), errors.ErrorTypeInvalidState, "feed locked"},
		{fmt.Errorf("failed to insert: %w", domain.ErrConflict), errors.ErrorTypeConflict, "failed to insert: conflict"},
		{errors.NewAuthenticationError("Token has expired"), errors.ErrorTypeAuthentication, "Token has expired"},
		{fmt.Errorf("dial tcp: connection refused"), errors.ErrorTypeInternal, "Internal server error"},
	}

	for _, tt := range tests {
		t.Run(string(tt.typ), func(t *testing.T) {
			appErr := toAppError(tt.err)
			assert.Equal(t, tt.typ, appErr.Type)
			assert.Equal(t, tt.message, appErr.Message)
		})
	}
}
