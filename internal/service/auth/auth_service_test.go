package auth

import (
	"context"
	"testing"
	"time"

	"rally-api/internal/domain"
	apperrors "rally-api/pkg/errors"
	"rally-api/pkg/logger"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndValidate(t *testing.T) {
	s := NewService("test-secret", logger.NewNop())

	token, err := s.IssueToken("alice", domain.RoleAdmin, time.Hour)
	require.NoError(t, err)

	user, err := s.ValidateToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Sub)
	assert.True(t, user.IsAdmin())
}

func TestValidateToken_DefaultsToFan(t *testing.T) {
	s := NewService("test-secret", logger.NewNop())

	token, err := s.IssueToken("bob", "", time.Hour)
	require.NoError(t, err)

	user, err := s.ValidateToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleFan, user.Role)
	assert.False(t, user.IsAdmin())
}

func TestValidateToken_Rejects(t *testing.T) {
	s := NewService("test-secret", logger.NewNop())
	other := NewService("other-secret", logger.NewNop())

	expired, err := s.IssueToken("alice", "", -time.Minute)
	require.NoError(t, err)

	wrongKey, err := other.IssueToken("alice", "", time.Hour)
	require.NoError(t, err)

	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "alice"},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name    string
		token   string
		message string
	}{
		{"expired", expired, "Token has expired"},
		{"wrong key", wrongKey, "Invalid token"},
		{"no subject", noSubject, "Invalid token"},
		{"alg none", unsigned, "Invalid token"},
		{"garbage", "not-a-token", "Invalid token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, err := s.ValidateToken(context.Background(), tt.token)
			assert.Nil(t, user)

			var appErr *apperrors.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, apperrors.ErrorTypeAuthentication, appErr.Type)
			assert.Equal(t, tt.message, appErr.Message)
		})
	}
}

func TestNoSecret(t *testing.T) {
	s := NewService("", logger.NewNop())

	_, err := s.IssueToken("alice", "", time.Hour)
	assert.Error(t, err)

	_, err = s.ValidateToken(context.Background(), "anything")
	assert.Error(t, err)
}
