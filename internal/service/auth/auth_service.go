package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rally-api/internal/domain"
	apperrors "rally-api/pkg/errors"
	"rally-api/pkg/logger"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// issuer is stamped on tokens signed by this service
const issuer = "rally-api"

// Claims are the access token claims. Sub carries the user id.
type Claims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Service validates and issues HS256 access tokens
type Service struct {
	secret []byte
	logger *logger.Logger
	now    func() time.Time
}

// NewService creates a new auth service
func NewService(secret string, logger *logger.Logger) *Service {
	return &Service{
		secret: []byte(secret),
		logger: logger,
		now:    time.Now,
	}
}

// ValidateToken parses a bearer token and returns the caller. Tokens without
// a subject are rejected; a missing role means a regular fan.
func (s *Service) ValidateToken(ctx context.Context, tokenString string) (*domain.UserProfile, error) {
	if len(s.secret) == 0 {
		s.logger.Error("JWT_SECRET not configured")
		return nil, apperrors.NewAuthenticationError("Token validation not configured")
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now), jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			s.logger.Debug("Expired token presented")
			return nil, apperrors.NewAuthenticationError("Token has expired")
		}
		s.logger.Debug("Failed to parse token", zap.Error(err))
		return nil, apperrors.NewAuthenticationError("Invalid token")
	}
	if !token.Valid || claims.Subject == "" {
		return nil, apperrors.NewAuthenticationError("Invalid token")
	}

	role := claims.Role
	if role == "" {
		role = domain.RoleFan
	}

	return &domain.UserProfile{Sub: claims.Subject, Role: role}, nil
}

// IssueToken signs a token for a user. Used by the seed command and tests.
func (s *Service) IssueToken(userID, role string, ttl time.Duration) (string, error) {
	if len(s.secret) == 0 {
		return "", fmt.Errorf("failed to issue token: secret not configured")
	}

	now := s.now()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}
