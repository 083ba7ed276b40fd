// AuthService guards the API with a single owner password, JWT access
// tokens and rotating refresh tokens.

package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/pftrack/pftrack/internal/domain"
)

var authTracer = otel.Tracer("service/auth")

const (
	maxFailedAttempts = 5
	lockDuration      = 30 * time.Minute
)

// AuthService validates the owner password and issues tokens. Refresh
// tokens live in memory, hashed; a restart logs everyone out.
type AuthService struct {
	passwordHash []byte
	jwtSecret    []byte
	accessTTL    time.Duration
	refreshTTL   time.Duration
	logger       *zap.Logger

	mu             sync.Mutex
	refreshTokens  map[string]time.Time // token hash -> expiry
	failedAttempts int
	lockedUntil    time.Time
}

// NewAuthService creates the auth service. passwordHash is a bcrypt
// hash of the owner password.
func NewAuthService(passwordHash, jwtSecret string, accessTTL, refreshTTL time.Duration, logger *zap.Logger) *AuthService {
	return &AuthService{
		passwordHash:  []byte(passwordHash),
		jwtSecret:     []byte(jwtSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		logger:        logger,
		refreshTokens: make(map[string]time.Time),
	}
}

// Login checks the owner password and returns a fresh token pair.
// Repeated failures lock the account temporarily.
func (s *AuthService) Login(ctx context.Context, req *domain.LoginRequest) (*domain.LoginResponse, error) {
	_, span := authTracer.Start(ctx, "AuthService.Login")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lockedUntil.After(time.Now()) {
		remaining := time.Until(s.lockedUntil).Minutes()
		s.logger.Warn("login: temporarily locked", zap.Float64("remaining_minutes", remaining))
		return nil, &domain.ErrUnauthorized{
			Message: fmt.Sprintf("too many failed attempts, try again in %.0f minutes", remaining),
		}
	}

	if err := bcrypt.CompareHashAndPassword(s.passwordHash, []byte(req.Password)); err != nil {
		s.failedAttempts++
		if s.failedAttempts >= maxFailedAttempts {
			s.lockedUntil = time.Now().Add(lockDuration)
			s.failedAttempts = 0
			s.logger.Warn("login: locked after max attempts", zap.Duration("lock_duration", lockDuration))
		} else {
			s.logger.Warn("login: failed password attempt", zap.Int("attempts", s.failedAttempts))
		}
		return nil, &domain.ErrUnauthorized{Message: "invalid credentials"}
	}
	s.failedAttempts = 0

	return s.issueTokens()
}

// Refresh rotates a refresh token into a new token pair.
func (s *AuthService) Refresh(ctx context.Context, req *domain.RefreshRequest) (*domain.LoginResponse, error) {
	_, span := authTracer.Start(ctx, "AuthService.Refresh")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	tokenHash := hashToken(req.RefreshToken)
	expiry, ok := s.refreshTokens[tokenHash]
	if !ok {
		return nil, &domain.ErrUnauthorized{Message: "invalid refresh token"}
	}

	// Rotation: the presented token is spent either way.
	delete(s.refreshTokens, tokenHash)

	if expiry.Before(time.Now()) {
		s.logger.Warn("refresh: expired token used")
		return nil, &domain.ErrUnauthorized{Message: "refresh token expired"}
	}

	return s.issueTokens()
}

// Logout revokes every refresh token.
func (s *AuthService) Logout(ctx context.Context) {
	_, span := authTracer.Start(ctx, "AuthService.Logout")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshTokens = make(map[string]time.Time)
	s.logger.Info("logged out, refresh tokens revoked")
}

// JWTClaims represents the custom claims in access tokens.
type JWTClaims struct {
	Sub  string `json:"sub"`
	Type string `json:"type"`
	jwt.RegisteredClaims
}

// ValidateAccessToken is used by the auth middleware.
func (s *AuthService) ValidateAccessToken(tokenString string) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, &domain.ErrUnauthorized{Message: "invalid or expired token"}
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		return nil, &domain.ErrUnauthorized{Message: "invalid token"}
	}
	if claims.Type != "access" {
		return nil, &domain.ErrUnauthorized{Message: "invalid token type"}
	}
	return claims, nil
}

// issueTokens mints an access token and registers a refresh token.
// Caller holds s.mu.
func (s *AuthService) issueTokens() (*domain.LoginResponse, error) {
	accessToken, err := s.signAccessToken()
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	refreshToken, refreshHash, err := generateRefreshToken()
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}
	s.refreshTokens[refreshHash] = time.Now().Add(s.refreshTTL)

	return &domain.LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int(s.accessTTL.Seconds()),
	}, nil
}

func (s *AuthService) signAccessToken() (string, error) {
	now := time.Now()
	claims := JWTClaims{
		Sub:  "owner",
		Type: "access",
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

func generateRefreshToken() (token, hash string, err error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", "", err
	}
	token = hex.EncodeToString(buf)
	return token, hashToken(token), nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
