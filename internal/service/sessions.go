package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"locarto/internal/model"
	"locarto/pkg/cache"
	"locarto/pkg/jwtutil"
	"locarto/prometheus"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const revokedPrefix = "revoked:"

// Session is an issued bearer credential
type Session struct {
	Token     string       `json:"-"`
	ExpiresAt time.Time    `json:"expires_at"`
	Actor     *model.Actor `json:"actor"`
}

// Sessions issues, resolves and revokes session tokens
type Sessions struct {
	creds   *Credentials
	tokens  *jwtutil.JWTUtil
	revoked cache.Cache
	log     *zap.Logger
	now     func() time.Time
}

func NewSessions(creds *Credentials, tokens *jwtutil.JWTUtil, revoked cache.Cache, log *zap.Logger) *Sessions {
	return &Sessions{creds: creds, tokens: tokens, revoked: revoked, log: log, now: time.Now}
}

// Authenticate checks email and password for role and issues a session
func (s *Sessions) Authenticate(ctx context.Context, email, password string, role model.Role) (*Session, error) {
	actor, err := s.creds.Lookup(ctx, email, role)
	if errors.Is(err, ErrNotFound) {
		prometheus.RecordLogin(string(role), "unknown_actor")
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(actor.Password), []byte(password)); err != nil {
		prometheus.RecordLogin(string(role), "bad_password")
		return nil, ErrInvalidCredentials
	}

	token, claims, err := s.tokens.GenerateToken(actor.ID, string(actor.Role), actor.Email)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	prometheus.RecordLogin(string(role), "success")
	s.log.Info("Actor logged in",
		zap.Uint("actor_id", actor.ID),
		zap.String("role", string(role)))
	return &Session{Token: token, ExpiresAt: claims.ExpiresAt.Time, Actor: actor}, nil
}

// Resolve verifies a token and loads the actor it names
func (s *Sessions) Resolve(ctx context.Context, token string) (*model.Actor, *jwtutil.SessionClaims, error) {
	if token == "" {
		prometheus.RecordAuthError("missing_token")
		return nil, nil, fmt.Errorf("%w: missing token", ErrUnauthenticated)
	}

	claims, err := s.tokens.ValidateToken(token)
	if err != nil {
		prometheus.RecordAuthError("invalid_token")
		return nil, nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}

	_, revoked, err := s.revoked.Get(ctx, revokedPrefix+claims.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		prometheus.RecordAuthError("revoked_token")
		return nil, nil, fmt.Errorf("%w: token revoked", ErrUnauthenticated)
	}

	actor, err := s.creds.Get(ctx, claims.ActorID)
	if errors.Is(err, ErrNotFound) {
		prometheus.RecordAuthError("unknown_actor")
		return nil, nil, fmt.Errorf("%w: actor no longer exists", ErrUnauthenticated)
	}
	if err != nil {
		return nil, nil, err
	}
	if string(actor.Role) != claims.Role {
		prometheus.RecordAuthError("role_mismatch")
		return nil, nil, fmt.Errorf("%w: role mismatch", ErrUnauthenticated)
	}
	return actor, claims, nil
}

// Logout revokes the token until it would have expired anyway
func (s *Sessions) Logout(ctx context.Context, claims *jwtutil.SessionClaims) error {
	if claims == nil {
		return nil
	}
	remaining := claims.Remaining(s.now())
	if remaining <= 0 {
		return nil
	}
	if err := s.revoked.Set(ctx, revokedPrefix+claims.ID, []byte{1}, remaining); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	s.log.Info("Session revoked",
		zap.Uint("actor_id", claims.ActorID),
		zap.Duration("remaining", remaining))
	return nil
}
