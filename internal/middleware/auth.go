package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"locarto/internal/model"
	"locarto/internal/service"
	"locarto/pkg/jwtutil"
	"locarto/pkg/logger"
	"locarto/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const (
	actorKey  = "actor"
	claimsKey = "session_claims"
)

// SessionResolver turns a bearer token into the actor it was issued to
type SessionResolver interface {
	Resolve(ctx context.Context, token string) (*model.Actor, *jwtutil.SessionClaims, error)
}

// Auth gates routes by role using the session cookie or an Authorization header
type Auth struct {
	sessions   SessionResolver
	cookieName string
}

func NewAuth(sessions SessionResolver, cookieName string) *Auth {
	return &Auth{sessions: sessions, cookieName: cookieName}
}

// TokenFromRequest prefers the session cookie and falls back to a Bearer header
func (a *Auth) TokenFromRequest(c echo.Context) string {
	if cookie, err := c.Cookie(a.cookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	parts := strings.SplitN(c.Request().Header.Get(echo.HeaderAuthorization), " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

// RequireRole rejects requests without a live session (401) or whose actor
// holds none of roles (403). The resolved actor is stored for the handler.
func (a *Auth) RequireRole(roles ...model.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			log := logger.FromContext(c)

			actor, claims, err := a.sessions.Resolve(c.Request().Context(), a.TokenFromRequest(c))
			if err != nil {
				if !errors.Is(err, service.ErrUnauthenticated) {
					log.Error("Failed to resolve session", zap.Error(err))
					return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
				}
				log.Warn("Unauthenticated request", zap.Error(err))
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
			}

			if !hasRole(actor, roles) {
				prometheus.RecordAuthError("forbidden_role")
				log.Warn("Role not permitted for route",
					zap.Uint("actor_id", actor.ID),
					zap.String("role", string(actor.Role)))
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}

			c.Set(actorKey, actor)
			c.Set(claimsKey, claims)
			logger.WithFields(c,
				zap.Uint("actor_id", actor.ID),
				zap.String("role", string(actor.Role)))

			return next(c)
		}
	}
}

func hasRole(actor *model.Actor, roles []model.Role) bool {
	for _, r := range roles {
		if actor.Is(r) {
			return true
		}
	}
	return false
}

// ActorFromContext returns the actor stored by RequireRole
func ActorFromContext(c echo.Context) (*model.Actor, bool) {
	actor, ok := c.Get(actorKey).(*model.Actor)
	return actor, ok && actor != nil
}

func ClaimsFromContext(c echo.Context) (*jwtutil.SessionClaims, bool) {
	claims, ok := c.Get(claimsKey).(*jwtutil.SessionClaims)
	return claims, ok && claims != nil
}
