package handler

import (
	"errors"
	"net/http"
	"time"

	"locarto/internal/middleware"
	"locarto/internal/model"
	"locarto/internal/service"
	"locarto/pkg/logger"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type signupRequest struct {
	Name     string `json:"name" validate:"max=100"`
	Email    string `json:"email" validate:"required,email,max=100"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Signup registers an actor under role
func (h *Handler) Signup(role model.Role) echo.HandlerFunc {
	return func(c echo.Context) error {
		log := logger.FromContext(c)

		if role == model.RoleAdmin && !h.opts.AdminSignupEnabled {
			log.Warn("Admin signup attempted while disabled")
			return c.JSON(http.StatusForbidden, echo.Map{"error": "admin signup is disabled"})
		}

		var req signupRequest
		if err := bind(c, &req); err != nil {
			return respondError(c, err)
		}

		actor, err := h.creds.Signup(c.Request().Context(), role, service.SignupInput{
			Name:     req.Name,
			Email:    req.Email,
			Password: req.Password,
		})
		if err != nil {
			return respondError(c, err)
		}

		log.Info("Signup completed", zap.Uint("actor_id", actor.ID), zap.String("role", string(role)))
		return c.JSON(http.StatusCreated, echo.Map{
			"message": "account created",
			"actor":   actor,
		})
	}
}

// Login authenticates against role and sets the session cookie
func (h *Handler) Login(role model.Role) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req loginRequest
		if err := bind(c, &req); err != nil {
			return respondError(c, err)
		}

		session, err := h.sessions.Authenticate(c.Request().Context(), req.Email, req.Password, role)
		if err != nil {
			return respondError(c, err)
		}

		c.SetCookie(h.sessionCookie(session.Token, session.ExpiresAt))
		return c.JSON(http.StatusOK, echo.Map{
			"message":    "logged in",
			"actor":      session.Actor,
			"expires_at": session.ExpiresAt,
		})
	}
}

// Logout clears the cookie and revokes the token server-side. A missing,
// expired or revoked session still gets its cookie cleared.
func (h *Handler) Logout(c echo.Context) error {
	ctx := c.Request().Context()
	_, claims, err := h.sessions.Resolve(ctx, h.auth.TokenFromRequest(c))
	switch {
	case err == nil:
		if err := h.sessions.Logout(ctx, claims); err != nil {
			return respondError(c, err)
		}
	case errors.Is(err, service.ErrUnauthenticated):
		logger.FromContext(c).Debug("Logout without a live session", zap.Error(err))
	default:
		return respondError(c, err)
	}
	c.SetCookie(h.sessionCookie("", time.Unix(0, 0)))
	return c.JSON(http.StatusOK, echo.Map{"message": "logged out"})
}

// Check reports the actor behind the current session
func (h *Handler) Check(c echo.Context, actor *model.Actor) error {
	return c.JSON(http.StatusOK, echo.Map{"actor": actor})
}

func (h *Handler) DeleteAccount(c echo.Context, actor *model.Actor) error {
	if err := h.creds.Delete(c.Request().Context(), actor); err != nil {
		return respondError(c, err)
	}
	if claims, ok := middleware.ClaimsFromContext(c); ok {
		if err := h.sessions.Logout(c.Request().Context(), claims); err != nil {
			logger.FromContext(c).Warn("Failed to revoke session of deleted account", zap.Error(err))
		}
	}
	c.SetCookie(h.sessionCookie("", time.Unix(0, 0)))
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) sessionCookie(value string, expires time.Time) *http.Cookie {
	maxAge := int(time.Until(expires).Seconds())
	if value == "" || maxAge <= 0 {
		maxAge = -1
	}
	return &http.Cookie{
		Name:     h.opts.CookieName,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.opts.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
}
