package middleware

import (
	"net/http"

	"github.com/gorilla/csrf"
	"github.com/labstack/echo/v4"
)

// CSRF protects cookie-authenticated mutations. Clients fetch a token from
// GET /api/csrf and echo it in the X-CSRF-Token header.
func CSRF(key []byte, secure bool, trustedOrigins []string) echo.MiddlewareFunc {
	protect := csrf.Protect(
		key,
		csrf.Secure(secure),
		csrf.Path("/"),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.TrustedOrigins(trustedOrigins),
		csrf.ErrorHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte(`{"error":"invalid csrf token"}`))
		})),
	)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			var nextErr error
			handler := protect(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				c.SetRequest(r)
				nextErr = next(c)
			}))

			req := c.Request()
			if !secure && req.TLS == nil {
				req = csrf.PlaintextHTTPRequest(req)
			}
			handler.ServeHTTP(c.Response(), req)
			return nextErr
		}
	}
}

// CSRFToken returns the token for the current request, or "" when CSRF is off
func CSRFToken(c echo.Context) string {
	return csrf.Token(c.Request())
}
