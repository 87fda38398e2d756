package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"locarto/internal/middleware"
	"locarto/internal/model"
	"locarto/internal/service"
	"locarto/pkg/logger"
	"locarto/pkg/payment"
	"locarto/pkg/shipping"
	"locarto/pkg/storage"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// Uploader issues pre-signed upload URLs
type Uploader interface {
	PresignUpload(ctx context.Context, prefix, filename, contentType string) (*storage.Upload, error)
}

// Options carries the HTTP-facing settings handlers need
type Options struct {
	CookieName         string
	CookieSecure       bool
	AdminSignupEnabled bool
}

// Handler holds the services behind the HTTP surface
type Handler struct {
	creds    *service.Credentials
	sessions *service.Sessions
	catalog  *service.Catalog
	orders   *service.Orders
	ledger   *service.Ledger
	reviews  *service.Reviews
	uploads  Uploader
	auth     *middleware.Auth
	db       Pinger
	opts     Options
}

// Deps lists everything NewHandler wires together
type Deps struct {
	Credentials *service.Credentials
	Sessions    *service.Sessions
	Catalog     *service.Catalog
	Orders      *service.Orders
	Ledger      *service.Ledger
	Reviews     *service.Reviews
	Uploads     Uploader
	Auth        *middleware.Auth
	DB          Pinger
}

func NewHandler(deps Deps, opts Options) *Handler {
	if opts.CookieName == "" {
		opts.CookieName = "locarto_session"
	}
	return &Handler{
		creds:    deps.Credentials,
		sessions: deps.Sessions,
		catalog:  deps.Catalog,
		orders:   deps.Orders,
		ledger:   deps.Ledger,
		reviews:  deps.Reviews,
		uploads:  deps.Uploads,
		auth:     deps.Auth,
		db:       deps.DB,
		opts:     opts,
	}
}

// RequestValidator adapts go-playground/validator to echo
type RequestValidator struct {
	validate *validator.Validate
}

func NewRequestValidator() *RequestValidator {
	v := validator.New()
	// report json field names rather than Go field names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &RequestValidator{validate: v}
}

func (rv *RequestValidator) Validate(i interface{}) error {
	err := rv.validate.Struct(i)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return fmt.Errorf("%w: %v", service.ErrValidation, err)
	}
	return fmt.Errorf("%w: %s", service.ErrValidation, describe(fieldErrs[0]))
}

func describe(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email address"
	case "min":
		if fe.Kind() == reflect.String {
			return field + " too short"
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "len":
		return fmt.Sprintf("%s must be %s characters", field, fe.Param())
	case "numeric":
		return field + " must be numeric"
	}
	return field + " is invalid"
}

// bind decodes the body into req and validates it
func bind(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return fmt.Errorf("%w: invalid request body", service.ErrValidation)
	}
	return c.Validate(req)
}

func paramID(c echo.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%w: invalid %s", service.ErrValidation, name)
	}
	return uint(id), nil
}

// withActor hands the gate-resolved actor to fn as an explicit argument
func withActor(fn func(c echo.Context, actor *model.Actor) error) echo.HandlerFunc {
	return func(c echo.Context) error {
		actor, ok := middleware.ActorFromContext(c)
		if !ok {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
		}
		return fn(c, actor)
	}
}

// respondError maps service errors onto status codes. Unknown errors are
// logged in full and reported generically.
func respondError(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrValidation),
		errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, storage.ErrContentType):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrUnauthenticated):
		status = http.StatusUnauthorized
	case errors.Is(err, service.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, service.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrConflict),
		errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrOutOfStock),
		errors.Is(err, service.ErrAlreadyPaid):
		status = http.StatusConflict
	case errors.Is(err, shipping.ErrUpstream),
		errors.Is(err, payment.ErrUpstream),
		errors.Is(err, storage.ErrUpstream):
		logger.FromContext(c).Error("Upstream call failed", zap.Error(err))
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "upstream service unavailable"})
	}

	if status == http.StatusInternalServerError {
		logger.FromContext(c).Error("Unhandled error", zap.Error(err))
		return c.JSON(status, echo.Map{"error": "internal server error"})
	}

	logger.FromContext(c).Info("Request rejected", zap.Int("status", status), zap.Error(err))
	return c.JSON(status, echo.Map{"error": err.Error()})
}
