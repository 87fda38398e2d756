package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"locarto/internal/handler"
	mid "locarto/internal/middleware"
	"locarto/internal/service"
	"locarto/pkg/cache"
	"locarto/pkg/config"
	"locarto/pkg/database"
	"locarto/pkg/jwtutil"
	"locarto/pkg/logger"
	"locarto/pkg/payment"
	"locarto/pkg/shipping"
	"locarto/pkg/storage"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	appConfig, err := config.Load()
	if err != nil {
		// Can't use structured logger yet since it's not initialized
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	if err := logger.InitLogger(appConfig); err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	log := logger.GetLogger()
	defer log.Sync()

	log.Info("Starting locarto", appConfig.LogConfig()...)

	// Initialize database
	db, err := database.InitDB(appConfig)
	if err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatal("Failed to get database handle", zap.Error(err))
	}
	log.Info("Database connection established")

	// Catalog listings and revoked sessions share one cache
	var store cache.Cache = cache.NewMemory()
	if appConfig.Redis.Addr != "" {
		client, err := cache.ConnectRedis(&appConfig.Redis)
		if err != nil {
			log.Fatal("Failed to connect to redis", zap.Error(err))
		}
		defer client.Close()
		store = cache.NewRedis(client, appConfig.ServiceName+":")
		log.Info("Redis cache connected", zap.String("addr", appConfig.Redis.Addr))
	}

	tokens := jwtutil.NewJWTUtil(&jwtutil.JWTConfig{
		SigningKey:      appConfig.JWT.SigningKey,
		ExpirationHours: appConfig.JWT.ExpirationHours,
	})
	log.Info("JWT utility initialized")

	// External collaborators
	integrations := appConfig.Integrations
	carrier := shipping.NewClient(integrations.Shipping)
	gateway := payment.NewClient(integrations.Payment)

	catalog := service.NewCatalog(db, store, log)
	creds := service.NewCredentials(db, catalog, log)
	sessions := service.NewSessions(creds, tokens, store, log)
	ledger := service.NewLedger(db, gateway, integrations.Payment.Currency, integrations.Payment.KeyID, log)
	orders := service.NewOrders(db, catalog, ledger, carrier, log)
	reviews := service.NewReviews(db, log)
	auth := mid.NewAuth(sessions, appConfig.JWT.CookieName)

	deps := handler.Deps{
		Credentials: creds,
		Sessions:    sessions,
		Catalog:     catalog,
		Orders:      orders,
		Ledger:      ledger,
		Reviews:     reviews,
		Auth:        auth,
		DB:          sqlDB,
	}
	if presigner, err := storage.NewPresigner(integrations.Storage); err != nil {
		log.Warn("Object storage unavailable, upload URLs disabled", zap.Error(err))
	} else {
		deps.Uploads = presigner
	}

	h := handler.NewHandler(deps, handler.Options{
		CookieName:         appConfig.JWT.CookieName,
		CookieSecure:       appConfig.JWT.CookieSecure,
		AdminSignupEnabled: appConfig.Server.AdminSignupEnabled,
	})

	// Initialize Echo instance
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewRequestValidator()

	// Middleware
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     appConfig.Server.AllowedOrigins,
		AllowCredentials: true,
		AllowHeaders:     []string{echo.HeaderContentType, echo.HeaderAuthorization, "X-CSRF-Token", logger.RequestIDKey},
	}))
	e.Use(mid.RequestIDMiddleware)
	e.Use(logger.Middleware(log))
	e.Use(mid.MetricsMiddleware)

	var csrf echo.MiddlewareFunc
	if appConfig.Security.CSRFEnabled {
		csrf = mid.CSRF([]byte(appConfig.Security.CSRFKey), appConfig.JWT.CookieSecure, appConfig.Server.AllowedOrigins)
		log.Info("CSRF protection enabled")
	}
	limiter := mid.NewRateLimiter(appConfig.Security.LoginRatePerMin, appConfig.Security.LoginBurst)

	// Routes
	handler.Register(e, h, auth, limiter, csrf)

	// Start server
	port := appConfig.Server.Port
	go func() {
		log.Info("Starting server", zap.String("port", port))
		if err := e.Start(":" + port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Error("Graceful shutdown failed", zap.Error(err))
	}
}
