// Package main is the entrypoint for the qelal API server.
package main

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/qelal/qelal/internal/analytics"
	"github.com/qelal/qelal/internal/auth"
	"github.com/qelal/qelal/internal/cache"
	"github.com/qelal/qelal/internal/config"
	"github.com/qelal/qelal/internal/handler"
	"github.com/qelal/qelal/internal/metrics"
	"github.com/qelal/qelal/internal/middleware"
	"github.com/qelal/qelal/internal/repository"
	"github.com/qelal/qelal/internal/server"
	"github.com/qelal/qelal/internal/service"
)

func main() {
	ctx := context.Background()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := initLogger(cfg)

	// Initialize database
	repo, err := repository.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error(
			"failed to connect to database",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		os.Exit(1)
	}
	defer repo.Close()
	logger.Info("connected to database")

	// Initialize cache
	cacheClient, err := cache.New(ctx, cfg.RedisURL)
	if err != nil {
		logger.Error(
			"failed to connect to Redis",
			slog.String("error", sanitizeError(err, cfg.RedisURL)),
			slog.String("redis_url", redactURL(cfg.RedisURL)),
		)
		os.Exit(1)
	}
	defer cacheClient.Close()
	logger.Info("connected to Redis")

	// Click event pipeline
	metricsRecorder := metrics.NewNoop()
	publisher := analytics.NewPublisher(cacheClient.Client(), logger, metricsRecorder)
	worker := analytics.NewWorker(cacheClient.Client(), repo, logger, analytics.NewConsumerID(), metricsRecorder)

	workerCtx, workerCancel := context.WithCancel(ctx)
	go func() {
		if err := worker.Run(workerCtx); err != nil && workerCtx.Err() == nil {
			logger.Error("click worker stopped", "error", err)
		}
	}()

	// Daily click retention sweep
	if cfg.ClickRetention > 0 {
		go runClickRetention(workerCtx, repo, cfg.ClickRetention, logger)
	}

	// Initialize services
	verifier := auth.NewHTTPVerifier(cfg.UserinfoURL)
	dropService := service.NewDropService(repo, repo, cacheClient, publisher, logger, metricsRecorder)
	collabService := service.NewCollabService(repo, repo, repo, repo, logger)
	statsService := service.NewStatsService(repo, repo, repo)
	userService := service.NewUserService(repo, cacheClient, verifier, cfg.SessionTTL, logger)
	notificationService := service.NewNotificationService(repo)

	// Initialize handlers
	healthHandler := handler.NewHealthHandler(repo, cacheClient)
	dropHandler := handler.NewDropHandler(dropService, cfg.BaseURL, logger)
	redirectHandler := handler.NewRedirectHandler(dropService, cfg.FrontendURL, logger)
	collabHandler := handler.NewCollabHandler(collabService, cfg.BaseURL, logger)
	statsHandler := handler.NewStatsHandler(statsService, logger)
	userHandler := handler.NewUserHandler(userService, logger)
	notificationHandler := handler.NewNotificationHandler(notificationService, logger)

	// Setup router
	r := setupRouter(routerDeps{
		health:        healthHandler,
		drops:         dropHandler,
		redirects:     redirectHandler,
		collabs:       collabHandler,
		stats:         statsHandler,
		users:         userHandler,
		notifications: notificationHandler,
		repo:          repo,
		cache:         cacheClient,
		cfg:           cfg,
		logger:        logger,
	})

	// Create and run server
	srv := server.New(
		r,
		cfg.AppPort,
		cfg.ReadTimeout,
		cfg.WriteTimeout,
		cfg.ShutdownTimeout,
		logger,
	)

	// Workers registered first shut down last, after in-flight requests drain.
	srv.OnShutdown("click_worker", func(ctx context.Context) error {
		workerCancel()
		return worker.Shutdown(ctx)
	})

	logger.Info("starting server",
		"port", cfg.AppPort,
		"base_url", cfg.BaseURL,
		"env", cfg.AppEnv,
	)

	if err := srv.Run(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// runClickRetention prunes old click rows once a day until ctx is done.
func runClickRetention(ctx context.Context, repo *repository.Repository, retention time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := repo.PruneClicksBefore(ctx, time.Now().Add(-retention))
			if err != nil {
				logger.Error("click retention sweep failed", "error", err)
				continue
			}
			logger.Info("click retention sweep", "removed", removed)
		}
	}
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	var h slog.Handler

	level := parseLogLevel(cfg.LogLevel)

	opts := &slog.HandlerOptions{
		Level: level,
	}

	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h)
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type routerDeps struct {
	health        *handler.HealthHandler
	drops         *handler.DropHandler
	redirects     *handler.RedirectHandler
	collabs       *handler.CollabHandler
	stats         *handler.StatsHandler
	users         *handler.UserHandler
	notifications *handler.NotificationHandler
	repo          *repository.Repository
	cache         *cache.Cache
	cfg           *config.Config
	logger        *slog.Logger
}

// setupRouter configures the chi router with all routes and middleware.
func setupRouter(deps routerDeps) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(deps.logger))
	r.Use(middleware.Recoverer(deps.logger))
	r.Use(middleware.MaxBodySize(deps.cfg.MaxRequestBodySize))

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = deps.cfg.GetCORSAllowedOrigins()
	r.Use(middleware.CORS(corsCfg))

	// Health endpoints (no auth required)
	r.Get("/healthz", deps.health.Healthz)
	r.Get("/readyz", deps.health.Readyz)

	authCfg := middleware.AuthConfig{
		Logger:     deps.logger,
		Repository: deps.repo,
		Cache:      deps.cache,
	}

	rateLimitCfg := middleware.RateLimitConfig{
		Logger:          deps.logger,
		Cache:           deps.cache,
		APIEnabled:      deps.cfg.RateLimitAPIEnabled,
		APIRPM:          deps.cfg.RateLimitAPIRPM,
		APIBurst:        deps.cfg.RateLimitAPIBurst,
		RedirectEnabled: deps.cfg.RateLimitRedirectEnabled,
		RedirectRPS:     deps.cfg.RateLimitRedirectRPS,
		RedirectBurst:   deps.cfg.RateLimitRedirectBurst,
	}

	securityCfg := middleware.DefaultSecurityConfig()
	securityCfg.IsDevelopment = deps.cfg.IsDevelopment()

	// Anonymous creation is allowed, so these sit behind optional auth.
	r.Group(func(r chi.Router) {
		r.Use(middleware.Security(securityCfg))
		r.Use(middleware.OptionalAuth(authCfg))
		r.Post("/shorten", deps.drops.CreateLink)
		r.Post("/bundles", deps.drops.CreateBundle)
	})

	// Session endpoints
	r.Group(func(r chi.Router) {
		r.Use(middleware.Security(securityCfg))
		r.Post("/auth/login", deps.users.Login)
		r.Post("/auth/logout", deps.users.Logout)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(authCfg))
			r.Get("/auth/me", deps.users.Me)
			r.Put("/auth/me/handle", deps.users.ClaimHandle)
		})
	})

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Security(securityCfg))

		// Drop reads and content edits honor the bundle's anonymous
		// access level, so they only need optional auth.
		r.Group(func(r chi.Router) {
			r.Use(middleware.OptionalAuth(authCfg))
			r.Use(middleware.RateLimitUser(rateLimitCfg))
			r.Get("/drops/{slug}", deps.drops.Get)
			r.Patch("/drops/{slug}", deps.drops.Update)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(authCfg))
			r.Use(middleware.RateLimitUser(rateLimitCfg))

			r.Get("/drops", deps.drops.List)
			r.Delete("/drops/{slug}", deps.drops.Delete)
			r.Get("/drops/{slug}/stats", deps.stats.Get)

			r.Route("/bundles/{slug}", func(r chi.Router) {
				r.Get("/collaborators", deps.collabs.List)
				r.Post("/collaborators", deps.collabs.Invite)
				r.Delete("/collaborators/{userID}", deps.collabs.Remove)
				r.Post("/join", deps.collabs.Join)
				r.Post("/tokens/rotate", deps.collabs.RotateTokens)
			})

			// Account-wide grants (no bundle scope).
			r.Get("/collaborators", deps.collabs.ListGlobal)
			r.Post("/collaborators", deps.collabs.InviteGlobal)
			r.Delete("/collaborators/{userID}", deps.collabs.RemoveGlobal)
			r.Delete("/collaborations/{ownerID}", deps.collabs.Leave)

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", deps.notifications.List)
				r.Post("/{id}/read", deps.notifications.MarkRead)
				r.Post("/read-all", deps.notifications.MarkAllRead)
			})
		})
	})

	// Unlock endpoint for password-protected drops (no auth required)
	r.With(middleware.RateLimitIP(rateLimitCfg)).Post("/unlock/{slug}", deps.redirects.Unlock)

	// Redirect handler with IP-based rate limiting (no auth required).
	// Serves HTML interstitials, so it stays outside the Security headers.
	r.With(middleware.RateLimitIP(rateLimitCfg)).Get("/{slug}", deps.redirects.Redirect)

	// 404 and 405 handlers
	r.NotFound(handler.NotFound)
	r.MethodNotAllowed(handler.MethodNotAllowed)

	return r
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s]+`)

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		username := parsed.User.Username()
		if username == "" {
			parsed.User = url.User("redacted")
		} else {
			parsed.User = url.User(username)
		}
	}

	return parsed.String()
}

func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := redactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
