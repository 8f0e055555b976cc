package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/BradenHooton/warden/internal/auth"
	"github.com/BradenHooton/warden/internal/background"
	"github.com/BradenHooton/warden/internal/config"
	"github.com/BradenHooton/warden/internal/database"
	"github.com/BradenHooton/warden/internal/handlers"
	"github.com/BradenHooton/warden/internal/identity"
	"github.com/BradenHooton/warden/internal/metrics"
	middlewareCustom "github.com/BradenHooton/warden/internal/middleware"
	"github.com/BradenHooton/warden/internal/repositories"
	"github.com/BradenHooton/warden/internal/routes"
	"github.com/BradenHooton/warden/internal/services"
	"github.com/BradenHooton/warden/internal/throttle"
	pkghttp "github.com/BradenHooton/warden/pkg/http"
	pkglogger "github.com/BradenHooton/warden/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.Server.LogLevel)}))
	slog.SetDefault(logger)
	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	if cfg.Database.MigrateOnStart {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		err := db.Migrate(ctx)
		cancel()
		if err != nil {
			logger.Error("failed to apply migrations", slog.Any("error", err))
			os.Exit(1)
		}
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m, err := metrics.New(registry)
	if err != nil {
		logger.Error("failed to register metrics", slog.Any("error", err))
		os.Exit(1)
	}
	if err := metrics.RegisterPool(registry, func() metrics.PoolStat { return db.Stats() }); err != nil {
		logger.Error("failed to register pool metrics", slog.Any("error", err))
		os.Exit(1)
	}

	// Repositories
	accountRepo := repositories.NewAccountRepository(db)
	roleRepo := repositories.NewRoleRepository(db)
	catalogRepo := repositories.NewCatalogRepository(db)
	lookupRepo := repositories.NewLookupRepository(db)
	historyRepo := repositories.NewLoginHistoryRepository(db)

	provider := identity.NewGraphClient(cfg.IdentityProvider, logger)
	tokens := auth.NewTokenIssuer(cfg.Auth.JWTSecret)
	auditLogger := pkglogger.NewAuditLogger(logger)

	settings := services.AuthSettings{
		Lockout: auth.LockoutPolicy{
			MaxFailedAttempts: cfg.Lockout.MaxFailedAttempts,
			Window:            cfg.Lockout.Window,
		},
		Otp: auth.OtpPolicy{
			Expiry:       cfg.Auth.OtpExpiry(),
			MaxIncorrect: cfg.Auth.MaxOtpIncorrectCount,
		},
		LoginTokenExpiryHours:         cfg.Auth.LoginTokenExpiryHours,
		ResetPasswordTokenExpiryHours: cfg.Auth.ResetPasswordTokenExpiryHours,
	}

	// Services
	authService := services.NewAuthService(accountRepo, roleRepo, provider, tokens, settings, logger, auditLogger)
	authService.SetMetrics(m)
	userService := services.NewUserService(accountRepo, lookupRepo, provider, tokens, settings, logger, auditLogger)
	historyService := services.NewLoginHistoryService(accountRepo, historyRepo, provider, logger)

	catalogCache := services.NewCatalogCache(catalogRepo)
	permissionService := services.NewPermissionService(
		roleRepo,
		catalogRepo,
		services.NewPermissionTx(db, roleRepo, catalogRepo),
		catalogCache,
		logger,
		auditLogger,
	)
	permissionService.SetMetrics(m)

	if cfg.Email.Enabled {
		notifier, err := services.NewSESNotifier(context.Background(), cfg.Email.AWSRegion, cfg.Email.FromAddress, logger)
		if err != nil {
			logger.Error("failed to initialize email service", slog.Any("error", err))
			os.Exit(1)
		}
		authService.SetNotifier(notifier)
		userService.SetNotifier(notifier)
	}

	if cfg.Redis.Enabled() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		redisClient, err := throttle.Connect(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		cancel()
		if err != nil {
			logger.Error("failed to connect to redis", slog.Any("error", err))
			os.Exit(1)
		}
		defer redisClient.Close()
		authService.SetThrottle(throttle.NewRedisLimiter(redisClient, cfg.Redis.OtpRequestsPerWindow, cfg.Redis.OtpRequestWindow))
	} else {
		logger.Warn("REDIS_ADDR not set, otp requests are not throttled")
	}

	refresher := background.NewCatalogRefresher(catalogCache, m, logger, cfg.Background.CatalogRefreshInterval)

	// Handlers
	ipConfig := &pkghttp.IPConfig{TrustedProxies: cfg.Server.TrustedProxies}
	limit := middlewareCustom.RateLimitConfig{RequestsPerMinute: cfg.Server.RequestsPerMinute, IPConfig: ipConfig}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(m.Middleware)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.CORS(middlewareCustom.DefaultCORSConfig(cfg.Server.AllowedOrigins)))
	router.Use(middlewareCustom.SecureLogger(logger, ipConfig))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	routes.RegisterRoutes(router, routes.Dependencies{
		Auth:            handlers.NewAuthHandler(authService, logger),
		Users:           handlers.NewUserHandler(userService, logger),
		Roles:           handlers.NewRoleHandler(permissionService, logger),
		LoginHistory:    handlers.NewLoginHistoryHandler(historyService, ipConfig, logger),
		Tokens:          tokens,
		Grants:          roleRepo,
		Accounts:        accountRepo,
		AdminPermission: cfg.Auth.RoleAdminPermission,
		AuthRateLimit:   limit,
		CallerRateLimit: middlewareCustom.RateLimitConfig{RequestsPerMinute: 6 * cfg.Server.RequestsPerMinute, IPConfig: ipConfig},
	})
	router.Get("/health", handlers.Health(db))
	router.Handle("/metrics", metrics.Handler(registry))

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	refreshCtx, refreshCancel := context.WithCancel(context.Background())
	defer refreshCancel()
	go refresher.Start(refreshCtx)

	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	refresher.Stop()
	refreshCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
