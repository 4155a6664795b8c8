package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"go-session-auth-service/internal/config"
	"go-session-auth-service/internal/health"
	"go-session-auth-service/internal/http/handler"
	"go-session-auth-service/internal/http/middleware"
	"go-session-auth-service/internal/http/router"
	"go-session-auth-service/internal/observability"
	"go-session-auth-service/internal/repository"
	"go-session-auth-service/internal/security"
	"go-session-auth-service/internal/service"
)

type App struct {
	Config        *config.Config
	Logger        *slog.Logger
	Server        *http.Server
	Observability *observability.Runtime

	memStore *service.InMemoryKVStore
	redis    redis.UniversalClient
}

// Build wires the service graph from configuration. State backends are
// chosen once here: with REDIS_ADDR set, sessions, login attempts and
// rate-limit counters live in Redis; otherwise everything stays in-process.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger, runtime *observability.Runtime) (*App, error) {
	db, err := repository.OpenDB(cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	users := repository.NewUserRepository(db)

	a := &App{Config: cfg, Logger: logger, Observability: runtime}

	var (
		kv      service.KVStore
		limiter middleware.Limiter
		checks  = []health.Checker{health.DatabaseChecker{DB: db}}
	)
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("ping redis %s: %w", cfg.RedisAddr, err)
		}
		a.redis = client
		kv = service.NewRedisKVStore(client, "auth")
		limiter = middleware.NewRedisFixedWindowLimiter(client, "auth")
		checks = append(checks, health.RedisChecker{Client: client})
		logger.InfoContext(ctx, "state backend ready", "backend", "redis", "addr", cfg.RedisAddr)
	} else {
		a.memStore = service.NewInMemoryKVStore()
		kv = a.memStore
		limiter = middleware.NewLocalFixedWindowLimiter()
		logger.InfoContext(ctx, "state backend ready", "backend", "memory")
	}

	sessions := service.NewSessionManager(kv, cfg.SessionTTL)
	attempts := service.NewAttemptTracker(kv, cfg.MaxLoginAttempts, cfg.LockoutWindow)
	csrf := service.NewCSRFValidator()
	hasher := security.NewBcryptHasher(cfg.BcryptCost)
	auth := service.NewAuthService(users, hasher, sessions, attempts)
	authHandler := handler.NewAuthHandler(auth, csrf, cfg.CookieSecure, cfg.LockoutWindow)

	mux := router.NewRouter(router.Dependencies{
		AuthHandler:    authHandler,
		Sessions:       sessions,
		CSRF:           csrf,
		RateLimiter:    middleware.NewRateLimiter(limiter, cfg.RateLimitRPM, time.Minute, "api"),
		Readiness:      health.NewProbeRunner(time.Second, 2*time.Second, checks...),
		CookieSecure:   cfg.CookieSecure,
		RequestTimeout: cfg.RequestTimeout,
		BodyLimitBytes: cfg.BodyLimitBytes,
		RateLimitRPM:   cfg.RateLimitRPM,
		EnableOTelHTTP: cfg.OTELTracesEnabled || cfg.OTELMetricsEnabled,
	})

	a.Server = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.RequestTimeout,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:       time.Minute,
	}
	return a, nil
}

// Run serves until the context is cancelled or an interrupt arrives, then
// drains in-flight requests and releases state backends.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.Logger.InfoContext(ctx, "http server listening", "addr", a.Server.Addr)
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		a.Logger.Info("shutdown requested")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := a.Server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("drain http server: %w", err)
		}
		return nil
	})

	err := g.Wait()
	a.closeBackends()
	if a.Observability != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if obsErr := a.Observability.Shutdown(shutdownCtx); obsErr != nil {
			a.Logger.Warn("observability shutdown", "error", obsErr)
		}
	}
	return err
}

func (a *App) closeBackends() {
	if a.memStore != nil {
		a.memStore.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.Logger.Warn("close redis client", "error", err)
		}
	}
}
