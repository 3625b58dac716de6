package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"semaphore/roster/internal/config"
	"semaphore/roster/internal/db"
	rostergrpc "semaphore/roster/internal/grpc"
	internalhttp "semaphore/roster/internal/http"
	"semaphore/roster/internal/jobs"
	"semaphore/roster/internal/limiter"
	"semaphore/roster/internal/logger"
	"semaphore/roster/internal/metrics"
	"semaphore/roster/internal/repository"
	"semaphore/roster/internal/service"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns)
	if err != nil {
		return fmt.Errorf("db connection failed: %w", err)
	}
	defer pool.Close()

	if cfg.MigrateOnStart {
		if err := db.Migrate(pool, log); err != nil {
			return err
		}
	}

	store := repository.NewStore(pool)
	m := metrics.New()

	var loginLimiter service.LoginLimiter
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := redisClient.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			return fmt.Errorf("redis ping failed: %w", err)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				log.Warn("redis close error", zap.Error(err))
			}
		}()
		loginLimiter = limiter.NewLoginLimiter(redisClient, limiter.Config{
			MaxAttempts: cfg.LoginMaxAttempts,
			Cooldown:    cfg.LoginCooldown,
		})
	} else {
		log.Info("REDIS_ADDR not set; login throttling disabled")
	}

	authService := service.NewAuthService(service.AuthConfig{
		JWTSecret:  cfg.JWTSecret,
		JWTIssuer:  cfg.JWTIssuer,
		SessionTTL: cfg.SessionTTL,
		BcryptCost: cfg.BcryptCost,
	}, store, loginLimiter, m, log.Named("auth"))
	rosterService := service.NewRosterService(service.RosterConfig{
		BcryptCost: cfg.BcryptCost,
	}, store, store, store, store, m, log.Named("roster"))

	server := internalhttp.NewServer(authService, rosterService, store, m, log.Named("http"))
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcServer, healthServer, err := rostergrpc.NewServer(cfg.ServiceAuthToken, log.Named("grpc"))
	if err != nil {
		return fmt.Errorf("grpc init failed: %w", err)
	}
	jobs.StartHealthCheck(ctx, jobs.HealthCheckConfig{
		Enabled:  cfg.HealthCheckEnabled,
		Interval: cfg.HealthCheckInterval,
		Timeout:  cfg.HealthCheckTimeout,
		Services: []string{"", rostergrpc.ServiceName},
	}, store, healthServer, log.Named("jobs"))

	errCh := make(chan error, 2)
	go func() {
		log.Info("roster http listening", zap.String("addr", cfg.HTTPAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	go func() {
		listener, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			errCh <- fmt.Errorf("grpc listen error: %w", err)
			return
		}
		log.Info("roster grpc listening", zap.String("addr", cfg.GRPCAddr))
		if err := grpcServer.Serve(listener); err != nil {
			errCh <- fmt.Errorf("grpc server error: %w", err)
		}
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("shutdown error", zap.Error(err))
	}
	healthServer.Shutdown()
	grpcServer.GracefulStop()
	log.Info("roster stopped")
	return serveErr
}
