package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/procurehub/procurehub/cmd/procurehub/cli"
	"github.com/procurehub/procurehub/internal/app"
	"github.com/procurehub/procurehub/internal/auth"
	"github.com/procurehub/procurehub/internal/observability"
	"github.com/procurehub/procurehub/internal/platform/cache"
	"github.com/procurehub/procurehub/internal/platform/db"
	"github.com/procurehub/procurehub/internal/procurement"
	"github.com/procurehub/procurehub/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	args := os.Args[1:]
	command := "serve"
	if len(args) > 0 {
		command, args = args[0], args[1:]
	}

	switch command {
	case "serve":
		if err := serve(ctx, cfg, logger); err != nil {
			logger.Error("server exited", slog.Any("error", err))
			os.Exit(1)
		}
	case "users":
		os.Exit(runUsers(ctx, cfg, args))
	case "jobs":
		os.Exit(runJobs(ctx, cfg, args))
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q (expected serve, users or jobs)\n", command)
		os.Exit(2)
	}
}

func serve(ctx context.Context, cfg *app.Config, logger *slog.Logger) error {
	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, procurement listing will not be cached", slog.Any("error", err))
	} else {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	tokens, err := auth.NewTokenService(auth.TokenConfig{
		Secret:    cfg.SecretKey,
		Algorithm: cfg.Algorithm,
		TTL:       cfg.AccessTokenTTL(),
	})
	if err != nil {
		return fmt.Errorf("token service: %w", err)
	}
	hasher := auth.NewPasswordHasher(cfg.BcryptCost, cfg.HashConcurrency)
	metrics := observability.NewMetrics()

	authService := auth.NewService(auth.NewRepository(pool), hasher, tokens, logger)
	authHandler := auth.NewHandler(logger, authService, metrics)

	listing := procurement.NewService(
		procurement.NewFileSource(cfg.ProcurementDataFile),
		procurement.NewCache(redisClient, cfg.ProcurementCacheTTL),
		logger,
	)
	procurementHandler := procurement.NewHandler(logger, listing)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() { _ = inspector.Close() }()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		DB:                 pool,
		AuthHandler:        authHandler,
		ProcurementHandler: procurementHandler,
		JobHandler:         jobHandler,
		Metrics:            metrics,
		AccessLog:          true,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("env", cfg.AppEnv))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}

func runUsers(ctx context.Context, cfg *app.Config, args []string) int {
	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		fmt.Fprintf(os.Stderr, "users: connect postgres: %v\n", err)
		return 1
	}
	defer pool.Close()

	users, err := cli.NewUsersCLI(auth.NewRepository(pool))
	if err != nil {
		fmt.Fprintf(os.Stderr, "users: %v\n", err)
		return 1
	}
	return users.UsersCommand(ctx, args, cli.UsersOptions{})
}

func runJobs(ctx context.Context, cfg *app.Config, args []string) int {
	jobsCLI, err := cli.NewJobsCLI(cfg.RedisAddr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "jobs: %v\n", err)
		return 1
	}
	defer func() { _ = jobsCLI.Close() }()
	return jobsCLI.JobsCommand(ctx, args, os.Stdout, os.Stderr)
}
