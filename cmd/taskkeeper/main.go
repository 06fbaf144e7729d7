package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"

	"github.com/taskkeeper/taskkeeper/cmd/taskkeeper/cli"
	"github.com/taskkeeper/taskkeeper/internal/app"
	"github.com/taskkeeper/taskkeeper/internal/auth"
	"github.com/taskkeeper/taskkeeper/internal/observability"
	"github.com/taskkeeper/taskkeeper/internal/platform/cache"
	"github.com/taskkeeper/taskkeeper/internal/platform/db"
	"github.com/taskkeeper/taskkeeper/internal/shared"
	"github.com/taskkeeper/taskkeeper/internal/tasks"
	"github.com/taskkeeper/taskkeeper/internal/users"
	"github.com/taskkeeper/taskkeeper/jobs"
)

const usage = `usage: taskkeeper [serve|migrate <up|down|status>|jobs <inspect|scheduled|trigger name>]`

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	flag.Usage = func() { fmt.Fprintln(os.Stderr, usage) }
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	args := flag.Args()
	command := "serve"
	if len(args) > 0 {
		command = args[0]
	}

	switch command {
	case "serve":
		if err := serve(ctx, cfg, logger); err != nil {
			logger.Error("serve", slog.Any("error", err))
			os.Exit(1)
		}
	case "migrate":
		direction := "up"
		if len(args) > 1 {
			direction = args[1]
		}
		if err := db.Migrate(ctx, cfg.PGDSN, direction, logger); err != nil {
			logger.Error("migrate", slog.String("command", direction), slog.Any("error", err))
			os.Exit(1)
		}
	case "jobs":
		jobsCLI, err := cli.NewJobsCLI(cfg.RedisAddr, cfg.AuditRetentionDays)
		if err != nil {
			logger.Error("jobs cli", slog.Any("error", err))
			os.Exit(1)
		}
		code := jobsCLI.Run(ctx, args[1:], os.Stdout, os.Stderr)
		if err := jobsCLI.Close(); err != nil {
			logger.Warn("jobs cli close", slog.Any("error", err))
		}
		os.Exit(code)
	default:
		flag.Usage()
		os.Exit(2)
	}
}

func serve(ctx context.Context, cfg *app.Config, logger *slog.Logger) error {
	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		return err
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		return err
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "taskkeeper_session", cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)
	auditLogger := shared.NewAuditLogger(pool)
	metrics := observability.NewMetrics()

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	jobClient := jobs.NewClient(redisOpts)
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	userService := users.NewService(users.NewRepository(pool), users.NewBcryptHasher(bcrypt.DefaultCost), logger)
	userService.SetNotifier(jobClient)
	userService.SetAudit(auditLogger)
	userService.SetEvents(metrics)

	taskService := tasks.NewService(tasks.NewRepository(pool), logger)
	taskService.SetOwners(userService)
	taskService.SetAudit(auditLogger)

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		SessionManager: sessionManager,
		CSRFManager:    csrfManager,
		AuthHandler:    auth.NewHandler(logger, userService, sessionManager, csrfManager),
		UsersHandler:   users.NewHandler(logger, userService),
		TasksHandler:   tasks.NewHandler(logger, taskService),
		Accounts:       userService,
		JobHandler:     jobs.NewHandler(inspector, logger),
		Metrics:        metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
