package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/hugh/salespulse/internal/activity"
	"github.com/hugh/salespulse/internal/database"
	"github.com/hugh/salespulse/internal/tasks"
	"github.com/hugh/salespulse/internal/week"
	"github.com/hugh/salespulse/pkg/config"
	"github.com/hugh/salespulse/pkg/crypto"
	"github.com/hugh/salespulse/pkg/queue"
	"github.com/hugh/salespulse/pkg/util"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := util.NewLoggerWithOptions(cfg.Server.Env, util.LogOptions{
		Service: "salespulse-worker",
		Level:   cfg.Log.Level,
		File: util.LogFile{
			Path:       cfg.Log.File,
			MaxSizeMB:  cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
			MaxAgeDays: cfg.Log.MaxAgeDays,
		},
	})
	slog.SetDefault(logger)

	logger.Info("starting salespulse worker", "audit_cron", cfg.Jobs.AuditCron)

	db, err := database.Connect(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	encryptor, err := crypto.FromConfig(cfg.Encryption.Key, cfg.Encryption.RetiredKeys...)
	if err != nil {
		logger.Error("failed to create encryptor", "error", err)
		os.Exit(1)
	}

	loc := cfg.App.Location()
	rollups := activity.NewService(db, week.NewCalendar(loc), encryptor, logger)

	client := queue.NewClient(&cfg.Redis)
	defer client.Close()

	srv := queue.NewServer(&cfg.Redis, 4)
	handler := tasks.NewHandler(rollups, client, logger)

	mux := asynq.NewServeMux()
	handler.RegisterHandlers(mux)

	scheduler := queue.NewScheduler(&cfg.Redis, loc, logger)
	auditTask, err := tasks.NewRollupAuditTask(tasks.RollupAuditPayload{Weeks: cfg.Jobs.AuditWeeks})
	if err != nil {
		logger.Error("failed to build audit task", "error", err)
		os.Exit(1)
	}
	entryID, err := scheduler.Register(cfg.Jobs.AuditCron, auditTask)
	if err != nil {
		logger.Error("failed to schedule rollup audit", "error", err)
		os.Exit(1)
	}
	if next, err := util.NextCronTime(cfg.Jobs.AuditCron, time.Now().In(loc)); err == nil {
		logger.Info("rollup audit scheduled", "entry_id", entryID, "next_run", next)
	}

	// A configured retired key means a rotation is in progress.
	if len(cfg.Encryption.RetiredKeys) > 0 && encryptor != nil {
		reseal, err := tasks.NewMetadataResealTask(tasks.MetadataResealPayload{})
		if err == nil {
			_, err = client.Enqueue(reseal)
		}
		if err != nil && !errors.Is(err, asynq.ErrDuplicateTask) {
			logger.Warn("failed to queue metadata reseal", "error", err)
		} else if err == nil {
			logger.Info("queued metadata reseal", "retired_keys", len(cfg.Encryption.RetiredKeys))
		}
	}

	if err := scheduler.Start(); err != nil {
		logger.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		logger.Info("shutting down worker...")
		scheduler.Shutdown()
		srv.Shutdown()
		cancel()
	}()

	logger.Info("worker started, waiting for tasks...")

	if err := srv.Run(mux); err != nil {
		logger.Error("worker error", "error", err)
	}

	<-ctx.Done()

	if err := database.Close(db); err != nil {
		logger.Error("failed to close database", "error", err)
	}

	logger.Info("worker stopped")
}
