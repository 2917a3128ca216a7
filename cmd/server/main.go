package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/hugh/salespulse/internal/api"
	"github.com/hugh/salespulse/internal/auth"
	"github.com/hugh/salespulse/internal/database"
	"github.com/hugh/salespulse/internal/storage"
	"github.com/hugh/salespulse/internal/week"
	"github.com/hugh/salespulse/pkg/config"
	"github.com/hugh/salespulse/pkg/crypto"
	"github.com/hugh/salespulse/pkg/queue"
	"github.com/hugh/salespulse/pkg/util"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := util.NewLoggerWithOptions(cfg.Server.Env, util.LogOptions{
		Service: "salespulse-api",
		Level:   cfg.Log.Level,
		File: util.LogFile{
			Path:       cfg.Log.File,
			MaxSizeMB:  cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
			MaxAgeDays: cfg.Log.MaxAgeDays,
		},
	})
	slog.SetDefault(logger)

	logger.Info("starting salespulse server",
		"env", cfg.Server.Env,
		"addr", cfg.Server.Addr(),
		"timezone", cfg.App.Timezone,
	)

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(&cfg.Database, logger); err != nil {
			logger.Error("failed to run migrations", "error", err)
			os.Exit(1)
		}
	}

	db, err := database.Connect(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	// Redis backs the job queue and readiness checks. The API still serves
	// without it; rebuild requests then return 503.
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		logger.Warn("failed to connect to Redis", "error", err)
		redisClient.Close()
		redisClient = nil
	}

	var asynqClient *asynq.Client
	routerCfg := api.RouterConfig{}
	if redisClient != nil {
		asynqClient = queue.NewClient(&cfg.Redis)
		routerCfg.Queue = asynqClient
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Expiry())
	authService := auth.NewService(db, jwtService)

	encryptor, err := crypto.FromConfig(cfg.Encryption.Key, cfg.Encryption.RetiredKeys...)
	if err != nil {
		logger.Error("failed to create encryptor", "error", err)
		os.Exit(1)
	}
	if encryptor == nil {
		logger.Warn("ENCRYPTION_KEY not set, activity metadata is stored unencrypted")
	}

	presigner, err := storage.NewS3Presigner(context.Background(), cfg.Storage, logger)
	switch {
	case errors.Is(err, storage.ErrDisabled):
		logger.Info("S3_BUCKET not set, hub file uploads disabled")
	case err != nil:
		logger.Error("failed to configure storage", "error", err)
		os.Exit(1)
	default:
		routerCfg.Uploads = presigner
	}

	routerCfg.DB = db
	routerCfg.Redis = redisClient
	routerCfg.Logger = logger
	routerCfg.JWTService = jwtService
	routerCfg.AuthService = authService
	routerCfg.Encryptor = encryptor
	routerCfg.Calendar = week.NewCalendar(cfg.App.Location())
	routerCfg.AllowedOrigins = cfg.Server.AllowedOrigins
	routerCfg.RateLimitReqs = cfg.RateLimit.Requests
	routerCfg.RateLimitSecs = cfg.RateLimit.WindowSeconds
	routerCfg.Development = cfg.Server.IsDevelopment()
	routerCfg.TokenMaxAge = int(jwtService.TTL().Seconds())

	router := api.NewRouter(routerCfg)

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	stopCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", server.Addr)
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
		}
	case <-stopCtx.Done():
		logger.Info("shutdown signal received, draining requests")
		drainCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := server.Shutdown(drainCtx); err != nil {
			logger.Error("server shutdown error", "error", err)
		}
		cancel()
	}

	if asynqClient != nil {
		asynqClient.Close()
	}
	if redisClient != nil {
		redisClient.Close()
	}
	if err := database.Close(db); err != nil {
		logger.Error("failed to close database", "error", err)
	}

	logger.Info("server stopped")
}
