package api

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/hugh/salespulse/internal/activity"
	"github.com/hugh/salespulse/internal/api/handlers"
	"github.com/hugh/salespulse/internal/api/middleware"
	"github.com/hugh/salespulse/internal/auth"
	"github.com/hugh/salespulse/internal/database/models"
	"github.com/hugh/salespulse/internal/hub"
	"github.com/hugh/salespulse/internal/leaderboard"
	"github.com/hugh/salespulse/internal/performance"
	"github.com/hugh/salespulse/internal/tasks"
	"github.com/hugh/salespulse/internal/users"
	"github.com/hugh/salespulse/internal/week"
	"github.com/hugh/salespulse/pkg/crypto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Router struct {
	chi.Router
}

type RouterConfig struct {
	DB          *gorm.DB
	Redis       *redis.Client
	Logger      *slog.Logger
	JWTService  *auth.JWTService
	AuthService *auth.Service
	Encryptor   *crypto.Encryptor
	Calendar    *week.Calendar
	// Queue and Uploads are optional; leave them nil (not a typed nil)
	// when Redis or S3 are not configured.
	Queue          tasks.Enqueuer
	Uploads        handlers.Presigner
	AllowedOrigins []string
	RateLimitReqs  int
	RateLimitSecs  int
	Development    bool
	TokenMaxAge    int
}

func NewRouter(cfg RouterConfig) *Router {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.Logging(cfg.Logger))
	r.Use(middleware.Metrics)
	r.Use(middleware.SecureHeaders(cfg.Development))

	if cfg.RateLimitReqs > 0 {
		r.Use(middleware.RateLimit(cfg.RateLimitReqs, cfg.RateLimitSecs))
	}

	allowedOrigins := cfg.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:3000", "http://localhost:5173"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Auth-Token", "X-CSRF-Token", "X-Request-Id"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Services
	activityService := activity.NewService(cfg.DB, cfg.Calendar, cfg.Encryptor, cfg.Logger)
	performanceService := performance.NewService(cfg.DB, cfg.Calendar, cfg.Logger)
	leaderboardService := leaderboard.NewService(cfg.DB, cfg.Calendar, cfg.Logger)
	hubService := hub.NewService(cfg.DB, cfg.Logger)
	userService := users.NewService(cfg.DB, cfg.Logger)

	// Handlers
	rs := handlers.NewResponder(cfg.Logger, cfg.Development)
	healthHandler := handlers.NewHealthHandler(cfg.DB, cfg.Redis)
	authHandler := handlers.NewAuthHandler(cfg.AuthService, rs, !cfg.Development, cfg.TokenMaxAge)
	userHandler := handlers.NewUserHandler(userService, rs)
	activityHandler := handlers.NewActivityHandler(activityService, cfg.Calendar, cfg.Queue, rs)
	perfHandler := handlers.NewPerformanceHandler(performanceService, cfg.Calendar, rs)
	updateHandler := handlers.NewTeamUpdateHandler(hubService, cfg.Uploads, rs)
	boardHandler := handlers.NewLeaderboardHandler(leaderboardService, rs)

	// Ops endpoints (no auth required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)
	r.Handle("/metrics", promhttp.Handler())

	admin := middleware.RequireRole(models.RoleAdmin)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/logout", authHandler.Logout)

		r.Group(func(r chi.Router) {
			r.Use(middleware.CSRF)
			r.Use(middleware.Auth(cfg.JWTService, cfg.AuthService))

			r.Get("/auth/me", authHandler.Me)
			r.With(admin).Post("/auth/register", authHandler.Register)

			r.Route("/users", func(r chi.Router) {
				r.With(admin).Get("/", userHandler.List)
				r.Get("/aes", userHandler.ListAEs)
				r.Get("/{id}", userHandler.Get)
				r.With(admin).Patch("/{id}", userHandler.Update)
				r.With(admin).Patch("/{id}/status", userHandler.SetStatus)
			})

			r.Route("/activity", func(r chi.Router) {
				r.Post("/events", activityHandler.Log)
				r.Post("/events/{id}/reverse", activityHandler.Reverse)
				r.Get("/me/summary", activityHandler.Summary)
				r.Get("/me/events", activityHandler.Events)

				r.Route("/admin", func(r chi.Router) {
					r.Use(admin)
					r.Get("/overview", activityHandler.Overview)
					r.Get("/daily", activityHandler.Daily)
					r.Get("/weekly", activityHandler.Weekly)
					r.Get("/attainment", perfHandler.Attainment)
					r.Post("/rebuild", activityHandler.Rebuild)
				})
			})

			r.Route("/commitments", func(r chi.Router) {
				r.Get("/", perfHandler.ListCommitments)
				r.Post("/", perfHandler.SaveCommitment)
				r.Get("/current", perfHandler.CurrentCommitment)
				r.Get("/history", perfHandler.CommitmentHistory)
				r.Get("/user/{userId}/week/{weekStart}", perfHandler.UserCommitmentForWeek)
				r.Get("/user/{userId}/history", perfHandler.UserCommitmentHistory)
			})

			r.Route("/results", func(r chi.Router) {
				r.Get("/", perfHandler.ListResults)
				r.Post("/", perfHandler.SaveResult)
				r.Get("/previous", perfHandler.PreviousResult)
				r.Get("/history", perfHandler.ResultHistory)
				r.Get("/reconcile", perfHandler.Reconcile)
				r.Get("/user/{userId}/week/{weekStart}", perfHandler.UserResultForWeek)
				r.Get("/user/{userId}/history", perfHandler.UserResultHistory)
			})

			r.Route("/goals", func(r chi.Router) {
				r.Post("/", perfHandler.SaveGoal)
				r.Patch("/achievement", perfHandler.UpdateAchievement)
				r.Get("/date/{date}", perfHandler.GoalForDate)
				r.Get("/week/current", perfHandler.CurrentWeekGoals)
				r.Get("/user/{userId}/date/{date}", perfHandler.UserGoalForDate)
				r.Get("/user/{userId}/week/{weekStart}", perfHandler.UserGoalsForWeek)
			})

			r.Route("/team-updates", func(r chi.Router) {
				r.Get("/", updateHandler.List)
				r.Get("/categories", updateHandler.Categories)
				r.Get("/me/favorites", updateHandler.Favorites)
				r.Get("/me/recents", updateHandler.Recents)
				r.With(admin).Post("/", updateHandler.Create)
				r.With(admin).Patch("/bulk", updateHandler.BulkUpdate)
				r.With(admin).Post("/uploads", updateHandler.Upload)
				r.Get("/{id}", updateHandler.Get)
				r.With(admin).Put("/{id}", updateHandler.Update)
				r.With(admin).Delete("/{id}", updateHandler.Delete)
				r.Post("/{id}/favorite", updateHandler.AddFavorite)
				r.Delete("/{id}/favorite", updateHandler.RemoveFavorite)
			})

			r.Route("/leaderboard", func(r chi.Router) {
				r.Get("/", boardHandler.Board)
				r.Get("/summary", boardHandler.Summary)
				r.Get("/history", boardHandler.History)
				r.Get("/weeks-available", boardHandler.WeeksAvailable)
				r.Get("/top", boardHandler.Top)
			})
		})
	})

	return &Router{r}
}
