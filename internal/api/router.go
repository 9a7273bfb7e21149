package api

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/James-Kabz/CLIENT-PORTAL/internal/api/handlers"
	"github.com/James-Kabz/CLIENT-PORTAL/internal/api/middleware"
	"github.com/James-Kabz/CLIENT-PORTAL/internal/auth"
	"github.com/James-Kabz/CLIENT-PORTAL/internal/mailer"
	"github.com/James-Kabz/CLIENT-PORTAL/internal/storage"
	"github.com/James-Kabz/CLIENT-PORTAL/internal/token"
	"github.com/James-Kabz/CLIENT-PORTAL/pkg/config"
)

type Router struct {
	chi.Router
}

type RouterConfig struct {
	DB             *gorm.DB
	Redis          *redis.Client
	Logger         *slog.Logger
	JWTService     *auth.JWTService
	AuthService    *auth.Service
	TokenService   *token.Service
	Mailer         mailer.Mailer
	Store          storage.Store
	AsynqClient    *asynq.Client
	GoogleOAuth    config.GoogleOAuthConfig
	AllowedOrigins []string // CORS allowed origins
	RateLimitReqs  int      // Rate limit requests per window
	RateLimitSecs  int      // Rate limit window in seconds
	SecureCookies  bool     // Set Secure on session cookies (HTTPS deployments)
}

func NewRouter(cfg RouterConfig) *Router {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.Logging(cfg.Logger))

	// Rate limiting - applied globally to prevent abuse
	if cfg.RateLimitReqs > 0 {
		r.Use(middleware.RateLimit(cfg.RateLimitReqs, cfg.RateLimitSecs))
	}

	// CORS - restrict to configured origins, or allow all in development
	allowedOrigins := cfg.AllowedOrigins
	if len(allowedOrigins) == 0 {
		// Default to localhost for development - configure in production
		allowedOrigins = []string{"http://localhost:3000", "http://localhost:8080"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Auth-Token"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(cfg.DB, cfg.Redis)
	authHandler := handlers.NewAuthHandler(cfg.AuthService, cfg.TokenService, cfg.Mailer, cfg.AsynqClient, cfg.Logger, cfg.GoogleOAuth, cfg.SecureCookies)
	clientHandler := handlers.NewClientHandler(cfg.DB)
	documentHandler := handlers.NewDocumentHandler(cfg.DB, cfg.Store, cfg.Logger)
	taskHandler := handlers.NewTaskHandler(cfg.DB)

	// Health endpoints (no auth required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		// Public auth endpoints
		r.Route("/auth", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(middleware.RedirectIfAuthenticated(cfg.JWTService))
				r.Post("/register", authHandler.Register)
				r.Post("/login", authHandler.Login)
			})
			r.Post("/logout", authHandler.Logout)
			r.Post("/verify-email", authHandler.VerifyEmail)
			r.Get("/verify", authHandler.VerifyEmailLink)
			r.Post("/resend-verification", authHandler.ResendVerification)
			r.Post("/forgot-password", authHandler.ForgotPassword)
			r.Post("/reset-password", authHandler.ResetPassword)
			r.Get("/google", authHandler.GoogleLogin)
			r.Get("/google/callback", authHandler.GoogleCallback)
		})

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWTService, cfg.DB))
			r.Use(middleware.RequireVerified)
			if cfg.RateLimitReqs > 0 {
				// Per-user budget on top of the global per-IP limit
				r.Use(middleware.RateLimitByUser(cfg.RateLimitReqs, cfg.RateLimitSecs))
			}

			r.Get("/me", authHandler.Me)

			// Clients endpoints
			r.Route("/clients", func(r chi.Router) {
				r.Get("/", clientHandler.List)
				r.Post("/", clientHandler.Create)
				r.Get("/{id}", clientHandler.Get)
				r.Put("/{id}", clientHandler.Update)
				r.Delete("/{id}", clientHandler.Delete)
			})

			// Documents endpoints
			r.Route("/documents", func(r chi.Router) {
				r.Get("/", documentHandler.List)
				r.Post("/", documentHandler.Create)
				r.Get("/{id}", documentHandler.Get)
				r.Put("/{id}", documentHandler.Update)
				r.Delete("/{id}", documentHandler.Delete)
				r.Get("/{id}/download", documentHandler.Download)
			})

			// Tasks endpoints
			r.Route("/tasks", func(r chi.Router) {
				r.Get("/", taskHandler.List)
				r.Post("/", taskHandler.Create)
				r.Get("/{id}", taskHandler.Get)
				r.Put("/{id}", taskHandler.Update)
				r.Delete("/{id}", taskHandler.Delete)
			})
		})
	})

	return &Router{r}
}
