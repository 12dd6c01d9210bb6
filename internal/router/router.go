package router

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"go.uber.org/zap"

	"github.com/freelancehub/api/internal/config"
	"github.com/freelancehub/api/internal/handlers"
	"github.com/freelancehub/api/internal/logger"
	"github.com/freelancehub/api/internal/metrics"
	"github.com/freelancehub/api/internal/middleware"
	"github.com/freelancehub/api/internal/models"
	"github.com/freelancehub/api/internal/realtime"
	"github.com/freelancehub/api/internal/store"
)

// Repository is everything the routes need from persistence.
type Repository interface {
	handlers.UserStore
	handlers.ProjectStore
	handlers.BidStore
}

type Deps struct {
	Config   config.Config
	Log      *zap.Logger
	Repo     Repository
	Sessions Sessions
	Notifier handlers.Notifier
	// nil disables /ws/notifications
	Hub    *realtime.Hub
	Checks map[string]func(ctx context.Context) error
}

type Sessions interface {
	handlers.Sessions
	middleware.SessionReader
}

func New(d Deps) *fiber.App {
	cfg := d.Config

	app := fiber.New(fiber.Config{
		AppName:      "freelancehub-api",
		ErrorHandler: handlers.ErrorHandler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	})

	app.Use(requestid.New())
	app.Use(metrics.Middleware())
	app.Use(logger.Middleware(d.Log))
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept",
		ExposeHeaders:    "Content-Length, X-Request-ID",
		AllowCredentials: true,
	}))

	sessions := d.Sessions
	authed := func(hs ...fiber.Handler) []fiber.Handler {
		chain := []fiber.Handler{middleware.JWTFromCookie(sessions), middleware.AttachJWTLocals()}
		return append(chain, hs...)
	}
	clientOnly := middleware.RequireRoles(d.Repo, models.RoleClient)
	freelancerOnly := middleware.RequireRoles(d.Repo, models.RoleFreelancer)
	anyRole := middleware.RequireRoles(d.Repo, models.RoleClient, models.RoleFreelancer)

	authH := &handlers.AuthHandler{Users: d.Repo, Sessions: sessions}
	closeOnAward := cfg.BidAwardPolicy != string(store.AwardKeepPending)
	projectH := &handlers.ProjectHandler{
		Projects:         d.Repo,
		Notifier:         d.Notifier,
		EnforceOwnership: cfg.EnforceOwnership,
		CloseOnAward:     closeOnAward,
	}
	bidH := &handlers.BidHandler{
		Projects:         d.Repo,
		Bids:             d.Repo,
		Notifier:         d.Notifier,
		MaxBidRatio:      cfg.MaxBidRatio,
		EnforceOwnership: cfg.EnforceOwnership,
		CloseOnAward:     closeOnAward,
	}
	healthH := &handlers.HealthHandler{Checks: d.Checks}

	app.Get("/healthz", healthH.Health)
	app.Get("/metrics", metrics.Handler())

	if d.Hub != nil {
		notifH := &handlers.NotificationHandler{Hub: d.Hub}
		app.Get("/ws/notifications", authed(notifH.Upgrade, notifH.Stream())...)
	}

	api := app.Group("/api")

	api.Post("/auth/signup", authH.Signup)
	api.Post("/auth/login", authH.Login)
	api.Get("/auth/check", authH.Check)
	api.Post("/auth/check", authH.Check)
	api.Post("/auth/logout", authH.Logout)

	if cfg.GoogleEnabled() {
		googleH := handlers.NewGoogleOAuthHandler(cfg, d.Repo, sessions)
		api.Get("/auth/google/start", googleH.GoogleStart)
		api.Get("/auth/google/callback", googleH.GoogleCallback)
	}

	// projects
	api.Get("/projects", projectH.List)
	api.Get("/projects/:id", projectH.Get)
	api.Post("/projects", authed(clientOnly, projectH.Create)...)
	api.Put("/projects/:id", authed(clientOnly, projectH.Update)...)
	api.Delete("/projects/:id", authed(clientOnly, projectH.Delete)...)
	api.Get("/me/projects", authed(anyRole, projectH.Mine)...)

	// bids
	api.Get("/projects/:id/bids", bidH.ForProject)
	api.Post("/projects/:id/bids", authed(freelancerOnly, bidH.Create)...)
	api.Get("/me/bids", authed(anyRole, bidH.Mine)...)
	api.Get("/bids/:id", authed(anyRole, bidH.Get)...)
	api.Patch("/bids/:id/status", authed(clientOnly, bidH.UpdateStatus)...)
	api.Put("/bids/:id/status", authed(clientOnly, bidH.UpdateStatus)...)

	return app
}
