package http

import (
	"log/slog"

	"github.com/geocoder89/mural/internal/auth"
	"github.com/geocoder89/mural/internal/cache"
	"github.com/geocoder89/mural/internal/config"
	"github.com/geocoder89/mural/internal/http/handlers"
	"github.com/geocoder89/mural/internal/http/middlewares"
	"github.com/geocoder89/mural/internal/observability"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// Deps is everything the router wires into handlers. Built once in cmd/api.
type Deps struct {
	Cfg  config.Config
	Log  *slog.Logger
	Prom *observability.Prom

	Users         handlers.UserStore
	Departments   handlers.DepartmentLister
	Announcements handlers.AnnouncementStore

	Hasher handlers.PasswordHasher
	Tokens *auth.Manager

	// nil disables list caching
	ListCache cache.ListCache

	// dependencies pinged by /readyz
	Checks map[string]handlers.PingFunc
	// reports true once graceful shutdown has begun; may be nil
	ShuttingDown func() bool
}

func NewRouter(d Deps) *gin.Engine {
	if d.Cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}

	log := d.Log
	if log == nil {
		log = slog.Default()
	}

	r := gin.New()

	// middleware

	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	if d.Cfg.OTelEndpoint != "" {
		r.Use(otelgin.Middleware(d.Cfg.ServiceName))
	}
	if d.Prom != nil {
		r.Use(d.Prom.GinHandleMiddleware())
	}
	r.Use(middlewares.RequestLogger(log))
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(d.Cfg.CORSAllowedOrigins))
	if d.Cfg.MaxBodyBytes > 0 {
		r.Use(middlewares.MaxBodyBytes(d.Cfg.MaxBodyBytes))
	}
	r.Use(middlewares.RequestTimeout(d.Cfg.RequestTimeout()))

	// health
	h := handlers.NewHealthHandler(d.Checks, d.ShuttingDown)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)
	if d.Prom != nil {
		r.GET("/metrics", d.Prom.Handler())
	}

	// Wire up handlers
	authHandler := handlers.NewAuthHandler(d.Users, d.Hasher, d.Tokens, log)
	departmentsHandler := handlers.NewDepartmentsHandler(d.Departments, log)
	announcementsHandler := handlers.NewAnnouncementsHandler(d.Announcements, handlers.AnnouncementsOptions{
		Cache:            d.ListCache,
		Prom:             d.Prom,
		Log:              log,
		EnforceOwnership: d.Cfg.EnforceOwnership,
	})

	authMw := middlewares.NewAuthMiddleware(d.Tokens, log, d.Prom)

	// public routes
	r.POST("/registro", authHandler.Register)
	r.POST("/login", authHandler.Login)
	r.GET("/departamentos", departmentsHandler.List)

	// everything below needs a bearer token
	protected := r.Group("/")
	protected.Use(authMw.RequireAuth())
	{
		protected.GET("/mural", announcementsHandler.List)
		protected.POST("/avisos", announcementsHandler.Create)
		protected.PUT("/avisos/:id", announcementsHandler.Update)
		protected.DELETE("/avisos/:id", announcementsHandler.Delete)
	}

	return r
}
