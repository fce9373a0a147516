// Package router registers the API routes.
package router

import (
	"arena/config"
	"arena/internal/delivery/api/middleware"
	"arena/internal/delivery/api/router/handler"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"golang.org/x/time/rate"
)

type RouterParams struct {
	fx.In

	AuthHandler      *handler.AuthHandler
	TwoFactorHandler *handler.TwoFactorHandler
	StatsHandler     *handler.StatsHandler
	MatchHandler     *handler.MatchHandler
	AuthMiddleware   *middleware.AuthMiddleware
	Registry         *prometheus.Registry
	Config           *config.Config
}

type router struct {
	authHandler      *handler.AuthHandler
	twoFactorHandler *handler.TwoFactorHandler
	statsHandler     *handler.StatsHandler
	matchHandler     *handler.MatchHandler
	authMiddleware   *middleware.AuthMiddleware
	registry         *prometheus.Registry
	config           *config.Config
}

// NewRouter is the constructor for the Router.
func NewRouter(params RouterParams) *router {
	return &router{
		authHandler:      params.AuthHandler,
		twoFactorHandler: params.TwoFactorHandler,
		statsHandler:     params.StatsHandler,
		matchHandler:     params.MatchHandler,
		authMiddleware:   params.AuthMiddleware,
		registry:         params.Registry,
		config:           params.Config,
	}
}

// RegisterRoutes sets up all the API routes for the application.
func (r *router) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", handler.HealthCheck)

	if r.config.Metrics != nil && r.config.Metrics.Enabled && r.registry != nil {
		e.GET(r.config.Metrics.Path, echo.WrapHandler(promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})))
	}

	authGroup := e.Group("/auth")
	{
		limiter := r.credentialRateLimiter()
		authGroup.POST("/register", r.authHandler.Register, limiter)
		authGroup.POST("/login", r.authHandler.Login, limiter)
	}

	sessionGroup := authGroup.Group("", r.authMiddleware.Authenticate)
	{
		sessionGroup.POST("/logout", r.authHandler.Logout)
		sessionGroup.POST("/refresh", r.authHandler.Refresh)
		sessionGroup.GET("/me", r.authHandler.Me)
	}

	twoFactorGroup := authGroup.Group("/2fa", r.authMiddleware.Authenticate)
	{
		twoFactorGroup.POST("/setup", r.twoFactorHandler.Setup)
		twoFactorGroup.POST("/verify", r.twoFactorHandler.Verify)
		twoFactorGroup.POST("/disable", r.twoFactorHandler.Disable)
		twoFactorGroup.POST("/backup-codes", r.twoFactorHandler.RegenerateBackupCodes)
	}

	tournamentGroup := e.Group("/tournament", r.authMiddleware.Authenticate)
	{
		tournamentGroup.POST("/local-result", r.statsHandler.RecordLocalResult)
	}

	matchGroup := e.Group("/matches", r.authMiddleware.Authenticate)
	{
		matchGroup.POST("", r.matchHandler.Create)
		matchGroup.GET("/:id", r.matchHandler.Get)
		matchGroup.POST("/:id/start", r.matchHandler.Start)
		matchGroup.POST("/:id/complete", r.matchHandler.Complete)
	}
}

// credentialRateLimiter throttles credential endpoints per client IP.
func (r *router) credentialRateLimiter() echo.MiddlewareFunc {
	storeCfg := echomiddleware.RateLimiterMemoryStoreConfig{Rate: rate.Limit(5), Burst: 10}
	if r.config.Auth != nil && r.config.Auth.RateLimit != nil {
		limit := r.config.Auth.RateLimit
		storeCfg = echomiddleware.RateLimiterMemoryStoreConfig{
			Rate:      rate.Limit(limit.RequestsPerSecond),
			Burst:     limit.Burst,
			ExpiresIn: limit.ExpiresIn,
		}
	}

	return echomiddleware.RateLimiterWithConfig(echomiddleware.RateLimiterConfig{
		Store: echomiddleware.NewRateLimiterMemoryStoreWithConfig(storeCfg),
	})
}
