package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/handlers"

	apihandlers "github.com/MichalDSW/investment-platform/internal/api/handlers"
	"github.com/MichalDSW/investment-platform/internal/api/middleware"
	"github.com/MichalDSW/investment-platform/internal/api/response"
	"github.com/MichalDSW/investment-platform/internal/pkg/config"
	"github.com/MichalDSW/investment-platform/internal/pkg/logger"
)

// Paths exempt from access logging and rate limiting
var healthPaths = []string{"/health", "/health/ready"}

// Router holds all dependencies for API routing
type Router struct {
	engine        *gin.Engine
	config        *config.Config
	healthHandler *apihandlers.HealthHandler
	quoteHandler  *apihandlers.QuoteHandler
}

// NewRouter creates a new API router
func NewRouter(cfg *config.Config, svc apihandlers.QuoteService, checkers map[string]apihandlers.Checker, version string) *Router {
	gin.SetMode(cfg.Server.Mode)

	r := &Router{
		engine:        gin.New(),
		config:        cfg,
		healthHandler: apihandlers.NewHealthHandler(svc.SourceName(), version, checkers),
		quoteHandler:  apihandlers.NewQuoteHandler(svc),
	}

	r.setupMiddlewares()
	r.setupRoutes()

	return r
}

// setupMiddlewares configures all global middlewares in pipeline order
func (r *Router) setupMiddlewares() {
	// Recovery middleware (must be first)
	r.engine.Use(middleware.Recovery())

	r.engine.Use(middleware.RequestID())

	r.engine.Use(middleware.Secure())

	r.engine.Use(middleware.CORS(middleware.DefaultCORSConfig(r.config.CORS.AllowOrigins)))

	loggingCfg := middleware.LoggingConfig{SkipPaths: healthPaths}
	if r.config.Logging.FileEnabled {
		accessLogger := logger.NewAccessLogger(
			r.config.Logging.FilePath,
			r.config.Logging.RotationSize,
			r.config.Logging.RetentionDays,
		)
		loggingCfg.AccessLogger = &accessLogger
	}
	r.engine.Use(middleware.Logging(loggingCfg))

	if r.config.RateLimit.Enabled {
		r.engine.Use(middleware.RateLimit(middleware.RateLimitConfig{
			Requests:  r.config.RateLimit.Requests,
			Window:    r.config.RateLimit.Window,
			SkipPaths: healthPaths,
			OnLimited: response.RateLimitExceeded,
		}))
	}
}

// setupRoutes configures all API routes
func (r *Router) setupRoutes() {
	// Health checks (no /api prefix)
	r.engine.GET("/health", r.healthHandler.Health)
	r.engine.GET("/health/ready", r.healthHandler.Ready)

	r.engine.NoRoute(func(c *gin.Context) {
		response.NotFound(c, "Route not found", c.Request.Method+" "+c.Request.URL.Path)
	})

	api := r.engine.Group("/api")
	{
		api.GET("/health/detailed", r.healthHandler.Detailed)

		stocks := api.Group("/v1/markets/stocks")
		{
			stocks.GET("", r.quoteHandler.GetQuotes)
			stocks.GET("/:symbol", r.quoteHandler.GetQuote)
		}
	}
}

// Engine returns the underlying Gin engine
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

// Handler returns the engine behind gzip/deflate compression
func (r *Router) Handler() http.Handler {
	return handlers.CompressHandler(r.engine)
}
