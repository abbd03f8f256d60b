package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/prasenjit/go-meraki-mcp/internal/engine"
	"github.com/prasenjit/go-meraki-mcp/internal/tracing"
)

// Router handles HTTP routing
type Router struct {
	engine  *gin.Engine
	core    *engine.Engine
	handler *Handler
	logger  zerolog.Logger
}

// NewRouter creates a new router
func NewRouter(core *engine.Engine, logger zerolog.Logger) *Router {
	if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}

	r := &Router{
		engine:  gin.New(),
		core:    core,
		handler: NewHandler(core),
		logger:  logger,
	}

	// Setup middleware
	r.engine.Use(gin.Recovery())
	r.engine.Use(corsMiddleware())
	r.engine.Use(gin.Logger())

	r.setupRoutes()

	return r
}

// setupRoutes configures all routes
func (r *Router) setupRoutes() {
	api := r.engine.Group("/_api")
	{
		// Discovery
		api.GET("/operations", r.handler.ListOperations)
		api.GET("/operations/:id", r.handler.DescribeOperation)
		api.GET("/search", r.handler.Search)

		// Execution
		api.POST("/execute", r.handler.Execute)
		api.POST("/execute/batch", r.handler.ExecuteBatch)

		// Credentials and organizations
		api.GET("/credentials", r.handler.ListCredentials)
		api.PUT("/credentials/active", r.handler.SetActiveCredential)
		api.POST("/organizations/discover", r.handler.DiscoverOrganizations)
		api.GET("/organizations", r.handler.ListOrganizations)

		// Cache
		api.DELETE("/cache", r.handler.ClearCache)

		// Statistics
		api.GET("/stats", r.handler.GetGlobalStats)
		api.GET("/stats/operations/:id", r.handler.GetOperationStats)
		api.POST("/stats/reset", r.handler.ResetStats)

		// Tracing
		api.GET("/traces", r.handler.ListTraces)
		api.GET("/traces/stream", gin.WrapH(tracing.NewWebSocketHandler(r.core.Tracer(), r.logger)))
		api.GET("/traces/:id", r.handler.GetTrace)
		api.DELETE("/traces", r.handler.ClearTraces)

		// Health
		api.GET("/health", r.handler.HealthCheck)
	}

	r.engine.GET("/metrics", gin.WrapH(r.core.Metrics().Handler()))

	r.engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Route not found", "path": c.Request.URL.Path})
	})
}

// Handler returns the http.Handler
func (r *Router) Handler() http.Handler {
	return r.engine
}

// corsMiddleware adds CORS headers
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
