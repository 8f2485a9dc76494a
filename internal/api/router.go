package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/thanhnp/record-ledger/internal/api/handlers"
	"github.com/thanhnp/record-ledger/internal/api/middleware"
	"github.com/thanhnp/record-ledger/internal/ledger"
	"github.com/thanhnp/record-ledger/internal/notifier"
)

// Settings holds router options that come from configuration
type Settings struct {
	// AuthToken guards write routes when non-empty
	AuthToken string
	// AuthReads extends the token check to every ledger read
	AuthReads bool
	// Schemas maps ledger names to the payload validator for appends
	Schemas map[string]handlers.PayloadValidator
}

// Router wraps the Gin router with handlers
type Router struct {
	engine        *gin.Engine
	registry      *ledger.Registry
	settings      Settings
	blockHandler  *handlers.BlockHandler
	chainHandler  *handlers.ChainHandler
	recordHandler *handlers.RecordHandler
}

// NewRouter creates a new Router with all handlers
func NewRouter(registry *ledger.Registry, n notifier.BlockNotifier, settings Settings) *Router {
	gin.SetMode(gin.ReleaseMode)

	r := &Router{
		engine:        gin.New(),
		registry:      registry,
		settings:      settings,
		blockHandler:  handlers.NewBlockHandler(settings.Schemas),
		chainHandler:  handlers.NewChainHandler(n),
		recordHandler: handlers.NewRecordHandler(),
	}

	r.setupMiddleware()
	r.setupRoutes()

	return r
}

// setupMiddleware configures middleware
func (r *Router) setupMiddleware() {
	r.engine.Use(middleware.Recovery())
	r.engine.Use(middleware.RequestID())
	r.engine.Use(middleware.Logger())
	r.engine.Use(middleware.CORS())
}

// setupRoutes configures API routes
func (r *Router) setupRoutes() {
	// Health check
	r.engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "ledgers": r.registry.Names()})
	})

	auth := middleware.BearerAuth(r.settings.AuthToken)

	// API v1 routes
	v1 := r.engine.Group("/api/v1/:ledger")
	v1.Use(middleware.ValidateLedger(r.registry))

	reads := v1.Group("")
	if r.settings.AuthReads {
		reads.Use(auth)
	}
	{
		// Block routes
		blocks := reads.Group("/blocks")
		{
			blocks.GET("", r.blockHandler.List)
			blocks.GET("/latest", r.blockHandler.GetLatest)
			blocks.GET("/index/:index", r.blockHandler.GetByIndex)
			blocks.GET("/:hash", r.blockHandler.GetByHash)
		}

		// Record routes
		records := reads.Group("/records")
		{
			records.GET("", r.recordHandler.List)
			records.GET("/:id", r.recordHandler.Get)
		}

		reads.GET("/validate", r.chainHandler.Validate)
		reads.GET("/stream", r.chainHandler.Stream)
	}

	writes := v1.Group("/blocks", auth)
	{
		writes.POST("", r.blockHandler.Append)
		writes.DELETE("", r.blockHandler.Reset)
	}
}

// Engine returns the underlying Gin engine
func (r *Router) Engine() *gin.Engine {
	return r.engine
}
