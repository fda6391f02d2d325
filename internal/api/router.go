package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/emd5953/leaseIQ-sub000/internal/api/handlers"
	"github.com/emd5953/leaseIQ-sub000/internal/api/middleware"
	"github.com/emd5953/leaseIQ-sub000/internal/logging"
	"github.com/emd5953/leaseIQ-sub000/internal/services"
	"github.com/emd5953/leaseIQ-sub000/internal/tasks"
)

// Dependencies are the services the HTTP surface exposes.
type Dependencies struct {
	Ingestion  services.IIngestionService
	Locator    services.IDuplicateLocator
	Search     services.ISearchService
	TaskClient tasks.Enqueuer // optional
	RateLimit  *middleware.RateLimiterMiddleware
	Logger     *slog.Logger
}

// SetupRouter configures and returns the main Gin engine.
func SetupRouter(deps Dependencies) *gin.Engine {
	r := gin.New()

	// Apply global middleware first (order matters)
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.CORSMiddleware())
	if deps.RateLimit != nil {
		r.Use(deps.RateLimit.Limit())
	}

	restListingHandler := handlers.NewRestListingHandler(deps.Ingestion, deps.Locator, deps.Search, deps.TaskClient, deps.Logger)

	v1 := r.Group("/v1")
	{
		v1.POST("/listing/ingest", restListingHandler.IngestListing)
		v1.GET("/listing/duplicates", restListingHandler.FindDuplicates)
		v1.POST("/listing/search", restListingHandler.SearchListings)
		v1.GET("/listing/:id", restListingHandler.GetListingByID)

		v1.GET("/ping", func(c *gin.Context) {
			c.String(http.StatusOK, "pong")
		})
	}

	return r
}

// SetupServiceRouter configures the internal service Gin engine. It is bound
// to a separate port and must not be exposed publicly.
func SetupServiceRouter(alerts services.IAlertService, shutdownChan chan<- struct{}, logger *slog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(logger))

	r.POST("/api", func(c *gin.Context) {
		var req struct {
			Method    string          `json:"method"`
			Arguments json.RawMessage `json:"arguments"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request format"})
			return
		}

		switch req.Method {
		case "shutdown":
			logger.Info("received shutdown command via service API")
			c.JSON(http.StatusOK, gin.H{"success": true, "result": "Shutdown initiated"})
			select {
			case shutdownChan <- struct{}{}:
			default:
				logger.Warn("shutdown channel already signaled")
			}
		case "evaluateAlerts":
			if alerts == nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "error": "Alert service not configured"})
				return
			}
			summary, err := alerts.EvaluateAll(c.Request.Context())
			if err != nil {
				logger.Error("alert pass via service API failed", logging.Err(err))
				c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "error": "Alert evaluation failed"})
				return
			}
			c.JSON(http.StatusOK, gin.H{"success": true, "result": summary})
		default:
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": fmt.Sprintf("Unknown service method: %s", req.Method)})
		}
	})
	return r
}
