package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"go-tonescope/handlers"
	"go-tonescope/processor"
)

// Service is what the API needs from the analysis pipeline.
type Service interface {
	handlers.Dispatcher
	processor.Analyzer
}

func SetupRouter(svc Service, logger *zap.Logger) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := gin.New()
	r.Use(handlers.RequestLogger(logger), gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// api routes
	api := r.Group("/api/tonescope")
	{
		api.POST("/message", func(c *gin.Context) { handlers.HandleMessage(c, svc) })
		api.POST("/analyze", func(c *gin.Context) { handlers.AnalyzeHandler(c, svc) })
		api.POST("/batch", func(c *gin.Context) { handlers.BatchHandler(c, svc) })
		api.DELETE("/cache", func(c *gin.Context) { handlers.ClearCacheHandler(c, svc) })
		api.PUT("/keys", func(c *gin.Context) { handlers.StoreKeysHandler(c, svc) })
	}

	return r
}
