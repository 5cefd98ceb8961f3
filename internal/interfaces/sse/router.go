package sse

import (
	"time"

	"github.com/gin-gonic/gin"

	"go-newsletter-sse/internal/infrastructure/hub"
	"go-newsletter-sse/internal/infrastructure/logger"
)

// RouterConfig carries the settings the stream routes depend on.
type RouterConfig struct {
	WriteTimeout   time.Duration
	AllowedOrigins []string
	Development    bool
}

func InitSSERouter(logger logger.Logger, hubInstance *hub.Hub, cfg RouterConfig, rg *gin.RouterGroup) {
	sseHandler := NewServerSentEventHandler(hubInstance, cfg.WriteTimeout, logger)

	streamGroup := rg.Group("/api/newsletter/stream")
	streamGroup.Use(SSEHeadersMiddleware(cfg.AllowedOrigins, cfg.Development))
	streamGroup.GET("", sseHandler.Stream)
	streamGroup.GET("/stats", sseHandler.Stats)

	apiGroup := rg.Group("/api/v1/sse")
	apiGroup.GET("/connections", sseHandler.GetConnections)
	apiGroup.POST("/send/:clientId", sseHandler.SendMessage)
}
