package websocket

import (
	"time"

	"github.com/gin-gonic/gin"

	"go-newsletter-sse/internal/infrastructure/hub"
	"go-newsletter-sse/internal/infrastructure/logger"
)

// RouterConfig carries the settings the WebSocket routes depend on.
type RouterConfig struct {
	WriteTimeout   time.Duration
	AllowedOrigins []string
	Development    bool
}

func InitWebSocketRouter(logger logger.Logger, hubInstance *hub.Hub, cfg RouterConfig, rg *gin.RouterGroup) {
	wsHandler := NewWebSocketHandler(hubInstance, cfg.WriteTimeout, cfg.AllowedOrigins, cfg.Development, logger)

	rg.GET("/api/newsletter/ws", wsHandler.Connect)

	apiGroup := rg.Group("/api/v1/ws")
	apiGroup.GET("/connections", wsHandler.GetConnections)
}
