package main

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"go-newsletter-sse/internal/infrastructure/config"
	"go-newsletter-sse/internal/infrastructure/hub"
	"go-newsletter-sse/internal/infrastructure/logger"
	"go-newsletter-sse/internal/interfaces/rest/v1/handler"
	"go-newsletter-sse/internal/interfaces/sse"
	"go-newsletter-sse/internal/interfaces/websocket"
	"go-newsletter-sse/internal/port/inbound"
)

func InitRouter(cfg *config.Config, hubInstance *hub.Hub, notifications inbound.NotificationUseCase, log logger.Logger) http.Handler {
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", sse.AllowedOrigin(c.GetHeader("Origin"), cfg.FrontendURLs, cfg.IsDevelopment()))
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, Cache-Control, Last-Event-ID")
		c.Header("Access-Control-Allow-Credentials", "true")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	rootGroup := router.Group("")

	// Health check endpoint
	rootGroup.GET("/hub/status", func(c *gin.Context) {
		isRunning := hubInstance.IsRunning()
		status := http.StatusOK
		health := "healthy"
		if !isRunning {
			status = http.StatusServiceUnavailable
			health = "unavailable"
		}
		c.JSON(status, gin.H{
			"status":      health,
			"hub_running": isRunning,
			"connections": hubInstance.ConnectionCount(),
			"timestamp":   hub.Timestamp(time.Now()),
		})
	})

	rootGroup.GET("/metrics", gin.WrapH(promhttp.Handler()))

	handler.InitNotificationRouter(log, notifications, rootGroup)
	sse.InitSSERouter(log, hubInstance, sse.RouterConfig{
		WriteTimeout:   cfg.WriteTimeout,
		AllowedOrigins: cfg.FrontendURLs,
		Development:    cfg.IsDevelopment(),
	}, rootGroup)
	websocket.InitWebSocketRouter(log, hubInstance, websocket.RouterConfig{
		WriteTimeout:   cfg.WriteTimeout,
		AllowedOrigins: cfg.FrontendURLs,
		Development:    cfg.IsDevelopment(),
	}, rootGroup)

	return router
}
