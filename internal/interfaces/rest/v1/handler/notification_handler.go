package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"go-newsletter-sse/internal/infrastructure/ids"
	"go-newsletter-sse/internal/infrastructure/logger"
	"go-newsletter-sse/internal/port/inbound"
)

type NotificationHandler struct {
	notifications inbound.NotificationUseCase
	logger        logger.Logger
}

type PublishEventRequest struct {
	Event string `json:"event" binding:"required"`
	Data  any    `json:"data"`
	ID    string `json:"id"`
}

type NewSubscriberRequest struct {
	Email  string `json:"email" binding:"required,email"`
	Name   string `json:"name"`
	Source string `json:"source"`
}

type SubscriberConfirmedRequest struct {
	Email string `json:"email" binding:"required,email"`
}

func NewNotificationHandler(notifications inbound.NotificationUseCase, logger logger.Logger) *NotificationHandler {
	return &NotificationHandler{
		notifications: notifications,
		logger:        logger.WithField("handler", "notification"),
	}
}

// PublishEvent queues an arbitrary named event for every connected client.
func (h *NotificationHandler) PublishEvent(c *gin.Context) {
	var req PublishEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warnf("Invalid event request: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid event format",
		})
		return
	}
	if strings.ContainsAny(req.Event, "\r\n") || strings.ContainsAny(req.ID, "\r\n") {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Event name and id must be single-line",
		})
		return
	}
	if req.ID == "" {
		req.ID = ids.NewULID()
	}

	if err := h.notifications.Publish(c.Request.Context(), req.Event, req.Data, req.ID); err != nil {
		h.publishFailed(c, req.Event, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"status":   "queued",
		"event":    req.Event,
		"event_id": req.ID,
	})
}

// NewSubscriber announces a newsletter subscription.
func (h *NotificationHandler) NewSubscriber(c *gin.Context) {
	var req NewSubscriberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warnf("Invalid subscriber request: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid subscriber format",
		})
		return
	}

	event := inbound.NewSubscriber{
		Email:     req.Email,
		Name:      req.Name,
		Source:    req.Source,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.notifications.NotifyNewSubscriber(c.Request.Context(), event); err != nil {
		h.publishFailed(c, inbound.EventNewSubscriber, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"status": "queued",
		"event":  inbound.EventNewSubscriber,
	})
}

// SubscriberConfirmed announces a confirmed subscription.
func (h *NotificationHandler) SubscriberConfirmed(c *gin.Context) {
	var req SubscriberConfirmedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warnf("Invalid confirmation request: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid confirmation format",
		})
		return
	}

	event := inbound.SubscriberConfirmed{
		Email:       req.Email,
		ConfirmedAt: time.Now().UTC(),
	}
	if err := h.notifications.NotifySubscriberConfirmed(c.Request.Context(), event); err != nil {
		h.publishFailed(c, inbound.EventSubscriberConfirmed, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"status": "queued",
		"event":  inbound.EventSubscriberConfirmed,
	})
}

func (h *NotificationHandler) publishFailed(c *gin.Context, eventName string, err error) {
	h.logger.Errorf("Failed to publish %s: %v", eventName, err)
	c.JSON(http.StatusInternalServerError, gin.H{
		"error": "Failed to publish event",
	})
}

func InitNotificationRouter(logger logger.Logger, notifications inbound.NotificationUseCase, rg *gin.RouterGroup) {
	notificationHandler := NewNotificationHandler(notifications, logger)

	apiGroup := rg.Group("/api/v1")
	{
		apiGroup.POST("/events", notificationHandler.PublishEvent)
		apiGroup.POST("/newsletter/subscribers", notificationHandler.NewSubscriber)
		apiGroup.POST("/newsletter/confirmations", notificationHandler.SubscriberConfirmed)
	}
}
