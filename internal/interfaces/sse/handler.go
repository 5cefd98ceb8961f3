package sse

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"go-newsletter-sse/internal/infrastructure/hub"
	"go-newsletter-sse/internal/infrastructure/ids"
	"go-newsletter-sse/internal/infrastructure/logger"
)

type ServerSentEventHandler struct {
	hub          *hub.Hub
	logger       logger.Logger
	writeTimeout time.Duration
}

// StatsResponse is the body of the stream statistics endpoint.
type StatsResponse struct {
	ConnectedClients int    `json:"connectedClients"`
	Timestamp        string `json:"timestamp"`
}

type messageRequest struct {
	Event string `json:"event" binding:"required"`
	Data  any    `json:"data"`
	ID    string `json:"id"`
}

func NewServerSentEventHandler(hubInstance *hub.Hub, writeTimeout time.Duration, logger logger.Logger) *ServerSentEventHandler {
	return &ServerSentEventHandler{
		hub:          hubInstance,
		logger:       logger.WithField("handler", "sse"),
		writeTimeout: writeTimeout,
	}
}

// Stream holds the request open as an event stream until the client leaves
// or the hub closes the connection.
func (h *ServerSentEventHandler) Stream(c *gin.Context) {
	if !h.hub.IsRunning() {
		h.logger.Warn("Stream requested while hub is not running")
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "Service temporarily unavailable",
		})
		return
	}

	if c.Writer.Written() {
		// Nothing sensible can be sent once the response is committed.
		h.logger.Error("Response already committed, abandoning stream request")
		return
	}

	setStreamHeaders(c)
	writer := hub.NewSSEWriter(c.Writer, h.writeTimeout)

	clientID, err := h.hub.Accept(writer, hub.TransportSSE, c.ClientIP())
	if err != nil {
		h.rejectStream(c, err)
		return
	}

	log := h.logger.WithField("connection_id", clientID)
	ctx := c.Request.Context()

	select {
	case <-writer.Done():
		log.Debug("Stream closed by hub")
	case <-ctx.Done():
		if cause := context.Cause(ctx); hub.IsClientGone(cause) {
			log.Debug("Client disconnected")
		} else {
			log.Errorf("Stream transport error: %v", cause)
		}
	}

	// Waits for an in-flight write, so nothing touches the response after we return.
	h.hub.Unregister(clientID)
}

func (h *ServerSentEventHandler) rejectStream(c *gin.Context, err error) {
	if c.Writer.Written() {
		h.logger.Warnf("Stream abandoned during registration: %v", err)
		return
	}

	clearStreamHeaders(c)
	if errors.Is(err, hub.ErrHubNotRunning) {
		h.logger.Warn("Stream rejected, hub stopped during registration")
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "Service temporarily unavailable",
		})
		return
	}

	h.logger.Errorf("Failed to register stream: %v", err)
	c.JSON(http.StatusInternalServerError, gin.H{
		"error": "Failed to establish event stream",
	})
}

// Stats reports how many clients are connected right now.
func (h *ServerSentEventHandler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, StatsResponse{
		ConnectedClients: h.hub.ConnectionCount(),
		Timestamp:        hub.Timestamp(time.Now()),
	})
}

// GetConnections lists registered connections.
func (h *ServerSentEventHandler) GetConnections(c *gin.Context) {
	connections := h.hub.Connections()

	c.JSON(http.StatusOK, gin.H{
		"total_connections": len(connections),
		"connections":       connections,
		"hub_running":       h.hub.IsRunning(),
	})
}

// SendMessage pushes one event to a single client.
func (h *ServerSentEventHandler) SendMessage(c *gin.Context) {
	clientID := c.Param("clientId")

	var req messageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid message format",
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

	event := hub.Event{ID: req.ID, Name: req.Event, Payload: req.Data}
	if !h.hub.UnicastEvent(clientID, event) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Client not connected",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     "sent",
		"client_id":  clientID,
		"message_id": req.ID,
	})
}
