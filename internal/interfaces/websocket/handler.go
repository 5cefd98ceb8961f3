package websocket

import (
	"net/http"
	"slices"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"go-newsletter-sse/internal/infrastructure/hub"
	"go-newsletter-sse/internal/infrastructure/logger"
	"go-newsletter-sse/internal/interfaces/sse"
)

// WebSocketHandler serves the same event feed as the stream endpoint over a
// WebSocket, for clients behind proxies that buffer event streams.
type WebSocketHandler struct {
	hub          *hub.Hub
	logger       logger.Logger
	upgrader     websocket.Upgrader
	writeTimeout time.Duration
}

func NewWebSocketHandler(hubInstance *hub.Hub, writeTimeout time.Duration, allowedOrigins []string, development bool, logger logger.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		hub:          hubInstance,
		logger:       logger.WithField("handler", "websocket"),
		writeTimeout: writeTimeout,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				return sse.AllowedOrigin(origin, allowedOrigins, development) == origin ||
					slices.Contains(allowedOrigins, "*")
			},
		},
	}
}

// Connect upgrades the request and keeps the socket registered until either
// side closes it. Client messages are read and discarded.
func (h *WebSocketHandler) Connect(c *gin.Context) {
	if !h.hub.IsRunning() {
		h.logger.Warn("WebSocket requested while hub is not running")
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "Service temporarily unavailable",
		})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already replied to the client.
		h.logger.Warnf("Failed to upgrade connection: %v", err)
		return
	}

	writer := hub.NewWebSocketWriter(conn, h.writeTimeout)
	clientID, err := h.hub.Accept(writer, hub.TransportWebSocket, c.ClientIP())
	if err != nil {
		h.logger.Warnf("Failed to register WebSocket connection: %v", err)
		_ = writer.Close()
		return
	}

	log := h.logger.WithField("connection_id", clientID)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			select {
			case <-writer.Done():
				log.Debug("WebSocket closed by hub")
			default:
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
					log.Errorf("WebSocket read error: %v", err)
				} else {
					log.Debug("Client disconnected")
				}
			}
			break
		}
	}

	h.hub.Unregister(clientID)
}

// GetConnections lists connections using the WebSocket transport.
func (h *WebSocketHandler) GetConnections(c *gin.Context) {
	connections := make([]hub.EntryInfo, 0)
	for _, info := range h.hub.Connections() {
		if info.Transport == hub.TransportWebSocket {
			connections = append(connections, info)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"total_connections": len(connections),
		"connections":       connections,
		"hub_running":       h.hub.IsRunning(),
	})
}
