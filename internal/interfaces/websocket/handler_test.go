package websocket

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-newsletter-sse/internal/infrastructure/hub"
	"go-newsletter-sse/internal/infrastructure/logger"
)

func setupServer(t *testing.T) (*hub.Hub, *httptest.Server) {
	t.Helper()

	log := logger.NewLogrusLogger(logger.NewDefaultConfig())
	log.SetOutput(io.Discard)

	h := hub.New(log)
	require.NoError(t, h.Start(context.Background()))

	gin.SetMode(gin.TestMode)
	router := gin.New()
	InitWebSocketRouter(log, h, RouterConfig{
		WriteTimeout:   time.Second,
		AllowedOrigins: []string{"https://news.example.com"},
	}, router.Group(""))

	srv := httptest.NewServer(router)
	t.Cleanup(func() {
		_ = h.Stop(context.Background())
		srv.Close()
	})
	return h, srv
}

func dial(t *testing.T, srv *httptest.Server, header http.Header) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/newsletter/ws"
	return websocket.DefaultDialer.Dial(url, header)
}

func TestConnect_ReceivesFramedEvents(t *testing.T) {
	h, srv := setupServer(t)

	conn, _, err := dial(t, srv, nil)
	require.NoError(t, err)
	defer conn.Close()

	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "event: connected\ndata: "), string(data))

	require.Eventually(t, func() bool { return h.ConnectionCount() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, hub.TransportWebSocket, h.Connections()[0].Transport)

	h.Broadcast("new_subscriber", map[string]string{"email": "a@b.com"})

	_, data, err = conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "event: new_subscriber\ndata: {\"email\":\"a@b.com\"}\n\n", string(data))
}

func TestConnect_ClientCloseUnregisters(t *testing.T) {
	h, srv := setupServer(t)

	conn, _, err := dial(t, srv, nil)
	require.NoError(t, err)

	_, _, err = conn.ReadMessage()
	require.NoError(t, err)

	require.NoError(t, conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	_ = conn.Close()

	require.Eventually(t, func() bool { return h.ConnectionCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestConnect_RejectsForeignOrigin(t *testing.T) {
	h, srv := setupServer(t)

	_, resp, err := dial(t, srv, http.Header{"Origin": []string{"https://evil.example.com"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Zero(t, h.ConnectionCount())
}

func TestGetConnections(t *testing.T) {
	h, srv := setupServer(t)

	conn, _, err := dial(t, srv, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return h.ConnectionCount() == 1 }, time.Second, 5*time.Millisecond)

	resp, err := http.Get(srv.URL + "/api/v1/ws/connections")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body struct {
		Total       int             `json:"total_connections"`
		Connections []hub.EntryInfo `json:"connections"`
		HubRunning  bool            `json:"hub_running"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, 1, body.Total)
	assert.True(t, body.HubRunning)
}
