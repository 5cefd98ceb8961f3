package sse

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	ginsse "github.com/gin-contrib/sse"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-newsletter-sse/internal/infrastructure/hub"
	"go-newsletter-sse/internal/infrastructure/logger"
)

func newTestLogger() logger.Logger {
	l := logger.NewLogrusLogger(logger.NewDefaultConfig())
	l.SetOutput(io.Discard)
	return l
}

func newTestServer(t *testing.T, h *hub.Hub) *httptest.Server {
	t.Helper()

	gin.SetMode(gin.TestMode)
	router := gin.New()
	InitSSERouter(newTestLogger(), h, RouterConfig{
		WriteTimeout:   time.Second,
		AllowedOrigins: []string{"https://news.example.com"},
	}, router.Group(""))

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func startedHub(t *testing.T) *hub.Hub {
	t.Helper()

	h := hub.New(newTestLogger())
	require.NoError(t, h.Start(context.Background()))
	t.Cleanup(func() { _ = h.Stop(context.Background()) })
	return h
}

func TestStream_DeliversConnectedThenBroadcasts(t *testing.T) {
	h := startedHub(t)
	srv := newTestServer(t, h)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/newsletter/stream", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://news.example.com")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	assert.Equal(t, "no-cache", resp.Header.Get("Cache-Control"))
	assert.Equal(t, "no", resp.Header.Get("X-Accel-Buffering"))
	assert.Equal(t, "https://news.example.com", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", resp.Header.Get("Access-Control-Allow-Credentials"))

	require.Eventually(t, func() bool { return h.ConnectionCount() == 1 }, time.Second, 5*time.Millisecond)

	assert.Equal(t, 1, h.Broadcast("x", map[string]int{"a": 1}))
	require.NoError(t, h.Stop(context.Background()))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	events, err := ginsse.Decode(strings.NewReader(string(body)))
	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.Equal(t, "connected", events[0].Event)
	var ack hub.ConnectedPayload
	require.NoError(t, json.Unmarshal([]byte(events[0].Data.(string)), &ack))
	assert.True(t, strings.HasPrefix(ack.ClientID, "client_"))
	assert.Equal(t, "SSE connection established", ack.Message)

	assert.Equal(t, "x", events[1].Event)
	assert.JSONEq(t, `{"a":1}`, events[1].Data.(string))
}

func TestStream_ClientDisconnectUnregisters(t *testing.T) {
	h := startedHub(t)
	srv := newTestServer(t, h)

	ctx, cancel := context.WithCancel(context.Background())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/newsletter/stream", nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Eventually(t, func() bool { return h.ConnectionCount() == 1 }, time.Second, 5*time.Millisecond)

	cancel()

	require.Eventually(t, func() bool { return h.ConnectionCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestStream_UnavailableWhenHubStopped(t *testing.T) {
	h := hub.New(newTestLogger())
	srv := newTestServer(t, h)

	resp, err := http.Get(srv.URL + "/api/newsletter/stream")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "application/json")
	assert.Zero(t, h.ConnectionCount())
}

func TestStats(t *testing.T) {
	h := startedHub(t)
	srv := newTestServer(t, h)

	resp, err := http.Get(srv.URL + "/api/newsletter/stream/stats")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var stats StatsResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	assert.Zero(t, stats.ConnectedClients)
	_, err = time.Parse(hub.TimestampFormat, stats.Timestamp)
	assert.NoError(t, err)
}

func TestSendMessage(t *testing.T) {
	h := startedHub(t)
	srv := newTestServer(t, h)

	t.Run("unknown client", func(t *testing.T) {
		resp, err := http.Post(srv.URL+"/api/v1/sse/send/client_404", "application/json",
			strings.NewReader(`{"event":"direct","data":{"n":1}}`))
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("missing event", func(t *testing.T) {
		resp, err := http.Post(srv.URL+"/api/v1/sse/send/client_1", "application/json",
			strings.NewReader(`{"data":1}`))
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	for name, body := range map[string]string{
		"multi-line event": `{"event":"direct\nevent: spoofed","data":1}`,
		"multi-line id":    `{"event":"direct","id":"1\r\n","data":1}`,
	} {
		t.Run(name, func(t *testing.T) {
			resp, err := http.Post(srv.URL+"/api/v1/sse/send/client_404", "application/json",
				strings.NewReader(body))
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

			raw, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			assert.Contains(t, string(raw), "single-line")
		})
	}
}

func TestAllowedOrigin(t *testing.T) {
	allowed := []string{"https://news.example.com", "https://admin.example.com"}

	tests := []struct {
		name        string
		origin      string
		allowed     []string
		development bool
		want        string
	}{
		{"listed origin echoed", "https://admin.example.com", allowed, false, "https://admin.example.com"},
		{"unknown origin gets first", "https://evil.example.com", allowed, false, "https://news.example.com"},
		{"localhost in development", "http://localhost:4000", allowed, true, "http://localhost:4000"},
		{"localhost outside development", "http://localhost:4000", allowed, false, "https://news.example.com"},
		{"nothing configured", "https://x.example.com", nil, false, "*"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AllowedOrigin(tt.origin, tt.allowed, tt.development))
		})
	}
}

func TestSSEHeadersMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Request.Header.Set("Origin", "http://localhost:5173")

	SSEHeadersMiddleware(nil, true)(c)

	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}
