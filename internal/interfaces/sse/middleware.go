package sse

import (
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
)

// AllowedOrigin picks the Access-Control-Allow-Origin value for a request
// coming from origin. Listed origins are echoed back; in development any
// localhost origin is accepted; otherwise the first listed origin is returned,
// or "*" when nothing is configured.
func AllowedOrigin(origin string, allowed []string, development bool) string {
	if origin != "" && slices.Contains(allowed, origin) {
		return origin
	}
	if development && origin != "" && strings.Contains(origin, "localhost") {
		return origin
	}
	if len(allowed) > 0 {
		return allowed[0]
	}
	return "*"
}

// SSEHeadersMiddleware sets the cross-origin headers browsers need before
// they accept a credentialed EventSource.
func SSEHeadersMiddleware(allowed []string, development bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", AllowedOrigin(c.GetHeader("Origin"), allowed, development))
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Allow-Headers", "Cache-Control, Last-Event-ID")
		c.Header("Vary", "Origin")
		c.Next()
	}
}

func setStreamHeaders(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no") // For nginx
}

func clearStreamHeaders(c *gin.Context) {
	for _, h := range []string{"Content-Type", "Cache-Control", "Connection", "X-Accel-Buffering"} {
		c.Header(h, "")
	}
}
