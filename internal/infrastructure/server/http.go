package server

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// Server is a component with a blocking Start and a graceful Stop.
type Server interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

type HTTPServer struct {
	srv *http.Server
}

var _ Server = (*HTTPServer)(nil)

func NewHTTPServer(addr string, handler http.Handler) *HTTPServer {
	return &HTTPServer{
		srv: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			// Event streams stay open indefinitely: a whole-request read or
			// write timeout would cut them, so each stream write sets its own deadline.
			ReadTimeout:  0,
			WriteTimeout: 0,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// Start serves until Stop is called. Shutdown goes through Stop, not ctx.
func (h *HTTPServer) Start(_ context.Context) error {
	err := h.srv.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop waits for in-flight requests until ctx expires.
func (h *HTTPServer) Stop(ctx context.Context) error {
	return h.srv.Shutdown(ctx)
}
