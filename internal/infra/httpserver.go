package infra

import (
	"context"
	"net/http"
	"time"
)

// HTTPServer runs the REST API with the timeout policy from configuration.
type HTTPServer struct {
	srv *http.Server
}

// NewHTTPServer builds the server. The header-read bound is derived from the
// read timeout so an idle client cannot hold a connection open while the
// body timeout is tuned for large sync payloads.
func NewHTTPServer(cfg *Config, handler http.Handler) *HTTPServer {
	headerTimeout := cfg.HTTPReadTimeout / 3
	if headerTimeout <= 0 {
		headerTimeout = 5 * time.Second
	}
	return &HTTPServer{srv: &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadTimeout:       cfg.HTTPReadTimeout,
		ReadHeaderTimeout: headerTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
	}}
}

// Addr reports the listen address.
func (s *HTTPServer) Addr() string {
	return s.srv.Addr
}

// Start serves requests until Shutdown is called or the listener fails.
func (s *HTTPServer) Start() error {
	return s.srv.ListenAndServe()
}

// Shutdown drains in-flight requests within the context deadline.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
