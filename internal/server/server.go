// Package server hosts the ops HTTP endpoints and, in Telegram webhook mode,
// the webhook receiver.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"bantrap/internal/config"
	"bantrap/internal/logger"
)

// StatusFunc renders a plain-text status report for the debug endpoint.
type StatusFunc func(ctx context.Context) string

// Server is the ops HTTP server.
type Server struct {
	server   *http.Server
	mux      *http.ServeMux
	certFile string
	keyFile  string
}

// New builds the server and mounts the debug and metrics endpoints.
func New(cfg *config.Config, status StatusFunc) *Server {
	mux := http.NewServeMux()

	if cfg.Server.DebugPath != "" {
		mux.HandleFunc(cfg.Server.DebugPath, func(w http.ResponseWriter, r *http.Request) {
			logger.Infof("Debug endpoint accessed: %s %s", r.Method, r.URL.Path)

			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.WriteHeader(http.StatusOK)

			response := "bantrap is running\n"
			if status != nil {
				response += status(r.Context())
			}
			w.Write([]byte(response))
		})
	}

	if cfg.Server.MetricsPath != "" {
		mux.Handle(cfg.Server.MetricsPath, promhttp.Handler())
	}

	port := cfg.Server.ListenPort
	if port == "" {
		port = "8443"
		logger.Infof("Using default listen port: %s", port)
	}

	return &Server{
		server: &http.Server{
			Addr:              "0.0.0.0:" + port,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
		mux:      mux,
		certFile: cfg.Telegram.Webhook.CertFile,
		keyFile:  cfg.Telegram.Webhook.KeyFile,
	}
}

// Mux exposes the router so adapters can mount extra handlers before Start.
func (s *Server) Mux() *http.ServeMux {
	return s.mux
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Addr is the listen address.
func (s *Server) Addr() string {
	return s.server.Addr
}

// Start serves until Shutdown. It returns nil after a graceful shutdown.
func (s *Server) Start() error {
	logger.Infof("Starting HTTP server on %s", s.server.Addr)

	var err error
	if s.certFile != "" && s.keyFile != "" {
		logger.Infof("Using TLS with cert: %s, key: %s", s.certFile, s.keyFile)
		err = s.server.ListenAndServeTLS(s.certFile, s.keyFile)
	} else {
		err = s.server.ListenAndServe()
	}
	if err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
