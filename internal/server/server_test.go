package server

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bantrap/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Enabled:     true,
			ListenPort:  "0",
			DebugPath:   "/debug",
			MetricsPath: "/metrics",
		},
	}
}

func TestDebugEndpoint(t *testing.T) {
	srv := New(testConfig(), func(ctx context.Context) string {
		return "Events Processed: 3\n"
	})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "bantrap is running")
	assert.Contains(t, rec.Body.String(), "Events Processed: 3")
}

func TestMetricsEndpoint(t *testing.T) {
	srv := New(testConfig(), nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "go_goroutines")
}

func TestExtraHandlersOnMux(t *testing.T) {
	srv := New(testConfig(), nil)
	srv.Mux().HandleFunc("/webhook", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/webhook", nil))
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestDefaultPort(t *testing.T) {
	cfg := testConfig()
	cfg.Server.ListenPort = ""
	assert.Equal(t, "0.0.0.0:8443", New(cfg, nil).Addr())
}
