package metrics

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goran-ethernal/ChainDemux/pkg/config"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.MetricsConfig {
	cfg := &config.MetricsConfig{Enabled: true}
	cfg.ApplyDefaults()
	return cfg
}

func TestServer_Endpoints(t *testing.T) {
	ComponentHealthy("runner")
	UpdateSystemMetrics()

	s := NewServer(testConfig(), func() any {
		return map[string]any{"active_version": "v2", "blocks_handled": 3}
	}, nil)

	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "OK", string(body))

	resp, err = http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(body), "chaindemux_component_health")
	require.Contains(t, string(body), "chaindemux_uptime_seconds")

	resp, err = http.Get(ts.URL + "/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var status map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	require.Equal(t, "v2", status["active_version"])
}

func TestServer_StatusMethodNotAllowed(t *testing.T) {
	s := NewServer(testConfig(), func() any { return struct{}{} }, nil)

	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/status", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestServer_NoStatusProvider(t *testing.T) {
	s := NewServer(testConfig(), nil, nil)

	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/status")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_Disabled(t *testing.T) {
	s := NewServer(&config.MetricsConfig{}, nil, nil)

	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Stop(context.Background()))
}

func TestServer_StartStop(t *testing.T) {
	cfg := testConfig()
	cfg.ListenAddress = "127.0.0.1:0"

	s := NewServer(cfg, nil, nil)

	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Stop(context.Background()))
}
