package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/llm-fallback-proxy/config"
	"go.uber.org/zap/zaptest"
)

func TestInitLogger(t *testing.T) {
	t.Run("default json logger", func(t *testing.T) {
		cfg := testConfig(t, "")
		cfg.Observability = config.ObservabilityConfig{LogLevel: "info", LogFormat: "json"}

		logger, err := initLogger(cfg)
		require.NoError(t, err)
		require.NotNil(t, logger)
		defer logger.Sync()
	})

	t.Run("development console logger", func(t *testing.T) {
		cfg := testConfig(t, "")
		cfg.Observability = config.ObservabilityConfig{LogLevel: "debug", LogFormat: "console"}

		logger, err := initLogger(cfg)
		require.NoError(t, err)
		require.NotNil(t, logger)
		defer logger.Sync()
	})

	t.Run("invalid log level", func(t *testing.T) {
		cfg := testConfig(t, "")
		cfg.Observability = config.ObservabilityConfig{LogLevel: "invalid", LogFormat: "json"}

		logger, err := initLogger(cfg)
		assert.Error(t, err)
		assert.Nil(t, logger)
		assert.Contains(t, err.Error(), "invalid log level")
	})
}

func TestNewHTTPServer(t *testing.T) {
	t.Run("write timeout outlasts handler timeout", func(t *testing.T) {
		cfg := testConfig(t, "")
		cfg.Server.ReadTimeout = 15 * time.Second
		cfg.Server.WriteTimeout = 60 * time.Second

		srv := newHTTPServer(cfg, http.NotFoundHandler())

		assert.Equal(t, 15*time.Second, srv.ReadTimeout)
		assert.Equal(t, 15*time.Second, srv.ReadHeaderTimeout)
		assert.Equal(t, 60*time.Second+writeTimeoutGrace, srv.WriteTimeout)
		assert.Greater(t, srv.WriteTimeout, cfg.Server.WriteTimeout)
	})

	t.Run("zero write timeout stays unlimited", func(t *testing.T) {
		cfg := testConfig(t, "")
		cfg.Server.WriteTimeout = 0

		srv := newHTTPServer(cfg, http.NotFoundHandler())

		assert.Zero(t, srv.WriteTimeout)
	})
}

func TestServe(t *testing.T) {
	gemini := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"` + "```json\\n{\\\"score\\\":7}\\n```" + `"}]},"finishReason":"STOP"}]}`))
	}))
	defer gemini.Close()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	baseURL := "http://" + listener.Addr().String()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- serve(ctx, testConfig(t, gemini.URL), zaptest.NewLogger(t), listener)
	}()

	t.Run("health check returns OK", func(t *testing.T) {
		resp, err := http.Get(baseURL + "/health")
		require.NoError(t, err)
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "OK", string(body))
	})

	t.Run("chat returns text", func(t *testing.T) {
		resp, err := http.Post(baseURL+"/api/chat", "application/json", bytes.NewBufferString(`{"prompt":"hello"}`))
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body map[string]string
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "```json\n{\"score\":7}\n```", body["text"])
	})

	t.Run("evaluate returns parsed value", func(t *testing.T) {
		resp, err := http.Post(baseURL+"/api/evaluate", "application/json", bytes.NewBufferString(`{"prompt":"judge"}`))
		require.NoError(t, err)
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.JSONEq(t, `{"score":7}`, string(body))
	})

	t.Run("missing prompt", func(t *testing.T) {
		resp, err := http.Post(baseURL+"/api/chat", "application/json", bytes.NewBufferString(`{}`))
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestServe_InvalidPolicy(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()

	cfg := testConfig(t, "http://127.0.0.1:1")
	cfg.Fallback.Policy = "never"

	err = serve(context.Background(), cfg, zaptest.NewLogger(t), listener)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to initialize dependencies")
}

// Test helpers

func testConfig(t *testing.T, geminiURL string) *config.Config {
	t.Helper()

	return &config.Config{
		Environment: "test",
		Server: config.ServerConfig{
			Host:            "127.0.0.1",
			Port:            3000,
			ReadTimeout:     5 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 5 * time.Second,
		},
		Gemini: config.GeminiConfig{
			APIKey:  "test-key",
			BaseURL: geminiURL,
			Timeout: 5 * time.Second,
		},
		Fallback: config.FallbackConfig{
			Models: append([]string(nil), config.DefaultModels...),
			Policy: config.FallbackPolicyAll,
		},
		CORS: config.CORSConfig{
			AllowedOrigins: []string{"*"},
		},
		Observability: config.ObservabilityConfig{
			LogLevel:  "error",
			LogFormat: "json",
		},
	}
}
