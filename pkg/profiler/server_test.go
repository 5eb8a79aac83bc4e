package profiler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startServer(t *testing.T) *Server {
	t.Helper()

	server := New(0, zerolog.Nop())
	require.NoError(t, server.Start(context.Background()), "Start() error")
	t.Cleanup(func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	})
	return server
}

func TestServer_BindsLoopback(t *testing.T) {
	server := startServer(t)

	assert.True(t, strings.HasPrefix(server.Addr(), "127.0.0.1:"), "addr = %s", server.Addr())
}

func TestServer_AddrBeforeStart(t *testing.T) {
	assert.Empty(t, New(0, zerolog.Nop()).Addr())
}

func TestServer_PprofEndpoints(t *testing.T) {
	server := startServer(t)
	baseURL := "http://" + server.Addr()

	tests := []struct {
		name     string
		endpoint string
	}{
		{name: "index", endpoint: "/debug/pprof/"},
		{name: "cmdline", endpoint: "/debug/pprof/cmdline"},
		{name: "symbol", endpoint: "/debug/pprof/symbol"},
		{name: "goroutine", endpoint: "/debug/pprof/goroutine?debug=1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Get(baseURL + tt.endpoint)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()
			assert.Equal(t, http.StatusOK, resp.StatusCode)
		})
	}
}

func TestServer_PortInUse(t *testing.T) {
	first := startServer(t)

	_, port, ok := strings.Cut(first.Addr(), ":")
	require.True(t, ok)

	p, err := strconv.Atoi(port)
	require.NoError(t, err)

	err = New(p, zerolog.Nop()).Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create listener")
}

func TestServer_StopsServingAfterShutdown(t *testing.T) {
	server := New(0, zerolog.Nop())
	require.NoError(t, server.Start(context.Background()))

	url := "http://" + server.Addr() + "/debug/pprof/"
	resp, err := http.Get(url)
	require.NoError(t, err)
	_ = resp.Body.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, server.Shutdown(shutdownCtx))

	_, err = http.Get(url)
	assert.Error(t, err)
}
