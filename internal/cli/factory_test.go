package cli

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tasksync/internal/config"
)

func restServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode([]map[string]any{{
			"_id":         "a1",
			"title":       "Buy milk",
			"description": "2% organic",
			"priority":    "low",
			"createdAt":   "2024-03-01T10:00:00Z",
		}})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(t *testing.T, srv *httptest.Server, cacheBackend string) *config.Config {
	t.Helper()
	cfg, err := config.New(t.TempDir())
	require.NoError(t, err)
	cfg.Settings.ServerURL = srv.URL
	cfg.Settings.Cache = cacheBackend
	return cfg
}

func TestNewEngine_Caches(t *testing.T) {
	srv := restServer(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	for _, backend := range []string{config.CacheFileBackend, config.CacheSQLiteBackend} {
		t.Run(backend, func(t *testing.T) {
			cfg := testConfig(t, srv, backend)

			eng, closeFn, err := NewEngine(context.Background(), cfg, logger)
			require.NoError(t, err)
			defer closeFn()

			res, err := eng.Load(context.Background())
			require.NoError(t, err)
			require.Len(t, res.Tasks, 1)
			assert.Equal(t, "a1", res.Tasks[0].ID)

			path := cfg.CachePath()
			if backend == config.CacheSQLiteBackend {
				path = cfg.CacheDBPath()
			}
			_, err = os.Stat(path)
			assert.NoError(t, err, "cache written to %s", path)
		})
	}
}

func TestNewEngine_BadServerURL(t *testing.T) {
	cfg, err := config.New(t.TempDir())
	require.NoError(t, err)
	cfg.Settings.ServerURL = "ftp://example.com"

	_, _, err = NewEngine(context.Background(), cfg, slog.New(slog.DiscardHandler))
	assert.ErrorContains(t, err, "invalid server url")
}

func TestNewEngine_GoogleTasksNeedsCredentials(t *testing.T) {
	cfg, err := config.New(t.TempDir())
	require.NoError(t, err)
	cfg.Settings.Backend = config.BackendGoogleTasks

	_, _, err = NewEngine(context.Background(), cfg, slog.New(slog.DiscardHandler))
	assert.ErrorContains(t, err, "oauth_client.json")
}
