// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package app

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/z5labs/drivethru/config"

	"github.com/stretchr/testify/require"
)

func TestConfigFrom(t *testing.T) {
	doc := config.UnmarshalYAML[Document](config.ReaderOf([]byte(`
backend:
  url: http://backend:8000
sessions:
  idle_timeout: 10m
`)))

	t.Run("will read the yaml document", func(t *testing.T) {
		t.Setenv("DRIVETHRU_BACKEND_URL", "")

		cfg := ConfigFrom(doc)

		u, err := config.Read(context.Background(), cfg.BackendURL)
		require.NoError(t, err)
		require.Equal(t, "http://backend:8000", u)
	})

	t.Run("will prefer the environment", func(t *testing.T) {
		t.Setenv("DRIVETHRU_BACKEND_URL", "http://elsewhere:9000")

		cfg := ConfigFrom(doc)

		u, err := config.Read(context.Background(), cfg.BackendURL)
		require.NoError(t, err)
		require.Equal(t, "http://elsewhere:9000", u)
	})
}

func TestBackendHTTPClient(t *testing.T) {
	t.Run("will not set a client timeout", func(t *testing.T) {
		require.Zero(t, backendHTTPClient().Timeout)
	})
}

func TestInit(t *testing.T) {
	t.Run("will render the page from the configured backend", func(t *testing.T) {
		backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			switch r.URL.Path {
			case "/orders":
				_, _ = io.WriteString(w, `[{"id": 1, "action_type": "order", "items": [{"item_type": "drink", "quantity": 2}], "timestamp": "2025-01-02T03:04:05Z"}]`)
			case "/totals":
				_, _ = io.WriteString(w, `{"burger": 0, "fries": 0, "drink": 2}`)
			default:
				w.WriteHeader(http.StatusNotFound)
			}
		}))
		defer backend.Close()

		h, err := Init(context.Background(), Config{BackendURL: config.ReaderOf(backend.URL)})
		require.NoError(t, err)

		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusOK, w.Code)
		require.Contains(t, w.Body.String(), "2 drink")
	})

	t.Run("will still render the page", func(t *testing.T) {
		t.Run("if the backend is down", func(t *testing.T) {
			backend := httptest.NewServer(http.NotFoundHandler())
			backend.Close()

			h, err := Init(context.Background(), Config{BackendURL: config.ReaderOf(backend.URL)})
			require.NoError(t, err)

			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
			require.Equal(t, http.StatusOK, w.Code)
			require.Contains(t, w.Body.String(), "Failed to fetch")
		})
	})
}
