// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package rest

import (
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/z5labs/drivethru/health"

	"github.com/stretchr/testify/require"
)

type greeting struct {
	Name string `json:"name" form:"name"`
}

type reply struct {
	Message string `json:"message"`
}

func greet(ctx context.Context, g *greeting) (*reply, error) {
	if g.Name == "" {
		return nil, ProblemDetail{
			Type:   "about:blank",
			Title:  "Bad Request",
			Status: http.StatusBadRequest,
			Detail: "name is required",
		}
	}
	return &reply{Message: "hello " + g.Name}, nil
}

func TestNewApi(t *testing.T) {
	t.Run("will serve the openapi document", func(t *testing.T) {
		api := NewApi(
			"test",
			"v0.0.0",
			Operation(
				http.MethodPost,
				BasePath("/").Segment("greet"),
				HandleJson(HandlerFunc[greeting, reply](greet)),
				Summary("Greet someone"),
			),
		)

		w := httptest.NewRecorder()
		api.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/openapi.json", nil))
		require.Equal(t, http.StatusOK, w.Code)

		var doc map[string]any
		require.NoError(t, json.NewDecoder(w.Body).Decode(&doc))
		paths, ok := doc["paths"].(map[string]any)
		require.True(t, ok)
		require.Contains(t, paths, "/greet")
	})

	t.Run("will report readiness from the monitor", func(t *testing.T) {
		var ready health.Binary
		api := NewApi("test", "v0.0.0", Readiness(&ready))

		w := httptest.NewRecorder()
		api.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/readiness", nil))
		require.Equal(t, http.StatusServiceUnavailable, w.Code)

		ready.MarkHealthy()

		w = httptest.NewRecorder()
		api.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/readiness", nil))
		require.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("will apply middleware outermost first", func(t *testing.T) {
		var order []string
		mw := func(name string) func(http.Handler) http.Handler {
			return func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					order = append(order, name)
					next.ServeHTTP(w, r)
				})
			}
		}

		api := NewApi("test", "v0.0.0", Middleware(mw("a"), mw("b")))

		w := httptest.NewRecorder()
		api.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/liveness", nil))
		require.Equal(t, http.StatusOK, w.Code)
		require.Equal(t, []string{"a", "b"}, order)
	})
}

func TestOperation(t *testing.T) {
	api := NewApi(
		"test",
		"v0.0.0",
		Operation(
			http.MethodPost,
			BasePath("/greet"),
			HandleJson(HandlerFunc[greeting, reply](greet)),
		),
		Operation(
			http.MethodPost,
			BasePath("/greet-form"),
			ConsumeForm(ReturnHTML(
				HandlerFunc[greeting, reply](greet),
				template.Must(template.New("reply").Parse(`<p>{{.Message}}</p>`)),
			)),
		),
		Operation(
			http.MethodGet,
			BasePath("/panic"),
			ProduceJson(ProducerFunc[reply](func(ctx context.Context) (*reply, error) {
				panic("boom")
			})),
		),
	)

	t.Run("will encode the json response", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/greet", strings.NewReader(`{"name":"bob"}`))
		req.Header.Set("Content-Type", "application/json; charset=utf-8")

		w := httptest.NewRecorder()
		api.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)
		require.Equal(t, "application/json", w.Header().Get("Content-Type"))

		var r reply
		require.NoError(t, json.NewDecoder(w.Body).Decode(&r))
		require.Equal(t, "hello bob", r.Message)
	})

	t.Run("will render the html response from form values", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/greet-form", strings.NewReader("name=%3Cbob%3E"))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		w := httptest.NewRecorder()
		api.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)
		require.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))
		require.Equal(t, "<p>hello &lt;bob&gt;</p>", w.Body.String())
	})

	t.Run("will return a bad request", func(t *testing.T) {
		t.Run("if the content type is not json", func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/greet", strings.NewReader(`{"name":"bob"}`))
			req.Header.Set("Content-Type", "text/plain")

			w := httptest.NewRecorder()
			api.ServeHTTP(w, req)
			require.Equal(t, http.StatusBadRequest, w.Code)

			var pd ProblemDetail
			require.NoError(t, json.NewDecoder(w.Body).Decode(&pd))
			require.Equal(t, "Invalid Content Type", pd.Title)
		})

		t.Run("if the body is not valid json", func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/greet", strings.NewReader(`{"name":`))
			req.Header.Set("Content-Type", "application/json")

			w := httptest.NewRecorder()
			api.ServeHTTP(w, req)
			require.Equal(t, http.StatusBadRequest, w.Code)
		})

		t.Run("if the handler returns a problem detail", func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/greet", strings.NewReader(`{}`))
			req.Header.Set("Content-Type", "application/json")

			w := httptest.NewRecorder()
			api.ServeHTTP(w, req)
			require.Equal(t, http.StatusBadRequest, w.Code)
			require.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))

			var pd ProblemDetail
			require.NoError(t, json.NewDecoder(w.Body).Decode(&pd))
			require.Equal(t, "name is required", pd.Detail)
		})
	})

	t.Run("will return an internal server error", func(t *testing.T) {
		t.Run("if the handler panics", func(t *testing.T) {
			w := httptest.NewRecorder()
			api.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))
			require.Equal(t, http.StatusInternalServerError, w.Code)
		})
	})
}

func TestProblemDetailsErrorHandler_OnError(t *testing.T) {
	t.Run("will hide unexpected error messages by default", func(t *testing.T) {
		w := httptest.NewRecorder()
		NewProblemDetailsErrorHandler().OnError(context.Background(), w, errors.New("db password is hunter2"))
		require.Equal(t, http.StatusInternalServerError, w.Code)
		require.NotContains(t, w.Body.String(), "hunter2")
	})

	t.Run("will expose unexpected error messages", func(t *testing.T) {
		t.Run("if details are included", func(t *testing.T) {
			w := httptest.NewRecorder()
			NewProblemDetailsErrorHandler(IncludeDetails(true)).OnError(context.Background(), w, errors.New("boom"))

			var pd ProblemDetail
			require.NoError(t, json.NewDecoder(w.Body).Decode(&pd))
			require.Equal(t, "boom", pd.Detail)
		})
	})

	t.Run("will find wrapped problem details", func(t *testing.T) {
		err := errors.Join(errors.New("context"), ProblemDetail{Status: http.StatusServiceUnavailable, Title: "Unavailable"})

		w := httptest.NewRecorder()
		NewProblemDetailsErrorHandler().OnError(context.Background(), w, err)
		require.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}

func TestPath_String(t *testing.T) {
	require.Equal(t, "/", BasePath("/").String())
	require.Equal(t, "/orders", BasePath("/").Segment("orders").String())
	require.Equal(t, "/api/orders", BasePath("api").Segment("orders").String())
}
