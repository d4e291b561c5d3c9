// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package rest

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/z5labs/drivethru"
	"github.com/z5labs/drivethru/health"

	"github.com/go-chi/chi/v5"
	"github.com/swaggest/openapi-go/openapi3"
)

// ApiOptions is what an [ApiOption] configures.
type ApiOptions struct {
	mux        *chi.Mux
	def        *openapi3.Spec
	errHandler ErrorHandler
	middleware []func(http.Handler) http.Handler
	readiness  health.Monitor
	liveness   health.Monitor
}

// ApiOption configures an [Api].
type ApiOption interface {
	ApplyApiOption(*ApiOptions)
}

type apiOptionFunc func(*ApiOptions)

func (f apiOptionFunc) ApplyApiOption(ao *ApiOptions) {
	f(ao)
}

// Readiness sets the monitor behind GET /health/readiness.
func Readiness(m health.Monitor) ApiOption {
	return apiOptionFunc(func(ao *ApiOptions) {
		ao.readiness = m
	})
}

// Liveness sets the monitor behind GET /health/liveness.
func Liveness(m health.Monitor) ApiOption {
	return apiOptionFunc(func(ao *ApiOptions) {
		ao.liveness = m
	})
}

// DefaultErrorHandler sets the error handler of operations registered
// after this option.
func DefaultErrorHandler(eh ErrorHandler) ApiOption {
	return apiOptionFunc(func(ao *ApiOptions) {
		ao.errHandler = eh
	})
}

// Middleware wraps the whole Api. The first middleware is the outermost.
func Middleware(mws ...func(http.Handler) http.Handler) ApiOption {
	return apiOptionFunc(func(ao *ApiOptions) {
		ao.middleware = append(ao.middleware, mws...)
	})
}

// Api is an [http.Handler] serving the registered operations together
// with the OpenAPI document and health endpoints.
type Api struct {
	handler http.Handler
}

// NewApi applies opts in order.
func NewApi(title, version string, opts ...ApiOption) *Api {
	log := drivethru.Logger("github.com/z5labs/drivethru/rest")

	var alive health.Binary
	alive.MarkHealthy()

	ao := &ApiOptions{
		mux: chi.NewMux(),
		def: &openapi3.Spec{
			Openapi: "3.0.3",
			Info: openapi3.Info{
				Title:   title,
				Version: version,
			},
		},
		errHandler: NewProblemDetailsErrorHandler(),
		readiness:  &alive,
		liveness:   &alive,
	}
	for _, opt := range opts {
		opt.ApplyApiOption(ao)
	}

	ao.mux.Get("/openapi.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		err := json.NewEncoder(w).Encode(ao.def)
		if err == nil {
			return
		}
		log.ErrorContext(r.Context(), "failed to encode openapi schema to json", slog.Any("error", err))
	})
	ao.mux.Get("/health/readiness", healthHandler(log, ao.readiness))
	ao.mux.Get("/health/liveness", healthHandler(log, ao.liveness))

	var h http.Handler = ao.mux
	for i := len(ao.middleware) - 1; i >= 0; i-- {
		h = ao.middleware[i](h)
	}

	return &Api{handler: h}
}

func healthHandler(log *slog.Logger, m health.Monitor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		healthy, err := m.Healthy(r.Context())
		if err != nil {
			log.WarnContext(r.Context(), "health check failed", slog.Any("error", err))
		}
		if !healthy || err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

// ServeHTTP implements [http.Handler].
func (api *Api) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	api.handler.ServeHTTP(w, r)
}
