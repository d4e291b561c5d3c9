// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package app assembles the ordering page.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/z5labs/drivethru/config"
	"github.com/z5labs/drivethru/rest"
	"github.com/z5labs/drivethru/ui/endpoint"
	"github.com/z5labs/drivethru/ui/page"
	"github.com/z5labs/drivethru/ui/service"

	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Document is the shape of config.yaml.
type Document struct {
	HTTP struct {
		Addr string `yaml:"addr"`
	} `yaml:"http"`

	OpenApi struct {
		Title   string `yaml:"title"`
		Version string `yaml:"version"`
	} `yaml:"openapi"`

	Backend struct {
		URL string `yaml:"url"`
	} `yaml:"backend"`

	Sessions struct {
		IdleTimeout  time.Duration `yaml:"idle_timeout"`
		SecureCookie bool          `yaml:"secure_cookie"`
	} `yaml:"sessions"`
}

// Config holds the page's settings. Environment variables take precedence
// over the yaml document.
type Config struct {
	Addr         config.Reader[string]
	Title        config.Reader[string]
	Version      config.Reader[string]
	BackendURL   config.Reader[string]
	SessionIdle  config.Reader[time.Duration]
	SecureCookie config.Reader[bool]
}

// ConfigFrom layers DRIVETHRU_* environment variables over doc.
func ConfigFrom(doc config.Reader[Document]) Config {
	return Config{
		Addr: config.Or(
			config.Env("HTTP_ADDR"),
			config.Lookup(doc, func(d Document) string { return d.HTTP.Addr }),
		),
		Title:   config.Lookup(doc, func(d Document) string { return d.OpenApi.Title }),
		Version: config.Lookup(doc, func(d Document) string { return d.OpenApi.Version }),
		BackendURL: config.Or(
			config.Env("DRIVETHRU_BACKEND_URL"),
			config.Lookup(doc, func(d Document) string { return d.Backend.URL }),
		),
		SessionIdle: config.Or(
			config.DurationFromString(config.Env("DRIVETHRU_SESSION_IDLE_TIMEOUT")),
			config.Lookup(doc, func(d Document) time.Duration { return d.Sessions.IdleTimeout }),
		),
		SecureCookie: config.Or(
			config.BoolFromString(config.Env("DRIVETHRU_SECURE_COOKIE")),
			config.Lookup(doc, func(d Document) bool { return d.Sessions.SecureCookie }),
		),
	}
}

// Init builds the page's handler.
func Init(ctx context.Context, cfg Config) (http.Handler, error) {
	backendURL, err := config.Read(ctx, config.Default("http://localhost:8000", cfg.BackendURL))
	if err != nil {
		return nil, err
	}

	client := service.NewClient(backendURL, backendHTTPClient())

	sessions := endpoint.NewSessions(
		config.MustOr(ctx, 30*time.Minute, cfg.SessionIdle),
		func() *page.Controller {
			return page.NewController(client)
		},
		endpoint.SecureCookie(config.MustOr(ctx, false, cfg.SecureCookie)),
	)

	api := rest.NewApi(
		config.MustOr(ctx, "Drive-Thru", cfg.Title),
		config.MustOr(ctx, "v0.0.0", cfg.Version),
		rest.Middleware(middleware.RequestID, middleware.RealIP, sessions.Middleware),
		endpoint.MainPage(ctx),
		endpoint.SubmitOrder(ctx),
		endpoint.AppFragment(ctx),
		endpoint.State(ctx),
	)
	return api, nil
}

// backendHTTPClient sets no timeout. Calls are bounded only by the incoming
// request's context.
func backendHTTPClient() *http.Client {
	return &http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
}
