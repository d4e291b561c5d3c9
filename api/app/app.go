// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package app assembles the order backend.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/z5labs/drivethru"
	"github.com/z5labs/drivethru/api/endpoint"
	"github.com/z5labs/drivethru/api/events"
	"github.com/z5labs/drivethru/api/interpret"
	"github.com/z5labs/drivethru/api/ledger"
	lifecycle "github.com/z5labs/drivethru/app"
	"github.com/z5labs/drivethru/config"
	"github.com/z5labs/drivethru/health"
	"github.com/z5labs/drivethru/rest"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
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

	Database struct {
		URL string `yaml:"url"`
	} `yaml:"database"`

	Kafka struct {
		Brokers string `yaml:"brokers"`
		Topic   string `yaml:"topic"`
	} `yaml:"kafka"`

	OpenAI struct {
		Model   string `yaml:"model"`
		BaseURL string `yaml:"base_url"`
	} `yaml:"openai"`

	Breaker struct {
		Failures int           `yaml:"failures"`
		OpenFor  time.Duration `yaml:"open_for"`
	} `yaml:"breaker"`
}

// Config holds the backend's settings. Environment variables take
// precedence over the yaml document.
type Config struct {
	Addr            config.Reader[string]
	Title           config.Reader[string]
	Version         config.Reader[string]
	DatabaseURL     config.Reader[string]
	KafkaBrokers    config.Reader[[]string]
	KafkaTopic      config.Reader[string]
	OpenAIKey       config.Reader[string]
	OpenAIModel     config.Reader[string]
	OpenAIBaseURL   config.Reader[string]
	BreakerFailures config.Reader[int]
	BreakerOpenFor  config.Reader[time.Duration]
}

// ConfigFrom layers environment variables over doc.
func ConfigFrom(doc config.Reader[Document]) Config {
	return Config{
		Addr: config.Or(
			config.Env("HTTP_ADDR"),
			config.Lookup(doc, func(d Document) string { return d.HTTP.Addr }),
		),
		Title:   config.Lookup(doc, func(d Document) string { return d.OpenApi.Title }),
		Version: config.Lookup(doc, func(d Document) string { return d.OpenApi.Version }),
		DatabaseURL: config.Or(
			config.Env("DATABASE_URL"),
			config.Lookup(doc, func(d Document) string { return d.Database.URL }),
		),
		KafkaBrokers: config.ListFromString(config.Or(
			config.Env("KAFKA_BROKERS"),
			config.Lookup(doc, func(d Document) string { return d.Kafka.Brokers }),
		)),
		KafkaTopic: config.Or(
			config.Env("KAFKA_TOPIC"),
			config.Lookup(doc, func(d Document) string { return d.Kafka.Topic }),
		),
		OpenAIKey: config.Env("OPENAI_API_KEY"),
		OpenAIModel: config.Or(
			config.Env("OPENAI_MODEL"),
			config.Lookup(doc, func(d Document) string { return d.OpenAI.Model }),
		),
		OpenAIBaseURL: config.Or(
			config.Env("OPENAI_BASE_URL"),
			config.Lookup(doc, func(d Document) string { return d.OpenAI.BaseURL }),
		),
		BreakerFailures: config.Or(
			config.IntFromString(config.Env("DRIVETHRU_BREAKER_FAILURES")),
			config.Lookup(doc, func(d Document) int { return d.Breaker.Failures }),
		),
		BreakerOpenFor: config.Or(
			config.DurationFromString(config.Env("DRIVETHRU_BREAKER_OPEN_FOR")),
			config.Lookup(doc, func(d Document) time.Duration { return d.Breaker.OpenFor }),
		),
	}
}

// Init builds the backend's handler. Resources it opens are released by
// hooks registered on h.
func Init(ctx context.Context, cfg Config, h *lifecycle.HookRegistry) (http.Handler, error) {
	log := drivethru.Logger("github.com/z5labs/drivethru/api/app")

	l, readiness, err := initLedger(ctx, log, cfg, h)
	if err != nil {
		return nil, err
	}

	publisher, err := initPublisher(ctx, log, cfg, h)
	if err != nil {
		return nil, err
	}

	opts := []interpret.OpenAIOption{
		interpret.HTTPClient(&http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}),
	}
	if model := config.MustOr(ctx, "", cfg.OpenAIModel); model != "" {
		opts = append(opts, interpret.Model(model))
	}
	if baseURL := config.MustOr(ctx, "", cfg.OpenAIBaseURL); baseURL != "" {
		opts = append(opts, interpret.BaseURL(baseURL))
	}

	apiKey := config.MustOr(ctx, "", cfg.OpenAIKey)
	if apiKey == "" {
		log.WarnContext(ctx, "OPENAI_API_KEY is not set, orders will be rejected")
	}

	breaker := interpret.NewBreaker(
		interpret.NewOpenAI(apiKey, opts...),
		interpret.TripAfter(uint32(config.MustOr(ctx, 5, cfg.BreakerFailures))),
		interpret.OpenFor(config.MustOr(ctx, 30*time.Second, cfg.BreakerOpenFor)),
	)

	api := rest.NewApi(
		config.MustOr(ctx, "Drive-Thru Orders", cfg.Title),
		config.MustOr(ctx, "v0.0.0", cfg.Version),
		rest.Readiness(health.And(append(readiness, breaker)...)),
		rest.Middleware(
			middleware.RequestID,
			middleware.RealIP,
			cors.Handler(cors.Options{
				AllowedOrigins: []string{"*"},
				AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
				AllowedHeaders: []string{"*"},
			}),
		),
		endpoint.ListOrders(ctx, l),
		endpoint.Totals(ctx, l),
		endpoint.ProcessOrder(ctx, breaker, l, publisher),
	)
	return api, nil
}

func initLedger(ctx context.Context, log *slog.Logger, cfg Config, h *lifecycle.HookRegistry) (ledger.Ledger, []health.Monitor, error) {
	dsn := config.MustOr(ctx, "", cfg.DatabaseURL)
	if dsn == "" {
		log.InfoContext(ctx, "DATABASE_URL is not set, keeping orders in memory")
		return ledger.NewMemory(), nil, nil
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create database pool: %w", err)
	}
	h.OnPostRun(func(ctx context.Context) error {
		pool.Close()
		return nil
	})

	err = ledger.Migrate(ctx, pool)
	if err != nil {
		return nil, nil, err
	}

	pg := ledger.NewPostgres(pool)
	return pg, []health.Monitor{health.Ping(pg)}, nil
}

func initPublisher(ctx context.Context, log *slog.Logger, cfg Config, h *lifecycle.HookRegistry) (events.Publisher, error) {
	brokers := config.MustOr(ctx, nil, cfg.KafkaBrokers)
	if len(brokers) == 0 {
		log.InfoContext(ctx, "KAFKA_BROKERS is not set, history entries will not be published")
		return events.Discard, nil
	}

	k, err := events.NewKafka(brokers, events.Topic(config.MustOr(ctx, events.DefaultTopic, cfg.KafkaTopic)))
	if err != nil {
		return nil, err
	}
	h.OnPostRun(k.Close)
	return k, nil
}
