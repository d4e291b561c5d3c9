// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package otel

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/z5labs/drivethru/config"

	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/metric"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.38.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
)

// Protocol is the OTLP transport.
type Protocol string

const (
	ProtocolGRPC Protocol = "grpc"
	ProtocolHTTP Protocol = "http/protobuf"
)

// Exporter locates an OTLP collector. An unset Endpoint disables export.
type Exporter struct {
	Endpoint config.Reader[string]
	Protocol config.Reader[Protocol]
}

func (e Exporter) read(ctx context.Context) (endpoint string, protocol Protocol, ok bool, err error) {
	endpoint, err = config.Read(ctx, e.Endpoint)
	if errors.Is(err, config.ErrValueNotSet) {
		return "", "", false, nil
	}
	if err != nil {
		return "", "", false, err
	}

	protocol, err = readOr(ctx, e.Protocol, ProtocolGRPC)
	if err != nil {
		return "", "", false, err
	}

	switch protocol {
	case ProtocolGRPC, ProtocolHTTP:
		return endpoint, protocol, true, nil
	default:
		return "", "", false, fmt.Errorf("unsupported otlp protocol: %s", protocol)
	}
}

// Resource describes the service emitting telemetry.
type Resource struct {
	ServiceName    config.Reader[string]
	ServiceVersion config.Reader[string]
}

// Read implements [config.Reader].
func (r Resource) Read(ctx context.Context) (config.Value[*resource.Resource], error) {
	name := config.MustOr(ctx, "drivethru", r.ServiceName)
	version := config.MustOr(ctx, "", r.ServiceVersion)

	rsc, err := resource.New(
		context.Background(),
		resource.WithTelemetrySDK(),
		resource.WithAttributes(
			semconv.ServiceName(name),
			semconv.ServiceVersion(version),
		),
	)
	if err != nil {
		return config.Value[*resource.Resource]{}, err
	}
	return config.ValueOf(rsc), nil
}

// TracerProvider reads a batching SDK tracer provider sampled by trace id
// ratio, respecting the parent's decision.
type TracerProvider struct {
	Resource    config.Reader[*resource.Resource]
	Exporter    Exporter
	SampleRatio config.Reader[float64]
}

// Read implements [config.Reader].
func (cfg TracerProvider) Read(ctx context.Context) (config.Value[trace.TracerProvider], error) {
	endpoint, protocol, ok, err := cfg.Exporter.read(ctx)
	if !ok || err != nil {
		return config.Value[trace.TracerProvider]{}, err
	}

	var exp sdktrace.SpanExporter
	switch protocol {
	case ProtocolGRPC:
		exp, err = otlptracegrpc.New(
			ctx,
			otlptracegrpc.WithEndpointURL(endpoint),
			otlptracegrpc.WithDialOption(grpc.WithUserAgent("drivethru")),
		)
	case ProtocolHTTP:
		exp, err = otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(endpoint))
	}
	if err != nil {
		return config.Value[trace.TracerProvider]{}, fmt.Errorf("failed to create span exporter: %w", err)
	}

	rsc, err := config.Read(ctx, cfg.Resource)
	if err != nil {
		return config.Value[trace.TracerProvider]{}, err
	}

	ratio := config.MustOr(ctx, 1.0, cfg.SampleRatio)
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(rsc),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))),
		sdktrace.WithBatcher(exp),
	)
	return config.ValueOf[trace.TracerProvider](tp), nil
}

// MeterProvider reads an SDK meter provider exporting on an interval.
type MeterProvider struct {
	Resource       config.Reader[*resource.Resource]
	Exporter       Exporter
	ExportInterval config.Reader[time.Duration]
}

// Read implements [config.Reader].
func (cfg MeterProvider) Read(ctx context.Context) (config.Value[metric.MeterProvider], error) {
	endpoint, protocol, ok, err := cfg.Exporter.read(ctx)
	if !ok || err != nil {
		return config.Value[metric.MeterProvider]{}, err
	}

	var exp sdkmetric.Exporter
	switch protocol {
	case ProtocolGRPC:
		exp, err = otlpmetricgrpc.New(
			ctx,
			otlpmetricgrpc.WithEndpointURL(endpoint),
			otlpmetricgrpc.WithDialOption(grpc.WithUserAgent("drivethru")),
		)
	case ProtocolHTTP:
		exp, err = otlpmetrichttp.New(ctx, otlpmetrichttp.WithEndpointURL(endpoint))
	}
	if err != nil {
		return config.Value[metric.MeterProvider]{}, fmt.Errorf("failed to create metric exporter: %w", err)
	}

	rsc, err := config.Read(ctx, cfg.Resource)
	if err != nil {
		return config.Value[metric.MeterProvider]{}, err
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(rsc),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(
			exp,
			sdkmetric.WithInterval(config.MustOr(ctx, 10*time.Second, cfg.ExportInterval)),
		)),
	)
	return config.ValueOf[metric.MeterProvider](mp), nil
}

// LoggerProvider reads a batching SDK logger provider.
type LoggerProvider struct {
	Resource config.Reader[*resource.Resource]
	Exporter Exporter
}

// Read implements [config.Reader].
func (cfg LoggerProvider) Read(ctx context.Context) (config.Value[log.LoggerProvider], error) {
	endpoint, protocol, ok, err := cfg.Exporter.read(ctx)
	if !ok || err != nil {
		return config.Value[log.LoggerProvider]{}, err
	}

	var exp sdklog.Exporter
	switch protocol {
	case ProtocolGRPC:
		exp, err = otlploggrpc.New(
			ctx,
			otlploggrpc.WithEndpointURL(endpoint),
			otlploggrpc.WithDialOption(grpc.WithUserAgent("drivethru")),
		)
	case ProtocolHTTP:
		exp, err = otlploghttp.New(ctx, otlploghttp.WithEndpointURL(endpoint))
	}
	if err != nil {
		return config.Value[log.LoggerProvider]{}, fmt.Errorf("failed to create log exporter: %w", err)
	}

	rsc, err := config.Read(ctx, cfg.Resource)
	if err != nil {
		return config.Value[log.LoggerProvider]{}, err
	}

	lp := sdklog.NewLoggerProvider(
		sdklog.WithResource(rsc),
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exp)),
	)
	return config.ValueOf[log.LoggerProvider](lp), nil
}

// FromEnv reads the SDK from the standard OTEL_* environment variables.
// serviceName is used when OTEL_SERVICE_NAME is unset. Without
// OTEL_EXPORTER_OTLP_ENDPOINT (or a signal specific endpoint) the
// corresponding provider is a no-op.
func FromEnv(serviceName string) SDK {
	rsc := Resource{
		ServiceName:    config.Default(serviceName, config.Env("OTEL_SERVICE_NAME")),
		ServiceVersion: config.Env("OTEL_SERVICE_VERSION"),
	}

	protocol := config.Map(
		config.Env("OTEL_EXPORTER_OTLP_PROTOCOL"),
		func(ctx context.Context, s string) (Protocol, error) {
			return Protocol(s), nil
		},
	)

	exporter := func(signal string) Exporter {
		return Exporter{
			Endpoint: config.Or(
				config.Env("OTEL_EXPORTER_OTLP_"+signal+"_ENDPOINT"),
				config.Env("OTEL_EXPORTER_OTLP_ENDPOINT"),
			),
			Protocol: protocol,
		}
	}

	return SDK{
		TracerProvider: TracerProvider{
			Resource:    rsc,
			Exporter:    exporter("TRACES"),
			SampleRatio: config.Float64FromString(config.Env("OTEL_TRACES_SAMPLER_RATIO")),
		},
		MeterProvider: MeterProvider{
			Resource:       rsc,
			Exporter:       exporter("METRICS"),
			ExportInterval: config.DurationFromString(config.Env("OTEL_METRIC_EXPORT_INTERVAL")),
		},
		LoggerProvider: LoggerProvider{
			Resource: rsc,
			Exporter: exporter("LOGS"),
		},
	}
}
