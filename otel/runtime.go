// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package otel installs the OpenTelemetry SDK around a service runtime.
package otel

import (
	"context"
	"errors"
	"fmt"

	"github.com/z5labs/drivethru/app"
	"github.com/z5labs/drivethru/config"

	"github.com/z5labs/sdk-go/try"
	"go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/global"
	lognoop "go.opentelemetry.io/otel/log/noop"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// SDK holds readers for the global telemetry providers. Nil or unset
// readers fall back to no-op providers and a W3C baggage plus trace
// context propagator.
type SDK struct {
	TextMapPropagator config.Reader[propagation.TextMapPropagator]
	TracerProvider    config.Reader[trace.TracerProvider]
	MeterProvider     config.Reader[metric.MeterProvider]
	LoggerProvider    config.Reader[log.LoggerProvider]
}

// Runtime runs an inner runtime with the providers installed globally and
// shuts them down once it returns.
type Runtime struct {
	inner          app.Runtime
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
	loggerProvider log.LoggerProvider
}

// Build installs the providers read from sdk before building the inner
// runtime, so loggers and tracers created while building are exported.
func Build[T app.Runtime](sdk SDK, builder app.Builder[T]) app.Builder[Runtime] {
	return app.BuilderFunc[Runtime](func(ctx context.Context) (Runtime, error) {
		tmp, err := readOr(ctx, sdk.TextMapPropagator, propagation.NewCompositeTextMapPropagator(
			propagation.Baggage{},
			propagation.TraceContext{},
		))
		if err != nil {
			return Runtime{}, err
		}

		tp, err := readOr[trace.TracerProvider](ctx, sdk.TracerProvider, tracenoop.NewTracerProvider())
		if err != nil {
			return Runtime{}, err
		}

		mp, err := readOr[metric.MeterProvider](ctx, sdk.MeterProvider, metricnoop.NewMeterProvider())
		if err != nil {
			return Runtime{}, err
		}

		lp, err := readOr[log.LoggerProvider](ctx, sdk.LoggerProvider, lognoop.NewLoggerProvider())
		if err != nil {
			return Runtime{}, err
		}

		otel.SetTextMapPropagator(tmp)
		otel.SetTracerProvider(tp)
		otel.SetMeterProvider(mp)
		global.SetLoggerProvider(lp)

		err = runtime.Start(runtime.WithMeterProvider(mp))
		if err != nil {
			return Runtime{}, fmt.Errorf("failed to start runtime metrics: %w", err)
		}

		inner, err := builder.Build(ctx)
		if err != nil {
			return Runtime{}, errors.Join(err, shutdown(tp, mp, lp).Close())
		}

		return Runtime{
			inner:          inner,
			tracerProvider: tp,
			meterProvider:  mp,
			loggerProvider: lp,
		}, nil
	})
}

func readOr[T any](ctx context.Context, r config.Reader[T], def T) (T, error) {
	v, err := config.Read(ctx, r)
	if errors.Is(err, config.ErrValueNotSet) {
		return def, nil
	}
	return v, err
}

// Run implements [app.Runtime].
func (rt Runtime) Run(ctx context.Context) (err error) {
	defer try.Close(&err, shutdown(
		rt.tracerProvider,
		rt.meterProvider,
		rt.loggerProvider,
	))

	return rt.inner.Run(ctx)
}

type closerFunc func() error

func (f closerFunc) Close() error {
	return f()
}

type shutdowner interface {
	Shutdown(context.Context) error
}

// shutdown flushes every SDK provider. No-op providers are skipped since
// they do not implement Shutdown.
func shutdown(vs ...any) closerFunc {
	return func() error {
		var errs error
		for _, v := range vs {
			s, ok := v.(shutdowner)
			if !ok {
				continue
			}
			errs = errors.Join(errs, s.Shutdown(context.Background()))
		}
		return errs
	}
}
