// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package http runs an [http.Handler] as an [app.Runtime].
package http

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/z5labs/drivethru"
	"github.com/z5labs/drivethru/app"
	"github.com/z5labs/drivethru/config"

	"github.com/sourcegraph/conc/pool"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// TCPListener reads a TCP listener bound to Addr, ":8080" by default.
type TCPListener struct {
	Addr config.Reader[string]
}

// NewTCPListener returns a TCPListener for addr.
func NewTCPListener(addr config.Reader[string]) TCPListener {
	return TCPListener{Addr: addr}
}

// Read implements [config.Reader].
func (tcpLn TCPListener) Read(ctx context.Context) (config.Value[net.Listener], error) {
	addr := config.MustOr(ctx, ":8080", tcpLn.Addr)

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return config.Value[net.Listener]{}, err
	}
	return config.ValueOf(ln), nil
}

// Server configures the underlying [http.Server]. Unset timeouts fall back
// to the defaults documented on each field.
type Server struct {
	Listener config.Reader[net.Listener]

	// ReadHeaderTimeout defaults to 2s.
	ReadHeaderTimeout config.Reader[time.Duration]

	// ReadTimeout defaults to 5s.
	ReadTimeout config.Reader[time.Duration]

	// WriteTimeout defaults to 30s. Submitting an order waits on the LLM so
	// this is longer than a typical API.
	WriteTimeout config.Reader[time.Duration]

	// IdleTimeout defaults to 120s.
	IdleTimeout config.Reader[time.Duration]
}

// ServerFromEnv reads the timeouts from HTTP_READ_HEADER_TIMEOUT,
// HTTP_READ_TIMEOUT, HTTP_WRITE_TIMEOUT and HTTP_IDLE_TIMEOUT.
func ServerFromEnv(listener config.Reader[net.Listener]) Server {
	return Server{
		Listener:          listener,
		ReadHeaderTimeout: config.DurationFromString(config.Env("HTTP_READ_HEADER_TIMEOUT")),
		ReadTimeout:       config.DurationFromString(config.Env("HTTP_READ_TIMEOUT")),
		WriteTimeout:      config.DurationFromString(config.Env("HTTP_WRITE_TIMEOUT")),
		IdleTimeout:       config.DurationFromString(config.Env("HTTP_IDLE_TIMEOUT")),
	}
}

// Handler is the [http.Handler] an App serves.
type Handler = http.Handler

// HandlerBuilder builds the Handler once configuration has been read.
type HandlerBuilder = app.BuilderFunc[http.Handler]

// App serves HTTP until its context is cancelled.
type App struct {
	log *slog.Logger
	ls  net.Listener
	srv *http.Server
}

// Build wraps the handler produced by b in OpenTelemetry instrumentation
// and returns a builder for the serving App.
func Build(srv Server, b app.Builder[http.Handler]) app.Builder[App] {
	return app.Bind(b, func(h http.Handler) app.Builder[App] {
		return app.BuilderFunc[App](func(ctx context.Context) (App, error) {
			ln, err := config.Read(ctx, srv.Listener)
			if err != nil {
				return App{}, err
			}

			httpServer := &http.Server{
				Handler: otelhttp.NewHandler(
					h,
					"drivethru",
					otelhttp.WithMessageEvents(otelhttp.ReadEvents, otelhttp.WriteEvents),
				),
				ReadHeaderTimeout: config.MustOr(ctx, 2*time.Second, srv.ReadHeaderTimeout),
				ReadTimeout:       config.MustOr(ctx, 5*time.Second, srv.ReadTimeout),
				WriteTimeout:      config.MustOr(ctx, 30*time.Second, srv.WriteTimeout),
				IdleTimeout:       config.MustOr(ctx, 120*time.Second, srv.IdleTimeout),
				ErrorLog:          slog.NewLogLogger(drivethru.LogHandler("github.com/z5labs/drivethru/http"), slog.LevelError),
			}

			return App{
				log: drivethru.Logger("github.com/z5labs/drivethru/http"),
				ls:  ln,
				srv: httpServer,
			}, nil
		})
	})
}

// Addr returns the address the App is listening on.
func (a App) Addr() net.Addr {
	return a.ls.Addr()
}

// Run implements [app.Runtime]. Cancelling ctx shuts the server down
// gracefully and Run then returns nil.
func (a App) Run(ctx context.Context) error {
	p := pool.New().WithContext(ctx).WithCancelOnError()

	p.Go(func(ctx context.Context) error {
		a.log.InfoContext(ctx, "serving http", slog.String("addr", a.ls.Addr().String()))
		return a.srv.Serve(a.ls)
	})

	p.Go(func(ctx context.Context) error {
		<-ctx.Done()
		return a.srv.Shutdown(context.WithoutCancel(ctx))
	})

	err := p.Wait()
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
