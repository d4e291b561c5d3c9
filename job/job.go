// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package job runs a task once, such as a schema migration, with the same
// lifecycle and telemetry as the long running services.
package job

import (
	"context"
	"log/slog"
	"time"

	"github.com/z5labs/drivethru"
	"github.com/z5labs/drivethru/app"

	"github.com/z5labs/sdk-go/try"
)

// Handler represents the core logic of your job.
type Handler interface {
	Handle(context.Context) error
}

// HandlerFunc is an adapter to allow the use of ordinary functions as [Handler]s.
type HandlerFunc func(context.Context) error

// Handle implements the [Handler] interface.
func (f HandlerFunc) Handle(ctx context.Context) error {
	return f(ctx)
}

// Runtime is an [app.Runtime] which handles running your [Handler] once.
type Runtime struct {
	log  *slog.Logger
	name string
	h    Handler
}

// Build wraps the [Handler] built by b in a [Runtime].
func Build[H Handler](name string, b app.Builder[H]) app.Builder[Runtime] {
	return app.BuilderFunc[Runtime](func(ctx context.Context) (Runtime, error) {
		h, err := b.Build(ctx)
		if err != nil {
			return Runtime{}, err
		}

		return Runtime{
			log:  drivethru.Logger("github.com/z5labs/drivethru/job"),
			name: name,
			h:    h,
		}, nil
	})
}

// Run implements [app.Runtime]. A panic in the handler is returned as an
// error.
func (rt Runtime) Run(ctx context.Context) (err error) {
	defer try.Recover(&err)

	start := time.Now()
	rt.log.InfoContext(ctx, "starting job", slog.String("job", rt.name))

	err = rt.h.Handle(ctx)
	if err != nil {
		rt.log.ErrorContext(ctx, "job failed", slog.String("job", rt.name), slog.Any("error", err))
		return err
	}

	rt.log.InfoContext(ctx, "job completed", slog.String("job", rt.name), slog.Duration("duration", time.Since(start)))
	return nil
}
