// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package app wires the drive-thru services together from small builders
// and runs them until the process is signalled to stop.
package app

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/z5labs/sdk-go/try"
)

// Builder builds a T, typically a [Runtime] or one of its dependencies.
type Builder[T any] interface {
	Build(context.Context) (T, error)
}

// BuilderFunc is a function implementing [Builder].
type BuilderFunc[T any] func(context.Context) (T, error)

// Build implements [Builder].
func (f BuilderFunc[T]) Build(ctx context.Context) (T, error) {
	return f(ctx)
}

// Bind feeds the output of builder into binder.
func Bind[A, B any](builder Builder[A], binder func(A) Builder[B]) Builder[B] {
	return BuilderFunc[B](func(ctx context.Context) (B, error) {
		a, err := builder.Build(ctx)
		if err != nil {
			var zero B
			return zero, err
		}
		return binder(a).Build(ctx)
	})
}

// Runtime is a long running component of a service.
type Runtime interface {
	Run(context.Context) error
}

// RuntimeFunc is a function implementing [Runtime].
type RuntimeFunc func(context.Context) error

// Run implements [Runtime].
func (f RuntimeFunc) Run(ctx context.Context) error {
	return f(ctx)
}

// Run builds and runs a Runtime. The context passed to both is cancelled
// on SIGINT or SIGTERM. Panics raised while building, such as a required
// config value being absent, are returned as errors.
func Run[T Runtime](ctx context.Context, builder Builder[T]) (err error) {
	sigCtx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	rt, err := build(sigCtx, builder)
	if err != nil {
		return err
	}

	return rt.Run(sigCtx)
}

func build[T any](ctx context.Context, builder Builder[T]) (t T, err error) {
	defer try.Recover(&err)

	return builder.Build(ctx)
}

// LogError writes err to handler. It is the last resort for errors which
// happen before or after telemetry is available.
func LogError(handler slog.Handler, err error) {
	if err == nil {
		return
	}

	log := slog.New(handler)
	log.Error("application error", slog.Any("error", err))
}
