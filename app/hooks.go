// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package app

import (
	"context"
	"errors"
)

// HookFunc releases a resource after the service stops.
type HookFunc func(context.Context) error

// HookRegistry collects post-run hooks while a service is being built.
type HookRegistry struct {
	hooks []HookFunc
}

// OnPostRun registers hook. Hooks run in registration order.
func (r *HookRegistry) OnPostRun(hook HookFunc) {
	r.hooks = append(r.hooks, hook)
}

func (r *HookRegistry) run(ctx context.Context) error {
	// hooks still need a live context after shutdown was signalled
	ctx = context.WithoutCancel(ctx)

	var errs error
	for _, hook := range r.hooks {
		errs = errors.Join(errs, hook(ctx))
	}
	return errs
}

// HookRuntime runs an inner Runtime followed by its registered hooks.
type HookRuntime struct {
	inner    Runtime
	registry *HookRegistry
}

// Run runs the inner runtime and then every hook, even when earlier steps
// fail. All errors are joined.
func (rt HookRuntime) Run(ctx context.Context) error {
	runErr := rt.inner.Run(ctx)
	return errors.Join(runErr, rt.registry.run(ctx))
}

// WithHooks lets f register cleanup for the resources it opens, for example
// a database pool:
//
//	app.WithHooks(func(ctx context.Context, h *app.HookRegistry) (app.Runtime, error) {
//		pool, err := pgxpool.New(ctx, dsn)
//		if err != nil {
//			return nil, err
//		}
//		h.OnPostRun(func(ctx context.Context) error {
//			pool.Close()
//			return nil
//		})
//		return newRuntime(pool)
//	})
//
// If f fails, the hooks registered so far run before the error is returned.
func WithHooks[T Runtime](f func(context.Context, *HookRegistry) (T, error)) Builder[HookRuntime] {
	return BuilderFunc[HookRuntime](func(ctx context.Context) (HookRuntime, error) {
		registry := &HookRegistry{}

		inner, err := f(ctx, registry)
		if err != nil {
			return HookRuntime{}, errors.Join(err, registry.run(ctx))
		}

		return HookRuntime{
			inner:    inner,
			registry: registry,
		}, nil
	})
}
