// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package job

import (
	"context"
	"errors"
	"testing"

	"github.com/z5labs/drivethru/app"

	"github.com/stretchr/testify/require"
)

func buildHandler(h Handler) app.Builder[Handler] {
	return app.BuilderFunc[Handler](func(ctx context.Context) (Handler, error) {
		return h, nil
	})
}

func TestBuild(t *testing.T) {
	t.Run("will return an error", func(t *testing.T) {
		t.Run("if the handler cannot be built", func(t *testing.T) {
			buildErr := errors.New("failed to build")
			b := app.BuilderFunc[Handler](func(ctx context.Context) (Handler, error) {
				return nil, buildErr
			})

			_, err := Build("test", b).Build(context.Background())
			require.ErrorIs(t, err, buildErr)
		})
	})
}

func TestRuntime_Run(t *testing.T) {
	t.Run("will run the handler once", func(t *testing.T) {
		t.Run("if it succeeds", func(t *testing.T) {
			calls := 0
			h := HandlerFunc(func(ctx context.Context) error {
				calls++
				return nil
			})

			err := app.Run(context.Background(), Build("test", buildHandler(h)))
			require.NoError(t, err)
			require.Equal(t, 1, calls)
		})
	})

	t.Run("will return an error", func(t *testing.T) {
		t.Run("if the handler fails", func(t *testing.T) {
			handleErr := errors.New("failed to handle")
			h := HandlerFunc(func(ctx context.Context) error {
				return handleErr
			})

			err := app.Run(context.Background(), Build("test", buildHandler(h)))
			require.ErrorIs(t, err, handleErr)
		})

		t.Run("if the handler panics", func(t *testing.T) {
			h := HandlerFunc(func(ctx context.Context) error {
				panic("boom")
			})

			err := app.Run(context.Background(), Build("test", buildHandler(h)))
			require.Error(t, err)
		})
	})
}
