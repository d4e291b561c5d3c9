// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package http

import (
	"context"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/z5labs/drivethru/app"
	"github.com/z5labs/drivethru/config"

	"github.com/stretchr/testify/require"
)

func TestTCPListener_Read(t *testing.T) {
	t.Run("will use the configured address", func(t *testing.T) {
		val, err := NewTCPListener(config.ReaderOf("127.0.0.1:0")).Read(context.Background())
		require.NoError(t, err)

		ln, ok := val.Value()
		require.True(t, ok)
		defer ln.Close()

		require.Contains(t, ln.Addr().String(), "127.0.0.1:")
	})

	t.Run("will return an error", func(t *testing.T) {
		t.Run("if the address is invalid", func(t *testing.T) {
			_, err := NewTCPListener(config.ReaderOf("invalid-address")).Read(context.Background())
			require.Error(t, err)
		})
	})
}

func TestServerFromEnv(t *testing.T) {
	t.Run("will read timeouts from the environment", func(t *testing.T) {
		t.Setenv("HTTP_WRITE_TIMEOUT", "45s")

		srv := ServerFromEnv(config.EmptyReader[net.Listener]())

		d, err := config.Read(context.Background(), srv.WriteTimeout)
		require.NoError(t, err)
		require.Equal(t, 45*time.Second, d)
	})
}

func TestBuild(t *testing.T) {
	t.Run("will return an error", func(t *testing.T) {
		t.Run("if no listener is configured", func(t *testing.T) {
			handler := app.BuilderFunc[http.Handler](func(ctx context.Context) (http.Handler, error) {
				return http.NotFoundHandler(), nil
			})

			_, err := Build(ServerFromEnv(config.EmptyReader[net.Listener]()), handler).Build(context.Background())
			require.ErrorIs(t, err, config.ErrValueNotSet)
		})
	})
}

func TestApp_Run(t *testing.T) {
	t.Run("will serve requests until the context is cancelled", func(t *testing.T) {
		handler := app.BuilderFunc[http.Handler](func(ctx context.Context) (http.Handler, error) {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, "ok")
			}), nil
		})

		srv := ServerFromEnv(NewTCPListener(config.ReaderOf("127.0.0.1:0")))
		a, err := Build(srv, handler).Build(context.Background())
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		errCh := make(chan error, 1)
		go func() {
			errCh <- a.Run(ctx)
		}()

		var resp *http.Response
		require.Eventually(t, func() bool {
			resp, err = http.Get("http://" + a.Addr().String() + "/")
			return err == nil
		}, 2*time.Second, 20*time.Millisecond)
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		require.Equal(t, "ok", string(body))

		cancel()
		select {
		case err := <-errCh:
			require.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("server did not shut down")
		}
	})
}
