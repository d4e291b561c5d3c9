// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Command drivethru-api serves the order backend.
package main

import (
	"context"
	_ "embed"
	"log/slog"
	"os"

	apiapp "github.com/z5labs/drivethru/api/app"
	"github.com/z5labs/drivethru/app"
	"github.com/z5labs/drivethru/config"
	"github.com/z5labs/drivethru/http"
	"github.com/z5labs/drivethru/otel"

	"github.com/joho/godotenv"
)

//go:embed config.yaml
var configBytes []byte

func main() {
	// a missing .env file is not an error
	_ = godotenv.Load()

	cfg := apiapp.ConfigFrom(config.UnmarshalYAML[apiapp.Document](config.ReaderOf(configBytes)))

	err := app.Run(
		context.Background(),
		otel.Build(
			otel.FromEnv("drivethru-api"),
			app.WithHooks(func(ctx context.Context, h *app.HookRegistry) (http.App, error) {
				return http.Build(
					http.ServerFromEnv(http.NewTCPListener(cfg.Addr)),
					http.HandlerBuilder(func(ctx context.Context) (http.Handler, error) {
						return apiapp.Init(ctx, cfg, h)
					}),
				).Build(ctx)
			}),
		),
	)
	if err != nil {
		app.LogError(slog.NewJSONHandler(os.Stdout, nil), err)
		os.Exit(1)
	}
}
