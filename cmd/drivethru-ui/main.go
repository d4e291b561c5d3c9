// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Command drivethru-ui serves the drive-thru ordering page.
package main

import (
	"context"
	_ "embed"
	"log/slog"
	"os"

	"github.com/z5labs/drivethru/app"
	"github.com/z5labs/drivethru/config"
	"github.com/z5labs/drivethru/http"
	"github.com/z5labs/drivethru/otel"
	uiapp "github.com/z5labs/drivethru/ui/app"

	"github.com/joho/godotenv"
)

//go:embed config.yaml
var configBytes []byte

func main() {
	// a missing .env file is not an error
	_ = godotenv.Load()

	cfg := uiapp.ConfigFrom(config.UnmarshalYAML[uiapp.Document](config.ReaderOf(configBytes)))

	err := app.Run(
		context.Background(),
		otel.Build(
			otel.FromEnv("drivethru-ui"),
			http.Build(
				http.ServerFromEnv(http.NewTCPListener(cfg.Addr)),
				http.HandlerBuilder(func(ctx context.Context) (http.Handler, error) {
					return uiapp.Init(ctx, cfg)
				}),
			),
		),
	)
	if err != nil {
		app.LogError(slog.NewJSONHandler(os.Stdout, nil), err)
		os.Exit(1)
	}
}
