// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Command drivethru-migrate applies the order ledger's schema migrations
// to the database named by DATABASE_URL and exits.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/z5labs/drivethru/api/ledger"
	"github.com/z5labs/drivethru/app"
	"github.com/z5labs/drivethru/config"
	"github.com/z5labs/drivethru/job"
	"github.com/z5labs/drivethru/otel"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

func main() {
	// a missing .env file is not an error
	_ = godotenv.Load()

	dsn := config.Env("DATABASE_URL")

	err := app.Run(
		context.Background(),
		otel.Build(
			otel.FromEnv("drivethru-migrate"),
			job.Build("migrate", app.BuilderFunc[job.Handler](func(ctx context.Context) (job.Handler, error) {
				url, err := config.Read(ctx, dsn)
				if err != nil {
					return nil, fmt.Errorf("DATABASE_URL is required: %w", err)
				}

				return job.HandlerFunc(func(ctx context.Context) error {
					pool, err := pgxpool.New(ctx, url)
					if err != nil {
						return fmt.Errorf("failed to create database pool: %w", err)
					}
					defer pool.Close()

					return ledger.Migrate(ctx, pool)
				}), nil
			})),
		),
	)
	if err != nil {
		app.LogError(slog.NewJSONHandler(os.Stdout, nil), err)
		os.Exit(1)
	}
}
