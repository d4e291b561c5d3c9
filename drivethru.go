// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package drivethru holds the pieces shared by the drive-thru ordering
// page and the order backend.
package drivethru

import (
	"log/slog"

	"go.opentelemetry.io/contrib/bridges/otelslog"
)

// Logger returns a structured logger whose records are exported through
// the global OpenTelemetry logger provider.
func Logger(name string) *slog.Logger {
	return otelslog.NewLogger(name)
}

// LogHandler returns the [slog.Handler] behind [Logger].
func LogHandler(name string) slog.Handler {
	return otelslog.NewHandler(name)
}
