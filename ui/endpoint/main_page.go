// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package endpoint

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/z5labs/drivethru"
	"github.com/z5labs/drivethru/rest"
	"github.com/z5labs/drivethru/ui/page"
)

type mainPageHandler struct {
	log *slog.Logger
}

// MainPage serves the ordering page. Every full page load refreshes the
// session's history and totals from the backend.
func MainPage(ctx context.Context) rest.ApiOption {
	h := &mainPageHandler{
		log: drivethru.Logger("github.com/z5labs/drivethru/ui/endpoint"),
	}

	return rest.Operation(
		http.MethodGet,
		rest.BasePath("/"),
		rest.ProduceHTML(h, pageTemplate),
		rest.Summary("Render the ordering page"),
	)
}

func (h *mainPageHandler) Produce(ctx context.Context) (*page.State, error) {
	c, err := ControllerFrom(ctx)
	if err != nil {
		return nil, err
	}

	err = c.Load(ctx)
	if err != nil {
		h.log.WarnContext(ctx, "rendering page without fresh orders", slog.Any("error", err))
	}

	s := c.Snapshot()
	return &s, nil
}
