// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package endpoint

import (
	"context"
	"net/http"

	"github.com/z5labs/drivethru/rest"
	"github.com/z5labs/drivethru/ui/page"
)

type stateHandler struct{}

// State returns the session's page state as JSON.
func State(ctx context.Context) rest.ApiOption {
	return rest.Operation(
		http.MethodGet,
		rest.BasePath("/state"),
		rest.ProduceJson(stateHandler{}),
		rest.Summary("Read the page state of the current session"),
	)
}

func (stateHandler) Produce(ctx context.Context) (*page.State, error) {
	c, err := ControllerFrom(ctx)
	if err != nil {
		return nil, err
	}
	s := c.Snapshot()
	return &s, nil
}
