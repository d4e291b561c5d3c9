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

type appFragmentHandler struct{}

// AppFragment renders the form and panels without refreshing from the
// backend. A page rendered mid-submit polls it until the submit settles.
func AppFragment(ctx context.Context) rest.ApiOption {
	return rest.Operation(
		http.MethodGet,
		rest.BasePath("/app"),
		rest.ProduceHTML(appFragmentHandler{}, appTemplate),
		rest.Summary("Render the current form and panels"),
	)
}

func (appFragmentHandler) Produce(ctx context.Context) (*page.State, error) {
	c, err := ControllerFrom(ctx)
	if err != nil {
		return nil, err
	}
	s := c.Snapshot()
	return &s, nil
}
