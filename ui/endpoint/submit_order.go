// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package endpoint

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/z5labs/drivethru"
	"github.com/z5labs/drivethru/rest"
	"github.com/z5labs/drivethru/ui/page"
)

// SubmitOrderRequest is the order form.
type SubmitOrderRequest struct {
	Message string `form:"message"`
}

type submitOrderHandler struct {
	log *slog.Logger
}

// SubmitOrder handles the order form and returns the re-rendered app
// fragment for htmx to swap in.
func SubmitOrder(ctx context.Context) rest.ApiOption {
	h := &submitOrderHandler{
		log: drivethru.Logger("github.com/z5labs/drivethru/ui/endpoint"),
	}

	return rest.Operation(
		http.MethodPost,
		rest.BasePath("/order"),
		rest.ConsumeForm(rest.ReturnHTML(h, appTemplate)),
		rest.Summary("Submit a natural language order"),
	)
}

func (h *submitOrderHandler) Handle(ctx context.Context, req *SubmitOrderRequest) (*page.State, error) {
	c, err := ControllerFrom(ctx)
	if err != nil {
		return nil, err
	}

	// a blank submit does nothing but the input still reflects what was typed
	if strings.TrimSpace(req.Message) == "" {
		c.SetMessage(req.Message)
	}

	err = c.Submit(ctx, req.Message)
	if errors.Is(err, page.ErrBusy) {
		h.log.InfoContext(ctx, "rejecting submit while another is in flight")

		// this request does not own the in-flight submit so its form stays usable
		s := c.Snapshot()
		s.Message = req.Message
		s.Error = page.MsgBusy
		s.Loading = false
		return &s, nil
	}
	if err != nil {
		return nil, err
	}

	s := c.Snapshot()
	return &s, nil
}
