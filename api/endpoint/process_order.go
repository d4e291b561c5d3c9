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
	"github.com/z5labs/drivethru/api/events"
	"github.com/z5labs/drivethru/api/interpret"
	"github.com/z5labs/drivethru/api/ledger"
	"github.com/z5labs/drivethru/order"
	"github.com/z5labs/drivethru/rest"
)

type processOrderHandler struct {
	log         *slog.Logger
	interpreter interpret.Interpreter
	ledger      ledger.Ledger
	publisher   events.Publisher
}

// ProcessOrder interprets a customer's message and applies it to the
// ledger. Every recorded entry is handed to p.
func ProcessOrder(ctx context.Context, i interpret.Interpreter, l ledger.Ledger, p events.Publisher) rest.ApiOption {
	h := &processOrderHandler{
		log:         drivethru.Logger("github.com/z5labs/drivethru/api/endpoint"),
		interpreter: i,
		ledger:      l,
		publisher:   p,
	}

	return rest.Operation(
		http.MethodPost,
		rest.BasePath("/process-order"),
		rest.HandleJson(h),
		rest.Summary("Place or cancel items from a natural language request"),
	)
}

func (h *processOrderHandler) Handle(ctx context.Context, req *order.ProcessRequest) (*order.ProcessResponse, error) {
	if strings.TrimSpace(req.Message) == "" {
		return nil, problem(http.StatusBadRequest, "Message must not be empty")
	}

	cmd, err := h.interpreter.Interpret(ctx, req.Message)
	if err != nil {
		return nil, interpretProblem(err)
	}

	res, err := h.ledger.Apply(ctx, cmd)
	var invalid ledger.InvalidItemError
	if errors.As(err, &invalid) {
		return nil, problem(http.StatusBadRequest, invalid.Reason)
	}
	if err != nil {
		return nil, err
	}

	if res.Entry != nil {
		h.publisher.Publish(ctx, *res.Entry)
	}

	h.log.InfoContext(
		ctx,
		"processed order",
		slog.String("status", res.Status),
		slog.String("message", res.Message),
	)

	resp := res.Response()
	return &resp, nil
}

func problem(status int, detail string) rest.ProblemDetail {
	return rest.ProblemDetail{
		Type:   "about:blank",
		Title:  http.StatusText(status),
		Status: status,
		Detail: detail,
	}
}

func interpretProblem(err error) error {
	var noItems interpret.NoItemsError
	switch {
	case errors.As(err, &noItems):
		if noItems.Cancel {
			return problem(http.StatusBadRequest, "No items specified for cancellation")
		}
		return problem(http.StatusBadRequest, "No items specified in the order")
	case errors.Is(err, interpret.ErrNotUnderstood):
		return problem(http.StatusBadRequest, "Could not understand the order. Please try rephrasing your request.")
	case errors.Is(err, interpret.ErrUnknownAction):
		return problem(http.StatusBadRequest, "Invalid request type")
	case errors.Is(err, interpret.ErrMalformedArguments):
		return problem(http.StatusInternalServerError, "Failed to parse order details")
	case errors.Is(err, interpret.ErrNotConfigured):
		return problem(http.StatusInternalServerError, "OpenAI API key not configured")
	case errors.Is(err, interpret.ErrUnavailable):
		return problem(http.StatusServiceUnavailable, "Order service is temporarily unavailable. Please try again shortly.")
	default:
		return err
	}
}
