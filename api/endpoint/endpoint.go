// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package endpoint exposes the order backend over HTTP.
package endpoint

import (
	"context"
	"net/http"

	"github.com/z5labs/drivethru/api/ledger"
	"github.com/z5labs/drivethru/order"
	"github.com/z5labs/drivethru/rest"
)

type listOrdersHandler struct {
	ledger ledger.Ledger
}

// ListOrders returns the full order history, oldest first.
func ListOrders(ctx context.Context, l ledger.Ledger) rest.ApiOption {
	return rest.Operation(
		http.MethodGet,
		rest.BasePath("/orders"),
		rest.ProduceJson(&listOrdersHandler{ledger: l}),
		rest.Summary("List the order history"),
	)
}

func (h *listOrdersHandler) Produce(ctx context.Context) (*[]order.HistoryEntry, error) {
	history, err := h.ledger.History(ctx)
	if err != nil {
		return nil, err
	}
	if history == nil {
		history = []order.HistoryEntry{}
	}
	return &history, nil
}

type totalsHandler struct {
	ledger ledger.Ledger
}

// Totals returns the running item totals.
func Totals(ctx context.Context, l ledger.Ledger) rest.ApiOption {
	return rest.Operation(
		http.MethodGet,
		rest.BasePath("/totals"),
		rest.ProduceJson(&totalsHandler{ledger: l}),
		rest.Summary("Read the running item totals"),
	)
}

func (h *totalsHandler) Produce(ctx context.Context) (*order.Totals, error) {
	totals, err := h.ledger.Totals(ctx)
	if err != nil {
		return nil, err
	}
	return &totals, nil
}
