// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package page holds the state of one ordering page and drives it through
// fetches and submits.
package page

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/z5labs/drivethru"
	"github.com/z5labs/drivethru/order"
	"github.com/z5labs/drivethru/ui/service"
	"github.com/z5labs/drivethru/ui/view"

	"golang.org/x/sync/singleflight"
)

// Messages shown when talking to the backend fails. The backend's own
// detail or display message takes precedence where it sends one.
const (
	MsgFailedToFetch       = "Failed to fetch"
	MsgFailedToFetchOrders = "Failed to fetch orders"
	MsgFailedToProcess     = "Failed to process order"
	MsgBusy                = "Another order is still being processed"
)

// ErrBusy is returned by [Controller.Submit] while another submit is in
// flight.
var ErrBusy = errors.New("an order is already being submitted")

// Backend is the subset of [service.Client] the controller needs.
type Backend interface {
	FetchOrders(context.Context) (*service.Orders, error)
	SubmitOrder(context.Context, string) (*service.SubmitResult, error)
}

// State is everything the page renders.
type State struct {
	Message string             `json:"message"`
	History []view.HistoryItem `json:"history"`
	Totals  view.Totals        `json:"totals"`
	Loading bool               `json:"loading"`
	Error   string             `json:"error,omitempty"`
}

// Controller owns one page's [State]. It is safe for concurrent use.
//
// Backend snapshots are ordered by their highest history id. A response
// replaces history and totals unless a newer snapshot was applied while it
// was in flight.
type Controller struct {
	backend Backend
	log     *slog.Logger
	loads   singleflight.Group

	mu        sync.Mutex
	state     State
	seq       uint64
	appliedAt uint64
	version   int
}

// NewController returns a controller with an empty state.
func NewController(b Backend) *Controller {
	return &Controller{
		backend: b,
		log:     drivethru.Logger("github.com/z5labs/drivethru/ui/page"),
		state: State{
			History: []view.HistoryItem{},
		},
	}
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.state
	s.History = append([]view.HistoryItem(nil), c.state.History...)
	if s.History == nil {
		s.History = []view.HistoryItem{}
	}
	return s
}

// SetMessage updates the bound input value.
func (c *Controller) SetMessage(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state.Message = msg
}

func (c *Controller) begin() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.seq++
	return c.seq
}

func latestID(history []order.HistoryEntry) int {
	id := 0
	for _, e := range history {
		id = max(id, e.ID)
	}
	return id
}

// fresh reports whether a snapshot fetched by the request numbered seq may
// replace the current one. It must be called with mu held.
func (c *Controller) fresh(seq uint64, history []order.HistoryEntry) bool {
	return seq > c.appliedAt || latestID(history) >= c.version
}

// apply must be called with mu held.
func (c *Controller) apply(history []order.HistoryEntry, totals order.Totals) {
	c.state.History = view.MapHistory(history)
	c.state.Totals = view.MapTotals(totals)
	c.version = latestID(history)
	c.appliedAt = c.seq
}

// Load replaces history and totals with a fresh backend snapshot. On
// failure the error is recorded and history and totals are left as they
// were. Concurrent calls share one fetch.
func (c *Controller) Load(ctx context.Context) error {
	_, err, _ := c.loads.Do("load", func() (any, error) {
		return nil, c.load(ctx)
	})
	return err
}

func (c *Controller) load(ctx context.Context) error {
	seq := c.begin()
	orders, err := c.backend.FetchOrders(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		c.log.ErrorContext(ctx, "failed to fetch orders", slog.Any("error", err))
		c.state.Error = loadErrorMessage(err)
		return err
	}
	if !c.fresh(seq, orders.History) {
		c.log.DebugContext(ctx, "discarding older orders snapshot", slog.Uint64("seq", seq))
		return nil
	}

	c.apply(orders.History, orders.Totals)
	c.state.Error = ""
	return nil
}

func loadErrorMessage(err error) string {
	var terr service.TransportError
	if errors.As(err, &terr) {
		return MsgFailedToFetch
	}
	return MsgFailedToFetchOrders
}

// Submit sends message to the backend. A blank message does nothing.
// Failures are recorded in the state's Error rather than returned; the
// only error is [ErrBusy].
func (c *Controller) Submit(ctx context.Context, message string) error {
	if strings.TrimSpace(message) == "" {
		return nil
	}

	c.mu.Lock()
	if c.state.Loading {
		c.mu.Unlock()
		return ErrBusy
	}
	c.state.Message = message
	c.state.Error = ""
	c.state.Loading = true
	c.seq++
	seq := c.seq
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.state.Loading = false
	}()

	res, err := c.backend.SubmitOrder(ctx, message)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		c.log.ErrorContext(ctx, "failed to submit order", slog.Any("error", err))
		c.state.Error = submitErrorMessage(err)
		return nil
	}
	if !res.OK() {
		c.log.WarnContext(ctx, "backend rejected order", slog.Int("status_code", res.StatusCode))
		c.state.Error = firstNonEmpty(res.Body.Detail, MsgFailedToProcess)
		return nil
	}
	if res.Body.Status == order.StatusError {
		c.state.Error = firstNonEmpty(deref(res.Body.DisplayMessage), res.Body.Message, MsgFailedToProcess)
		return nil
	}

	// the order was accepted even if a newer snapshot already shows it
	c.state.Message = ""
	if !c.fresh(seq, res.Body.History) {
		c.log.DebugContext(ctx, "keeping newer orders snapshot", slog.Uint64("seq", seq))
		return nil
	}

	var totals order.Totals
	if res.Body.Totals != nil {
		totals = *res.Body.Totals
	}
	c.apply(res.Body.History, totals)
	return nil
}

func submitErrorMessage(err error) string {
	var terr service.TransportError
	if errors.As(err, &terr) {
		return MsgFailedToFetch
	}
	return MsgFailedToProcess
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func firstNonEmpty(ss ...string) string {
	for _, s := range ss {
		if s != "" {
			return s
		}
	}
	return ""
}
