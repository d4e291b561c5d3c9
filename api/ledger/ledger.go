// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package ledger records placed and cancelled orders and keeps the running
// item totals.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/z5labs/drivethru/order"
)

// ErrInvalidItem is returned for an item with an unknown type or a
// quantity below one.
var ErrInvalidItem = errors.New("invalid item")

// InvalidItemError names the item that failed validation. It matches
// [ErrInvalidItem] with [errors.Is].
type InvalidItemError struct {
	Reason string
}

func (e InvalidItemError) Error() string {
	return e.Reason
}

func (e InvalidItemError) Is(target error) bool {
	return target == ErrInvalidItem
}

// Command is an action a [Ledger] can apply.
type Command interface {
	command()
}

// PlaceOrder records a new order.
type PlaceOrder struct {
	Items []order.Item
}

// CancelItems takes items off the totals without referring to an order.
type CancelItems struct {
	Items []order.Item
}

// CancelOrder cancels every item of one active order.
type CancelOrder struct {
	OrderNumber int
}

// CancelAll cancels every active order.
type CancelAll struct{}

func (PlaceOrder) command()  {}
func (CancelItems) command() {}
func (CancelOrder) command() {}
func (CancelAll) command()   {}

// Result is the outcome of applying a [Command]. Application level
// failures have Status [order.StatusError] and leave the ledger unchanged.
type Result struct {
	Status         string
	Message        string
	DisplayMessage *string
	History        []order.HistoryEntry
	Totals         order.Totals

	// Entry is the recorded entry, nil if nothing was recorded.
	Entry *order.HistoryEntry
}

// Response is the body returned to clients.
func (r *Result) Response() order.ProcessResponse {
	totals := r.Totals
	return order.ProcessResponse{
		Status:         r.Status,
		Message:        r.Message,
		DisplayMessage: r.DisplayMessage,
		History:        r.History,
		Totals:         &totals,
	}
}

// Ledger stores the order history.
type Ledger interface {
	Apply(context.Context, Command) (*Result, error)
	History(context.Context) ([]order.HistoryEntry, error)
	Totals(context.Context) (order.Totals, error)
}

// Entry is a history entry plus what it cancelled.
type Entry struct {
	order.HistoryEntry

	// CancelsOrder is the id of the order a cancel entry cancelled, or 0.
	CancelsOrder int

	// CancelsAll marks the entry of a cancel all.
	CancelsAll bool
}

// State is the history of a ledger and the totals it implies. Totals are
// always the result of replaying Entries in order.
type State struct {
	Entries []Entry
	Totals  order.Totals
}

// Replay rebuilds the state from stored entries.
func Replay(entries []Entry) *State {
	s := &State{}
	for _, e := range entries {
		s.record(e)
	}
	return s
}

func (s *State) record(e Entry) {
	s.Entries = append(s.Entries, e)

	switch {
	case e.ActionType == order.ActionOrder:
		for _, item := range e.Items {
			s.Totals.Add(item)
		}
	case e.CancelsAll:
		s.Totals = order.Totals{}
	default:
		for _, item := range e.Items {
			s.Totals.Sub(item)
		}
	}
}

func (s *State) nextID() int {
	if len(s.Entries) == 0 {
		return 1
	}
	return s.Entries[len(s.Entries)-1].ID + 1
}

// History copies the public part of every entry.
func (s *State) History() []order.HistoryEntry {
	h := make([]order.HistoryEntry, len(s.Entries))
	for i, e := range s.Entries {
		h[i] = e.HistoryEntry
	}
	return h
}

// active returns the orders not cancelled by id or by a later cancel all.
func (s *State) active() []Entry {
	cancelled := make(map[int]bool)
	var orders []Entry
	for _, e := range s.Entries {
		switch {
		case e.ActionType == order.ActionOrder:
			orders = append(orders, e)
		case e.CancelsAll:
			orders = orders[:0]
		case e.CancelsOrder != 0:
			cancelled[e.CancelsOrder] = true
		}
	}

	var active []Entry
	for _, o := range orders {
		if !cancelled[o.ID] {
			active = append(active, o)
		}
	}
	return active
}

// Apply applies cmd as of now. The returned entry, if any, has already
// been recorded in s.
func (s *State) Apply(cmd Command, now time.Time) (*Result, error) {
	switch cmd := cmd.(type) {
	case PlaceOrder:
		return s.placeOrder(cmd, now)
	case CancelItems:
		return s.cancelItems(cmd, now)
	case CancelOrder:
		return s.cancelOrder(cmd, now)
	case CancelAll:
		return s.cancelAll(now)
	default:
		return nil, fmt.Errorf("unknown command: %T", cmd)
	}
}

func validate(items []order.Item) error {
	for _, item := range items {
		if !item.ItemType.Valid() {
			return InvalidItemError{Reason: fmt.Sprintf("Invalid item type: %s", item.ItemType)}
		}
		if item.Quantity < 1 {
			return InvalidItemError{Reason: fmt.Sprintf("Invalid quantity: %d", item.Quantity)}
		}
	}
	return nil
}

func (s *State) success(message string, e Entry) *Result {
	s.record(e)
	entry := e.HistoryEntry
	return &Result{
		Status:         order.StatusSuccess,
		Message:        message,
		DisplayMessage: e.DisplayMessage,
		History:        s.History(),
		Totals:         s.Totals,
		Entry:          &entry,
	}
}

func (s *State) failure(message, display string) *Result {
	return &Result{
		Status:         order.StatusError,
		Message:        message,
		DisplayMessage: &display,
		History:        s.History(),
		Totals:         s.Totals,
	}
}

func (s *State) entry(action order.ActionType, items []order.Item, now time.Time, display string) Entry {
	e := Entry{
		HistoryEntry: order.HistoryEntry{
			ID:         s.nextID(),
			ActionType: action,
			Items:      append([]order.Item{}, items...),
			Timestamp:  order.Timestamp{Time: now},
		},
	}
	if display != "" {
		e.DisplayMessage = &display
	}
	return e
}

func (s *State) placeOrder(cmd PlaceOrder, now time.Time) (*Result, error) {
	err := validate(cmd.Items)
	if err != nil {
		return nil, err
	}

	return s.success("Order placed successfully", s.entry(order.ActionOrder, cmd.Items, now, "")), nil
}

func (s *State) cancelItems(cmd CancelItems, now time.Time) (*Result, error) {
	if len(cmd.Items) == 0 {
		return s.failure(
			"No items specified for cancellation",
			"Error: No items specified for cancellation",
		), nil
	}

	err := validate(cmd.Items)
	if err != nil {
		return nil, err
	}

	display := "Cancelled: " + order.Describe(cmd.Items)
	return s.success("Items cancelled successfully", s.entry(order.ActionCancel, cmd.Items, now, display)), nil
}

func (s *State) cancelOrder(cmd CancelOrder, now time.Time) (*Result, error) {
	var target *Entry
	for _, o := range s.active() {
		if o.ID == cmd.OrderNumber {
			target = &o
			break
		}
	}
	if target == nil {
		return s.failure(
			fmt.Sprintf("Order #%d not found or already cancelled", cmd.OrderNumber),
			fmt.Sprintf("Error: Order #%d does not exist", cmd.OrderNumber),
		), nil
	}

	display := fmt.Sprintf("Cancelled order #%d: %s", target.ID, order.Describe(target.Items))
	e := s.entry(order.ActionCancel, target.Items, now, display)
	e.CancelsOrder = target.ID
	return s.success("Items cancelled successfully", e), nil
}

func (s *State) cancelAll(now time.Time) (*Result, error) {
	active := s.active()
	if len(active) == 0 {
		return s.failure("No active orders to cancel", "No active orders to cancel"), nil
	}

	noun := "orders"
	if len(active) == 1 {
		noun = "order"
	}

	e := s.entry(order.ActionCancel, nil, now, fmt.Sprintf("Cancelled all orders (%d %s)", len(active), noun))
	e.CancelsAll = true
	return s.success("All orders cancelled successfully", e), nil
}
