// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package view maps backend records into the shapes the ordering page renders.
package view

import (
	"time"

	"github.com/z5labs/drivethru/order"
)

// Item is one line of an order.
type Item struct {
	ItemType string `json:"itemType"`
	Quantity int    `json:"quantity"`
}

// HistoryItem is one entry of the order history panel.
type HistoryItem struct {
	ID             int       `json:"id"`
	ActionType     string    `json:"actionType"`
	Items          []Item    `json:"items"`
	Timestamp      time.Time `json:"timestamp"`
	DisplayMessage *string   `json:"displayMessage,omitempty"`
}

// IsCancel reports whether the entry is a cancellation.
func (h HistoryItem) IsCancel() bool {
	return h.ActionType == string(order.ActionCancel)
}

// ItemsText renders the items as "1 burger, 1 fries".
func (h HistoryItem) ItemsText() string {
	items := make([]order.Item, len(h.Items))
	for i, item := range h.Items {
		items[i] = order.Item{ItemType: order.ItemType(item.ItemType), Quantity: item.Quantity}
	}
	return order.Describe(items)
}

// Text is what the history panel shows for the entry: the display
// message of a cancellation when there is one, its items otherwise.
func (h HistoryItem) Text() string {
	if h.IsCancel() && h.DisplayMessage != nil {
		return *h.DisplayMessage
	}
	return h.ItemsText()
}

// Totals is the running totals panel.
type Totals struct {
	Burger int `json:"burger"`
	Fries  int `json:"fries"`
	Drink  int `json:"drink"`
}

// MapHistoryItem is the one mapping from a backend record to a page
// record. It never fails and does not retain e's slices or pointers.
func MapHistoryItem(e order.HistoryEntry) HistoryItem {
	items := make([]Item, len(e.Items))
	for i, item := range e.Items {
		items[i] = Item{
			ItemType: string(item.ItemType),
			Quantity: item.Quantity,
		}
	}

	h := HistoryItem{
		ID:         e.ID,
		ActionType: string(e.ActionType),
		Items:      items,
		Timestamp:  e.Timestamp.Time,
	}
	if e.DisplayMessage != nil {
		msg := *e.DisplayMessage
		h.DisplayMessage = &msg
	}
	return h
}

// MapHistory maps every entry, keeping the backend's order.
func MapHistory(es []order.HistoryEntry) []HistoryItem {
	hs := make([]HistoryItem, len(es))
	for i, e := range es {
		hs[i] = MapHistoryItem(e)
	}
	return hs
}

// MapTotals copies the backend totals.
func MapTotals(t order.Totals) Totals {
	return Totals{
		Burger: t.Burger,
		Fries:  t.Fries,
		Drink:  t.Drink,
	}
}
