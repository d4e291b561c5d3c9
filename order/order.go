// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package order defines the wire types exchanged between the ordering page
// and the order backend.
package order

import (
	"fmt"
	"strings"
)

// ItemType is a menu item.
type ItemType string

const (
	Burger ItemType = "burger"
	Fries  ItemType = "fries"
	Drink  ItemType = "drink"
)

// ItemTypes lists the menu in display order.
var ItemTypes = []ItemType{Burger, Fries, Drink}

// Valid reports whether t is on the menu.
func (t ItemType) Valid() bool {
	switch t {
	case Burger, Fries, Drink:
		return true
	default:
		return false
	}
}

// ActionType distinguishes placed orders from cancellations.
type ActionType string

const (
	ActionOrder  ActionType = "order"
	ActionCancel ActionType = "cancel"
)

// Item is a quantity of one menu item.
type Item struct {
	ItemType ItemType `json:"item_type"`
	Quantity int      `json:"quantity"`
}

func (i Item) String() string {
	return fmt.Sprintf("%d %s", i.Quantity, i.ItemType)
}

// Describe renders items as "1 burger, 2 drink".
func Describe(items []Item) string {
	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = item.String()
	}
	return strings.Join(parts, ", ")
}

// HistoryEntry is one action recorded by the backend. Entries are never
// modified after they are recorded.
type HistoryEntry struct {
	ID             int        `json:"id"`
	ActionType     ActionType `json:"action_type"`
	Items          []Item     `json:"items"`
	Timestamp      Timestamp  `json:"timestamp"`
	DisplayMessage *string    `json:"display_message"`
}

// Totals are the running item counts across every active order.
type Totals struct {
	Burger int `json:"burger"`
	Fries  int `json:"fries"`
	Drink  int `json:"drink"`
}

func (t *Totals) field(it ItemType) *int {
	switch it {
	case Burger:
		return &t.Burger
	case Fries:
		return &t.Fries
	case Drink:
		return &t.Drink
	default:
		return nil
	}
}

// Get returns the count for it.
func (t Totals) Get(it ItemType) int {
	p := t.field(it)
	if p == nil {
		return 0
	}
	return *p
}

// Add increments the count of item.ItemType by item.Quantity.
func (t *Totals) Add(item Item) {
	p := t.field(item.ItemType)
	if p == nil {
		return
	}
	*p += item.Quantity
}

// Sub decrements the count of item.ItemType, never below zero.
func (t *Totals) Sub(item Item) {
	p := t.field(item.ItemType)
	if p == nil {
		return
	}
	*p = max(*p-item.Quantity, 0)
}

// ProcessRequest is the body of POST /process-order.
type ProcessRequest struct {
	Message string `json:"message"`
}

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// ProcessResponse is the body returned by POST /process-order. Status is
// StatusError for application level failures. Detail is only set on
// non-2xx responses.
type ProcessResponse struct {
	Status         string         `json:"status,omitempty"`
	Message        string         `json:"message,omitempty"`
	DisplayMessage *string        `json:"display_message,omitempty"`
	History        []HistoryEntry `json:"history,omitempty"`
	Totals         *Totals        `json:"totals,omitempty"`
	Detail         string         `json:"detail,omitempty"`
}
