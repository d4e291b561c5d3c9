// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package events announces recorded history entries to other systems.
package events

import (
	"context"

	"github.com/z5labs/drivethru/order"
)

// Publisher announces a recorded entry. Implementations must not block the
// caller on delivery and must not fail the request that produced the entry.
type Publisher interface {
	Publish(context.Context, order.HistoryEntry)
}

// PublisherFunc is a function implementing [Publisher].
type PublisherFunc func(context.Context, order.HistoryEntry)

// Publish implements [Publisher].
func (f PublisherFunc) Publish(ctx context.Context, e order.HistoryEntry) {
	f(ctx, e)
}

// Discard drops every entry.
var Discard Publisher = PublisherFunc(func(context.Context, order.HistoryEntry) {})
