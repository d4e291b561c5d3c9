// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package health reports whether a service and its dependencies can take traffic.
package health

import (
	"context"
	"sync/atomic"
)

// Monitor reports the health of one concern.
type Monitor interface {
	Healthy(context.Context) (bool, error)
}

// MonitorFunc is a function implementing [Monitor].
type MonitorFunc func(context.Context) (bool, error)

// Healthy implements [Monitor].
func (f MonitorFunc) Healthy(ctx context.Context) (bool, error) {
	return f(ctx)
}

// Binary is a manually toggled Monitor. The zero value is unhealthy.
type Binary struct {
	healthy atomic.Bool
}

// MarkUnhealthy flips the monitor to unhealthy.
func (b *Binary) MarkUnhealthy() {
	b.healthy.Store(false)
}

// MarkHealthy flips the monitor to healthy.
func (b *Binary) MarkHealthy() {
	b.healthy.Store(true)
}

// Healthy implements [Monitor].
func (b *Binary) Healthy(ctx context.Context) (bool, error) {
	return b.healthy.Load(), nil
}

// Pinger is satisfied by connection pools such as *pgxpool.Pool.
type Pinger interface {
	Ping(context.Context) error
}

// Ping reports healthy while p answers pings.
func Ping(p Pinger) Monitor {
	return MonitorFunc(func(ctx context.Context) (bool, error) {
		err := p.Ping(ctx)
		return err == nil, err
	})
}

// AndMonitor is healthy only if every member is.
type AndMonitor []Monitor

// And combines ms. The first unhealthy member short circuits.
func And(ms ...Monitor) AndMonitor {
	return AndMonitor(ms)
}

// Healthy implements [Monitor].
func (am AndMonitor) Healthy(ctx context.Context) (bool, error) {
	for _, m := range am {
		healthy, err := m.Healthy(ctx)
		if !healthy || err != nil {
			return false, err
		}
	}
	return true, nil
}
