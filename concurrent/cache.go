// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package concurrent provides goroutine safe containers.
package concurrent

import (
	"sync"
	"time"
)

type cacheEntry[V any] struct {
	value    V
	lastSeen time.Time
}

// Cache is a map safe for concurrent use whose entries expire after
// going unread for longer than the idle timeout. Expired entries are
// dropped lazily on access and swept at most once per idle period.
type Cache[K comparable, V any] struct {
	idle time.Duration
	now  func() time.Time

	mu        sync.Mutex
	data      map[K]*cacheEntry[V]
	lastSweep time.Time
}

// CacheOption configures a [Cache].
type CacheOption func(*cacheOptions)

type cacheOptions struct {
	now func() time.Time
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) CacheOption {
	return func(co *cacheOptions) {
		co.now = now
	}
}

// NewCache returns an empty cache. A non-positive idle timeout disables
// expiry.
func NewCache[K comparable, V any](idle time.Duration, opts ...CacheOption) *Cache[K, V] {
	co := &cacheOptions{
		now: time.Now,
	}
	for _, opt := range opts {
		opt(co)
	}

	return &Cache[K, V]{
		idle:      idle,
		now:       co.now,
		data:      make(map[K]*cacheEntry[V]),
		lastSweep: co.now(),
	}
}

// Get returns the value for k and marks it as used.
func (c *Cache[K, V]) Get(k K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.get(k, c.now())
}

// GetOr returns the value for k, or stores and returns the result of f
// if there is none. f runs with the cache locked and its error is not
// cached.
func (c *Cache[K, V]) GetOr(k K, f func() (V, error)) (V, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.maybeSweep(now)

	v, ok := c.get(k, now)
	if ok {
		return v, nil
	}

	v, err := f()
	if err != nil {
		return v, err
	}

	c.data[k] = &cacheEntry[V]{value: v, lastSeen: now}
	return v, nil
}

// Delete removes k.
func (c *Cache[K, V]) Delete(k K) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.data, k)
}

// Len counts entries, including expired ones not yet swept.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.data)
}

func (c *Cache[K, V]) get(k K, now time.Time) (V, bool) {
	e, ok := c.data[k]
	if !ok {
		var zero V
		return zero, false
	}
	if c.expired(e, now) {
		delete(c.data, k)
		var zero V
		return zero, false
	}
	e.lastSeen = now
	return e.value, true
}

func (c *Cache[K, V]) expired(e *cacheEntry[V], now time.Time) bool {
	return c.idle > 0 && now.Sub(e.lastSeen) > c.idle
}

func (c *Cache[K, V]) maybeSweep(now time.Time) {
	if c.idle <= 0 || now.Sub(c.lastSweep) < c.idle {
		return
	}
	c.lastSweep = now

	for k, e := range c.data {
		if c.expired(e, now) {
			delete(c.data, k)
		}
	}
}
