// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package interpret

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/z5labs/drivethru"
	"github.com/z5labs/drivethru/api/ledger"

	"github.com/sony/gobreaker/v2"
)

// Breaker guards an [Interpreter] with a circuit breaker. Only failures to
// reach the model count against it; a message the model could not make
// sense of does not.
type Breaker struct {
	next Interpreter
	cb   *gobreaker.CircuitBreaker[ledger.Command]
}

// BreakerOption configures a [Breaker].
type BreakerOption func(*gobreaker.Settings)

// TripAfter opens the breaker after n consecutive failures.
func TripAfter(n uint32) BreakerOption {
	return func(s *gobreaker.Settings) {
		s.ReadyToTrip = func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= n
		}
	}
}

// OpenFor sets how long the breaker stays open before probing again.
func OpenFor(d time.Duration) BreakerOption {
	return func(s *gobreaker.Settings) {
		s.Timeout = d
	}
}

// NewBreaker wraps next.
func NewBreaker(next Interpreter, opts ...BreakerOption) *Breaker {
	log := drivethru.Logger("github.com/z5labs/drivethru/api/interpret")

	s := gobreaker.Settings{
		Name:    "openai",
		Timeout: 30 * time.Second,
		IsSuccessful: func(err error) bool {
			return err == nil || interpretationError(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn(
				"circuit breaker changed state",
				slog.String("name", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		},
	}
	TripAfter(5)(&s)
	for _, opt := range opts {
		opt(&s)
	}

	return &Breaker{
		next: next,
		cb:   gobreaker.NewCircuitBreaker[ledger.Command](s),
	}
}

// Interpret implements [Interpreter]. While the breaker is open it fails
// fast with [ErrUnavailable].
func (b *Breaker) Interpret(ctx context.Context, message string) (ledger.Command, error) {
	cmd, err := b.cb.Execute(func() (ledger.Command, error) {
		return b.next.Interpret(ctx, message)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return cmd, err
}

// Healthy reports unhealthy while the breaker is open.
func (b *Breaker) Healthy(ctx context.Context) (bool, error) {
	return b.cb.State() != gobreaker.StateOpen, nil
}
