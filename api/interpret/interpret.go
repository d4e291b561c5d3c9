// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package interpret turns a natural language request into a ledger command.
package interpret

import (
	"context"
	"errors"

	"github.com/z5labs/drivethru/api/ledger"
)

var (
	ErrNotConfigured      = errors.New("openai api key not configured")
	ErrNotUnderstood      = errors.New("could not understand the order")
	ErrMalformedArguments = errors.New("malformed function arguments")
	ErrUnknownAction      = errors.New("unknown function")
	ErrNoItems            = errors.New("no items specified")
	ErrUnavailable        = errors.New("order interpretation is temporarily unavailable")
)

// NoItemsError is returned when a function call carries no items array.
type NoItemsError struct {
	Cancel bool
}

func (e NoItemsError) Error() string {
	if e.Cancel {
		return "no items specified for cancellation"
	}
	return "no items specified in the order"
}

// Is matches [ErrNoItems].
func (e NoItemsError) Is(target error) bool {
	return target == ErrNoItems
}

// Interpreter maps a customer's message to a [ledger.Command].
type Interpreter interface {
	Interpret(ctx context.Context, message string) (ledger.Command, error)
}

// InterpreterFunc is a function implementing [Interpreter].
type InterpreterFunc func(context.Context, string) (ledger.Command, error)

// Interpret implements [Interpreter].
func (f InterpreterFunc) Interpret(ctx context.Context, message string) (ledger.Command, error) {
	return f(ctx, message)
}

// interpretationError reports whether err is a verdict on the message
// itself rather than a failure to reach the model.
func interpretationError(err error) bool {
	return errors.Is(err, ErrNotConfigured) ||
		errors.Is(err, ErrNotUnderstood) ||
		errors.Is(err, ErrMalformedArguments) ||
		errors.Is(err, ErrUnknownAction) ||
		errors.Is(err, ErrNoItems) ||
		errors.Is(err, context.Canceled)
}
