// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package rest

import (
	"context"
	"net/http"

	"github.com/swaggest/openapi-go/openapi3"
)

// Producer returns a value without consuming a request body.
type Producer[T any] interface {
	Produce(context.Context) (*T, error)
}

// ProducerFunc is a function implementing [Producer].
type ProducerFunc[T any] func(context.Context) (*T, error)

// Produce implements [Producer].
func (f ProducerFunc[T]) Produce(ctx context.Context) (*T, error) {
	return f(ctx)
}

// ProducerHandler adapts a [Producer] to a [Handler] of [EmptyRequest].
type ProducerHandler[T any] struct {
	p Producer[T]
}

// ConsumeNothing adapts p to a [Handler].
func ConsumeNothing[T any](p Producer[T]) *ProducerHandler[T] {
	return &ProducerHandler[T]{
		p: p,
	}
}

// Handle implements [Handler].
func (h *ProducerHandler[T]) Handle(ctx context.Context, req *EmptyRequest) (*T, error) {
	return h.p.Produce(ctx)
}

// EmptyRequest is a [TypedRequest] which ignores the request body.
type EmptyRequest struct{}

// ReadRequest implements [TypedRequest].
func (*EmptyRequest) ReadRequest(ctx context.Context, r *http.Request) error {
	return nil
}

// Spec implements [TypedRequest].
func (*EmptyRequest) Spec() (openapi3.RequestBodyOrRef, error) {
	return openapi3.RequestBodyOrRef{}, nil
}
