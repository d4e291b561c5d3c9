// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package rest

import (
	"context"
	"fmt"
	"net/http"
)

// ErrorHandler writes the response for an error returned while serving
// an operation.
type ErrorHandler interface {
	OnError(context.Context, http.ResponseWriter, error)
}

// ErrorHandlerFunc is a function implementing [ErrorHandler].
type ErrorHandlerFunc func(context.Context, http.ResponseWriter, error)

// OnError implements [ErrorHandler].
func (f ErrorHandlerFunc) OnError(ctx context.Context, w http.ResponseWriter, err error) {
	f(ctx, w, err)
}

// BadRequestError marks a client error.
type BadRequestError struct {
	Cause error
}

func (e BadRequestError) Error() string {
	return fmt.Sprintf("bad request error: %v", e.Cause)
}

func (e BadRequestError) Unwrap() error {
	return e.Cause
}

// InvalidContentTypeError is the Cause of a [BadRequestError] when the
// request body is not in the expected media type.
type InvalidContentTypeError struct {
	ContentType string
}

func (e InvalidContentTypeError) Error() string {
	return fmt.Sprintf("invalid content type: %q", e.ContentType)
}
