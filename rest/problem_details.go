// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package rest

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/z5labs/drivethru"
)

// ProblemDetail is an RFC 7807 error body. It can be returned directly
// from a [Handler] or embedded in a larger error type.
type ProblemDetail struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
}

func (p ProblemDetail) Error() string {
	if p.Detail != "" {
		return p.Detail
	}
	return p.Title
}

type problemDetailMarker interface {
	error
	statusCode() int
}

func (p ProblemDetail) statusCode() int {
	return p.Status
}

// ProblemDetailsErrorHandler writes errors as application/problem+json.
type ProblemDetailsErrorHandler struct {
	log            *slog.Logger
	includeDetails bool
}

// ProblemDetailsOption configures a [ProblemDetailsErrorHandler].
type ProblemDetailsOption func(*ProblemDetailsErrorHandler)

// IncludeDetails exposes the message of unexpected errors in the detail
// field. Off by default.
func IncludeDetails(b bool) ProblemDetailsOption {
	return func(h *ProblemDetailsErrorHandler) {
		h.includeDetails = b
	}
}

// NewProblemDetailsErrorHandler returns the default [ErrorHandler].
func NewProblemDetailsErrorHandler(opts ...ProblemDetailsOption) *ProblemDetailsErrorHandler {
	h := &ProblemDetailsErrorHandler{
		log: drivethru.Logger("github.com/z5labs/drivethru/rest"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// OnError implements [ErrorHandler].
func (h *ProblemDetailsErrorHandler) OnError(ctx context.Context, w http.ResponseWriter, err error) {
	var body any
	var status int

	var pd problemDetailMarker
	var badRequest BadRequestError
	switch {
	case errors.As(err, &pd):
		body = pd
		status = pd.statusCode()
	case errors.As(err, &badRequest):
		p := ProblemDetail{
			Type:   "about:blank",
			Title:  "Bad Request",
			Status: http.StatusBadRequest,
			Detail: badRequest.Cause.Error(),
		}
		var ict InvalidContentTypeError
		if errors.As(badRequest.Cause, &ict) {
			p.Title = "Invalid Content Type"
		}
		body = p
		status = p.Status
	default:
		p := ProblemDetail{
			Type:   "about:blank",
			Title:  "Internal Server Error",
			Status: http.StatusInternalServerError,
		}
		if h.includeDetails {
			p.Detail = err.Error()
		}
		body = p
		status = p.Status
	}

	if status >= http.StatusInternalServerError {
		h.log.ErrorContext(ctx, "sending error response", slog.Any("error", err))
	} else {
		h.log.WarnContext(ctx, "sending error response", slog.Any("error", err))
	}

	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	encErr := json.NewEncoder(w).Encode(body)
	if encErr != nil {
		h.log.ErrorContext(ctx, "failed to encode problem details", slog.Any("error", encErr))
	}
}
