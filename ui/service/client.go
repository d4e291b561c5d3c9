// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package service is the ordering page's client for the order backend.
package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/z5labs/drivethru/order"

	"github.com/sourcegraph/conc/pool"
)

// TransportError is returned when a request never produced a response.
type TransportError struct {
	Cause error
}

func (e TransportError) Error() string {
	return fmt.Sprintf("failed to execute request: %v", e.Cause)
}

func (e TransportError) Unwrap() error {
	return e.Cause
}

// StatusError is returned by [Client.FetchOrders] for non-2xx responses.
type StatusError struct {
	Path       string
	StatusCode int
}

func (e StatusError) Error() string {
	return fmt.Sprintf("unexpected status code from %s: %d", e.Path, e.StatusCode)
}

// ErrMalformedResponse is returned when a successful response body is not
// the expected JSON.
var ErrMalformedResponse = errors.New("malformed response body")

// Client talks to the order backend. Every call is a single attempt.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the backend at baseURL.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
	}
}

// Orders is a consistent snapshot of the backend's history and totals.
type Orders struct {
	History []order.HistoryEntry
	Totals  order.Totals
}

// FetchOrders reads /orders and /totals concurrently. Either one failing
// fails the whole call and no data is returned.
func (c *Client) FetchOrders(ctx context.Context) (*Orders, error) {
	var orders Orders

	p := pool.New().WithContext(ctx).WithCancelOnError().WithFirstError()
	p.Go(func(ctx context.Context) error {
		return c.get(ctx, "/orders", &orders.History)
	})
	p.Go(func(ctx context.Context) error {
		return c.get(ctx, "/totals", &orders.Totals)
	})
	err := p.Wait()
	if err != nil {
		return nil, err
	}

	if orders.History == nil {
		orders.History = []order.HistoryEntry{}
	}
	return &orders, nil
}

func (c *Client) get(ctx context.Context, path string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return TransportError{Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return StatusError{Path: path, StatusCode: resp.StatusCode}
	}

	err = json.NewDecoder(resp.Body).Decode(v)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrMalformedResponse, path, err)
	}
	return nil
}

// SubmitResult is the backend's answer to a submitted order, whatever its
// HTTP status.
type SubmitResult struct {
	StatusCode int
	Body       order.ProcessResponse
}

// OK reports a 2xx status.
func (r *SubmitResult) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode <= 299
}

// SubmitOrder posts message to /process-order. The parsed body is
// returned for any status so callers can read application level errors.
// A non-2xx body which is not JSON yields an empty Body.
func (c *Client) SubmitOrder(ctx context.Context, message string) (*SubmitResult, error) {
	var body bytes.Buffer
	err := json.NewEncoder(&body).Encode(order.ProcessRequest{Message: message})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/process-order", &body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, TransportError{Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, TransportError{Cause: err}
	}

	result := &SubmitResult{StatusCode: resp.StatusCode}
	err = json.Unmarshal(b, &result.Body)
	if err != nil && result.OK() {
		return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	if err != nil {
		result.Body = order.ProcessResponse{}
	}
	return result, nil
}
