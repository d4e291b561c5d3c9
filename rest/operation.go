// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package rest

import (
	"context"
	"net/http"
	"strconv"

	"github.com/swaggest/openapi-go/openapi3"
	"github.com/z5labs/sdk-go/try"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// Handler handles a decoded request.
type Handler[Req, Resp any] interface {
	Handle(context.Context, *Req) (*Resp, error)
}

// HandlerFunc is a function implementing [Handler].
type HandlerFunc[Req, Resp any] func(context.Context, *Req) (*Resp, error)

// Handle implements [Handler].
func (f HandlerFunc[Req, Resp]) Handle(ctx context.Context, req *Req) (*Resp, error) {
	return f(ctx, req)
}

// TypedRequest is a request body which can decode itself and describe its
// OpenAPI schema.
type TypedRequest[T any] interface {
	*T

	ReadRequest(context.Context, *http.Request) error
	Spec() (openapi3.RequestBodyOrRef, error)
}

// TypedResponse is a response body which can encode itself and describe
// its OpenAPI schema.
type TypedResponse[T any] interface {
	*T

	WriteResponse(context.Context, http.ResponseWriter) error
	Spec() (int, openapi3.ResponseOrRef, error)
}

// OperationOptions are the per operation settings.
type OperationOptions struct {
	errHandler ErrorHandler
	summary    string
}

// OperationOption configures an operation.
type OperationOption func(*OperationOptions)

// OnError overrides how errors returned by the handler are written.
func OnError(eh ErrorHandler) OperationOption {
	return func(oo *OperationOptions) {
		oo.errHandler = eh
	}
}

// Summary sets the OpenAPI summary of the operation.
func Summary(s string) OperationOption {
	return func(oo *OperationOptions) {
		oo.summary = s
	}
}

type operation[I, O any, Req TypedRequest[I], Resp TypedResponse[O]] struct {
	tracer     trace.Tracer
	errHandler ErrorHandler
	handler    Handler[I, O]
}

// Operation registers h under method and path. It panics if the request or
// response schema cannot be reflected, since that is a programming error.
func Operation[I, O any, Req TypedRequest[I], Resp TypedResponse[O]](method string, path Path, h Handler[I, O], opts ...OperationOption) ApiOption {
	return apiOptionFunc(func(ao *ApiOptions) {
		oo := &OperationOptions{
			errHandler: ao.errHandler,
		}
		for _, opt := range opts {
			opt(oo)
		}

		var req Req
		reqSpec, err := req.Spec()
		if err != nil {
			panic(err)
		}

		var resp Resp
		status, respSpec, err := resp.Spec()
		if err != nil {
			panic(err)
		}

		op := openapi3.Operation{
			Responses: openapi3.Responses{
				MapOfResponseOrRefValues: map[string]openapi3.ResponseOrRef{
					strconv.Itoa(status): respSpec,
				},
			},
		}
		if reqSpec.RequestBody != nil {
			op.RequestBody = &reqSpec
		}
		if oo.summary != "" {
			op.Summary = &oo.summary
		}

		endpoint := path.String()
		err = ao.def.AddOperation(method, endpoint, op)
		if err != nil {
			panic(err)
		}

		ao.mux.Method(method, endpoint, otelhttp.WithRouteTag(endpoint, &operation[I, O, Req, Resp]{
			tracer:     otel.Tracer("github.com/z5labs/drivethru/rest"),
			errHandler: oo.errHandler,
			handler:    h,
		}))
	})
}

func (o *operation[I, O, Req, Resp]) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var err error
	defer func() {
		if err == nil {
			return
		}
		o.errHandler.OnError(ctx, w, err)
	}()
	defer try.Recover(&err)

	req, err := o.readRequest(ctx, r)
	if err != nil {
		return
	}

	resp, err := o.handler.Handle(ctx, req)
	if err != nil {
		return
	}

	err = o.writeResponse(ctx, w, resp)
}

func (o *operation[I, O, Req, Resp]) readRequest(ctx context.Context, r *http.Request) (*I, error) {
	spanCtx, span := o.tracer.Start(ctx, "operation.readRequest")
	defer span.End()

	var req I
	err := Req(&req).ReadRequest(spanCtx, r)
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (o *operation[I, O, Req, Resp]) writeResponse(ctx context.Context, w http.ResponseWriter, resp *O) error {
	spanCtx, span := o.tracer.Start(ctx, "operation.writeResponse")
	defer span.End()

	return Resp(resp).WriteResponse(spanCtx, w)
}
