// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package rest

import (
	"context"
	"encoding/json"
	"mime"
	"net/http"

	"github.com/swaggest/jsonschema-go"
	"github.com/swaggest/openapi-go/openapi3"
	"github.com/z5labs/sdk-go/ptr"
	"github.com/z5labs/sdk-go/try"
)

func jsonSchemaOf[T any]() (*openapi3.SchemaOrRef, error) {
	var t T
	var reflector jsonschema.Reflector

	js, err := reflector.Reflect(t, jsonschema.InlineRefs)
	if err != nil {
		return nil, err
	}

	var schemaOrRef openapi3.SchemaOrRef
	schemaOrRef.FromJSONSchema(js.ToSchemaOrBool())
	return &schemaOrRef, nil
}

// ReturnJsonHandler encodes the response of its inner handler as JSON.
type ReturnJsonHandler[Req, Resp any] struct {
	inner Handler[Req, Resp]
}

// ReturnJson wraps h so its response is written as application/json.
func ReturnJson[Req, Resp any](h Handler[Req, Resp]) *ReturnJsonHandler[Req, Resp] {
	return &ReturnJsonHandler[Req, Resp]{
		inner: h,
	}
}

// JsonResponse is a [TypedResponse] written as application/json.
type JsonResponse[T any] struct {
	inner *T
}

// Spec implements [TypedResponse].
func (*JsonResponse[T]) Spec() (int, openapi3.ResponseOrRef, error) {
	schema, err := jsonSchemaOf[T]()
	if err != nil {
		return 0, openapi3.ResponseOrRef{}, err
	}

	return http.StatusOK, openapi3.ResponseOrRef{
		Response: &openapi3.Response{
			Content: map[string]openapi3.MediaType{
				"application/json": {
					Schema: schema,
				},
			},
		},
	}, nil
}

// WriteResponse implements [TypedResponse].
func (jr *JsonResponse[T]) WriteResponse(ctx context.Context, w http.ResponseWriter) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	return json.NewEncoder(w).Encode(jr.inner)
}

// Handle implements [Handler].
func (h *ReturnJsonHandler[Req, Resp]) Handle(ctx context.Context, req *Req) (*JsonResponse[Resp], error) {
	resp, err := h.inner.Handle(ctx, req)
	if err != nil {
		return nil, err
	}
	return &JsonResponse[Resp]{
		inner: resp,
	}, nil
}

// ConsumeJsonHandler decodes a JSON body before calling its inner handler.
type ConsumeJsonHandler[Req, Resp any] struct {
	inner Handler[Req, Resp]
}

// ConsumeJson wraps h so its request is read from an application/json body.
func ConsumeJson[Req, Resp any](h Handler[Req, Resp]) *ConsumeJsonHandler[Req, Resp] {
	return &ConsumeJsonHandler[Req, Resp]{
		inner: h,
	}
}

// JsonRequest is a [TypedRequest] read from an application/json body.
type JsonRequest[T any] struct {
	inner T
}

// Spec implements [TypedRequest].
func (*JsonRequest[T]) Spec() (openapi3.RequestBodyOrRef, error) {
	schema, err := jsonSchemaOf[T]()
	if err != nil {
		return openapi3.RequestBodyOrRef{}, err
	}

	return openapi3.RequestBodyOrRef{
		RequestBody: &openapi3.RequestBody{
			Required: ptr.Ref(true),
			Content: map[string]openapi3.MediaType{
				"application/json": {
					Schema: schema,
				},
			},
		},
	}, nil
}

// ReadRequest implements [TypedRequest]. Media type parameters such as
// charset are accepted.
func (jr *JsonRequest[T]) ReadRequest(ctx context.Context, r *http.Request) (err error) {
	defer try.Close(&err, r.Body)

	contentType := r.Header.Get("Content-Type")
	mediaType, _, perr := mime.ParseMediaType(contentType)
	if perr != nil || mediaType != "application/json" {
		return BadRequestError{
			Cause: InvalidContentTypeError{
				ContentType: contentType,
			},
		}
	}

	err = json.NewDecoder(r.Body).Decode(&jr.inner)
	if err != nil {
		return BadRequestError{Cause: err}
	}
	return nil
}

// Handle implements [Handler].
func (h *ConsumeJsonHandler[Req, Resp]) Handle(ctx context.Context, req *JsonRequest[Req]) (*Resp, error) {
	return h.inner.Handle(ctx, &req.inner)
}

// ProduceJson serves p for requests without a body.
func ProduceJson[T any](p Producer[T]) *ReturnJsonHandler[EmptyRequest, T] {
	return ReturnJson(ConsumeNothing(p))
}

// HandleJson reads and writes JSON around h.
func HandleJson[Req, Resp any](h Handler[Req, Resp]) *ConsumeJsonHandler[Req, JsonResponse[Resp]] {
	return ConsumeJson(ReturnJson(h))
}
