// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package rest

import (
	"bytes"
	"context"
	"html/template"
	"net/http"

	"github.com/swaggest/openapi-go/openapi3"
)

// ReturnHTMLHandler renders the response of its inner handler with a template.
type ReturnHTMLHandler[Req, Resp any] struct {
	inner Handler[Req, Resp]
	tmpl  *template.Template
}

// ReturnHTML wraps h so its response is rendered by tmpl.
func ReturnHTML[Req, Resp any](h Handler[Req, Resp], tmpl *template.Template) *ReturnHTMLHandler[Req, Resp] {
	return &ReturnHTMLHandler[Req, Resp]{
		inner: h,
		tmpl:  tmpl,
	}
}

// HTMLTemplateResponse is a [TypedResponse] rendered as text/html.
type HTMLTemplateResponse[T any] struct {
	Template *template.Template
	Data     *T
}

// Spec implements [TypedResponse].
func (*HTMLTemplateResponse[T]) Spec() (int, openapi3.ResponseOrRef, error) {
	schemaType := openapi3.SchemaTypeString
	return http.StatusOK, openapi3.ResponseOrRef{
		Response: &openapi3.Response{
			Content: map[string]openapi3.MediaType{
				"text/html": {
					Schema: &openapi3.SchemaOrRef{
						Schema: &openapi3.Schema{
							Type: &schemaType,
						},
					},
				},
			},
		},
	}, nil
}

// WriteResponse implements [TypedResponse]. The template is fully rendered
// before any bytes are written so a failing template still yields an error
// response.
func (hr *HTMLTemplateResponse[T]) WriteResponse(ctx context.Context, w http.ResponseWriter) error {
	var buf bytes.Buffer
	err := hr.Template.Execute(&buf, hr.Data)
	if err != nil {
		return err
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, err = buf.WriteTo(w)
	return err
}

// Handle implements [Handler].
func (h *ReturnHTMLHandler[Req, Resp]) Handle(ctx context.Context, req *Req) (*HTMLTemplateResponse[Resp], error) {
	resp, err := h.inner.Handle(ctx, req)
	if err != nil {
		return nil, err
	}
	return &HTMLTemplateResponse[Resp]{
		Template: h.tmpl,
		Data:     resp,
	}, nil
}

// ProduceHTML renders p with tmpl for requests without a body.
func ProduceHTML[T any](p Producer[T], tmpl *template.Template) *ReturnHTMLHandler[EmptyRequest, T] {
	return ReturnHTML(ConsumeNothing(p), tmpl)
}
