// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package rest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"github.com/swaggest/openapi-go/openapi3"
	"github.com/z5labs/sdk-go/ptr"
)

// ConsumeFormHandler decodes a url encoded form before calling its inner
// handler.
type ConsumeFormHandler[Req, Resp any] struct {
	inner Handler[Req, Resp]
}

// ConsumeForm wraps h so its request is read from form values. Fields are
// matched by their `form` tag, or their lower cased name.
func ConsumeForm[Req, Resp any](h Handler[Req, Resp]) *ConsumeFormHandler[Req, Resp] {
	return &ConsumeFormHandler[Req, Resp]{
		inner: h,
	}
}

// FormRequest is a [TypedRequest] read from an
// application/x-www-form-urlencoded body.
type FormRequest[T any] struct {
	inner T
}

// Spec implements [TypedRequest].
func (*FormRequest[T]) Spec() (openapi3.RequestBodyOrRef, error) {
	schema, err := jsonSchemaOf[T]()
	if err != nil {
		return openapi3.RequestBodyOrRef{}, err
	}

	return openapi3.RequestBodyOrRef{
		RequestBody: &openapi3.RequestBody{
			Required: ptr.Ref(true),
			Content: map[string]openapi3.MediaType{
				"application/x-www-form-urlencoded": {
					Schema: schema,
				},
			},
		},
	}, nil
}

// ReadRequest implements [TypedRequest].
func (fr *FormRequest[T]) ReadRequest(ctx context.Context, r *http.Request) error {
	err := r.ParseForm()
	if err != nil {
		return BadRequestError{Cause: err}
	}

	err = decodeForm(r.PostForm, &fr.inner)
	if err != nil {
		return BadRequestError{Cause: err}
	}
	return nil
}

// Handle implements [Handler].
func (h *ConsumeFormHandler[Req, Resp]) Handle(ctx context.Context, req *FormRequest[Req]) (*Resp, error) {
	return h.inner.Handle(ctx, &req.inner)
}

func decodeForm(form url.Values, dst any) error {
	v := reflect.ValueOf(dst)
	if v.Kind() != reflect.Pointer || v.Elem().Kind() != reflect.Struct {
		return errors.New("dst must be a pointer to a struct")
	}

	v = v.Elem()
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		if !field.CanSet() {
			continue
		}

		name := t.Field(i).Tag.Get("form")
		if name == "" {
			name = strings.ToLower(t.Field(i).Name)
		}

		values, ok := form[name]
		if !ok || len(values) == 0 {
			continue
		}

		err := setField(field, values[0])
		if err != nil {
			return fmt.Errorf("failed to set field %s: %w", t.Field(i).Name, err)
		}
	}
	return nil
}

func setField(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetInt(i)
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)
	default:
		return fmt.Errorf("unsupported field type: %s", field.Kind())
	}
	return nil
}
