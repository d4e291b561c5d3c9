// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package config provides composable, lazily evaluated configuration values.
//
// A [Reader] produces a [Value] which may or may not be set. Readers are
// combined with [Or], [Default], [Map] and [Lookup] so a single setting can
// be sourced from environment variables, an embedded YAML document or a
// hard coded default, in that order of precedence.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
)

// ErrValueNotSet is returned by [Read] when a reader produced no value.
var ErrValueNotSet = errors.New("config: value not set")

// Value is the result of reading configuration. The zero Value is unset.
type Value[T any] struct {
	v   T
	set bool
}

// ValueOf returns a set Value holding v.
func ValueOf[T any](v T) Value[T] {
	return Value[T]{v: v, set: true}
}

// Value returns the underlying value and whether it was set.
func (v Value[T]) Value() (T, bool) {
	return v.v, v.set
}

// Reader reads a configuration value.
type Reader[T any] interface {
	Read(context.Context) (Value[T], error)
}

// ReaderFunc is a function implementing [Reader].
type ReaderFunc[T any] func(context.Context) (Value[T], error)

// Read implements [Reader].
func (f ReaderFunc[T]) Read(ctx context.Context) (Value[T], error) {
	return f(ctx)
}

// EmptyReader returns a Reader which never produces a value.
func EmptyReader[T any]() Reader[T] {
	return ReaderFunc[T](func(ctx context.Context) (Value[T], error) {
		return Value[T]{}, nil
	})
}

// ReaderOf returns a Reader which always produces v.
func ReaderOf[T any](v T) Reader[T] {
	return ReaderFunc[T](func(ctx context.Context) (Value[T], error) {
		return ValueOf(v), nil
	})
}

// Env reads the named environment variable. An empty variable is unset.
func Env(name string) Reader[string] {
	return ReaderFunc[string](func(ctx context.Context) (Value[string], error) {
		s, ok := os.LookupEnv(name)
		if !ok || s == "" {
			return Value[string]{}, nil
		}
		return ValueOf(s), nil
	})
}

// Or returns the first set value produced by rs. Nil readers are skipped.
func Or[T any](rs ...Reader[T]) Reader[T] {
	return ReaderFunc[T](func(ctx context.Context) (Value[T], error) {
		for _, r := range rs {
			if r == nil {
				continue
			}

			v, err := r.Read(ctx)
			if err != nil {
				return Value[T]{}, err
			}
			if _, set := v.Value(); set {
				return v, nil
			}
		}
		return Value[T]{}, nil
	})
}

// Default falls back to def when r produces no value.
func Default[T any](def T, r Reader[T]) Reader[T] {
	return Or(r, ReaderOf(def))
}

// Map transforms a set value with f. Unset values stay unset.
func Map[A, B any](r Reader[A], f func(context.Context, A) (B, error)) Reader[B] {
	return ReaderFunc[B](func(ctx context.Context) (Value[B], error) {
		if r == nil {
			return Value[B]{}, nil
		}

		va, err := r.Read(ctx)
		if err != nil {
			return Value[B]{}, err
		}

		a, set := va.Value()
		if !set {
			return Value[B]{}, nil
		}

		b, err := f(ctx, a)
		if err != nil {
			return Value[B]{}, err
		}
		return ValueOf(b), nil
	})
}

// Lookup selects a field from a structured value, e.g. a decoded YAML
// document. A zero field reads as unset so that it can be layered under
// other sources with [Or].
func Lookup[S any, T comparable](r Reader[S], field func(S) T) Reader[T] {
	return ReaderFunc[T](func(ctx context.Context) (Value[T], error) {
		vs, err := r.Read(ctx)
		if err != nil {
			return Value[T]{}, err
		}

		s, set := vs.Value()
		if !set {
			return Value[T]{}, nil
		}

		var zero T
		t := field(s)
		if t == zero {
			return Value[T]{}, nil
		}
		return ValueOf(t), nil
	})
}

// Read reads r and returns [ErrValueNotSet] if no value was produced.
func Read[T any](ctx context.Context, r Reader[T]) (T, error) {
	var zero T
	if r == nil {
		return zero, ErrValueNotSet
	}

	v, err := r.Read(ctx)
	if err != nil {
		return zero, err
	}

	t, set := v.Value()
	if !set {
		return zero, ErrValueNotSet
	}
	return t, nil
}

// Must is like [Read] but panics on failure.
func Must[T any](ctx context.Context, r Reader[T]) T {
	t, err := Read(ctx, r)
	if err != nil {
		panic(fmt.Errorf("config: failed to read required value: %w", err))
	}
	return t
}

// MustOr returns def if r is nil or unset and panics if reading fails.
func MustOr[T any](ctx context.Context, def T, r Reader[T]) T {
	t, err := Read(ctx, r)
	if errors.Is(err, ErrValueNotSet) {
		return def
	}
	if err != nil {
		panic(fmt.Errorf("config: failed to read value: %w", err))
	}
	return t
}
