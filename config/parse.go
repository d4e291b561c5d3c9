// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package config

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// BoolFromString parses a boolean with [strconv.ParseBool].
func BoolFromString(r Reader[string]) Reader[bool] {
	return Map(r, func(ctx context.Context, s string) (bool, error) {
		return strconv.ParseBool(s)
	})
}

// IntFromString parses a base 10 integer.
func IntFromString(r Reader[string]) Reader[int] {
	return Map(r, func(ctx context.Context, s string) (int, error) {
		return strconv.Atoi(s)
	})
}

// Float64FromString parses a 64-bit float.
func Float64FromString(r Reader[string]) Reader[float64] {
	return Map(r, func(ctx context.Context, s string) (float64, error) {
		return strconv.ParseFloat(s, 64)
	})
}

// DurationFromString parses a duration such as "1m30s".
func DurationFromString(r Reader[string]) Reader[time.Duration] {
	return Map(r, func(ctx context.Context, s string) (time.Duration, error) {
		return time.ParseDuration(s)
	})
}

// ListFromString splits a comma separated list, trimming spaces and
// dropping empty elements.
func ListFromString(r Reader[string]) Reader[[]string] {
	return Map(r, func(ctx context.Context, s string) ([]string, error) {
		parts := strings.Split(s, ",")
		list := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p == "" {
				continue
			}
			list = append(list, p)
		}
		return list, nil
	})
}

// UnmarshalYAML decodes a YAML document into T.
func UnmarshalYAML[T any](r Reader[[]byte]) Reader[T] {
	return Map(r, func(ctx context.Context, b []byte) (T, error) {
		var t T
		err := yaml.Unmarshal(b, &t)
		if err != nil {
			return t, fmt.Errorf("config: failed to unmarshal yaml: %w", err)
		}
		return t, nil
	})
}
