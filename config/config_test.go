// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package config

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEnv(t *testing.T) {
	t.Run("will be unset", func(t *testing.T) {
		t.Run("if the variable is empty", func(t *testing.T) {
			t.Setenv("DRIVETHRU_TEST_EMPTY", "")

			_, err := Read(context.Background(), Env("DRIVETHRU_TEST_EMPTY"))
			require.ErrorIs(t, err, ErrValueNotSet)
		})
	})

	t.Run("will return the variable", func(t *testing.T) {
		t.Run("if it is set", func(t *testing.T) {
			t.Setenv("DRIVETHRU_TEST_VALUE", "hello")

			v, err := Read(context.Background(), Env("DRIVETHRU_TEST_VALUE"))
			require.NoError(t, err)
			require.Equal(t, "hello", v)
		})
	})
}

func TestOr(t *testing.T) {
	t.Run("will return the first set value", func(t *testing.T) {
		r := Or(nil, EmptyReader[int](), ReaderOf(2), ReaderOf(3))

		v, err := Read(context.Background(), r)
		require.NoError(t, err)
		require.Equal(t, 2, v)
	})

	t.Run("will return an error", func(t *testing.T) {
		t.Run("if a reader fails before a value is found", func(t *testing.T) {
			readErr := errors.New("boom")
			r := Or(
				ReaderFunc[int](func(ctx context.Context) (Value[int], error) {
					return Value[int]{}, readErr
				}),
				ReaderOf(1),
			)

			_, err := Read(context.Background(), r)
			require.ErrorIs(t, err, readErr)
		})
	})
}

func TestMap(t *testing.T) {
	t.Run("will leave unset values unset", func(t *testing.T) {
		called := false
		r := Map(EmptyReader[string](), func(ctx context.Context, s string) (int, error) {
			called = true
			return 0, nil
		})

		_, err := Read(context.Background(), r)
		require.ErrorIs(t, err, ErrValueNotSet)
		require.False(t, called)
	})

	t.Run("will propagate parse errors", func(t *testing.T) {
		_, err := Read(context.Background(), IntFromString(ReaderOf("not a number")))
		require.Error(t, err)
		require.NotErrorIs(t, err, ErrValueNotSet)
	})
}

func TestLookup(t *testing.T) {
	type doc struct {
		Name string
	}

	t.Run("will treat zero fields as unset", func(t *testing.T) {
		r := Default("fallback", Lookup(ReaderOf(doc{}), func(d doc) string { return d.Name }))

		v, err := Read(context.Background(), r)
		require.NoError(t, err)
		require.Equal(t, "fallback", v)
	})

	t.Run("will return the selected field", func(t *testing.T) {
		r := Lookup(ReaderOf(doc{Name: "drivethru"}), func(d doc) string { return d.Name })

		v, err := Read(context.Background(), r)
		require.NoError(t, err)
		require.Equal(t, "drivethru", v)
	})
}

func TestMustOr(t *testing.T) {
	t.Run("will return the default", func(t *testing.T) {
		t.Run("if the reader is nil", func(t *testing.T) {
			require.Equal(t, 5*time.Second, MustOr[time.Duration](context.Background(), 5*time.Second, nil))
		})
	})

	t.Run("will panic", func(t *testing.T) {
		t.Run("if the reader fails", func(t *testing.T) {
			require.Panics(t, func() {
				MustOr(context.Background(), 0, IntFromString(ReaderOf("x")))
			})
		})
	})
}

func TestListFromString(t *testing.T) {
	t.Run("will drop empty elements", func(t *testing.T) {
		v, err := Read(context.Background(), ListFromString(ReaderOf(" a, ,b ,")))
		require.NoError(t, err)
		require.Equal(t, []string{"a", "b"}, v)
	})
}

func TestUnmarshalYAML(t *testing.T) {
	t.Run("will return an error", func(t *testing.T) {
		t.Run("if the document is malformed", func(t *testing.T) {
			type cfg struct {
				Port int `yaml:"port"`
			}

			_, err := Read(context.Background(), UnmarshalYAML[cfg](ReaderOf([]byte("port: [1"))))
			require.Error(t, err)
		})
	})
}
