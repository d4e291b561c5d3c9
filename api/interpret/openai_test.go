// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package interpret

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/z5labs/drivethru/api/ledger"
	"github.com/z5labs/drivethru/order"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/require"
)

func completionWithCall(name, arguments string) map[string]any {
	return map[string]any{
		"id":    "chatcmpl-1",
		"model": "gpt-3.5-turbo",
		"choices": []any{
			map[string]any{
				"index": 0,
				"message": map[string]any{
					"role": "assistant",
					"tool_calls": []any{
						map[string]any{
							"id":   "call_1",
							"type": "function",
							"function": map[string]any{
								"name":      name,
								"arguments": arguments,
							},
						},
					},
				},
			},
		},
	}
}

func fakeOpenAI(t *testing.T, status int, body any, seen *openai.ChatCompletionRequest) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if seen != nil {
			json.NewDecoder(r.Body).Decode(seen)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestOpenAI(t *testing.T, srv *httptest.Server) *OpenAI {
	return NewOpenAI("test-key", BaseURL(srv.URL+"/v1"), HTTPClient(srv.Client()))
}

func TestOpenAI_Interpret(t *testing.T) {
	t.Run("will return ErrNotConfigured", func(t *testing.T) {
		t.Run("if no api key is set", func(t *testing.T) {
			o := NewOpenAI("")

			_, err := o.Interpret(context.Background(), "one burger")
			require.ErrorIs(t, err, ErrNotConfigured)
		})
	})

	t.Run("will send the system prompt and tools", func(t *testing.T) {
		t.Run("if a message is interpreted", func(t *testing.T) {
			var req openai.ChatCompletionRequest
			srv := fakeOpenAI(t, http.StatusOK, completionWithCall(placeOrderFunc, `{"items":[{"item_type":"burger","quantity":1}]}`), &req)
			o := NewOpenAI("test-key", BaseURL(srv.URL+"/v1"), HTTPClient(srv.Client()), Model("gpt-4o-mini"))

			_, err := o.Interpret(context.Background(), "one burger")
			require.NoError(t, err)

			require.Equal(t, "gpt-4o-mini", req.Model)
			require.Len(t, req.Messages, 2)
			require.Equal(t, openai.ChatMessageRoleSystem, req.Messages[0].Role)
			require.Equal(t, systemPrompt, req.Messages[0].Content)
			require.Equal(t, "one burger", req.Messages[1].Content)
			require.Len(t, req.Tools, 2)
			require.Equal(t, placeOrderFunc, req.Tools[0].Function.Name)
			require.Equal(t, cancelItemsFunc, req.Tools[1].Function.Name)
		})
	})

	t.Run("will require a quantity of at least one", func(t *testing.T) {
		t.Run("if the tools are sent", func(t *testing.T) {
			var req openai.ChatCompletionRequest
			srv := fakeOpenAI(t, http.StatusOK, completionWithCall(placeOrderFunc, `{"items":[{"item_type":"burger","quantity":1}]}`), &req)
			o := newTestOpenAI(t, srv)

			_, err := o.Interpret(context.Background(), "one burger")
			require.NoError(t, err)
			require.Len(t, req.Tools, 2)

			for _, tool := range req.Tools {
				b, err := json.Marshal(tool.Function.Parameters)
				require.NoError(t, err)

				var params struct {
					Properties struct {
						Items struct {
							Items struct {
								Properties map[string]struct {
									Type    string `json:"type"`
									Minimum *int   `json:"minimum"`
								} `json:"properties"`
							} `json:"items"`
						} `json:"items"`
					} `json:"properties"`
				}
				require.NoError(t, json.Unmarshal(b, &params))

				quantity, ok := params.Properties.Items.Items.Properties["quantity"]
				require.True(t, ok, tool.Function.Name)
				require.Equal(t, "integer", quantity.Type)
				require.NotNil(t, quantity.Minimum, tool.Function.Name)
				require.Equal(t, 1, *quantity.Minimum)
			}
		})
	})

	t.Run("will return a PlaceOrder", func(t *testing.T) {
		t.Run("if the model calls place_order", func(t *testing.T) {
			srv := fakeOpenAI(t, http.StatusOK, completionWithCall(placeOrderFunc, `{"items":[{"item_type":"burger","quantity":2},{"item_type":"drink","quantity":1}]}`), nil)
			o := newTestOpenAI(t, srv)

			cmd, err := o.Interpret(context.Background(), "two burgers and a drink")
			require.NoError(t, err)
			require.Equal(t, ledger.PlaceOrder{Items: []order.Item{
				{ItemType: order.Burger, Quantity: 2},
				{ItemType: order.Drink, Quantity: 1},
			}}, cmd)
		})
	})

	t.Run("will return ErrNotUnderstood", func(t *testing.T) {
		t.Run("if the model does not call a function", func(t *testing.T) {
			body := map[string]any{
				"id":    "chatcmpl-1",
				"model": "gpt-3.5-turbo",
				"choices": []any{
					map[string]any{
						"index": 0,
						"message": map[string]any{
							"role":    "assistant",
							"content": "Sorry, what would you like?",
						},
					},
				},
			}
			srv := fakeOpenAI(t, http.StatusOK, body, nil)
			o := newTestOpenAI(t, srv)

			_, err := o.Interpret(context.Background(), "hello")
			require.ErrorIs(t, err, ErrNotUnderstood)
		})
	})

	t.Run("will return a transport error", func(t *testing.T) {
		t.Run("if the api responds with a server error", func(t *testing.T) {
			body := map[string]any{
				"error": map[string]any{
					"message": "boom",
					"type":    "server_error",
				},
			}
			srv := fakeOpenAI(t, http.StatusInternalServerError, body, nil)
			o := newTestOpenAI(t, srv)

			_, err := o.Interpret(context.Background(), "one burger")
			require.Error(t, err)
			require.False(t, interpretationError(err))
		})
	})
}

func TestParseCall(t *testing.T) {
	t.Run("will default the quantity to one", func(t *testing.T) {
		t.Run("if the quantity is missing", func(t *testing.T) {
			cmd, err := parseCall(placeOrderFunc, `{"items":[{"item_type":"fries"}]}`)
			require.NoError(t, err)
			require.Equal(t, ledger.PlaceOrder{Items: []order.Item{{ItemType: order.Fries, Quantity: 1}}}, cmd)
		})
	})

	t.Run("will return CancelAll", func(t *testing.T) {
		t.Run("if the first item sets cancel_all", func(t *testing.T) {
			cmd, err := parseCall(cancelItemsFunc, `{"items":[{"cancel_all":true}]}`)
			require.NoError(t, err)
			require.Equal(t, ledger.CancelAll{}, cmd)
		})
	})

	t.Run("will return CancelOrder", func(t *testing.T) {
		t.Run("if the first item carries an order number", func(t *testing.T) {
			cmd, err := parseCall(cancelItemsFunc, `{"items":[{"order_number":3}]}`)
			require.NoError(t, err)
			require.Equal(t, ledger.CancelOrder{OrderNumber: 3}, cmd)
		})
	})

	t.Run("will return CancelItems", func(t *testing.T) {
		t.Run("if items are listed without an order number", func(t *testing.T) {
			cmd, err := parseCall(cancelItemsFunc, `{"items":[{"item_type":"drink","quantity":2}]}`)
			require.NoError(t, err)
			require.Equal(t, ledger.CancelItems{Items: []order.Item{{ItemType: order.Drink, Quantity: 2}}}, cmd)
		})
	})

	t.Run("will return a NoItemsError", func(t *testing.T) {
		t.Run("if an order has no items array", func(t *testing.T) {
			_, err := parseCall(placeOrderFunc, `{}`)
			require.ErrorIs(t, err, ErrNoItems)

			var nie NoItemsError
			require.ErrorAs(t, err, &nie)
			require.False(t, nie.Cancel)
		})

		t.Run("if a cancellation has no items array", func(t *testing.T) {
			_, err := parseCall(cancelItemsFunc, `{}`)

			var nie NoItemsError
			require.ErrorAs(t, err, &nie)
			require.True(t, nie.Cancel)
		})
	})

	t.Run("will return ErrMalformedArguments", func(t *testing.T) {
		t.Run("if the arguments are not json", func(t *testing.T) {
			_, err := parseCall(placeOrderFunc, `{"items":`)
			require.ErrorIs(t, err, ErrMalformedArguments)
		})
	})

	t.Run("will return ErrUnknownAction", func(t *testing.T) {
		t.Run("if the function is not recognised", func(t *testing.T) {
			_, err := parseCall("refund", `{}`)
			require.ErrorIs(t, err, ErrUnknownAction)
		})
	})
}
