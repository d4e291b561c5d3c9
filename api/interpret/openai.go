// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package interpret

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/z5labs/drivethru"
	"github.com/z5labs/drivethru/api/ledger"
	"github.com/z5labs/drivethru/order"

	"github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
)

//go:embed prompt.txt
var systemPrompt string

const (
	placeOrderFunc  = "place_order"
	cancelItemsFunc = "cancel_items"
)

// schema is the subset of JSON Schema the tool parameters need.
type schema struct {
	Type        string            `json:"type"`
	Description string            `json:"description,omitempty"`
	Enum        []string          `json:"enum,omitempty"`
	Minimum     *int              `json:"minimum,omitempty"`
	Properties  map[string]schema `json:"properties,omitempty"`
	Items       *schema           `json:"items,omitempty"`
	Required    []string          `json:"required,omitempty"`
}

func minimum(n int) *int {
	return &n
}

func itemsParameter(extra map[string]schema, required []string) schema {
	props := map[string]schema{
		"item_type": {
			Type: string(jsonschema.String),
			Enum: []string{string(order.Burger), string(order.Fries), string(order.Drink)},
		},
		"quantity": {
			Type:    string(jsonschema.Integer),
			Minimum: minimum(1),
		},
	}
	for k, v := range extra {
		props[k] = v
	}

	return schema{
		Type: string(jsonschema.Object),
		Properties: map[string]schema{
			"items": {
				Type: string(jsonschema.Array),
				Items: &schema{
					Type:       string(jsonschema.Object),
					Properties: props,
					Required:   required,
				},
			},
		},
		Required: []string{"items"},
	}
}

var tools = []openai.Tool{
	{
		Type: openai.ToolTypeFunction,
		Function: &openai.FunctionDefinition{
			Name:        placeOrderFunc,
			Description: "Place a new order with the specified items",
			Parameters:  itemsParameter(nil, []string{"item_type", "quantity"}),
		},
	},
	{
		Type: openai.ToolTypeFunction,
		Function: &openai.FunctionDefinition{
			Name:        cancelItemsFunc,
			Description: "Cancel items, one numbered order, or every order",
			Parameters: itemsParameter(map[string]schema{
				"order_number": {
					Type:        string(jsonschema.Integer),
					Description: "Number of the order to cancel",
				},
				"cancel_all": {
					Type:        string(jsonschema.Boolean),
					Description: "Cancel every active order",
				},
			}, nil),
		},
	},
}

type chatCompleter interface {
	CreateChatCompletion(context.Context, openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAI interprets messages with a chat completion model and function
// calling.
type OpenAI struct {
	log    *slog.Logger
	client chatCompleter
	model  string
}

// OpenAIOption configures [OpenAI].
type OpenAIOption func(*openAIOptions)

type openAIOptions struct {
	model      string
	baseURL    string
	httpClient *http.Client
}

// Model overrides the default model.
func Model(name string) OpenAIOption {
	return func(oo *openAIOptions) {
		oo.model = name
	}
}

// BaseURL points the client at an OpenAI compatible API.
func BaseURL(u string) OpenAIOption {
	return func(oo *openAIOptions) {
		oo.baseURL = u
	}
}

// HTTPClient replaces the client used to reach the API.
func HTTPClient(hc *http.Client) OpenAIOption {
	return func(oo *openAIOptions) {
		oo.httpClient = hc
	}
}

// NewOpenAI returns an interpreter authenticating with apiKey. Without a
// key every call fails with [ErrNotConfigured].
func NewOpenAI(apiKey string, opts ...OpenAIOption) *OpenAI {
	oo := &openAIOptions{
		model: openai.GPT3Dot5Turbo,
	}
	for _, opt := range opts {
		opt(oo)
	}

	o := &OpenAI{
		log:   drivethru.Logger("github.com/z5labs/drivethru/api/interpret"),
		model: oo.model,
	}
	if apiKey == "" {
		return o
	}

	cfg := openai.DefaultConfig(apiKey)
	if oo.baseURL != "" {
		cfg.BaseURL = oo.baseURL
	}
	if oo.httpClient != nil {
		cfg.HTTPClient = oo.httpClient
	}
	o.client = openai.NewClientWithConfig(cfg)
	return o
}

// Interpret implements [Interpreter].
func (o *OpenAI) Interpret(ctx context.Context, message string) (ledger.Command, error) {
	if o.client == nil {
		return nil, ErrNotConfigured
	}

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: message},
		},
		Tools:      tools,
		ToolChoice: "auto",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create chat completion: %w", err)
	}

	o.log.InfoContext(ctx, "received chat completion", slog.String("model", resp.Model), slog.String("id", resp.ID))

	if len(resp.Choices) == 0 || len(resp.Choices[0].Message.ToolCalls) == 0 {
		o.log.WarnContext(ctx, "no function call in completion", slog.String("message", message))
		return nil, ErrNotUnderstood
	}

	call := resp.Choices[0].Message.ToolCalls[0].Function
	o.log.InfoContext(ctx, "model called function", slog.String("function", call.Name), slog.String("arguments", call.Arguments))

	return parseCall(call.Name, call.Arguments)
}

type callArgs struct {
	Items *[]callItem `json:"items"`
}

type callItem struct {
	ItemType    order.ItemType `json:"item_type"`
	Quantity    *int           `json:"quantity"`
	OrderNumber *int           `json:"order_number"`
	CancelAll   bool           `json:"cancel_all"`
}

func (ci callItem) item() order.Item {
	q := 1
	if ci.Quantity != nil {
		q = *ci.Quantity
	}
	return order.Item{ItemType: ci.ItemType, Quantity: q}
}

func items(cs []callItem) []order.Item {
	is := make([]order.Item, len(cs))
	for i, c := range cs {
		is[i] = c.item()
	}
	return is
}

func parseCall(name, arguments string) (ledger.Command, error) {
	if name != placeOrderFunc && name != cancelItemsFunc {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAction, name)
	}

	var args callArgs
	err := json.Unmarshal([]byte(arguments), &args)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedArguments, err)
	}
	if args.Items == nil {
		return nil, NoItemsError{Cancel: name == cancelItemsFunc}
	}
	cs := *args.Items

	if name == placeOrderFunc {
		return ledger.PlaceOrder{Items: items(cs)}, nil
	}

	switch {
	case len(cs) > 0 && cs[0].CancelAll:
		return ledger.CancelAll{}, nil
	case len(cs) > 0 && cs[0].OrderNumber != nil:
		return ledger.CancelOrder{OrderNumber: *cs[0].OrderNumber}, nil
	default:
		return ledger.CancelItems{Items: items(cs)}, nil
	}
}
