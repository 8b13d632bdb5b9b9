// Package anthropic adapts the Anthropic Messages API to the canonical
// message model: Recognize turns SDK message values into message variants,
// ToParams converts canonical messages back into request params, and Model
// implements model.Model on top of the official client.
package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/hupe1980/meshstate/message"
	"github.com/hupe1980/meshstate/model"
)

// DefaultModel is used when Options.Model is empty.
const DefaultModel = anthropic.Model("claude-sonnet-4-0")

// ModelName converts a plain model id, as found in configuration files.
func ModelName(id string) anthropic.Model { return anthropic.Model(id) }

// Options configures the Anthropic model adapter (temperature, model id,
// max tokens, API key).
type Options struct {
	Model       anthropic.Model
	Temperature float64
	MaxTokens   int64
	APIKey      string
}

// Model wraps the Anthropic Messages API behind model.Model.
type Model struct {
	client *anthropic.Client
	opts   Options
}

func defaultOptions() Options {
	return Options{
		Model:       DefaultModel,
		Temperature: 0.7,
		MaxTokens:   4096,
	}
}

// NewModel creates a new Anthropic model using the official client.
func NewModel(optFns ...func(o *Options)) *Model {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	client := anthropic.NewClient(clientOpts...)

	return &Model{client: &client, opts: opts}
}

// NewModelFromClient creates a new Anthropic model from an existing client.
func NewModelFromClient(client *anthropic.Client, optFns ...func(o *Options)) *Model {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Model{client: client, opts: opts}
}

// Invoke implements model.Model. The reply is the raw anthropic.Message;
// Recognize understands it.
func (m *Model) Invoke(ctx context.Context, msgs []message.Message) (any, error) {
	if len(msgs) == 0 {
		return nil, model.ErrNoMessages
	}
	system, messages := ToParams(msgs)
	params := anthropic.MessageNewParams{
		Model:       m.opts.Model,
		Messages:    messages,
		MaxTokens:   m.opts.MaxTokens,
		Temperature: anthropic.Float(m.opts.Temperature),
	}
	if len(system) > 0 {
		params.System = system
	}

	resp, err := m.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic api error: %w", err)
	}
	return *resp, nil
}

// Info returns metadata describing this Anthropic model implementation.
func (m *Model) Info() model.Info {
	return model.Info{Name: string(m.opts.Model), Provider: "anthropic"}
}

// Recognize is a message.Recognizer for anthropic.Message and
// anthropic.MessageParam values (and pointers to them).
func Recognize(raw any) (message.Variant, bool) {
	switch v := raw.(type) {
	case anthropic.Message:
		return fromMessage(v), true
	case *anthropic.Message:
		if v == nil {
			return nil, false
		}
		return fromMessage(*v), true
	case anthropic.MessageParam:
		return fromParam(v)
	case *anthropic.MessageParam:
		if v == nil {
			return nil, false
		}
		return fromParam(*v)
	default:
		return nil, false
	}
}

func fromMessage(m anthropic.Message) message.Variant {
	var sb strings.Builder
	var calls []any
	for _, block := range m.Content {
		switch block.Type {
		case "text":
			sb.WriteString(block.Text)
		case "tool_use":
			calls = append(calls, map[string]any{
				"id":        block.ID,
				"name":      block.Name,
				"arguments": string(block.Input),
			})
		}
	}

	kwargs := map[string]any{}
	if m.ID != "" {
		kwargs["id"] = m.ID
	}
	if m.StopReason != "" {
		kwargs["stop_reason"] = string(m.StopReason)
	}
	if len(calls) > 0 {
		kwargs["tool_calls"] = calls
	}
	if len(kwargs) == 0 {
		kwargs = nil
	}
	return message.AIMessage{Content: sb.String(), AdditionalKwargs: kwargs}
}

func fromParam(p anthropic.MessageParam) (message.Variant, bool) {
	var text strings.Builder
	var result *anthropic.ToolResultBlockParam
	for _, block := range p.Content {
		switch {
		case block.OfText != nil:
			text.WriteString(block.OfText.Text)
		case block.OfToolResult != nil && result == nil:
			result = block.OfToolResult
		}
	}

	switch p.Role {
	case anthropic.MessageParamRoleAssistant:
		return message.AIMessage{Content: text.String()}, true
	case anthropic.MessageParamRoleUser:
		if result != nil {
			var out strings.Builder
			for _, c := range result.Content {
				if c.OfText != nil {
					out.WriteString(c.OfText.Text)
				}
			}
			return message.ToolMessage{Content: out.String(), ToolCallID: result.ToolUseID}, true
		}
		return message.HumanMessage{Content: text.String()}, true
	default:
		return nil, false
	}
}

// ToParams converts canonical messages into Messages API params. System
// messages are lifted into the separate system blocks. Tool results need a
// call id; without one they are sent as plain user text.
func ToParams(msgs []message.Message) ([]anthropic.TextBlockParam, []anthropic.MessageParam) {
	var system []anthropic.TextBlockParam
	messages := make([]anthropic.MessageParam, 0, len(msgs))
	for _, m := range msgs {
		switch m.Type {
		case message.TypeSystem:
			if m.Content != "" {
				system = append(system, anthropic.TextBlockParam{Text: m.Content})
			}
		case message.TypeAI:
			if blocks := assistantBlocks(m); len(blocks) > 0 {
				messages = append(messages, anthropic.NewAssistantMessage(blocks...))
			}
		case message.TypeTool, message.TypeFunction:
			if m.ToolCallID != "" {
				messages = append(messages, anthropic.NewUserMessage(
					anthropic.NewToolResultBlock(m.ToolCallID, m.Content, false),
				))
				continue
			}
			messages = append(messages, anthropic.NewUserMessage(
				anthropic.NewTextBlock(fmt.Sprintf("[%s] %s", m.ToolName, m.Content)),
			))
		default:
			if m.Content != "" {
				messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
			}
		}
	}
	return system, messages
}

// assistantBlocks restores text and the tool calls Recognize kept in metadata.
func assistantBlocks(m message.Message) []anthropic.ContentBlockParamUnion {
	var blocks []anthropic.ContentBlockParamUnion
	if m.Content != "" {
		blocks = append(blocks, anthropic.NewTextBlock(m.Content))
	}
	calls, _ := m.Metadata["tool_calls"].([]any)
	for _, c := range calls {
		call, ok := c.(map[string]any)
		if !ok {
			continue
		}
		id, _ := call["id"].(string)
		name, _ := call["name"].(string)
		args, _ := call["arguments"].(string)

		var input any = map[string]any{}
		if args != "" {
			if err := json.Unmarshal([]byte(args), &input); err != nil {
				input = args
			}
		}
		blocks = append(blocks, anthropic.NewToolUseBlock(id, input, name))
	}
	return blocks
}
