// Package openai adapts the OpenAI Chat Completions API to the canonical
// message model: Recognize turns SDK message values into message variants,
// ToParams converts canonical messages back into request params, and Model
// implements model.Model on top of the official client.
package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/hupe1980/meshstate/message"
	"github.com/hupe1980/meshstate/model"
)

// ErrNoChoices is returned when the API answers without any choice.
var ErrNoChoices = errors.New("openai: response contained no choices")

// Options configure the OpenAI model adapter.
type Options struct {
	Model               string
	Temperature         float64
	MaxCompletionTokens int64
	APIKey              string
}

// Model wraps the OpenAI Chat Completions API behind model.Model.
type Model struct {
	client *openai.Client
	opts   Options
}

func defaultOptions() Options {
	return Options{
		Model:               openai.ChatModelGPT4oMini,
		Temperature:         0.7,
		MaxCompletionTokens: 4096,
	}
}

// NewModel creates a new OpenAI model using the official client. Without an
// APIKey option the client reads OPENAI_API_KEY.
func NewModel(optFns ...func(o *Options)) *Model {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	client := openai.NewClient(clientOpts...)

	return &Model{client: &client, opts: opts}
}

// NewModelFromClient creates a new OpenAI model from an existing client.
func NewModelFromClient(client *openai.Client, optFns ...func(o *Options)) *Model {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Model{client: client, opts: opts}
}

// Invoke implements model.Model. The reply is the raw openai.ChatCompletionMessage
// of the first choice; Recognize understands it.
func (m *Model) Invoke(ctx context.Context, msgs []message.Message) (any, error) {
	if len(msgs) == 0 {
		return nil, model.ErrNoMessages
	}
	params := openai.ChatCompletionNewParams{
		Messages:            ToParams(msgs),
		Model:               m.opts.Model,
		Temperature:         openai.Float(m.opts.Temperature),
		MaxCompletionTokens: openai.Int(m.opts.MaxCompletionTokens),
	}
	resp, err := m.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai api error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, ErrNoChoices
	}
	return resp.Choices[0].Message, nil
}

// Info implements model.Model.
func (m *Model) Info() model.Info {
	return model.Info{Name: m.opts.Model, Provider: "openai"}
}

// Recognize is a message.Recognizer for openai.ChatCompletionMessage and
// openai.ChatCompletionMessageParamUnion values (and pointers to them).
func Recognize(raw any) (message.Variant, bool) {
	switch v := raw.(type) {
	case openai.ChatCompletionMessage:
		return fromCompletion(v), true
	case *openai.ChatCompletionMessage:
		if v == nil {
			return nil, false
		}
		return fromCompletion(*v), true
	case openai.ChatCompletionMessageParamUnion:
		return fromParam(v)
	case *openai.ChatCompletionMessageParamUnion:
		if v == nil {
			return nil, false
		}
		return fromParam(*v)
	default:
		return nil, false
	}
}

func fromCompletion(m openai.ChatCompletionMessage) message.Variant {
	content := m.Content
	kwargs := map[string]any{}
	if m.Refusal != "" {
		kwargs["refusal"] = m.Refusal
		if content == "" {
			content = m.Refusal
		}
	}
	if len(m.ToolCalls) > 0 {
		calls := make([]any, 0, len(m.ToolCalls))
		for _, tc := range m.ToolCalls {
			calls = append(calls, map[string]any{
				"id":        tc.ID,
				"name":      tc.Function.Name,
				"arguments": tc.Function.Arguments,
			})
		}
		kwargs["tool_calls"] = calls
	}
	if len(kwargs) == 0 {
		kwargs = nil
	}
	return message.AIMessage{Content: content, AdditionalKwargs: kwargs}
}

func fromParam(u openai.ChatCompletionMessageParamUnion) (message.Variant, bool) {
	switch {
	case u.OfUser != nil:
		c := u.OfUser.Content
		if c.OfString.Valid() {
			return message.HumanMessage{Content: c.OfString.Value}, true
		}
		var sb strings.Builder
		for _, p := range c.OfArrayOfContentParts {
			if p.OfText != nil {
				sb.WriteString(p.OfText.Text)
			}
		}
		return message.HumanMessage{Content: sb.String()}, true
	case u.OfSystem != nil:
		c := u.OfSystem.Content
		return message.SystemMessage{Content: textOf(c.OfString.Value, c.OfString.Valid(), c.OfArrayOfContentParts)}, true
	case u.OfDeveloper != nil:
		c := u.OfDeveloper.Content
		return message.SystemMessage{Content: textOf(c.OfString.Value, c.OfString.Valid(), c.OfArrayOfContentParts)}, true
	case u.OfAssistant != nil:
		c := u.OfAssistant.Content
		if c.OfString.Valid() {
			return message.AIMessage{Content: c.OfString.Value}, true
		}
		var sb strings.Builder
		for _, p := range c.OfArrayOfContentParts {
			switch {
			case p.OfText != nil:
				sb.WriteString(p.OfText.Text)
			case p.OfRefusal != nil:
				sb.WriteString(p.OfRefusal.Refusal)
			}
		}
		return message.AIMessage{Content: sb.String()}, true
	case u.OfTool != nil:
		c := u.OfTool.Content
		return message.ToolMessage{
			Content:    textOf(c.OfString.Value, c.OfString.Valid(), c.OfArrayOfContentParts),
			ToolCallID: u.OfTool.ToolCallID,
		}, true
	case u.OfFunction != nil:
		return message.ToolMessage{
			Content:  u.OfFunction.Content.Value,
			ToolName: u.OfFunction.Name,
		}, true
	default:
		return nil, false
	}
}

func textOf(s string, valid bool, parts []openai.ChatCompletionContentPartTextParam) string {
	if valid {
		return s
	}
	var sb strings.Builder
	for _, p := range parts {
		sb.WriteString(p.Text)
	}
	return sb.String()
}

// ToParams converts canonical messages into Chat Completions request messages.
// Tool messages without a call id and function messages are sent as legacy
// function messages named after the tool.
func ToParams(msgs []message.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, m := range msgs {
		switch m.Type {
		case message.TypeSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case message.TypeAI:
			out = append(out, openai.AssistantMessage(m.Content))
		case message.TypeTool:
			if m.ToolCallID != "" {
				out = append(out, openai.ToolMessage(m.Content, m.ToolCallID))
				continue
			}
			out = append(out, functionMessage(m))
		case message.TypeFunction:
			out = append(out, functionMessage(m))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}

func functionMessage(m message.Message) openai.ChatCompletionMessageParamUnion {
	return openai.ChatCompletionMessageParamUnion{
		OfFunction: &openai.ChatCompletionFunctionMessageParam{
			Content: openai.String(m.Content),
			Name:    m.ToolName,
		},
	}
}
