package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

type OpenAIConfig struct {
	APIKey      string
	Model       string
	Temperature float64
}

// OpenAI talks to the chat completions API through langchaingo.
type OpenAI struct {
	llm         llms.Model
	model       string
	temperature float64
}

func NewOpenAI(cfg OpenAIConfig) (*OpenAI, error) {
	model := cfg.Model
	if model == "" {
		model = "gpt-4o"
	}
	client, err := openai.New(openai.WithToken(cfg.APIKey), openai.WithModel(model))
	if err != nil {
		return nil, fmt.Errorf("failed to create openai client: %w", err)
	}
	return newOpenAI(client, model, cfg.Temperature), nil
}

func newOpenAI(model llms.Model, name string, temp float64) *OpenAI {
	return &OpenAI{llm: model, model: name, temperature: temp}
}

func (o *OpenAI) Name() string { return "openai:" + o.model }

func (o *OpenAI) Generate(ctx context.Context, req Request) (*Response, error) {
	var history []llms.MessageContent
	if system := systemWithSchema(req); system != "" {
		history = append(history, llms.TextParts(llms.ChatMessageTypeSystem, system))
	}
	for _, m := range req.Messages {
		msgs, err := openAIMessages(m)
		if err != nil {
			return nil, err
		}
		history = append(history, msgs...)
	}

	opts := []llms.CallOption{llms.WithTemperature(temperature(req, o.temperature))}
	if req.ResponseSchema != nil {
		opts = append(opts, llms.WithJSONMode())
	}
	if len(req.Tools) > 0 {
		tools := make([]llms.Tool, 0, len(req.Tools))
		for _, t := range req.Tools {
			tools = append(tools, llms.Tool{
				Type: "function",
				Function: &llms.FunctionDefinition{
					Name:        t.Name(),
					Description: t.Description(),
					Parameters:  schemaMap(t.Parameters()),
				},
			})
		}
		opts = append(opts, llms.WithTools(tools))
	}

	resp, err := o.llm.GenerateContent(ctx, history, opts...)
	if err != nil {
		return nil, classifyOpenAIError(err)
	}
	if len(resp.Choices) == 0 {
		return &Response{}, nil
	}

	choice := resp.Choices[0]
	out := &Response{Text: choice.Content}
	for _, tc := range choice.ToolCalls {
		if tc.FunctionCall == nil {
			continue
		}
		out.ToolCalls = append(out.ToolCalls, ToolCall{
			ID:        tc.ID,
			Name:      tc.FunctionCall.Name,
			Arguments: json.RawMessage(tc.FunctionCall.Arguments),
		})
	}
	return out, nil
}

// openAIMessages maps one turn onto chat messages. Tool results become one
// tool message per call, as the chat completions API expects.
func openAIMessages(m Message) ([]llms.MessageContent, error) {
	role := llms.ChatMessageTypeHuman
	if m.Role == RoleModel {
		role = llms.ChatMessageTypeAI
	}

	var out []llms.MessageContent
	msg := llms.MessageContent{Role: role}
	for _, p := range m.Parts {
		switch {
		case p.Data != nil && strings.HasPrefix(p.MIMEType, "image/"):
			msg.Parts = append(msg.Parts, llms.BinaryPart(p.MIMEType, p.Data))
		case p.Data != nil, p.URI != "":
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedMedia, p.MIMEType)
		default:
			msg.Parts = append(msg.Parts, llms.TextContent{Text: p.Text})
		}
	}
	for _, tc := range m.ToolCalls {
		msg.Parts = append(msg.Parts, llms.ToolCall{
			ID:   tc.ID,
			Type: "function",
			FunctionCall: &llms.FunctionCall{
				Name:      tc.Name,
				Arguments: string(tc.Arguments),
			},
		})
	}
	if len(msg.Parts) > 0 {
		out = append(out, msg)
	}
	for _, tr := range m.ToolResults {
		out = append(out, llms.MessageContent{
			Role: llms.ChatMessageTypeTool,
			Parts: []llms.ContentPart{llms.ToolCallResponse{
				ToolCallID: tr.CallID,
				Name:       tr.Name,
				Content:    tr.Content,
			}},
		})
	}
	return out, nil
}

func classifyOpenAIError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"429", "rate limit", "overloaded", "500", "502", "503", "504"} {
		if strings.Contains(msg, marker) {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}
	return err
}
