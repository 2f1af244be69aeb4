package llm

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

type messageCreator interface {
	New(ctx context.Context, body anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

type AnthropicConfig struct {
	APIKey      string
	Model       string
	MaxTokens   int64
	Temperature float64
}

type Anthropic struct {
	messages    messageCreator
	model       anthropic.Model
	maxTokens   int64
	temperature float64
}

func NewAnthropic(cfg AnthropicConfig) *Anthropic {
	client := anthropic.NewClient(option.WithAPIKey(cfg.APIKey))
	return newAnthropic(&client.Messages, cfg)
}

func newAnthropic(messages messageCreator, cfg AnthropicConfig) *Anthropic {
	a := &Anthropic{
		messages:    messages,
		model:       anthropic.Model(cfg.Model),
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
	}
	if a.model == "" {
		a.model = anthropic.ModelClaudeSonnet4_5
	}
	if a.maxTokens <= 0 {
		a.maxTokens = 8192
	}
	// Anthropic caps temperature at 1.
	if a.temperature > 1 {
		a.temperature = 1
	}
	return a
}

func (a *Anthropic) Name() string { return "anthropic:" + string(a.model) }

func (a *Anthropic) Generate(ctx context.Context, req Request) (*Response, error) {
	messages, err := a.messageParams(req.Messages)
	if err != nil {
		return nil, err
	}

	params := anthropic.MessageNewParams{
		Model:       a.model,
		MaxTokens:   a.maxTokens,
		Messages:    messages,
		Temperature: anthropic.Float(min(temperature(req, a.temperature), 1)),
	}
	if system := systemWithSchema(req); system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	for _, t := range req.Tools {
		props, required := propertiesOf(t.Parameters())
		params.Tools = append(params.Tools, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        t.Name(),
				Description: anthropic.String(t.Description()),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: props,
					Required:   required,
				},
			},
		})
	}

	resp, err := a.messages.New(ctx, params)
	if err != nil {
		return nil, classifyAnthropicError(err)
	}

	out := &Response{}
	var text strings.Builder
	for _, block := range resp.Content {
		switch block := block.AsAny().(type) {
		case anthropic.TextBlock:
			text.WriteString(block.Text)
		case anthropic.ToolUseBlock:
			out.ToolCalls = append(out.ToolCalls, ToolCall{ID: block.ID, Name: block.Name, Arguments: block.Input})
		}
	}
	out.Text = text.String()
	return out, nil
}

func (a *Anthropic) messageParams(msgs []Message) ([]anthropic.MessageParam, error) {
	out := make([]anthropic.MessageParam, 0, len(msgs))
	for _, m := range msgs {
		var blocks []anthropic.ContentBlockParamUnion
		for _, p := range m.Parts {
			block, err := anthropicBlock(p)
			if err != nil {
				return nil, err
			}
			blocks = append(blocks, block)
		}
		for _, tc := range m.ToolCalls {
			input := tc.Arguments
			if len(input) == 0 {
				input = json.RawMessage(`{}`)
			}
			blocks = append(blocks, anthropic.NewToolUseBlock(tc.ID, input, tc.Name))
		}
		for _, tr := range m.ToolResults {
			blocks = append(blocks, anthropic.NewToolResultBlock(tr.CallID, tr.Content, false))
		}
		if len(blocks) == 0 {
			continue
		}
		if m.Role == RoleModel {
			out = append(out, anthropic.NewAssistantMessage(blocks...))
		} else {
			out = append(out, anthropic.NewUserMessage(blocks...))
		}
	}
	return out, nil
}

func anthropicBlock(p Part) (anthropic.ContentBlockParamUnion, error) {
	switch {
	case p.Data != nil && p.MIMEType == "application/pdf":
		return anthropic.NewDocumentBlock(anthropic.Base64PDFSourceParam{
			Data: base64.StdEncoding.EncodeToString(p.Data),
		}), nil
	case p.Data != nil && strings.HasPrefix(p.MIMEType, "image/"):
		return anthropic.NewImageBlockBase64(p.MIMEType, base64.StdEncoding.EncodeToString(p.Data)), nil
	case p.Data != nil, p.URI != "":
		return anthropic.ContentBlockParamUnion{}, fmt.Errorf("%w: %s", ErrUnsupportedMedia, p.MIMEType)
	default:
		return anthropic.NewTextBlock(p.Text), nil
	}
}

// systemWithSchema appends the response schema to the system prompt for
// providers without a native structured-output switch.
func systemWithSchema(req Request) string {
	if req.ResponseSchema == nil {
		return req.System
	}
	instr := "Respond with JSON only, no prose and no code fences, matching this JSON schema:\n" + schemaJSON(req.ResponseSchema)
	if req.System == "" {
		return instr
	}
	return req.System + "\n\n" + instr
}

func classifyAnthropicError(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) && retryable(apiErr.StatusCode) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return err
}
