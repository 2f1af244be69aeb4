// Package llm puts the generative model providers behind one interface so the
// generator and the chat assistant do not care which vendor answers.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"
)

var (
	// ErrUnavailable means the provider is overloaded, rate limited, timing out or
	// otherwise failing on its side. Callers may let the user retry.
	ErrUnavailable = errors.New("model unavailable")
	// ErrUnsupportedMedia means the provider cannot accept an attachment of that type.
	ErrUnsupportedMedia = errors.New("attachment type not supported by model")
	ErrNoModel          = errors.New("model not configured")
)

type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Part is a piece of message content. Exactly one of Text, Data or URI is set.
type Part struct {
	Text     string
	MIMEType string
	Data     []byte
	URI      string
}

func TextPart(text string) Part {
	return Part{Text: text}
}

func DataPart(mimeType string, data []byte) Part {
	return Part{MIMEType: mimeType, Data: data}
}

func (p Part) IsText() bool { return p.Data == nil && p.URI == "" }

type ToolCall struct {
	ID        string
	Name      string
	Arguments json.RawMessage
}

type ToolResult struct {
	CallID  string
	Name    string
	Content string
}

// Message is one turn. Model turns may carry ToolCalls; the user turn that
// follows them carries the matching ToolResults.
type Message struct {
	Role        Role
	Parts       []Part
	ToolCalls   []ToolCall
	ToolResults []ToolResult
}

func UserText(text string) Message {
	return Message{Role: RoleUser, Parts: []Part{TextPart(text)}}
}

// Tool is a function the model may call. Call receives the raw JSON arguments.
type Tool interface {
	Name() string
	Description() string
	Parameters() *jsonschema.Schema
	Call(ctx context.Context, input string) (string, error)
}

type Request struct {
	System         string
	Messages       []Message
	Temperature    *float64
	ResponseSchema *jsonschema.Schema
	Tools          []Tool
}

type Response struct {
	Text      string
	ToolCalls []ToolCall
}

type Model interface {
	Generate(ctx context.Context, req Request) (*Response, error)
	Name() string
}

// CleanModelOutput strips markdown code fences some models wrap JSON in.
func CleanModelOutput(text string) string {
	cleaned := strings.TrimSpace(text)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```JSON")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	return strings.TrimSpace(cleaned)
}

// Converse runs the tool loop: it calls the model, executes any tool calls it
// asks for and feeds the results back, at most maxRounds times. The returned
// messages are the turns appended during the loop.
func Converse(ctx context.Context, m Model, req Request, maxRounds int) (*Response, []Message, error) {
	tools := make(map[string]Tool, len(req.Tools))
	for _, t := range req.Tools {
		tools[t.Name()] = t
	}

	var added []Message
	for round := 0; ; round++ {
		resp, err := m.Generate(ctx, req)
		if err != nil {
			return nil, added, err
		}
		if len(resp.ToolCalls) == 0 {
			return resp, added, nil
		}
		if round >= maxRounds {
			// Out of rounds: ask once more without tools so the model has to answer.
			req.Tools = nil
			resp, err = m.Generate(ctx, req)
			if err != nil {
				return nil, added, err
			}
			return resp, added, nil
		}

		call := Message{Role: RoleModel, ToolCalls: resp.ToolCalls}
		if resp.Text != "" {
			call.Parts = []Part{TextPart(resp.Text)}
		}
		results := Message{Role: RoleUser}
		for _, tc := range resp.ToolCalls {
			results.ToolResults = append(results.ToolResults, ToolResult{
				CallID:  tc.ID,
				Name:    tc.Name,
				Content: runTool(ctx, tools[tc.Name], tc),
			})
		}
		req.Messages = append(req.Messages, call, results)
		added = append(added, call, results)
	}
}

func runTool(ctx context.Context, t Tool, tc ToolCall) string {
	if t == nil {
		return fmt.Sprintf("Unknown tool: %s", tc.Name)
	}
	out, err := t.Call(ctx, string(tc.Arguments))
	if err != nil {
		return fmt.Sprintf("Error: %v", err)
	}
	return out
}

func temperature(req Request, fallback float64) float64 {
	if req.Temperature != nil {
		return *req.Temperature
	}
	return fallback
}
