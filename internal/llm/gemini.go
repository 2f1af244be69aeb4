package llm

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"
	"google.golang.org/genai"
)

// The Files API deletes uploads after 48 hours.
const (
	uploadCacheSize = 256
	uploadCacheTTL  = 46 * time.Hour
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type fileService interface {
	Upload(ctx context.Context, r io.Reader, config *genai.UploadFileConfig) (*genai.File, error)
	Get(ctx context.Context, name string, config *genai.GetFileConfig) (*genai.File, error)
}

type GeminiConfig struct {
	APIKey       string
	Model        string
	Temperature  float64
	PollInterval time.Duration
	PollAttempts int
}

type Gemini struct {
	models       contentGenerator
	files        fileService
	model        string
	temperature  float64
	pollInterval time.Duration
	pollAttempts int

	uploads *expirable.LRU[string, *genai.File]
	group   singleflight.Group
}

func NewGemini(ctx context.Context, cfg GeminiConfig) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return newGemini(client.Models, client.Files, cfg), nil
}

func newGemini(models contentGenerator, files fileService, cfg GeminiConfig) *Gemini {
	g := &Gemini{
		models:       models,
		files:        files,
		model:        cfg.Model,
		temperature:  cfg.Temperature,
		pollInterval: cfg.PollInterval,
		pollAttempts: cfg.PollAttempts,
		uploads:      expirable.NewLRU[string, *genai.File](uploadCacheSize, nil, uploadCacheTTL),
	}
	if g.model == "" {
		g.model = "gemini-2.5-flash"
	}
	if g.pollInterval <= 0 {
		g.pollInterval = 2 * time.Second
	}
	if g.pollAttempts <= 0 {
		g.pollAttempts = 15
	}
	return g
}

func (g *Gemini) Name() string { return "gemini:" + g.model }

func (g *Gemini) Generate(ctx context.Context, req Request) (*Response, error) {
	contents, err := g.contents(ctx, req.Messages)
	if err != nil {
		return nil, err
	}

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(temperature(req, g.temperature))),
	}
	if req.System != "" {
		config.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.ResponseSchema != nil {
		config.ResponseMIMEType = "application/json"
		config.ResponseSchema = genaiSchema(req.ResponseSchema)
	}
	if len(req.Tools) > 0 {
		decls := make([]*genai.FunctionDeclaration, 0, len(req.Tools))
		for _, t := range req.Tools {
			decls = append(decls, &genai.FunctionDeclaration{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters:  genaiSchema(t.Parameters()),
			})
		}
		config.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
	}

	resp, err := g.models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		return nil, classifyGeminiError(err)
	}

	out := &Response{Text: resp.Text()}
	for _, fc := range resp.FunctionCalls() {
		args, err := json.Marshal(fc.Args)
		if err != nil {
			return nil, fmt.Errorf("failed to encode function call args: %w", err)
		}
		out.ToolCalls = append(out.ToolCalls, ToolCall{ID: fc.ID, Name: fc.Name, Arguments: args})
	}
	return out, nil
}

func (g *Gemini) contents(ctx context.Context, msgs []Message) ([]*genai.Content, error) {
	contents := make([]*genai.Content, 0, len(msgs))
	for _, m := range msgs {
		role := genai.RoleUser
		if m.Role == RoleModel {
			role = genai.RoleModel
		}
		var parts []*genai.Part
		for _, p := range m.Parts {
			part, err := g.part(ctx, p)
			if err != nil {
				return nil, err
			}
			parts = append(parts, part)
		}
		for _, tc := range m.ToolCalls {
			var args map[string]any
			if len(tc.Arguments) > 0 {
				if err := json.Unmarshal(tc.Arguments, &args); err != nil {
					return nil, fmt.Errorf("invalid tool call arguments: %w", err)
				}
			}
			parts = append(parts, &genai.Part{FunctionCall: &genai.FunctionCall{ID: tc.ID, Name: tc.Name, Args: args}})
		}
		for _, tr := range m.ToolResults {
			parts = append(parts, &genai.Part{FunctionResponse: &genai.FunctionResponse{
				ID:       tr.CallID,
				Name:     tr.Name,
				Response: map[string]any{"output": tr.Content},
			}})
		}
		if len(parts) == 0 {
			continue
		}
		contents = append(contents, genai.NewContentFromParts(parts, genai.Role(role)))
	}
	return contents, nil
}

func (g *Gemini) part(ctx context.Context, p Part) (*genai.Part, error) {
	switch {
	case p.URI != "":
		return genai.NewPartFromURI(p.URI, p.MIMEType), nil
	case p.Data != nil:
		file, err := g.uploadOnce(ctx, p)
		if err != nil {
			return nil, err
		}
		return genai.NewPartFromURI(file.URI, file.MIMEType), nil
	default:
		return genai.NewPartFromText(p.Text), nil
	}
}

// uploadOnce reuses the file from an earlier upload of the same bytes, so a
// document replayed from chat history or a tool round is not sent again.
func (g *Gemini) uploadOnce(ctx context.Context, p Part) (*genai.File, error) {
	sum := sha256.Sum256(p.Data)
	key := p.MIMEType + ":" + hex.EncodeToString(sum[:])
	if file, ok := g.uploads.Get(key); ok {
		return file, nil
	}
	v, err, _ := g.group.Do(key, func() (interface{}, error) {
		file, err := g.upload(ctx, p)
		if err != nil {
			return nil, err
		}
		g.uploads.Add(key, file)
		return file, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*genai.File), nil
}

// upload sends the attachment through the Files API and waits, a bounded
// number of times, for it to leave the PROCESSING state.
func (g *Gemini) upload(ctx context.Context, p Part) (*genai.File, error) {
	if g.files == nil {
		return nil, ErrUnsupportedMedia
	}
	file, err := g.files.Upload(ctx, bytes.NewReader(p.Data), &genai.UploadFileConfig{MIMEType: p.MIMEType})
	if err != nil {
		return nil, classifyGeminiError(fmt.Errorf("failed to upload file: %w", err))
	}

	for attempt := 0; file.State == genai.FileStateProcessing; attempt++ {
		if attempt >= g.pollAttempts {
			return nil, fmt.Errorf("%w: file %s still processing", ErrUnavailable, file.Name)
		}
		select {
		case <-ctx.Done():
			return nil, classifyGeminiError(ctx.Err())
		case <-time.After(g.pollInterval):
		}
		file, err = g.files.Get(ctx, file.Name, nil)
		if err != nil {
			return nil, classifyGeminiError(fmt.Errorf("failed to get file state: %w", err))
		}
	}
	if file.State == genai.FileStateFailed {
		return nil, fmt.Errorf("file processing failed for %s", file.Name)
	}
	return file, nil
}

func classifyGeminiError(err error) error {
	code := 0
	var apiErr genai.APIError
	var apiErrPtr *genai.APIError
	switch {
	case errors.As(err, &apiErr):
		code = apiErr.Code
	case errors.As(err, &apiErrPtr):
		code = apiErrPtr.Code
	}
	if retryable(code) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return err
}

func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
}
