package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"cavision/internal/llm"
	"cavision/models"
	"cavision/utils"
)

func userText(text string) models.ChatMessage {
	return models.ChatMessage{Role: models.ChatRoleUser, Content: []models.ChatPart{{Text: text}}}
}

func TestChatPlainReply(t *testing.T) {
	model := &fakeModel{responses: []*llm.Response{{Text: "**Depreciation** spreads cost."}}}
	svc := NewChatService(model, &fakeTranscripts{}, nil)

	history := []models.ChatMessage{userText("hi"), models.AssistantText("Hello! How can I help?")}
	out, err := svc.Reply(context.Background(), history, userText("What is depreciation?"))
	if err != nil {
		t.Fatalf("Reply: %v", err)
	}
	if out.Degraded || out.Reply.Text() != "**Depreciation** spreads cost." {
		t.Fatalf("reply = %+v", out)
	}
	if len(out.History) != 4 || out.History[3].Role != models.ChatRoleAssistant {
		t.Fatalf("history = %+v", out.History)
	}

	req := model.requests[0]
	if len(req.Tools) != 0 {
		t.Fatal("transcript tool offered without a video link")
	}
	if req.Messages[1].Role != llm.RoleModel || req.Messages[2].Role != llm.RoleUser {
		t.Fatalf("roles not mapped: %+v", req.Messages)
	}
	if !strings.Contains(req.System, "Chartered Accountancy") {
		t.Fatal("persona missing from system prompt")
	}
}

func TestChatYouTubeLinkUsesTranscriptTool(t *testing.T) {
	args, _ := json.Marshal(map[string]string{"url": "https://youtu.be/dQw4w9WgXcQ"})
	model := &fakeModel{responses: []*llm.Response{
		{ToolCalls: []llm.ToolCall{{ID: "call-1", Name: TranscriptToolName, Arguments: args}}},
		{Text: "The video explains GST."},
	}}
	src := &fakeTranscripts{text: "today we discuss GST"}
	svc := NewChatService(model, src, nil)

	out, err := svc.Reply(context.Background(), nil, userText("https://youtu.be/dQw4w9WgXcQ"))
	if err != nil {
		t.Fatalf("Reply: %v", err)
	}
	if out.Reply.Text() != "The video explains GST." {
		t.Fatalf("reply = %q", out.Reply.Text())
	}
	if len(model.requests[0].Tools) != 1 || model.requests[0].Tools[0].Name() != TranscriptToolName {
		t.Fatal("transcript tool not offered")
	}
	if len(src.urls) != 1 || src.urls[0] != "https://youtu.be/dQw4w9WgXcQ" {
		t.Fatalf("fetched %v", src.urls)
	}
	results := model.requests[1].Messages[len(model.requests[1].Messages)-1].ToolResults
	if len(results) != 1 || results[0].Content != "today we discuss GST" {
		t.Fatalf("tool results = %+v", results)
	}
	if len(out.History) != 2 {
		t.Fatalf("tool turns leaked into history: %+v", out.History)
	}
}

func TestChatTranscriptErrorStillReplies(t *testing.T) {
	args, _ := json.Marshal(map[string]string{"url": "https://www.youtube.com/watch?v=dQw4w9WgXcQ"})
	model := &fakeModel{responses: []*llm.Response{
		{ToolCalls: []llm.ToolCall{{ID: "c", Name: TranscriptToolName, Arguments: args}}},
		{Text: "I couldn't fetch that transcript."},
	}}
	svc := NewChatService(model, &fakeTranscripts{err: errors.New("captions disabled")}, nil)

	out, err := svc.Reply(context.Background(), nil, userText("https://www.youtube.com/watch?v=dQw4w9WgXcQ"))
	if err != nil {
		t.Fatalf("Reply: %v", err)
	}
	if out.Degraded {
		t.Fatal("reply should come from the model")
	}
	results := model.requests[1].Messages[len(model.requests[1].Messages)-1].ToolResults
	if !strings.HasPrefix(results[0].Content, "Could not get transcript: captions disabled") {
		t.Fatalf("tool output = %q", results[0].Content)
	}
}

func TestChatModelFailureFallsBack(t *testing.T) {
	svc := NewChatService(&fakeModel{err: llm.ErrUnavailable}, nil, nil)
	out, err := svc.Reply(context.Background(), nil, userText("hello"))
	if err != nil {
		t.Fatalf("Reply: %v", err)
	}
	if !out.Degraded || out.Reply.Text() != ChatFallback {
		t.Fatalf("reply = %+v", out)
	}
	if len(out.History) != 2 || out.History[1].Text() != ChatFallback {
		t.Fatalf("fallback not appended: %+v", out.History)
	}
}

func TestChatHistoryIsCapped(t *testing.T) {
	model := &fakeModel{responses: []*llm.Response{{Text: "ok"}}}
	svc := NewChatService(model, nil, nil)

	history := make([]models.ChatMessage, 0, 60)
	for i := 0; i < 30; i++ {
		history = append(history, userText("q"), models.AssistantText("a"))
	}
	out, err := svc.Reply(context.Background(), history, userText("last"))
	if err != nil {
		t.Fatalf("Reply: %v", err)
	}
	if got := len(model.requests[0].Messages); got != MaxChatHistory+1 {
		t.Fatalf("replayed %d messages, want %d", got, MaxChatHistory+1)
	}
	if len(out.History) != MaxChatHistory {
		t.Fatalf("history len = %d, want %d", len(out.History), MaxChatHistory)
	}
	last := out.History[len(out.History)-2:]
	if last[0].Text() != "last" || last[1].Text() != "ok" {
		t.Fatalf("history should end with the new turn and reply, got %+v", last)
	}
}

func TestChatRejectsInvalidInput(t *testing.T) {
	pdf := utils.EncodeDataURI(MIMEPDF, []byte("%PDF-1.4"))
	cases := map[string]struct {
		history []models.ChatMessage
		turn    models.ChatMessage
		want    error
	}{
		"bad history role": {
			history: []models.ChatMessage{{Role: "system", Content: []models.ChatPart{{Text: "x"}}}},
			turn:    userText("hi"),
			want:    ErrInvalidRequest,
		},
		"assistant turn": {turn: models.AssistantText("hi"), want: ErrInvalidRequest},
		"empty turn":     {turn: userText("   "), want: ErrInvalidRequest},
		"two files": {
			turn: models.ChatMessage{Role: models.ChatRoleUser, Content: []models.ChatPart{
				{Media: &models.Media{URL: pdf}}, {Media: &models.Media{URL: pdf}},
			}},
			want: ErrInvalidRequest,
		},
		"unsupported file": {
			turn: models.ChatMessage{Role: models.ChatRoleUser, Content: []models.ChatPart{
				{Media: &models.Media{URL: utils.EncodeDataURI("application/zip", []byte("PK\x03\x04"))}},
			}},
			want: ErrUnsupportedFile,
		},
		"too large": {
			turn: models.ChatMessage{Role: models.ChatRoleUser, Content: []models.ChatPart{
				{Media: &models.Media{URL: utils.EncodeDataURI(MIMEPDF, make([]byte, MaxUploadBytes+1))}},
			}},
			want: ErrFileTooLarge,
		},
		"http url": {
			turn: models.ChatMessage{Role: models.ChatRoleUser, Content: []models.ChatPart{
				{Media: &models.Media{URL: "http://example.com/a.pdf", ContentType: MIMEPDF}},
			}},
			want: ErrInvalidRequest,
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			model := &fakeModel{}
			svc := NewChatService(model, nil, nil)
			_, err := svc.Reply(context.Background(), tc.history, tc.turn)
			if !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
			if len(model.requests) != 0 {
				t.Fatal("model called for invalid input")
			}
		})
	}
}

func TestChatPDFAttachment(t *testing.T) {
	model := &fakeModel{responses: []*llm.Response{{Text: "Chapter 1 covers leases."}}}
	svc := NewChatService(model, nil, nil)
	turn := models.ChatMessage{Role: models.ChatRoleUser, Content: []models.ChatPart{
		{Text: "Summarise this"},
		{Media: &models.Media{URL: utils.EncodeDataURI(MIMEPDF, []byte("%PDF-1.4 body")), ContentType: MIMEPDF}},
	}}
	if _, err := svc.Reply(context.Background(), nil, turn); err != nil {
		t.Fatalf("Reply: %v", err)
	}
	parts := model.requests[0].Messages[0].Parts
	last := parts[len(parts)-1]
	if last.MIMEType != MIMEPDF || string(last.Data) != "%PDF-1.4 body" {
		t.Fatalf("attachment part = %+v", last)
	}
}
