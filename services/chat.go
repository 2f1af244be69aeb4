package services

import (
	"context"
	"fmt"
	"net/url"
	"slices"
	"strings"

	"cavision/internal/llm"
	"cavision/internal/logger"
	"cavision/internal/transcript"
	"cavision/models"
	"cavision/utils"

	"github.com/samber/lo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	MaxChatHistory = 50
	maxToolRounds  = 3
)

const ChatFallback = "Sorry, I couldn't respond right now. Please try again in a moment."

const chatSystemPrompt = `You are a helpful AI assistant for Chartered Accountancy (CA) students. You answer questions, summarize study material and chat about topics related to the CA exams.
When the user shares a YouTube link, you MUST call the getYoutubeTranscript tool to fetch the transcript and then answer from it. If the transcript cannot be fetched, say so plainly.
When the user attaches a document, answer from its content.
Be friendly and encouraging. Give clear, concise explanations. Use markdown: **bold** for key terms and bullet lists for steps or enumerations.`

type ChatService struct {
	model       llm.Model
	transcripts TranscriptSource
	log         *logger.Logger
	tracer      trace.Tracer
}

func NewChatService(model llm.Model, transcripts TranscriptSource, log *logger.Logger) *ChatService {
	if log == nil {
		log = logger.Nop()
	}
	return &ChatService{
		model:       model,
		transcripts: transcripts,
		log:         log.With("service", "ChatService"),
		tracer:      otel.Tracer("cavision/services"),
	}
}

type ChatReply struct {
	Reply   models.ChatMessage   `json:"reply"`
	History []models.ChatMessage `json:"history"`
	// Degraded is set when Reply is the fallback text.
	Degraded bool `json:"degraded,omitempty"`
}

// Reply answers turn given the earlier history. Only invalid input is an
// error; a failing model yields the fallback reply.
func (c *ChatService) Reply(ctx context.Context, history []models.ChatMessage, turn models.ChatMessage) (*ChatReply, error) {
	if err := validateTurn(turn); err != nil {
		return nil, err
	}
	if len(history) > MaxChatHistory {
		history = history[len(history)-MaxChatHistory:]
	}
	for i, m := range history {
		if m.Role != models.ChatRoleUser && m.Role != models.ChatRoleAssistant {
			return nil, invalid("history[%d]: role must be user or assistant", i)
		}
	}

	msgs := make([]llm.Message, 0, len(history)+1)
	for i, m := range append(slices.Clone(history), turn) {
		msg, err := toModelMessage(m)
		if err != nil {
			if i == len(history) {
				return nil, err
			}
			return nil, fmt.Errorf("history[%d]: %w", i, err)
		}
		msgs = append(msgs, msg)
	}

	req := llm.Request{System: chatSystemPrompt, Messages: msgs}
	videoURL, hasVideo := transcript.FindVideoURL(turn.Text())
	if hasVideo && c.transcripts != nil {
		req.Tools = []llm.Tool{transcriptTool{src: c.transcripts}}
	}

	ctx, span := c.tracer.Start(ctx, "chat.reply", trace.WithAttributes(
		attribute.Int("chat.history", len(history)),
		attribute.Bool("chat.video", hasVideo),
		attribute.Bool("chat.attachment", turn.HasMedia()),
	))
	defer span.End()

	out := &ChatReply{}
	resp, _, err := llm.Converse(ctx, c.model, req, maxToolRounds)
	switch {
	case err != nil:
		span.RecordError(err)
		c.log.Warn("chat model call failed", "model", c.model.Name(), "video", videoURL, "error", err)
		out.Reply, out.Degraded = models.AssistantText(ChatFallback), true
	case strings.TrimSpace(resp.Text) == "":
		c.log.Warn("chat model returned no text", "model", c.model.Name())
		out.Reply, out.Degraded = models.AssistantText(ChatFallback), true
	default:
		out.Reply = models.AssistantText(resp.Text)
	}
	out.History = append(append(slices.Clone(history), turn), out.Reply)
	if n := len(out.History); n > MaxChatHistory {
		out.History = out.History[n-MaxChatHistory:]
	}
	return out, nil
}

func validateTurn(turn models.ChatMessage) error {
	if turn.Role != models.ChatRoleUser {
		return invalid("message role must be user")
	}
	media := lo.CountBy(turn.Content, func(p models.ChatPart) bool { return p.Media != nil })
	if media > 1 {
		return invalid("attach at most one file per message")
	}
	if strings.TrimSpace(turn.Text()) == "" && media == 0 {
		return invalid("message is empty")
	}
	return nil
}

func toModelMessage(m models.ChatMessage) (llm.Message, error) {
	msg := llm.Message{Role: llm.RoleUser}
	if m.Role == models.ChatRoleAssistant {
		msg.Role = llm.RoleModel
	}
	for _, p := range m.Content {
		if p.Media == nil {
			if p.Text != "" {
				msg.Parts = append(msg.Parts, llm.TextPart(p.Text))
			}
			continue
		}
		parts, err := mediaParts(*p.Media)
		if err != nil {
			return msg, err
		}
		msg.Parts = append(msg.Parts, parts...)
	}
	return msg, nil
}

// mediaParts decodes inline attachments under the upload limits. Remote
// references are passed through by URL.
func mediaParts(m models.Media) ([]llm.Part, error) {
	if strings.HasPrefix(m.URL, "data:") {
		declared, data, err := utils.DecodeDataURI(m.URL)
		if err != nil {
			return nil, invalid("attachment is not a valid data URI")
		}
		if int64(len(data)) > MaxUploadBytes {
			return nil, ErrFileTooLarge
		}
		if strings.HasPrefix(declared, "image/") {
			ct, err := DetectImage(data, MaxUploadBytes)
			if err != nil {
				return nil, err
			}
			return []llm.Part{llm.DataPart(ct, data)}, nil
		}
		doc, err := DetectDocument("", declared, data, MaxUploadBytes)
		if err != nil {
			return nil, err
		}
		return doc.Parts("Attached document:")
	}

	u, err := url.Parse(m.URL)
	if err != nil || (u.Scheme != "https" && u.Scheme != "gs") {
		return nil, invalid("attachment URL must be a data URI or an https/gs URL")
	}
	if m.ContentType == "" {
		return nil, invalid("attachment URL needs a contentType")
	}
	return []llm.Part{{URI: m.URL, MIMEType: m.ContentType}}, nil
}
