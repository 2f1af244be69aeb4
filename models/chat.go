package models

const (
	ChatRoleUser      = "user"
	ChatRoleAssistant = "assistant"
)

// Media references an attachment by URL; data: URIs carry the bytes inline.
type Media struct {
	URL         string `json:"url" binding:"required"`
	ContentType string `json:"contentType"`
}

// ChatPart is either text or a media reference.
type ChatPart struct {
	Text  string `json:"text,omitempty"`
	Media *Media `json:"media,omitempty"`
}

type ChatMessage struct {
	Role    string     `json:"role" binding:"required,oneof=user assistant"`
	Content []ChatPart `json:"content"`
}

// Text concatenates the text parts of the message.
func (m ChatMessage) Text() string {
	var out string
	for _, p := range m.Content {
		if p.Text == "" {
			continue
		}
		if out != "" {
			out += "\n"
		}
		out += p.Text
	}
	return out
}

// HasMedia reports whether any part is an attachment.
func (m ChatMessage) HasMedia() bool {
	for _, p := range m.Content {
		if p.Media != nil {
			return true
		}
	}
	return false
}

func AssistantText(text string) ChatMessage {
	return ChatMessage{Role: ChatRoleAssistant, Content: []ChatPart{{Text: text}}}
}
