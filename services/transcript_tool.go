package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"cavision/internal/llm"

	"github.com/invopop/jsonschema"
)

const TranscriptToolName = "getYoutubeTranscript"

// TranscriptSource fetches the caption text of a video.
type TranscriptSource interface {
	Fetch(ctx context.Context, url string) (string, error)
}

type transcriptInput struct {
	URL string `json:"url" jsonschema_description:"The URL of the YouTube video."`
}

// transcriptTool never fails the turn: fetch errors come back as tool output
// so the model can tell the user.
type transcriptTool struct {
	src TranscriptSource
}

func (t transcriptTool) Name() string { return TranscriptToolName }

func (t transcriptTool) Description() string {
	return "Returns the transcript of a YouTube video. Use this tool whenever a user provides a YouTube link to summarize it or ask questions about it."
}

func (t transcriptTool) Parameters() *jsonschema.Schema {
	return llm.SchemaFor[transcriptInput]()
}

func (t transcriptTool) Call(ctx context.Context, input string) (string, error) {
	var in transcriptInput
	if err := json.Unmarshal([]byte(input), &in); err != nil || strings.TrimSpace(in.URL) == "" {
		return "Could not get transcript: missing video URL", nil
	}
	text, err := t.src.Fetch(ctx, in.URL)
	if err != nil {
		return fmt.Sprintf("Could not get transcript: %v", err), nil
	}
	return text, nil
}
